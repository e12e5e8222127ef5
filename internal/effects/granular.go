package effects

import (
	"math"
	"math/rand"

	"github.com/cbegin/trackersynth/internal/song"
)

const maxGrains = song.GrainAmountsMax * 2

// grain replays the delay line from a fixed distance behind the write head
// under a windowed envelope. The envelope follows the recurrence
// y[n+1] = a*y[n] - y[n-1] + b, which covers both the parabola and the
// raised cosine.
type grain struct {
	delay int
	// offset is the sample within the current run where the grain begins.
	offset    int
	remaining int
	cur, prev float64
	a, b      float64
}

func (g *grain) start(envelope, length, delay, offset int) {
	g.delay = delay
	g.offset = offset
	g.remaining = length
	size := float64(length)
	g.cur = 0
	if envelope == song.GrainRaisedCosine {
		c := math.Cos(2 * math.Pi / size)
		g.a = 2 * c
		g.b = 1 - c
		g.prev = 0.5 - 0.5*c
		return
	}
	g.a = 2
	g.b = -8 / (size * size)
	g.prev = -4 / size * (1 + 1/size)
}

type granular struct {
	lineL, lineR []float64
	pos          int
	wetL, wetR   []float64

	grains [maxGrains]grain
	active int

	mix, mixDelta float64
	wetGain       float64
	untilNext     float64
	rng           *rand.Rand
}

func (g *granular) init() {
	g.rng = rand.New(rand.NewSource(1))
}

func (g *granular) compute(p *Params, run float64) {
	g.mix = math.Min(1, p.Granular.Start/(song.GranularRange-1))
	g.mixDelta = (math.Min(1, p.Granular.End/(song.GranularRange-1)) - g.mix) / run
	g.wetGain = 1 / math.Sqrt(math.Max(1, float64(p.GrainAmounts)))

	length := max(int(p.GrainSize*p.SampleRate/1000), 2)
	spread := max(int(p.GrainRange*p.SampleRate/1000), 0)
	g.lineL = growDelayLine(g.lineL, g.pos, spread+int(run)+2)
	g.lineR = growDelayLine(g.lineR, g.pos, spread+int(run)+2)

	if p.GrainAmounts <= 0 {
		return
	}
	// untilNext counts samples from the start of this run to the next spawn.
	interval := float64(length) / float64(p.GrainAmounts)
	for g.untilNext < run {
		at := max(int(g.untilNext), 0)
		g.untilNext += interval
		if g.active == maxGrains {
			continue
		}
		delay := 1 + g.rng.Intn(spread+1)
		g.grains[g.active].start(p.GrainEnvelope, length, delay, at)
		g.active++
	}
	g.untilNext -= run
}

func (g *granular) reset() {
	clear(g.lineL)
	clear(g.lineR)
	g.pos = 0
	g.active = 0
	g.untilNext = 0
	g.rng.Seed(1)
}

// runGranular writes the run into the delay line first so that grains with
// short delays can read samples from earlier in the same run.
func (s *State) runGranular(n int) {
	g := &s.granular
	if len(g.wetL) < n {
		g.wetL = make([]float64, n)
		g.wetR = make([]float64, n)
	}
	lineL, lineR := g.lineL, g.lineR
	mask := len(lineL) - 1
	l, r := s.left, s.right
	wetL, wetR := g.wetL[:n], g.wetR[:n]
	for i := 0; i < n; i++ {
		lineL[(g.pos+i)&mask] = l[i]
		lineR[(g.pos+i)&mask] = r[i]
		wetL[i] = 0
		wetR[i] = 0
	}
	for k := 0; k < g.active; k++ {
		gr := &g.grains[k]
		from := min(gr.offset, n)
		end := from + min(n-from, gr.remaining)
		cur, prev := gr.cur, gr.prev
		base := g.pos - gr.delay
		for i := from; i < end; i++ {
			j := (base + i) & mask
			wetL[i] += lineL[j] * cur
			wetR[i] += lineR[j] * cur
			cur, prev = gr.a*cur-prev+gr.b, cur
		}
		gr.cur, gr.prev = cur, prev
		gr.remaining -= end - from
		gr.offset -= from
	}
	for k := 0; k < g.active; {
		if g.grains[k].remaining <= 0 {
			g.active--
			g.grains[k] = g.grains[g.active]
			continue
		}
		k++
	}
	mix := g.mix
	for i := 0; i < n; i++ {
		l[i] = l[i]*(1-mix) + wetL[i]*g.wetGain*mix
		r[i] = r[i]*(1-mix) + wetR[i]*g.wetGain*mix
		mix += g.mixDelta
	}
	g.mix = mix
	g.pos = (g.pos + n) & mask
}
