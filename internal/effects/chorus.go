package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// Each channel reads three taps whose delays sweep sinusoidally around
// these offsets (in units of the chorus range).
var (
	chorusDelayOffsets = [2][3]float64{{1.51, 2.10, 3.35}, {1.47, 2.15, 3.25}}
	chorusPhaseOffsets = [2][3]float64{{0, 2.1, 4.2}, {3.2, 5.3, 1.0}}
)

type chorus struct {
	lineL, lineR []float64
	pos          int
	phase        float64

	mix, mixDelta float64
	taps          [2][3]float64
	tapDeltas     [2][3]float64
}

func (c *chorus) compute(p *Params, run float64) {
	size := int(math.Ceil(p.SampleRate*song.ChorusMaxDelay)) + 2
	c.lineL = growDelayLine(c.lineL, c.pos, size)
	c.lineR = growDelayLine(c.lineR, c.pos, size)
	length := float64(len(c.lineL))

	c.mix = math.Min(1, p.Chorus.Start/(song.ChorusRange-1))
	c.mixDelta = (math.Min(1, p.Chorus.End/(song.ChorusRange-1)) - c.mix) / run

	angle := 2 * math.Pi / (song.ChorusPeriodSeconds * p.SampleRate)
	rng := p.SampleRate * song.ChorusDelayRange
	phase := math.Mod(c.phase, 2*math.Pi)
	next := phase + angle*run
	pos := float64(c.pos)
	for ch := range c.taps {
		for v := range c.taps[ch] {
			offset := length - chorusDelayOffsets[ch][v]*rng
			start := pos + offset - rng*math.Sin(phase+chorusPhaseOffsets[ch][v])
			end := pos + offset - rng*math.Sin(next+chorusPhaseOffsets[ch][v]) + run
			c.taps[ch][v] = start
			c.tapDeltas[ch][v] = (end - start) / run
		}
	}
	c.phase = next
}

func (c *chorus) reset() {
	clear(c.lineL)
	clear(c.lineR)
	c.pos = 0
	c.phase = 0
}

// runChorus mixes the centre tap against the two side taps of each
// channel, normalising the sum to constant power.
func (s *State) runChorus(n int) {
	c := &s.chorus
	lineL, lineR := c.lineL, c.lineR
	mask := len(lineL) - 1
	l, r := s.left, s.right
	pos := c.pos
	mix := c.mix
	t, d := c.taps, c.tapDeltas
	for i := 0; i < n; i++ {
		l0 := tap(lineL, mask, t[0][0])
		l1 := tap(lineL, mask, t[0][1])
		l2 := tap(lineL, mask, t[0][2])
		r0 := tap(lineR, mask, t[1][0])
		r1 := tap(lineR, mask, t[1][1])
		r2 := tap(lineR, mask, t[1][2])
		lineL[pos] = l[i]
		lineR[pos] = r[i]
		combined := 1 / math.Sqrt(3*mix*mix+1)
		l[i] = combined * (l[i] + mix*(l1-l0-l2))
		r[i] = combined * (r[i] + mix*(r1-r0-r2))
		pos = (pos + 1) & mask
		for ch := range t {
			for v := range t[ch] {
				t[ch][v] += d[ch][v]
			}
		}
		mix += c.mixDelta
	}
	c.pos = pos
	c.mix = mix
	c.taps = t
}
