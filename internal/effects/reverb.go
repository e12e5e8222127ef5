package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/song"
)

var reverbShelfGain = math.Pow(2, -1.5)

// Feedback delay network lengths. They sum to song.ReverbDelayBufferSize,
// so the four lines share one buffer: 3041, 3385, 4481 and 5477 samples.
const (
	reverbTap1 = 3041
	reverbTap2 = 6426
	reverbTap3 = 10907
)

// reverb is a four-line feedback delay network mixed through a Hadamard
// matrix, with a high shelf in each feedback path.
type reverb struct {
	line []float64
	pos  int
	// peak is the largest feedback magnitude written in the last run. NaN
	// propagates through math.Max, so any non-finite write is kept.
	peak float64

	mult, multDelta, multEnd float64
	shelf                    [4]filter.FirstOrder
}

func reverbMult(setting float64) float64 {
	return math.Min(1, math.Pow(math.Max(0, setting)/song.ReverbRange, 0.667)) * 0.425
}

func (rv *reverb) compute(p *Params, run float64) {
	if rv.line == nil {
		rv.line = make([]float64, song.ReverbDelayBufferSize)
	}
	rv.mult = reverbMult(p.Reverb.Start)
	rv.multEnd = reverbMult(p.Reverb.End)
	rv.multDelta = (rv.multEnd - rv.mult) / run

	var shelf filter.Coefficients
	shelf.HighShelf1stOrder(shelfRadians(song.ReverbShelfHz, p.SampleRate), reverbShelfGain)
	for i := range rv.shelf {
		rv.shelf[i].LoadWithGradient(&shelf, &shelf, 0)
	}
}

func (rv *reverb) reset() {
	clear(rv.line)
	rv.pos = 0
	rv.peak = 0
	for i := range rv.shelf {
		rv.shelf[i].Input1, rv.shelf[i].Output1 = 0, 0
	}
}

func (rv *reverb) sanitize() {
	if !stable(rv.peak) {
		rv.reset()
		return
	}
	rv.peak = 0
	for i := range rv.shelf {
		rv.shelf[i].Sanitize()
	}
	sanitizeDelayLine(rv.line, rv.pos)
}

func (s *State) runReverb(n int) {
	rv := &s.reverb
	line := rv.line
	const mask = song.ReverbDelayBufferSize - 1
	l, r := s.left, s.right
	pos := rv.pos
	mult := rv.mult
	sh := &rv.shelf
	peak := rv.peak
	for i := 0; i < n; i++ {
		p1 := (pos + reverbTap1) & mask
		p2 := (pos + reverbTap2) & mask
		p3 := (pos + reverbTap3) & mask
		s0, s1, s2, s3 := line[pos], line[p1], line[p2], line[p3]
		t0 := -(s0 + l[i]) + s1
		t1 := -(s0 + r[i]) - s1
		t2 := -s2 + s3
		t3 := -s2 - s3
		w0 := sh[0].Apply((t0 + t2) * mult)
		w1 := sh[1].Apply((t1 + t3) * mult)
		w2 := sh[2].Apply((t0 - t2) * mult)
		w3 := sh[3].Apply((t1 - t3) * mult)
		line[p1], line[p2], line[p3], line[pos] = w0, w1, w2, w3
		peak = math.Max(peak, math.Max(math.Max(math.Abs(w0), math.Abs(w1)), math.Max(math.Abs(w2), math.Abs(w3))))
		pos = (pos + 1) & mask
		l[i] += s1 + s2 + s3
		r[i] += s0 + s2 - s3
		mult += rv.multDelta
	}
	rv.pos = pos
	rv.mult = mult
	rv.peak = peak
}
