package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/song"
)

// echoShelfGain darkens each repeat above song.EchoShelfHz.
var echoShelfGain = math.Pow(2, -0.5)

// echo is a stereo feedback delay whose length is a whole number of tick
// steps. A change of length cross-fades from the old tap to the new one over
// one run.
type echo struct {
	lineL, lineR []float64
	pos          int
	peak         float64

	mult, multDelta, multEnd float64
	offsetStart, offsetEnd   int
	hasOffset                bool
	ratio, ratioDelta        float64
	shelfL, shelfR           filter.FirstOrder
}

// EchoDelaySamples converts an echo delay setting to samples.
func EchoDelaySamples(setting, samplesPerTick float64) int {
	return int(math.Round((setting + 1) * song.EchoDelayStepTicks * samplesPerTick))
}

func echoMult(sustain float64) float64 {
	return math.Min(1, math.Pow(math.Max(0, sustain)/song.EchoSustainRange, 1.1)) * 0.9
}

func (e *echo) compute(p *Params, run float64) {
	e.mult = echoMult(p.Echo.Start)
	e.multEnd = echoMult(p.Echo.End)
	e.multDelta = (e.multEnd - e.mult) / run

	offset := max(EchoDelaySamples(p.EchoDelay, p.SamplesPerTick), 1)
	if e.hasOffset {
		e.offsetStart = e.offsetEnd
	} else {
		e.offsetStart = offset
		e.hasOffset = true
	}
	e.offsetEnd = offset
	e.ratio = 0
	e.ratioDelta = 1 / run

	size := max(e.offsetStart, e.offsetEnd) + 1
	e.lineL = growDelayLine(e.lineL, e.pos, size)
	e.lineR = growDelayLine(e.lineR, e.pos, size)

	var shelf filter.Coefficients
	shelf.HighShelf1stOrder(shelfRadians(song.EchoShelfHz, p.SampleRate), echoShelfGain)
	e.shelfL.LoadWithGradient(&shelf, &shelf, 0)
	e.shelfR.LoadWithGradient(&shelf, &shelf, 0)
}

func shelfRadians(hz, sampleRate float64) float64 {
	return math.Min(2*math.Pi*hz/sampleRate, math.Pi*0.99)
}

func (e *echo) reset() {
	clear(e.lineL)
	clear(e.lineR)
	e.pos = 0
	e.peak = 0
	e.hasOffset = false
	e.shelfL.Input1, e.shelfL.Output1 = 0, 0
	e.shelfR.Input1, e.shelfR.Output1 = 0, 0
}

func (e *echo) sanitize() {
	if !stable(e.peak) {
		e.reset()
		return
	}
	e.peak = 0
	e.shelfL.Sanitize()
	e.shelfR.Sanitize()
	sanitizeDelayLine(e.lineL, e.pos)
	sanitizeDelayLine(e.lineR, e.pos)
}

func (s *State) runEcho(n int) {
	e := &s.echo
	lineL, lineR := e.lineL, e.lineR
	mask := len(lineL) - 1
	l, r := s.left, s.right
	pos := e.pos
	mult, ratio := e.mult, e.ratio
	peak := e.peak
	for i := 0; i < n; i++ {
		a := (pos - e.offsetStart) & mask
		b := (pos - e.offsetEnd) & mask
		tapL := (lineL[a] + (lineL[b]-lineL[a])*ratio) * mult
		tapR := (lineR[a] + (lineR[b]-lineR[a])*ratio) * mult
		l[i] += e.shelfL.Apply(tapL)
		r[i] += e.shelfR.Apply(tapR)
		lineL[pos] = l[i]
		lineR[pos] = r[i]
		peak = math.Max(peak, math.Max(math.Abs(l[i]), math.Abs(r[i])))
		pos = (pos + 1) & mask
		ratio += e.ratioDelta
		mult += e.multDelta
	}
	e.pos = pos
	e.mult, e.ratio = mult, ratio
	e.peak = peak
}
