// Package pickedstring implements a Karplus-Strong style plucked string: a
// delay line fed back through a dispersion all-pass and a decaying high
// shelf.
package pickedstring

import (
	"math"

	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/song"
)

const (
	dispersionCenterHz  = 6000.0
	dispersionFreqScale = 0.3
	dispersionFreqMult  = 4.0
	shelfHz             = 4000.0
	acousticShelfHz     = 2000.0
	decayRate           = 0.12
	// Residual energy below which a released string is considered silent.
	SilenceThreshold = 1e-4
)

// String is the state of one plucked string voice.
type String struct {
	delayLine        []float64
	delayIndex       int
	delayResetOffset int

	allPassSample    float64
	allPassPrevInput float64
	shelfSample      float64
	shelfPrevInput   float64
	fractionalSample float64

	prevDelayLength  float64
	delayLength      float64
	delayLengthDelta float64

	allPassG, allPassGDelta float64
	shelfA1, shelfA1Delta   float64
	shelfB0, shelfB0Delta   float64
	shelfB1, shelfB1Delta   float64

	energy float64
}

// Reset marks the string for a fresh pluck on the next Update.
func (s *String) Reset() {
	s.delayIndex = -1
	s.allPassSample = 0
	s.allPassPrevInput = 0
	s.shelfSample = 0
	s.shelfPrevInput = 0
	s.fractionalSample = 0
	s.prevDelayLength = -1
	s.delayResetOffset = 0
	s.energy = 0
}

// Params carries the per-tick inputs of Update.
type Params struct {
	SampleRate float64
	// PhaseDeltaStart is cycles per sample at the start of the run and
	// PhaseDeltaScale its per-sample geometric factor.
	PhaseDeltaStart float64
	PhaseDeltaScale float64
	RunLength       int
	// DecayStart and DecayEnd are in [0, 1]; higher values damp faster.
	DecayStart, DecayEnd float64
	SustainType          int
	// ImpulseWave is an integrated single-cycle wave with one guard sample.
	ImpulseWave []float64
}

// Decay converts a string sustain setting and its envelope multiplier into
// the decay value Update expects.
func Decay(sustain int, envelope float64) float64 {
	v := 1 - float64(sustain)/float64(song.SustainRange-1)*envelope
	return math.Max(0, math.Min(1, v))
}

// Update recomputes the filter gradients for the next run and plucks the
// string when it was reset or its pitch jumped.
func (s *String) Update(p *Params) {
	run := float64(p.RunLength)
	if run < 1 {
		run = 1
	}
	phaseDeltaEnd := p.PhaseDeltaStart * math.Pow(p.PhaseDeltaScale, run)
	radiansStart := 2 * math.Pi * p.PhaseDeltaStart
	radiansEnd := 2 * math.Pi * phaseDeltaEnd
	harmonicStart := radiansStart * 2
	harmonicEnd := radiansEnd * 2

	allPassCenter := 2 * math.Pi * dispersionCenterHz / p.SampleRate
	allPassRadians := func(r float64) float64 {
		return math.Min(math.Pi, r*dispersionFreqMult*math.Pow(allPassCenter/r, dispersionFreqScale))
	}
	hz := shelfHz
	if p.SustainType == song.SustainAcoustic {
		hz = acousticShelfHz
	}
	shelfRadians := 2 * math.Pi * hz / p.SampleRate

	curveStart := (math.Pow(100, p.DecayStart) - 1) / 99
	curveEnd := (math.Pow(100, p.DecayEnd) - 1) / 99
	rateStart := math.Pow(0.5, curveStart*shelfRadians/radiansStart)
	rateEnd := math.Pow(0.5, curveEnd*shelfRadians/radiansEnd)
	shelfGainStart := math.Pow(rateStart, decayRate)
	shelfGainEnd := math.Pow(rateEnd, decayRate)
	exprDecayStart := math.Pow(rateStart, 0.002)
	exprDecayEnd := math.Pow(rateEnd, 0.002)

	var c filter.Coefficients
	c.AllPass1stOrderInvertPhaseAbove(allPassRadians(radiansStart))
	allPassGStart := c.B[0]
	allPassDelayStart := -filter.Analyze(&c, harmonicStart).Angle() / harmonicStart
	c.AllPass1stOrderInvertPhaseAbove(allPassRadians(radiansEnd))
	allPassGEnd := c.B[0]
	allPassDelayEnd := -filter.Analyze(&c, harmonicEnd).Angle() / harmonicEnd

	c.HighShelf1stOrder(shelfRadians, shelfGainStart)
	a1Start, b0Start, b1Start := c.A[1], c.B[0]*exprDecayStart, c.B[1]*exprDecayStart
	shelfDelayStart := -filter.Analyze(&c, harmonicStart).Angle() / harmonicStart
	c.HighShelf1stOrder(shelfRadians, shelfGainEnd)
	a1End, b0End, b1End := c.A[1], c.B[0]*exprDecayEnd, c.B[1]*exprDecayEnd
	shelfDelayEnd := -filter.Analyze(&c, harmonicEnd).Angle() / harmonicEnd

	periodStart := 1 / p.PhaseDeltaStart
	periodEnd := 1 / phaseDeltaEnd
	minBuffer := int(math.Ceil(math.Max(periodStart, periodEnd) * 2))
	delayLength := periodStart - allPassDelayStart - shelfDelayStart
	delayLengthEnd := periodEnd - allPassDelayEnd - shelfDelayEnd

	prev := s.prevDelayLength
	s.prevDelayLength = delayLength
	s.delayLength = delayLength
	s.delayLengthDelta = (delayLengthEnd - delayLength) / run
	s.allPassG = allPassGStart
	s.allPassGDelta = (allPassGEnd - allPassGStart) / run
	s.shelfA1, s.shelfA1Delta = a1Start, (a1End-a1Start)/run
	s.shelfB0, s.shelfB0Delta = b0Start, (b0End-b0Start)/run
	s.shelfB1, s.shelfB1Delta = b1Start, (b1End-b1Start)/run

	pitchChanged := prev > 0 && math.Abs(math.Log2(delayLength/prev)) > 0.01
	pluck := s.delayIndex == -1 || prev <= 0 || pitchChanged

	if len(s.delayLine) <= minBuffer {
		likely := int(math.Ceil(2 * p.SampleRate / song.FrequencyFromPitch(12)))
		s.grow(fittingPowerOfTwo(max(likely, minBuffer+1)), !pluck)
	}
	if pluck {
		s.pluck(p, delayLength, periodStart)
	}
}

// grow replaces the delay line with a larger one, optionally carrying the
// existing history over so a sounding string does not click.
func (s *String) grow(size int, keep bool) {
	next := make([]float64, size)
	if keep && len(s.delayLine) > 0 {
		mask := len(s.delayLine) - 1
		from := s.delayIndex + s.delayResetOffset
		for i := range s.delayLine {
			next[i] = s.delayLine[(from+i)&mask]
		}
		s.delayIndex = len(s.delayLine) - s.delayResetOffset
	}
	s.delayLine = next
}

func (s *String) pluck(p *Params, delayLength, period float64) {
	s.delayIndex = 0
	s.allPassSample = 0
	s.allPassPrevInput = 0
	s.shelfSample = 0
	s.shelfPrevInput = 0
	s.fractionalSample = 0
	s.energy = 1

	mask := len(s.delayLine) - 1
	impulseFrom := -delayLength
	zerosFrom := int(math.Floor(impulseFrom - period/2))
	zerosTo := int(math.Floor(float64(zerosFrom) + period*2))
	s.delayResetOffset = zerosTo
	for i := zerosFrom; i <= zerosTo; i++ {
		s.delayLine[i&mask] = 0
	}

	wave := p.ImpulseWave
	if len(wave) < 2 {
		return
	}
	waveLength := len(wave) - 1
	phaseDelta := float64(waveLength) / period
	fade := math.Min(period*0.2, p.SampleRate*0.003)
	firstSample := int(math.Ceil(impulseFrom))
	stopAt := impulseFrom + period + fade
	phase := (float64(firstSample) - impulseFrom) * phaseDelta
	prevIntegral := 0.0
	for i := firstSample; float64(i) <= stopAt; i++ {
		whole := int(phase)
		index := whole % waveLength
		integral := wave[index] + (wave[index+1]-wave[index])*(phase-float64(whole))
		sample := (integral - prevIntegral) / phaseDelta
		fadeIn := math.Min(1, (float64(i)-impulseFrom)/fade)
		fadeOut := math.Min(1, (stopAt-float64(i))/fade)
		f := fadeIn * fadeOut
		s.delayLine[i&mask] += sample * f * f * (3 - 2*f)
		prevIntegral = integral
		phase += phaseDelta
	}
}

// Render adds n samples of the string into out, scaled by an expression
// ramp starting at expr and moving by exprDelta per sample.
func (s *String) Render(out []float64, n int, expr, exprDelta float64) {
	line := s.delayLine
	if len(line) == 0 {
		return
	}
	mask := len(line) - 1
	delayIndex := s.delayIndex
	resetOffset := s.delayResetOffset
	delayLength := s.delayLength
	allPassG := s.allPassG
	a1, b0, b1 := s.shelfA1, s.shelfB0, s.shelfB1
	fractional := s.fractionalSample
	allPass := s.allPassSample
	allPassPrev := s.allPassPrevInput
	shelf := s.shelfSample
	shelfPrev := s.shelfPrevInput
	peak := 0.0

	for i := 0; i < n; i++ {
		target := float64(delayIndex) - delayLength
		lower := int(math.Floor(target + 0.125))
		upper := lower + 1
		d := float64(upper) - target
		g := (1 - d) / (1 + d)
		prevInput := line[lower&mask]
		input := line[upper&mask]
		fractional = g*input + prevInput - g*fractional

		allPass = fractional*allPassG + allPassPrev - allPassG*allPass
		allPassPrev = fractional

		shelf = b0*allPass + b1*shelfPrev - a1*shelf
		shelfPrev = allPass

		line[delayIndex&mask] += shelf
		line[(delayIndex+resetOffset)&mask] = 0
		delayIndex++

		out[i] += shelf * expr
		peak = math.Max(peak, math.Abs(shelf))

		expr += exprDelta
		delayLength += s.delayLengthDelta
		allPassG += s.allPassGDelta
		a1 += s.shelfA1Delta
		b0 += s.shelfB0Delta
		b1 += s.shelfB1Delta
	}

	s.delayIndex = delayIndex & mask
	s.delayLength = delayLength
	s.allPassG = allPassG
	s.shelfA1, s.shelfB0, s.shelfB1 = a1, b0, b1
	s.energy = peak
	if !(math.Abs(fractional) < 100) || !(math.Abs(allPass) < 100) || !(math.Abs(shelf) < 100) {
		clear(line)
		s.fractionalSample, s.allPassSample, s.allPassPrevInput = 0, 0, 0
		s.shelfSample, s.shelfPrevInput = 0, 0
		s.energy = 0
		return
	}
	s.fractionalSample = snap(fractional)
	s.allPassSample = snap(allPass)
	s.allPassPrevInput = snap(allPassPrev)
	s.shelfSample = snap(shelf)
	s.shelfPrevInput = snap(shelfPrev)
}

// Energy is the peak absolute feedback sample of the last run.
func (s *String) Energy() float64 { return s.energy }

// Silent reports whether the string's tail has decayed below audibility.
func (s *String) Silent() bool { return s.energy < SilenceThreshold }

func snap(v float64) float64 {
	if math.Abs(v) < filter.Epsilon {
		return 0
	}
	return v
}

func fittingPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
