package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/song"
)

// The distortion waveshaper runs at 4x resolution by shaping three
// fractionally delayed copies of the input between each pair of samples.
const distortionFractionalResolution = 4.0

var (
	distortionOversampleCompensation = song.DistortionBaseVolume / distortionFractionalResolution

	distortionG1 = fractionalDelayG(1 / distortionFractionalResolution)
	distortionG2 = fractionalDelayG(2 / distortionFractionalResolution)
	distortionG3 = fractionalDelayG(3 / distortionFractionalResolution)

	distortionNextWeight1 = math.Cos(math.Pi/distortionFractionalResolution)*0.5 + 0.5
	distortionNextWeight2 = math.Cos(math.Pi*2/distortionFractionalResolution)*0.5 + 0.5
	distortionNextWeight3 = math.Cos(math.Pi*3/distortionFractionalResolution)*0.5 + 0.5
	distortionPrevWeight1 = 1 - distortionNextWeight1
	distortionPrevWeight2 = 1 - distortionNextWeight2
	distortionPrevWeight3 = 1 - distortionNextWeight3
)

func fractionalDelayG(d float64) float64 {
	var c filter.Coefficients
	c.AllPass1stOrderFractionalDelay(d)
	return c.A[1]
}

type distortion struct {
	amount, amountDelta float64
	drive, driveDelta   float64

	frac1, frac2, frac3 float64
	prevInput           float64
	nextOutput          float64
}

func distortionSlider(v float64) float64 {
	return math.Min(1, math.Max(0, v/(song.DistortionRange-1)))
}

func (d *distortion) compute(p *Params, run float64) {
	sliderStart := distortionSlider(p.Distortion.Start)
	sliderEnd := distortionSlider(p.Distortion.End)
	start := math.Pow(1-0.895*(math.Pow(20, sliderStart)-1)/19, 2)
	end := math.Pow(1-0.895*(math.Pow(20, sliderEnd)-1)/19, 2)
	driveStart := (1 + 2*sliderStart) / song.DistortionBaseVolume
	driveEnd := (1 + 2*sliderEnd) / song.DistortionBaseVolume
	d.amount = start
	d.amountDelta = (end - start) / run
	d.drive = driveStart
	d.driveDelta = (driveEnd - driveStart) / run
}

func (d *distortion) sanitize() {
	d.frac1 = sane(d.frac1)
	d.frac2 = sane(d.frac2)
	d.frac3 = sane(d.frac3)
	d.prevInput = sane(d.prevInput)
	d.nextOutput = sane(d.nextOutput)
}

// sane returns 0 for denormal or non-finite values.
func sane(v float64) float64 {
	a := math.Abs(v)
	if math.IsNaN(a) || math.IsInf(a, 0) || a < filter.Epsilon {
		return 0
	}
	return v
}

// runDistortion shapes x/(|x|(1-a)+a). Output lags input by one sample.
func (s *State) runDistortion(n int) {
	d := &s.distortion
	x := s.mono
	amount, drive := d.amount, d.drive
	f1, f2, f3, prev, next := d.frac1, d.frac2, d.frac3, d.prevInput, d.nextOutput
	for i := 0; i < n; i++ {
		reciprocal := 1 - amount
		in := x[i] * drive
		out := next
		next = in / (reciprocal*math.Abs(in) + amount)
		f1 = distortionG1*in + prev - distortionG1*f1
		f2 = distortionG2*in + prev - distortionG2*f2
		f3 = distortionG3*in + prev - distortionG3*f3
		o1 := f1 / (reciprocal*math.Abs(f1) + amount)
		o2 := f2 / (reciprocal*math.Abs(f2) + amount)
		o3 := f3 / (reciprocal*math.Abs(f3) + amount)
		next += o1*distortionNextWeight1 + o2*distortionNextWeight2 + o3*distortionNextWeight3
		out += o1*distortionPrevWeight1 + o2*distortionPrevWeight2 + o3*distortionPrevWeight3
		x[i] = out * distortionOversampleCompensation
		prev = in
		amount += d.amountDelta
		drive += d.driveDelta
	}
	d.amount, d.drive = amount, drive
	d.frac1, d.frac2, d.frac3, d.prevInput, d.nextOutput = f1, f2, f3, prev, next
}

type bitcrusher struct {
	phase, phaseDelta, phaseDeltaScale float64
	scale, scaleScale                  float64
	foldLevel, foldLevelScale          float64
	prevInput, currentOutput           float64
}

func (b *bitcrusher) compute(p *Params, run float64) {
	base := p.BitcrusherBaseHz
	if base <= 0 {
		base = song.FrequencyFromPitch(60)
	}
	freqStart := base * math.Pow(2, (song.BitcrusherFreqRange-1-p.BitcrusherFreq.Start)*song.BitcrusherOctaveStep)
	freqEnd := base * math.Pow(2, (song.BitcrusherFreqRange-1-p.BitcrusherFreq.End)*song.BitcrusherOctaveStep)
	deltaStart := math.Min(1, freqStart/p.SampleRate)
	deltaEnd := math.Min(1, freqEnd/p.SampleRate)
	b.phaseDelta = deltaStart
	b.phaseDeltaScale = math.Pow(deltaEnd/deltaStart, 1/run)

	scaleStart := 2 * song.BitcrusherBaseVolume * math.Pow(2, 1-math.Pow(2, (song.BitcrusherQuantRange-1-p.BitcrusherQuant.Start)*0.5))
	scaleEnd := 2 * song.BitcrusherBaseVolume * math.Pow(2, 1-math.Pow(2, (song.BitcrusherQuantRange-1-p.BitcrusherQuant.End)*0.5))
	b.scale = scaleStart
	b.scaleScale = math.Pow(scaleEnd/scaleStart, 1/run)

	foldStart := 2 * song.BitcrusherBaseVolume * math.Pow(1.5, song.BitcrusherQuantRange-1-p.BitcrusherQuant.Start)
	foldEnd := 2 * song.BitcrusherBaseVolume * math.Pow(1.5, song.BitcrusherQuantRange-1-p.BitcrusherQuant.End)
	b.foldLevel = foldStart
	b.foldLevelScale = math.Pow(foldEnd/foldStart, 1/run)
}

// runBitcrusher resamples at the crusher rate, folds the signal back into
// range and quantises it.
func (s *State) runBitcrusher(n int) {
	b := &s.bitcrusher
	x := s.mono
	phase, delta, scale, fold := b.phase, b.phaseDelta, b.scale, b.foldLevel
	prevIn, current := b.prevInput, b.currentOutput
	for i := 0; i < n; i++ {
		in := x[i]
		phase += delta
		if phase < 1 {
			prevIn = in
			x[i] = current
		} else {
			phase = math.Mod(phase, 1)
			ratio := phase / delta
			lerped := in + (prevIn-in)*ratio
			prevIn = in
			wrap := fold * 4
			wrapped := math.Mod(math.Mod(lerped+fold, wrap)+wrap, wrap)
			folded := fold - math.Abs(fold*2-wrapped)
			scaled := folded / scale
			if scaled > 0 {
				scaled++
			}
			next := (math.Trunc(scaled) - 0.5) * scale
			x[i] = current + (next-current)*ratio
			current = next
		}
		delta *= b.phaseDeltaScale
		scale *= b.scaleScale
		fold *= b.foldLevelScale
	}
	b.phase, b.phaseDelta, b.scale, b.foldLevel = phase, delta, scale, fold
	b.prevInput, b.currentOutput = sane(prevIn), current
}
