package filter

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// HzFromSetting converts a frequency setting to Hz.
func HzFromSetting(freq float64) float64 {
	return song.FilterFreqReferenceHz * math.Pow(2, (freq-song.FilterFreqReferenceSetting)*song.FilterFreqStep)
}

// FrequencySettingFromHz inverts HzFromSetting without rounding.
func FrequencySettingFromHz(hz float64) float64 {
	return math.Log2(hz/song.FilterFreqReferenceHz)/song.FilterFreqStep + song.FilterFreqReferenceSetting
}

// RoundedFrequencySettingFromHz snaps hz to the nearest valid setting.
func RoundedFrequencySettingFromHz(hz float64) float64 {
	return math.Max(0, math.Min(song.FilterFreqRange-1, math.Round(FrequencySettingFromHz(hz))))
}

// LinearGain converts a gain setting to a linear multiplier. peakMult scales
// the distance from the type's neutral gain; envelopes use it to fade a
// resonance in and out.
func LinearGain(t song.FilterType, gain, peakMult float64) float64 {
	power := (gain - song.FilterGainCenter) * song.FilterGainStep
	neutral := -0.5
	if t == song.FilterPeak {
		neutral = 0
	}
	return math.Pow(2, neutral+(power-neutral)*peakMult)
}

// GainSettingFromLinear inverts LinearGain for peakMult = 1.
func GainSettingFromLinear(linear float64) float64 {
	return math.Log2(linear)/song.FilterGainStep + song.FilterGainCenter
}

// RoundedGainSettingFromLinear snaps a linear gain to the nearest setting.
func RoundedGainSettingFromLinear(linear float64) float64 {
	return math.Max(0, math.Min(song.FilterGainRange-1, math.Round(GainSettingFromLinear(linear))))
}

// CornerRadians returns the clamped corner frequency of a point in radians
// per sample.
func CornerRadians(freq, sampleRate, freqMult float64) float64 {
	hz := freqMult * HzFromSetting(freq)
	hz = math.Max(song.FilterFreqMinHz, math.Min(song.FilterFreqMaxHz, hz))
	// keep the corner below nyquist at low output rates
	hz = math.Min(hz, sampleRate*0.5*0.95)
	return 2 * math.Pi * hz / sampleRate
}

// ControlPointCoefficients writes the biquad for p into c and returns the
// point's volume compensation multiplier.
func ControlPointCoefficients(c *Coefficients, p song.FilterControlPoint, sampleRate, freqMult, peakMult float64) float64 {
	w := CornerRadians(p.Freq, sampleRate, freqMult)
	gain := LinearGain(p.Type, p.Gain, peakMult)
	switch p.Type {
	case song.FilterHighPass:
		c.HighPass2ndOrderButterworth(w, gain)
	case song.FilterPeak:
		c.PeakEQ2ndOrder(w, gain, 1)
	default:
		c.LowPass2ndOrderButterworth(w, gain)
	}
	return VolumeCompensation(p)
}

// VolumeCompensation estimates how much louder or quieter a point makes a
// typical signal and returns the multiplier that undoes it.
func VolumeCompensation(p song.FilterControlPoint) float64 {
	octave := (p.Freq - song.FilterFreqReferenceSetting) * song.FilterFreqStep
	gainPow := (p.Gain - song.FilterGainCenter) * song.FilterGainStep
	switch p.Type {
	case song.FilterLowPass:
		freqRelativeTo8khz := math.Pow(2, octave) * song.FilterFreqReferenceHz / 8000
		warpedFreq := (math.Sqrt(1+4*freqRelativeTo8khz) - 1) / 2
		warpedOctave := math.Log2(warpedFreq)
		return math.Pow(0.5, 0.2*math.Max(0, gainPow+1)+
			math.Min(0, math.Max(-3, 0.595*warpedOctave+0.35*math.Min(0, gainPow+1))))
	case song.FilterHighPass:
		return math.Pow(0.5, 0.125*math.Max(0, gainPow+1)+
			math.Min(0, 0.3*(-octave-math.Log2(song.FilterFreqReferenceHz/125))+0.2*math.Min(0, gainPow+1)))
	case song.FilterPeak:
		distanceFromCenter := octave + math.Log2(song.FilterFreqReferenceHz/2000)
		freqLoudness := math.Pow(1/(1+math.Pow(distanceFromCenter/3, 2)), 2)
		return math.Pow(0.5, 0.125*math.Max(0, gainPow)+0.1*freqLoudness*math.Min(0, gainPow))
	}
	return 1
}

// SettingsFromCoefficients recovers the (fractional) frequency and gain
// settings of a second-order control point from its coefficients. It is the
// inverse of ControlPointCoefficients for peakMult = 1 and freqMult = 1
// within the unclamped frequency range.
func SettingsFromCoefficients(t song.FilterType, c *Coefficients, sampleRate float64) (freq, gain float64) {
	a0 := 2 / (1 + c.A[2])
	cos := -c.A[1] * a0 / 2
	w := math.Acos(math.Max(-1, math.Min(1, cos)))
	freq = FrequencySettingFromHz(w * sampleRate / (2 * math.Pi))
	switch t {
	case song.FilterPeak:
		alphaOverGain := a0 - 1
		alphaTimesGain := (c.B[0] - c.B[2]) * a0 / 2
		linear := alphaTimesGain / alphaOverGain
		gain = GainSettingFromLinear(linear)
	default:
		alpha := a0 - 1
		peak := math.Sin(w) / (2 * alpha)
		// LinearGain applies a -0.5 octave neutral offset to pass filters,
		// which cancels out at peakMult = 1.
		gain = GainSettingFromLinear(peak)
	}
	return freq, gain
}

// SettingsCoefficients fills dst with one coefficient set per point of s
// and returns the combined volume compensation.
func SettingsCoefficients(dst []Coefficients, s *song.FilterSettings, sampleRate, freqMult, peakMult float64) (int, float64) {
	n := len(s.Points)
	if n > len(dst) {
		n = len(dst)
	}
	comp := 1.0
	for i := 0; i < n; i++ {
		comp *= ControlPointCoefficients(&dst[i], s.Points[i], sampleRate, freqMult, peakMult)
	}
	return n, comp
}
