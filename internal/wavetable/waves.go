// Package wavetable builds the single-cycle and noise tables the synthesis
// routines read from. Pitched tables are stored integrated so playback can
// differentiate them for band-limited output.
package wavetable

import (
	"math"
	"math/rand"

	"github.com/mjibson/go-dsp/fft"

	"github.com/cbegin/trackersynth/internal/song"
)

// Table lengths.
const (
	HarmonicsLength = 2048
	NoiseLength     = song.ChipNoiseLength
	SpectrumLength  = song.SpectrumNoiseLength
	SineLength      = song.SineWaveLength
)

const (
	spectrumLowestOctave      = 8
	spectrumHighestOctave     = 14
	spectrumPointsPerOctave   = 7
	spectrumFalloffRatio      = 0.25
	harmonicsOverallSlope     = -0.25
	noiseReferenceOctave      = 11
	harmonicsRetroWaveOffset  = 589
	whiteNoiseSeed            = 0x5eed
	spectrumOverallSlope      = -0.5
	spectrumCombinedAmplitude = 0.02
)

var spectrumPitchTweak = [spectrumPointsPerOctave]float64{
	0, 1.0 / 7.0, math.Log2(5.0 / 4.0), 3.0 / 7.0, math.Log2(3.0 / 2.0), 5.0 / 7.0, 6.0 / 7.0,
}

// Sine is one cycle of a sine wave with a guard sample.
var Sine [SineLength + 1]float64

// retro is the LFSR noise used both as a noise type and as a sign source
// when summing partials.
var retro []float64

func init() {
	for i := range Sine {
		Sine[i] = math.Sin(float64(i) / SineLength * 2 * math.Pi)
	}
	retro = lfsr(NoiseLength, 1<<14, 0)
}

// Centered returns a copy of raw with its mean removed, which keeps the
// integrated wave from drifting.
func Centered(raw []float64) []float64 {
	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	avg := sum / float64(len(raw))
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = v - avg
	}
	return out
}

// Integrate returns the running sum of wave with a guard sample equal to the
// first entry.
func Integrate(wave []float64) []float64 {
	out := make([]float64, len(wave)+1)
	cumulative := 0.0
	for i, v := range wave {
		out[i] = cumulative
		cumulative += v
	}
	out[len(wave)] = out[0]
	return out
}

// ChipIntegrated builds the playback table for a raw chip wave.
func ChipIntegrated(raw []float64) []float64 {
	return Integrate(Centered(raw))
}

// lfsr renders a linear-feedback noise sequence. tap is added to the
// shifted register when the two low bits differ; sub is subtracted instead
// when non-zero.
func lfsr(n, tap, sub int) []float64 {
	wave := make([]float64, n)
	reg := 1
	for i := range wave {
		wave[i] = float64(reg&1)*2 - 1
		next := reg >> 1
		if (reg+next)&1 == 1 {
			if sub != 0 {
				next -= sub
			} else {
				next += tap
			}
		}
		reg = next
	}
	return wave
}

// Noise renders the looped table for a chip noise type. Tables carry one
// guard sample.
func Noise(index int) []float64 {
	var wave []float64
	switch index {
	case song.NoiseRetro:
		wave = lfsr(NoiseLength, 1<<14, 0)
	case song.NoiseWhite:
		rng := rand.New(rand.NewSource(whiteNoiseSeed))
		wave = make([]float64, NoiseLength)
		for i := range wave {
			wave[i] = rng.Float64()*2 - 1
		}
	case song.NoiseClang:
		wave = lfsr(NoiseLength, 2<<14, 0)
	case song.NoiseBuzz:
		wave = lfsr(NoiseLength, 10<<2, 0)
	case song.NoiseHollow:
		spec := make([]complex128, NoiseLength)
		drawNoiseSpectrum(spec, 10, 11, 1, 1, 0)
		drawNoiseSpectrum(spec, 11, 14, 0.6578, 0.6578, 0)
		wave = realInverse(spec, 1/math.Sqrt(NoiseLength))
	case song.NoiseShine:
		spec := make([]complex128, NoiseLength)
		drawNoiseSpectrum(spec, 12, 13, 0.6, 1, 0)
		drawNoiseSpectrum(spec, 13, 14, 1, 0.7, 0)
		wave = realInverse(spec, 1/math.Sqrt(NoiseLength))
	case song.NoiseDeep:
		spec := make([]complex128, NoiseLength)
		drawNoiseSpectrum(spec, 1, 10, 1, 1, 0)
		drawNoiseSpectrum(spec, 20, 14, -2, -2, 0)
		wave = realInverse(spec, 1/math.Sqrt(NoiseLength))
	case song.NoiseCutter:
		rng := rand.New(rand.NewSource(whiteNoiseSeed + 1))
		wave = lfsr(NoiseLength, 0, 15<<2)
		for i := range wave {
			wave[i] = (wave[i] + 1) * 2 * (rng.Float64()*14 + 1)
		}
	case song.NoiseMetallic:
		wave = lfsr(NoiseLength, 0, 10<<2)
		for i := range wave {
			wave[i] = (wave[i]+1)/4 + 0.5
		}
	default:
		wave = make([]float64, NoiseLength)
	}
	wave = append(wave, wave[0])
	return wave
}

// drawNoiseSpectrum writes pseudo-random phase partials between two octaves
// into spec (indexed by bin) and returns their combined amplitude.
func drawNoiseSpectrum(spec []complex128, lowOctave, highOctave, lowPower, highPower, overallSlope float64) float64 {
	n := len(spec)
	referenceIndex := float64(int(1) << noiseReferenceOctave)
	lowIndex := int(math.Pow(2, lowOctave))
	highIndex := min(n>>1, int(math.Pow(2, highOctave)))
	combined := 0.0
	for i := lowIndex; i < highIndex; i++ {
		lerped := lowPower + (highPower-lowPower)*(math.Log2(float64(i))-lowOctave)/(highOctave-lowOctave)
		amplitude := math.Pow(2, (lerped-1)*7+1) * lerped
		amplitude *= math.Pow(float64(i)/referenceIndex, overallSlope)
		combined += amplitude
		amplitude *= retro[i]
		radians := 0.61803398875 * float64(i) * float64(i) * math.Pi * 2
		setPartial(spec, i, complex(math.Cos(radians)*amplitude, math.Sin(radians)*amplitude))
	}
	return combined
}

// setPartial stores bin i and its mirror so the inverse transform is real.
// The scale matches an unnormalised inverse transform.
func setPartial(spec []complex128, i int, v complex128) {
	n := len(spec)
	half := complex(float64(n)/2, 0)
	spec[i] = v * half
	spec[n-i] = complex(real(v), -imag(v)) * half
}

// realInverse transforms spec to the time domain and scales the real part.
func realInverse(spec []complex128, scale float64) []float64 {
	x := fft.IFFT(spec)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = real(v) * scale
	}
	return out
}

// Harmonics builds the integrated table for a harmonics instrument. The last
// control point is extended with a linear fade up to HarmonicsRendered
// partials.
func Harmonics(h *[song.HarmonicsControlPoints]int) []float64 {
	spec := make([]complex128, HarmonicsLength)
	combined := 1.0
	for i := 0; i < song.HarmonicsRendered; i++ {
		freq := i + 1
		var control float64
		if i < song.HarmonicsControlPoints {
			control = float64(h[i])
		} else {
			control = float64(h[song.HarmonicsControlPoints-1])
			control *= 1 - float64(i-song.HarmonicsControlPoints)/float64(song.HarmonicsRendered-song.HarmonicsControlPoints)
		}
		normalized := control / song.HarmonicsMax
		amplitude := math.Pow(2, control-song.HarmonicsMax+1) * math.Sqrt(normalized)
		if i < song.HarmonicsControlPoints {
			combined += amplitude
		}
		amplitude *= math.Pow(float64(freq), harmonicsOverallSlope)
		amplitude *= retro[i+harmonicsRetroWaveOffset]
		// A sine partial: -i*A in bin f.
		setPartial(spec, freq, complex(0, -amplitude))
	}
	wave := realInverse(spec, 1/math.Pow(combined, 0.7))
	return Integrate(wave)
}

func spectrumOctave(point int) float64 {
	whole := int(math.Floor(float64(point) / spectrumPointsPerOctave))
	return spectrumLowestOctave + float64(whole) +
		spectrumPitchTweak[(point%spectrumPointsPerOctave+spectrumPointsPerOctave)%spectrumPointsPerOctave]
}

// Spectrum builds the noise table for a spectrum instrument or one drum of a
// drumset. It carries a guard sample but is not integrated.
func Spectrum(s *[song.SpectrumControlPoints]int) []float64 {
	spec := make([]complex128, SpectrumLength)
	combined := 1.0
	const points = song.SpectrumControlPoints
	for i := 0; i < points+1; i++ {
		var v1, v2 float64
		if i > 0 {
			v1 = float64(s[i-1])
		}
		if i >= points {
			v2 = float64(s[points-1])
		} else {
			v2 = float64(s[i])
		}
		o1 := spectrumOctave(i - 1)
		o2 := spectrumOctave(i)
		if i >= points {
			o2 = spectrumHighestOctave + (o2-spectrumHighestOctave)*spectrumFalloffRatio
		}
		if v1 == 0 && v2 == 0 {
			continue
		}
		combined += spectrumCombinedAmplitude * drawNoiseSpectrum(spec, o1, o2, v1/song.SpectrumMax, v2/song.SpectrumMax, spectrumOverallSlope)
	}
	if last := s[points-1]; last > 0 {
		low := spectrumHighestOctave + (spectrumOctave(points)-spectrumHighestOctave)*spectrumFalloffRatio
		combined += spectrumCombinedAmplitude * drawNoiseSpectrum(spec, low, spectrumHighestOctave, float64(last)/song.SpectrumMax, 0, spectrumOverallSlope)
	}
	wave := realInverse(spec, 5/(math.Sqrt(SpectrumLength)*math.Pow(combined, 0.75)))
	return append(wave, wave[0])
}

// PulseOperatorWave renders one cycle of a pulse of the given duty cycle
// (0..1) for FM operators, with a guard sample.
func PulseOperatorWave(duty float64) []float64 {
	wave := make([]float64, SineLength+1)
	edge := duty * SineLength
	for i := 0; i < SineLength; i++ {
		if float64(i) < edge {
			wave[i] = 1
		} else {
			wave[i] = -1
		}
	}
	wave[SineLength] = wave[0]
	return wave
}

// OperatorWave returns the single-cycle table for a non-pulse FM operator
// waveform.
func OperatorWave(waveform int) *[SineLength + 1]float64 {
	if waveform < 0 || waveform >= len(operatorWaves) {
		return &Sine
	}
	return &operatorWaves[waveform]
}

var operatorWaves [song.OperatorWaveCount][SineLength + 1]float64

func init() {
	for w := range operatorWaves {
		for i := 0; i <= SineLength; i++ {
			phase := float64(i%SineLength) / SineLength
			var v float64
			switch w {
			case song.OperatorSine, song.OperatorPulse:
				v = math.Sin(phase * 2 * math.Pi)
			case song.OperatorTriangle:
				v = 1 - 4*math.Abs(math.Mod(phase+0.25, 1)-0.5)
			case song.OperatorSawtooth:
				v = 2*math.Mod(phase+0.5, 1) - 1
			case song.OperatorRamp:
				v = 1 - 2*math.Mod(phase+0.5, 1)
			case song.OperatorTrapezoid:
				t := 1 - 4*math.Abs(math.Mod(phase+0.25, 1)-0.5)
				v = math.Max(-1, math.Min(1, t*2))
			}
			operatorWaves[w][i] = v
		}
	}
}
