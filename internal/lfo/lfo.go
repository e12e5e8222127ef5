// Package lfo evaluates the periodic shapes shared by envelopes, vibrato and
// the ring modulator.
package lfo

import "math"

// Waveform constants. They match the song package's LFO waveform settings.
const (
	WaveSine = iota
	WaveSquare
	WaveTriangle
	WaveSawtooth
	WaveTrapezoid
	WaveSteppedSaw
	WaveSteppedTriangle
	WaveCount
)

// Shape returns the waveform at the given position (in cycles) normalised to
// [0, 1]. Stepped shapes quantise into steps levels; steps below 2 fall back
// to 2.
func Shape(waveform int, cycles float64, steps int) float64 {
	phase := cycles - math.Floor(cycles)
	if steps < 2 {
		steps = 2
	}
	switch waveform {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return 0
	case WaveTriangle:
		return triangle(phase)
	case WaveSawtooth:
		return phase
	case WaveTrapezoid:
		v := triangle(phase)*2 - 0.5
		return math.Max(0, math.Min(1, v))
	case WaveSteppedSaw:
		return math.Floor(phase*float64(steps)) / float64(steps-1)
	case WaveSteppedTriangle:
		v := math.Round(triangle(phase) * float64(steps-1))
		return v / float64(steps-1)
	default:
		return 0.5 - math.Cos(phase*2*math.Pi)*0.5
	}
}

// triangle rises from 0 at phase 0 to 1 at phase 0.5.
func triangle(phase float64) float64 {
	if phase < 0.5 {
		return phase * 2
	}
	return 2 - phase*2
}

// Vibrato sums one sine per period, evaluated at seconds. The result is in
// [-len(periods), len(periods)].
func Vibrato(periodsSeconds []float64, seconds float64) float64 {
	effect := 0.0
	for _, period := range periodsSeconds {
		effect += math.Sin(2 * math.Pi * seconds / period)
	}
	return effect
}

// TableLength is the size of each bipolar wave table.
const TableLength = 256

var tables [WaveCount][TableLength + 1]float64

func init() {
	for w := 0; w < WaveCount; w++ {
		for i := 0; i <= TableLength; i++ {
			phase := float64(i) / TableLength
			if w == WaveSine {
				tables[w][i] = math.Sin(phase * 2 * math.Pi)
				continue
			}
			tables[w][i] = Shape(w, phase+0.25, 8)*2 - 1
		}
	}
}

// Table returns a bipolar single-cycle table with one guard sample so
// callers can interpolate index i and i+1 without wrapping.
func Table(waveform int) *[TableLength + 1]float64 {
	if waveform < 0 || waveform >= WaveCount {
		waveform = WaveSine
	}
	return &tables[waveform]
}
