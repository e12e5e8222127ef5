package envelope

import (
	"math"

	"github.com/cbegin/trackersynth/internal/lfo"
	"github.com/cbegin/trackersynth/internal/song"
)

// Point is the state an envelope shape is evaluated at.
type Point struct {
	Seconds  float64
	Beats    float64
	NoteSize float64
	Pitch    float64
	NoteID   int
}

// Normalized evaluates env at p and returns a value in [0, 1] before bounds
// and inversion are applied.
func Normalized(env *song.EnvelopeSettings, p Point) float64 {
	speed := env.Speed
	t := p.Seconds
	switch env.Shape {
	case song.EnvelopeNone:
		return 1
	case song.EnvelopeNoteSize:
		return song.NoteSizeToVolumeMult(p.NoteSize)
	case song.EnvelopePitch:
		return pitchRamp(env, p.Pitch)
	case song.EnvelopePunch:
		return math.Max(1, 2-t*10) / 2
	case song.EnvelopeFlare:
		attack := 0.25 / math.Sqrt(speed)
		if t < attack {
			return t / attack
		}
		return 1 / (1 + (t-attack)*speed)
	case song.EnvelopeTwang:
		return 1 / (1 + t*speed)
	case song.EnvelopeSwell:
		return 1 - 1/(1+t*speed)
	case song.EnvelopeTremolo:
		return 0.5 - math.Cos(p.Beats*2*math.Pi*speed)*0.5
	case song.EnvelopeTremolo2:
		return 0.75 - math.Cos(p.Beats*2*math.Pi*speed)*0.25
	case song.EnvelopeDecay:
		return math.Pow(2, -speed*t)
	case song.EnvelopeWibble:
		temp := 0.5 - math.Cos(p.Beats*speed)*0.5
		temp = 1 / (1 + t*(speed-temp/(1.5/speed)))
		return math.Max(0, math.Min(1, temp))
	case song.EnvelopeLinear:
		return math.Max(0, 1-t/(16/speed))
	case song.EnvelopeRise:
		return math.Min(1, t/(16/speed))
	case song.EnvelopeBlip:
		if t < 0.25/math.Sqrt(speed) {
			return 1
		}
		return 0
	case song.EnvelopeLFO:
		return lfo.Shape(env.Waveform, p.Beats*speed, env.Steps)
	case song.EnvelopeRandom:
		return random(env, p)
	}
	return 1
}

func pitchRamp(env *song.EnvelopeSettings, pitch float64) float64 {
	lo, hi := float64(env.PitchStart), float64(env.PitchEnd)
	if lo == hi {
		if pitch >= lo {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, (pitch-lo)/(hi-lo)))
}

func random(env *song.EnvelopeSettings, p Point) float64 {
	steps := env.Steps
	if steps < 2 {
		steps = 2
	}
	seed := uint64(env.Seed)
	switch env.Waveform {
	case song.RandomTimeSmooth:
		pos := p.Beats * env.Speed
		step := math.Floor(pos)
		a := quantize(hash01(seed, int64(step)), steps)
		b := quantize(hash01(seed, int64(step)+1), steps)
		return a + (b-a)*(pos-step)
	case song.RandomPitch:
		return quantize(hash01(seed^0x9e37, int64(math.Round(p.Pitch))), steps)
	case song.RandomNote:
		return quantize(hash01(seed^0x7f4a, int64(p.NoteID)), steps)
	default:
		return quantize(hash01(seed, int64(math.Floor(p.Beats*env.Speed))), steps)
	}
}

func quantize(v float64, steps int) float64 {
	level := math.Floor(v * float64(steps))
	if level > float64(steps-1) {
		level = float64(steps - 1)
	}
	return level / float64(steps-1)
}

// hash01 mixes seed and n into a uniformly distributed value in [0, 1).
func hash01(seed uint64, n int64) float64 {
	x := seed*0x9e3779b97f4a7c15 + uint64(n)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return float64(x>>11) / (1 << 53)
}

// Bounded maps a normalised value into env's bounds, applying inversion.
func Bounded(env *song.EnvelopeSettings, normalized float64) float64 {
	if env.Inverse {
		normalized = 1 - normalized
	}
	lower, upper := env.Bounds()
	return lower + (upper-lower)*normalized
}

// LowpassCutoffDecayVolumeCompensation is the loudness boost applied when a
// decaying envelope closes a lowpass.
func LowpassCutoffDecayVolumeCompensation(env *song.EnvelopeSettings) float64 {
	switch env.Shape {
	case song.EnvelopeDecay:
		return 1.25 + 0.025*env.Speed
	case song.EnvelopeTwang:
		return 1 + 0.02*env.Speed
	}
	return 1
}
