// Package fm renders four-operator phase modulation voices. An algorithm and
// feedback routing are compiled once into a Program whose per-sample loop
// has no branches on the routing.
package fm

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
	"github.com/cbegin/trackersynth/internal/wavetable"
)

const (
	// ModulationScale converts a modulator's amplitude into table samples
	// of phase offset.
	ModulationScale = wavetable.SineLength * 1.5
	// FeedbackScale converts the feedback amplitude setting into table
	// samples of phase offset.
	FeedbackScale = wavetable.SineLength * 0.3

	waveMask = wavetable.SineLength - 1
)

// ProgramKey identifies a compiled routing.
type ProgramKey struct {
	Algorithm int
	Feedback  int
}

// Program is a compiled algorithm and feedback routing.
type Program struct {
	Key          ProgramKey
	CarrierCount int
	mod          [song.OperatorCount][song.OperatorCount]float64
	fb           [song.OperatorCount][song.OperatorCount]float64
	carrier      [song.OperatorCount]float64
}

// Compile flattens the routing tables into weight matrices.
func Compile(algorithm, feedback int) *Program {
	alg := AlgorithmFor(algorithm)
	fbk := FeedbackFor(feedback)
	p := &Program{
		Key:          ProgramKey{Algorithm: algorithm, Feedback: feedback},
		CarrierCount: alg.CarrierCount,
	}
	for op := 0; op < song.OperatorCount; op++ {
		for _, m := range alg.ModulatedBy[op] {
			p.mod[op][m-1] = 1
		}
		for _, f := range fbk.Indices[op] {
			p.fb[op][f-1] = 1
		}
		if op < alg.CarrierCount {
			p.carrier[op] = 1
		}
	}
	return p
}

// Cache holds compiled programs keyed by routing. It is owned by the audio
// thread.
type Cache struct {
	programs map[ProgramKey]*Program
}

// NewCache returns an empty program cache.
func NewCache() *Cache {
	return &Cache{programs: make(map[ProgramKey]*Program)}
}

// Program returns the compiled routing, compiling it on first use.
func (c *Cache) Program(algorithm, feedback int) *Program {
	key := ProgramKey{Algorithm: algorithm, Feedback: feedback}
	if p, ok := c.programs[key]; ok {
		return p
	}
	p := Compile(algorithm, feedback)
	c.programs[key] = p
	return p
}

// Voice is the per-tone oscillator state of an FM instrument. Phases are
// measured in table samples.
type Voice struct {
	Phase           [song.OperatorCount]float64
	PhaseDelta      [song.OperatorCount]float64
	PhaseDeltaScale [song.OperatorCount]float64
	OutputMult      [song.OperatorCount]float64
	OutputMultDelta [song.OperatorCount]float64
	Output          [song.OperatorCount]float64
	Waves           [song.OperatorCount][]float64

	FeedbackMult      float64
	FeedbackMultDelta float64
}

// Reset clears phases and feedback history.
func (v *Voice) Reset() {
	v.Phase = [song.OperatorCount]float64{}
	v.Output = [song.OperatorCount]float64{}
}

// OperatorHz returns the frequency of operator index for a tone at pitch.
// Carriers are spread by their carrier interval.
func OperatorHz(op song.Operator, alg *Algorithm, index int, pitch float64) float64 {
	f := song.OperatorFrequencies[clampInt(op.Frequency, 0, len(song.OperatorFrequencies)-1)]
	interval := song.OperatorCarrierInterval[alg.AssociatedCarrier[index]-1]
	return f.Mult*song.FrequencyFromPitch(pitch+interval) + f.HzOffset
}

// OperatorOutputMult converts an amplitude (setting scale, possibly
// modulated) into the operator's output multiplier.
func OperatorOutputMult(op song.Operator, alg *Algorithm, index int, amplitude float64) float64 {
	f := song.OperatorFrequencies[clampInt(op.Frequency, 0, len(song.OperatorFrequencies)-1)]
	mult := song.OperatorAmplitudeCurve(amplitude) * f.AmplitudeSign
	if index >= alg.CarrierCount {
		mult *= ModulationScale
	}
	return mult
}

func lookup(wave []float64, mix float64) float64 {
	f := math.Floor(mix)
	i := int(f) & waveMask
	return wave[i] + (wave[i+1]-wave[i])*(mix-f)
}

// Render adds n samples of v into out, scaled by an expression ramp.
func (p *Program) Render(v *Voice, out []float64, n int, expr, exprDelta float64) {
	w0, w1, w2, w3 := v.Waves[0], v.Waves[1], v.Waves[2], v.Waves[3]
	ph := v.Phase
	delta := v.PhaseDelta
	scale := v.PhaseDeltaScale
	mult := v.OutputMult
	multDelta := v.OutputMultDelta
	o := v.Output
	fb := v.FeedbackMult
	fbDelta := v.FeedbackMultDelta
	m := &p.mod
	f := &p.fb
	c := &p.carrier
	var s [song.OperatorCount]float64

	for i := 0; i < n; i++ {
		mix3 := ph[3] + fb*(f[3][0]*o[0]+f[3][1]*o[1]+f[3][2]*o[2]+f[3][3]*o[3])
		o[3] = lookup(w3, mix3)
		s[3] = mult[3] * o[3]

		mix2 := ph[2] + m[2][3]*s[3] + fb*(f[2][0]*o[0]+f[2][1]*o[1]+f[2][2]*o[2]+f[2][3]*o[3])
		o[2] = lookup(w2, mix2)
		s[2] = mult[2] * o[2]

		mix1 := ph[1] + m[1][2]*s[2] + m[1][3]*s[3] + fb*(f[1][0]*o[0]+f[1][1]*o[1]+f[1][2]*o[2]+f[1][3]*o[3])
		o[1] = lookup(w1, mix1)
		s[1] = mult[1] * o[1]

		mix0 := ph[0] + m[0][1]*s[1] + m[0][2]*s[2] + m[0][3]*s[3] + fb*(f[0][0]*o[0]+f[0][1]*o[1]+f[0][2]*o[2]+f[0][3]*o[3])
		o[0] = lookup(w0, mix0)
		s[0] = mult[0] * o[0]

		out[i] += (c[0]*s[0] + c[1]*s[1] + c[2]*s[2] + c[3]*s[3]) * expr

		for op := range ph {
			ph[op] += delta[op]
			delta[op] *= scale[op]
			mult[op] += multDelta[op]
		}
		fb += fbDelta
		expr += exprDelta
	}

	for op := range ph {
		v.Phase[op] = math.Mod(ph[op], wavetable.SineLength)
	}
	v.PhaseDelta = delta
	v.OutputMult = mult
	v.Output = o
	v.FeedbackMult = fb
}
