package pickedstring

import (
	"math"
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

const testRate = 44100.0

// integratedSaw returns a 64-sample integrated sawtooth with a guard sample.
func integratedSaw() []float64 {
	const n = 64
	wave := make([]float64, n+1)
	sum := 0.0
	for i := 0; i < n; i++ {
		wave[i] = sum
		sum += (float64(i)/n*2 - 1) / n
	}
	wave[n] = wave[0]
	return wave
}

func params(pitch float64, decay float64) *Params {
	return &Params{
		SampleRate:      testRate,
		PhaseDeltaStart: song.FrequencyFromPitch(pitch) / testRate,
		PhaseDeltaScale: 1,
		RunLength:       512,
		DecayStart:      decay,
		DecayEnd:        decay,
		ImpulseWave:     integratedSaw(),
	}
}

func render(s *String, p *Params, runs int) []float64 {
	out := make([]float64, p.RunLength*runs)
	for r := 0; r < runs; r++ {
		s.Update(p)
		s.Render(out[r*p.RunLength:], p.RunLength, 1, 0)
	}
	return out
}

func TestPluckProducesPeriodicTone(t *testing.T) {
	var s String
	s.Reset()
	p := params(57, 0.2)
	out := render(&s, p, 8)
	period := 1 / p.PhaseDeltaStart

	energy := 0.0
	for _, v := range out {
		energy += v * v
	}
	if energy == 0 {
		t.Fatal("plucked string is silent")
	}

	corr := func(lag int) float64 {
		sum := 0.0
		for i := 1024; i+lag < len(out); i++ {
			sum += out[i] * out[i+lag]
		}
		return sum
	}
	atPeriod := corr(int(math.Round(period)))
	atHalf := corr(int(math.Round(period / 2)))
	if atPeriod <= atHalf {
		t.Fatalf("autocorrelation at period %v <= at half period %v", atPeriod, atHalf)
	}
}

func TestStringDecays(t *testing.T) {
	var s String
	s.Reset()
	p := params(60, 1)
	render(&s, p, 2)
	early := s.Energy()
	render(&s, p, 200)
	if s.Energy() >= early {
		t.Fatalf("energy grew from %v to %v", early, s.Energy())
	}
	if !s.Silent() {
		t.Fatalf("fully damped string still at %v after %d samples", s.Energy(), 202*p.RunLength)
	}
}

func TestNoRepluckOnSteadyPitch(t *testing.T) {
	var s String
	s.Reset()
	p := params(48, 0.1)
	s.Update(p)
	offset := s.delayResetOffset
	s.Render(make([]float64, p.RunLength), p.RunLength, 1, 0)
	index := s.delayIndex
	s.Update(p)
	if s.delayIndex != index || s.delayResetOffset != offset {
		t.Fatal("steady pitch re-plucked the string")
	}
}

func TestGrowKeepsHistory(t *testing.T) {
	s := String{delayLine: make([]float64, 8), delayIndex: 5, delayResetOffset: 2}
	for i := range s.delayLine {
		s.delayLine[i] = float64(i + 1)
	}
	s.grow(16, true)
	if len(s.delayLine) != 16 {
		t.Fatalf("len = %d", len(s.delayLine))
	}
	// Copying starts at delayIndex+delayResetOffset = 7.
	want := []float64{8, 1, 2, 3, 4, 5, 6, 7}
	for i, v := range want {
		if s.delayLine[i] != v {
			t.Fatalf("delayLine[%d] = %v, want %v", i, s.delayLine[i], v)
		}
	}
	if s.delayIndex != 6 {
		t.Fatalf("delayIndex = %d, want 6", s.delayIndex)
	}
}

func TestDecayMapping(t *testing.T) {
	if got := Decay(song.SustainRange-1, 1); got != 0 {
		t.Errorf("full sustain decay = %v", got)
	}
	if got := Decay(0, 1); got != 1 {
		t.Errorf("zero sustain decay = %v", got)
	}
	if got := Decay(song.SustainRange-1, 3); got != 0 {
		t.Errorf("decay should clamp, got %v", got)
	}
}

func BenchmarkRender(b *testing.B) {
	var s String
	s.Reset()
	p := params(60, 0.3)
	out := make([]float64, p.RunLength)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Update(p)
		s.Render(out, p.RunLength, 1, 0)
	}
}
