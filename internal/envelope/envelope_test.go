package envelope

import (
	"math"
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

func tickInput(envs []song.EnvelopeSettings) *Input {
	return &Input{
		Envelopes:      envs,
		SpeedScale:     1,
		SecondsPerTick: 0.01,
		BeatsPerTick:   1.0 / 48,
		HasNote:        true,
		NoteEndTick:    96,
		NoteSizeStart:  song.NoteSizeMax,
		NoteSizeEnd:    song.NoteSizeMax,
		Pitch:          60,
	}
}

func TestOutputsStayWithinBounds(t *testing.T) {
	for shape := song.EnvelopeShape(0); shape < song.EnvelopeShapeCount; shape++ {
		for _, inverse := range []bool{false, true} {
			env := song.NewEnvelope(song.EnvTargetPulseWidth, 0, shape, 4)
			env.LowerBound, env.UpperBound = 0.3, 1.7
			env.Inverse = inverse
			env.Steps = 5
			c := NewComputer()
			in := tickInput([]song.EnvelopeSettings{env})
			for tick := 0; tick < 400; tick++ {
				in.Tick = float64(tick % 96)
				in.AtNoteStart = tick == 0
				c.Compute(in)
				for _, v := range []float64{c.Starts[song.EnvTargetPulseWidth.ComputeIndex(0)], c.Ends[song.EnvTargetPulseWidth.ComputeIndex(0)]} {
					if v < 0.3-1e-9 || v > 1.7+1e-9 || math.IsNaN(v) {
						t.Fatalf("shape %d inverse=%v tick %d: %v outside [0.3, 1.7]", shape, inverse, tick, v)
					}
				}
			}
		}
	}
}

func TestDecayIsContinuousAcrossTicks(t *testing.T) {
	env := song.NewEnvelope(song.EnvTargetNoteVolume, 0, song.EnvelopeDecay, 10)
	c := NewComputer()
	in := tickInput([]song.EnvelopeSettings{env})
	in.AtNoteStart = true
	idx := song.EnvTargetNoteVolume.ComputeIndex(0)
	c.Compute(in)
	prevEnd := c.Ends[idx]
	in.AtNoteStart = false
	for tick := 1; tick < 50; tick++ {
		in.Tick = float64(tick)
		c.Compute(in)
		if math.Abs(c.Starts[idx]-prevEnd) > 1e-12 {
			t.Fatalf("tick %d starts at %v, previous ended at %v", tick, c.Starts[idx], prevEnd)
		}
		if c.Ends[idx] > c.Starts[idx] {
			t.Fatalf("decay rose at tick %d", tick)
		}
		prevEnd = c.Ends[idx]
	}
}

func TestNoteSizeDrivesVolumeByDefault(t *testing.T) {
	c := NewComputer()
	in := tickInput(nil)
	in.NoteSizeStart, in.NoteSizeEnd = 1.5, 3
	c.Compute(in)
	idx := song.EnvTargetNoteVolume.ComputeIndex(0)
	if got, want := c.Starts[idx], song.NoteSizeToVolumeMult(1.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("start = %v, want %v", got, want)
	}
	if got := c.Ends[idx]; math.Abs(got-1) > 1e-12 {
		t.Fatalf("end = %v, want 1", got)
	}

	// An explicit note size envelope elsewhere suppresses the default.
	in.Envelopes = []song.EnvelopeSettings{song.NewEnvelope(song.EnvTargetPulseWidth, 0, song.EnvelopeNoteSize, 0)}
	c.Compute(in)
	if c.Starts[idx] != 1 {
		t.Fatalf("note volume should be untouched, got %v", c.Starts[idx])
	}
}

func TestEnvelopesOnSameTargetMultiply(t *testing.T) {
	a := song.NewEnvelope(song.EnvTargetDetune, 0, song.EnvelopeNone, 0)
	a.UpperBound = 0.5
	b := a
	b.UpperBound = 0.4
	c := NewComputer()
	c.Compute(tickInput([]song.EnvelopeSettings{a, b}))
	if got := c.Starts[song.EnvTargetDetune.ComputeIndex(0)]; math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("product = %v, want 0.2", got)
	}
}

func TestDiscreteHoldsStartValue(t *testing.T) {
	env := song.NewEnvelope(song.EnvTargetNoteVolume, 0, song.EnvelopeTwang, 8)
	env.Discrete = true
	c := NewComputer()
	in := tickInput([]song.EnvelopeSettings{env})
	in.AtNoteStart = true
	for tick := 0; tick < 10; tick++ {
		c.Compute(in)
		idx := song.EnvTargetNoteVolume.ComputeIndex(0)
		if c.Starts[idx] != c.Ends[idx] {
			t.Fatalf("tick %d: discrete envelope changed within tick", tick)
		}
		in.AtNoteStart = false
	}
}

func TestResetEnvelopeRewindsClock(t *testing.T) {
	env := song.NewEnvelope(song.EnvTargetNoteVolume, 0, song.EnvelopeTwang, 8)
	c := NewComputer()
	in := tickInput([]song.EnvelopeSettings{env})
	in.AtNoteStart = true
	c.Compute(in)
	first := c.Starts[song.EnvTargetNoteVolume.ComputeIndex(0)]
	in.AtNoteStart = false
	for i := 0; i < 20; i++ {
		c.Compute(in)
	}
	c.ResetEnvelope(0)
	c.Compute(in)
	if got := c.Starts[song.EnvTargetNoteVolume.ComputeIndex(0)]; got != first {
		t.Fatalf("after reset start = %v, want %v", got, first)
	}
}

func TestContinuingNoteKeepsClock(t *testing.T) {
	env := song.NewEnvelope(song.EnvTargetNoteVolume, 0, song.EnvelopeDecay, 10)
	c := NewComputer()
	in := tickInput([]song.EnvelopeSettings{env})
	in.AtNoteStart = true
	c.Compute(in)
	in.AtNoteStart = false
	c.Compute(in)
	before := c.Ends[song.EnvTargetNoteVolume.ComputeIndex(0)]
	in.AtNoteStart = true
	in.Continues = true
	c.Compute(in)
	if got := c.Starts[song.EnvTargetNoteVolume.ComputeIndex(0)]; math.Abs(got-before) > 1e-12 {
		t.Fatalf("continuing note restarted envelope: %v != %v", got, before)
	}
}

func TestSlideBlendsTowardNeighbour(t *testing.T) {
	env := song.NewEnvelope(song.EnvTargetNoteVolume, 0, song.EnvelopeNoteSize, 0)
	c := NewComputer()
	in := tickInput([]song.EnvelopeSettings{env})
	in.Slides = true
	in.SlideTicks = 6
	in.HasNextNote = true
	in.NextNoteSize = 0
	in.NoteEndTick = 24
	in.Tick = 23
	c.Compute(in)
	idx := song.EnvTargetNoteVolume.ComputeIndex(0)
	// One tick from the end the ratio is 0.5*(1-1/6).
	want := 1 + (0-1)*0.5*(1-1.0/6)
	if math.Abs(c.Starts[idx]-want) > 1e-12 {
		t.Fatalf("slide start = %v, want %v", c.Starts[idx], want)
	}
}

func TestLowpassCompensation(t *testing.T) {
	var f song.FilterSettings
	f.Add(song.FilterLowPass, 10, song.FilterGainCenter)
	env := song.NewEnvelope(song.EnvTargetNoteFilterFreq, 0, song.EnvelopeDecay, 8)
	c := NewComputer()
	in := tickInput([]song.EnvelopeSettings{env})
	in.NoteFilter = &f
	c.Compute(in)
	if got, want := c.LowpassCutoffDecayVolumeCompensation, 1.25+0.025*8; math.Abs(got-want) > 1e-12 {
		t.Fatalf("compensation = %v, want %v", got, want)
	}
}

func TestRandomIsDeterministic(t *testing.T) {
	env := song.NewEnvelope(song.EnvTargetPulseWidth, 0, song.EnvelopeRandom, 2)
	env.Waveform = song.RandomNote
	env.Steps = 8
	env.Seed = 3
	a := Normalized(&env, Point{NoteID: 7})
	b := Normalized(&env, Point{NoteID: 7})
	if a != b {
		t.Fatalf("random note envelope not deterministic: %v vs %v", a, b)
	}
	levels := map[float64]bool{}
	for id := 0; id < 200; id++ {
		levels[Normalized(&env, Point{NoteID: id})] = true
	}
	if len(levels) > 8 || len(levels) < 2 {
		t.Fatalf("random note produced %d levels with 8 steps", len(levels))
	}
}
