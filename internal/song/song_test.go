package song

import (
	"math"
	"testing"
)

func TestPatternAtResolvesBars(t *testing.T) {
	s := New()
	s.BarCount = 4
	ch := s.AddChannel(ChannelPitch, NewInstrument(InstrumentChip))
	p := ch.SetPattern([]*Note{NewNote([]int{0}, 0, 4, 3)}, 1, 3)
	if got := s.PatternAt(0, 1); got != p {
		t.Fatalf("bar 1 pattern = %p, want %p", got, p)
	}
	if got := s.PatternAt(0, 0); got != nil {
		t.Fatalf("bar 0 should be empty, got %p", got)
	}
	if got := s.PatternAt(0, 4); got != nil {
		t.Fatalf("bar past song end should be nil")
	}
	if got := s.PatternAt(5, 0); got != nil {
		t.Fatalf("missing channel should be nil")
	}
}

func TestSamplesPerTick(t *testing.T) {
	s := New()
	s.Tempo = 120
	// 120 bpm = 2 beats/s * 24 parts * 2 ticks = 96 ticks/s
	got := s.SamplesPerTick(48000, s.Tempo)
	if math.Abs(got-500) > 1e-9 {
		t.Fatalf("samples per tick = %v, want 500", got)
	}
}

func TestInsertPinKeepsOrder(t *testing.T) {
	n := NewNote([]int{0}, 0, 12, 3)
	n.InsertPin(6, 2, 1)
	n.InsertPin(12, 0, 0)
	if len(n.Pins) != 3 {
		t.Fatalf("pin count = %d, want 3", len(n.Pins))
	}
	for i := 1; i < len(n.Pins); i++ {
		if n.Pins[i].Time <= n.Pins[i-1].Time {
			t.Fatalf("pins out of order: %+v", n.Pins)
		}
	}
	if n.Pins[2].Size != 0 {
		t.Fatalf("pin at same time should be replaced, got %+v", n.Pins[2])
	}
}

func TestEnvelopeBoundsResetWhenInverted(t *testing.T) {
	e := NewEnvelope(EnvTargetNoteVolume, 0, EnvelopeDecay, 4)
	e.LowerBound, e.UpperBound = 1.5, 0.5
	lo, hi := e.Bounds()
	if lo != 0 || hi != 1 {
		t.Fatalf("inverted bounds = [%v, %v], want [0, 1]", lo, hi)
	}
	e.LowerBound, e.UpperBound = -1, 5
	lo, hi = e.Bounds()
	if lo != 0 || hi != EnvelopeBoundMax {
		t.Fatalf("clamped bounds = [%v, %v]", lo, hi)
	}
}

func TestComputeIndexIsDenseAndUnique(t *testing.T) {
	seen := make(map[int]bool)
	for target := EnvelopeTarget(0); target < EnvTargetCount; target++ {
		for i := 0; i < EnvelopeTargetSlots[target]; i++ {
			idx := target.ComputeIndex(i)
			if seen[idx] {
				t.Fatalf("duplicate compute index %d for target %d", idx, target)
			}
			seen[idx] = true
			if idx < 0 || idx >= EnvelopeComputeCount {
				t.Fatalf("index %d out of range", idx)
			}
		}
	}
	if len(seen) != EnvelopeComputeCount {
		t.Fatalf("covered %d of %d indices", len(seen), EnvelopeComputeCount)
	}
}

func TestMorphInterpolatesMatchingShapes(t *testing.T) {
	var a, b, dst FilterSettings
	a.Add(FilterLowPass, 10, 7).Add(FilterPeak, 20, 2)
	b.Add(FilterLowPass, 20, 7).Add(FilterPeak, 20, 12)
	Morph(&dst, &a, &b, 0.5)
	if dst.Points[0].Freq != 15 || dst.Points[1].Gain != 7 {
		t.Fatalf("morph midpoint = %+v", dst.Points)
	}

	var c FilterSettings
	c.Add(FilterHighPass, 5, 7)
	Morph(&dst, &a, &c, 0.25)
	if len(dst.Points) != 2 {
		t.Fatalf("incompatible morph below half should keep a, got %+v", dst.Points)
	}
	Morph(&dst, &a, &c, 0.75)
	if len(dst.Points) != 1 || dst.Points[0].Type != FilterHighPass {
		t.Fatalf("incompatible morph above half should take b, got %+v", dst.Points)
	}
}

func TestFilterTargetRoundTrip(t *testing.T) {
	for point := 0; point < FilterMaxPoints; point++ {
		for axis := 0; axis < 2; axis++ {
			p, a := FilterTargetPoint(FilterTargetFor(point, axis))
			if p != point || a != axis {
				t.Fatalf("(%d,%d) decoded as (%d,%d)", point, axis, p, a)
			}
		}
	}
	slot := ModSlot{Setting: ModNoteFilter, FilterTarget: FilterTargetFor(1, 1)}
	if got := slot.MaxRawValue(); got != FilterGainRange-1 {
		t.Fatalf("gain axis max = %d", got)
	}
}

func TestNormalizeClampsInstrument(t *testing.T) {
	inst := NewInstrument(InstrumentFM)
	inst.Volume = 900
	inst.Operators[2].Amplitude = -3
	inst.Envelopes = make([]EnvelopeSettings, MaxEnvelopeCount+3)
	inst.Normalize()
	if inst.Volume != VolumeRange/2 {
		t.Errorf("volume = %d", inst.Volume)
	}
	if inst.Operators[2].Amplitude != 0 {
		t.Errorf("operator amplitude = %d", inst.Operators[2].Amplitude)
	}
	if len(inst.Envelopes) != MaxEnvelopeCount {
		t.Errorf("envelope count = %d", len(inst.Envelopes))
	}
}

func TestDemoSongIsWellFormed(t *testing.T) {
	s := Demo()
	s.Normalize()
	if len(s.Channels) == 0 {
		t.Fatal("demo has no channels")
	}
	for ci, ch := range s.Channels {
		for bar := 0; bar < s.BarCount; bar++ {
			p := s.PatternAt(ci, bar)
			if p == nil {
				continue
			}
			for _, n := range p.Notes {
				if n.End > s.PartsPerBar() || n.Start < 0 || n.Start >= n.End {
					t.Fatalf("channel %d note out of bar: %+v", ci, n)
				}
				if len(n.Pitches) == 0 {
					t.Fatalf("channel %d has a note without pitches", ci)
				}
			}
		}
		if len(ch.Instruments) == 0 {
			t.Fatalf("channel %d has no instruments", ci)
		}
	}
}
