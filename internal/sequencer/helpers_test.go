package sequencer

import (
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

func TestArpeggioIndex(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		fast    bool
		arpTime float64
		want    int
	}{
		{"single pitch", 1, false, 40, 0},
		{"two pitches first step", 2, false, 3, 0},
		{"two pitches second step", 2, false, 6, 1},
		{"fast two note", 2, true, 3, 1},
		{"three pitches bounce", 3, false, 18, 1},
		{"four pitches cycle", 4, false, 24, 0},
		{"four pitches third", 4, false, 12, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := arpeggioIndex(tt.count, tt.fast, tt.arpTime, 6); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPinAtInterpolates(t *testing.T) {
	n := song.NewRamp(0, 4, 12, 0, 8)
	n.InsertPin(4, 2, 4)
	tests := []struct {
		parts          float64
		interval, size float64
	}{
		{0, 0, 0},
		{2, 1, 2},
		{4, 2, 4},
		{6, 1, 6},
		{20, 0, 8},
	}
	for _, tt := range tests {
		interval, size := pinAt(n, tt.parts)
		if interval != tt.interval || size != tt.size {
			t.Fatalf("at %v: expected (%v, %v), got (%v, %v)", tt.parts, tt.interval, tt.size, interval, size)
		}
	}
}

func TestSlotForPitchIsReversed(t *testing.T) {
	if slotForPitch(0) != song.ModCount-1 || slotForPitch(song.ModCount-1) != 0 {
		t.Fatalf("unexpected slot mapping")
	}
}

func TestLiveInputDrainSwapsBuffers(t *testing.T) {
	var l LiveInput
	l.NoteOn(1, 0, 12, 16, 19)
	l.NoteOff(2, 1)
	evs := l.drain()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if !evs[0].on || evs[0].count != 3 || evs[0].pitches[2] != 19 {
		t.Fatalf("unexpected note on: %+v", evs[0])
	}
	if evs[1].on || evs[1].channel != 2 || evs[1].instrument != 1 {
		t.Fatalf("unexpected note off: %+v", evs[1])
	}
	if got := l.drain(); len(got) != 0 {
		t.Fatalf("expected empty queue, got %d events", len(got))
	}
}

func TestTonePoolReusesFreedSlots(t *testing.T) {
	var p tonePool
	a := p.alloc()
	b := p.alloc()
	p.release(a)
	if p.inUse() != 1 {
		t.Fatalf("expected 1 tone in use, got %d", p.inUse())
	}
	if c := p.alloc(); c != a {
		t.Fatalf("expected slot %d reused, got %d", a, c)
	}
	if p.inUse() != 2 || b == a {
		t.Fatalf("unexpected pool state: inUse=%d", p.inUse())
	}
}

func TestRoutineLookup(t *testing.T) {
	inst := song.NewInstrument(song.InstrumentMod)
	if r, err := routineFor(inst, &Tone{}); err != nil || r == nil {
		t.Fatalf("expected a silent routine for mod instruments, got %v", err)
	}
	inst.Type = 99
	if _, err := routineFor(inst, &Tone{}); err != ErrUnknownInstrumentType {
		t.Fatalf("expected ErrUnknownInstrumentType, got %v", err)
	}
	inst = song.NewInstrument(song.InstrumentCustomChip)
	inst.ChipWaveLoopMode = song.LoopPingPong
	if _, err := routineFor(inst, &Tone{}); err != nil {
		t.Fatalf("expected a loop routine, got %v", err)
	}
}
