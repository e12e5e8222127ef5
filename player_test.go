package trackersynth

import "testing"

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer()
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerOptions(t *testing.T) {
	if _, err := NewPlayer(WithSampleRate(0)); err == nil {
		t.Fatalf("expected an error for a zero sample rate")
	}
	pl, err := NewPlayer(WithSampleRate(44100), WithVolume(0.5), WithLoopPlayback(false))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if pl.sampleRate != 44100 || pl.loopPlayback || pl.MasterVolume() != 0.5 {
		t.Fatalf("options not applied: rate=%d loop=%v volume=%v", pl.sampleRate, pl.loopPlayback, pl.MasterVolume())
	}
	if pos := pl.Position(); pos.Bar != 0 {
		t.Fatalf("expected an idle playhead, got %v", pos)
	}
}

func TestEQBandRoundTrip(t *testing.T) {
	pl, err := NewPlayer()
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	pl.SetEQBand(2, 0.25)
	if got := pl.EQBand(2); got != 0.25 {
		t.Fatalf("band 2 = %v, want 0.25", got)
	}
	if got := pl.EQBand(9); got != 1 {
		t.Fatalf("out of range band = %v, want 1", got)
	}
}

func TestSongSourceAppliesVolume(t *testing.T) {
	pl, err := NewPlayer(WithVolume(0))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	var tapped int
	src := &songSource{
		volume:    &pl.volume,
		masterEQ:  pl.masterEQ,
		sampleTap: func(l, r []float32) { tapped += len(l) + len(r) },
	}
	src.synth = newDemoSynth(pl.sampleRate)
	left := make([]float32, 1024)
	right := make([]float32, 1024)
	for i := range left {
		left[i], right[i] = 1, 1
	}
	if err := src.Render(left, right); err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("frame %d = (%v, %v) at zero volume", i, left[i], right[i])
		}
	}
	if tapped != 2048 {
		t.Fatalf("tap saw %d samples, want 2048", tapped)
	}
}
