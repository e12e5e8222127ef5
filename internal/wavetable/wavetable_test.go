package wavetable

import (
	"math"
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

func TestIntegratedChipWavesLoop(t *testing.T) {
	c := NewCache()
	for i, w := range song.ChipWaves {
		tab := c.Chip(i)
		if len(tab) != len(w.Samples)+1 {
			t.Fatalf("%s: len %d", w.Name, len(tab))
		}
		// A centred wave integrates back to zero over one cycle.
		end := 0.0
		for _, v := range Centered(w.Samples) {
			end += v
		}
		if math.Abs(end) > 1e-9 {
			t.Errorf("%s: centred sum %v", w.Name, end)
		}
		if tab[len(tab)-1] != tab[0] {
			t.Errorf("%s: guard sample mismatch", w.Name)
		}
	}
	if &c.Chip(0)[0] != &c.Chip(0)[0] {
		t.Fatal("chip tables not cached")
	}
}

func TestHarmonicsSinglePartialIsSine(t *testing.T) {
	var h [song.HarmonicsControlPoints]int
	h[0] = song.HarmonicsMax
	tab := Harmonics(&h)
	if len(tab) != HarmonicsLength+1 {
		t.Fatalf("len %d", len(tab))
	}
	// Differentiate back and check the fundamental dominates.
	wave := make([]float64, HarmonicsLength)
	for i := range wave {
		wave[i] = tab[i+1] - tab[i]
	}
	peak := 0.0
	for _, v := range wave {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		t.Fatal("silent harmonics wave")
	}
	for i := range wave {
		want := math.Sin(2*math.Pi*float64(i)/HarmonicsLength) * peak
		if math.Abs(math.Abs(wave[i])-math.Abs(want)) > peak*0.02 {
			t.Fatalf("sample %d = %v, want ±%v", i, wave[i], want)
		}
	}
}

func TestNoiseTablesAreFiniteAndNonSilent(t *testing.T) {
	for i := range song.ChipNoises {
		tab := Noise(i)
		if len(tab) != NoiseLength+1 {
			t.Fatalf("%s: len %d", song.ChipNoises[i].Name, len(tab))
		}
		energy := 0.0
		for _, v := range tab {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s: non-finite sample", song.ChipNoises[i].Name)
			}
			energy += v * v
		}
		if energy == 0 {
			t.Errorf("%s: silent", song.ChipNoises[i].Name)
		}
	}
}

func TestWhiteNoiseIsDeterministic(t *testing.T) {
	a, b := Noise(song.NoiseWhite), Noise(song.NoiseWhite)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("white noise differs at %d", i)
		}
	}
}

func TestSpectrumCache(t *testing.T) {
	c := NewCache()
	var s [song.SpectrumControlPoints]int
	for i := range s {
		s[i] = i % (song.SpectrumMax + 1)
	}
	a := c.Spectrum(&s)
	if len(a) != SpectrumLength+1 {
		t.Fatalf("len %d", len(a))
	}
	b := c.Spectrum(&s)
	if &a[0] != &b[0] {
		t.Fatal("equal settings should share a table")
	}
	s[3]++
	if d := c.Spectrum(&s); &d[0] == &a[0] {
		t.Fatal("different settings share a table")
	}
}

func TestOperatorWaves(t *testing.T) {
	for w := 0; w < song.OperatorWaveCount; w++ {
		tab := OperatorWave(w)
		if math.Abs(tab[0]-tab[SineLength]) > 1e-12 {
			t.Errorf("waveform %d guard mismatch", w)
		}
		for i, v := range tab {
			if v < -1-1e-12 || v > 1+1e-12 {
				t.Fatalf("waveform %d[%d] = %v", w, i, v)
			}
		}
	}
	pulse := PulseOperatorWave(0.25)
	high := 0
	for _, v := range pulse[:SineLength] {
		if v > 0 {
			high++
		}
	}
	if high != SineLength/4 {
		t.Fatalf("quarter pulse has %d high samples", high)
	}
}

func TestCustomWaveRawAndIntegrated(t *testing.T) {
	c := NewCache()
	var w [song.CustomChipWaveLength]float64
	for i := range w {
		w[i] = float64(i%8) - 3.5
	}
	cw := c.Custom(&w)
	if len(cw.Raw) != song.CustomChipWaveLength+1 || len(cw.Integrated) != song.CustomChipWaveLength+1 {
		t.Fatalf("lengths %d %d", len(cw.Raw), len(cw.Integrated))
	}
	if c.Custom(&w) != cw {
		t.Fatal("custom wave not cached")
	}
}
