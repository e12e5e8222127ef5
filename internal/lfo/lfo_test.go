package lfo

import (
	"math"
	"testing"
)

func TestShapesStayNormalised(t *testing.T) {
	for w := 0; w < WaveCount; w++ {
		for i := 0; i < 1000; i++ {
			v := Shape(w, float64(i)*0.0137-3, 5)
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("waveform %d at %d = %v", w, i, v)
			}
		}
	}
}

func TestSineShape(t *testing.T) {
	if v := Shape(WaveSine, 0, 0); math.Abs(v) > 1e-12 {
		t.Errorf("sine at 0 = %v, want 0", v)
	}
	if v := Shape(WaveSine, 0.5, 0); math.Abs(v-1) > 1e-12 {
		t.Errorf("sine at 0.5 = %v, want 1", v)
	}
}

func TestTriangleShape(t *testing.T) {
	cases := []struct{ phase, want float64 }{
		{0, 0}, {0.25, 0.5}, {0.5, 1}, {0.75, 0.5},
	}
	for _, tc := range cases {
		if v := Shape(WaveTriangle, tc.phase, 0); math.Abs(v-tc.want) > 1e-12 {
			t.Errorf("triangle at %v = %v, want %v", tc.phase, v, tc.want)
		}
	}
}

func TestSquareShape(t *testing.T) {
	if v := Shape(WaveSquare, 0.1, 0); v != 1 {
		t.Errorf("square first half = %v", v)
	}
	if v := Shape(WaveSquare, 0.6, 0); v != 0 {
		t.Errorf("square second half = %v", v)
	}
}

func TestSteppedSawHasStepsLevels(t *testing.T) {
	levels := make(map[float64]bool)
	for i := 0; i < 400; i++ {
		levels[Shape(WaveSteppedSaw, float64(i)/400, 4)] = true
	}
	if len(levels) != 4 {
		t.Fatalf("stepped saw produced %d levels, want 4", len(levels))
	}
}

func TestVibratoSumsComponents(t *testing.T) {
	periods := []float64{0.5, 0.25}
	got := Vibrato(periods, 0.125)
	want := math.Sin(2*math.Pi*0.25) + math.Sin(2*math.Pi*0.5)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("vibrato = %v, want %v", got, want)
	}
	if Vibrato(nil, 1) != 0 {
		t.Fatal("empty vibrato should be silent")
	}
}

func TestTablesAreBipolarAndPeriodic(t *testing.T) {
	for w := 0; w < WaveCount; w++ {
		tab := Table(w)
		for i, v := range tab {
			if v < -1-1e-12 || v > 1+1e-12 {
				t.Fatalf("table %d[%d] = %v", w, i, v)
			}
		}
		if math.Abs(tab[0]-tab[TableLength]) > 1e-9 {
			t.Errorf("table %d guard sample %v != first %v", w, tab[TableLength], tab[0])
		}
	}
	if Table(-4) != Table(WaveSine) {
		t.Fatal("invalid waveform should fall back to sine")
	}
}
