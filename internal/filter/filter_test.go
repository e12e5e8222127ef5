package filter

import (
	"math"
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

const testRate = 44100.0

func TestControlPointRoundTrip(t *testing.T) {
	for _, typ := range []song.FilterType{song.FilterLowPass, song.FilterHighPass, song.FilterPeak} {
		for freq := 2.0; freq <= 30; freq += 4 {
			for gain := 0.0; gain < song.FilterGainRange; gain += 3 {
				p := song.FilterControlPoint{Type: typ, Freq: freq, Gain: gain}
				var c Coefficients
				ControlPointCoefficients(&c, p, testRate, 1, 1)
				gotFreq, gotGain := SettingsFromCoefficients(typ, &c, testRate)
				if math.Abs(gotFreq-freq) > 1e-6 {
					t.Errorf("%v freq=%v gain=%v: recovered freq %v", typ, freq, gain, gotFreq)
				}
				if math.Abs(gotGain-gain) > 1e-6 {
					t.Errorf("%v freq=%v gain=%v: recovered gain %v", typ, freq, gain, gotGain)
				}
			}
		}
	}
}

func TestHzSettingInverse(t *testing.T) {
	for freq := 0.0; freq < song.FilterFreqRange; freq++ {
		if got := FrequencySettingFromHz(HzFromSetting(freq)); math.Abs(got-freq) > 1e-9 {
			t.Fatalf("setting %v round-tripped to %v", freq, got)
		}
	}
	if got := HzFromSetting(song.FilterFreqReferenceSetting); got != song.FilterFreqReferenceHz {
		t.Fatalf("reference setting = %v Hz", got)
	}
}

func TestLowPassAttenuatesAboveCorner(t *testing.T) {
	var c Coefficients
	p := song.FilterControlPoint{Type: song.FilterLowPass, Freq: 12, Gain: song.FilterGainCenter}
	ControlPointCoefficients(&c, p, testRate, 1, 1)
	corner := 2 * math.Pi * HzFromSetting(12) / testRate
	low := Analyze(&c, corner/8).Magnitude()
	high := Analyze(&c, corner*8).Magnitude()
	if math.Abs(low-1) > 0.05 {
		t.Errorf("passband gain = %v, want ~1", low)
	}
	if high > 0.05 {
		t.Errorf("stopband gain = %v, want < 0.05", high)
	}
}

func TestPeakGainAtCenter(t *testing.T) {
	var c Coefficients
	p := song.FilterControlPoint{Type: song.FilterPeak, Freq: 20, Gain: 11}
	ControlPointCoefficients(&c, p, testRate, 1, 1)
	w := CornerRadians(20, testRate, 1)
	got := Analyze(&c, w).Magnitude()
	want := LinearGain(song.FilterPeak, 11, 1)
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("peak gain at center = %v, want %v", got, want)
	}
}

func TestFirstOrderShapes(t *testing.T) {
	var lp, hp, shelf, ap Coefficients
	lp.LowPass1stOrderButterworth(0.2)
	hp.HighPass1stOrderButterworth(0.2)
	shelf.HighShelf1stOrder(0.5, 0.25)
	ap.AllPass1stOrderFractionalDelay(0.3)
	if g := Analyze(&lp, 0.001).Magnitude(); math.Abs(g-1) > 1e-3 {
		t.Errorf("1st order lowpass DC gain = %v", g)
	}
	if g := Analyze(&hp, math.Pi).Magnitude(); math.Abs(g-1) > 1e-3 {
		t.Errorf("1st order highpass nyquist gain = %v", g)
	}
	if g := Analyze(&shelf, math.Pi*0.999).Magnitude(); math.Abs(g-0.25) > 0.01 {
		t.Errorf("high shelf gain = %v, want 0.25", g)
	}
	for _, w := range []float64{0.1, 1, 2.5} {
		if g := Analyze(&ap, w).Magnitude(); math.Abs(g-1) > 1e-9 {
			t.Errorf("all-pass magnitude at %v = %v", w, g)
		}
	}
}

func TestChainGradientReachesEnd(t *testing.T) {
	var start, end Coefficients
	start.LowPass2ndOrderButterworth(0.1, 1)
	end.LowPass2ndOrderButterworth(0.5, 2)
	var f DynamicBiquad
	const n = 64
	f.LoadCoefficientsWithGradient(&start, &end, 1.0/n, false)
	c := Chain{Count: 1}
	c.Filters[0] = f
	for i := 0; i < n; i++ {
		c.Apply(0)
	}
	got := c.Filters[0]
	if math.Abs(got.a1-end.A[1]) > 1e-9 || math.Abs(got.b0-end.B[0]) > 1e-9 {
		t.Fatalf("additive gradient ended at a1=%v b0=%v, want %v %v", got.a1, got.b0, end.A[1], end.B[0])
	}

	f.LoadCoefficientsWithGradient(&start, &end, 1.0/n, true)
	c.Filters[0] = f
	for i := 0; i < n; i++ {
		c.Apply(0)
	}
	got = c.Filters[0]
	if math.Abs(got.b0-end.B[0])/end.B[0] > 1e-9 {
		t.Fatalf("multiplicative gradient ended at b0=%v, want %v", got.b0, end.B[0])
	}
}

func TestMultiplicativeGradientCrossesZero(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
	}{
		{"same sign", 0.2, 0.8},
		{"negative to positive", -0.4, 0.6},
		{"positive to negative", 0.5, -0.25},
		{"from zero", 0, 0.3},
		{"to zero", 0.3, 0},
	}
	const n = 32
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var start, end Coefficients
			start.A[0], end.A[0] = 1, 1
			start.B[1], end.B[1] = tt.start, tt.end
			c := Chain{Count: 1}
			c.Filters[0].LoadCoefficientsWithGradient(&start, &end, 1.0/n, true)
			mid := 0.0
			for i := 0; i < n; i++ {
				c.Apply(0)
				if i == n/2-1 {
					mid = c.Filters[0].b1
				}
			}
			if got := c.Filters[0].b1; math.Abs(got-tt.end) > 1e-9 {
				t.Fatalf("b1 ended at %v, want %v", got, tt.end)
			}
			if tt.start != tt.end && mid == tt.start {
				t.Fatalf("b1 did not move by mid-run")
			}
		})
	}
}

func TestChainCascadeMatchesSeparateSections(t *testing.T) {
	var a, b Coefficients
	a.LowPass2ndOrderButterworth(0.3, 1.5)
	b.HighPass2ndOrderButterworth(0.05, 0.7)

	var cascade Chain
	cascade.Load([]Coefficients{a, b}, []Coefficients{a, b}, []song.FilterType{song.FilterLowPass, song.FilterHighPass}, 2, 0)
	var first, second Chain
	first.Load([]Coefficients{a}, []Coefficients{a}, []song.FilterType{song.FilterLowPass}, 1, 0)
	second.Load([]Coefficients{b}, []Coefficients{b}, []song.FilterType{song.FilterHighPass}, 1, 0)

	for i := 0; i < 500; i++ {
		x := math.Sin(float64(i)*0.37) + 0.3*math.Sin(float64(i)*2.1)
		got := cascade.Apply(x)
		want := second.Apply(first.Apply(x))
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("sample %d: cascade %v, separate %v", i, got, want)
		}
	}
}

func TestSanitizeResetsRunawayAndSnapsDenormals(t *testing.T) {
	var c Chain
	c.Count = 2
	c.Filters[0].output1 = 1e-30
	c.Filters[1].output1 = 0.5
	if c.Sanitize() {
		t.Fatal("small values should not trigger a reset")
	}
	if c.Filters[0].output1 != 0 {
		t.Fatalf("denormal not snapped: %v", c.Filters[0].output1)
	}
	c.Filters[1].output2 = math.NaN()
	if !c.Sanitize() {
		t.Fatal("NaN should trigger a reset")
	}
	if c.Filters[1].output1 != 0 || c.Filters[1].output2 != 0 {
		t.Fatal("chain not cleared after NaN")
	}
	c.Filters[0].output1 = 150
	if !c.Sanitize() {
		t.Fatal("magnitude >= 100 should trigger a reset")
	}
}

func TestLegacySettingsProducesLowPass(t *testing.T) {
	if got := LegacySettings(LegacyCutoffRange-1, 0, false, false); len(got.Points) != 0 {
		t.Fatalf("open legacy filter should produce no points, got %+v", got.Points)
	}
	for cutoff := 0; cutoff < LegacyCutoffRange-1; cutoff++ {
		for res := 0; res < LegacyResonanceRange; res++ {
			s := LegacySettings(cutoff, res, false, false)
			if len(s.Points) != 1 || s.Points[0].Type != song.FilterLowPass {
				t.Fatalf("cutoff=%d res=%d: %+v", cutoff, res, s.Points)
			}
			p := s.Points[0]
			if p.Freq < 0 || p.Freq > song.FilterFreqRange-1 || p.Gain < 0 || p.Gain > song.FilterGainRange-1 {
				t.Fatalf("cutoff=%d res=%d: point out of range %+v", cutoff, res, p)
			}
		}
	}
	lo := LegacySettings(2, 4, false, false).Points[0].Freq
	hi := LegacySettings(8, 4, false, false).Points[0].Freq
	if lo >= hi {
		t.Fatalf("higher legacy cutoff should map to a higher setting: %v >= %v", lo, hi)
	}
}

func TestVolumeCompensationNeutralIsFinite(t *testing.T) {
	for typ := song.FilterType(0); typ < song.FilterTypeCount; typ++ {
		for freq := 0.0; freq < song.FilterFreqRange; freq++ {
			v := VolumeCompensation(song.FilterControlPoint{Type: typ, Freq: freq, Gain: song.FilterGainCenter})
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				t.Fatalf("%v freq %v compensation %v", typ, freq, v)
			}
		}
	}
}

func BenchmarkChainApply(b *testing.B) {
	var c Chain
	var co Coefficients
	co.LowPass2ndOrderButterworth(0.2, 1)
	cos := []Coefficients{co, co, co, co}
	types := []song.FilterType{0, 0, 0, 0}
	c.Load(cos, cos, types, 4, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Apply(float64(i & 1))
	}
}
