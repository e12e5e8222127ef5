package filter

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// Epsilon is the magnitude below which filter history snaps to zero.
const Epsilon = 1e-24

// runawayLevel is the history magnitude treated as an unstable filter.
const runawayLevel = 100

// DynamicBiquad is a second-order section whose coefficients move linearly
// from a start set towards an end set by a fixed delta every sample. Input
// history is owned by the enclosing Chain.
type DynamicBiquad struct {
	a1, a2, b0, b1, b2        float64
	a1Delta, a2Delta          float64
	b0Delta, b1Delta, b2Delta float64
	// Multiplicative b gradients; 1 when the walk is additive.
	b0Mult, b1Mult, b2Mult float64
	output1, output2       float64
}

// LoadCoefficientsWithGradient sets the filter to start and schedules a
// walk to end over 1/deltaRate samples. When multiplicative is set the b
// coefficients move geometrically, which keeps lowpass gain sweeps smooth
// in loudness.
func (f *DynamicBiquad) LoadCoefficientsWithGradient(start, end *Coefficients, deltaRate float64, multiplicative bool) {
	f.a1 = start.A[1]
	f.a2 = start.A[2]
	f.b0 = start.B[0]
	f.b1 = start.B[1]
	f.b2 = start.B[2]
	f.a1Delta = (end.A[1] - start.A[1]) * deltaRate
	f.a2Delta = (end.A[2] - start.A[2]) * deltaRate
	f.b0Mult, f.b0Delta = gradientStep(start.B[0], end.B[0], deltaRate, multiplicative)
	f.b1Mult, f.b1Delta = gradientStep(start.B[1], end.B[1], deltaRate, multiplicative)
	f.b2Mult, f.b2Delta = gradientStep(start.B[2], end.B[2], deltaRate, multiplicative)
}

// gradientStep returns the per-sample factor and increment that walk start
// to end. A geometric walk is only possible between values of the same sign;
// otherwise the walk is additive.
func gradientStep(start, end, deltaRate float64, multiplicative bool) (mult, delta float64) {
	if multiplicative && start != 0 && end != 0 && (start < 0) == (end < 0) {
		return math.Pow(end/start, deltaRate), 0
	}
	return 1, (end - start) * deltaRate
}

// ResetOutput clears the filter's output history.
func (f *DynamicBiquad) ResetOutput() {
	f.output1 = 0
	f.output2 = 0
}

// Output returns the most recent output sample.
func (f *DynamicBiquad) Output() float64 { return f.output1 }

// Chain is a cascade of dynamic biquads. Each section reads the previous
// section's output history as its input history.
type Chain struct {
	Filters [song.FilterMaxPoints]DynamicBiquad
	Count   int
	input1  float64
	input2  float64
}

// Apply runs one sample through the cascade and advances every gradient.
func (c *Chain) Apply(sample float64) float64 {
	input1, input2 := c.input1, c.input2
	c.input2 = input1
	c.input1 = sample
	for i := 0; i < c.Count; i++ {
		f := &c.Filters[i]
		output1, output2 := f.output1, f.output2
		sample = f.b0*sample + f.b1*input1 + f.b2*input2 - f.a1*output1 - f.a2*output2
		f.a1 += f.a1Delta
		f.a2 += f.a2Delta
		f.b0 = f.b0*f.b0Mult + f.b0Delta
		f.b1 = f.b1*f.b1Mult + f.b1Delta
		f.b2 = f.b2*f.b2Mult + f.b2Delta
		f.output2 = output1
		f.output1 = sample
		input1, input2 = output1, output2
	}
	return sample
}

// Load configures the first n sections from start/end coefficient pairs.
// Lowpass sections use multiplicative input gradients.
func (c *Chain) Load(starts, ends []Coefficients, types []song.FilterType, n int, deltaRate float64) {
	if n > song.FilterMaxPoints {
		n = song.FilterMaxPoints
	}
	for i := 0; i < n; i++ {
		c.Filters[i].LoadCoefficientsWithGradient(&starts[i], &ends[i], deltaRate, types[i] == song.FilterLowPass)
	}
	if n < c.Count {
		for i := n; i < c.Count; i++ {
			c.Filters[i].ResetOutput()
		}
	}
	c.Count = n
}

// Sanitize zeroes the whole cascade when any section has gone non-finite or
// runaway and snaps denormal-range history to exactly zero. It returns true
// when a reset happened.
func (c *Chain) Sanitize() bool {
	reset := false
	for i := 0; i < c.Count; i++ {
		f := &c.Filters[i]
		o1, o2 := math.Abs(f.output1), math.Abs(f.output2)
		if !(o1 < runawayLevel) || !(o2 < runawayLevel) {
			reset = true
			break
		}
		if o1 < Epsilon {
			f.output1 = 0
		}
		if o2 < Epsilon {
			f.output2 = 0
		}
	}
	if !(math.Abs(c.input1) < runawayLevel) || !(math.Abs(c.input2) < runawayLevel) {
		reset = true
	}
	if reset {
		c.Reset()
		return true
	}
	if math.Abs(c.input1) < Epsilon {
		c.input1 = 0
	}
	if math.Abs(c.input2) < Epsilon {
		c.input2 = 0
	}
	return false
}

// Reset clears all history.
func (c *Chain) Reset() {
	for i := range c.Filters {
		c.Filters[i].ResetOutput()
	}
	c.input1 = 0
	c.input2 = 0
}

// FirstOrder is a one-pole section with a fixed gradient, used for shelves
// and all-passes inside effects.
type FirstOrder struct {
	A1, B0, B1                float64
	A1Delta, B0Delta, B1Delta float64
	Input1, Output1           float64
}

// LoadWithGradient interpolates from start to end over 1/deltaRate samples.
func (f *FirstOrder) LoadWithGradient(start, end *Coefficients, deltaRate float64) {
	f.A1, f.B0, f.B1 = start.A[1], start.B[0], start.B[1]
	f.A1Delta = (end.A[1] - start.A[1]) * deltaRate
	f.B0Delta = (end.B[0] - start.B[0]) * deltaRate
	f.B1Delta = (end.B[1] - start.B[1]) * deltaRate
}

// Apply filters one sample.
func (f *FirstOrder) Apply(x float64) float64 {
	y := f.B0*x + f.B1*f.Input1 - f.A1*f.Output1
	f.Input1 = x
	f.Output1 = y
	f.A1 += f.A1Delta
	f.B0 += f.B0Delta
	f.B1 += f.B1Delta
	return y
}

// Sanitize resets runaway state and flushes denormals.
func (f *FirstOrder) Sanitize() {
	if !(math.Abs(f.Output1) < runawayLevel) || !(math.Abs(f.Input1) < runawayLevel) {
		f.Input1, f.Output1 = 0, 0
		return
	}
	if math.Abs(f.Output1) < Epsilon {
		f.Output1 = 0
	}
	if math.Abs(f.Input1) < Epsilon {
		f.Input1 = 0
	}
}
