// Package filter turns musical filter settings into biquad coefficients and
// runs cascades of per-sample interpolated biquads.
package filter

import "math"

// Coefficients describes a first- or second-order IIR filter. A[0] is
// always 1 and is not used by the difference equation.
type Coefficients struct {
	A     [3]float64
	B     [3]float64
	Order int
}

func (c *Coefficients) reset(order int) {
	c.A = [3]float64{1, 0, 0}
	c.B = [3]float64{0, 0, 0}
	c.Order = order
}

// LowPass1stOrderButterworth configures a one-pole lowpass at w radians per
// sample.
func (c *Coefficients) LowPass1stOrderButterworth(w float64) {
	c.reset(1)
	g := 1 / math.Tan(w*0.5)
	a0 := 1 + g
	c.A[1] = (1 - g) / a0
	c.B[0] = 1 / a0
	c.B[1] = 1 / a0
}

// LowPass1stOrderSimplified is the cheap one-pole lowpass used by legacy
// instruments.
func (c *Coefficients) LowPass1stOrderSimplified(w float64) {
	c.reset(1)
	g := 2 * math.Sin(w*0.5)
	c.A[1] = g - 1
	c.B[0] = g
}

func (c *Coefficients) HighPass1stOrderButterworth(w float64) {
	c.reset(1)
	g := 1 / math.Tan(w*0.5)
	a0 := 1 + g
	c.A[1] = (1 - g) / a0
	c.B[0] = g / a0
	c.B[1] = -g / a0
}

// HighShelf1stOrder attenuates or boosts everything above w by
// shelfLinearGain.
func (c *Coefficients) HighShelf1stOrder(w, shelfLinearGain float64) {
	c.reset(1)
	t := math.Tan(w * 0.5)
	sqrtGain := math.Sqrt(shelfLinearGain)
	g := (t*sqrtGain - 1) / (t*sqrtGain + 1)
	c.A[1] = g
	c.B[0] = (1 + g + shelfLinearGain*(1-g)) / 2
	c.B[1] = (1 + g - shelfLinearGain*(1-g)) / 2
}

// AllPass1stOrderInvertPhaseAbove flips the phase of content above w.
func (c *Coefficients) AllPass1stOrderInvertPhaseAbove(w float64) {
	c.reset(1)
	g := (math.Sin(w) - 1) / math.Cos(w)
	c.A[1] = g
	c.B[0] = g
	c.B[1] = 1
}

// AllPass1stOrderFractionalDelay approximates a delay of d samples, d in
// [0, 1).
func (c *Coefficients) AllPass1stOrderFractionalDelay(d float64) {
	c.reset(1)
	g := (1 - d) / (1 + d)
	c.A[1] = g
	c.B[0] = g
	c.B[1] = 1
}

func (c *Coefficients) LowPass2ndOrderButterworth(w, peakLinearGain float64) {
	c.reset(2)
	alpha := math.Sin(w) / (2 * peakLinearGain)
	cos := math.Cos(w)
	a0 := 1 + alpha
	c.A[1] = -2 * cos / a0
	c.A[2] = (1 - alpha) / a0
	c.B[0] = (1 - cos) / (2 * a0)
	c.B[1] = (1 - cos) / a0
	c.B[2] = c.B[0]
}

// LowPass2ndOrderSimplified reproduces the resonant lowpass of legacy
// songs, including its asymmetric feedback term.
func (c *Coefficients) LowPass2ndOrderSimplified(w, peakLinearGain float64) {
	c.reset(2)
	g := 2 * math.Sin(w/2)
	resonance := 1 - 1/(2*peakLinearGain)
	feedback := resonance + resonance/(1-g)
	c.A[1] = 2*g + (g-1)*g*feedback - 2
	c.A[2] = (g - 1) * (g - g*feedback - 1)
	c.B[0] = g * g
}

func (c *Coefficients) HighPass2ndOrderButterworth(w, peakLinearGain float64) {
	c.reset(2)
	alpha := math.Sin(w) / (2 * peakLinearGain)
	cos := math.Cos(w)
	a0 := 1 + alpha
	c.A[1] = -2 * cos / a0
	c.A[2] = (1 - alpha) / a0
	c.B[0] = (1 + cos) / (2 * a0)
	c.B[1] = -(1 + cos) / a0
	c.B[2] = c.B[0]
}

// HighShelf2ndOrder is the RBJ shelf with an explicit slope.
func (c *Coefficients) HighShelf2ndOrder(w, shelfLinearGain, slope float64) {
	c.reset(2)
	a := math.Sqrt(shelfLinearGain)
	cos := math.Cos(w)
	aPlus := a + 1
	aMinus := a - 1
	alpha := math.Sin(w) * 0.5 * math.Sqrt(aPlus/a*(1/slope-1)+2)
	sqrtA2Alpha := 2 * math.Sqrt(a) * alpha
	a0 := aPlus - aMinus*cos + sqrtA2Alpha
	c.A[1] = 2 * (aMinus - aPlus*cos) / a0
	c.A[2] = (aPlus - aMinus*cos - sqrtA2Alpha) / a0
	c.B[0] = a * (aPlus + aMinus*cos + sqrtA2Alpha) / a0
	c.B[1] = -2 * a * (aMinus + aPlus*cos) / a0
	c.B[2] = a * (aPlus + aMinus*cos - sqrtA2Alpha) / a0
}

// PeakEQ2ndOrder boosts or cuts a band around w. The bandwidth narrows as
// the gain moves away from unity so strong peaks stay musical.
func (c *Coefficients) PeakEQ2ndOrder(w, peakLinearGain, bandWidthScale float64) {
	c.reset(2)
	sqrtGain := math.Sqrt(peakLinearGain)
	div := sqrtGain
	if sqrtGain < 1 {
		div = 1 / sqrtGain
	}
	bandWidth := bandWidthScale * w / div
	alpha := math.Tan(bandWidth * 0.5)
	a0 := 1 + alpha/sqrtGain
	c.B[0] = (1 + alpha*sqrtGain) / a0
	c.A[1] = -2 * math.Cos(w) / a0
	c.B[1] = c.A[1]
	c.B[2] = (1 - alpha*sqrtGain) / a0
	c.A[2] = (1 - alpha/sqrtGain) / a0
}
