package effects

import (
	"math"
	"sync/atomic"
)

// EQ5Band is a listener-side tone control applied after the limiter. Gains
// are set from any goroutine; the audio thread reads them lock-free as
// bit-cast float32 values. With every gain at unity the block is left
// untouched, so rendering stays bit-exact.
type EQ5Band struct {
	gains  [5]atomic.Uint32
	alphas [4]float64
	lpL    [4]float64
	lpR    [4]float64
}

var defaultCrossovers = [4]float64{200, 800, 2500, 8000}

// NewEQ5Band returns an EQ with all gains at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range defaultCrossovers {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = dt / (rc + dt)
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1.0))
	}
	return eq
}

// SetGain sets the gain for band (0-4). 1.0 = unity.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if band >= 0 && band < len(eq.gains) {
		eq.gains[band].Store(math.Float32bits(gain))
	}
}

// Gain returns the current gain for band (0-4).
func (eq *EQ5Band) Gain(band int) float32 {
	if band >= 0 && band < len(eq.gains) {
		return math.Float32frombits(eq.gains[band].Load())
	}
	return 1.0
}

// ProcessBlock filters planar stereo samples in place.
func (eq *EQ5Band) ProcessBlock(l, r []float32) {
	var g [5]float64
	unity := true
	for i := range g {
		g[i] = float64(math.Float32frombits(eq.gains[i].Load()))
		unity = unity && g[i] == 1
	}
	if unity {
		eq.Reset()
		return
	}
	for i := range l {
		remL, remR := float64(l[i]), float64(r[i])
		var outL, outR float64
		for b := 0; b < 4; b++ {
			eq.lpL[b] += eq.alphas[b] * (remL - eq.lpL[b])
			eq.lpR[b] += eq.alphas[b] * (remR - eq.lpR[b])
			outL += eq.lpL[b] * g[b]
			outR += eq.lpR[b] * g[b]
			remL -= eq.lpL[b]
			remR -= eq.lpR[b]
		}
		l[i] = float32(outL + remL*g[4])
		r[i] = float32(outR + remR*g[4])
	}
}

// Reset clears the crossover state.
func (eq *EQ5Band) Reset() {
	eq.lpL = [4]float64{}
	eq.lpR = [4]float64{}
}
