package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/filter"
)

// runawayLevel is the feedback magnitude at which a delay network is treated
// as unstable and cleared.
const runawayLevel = 100

func fittingPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// growDelayLine returns a line of at least size samples (rounded up to a
// power of two). The history leading up to pos keeps its distance from pos,
// so taps read the same samples before and after growth.
func growDelayLine(line []float64, pos, size int) []float64 {
	size = fittingPowerOfTwo(size)
	if len(line) >= size {
		return line
	}
	next := make([]float64, size)
	if len(line) > 0 {
		oldMask := len(line) - 1
		newMask := size - 1
		for k := 1; k <= len(line); k++ {
			next[(pos-k)&newMask] = line[(pos-k)&oldMask]
		}
	}
	return next
}

// stable reports whether peak, the largest magnitude fed back during a run,
// is finite and below runawayLevel.
func stable(peak float64) bool {
	return peak < runawayLevel
}

// sanitizeDelayLine walks back from the most recent write and zeroes
// samples that are denormal or non-finite, stopping at the first sample
// with a usable value.
func sanitizeDelayLine(line []float64, pos int) {
	if len(line) == 0 {
		return
	}
	mask := len(line) - 1
	for k := 1; k <= len(line); k++ {
		i := (pos - k) & mask
		v := math.Abs(line[i])
		if !math.IsNaN(v) && !math.IsInf(v, 0) && (v == 0 || v >= filter.Epsilon) {
			return
		}
		line[i] = 0
	}
}

// tap reads line at a fractional index, interpolating towards the next
// sample.
func tap(line []float64, mask int, index float64) float64 {
	f := math.Floor(index)
	i := int(f)
	a := line[i&mask]
	b := line[(i+1)&mask]
	return a + (b-a)*(index-f)
}
