package filter

import (
	"math"
	"math/cmplx"
)

// Response is the complex frequency response of a filter at one frequency.
type Response struct {
	value complex128
}

// Analyze evaluates c at w radians per sample.
func Analyze(c *Coefficients, w float64) Response {
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(c.B[0], 0)
	den := complex(1, 0)
	if c.Order >= 1 {
		num += complex(c.B[1], 0) * z1
		den += complex(c.A[1], 0) * z1
	}
	if c.Order >= 2 {
		num += complex(c.B[2], 0) * z2
		den += complex(c.A[2], 0) * z2
	}
	return Response{value: num / den}
}

// Magnitude is the linear gain.
func (r Response) Magnitude() float64 { return cmplx.Abs(r.value) }

// Angle is the phase shift in radians.
func (r Response) Angle() float64 { return cmplx.Phase(r.value) }

// MagnitudeDB is the gain in decibels.
func (r Response) MagnitudeDB() float64 { return 20 * math.Log10(r.Magnitude()) }
