package song

import "math"

// FilterType is the response shape of one control point.
type FilterType int

const (
	FilterLowPass FilterType = iota
	FilterHighPass
	FilterPeak
	FilterTypeCount
)

func (t FilterType) String() string {
	switch t {
	case FilterLowPass:
		return "lowpass"
	case FilterHighPass:
		return "highpass"
	case FilterPeak:
		return "peak"
	}
	return "invalid"
}

// FilterControlPoint is one breakpoint of a filter shape. Freq and Gain are
// settings, not Hz or linear gain; automation may leave them fractional.
type FilterControlPoint struct {
	Type FilterType
	Freq float64
	Gain float64
}

// FilterSettings is an ordered cascade of control points.
type FilterSettings struct {
	Points []FilterControlPoint
}

// Add appends a control point, ignoring points beyond FilterMaxPoints.
func (f *FilterSettings) Add(t FilterType, freq, gain float64) *FilterSettings {
	if len(f.Points) < FilterMaxPoints {
		f.Points = append(f.Points, FilterControlPoint{Type: t, Freq: freq, Gain: gain})
	}
	return f
}

// Clone returns a deep copy.
func (f *FilterSettings) Clone() FilterSettings {
	out := FilterSettings{Points: make([]FilterControlPoint, len(f.Points), FilterMaxPoints)}
	copy(out.Points, f.Points)
	return out
}

// Normalize truncates to FilterMaxPoints and clamps each point.
func (f *FilterSettings) Normalize() {
	if len(f.Points) > FilterMaxPoints {
		f.Points = f.Points[:FilterMaxPoints]
	}
	for i := range f.Points {
		p := &f.Points[i]
		if p.Type < 0 || p.Type >= FilterTypeCount {
			p.Type = FilterLowPass
		}
		p.Freq = clampFloat(p.Freq, 0, FilterFreqRange-1)
		p.Gain = clampFloat(p.Gain, 0, FilterGainRange-1)
	}
}

// Morph writes the interpolation of a and b at t into dst, reusing dst's
// backing array. Point i of a blends with point i of b when their types
// agree. Shapes with different point counts or types snap to whichever side
// t is closer to.
func Morph(dst *FilterSettings, a, b *FilterSettings, t float64) {
	t = clampFloat(t, 0, 1)
	compatible := len(a.Points) == len(b.Points)
	if compatible {
		for i := range a.Points {
			if a.Points[i].Type != b.Points[i].Type {
				compatible = false
				break
			}
		}
	}
	src := a
	if !compatible && t >= 0.5 {
		src = b
	}
	dst.Points = append(dst.Points[:0], src.Points...)
	if !compatible {
		return
	}
	for i := range dst.Points {
		dst.Points[i].Freq = a.Points[i].Freq + (b.Points[i].Freq-a.Points[i].Freq)*t
		dst.Points[i].Gain = a.Points[i].Gain + (b.Points[i].Gain-a.Points[i].Gain)*t
	}
}

// MorphSubFilters resolves a fractional morph position across a set of
// named sub-filters. Missing sub-filters fall back to base.
func MorphSubFilters(dst *FilterSettings, base *FilterSettings, subs *[FilterMorphCount]*FilterSettings, position float64) {
	position = clampFloat(position, 0, FilterMorphCount-1)
	lo := int(math.Floor(position))
	hi := lo + 1
	if hi > FilterMorphCount-1 {
		hi = FilterMorphCount - 1
	}
	a, b := subs[lo], subs[hi]
	if a == nil {
		a = base
	}
	if b == nil {
		b = base
	}
	Morph(dst, a, b, position-float64(lo))
}
