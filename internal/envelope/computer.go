// Package envelope computes per-tick modulation values for every envelope
// target of a voice.
package envelope

import (
	"github.com/cbegin/trackersynth/internal/song"
)

// Overrides carries live modulator values for individual envelopes. A zero
// Has* flag leaves the stored setting in place.
type Overrides struct {
	Speed, Lower, Upper          [song.MaxEnvelopeCount]float64
	HasSpeed, HasLower, HasUpper [song.MaxEnvelopeCount]bool
}

// Input describes one tick of one voice.
type Input struct {
	Envelopes []song.EnvelopeSettings
	// SpeedScale is the instrument-wide envelope clock multiplier.
	SpeedScale float64
	Overrides  *Overrides

	SecondsPerTick float64
	BeatsPerTick   float64

	// Tick counts ticks since the note started, so NoteEndTick is the
	// note's length.
	Tick float64

	HasNote              bool
	AtNoteStart          bool
	PassedEndOfNote      bool
	Continues            bool
	ForceContinueAtStart bool
	ForceContinueAtEnd   bool

	NoteEndTick                float64
	NoteSizeStart, NoteSizeEnd float64

	Slides       bool
	SlideTicks   float64
	HasPrevNote  bool
	HasNextNote  bool
	NextNoteSize float64

	Pitch  float64
	NoteID int

	// NoteFilter is consulted for lowpass decay compensation.
	NoteFilter *song.FilterSettings
}

type clock struct {
	seconds     float64
	prevSeconds float64
	beats       float64
}

// Computer holds the envelope clocks of one voice.
type Computer struct {
	// Starts and Ends hold the multiplied envelope values at the start and
	// end of the last computed tick, indexed by EnvelopeTarget.ComputeIndex.
	Starts [song.MaxEnvelopeComputeCount]float64
	Ends   [song.MaxEnvelopeComputeCount]float64

	LowpassCutoffDecayVolumeCompensation float64

	clocks        [song.MaxEnvelopeCount + 1]clock
	noteSizeFinal float64
}

// NewComputer returns a computer with all clocks at zero.
func NewComputer() *Computer {
	c := &Computer{}
	c.ResetAll()
	return c
}

// ResetAll rewinds every envelope clock and sets outputs to unity.
func (c *Computer) ResetAll() {
	for i := range c.clocks {
		c.clocks[i] = clock{}
	}
	c.noteSizeFinal = song.NoteSizeMax
	c.clearOutputs()
	c.LowpassCutoffDecayVolumeCompensation = 1
}

// ResetEnvelope rewinds the clock of one envelope.
func (c *Computer) ResetEnvelope(index int) {
	if index >= 0 && index < len(c.clocks) {
		c.clocks[index] = clock{}
	}
}

func (c *Computer) clearOutputs() {
	for i := 0; i < song.EnvelopeComputeCount; i++ {
		c.Starts[i] = 1
		c.Ends[i] = 1
	}
}

// Compute evaluates every envelope for one tick and advances the clocks.
func (c *Computer) Compute(in *Input) {
	if in.HasNote && in.AtNoteStart && !in.Continues && !in.ForceContinueAtStart {
		for i := range c.clocks {
			c.clocks[i].prevSeconds = c.clocks[i].seconds
			c.clocks[i].seconds = 0
		}
	}

	tickStart := in.Tick
	tickEnd := in.Tick + 1

	sizeStart, sizeEnd := c.noteSizeFinal, c.noteSizeFinal
	prevNoteSize := float64(song.NoteSizeMax)
	nextNoteSize := float64(song.NoteSizeMax)
	var prevRatioStart, prevRatioEnd, nextRatioStart, nextRatioEnd float64
	var prevStart, prevEnd, nextStart, nextEnd bool

	if in.HasNote && !in.PassedEndOfNote {
		sizeStart, sizeEnd = in.NoteSizeStart, in.NoteSizeEnd
		if in.Slides {
			slideTicks := in.SlideTicks
			if half := in.NoteEndTick * 0.5; half < slideTicks {
				slideTicks = half
			}
			if slideTicks > 0 && in.HasPrevNote && !in.ForceContinueAtStart {
				if d := tickStart; d < slideTicks {
					prevStart = true
					prevRatioStart = 0.5 * (1 - d/slideTicks)
				}
				if d := tickEnd; d < slideTicks {
					prevEnd = true
					prevRatioEnd = 0.5 * (1 - d/slideTicks)
				}
			}
			if slideTicks > 0 && in.HasNextNote && !in.ForceContinueAtEnd {
				nextNoteSize = in.NextNoteSize
				if d := in.NoteEndTick - tickStart; d < slideTicks {
					nextStart = true
					nextRatioStart = 0.5 * (1 - d/slideTicks)
				}
				if d := in.NoteEndTick - tickEnd; d < slideTicks {
					nextEnd = true
					nextRatioEnd = 0.5 * (1 - d/slideTicks)
				}
			}
		}
		c.noteSizeFinal = sizeEnd
	}

	c.clearOutputs()
	compensation := 1.0
	usedNoteSize := false
	count := len(in.Envelopes)
	if count > song.MaxEnvelopeCount {
		count = song.MaxEnvelopeCount
	}

	for i := 0; i <= count; i++ {
		var env song.EnvelopeSettings
		if i == count {
			if usedNoteSize {
				break
			}
			// Note size drives note volume unless an envelope already uses it.
			env = song.NewEnvelope(song.EnvTargetNoteVolume, 0, song.EnvelopeNoteSize, 0)
		} else {
			env = in.Envelopes[i]
			if env.Shape == song.EnvelopeNoteSize {
				usedNoteSize = true
			}
			if o := in.Overrides; o != nil {
				if o.HasLower[i] {
					env.LowerBound = o.Lower[i]
				}
				if o.HasUpper[i] {
					env.UpperBound = o.Upper[i]
				}
			}
		}
		if env.Target == song.EnvTargetNone && i != count {
			c.advance(i, in)
			continue
		}

		clk := &c.clocks[i]
		secondsStep, beatsStep := c.steps(i, count, &env, in)
		p0 := Point{Seconds: clk.seconds, Beats: clk.beats, NoteSize: sizeStart, Pitch: in.Pitch, NoteID: in.NoteID}
		p1 := Point{Seconds: clk.seconds + secondsStep, Beats: clk.beats + beatsStep, NoteSize: sizeEnd, Pitch: in.Pitch, NoteID: in.NoteID}

		start := Normalized(&env, p0)
		end := Normalized(&env, p1)
		if prevStart {
			other := Normalized(&env, Point{Seconds: clk.prevSeconds, Beats: p0.Beats, NoteSize: prevNoteSize, Pitch: in.Pitch, NoteID: in.NoteID})
			start += (other - start) * prevRatioStart
		}
		if prevEnd {
			other := Normalized(&env, Point{Seconds: clk.prevSeconds + secondsStep, Beats: p1.Beats, NoteSize: prevNoteSize, Pitch: in.Pitch, NoteID: in.NoteID})
			end += (other - end) * prevRatioEnd
		}
		if nextStart {
			other := Normalized(&env, Point{Beats: p0.Beats, NoteSize: nextNoteSize, Pitch: in.Pitch, NoteID: in.NoteID})
			start += (other - start) * nextRatioStart
		}
		if nextEnd {
			other := Normalized(&env, Point{Beats: p1.Beats, NoteSize: nextNoteSize, Pitch: in.Pitch, NoteID: in.NoteID})
			end += (other - end) * nextRatioEnd
		}
		start = Bounded(&env, start)
		end = Bounded(&env, end)
		if env.Discrete {
			end = start
		}

		idx := env.Target.ComputeIndex(env.Index)
		c.Starts[idx] *= start
		c.Ends[idx] *= end

		if i < count {
			clk.seconds += secondsStep
			clk.prevSeconds += secondsStep
			clk.beats += beatsStep
		}

		if (env.Target == song.EnvTargetNoteFilterFreq || env.Target == song.EnvTargetNoteFilterAllFreqs) && in.NoteFilter != nil {
			if compensatesLowPass(in.NoteFilter, env) {
				if v := LowpassCutoffDecayVolumeCompensation(&env); v > compensation {
					compensation = v
				}
			}
		}
	}
	c.LowpassCutoffDecayVolumeCompensation = compensation
}

func compensatesLowPass(f *song.FilterSettings, env song.EnvelopeSettings) bool {
	if env.Target == song.EnvTargetNoteFilterAllFreqs {
		for _, p := range f.Points {
			if p.Type == song.FilterLowPass {
				return true
			}
		}
		return false
	}
	return env.Index < len(f.Points) && f.Points[env.Index].Type == song.FilterLowPass
}

func (c *Computer) steps(i, count int, env *song.EnvelopeSettings, in *Input) (seconds, beats float64) {
	scale := in.SpeedScale
	if i < count {
		per := env.PerEnvelopeSpeed
		if in.Overrides != nil && in.Overrides.HasSpeed[i] {
			per = in.Overrides.Speed[i]
		}
		if per > 0 {
			scale *= per
		}
	}
	return in.SecondsPerTick * scale, in.BeatsPerTick * scale
}

func (c *Computer) advance(i int, in *Input) {
	env := in.Envelopes[i]
	s, b := c.steps(i, len(in.Envelopes), &env, in)
	c.clocks[i].seconds += s
	c.clocks[i].prevSeconds += s
	c.clocks[i].beats += b
}

// Value returns the envelope product for target/index interpolated at
// fraction t of the last tick.
func (c *Computer) Value(target song.EnvelopeTarget, index int, t float64) float64 {
	i := target.ComputeIndex(index)
	return c.Starts[i] + (c.Ends[i]-c.Starts[i])*t
}
