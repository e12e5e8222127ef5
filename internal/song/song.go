package song

import "math"

// ChannelKind selects how the scheduler interprets a channel's notes.
type ChannelKind int

const (
	ChannelPitch ChannelKind = iota
	ChannelNoise
	ChannelMod
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelPitch:
		return "pitch"
	case ChannelNoise:
		return "noise"
	case ChannelMod:
		return "mod"
	}
	return "unknown"
}

// NotePin is one breakpoint of a note's bend/size envelope. Time is in parts
// relative to the note start; Interval is in semitones relative to the note's
// pitches. Size is the volume for pitched notes and the raw automation value
// for mod notes.
type NotePin struct {
	Interval int
	Time     int
	Size     int
}

// Note is a chord of pitches sounding from Start to End (parts within the
// bar). Pins are ordered by Time; the first pin has Time 0 and the last has
// Time End-Start.
type Note struct {
	Pitches              []int
	Start                int
	End                  int
	Pins                 []NotePin
	ContinuesLastPattern bool
}

// Length returns the note's duration in parts.
func (n *Note) Length() int { return n.End - n.Start }

// LastInterval returns the bend interval of the final pin.
func (n *Note) LastInterval() int {
	if len(n.Pins) == 0 {
		return 0
	}
	return n.Pins[len(n.Pins)-1].Interval
}

// Pattern holds the notes of one bar on one channel and the instruments that
// play them.
type Pattern struct {
	Notes       []*Note
	Instruments []int
}

// Channel is one track of the song.
type Channel struct {
	Kind        ChannelKind
	Octave      int
	Instruments []*Instrument
	Patterns    []*Pattern
	// Bars maps a bar index to a 1-based pattern index; 0 means silence.
	Bars  []int
	Muted bool
}

// Song is the immutable snapshot consumed by the synthesizer. Callers that
// edit a song while it plays must do so through the live-input queue or swap
// in a fresh snapshot between buffers.
type Song struct {
	Tempo        float64
	BeatsPerBar  int
	PartsPerBeat int
	BarCount     int
	LoopStart    int
	LoopLength   int
	Key          int
	Rhythm       int

	MasterGain           float64
	CompressionThreshold float64
	CompressionRatio     float64
	LimitThreshold       float64
	LimitRatio           float64
	LimitRise            float64
	LimitDecay           float64

	EQFilter     FilterSettings
	EQSubFilters [FilterMorphCount]*FilterSettings

	Channels []*Channel
}

// PartsPerBar returns the bar length in parts.
func (s *Song) PartsPerBar() int { return s.BeatsPerBar * s.PartsPerBeat }

// TicksPerBar returns the bar length in ticks.
func (s *Song) TicksPerBar() int { return s.PartsPerBar() * TicksPerPart }

// PatternAt returns the pattern playing on channel during bar, or nil.
func (s *Song) PatternAt(channel, bar int) *Pattern {
	if channel < 0 || channel >= len(s.Channels) {
		return nil
	}
	ch := s.Channels[channel]
	if bar < 0 || bar >= s.BarCount || bar >= len(ch.Bars) {
		return nil
	}
	idx := ch.Bars[bar]
	if idx < 1 || idx > len(ch.Patterns) {
		return nil
	}
	return ch.Patterns[idx-1]
}

// ModChannelCount counts automation channels.
func (s *Song) ModChannelCount() int {
	n := 0
	for _, ch := range s.Channels {
		if ch.Kind == ChannelMod {
			n++
		}
	}
	return n
}

// LoopEnd returns the first bar past the loop region.
func (s *Song) LoopEnd() int { return s.LoopStart + s.LoopLength }

// BasePitch returns the pitch offset for channel notes given the song key
// and the channel octave.
func (s *Song) BasePitch(channel int) int {
	ch := s.Channels[channel]
	if ch.Kind != ChannelPitch {
		return 0
	}
	return Keys[clampInt(s.Key, 0, len(Keys)-1)].BasePitch + ch.Octave*PitchesPerOctave
}

// SamplesPerTick converts the song tempo to the length of one tick.
func (s *Song) SamplesPerTick(sampleRate float64, tempo float64) float64 {
	beatsPerMinute := clampFloat(tempo, TempoMin, TempoMax)
	beatsPerSecond := beatsPerMinute / 60
	partsPerSecond := beatsPerSecond * float64(s.PartsPerBeat)
	ticksPerSecond := partsPerSecond * TicksPerPart
	return sampleRate / ticksPerSecond
}

// Normalize clamps song-level fields into their valid ranges so the
// synthesizer can index tables without further checks.
func (s *Song) Normalize() {
	if s.PartsPerBeat <= 0 {
		s.PartsPerBeat = DefaultPartsPerBeat
	}
	if s.BeatsPerBar <= 0 {
		s.BeatsPerBar = DefaultBeatsPerBar
	}
	s.Tempo = clampFloat(s.Tempo, TempoMin, TempoMax)
	if s.BarCount < 1 {
		s.BarCount = 1
	}
	s.LoopStart = clampInt(s.LoopStart, 0, s.BarCount-1)
	s.LoopLength = clampInt(s.LoopLength, 1, s.BarCount-s.LoopStart)
	s.Key = clampInt(s.Key, 0, len(Keys)-1)
	s.Rhythm = clampInt(s.Rhythm, 0, len(Rhythms)-1)
	if math.IsNaN(s.MasterGain) || s.MasterGain < 0 {
		s.MasterGain = 0
	}
	if s.CompressionRatio <= 0 {
		s.CompressionRatio = 1
	}
	if s.LimitRatio <= 0 {
		s.LimitRatio = 1
	}
	if s.LimitThreshold < s.CompressionThreshold {
		s.LimitThreshold = s.CompressionThreshold
	}
	s.EQFilter.Normalize()
	for _, ch := range s.Channels {
		for _, inst := range ch.Instruments {
			inst.Normalize()
		}
	}
}

// New returns a song with the engine's default timing and a transparent
// limiter.
func New() *Song {
	return &Song{
		Tempo:                150,
		BeatsPerBar:          DefaultBeatsPerBar,
		PartsPerBeat:         DefaultPartsPerBeat,
		BarCount:             16,
		LoopStart:            0,
		LoopLength:           4,
		Rhythm:               1,
		MasterGain:           1,
		CompressionThreshold: 1,
		CompressionRatio:     1,
		LimitThreshold:       1,
		LimitRatio:           1,
		LimitRise:            4000,
		LimitDecay:           4,
	}
}
