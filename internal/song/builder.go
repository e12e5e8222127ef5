package song

// NewNote returns a note with a flat size envelope from start to end.
func NewNote(pitches []int, start, end, size int) *Note {
	p := make([]int, len(pitches))
	copy(p, pitches)
	return &Note{
		Pitches: p,
		Start:   start,
		End:     end,
		Pins: []NotePin{
			{Interval: 0, Time: 0, Size: size},
			{Interval: 0, Time: end - start, Size: size},
		},
	}
}

// NewRamp returns a single-pitch note whose size moves linearly from
// fromSize to toSize.
func NewRamp(pitch, start, end, fromSize, toSize int) *Note {
	n := NewNote([]int{pitch}, start, end, fromSize)
	n.Pins[1].Size = toSize
	return n
}

// InsertPin adds a pin in time order, replacing any pin at the same time.
func (n *Note) InsertPin(time, interval, size int) {
	pin := NotePin{Interval: interval, Time: time, Size: size}
	for i := range n.Pins {
		if n.Pins[i].Time == time {
			n.Pins[i] = pin
			return
		}
		if n.Pins[i].Time > time {
			n.Pins = append(n.Pins, NotePin{})
			copy(n.Pins[i+1:], n.Pins[i:])
			n.Pins[i] = pin
			return
		}
	}
	n.Pins = append(n.Pins, pin)
}

// AddChannel appends a channel holding the given instruments and sized for
// the song's bar count.
func (s *Song) AddChannel(kind ChannelKind, instruments ...*Instrument) *Channel {
	ch := &Channel{
		Kind:        kind,
		Instruments: instruments,
		Bars:        make([]int, s.BarCount),
	}
	if kind == ChannelPitch {
		ch.Octave = 3
	}
	s.Channels = append(s.Channels, ch)
	return ch
}

// SetPattern creates a pattern for instrument 0 holding notes and places it
// at each of bars.
func (c *Channel) SetPattern(notes []*Note, bars ...int) *Pattern {
	p := &Pattern{Notes: notes, Instruments: []int{0}}
	c.Patterns = append(c.Patterns, p)
	for _, bar := range bars {
		for bar >= len(c.Bars) {
			c.Bars = append(c.Bars, 0)
		}
		c.Bars[bar] = len(c.Patterns)
	}
	return p
}

// Demo builds a short song exercising several instrument types. It is used
// by the command-line tools and by rendering tests.
func Demo() *Song {
	s := New()
	s.BarCount = 4
	s.LoopLength = 4
	s.Tempo = 120

	lead := NewInstrument(InstrumentChip)
	lead.ChipWave = 5
	lead.Enable(EffectNoteFilter, EffectReverb, EffectPanning, EffectChorus)
	lead.NoteFilter.Add(FilterLowPass, 24, FilterGainCenter)
	lead.Envelopes = append(lead.Envelopes, NewEnvelope(EnvTargetNoteFilterAllFreqs, 0, EnvelopeTwang, 8))
	lead.Pan = 40

	bass := NewInstrument(InstrumentFM)
	bass.Algorithm = 0
	bass.Operators[1].Amplitude = 9
	bass.Operators[1].Frequency = 2
	bass.FeedbackAmplitude = 3
	bass.Enable(EffectDistortion)
	bass.Distortion = 1

	pad := NewInstrument(InstrumentSupersaw)
	pad.Volume = -8
	pad.Enable(EffectEcho, EffectReverb)
	pad.Reverb = 16

	drums := NewInstrument(InstrumentNoise)
	drums.ChipNoise = NoiseWhite
	drums.Envelopes = append(drums.Envelopes, NewEnvelope(EnvTargetNoteVolume, 0, EnvelopeDecay, 10))

	ppb := s.PartsPerBeat
	melody := []int{12, 16, 19, 24, 19, 16, 14, 11}
	var leadNotes []*Note
	for i, p := range melody {
		leadNotes = append(leadNotes, NewNote([]int{p}, i*ppb, (i+1)*ppb, 3))
	}
	s.AddChannel(ChannelPitch, lead).SetPattern(leadNotes, 0, 1, 2, 3)

	bassCh := s.AddChannel(ChannelPitch, bass)
	bassCh.Octave = 2
	bassCh.SetPattern([]*Note{
		NewNote([]int{0}, 0, 4*ppb, 3),
		NewNote([]int{5}, 4*ppb, 8*ppb, 3),
	}, 0, 1, 2, 3)

	s.AddChannel(ChannelPitch, pad).SetPattern([]*Note{
		NewNote([]int{12, 16, 19}, 0, 8*ppb, 2),
	}, 2, 3)

	var hits []*Note
	for beat := 0; beat < 8; beat++ {
		hits = append(hits, NewNote([]int{4 + beat%2*4}, beat*ppb, beat*ppb+ppb/2, 3))
	}
	s.AddChannel(ChannelNoise, drums).SetPattern(hits, 1, 2, 3)
	return s
}
