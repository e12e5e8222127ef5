package sequencer

import (
	"github.com/cbegin/trackersynth/internal/envelope"
	"github.com/cbegin/trackersynth/internal/song"
)

// modValue is one automated parameter. current holds the value at the start
// of the tick being rendered and next the value at its end.
type modValue struct {
	active        bool
	current, next float64
}

func (v *modValue) set(start, end float64) {
	v.active = true
	v.current = start
	v.next = end
}

// ramp returns the automated value or fallback when nothing drives it.
func (v *modValue) ramp(fallback float64) (start, end float64) {
	if !v.active {
		return fallback, fallback
	}
	return v.current, v.next
}

const (
	filterNote = iota
	filterEQ
)

const (
	envModSpeed = iota
	envModLower
	envModUpper
)

// modTargets holds every automated value of one instrument, or of the song
// for the song-wide settings.
type modTargets struct {
	values   [song.ModSettingCount]modValue
	envelope [3][song.MaxEnvelopeCount]modValue
	filter   [2][song.FilterMaxPoints][2]modValue

	resetArp      bool
	resetEnvelope [song.MaxEnvelopeCount]bool
}

// advance moves the end-of-tick values into place for the next tick and
// drops one-shot triggers.
func (m *modTargets) advance() {
	for i := range m.values {
		m.values[i].current = m.values[i].next
	}
	for k := range m.envelope {
		for i := range m.envelope[k] {
			m.envelope[k][i].current = m.envelope[k][i].next
		}
	}
	for f := range m.filter {
		for p := range m.filter[f] {
			for a := range m.filter[f][p] {
				m.filter[f][p][a].current = m.filter[f][p][a].next
			}
		}
	}
	m.resetArp = false
	m.resetEnvelope = [song.MaxEnvelopeCount]bool{}
}

func (m *modTargets) apply(slot song.ModSlot, start, end float64) {
	info := slot.Setting.Info()
	switch {
	case info.Filter && slot.FilterTarget > 0:
		point, axis := song.FilterTargetPoint(slot.FilterTarget)
		if point >= song.FilterMaxPoints {
			return
		}
		which := filterEQ
		if slot.Setting == song.ModNoteFilter {
			which = filterNote
		}
		m.filter[which][point][axis].set(start, end)
	case info.PerEnvelope:
		i := slot.EnvelopeTarget
		if i < 0 || i >= song.MaxEnvelopeCount {
			return
		}
		switch slot.Setting {
		case song.ModIndividualEnvelopeSpeed:
			m.envelope[envModSpeed][i].set(start, end)
		case song.ModIndividualEnvelopeLower:
			m.envelope[envModLower][i].set(start, end)
		case song.ModIndividualEnvelopeUpper:
			m.envelope[envModUpper][i].set(start, end)
		}
	default:
		m.values[slot.Setting].set(start, end)
	}
}

func (m *modTargets) trigger(slot song.ModSlot) {
	switch slot.Setting {
	case song.ModResetArp:
		m.resetArp = true
	case song.ModResetEnvelope:
		if i := slot.EnvelopeTarget; i >= 0 && i < song.MaxEnvelopeCount {
			m.resetEnvelope[i] = true
		}
	}
}

// resolveFilter writes base, morphed and with point overrides applied, into
// dst. end selects the end-of-tick values.
func (m *modTargets) resolveFilter(dst, base *song.FilterSettings, subs *[song.FilterMorphCount]*song.FilterSettings, morph song.ModSetting, which int, end bool) {
	if v := &m.values[morph]; v.active {
		pos := v.current
		if end {
			pos = v.next
		}
		song.MorphSubFilters(dst, base, subs, pos)
	} else {
		dst.Points = append(dst.Points[:0], base.Points...)
	}
	for i := range dst.Points {
		if i >= song.FilterMaxPoints {
			break
		}
		for axis := 0; axis < 2; axis++ {
			v := &m.filter[which][i][axis]
			if !v.active {
				continue
			}
			x := v.current
			if end {
				x = v.next
			}
			if axis == 0 {
				dst.Points[i].Freq = x
			} else {
				dst.Points[i].Gain = x
			}
		}
	}
}

// envelopeOverrides converts per-envelope automation into the envelope
// computer's override block.
func (m *modTargets) envelopeOverrides(o *envelope.Overrides) {
	for i := 0; i < song.MaxEnvelopeCount; i++ {
		if v := &m.envelope[envModSpeed][i]; v.active {
			idx := clampInt(int(v.current+0.5), 0, song.EnvelopeSpeedCount-1)
			o.Speed[i] = song.EnvelopeSpeedScale[idx]
			o.HasSpeed[i] = true
		} else {
			o.HasSpeed[i] = false
		}
		if v := &m.envelope[envModLower][i]; v.active {
			o.Lower[i] = v.current / 10
			o.HasLower[i] = true
		} else {
			o.HasLower[i] = false
		}
		if v := &m.envelope[envModUpper][i]; v.active {
			o.Upper[i] = v.current / 10
			o.HasUpper[i] = true
		} else {
			o.HasUpper[i] = false
		}
	}
}

// modInstrument returns the mod instrument a mod channel plays in bar.
func (s *Synth) modInstrument(channel int, p *song.Pattern) *song.Instrument {
	ch := s.song.Channels[channel]
	idx := 0
	if len(p.Instruments) > 0 {
		idx = p.Instruments[0]
	}
	if idx < 0 || idx >= len(ch.Instruments) {
		return nil
	}
	inst := ch.Instruments[idx]
	if inst.Type != song.InstrumentMod {
		return nil
	}
	return inst
}

// targetsFor lists the automation blocks a slot writes to. Active
// instruments are those of the target channel's pattern in bar.
func (s *Synth) targetsFor(slot song.ModSlot, bar int, visit func(m *modTargets)) {
	if slot.Setting == song.ModNone {
		return
	}
	if slot.Setting.Info().ForSong {
		visit(&s.mods)
		return
	}
	if slot.Channel < 0 || slot.Channel >= len(s.channels) {
		return
	}
	cs := s.channels[slot.Channel]
	switch slot.Instrument {
	case song.ModAllInstruments:
		for _, ist := range cs.instruments {
			visit(&ist.mods)
		}
	case song.ModActiveInstruments:
		p := s.song.PatternAt(slot.Channel, bar)
		if p == nil {
			return
		}
		for _, i := range p.Instruments {
			if i >= 0 && i < len(cs.instruments) {
				visit(&cs.instruments[i].mods)
			}
		}
	default:
		if slot.Instrument >= 0 && slot.Instrument < len(cs.instruments) {
			visit(&cs.instruments[slot.Instrument].mods)
		}
	}
}

func (s *Synth) setMod(slot song.ModSlot, bar int, start, end float64) {
	s.targetsFor(slot, bar, func(m *modTargets) { m.apply(slot, start, end) })
}

func (s *Synth) fireTrigger(slot song.ModSlot) {
	if slot.Setting == song.ModNextBar {
		s.pendingSkip = true
		return
	}
	s.targetsFor(slot, s.bar, func(m *modTargets) { m.trigger(slot) })
}

func (s *Synth) advanceMods() {
	s.mods.advance()
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			ist.mods.advance()
		}
	}
}

// slotForPitch maps a mod note pitch to its slot; the highest slot is
// played by pitch zero.
func slotForPitch(pitch int) int { return song.ModCount - 1 - pitch }

// resolveMods applies the mod notes sounding at the current tick. Triggers
// fire on the first tick of their note.
func (s *Synth) resolveMods() {
	currentPart := s.currentPart()
	for ci, ch := range s.song.Channels {
		if ch.Kind != song.ChannelMod || ch.Muted {
			continue
		}
		p := s.song.PatternAt(ci, s.bar)
		if p == nil {
			continue
		}
		inst := s.modInstrument(ci, p)
		if inst == nil {
			continue
		}
		for _, n := range p.Notes {
			if n.Start > currentPart || n.End <= currentPart {
				continue
			}
			atStart := n.Start == currentPart && s.tick == 0
			rel := float64((currentPart-n.Start)*song.TicksPerPart + s.tick)
			for _, pitch := range n.Pitches {
				slotIndex := slotForPitch(pitch)
				if slotIndex < 0 || slotIndex >= song.ModCount {
					continue
				}
				slot := inst.Mods[slotIndex]
				info := slot.Setting.Info()
				if info.Trigger {
					if atStart {
						s.fireTrigger(slot)
					}
					continue
				}
				_, a := pinAt(n, rel/song.TicksPerPart)
				_, b := pinAt(n, (rel+1)/song.TicksPerPart)
				s.setMod(slot, s.bar, a+float64(info.Offset), b+float64(info.Offset))
			}
		}
	}
}

func (m *modTargets) clear() { *m = modTargets{} }

// computeLatestModValues rebuilds every automated value for the current
// position by scanning mod patterns backwards from it. It is used after a
// seek or loop jump, when the notes that set the values were skipped.
func (s *Synth) computeLatestModValues() {
	s.mods.clear()
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			ist.mods.clear()
		}
	}
	currentPart := s.currentPart()
	for ci, ch := range s.song.Channels {
		if ch.Kind != song.ChannelMod || ch.Muted {
			continue
		}
		for slotIndex := 0; slotIndex < song.ModCount; slotIndex++ {
			pitch := song.ModCount - 1 - slotIndex
		bars:
			for bar := min(s.bar, s.song.BarCount-1); bar >= 0; bar-- {
				p := s.song.PatternAt(ci, bar)
				if p == nil {
					continue
				}
				inst := s.modInstrument(ci, p)
				if inst == nil {
					continue
				}
				slot := inst.Mods[slotIndex]
				info := slot.Setting.Info()
				if slot.Setting == song.ModNone || info.Trigger {
					continue
				}
				for i := len(p.Notes) - 1; i >= 0; i-- {
					n := p.Notes[i]
					if !hasPitch(n, pitch) {
						continue
					}
					var v float64
					if bar == s.bar {
						if n.Start > currentPart {
							continue
						}
						if n.End > currentPart {
							rel := float64((currentPart-n.Start)*song.TicksPerPart + s.tick)
							_, v = pinAt(n, rel/song.TicksPerPart)
						} else {
							v = lastPinSize(n)
						}
					} else {
						v = lastPinSize(n)
					}
					v += float64(info.Offset)
					s.setMod(slot, bar, v, v)
					break bars
				}
			}
		}
	}
}

func hasPitch(n *song.Note, pitch int) bool {
	for _, p := range n.Pitches {
		if p == pitch {
			return true
		}
	}
	return false
}

func lastPinSize(n *song.Note) float64 {
	if len(n.Pins) == 0 {
		return song.NoteSizeMax
	}
	return float64(n.Pins[len(n.Pins)-1].Size)
}

// pinAt interpolates a note's bend interval and size at parts after the
// note start.
func pinAt(n *song.Note, parts float64) (interval, size float64) {
	pins := n.Pins
	if len(pins) == 0 {
		return 0, song.NoteSizeMax
	}
	if parts <= float64(pins[0].Time) {
		return float64(pins[0].Interval), float64(pins[0].Size)
	}
	for i := 1; i < len(pins); i++ {
		b := pins[i]
		if parts > float64(b.Time) {
			continue
		}
		a := pins[i-1]
		span := float64(b.Time - a.Time)
		if span <= 0 {
			return float64(b.Interval), float64(b.Size)
		}
		r := (parts - float64(a.Time)) / span
		return float64(a.Interval) + float64(b.Interval-a.Interval)*r,
			float64(a.Size) + float64(b.Size-a.Size)*r
	}
	last := pins[len(pins)-1]
	return float64(last.Interval), float64(last.Size)
}
