package sequencer

import (
	"github.com/cbegin/trackersynth/internal/song"
)

func (s *Synth) transitionFor(inst *song.Instrument) song.Transition {
	if inst.Has(song.EffectTransition) {
		return song.Transitions[clampInt(inst.Transition, 0, len(song.Transitions)-1)]
	}
	return song.Transitions[song.TransitionNormal]
}

func (s *Synth) chordFor(inst *song.Instrument) song.Chord {
	if inst.Has(song.EffectChord) {
		return song.Chords[clampInt(inst.Chord, 0, len(song.Chords)-1)]
	}
	return song.Chords[song.ChordSimultaneous]
}

// releaseTicksFor is how long a released tone of inst fades.
func releaseTicksFor(inst *song.Instrument) int {
	if inst.Type == song.InstrumentPickedString {
		return maxStringTicks
	}
	f := song.FadeOutSettingToTicks(inst.FadeOut)
	if f < 0 {
		f = -f
	}
	return max(f, 1)
}

// allocTone takes a tone from the pool, reclaiming the oldest released tone
// of ist when the instrument is at its limit.
func (s *Synth) allocTone(ist *InstrumentState) int {
	for len(ist.active)+len(ist.released) >= MaxTonesPerInstrument && len(ist.released) > 0 {
		s.pool.release(ist.released[0])
		ist.released = append(ist.released[:0], ist.released[1:]...)
	}
	i := s.pool.alloc()
	s.nextNoteID++
	s.pool.get(i).noteID = s.nextNoteID
	return i
}

func (s *Synth) releaseTone(ist *InstrumentState, i, ticks int) {
	t := s.pool.get(i)
	t.released = true
	t.ticksSinceReleased = 0
	t.releaseTicks = ticks
	t.atNoteStart = false
	if len(ist.active)+len(ist.released) >= MaxTonesPerInstrument && len(ist.released) > 0 {
		s.pool.release(ist.released[0])
		ist.released = append(ist.released[:0], ist.released[1:]...)
	}
	ist.released = append(ist.released, i)
}

// releaseActive moves every pattern tone of ist to the released list.
func (s *Synth) releaseActive(ist *InstrumentState) {
	ticks := releaseTicksFor(ist.instrument)
	for len(ist.active) > 0 {
		i := ist.active[len(ist.active)-1]
		ist.active = ist.active[:len(ist.active)-1]
		s.releaseTone(ist, i, ticks)
	}
}

func (s *Synth) releaseLive(ist *InstrumentState) {
	ticks := releaseTicksFor(ist.instrument)
	for len(ist.live) > 0 {
		i := ist.live[len(ist.live)-1]
		ist.live = ist.live[:len(ist.live)-1]
		s.releaseTone(ist, i, ticks)
	}
}

// freeAllTones returns every tone to the pool without a fade.
func (s *Synth) freeAllTones() {
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			for _, list := range [][]int{ist.active, ist.released, ist.live} {
				for _, i := range list {
					s.pool.release(i)
				}
			}
			ist.active = ist.active[:0]
			ist.released = ist.released[:0]
			ist.live = ist.live[:0]
			ist.earlyReleased = nil
		}
	}
}

// prevBarIndex and nextBarIndex follow the loop the scheduler will take.
func (s *Synth) prevBarIndex() int {
	if s.looped && s.bar == s.song.LoopStart {
		return s.song.LoopEnd() - 1
	}
	return s.bar - 1
}

func (s *Synth) nextBarIndex() int {
	if s.loopRepeatCount != 0 && s.bar+1 == s.song.LoopEnd() {
		return s.song.LoopStart
	}
	return s.bar + 1
}

func patternHasInstrument(p *song.Pattern, inst int) bool {
	for _, i := range p.Instruments {
		if i == inst {
			return true
		}
	}
	return false
}

func samePitches(a, b *song.Note) bool {
	if len(a.Pitches) != len(b.Pitches) {
		return false
	}
	for i := range a.Pitches {
		if a.Pitches[i] != b.Pitches[i] {
			return false
		}
	}
	return true
}

// determineTones matches the tones of every instrument of a pitch or noise
// channel to the note sounding at the current part.
func (s *Synth) determineTones(ci int) {
	ch := s.song.Channels[ci]
	cs := s.channels[ci]
	currentPart := s.currentPart()

	var pattern *song.Pattern
	var note, prevNote, nextNote *song.Note
	if !ch.Muted {
		pattern = s.song.PatternAt(ci, s.bar)
	}
	if pattern != nil {
		for i, n := range pattern.Notes {
			if n.End <= currentPart {
				continue
			}
			if n.Start <= currentPart {
				note = n
				if i > 0 && pattern.Notes[i-1].End == n.Start {
					prevNote = pattern.Notes[i-1]
				}
				if i+1 < len(pattern.Notes) && pattern.Notes[i+1].Start == n.End {
					nextNote = pattern.Notes[i+1]
				}
			}
			break
		}
	}

	for ii, ist := range cs.instruments {
		if note == nil || !patternHasInstrument(pattern, ii) {
			s.releaseActive(ist)
			ist.earlyReleased = nil
			continue
		}
		s.playNote(ci, ii, ist, note, prevNote, nextNote, currentPart)
	}
}

// adjacentNotes finds the neighbours of note in the surrounding bars when
// the note touches a bar line.
func (s *Synth) adjacentNotes(ci, ii int, note *song.Note, tr song.Transition, prev, next *song.Note) (p, n *song.Note, forceStart, forceEnd bool) {
	p, n = prev, next
	partsPerBar := s.song.PartsPerBar()
	if p == nil && note.Start == 0 {
		if pp := s.song.PatternAt(ci, s.prevBarIndex()); pp != nil && patternHasInstrument(pp, ii) && len(pp.Notes) > 0 {
			last := pp.Notes[len(pp.Notes)-1]
			if last.End == partsPerBar {
				switch {
				case note.ContinuesLastPattern:
					p, forceStart = last, true
				case tr.IncludeAdjacentPatterns && (!tr.Continues || samePitches(last, note)):
					p = last
				}
			}
		}
	}
	if n == nil && note.End == partsPerBar {
		if np := s.song.PatternAt(ci, s.nextBarIndex()); np != nil && patternHasInstrument(np, ii) && len(np.Notes) > 0 {
			first := np.Notes[0]
			if first.Start == 0 {
				switch {
				case first.ContinuesLastPattern:
					n, forceEnd = first, true
				case tr.IncludeAdjacentPatterns && (!tr.Continues || samePitches(note, first)):
					n = first
				}
			}
		}
	}
	return p, n, forceStart, forceEnd
}

func (s *Synth) playNote(ci, ii int, ist *InstrumentState, note, prevNote, nextNote *song.Note, currentPart int) {
	inst := ist.instrument
	tr := s.transitionFor(inst)
	chord := s.chordFor(inst)
	prevNote, nextNote, forceStart, forceEnd := s.adjacentNotes(ci, ii, note, tr, prevNote, nextNote)

	if ist.earlyReleased != nil && ist.earlyReleased != note {
		ist.earlyReleased = nil
	}
	if ist.earlyReleased == note {
		s.releaseActive(ist)
		return
	}

	atNoteStart := currentPart == note.Start && s.tick == 0
	seamlessStart := prevNote != nil && (tr.IsSeamless || forceStart)
	seamlessEnd := nextNote != nil && (tr.IsSeamless || forceEnd)

	want := len(note.Pitches)
	if chord.SingleTone {
		want = 1
	}
	want = min(want, song.MaxChordSize)
	started := 0
	for i := 0; i < want; i++ {
		if strumStart(note, chord, i) <= currentPart {
			started++
		}
	}

	if atNoteStart {
		if seamlessStart {
			s.rematchChord(ist, note, chord, started)
		} else {
			s.releaseActive(ist)
		}
	}
	for len(ist.active) > started {
		i := ist.active[len(ist.active)-1]
		ist.active = ist.active[:len(ist.active)-1]
		s.releaseTone(ist, i, releaseTicksFor(inst))
	}
	for len(ist.active) < started {
		ist.active = append(ist.active, s.allocTone(ist))
	}

	for i, idx := range ist.active {
		t := s.pool.get(idx)
		start := strumStart(note, chord, i)
		fresh := t.freshlyAllocated
		t.atNoteStart = currentPart == start && s.tick == 0
		if t.atNoteStart && !fresh && seamlessStart {
			t.continues = tr.Continues || forceStart
			if tr.RestartsPhase {
				t.resetPhases()
			}
			if !t.continues {
				t.noteSeconds = 0
				t.ticksSinceNote = 0
				t.vibratoSeconds = 0
			}
		} else if fresh {
			t.continues = false
		}
		if chord.SingleTone {
			t.pitchCount = copy(t.pitches[:], note.Pitches)
		} else {
			t.pitches[0] = note.Pitches[i]
			t.pitchCount = 1
		}
		t.chordSize = len(note.Pitches)
		t.note = note
		t.prevNote, t.nextNote = prevNote, nextNote
		t.prevPitch, t.nextPitch = t.pitches[0], t.pitches[0]
		if prevNote != nil && len(prevNote.Pitches) > 0 {
			t.prevPitch = prevNote.Pitches[min(i, len(prevNote.Pitches)-1)]
		}
		if nextNote != nil && len(nextNote.Pitches) > 0 {
			t.nextPitch = nextNote.Pitches[min(i, len(nextNote.Pitches)-1)]
		}
		t.noteStartPart = start
		t.forceContinueAtStart = forceStart
		t.forceContinueAtEnd = forceEnd
		t.slides = tr.Slides
		t.slideTicks = tr.SlideTicks
		t.live = false
	}

	// A negative fade-out ends the tones early so the release finishes with
	// the note, unless the next note picks the tones up seamlessly.
	if fade := song.FadeOutSettingToTicks(inst.FadeOut); fade < 0 && !seamlessEnd && inst.Type != song.InstrumentPickedString {
		ticksLeft := note.End*song.TicksPerPart - (currentPart*song.TicksPerPart + s.tick)
		if ticksLeft <= -fade {
			ticks := -fade
			for len(ist.active) > 0 {
				i := ist.active[len(ist.active)-1]
				ist.active = ist.active[:len(ist.active)-1]
				s.releaseTone(ist, i, ticks)
			}
			ist.earlyReleased = note
		}
	}
}

// strumStart is the part at which tone i of a chord begins.
func strumStart(note *song.Note, chord song.Chord, i int) int {
	if chord.StrumParts == 0 || chord.SingleTone {
		return note.Start
	}
	return min(note.Start+i*chord.StrumParts, note.End-1)
}

// rematchChord pairs the sounding tones with the first limit pitches of a
// seamlessly following note: exact pitch matches first, then the rest in
// order. Pitches left over get fresh tones and unmatched tones are
// released.
func (s *Synth) rematchChord(ist *InstrumentState, note *song.Note, chord song.Chord, limit int) {
	if chord.SingleTone || len(ist.active) <= 1 && limit <= 1 {
		return
	}
	var old [song.MaxChordSize]int
	n := copy(old[:], ist.active)
	var used [song.MaxChordSize]bool
	var assigned [song.MaxChordSize]int
	count := min(len(note.Pitches), song.MaxChordSize, limit)
	for i := 0; i < count; i++ {
		assigned[i] = -1
		for j := 0; j < n; j++ {
			if !used[j] && s.pool.get(old[j]).pitches[0] == note.Pitches[i] {
				used[j] = true
				assigned[i] = old[j]
				break
			}
		}
	}
	next := 0
	for i := 0; i < count; i++ {
		if assigned[i] >= 0 {
			continue
		}
		for next < n && used[next] {
			next++
		}
		if next < n {
			used[next] = true
			assigned[i] = old[next]
		}
	}
	ticks := releaseTicksFor(ist.instrument)
	ist.active = ist.active[:0]
	for j := 0; j < n; j++ {
		if !used[j] {
			s.releaseTone(ist, old[j], ticks)
		}
	}
	for i := 0; i < count; i++ {
		if assigned[i] < 0 {
			assigned[i] = s.allocTone(ist)
		}
		ist.active = append(ist.active, assigned[i])
	}
}

// applyLive starts or stops live notes queued by the UI.
func (s *Synth) applyLive() {
	if s.live == nil {
		return
	}
	for _, ev := range s.live.drain() {
		if ev.channel < 0 || ev.channel >= len(s.channels) {
			continue
		}
		cs := s.channels[ev.channel]
		if ev.instrument < 0 || ev.instrument >= len(cs.instruments) {
			continue
		}
		ist := cs.instruments[ev.instrument]
		s.releaseLive(ist)
		if !ev.on || ev.count == 0 || ist.instrument.Type == song.InstrumentMod {
			continue
		}
		chord := s.chordFor(ist.instrument)
		want := ev.count
		if chord.SingleTone {
			want = 1
		}
		for i := 0; i < want; i++ {
			idx := s.allocTone(ist)
			t := s.pool.get(idx)
			t.live = true
			if chord.SingleTone {
				t.pitchCount = copy(t.pitches[:], ev.pitches[:ev.count])
			} else {
				t.pitches[0] = ev.pitches[i]
				t.pitchCount = 1
			}
			t.chordSize = ev.count
			t.prevPitch, t.nextPitch = t.pitches[0], t.pitches[0]
			t.atNoteStart = true
			ist.live = append(ist.live, idx)
		}
	}
}
