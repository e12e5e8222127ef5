package sequencer

import (
	"sync"

	"github.com/cbegin/trackersynth/internal/song"
)

type liveEvent struct {
	on         bool
	channel    int
	instrument int
	pitches    [song.MaxChordSize]int
	count      int
}

// LiveInput queues notes played outside the song, such as from a keyboard.
// It is safe to call from any goroutine; the synth drains it at the start of
// each tick.
type LiveInput struct {
	mu      sync.Mutex
	pending []liveEvent
	spare   []liveEvent
}

// NoteOn starts pitches on the instrument, replacing any live notes it was
// already playing.
func (l *LiveInput) NoteOn(channel, instrument int, pitches ...int) {
	ev := liveEvent{on: true, channel: channel, instrument: instrument}
	ev.count = copy(ev.pitches[:], pitches)
	l.push(ev)
}

// NoteOff releases the instrument's live notes.
func (l *LiveInput) NoteOff(channel, instrument int) {
	l.push(liveEvent{channel: channel, instrument: instrument})
}

func (l *LiveInput) push(ev liveEvent) {
	l.mu.Lock()
	l.pending = append(l.pending, ev)
	l.mu.Unlock()
}

// drain hands the queued events to the audio thread. The returned slice is
// valid until the next call.
func (l *LiveInput) drain() []liveEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pending
	l.pending = l.spare[:0]
	l.spare = out
	return out
}
