package sequencer

import (
	"github.com/cbegin/trackersynth/internal/envelope"
	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/fm"
	"github.com/cbegin/trackersynth/internal/pickedstring"
	"github.com/cbegin/trackersynth/internal/song"
)

// MaxTonesPerInstrument bounds the active plus released tones of one
// instrument. When a release would exceed it the oldest released tone is
// cut off.
const MaxTonesPerInstrument = song.MaxChordSize * 2

// maxStringTicks caps how long a released picked string may ring before it
// is freed regardless of its energy.
const maxStringTicks = 2400

// Tone is one sounding voice. Tones live in the synth's pool and are
// referenced by index; a tone keeps its buffers across reuse.
type Tone struct {
	pitches    [song.MaxChordSize]int
	pitchCount int
	chordSize  int

	note, prevNote, nextNote *song.Note
	prevPitch, nextPitch     int
	noteStartPart            int
	atNoteStart              bool
	forceContinueAtStart     bool
	forceContinueAtEnd       bool
	continues                bool
	slides                   bool
	slideTicks               int

	live      bool
	liveTicks int

	released           bool
	ticksSinceReleased int
	releaseTicks       int
	freshlyAllocated   bool

	noteID         int
	ticksSinceNote int
	noteSeconds    float64
	vibratoSeconds float64
	lastInterval   float64
	lastSize       float64

	voices           int
	phases           [song.UnisonVoicesMax]float64
	phaseDeltas      [song.UnisonVoicesMax]float64
	phaseDeltaScales [song.UnisonVoicesMax]float64
	voiceSigns       [song.UnisonVoicesMax]float64
	expression       float64
	expressionDelta  float64

	// wave is the table the routine reads this tick.
	wave []float64

	pulseWidth, pulseWidthDelta float64

	noiseSample float64
	noiseFilter float64

	// Loop region playback, in raw table samples. loopEnd marks a one-shot
	// wave that has finished.
	loopMode             int
	loopStart, loopStop  float64
	loopPos              float64
	loopDir              float64
	loopStarted, loopEnd bool

	supersawDynamism, supersawDynamismDelta float64
	supersawShape, supersawShapeDelta       float64
	supersawDelay, supersawDelayDelta       float64
	supersawLine                            []float64
	supersawPos                             int

	routine routine
	program *fm.Program
	fm      fm.Voice
	strings [2]pickedstring.String
	params  pickedstring.Params

	noteFilter    filter.Chain
	hasNoteFilter bool
	env           *envelope.Computer
}

func (t *Tone) reset() {
	t.pitchCount = 0
	t.chordSize = 0
	t.note, t.prevNote, t.nextNote = nil, nil, nil
	t.atNoteStart = false
	t.forceContinueAtStart = false
	t.forceContinueAtEnd = false
	t.continues = false
	t.slides = false
	t.live = false
	t.liveTicks = 0
	t.released = false
	t.ticksSinceReleased = 0
	t.releaseTicks = 0
	t.freshlyAllocated = true
	t.ticksSinceNote = 0
	t.noteSeconds = 0
	t.vibratoSeconds = 0
	t.lastInterval = 0
	t.lastSize = song.NoteSizeMax
	t.resetPhases()
	t.noteFilter.Reset()
	t.hasNoteFilter = false
	if t.env == nil {
		t.env = envelope.NewComputer()
	} else {
		t.env.ResetAll()
	}
}

// resetPhases restarts every oscillator of the tone.
func (t *Tone) resetPhases() {
	t.phases = [song.UnisonVoicesMax]float64{}
	t.noiseSample = 0
	t.loopPos = 0
	t.loopDir = 1
	t.loopStarted = false
	t.loopEnd = false
	clear(t.supersawLine)
	t.supersawPos = 0
	for i := range t.phases {
		// Fixed spread so supersaw voices do not start in phase.
		t.phases[i] = float64(i) * 0.6180339887498949
		t.phases[i] -= float64(int(t.phases[i]))
	}
	t.fm.Reset()
	for i := range t.strings {
		t.strings[i].Reset()
	}
}

// tonePool is an arena of tones with a free list of indices.
type tonePool struct {
	tones []*Tone
	free  []int
}

func (p *tonePool) alloc() int {
	var i int
	if n := len(p.free); n > 0 {
		i = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.tones = append(p.tones, &Tone{})
		i = len(p.tones) - 1
	}
	p.tones[i].reset()
	return i
}

func (p *tonePool) release(i int) {
	p.free = append(p.free, i)
}

func (p *tonePool) get(i int) *Tone { return p.tones[i] }

// inUse counts tones that are allocated.
func (p *tonePool) inUse() int { return len(p.tones) - len(p.free) }
