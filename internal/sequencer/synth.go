// Package sequencer plays a song snapshot. It walks bars, beats, parts and
// ticks, keeps a pool of tones matched to the notes under the playhead,
// resolves mod channel automation and mixes every instrument's effect chain
// into a stereo buffer.
package sequencer

import (
	"errors"
	"fmt"

	"github.com/cbegin/trackersynth/internal/effects"
	"github.com/cbegin/trackersynth/internal/envelope"
	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/fm"
	"github.com/cbegin/trackersynth/internal/song"
	"github.com/cbegin/trackersynth/internal/wavetable"
)

// ErrNoSong is returned when rendering is requested before a song is set.
var ErrNoSong = errors.New("sequencer: no song loaded")

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

type Options struct {
	// LoopRepeatCount is how many extra passes the loop region gets before
	// playback continues past it. -1 loops forever.
	LoopRepeatCount int
	OnEvent         func(EventKind)
}

// Position is the playhead.
type Position struct {
	Bar, Beat, Part, Tick int
}

type channelState struct {
	instruments []*InstrumentState
}

// Synth renders a song. All methods except those of LiveInput must be
// called from one goroutine.
type Synth struct {
	song       *song.Song
	sampleRate float64
	onEvent    func(EventKind)

	loopRepeatCount int
	initialRepeats  int
	looped          bool

	bar, beat, part, tick int
	tickSampleCountdown   int
	tickFrac              float64
	samplesPerTick        float64
	isAtStartOfTick       bool

	playing     bool
	ended       bool
	endedFired  bool
	pendingSkip bool

	channels []*channelState
	pool     tonePool
	waves    *wavetable.Cache
	programs *fm.Cache
	mods     modTargets

	songEQ          effects.SongEQ
	songEQSettings  [2]song.FilterSettings
	songVolume      float64
	songVolumeDelta float64
	limiter         *effects.Limiter

	live       *LiveInput
	nextNoteID int

	mixL, mixR    []float64
	mono, toneBuf []float64
	outL, outR    []float32

	envInput   envelope.Input
	coefStarts [song.FilterMaxPoints]filter.Coefficients
	coefEnds   [song.FilterMaxPoints]filter.Coefficients
	coefTypes  [song.FilterMaxPoints]song.FilterType

	inputPeak, outputPeak float64
}

func New(sng *song.Song, sampleRate int) *Synth {
	return NewWithOptions(sng, sampleRate, Options{})
}

func NewWithOptions(sng *song.Song, sampleRate int, opts Options) *Synth {
	s := &Synth{
		sampleRate:      float64(sampleRate),
		onEvent:         opts.OnEvent,
		loopRepeatCount: opts.LoopRepeatCount,
		initialRepeats:  opts.LoopRepeatCount,
		waves:           wavetable.NewCache(),
		programs:        fm.NewCache(),
		limiter:         effects.NewLimiter(),
		live:            &LiveInput{},
	}
	s.SetSong(sng)
	return s
}

// SetSong replaces the snapshot and rewinds to the first bar. The song is
// normalized in place.
func (s *Synth) SetSong(sng *song.Song) {
	if s.song != nil {
		s.freeAllTones()
	}
	s.song = sng
	s.channels = s.channels[:0]
	if sng == nil {
		s.playing = false
		return
	}
	sng.Normalize()
	for ci, ch := range sng.Channels {
		cs := &channelState{}
		for ii, inst := range ch.Instruments {
			cs.instruments = append(cs.instruments, newInstrumentState(ci, ii, inst))
		}
		s.channels = append(s.channels, cs)
	}
	s.limiter.Configure(sng, s.sampleRate)
	s.limiter.Reset()
	s.songEQ.Reset()
	s.loopRepeatCount = s.initialRepeats
	s.rewind(0)
}

func (s *Synth) rewind(bar int) {
	s.bar, s.beat, s.part, s.tick = bar, 0, 0, 0
	s.tickSampleCountdown = 0
	s.tickFrac = 0
	s.isAtStartOfTick = true
	s.looped = false
	s.pendingSkip = false
	s.playing = true
	s.ended = false
	s.endedFired = false
	s.computeLatestModValues()
}

func (s *Synth) currentPart() int {
	return s.beat*s.song.PartsPerBeat + s.part
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Position returns the playhead.
func (s *Synth) Position() Position {
	return Position{Bar: s.bar, Beat: s.beat, Part: s.part, Tick: s.tick}
}

// InputPeak is the loudest mixed sample of the last buffer before the
// limiter.
func (s *Synth) InputPeak() float64 { return s.inputPeak }

// OutputPeak is the loudest sample of the last buffer after the limiter.
func (s *Synth) OutputPeak() float64 { return s.outputPeak }

// Playing reports whether the song is still advancing.
func (s *Synth) Playing() bool { return s.playing }

// Live returns the queue for notes played outside the song.
func (s *Synth) Live() *LiveInput { return s.live }

// ToneCount is the number of tones currently allocated.
func (s *Synth) ToneCount() int { return s.pool.inUse() }

// Seek moves the playhead to the start of bar. Sounding notes are released
// and automation is rebuilt for the new position.
func (s *Synth) Seek(bar int) {
	if s.song == nil {
		return
	}
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			s.releaseActive(ist)
			ist.earlyReleased = nil
		}
	}
	s.rewind(clampInt(bar, 0, s.song.BarCount-1))
}

// SkipToNextBar jumps to the start of the next bar at the end of the
// current tick.
func (s *Synth) SkipToNextBar() { s.pendingSkip = true }

func (s *Synth) emit(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(kind)
	}
}

func (s *Synth) ensureScratch(n int) {
	if len(s.mixL) >= n {
		return
	}
	s.mixL = make([]float64, n)
	s.mixR = make([]float64, n)
	s.mono = make([]float64, n)
	s.toneBuf = make([]float64, n)
}

// Synthesize renders n stereo samples into outL and outR. With playSong
// false the playhead holds still and only live notes and effect tails
// sound.
func (s *Synth) Synthesize(outL, outR []float32, n int, playSong bool) error {
	if s.song == nil {
		clear(outL[:n])
		clear(outR[:n])
		return ErrNoSong
	}
	s.ensureScratch(n)
	clear(s.mixL[:n])
	clear(s.mixR[:n])
	advance := playSong && s.playing

	pos := 0
	for pos < n {
		if s.isAtStartOfTick {
			if err := s.startTick(advance); err != nil {
				s.finish(outL, outR, pos)
				clear(outL[pos:n])
				clear(outR[pos:n])
				s.stop()
				return err
			}
			s.isAtStartOfTick = false
		}
		run := min(s.tickSampleCountdown, n-pos)
		s.renderRun(pos, run)
		pos += run
		s.tickSampleCountdown -= run
		if s.tickSampleCountdown <= 0 {
			s.endTick(advance)
			s.isAtStartOfTick = true
			advance = advance && s.playing
		}
	}
	s.finish(outL, outR, n)

	if s.ended && !s.endedFired && !s.anyAwake() {
		s.endedFired = true
		s.emit(EventPlaybackEnded)
	}
	return nil
}

// Process renders len(dst)/2 interleaved stereo frames.
func (s *Synth) Process(dst []float32) error {
	n := len(dst) / 2
	if len(s.outL) < n {
		s.outL = make([]float32, n)
		s.outR = make([]float32, n)
	}
	err := s.Synthesize(s.outL, s.outR, n, true)
	for i := 0; i < n; i++ {
		dst[i*2] = s.outL[i]
		dst[i*2+1] = s.outR[i]
	}
	return err
}

// stop frees every tone and halts playback after a render failure.
func (s *Synth) stop() {
	s.freeAllTones()
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			ist.Deactivate()
		}
	}
	s.playing = false
	s.ended = true
	s.endedFired = true
}

func (s *Synth) anyAwake() bool {
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			if ist.awake || ist.toneCount() > 0 {
				return true
			}
		}
	}
	return false
}

// finish limits the first n mixed samples and converts them to float32.
func (s *Synth) finish(outL, outR []float32, n int) {
	s.inputPeak, s.outputPeak = s.limiter.Process(s.mixL, s.mixR, n)
	for i := 0; i < n; i++ {
		outL[i] = float32(s.mixL[i])
		outR[i] = float32(s.mixR[i])
	}
}

func (s *Synth) startTick(advance bool) error {
	s.applyLive()
	if advance {
		s.advanceMods()
		s.resolveMods()
		for _, cs := range s.channels {
			for _, ist := range cs.instruments {
				if ist.mods.resetArp {
					ist.arpTime = 0
				}
			}
		}
	}

	tempo := s.song.Tempo
	if v := &s.mods.values[song.ModTempo]; v.active {
		tempo = v.current
	}
	s.samplesPerTick = s.song.SamplesPerTick(s.sampleRate, tempo)
	s.tickFrac += s.samplesPerTick
	run := int(s.tickFrac)
	s.tickFrac -= float64(run)
	if run < 1 {
		run = 1
	}
	s.tickSampleCountdown = run

	for ci, ch := range s.song.Channels {
		if ch.Kind == song.ChannelMod {
			continue
		}
		if advance {
			s.determineTones(ci)
			continue
		}
		for _, ist := range s.channels[ci].instruments {
			s.releaseActive(ist)
		}
	}

	for ci, cs := range s.channels {
		for _, ist := range cs.instruments {
			if ist.toneCount() > 0 {
				ist.awake = true
				ist.flushedSamples = 0
			}
			if !ist.awake {
				continue
			}
			ist.resolveFilters()
			for _, list := range [3][]int{ist.active, ist.live, ist.released} {
				for _, idx := range list {
					if err := s.computeTone(ci, ist, s.pool.get(idx), run); err != nil {
						return fmt.Errorf("sequencer: %v: %w", s.Position(), err)
					}
				}
			}
			ist.Compute(s, run)
		}
	}

	s.loadSongEQ(run)
	volStart, volEnd := 1.0, 1.0
	if v := &s.mods.values[song.ModSongVolume]; v.active {
		volStart, volEnd = v.current/100, v.next/100
	}
	s.songVolume = volStart
	s.songVolumeDelta = (volEnd - volStart) / float64(run)
	return nil
}

func (s *Synth) loadSongEQ(run int) {
	if len(s.song.EQFilter.Points) == 0 && !s.mods.values[song.ModSongEQ].active {
		s.songEQ.Load(nil, nil, s.sampleRate, run)
		return
	}
	for i, end := range [2]bool{false, true} {
		s.mods.resolveFilter(&s.songEQSettings[i], &s.song.EQFilter, &s.song.EQSubFilters, song.ModSongEQ, filterEQ, end)
	}
	s.songEQ.Load(&s.songEQSettings[0], &s.songEQSettings[1], s.sampleRate, run)
}

// renderRun renders run samples of every awake instrument into the mix at
// pos.
func (s *Synth) renderRun(pos, run int) {
	mixL := s.mixL[pos : pos+run]
	mixR := s.mixR[pos : pos+run]
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			if !ist.awake {
				continue
			}
			mono := s.mono[:run]
			clear(mono)
			s.renderTones(ist.active, mono, run)
			s.renderTones(ist.live, mono, run)
			s.renderTones(ist.released, mono, run)
			ist.effects.Process(mono, mixL, mixR, run)
			if ist.toneCount() == 0 {
				ist.flushedSamples += run
				if ist.flushedSamples >= ist.effects.FlushSamples() {
					ist.Deactivate()
				}
			}
		}
	}
	v := s.songVolume
	for i := 0; i < run; i++ {
		mixL[i] *= v
		mixR[i] *= v
		v += s.songVolumeDelta
	}
	s.songVolume = v
	s.songEQ.Process(mixL, mixR, run)
}

func (s *Synth) renderTones(list []int, mono []float64, run int) {
	buf := s.toneBuf[:run]
	for _, idx := range list {
		t := s.pool.get(idx)
		clear(buf)
		t.routine(t, buf, run)
		if t.hasNoteFilter {
			for i, x := range buf {
				buf[i] = t.noteFilter.Apply(x)
			}
			t.noteFilter.Sanitize()
		}
		for i, x := range buf {
			mono[i] += x
		}
	}
}

func (s *Synth) endTick(advance bool) {
	for _, cs := range s.channels {
		for _, ist := range cs.instruments {
			s.ageReleased(ist)
			if ist.toneCount() > 0 {
				ist.advanceArpeggio(&s.pool)
			}
		}
	}
	if !advance {
		return
	}

	s.tick++
	if s.tick >= song.TicksPerPart {
		s.tick = 0
		s.part++
		if s.part >= s.song.PartsPerBeat {
			s.part = 0
			s.beat++
			if s.beat >= s.song.BeatsPerBar {
				s.beat = 0
				s.advanceBar()
			}
		}
	}
	if s.pendingSkip {
		s.pendingSkip = false
		if s.beat != 0 || s.part != 0 || s.tick != 0 {
			s.beat, s.part, s.tick = 0, 0, 0
			s.advanceBar()
		}
	}
}

// ageReleased counts down released tones and frees the finished ones.
func (s *Synth) ageReleased(ist *InstrumentState) {
	kept := ist.released[:0]
	for _, idx := range ist.released {
		t := s.pool.get(idx)
		t.ticksSinceReleased++
		done := t.ticksSinceReleased >= t.releaseTicks
		if ist.instrument.Type == song.InstrumentPickedString {
			silent := true
			for v := 0; v < t.voices && v < len(t.strings); v++ {
				silent = silent && t.strings[v].Silent()
			}
			done = done || silent
		}
		if done {
			s.pool.release(idx)
			continue
		}
		kept = append(kept, idx)
	}
	ist.released = kept
}

func (s *Synth) advanceBar() {
	s.bar++
	if s.loopRepeatCount != 0 && s.bar == s.song.LoopEnd() {
		s.bar = s.song.LoopStart
		if s.loopRepeatCount > 0 {
			s.loopRepeatCount--
		}
		s.looped = true
		s.emit(EventLoopCompleted)
		s.computeLatestModValues()
		return
	}
	if s.bar >= s.song.BarCount {
		s.bar = s.song.BarCount - 1
		s.beat, s.part, s.tick = s.song.BeatsPerBar-1, s.song.PartsPerBeat-1, song.TicksPerPart-1
		s.playing = false
		s.ended = true
		for _, cs := range s.channels {
			for _, ist := range cs.instruments {
				s.releaseActive(ist)
				ist.earlyReleased = nil
			}
		}
	}
}

// String formats the playhead for error messages.
func (p Position) String() string {
	return fmt.Sprintf("bar %d beat %d part %d tick %d", p.Bar, p.Beat, p.Part, p.Tick)
}
