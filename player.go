// Package trackersynth plays and renders tracker songs: patterns of notes
// on pitch, noise and mod channels, voiced by chip, FM, noise, spectrum,
// drumset, harmonics, PWM, picked string and supersaw instruments.
package trackersynth

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/trackersynth/internal/audio"
	intfx "github.com/cbegin/trackersynth/internal/effects"
	intseq "github.com/cbegin/trackersynth/internal/sequencer"
	"github.com/cbegin/trackersynth/internal/song"
)

// PlaybackEvent is delivered on the channel returned by Watch.
type PlaybackEvent struct {
	Kind int
}

const (
	EventLoopCompleted = int(intseq.EventLoopCompleted)
	EventPlaybackEnded = int(intseq.EventPlaybackEnded)
)

const DefaultSampleRate = 48000

// outputLatency is the device buffer requested from the audio backend.
const outputLatency = 40 * time.Millisecond

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleRate   int
	loopPlayback bool
	volume       float64
	sampleTap    func(left, right []float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{sampleRate: DefaultSampleRate, loopPlayback: true, volume: 1}
}

func WithSampleRate(rate int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleRate = rate
	}
}

// WithLoopPlayback repeats the song's loop region forever when enabled;
// otherwise the song plays through once.
func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithVolume sets the initial master volume. 1.0 is unity.
func WithVolume(volume float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.volume = max(volume, 0)
	}
}

// WithSampleTap observes every block after volume and EQ. tap is called
// from the audio goroutine and must not retain the slices.
func WithSampleTap(tap func(left, right []float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player streams a song to the audio device.
type Player struct {
	mu           sync.Mutex
	sampleRate   int
	loopPlayback bool
	sampleTap    func(left, right []float32)
	volume       atomic.Uint64
	masterEQ     *intfx.EQ5Band
	source       *songSource
	output       *intaudio.Output
	done         chan struct{}
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

// songSource renders a Synth for the audio device and applies the
// listener-side volume and EQ. The mutex serializes control calls with the
// audio thread.
type songSource struct {
	mu         sync.Mutex
	synth      *intseq.Synth
	songPaused bool
	finished   atomic.Bool
	volume     *atomic.Uint64
	masterEQ   *intfx.EQ5Band
	sampleTap  func(left, right []float32)
	onError    func()
	failure    atomic.Pointer[error]
}

// Render implements intaudio.Source.
func (s *songSource) Render(left, right []float32) error {
	n := min(len(left), len(right))
	left, right = left[:n], right[:n]

	s.mu.Lock()
	err := s.synth.Synthesize(left, right, n, !s.songPaused)
	s.mu.Unlock()

	s.masterEQ.ProcessBlock(left, right)
	vol := float32(math.Float64frombits(s.volume.Load()))
	if vol != 1 {
		for i := range left {
			left[i] *= vol
			right[i] *= vol
		}
	}
	if s.sampleTap != nil {
		s.sampleTap(left, right)
	}
	if err != nil && s.failure.CompareAndSwap(nil, &err) {
		s.finished.Store(true)
		if s.onError != nil {
			s.onError()
		}
	}
	return err
}

func (s *songSource) Finished() bool {
	return s.finished.Load()
}

func (s *songSource) with(fn func(*intseq.Synth)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.synth)
}

func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	p := &Player{
		sampleRate:   cfg.sampleRate,
		loopPlayback: cfg.loopPlayback,
		sampleTap:    cfg.sampleTap,
		masterEQ:     intfx.NewEQ5Band(cfg.sampleRate),
	}
	p.volume.Store(math.Float64bits(cfg.volume))
	return p, nil
}

// Play starts sng from its first bar, replacing any current playback. The
// song is normalized in place and must not be modified while it plays.
func (p *Player) Play(sng *song.Song) error {
	if sng == nil {
		return intseq.ErrNoSong
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	src := &songSource{
		volume:    &p.volume,
		masterEQ:  p.masterEQ,
		sampleTap: p.sampleTap,
	}
	repeats := 0
	if p.loopPlayback {
		repeats = -1
	}
	// A render failure ends playback like the song ending; Err reports it.
	src.onError = func() {
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
		p.signalDone()
	}
	src.synth = intseq.NewWithOptions(sng, p.sampleRate, intseq.Options{
		LoopRepeatCount: repeats,
		OnEvent: func(kind intseq.EventKind) {
			if kind == intseq.EventPlaybackEnded {
				src.finished.Store(true)
			}
			p.sendEvent(PlaybackEvent{Kind: int(kind)})
			if kind == intseq.EventPlaybackEnded {
				p.signalDone()
			}
		},
	})
	p.masterEQ.Reset()

	out, err := intaudio.Open(p.sampleRate, src, outputLatency)
	if err != nil {
		return err
	}
	if p.output != nil {
		_ = p.output.Close()
	}
	p.output = out
	p.source = src
	out.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

// signalDone runs on the audio thread while the source lock is held, so it
// must not wait on control calls.
func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// Pause suspends the device. The song keeps its place.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output != nil {
		p.output.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output != nil {
		p.output.Play()
	}
}

// Stop closes the output and reports EventPlaybackEnded to the watcher.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.output == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.output.Close()
	p.output = nil
	p.source = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait returns once the song has ended, been stopped or been replaced by
// another Play. A looping song only ends through Stop.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch replaces the event channel. Sends never block the audio goroutine,
// so events are dropped once eight are pending.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// Err returns the render error that stopped playback, if any.
func (p *Player) Err() error {
	src := p.current()
	if src == nil {
		return nil
	}
	if err := src.failure.Load(); err != nil {
		return *err
	}
	return nil
}

func (p *Player) current() *songSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// NoteOn plays pitches on an instrument outside the song, for keyboard
// input. It replaces the instrument's previous live notes.
func (p *Player) NoteOn(channel, instrument int, pitches ...int) {
	if src := p.current(); src != nil {
		src.synth.Live().NoteOn(channel, instrument, pitches...)
	}
}

// NoteOff releases the instrument's live notes.
func (p *Player) NoteOff(channel, instrument int) {
	if src := p.current(); src != nil {
		src.synth.Live().NoteOff(channel, instrument)
	}
}

// SetSongPaused holds the song's playhead while live notes keep sounding.
// Pattern notes are released while paused.
func (p *Player) SetSongPaused(paused bool) {
	if src := p.current(); src != nil {
		src.with(func(*intseq.Synth) { src.songPaused = paused })
	}
}

// Seek moves the playhead to the start of bar.
func (p *Player) Seek(bar int) {
	if src := p.current(); src != nil {
		src.with(func(s *intseq.Synth) { s.Seek(bar) })
	}
}

// SkipToNextBar moves the playhead to the next bar at the end of the
// current tick.
func (p *Player) SkipToNextBar() {
	if src := p.current(); src != nil {
		src.with(func(s *intseq.Synth) { s.SkipToNextBar() })
	}
}

// Position returns the song playhead.
func (p *Player) Position() intseq.Position {
	var pos intseq.Position
	if src := p.current(); src != nil {
		src.with(func(s *intseq.Synth) { pos = s.Position() })
	}
	return pos
}

// Peaks returns the absolute peak of the last rendered buffer before and
// after the song limiter.
func (p *Player) Peaks() (input, output float64) {
	if src := p.current(); src != nil {
		src.with(func(s *intseq.Synth) { input, output = s.InputPeak(), s.OutputPeak() })
	}
	return input, output
}

// SetMasterVolume scales the output from the next rendered block on.
// Negative values are treated as zero.
func (p *Player) SetMasterVolume(volume float64) {
	p.volume.Store(math.Float64bits(max(volume, 0)))
}

func (p *Player) MasterVolume() float64 {
	return math.Float64frombits(p.volume.Load())
}

// SetEQBand sets the linear gain of one listener EQ band, lowest first.
// Out of range bands are ignored.
func (p *Player) SetEQBand(band int, gain float32) {
	p.masterEQ.SetGain(band, gain)
}

// EQBand reports 1 for bands that do not exist.
func (p *Player) EQBand(band int) float32 {
	return p.masterEQ.Gain(band)
}

// PlaybackPosition is the number of frames the device has played, which
// trails Position by the output latency.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	out := p.output
	p.mu.Unlock()
	if out == nil {
		return 0
	}
	return int64(out.Position().Seconds() * float64(p.sampleRate))
}
