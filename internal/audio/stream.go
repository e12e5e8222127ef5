// Package audio connects a planar stereo renderer to the ebiten audio device.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source renders len(left) frames into left and right. A non-nil error ends
// the stream after the frames it returned with.
type Source interface {
	Render(left, right []float32) error
}

// Finisher is implemented by sources that know when their audio has run
// out. The stream reports io.EOF after the first buffer rendered once
// Finished returns true.
type Finisher interface {
	Finished() bool
}

const bytesPerFrame = 8

// Stream is the io.Reader ebiten pulls float32 little-endian stereo from.
type Stream struct {
	mu          sync.Mutex
	source      Source
	left, right []float32
	ended       bool
}

func NewStream(source Source) *Stream {
	return &Stream{source: source}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return 0, io.EOF
	}
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if len(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	l, r := s.left[:frames], s.right[:frames]
	err := s.source.Render(l, r)
	for i := range l {
		binary.LittleEndian.PutUint32(p[i*bytesPerFrame:], math.Float32bits(l[i]))
		binary.LittleEndian.PutUint32(p[i*bytesPerFrame+4:], math.Float32bits(r[i]))
	}
	if f, ok := s.source.(Finisher); err != nil || ok && f.Finished() {
		s.ended = true
		return frames * bytesPerFrame, io.EOF
	}
	return frames * bytesPerFrame, nil
}

// ebiten allows one context per process, so every Output shares it.
var device struct {
	once       sync.Once
	ctx        *ebitaudio.Context
	sampleRate int
}

func openContext(sampleRate int) (*ebitaudio.Context, error) {
	device.once.Do(func() {
		device.sampleRate = sampleRate
		device.ctx = ebitaudio.NewContext(sampleRate)
	})
	if device.sampleRate != sampleRate {
		return nil, fmt.Errorf("audio: device already open at %d Hz, requested %d Hz", device.sampleRate, sampleRate)
	}
	return device.ctx, nil
}

// Output plays a Source on the device.
type Output struct {
	player *ebitaudio.Player
}

// Open prepares source for playback at sampleRate. latency sets the
// device buffer; zero keeps ebiten's default.
func Open(sampleRate int, source Source, latency time.Duration) (*Output, error) {
	ctx, err := openContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(NewStream(source))
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	if latency > 0 {
		pl.SetBufferSize(latency)
	}
	return &Output{player: pl}, nil
}

func (o *Output) Play()           { o.player.Play() }
func (o *Output) Pause()          { o.player.Pause() }
func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// Position is how much audio the listener has heard.
func (o *Output) Position() time.Duration {
	return o.player.Position()
}

func (o *Output) Close() error {
	o.player.Pause()
	return o.player.Close()
}
