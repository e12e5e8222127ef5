package trackersynth

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intseq "github.com/cbegin/trackersynth/internal/sequencer"
	"github.com/cbegin/trackersynth/internal/song"
)

// renderBlock is the frame count handed to the synth per call, matching a
// typical device buffer.
const renderBlock = 1024

// RenderSamples renders seconds of sng as interleaved stereo float32. The
// song plays through once; the remainder after it ends holds its tails and
// then silence.
func RenderSamples(sng *song.Song, sampleRate int, seconds float64) ([]float32, error) {
	frames := int(float64(sampleRate) * seconds)
	syn := intseq.New(sng, sampleRate)
	out := make([]float32, frames*2)
	for pos := 0; pos < frames; pos += renderBlock {
		end := min(pos+renderBlock, frames)
		if err := syn.Process(out[pos*2 : end*2]); err != nil {
			return out, fmt.Errorf("render at frame %d: %w", pos, err)
		}
	}
	return out, nil
}

// RenderSong renders sng from its first bar until playback has ended and
// every tail has died out, with the loop region repeated loopRepeats times.
// maxSeconds bounds songs whose tails never settle.
func RenderSong(sng *song.Song, sampleRate, loopRepeats int, maxSeconds float64) ([]float32, error) {
	if loopRepeats < 0 {
		return nil, fmt.Errorf("loopRepeats must not be negative, got %d", loopRepeats)
	}
	ended := false
	syn := intseq.NewWithOptions(sng, sampleRate, intseq.Options{
		LoopRepeatCount: loopRepeats,
		OnEvent: func(kind intseq.EventKind) {
			if kind == intseq.EventPlaybackEnded {
				ended = true
			}
		},
	})
	limit := int(float64(sampleRate) * maxSeconds)
	block := make([]float32, renderBlock*2)
	var out []float32
	for frames := 0; !ended && frames < limit; frames += renderBlock {
		if err := syn.Process(block); err != nil {
			return out, fmt.Errorf("render at frame %d: %w", frames, err)
		}
		out = append(out, block...)
	}
	return out, nil
}

// WriteWAV writes interleaved stereo samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * math.MaxInt16))
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

// EncodeWAVFloat32LE returns a complete IEEE float WAV file. Unlike WriteWAV
// it keeps every bit of the rendered samples, so hashing it detects any
// change in the output.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
