package sequencer

import (
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

func BenchmarkSynthesizeDemo(b *testing.B) {
	syn := NewWithOptions(song.Demo(), testRate, Options{LoopRepeatCount: -1})
	const frames = 1024
	l := make([]float32, frames)
	r := make([]float32, frames)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := syn.Synthesize(l, r, frames, true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChordRelease(b *testing.B) {
	s := testSong(4)
	inst := song.NewInstrument(song.InstrumentSupersaw)
	inst.FadeOut = len(song.FadeOutTicks) - 1
	var notes []*song.Note
	for p := 0; p+4 <= s.PartsPerBar(); p += 4 {
		notes = append(notes, song.NewNote([]int{0, 4, 7, 11}, p, p+4, song.NoteSizeMax))
	}
	s.AddChannel(song.ChannelPitch, inst).SetPattern(notes, 0, 1, 2, 3)
	syn := NewWithOptions(s, testRate, Options{LoopRepeatCount: -1})
	l := make([]float32, testTickSamples)
	r := make([]float32, testTickSamples)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := syn.Synthesize(l, r, testTickSamples, true); err != nil {
			b.Fatal(err)
		}
	}
}
