package trackersynth

import (
	intseq "github.com/cbegin/trackersynth/internal/sequencer"
	"github.com/cbegin/trackersynth/internal/song"
)

func newDemoSynth(sampleRate int) *intseq.Synth {
	return intseq.New(song.Demo(), sampleRate)
}
