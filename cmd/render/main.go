package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cbegin/trackersynth"
	"github.com/cbegin/trackersynth/internal/song"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		output     = flag.String("o", "demo.wav", "output WAV path")
		loops      = flag.Int("loops", 0, "times to repeat the loop region")
		maxSeconds = flag.Float64("max-seconds", 120, "stop rendering after this many seconds")
		float32Out = flag.Bool("float", false, "write 32-bit float samples instead of 16-bit PCM")
	)
	flag.Parse()

	samples, err := trackersynth.RenderSong(song.Demo(), *sampleRate, *loops, *maxSeconds)
	if err != nil {
		log.Fatal(err)
	}

	if *float32Out {
		if err := os.WriteFile(*output, trackersynth.EncodeWAVFloat32LE(samples, *sampleRate, 2), 0o644); err != nil {
			log.Fatal(err)
		}
	} else {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		if err := trackersynth.WriteWAV(f, samples, *sampleRate); err != nil {
			f.Close()
			log.Fatal(err)
		}
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
	}
	frames := len(samples) / 2
	fmt.Printf("wrote %s (%d frames, %.2fs)\n", *output, frames, float64(frames)/float64(*sampleRate))
}
