package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/cbegin/trackersynth"
	"github.com/cbegin/trackersynth/internal/song"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		loop       = flag.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops      = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		meter      = flag.Bool("meter", false, "print the playhead and output peak twice a second")
	)
	flag.Parse()

	pl, err := trackersynth.NewPlayer(
		trackersynth.WithSampleRate(*sampleRate),
		trackersynth.WithLoopPlayback(*loop),
		trackersynth.WithVolume(*volume),
	)
	if err != nil {
		log.Fatal(err)
	}
	ch := pl.Watch()
	if err := pl.Play(song.Demo()); err != nil {
		log.Fatal(err)
	}
	if *meter {
		go func() {
			for range time.Tick(500 * time.Millisecond) {
				_, peak := pl.Peaks()
				fmt.Printf("%v peak %.3f\n", pl.Position(), peak)
			}
		}()
	}

	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case trackersynth.EventPlaybackEnded:
			if err := pl.Err(); err != nil {
				log.Fatal(err)
			}
			fmt.Println("playback completed")
			goto done
		case trackersynth.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if *loop && *loops > 0 && loopCount >= *loops {
				pl.Stop()
			}
		}
	}
done:
	pl.Wait()
}
