package trackersynth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"

	intseq "github.com/cbegin/trackersynth/internal/sequencer"
	"github.com/cbegin/trackersynth/internal/song"
)

var update = flag.Bool("update", false, "rewrite golden hashes in testdata")

func hashSamples(samples []float32) string {
	sum := sha256.Sum256(EncodeWAVFloat32LE(samples, 48000, 2))
	return hex.EncodeToString(sum[:])
}

func TestRenderIsDeterministic(t *testing.T) {
	first, err := RenderSamples(song.Demo(), 48000, 2)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	second, err := RenderSamples(song.Demo(), 48000, 2)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if a, b := hashSamples(first), hashSamples(second); a != b {
		t.Fatalf("rendering is not deterministic\nfirst:  %s\nsecond: %s", a, b)
	}
	var peak float32
	for _, v := range first {
		peak = max(peak, v, -v)
	}
	if peak == 0 {
		t.Fatal("demo rendered silence")
	}
}

// TestGoldenWAVSnapshot compares rendered audio against hashes in testdata.
// A missing hash is recorded on the first run; -update rewrites them all.
func TestGoldenWAVSnapshot(t *testing.T) {
	cases := []struct {
		name  string
		file  string
		build func() *song.Song
	}{
		{name: "demo", file: "golden_demo.sha256", build: song.Demo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samples, err := RenderSamples(tc.build(), 48000, 2)
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			got := hashSamples(samples)

			path := filepath.Join("testdata", tc.file)
			raw, err := os.ReadFile(path)
			missing := errors.Is(err, os.ErrNotExist)
			if err != nil && !missing {
				t.Fatalf("read golden hash: %v", err)
			}
			if *update || missing {
				if err := os.MkdirAll("testdata", 0o755); err != nil {
					t.Fatalf("create testdata: %v", err)
				}
				if err := os.WriteFile(path, []byte(got+"\n"), 0o644); err != nil {
					t.Fatalf("write golden hash: %v", err)
				}
				t.Logf("recorded %s = %s", path, got)
				return
			}
			want := strings.TrimSpace(string(raw))
			if got != want {
				t.Fatalf("golden mismatch\nwant: %s\ngot:  %s", want, got)
			}
		})
	}
}

func TestRenderSongStopsAfterTails(t *testing.T) {
	samples, err := RenderSong(song.Demo(), 48000, 0, 60)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(samples) == 0 || len(samples) >= 60*48000*2 {
		t.Fatalf("unexpected length %d", len(samples))
	}
	if _, err := RenderSong(song.Demo(), 48000, -1, 1); err == nil {
		t.Fatalf("expected an error for negative repeats")
	}
}

func TestRenderReportsUnknownInstrument(t *testing.T) {
	s := song.New()
	inst := song.NewInstrument(song.InstrumentChip)
	inst.Type = 99
	s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
		song.NewNote([]int{12}, 0, 4, song.NoteSizeMax),
	}, 0)
	if _, err := RenderSamples(s, 48000, 0.5); !errors.Is(err, intseq.ErrUnknownInstrumentType) {
		t.Fatalf("expected ErrUnknownInstrumentType, got %v", err)
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0, 0.5, -0.5, 1, -1, 2, -2}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := WriteWAV(f, samples, 44100); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err = os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("unexpected format: %d Hz, %d channels, %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	want := []int{0, 0, 16384, -16384, 32767, -32767, 32767, -32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(buf.Data))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("sample %d: want %d, got %d", i, want[i], buf.Data[i])
		}
	}
}
