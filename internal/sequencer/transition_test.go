package sequencer

import (
	"math"
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

func TestRematchChordPrefersExactPitches(t *testing.T) {
	tests := []struct {
		name     string
		old      []int
		next     []int
		limit    int
		want     []int // index into old, or -1 for a fresh tone
		released int
	}{
		{"same pitches reordered", []int{12, 16, 19}, []int{19, 12, 16}, 3, []int{2, 0, 1}, 0},
		{"one new pitch takes the leftover", []int{12, 16, 19}, []int{19, 24, 12}, 3, []int{2, 1, 0}, 0},
		{"leftovers go in order", []int{12, 16, 19}, []int{24, 28, 16}, 3, []int{0, 2, 1}, 0},
		{"larger chord gets fresh tones", []int{12, 16}, []int{16, 24, 28}, 3, []int{1, 0, -1}, 0},
		{"smaller chord releases the rest", []int{12, 16, 19}, []int{16}, 1, []int{1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSong(1)
			s.AddChannel(song.ChannelPitch, song.NewInstrument(song.InstrumentChip))
			syn := New(s, testRate)
			ist := syn.channels[0].instruments[0]
			var old []int
			for _, p := range tt.old {
				i := syn.allocTone(ist)
				syn.pool.get(i).pitches[0] = p
				ist.active = append(ist.active, i)
				old = append(old, i)
			}

			note := song.NewNote(tt.next, 0, 8, song.NoteSizeMax)
			syn.rematchChord(ist, note, song.Chords[song.ChordSimultaneous], tt.limit)

			if len(ist.active) != len(tt.want) {
				t.Fatalf("expected %d active tones, got %d", len(tt.want), len(ist.active))
			}
			for i, w := range tt.want {
				got := ist.active[i]
				if w < 0 {
					for _, o := range old {
						if got == o {
							t.Fatalf("pitch %d reused tone %d, want a fresh one", tt.next[i], o)
						}
					}
					continue
				}
				if got != old[w] {
					t.Fatalf("pitch %d took tone %d, want %d", tt.next[i], got, old[w])
				}
			}
			if len(ist.released) != tt.released {
				t.Fatalf("expected %d released tones, got %d", tt.released, len(ist.released))
			}
		})
	}
}

// slideSong plays pitch 12 for eight parts and then pitch 24 for eight.
func slideSong(transition int) *song.Song {
	s := testSong(1)
	inst := song.NewInstrument(song.InstrumentChip)
	inst.Enable(song.EffectTransition)
	inst.Transition = transition
	// A positive fade-out keeps the tone active until its note ends.
	inst.FadeOut = song.FadeOutNeutral + 1
	s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
		song.NewNote([]int{12}, 0, 8, song.NoteSizeMax),
		song.NewNote([]int{24}, 8, 16, song.NoteSizeMax),
	}, 0)
	return s
}

// pitchAfterTicks renders ticks one at a time and returns the sounding
// pitch, including slide offsets, at the end of each tick.
func pitchAfterTicks(t *testing.T, syn *Synth, ticks int) []float64 {
	t.Helper()
	out := make([]float64, ticks)
	for k := range out {
		render(t, syn, testTickSamples)
		ist := syn.channels[0].instruments[0]
		if len(ist.active) != 1 {
			t.Fatalf("tick %d: expected one active tone, got %d", k, len(ist.active))
		}
		tone := syn.pool.get(ist.active[0])
		out[k] = float64(tone.pitches[0]) + tone.lastInterval
	}
	return out
}

func TestSlideBlendsPitchAcrossNotes(t *testing.T) {
	const boundary = 8 * song.TicksPerPart
	tests := []struct {
		name       string
		transition int
		want       map[int]float64
	}{
		{"slide", song.TransitionSlide, map[int]float64{
			4:            12,
			boundary - 1: 18, // halfway at the note boundary
			boundary:     20,
			boundary + 2: 24,
			boundary + 6: 24,
		}},
		{"normal", song.TransitionNormal, map[int]float64{
			boundary - 1: 12,
			boundary:     24,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pitchAfterTicks(t, New(slideSong(tt.transition), testRate), boundary+8)
			for tick, want := range tt.want {
				if math.Abs(got[tick]-want) > 1e-9 {
					t.Fatalf("pitch after tick %d = %v, want %v", tick, got[tick], want)
				}
			}
		})
	}
}

func TestSlideKeepsOneTone(t *testing.T) {
	syn := New(slideSong(song.TransitionSlide), testRate)
	render(t, syn, 8*song.TicksPerPart*testTickSamples)
	first := syn.channels[0].instruments[0].active[0]
	render(t, syn, testTickSamples)
	ist := syn.channels[0].instruments[0]
	if len(ist.active) != 1 || ist.active[0] != first {
		t.Fatalf("slide should carry tone %d into the next note, active %v", first, ist.active)
	}
	if len(ist.released) != 0 {
		t.Fatalf("slide released %d tones", len(ist.released))
	}
}

func TestContinueAcrossBarLineIsSeamless(t *testing.T) {
	continued := func() *song.Song {
		s := testSong(2)
		inst := song.NewInstrument(song.InstrumentChip)
		inst.Enable(song.EffectTransition)
		inst.Transition = song.TransitionContinue
		inst.FadeOut = song.FadeOutNeutral + 1
		ch := s.AddChannel(song.ChannelPitch, inst)
		ppb := s.PartsPerBar()
		ch.SetPattern([]*song.Note{song.NewNote([]int{12}, 0, ppb, song.NoteSizeMax)}, 0)
		ch.SetPattern([]*song.Note{song.NewNote([]int{12}, 0, ppb, song.NoteSizeMax)}, 1)
		return s
	}
	// The same sound as a single note in one bar twice as long.
	held := func() *song.Song {
		s := testSong(1)
		s.BeatsPerBar = 4
		inst := song.NewInstrument(song.InstrumentChip)
		inst.Enable(song.EffectTransition)
		inst.Transition = song.TransitionContinue
		inst.FadeOut = song.FadeOutNeutral + 1
		s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
			song.NewNote([]int{12}, 0, s.PartsPerBar(), song.NoteSizeMax),
		}, 0)
		return s
	}

	a, b := New(continued(), testRate), New(held(), testRate)
	ticks := 2 * continued().PartsPerBar() * song.TicksPerPart
	for tick := 0; tick < ticks; tick++ {
		x, _ := render(t, a, testTickSamples)
		y, _ := render(t, b, testTickSamples)
		for i := range x {
			if math.Abs(float64(x[i]-y[i])) > 1e-9 {
				t.Fatalf("tick %d sample %d differs: %v vs %v", tick, i, x[i], y[i])
			}
		}
		if a.ToneCount() != 1 {
			t.Fatalf("tick %d: %d tones sounding, want 1", tick, a.ToneCount())
		}
	}
}
