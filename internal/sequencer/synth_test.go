package sequencer

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/trackersynth/internal/song"
)

const (
	testRate = 48000
	// At 125 bpm with 24 parts per beat one tick is exactly 480 samples.
	testTickSamples = 480
)

func testSong(bars int) *song.Song {
	s := song.New()
	s.Tempo = 125
	s.PartsPerBeat = 24
	s.BeatsPerBar = 2
	s.BarCount = bars
	s.LoopStart = 0
	s.LoopLength = bars
	return s
}

func render(t testing.TB, s *Synth, n int) ([]float32, []float32) {
	t.Helper()
	l := make([]float32, n)
	r := make([]float32, n)
	if err := s.Synthesize(l, r, n, true); err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	return l, r
}

func rms(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

func tickSpan(x []float32, from, to int) []float32 {
	return x[from*testTickSamples : to*testTickSamples]
}

func TestNoteStartsAndFadesOnSchedule(t *testing.T) {
	s := testSong(1)
	inst := song.NewInstrument(song.InstrumentChip)
	inst.FadeOut = 5
	s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
		song.NewNote([]int{12}, 4, 12, song.NoteSizeMax),
	}, 0)
	fade := song.FadeOutTicks[5]

	syn := New(s, testRate)
	left, right := render(t, syn, (12*song.TicksPerPart+fade+8)*testTickSamples)

	for i, v := range tickSpan(left, 0, 4*song.TicksPerPart) {
		if v != 0 || right[i] != 0 {
			t.Fatalf("sample %d before the note is %v/%v", i, v, right[i])
		}
	}
	a := rms(tickSpan(left, 10, 14))
	b := rms(tickSpan(left, 16, 20))
	if a == 0 {
		t.Fatalf("expected sound during the note")
	}
	if math.Abs(a-b)/a > 0.05 {
		t.Fatalf("sustained level drifted: %v vs %v", a, b)
	}
	// The last release tick may still carry the tail of the ramp.
	end := 12*song.TicksPerPart + fade + 1
	for i, v := range left[end*testTickSamples:] {
		if v != 0 {
			t.Fatalf("sample %d after the release is %v", end*testTickSamples+i, v)
		}
	}
	if syn.ToneCount() != 0 {
		t.Fatalf("expected every tone freed, %d in use", syn.ToneCount())
	}
}

func TestContinueTransitionIsSeamless(t *testing.T) {
	build := func(split bool) *song.Song {
		s := testSong(1)
		inst := song.NewInstrument(song.InstrumentChip)
		inst.Enable(song.EffectTransition)
		inst.Transition = song.TransitionContinue
		notes := []*song.Note{song.NewNote([]int{12}, 0, 16, song.NoteSizeMax)}
		if split {
			notes = []*song.Note{
				song.NewNote([]int{12}, 0, 8, song.NoteSizeMax),
				song.NewNote([]int{12}, 8, 16, song.NoteSizeMax),
			}
		}
		s.AddChannel(song.ChannelPitch, inst).SetPattern(notes, 0)
		return s
	}
	n := 16 * song.TicksPerPart * testTickSamples
	one, _ := render(t, New(build(false), testRate), n)
	two, _ := render(t, New(build(true), testRate), n)
	for i := range one {
		if math.Abs(float64(one[i]-two[i])) > 1e-9 {
			t.Fatalf("sample %d differs: %v vs %v", i, one[i], two[i])
		}
	}
}

func TestVolumeModRampRaisesLevel(t *testing.T) {
	s := testSong(1)
	inst := song.NewInstrument(song.InstrumentChip)
	ppb := s.PartsPerBar()
	s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
		song.NewNote([]int{12}, 0, ppb, song.NoteSizeMax),
	}, 0)
	mod := song.NewInstrument(song.InstrumentMod)
	mod.Mods[0] = song.ModSlot{Setting: song.ModVolume, Channel: 0, Instrument: 0}
	s.AddChannel(song.ChannelMod, mod).SetPattern([]*song.Note{
		song.NewRamp(slotForPitch(0), 0, ppb, 0, song.VolumeRange),
	}, 0)

	left, _ := render(t, New(s, testRate), ppb*song.TicksPerPart*testTickSamples)
	const window = 8
	prev := -1.0
	for tick := window; tick+window <= ppb*song.TicksPerPart; tick += window {
		level := rms(tickSpan(left, tick, tick+window))
		if level <= prev {
			t.Fatalf("level at tick %d is %v, not above %v", tick, level, prev)
		}
		prev = level
	}
}

func TestToneCountStaysBounded(t *testing.T) {
	s := testSong(2)
	inst := song.NewInstrument(song.InstrumentChip)
	inst.FadeOut = len(song.FadeOutTicks) - 1
	chord := []int{0, 2, 4, 5, 7, 9, 11, 12, 14}
	var notes []*song.Note
	for p := 0; p+2 <= s.PartsPerBar(); p += 2 {
		notes = append(notes, song.NewNote(chord, p, p+2, song.NoteSizeMax))
	}
	s.AddChannel(song.ChannelPitch, inst).SetPattern(notes, 0, 1)

	syn := New(s, testRate)
	l := make([]float32, testTickSamples)
	r := make([]float32, testTickSamples)
	for tick := 0; tick < 2*s.TicksPerBar(); tick++ {
		if err := syn.Synthesize(l, r, testTickSamples, true); err != nil {
			t.Fatalf("synthesize failed: %v", err)
		}
		total := 0
		for _, cs := range syn.channels {
			for _, ist := range cs.instruments {
				if c := len(ist.active) + len(ist.released); c > MaxTonesPerInstrument {
					t.Fatalf("tick %d: instrument holds %d tones", tick, c)
				}
				total += ist.toneCount()
			}
		}
		if total != syn.pool.inUse() {
			t.Fatalf("tick %d: %d tones owned but %d allocated", tick, total, syn.pool.inUse())
		}
	}
}

func TestEmptySongIsSilent(t *testing.T) {
	s := testSong(2)
	s.AddChannel(song.ChannelPitch, song.NewInstrument(song.InstrumentChip))
	syn := New(s, testRate)
	for pass := 0; pass < 2; pass++ {
		l, r := render(t, syn, 4096)
		for i := range l {
			if l[i] != 0 || r[i] != 0 {
				t.Fatalf("pass %d sample %d: %v/%v", pass, i, l[i], r[i])
			}
		}
	}
}

func TestSynthesizeErrors(t *testing.T) {
	t.Run("no song", func(t *testing.T) {
		syn := New(nil, testRate)
		l := make([]float32, 64)
		r := make([]float32, 64)
		if err := syn.Synthesize(l, r, 64, true); !errors.Is(err, ErrNoSong) {
			t.Fatalf("expected ErrNoSong, got %v", err)
		}
	})
	t.Run("unknown instrument type", func(t *testing.T) {
		s := testSong(1)
		inst := song.NewInstrument(song.InstrumentChip)
		inst.Type = 99
		s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
			song.NewNote([]int{12}, 2, 8, song.NoteSizeMax),
		}, 0)
		syn := New(s, testRate)
		n := 8 * song.TicksPerPart * testTickSamples
		l := make([]float32, n)
		r := make([]float32, n)
		for i := range l {
			l[i], r[i] = 1, 1
		}
		err := syn.Synthesize(l, r, n, true)
		if !errors.Is(err, ErrUnknownInstrumentType) {
			t.Fatalf("expected ErrUnknownInstrumentType, got %v", err)
		}
		for i := range l {
			if l[i] != 0 || r[i] != 0 {
				t.Fatalf("sample %d not cleared after failure", i)
			}
		}
		if syn.Playing() || syn.ToneCount() != 0 {
			t.Fatalf("expected playback stopped with no tones, playing=%v tones=%d", syn.Playing(), syn.ToneCount())
		}
	})
}

func TestLoopAndEndEvents(t *testing.T) {
	s := testSong(2)
	inst := song.NewInstrument(song.InstrumentChip)
	s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
		song.NewNote([]int{12}, 0, 4, song.NoteSizeMax),
	}, 0)
	var loops, ends int
	syn := NewWithOptions(s, testRate, Options{
		LoopRepeatCount: 1,
		OnEvent: func(k EventKind) {
			switch k {
			case EventLoopCompleted:
				loops++
			case EventPlaybackEnded:
				ends++
			}
		},
	})
	barSamples := s.TicksPerBar() * testTickSamples
	render(t, syn, 3*barSamples)
	if loops != 1 || ends != 0 {
		t.Fatalf("after three bars: loops=%d ends=%d", loops, ends)
	}
	render(t, syn, 2*barSamples)
	if loops != 1 || ends != 1 {
		t.Fatalf("after five bars: loops=%d ends=%d", loops, ends)
	}
	if syn.Playing() {
		t.Fatalf("expected playback to have ended")
	}
}

func TestNextBarTriggerSkips(t *testing.T) {
	s := testSong(2)
	s.AddChannel(song.ChannelPitch, song.NewInstrument(song.InstrumentChip))
	mod := song.NewInstrument(song.InstrumentMod)
	mod.Mods[0] = song.ModSlot{Setting: song.ModNextBar}
	s.AddChannel(song.ChannelMod, mod).SetPattern([]*song.Note{
		song.NewNote([]int{slotForPitch(0)}, 4, 6, 1),
	}, 0)
	syn := New(s, testRate)
	render(t, syn, (4*song.TicksPerPart+1)*testTickSamples)
	if p := syn.Position(); p.Bar != 1 || p.Beat != 0 || p.Part != 0 || p.Tick != 0 {
		t.Fatalf("expected the start of bar 1, got %v", p)
	}
}

func TestSeekRebuildsModValues(t *testing.T) {
	build := func() *song.Song {
		s := testSong(3)
		s.AddChannel(song.ChannelPitch, song.NewInstrument(song.InstrumentChip))
		mod := song.NewInstrument(song.InstrumentMod)
		mod.Mods[0] = song.ModSlot{Setting: song.ModVolume, Channel: 0, Instrument: 0}
		mod.Mods[1] = song.ModSlot{Setting: song.ModTempo}
		s.AddChannel(song.ChannelMod, mod).SetPattern([]*song.Note{
			song.NewRamp(slotForPitch(0), 0, s.PartsPerBar(), 0, 40),
			song.NewNote([]int{slotForPitch(1)}, 0, 4, 95),
		}, 0)
		return s
	}
	played := New(build(), testRate)
	// The tempo mod changes tick length, so step a tick at a time until the
	// playhead reaches bar 2.
	l := make([]float32, 1)
	r := make([]float32, 1)
	for played.Position().Bar < 2 || !played.isAtStartOfTick {
		if err := played.Synthesize(l, r, 1, true); err != nil {
			t.Fatalf("synthesize failed: %v", err)
		}
	}
	seeked := New(build(), testRate)
	seeked.Seek(2)

	check := func(name string, a, b *modValue) {
		t.Helper()
		if a.active != b.active || math.Abs(a.next-b.next) > 1e-9 {
			t.Fatalf("%s: played %+v, seeked %+v", name, *a, *b)
		}
	}
	check("volume", &played.channels[0].instruments[0].mods.values[song.ModVolume], &seeked.channels[0].instruments[0].mods.values[song.ModVolume])
	check("tempo", &played.mods.values[song.ModTempo], &seeked.mods.values[song.ModTempo])
	if v := seeked.mods.values[song.ModTempo].next; v != 95+song.TempoMin {
		t.Fatalf("tempo after seek is %v", v)
	}
}

func TestSeekResolvesActiveInstrumentsPerBar(t *testing.T) {
	s := testSong(3)
	ch := s.AddChannel(song.ChannelPitch, song.NewInstrument(song.InstrumentChip), song.NewInstrument(song.InstrumentChip))
	ch.SetPattern(nil, 0)
	ch.SetPattern(nil, 2).Instruments = []int{1}
	mod := song.NewInstrument(song.InstrumentMod)
	mod.Mods[0] = song.ModSlot{Setting: song.ModVolume, Channel: 0, Instrument: song.ModActiveInstruments}
	s.AddChannel(song.ChannelMod, mod).SetPattern([]*song.Note{
		song.NewNote([]int{slotForPitch(0)}, 0, 4, 30),
	}, 0)

	syn := New(s, testRate)
	syn.Seek(2)
	first := syn.channels[0].instruments[0].mods.values[song.ModVolume]
	second := syn.channels[0].instruments[1].mods.values[song.ModVolume]
	if !first.active || first.next != 30+float64(song.ModVolume.Info().Offset) {
		t.Fatalf("instrument active in bar 0 should keep the volume mod, got %+v", first)
	}
	if second.active {
		t.Fatalf("instrument first used in bar 2 should not be automated, got %+v", second)
	}
}

func TestLiveNotesPlayWithoutSong(t *testing.T) {
	s := testSong(1)
	s.AddChannel(song.ChannelPitch, song.NewInstrument(song.InstrumentChip))
	syn := New(s, testRate)
	syn.Live().NoteOn(0, 0, 24)

	l := make([]float32, 4*testTickSamples)
	r := make([]float32, 4*testTickSamples)
	if err := syn.Synthesize(l, r, len(l), false); err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if rms(l) == 0 {
		t.Fatalf("expected the live note to sound")
	}
	if p := syn.Position(); p != (Position{}) {
		t.Fatalf("playhead moved while paused: %v", p)
	}

	syn.Live().NoteOff(0, 0)
	for i := 0; i < 8; i++ {
		if err := syn.Synthesize(l, r, len(l), false); err != nil {
			t.Fatalf("synthesize failed: %v", err)
		}
	}
	if syn.ToneCount() != 0 {
		t.Fatalf("expected live tones freed, %d in use", syn.ToneCount())
	}
}

func TestEveryInstrumentTypeRenders(t *testing.T) {
	types := []song.InstrumentType{
		song.InstrumentChip, song.InstrumentCustomChip, song.InstrumentHarmonics,
		song.InstrumentPWM, song.InstrumentSupersaw, song.InstrumentFM,
		song.InstrumentPickedString, song.InstrumentNoise, song.InstrumentSpectrum,
		song.InstrumentDrumset,
	}
	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			s := testSong(1)
			inst := song.NewInstrument(typ)
			kind := song.ChannelPitch
			pitch := 12
			if inst.IsNoiseFlavored() {
				kind = song.ChannelNoise
				pitch = 6
			}
			s.AddChannel(kind, inst).SetPattern([]*song.Note{
				song.NewNote([]int{pitch}, 0, 8, song.NoteSizeMax),
			}, 0)
			left, _ := render(t, New(s, testRate), 8*song.TicksPerPart*testTickSamples)
			level := rms(left)
			if level == 0 || math.IsNaN(level) || level > 4 {
				t.Fatalf("unexpected level %v", level)
			}
		})
	}
}

func TestChipLoopModesRender(t *testing.T) {
	for mode := 0; mode < song.LoopModeCount; mode++ {
		s := testSong(1)
		inst := song.NewInstrument(song.InstrumentCustomChip)
		inst.ChipWaveLoopMode = mode
		inst.ChipWaveLoopStart = 8
		inst.ChipWaveLoopEnd = 40
		s.AddChannel(song.ChannelPitch, inst).SetPattern([]*song.Note{
			song.NewNote([]int{12}, 0, 8, song.NoteSizeMax),
		}, 0)
		left, _ := render(t, New(s, testRate), 4*testTickSamples)
		if level := rms(left); level == 0 || math.IsNaN(level) {
			t.Fatalf("loop mode %d: level %v", mode, level)
		}
	}
}
