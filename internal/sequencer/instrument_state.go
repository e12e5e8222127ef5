package sequencer

import (
	"math"

	"github.com/cbegin/trackersynth/internal/effects"
	"github.com/cbegin/trackersynth/internal/envelope"
	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/song"
)

// InstrumentState is the run state of one instrument slot of a channel: the
// tones it owns, its effect chain and its automated values.
type InstrumentState struct {
	channel    int
	index      int
	instrument *song.Instrument

	active   []int
	released []int
	live     []int

	effects        *effects.State
	params         effects.Params
	awake          bool
	flushedSamples int

	mods      modTargets
	overrides envelope.Overrides

	arpTime float64
	// earlyReleased is the note whose tones were released ahead of its end
	// by a negative fade-out.
	earlyReleased *song.Note

	noteFilterBase song.FilterSettings
	noteFilter     [2]song.FilterSettings
	eq             [2]song.FilterSettings
}

func newInstrumentState(channel, index int, inst *song.Instrument) *InstrumentState {
	return &InstrumentState{
		channel:        channel,
		index:          index,
		instrument:     inst,
		active:         make([]int, 0, song.MaxChordSize),
		released:       make([]int, 0, MaxTonesPerInstrument),
		live:           make([]int, 0, song.MaxChordSize),
		effects:        effects.NewState(),
		noteFilterBase: filter.EffectiveNoteFilter(inst),
	}
}

// toneCount is the number of tones the instrument currently renders.
func (ist *InstrumentState) toneCount() int {
	return len(ist.active) + len(ist.released) + len(ist.live)
}

// Awake reports whether the instrument is rendering tones or effect tails.
func (ist *InstrumentState) Awake() bool { return ist.awake }

// Deactivate puts the instrument to sleep and clears its effect history.
func (ist *InstrumentState) Deactivate() {
	ist.effects.Reset()
	ist.awake = false
	ist.flushedSamples = 0
}

// firstTone returns the tone whose envelopes drive the instrument-wide
// effects, or nil.
func (ist *InstrumentState) firstTone(pool *tonePool) *Tone {
	switch {
	case len(ist.active) > 0:
		return pool.get(ist.active[0])
	case len(ist.live) > 0:
		return pool.get(ist.live[0])
	case len(ist.released) > 0:
		return pool.get(ist.released[0])
	}
	return nil
}

// resolveFilters refreshes the automated note filter and EQ shapes for the
// tick.
func (ist *InstrumentState) resolveFilters() {
	inst := ist.instrument
	for i, end := range [2]bool{false, true} {
		ist.mods.resolveFilter(&ist.noteFilter[i], &ist.noteFilterBase, &inst.NoteSubFilters, song.ModNoteFilter, filterNote, end)
		ist.mods.resolveFilter(&ist.eq[i], &inst.EQFilter, &inst.EQSubFilters, song.ModEQFilter, filterEQ, end)
	}
}

// Compute loads one tick of effect parameters. Envelope driven settings
// follow the first sounding tone.
func (ist *InstrumentState) Compute(s *Synth, run int) {
	inst := ist.instrument
	m := &ist.mods
	p := &ist.params

	env := func(target song.EnvelopeTarget) (float64, float64) { return 1, 1 }
	if t := ist.firstTone(&s.pool); t != nil {
		c := t.env
		env = func(target song.EnvelopeTarget) (float64, float64) {
			i := target.ComputeIndex(0)
			return c.Starts[i], c.Ends[i]
		}
	}
	scaled := func(setting song.ModSetting, fallback int, target song.EnvelopeTarget) effects.Ramp {
		a, b := m.values[setting].ramp(float64(fallback))
		ea, eb := env(target)
		return effects.Ramp{Start: a * ea, End: b * eb}
	}

	p.SampleRate = s.sampleRate
	p.SamplesPerTick = s.samplesPerTick
	p.RunLength = run
	p.Effects = inst.Effects

	p.Distortion = scaled(song.ModDistortion, inst.Distortion, song.EnvTargetDistortion)

	ea, eb := env(song.EnvTargetBitcrusherFrequency)
	a, b := m.values[song.ModBitcrusherFreq].ramp(float64(inst.BitcrusherFreq))
	p.BitcrusherFreq = effects.Ramp{Start: a * math.Sqrt(ea), End: b * math.Sqrt(eb)}
	ea, eb = env(song.EnvTargetBitcrusherQuantization)
	a, b = m.values[song.ModBitcrusherQuant].ramp(float64(inst.BitcrusherQuantization))
	p.BitcrusherQuant = effects.Ramp{Start: a * math.Sqrt(ea), End: b * math.Sqrt(eb)}
	key := song.Keys[clampInt(s.song.Key, 0, len(song.Keys)-1)]
	p.BitcrusherBaseHz = song.FrequencyFromPitch(float64(key.BasePitch + 60))

	p.RingMod = scaled(song.ModRingMod, inst.RingModulation, song.EnvTargetRingModulation)
	p.RingModHz = scaled(song.ModRingModHz, inst.RingModulationHz, song.EnvTargetRingModulationHz)
	p.RingModWaveform = inst.RingModWaveform

	p.EQStart, p.EQEnd = &ist.eq[0], &ist.eq[1]

	a, b = m.values[song.ModVolume].ramp(float64(inst.Volume))
	p.Volume = effects.Ramp{Start: song.InstrumentVolumeToVolumeMult(a), End: song.InstrumentVolumeToVolumeMult(b)}

	a, b = m.values[song.ModPan].ramp(float64(inst.Pan))
	ea, eb = env(song.EnvTargetPanning)
	p.Pan = effects.Ramp{
		Start: song.PanCenter + (a-song.PanCenter)*ea,
		End:   song.PanCenter + (b-song.PanCenter)*eb,
	}
	p.PanDelay, _ = m.values[song.ModPanDelay].ramp(float64(inst.PanDelay))

	p.Chorus = scaled(song.ModChorus, inst.Chorus, song.EnvTargetChorus)
	p.Echo = scaled(song.ModEcho, inst.EchoSustain, song.EnvTargetEchoSustain)
	p.EchoDelay, _ = m.values[song.ModEchoDelay].ramp(float64(inst.EchoDelay))

	p.Reverb = scaled(song.ModReverb, inst.Reverb, song.EnvTargetReverb)
	if v := &s.mods.values[song.ModSongReverb]; v.active {
		p.Reverb.Start = math.Max(0, p.Reverb.Start+v.current)
		p.Reverb.End = math.Max(0, p.Reverb.End+v.next)
	}

	p.Granular = scaled(song.ModGranular, inst.Granular, song.EnvTargetGranular)
	size := float64(inst.GrainSize)
	if v := &m.values[song.ModGrainSize]; v.active {
		size = v.current * song.GrainSizeStep
	}
	ea, _ = env(song.EnvTargetGrainSize)
	p.GrainSize = size * ea
	grainRange := float64(inst.GrainRange)
	if v := &m.values[song.ModGrainRange]; v.active {
		grainRange = v.current * song.GrainSizeStep
	}
	ea, _ = env(song.EnvTargetGrainRange)
	p.GrainRange = grainRange * ea
	amounts, _ := m.values[song.ModGrainAmount].ramp(float64(inst.GrainAmounts))
	ea, _ = env(song.EnvTargetGrainAmount)
	p.GrainAmounts = int(math.Round(amounts * ea))
	p.GrainEnvelope = inst.GrainEnvelope

	ist.effects.Compute(p)
}

// advanceArpeggio moves the arpeggio clock by one tick.
func (ist *InstrumentState) advanceArpeggio(pool *tonePool) {
	speed, _ := ist.mods.values[song.ModArpSpeed].ramp(float64(ist.instrument.ArpeggioSpeed))
	scale := song.ArpSpeedScale[clampInt(int(speed+0.5), 0, song.ArpSpeedScaleCount-1)]
	if t := ist.firstTone(pool); t != nil {
		scale *= t.env.Value(song.EnvTargetArpeggioSpeed, 0, 0)
	}
	ist.arpTime += scale
}
