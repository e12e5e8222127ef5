package song

import "math"

// InstrumentType selects the synthesis routine of an instrument.
type InstrumentType int

const (
	InstrumentChip InstrumentType = iota
	InstrumentFM
	InstrumentNoise
	InstrumentSpectrum
	InstrumentDrumset
	InstrumentHarmonics
	InstrumentPWM
	InstrumentPickedString
	InstrumentSupersaw
	InstrumentCustomChip
	InstrumentMod
	instrumentTypeCount
)

var instrumentTypeNames = [instrumentTypeCount]string{
	"chip", "FM", "noise", "spectrum", "drumset", "harmonics", "PWM",
	"Picked String", "supersaw", "custom chip", "mod",
}

func (t InstrumentType) String() string {
	if t.Valid() {
		return instrumentTypeNames[t]
	}
	return "invalid"
}

// Valid reports whether t names a known routine.
func (t InstrumentType) Valid() bool { return t >= 0 && t < instrumentTypeCount }

// InstrumentTypeCount is the number of valid instrument types.
const InstrumentTypeCount = int(instrumentTypeCount)

// EffectType is a bit position in Instrument.Effects.
type EffectType uint

const (
	EffectReverb EffectType = iota
	EffectChorus
	EffectPanning
	EffectDistortion
	EffectBitcrusher
	EffectNoteFilter
	EffectEcho
	EffectPitchShift
	EffectDetune
	EffectVibrato
	EffectTransition
	EffectChord
	EffectRingModulation
	EffectGranular
	EffectEQFilter
	EffectCount
)

// Loop modes for custom chip waves.
const (
	LoopOnce = iota
	LoopForward
	LoopBackward
	LoopPingPong
	LoopModeCount
)

// Operator waveforms for the FM instrument.
const (
	OperatorSine = iota
	OperatorTriangle
	OperatorSawtooth
	OperatorRamp
	OperatorTrapezoid
	OperatorPulse
	OperatorWaveCount
)

// Ring modulation carrier waveforms.
const (
	RingModSine = iota
	RingModSquare
	RingModTriangle
	RingModSawtooth
	RingModWaveCount
)

// Grain envelope shapes.
const (
	GrainParabolic = iota
	GrainRaisedCosine
)

// Picked string sustain models.
const (
	SustainBright = iota
	SustainAcoustic
)

// UnisonCustom selects the instrument's own unison fields instead of a
// preset.
const UnisonCustom = len(Unisons)

// VibratoCustom selects the instrument's own vibrato fields.
const VibratoCustom = len(Vibratos)

// Operator is one FM operator.
type Operator struct {
	Frequency  int
	Amplitude  int
	Waveform   int
	PulseWidth int
}

// ModSlot routes one mod-channel pitch to a target.
type ModSlot struct {
	Setting ModSetting
	Channel int
	// Instrument is an index into the target channel's instruments, or one
	// of ModAllInstruments / ModActiveInstruments.
	Instrument     int
	FilterTarget   int
	EnvelopeTarget int
}

const (
	ModAllInstruments    = -1
	ModActiveInstruments = -2
)

// Instrument holds every setting of one instrument slot. Fields that do not
// apply to the instrument's Type are ignored.
type Instrument struct {
	Type InstrumentType

	Volume     int
	Pan        int
	PanDelay   int
	FadeIn     int
	FadeOut    int
	Transition int
	Chord      int
	// Effects is a bitmask of (1 << EffectType).
	Effects uint32

	ArpeggioSpeed  int
	FastTwoNoteArp bool

	Vibrato      int
	VibratoDepth float64
	VibratoSpeed float64
	VibratoDelay int

	Unison           int
	UnisonVoices     int
	UnisonSpread     float64
	UnisonOffset     float64
	UnisonExpression float64
	UnisonSign       float64

	ChipWave          int
	ChipNoise         int
	CustomChipWave    [CustomChipWaveLength]float64
	ChipWaveLoopMode  int
	ChipWaveLoopStart int
	ChipWaveLoopEnd   int
	ChipWaveBackwards bool

	Harmonics      [HarmonicsControlPoints]int
	Spectrum       [SpectrumControlPoints]int
	DrumsetSpectra [DrumCount][SpectrumControlPoints]int

	PulseWidth        int
	SupersawDynamism  int
	SupersawSpread    int
	SupersawShape     int
	StringSustain     int
	StringSustainType int

	Algorithm         int
	FeedbackType      int
	FeedbackAmplitude int
	Operators         [OperatorCount]Operator

	NoteFilter       FilterSettings
	NoteSubFilters   [FilterMorphCount]*FilterSettings
	LegacyNoteFilter bool
	LegacyCutoff     int
	LegacyResonance  int

	EQFilter     FilterSettings
	EQSubFilters [FilterMorphCount]*FilterSettings

	Distortion             int
	BitcrusherFreq         int
	BitcrusherQuantization int
	RingModulation         int
	RingModulationHz       int
	RingModWaveform        int
	Chorus                 int
	EchoSustain            int
	EchoDelay              int
	Reverb                 int
	Granular               int
	GrainSize              int
	GrainAmounts           int
	GrainRange             int
	GrainEnvelope          int
	PitchShift             int
	Detune                 int

	Envelopes     []EnvelopeSettings
	EnvelopeSpeed int

	Mods [ModCount]ModSlot
}

// Has reports whether effect e is enabled.
func (inst *Instrument) Has(e EffectType) bool { return inst.Effects&(1<<e) != 0 }

// Enable turns effect e on.
func (inst *Instrument) Enable(effects ...EffectType) {
	for _, e := range effects {
		inst.Effects |= 1 << e
	}
}

// UnisonSettings resolves the preset or custom unison configuration.
func (inst *Instrument) UnisonSettings() Unison {
	if inst.Unison >= 0 && inst.Unison < len(Unisons) {
		return Unisons[inst.Unison]
	}
	return Unison{
		Name:       "custom",
		Voices:     clampInt(inst.UnisonVoices, 1, UnisonVoicesMax),
		Spread:     inst.UnisonSpread,
		Offset:     inst.UnisonOffset,
		Expression: inst.UnisonExpression,
		Sign:       inst.UnisonSign,
	}
}

// VibratoSettings resolves the preset or custom vibrato configuration.
// Speed is a multiplier of the preset periods.
func (inst *Instrument) VibratoSettings() (v Vibrato, speed float64) {
	if inst.Vibrato >= 0 && inst.Vibrato < len(Vibratos) {
		return Vibratos[inst.Vibrato], 1
	}
	return Vibrato{
		Name:           "custom",
		Amplitude:      inst.VibratoDepth,
		PeriodsSeconds: Vibratos[1].PeriodsSeconds,
		DelayTicks:     inst.VibratoDelay * TicksPerPart,
	}, inst.VibratoSpeed
}

// BaseExpression is the per-type loudness normalisation.
func (inst *Instrument) BaseExpression() float64 {
	switch inst.Type {
	case InstrumentChip, InstrumentCustomChip:
		return ChipBaseExpression
	case InstrumentFM:
		return FMBaseExpression
	case InstrumentNoise:
		return NoiseBaseExpression
	case InstrumentSpectrum:
		return SpectrumBaseExpression
	case InstrumentDrumset:
		return DrumsetBaseExpression
	case InstrumentHarmonics:
		return HarmonicsBaseExpression
	case InstrumentPWM:
		return PWMBaseExpression
	case InstrumentSupersaw:
		return SupersawBaseExpression
	case InstrumentPickedString:
		return PickedStringBaseExpression
	}
	return 0
}

// UsesLoopRegion reports whether chip playback must follow the loop
// settings instead of cycling the whole wave.
func (inst *Instrument) UsesLoopRegion() bool {
	return inst.ChipWaveLoopMode != LoopForward || inst.ChipWaveBackwards ||
		inst.ChipWaveLoopStart != 0 || inst.ChipWaveLoopEnd != CustomChipWaveLength
}

// IsNoiseFlavored reports whether the instrument plays noise-channel style
// pitches without octave or key offsets.
func (inst *Instrument) IsNoiseFlavored() bool {
	return inst.Type == InstrumentNoise || inst.Type == InstrumentSpectrum || inst.Type == InstrumentDrumset
}

// Normalize clamps every setting into range.
func (inst *Instrument) Normalize() {
	inst.Volume = clampInt(inst.Volume, -VolumeRange/2, VolumeRange/2)
	inst.Pan = clampInt(inst.Pan, 0, PanMax)
	inst.PanDelay = clampInt(inst.PanDelay, 0, PanDelayRange)
	inst.FadeIn = clampInt(inst.FadeIn, 0, FadeInRange-1)
	inst.FadeOut = clampInt(inst.FadeOut, 0, len(FadeOutTicks)-1)
	inst.Transition = clampInt(inst.Transition, 0, len(Transitions)-1)
	inst.Chord = clampInt(inst.Chord, 0, len(Chords)-1)
	inst.ArpeggioSpeed = clampInt(inst.ArpeggioSpeed, 0, ArpSpeedScaleCount-1)
	inst.Vibrato = clampInt(inst.Vibrato, 0, VibratoCustom)
	inst.Unison = clampInt(inst.Unison, 0, UnisonCustom)
	inst.UnisonVoices = clampInt(inst.UnisonVoices, 1, UnisonVoicesMax)
	inst.ChipWave = clampInt(inst.ChipWave, 0, len(ChipWaves)-1)
	inst.ChipNoise = clampInt(inst.ChipNoise, 0, len(ChipNoises)-1)
	inst.ChipWaveLoopMode = clampInt(inst.ChipWaveLoopMode, 0, LoopModeCount-1)
	inst.ChipWaveLoopStart = clampInt(inst.ChipWaveLoopStart, 0, CustomChipWaveLength-1)
	inst.ChipWaveLoopEnd = clampInt(inst.ChipWaveLoopEnd, inst.ChipWaveLoopStart+1, CustomChipWaveLength)
	for i := range inst.Harmonics {
		inst.Harmonics[i] = clampInt(inst.Harmonics[i], 0, HarmonicsMax)
	}
	for i := range inst.Spectrum {
		inst.Spectrum[i] = clampInt(inst.Spectrum[i], 0, SpectrumMax)
	}
	for d := range inst.DrumsetSpectra {
		for i := range inst.DrumsetSpectra[d] {
			inst.DrumsetSpectra[d][i] = clampInt(inst.DrumsetSpectra[d][i], 0, SpectrumMax)
		}
	}
	inst.PulseWidth = clampInt(inst.PulseWidth, 1, PulseWidthRange)
	inst.SupersawDynamism = clampInt(inst.SupersawDynamism, 0, SupersawDynamismMax)
	inst.SupersawSpread = clampInt(inst.SupersawSpread, 0, SupersawSpreadMax)
	inst.SupersawShape = clampInt(inst.SupersawShape, 0, SupersawShapeMax)
	inst.StringSustain = clampInt(inst.StringSustain, 0, SustainRange-1)
	inst.StringSustainType = clampInt(inst.StringSustainType, SustainBright, SustainAcoustic)
	inst.FeedbackAmplitude = clampInt(inst.FeedbackAmplitude, 0, OperatorAmplitudeMax)
	for i := range inst.Operators {
		op := &inst.Operators[i]
		op.Frequency = clampInt(op.Frequency, 0, len(OperatorFrequencies)-1)
		op.Amplitude = clampInt(op.Amplitude, 0, OperatorAmplitudeMax)
		op.Waveform = clampInt(op.Waveform, 0, OperatorWaveCount-1)
		op.PulseWidth = clampInt(op.PulseWidth, 1, PulseWidthRange)
	}
	inst.NoteFilter.Normalize()
	inst.EQFilter.Normalize()
	inst.Distortion = clampInt(inst.Distortion, 0, DistortionRange-1)
	inst.BitcrusherFreq = clampInt(inst.BitcrusherFreq, 0, BitcrusherFreqRange-1)
	inst.BitcrusherQuantization = clampInt(inst.BitcrusherQuantization, 0, BitcrusherQuantRange-1)
	inst.RingModulation = clampInt(inst.RingModulation, 0, RingModRange-1)
	inst.RingModulationHz = clampInt(inst.RingModulationHz, 0, RingModHzRange-1)
	inst.RingModWaveform = clampInt(inst.RingModWaveform, 0, RingModWaveCount-1)
	inst.Chorus = clampInt(inst.Chorus, 0, ChorusRange-1)
	inst.EchoSustain = clampInt(inst.EchoSustain, 0, EchoSustainRange-1)
	inst.EchoDelay = clampInt(inst.EchoDelay, 0, EchoDelayRange-1)
	inst.Reverb = clampInt(inst.Reverb, 0, ReverbRange-1)
	inst.Granular = clampInt(inst.Granular, 0, GranularRange-1)
	inst.GrainSize = clampInt(inst.GrainSize, GrainSizeMin, GrainSizeMax)
	inst.GrainAmounts = clampInt(inst.GrainAmounts, 0, GrainAmountsMax)
	inst.GrainRange = clampInt(inst.GrainRange, 0, GrainRangeMax)
	inst.PitchShift = clampInt(inst.PitchShift, 0, PitchShiftRange-1)
	inst.Detune = clampInt(inst.Detune, -DetuneCenter, DetuneMax-DetuneCenter)
	inst.EnvelopeSpeed = clampInt(inst.EnvelopeSpeed, 0, EnvelopeSpeedCount-1)
	if len(inst.Envelopes) > MaxEnvelopeCount {
		inst.Envelopes = inst.Envelopes[:MaxEnvelopeCount]
	}
	for i := range inst.Envelopes {
		inst.Envelopes[i].Normalize()
	}
}

// NewInstrument returns an instrument of type t with neutral settings.
func NewInstrument(t InstrumentType) *Instrument {
	inst := &Instrument{
		Type:             t,
		Pan:              PanCenter,
		FadeOut:          FadeOutNeutral,
		ArpeggioSpeed:    12,
		VibratoSpeed:     1,
		UnisonVoices:     1,
		UnisonExpression: 1.4,
		UnisonSign:       1,
		ChipWave:         2,
		ChipWaveLoopMode: LoopForward,
		ChipWaveLoopEnd:  CustomChipWaveLength,
		PulseWidth:       PulseWidthRange,
		SupersawDynamism: SupersawDynamismMax,
		SupersawSpread:   SupersawSpreadMax / 2,
		StringSustain:    10,
		GrainSize:        120,
		GrainAmounts:     8,
		GrainRange:       40,
		PitchShift:       PitchShiftCenter,
		EchoSustain:      3,
		EchoDelay:        11,
		Chorus:           1,
		Reverb:           8,
		Distortion:       2,
		BitcrusherFreq:   BitcrusherFreqRange / 2,
		EnvelopeSpeed:    DefaultEnvelopeSpeed,
		RingModulation:   RingModRange / 2,
		RingModulationHz: RingModHzRange / 2,
	}
	for i := range inst.CustomChipWave {
		// one cycle of a sine, scaled to the editor's [-24, 24] range
		inst.CustomChipWave[i] = 24 * sinTurns(float64(i)/CustomChipWaveLength)
	}
	for i := range inst.Harmonics {
		if i < 4 {
			inst.Harmonics[i] = HarmonicsMax - i
		}
	}
	for i := range inst.Spectrum {
		inst.Spectrum[i] = SpectrumMax / 2
	}
	for d := range inst.DrumsetSpectra {
		for i := range inst.DrumsetSpectra[d] {
			if i >= d*2 && i < d*2+8 {
				inst.DrumsetSpectra[d][i] = SpectrumMax
			}
		}
	}
	inst.Operators[0] = Operator{Frequency: 0, Amplitude: OperatorAmplitudeMax, PulseWidth: PulseWidthRange / 2}
	for i := 1; i < OperatorCount; i++ {
		inst.Operators[i] = Operator{Frequency: 2, PulseWidth: PulseWidthRange / 2}
	}
	if t == InstrumentNoise {
		inst.ChipNoise = NoiseRetro
	}
	return inst
}

func sinTurns(turns float64) float64 { return math.Sin(turns * 2 * math.Pi) }
