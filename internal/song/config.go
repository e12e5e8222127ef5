package song

import "math"

// Time hierarchy. Ticks per part is fixed for every song; parts per beat is
// chosen per song (Song.PartsPerBeat) but never changes during playback.
const (
	TicksPerPart        = 2
	DefaultPartsPerBeat = 24
	DefaultBeatsPerBar  = 8
	TempoMin            = 30
	TempoMax            = 500
)

const (
	PitchesPerOctave = 12
	MaxPitch         = 108
	DrumCount        = 12
	// Semitones between adjacent rows of a noise channel.
	NoiseInterval = 6
	MaxChordSize  = 9
	NoteSizeMax   = 3
	// Octave applied to channel octave settings before adding note pitches.
	PitchOctaves = 8
)

const (
	VolumeRange    = 50
	VolumeLogScale = 0.1428
	PanMax         = 100
	PanCenter      = 50
	PanDelayRange  = 20
	// Maximum inter-ear delay used by the panning stage.
	PanDelaySecondsMax = 0.001
)

const (
	ChipBaseExpression         = 0.03375
	FMBaseExpression           = 0.03
	NoiseBaseExpression        = 0.19
	SpectrumBaseExpression     = 0.3
	DrumsetBaseExpression      = 0.45
	HarmonicsBaseExpression    = 0.025
	PWMBaseExpression          = 0.04725
	SupersawBaseExpression     = 0.061425
	PickedStringBaseExpression = 0.025
	DistortionBaseVolume       = 0.011
	BitcrusherBaseVolume       = 0.010
	SpectrumBasePitch          = 24
)

const (
	FilterFreqRange            = 34
	FilterFreqStep             = 1.0 / 4.0
	FilterFreqReferenceSetting = 28
	FilterFreqReferenceHz      = 8000.0
	FilterGainRange            = 15
	FilterGainCenter           = 7
	FilterGainStep             = 1.0 / 2.0
	FilterMaxPoints            = 8
	FilterMorphCount           = 10
	// Bounds on the corner frequency of any filter, in Hz.
	FilterFreqMaxHz = FilterFreqReferenceHz * 2.378414230005442 // 2^((FilterFreqRange-1-FilterFreqReferenceSetting)*FilterFreqStep)
	FilterFreqMinHz = 8.0
)

const (
	ReverbRange            = 32
	ReverbDelayBufferSize  = 16384
	ReverbShelfHz          = 8000.0
	ChorusRange            = 8
	ChorusPeriodSeconds    = 2.0
	ChorusDelayRange       = 0.0034
	ChorusMaxDelay         = ChorusDelayRange * (1.0 + 3.35)
	EchoSustainRange       = 8
	EchoDelayRange         = 24
	EchoDelayStepTicks     = 4
	EchoShelfHz            = 4000.0
	DistortionRange        = 8
	BitcrusherFreqRange    = 14
	BitcrusherOctaveStep   = 0.5
	BitcrusherQuantRange   = 8
	RingModRange           = 8
	RingModHzRange         = 64
	RingModMinHz           = 20.0
	RingModMaxHz           = 4000.0
	GranularRange          = 8
	GrainSizeMin           = 40
	GrainSizeMax           = 2000
	GrainSizeStep          = 40
	GrainRangeMax          = 1600
	GrainAmountsMax        = 10
	PitchShiftRange        = 25
	PitchShiftCenter       = 12
	DetuneCenter           = 200
	DetuneMax              = 400
	SustainRange           = 15
	ArpSpeedScaleCount     = 29
	EnvelopeSpeedCount     = 24
	PulseWidthRange        = 50
	SupersawVoiceCount     = 7
	SupersawDynamismMax    = 6
	SupersawSpreadMax      = 12
	SupersawShapeMax       = 6
	HarmonicsControlPoints = 28
	HarmonicsRendered      = 64
	HarmonicsMax           = 7
	SpectrumControlPoints  = 30
	SpectrumMax            = 7
	OperatorCount          = 4
	OperatorAmplitudeMax   = 15
	UnisonVoicesMax        = 9
	FadeInRange            = 10
	ModCount               = 6
	MaxEnvelopeCount       = 12
	EnvelopeBoundMax       = 2.0
	RandomEnvelopeStepsMax = 24
	RandomEnvelopeSeedMax  = 64
	ChipWaveLength         = 64
	CustomChipWaveLength   = 64
	ChipNoiseLength        = 1 << 15
	SpectrumNoiseLength    = 1 << 15
	SineWaveLength         = 1 << 8
	ArpeggioFastTicks      = 0
)

// FadeOutTicks maps an instrument fade-out setting to release ticks. Negative
// values start the release before the note ends.
var FadeOutTicks = [...]int{-24, -12, -6, -3, -1, 6, 12, 24, 48, 72, 96}

// FadeOutNeutral is the fade-out setting used by new instruments.
const FadeOutNeutral = 4

// ArpSpeedScale maps the arpeggio speed setting to a multiplier of the base
// arpeggio rate.
var ArpSpeedScale = [ArpSpeedScaleCount]float64{
	0, 0.0625, 0.125, 0.2, 0.25, 1.0 / 3.0, 0.4, 0.5, 2.0 / 3.0, 0.75, 0.8, 0.9,
	1, 1.0625, 1.1, 1.2, 1.25, 4.0 / 3.0, 1.4, 1.5, 5.0 / 3.0, 1.75, 1.8, 1.9,
	2, 2.25, 2.5, 3, 4,
}

// EnvelopeSpeedScale maps an envelope speed setting to a time multiplier.
var EnvelopeSpeedScale = [EnvelopeSpeedCount]float64{
	0, 0.01, 0.02, 0.025, 0.05, 0.1, 0.125, 0.2, 0.25, 1.0 / 3.0, 0.4, 0.5,
	2.0 / 3.0, 0.75, 0.8, 0.9, 1, 1.25, 4.0 / 3.0, 1.5, 2, 3, 4, 8,
}

// DefaultEnvelopeSpeed is the setting whose scale is 1.
const DefaultEnvelopeSpeed = 16

// Key describes a song key; BasePitch is the MIDI-like pitch of the lowest C
// reachable in channel octave zero.
type Key struct {
	Name      string
	BasePitch int
}

var Keys = [...]Key{
	{"C", 12}, {"C♯", 13}, {"D", 14}, {"D♯", 15}, {"E", 16}, {"F", 17},
	{"F♯", 18}, {"G", 19}, {"G♯", 20}, {"A", 21}, {"A♯", 22}, {"B", 23},
}

// Rhythm determines how many ticks an arpeggio step lasts.
type Rhythm struct {
	Name             string
	StepsPerBeat     int
	TicksPerArpeggio int
	RoundUpThreshold float64
}

var Rhythms = [...]Rhythm{
	{"÷3 (triplets)", 3, 4, 5.0 / 12.0},
	{"÷4 (standard)", 4, 3, 3.0 / 8.0},
	{"÷6", 6, 4, 0},
	{"÷8", 8, 3, 1.0 / 8.0},
	{"freehand", 24, 3, 0},
}

// ChipWave is one raw single-cycle waveform. The synthesizer integrates it
// before playback.
type ChipWave struct {
	Name       string
	Expression float64
	Samples    []float64
}

var ChipWaves = []ChipWave{
	{"rounded", 0.94, []float64{0.0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 0.95, 0.9, 0.85, 0.8, 0.7, 0.6, 0.5, 0.4, 0.2, 0.0, -0.2, -0.4, -0.5, -0.6, -0.7, -0.8, -0.85, -0.9, -0.95, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -0.95, -0.9, -0.85, -0.8, -0.7, -0.6, -0.5, -0.4, -0.2}},
	{"triangle", 1.0, []float64{1.0 / 15.0, 3.0 / 15.0, 5.0 / 15.0, 7.0 / 15.0, 9.0 / 15.0, 11.0 / 15.0, 13.0 / 15.0, 15.0 / 15.0, 15.0 / 15.0, 13.0 / 15.0, 11.0 / 15.0, 9.0 / 15.0, 7.0 / 15.0, 5.0 / 15.0, 3.0 / 15.0, 1.0 / 15.0, -1.0 / 15.0, -3.0 / 15.0, -5.0 / 15.0, -7.0 / 15.0, -9.0 / 15.0, -11.0 / 15.0, -13.0 / 15.0, -15.0 / 15.0, -15.0 / 15.0, -13.0 / 15.0, -11.0 / 15.0, -9.0 / 15.0, -7.0 / 15.0, -5.0 / 15.0, -3.0 / 15.0, -1.0 / 15.0}},
	{"square", 0.5, []float64{1.0, -1.0}},
	{"1/4 pulse", 0.5, []float64{1.0, -1.0, -1.0, -1.0}},
	{"1/8 pulse", 0.5, []float64{1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0, -1.0}},
	{"sawtooth", 0.65, []float64{1.0 / 31.0, 3.0 / 31.0, 5.0 / 31.0, 7.0 / 31.0, 9.0 / 31.0, 11.0 / 31.0, 13.0 / 31.0, 15.0 / 31.0, 17.0 / 31.0, 19.0 / 31.0, 21.0 / 31.0, 23.0 / 31.0, 25.0 / 31.0, 27.0 / 31.0, 29.0 / 31.0, 31.0 / 31.0, -31.0 / 31.0, -29.0 / 31.0, -27.0 / 31.0, -25.0 / 31.0, -23.0 / 31.0, -21.0 / 31.0, -19.0 / 31.0, -17.0 / 31.0, -15.0 / 31.0, -13.0 / 31.0, -11.0 / 31.0, -9.0 / 31.0, -7.0 / 31.0, -5.0 / 31.0, -3.0 / 31.0, -1.0 / 31.0}},
	{"double saw", 0.5, []float64{0.0, -0.2, -0.4, -0.6, -0.8, -1.0, 1.0, -0.8, -0.6, -0.4, -0.2, 1.0, 0.8, 0.6, 0.4, 0.2}},
	{"double pulse", 0.4, []float64{1.0, 1.0, 1.0, 1.0, 1.0, -1.0, -1.0, -1.0, 1.0, 1.0, 1.0, 1.0, -1.0, -1.0, -1.0, -1.0}},
	{"spiky", 0.4, []float64{1.0, -1.0, 1.0, -1.0, 1.0, 0.0}},
}

// ChipNoise describes a looped noise wavetable.
type ChipNoise struct {
	Name            string
	Expression      float64
	BasePitch       float64
	PitchFilterMult float64
	IsSoft          bool
}

const (
	NoiseRetro = iota
	NoiseWhite
	NoiseClang
	NoiseBuzz
	NoiseHollow
	NoiseShine
	NoiseDeep
	NoiseCutter
	NoiseMetallic
)

var ChipNoises = [...]ChipNoise{
	{"retro", 0.25, 69, 1024.0, false},
	{"white", 1.0, 69, 8.0, true},
	{"clang", 0.4, 69, 1024.0, false},
	{"buzz", 0.3, 69, 1024.0, false},
	{"hollow", 1.5, 96, 1.0, true},
	{"shine", 1.0, 69, 1024.0, false},
	{"deep", 1.5, 120, 1024.0, true},
	{"cutter", 0.005, 96, 1024.0, false},
	{"metallic", 1.0, 96, 1024.0, false},
}

// Transition is a voice-continuation policy.
type Transition struct {
	Name                    string
	IsSeamless              bool
	Continues               bool
	Slides                  bool
	SlideTicks              int
	IncludeAdjacentPatterns bool
	RestartsPhase           bool
}

const (
	TransitionNormal = iota
	TransitionInterrupt
	TransitionContinue
	TransitionSlide
	TransitionSlideInPattern
)

var Transitions = [...]Transition{
	{Name: "normal", SlideTicks: 3},
	{Name: "interrupt", IsSeamless: true, SlideTicks: 3, IncludeAdjacentPatterns: true, RestartsPhase: true},
	{Name: "continue", IsSeamless: true, Continues: true, SlideTicks: 3, IncludeAdjacentPatterns: true},
	{Name: "slide", IsSeamless: true, Slides: true, SlideTicks: 3, IncludeAdjacentPatterns: true},
	{Name: "slide in pattern", IsSeamless: true, Slides: true, SlideTicks: 3},
}

// Chord is a policy for notes holding more than one pitch.
type Chord struct {
	Name           string
	CustomInterval bool
	Arpeggiates    bool
	StrumParts     int
	SingleTone     bool
}

const (
	ChordSimultaneous = iota
	ChordStrum
	ChordArpeggio
	ChordCustomInterval
)

var Chords = [...]Chord{
	{Name: "simultaneous"},
	{Name: "strum", StrumParts: 1},
	{Name: "arpeggio", Arpeggiates: true, SingleTone: true},
	{Name: "custom interval", CustomInterval: true, SingleTone: true},
}

// Vibrato preset. PeriodsSeconds are summed sine components.
type Vibrato struct {
	Name           string
	Amplitude      float64
	PeriodsSeconds []float64
	DelayTicks     int
}

var Vibratos = [...]Vibrato{
	{"none", 0.0, []float64{0.14}, 0},
	{"light", 0.15, []float64{0.14}, 0},
	{"delayed", 0.3, []float64{0.14}, 37},
	{"heavy", 0.45, []float64{0.14}, 0},
	{"shaky", 0.1, []float64{0.11, 1.618 * 0.11, 3 * 0.11}, 0},
}

// Unison preset. Voices are spread Spread semitones around Offset.
type Unison struct {
	Name       string
	Voices     int
	Spread     float64
	Offset     float64
	Expression float64
	Sign       float64
}

var Unisons = [...]Unison{
	{"none", 1, 0.0, 0.0, 1.4, 1.0},
	{"shimmer", 2, 0.018, 0.0, 0.8, 1.0},
	{"hum", 2, 0.045, 0.0, 1.0, 1.0},
	{"honky tonk", 2, 0.09, 0.0, 1.0, 1.0},
	{"dissonant", 2, 0.25, 0.0, 0.9, 1.0},
	{"fifth", 2, 3.5, 3.5, 0.9, 1.0},
	{"octave", 2, 6.0, 6.0, 0.8, 1.0},
	{"bowed", 2, 0.02, 0.0, 1.0, -1.0},
	{"piano", 2, 0.01, 0.0, 1.0, 0.7},
	{"warbled", 2, 0.25, 0.05, 0.9, -0.8},
}

// OperatorFrequency is one FM operator frequency ratio choice.
type OperatorFrequency struct {
	Name          string
	Mult          float64
	HzOffset      float64
	AmplitudeSign float64
}

var OperatorFrequencies = [...]OperatorFrequency{
	{"1×", 1.0, 0.0, 1.0},
	{"~1×", 1.0, 1.5, -1.0},
	{"2×", 2.0, 0.0, 1.0},
	{"~2×", 2.0, -1.3, -1.0},
	{"3×", 3.0, 0.0, 1.0},
	{"4×", 4.0, 0.0, 1.0},
	{"5×", 5.0, 0.0, 1.0},
	{"6×", 6.0, 0.0, 1.0},
	{"7×", 7.0, 0.0, 1.0},
	{"8×", 8.0, 0.0, 1.0},
	{"9×", 9.0, 0.0, 1.0},
	{"11×", 11.0, 0.0, 1.0},
	{"13×", 13.0, 0.0, 1.0},
	{"16×", 16.0, 0.0, 1.0},
	{"20×", 20.0, 0.0, 1.0},
}

// OperatorCarrierInterval detunes each carrier slightly so stacked carriers
// beat against each other.
var OperatorCarrierInterval = [OperatorCount]float64{0.0, 0.04, -0.073, 0.091}

// NoteSizeToVolumeMult converts a pin size to a linear amplitude.
func NoteSizeToVolumeMult(size float64) float64 {
	return math.Pow(math.Max(0, size)/NoteSizeMax, 1.5)
}

// VolumeMultToNoteSize inverts NoteSizeToVolumeMult.
func VolumeMultToNoteSize(volumeMult float64) float64 {
	return math.Pow(math.Max(0, volumeMult), 1/1.5) * NoteSizeMax
}

// InstrumentVolumeToVolumeMult converts an instrument volume setting in
// [-VolumeRange/2, VolumeRange/2] to a linear multiplier.
func InstrumentVolumeToVolumeMult(volume float64) float64 {
	if volume <= -VolumeRange/2 {
		return 0
	}
	return math.Pow(2, VolumeLogScale*volume)
}

// FadeInSettingToSeconds converts the fade-in setting to seconds.
func FadeInSettingToSeconds(setting int) float64 {
	s := float64(setting)
	return 0.0125 * (0.95*s + 0.05*s*s)
}

// FadeOutSettingToTicks clamps setting into the fade-out table.
func FadeOutSettingToTicks(setting int) int {
	return FadeOutTicks[clampInt(setting, 0, len(FadeOutTicks)-1)]
}

// OperatorAmplitudeCurve maps an operator amplitude setting to a linear
// modulation amount.
func OperatorAmplitudeCurve(amplitude float64) float64 {
	return (math.Pow(16.0, amplitude/15.0) - 1.0) / 15.0
}

// FrequencyFromPitch converts a fractional MIDI-like pitch to Hz.
func FrequencyFromPitch(pitch float64) float64 {
	return 440.0 * math.Pow(2.0, (pitch-69.0)/12.0)
}

// DrumsetIndexReferenceDelta is the phase delta of the drumset wave at its
// reference pitch.
func DrumsetIndexReferenceDelta(index int) float64 {
	return FrequencyFromPitch(SpectrumBasePitch+float64(index)*6.0) / 44100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
