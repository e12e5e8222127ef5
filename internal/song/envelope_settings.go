package song

// EnvelopeTarget names the synthesis parameter an envelope scales.
type EnvelopeTarget int

const (
	EnvTargetNone EnvelopeTarget = iota
	EnvTargetNoteVolume
	EnvTargetPulseWidth
	EnvTargetStringSustain
	EnvTargetUnison
	EnvTargetOperatorFrequency
	EnvTargetOperatorAmplitude
	EnvTargetFeedbackAmplitude
	EnvTargetPitchShift
	EnvTargetDetune
	EnvTargetVibratoDepth
	EnvTargetNoteFilterAllFreqs
	EnvTargetNoteFilterFreq
	EnvTargetNoteFilterGain
	EnvTargetSupersawDynamism
	EnvTargetSupersawSpread
	EnvTargetSupersawShape
	EnvTargetPanning
	EnvTargetDistortion
	EnvTargetBitcrusherQuantization
	EnvTargetBitcrusherFrequency
	EnvTargetChorus
	EnvTargetEchoSustain
	EnvTargetReverb
	EnvTargetArpeggioSpeed
	EnvTargetRingModulation
	EnvTargetRingModulationHz
	EnvTargetGranular
	EnvTargetGrainAmount
	EnvTargetGrainSize
	EnvTargetGrainRange
	EnvTargetCount
)

// EnvelopeTargetSlots is the number of indexable instances of each target.
var EnvelopeTargetSlots = [EnvTargetCount]int{
	EnvTargetOperatorFrequency: OperatorCount,
	EnvTargetOperatorAmplitude: OperatorCount,
	EnvTargetNoteFilterFreq:    FilterMaxPoints,
	EnvTargetNoteFilterGain:    FilterMaxPoints,
}

var envelopeComputeBase [EnvTargetCount]int

// EnvelopeComputeCount is the length of the flattened per-tick envelope
// output arrays.
var EnvelopeComputeCount int

// MaxEnvelopeComputeCount bounds EnvelopeComputeCount for fixed arrays.
const MaxEnvelopeComputeCount = 64

func init() {
	n := 0
	for t := EnvelopeTarget(0); t < EnvTargetCount; t++ {
		if EnvelopeTargetSlots[t] == 0 {
			EnvelopeTargetSlots[t] = 1
		}
		envelopeComputeBase[t] = n
		n += EnvelopeTargetSlots[t]
	}
	if n > MaxEnvelopeComputeCount {
		panic("song: envelope targets exceed MaxEnvelopeComputeCount")
	}
	EnvelopeComputeCount = n
}

// ComputeIndex flattens (target, index) into the envelope output arrays.
func (t EnvelopeTarget) ComputeIndex(index int) int {
	if t < 0 || t >= EnvTargetCount {
		return envelopeComputeBase[EnvTargetNone]
	}
	return envelopeComputeBase[t] + clampInt(index, 0, EnvelopeTargetSlots[t]-1)
}

// EnvelopeShape is the curve family of one envelope.
type EnvelopeShape int

const (
	EnvelopeNone EnvelopeShape = iota
	EnvelopeNoteSize
	EnvelopePitch
	EnvelopePunch
	EnvelopeFlare
	EnvelopeTwang
	EnvelopeSwell
	EnvelopeTremolo
	EnvelopeTremolo2
	EnvelopeDecay
	EnvelopeWibble
	EnvelopeLinear
	EnvelopeRise
	EnvelopeBlip
	EnvelopeLFO
	EnvelopeRandom
	EnvelopeShapeCount
)

// LFO waveforms for EnvelopeLFO.
const (
	LFOSine = iota
	LFOSquare
	LFOTriangle
	LFOSawtooth
	LFOTrapezoid
	LFOSteppedSaw
	LFOSteppedTriangle
	LFOWaveformCount
)

// Random envelope sources for EnvelopeRandom.
const (
	RandomTime = iota
	RandomTimeSmooth
	RandomPitch
	RandomNote
	RandomTypeCount
)

// EnvelopeSettings assigns one envelope to one target.
type EnvelopeSettings struct {
	Target EnvelopeTarget
	Index  int
	Shape  EnvelopeShape
	// Speed is the shape's own rate constant.
	Speed float64
	// PerEnvelopeSpeed scales how fast this envelope's clock runs; zero is
	// treated as one.
	PerEnvelopeSpeed float64
	LowerBound       float64
	UpperBound       float64
	Inverse          bool
	Discrete         bool
	Steps            int
	Seed             int
	Waveform         int
	PitchStart       int
	PitchEnd         int
}

// Bounds returns the output range, falling back to [0, 1] when the stored
// pair is inverted.
func (e *EnvelopeSettings) Bounds() (lower, upper float64) {
	lower = clampFloat(e.LowerBound, 0, EnvelopeBoundMax)
	upper = clampFloat(e.UpperBound, 0, EnvelopeBoundMax)
	if lower > upper {
		return 0, 1
	}
	return lower, upper
}

// Normalize clamps the settings and repairs inverted bounds.
func (e *EnvelopeSettings) Normalize() {
	if e.Target < 0 || e.Target >= EnvTargetCount {
		e.Target = EnvTargetNone
	}
	e.Index = clampInt(e.Index, 0, EnvelopeTargetSlots[e.Target]-1)
	if e.Shape < 0 || e.Shape >= EnvelopeShapeCount {
		e.Shape = EnvelopeNone
	}
	e.LowerBound, e.UpperBound = e.Bounds()
	e.Steps = clampInt(e.Steps, 1, RandomEnvelopeStepsMax)
	e.Seed = clampInt(e.Seed, 0, RandomEnvelopeSeedMax)
	switch e.Shape {
	case EnvelopeLFO:
		e.Waveform = clampInt(e.Waveform, 0, LFOWaveformCount-1)
	case EnvelopeRandom:
		e.Waveform = clampInt(e.Waveform, 0, RandomTypeCount-1)
	}
	e.PitchStart = clampInt(e.PitchStart, 0, MaxPitch)
	e.PitchEnd = clampInt(e.PitchEnd, 0, MaxPitch)
	if e.PerEnvelopeSpeed < 0 {
		e.PerEnvelopeSpeed = 0
	}
}

// NewEnvelope returns an envelope with default bounds. Punch gets an upper
// bound of 2 so its peak can boost the target.
func NewEnvelope(target EnvelopeTarget, index int, shape EnvelopeShape, speed float64) EnvelopeSettings {
	upper := 1.0
	if shape == EnvelopePunch {
		upper = 2
	}
	return EnvelopeSettings{
		Target:           target,
		Index:            index,
		Shape:            shape,
		Speed:            speed,
		PerEnvelopeSpeed: 1,
		LowerBound:       0,
		UpperBound:       upper,
		Steps:            2,
		PitchEnd:         MaxPitch,
	}
}
