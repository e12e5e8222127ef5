package song

// ModSetting is an automation target of a mod instrument slot.
type ModSetting int

const (
	ModNone ModSetting = iota
	ModSongVolume
	ModTempo
	ModSongReverb
	ModNextBar
	ModSongDetune
	ModSongEQ
	ModVolume
	ModPan
	ModReverb
	ModDistortion
	ModFMSlider1
	ModFMSlider2
	ModFMSlider3
	ModFMSlider4
	ModFMFeedback
	ModPulseWidth
	ModDetune
	ModVibratoDepth
	ModVibratoSpeed
	ModVibratoDelay
	ModArpSpeed
	ModResetArp
	ModPanDelay
	ModEQFilter
	ModNoteFilter
	ModBitcrusherQuant
	ModBitcrusherFreq
	ModChorus
	ModEcho
	ModEchoDelay
	ModEnvelopeSpeed
	ModResetEnvelope
	ModSupersawDynamism
	ModSupersawSpread
	ModSupersawShape
	ModRingMod
	ModRingModHz
	ModGranular
	ModGrainAmount
	ModGrainSize
	ModGrainRange
	ModIndividualEnvelopeSpeed
	ModIndividualEnvelopeLower
	ModIndividualEnvelopeUpper
	ModStringSustain
	ModPitchShift
	ModSettingCount
)

// ModSettingInfo describes the value range of a mod setting. A mod note pin
// of size s resolves to the setting value s+Offset.
type ModSettingInfo struct {
	Name        string
	MaxRawValue int
	Offset      int
	ForSong     bool
	// Trigger settings fire once when a note starts and are never replayed
	// from earlier bars.
	Trigger bool
	// Filter settings use ModSlot.FilterTarget to select morph or a point
	// coordinate.
	Filter bool
	// PerEnvelope settings use ModSlot.EnvelopeTarget as an envelope index.
	PerEnvelope bool
}

var ModSettings = [ModSettingCount]ModSettingInfo{
	ModNone:                    {Name: "none"},
	ModSongVolume:              {Name: "song volume", MaxRawValue: 100, ForSong: true},
	ModTempo:                   {Name: "tempo", MaxRawValue: TempoMax - TempoMin, Offset: TempoMin, ForSong: true},
	ModSongReverb:              {Name: "song reverb", MaxRawValue: ReverbRange * 2, Offset: -ReverbRange, ForSong: true},
	ModNextBar:                 {Name: "next bar", MaxRawValue: 1, ForSong: true, Trigger: true},
	ModSongDetune:              {Name: "song detune", MaxRawValue: 2400, Offset: -1200, ForSong: true},
	ModSongEQ:                  {Name: "song eq", MaxRawValue: FilterMorphCount - 1, ForSong: true, Filter: true},
	ModVolume:                  {Name: "mix volume", MaxRawValue: VolumeRange, Offset: -VolumeRange / 2},
	ModPan:                     {Name: "pan", MaxRawValue: PanMax},
	ModReverb:                  {Name: "reverb", MaxRawValue: ReverbRange - 1},
	ModDistortion:              {Name: "distortion", MaxRawValue: DistortionRange - 1},
	ModFMSlider1:               {Name: "fm slider 1", MaxRawValue: OperatorAmplitudeMax},
	ModFMSlider2:               {Name: "fm slider 2", MaxRawValue: OperatorAmplitudeMax},
	ModFMSlider3:               {Name: "fm slider 3", MaxRawValue: OperatorAmplitudeMax},
	ModFMSlider4:               {Name: "fm slider 4", MaxRawValue: OperatorAmplitudeMax},
	ModFMFeedback:              {Name: "fm feedback", MaxRawValue: OperatorAmplitudeMax},
	ModPulseWidth:              {Name: "pulse width", MaxRawValue: PulseWidthRange},
	ModDetune:                  {Name: "detune", MaxRawValue: DetuneMax, Offset: -DetuneCenter},
	ModVibratoDepth:            {Name: "vibrato depth", MaxRawValue: 50},
	ModVibratoSpeed:            {Name: "vibrato speed", MaxRawValue: 30},
	ModVibratoDelay:            {Name: "vibrato delay", MaxRawValue: 50},
	ModArpSpeed:                {Name: "arp speed", MaxRawValue: ArpSpeedScaleCount - 1},
	ModResetArp:                {Name: "reset arp", MaxRawValue: 1, Trigger: true},
	ModPanDelay:                {Name: "pan delay", MaxRawValue: PanDelayRange},
	ModEQFilter:                {Name: "eq filter", MaxRawValue: FilterMorphCount - 1, Filter: true},
	ModNoteFilter:              {Name: "note filter", MaxRawValue: FilterMorphCount - 1, Filter: true},
	ModBitcrusherQuant:         {Name: "bit crush", MaxRawValue: BitcrusherQuantRange - 1},
	ModBitcrusherFreq:          {Name: "freq crush", MaxRawValue: BitcrusherFreqRange - 1},
	ModChorus:                  {Name: "chorus", MaxRawValue: ChorusRange - 1},
	ModEcho:                    {Name: "echo", MaxRawValue: EchoSustainRange - 1},
	ModEchoDelay:               {Name: "echo delay", MaxRawValue: EchoDelayRange - 1},
	ModEnvelopeSpeed:           {Name: "envelope speed", MaxRawValue: EnvelopeSpeedCount - 1},
	ModResetEnvelope:           {Name: "reset envelope", MaxRawValue: 1, Trigger: true, PerEnvelope: true},
	ModSupersawDynamism:        {Name: "dynamism", MaxRawValue: SupersawDynamismMax},
	ModSupersawSpread:          {Name: "spread", MaxRawValue: SupersawSpreadMax},
	ModSupersawShape:           {Name: "saw shape", MaxRawValue: SupersawShapeMax},
	ModRingMod:                 {Name: "ring mod", MaxRawValue: RingModRange - 1},
	ModRingModHz:               {Name: "ring mod hz", MaxRawValue: RingModHzRange - 1},
	ModGranular:                {Name: "granular", MaxRawValue: GranularRange - 1},
	ModGrainAmount:             {Name: "grain freq", MaxRawValue: GrainAmountsMax},
	ModGrainSize:               {Name: "grain size", MaxRawValue: (GrainSizeMax - GrainSizeMin) / GrainSizeStep, Offset: GrainSizeMin / GrainSizeStep},
	ModGrainRange:              {Name: "grain range", MaxRawValue: GrainRangeMax / GrainSizeStep},
	ModIndividualEnvelopeSpeed: {Name: "individual envelope speed", MaxRawValue: EnvelopeSpeedCount - 1, PerEnvelope: true},
	ModIndividualEnvelopeLower: {Name: "individual envelope lower bound", MaxRawValue: EnvelopeBoundMax * 10, PerEnvelope: true},
	ModIndividualEnvelopeUpper: {Name: "individual envelope upper bound", MaxRawValue: EnvelopeBoundMax * 10, PerEnvelope: true},
	ModStringSustain:           {Name: "sustain", MaxRawValue: SustainRange - 1},
	ModPitchShift:              {Name: "pitch shift", MaxRawValue: PitchShiftRange - 1},
}

func (m ModSetting) String() string {
	if m >= 0 && m < ModSettingCount {
		return ModSettings[m].Name
	}
	return "invalid"
}

// Info returns the descriptor of m, or that of ModNone when out of range.
func (m ModSetting) Info() ModSettingInfo {
	if m >= 0 && m < ModSettingCount {
		return ModSettings[m]
	}
	return ModSettings[ModNone]
}

// MaxRawValue is the largest pin size for a slot. Filter settings that
// address a single control point use that axis's range instead of the morph
// range.
func (s ModSlot) MaxRawValue() int {
	info := s.Setting.Info()
	if info.Filter && s.FilterTarget > 0 {
		if (s.FilterTarget-1)%2 == 0 {
			return FilterFreqRange - 1
		}
		return FilterGainRange - 1
	}
	return info.MaxRawValue
}

// FilterTargetPoint decodes a non-zero FilterTarget into a control point
// index and an axis (0 = frequency, 1 = gain).
func FilterTargetPoint(target int) (point, axis int) {
	if target <= 0 {
		return -1, 0
	}
	return (target - 1) / 2, (target - 1) % 2
}

// FilterTargetFor encodes a control point axis as a FilterTarget.
func FilterTargetFor(point, axis int) int { return 1 + point*2 + axis }
