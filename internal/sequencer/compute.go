package sequencer

import (
	"fmt"
	"math"

	"github.com/cbegin/trackersynth/internal/envelope"
	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/fm"
	"github.com/cbegin/trackersynth/internal/lfo"
	"github.com/cbegin/trackersynth/internal/pickedstring"
	"github.com/cbegin/trackersynth/internal/song"
	"github.com/cbegin/trackersynth/internal/wavetable"
)

const (
	customChipExpression = 0.5 / 24
	// releasedStringDecay damps a released picked string.
	releasedStringDecay     = 0.8
	supersawSpreadSemitones = 1.5
	lowestDelayHz           = 8.0
)

// supersawOffsets spread the supersaw voices around the centre voice.
var supersawOffsets = [song.SupersawVoiceCount]float64{0, 1.0 / 3, -1.0 / 3, 2.0 / 3, -2.0 / 3, 1, -1}

// arpeggioPatterns index a chord's pitches per arpeggio step.
var arpeggioPatterns = [][]int{{0}, {0, 1}, {0, 1, 2, 1}}

func arpeggioIndex(count int, fastTwoNote bool, arpTime float64, ticksPerArpeggio int) int {
	if count <= 1 {
		return 0
	}
	step := float64(ticksPerArpeggio)
	if fastTwoNote && count == 2 {
		step /= 2
	}
	arp := int(math.Floor(arpTime / step))
	if count < len(arpeggioPatterns)+1 {
		p := arpeggioPatterns[count-1]
		return p[arp%len(p)]
	}
	return arp % count
}

func envPair(c *envelope.Computer, target song.EnvelopeTarget, index int) (float64, float64) {
	i := target.ComputeIndex(index)
	return c.Starts[i], c.Ends[i]
}

func firstInterval(n *song.Note) int {
	if len(n.Pins) == 0 {
		return 0
	}
	return n.Pins[0].Interval
}

func firstSize(n *song.Note) float64 {
	if len(n.Pins) == 0 {
		return song.NoteSizeMax
	}
	return float64(n.Pins[0].Size)
}

// supportsUnison reports whether the type renders unison voices.
func supportsUnison(t song.InstrumentType) bool {
	switch t {
	case song.InstrumentChip, song.InstrumentCustomChip, song.InstrumentHarmonics,
		song.InstrumentPWM, song.InstrumentPickedString:
		return true
	}
	return false
}

// computeTone prepares one tone for the coming tick: pitch, expression,
// filter gradients and the state its routine reads.
func (s *Synth) computeTone(ci int, ist *InstrumentState, t *Tone, run int) error {
	inst := ist.instrument
	rt, err := routineFor(inst, t)
	if err != nil {
		return fmt.Errorf("channel %d instrument %d: %w", ci, ist.index, err)
	}
	t.routine = rt

	sr := s.sampleRate
	fRun := float64(run)
	secondsPerTick := s.samplesPerTick / sr
	ticksPerBeat := float64(song.TicksPerPart * s.song.PartsPerBeat)
	m := &ist.mods
	chord := s.chordFor(inst)

	var intervalStart, intervalEnd float64
	sizeStart, sizeEnd := t.lastSize, t.lastSize
	var noteTicks, noteLengthTicks float64
	hasNote, passedEnd := false, false
	switch {
	case t.released:
		intervalStart, intervalEnd = t.lastInterval, t.lastInterval
		passedEnd = true
	case t.live:
		hasNote = true
		sizeStart, sizeEnd = song.NoteSizeMax, song.NoteSizeMax
		noteTicks = float64(t.liveTicks)
		noteLengthTicks = math.MaxInt32
	default:
		hasNote = true
		n := t.note
		parts := float64(s.currentPart()-n.Start) + float64(s.tick)/song.TicksPerPart
		intervalStart, sizeStart = pinAt(n, parts)
		intervalEnd, sizeEnd = pinAt(n, parts+1.0/song.TicksPerPart)
		noteTicks = float64((s.currentPart()-t.noteStartPart)*song.TicksPerPart + s.tick)
		noteLengthTicks = float64((n.End - t.noteStartPart) * song.TicksPerPart)
		if t.slides {
			slideTicks := math.Min(float64(t.slideTicks), noteLengthTicks/2)
			if t.prevNote != nil && !t.forceContinueAtStart && slideTicks > 0 {
				prev := float64(t.prevPitch + t.prevNote.LastInterval() - t.pitches[0] - firstInterval(n))
				if d := noteTicks; d < slideTicks {
					intervalStart += prev * 0.5 * (1 - d/slideTicks)
				}
				if d := noteTicks + 1; d < slideTicks {
					intervalEnd += prev * 0.5 * (1 - d/slideTicks)
				}
			}
			if t.nextNote != nil && !t.forceContinueAtEnd && slideTicks > 0 {
				next := float64(t.nextPitch + firstInterval(t.nextNote) - t.pitches[0] - n.LastInterval())
				if d := noteLengthTicks - noteTicks; d < slideTicks {
					intervalStart += next * 0.5 * (1 - d/slideTicks)
				}
				if d := noteLengthTicks - noteTicks - 1; d < slideTicks {
					intervalEnd += next * 0.5 * (1 - d/slideTicks)
				}
			}
		}
		t.lastInterval = intervalEnd
		t.lastSize = sizeEnd
	}

	// Which chord pitch sounds and where the tone sits on the keyboard.
	pitchIndex := 0
	if chord.Arpeggiates && t.pitchCount > 1 {
		rhythm := song.Rhythms[clampInt(s.song.Rhythm, 0, len(song.Rhythms)-1)]
		pitchIndex = arpeggioIndex(t.pitchCount, inst.FastTwoNoteArp, ist.arpTime, rhythm.TicksPerArpeggio)
	}
	notePitch := t.pitches[pitchIndex]
	basePitch := float64(s.song.BasePitch(ci) + notePitch)
	refPitch := 0.0
	drum := 0
	switch inst.Type {
	case song.InstrumentNoise:
		noise := song.ChipNoises[clampInt(inst.ChipNoise, 0, len(song.ChipNoises)-1)]
		refPitch = noise.BasePitch
		basePitch = refPitch + float64((notePitch-(song.DrumCount-1))*song.NoiseInterval)
	case song.InstrumentSpectrum:
		refPitch = song.SpectrumBasePitch + (song.DrumCount-1)*song.NoiseInterval
		basePitch = refPitch + float64((notePitch-(song.DrumCount-1))*song.NoiseInterval)
	case song.InstrumentDrumset:
		drum = clampInt(notePitch, 0, song.DrumCount-1)
		refPitch = song.SpectrumBasePitch + float64(drum*song.NoiseInterval)
		basePitch = refPitch
	}

	for i, reset := range m.resetEnvelope {
		if reset {
			t.env.ResetEnvelope(i)
		}
	}
	speed, _ := m.values[song.ModEnvelopeSpeed].ramp(float64(inst.EnvelopeSpeed))
	m.envelopeOverrides(&ist.overrides)
	in := &s.envInput
	*in = envelope.Input{
		Envelopes:            inst.Envelopes,
		SpeedScale:           song.EnvelopeSpeedScale[clampInt(int(speed+0.5), 0, song.EnvelopeSpeedCount-1)],
		Overrides:            &ist.overrides,
		SecondsPerTick:       secondsPerTick,
		BeatsPerTick:         1 / ticksPerBeat,
		Tick:                 noteTicks,
		HasNote:              hasNote,
		AtNoteStart:          t.atNoteStart,
		PassedEndOfNote:      passedEnd,
		Continues:            t.continues,
		ForceContinueAtStart: t.forceContinueAtStart,
		ForceContinueAtEnd:   t.forceContinueAtEnd,
		NoteEndTick:          noteLengthTicks,
		NoteSizeStart:        sizeStart,
		NoteSizeEnd:          sizeEnd,
		Slides:               t.slides && !t.live,
		SlideTicks:           float64(t.slideTicks),
		HasPrevNote:          t.prevNote != nil && !t.live,
		HasNextNote:          t.nextNote != nil && !t.live,
		NextNoteSize:         song.NoteSizeMax,
		Pitch:                basePitch + intervalStart,
		NoteID:               t.noteID,
		NoteFilter:           &ist.noteFilter[0],
	}
	if t.nextNote != nil {
		in.NextNoteSize = firstSize(t.nextNote)
	}
	t.env.Compute(in)
	c := t.env

	// Pitch offsets shared by every type.
	offStart, offEnd := intervalStart, intervalEnd
	if inst.Has(song.EffectDetune) {
		a, b := m.values[song.ModDetune].ramp(float64(inst.Detune))
		ea, eb := envPair(c, song.EnvTargetDetune, 0)
		offStart += a / 100 * ea
		offEnd += b / 100 * eb
	}
	if v := &s.mods.values[song.ModSongDetune]; v.active {
		offStart += v.current / 100
		offEnd += v.next / 100
	}
	vibratoSpeed := 1.0
	if inst.Has(song.EffectVibrato) {
		vib, speed := inst.VibratoSettings()
		amplitude := vib.Amplitude
		delay := vib.DelayTicks
		if v := &m.values[song.ModVibratoDepth]; v.active {
			amplitude = v.current / 25
		}
		if v := &m.values[song.ModVibratoSpeed]; v.active {
			speed = v.current / 10
		}
		if v := &m.values[song.ModVibratoDelay]; v.active {
			delay = int(v.current) * song.TicksPerPart
		}
		vibratoSpeed = speed
		if t.ticksSinceNote >= delay {
			ea, eb := envPair(c, song.EnvTargetVibratoDepth, 0)
			offStart += lfo.Vibrato(vib.PeriodsSeconds, t.vibratoSeconds) * amplitude * ea
			offEnd += lfo.Vibrato(vib.PeriodsSeconds, t.vibratoSeconds+secondsPerTick*speed) * amplitude * eb
		}
	}
	if inst.Has(song.EffectPitchShift) {
		a, b := m.values[song.ModPitchShift].ramp(float64(inst.PitchShift))
		ea, eb := envPair(c, song.EnvTargetPitchShift, 0)
		offStart += (a - song.PitchShiftCenter) * ea
		offEnd += (b - song.PitchShiftCenter) * eb
	}

	// Voices: unison, or the chord pitches of a custom interval chord.
	var intervals [song.UnisonVoicesMax]float64
	for i := range t.voiceSigns {
		t.voiceSigns[i] = 1
	}
	voices := 1
	voiceExpression := 1.0
	switch {
	case chord.CustomInterval && t.pitchCount > 1:
		voices = min(t.pitchCount, song.UnisonVoicesMax)
		for i := 0; i < voices; i++ {
			intervals[i] = float64(t.pitches[i] - t.pitches[0])
		}
		voiceExpression = 1 / (float64(voices-1)*0.25 + 1)
	case supportsUnison(inst.Type):
		u := inst.UnisonSettings()
		voices = clampInt(u.Voices, 1, song.UnisonVoicesMax)
		if inst.Type == song.InstrumentPickedString {
			voices = min(voices, len(t.strings))
		}
		ue, _ := envPair(c, song.EnvTargetUnison, 0)
		if voices > 1 {
			for i := 0; i < voices; i++ {
				intervals[i] = (u.Offset + u.Spread*(1-2*float64(i)/float64(voices-1))) * ue
				if i%2 == 1 {
					t.voiceSigns[i] = u.Sign
				}
			}
		}
		voiceExpression = u.Expression
		if voices > 2 {
			voiceExpression *= math.Sqrt(2 / float64(voices))
		}
	}
	t.voices = voices

	// Expression.
	exprStart := inst.BaseExpression() * voiceExpression
	switch inst.Type {
	case song.InstrumentChip:
		exprStart *= song.ChipWaves[clampInt(inst.ChipWave, 0, len(song.ChipWaves)-1)].Expression
	case song.InstrumentCustomChip:
		exprStart *= customChipExpression
	case song.InstrumentNoise:
		exprStart *= song.ChipNoises[clampInt(inst.ChipNoise, 0, len(song.ChipNoises)-1)].Expression
	}
	if !chord.SingleTone && t.chordSize > 1 {
		exprStart /= float64(t.chordSize-1)*0.25 + 1
	}
	exprEnd := exprStart
	va, vb := envPair(c, song.EnvTargetNoteVolume, 0)
	exprStart *= va
	exprEnd *= vb
	if fade := song.FadeInSettingToSeconds(inst.FadeIn); fade > 0 {
		exprStart *= math.Min(1, t.noteSeconds/fade)
		exprEnd *= math.Min(1, (t.noteSeconds+secondsPerTick)/fade)
	}
	if t.released && inst.Type != song.InstrumentPickedString {
		r := float64(max(t.releaseTicks, 1))
		exprStart *= song.NoteSizeToVolumeMult((1 - float64(t.ticksSinceReleased)/r) * song.NoteSizeMax)
		exprEnd *= song.NoteSizeToVolumeMult((1 - float64(t.ticksSinceReleased+1)/r) * song.NoteSizeMax)
	}
	exprStart *= c.LowpassCutoffDecayVolumeCompensation
	exprEnd *= c.LowpassCutoffDecayVolumeCompensation

	compStart, compEnd := s.loadNoteFilter(ist, t, fRun)
	exprStart *= compStart
	exprEnd *= compEnd

	pitchStart := basePitch + offStart
	pitchEnd := basePitch + offEnd

	switch inst.Type {
	case song.InstrumentNoise, song.InstrumentSpectrum, song.InstrumentDrumset:
		s.computeNoise(inst, t, drum, pitchStart-refPitch, pitchEnd-refPitch, fRun)
	case song.InstrumentFM:
		exprStart, exprEnd = s.computeFM(ist, t, pitchStart, pitchEnd, fRun, exprStart, exprEnd)
	case song.InstrumentMod:
	default:
		for v := 0; v < voices; v++ {
			ds := song.FrequencyFromPitch(pitchStart+intervals[v]) / sr
			de := song.FrequencyFromPitch(pitchEnd+intervals[v]) / sr
			t.phaseDeltas[v] = ds
			t.phaseDeltaScales[v] = math.Pow(de/ds, 1/fRun)
		}
		switch inst.Type {
		case song.InstrumentChip:
			if inst.UsesLoopRegion() {
				t.wave = s.waves.ChipRaw(inst.ChipWave)
			} else {
				t.wave = s.waves.Chip(inst.ChipWave)
			}
		case song.InstrumentCustomChip:
			cw := s.waves.Custom(&inst.CustomChipWave)
			if inst.UsesLoopRegion() {
				t.wave = cw.Raw
			} else {
				t.wave = cw.Integrated
			}
		case song.InstrumentHarmonics:
			t.wave = s.waves.Harmonics(&inst.Harmonics)
		case song.InstrumentPWM:
			a, b := m.values[song.ModPulseWidth].ramp(float64(inst.PulseWidth))
			ea, eb := envPair(c, song.EnvTargetPulseWidth, 0)
			t.pulseWidth = a / (song.PulseWidthRange * 2) * ea
			t.pulseWidthDelta = (b/(song.PulseWidthRange*2)*eb - t.pulseWidth) / fRun
		case song.InstrumentSupersaw:
			exprStart, exprEnd = s.computeSupersaw(ist, t, pitchStart, pitchEnd, fRun, exprStart, exprEnd)
		case song.InstrumentPickedString:
			s.computeString(ist, t, run)
		}
		if inst.UsesLoopRegion() && (inst.Type == song.InstrumentChip || inst.Type == song.InstrumentCustomChip) {
			s.computeLoop(inst, t)
		}
	}

	t.expression = exprStart
	t.expressionDelta = (exprEnd - exprStart) / fRun

	t.noteSeconds += secondsPerTick
	t.vibratoSeconds += secondsPerTick * vibratoSpeed
	t.ticksSinceNote++
	if t.live {
		t.liveTicks++
	}
	t.atNoteStart = false
	t.freshlyAllocated = false
	return nil
}

// loadNoteFilter loads the tone's note filter gradients and returns the
// filter's volume compensation at the start and end of the tick.
func (s *Synth) loadNoteFilter(ist *InstrumentState, t *Tone, run float64) (float64, float64) {
	inst := ist.instrument
	if !inst.Has(song.EffectNoteFilter) {
		t.hasNoteFilter = false
		return 1, 1
	}
	start, end := &ist.noteFilter[0], &ist.noteFilter[1]
	n := min(len(start.Points), song.FilterMaxPoints)
	if len(end.Points) != len(start.Points) {
		end = start
	}
	c := t.env
	allStart, allEnd := envPair(c, song.EnvTargetNoteFilterAllFreqs, 0)
	compStart, compEnd := 1.0, 1.0
	for i := 0; i < n; i++ {
		fs, fe := envPair(c, song.EnvTargetNoteFilterFreq, i)
		gs, ge := envPair(c, song.EnvTargetNoteFilterGain, i)
		compStart *= filter.ControlPointCoefficients(&s.coefStarts[i], start.Points[i], s.sampleRate, allStart*fs, gs)
		compEnd *= filter.ControlPointCoefficients(&s.coefEnds[i], end.Points[i], s.sampleRate, allEnd*fe, ge)
		s.coefTypes[i] = start.Points[i].Type
	}
	t.noteFilter.Load(s.coefStarts[:], s.coefEnds[:], s.coefTypes[:], n, 1/run)
	t.hasNoteFilter = n > 0
	return compStart, compEnd
}

// computeNoise sets up the noise family. Offsets are semitones from the
// table's native pitch.
func (s *Synth) computeNoise(inst *song.Instrument, t *Tone, drum int, offStart, offEnd, run float64) {
	native := 44100 / s.sampleRate
	ds := math.Pow(2, offStart/12) * native
	de := math.Pow(2, offEnd/12) * native
	t.phaseDeltas[0] = ds
	t.phaseDeltaScales[0] = math.Pow(de/ds, 1/run)
	t.voices = 1
	switch inst.Type {
	case song.InstrumentNoise:
		t.wave = s.waves.Noise(inst.ChipNoise)
		noise := song.ChipNoises[clampInt(inst.ChipNoise, 0, len(song.ChipNoises)-1)]
		t.noiseFilter = math.Min(1, ds*noise.PitchFilterMult)
	case song.InstrumentSpectrum:
		t.wave = s.waves.Spectrum(&inst.Spectrum)
	case song.InstrumentDrumset:
		t.wave = s.waves.Spectrum(&inst.DrumsetSpectra[drum])
	}
}

// computeFM loads operator frequencies, amplitudes and feedback, and
// returns the expression divided across the carriers.
func (s *Synth) computeFM(ist *InstrumentState, t *Tone, pitchStart, pitchEnd, run, exprStart, exprEnd float64) (float64, float64) {
	inst := ist.instrument
	m := &ist.mods
	c := t.env
	alg := fm.AlgorithmFor(inst.Algorithm)
	prog := s.programs.Program(inst.Algorithm, inst.FeedbackType)
	t.program = prog
	v := &t.fm
	for i := 0; i < song.OperatorCount; i++ {
		op := inst.Operators[i]
		fa, fb := envPair(c, song.EnvTargetOperatorFrequency, i)
		hzStart := fm.OperatorHz(op, alg, i, pitchStart) * fa
		hzEnd := fm.OperatorHz(op, alg, i, pitchEnd) * fb
		v.PhaseDelta[i] = hzStart / s.sampleRate * wavetable.SineLength
		v.PhaseDeltaScale[i] = 1
		if hzStart > 0 && hzEnd > 0 {
			v.PhaseDeltaScale[i] = math.Pow(hzEnd/hzStart, 1/run)
		}
		a, b := m.values[song.ModFMSlider1+song.ModSetting(i)].ramp(float64(op.Amplitude))
		ea, eb := envPair(c, song.EnvTargetOperatorAmplitude, i)
		start := fm.OperatorOutputMult(op, alg, i, a*ea)
		end := fm.OperatorOutputMult(op, alg, i, b*eb)
		v.OutputMult[i] = start
		v.OutputMultDelta[i] = (end - start) / run
		if op.Waveform == song.OperatorPulse {
			v.Waves[i] = s.waves.Pulse(op.PulseWidth)
		} else {
			v.Waves[i] = wavetable.OperatorWave(op.Waveform)[:]
		}
	}
	a, b := m.values[song.ModFMFeedback].ramp(float64(inst.FeedbackAmplitude))
	ea, eb := envPair(c, song.EnvTargetFeedbackAmplitude, 0)
	fbStart := song.OperatorAmplitudeCurve(a*ea) * fm.FeedbackScale
	fbEnd := song.OperatorAmplitudeCurve(b*eb) * fm.FeedbackScale
	v.FeedbackMult = fbStart
	v.FeedbackMultDelta = (fbEnd - fbStart) / run
	carriers := math.Sqrt(float64(max(prog.CarrierCount, 1)))
	return exprStart / carriers, exprEnd / carriers
}

func (s *Synth) computeSupersaw(ist *InstrumentState, t *Tone, pitchStart, pitchEnd, run, exprStart, exprEnd float64) (float64, float64) {
	inst := ist.instrument
	m := &ist.mods
	c := t.env

	a, b := m.values[song.ModSupersawDynamism].ramp(float64(inst.SupersawDynamism))
	ea, eb := envPair(c, song.EnvTargetSupersawDynamism, 0)
	dynStart := a / song.SupersawDynamismMax * ea
	dynEnd := b / song.SupersawDynamismMax * eb

	a, _ = m.values[song.ModSupersawSpread].ramp(float64(inst.SupersawSpread))
	ea, _ = envPair(c, song.EnvTargetSupersawSpread, 0)
	ratio := a / song.SupersawSpreadMax * ea
	spread := ratio * ratio * supersawSpreadSemitones

	a, b = m.values[song.ModSupersawShape].ramp(float64(inst.SupersawShape))
	ea, eb = envPair(c, song.EnvTargetSupersawShape, 0)
	shapeStart := a / song.SupersawShapeMax * ea
	shapeEnd := b / song.SupersawShapeMax * eb

	t.voices = song.SupersawVoiceCount
	for v := 0; v < song.SupersawVoiceCount; v++ {
		ds := song.FrequencyFromPitch(pitchStart+supersawOffsets[v]*spread) / s.sampleRate
		de := song.FrequencyFromPitch(pitchEnd+supersawOffsets[v]*spread) / s.sampleRate
		t.phaseDeltas[v] = ds
		t.phaseDeltaScales[v] = math.Pow(de/ds, 1/run)
	}
	t.supersawDynamism = dynStart
	t.supersawDynamismDelta = (dynEnd - dynStart) / run
	t.supersawShape = shapeStart
	t.supersawShapeDelta = (shapeEnd - shapeStart) / run
	delayStart := 0.5 / t.phaseDeltas[0]
	delayEnd := 0.5 * s.sampleRate / song.FrequencyFromPitch(pitchEnd)
	t.supersawDelay = delayStart
	t.supersawDelayDelta = (delayEnd - delayStart) / run
	if need := fittingPowerOfTwo(int(s.sampleRate/lowestDelayHz) + 2); len(t.supersawLine) < need {
		t.supersawLine = make([]float64, need)
		t.supersawPos = 0
	}
	return exprStart / math.Sqrt(1+6*dynStart), exprEnd / math.Sqrt(1+6*dynEnd)
}

func (s *Synth) computeString(ist *InstrumentState, t *Tone, run int) {
	inst := ist.instrument
	m := &ist.mods
	a, b := m.values[song.ModStringSustain].ramp(float64(inst.StringSustain))
	ea, eb := envPair(t.env, song.EnvTargetStringSustain, 0)
	decayStart := pickedstring.Decay(int(math.Round(a)), ea)
	decayEnd := pickedstring.Decay(int(math.Round(b)), eb)
	if t.released {
		decayStart = math.Max(decayStart, releasedStringDecay)
		decayEnd = math.Max(decayEnd, releasedStringDecay)
	}
	impulse := s.waves.Harmonics(&inst.Harmonics)
	for v := 0; v < t.voices; v++ {
		p := &t.params
		*p = pickedstring.Params{
			SampleRate:      s.sampleRate,
			PhaseDeltaStart: t.phaseDeltas[v],
			PhaseDeltaScale: t.phaseDeltaScales[v],
			RunLength:       run,
			DecayStart:      decayStart,
			DecayEnd:        decayEnd,
			SustainType:     inst.StringSustainType,
			ImpulseWave:     impulse,
		}
		t.strings[v].Update(p)
	}
}

// computeLoop maps the loop settings onto the raw wave and places the play
// head when the tone starts.
func (s *Synth) computeLoop(inst *song.Instrument, t *Tone) {
	length := float64(len(t.wave) - 1)
	scale := length / song.CustomChipWaveLength
	t.loopMode = inst.ChipWaveLoopMode
	t.loopStart = float64(inst.ChipWaveLoopStart) * scale
	t.loopStop = math.Max(float64(inst.ChipWaveLoopEnd)*scale, t.loopStart+1)
	if !t.loopStarted {
		t.loopStarted = true
		t.loopDir = 1
		t.loopPos = 0
		if inst.ChipWaveBackwards {
			t.loopDir = -1
			t.loopPos = length
		}
	}
}

func fittingPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
