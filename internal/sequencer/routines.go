package sequencer

import (
	"errors"
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// ErrUnknownInstrumentType is returned when a tone's instrument has a type
// no routine can render.
var ErrUnknownInstrumentType = errors.New("unknown instrument type")

// routine adds n samples of t into out.
type routine func(t *Tone, out []float64, n int)

type routineKey struct {
	typ        song.InstrumentType
	multiVoice bool
}

var routines = map[routineKey]routine{
	{song.InstrumentChip, false}:         integratedSingle,
	{song.InstrumentChip, true}:          integratedUnison,
	{song.InstrumentCustomChip, false}:   integratedSingle,
	{song.InstrumentCustomChip, true}:    integratedUnison,
	{song.InstrumentHarmonics, false}:    integratedSingle,
	{song.InstrumentHarmonics, true}:     integratedUnison,
	{song.InstrumentPWM, false}:          pulseWidth,
	{song.InstrumentPWM, true}:           pulseWidth,
	{song.InstrumentSupersaw, true}:      supersaw,
	{song.InstrumentSupersaw, false}:     supersaw,
	{song.InstrumentFM, false}:           fmVoice,
	{song.InstrumentPickedString, false}: pickedString,
	{song.InstrumentPickedString, true}:  pickedString,
	{song.InstrumentNoise, false}:        noise,
	{song.InstrumentSpectrum, false}:     spectrum,
	{song.InstrumentDrumset, false}:      spectrum,
	{song.InstrumentMod, false}:          silent,
}

var loopRoutines = [song.LoopModeCount]routine{
	song.LoopOnce:     loopOnce,
	song.LoopForward:  loopForward,
	song.LoopBackward: loopBackward,
	song.LoopPingPong: loopPingPong,
}

// routineFor picks the render routine for a tone of inst.
func routineFor(inst *song.Instrument, t *Tone) (routine, error) {
	if (inst.Type == song.InstrumentChip || inst.Type == song.InstrumentCustomChip) && inst.UsesLoopRegion() {
		mode := inst.ChipWaveLoopMode
		if mode < 0 || mode >= song.LoopModeCount {
			mode = song.LoopForward
		}
		return loopRoutines[mode], nil
	}
	multi := false
	switch inst.Type {
	case song.InstrumentSupersaw:
		multi = true
	case song.InstrumentChip, song.InstrumentCustomChip, song.InstrumentHarmonics, song.InstrumentPWM, song.InstrumentPickedString:
		multi = inst.UnisonSettings().Voices > 1 || inst.Has(song.EffectChord) && inst.Chord == song.ChordCustomInterval && t.pitchCount > 1
	}
	if r, ok := routines[routineKey{inst.Type, multi}]; ok {
		return r, nil
	}
	return nil, ErrUnknownInstrumentType
}

// integralAt reads an integrated table at a fractional position.
func integralAt(wave []float64, pos float64) float64 {
	i := int(pos)
	return wave[i] + (wave[i+1]-wave[i])*(pos-float64(i))
}

// integratedSingle plays one voice from an integrated wave by differencing
// the running integral, which band-limits the raw steps.
func integratedSingle(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	phase := t.phases[0] * length
	delta := t.phaseDeltas[0] * length
	scale := t.phaseDeltaScales[0]
	expr := t.expression
	prev := integralAt(wave, phase)
	for i := 0; i < n; i++ {
		phase += delta
		for phase >= length {
			phase -= length
		}
		cur := integralAt(wave, phase)
		out[i] += (cur - prev) / delta * expr
		prev = cur
		delta *= scale
		expr += t.expressionDelta
	}
	t.phases[0] = phase / length
	t.phaseDeltas[0] = delta / length
	t.expression = expr
}

func integratedUnison(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	for v := 0; v < t.voices; v++ {
		phase := t.phases[v] * length
		delta := t.phaseDeltas[v] * length
		scale := t.phaseDeltaScales[v]
		expr := t.expression * t.voiceSigns[v]
		exprDelta := t.expressionDelta * t.voiceSigns[v]
		prev := integralAt(wave, phase)
		for i := 0; i < n; i++ {
			phase += delta
			for phase >= length {
				phase -= length
			}
			cur := integralAt(wave, phase)
			out[i] += (cur - prev) / delta * expr
			prev = cur
			delta *= scale
			expr += exprDelta
		}
		t.phases[v] = phase / length
		t.phaseDeltas[v] = delta / length
	}
	t.expression += t.expressionDelta * float64(n)
}

// blep is the polynomial band-limited step residual for a phase x within
// one sample of a discontinuity.
func blep(phase, delta float64) float64 {
	if phase < delta {
		x := phase / delta
		return (x + x - x*x - 1) * 0.5
	}
	if phase > 1-delta {
		x := (phase - 1) / delta
		return (x + x + x*x + 1) * 0.5
	}
	return 0
}

// pulseWidth plays a pulse as the difference of two band-limited saws.
func pulseWidth(t *Tone, out []float64, n int) {
	for v := 0; v < t.voices; v++ {
		phase := t.phases[v]
		delta := t.phaseDeltas[v]
		scale := t.phaseDeltaScales[v]
		pw := t.pulseWidth
		expr := t.expression * t.voiceSigns[v]
		exprDelta := t.expressionDelta * t.voiceSigns[v]
		for i := 0; i < n; i++ {
			a := phase - math.Floor(phase)
			b := a + pw
			b -= math.Floor(b)
			w := b - a + blep(a, delta) - blep(b, delta)
			out[i] += w * expr
			phase += delta
			delta *= scale
			pw += t.pulseWidthDelta
			expr += exprDelta
		}
		t.phases[v] = phase - math.Floor(phase)
		t.phaseDeltas[v] = delta
	}
	t.pulseWidth += t.pulseWidthDelta * float64(n)
	t.expression += t.expressionDelta * float64(n)
}

// supersaw sums detuned band-limited saws and subtracts a half-period
// delayed copy scaled by shape, which morphs the saw toward a pulse.
func supersaw(t *Tone, out []float64, n int) {
	line := t.supersawLine
	mask := len(line) - 1
	pos := t.supersawPos
	dyn := t.supersawDynamism
	shape := t.supersawShape
	delay := t.supersawDelay
	expr := t.expression
	for i := 0; i < n; i++ {
		sum := supersawStep(t, 0)
		for v := 1; v < song.SupersawVoiceCount; v++ {
			sum += supersawStep(t, v) * dyn
		}
		line[pos&mask] = sum
		back := float64(pos) - delay
		f := math.Floor(back)
		j := int(f)
		r := back - f
		delayed := line[j&mask]*(1-r) + line[(j+1)&mask]*r
		out[i] += (sum - shape*delayed) * expr
		pos++
		dyn += t.supersawDynamismDelta
		shape += t.supersawShapeDelta
		delay += t.supersawDelayDelta
		expr += t.expressionDelta
	}
	t.supersawPos = pos & mask
	t.supersawDynamism = dyn
	t.supersawShape = shape
	t.supersawDelay = delay
	t.expression = expr
}

// supersawStep returns voice v's band-limited saw and advances its phase.
func supersawStep(t *Tone, v int) float64 {
	ph := t.phases[v]
	d := t.phaseDeltas[v]
	saw := ph - 0.5 - blep(ph, d)
	ph += d
	if ph >= 1 {
		ph -= 1
	}
	t.phases[v] = ph
	t.phaseDeltas[v] = d * t.phaseDeltaScales[v]
	return saw
}

func fmVoice(t *Tone, out []float64, n int) {
	t.program.Render(&t.fm, out, n, t.expression, t.expressionDelta)
	t.expression += t.expressionDelta * float64(n)
}

func pickedString(t *Tone, out []float64, n int) {
	for v := 0; v < t.voices; v++ {
		sign := t.voiceSigns[v]
		t.strings[v].Render(out, n, t.expression*sign, t.expressionDelta*sign)
	}
	t.expression += t.expressionDelta * float64(n)
}

// noise reads a looped noise table through a one-pole lowpass whose corner
// follows the pitch.
func noise(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	phase := t.phases[0]
	delta := t.phaseDeltas[0]
	scale := t.phaseDeltaScales[0]
	sample := t.noiseSample
	expr := t.expression
	for i := 0; i < n; i++ {
		sample += (wave[int(phase)] - sample) * t.noiseFilter
		out[i] += sample * expr
		phase += delta
		for phase >= length {
			phase -= length
		}
		delta *= scale
		expr += t.expressionDelta
	}
	t.phases[0] = phase
	t.phaseDeltas[0] = delta
	t.noiseSample = sample
	t.expression = expr
}

// spectrum reads a looped spectral noise table with linear interpolation.
func spectrum(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	phase := t.phases[0]
	delta := t.phaseDeltas[0]
	scale := t.phaseDeltaScales[0]
	expr := t.expression
	for i := 0; i < n; i++ {
		out[i] += integralAt(wave, phase) * expr
		phase += delta
		for phase >= length {
			phase -= length
		}
		delta *= scale
		expr += t.expressionDelta
	}
	t.phases[0] = phase
	t.phaseDeltas[0] = delta
	t.expression = expr
}

func silent(t *Tone, out []float64, n int) {}

// rawAt reads a raw wave at a fractional position, clamped to the table.
func rawAt(wave []float64, pos float64) float64 {
	last := len(wave) - 2
	i := int(math.Floor(pos))
	if i < 0 {
		return wave[0]
	}
	if i > last {
		return wave[last+1]
	}
	return wave[i] + (wave[i+1]-wave[i])*(pos-float64(i))
}

// loopOnce plays the raw wave a single time in its direction.
func loopOnce(t *Tone, out []float64, n int) {
	if t.loopEnd {
		return
	}
	wave := t.wave
	length := float64(len(wave) - 1)
	delta := t.phaseDeltas[0] * length
	expr := t.expression
	for i := 0; i < n; i++ {
		out[i] += rawAt(wave, t.loopPos) * expr
		t.loopPos += delta * t.loopDir
		if t.loopPos >= length || t.loopPos < 0 {
			t.loopEnd = true
			break
		}
		delta *= t.phaseDeltaScales[0]
		expr += t.expressionDelta
	}
	t.phaseDeltas[0] = delta / length
	t.expression += t.expressionDelta * float64(n)
}

// loopForward repeats the region in the play direction.
func loopForward(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	delta := t.phaseDeltas[0] * length
	span := t.loopStop - t.loopStart
	expr := t.expression
	for i := 0; i < n; i++ {
		out[i] += rawAt(wave, t.loopPos) * expr
		t.loopPos += delta * t.loopDir
		if t.loopDir > 0 {
			for t.loopPos >= t.loopStop {
				t.loopPos -= span
			}
		} else {
			for t.loopPos < t.loopStart {
				t.loopPos += span
			}
		}
		delta *= t.phaseDeltaScales[0]
		expr += t.expressionDelta
	}
	t.phaseDeltas[0] = delta / length
	t.expression = expr
}

// loopBackward plays up to the loop end, then repeats the region in
// reverse.
func loopBackward(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	delta := t.phaseDeltas[0] * length
	span := t.loopStop - t.loopStart
	expr := t.expression
	for i := 0; i < n; i++ {
		out[i] += rawAt(wave, t.loopPos) * expr
		t.loopPos += delta * t.loopDir
		if t.loopDir > 0 && t.loopPos >= t.loopStop {
			t.loopDir = -1
			t.loopPos = t.loopStop - (t.loopPos - t.loopStop)
		}
		if t.loopDir < 0 {
			for t.loopPos < t.loopStart {
				t.loopPos += span
			}
		}
		delta *= t.phaseDeltaScales[0]
		expr += t.expressionDelta
	}
	t.phaseDeltas[0] = delta / length
	t.expression = expr
}

// loopPingPong bounces between the loop bounds.
func loopPingPong(t *Tone, out []float64, n int) {
	wave := t.wave
	length := float64(len(wave) - 1)
	delta := t.phaseDeltas[0] * length
	expr := t.expression
	for i := 0; i < n; i++ {
		out[i] += rawAt(wave, t.loopPos) * expr
		t.loopPos += delta * t.loopDir
		switch {
		case t.loopDir > 0 && t.loopPos >= t.loopStop:
			t.loopPos = math.Max(t.loopStart, 2*t.loopStop-t.loopPos)
			t.loopDir = -1
		case t.loopDir < 0 && t.loopPos < t.loopStart:
			t.loopPos = math.Min(t.loopStop, 2*t.loopStart-t.loopPos)
			t.loopDir = 1
		}
		delta *= t.phaseDeltaScales[0]
		expr += t.expressionDelta
	}
	t.phaseDeltas[0] = delta / length
	t.expression = expr
}
