package filter

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// Legacy slider ranges and the fixed rate their response was tuned at.
const (
	LegacyCutoffRange    = 11
	LegacyResonanceRange = 8

	legacyCutoffMaxHz     = 8000.0
	legacyFilterMax       = 0.95
	legacyMaxResonance    = 0.95
	legacyStandardRate    = 48000.0
	legacyFirstOrderBoost = 3.5
)

var legacyFilterMaxRadians = math.Asin(legacyFilterMax/2) * 2

// LegacySettings converts the old cutoff/resonance sliders into an
// equivalent control point. The constants are curve fits against the old
// filter's response and have no closed-form derivation. decays reports
// whether a decaying envelope drives the filter, which pulls the best fit
// toward a lower gain. It returns an empty settings value when the old
// filter was fully open.
func LegacySettings(cutoff, resonance int, decays, hasEnvelope bool) song.FilterSettings {
	var out song.FilterSettings
	resonant := resonance > 1
	firstOrder := resonance == 0
	cutoffAtMax := cutoff == LegacyCutoffRange-1

	legacyHz := legacyCutoffMaxHz * math.Pow(2, float64(cutoff-(LegacyCutoffRange-1))*0.5)
	legacyRadians := math.Min(legacyFilterMaxRadians, 2*math.Pi*legacyHz/legacyStandardRate)

	if !hasEnvelope && !resonant && cutoffAtMax {
		return out
	}
	var legacy Coefficients
	if firstOrder {
		targetRadians := legacyRadians * math.Pow(2, legacyFirstOrderBoost)
		curvedRadians := targetRadians / (1 + targetRadians/math.Pi)
		curvedHz := legacyStandardRate * curvedRadians / (2 * math.Pi)
		freq := RoundedFrequencySettingFromHz(curvedHz)
		finalRadians := 2 * math.Pi * HzFromSetting(freq) / legacyStandardRate

		legacy.LowPass1stOrderSimplified(legacyRadians)
		logGain := math.Log2(Analyze(&legacy, finalRadians).Magnitude())
		logGain = -legacyFirstOrderBoost + (logGain+legacyFirstOrderBoost)*0.82
		if decays {
			logGain = math.Min(logGain, -1)
		}
		out.Add(song.FilterLowPass, freq, RoundedGainSettingFromLinear(math.Pow(2, logGain)))
		return out
	}

	intendedGain := 0.5 / (1 - legacyMaxResonance*math.Sqrt(math.Max(0, float64(resonance)-1)/(LegacyResonanceRange-2)))
	invertedGain := 0.5 / intendedGain
	maxRadians := 2 * math.Pi * legacyCutoffMaxHz / legacyStandardRate
	freqRatio := legacyRadians / maxRadians
	targetRadians := legacyRadians * (freqRatio*math.Pow(invertedGain, 0.9) + 1)
	curvedRadians := legacyRadians + (targetRadians-legacyRadians)*invertedGain
	curvedHz := legacyStandardRate * curvedRadians / (2 * math.Pi)
	freq := RoundedFrequencySettingFromHz(curvedHz)
	finalRadians := 2 * math.Pi * HzFromSetting(freq) / legacyStandardRate

	var gain float64
	if decays {
		gain = invertedGain
	} else {
		legacy.LowPass2ndOrderSimplified(legacyRadians, intendedGain)
		gain = Analyze(&legacy, finalRadians).Magnitude()
	}
	if !resonant {
		gain = math.Min(gain, math.Sqrt(0.5))
	}
	out.Add(song.FilterLowPass, freq, RoundedGainSettingFromLinear(gain))
	return out
}

// EffectiveNoteFilter returns the instrument's note filter, converting
// legacy sliders when the instrument still uses them.
func EffectiveNoteFilter(inst *song.Instrument) song.FilterSettings {
	if !inst.LegacyNoteFilter {
		return inst.NoteFilter
	}
	decays := false
	hasEnvelope := false
	for _, env := range inst.Envelopes {
		if env.Target != song.EnvTargetNoteFilterAllFreqs {
			continue
		}
		hasEnvelope = true
		switch env.Shape {
		case song.EnvelopeDecay, song.EnvelopeTwang, song.EnvelopeFlare, song.EnvelopePunch, song.EnvelopeBlip:
			decays = true
		}
	}
	return LegacySettings(inst.LegacyCutoff, inst.LegacyResonance, decays, hasEnvelope)
}
