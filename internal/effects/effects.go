// Package effects runs an instrument's post-synthesis signal chain and the
// song's output limiter.
//
// Stages always run in the same order: distortion, bitcrusher, ring
// modulation, EQ, volume, panning, chorus, echo, reverb, granular. The stage
// list for each effect bitmask is built once and cached, so a run executes
// only the stages that are enabled.
package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// Ramp is a value interpolated linearly across one run.
type Ramp struct {
	Start, End float64
}

// Flat returns a ramp that holds v.
func Flat(v float64) Ramp { return Ramp{v, v} }

// Params carries one tick's settings. Values are in setting units (the
// ranges in song/config.go) already scaled by envelopes and mods, unless a
// field says otherwise.
type Params struct {
	SampleRate     float64
	SamplesPerTick float64
	RunLength      int
	Effects        uint32

	Distortion       Ramp
	BitcrusherFreq   Ramp
	BitcrusherQuant  Ramp
	BitcrusherBaseHz float64
	RingMod          Ramp
	RingModHz        Ramp
	RingModWaveform  int
	EQStart, EQEnd   *song.FilterSettings
	// Volume is a linear multiplier.
	Volume   Ramp
	Pan      Ramp
	PanDelay float64
	Chorus   Ramp
	Echo     Ramp
	// EchoDelay is not interpolated; changes cross-fade between taps.
	EchoDelay     float64
	Reverb        Ramp
	Granular      Ramp
	GrainSize     float64 // milliseconds
	GrainRange    float64 // milliseconds
	GrainAmounts  int
	GrainEnvelope int
}

// Has reports whether effect e is enabled in p.
func (p *Params) Has(e song.EffectType) bool { return p.Effects&(1<<e) != 0 }

type stage func(s *State, n int)

// State is the run state of one instrument's effects. It is owned by the
// audio thread.
type State struct {
	sampleRate float64
	mask       uint32
	pipeline   []stage
	pipelines  map[uint32][]stage

	mono        []float64
	left, right []float64

	distortion distortion
	bitcrusher bitcrusher
	ringMod    ringMod
	eq         eqStage
	volume     volume
	panning    panning
	chorus     chorus
	echo       echo
	reverb     reverb
	granular   granular

	flushSamples int
}

// NewState returns an idle state. Delay lines are allocated when the effect
// that needs them is first computed.
func NewState() *State {
	s := &State{pipelines: make(map[uint32][]stage)}
	s.granular.init()
	return s
}

// pipelineFor returns the cached stage list for mask.
func (s *State) pipelineFor(mask uint32) []stage {
	if p, ok := s.pipelines[mask]; ok {
		return p
	}
	has := func(e song.EffectType) bool { return mask&(1<<e) != 0 }
	var p []stage
	if has(song.EffectDistortion) {
		p = append(p, (*State).runDistortion)
	}
	if has(song.EffectBitcrusher) {
		p = append(p, (*State).runBitcrusher)
	}
	if has(song.EffectRingModulation) {
		p = append(p, (*State).runRingMod)
	}
	if has(song.EffectEQFilter) {
		p = append(p, (*State).runEQ)
	}
	p = append(p, (*State).runVolume)
	if has(song.EffectPanning) {
		p = append(p, (*State).runPanning)
	} else {
		p = append(p, (*State).runCenter)
	}
	if has(song.EffectChorus) {
		p = append(p, (*State).runChorus)
	}
	if has(song.EffectEcho) {
		p = append(p, (*State).runEcho)
	}
	if has(song.EffectReverb) {
		p = append(p, (*State).runReverb)
	}
	if has(song.EffectGranular) {
		p = append(p, (*State).runGranular)
	}
	s.pipelines[mask] = p
	return p
}

// Compute loads one tick's parameters into every enabled stage.
func (s *State) Compute(p *Params) {
	if s.sampleRate != p.SampleRate {
		s.sampleRate = p.SampleRate
		s.Reset()
	}
	s.mask = p.Effects
	s.pipeline = s.pipelineFor(p.Effects)
	run := float64(max(p.RunLength, 1))

	if p.Has(song.EffectDistortion) {
		s.distortion.compute(p, run)
	}
	if p.Has(song.EffectBitcrusher) {
		s.bitcrusher.compute(p, run)
	}
	if p.Has(song.EffectRingModulation) {
		s.ringMod.compute(p, run)
	}
	if p.Has(song.EffectEQFilter) {
		s.eq.compute(p, run)
	}
	s.volume.compute(p, run)
	if p.Has(song.EffectPanning) {
		s.panning.compute(p, run)
	}
	if p.Has(song.EffectChorus) {
		s.chorus.compute(p, run)
	}
	if p.Has(song.EffectEcho) {
		s.echo.compute(p, run)
	}
	if p.Has(song.EffectReverb) {
		s.reverb.compute(p, run)
	}
	if p.Has(song.EffectGranular) {
		s.granular.compute(p, run)
	}
	s.flushSamples = s.computeFlush(p)
}

// attenuationThreshold is the level at which a decaying tail is treated as
// silent.
const attenuationThreshold = 1.0 / 256

func (s *State) computeFlush(p *Params) int {
	seconds := 0.0
	if p.Has(song.EffectPanning) {
		seconds += song.PanDelaySecondsMax * 2
	}
	if p.Has(song.EffectChorus) {
		seconds += song.ChorusMaxDelay
	}
	if p.Has(song.EffectEcho) && s.echo.multEnd > 0 {
		halfLife := -1 / math.Log2(s.echo.multEnd)
		delay := float64(s.echo.offsetEnd) / p.SampleRate
		seconds += halfLife * math.Log2(1/attenuationThreshold) * delay
	}
	if p.Has(song.EffectReverb) && s.reverb.multEnd > 0 {
		averageMult := s.reverb.multEnd * 2
		halfLife := -1 / math.Log2(averageMult)
		delay := song.ReverbDelayBufferSize / 4.0 / p.SampleRate
		seconds += halfLife * math.Log2(1/attenuationThreshold) * delay
	}
	if p.Has(song.EffectGranular) {
		seconds += (p.GrainSize + p.GrainRange) / 1000
	}
	return int(math.Ceil(seconds*p.SampleRate)) + 1
}

// FlushSamples is how long the chain must keep running without input before
// its tails are inaudible, as of the last Compute.
func (s *State) FlushSamples() int { return s.flushSamples }

// Process runs n samples of mono through the pipeline and adds the stereo
// result into outL and outR. mono is used as scratch.
func (s *State) Process(mono, outL, outR []float64, n int) {
	if len(s.left) < n {
		s.left = make([]float64, n)
		s.right = make([]float64, n)
	}
	s.mono = mono[:n]
	for _, st := range s.pipeline {
		st(s, n)
	}
	l, r := s.left[:n], s.right[:n]
	for i := range l {
		outL[i] += l[i]
		outR[i] += r[i]
	}
	s.sanitize()
}

func (s *State) sanitize() {
	s.distortion.sanitize()
	s.eq.chain.Sanitize()
	s.echo.sanitize()
	s.reverb.sanitize()
	sanitizeDelayLine(s.panning.line, s.panning.pos)
	sanitizeDelayLine(s.chorus.lineL, s.chorus.pos)
	sanitizeDelayLine(s.chorus.lineR, s.chorus.pos)
	sanitizeDelayLine(s.granular.lineL, s.granular.pos)
	sanitizeDelayLine(s.granular.lineR, s.granular.pos)
}

// Reset zeroes all history. Delay line capacity is kept.
func (s *State) Reset() {
	s.distortion = distortion{}
	s.bitcrusher = bitcrusher{}
	s.ringMod.phase = 0
	s.eq.chain.Reset()
	s.panning.reset()
	s.chorus.reset()
	s.echo.reset()
	s.reverb.reset()
	s.granular.reset()
}

func (s *State) runVolume(n int) {
	v, dv := s.volume.mult, s.volume.delta
	x := s.mono
	for i := 0; i < n; i++ {
		x[i] *= v
		v += dv
	}
	s.volume.mult = v
}

func (s *State) runCenter(n int) {
	copy(s.left[:n], s.mono[:n])
	copy(s.right[:n], s.mono[:n])
}

type volume struct {
	mult, delta float64
}

func (v *volume) compute(p *Params, run float64) {
	v.mult = p.Volume.Start
	v.delta = (p.Volume.End - p.Volume.Start) / run
}
