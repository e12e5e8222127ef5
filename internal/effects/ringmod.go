package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/lfo"
	"github.com/cbegin/trackersynth/internal/song"
)

// RingModHz maps a ring modulation frequency setting onto an exponential
// scale between song.RingModMinHz and song.RingModMaxHz.
func RingModHz(setting float64) float64 {
	return song.RingModMinHz * math.Pow(song.RingModMaxHz/song.RingModMinHz, setting/(song.RingModHzRange-1))
}

type ringMod struct {
	mix, mixDelta                      float64
	phase, phaseDelta, phaseDeltaScale float64
	wave                               *[lfo.TableLength + 1]float64
}

func (r *ringMod) compute(p *Params, run float64) {
	r.mix = math.Min(1, p.RingMod.Start/(song.RingModRange-1))
	end := math.Min(1, p.RingMod.End/(song.RingModRange-1))
	r.mixDelta = (end - r.mix) / run
	hzStart, hzEnd := RingModHz(p.RingModHz.Start), RingModHz(p.RingModHz.End)
	r.phaseDelta = hzStart / p.SampleRate
	r.phaseDeltaScale = math.Pow(hzEnd/hzStart, 1/run)
	r.wave = lfo.Table(p.RingModWaveform)
}

// runRingMod multiplies the signal with a carrier and blends it with the dry
// signal by the mix amount.
func (s *State) runRingMod(n int) {
	r := &s.ringMod
	x := s.mono
	w := r.wave
	mix, phase, delta := r.mix, r.phase, r.phaseDelta
	for i := 0; i < n; i++ {
		pos := phase * lfo.TableLength
		j := int(pos)
		carrier := w[j] + (w[j+1]-w[j])*(pos-float64(j))
		x[i] = x[i] * (1 - mix + carrier*mix)
		phase += delta
		phase -= math.Floor(phase)
		delta *= r.phaseDeltaScale
		mix += r.mixDelta
	}
	r.mix, r.phase, r.phaseDelta = mix, phase, delta
}
