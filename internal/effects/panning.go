package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// panning splits the mono signal into two channels with equal-power gains
// and a small inter-ear delay towards the far side.
type panning struct {
	line []float64
	pos  int

	volumeL, volumeR           float64
	volumeLDelta, volumeRDelta float64
	offsetL, offsetR           float64
	offsetLDelta, offsetRDelta float64
}

// PanGains returns the equal-power gains for pan in [-1, 1]. Both are 1 at
// centre.
func PanGains(pan float64) (l, r float64) {
	return math.Cos((1+pan)*math.Pi*0.25) * math.Sqrt2, math.Cos((1-pan)*math.Pi*0.25) * math.Sqrt2
}

func panValue(setting float64) float64 {
	return math.Max(-1, math.Min(1, (setting-song.PanCenter)/song.PanCenter))
}

func (pn *panning) compute(p *Params, run float64) {
	maxDelay := p.SampleRate * song.PanDelaySecondsMax * p.PanDelay / (song.PanDelayRange / 2)
	pn.line = growDelayLine(pn.line, pn.pos, int(math.Ceil(p.SampleRate*song.PanDelaySecondsMax*2))+2)
	size := float64(len(pn.line))

	panStart, panEnd := panValue(p.Pan.Start), panValue(p.Pan.End)
	lStart, rStart := PanGains(panStart)
	lEnd, rEnd := PanGains(panEnd)
	pn.volumeL, pn.volumeR = lStart, rStart
	pn.volumeLDelta = (lEnd - lStart) / run
	pn.volumeRDelta = (rEnd - rStart) / run

	delayStart, delayEnd := panStart*maxDelay, panEnd*maxDelay
	delayStartL, delayStartR := math.Max(0, delayStart), math.Max(0, -delayStart)
	delayEndL, delayEndR := math.Max(0, delayEnd), math.Max(0, -delayEnd)
	pn.offsetL = float64(pn.pos) - delayStartL + size
	pn.offsetR = float64(pn.pos) - delayStartR + size
	pn.offsetLDelta = 1 - (delayEndL-delayStartL)/run
	pn.offsetRDelta = 1 - (delayEndR-delayStartR)/run
}

func (pn *panning) reset() {
	clear(pn.line)
	pn.pos = 0
}

func (s *State) runPanning(n int) {
	pn := &s.panning
	line := pn.line
	mask := len(line) - 1
	x, l, r := s.mono, s.left, s.right
	pos := pn.pos
	volL, volR, offL, offR := pn.volumeL, pn.volumeR, pn.offsetL, pn.offsetR
	for i := 0; i < n; i++ {
		line[pos] = x[i]
		l[i] = tap(line, mask, offL) * volL
		r[i] = tap(line, mask, offR) * volR
		pos = (pos + 1) & mask
		volL += pn.volumeLDelta
		volR += pn.volumeRDelta
		offL += pn.offsetLDelta
		offR += pn.offsetRDelta
	}
	pn.pos = pos
	pn.volumeL, pn.volumeR, pn.offsetL, pn.offsetR = volL, volR, offL, offR
}
