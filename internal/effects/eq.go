package effects

import (
	"github.com/cbegin/trackersynth/internal/filter"
	"github.com/cbegin/trackersynth/internal/song"
)

// eqStage is the instrument EQ: a cascade of peak/shelf/pass sections whose
// coefficients glide from the tick's start settings to its end settings.
type eqStage struct {
	chain               filter.Chain
	starts, ends        [song.FilterMaxPoints]filter.Coefficients
	types               [song.FilterMaxPoints]song.FilterType
	volume, volumeDelta float64
}

func (e *eqStage) compute(p *Params, run float64) {
	start, end := p.EQStart, p.EQEnd
	if start == nil {
		e.chain.Load(nil, nil, nil, 0, 1/run)
		e.volume, e.volumeDelta = 1, 0
		return
	}
	if end == nil || len(end.Points) != len(start.Points) {
		end = start
	}
	n, compStart := filter.SettingsCoefficients(e.starts[:], start, p.SampleRate, 1, 1)
	_, compEnd := filter.SettingsCoefficients(e.ends[:], end, p.SampleRate, 1, 1)
	for i := 0; i < n; i++ {
		e.types[i] = start.Points[i].Type
	}
	e.chain.Load(e.starts[:], e.ends[:], e.types[:], n, 1/run)
	e.volume = compStart
	e.volumeDelta = (compEnd - compStart) / run
}

func (s *State) runEQ(n int) {
	e := &s.eq
	x := s.mono
	v := e.volume
	for i := 0; i < n; i++ {
		x[i] = e.chain.Apply(x[i]) * v
		v += e.volumeDelta
	}
	e.volume = v
}

// SongEQ is the song-wide EQ applied to the mixed stereo output before the
// limiter. Both channels share one set of coefficients.
type SongEQ struct {
	left, right         filter.Chain
	starts, ends        [song.FilterMaxPoints]filter.Coefficients
	types               [song.FilterMaxPoints]song.FilterType
	volume, volumeDelta float64
}

// Load prepares the EQ for a run of n samples, gliding from start to end.
func (q *SongEQ) Load(start, end *song.FilterSettings, sampleRate float64, n int) {
	run := float64(max(n, 1))
	if start == nil {
		q.left.Load(nil, nil, nil, 0, 1/run)
		q.right.Load(nil, nil, nil, 0, 1/run)
		q.volume, q.volumeDelta = 1, 0
		return
	}
	if end == nil || len(end.Points) != len(start.Points) {
		end = start
	}
	count, compStart := filter.SettingsCoefficients(q.starts[:], start, sampleRate, 1, 1)
	_, compEnd := filter.SettingsCoefficients(q.ends[:], end, sampleRate, 1, 1)
	for i := 0; i < count; i++ {
		q.types[i] = start.Points[i].Type
	}
	q.left.Load(q.starts[:], q.ends[:], q.types[:], count, 1/run)
	q.right.Load(q.starts[:], q.ends[:], q.types[:], count, 1/run)
	q.volume = compStart
	q.volumeDelta = (compEnd - compStart) / run
}

// Process filters n samples of each channel in place.
func (q *SongEQ) Process(l, r []float64, n int) {
	if q.left.Count == 0 && q.volume == 1 && q.volumeDelta == 0 {
		return
	}
	v := q.volume
	for i := 0; i < n; i++ {
		l[i] = q.left.Apply(l[i]) * v
		r[i] = q.right.Apply(r[i]) * v
		v += q.volumeDelta
	}
	q.volume = v
	q.left.Sanitize()
	q.right.Sanitize()
}

// Reset clears filter history.
func (q *SongEQ) Reset() {
	q.left.Reset()
	q.right.Reset()
	q.volume, q.volumeDelta = 1, 0
}
