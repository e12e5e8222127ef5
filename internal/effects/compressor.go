package effects

import (
	"math"

	"github.com/cbegin/trackersynth/internal/song"
)

// Limiter is the song's output dynamics stage. A peak follower rises and
// decays at rates given in halvings per second; its level selects one of
// three regions:
//
//	below the compression threshold: unity gain
//	between the thresholds:          excess divided by the compression ratio
//	above the limit threshold:       further excess divided by the limit ratio
//
// Master gain is applied before the follower.
type Limiter struct {
	envelope float64

	masterGain           float64
	compressionThreshold float64
	compressionRatio     float64
	limitThreshold       float64
	limitRatio           float64
	rise, decay          float64
}

// NewLimiter returns a limiter with unity settings.
func NewLimiter() *Limiter {
	l := &Limiter{}
	l.Configure(song.New(), 44100)
	return l
}

// Configure loads the song's dynamics settings.
func (l *Limiter) Configure(s *song.Song, sampleRate float64) {
	l.masterGain = s.MasterGain
	l.compressionThreshold = s.CompressionThreshold
	l.compressionRatio = math.Max(s.CompressionRatio, 1e-6)
	l.limitThreshold = math.Max(s.LimitThreshold, s.CompressionThreshold)
	l.limitRatio = math.Max(s.LimitRatio, 1e-6)
	l.rise = 1 - math.Pow(0.5, s.LimitRise/sampleRate)
	l.decay = 1 - math.Pow(0.5, s.LimitDecay/sampleRate)
}

func (l *Limiter) gain(env float64) float64 {
	if env <= l.compressionThreshold {
		return 1
	}
	level := l.compressionThreshold + (math.Min(env, l.limitThreshold)-l.compressionThreshold)/l.compressionRatio
	if env > l.limitThreshold {
		level += (env - l.limitThreshold) / l.limitRatio
	}
	return level / env
}

// Process applies master gain and dynamics to n samples in place and
// returns the peak absolute level before and after.
func (l *Limiter) Process(left, right []float64, n int) (inPeak, outPeak float64) {
	env := l.envelope
	for i := 0; i < n; i++ {
		a := left[i] * l.masterGain
		b := right[i] * l.masterGain
		abs := math.Max(math.Abs(a), math.Abs(b))
		inPeak = math.Max(inPeak, abs)
		if env < abs {
			env += (abs - env) * l.rise
		} else {
			env += (abs - env) * l.decay
		}
		g := l.gain(env)
		left[i] = a * g
		right[i] = b * g
		outPeak = math.Max(outPeak, abs*g)
	}
	if math.IsNaN(env) || math.IsInf(env, 0) {
		env = 0
	}
	l.envelope = env
	return inPeak, outPeak
}

// Envelope returns the follower level.
func (l *Limiter) Envelope() float64 { return l.envelope }

// Reset clears the follower.
func (l *Limiter) Reset() {
	l.envelope = 0
}
