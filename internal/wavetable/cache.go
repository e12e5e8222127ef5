package wavetable

import (
	"github.com/cbegin/trackersynth/internal/song"
)

// Cache memoises derived tables for one synthesizer. Keys are the plain
// settings the table depends on. A Cache is not safe for concurrent use;
// the audio thread owns it.
type Cache struct {
	chip      [][]float64
	chipRaw   [][]float64
	noise     [len(song.ChipNoises)][]float64
	harmonics map[[song.HarmonicsControlPoints]int][]float64
	spectrum  map[[song.SpectrumControlPoints]int][]float64
	custom    map[[song.CustomChipWaveLength]float64]*CustomWave
	pulse     map[int][]float64
}

// CustomWave holds both renditions of a custom chip wave.
type CustomWave struct {
	Integrated []float64
	Raw        []float64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		chip:      make([][]float64, len(song.ChipWaves)),
		chipRaw:   make([][]float64, len(song.ChipWaves)),
		harmonics: make(map[[song.HarmonicsControlPoints]int][]float64),
		spectrum:  make(map[[song.SpectrumControlPoints]int][]float64),
		custom:    make(map[[song.CustomChipWaveLength]float64]*CustomWave),
		pulse:     make(map[int][]float64),
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Chip returns the integrated table for a preset chip wave.
func (c *Cache) Chip(index int) []float64 {
	index = clampIndex(index, len(song.ChipWaves))
	if c.chip[index] == nil {
		c.chip[index] = ChipIntegrated(song.ChipWaves[index].Samples)
	}
	return c.chip[index]
}

// ChipRaw returns the centred, non-integrated preset chip wave with a guard
// sample, used by loop-region playback.
func (c *Cache) ChipRaw(index int) []float64 {
	index = clampIndex(index, len(song.ChipWaves))
	if c.chipRaw[index] == nil {
		w := Centered(song.ChipWaves[index].Samples)
		c.chipRaw[index] = append(w, w[0])
	}
	return c.chipRaw[index]
}

// Custom returns the tables for a custom chip wave.
func (c *Cache) Custom(w *[song.CustomChipWaveLength]float64) *CustomWave {
	if cw, ok := c.custom[*w]; ok {
		return cw
	}
	raw := Centered(w[:])
	cw := &CustomWave{Integrated: Integrate(raw), Raw: append(raw, raw[0])}
	c.custom[*w] = cw
	return cw
}

// Noise returns the table for a chip noise type.
func (c *Cache) Noise(index int) []float64 {
	index = clampIndex(index, len(song.ChipNoises))
	if c.noise[index] == nil {
		c.noise[index] = Noise(index)
	}
	return c.noise[index]
}

// Harmonics returns the integrated table for a harmonics setting.
func (c *Cache) Harmonics(h *[song.HarmonicsControlPoints]int) []float64 {
	if w, ok := c.harmonics[*h]; ok {
		return w
	}
	w := Harmonics(h)
	c.harmonics[*h] = w
	return w
}

// Spectrum returns the noise table for a spectrum setting.
func (c *Cache) Spectrum(s *[song.SpectrumControlPoints]int) []float64 {
	if w, ok := c.spectrum[*s]; ok {
		return w
	}
	w := Spectrum(s)
	c.spectrum[*s] = w
	return w
}

// Pulse returns an FM operator pulse table for a pulse width setting.
func (c *Cache) Pulse(width int) []float64 {
	if w, ok := c.pulse[width]; ok {
		return w
	}
	w := PulseOperatorWave(float64(width) / (song.PulseWidthRange * 2))
	c.pulse[width] = w
	return w
}
