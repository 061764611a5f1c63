// Package mel computes log-mel spectrograms from mono sample buffers. Frames
// are windowed with a Hann window, transformed with a real FFT and projected
// through a triangular mel filterbank.
package mel

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const logFloor = 1e-10

// Config describes the spectrogram geometry. Zero fields fall back to the
// defaults in parentheses.
type Config struct {
	// SampleRate of the input samples (22050).
	SampleRate int `yaml:"sample_rate"`

	// NumBins is the mel band count (80).
	NumBins int `yaml:"num_bins"`

	// FFTSize is the transform size and window length (1024).
	FFTSize int `yaml:"fft_size"`

	// HopLength is the stride between frames (256).
	HopLength int `yaml:"hop_length"`

	// FMin / FMax bound the filterbank in Hz (0 / SampleRate/2).
	FMin float64 `yaml:"f_min"`
	FMax float64 `yaml:"f_max"`
}

func (c *Config) normalize() {
	if c.SampleRate <= 0 {
		c.SampleRate = 22050
	}
	if c.NumBins <= 0 {
		c.NumBins = 80
	}
	if c.FFTSize <= 0 {
		c.FFTSize = 1024
	}
	if c.HopLength <= 0 {
		c.HopLength = 256
	}
	if c.FMax <= 0 || c.FMax > float64(c.SampleRate)/2 {
		c.FMax = float64(c.SampleRate) / 2
	}
}

// Extractor converts sample buffers into log-mel frames. One extractor can be
// reused across clips; it is not safe for concurrent use.
type Extractor struct {
	cfg     Config
	fft     *fourier.FFT
	win     []float64
	filters [][]float64 // [NumBins][FFTSize/2+1]
	frame   []float64
	coeffs  []complex128
	power   []float64
}

// New creates an extractor for the given geometry.
func New(cfg Config) *Extractor {
	cfg.normalize()

	win := make([]float64, cfg.FFTSize)
	for i := range win {
		win[i] = 1
	}
	window.Hann(win)

	return &Extractor{
		cfg:     cfg,
		fft:     fourier.NewFFT(cfg.FFTSize),
		win:     win,
		filters: melFilterbank(cfg),
		frame:   make([]float64, cfg.FFTSize),
		coeffs:  make([]complex128, cfg.FFTSize/2+1),
		power:   make([]float64, cfg.FFTSize/2+1),
	}
}

// Config returns the normalized geometry.
func (e *Extractor) Config() Config { return e.cfg }

// NumFrames returns the frame count Spectrogram produces for n samples.
func (e *Extractor) NumFrames(n int) int {
	if n < e.cfg.FFTSize {
		if n == 0 {
			return 0
		}
		return 1
	}
	return 1 + (n-e.cfg.FFTSize)/e.cfg.HopLength
}

// Spectrogram computes log-mel frames, one [NumBins] row per frame. Inputs
// shorter than one window are zero-padded to a single frame.
func (e *Extractor) Spectrogram(samples []float32) [][]float32 {
	frames := e.NumFrames(len(samples))
	out := make([][]float32, frames)
	for f := 0; f < frames; f++ {
		start := f * e.cfg.HopLength
		for i := range e.frame {
			if start+i < len(samples) {
				e.frame[i] = float64(samples[start+i]) * e.win[i]
			} else {
				e.frame[i] = 0
			}
		}
		e.fft.Coefficients(e.coeffs, e.frame)
		for i, c := range e.coeffs {
			m := cmplx.Abs(c)
			e.power[i] = m * m
		}

		row := make([]float32, e.cfg.NumBins)
		for b, filter := range e.filters {
			var acc float64
			for i, w := range filter {
				if w != 0 {
					acc += w * e.power[i]
				}
			}
			row[b] = float32(math.Log(math.Max(acc, logFloor)))
		}
		out[f] = row
	}
	return out
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds NumBins triangular filters with mel-spaced corners
// over the FFTSize/2+1 frequency bins.
func melFilterbank(cfg Config) [][]float64 {
	bins := cfg.FFTSize/2 + 1
	melMin := hzToMel(cfg.FMin)
	melMax := hzToMel(cfg.FMax)

	// NumBins+2 corner frequencies, expressed as fractional FFT bins.
	corners := make([]float64, cfg.NumBins+2)
	for i := range corners {
		m := melMin + (melMax-melMin)*float64(i)/float64(cfg.NumBins+1)
		corners[i] = melToHz(m) * float64(cfg.FFTSize) / float64(cfg.SampleRate)
	}

	filters := make([][]float64, cfg.NumBins)
	for b := 0; b < cfg.NumBins; b++ {
		filter := make([]float64, bins)
		left, center, right := corners[b], corners[b+1], corners[b+2]
		for i := 0; i < bins; i++ {
			f := float64(i)
			switch {
			case f <= left || f >= right:
			case f <= center:
				if center > left {
					filter[i] = (f - left) / (center - left)
				}
			default:
				if right > center {
					filter[i] = (right - f) / (right - center)
				}
			}
		}
		filters[b] = filter
	}
	return filters
}
