// Package audio loads speech clips into mono float32 sample buffers and
// prepares them for featurization: channel downmix, linear resampling and
// pad-or-truncate windowing.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// ErrEmptyClip indicates a decodable file that contains no samples.
var ErrEmptyClip = errors.New("audio: clip contains no samples")

// audioExts lists the file extensions the directory scanner treats as audio.
var audioExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".opus": true,
}

// IsAudioFile reports whether the file name carries a recognized audio
// extension. Recognition is independent of decode support; unsupported
// formats surface as per-clip decode errors.
func IsAudioFile(name string) bool {
	return audioExts[strings.ToLower(filepath.Ext(name))]
}

// Clip is a mono audio clip with samples in [-1, 1].
type Clip struct {
	Samples []float32
	Rate    int
}

// Seconds returns the clip duration.
func (c *Clip) Seconds() float64 {
	if c.Rate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Rate)
}

// Load reads and decodes a clip from disk. Only WAV decoding is supported.
func Load(path string) (*Clip, error) {
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		return nil, fmt.Errorf("audio: unsupported format %q", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open clip: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV decodes a WAV stream to a mono clip, averaging channels and
// scaling integer PCM to [-1, 1].
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, ErrEmptyClip
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bits := int(d.BitDepth)
	if bits <= 0 {
		bits = 16
	}
	scale := float32(int64(1) << (bits - 1))

	n := len(buf.Data) / channels
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		var acc float32
		for c := 0; c < channels; c++ {
			acc += float32(buf.Data[i*channels+c])
		}
		samples[i] = acc / (float32(channels) * scale)
	}
	return &Clip{Samples: samples, Rate: buf.Format.SampleRate}, nil
}

// Resample returns the clip converted to the target rate using linear
// interpolation. The receiver is returned unchanged when rates match.
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || rate == c.Rate || len(c.Samples) == 0 {
		return c
	}
	n := int(float64(len(c.Samples)) * float64(rate) / float64(c.Rate))
	if n < 1 {
		n = 1
	}
	out := make([]float32, n)
	step := float64(c.Rate) / float64(rate)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(c.Samples)-1 {
			out[i] = c.Samples[len(c.Samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = c.Samples[j]*(1-frac) + c.Samples[j+1]*frac
	}
	return &Clip{Samples: out, Rate: rate}
}

// PadOrTrim fits samples to exactly n entries, zero-padding on the right or
// truncating as needed.
func PadOrTrim(samples []float32, n int) []float32 {
	if len(samples) == n {
		return samples
	}
	out := make([]float32, n)
	copy(out, samples)
	return out
}
