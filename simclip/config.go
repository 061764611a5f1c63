package simclip

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/hupe1980/sonigo/audio/mel"
)

// Config describes a similarity model: where its ONNX export lives, the
// graph's tensor names, and the audio geometry it was trained on. Loaded
// from a YAML options file.
type Config struct {
	// ModelPath locates the ONNX export. Required.
	ModelPath string `yaml:"model_path"`

	// InputName / OutputName are the graph tensor names.
	// Default "mel" / "embedding".
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`

	// SampleRate the model expects (22050).
	SampleRate int `yaml:"sample_rate"`

	// ClipSeconds is the fixed clip window; shorter clips are zero padded,
	// longer ones truncated (5s).
	ClipSeconds float64 `yaml:"clip_seconds"`

	// Dimension is the embedding width (512).
	Dimension int `yaml:"dimension"`

	// Mel is the spectrogram geometry.
	Mel mel.Config `yaml:"mel"`

	// ONNXLibrary optionally points at the ONNX Runtime shared library.
	ONNXLibrary string `yaml:"onnx_library"`
}

// LoadConfig reads and validates a YAML model options file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simclip: read options: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("simclip: parse options: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.ModelPath == "" {
		return fmt.Errorf("simclip: model_path is required")
	}
	if c.InputName == "" {
		c.InputName = "mel"
	}
	if c.OutputName == "" {
		c.OutputName = "embedding"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 22050
	}
	if c.ClipSeconds <= 0 {
		c.ClipSeconds = 5
	}
	if c.Dimension <= 0 {
		c.Dimension = 512
	}
	if c.Mel.SampleRate <= 0 {
		c.Mel.SampleRate = c.SampleRate
	}
	return nil
}

// ClipSamples returns the fixed clip window in samples.
func (c *Config) ClipSamples() int {
	return int(c.ClipSeconds * float64(c.SampleRate))
}
