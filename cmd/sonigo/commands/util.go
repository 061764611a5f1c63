package commands

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/hupe1980/sonigo"
)

func newLogger() *sonigo.Logger {
	if flagJSONLog {
		return sonigo.NewJSONLogger(logLevel())
	}
	return sonigo.NewTextLogger(logLevel())
}

// loadYAML reads a YAML file into v.
func loadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}
