package sonigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sonigo/blobstore"
	"github.com/hupe1980/sonigo/dedupe"
)

var (
	// ErrMixedLayout is returned when the scan root mixes clip files and
	// subdirectories inside one directory.
	ErrMixedLayout = errors.New("mixed directory layout")

	// ErrArtifactExists is returned when an artifact is already present.
	// Existing artifacts are never overwritten.
	ErrArtifactExists = errors.New("artifact already exists")
)

// ErrInvalidConfig indicates an unusable model options file.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Path  string
	cause error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid options file: %s", e.Path)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Layout and artifact normalization.
	var md *dedupe.ErrMixedDirectory
	if errors.As(err, &md) {
		return fmt.Errorf("%w: %w", ErrMixedLayout, err)
	}
	if errors.Is(err, blobstore.ErrAlreadyExists) {
		return fmt.Errorf("%w: %w", ErrArtifactExists, err)
	}

	return err
}
