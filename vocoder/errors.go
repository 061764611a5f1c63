package vocoder

import (
	"errors"
	"fmt"
)

var (
	// ErrConditioningRequired is returned by Forward when the model was
	// built with Conditioned set but no reference conditioning was passed.
	ErrConditioningRequired = errors.New("vocoder: conditioning inputs required but absent")
)

// ErrStrideMismatch indicates an input whose temporal length is not a
// multiple of the model's total downsampling stride.
type ErrStrideMismatch struct {
	Length int
	Stride int
}

func (e *ErrStrideMismatch) Error() string {
	return fmt.Sprintf("vocoder: input length %d is not a multiple of the total stride %d", e.Length, e.Stride)
}

// ErrCodesTooLong indicates a discrete code sequence longer than the signal
// it conditions; nearest interpolation only stretches, never compresses.
type ErrCodesTooLong struct {
	Codes  int
	Signal int
}

func (e *ErrCodesTooLong) Error() string {
	return fmt.Sprintf("vocoder: %d discrete codes exceed signal length %d", e.Codes, e.Signal)
}
