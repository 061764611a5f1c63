package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrAlreadyExists is returned when a write would replace an existing blob.
// Finished artifacts are immutable; callers decide whether existence means
// "skip" or "fail".
var ErrAlreadyExists = errors.New("blobstore: blob already exists")

// Store is an abstraction for accessing immutable artifact blobs.
type Store interface {
	// Exists reports whether a blob is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create opens a blob for writing. The blob becomes visible atomically
	// when the writer is closed; Close fails with ErrAlreadyExists if the
	// name was written in the meantime.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}
