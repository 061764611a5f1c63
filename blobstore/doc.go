// Package blobstore provides storage abstraction for the per-directory
// artifacts the batch tool produces (similarity maps).
//
// Store is the interface for checking, reading and writing artifact blobs.
// Implementations must be safe for concurrent use and must refuse to replace
// an existing blob: finished units are immutable.
//
// # Built-in Implementations
//
//   - LocalStore: artifacts on the local filesystem, next to the clips
//   - MemoryStore: in-memory store for tests
//   - s3.Store: Amazon S3 with streamed parallel uploads
//   - minio.Store: MinIO and other S3-compatible object stores
package blobstore
