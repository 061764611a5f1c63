// Package testutil provides testing utilities for sonigo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded thread-safe RNG for generating embeddings, a WAV
// fixture writer, and a deterministic stand-in for the ONNX embedding
// model.
//
// # Random Embedding Generation
//
//	rng := testutil.NewRNG(seed)
//	embs := rng.UnitVectors(100, 512) // L2-normalized rows
//
// # Clip Fixtures
//
//	testutil.WriteWAV(t, path, 440, 8000, 0.25) // 440 Hz sine, 0.25s
package testutil
