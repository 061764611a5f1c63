package testutil

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/simclip"
)

var _ simclip.Model = (*StubModel)(nil)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVector(dimensions)
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses Gaussian distribution for uniform distribution on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float32, num)
	for i := range vectors {
		vectors[i] = r.unitVector(dimensions)
	}

	return vectors
}

func (r *RNG) unitVector(dimensions int) []float32 {
	vec := make([]float32, dimensions)
	for j := range vec {
		vec[j] = float32(r.rand.NormFloat64())
	}
	math32.NormalizeL2InPlace(vec)
	return vec
}

// WriteWAV writes a 16-bit mono sine wave fixture to path, creating
// parent directories as needed.
func WriteWAV(tb testing.TB, path string, freq float64, rate int, seconds float64) {
	tb.Helper()

	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(tb, err)
	defer f.Close()

	frames := make([]int, int(float64(rate)*seconds))
	for i := range frames {
		frames[i] = int(16000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(tb, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           frames,
	}))
	require.NoError(tb, enc.Close())
}

// StubModel derives a deterministic embedding from spectrogram energy, so
// identical clips embed identically without a real ONNX runtime.
type StubModel struct {
	Dim int

	mu     sync.Mutex
	closed bool
}

// Embed implements simclip.Model.
func (m *StubModel) Embed(melFrames [][]float32) ([]float32, error) {
	emb := make([]float32, m.Dim)
	for f, row := range melFrames {
		for b, v := range row {
			emb[(f+b)%m.Dim] += v
		}
	}
	var norm float64
	for _, v := range emb {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		emb[0] = 1
		return emb, nil
	}
	for i := range emb {
		emb[i] = float32(float64(emb[i]) / norm)
	}
	return emb, nil
}

// Dimension implements simclip.Model.
func (m *StubModel) Dimension() int { return m.Dim }

// Close implements simclip.Model and records that it was called.
func (m *StubModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *StubModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
