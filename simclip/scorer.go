package simclip

import (
	"fmt"

	"github.com/hupe1980/sonigo/internal/math32"
)

const (
	// DefaultTopK is the neighbor count kept per clip.
	DefaultTopK = 3

	// DefaultChunkSize bounds the pairwise score matrix. Clips are only
	// compared against others in the same chunk.
	DefaultChunkSize = 256
)

// Neighbor is one scored near-duplicate candidate.
type Neighbor struct {
	Path  string  `msgpack:"path"`
	Score float32 `msgpack:"score"`
}

// ScorerOptions configures a Scorer.
type ScorerOptions struct {
	// TopK is the neighbor count kept per clip.
	TopK int

	// ChunkSize bounds how many clips are scored against each other at
	// once. Neighbors never cross a chunk boundary.
	ChunkSize int
}

// DefaultScorerOptions returns sensible defaults.
func DefaultScorerOptions() ScorerOptions {
	return ScorerOptions{
		TopK:      DefaultTopK,
		ChunkSize: DefaultChunkSize,
	}
}

// ScorerOption customizes ScorerOptions.
type ScorerOption func(*ScorerOptions)

// WithTopK sets the per-clip neighbor count.
func WithTopK(k int) ScorerOption {
	return func(o *ScorerOptions) { o.TopK = k }
}

// WithChunkSize sets the scoring chunk size.
func WithChunkSize(n int) ScorerOption {
	return func(o *ScorerOptions) { o.ChunkSize = n }
}

// Scorer turns clip embeddings into per-clip neighbor lists.
type Scorer struct {
	opts ScorerOptions
}

// NewScorer creates a scorer.
func NewScorer(optFns ...ScorerOption) *Scorer {
	opts := DefaultScorerOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.ChunkSize <= 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Scorer{opts: opts}
}

// Score computes, for every clip, its highest-similarity neighbors among the
// other clips of the same chunk, ordered by descending cosine similarity and
// never including the clip itself. Embeddings are assumed L2-normalized so
// cosine similarity is a dot product. A single clip gets an empty list.
func (s *Scorer) Score(paths []string, embs [][]float32) (map[string][]Neighbor, error) {
	if len(paths) != len(embs) {
		return nil, fmt.Errorf("simclip: %d paths for %d embeddings", len(paths), len(embs))
	}

	out := make(map[string][]Neighbor, len(paths))
	for start := 0; start < len(paths); start += s.opts.ChunkSize {
		end := start + s.opts.ChunkSize
		if end > len(paths) {
			end = len(paths)
		}
		if err := s.scoreChunk(paths[start:end], embs[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Scorer) scoreChunk(paths []string, embs [][]float32, out map[string][]Neighbor) error {
	for i, path := range paths {
		k := s.opts.TopK
		if k > len(paths)-1 {
			k = len(paths) - 1
		}
		top := make([]Neighbor, 0, k)
		for j, other := range paths {
			if j == i {
				continue
			}
			if len(embs[j]) != len(embs[i]) {
				return fmt.Errorf("simclip: embedding width mismatch: %s has %d, %s has %d",
					path, len(embs[i]), other, len(embs[j]))
			}
			top = insertNeighbor(top, k, Neighbor{Path: other, Score: math32.Dot(embs[i], embs[j])})
		}
		out[path] = top
	}
	return nil
}

// insertNeighbor keeps top sorted by descending score with at most k entries.
// k is small, so a linear insertion beats a heap.
func insertNeighbor(top []Neighbor, k int, n Neighbor) []Neighbor {
	if k == 0 {
		return top
	}
	pos := len(top)
	for pos > 0 && top[pos-1].Score < n.Score {
		pos--
	}
	if pos == len(top) {
		if len(top) < k {
			return append(top, n)
		}
		return top
	}
	if len(top) < k {
		top = append(top, Neighbor{})
	}
	copy(top[pos+1:], top[pos:])
	top[pos] = n
	return top
}
