package dedupe

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hupe1980/sonigo/simclip"
)

// ArtifactName is the per-directory output blob name.
const ArtifactName = "similarities.bin"

// SimilarityMap is the per-directory artifact: for every clip (by file name)
// its nearest neighbors within the directory, best first.
type SimilarityMap struct {
	// Dir is the directory path relative to the scan root.
	Dir string `msgpack:"dir"`

	// Neighbors maps clip file names to their scored neighbor lists.
	Neighbors map[string][]simclip.Neighbor `msgpack:"neighbors"`

	// CreatedAt records when the unit finished.
	CreatedAt time.Time `msgpack:"created_at"`
}

// Encode writes the map as zstd-compressed msgpack.
func (m *SimilarityMap) Encode(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("dedupe: create compressor: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(m); err != nil {
		_ = zw.Close()
		return fmt.Errorf("dedupe: encode similarity map: %w", err)
	}
	return zw.Close()
}

// DecodeSimilarityMap reads a map written by Encode.
func DecodeSimilarityMap(r io.Reader) (*SimilarityMap, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("dedupe: open decompressor: %w", err)
	}
	defer zr.Close()

	var m SimilarityMap
	if err := msgpack.NewDecoder(zr).Decode(&m); err != nil {
		return nil, fmt.Errorf("dedupe: decode similarity map: %w", err)
	}
	return &m, nil
}
