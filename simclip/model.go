package simclip

// Model embeds a featurized clip into a fixed-width vector. Implementations
// must be safe for concurrent Embed calls; the batch runner shares one model
// across its workers.
type Model interface {
	// Embed maps log-mel frames ([frames][bins]) to an L2-normalized
	// embedding of Dimension() entries.
	Embed(mel [][]float32) ([]float32, error)

	// Dimension returns the embedding width.
	Dimension() int

	// Close releases model resources.
	Close() error
}
