package dedupe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/hupe1980/sonigo/audio"
	"github.com/hupe1980/sonigo/audio/mel"
	"github.com/hupe1980/sonigo/blobstore"
	"github.com/hupe1980/sonigo/internal/resource"
	"github.com/hupe1980/sonigo/simclip"
)

// Options configures a Runner.
type Options struct {
	// Workers is the worker pool size. Non-positive defaults to GOMAXPROCS.
	Workers int

	// TopK is the neighbor count kept per clip.
	TopK int

	// ChunkSize bounds the pairwise scoring chunks.
	ChunkSize int

	// DryRun scores units without writing artifacts.
	DryRun bool

	// Store receives the artifacts. Nil defaults to a LocalStore rooted at
	// the scan root, so artifacts land inside the processed directories.
	Store blobstore.Store

	// Model overrides the lazily loaded ONNX model. The caller keeps
	// ownership; Close will not touch it.
	Model simclip.Model

	// Controller throttles clip loading. Nil is unlimited.
	Controller *resource.Controller

	// Logger receives unit progress. Nil defaults to slog.Default().
	Logger *slog.Logger
}

// Option customizes Options.
type Option func(*Options)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithTopK sets the per-clip neighbor count.
func WithTopK(k int) Option {
	return func(o *Options) { o.TopK = k }
}

// WithChunkSize sets the scoring chunk size.
func WithChunkSize(n int) Option {
	return func(o *Options) { o.ChunkSize = n }
}

// WithDryRun disables artifact writes.
func WithDryRun(dry bool) Option {
	return func(o *Options) { o.DryRun = dry }
}

// WithStore routes artifacts to a custom store.
func WithStore(store blobstore.Store) Option {
	return func(o *Options) { o.Store = store }
}

// WithModel injects a preloaded similarity model.
func WithModel(m simclip.Model) Option {
	return func(o *Options) { o.Model = m }
}

// WithController throttles clip loading.
func WithController(c *resource.Controller) Option {
	return func(o *Options) { o.Controller = c }
}

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Units     int
	Processed int
	Skipped   int
	Failed    int
}

// Runner executes the batch job. One runner serves one model configuration
// and may run several roots sequentially.
type Runner struct {
	cfg    simclip.Config
	opts   Options
	scorer *simclip.Scorer

	modelOnce sync.Once
	model     simclip.Model
	modelErr  error
	ownsModel bool
}

// NewRunner creates a runner for the given model configuration.
func NewRunner(cfg simclip.Config, optFns ...Option) *Runner {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var scorerOpts []simclip.ScorerOption
	if opts.TopK > 0 {
		scorerOpts = append(scorerOpts, simclip.WithTopK(opts.TopK))
	}
	if opts.ChunkSize > 0 {
		scorerOpts = append(scorerOpts, simclip.WithChunkSize(opts.ChunkSize))
	}

	return &Runner{
		cfg:    cfg,
		opts:   opts,
		scorer: simclip.NewScorer(scorerOpts...),
	}
}

// Run scans root and processes every leaf directory. Unit failures are
// logged and counted, not returned; the error covers fatal conditions only
// (bad layout, cancellation).
func (r *Runner) Run(ctx context.Context, root string) (Summary, error) {
	dirs, err := Scan(root)
	if err != nil {
		return Summary{}, err
	}

	store := r.opts.Store
	if store == nil {
		store = blobstore.NewLocalStore(root)
	}

	pool := NewWorkerPool(r.opts.Workers)

	var mu sync.Mutex
	summary := Summary{Units: len(dirs)}

	for _, dir := range dirs {
		dir := dir
		err := pool.Submit(ctx, func() {
			status := r.processUnit(ctx, store, root, dir)
			mu.Lock()
			switch status {
			case unitProcessed:
				summary.Processed++
			case unitSkipped:
				summary.Skipped++
			case unitFailed:
				summary.Failed++
			}
			mu.Unlock()
		})
		if err != nil {
			pool.Close()
			return summary, err
		}
	}

	pool.Close()
	return summary, nil
}

// Close releases the lazily loaded model, if any.
func (r *Runner) Close() error {
	if r.ownsModel && r.model != nil {
		return r.model.Close()
	}
	return nil
}

type unitStatus int

const (
	unitProcessed unitStatus = iota
	unitSkipped
	unitFailed
)

func (r *Runner) processUnit(ctx context.Context, store blobstore.Store, root, dir string) unitStatus {
	log := r.opts.Logger.With("dir", dir)
	start := time.Now()

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		log.Error("unit failed", "error", err)
		return unitFailed
	}
	rel = filepath.ToSlash(rel)
	key := path.Join(rel, ArtifactName)

	exists, err := store.Exists(ctx, key)
	if err != nil {
		log.Error("unit failed", "error", err)
		return unitFailed
	}
	if exists {
		log.Debug("unit skipped, artifact exists")
		return unitSkipped
	}

	clips, err := listClips(dir)
	if err != nil {
		log.Error("unit failed", "error", err)
		return unitFailed
	}

	model, err := r.loadModel()
	if err != nil {
		log.Error("unit failed, model unavailable", "error", err)
		return unitFailed
	}

	extractor := mel.New(r.cfg.Mel)
	embs := make([][]float32, 0, len(clips))
	for _, name := range clips {
		emb, err := r.embedClip(ctx, model, extractor, filepath.Join(dir, name))
		if err != nil {
			log.Error("unit failed", "clip", name, "error", err)
			return unitFailed
		}
		embs = append(embs, emb)
	}

	neighbors, err := r.scorer.Score(clips, embs)
	if err != nil {
		log.Error("unit failed", "error", err)
		return unitFailed
	}

	if r.opts.DryRun {
		log.Info("unit scored (dry run)", "clips", len(clips), "took", time.Since(start))
		return unitProcessed
	}

	simmap := &SimilarityMap{
		Dir:       rel,
		Neighbors: neighbors,
		CreatedAt: time.Now().UTC(),
	}
	if err := writeArtifact(ctx, store, key, simmap); err != nil {
		if errors.Is(err, blobstore.ErrAlreadyExists) {
			log.Debug("unit skipped, artifact appeared during run")
			return unitSkipped
		}
		log.Error("unit failed", "error", err)
		return unitFailed
	}

	log.Info("unit done", "clips", len(clips), "took", time.Since(start))
	return unitProcessed
}

func writeArtifact(ctx context.Context, store blobstore.Store, key string, m *SimilarityMap) error {
	w, err := store.Create(ctx, key)
	if err != nil {
		return err
	}
	if err := m.Encode(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// loadModel loads the similarity model exactly once, shared across workers.
func (r *Runner) loadModel() (simclip.Model, error) {
	r.modelOnce.Do(func() {
		if r.opts.Model != nil {
			r.model = r.opts.Model
			return
		}
		m, err := simclip.NewONNXModel(r.cfg)
		if err != nil {
			r.modelErr = err
			return
		}
		r.model = m
		r.ownsModel = true
	})
	return r.model, r.modelErr
}

func (r *Runner) embedClip(ctx context.Context, model simclip.Model, extractor *mel.Extractor, clipPath string) ([]float32, error) {
	clip, err := r.loadClip(ctx, clipPath)
	if err != nil {
		return nil, err
	}

	samples := audio.PadOrTrim(clip.Resample(r.cfg.SampleRate).Samples, r.cfg.ClipSamples())
	frames := extractor.Spectrogram(samples)

	emb, err := model.Embed(frames)
	if err != nil {
		return nil, fmt.Errorf("dedupe: embed clip: %w", err)
	}
	return emb, nil
}

func (r *Runner) loadClip(ctx context.Context, clipPath string) (*audio.Clip, error) {
	if err := r.opts.Controller.AcquireLoad(ctx); err != nil {
		return nil, err
	}
	defer r.opts.Controller.ReleaseLoad()

	f, err := os.Open(clipPath)
	if err != nil {
		return nil, fmt.Errorf("dedupe: open clip: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, f, r.opts.Controller))
	if err != nil {
		return nil, fmt.Errorf("dedupe: read clip: %w", err)
	}
	return audio.DecodeWAV(bytes.NewReader(data))
}
