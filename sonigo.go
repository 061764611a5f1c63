// Package sonigo provides batch near-duplicate detection for audio clip
// libraries. Clips are embedded with a learned similarity model and each
// directory of clips receives a compact artifact listing, per clip, its
// closest neighbors within that directory.
//
// The Pipeline facade wires the pieces together: a YAML model options
// file describing the ONNX embedding export, a directory scanner, a
// worker pool and an artifact store. Basic usage:
//
//	p, err := sonigo.Open("model.yaml", sonigo.WithWorkers(8))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	summary, err := p.Run(ctx, "/data/clips")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("processed %d of %d units\n", summary.Processed, summary.Units)
//
// Existing artifacts are never overwritten; rerunning over the same tree
// only fills in the gaps. The lower level packages (simclip, dedupe,
// blobstore, vocoder) remain usable on their own when the facade is too
// coarse.
package sonigo

import (
	"context"
	"time"

	"github.com/hupe1980/sonigo/dedupe"
	"github.com/hupe1980/sonigo/simclip"
)

// Summary reports the per-unit outcome of a batch run.
type Summary = dedupe.Summary

// Pipeline is the main entry point for batch similarity runs. It is safe
// for concurrent use, though Run already parallelizes internally.
type Pipeline struct {
	cfg     simclip.Config
	runner  *dedupe.Runner
	workers int
	logger  *Logger
	metrics MetricsCollector
}

// Open loads a YAML model options file and builds a Pipeline from it.
func Open(path string, optFns ...Option) (*Pipeline, error) {
	o := applyOptions(optFns)

	cfg, err := simclip.LoadConfig(path)
	o.logger.LogConfigLoad(context.Background(), path, err)
	if err != nil {
		return nil, &ErrInvalidConfig{Path: path, cause: err}
	}

	return newPipeline(*cfg, o), nil
}

// New builds a Pipeline from an in-memory model configuration.
func New(cfg simclip.Config, optFns ...Option) *Pipeline {
	return newPipeline(cfg, applyOptions(optFns))
}

func newPipeline(cfg simclip.Config, o options) *Pipeline {
	runnerOpts := []dedupe.Option{
		dedupe.WithWorkers(o.workers),
		dedupe.WithDryRun(o.dryRun),
		dedupe.WithLogger(o.logger.Logger),
	}
	if o.topK > 0 {
		runnerOpts = append(runnerOpts, dedupe.WithTopK(o.topK))
	}
	if o.chunkSize > 0 {
		runnerOpts = append(runnerOpts, dedupe.WithChunkSize(o.chunkSize))
	}
	if o.store != nil {
		runnerOpts = append(runnerOpts, dedupe.WithStore(o.store))
	}
	if o.model != nil {
		runnerOpts = append(runnerOpts, dedupe.WithModel(o.model))
	}
	if o.controller != nil {
		runnerOpts = append(runnerOpts, dedupe.WithController(o.controller))
	}

	return &Pipeline{
		cfg:     cfg,
		runner:  dedupe.NewRunner(cfg, runnerOpts...),
		workers: o.workers,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
}

// Config returns the model configuration the pipeline was built with.
func (p *Pipeline) Config() simclip.Config {
	return p.cfg
}

// Run scans root for directory units and writes one similarity artifact
// per unit. Units whose artifact already exists are skipped; units that
// fail to score are counted and logged but do not abort the run. Run
// returns an error only for setup problems such as a mixed directory
// layout or an unreadable root.
func (p *Pipeline) Run(ctx context.Context, root string) (Summary, error) {
	p.logger.LogRunStart(ctx, root, p.workers)

	start := time.Now()
	summary, err := p.runner.Run(ctx, root)
	err = translateError(err)
	elapsed := time.Since(start)

	p.metrics.RecordRun(summary, elapsed, err)
	p.logger.LogRun(ctx, root, summary, elapsed, err)

	return summary, err
}

// Close releases the lazily loaded embedding model, if any. Injected
// models are left untouched.
func (p *Pipeline) Close() error {
	err := p.runner.Close()
	p.logger.LogClose(context.Background(), err)
	return err
}
