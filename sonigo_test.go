package sonigo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sonigo/audio/mel"
	"github.com/hupe1980/sonigo/blobstore"
	"github.com/hupe1980/sonigo/dedupe"
	"github.com/hupe1980/sonigo/simclip"
	"github.com/hupe1980/sonigo/testutil"
)

func testConfig() simclip.Config {
	return simclip.Config{
		ModelPath:   "fake.onnx",
		SampleRate:  8000,
		ClipSeconds: 0.25,
		Dimension:   8,
		Mel:         mel.Config{SampleRate: 8000, NumBins: 16, FFTSize: 256, HopLength: 128},
	}
}

func writeTestClip(t *testing.T, path string, freq float64) {
	t.Helper()
	testutil.WriteWAV(t, path, freq, 8000, 0.25)
}

func TestOpen(t *testing.T) {
	t.Run("loads yaml options", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "model.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"model_path: fake.onnx\nsample_rate: 8000\nclip_seconds: 0.25\ndimension: 8\n",
		), 0o644))

		p, err := Open(path, WithModel(&testutil.StubModel{Dim: 8}))
		require.NoError(t, err)
		defer p.Close()

		cfg := p.Config()
		assert.Equal(t, "fake.onnx", cfg.ModelPath)
		assert.Equal(t, 8000, cfg.SampleRate)
		assert.Equal(t, 8, cfg.Dimension)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.yaml"))
		var ic *ErrInvalidConfig
		require.ErrorAs(t, err, &ic)
		assert.Contains(t, ic.Path, "nope.yaml")
		assert.Error(t, errors.Unwrap(ic))
	})

	t.Run("invalid options", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "model.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sample_rate: 8000\n"), 0o644))

		_, err := Open(path)
		var ic *ErrInvalidConfig
		require.ErrorAs(t, err, &ic)
	})
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("writes artifacts and reports summary", func(t *testing.T) {
		root := t.TempDir()
		writeTestClip(t, filepath.Join(root, "s1", "a.wav"), 200)
		writeTestClip(t, filepath.Join(root, "s1", "b.wav"), 210)
		writeTestClip(t, filepath.Join(root, "s2", "c.wav"), 440)

		metrics := &BasicMetricsCollector{}
		p := New(testConfig(),
			WithModel(&testutil.StubModel{Dim: 8}),
			WithWorkers(2),
			WithTopK(3),
			WithMetricsCollector(metrics),
		)
		defer p.Close()

		summary, err := p.Run(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Units)
		assert.Equal(t, 2, summary.Processed)
		assert.Zero(t, summary.Failed)

		assert.FileExists(t, filepath.Join(root, "s1", dedupe.ArtifactName))
		assert.FileExists(t, filepath.Join(root, "s2", dedupe.ArtifactName))

		stats := metrics.GetStats()
		assert.EqualValues(t, 1, stats.RunCount)
		assert.EqualValues(t, 2, stats.UnitsProcessed)
		assert.Zero(t, stats.RunErrors)
	})

	t.Run("rerun skips existing artifacts", func(t *testing.T) {
		root := t.TempDir()
		writeTestClip(t, filepath.Join(root, "s1", "a.wav"), 200)
		writeTestClip(t, filepath.Join(root, "s1", "b.wav"), 210)

		p := New(testConfig(), WithModel(&testutil.StubModel{Dim: 8}))
		defer p.Close()

		first, err := p.Run(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 1, first.Processed)

		second, err := p.Run(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 1, second.Skipped)
		assert.Zero(t, second.Processed)
	})

	t.Run("mixed layout maps to ErrMixedLayout", func(t *testing.T) {
		root := t.TempDir()
		writeTestClip(t, filepath.Join(root, "s1", "a.wav"), 200)
		writeTestClip(t, filepath.Join(root, "s1", "nested", "b.wav"), 210)

		metrics := &BasicMetricsCollector{}
		p := New(testConfig(),
			WithModel(&testutil.StubModel{Dim: 8}),
			WithMetricsCollector(metrics),
		)
		defer p.Close()

		_, err := p.Run(ctx, root)
		require.ErrorIs(t, err, ErrMixedLayout)

		var md *dedupe.ErrMixedDirectory
		require.ErrorAs(t, err, &md)
		assert.EqualValues(t, 1, metrics.GetStats().RunErrors)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		root := t.TempDir()
		writeTestClip(t, filepath.Join(root, "s1", "a.wav"), 200)

		p := New(testConfig(),
			WithModel(&testutil.StubModel{Dim: 8}),
			WithDryRun(true),
		)
		defer p.Close()

		summary, err := p.Run(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Processed)
		assert.NoFileExists(t, filepath.Join(root, "s1", dedupe.ArtifactName))
	})

	t.Run("custom store receives artifacts", func(t *testing.T) {
		root := t.TempDir()
		writeTestClip(t, filepath.Join(root, "s1", "a.wav"), 200)
		writeTestClip(t, filepath.Join(root, "s1", "b.wav"), 210)

		store := blobstore.NewMemoryStore()
		p := New(testConfig(),
			WithModel(&testutil.StubModel{Dim: 8}),
			WithStore(store),
			WithResourceLimits(1, 0),
		)
		defer p.Close()

		summary, err := p.Run(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Processed)

		ok, err := store.Exists(ctx, "s1/"+dedupe.ArtifactName)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoFileExists(t, filepath.Join(root, "s1", dedupe.ArtifactName))
	})

	t.Run("throttled run completes", func(t *testing.T) {
		root := t.TempDir()
		writeTestClip(t, filepath.Join(root, "s1", "a.wav"), 200)
		writeTestClip(t, filepath.Join(root, "s1", "b.wav"), 210)
		writeTestClip(t, filepath.Join(root, "s2", "c.wav"), 440)

		p := New(testConfig(),
			WithModel(&testutil.StubModel{Dim: 8}),
			WithWorkers(2),
			WithResourceLimits(1, 1<<20),
		)
		defer p.Close()

		summary, err := p.Run(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Processed)
		assert.FileExists(t, filepath.Join(root, "s1", dedupe.ArtifactName))
		assert.FileExists(t, filepath.Join(root, "s2", dedupe.ArtifactName))
	})

	t.Run("close leaves injected model alone", func(t *testing.T) {
		m := &testutil.StubModel{Dim: 8}
		p := New(testConfig(), WithModel(m))
		require.NoError(t, p.Close())
		assert.False(t, m.Closed())
	})
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, translateError(plain))

	wrapped := translateError(blobstore.ErrAlreadyExists)
	assert.ErrorIs(t, wrapped, ErrArtifactExists)
}
