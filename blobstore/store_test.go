package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())

		exists, err := store.Exists(ctx, "a/sim.bin")
		require.NoError(t, err)
		assert.False(t, exists)

		w, err := store.Create(ctx, "a/sim.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		exists, err = store.Exists(ctx, "a/sim.bin")
		require.NoError(t, err)
		assert.True(t, exists)

		r, err := store.Open(ctx, "a/sim.bin")
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("never overwrites", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())

		w, err := store.Create(ctx, "sim.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("first"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = store.Create(ctx, "sim.bin")
		assert.ErrorIs(t, err, ErrAlreadyExists)

		r, err := store.Open(ctx, "sim.bin")
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, []byte("first"), data)
	})

	t.Run("concurrent create loses to first close", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())

		w1, err := store.Create(ctx, "sim.bin")
		require.NoError(t, err)
		w2, err := store.Create(ctx, "sim.bin")
		require.NoError(t, err)

		_, err = w1.Write([]byte("one"))
		require.NoError(t, err)
		require.NoError(t, w1.Close())

		_, err = w2.Write([]byte("two"))
		require.NoError(t, err)
		assert.ErrorIs(t, w2.Close(), ErrAlreadyExists)
	})

	t.Run("open missing", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())
		_, err := store.Open(ctx, "nope.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		dir := t.TempDir()
		store := NewLocalStore(dir)

		w, err := store.Create(ctx, "sim.bin")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "sim.bin", filepath.Base(entries[0].Name()))
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := NewMemoryStore()

		w, err := store.Create(ctx, "dir/sim.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		exists, err := store.Exists(ctx, "dir/sim.bin")
		require.NoError(t, err)
		assert.True(t, exists)

		r, err := store.Open(ctx, "dir/sim.bin")
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("never overwrites", func(t *testing.T) {
		store := NewMemoryStore()

		w, err := store.Create(ctx, "sim.bin")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = store.Create(ctx, "sim.bin")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("list by prefix", func(t *testing.T) {
		store := NewMemoryStore()
		for _, name := range []string{"a/sim.bin", "b/sim.bin", "a/x.bin"} {
			w, err := store.Create(ctx, name)
			require.NoError(t, err)
			require.NoError(t, w.Close())
		}

		names, err := store.List(ctx, "a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"a/sim.bin", "a/x.bin"}, names)
	})

	t.Run("open missing", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Open(ctx, "nope.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
