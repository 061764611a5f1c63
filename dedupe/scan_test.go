package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScan(t *testing.T) {
	t.Run("finds leaves with audio", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "speaker1", "a.wav"))
		touch(t, filepath.Join(root, "speaker1", "b.wav"))
		touch(t, filepath.Join(root, "speaker2", "session1", "c.wav"))
		touch(t, filepath.Join(root, "speaker2", "session2", "d.wav"))

		leaves, err := Scan(root)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "speaker1"),
			filepath.Join(root, "speaker2", "session1"),
			filepath.Join(root, "speaker2", "session2"),
		}, leaves)
	})

	t.Run("ignores leaves without audio", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "notes", "readme.txt"))
		touch(t, filepath.Join(root, "voices", "a.wav"))

		leaves, err := Scan(root)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "voices")}, leaves)
	})

	t.Run("existing artifacts do not break leaves", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "voices", "a.wav"))
		touch(t, filepath.Join(root, "voices", ArtifactName))

		leaves, err := Scan(root)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "voices")}, leaves)
	})

	t.Run("mixed directory fails", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "stray.wav"))
		touch(t, filepath.Join(root, "voices", "a.wav"))

		_, err := Scan(root)
		var merr *ErrMixedDirectory
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, root, merr.Dir)
	})

	t.Run("stray non-audio files do not make a directory mixed", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "readme.md"))
		touch(t, filepath.Join(root, ".DS_Store"))
		touch(t, filepath.Join(root, "voices", "a.wav"))

		leaves, err := Scan(root)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "voices")}, leaves)
	})

	t.Run("empty root", func(t *testing.T) {
		leaves, err := Scan(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, leaves)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := Scan(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}

func TestListClips(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.wav"))
	touch(t, filepath.Join(dir, "a.wav"))
	touch(t, filepath.Join(dir, ArtifactName))
	touch(t, filepath.Join(dir, "notes.txt"))

	clips, err := listClips(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.wav", "b.wav"}, clips)
}
