package dedupe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/sonigo/audio"
)

// ErrMixedDirectory indicates a directory that holds both subdirectories and
// audio files. The dataset layout contract is all-subdirectories or
// all-clips per directory; anything else is a structural defect worth
// failing loudly on. Non-audio files (readme, metadata) don't count.
type ErrMixedDirectory struct {
	Dir string
}

func (e *ErrMixedDirectory) Error() string {
	return fmt.Sprintf("dedupe: directory %s mixes subdirectories and audio files", e.Dir)
}

// Scan walks root and returns the leaf directories that contain at least one
// audio file, sorted. Interior directories must contain no audio files;
// a directory holding both subdirectories and clips fails with
// ErrMixedDirectory.
func Scan(root string) ([]string, error) {
	var leaves []string
	if err := scanDir(root, &leaves); err != nil {
		return nil, err
	}
	sort.Strings(leaves)
	return leaves, nil
}

func scanDir(dir string, leaves *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("dedupe: read directory: %w", err)
	}

	var subdirs []string
	audioFiles := 0
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		if audio.IsAudioFile(entry.Name()) {
			audioFiles++
		}
	}

	if len(subdirs) > 0 && audioFiles > 0 {
		return &ErrMixedDirectory{Dir: dir}
	}

	if len(subdirs) > 0 {
		for _, sub := range subdirs {
			if err := scanDir(filepath.Join(dir, sub), leaves); err != nil {
				return err
			}
		}
		return nil
	}

	if audioFiles > 0 {
		*leaves = append(*leaves, dir)
	}
	return nil
}

// listClips returns the audio file names inside a leaf directory, sorted.
func listClips(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dedupe: read directory: %w", err)
	}
	var clips []string
	for _, entry := range entries {
		if !entry.IsDir() && audio.IsAudioFile(entry.Name()) {
			clips = append(clips, entry.Name())
		}
	}
	sort.Strings(clips)
	return clips, nil
}
