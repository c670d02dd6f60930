package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/menta2k/visionflow/internal/utils"
)

// ImageFolder reads images from a folder path in stable, alphabetical order.
type ImageFolder struct {
	paths []string
}

// NewImageFolder lists the image files directly inside dir. Nested
// directories are ignored; ordering is alphabetical by file name.
func NewImageFolder(dir string) (*ImageFolder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !utils.IsImageFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return &ImageFolder{paths: paths}, nil
}

// NewImageFolderGlob grabs the files matching one or more glob patterns,
// e.g. "images/**/*.jpg".
func NewImageFolderGlob(patterns ...string) (*ImageFolder, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one glob pattern is required")
	}
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return &ImageFolder{paths: paths}, nil
}

// Paths returns the image paths in order.
func (f *ImageFolder) Paths() []string {
	return append([]string(nil), f.paths...)
}

// Len returns the number of images in the folder.
func (f *ImageFolder) Len() int {
	return len(f.paths)
}

// Each loads every image in order and invokes fn with a single-frame
// FrameSet. It stops at the first error.
func (f *ImageFolder) Each(fn func(*FrameSet) error) error {
	for _, path := range f.paths {
		fs, err := FromFile(path)
		if err != nil {
			return err
		}
		if err := fn(fs); err != nil {
			return err
		}
	}
	return nil
}

// EachConcurrent processes the folder with up to workers goroutines. Each
// image gets its own FrameSet, so fn calls never share mutable state.
func (f *ImageFolder) EachConcurrent(ctx context.Context, workers int, fn func(context.Context, *FrameSet) error) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range f.paths {
		g.Go(func() error {
			fs, err := FromFile(path)
			if err != nil {
				return err
			}
			return fn(ctx, fs)
		})
	}
	return g.Wait()
}
