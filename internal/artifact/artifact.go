// Package artifact publishes index directories by rename and reads them back without
// mixing files from two publications.
package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrUnstable is returned by Read when the directory kept changing underneath it.
var ErrUnstable = errors.New("artifact directory changed during read")

const (
	readAttempts = 8
	retryDelay   = 5 * time.Millisecond
)

// Swap replaces destDir with srcDir by renaming. While it runs, destDir is briefly
// absent and the previous generation sits at destDir+".bak".
func Swap(srcDir, destDir string) error {
	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		// rollback best-effort
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}

// Retire removes dir. It is renamed away first so a reader sees either the whole
// directory or none of it.
func Retire(dir string) error {
	gone := dir + ".bak"
	_ = os.RemoveAll(gone)
	if err := os.Rename(dir, gone); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(gone)
}

// Read runs load against dir and retries when dir was swapped while load ran, so the
// result always comes from a single publication.
func Read[T any](dir string, load func(dir string) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		before, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && swapping(dir) && attempt < readAttempts {
				time.Sleep(retryDelay * time.Duration(attempt))
				continue
			}
			return load(dir)
		}

		v, loadErr := load(dir)

		after, err := os.Stat(dir)
		if err == nil && sameGeneration(before, after) {
			return v, loadErr
		}
		if attempt == readAttempts {
			return zero, ErrUnstable
		}
		time.Sleep(retryDelay * time.Duration(attempt))
	}
}

func swapping(dir string) bool {
	_, err := os.Stat(dir + ".bak")
	return err == nil
}

func sameGeneration(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime())
}
