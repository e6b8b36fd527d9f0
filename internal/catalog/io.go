package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kamusis/flowdex/internal/artifact"
)

// Artifact file names inside the catalog directory.
const (
	ManifestFile     = "manifest.json"
	CategoriesFile   = "categories.json"
	IntegrationsFile = "integrations.json"
	QualityFile      = "quality.json"
)

// ErrNotBuilt indicates the catalog directory holds no manifest.
var ErrNotBuilt = errors.New("catalog not built")

// Write stores the four artifacts in dir, which must already exist.
func Write(dir string, idx *Indexes) error {
	files := []struct {
		name string
		v    any
	}{
		{ManifestFile, idx.Manifest},
		{CategoriesFile, idx.Categories},
		{IntegrationsFile, idx.Integrations},
		{QualityFile, idx.Quality},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", f.name, err)
		}
		data = append(data, '\n')
		if err := os.WriteFile(filepath.Join(dir, f.name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

// Load reads the four artifacts from dir, all from the same publication.
func Load(dir string) (*Indexes, error) {
	return artifact.Read(dir, load)
}

func load(dir string) (*Indexes, error) {
	idx := &Indexes{}
	if err := readJSON(filepath.Join(dir, ManifestFile), &idx.Manifest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotBuilt
		}
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, CategoriesFile), &idx.Categories); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, IntegrationsFile), &idx.Integrations); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, QualityFile), &idx.Quality); err != nil {
		return nil, err
	}
	return idx, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
