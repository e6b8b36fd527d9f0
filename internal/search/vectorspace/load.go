package vectorspace

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kamusis/flowdex/internal/artifact"
)

// Load reads a vector space from dir containing model + entries + vectors. The three
// files always come from the same publication.
func Load(dir string) (*Space, error) {
	return artifact.Read(dir, load)
}

func load(dir string) (*Space, error) {
	modelPath := filepath.Join(dir, ModelFile)
	b, err := os.ReadFile(modelPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotBuilt
		}
		return nil, fmt.Errorf("cannot read model %s: %w", modelPath, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("invalid model JSON %s: %w", modelPath, err)
	}
	if m.Dim <= 0 {
		return nil, fmt.Errorf("invalid dim in model: %d", m.Dim)
	}
	if len(m.Vocabulary) != m.Dim || len(m.IDF) != m.Dim {
		return nil, fmt.Errorf("model size mismatch: vocabulary=%d idf=%d dim=%d", len(m.Vocabulary), len(m.IDF), m.Dim)
	}
	if m.VectorFile == "" {
		m.VectorFile = VectorFile
	}
	if m.EntriesFile == "" {
		m.EntriesFile = EntriesFile
	}

	entries, err := loadEntries(filepath.Join(dir, m.EntriesFile))
	if err != nil {
		return nil, err
	}
	vectors, err := loadVectors(filepath.Join(dir, m.VectorFile), len(entries), m.Dim)
	if err != nil {
		return nil, err
	}

	s := &Space{Manifest: m, Entries: entries, Vectors: vectors}
	s.indexColumns()
	return s, nil
}

func loadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open entries file %s: %w", path, err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("invalid entries JSONL %s: %w", path, err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read entries file %s: %w", path, err)
	}
	return out, nil
}

func loadVectors(path string, nRows, dim int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	if st.Size()%4 != 0 {
		return nil, fmt.Errorf("vector file size is not multiple of 4 bytes: %d", st.Size())
	}

	expected := int64(nRows * dim * 4)
	if expected != st.Size() {
		return nil, fmt.Errorf("vector file size mismatch: got %d want %d (rows=%d dim=%d)", st.Size(), expected, nRows, dim)
	}

	out := make([]float32, nRows*dim)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}
	return out, nil
}
