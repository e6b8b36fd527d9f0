package vectorspace

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write writes the model, the entries table and the vectors to dir.
func Write(dir string, s *Space) error {
	m := s.Manifest
	if m.Dim <= 0 {
		return fmt.Errorf("invalid dim: %d", m.Dim)
	}
	if len(s.Entries) == 0 {
		return fmt.Errorf("no entries to write")
	}
	if len(s.Vectors) != len(s.Entries)*m.Dim {
		return fmt.Errorf("vector length mismatch: got %d want %d", len(s.Vectors), len(s.Entries)*m.Dim)
	}
	if len(m.Vocabulary) != m.Dim || len(m.IDF) != m.Dim {
		return fmt.Errorf("model size mismatch: vocabulary=%d idf=%d dim=%d", len(m.Vocabulary), len(m.IDF), m.Dim)
	}
	if m.VectorFile == "" {
		m.VectorFile = VectorFile
	}
	if m.EntriesFile == "" {
		m.EntriesFile = EntriesFile
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create vector dir %s: %w", dir, err)
	}

	// model
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ModelFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write model: %w", err)
	}

	// entries jsonl
	ef, err := os.Create(filepath.Join(dir, m.EntriesFile))
	if err != nil {
		return fmt.Errorf("cannot create entries file: %w", err)
	}
	bw := bufio.NewWriter(ef)
	for _, e := range s.Entries {
		line, err := json.Marshal(e)
		if err != nil {
			_ = ef.Close()
			return err
		}
		if _, err := bw.Write(line); err != nil {
			_ = ef.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = ef.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = ef.Close()
		return err
	}
	if err := ef.Close(); err != nil {
		return err
	}

	// vectors
	vf, err := os.Create(filepath.Join(dir, m.VectorFile))
	if err != nil {
		return fmt.Errorf("cannot create vectors file: %w", err)
	}
	if err := binary.Write(vf, binary.LittleEndian, s.Vectors); err != nil {
		_ = vf.Close()
		return fmt.Errorf("cannot write vectors: %w", err)
	}
	return vf.Close()
}
