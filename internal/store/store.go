// Package store persists workflow documents as one JSON file each under
// <library>/workflows/. Every write goes to a temp file first and is renamed into place.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kamusis/flowdex/internal/workflow"
)

// WorkflowsDir is the store directory name inside a library.
const WorkflowsDir = "workflows"

// ConflictPolicy decides what Create does when the filename is taken.
type ConflictPolicy int

const (
	// ConflictFail returns ErrConflict.
	ConflictFail ConflictPolicy = iota
	// ConflictRename picks the next free name: foo_2.json, foo_3.json, ...
	ConflictRename
)

// Issue records a stored file that could not be loaded.
type Issue struct {
	Filename string
	Err      error
}

// Store is a directory of workflow documents.
type Store struct {
	dir string
}

// New returns a store rooted at <libraryPath>/workflows.
func New(libraryPath string) *Store {
	return &Store{dir: filepath.Join(libraryPath, WorkflowsDir)}
}

// Dir returns the directory holding the documents.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the store directory.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return newError("Init", "", err)
	}
	return nil
}

// List returns stored filenames in ascending byte order. A missing directory is an
// empty store.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, newError("List", "", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), documentExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether filename is stored.
func (s *Store) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil
}

// Get reads and parses one document.
func (s *Store) Get(filename string) (*workflow.Document, error) {
	if err := checkFilename(filename); err != nil {
		return nil, newError("Get", filename, err)
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError("Get", filename, ErrNotFound)
		}
		return nil, newError("Get", filename, err)
	}
	content, meta, err := workflow.Parse(raw)
	if err != nil {
		return nil, newError("Get", filename, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return &workflow.Document{Filename: filename, Content: content, Metadata: meta}, nil
}

// LoadAll reads every document in listing order. Files that cannot be read or parsed
// are skipped and reported as issues. The context is checked between documents.
func (s *Store) LoadAll(ctx context.Context) ([]*workflow.Document, []Issue, error) {
	names, err := s.List()
	if err != nil {
		return nil, nil, err
	}
	docs := make([]*workflow.Document, 0, len(names))
	var issues []Issue
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc, err := s.Get(name)
		if err != nil {
			issues = append(issues, Issue{Filename: name, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, issues, nil
}

// Create stores a new document. When the filename is taken the policy decides
// between ErrConflict and a suffixed name; doc.Filename is updated to the name used.
func (s *Store) Create(doc *workflow.Document, policy ConflictPolicy) error {
	if err := checkFilename(doc.Filename); err != nil {
		return newError("Create", doc.Filename, err)
	}
	if err := s.Init(); err != nil {
		return err
	}
	name := doc.Filename
	if s.Exists(name) {
		if policy != ConflictRename {
			return newError("Create", name, ErrConflict)
		}
		name = s.nextFreeName(name)
	}
	if doc.Metadata != nil {
		doc.Metadata.WorkflowID = workflow.ID(name)
	}
	doc.Filename = name
	return s.write("Create", doc)
}

// Save overwrites an existing document.
func (s *Store) Save(doc *workflow.Document) error {
	if err := checkFilename(doc.Filename); err != nil {
		return newError("Save", doc.Filename, err)
	}
	if !s.Exists(doc.Filename) {
		return newError("Save", doc.Filename, ErrNotFound)
	}
	return s.write("Save", doc)
}

// Delete removes a whole document.
func (s *Store) Delete(filename string) error {
	if err := checkFilename(filename); err != nil {
		return newError("Delete", filename, err)
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError("Delete", filename, ErrNotFound)
		}
		return newError("Delete", filename, err)
	}
	return nil
}

func (s *Store) nextFreeName(filename string) string {
	base := strings.TrimSuffix(filename, documentExt)
	for i := 2; ; i++ {
		candidate := base + "_" + strconv.Itoa(i) + documentExt
		if !s.Exists(candidate) {
			return candidate
		}
	}
}

func (s *Store) write(op string, doc *workflow.Document) error {
	data, err := workflow.Encode(doc.Content, doc.Metadata)
	if err != nil {
		return newError(op, doc.Filename, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*"+documentExt)
	if err != nil {
		return newError(op, doc.Filename, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return newError(op, doc.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return newError(op, doc.Filename, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, doc.Filename)); err != nil {
		os.Remove(tmpName)
		return newError(op, doc.Filename, err)
	}
	return nil
}

func checkFilename(name string) error {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, documentExt) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid document filename %q", name)
	}
	return nil
}
