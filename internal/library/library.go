// Package library ties the store, the extractor, the index builders and the search
// engine together over one library directory. Rebuilds are single-writer; readers see
// the last published artifact set.
package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/kamusis/flowdex/internal/config"
	"github.com/kamusis/flowdex/internal/log"
	"github.com/kamusis/flowdex/internal/search/vectorspace"
	"github.com/kamusis/flowdex/internal/store"
)

// Directory layout inside a library.
const (
	IndexesDir = "indexes"
	CatalogDir = "catalog"
	VectorsDir = "vectors"
	LockFile   = ".rebuild.lock"
)

const (
	cacheExpiration = 10 * time.Minute
	cacheCleanup    = 30 * time.Minute
	lockRetryDelay  = 200 * time.Millisecond
)

// Options configure a Library.
type Options struct {
	Path        string
	Params      vectorspace.Params
	LockTimeout time.Duration
	// Now overrides the clock stamped into artifacts.
	Now func() time.Time
}

// Library is one library directory: documents plus published indexes.
type Library struct {
	root        string
	store       *store.Store
	params      vectorspace.Params
	lockTimeout time.Duration
	now         func() time.Time

	cache   *gocache.Cache
	rebuild singleflight.Group
	log     *slog.Logger

	mu           sync.Mutex
	fingerprints map[string]string // content fingerprint -> filename, built on first ingest
}

// Open returns the library configured by cfg.
func Open(cfg *config.Config) *Library {
	return New(Options{
		Path:        cfg.LibraryPath,
		Params:      cfg.Params(),
		LockTimeout: cfg.LockTimeout,
	})
}

// New returns a library rooted at opts.Path.
func New(opts Options) *Library {
	if opts.Params.MaxFeatures == 0 {
		opts.Params = vectorspace.DefaultParams()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Library{
		root:        opts.Path,
		store:       store.New(opts.Path),
		params:      opts.Params,
		lockTimeout: opts.LockTimeout,
		now:         opts.Now,
		cache:       gocache.New(cacheExpiration, cacheCleanup),
		log:         log.WithModule("library"),
	}
}

// Path returns the library root.
func (l *Library) Path() string {
	return l.root
}

// Store returns the document store.
func (l *Library) Store() *store.Store {
	return l.store
}

// Init creates the library directories.
func (l *Library) Init() error {
	if err := l.store.Init(); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(l.root, IndexesDir), 0o755)
}

// CatalogPath returns the published catalog directory.
func (l *Library) CatalogPath() string {
	return filepath.Join(l.root, IndexesDir, CatalogDir)
}

// VectorsPath returns the published vector space directory.
func (l *Library) VectorsPath() string {
	return filepath.Join(l.root, IndexesDir, VectorsDir)
}

func (l *Library) lockPath() string {
	return filepath.Join(l.root, IndexesDir, LockFile)
}

// generation identifies the published artifact set. A swap replaces the directory, so
// its modification time changes with every publish, including from other processes.
func (l *Library) generation() string {
	return dirStamp(l.CatalogPath()) + "/" + dirStamp(l.VectorsPath())
}

func dirStamp(dir string) string {
	fi, err := os.Stat(dir)
	if err != nil {
		return "0"
	}
	return strconv.FormatInt(fi.ModTime().UnixNano(), 10)
}
