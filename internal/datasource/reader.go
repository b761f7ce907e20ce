package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/bu/pkg/debug"
	"github.com/vanderheijden86/bu/pkg/loader"
	"github.com/vanderheijden86/bu/pkg/metrics"
	"github.com/vanderheijden86/bu/pkg/model"
)

// Reader produces full snapshots of the store. Errors wrap
// model.ErrStoreUnavailable.
type Reader interface {
	ReadSnapshot(ctx context.Context) (model.Snapshot, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) (model.Snapshot, error)

func (f ReaderFunc) ReadSnapshot(ctx context.Context) (model.Snapshot, error) { return f(ctx) }

// Store reads snapshots from a beads directory or an explicit file.
// Concurrent reads share one in-flight load.
type Store struct {
	beadsDir string
	path     string
	logger   *slog.Logger
	now      func() time.Time
	group    singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPath pins the store to one file instead of discovering sources.
func WithPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// WithLogger sets the logger for source selection messages.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store over beadsDir.
func NewStore(beadsDir string, opts ...StoreOption) *Store {
	s := &Store{
		beadsDir: beadsDir,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeadsDir returns the directory the store reads from.
func (s *Store) BeadsDir() string { return s.beadsDir }

// WatchPaths lists the files whose changes should trigger a reload: the
// database with its WAL and the preferred JSONL exports.
func (s *Store) WatchPaths() []string {
	if s.path != "" {
		paths := []string{s.path}
		if filepath.Ext(s.path) == ".db" {
			paths = append(paths, s.path+"-wal")
		}
		return paths
	}
	db := filepath.Join(s.beadsDir, loader.DBFileName)
	paths := []string{db, db + "-wal"}
	for _, name := range loader.PreferredJSONLNames {
		paths = append(paths, filepath.Join(s.beadsDir, name))
	}
	return paths
}

// Resolve returns the source the next read would use.
func (s *Store) Resolve() (DataSource, error) {
	if s.path != "" {
		src, err := SourceFromPath(s.path)
		if err != nil {
			return DataSource{}, err
		}
		if err := ValidateSource(&src); err != nil {
			return DataSource{}, err
		}
		return src, nil
	}
	sources, err := DiscoverSources(s.beadsDir)
	if err != nil {
		return DataSource{}, err
	}
	for i := range sources {
		if err := ValidateSource(&sources[i]); err != nil {
			s.logger.Debug("source rejected", "path", sources[i].Path, "err", err)
		}
	}
	return SelectBestSource(sources)
}

// ReadSnapshot loads every record from the best available source.
func (s *Store) ReadSnapshot(ctx context.Context) (model.Snapshot, error) {
	v, err, shared := s.group.Do("snapshot", func() (any, error) {
		return s.read(ctx)
	})
	if shared {
		debug.Log("snapshot read coalesced")
	}
	if err != nil {
		return model.Snapshot{}, err
	}
	return v.(model.Snapshot), nil
}

func (s *Store) read(ctx context.Context) (model.Snapshot, error) {
	defer debug.LogTiming("ReadSnapshot")()
	defer metrics.Timer(metrics.SnapshotRead)()

	src, err := s.Resolve()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	recs, err := LoadFromSource(ctx, src)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %s: %v", model.ErrStoreUnavailable, src.Path, err)
	}
	return model.Snapshot{Records: recs, TakenAt: s.now(), Source: src.Path}, nil
}

// LoadFromSource reads records from one source, dispatching on its type.
func LoadFromSource(ctx context.Context, src DataSource) ([]model.Record, error) {
	switch src.Type {
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", src.Path, err)
		}
		defer r.Close()
		return r.LoadRecords(ctx)
	case SourceTypeJSONL:
		return loader.LoadRecordsFromFile(src.Path, loader.ParseOptions{})
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
