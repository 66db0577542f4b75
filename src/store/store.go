// Package store persists builds, build errors and build metadata in an
// embedded badger database.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/sofmeright/cpdstage/src/build"
)

// ErrNotFound is returned when a build or metadata key does not exist.
var ErrNotFound = errors.New("not found")

// errorSequence orders errors reported within the same nanosecond.
var errorSequence uint64

// Store is a badgerhold-backed build store.
type Store struct {
	db *badgerhold.Store
}

var (
	_ build.ErrorReporter = (*Store)(nil)
	_ build.MetaStore     = (*Store)(nil)
)

// ErrorRecord is a stored build error.
type ErrorRecord struct {
	Key       string `badgerhold:"key"`
	BuildID   string `badgerholdIndex:"BuildID"`
	Seq       uint64
	Plugin    string
	Message   string
	Severity  build.Severity
	File      string
	LineStart int
	LineEnd   int
	CreatedAt time.Time
}

// MetaRecord is one stored metric.
type MetaRecord struct {
	BuildID string `badgerholdIndex:"BuildID"`
	Key     string
	Value   int
}

// BuildRecord is a stored build.
type BuildRecord struct {
	ID        string
	Path      string
	Commit    string
	Branch    string
	CreatedAt time.Time
	Success   map[build.Stage]bool
}

// Open opens (creating if needed) the database directory at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReportError implements build.ErrorReporter.
func (s *Store) ReportError(_ context.Context, e build.Error) error {
	seq := atomic.AddUint64(&errorSequence, 1)
	now := time.Now().UTC()
	rec := &ErrorRecord{
		Key:       fmt.Sprintf("%s_%d_%d", e.BuildID, now.UnixNano(), seq),
		BuildID:   e.BuildID,
		Seq:       seq,
		Plugin:    e.Plugin,
		Message:   e.Message,
		Severity:  e.Severity,
		File:      e.File,
		LineStart: e.LineStart,
		LineEnd:   e.LineEnd,
		CreatedAt: now,
	}
	if err := s.db.Insert(rec.Key, rec); err != nil {
		return fmt.Errorf("storing build error: %w", err)
	}
	return nil
}

// Errors returns the errors of a build in the order they were reported.
func (s *Store) Errors(_ context.Context, buildID string) ([]build.Error, error) {
	var recs []ErrorRecord
	q := badgerhold.Where("BuildID").Eq(buildID).Index("BuildID").SortBy("Seq")
	if err := s.db.Find(&recs, q); err != nil {
		return nil, fmt.Errorf("loading build errors: %w", err)
	}

	out := make([]build.Error, len(recs))
	for i, r := range recs {
		out[i] = build.Error{
			BuildID:   r.BuildID,
			Plugin:    r.Plugin,
			Message:   r.Message,
			Severity:  r.Severity,
			File:      r.File,
			LineStart: r.LineStart,
			LineEnd:   r.LineEnd,
		}
	}
	return out, nil
}

// StoreMeta implements build.MetaStore. Storing a key again overwrites it.
func (s *Store) StoreMeta(_ context.Context, buildID, key string, value int) error {
	rec := &MetaRecord{BuildID: buildID, Key: key, Value: value}
	if err := s.db.Upsert(metaKey(buildID, key), rec); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Meta returns one metric of a build.
func (s *Store) Meta(_ context.Context, buildID, key string) (int, error) {
	var rec MetaRecord
	if err := s.db.Get(metaKey(buildID, key), &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, fmt.Errorf("%s/%s: %w", buildID, key, ErrNotFound)
		}
		return 0, err
	}
	return rec.Value, nil
}

// AllMeta returns every metric of a build keyed by name.
func (s *Store) AllMeta(_ context.Context, buildID string) (map[string]int, error) {
	var recs []MetaRecord
	if err := s.db.Find(&recs, badgerhold.Where("BuildID").Eq(buildID).Index("BuildID")); err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	out := make(map[string]int, len(recs))
	for _, r := range recs {
		out[r.Key] = r.Value
	}
	return out, nil
}

// SaveBuild stores or replaces a build record.
func (s *Store) SaveBuild(_ context.Context, b *build.Build) error {
	rec := &BuildRecord{
		ID:        b.ID,
		Path:      b.Path,
		Commit:    b.Commit,
		Branch:    b.Branch,
		CreatedAt: b.CreatedAt,
		Success:   b.Success,
	}
	if err := s.db.Upsert(b.ID, rec); err != nil {
		return fmt.Errorf("storing build: %w", err)
	}
	return nil
}

// Build loads a build record.
func (s *Store) Build(_ context.Context, id string) (*build.Build, error) {
	var rec BuildRecord
	if err := s.db.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("build %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &build.Build{
		ID:        rec.ID,
		Path:      rec.Path,
		Commit:    rec.Commit,
		Branch:    rec.Branch,
		CreatedAt: rec.CreatedAt,
		Success:   rec.Success,
	}, nil
}

func metaKey(buildID, key string) string {
	return buildID + ":" + key
}
