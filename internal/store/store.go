// Package store persists prompt versions, their metric records, and
// annotations in an embedded BadgerDB database.
//
// Key layout (values are JSON):
//
//	ver/<prompt>/<version>        VersionEntry
//	rec/<prompt>/<version>/<ulid> metrics.Record
//	ann/<prompt>/<version>/<ulid> Annotation
//
// Record and annotation keys are monotonic ULIDs, so iterating a prefix in
// key order yields entries oldest-first — the chronological order trend
// analysis depends on.
package store

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/version"
)

var (
	// ErrNotFound reports a prompt or version that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionExists reports a save that would overwrite an existing
	// version without the overwrite flag.
	ErrVersionExists = errors.New("version already exists")
	// ErrLocked reports a data directory held by another process.
	ErrLocked = errors.New("data directory is locked by another process")
)

// VersionEntry is one stored prompt version.
type VersionEntry struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	SystemPrompt string         `json:"system_prompt"`
	UserPrompt   string         `json:"user_prompt"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Annotation is a free-form note attached to a version.
type Annotation struct {
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a BadgerDB-backed prompt store. All methods are safe for
// concurrent use; cross-process exclusion comes from a file lock on the
// data directory.
type Store struct {
	db   *badger.DB
	lock *flock.Flock

	ulidMu  sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configure Open.
type Options struct {
	InMemory bool        // no disk persistence, for tests
	Logger   *zap.Logger // badger diagnostics; nil disables them
}

// Open opens (creating if needed) the store under dataDir. It fails fast
// with ErrLocked when another process holds the directory.
func Open(dataDir string, opt Options) (*Store, error) {
	s := &Store{entropy: ulid.Monotonic(crand.Reader, 0)}

	var badgerOpts badger.Options
	if opt.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		s.lock = flock.New(filepath.Join(dataDir, "LOCK"))
		held, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire data directory lock: %w", err)
		}
		if !held {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dataDir)
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(dataDir, "db"))
	}

	if opt.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerZapLogger{opt.Logger.Sugar()})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		if s.lock != nil {
			_ = s.lock.Unlock()
		}
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.db = db
	return s, nil
}

// Close closes the database and releases the directory lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

func versionKey(name, ver string) []byte {
	return []byte("ver/" + name + "/" + ver)
}

func recordPrefix(name, ver string) []byte {
	return []byte("rec/" + name + "/" + ver + "/")
}

func annotationPrefix(name, ver string) []byte {
	return []byte("ann/" + name + "/" + ver + "/")
}

// newULID returns a monotonic ULID; calls within the same millisecond
// still produce strictly increasing keys.
func (s *Store) newULID(t time.Time) ulid.ULID {
	s.ulidMu.Lock()
	defer s.ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy)
}

// SaveVersion stores a version entry. Without overwrite, saving an
// existing name/version pair fails with ErrVersionExists.
func (s *Store) SaveVersion(ctx context.Context, entry VersionEntry, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.Name == "" || entry.Version == "" {
		return fmt.Errorf("version entry needs a name and a version")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode version: %w", err)
	}

	key := versionKey(entry.Name, entry.Version)
	return s.db.Update(func(txn *badger.Txn) error {
		if !overwrite {
			if _, err := txn.Get(key); err == nil {
				return fmt.Errorf("%w: %s@%s", ErrVersionExists, entry.Name, entry.Version)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set(key, value)
	})
}

// GetVersion fetches one version entry.
func (s *Store) GetVersion(ctx context.Context, name, ver string) (VersionEntry, error) {
	if err := ctx.Err(); err != nil {
		return VersionEntry{}, err
	}
	var entry VersionEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey(name, ver))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s@%s", ErrNotFound, name, ver)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &entry)
		})
	})
	return entry, err
}

// ListVersions returns all versions of a prompt, newest first by semantic
// version order.
func (s *Store) ListVersions(ctx context.Context, name string) ([]VersionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []VersionEntry
	prefix := []byte("ver/" + name + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry VersionEntry
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortVersionsDesc(entries)
	return entries, nil
}

// ListPrompts returns the distinct prompt names with at least one version,
// in key order.
func (s *Store) ListPrompts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	seen := map[string]bool{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("ver/")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry VersionEntry
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &entry)
			}); err != nil {
				return err
			}
			if !seen[entry.Name] {
				seen[entry.Name] = true
				names = append(names, entry.Name)
			}
		}
		return nil
	})
	return names, err
}

// LatestVersion returns the highest version of a prompt by semantic
// version order, ErrNotFound when the prompt has none.
func (s *Store) LatestVersion(ctx context.Context, name string) (VersionEntry, error) {
	entries, err := s.ListVersions(ctx, name)
	if err != nil {
		return VersionEntry{}, err
	}
	if len(entries) == 0 {
		return VersionEntry{}, fmt.Errorf("%w: prompt %s", ErrNotFound, name)
	}
	return entries[0], nil
}

// DeleteVersion removes a version along with its records and annotations.
func (s *Store) DeleteVersion(ctx context.Context, name, ver string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := versionKey(name, ver)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s@%s", ErrNotFound, name, ver)
		} else if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		for _, prefix := range [][]byte{recordPrefix(name, ver), annotationPrefix(name, ver)} {
			if err := deletePrefix(txn, prefix); err != nil {
				return err
			}
		}
		return nil
	})
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// AppendRecord stores one metric record under a version. The version must
// exist; the record's timestamp decides its ULID key, so backfilled
// records keep their original chronology when appended in order.
func (s *Store) AppendRecord(ctx context.Context, name, ver string, rec metrics.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.GetVersion(ctx, name, ver); err != nil {
		return err
	}
	at := rec.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	key := append(recordPrefix(name, ver), s.newULID(at).String()...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// AppendRecords stores a batch of records in order.
func (s *Store) AppendRecords(ctx context.Context, name, ver string, recs []metrics.Record) error {
	for _, rec := range recs {
		if err := s.AppendRecord(ctx, name, ver, rec); err != nil {
			return err
		}
	}
	return nil
}

// Records returns a version's metric records oldest-first.
func (s *Store) Records(ctx context.Context, name, ver string) ([]metrics.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []metrics.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(name, ver)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec metrics.Record
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// RecordCount returns how many records a version holds.
func (s *Store) RecordCount(ctx context.Context, name, ver string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(name, ver)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Annotate attaches a note to a version.
func (s *Store) Annotate(ctx context.Context, name, ver string, ann Annotation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.GetVersion(ctx, name, ver); err != nil {
		return err
	}
	if ann.CreatedAt.IsZero() {
		ann.CreatedAt = time.Now().UTC()
	}
	if ann.Author == "" {
		ann.Author = "unknown"
	}
	value, err := json.Marshal(ann)
	if err != nil {
		return fmt.Errorf("encode annotation: %w", err)
	}
	key := append(annotationPrefix(name, ver), s.newULID(ann.CreatedAt).String()...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Annotations returns a version's notes oldest-first.
func (s *Store) Annotations(ctx context.Context, name, ver string) ([]Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var anns []Annotation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = annotationPrefix(name, ver)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var ann Annotation
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &ann)
			}); err != nil {
				return err
			}
			anns = append(anns, ann)
		}
		return nil
	})
	return anns, err
}

// Rollback creates a new version carrying an older version's prompts. The
// new version number follows the current latest; its metadata records the
// version it was rolled back from.
func (s *Store) Rollback(ctx context.Context, name, toVersion string) (VersionEntry, error) {
	target, err := s.GetVersion(ctx, name, toVersion)
	if err != nil {
		return VersionEntry{}, err
	}
	latest, err := s.LatestVersion(ctx, name)
	if err != nil {
		return VersionEntry{}, err
	}

	entry := VersionEntry{
		Name:         name,
		Version:      version.Next(latest.Version, version.BumpPatch, version.LabelStable, 0),
		SystemPrompt: target.SystemPrompt,
		UserPrompt:   target.UserPrompt,
		Metadata:     map[string]any{"rollback_from": toVersion},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.SaveVersion(ctx, entry, false); err != nil {
		return VersionEntry{}, err
	}
	return entry, nil
}

func sortVersionsDesc(entries []VersionEntry) {
	// Insertion sort keeps this dependency-free and stable; version lists
	// are small.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && version.CompareStrings(entries[j-1].Version, entries[j].Version) < 0; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// badgerZapLogger adapts zap to badger's logger interface.
type badgerZapLogger struct {
	s *zap.SugaredLogger
}

func (l badgerZapLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l badgerZapLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l badgerZapLogger) Infof(format string, args ...any)    { l.s.Debugf(format, args...) }
func (l badgerZapLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }
