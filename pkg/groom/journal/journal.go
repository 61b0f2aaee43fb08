// Package journal records the renames made by each run in a Badger
// database so they can be listed later.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// Key prefixes
const (
	prefixRun   = "r:" // r:<run-id> -> RunInfo
	prefixEntry = "e:" // e:<run-id>:<seq> -> Entry
	schemaKey   = "m:__schema__"
)

// SchemaVersion is the layout written by this package.
const SchemaVersion = 1

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes one run.
type RunInfo struct {
	ID       string         `json:"id"`
	Root     string         `json:"root"`
	Action   string         `json:"action"`
	DryRun   bool           `json:"dry_run"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished,omitempty"`
	Stats    types.RunStats `json:"stats"`
	Renames  int64          `json:"renames"`
}

// Entry is one recorded rename.
type Entry struct {
	Old  string    `json:"old"`
	New  string    `json:"new"`
	Time time.Time `json:"time"`
}

// Journal is the rename journal backed by Badger DB.
type Journal struct {
	db *badger.DB
}

// DefaultPath returns the default journal directory.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "groom", "journal")
}

// Open opens or creates a journal at path.
func Open(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) ensureSchema() error {
	return j.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			val := make([]byte, 8)
			binary.BigEndian.PutUint64(val, SchemaVersion)
			return txn.Set([]byte(schemaKey), val)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt journal schema key")
			}
			if v := binary.BigEndian.Uint64(val); v > SchemaVersion {
				return fmt.Errorf("journal schema version %d is newer than supported %d", v, SchemaVersion)
			}
			return nil
		})
	})
}

// BeginRun stores a new run and returns a recorder for its renames.
func (j *Journal) BeginRun(root, action string, dryRun bool) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}

	info := RunInfo{
		ID:      id.String(),
		Root:    root,
		Action:  action,
		DryRun:  dryRun,
		Started: time.Now(),
	}
	if err := j.putRun(&info); err != nil {
		return nil, err
	}
	return &Run{journal: j, info: info}, nil
}

func (j *Journal) putRun(info *RunInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixRun+info.ID), data)
	})
}

// Run looks up a run by ID.
func (j *Journal) Run(id string) (*RunInfo, error) {
	var info RunInfo
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixRun + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Runs returns every run, newest first.
func (j *Journal) Runs() ([]RunInfo, error) {
	var runs []RunInfo

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRun)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info RunInfo
				if err := json.Unmarshal(val, &info); err != nil {
					return nil // skip unreadable runs
				}
				runs = append(runs, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	sort.Slice(runs, func(a, b int) bool {
		return runs[a].Started.After(runs[b].Started)
	})
	return runs, err
}

// Entries returns the renames of a run in the order they were recorded.
func (j *Journal) Entries(runID string) ([]Entry, error) {
	if _, err := j.Run(runID); err != nil {
		return nil, err
	}

	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixEntry + runID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

// Delete removes a run and its entries.
func (j *Journal) Delete(runID string) error {
	if _, err := j.Run(runID); err != nil {
		return err
	}

	return j.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		prefix := []byte(prefixEntry + runID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		keys = append(keys, []byte(prefixRun+runID))
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Run records the renames of one run. It is safe for concurrent use.
type Run struct {
	journal *Journal
	info    RunInfo
	seq     atomic.Uint64
}

// ID returns the run ID.
func (r *Run) ID() string {
	return r.info.ID
}

// Record stores one rename.
func (r *Run) Record(oldPath, newPath string) error {
	n := r.seq.Add(1)

	key := make([]byte, 0, len(prefixEntry)+len(r.info.ID)+1+8)
	key = append(key, prefixEntry...)
	key = append(key, r.info.ID...)
	key = append(key, ':')
	key = binary.BigEndian.AppendUint64(key, n)

	data, err := json.Marshal(Entry{Old: oldPath, New: newPath, Time: time.Now()})
	if err != nil {
		return err
	}
	return r.journal.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Finish stores the final counters of the run.
func (r *Run) Finish(stats types.RunStats) error {
	r.info.Finished = time.Now()
	r.info.Stats = stats
	r.info.Renames = int64(r.seq.Load())
	return r.journal.putRun(&r.info)
}
