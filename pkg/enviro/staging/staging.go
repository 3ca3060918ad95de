// Package staging persists pending edits between enviro invocations.
//
// Every CLI command is a short-lived process, so the store's collections
// (including edit states and baselines) are saved to a badger database
// after each edit and restored on the next run until a commit settles
// them or the session is discarded.
package staging

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/enviro/pkg/enviro/logging"
	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// ErrEmpty is returned by Info when nothing is staged.
var ErrEmpty = errors.New("nothing staged")

// Area is a badger-backed staging area.
type Area struct {
	db     *badger.DB
	logger *logging.Logger
	now    func() time.Time
}

// Open opens or creates the staging database at path.
func Open(path string) (*Area, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging area: %w", err)
	}
	return &Area{db: db, logger: logging.Get("staging"), now: time.Now}, nil
}

// Close closes the database.
func (a *Area) Close() error {
	return a.db.Close()
}

// Save replaces the staged snapshot with the store's loaded scopes.
func (a *Area) Save(s *store.Store) error {
	meta := Meta{Version: FormatVersion, SavedAt: a.now().UTC(), FoldCase: s.FoldCase()}

	err := a.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, entryPrefix); err != nil {
			return err
		}

		for _, scope := range types.Scopes {
			if !s.Loaded(scope) {
				continue
			}
			meta.Scopes = append(meta.Scopes, scope)
			for i, e := range s.Entries(scope) {
				if e.State.Pending() {
					meta.Pending++
				}
				value, err := encode(Record{Name: e.Name, Value: e.Value, Baseline: e.Baseline, State: e.State})
				if err != nil {
					return fmt.Errorf("encoding %s: %w", e.Name, err)
				}
				if err := txn.Set(entryKey(scope, i), value); err != nil {
					return err
				}
			}
		}

		value, err := encode(meta)
		if err != nil {
			return err
		}
		return txn.Set(metaKey, value)
	})
	if err != nil {
		return fmt.Errorf("failed to save staging area: %w", err)
	}

	a.logger.Debug("saved staging area", "scopes", len(meta.Scopes), "pending", meta.Pending)
	return nil
}

// Load restores the staged snapshot into s. It reports false when nothing
// compatible is staged, leaving s untouched.
func (a *Area) Load(s *store.Store) (bool, error) {
	staged := make(map[types.Scope][]*types.Entry)
	var meta Meta

	err := a.db.View(func(txn *badger.Txn) error {
		if err := getValue(txn, metaKey, &meta); err != nil {
			return err
		}
		if meta.Version != FormatVersion {
			return ErrEmpty
		}

		for _, scope := range meta.Scopes {
			prefix := scopePrefix(scope)
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var rec Record
				if err := it.Item().Value(func(v []byte) error { return decode(v, &rec) }); err != nil {
					it.Close()
					return fmt.Errorf("decoding %s entry: %w", scope, err)
				}
				staged[scope] = append(staged[scope], &types.Entry{
					Name:     rec.Name,
					Value:    rec.Value,
					Baseline: rec.Baseline,
					State:    rec.State,
					Scope:    scope,
				})
			}
			it.Close()
		}
		return nil
	})
	if errors.Is(err, ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load staging area: %w", err)
	}

	if meta.FoldCase != s.FoldCase() {
		a.logger.Warn("staged session used a different name case policy", "staged_fold_case", meta.FoldCase)
	}
	for _, scope := range meta.Scopes {
		s.Replace(scope, staged[scope])
	}

	a.logger.Debug("restored staging area", "saved_at", meta.SavedAt, "pending", meta.Pending)
	return true, nil
}

// Info returns the metadata of the staged snapshot.
func (a *Area) Info() (*Meta, error) {
	var meta Meta
	err := a.db.View(func(txn *badger.Txn) error {
		return getValue(txn, metaKey, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Clear removes the staged snapshot.
func (a *Area) Clear() error {
	err := a.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, entryPrefix); err != nil {
			return err
		}
		if err := txn.Delete(metaKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear staging area: %w", err)
	}
	a.logger.Debug("cleared staging area")
	return nil
}

func getValue(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrEmpty
	}
	if err != nil {
		return err
	}
	return item.Value(func(data []byte) error { return decode(data, v) })
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
