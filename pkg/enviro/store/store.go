// Package store holds the in-memory model of tracked environment variables.
//
// A Store owns one ordered collection of entries per scope. Queries live
// on Store; every mutation goes through a Tracker so that edit states,
// baselines and corruption flags stay consistent. Neither type is safe
// for concurrent use: one logical actor drives edits at a time.
package store

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/jamesainslie/enviro/pkg/enviro/logging"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// Source reads every variable of a scope from the OS.
type Source interface {
	Read(ctx context.Context, scope types.Scope) (map[string]string, error)
}

// Checker decides whether a value references missing filesystem targets.
type Checker interface {
	IsCorrupted(value string) (bool, error)
}

// Store owns the entries of both scopes.
type Store struct {
	entries  map[types.Scope][]*types.Entry
	loaded   map[types.Scope]bool
	checker  Checker
	foldCase bool
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithChecker sets the corruption checker. Without one, entries are never
// flagged corrupted.
func WithChecker(c Checker) Option {
	return func(s *Store) {
		s.checker = c
	}
}

// WithFoldCase selects case-insensitive name comparison.
func WithFoldCase(fold bool) Option {
	return func(s *Store) {
		s.foldCase = fold
	}
}

// DefaultFoldCase reports the platform's name comparison rule: Windows
// variable names are case-insensitive.
func DefaultFoldCase() bool {
	return runtime.GOOS == "windows"
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[types.Scope][]*types.Entry),
		loaded:   make(map[types.Scope]bool),
		foldCase: DefaultFoldCase(),
		logger:   logging.Get("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FoldCase reports whether names are compared case-insensitively.
func (s *Store) FoldCase() bool {
	return s.foldCase
}

// SameName compares two names under the store's case policy.
func (s *Store) SameName(a, b string) bool {
	if s.foldCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (s *Store) compareNames(a, b string) int {
	if s.foldCase {
		if c := cmp.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
	}
	return cmp.Compare(a, b)
}

// Load replaces the scope's collection with the variables read from src.
// Entries start Unchanged with baseline equal to the OS value and are
// sorted by name.
func (s *Store) Load(ctx context.Context, src Source, scope types.Scope) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %d", types.ErrInvalidScope, int(scope))
	}

	values, err := src.Read(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to load %s variables: %w", scope, err)
	}

	s.LoadValues(scope, values)
	return nil
}

// LoadValues replaces the scope's collection with values.
func (s *Store) LoadValues(scope types.Scope, values map[string]string) {
	entries := make([]*types.Entry, 0, len(values))
	for name, value := range values {
		entries = append(entries, &types.Entry{
			Name:     name,
			Value:    value,
			Baseline: value,
			State:    types.Unchanged,
			Scope:    scope,
		})
	}
	slices.SortFunc(entries, func(a, b *types.Entry) int {
		return s.compareNames(a.Name, b.Name)
	})

	s.entries[scope] = entries
	s.loaded[scope] = true
	s.revalidateScope(scope)

	s.logger.Debug("loaded variables", "scope", scope, "count", len(entries))
}

// Replace installs previously captured entries for scope as-is, keeping
// their order, states and baselines. Corruption flags are recomputed.
func (s *Store) Replace(scope types.Scope, entries []*types.Entry) {
	out := make([]*types.Entry, 0, len(entries))
	for _, e := range entries {
		c := e.Clone()
		c.Scope = scope
		out = append(out, c)
	}
	s.entries[scope] = out
	s.loaded[scope] = true
	s.revalidateScope(scope)
}

// Loaded reports whether the scope has been loaded or replaced.
func (s *Store) Loaded(scope types.Scope) bool {
	return s.loaded[scope]
}

// Entries returns the scope's entries in collection order. The slice is a
// copy; the entries are live and must only be mutated through a Tracker.
func (s *Store) Entries(scope types.Scope) []*types.Entry {
	return slices.Clone(s.entries[scope])
}

// Find returns the entry named name. When a Deleted entry and a live
// entry share the name, the live one wins.
func (s *Store) Find(name string, scope types.Scope) (*types.Entry, bool) {
	var deleted *types.Entry
	for _, e := range s.entries[scope] {
		if !s.SameName(e.Name, name) {
			continue
		}
		if e.State != types.Deleted {
			return e, true
		}
		if deleted == nil {
			deleted = e
		}
	}
	return deleted, deleted != nil
}

// Contains reports whether any entry named name exists in the scope,
// including soft-deleted ones awaiting commit.
func (s *Store) Contains(name string, scope types.Scope) bool {
	return slices.ContainsFunc(s.entries[scope], func(e *types.Entry) bool {
		return s.SameName(e.Name, name)
	})
}

// containsLive reports whether a non-deleted entry other than skip is
// named name.
func (s *Store) containsLive(name string, scope types.Scope, skip *types.Entry) bool {
	return slices.ContainsFunc(s.entries[scope], func(e *types.Entry) bool {
		return e != skip && e.State != types.Deleted && s.SameName(e.Name, name)
	})
}

// HasPendingChanges reports whether any entry in either scope is not Unchanged.
func (s *Store) HasPendingChanges() bool {
	for _, scope := range types.Scopes {
		if s.HasPending(scope) {
			return true
		}
	}
	return false
}

// HasPending reports whether the scope has entries awaiting commit.
func (s *Store) HasPending(scope types.Scope) bool {
	return slices.ContainsFunc(s.entries[scope], func(e *types.Entry) bool {
		return e.State.Pending()
	})
}

// Pending returns the scope's entries that are not Unchanged.
func (s *Store) Pending(scope types.Scope) []*types.Entry {
	var out []*types.Entry
	for _, e := range s.entries[scope] {
		if e.State.Pending() {
			out = append(out, e)
		}
	}
	return out
}

// Settle finalizes a committed scope: Deleted entries are dropped and every
// remaining entry takes its current value as the new baseline.
func (s *Store) Settle(scope types.Scope) {
	kept := s.entries[scope][:0]
	for _, e := range s.entries[scope] {
		if e.State == types.Deleted {
			continue
		}
		e.Baseline = e.Value
		e.State = types.Unchanged
		kept = append(kept, e)
	}
	clear(s.entries[scope][len(kept):])
	s.entries[scope] = kept
}

// Drift describes a baseline that no longer matches the OS.
type Drift struct {
	Name     string
	Baseline string
	Current  string
	// Present is false when the variable is gone from the OS.
	Present bool
	// Untracked is true when the OS has a variable the store does not know.
	Untracked bool
}

// Drift compares the scope's baselines against values freshly read from
// the OS. Added entries are ignored since they have no OS counterpart yet.
func (s *Store) Drift(scope types.Scope, values map[string]string) []Drift {
	var out []Drift
	seen := make(map[string]bool, len(values))

	for _, e := range s.entries[scope] {
		if e.State == types.Added {
			continue
		}
		name, current, ok := s.lookup(values, e.Name)
		if ok {
			seen[name] = true
		}
		if !ok || current != e.Baseline {
			out = append(out, Drift{Name: e.Name, Baseline: e.Baseline, Current: current, Present: ok})
		}
	}

	for name, value := range values {
		if seen[name] || s.Contains(name, scope) {
			continue
		}
		out = append(out, Drift{Name: name, Current: value, Present: true, Untracked: true})
	}

	slices.SortFunc(out, func(a, b Drift) int { return s.compareNames(a.Name, b.Name) })
	return out
}

func (s *Store) lookup(values map[string]string, name string) (string, string, bool) {
	if v, ok := values[name]; ok {
		return name, v, true
	}
	if s.foldCase {
		for k, v := range values {
			if strings.EqualFold(k, name) {
				return k, v, true
			}
		}
	}
	return "", "", false
}

// Revalidate recomputes the corruption flag of e.
func (s *Store) Revalidate(e *types.Entry) {
	e.Corrupted = false
	e.CheckErr = nil
	if s.checker == nil {
		return
	}

	corrupted, err := s.checker.IsCorrupted(e.Value)
	e.Corrupted = corrupted
	e.CheckErr = err
	if err != nil {
		s.logger.Warn("corruption check failed", "scope", e.Scope, "name", e.Name, "error", err)
	}
}

func (s *Store) revalidateScope(scope types.Scope) {
	for _, e := range s.entries[scope] {
		s.Revalidate(e)
	}
}

func (s *Store) indexOf(e *types.Entry) int {
	if e == nil {
		return -1
	}
	return slices.Index(s.entries[e.Scope], e)
}

func (s *Store) appendEntry(e *types.Entry) {
	s.entries[e.Scope] = append(s.entries[e.Scope], e)
}

func (s *Store) removeAt(scope types.Scope, i int) {
	s.entries[scope] = slices.Delete(s.entries[scope], i, i+1)
}
