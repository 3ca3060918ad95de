package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
	"github.com/jamesainslie/enviro/pkg/enviro/validate"
)

type mapSource map[types.Scope]map[string]string

func (m mapSource) Read(_ context.Context, scope types.Scope) (map[string]string, error) {
	return m[scope], nil
}

type failingSource struct{ err error }

func (f failingSource) Read(context.Context, types.Scope) (map[string]string, error) {
	return nil, f.err
}

func newLoaded(t *testing.T, user map[string]string, opts ...Option) *Store {
	t.Helper()
	s := New(append([]Option{WithFoldCase(false)}, opts...)...)
	require.NoError(t, s.Load(context.Background(), mapSource{types.ScopeUser: user}, types.ScopeUser))
	return s
}

func names(entries []*types.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestLoadSortsAndSetsBaseline(t *testing.T) {
	s := newLoaded(t, map[string]string{"ZED": "z", "ALPHA": "a", "MID": "m"})

	entries := s.Entries(types.ScopeUser)
	assert.Equal(t, []string{"ALPHA", "MID", "ZED"}, names(entries))
	for _, e := range entries {
		assert.Equal(t, types.Unchanged, e.State)
		assert.Equal(t, e.Value, e.Baseline)
		assert.Equal(t, types.ScopeUser, e.Scope)
	}
	assert.True(t, s.Loaded(types.ScopeUser))
	assert.False(t, s.Loaded(types.ScopeMachine))
	assert.False(t, s.HasPendingChanges())
}

func TestLoadFoldCaseOrder(t *testing.T) {
	s := New(WithFoldCase(true))
	s.LoadValues(types.ScopeUser, map[string]string{"beta": "1", "Alpha": "2", "GAMMA": "3"})
	assert.Equal(t, []string{"Alpha", "beta", "GAMMA"}, names(s.Entries(types.ScopeUser)))
}

func TestLoadReplacesPriorCollection(t *testing.T) {
	s := newLoaded(t, map[string]string{"OLD": "1"})
	tr := NewTracker(s)
	_, err := tr.Add("NEW", "2", types.ScopeUser)
	require.NoError(t, err)

	s.LoadValues(types.ScopeUser, map[string]string{"FRESH": "3"})
	assert.Equal(t, []string{"FRESH"}, names(s.Entries(types.ScopeUser)))
	assert.False(t, s.HasPendingChanges())
}

func TestLoadErrors(t *testing.T) {
	s := New()
	errBoom := errors.New("boom")
	err := s.Load(context.Background(), failingSource{errBoom}, types.ScopeMachine)
	assert.ErrorIs(t, err, errBoom)

	err = s.Load(context.Background(), mapSource{}, types.Scope(9))
	assert.ErrorIs(t, err, types.ErrInvalidScope)
}

func TestEntriesIsACopy(t *testing.T) {
	s := newLoaded(t, map[string]string{"A": "1", "B": "2"})
	entries := s.Entries(types.ScopeUser)
	entries[0] = nil
	assert.NotNil(t, s.Entries(types.ScopeUser)[0])
}

func TestFindAndContains(t *testing.T) {
	s := newLoaded(t, map[string]string{"PATH": "/bin"})

	e, ok := s.Find("PATH", types.ScopeUser)
	require.True(t, ok)
	assert.Equal(t, "/bin", e.Value)

	_, ok = s.Find("path", types.ScopeUser)
	assert.False(t, ok, "case-sensitive store must not match different case")
	_, ok = s.Find("PATH", types.ScopeMachine)
	assert.False(t, ok)

	assert.True(t, s.Contains("PATH", types.ScopeUser))
	assert.False(t, s.Contains("HOME", types.ScopeUser))
}

func TestFindFoldCase(t *testing.T) {
	s := New(WithFoldCase(true))
	s.LoadValues(types.ScopeUser, map[string]string{"Path": "/bin"})

	e, ok := s.Find("PATH", types.ScopeUser)
	require.True(t, ok)
	assert.Equal(t, "Path", e.Name)
	assert.True(t, s.Contains("path", types.ScopeUser))
	assert.True(t, s.SameName("Path", "pATH"))
	assert.True(t, s.FoldCase())
}

func TestFindPrefersLiveEntry(t *testing.T) {
	s := newLoaded(t, map[string]string{"A": "1", "B": "2"})
	tr := NewTracker(s)

	b, _ := s.Find("B", types.ScopeUser)
	require.NoError(t, tr.Remove(b))

	a, _ := s.Find("A", types.ScopeUser)
	renamed, err := tr.Rename(a, "B")
	require.NoError(t, err)

	got, ok := s.Find("B", types.ScopeUser)
	require.True(t, ok)
	assert.Same(t, renamed, got)

	gotA, ok := s.Find("A", types.ScopeUser)
	require.True(t, ok)
	assert.Equal(t, types.Deleted, gotA.State)
}

func TestPending(t *testing.T) {
	s := newLoaded(t, map[string]string{"A": "1", "B": "2", "C": "3"})
	tr := NewTracker(s)

	a, _ := s.Find("A", types.ScopeUser)
	require.NoError(t, tr.UpdateValue(a, "10"))
	c, _ := s.Find("C", types.ScopeUser)
	require.NoError(t, tr.Remove(c))

	assert.True(t, s.HasPendingChanges())
	assert.True(t, s.HasPending(types.ScopeUser))
	assert.False(t, s.HasPending(types.ScopeMachine))
	assert.Equal(t, []string{"A", "C"}, names(s.Pending(types.ScopeUser)))
}

func TestSettle(t *testing.T) {
	s := newLoaded(t, map[string]string{"A": "1", "B": "2", "C": "3"})
	tr := NewTracker(s)

	a, _ := s.Find("A", types.ScopeUser)
	require.NoError(t, tr.UpdateValue(a, "10"))
	b, _ := s.Find("B", types.ScopeUser)
	require.NoError(t, tr.Remove(b))
	_, err := tr.Add("D", "4", types.ScopeUser)
	require.NoError(t, err)

	s.Settle(types.ScopeUser)

	entries := s.Entries(types.ScopeUser)
	assert.Equal(t, []string{"A", "C", "D"}, names(entries))
	for _, e := range entries {
		assert.Equal(t, types.Unchanged, e.State)
		assert.Equal(t, e.Value, e.Baseline)
	}
	assert.False(t, s.HasPendingChanges())
}

func TestReplaceKeepsStates(t *testing.T) {
	s := New(WithFoldCase(false))
	s.Replace(types.ScopeMachine, []*types.Entry{
		{Name: "Z", Value: "new", Baseline: "old", State: types.Modified},
		{Name: "A", Value: "x", Baseline: "x", State: types.Deleted},
	})

	entries := s.Entries(types.ScopeMachine)
	assert.Equal(t, []string{"Z", "A"}, names(entries))
	assert.Equal(t, types.ScopeMachine, entries[0].Scope)
	assert.Equal(t, types.Modified, entries[0].State)
	assert.True(t, s.HasPending(types.ScopeMachine))
}

func TestDrift(t *testing.T) {
	s := newLoaded(t, map[string]string{"SAME": "1", "CHANGED": "2", "GONE": "3"})
	tr := NewTracker(s)
	_, err := tr.Add("FRESH", "4", types.ScopeUser)
	require.NoError(t, err)

	drift := s.Drift(types.ScopeUser, map[string]string{
		"SAME":    "1",
		"CHANGED": "20",
		"EXTRA":   "5",
	})

	require.Len(t, drift, 3)
	assert.Equal(t, Drift{Name: "CHANGED", Baseline: "2", Current: "20", Present: true}, drift[0])
	assert.Equal(t, Drift{Name: "EXTRA", Current: "5", Present: true, Untracked: true}, drift[1])
	assert.Equal(t, Drift{Name: "GONE", Baseline: "3"}, drift[2])
}

func TestCorruptionFlagOnLoad(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	require.NoError(t, os.Mkdir(good, 0o755))
	bad := filepath.Join(dir, "bad")

	v := validate.New(validate.WithSeparator(";"))
	s := newLoaded(t, map[string]string{
		"GOOD":  good,
		"BAD":   good + ";" + bad,
		"PLAIN": "hello world",
	}, WithChecker(v))

	for name, want := range map[string]bool{"GOOD": false, "BAD": true, "PLAIN": false} {
		e, ok := s.Find(name, types.ScopeUser)
		require.True(t, ok)
		assert.Equal(t, want, e.Corrupted, name)
		assert.Equal(t, types.Unchanged, e.State, "corruption must not touch edit state")
	}
}
