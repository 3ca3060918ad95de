package journal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/enviro/pkg/enviro/commit"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

func sampleReport() *commit.Report {
	start := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	return &commit.Report{
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Scopes: []commit.ScopeReport{
			{
				Scope: types.ScopeUser,
				Applied: []commit.Op{
					{Kind: commit.OpUnset, Scope: types.ScopeUser, Name: "OLD", Previous: "v"},
					{Kind: commit.OpSet, Scope: types.ScopeUser, Name: "NEW", Value: "v"},
				},
				Settled: true,
			},
			{Scope: types.ScopeMachine, Skipped: true, SkipReason: "not elevated"},
		},
	}
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestRecordAndGet(t *testing.T) {
	j, err := New(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)

	entry, err := j.Record(sampleReport(), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(entry.ID, "commit-"))
	assert.True(t, entry.Success)
	assert.Equal(t, 1500*time.Millisecond, entry.Duration)
	assert.Equal(t, Summary{Sets: 1, Unsets: 1, Skipped: 1}, entry.Summary)

	got, err := j.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	require.Len(t, got.Scopes, 2)
	assert.Equal(t, "user", got.Scopes[0].Scope)
	assert.Equal(t, commit.OpUnset, got.Scopes[0].Applied[0].Kind)
	assert.Equal(t, "NEW", got.Scopes[0].Applied[1].Name)
	assert.True(t, got.Scopes[1].Skipped)

	byPrefix, err := j.Get(entry.ID[:len(entry.ID)-4])
	require.NoError(t, err)
	assert.Equal(t, entry.ID, byPrefix.ID)

	_, err = j.Get("commit-nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = j.Get("")
	assert.Error(t, err)
}

func TestRecordFailure(t *testing.T) {
	j, err := New(t.TempDir())
	require.NoError(t, err)

	report := &commit.Report{Scopes: []commit.ScopeReport{{
		Scope:  types.ScopeUser,
		Failed: &commit.OpError{Op: commit.Op{Kind: commit.OpSet, Name: "B"}, Err: errors.New("access denied")},
	}}}
	entry, err := j.Record(report, errors.New("commit failed: access denied"))
	require.NoError(t, err)
	assert.False(t, entry.Success)
	assert.Equal(t, "commit failed: access denied", entry.Error)
	require.NotNil(t, entry.Scopes[0].Failed)
	assert.Equal(t, "access denied", entry.Scopes[0].Failed.Error)
}

func TestRecordNilReport(t *testing.T) {
	entry := FromReport(nil, errors.New("commit already in progress"))
	assert.False(t, entry.Success)
	assert.Empty(t, entry.Scopes)
}

func TestListNewestFirst(t *testing.T) {
	j, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		j.now = func() time.Time { return ts }
		_, err := j.Record(sampleReport(), nil)
		require.NoError(t, err)
	}

	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))
	assert.True(t, all[1].Timestamp.After(all[2].Timestamp))

	limited, err := j.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListMissingDir(t *testing.T) {
	j, err := New(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	entries, err := j.List(0)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir)
	require.NoError(t, err)

	old, err := j.Record(sampleReport(), nil)
	require.NoError(t, err)
	fresh, err := j.Record(sampleReport(), nil)
	require.NoError(t, err)

	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old.ID+".json"), past, past))

	removed, err := j.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}
