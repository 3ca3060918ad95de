package commit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

func loaded(t *testing.T, user map[string]string) (*store.Store, *store.Tracker) {
	t.Helper()
	s := store.New(store.WithFoldCase(false))
	s.LoadValues(types.ScopeUser, user)
	return s, store.NewTracker(s)
}

func mustFind(t *testing.T, s *store.Store, name string) *types.Entry {
	t.Helper()
	e, ok := s.Find(name, types.ScopeUser)
	require.True(t, ok, name)
	return e
}

func TestPlanOrdering(t *testing.T) {
	s, tr := loaded(t, map[string]string{"DEL": "d", "MOD": "m", "KEEP": "k"})

	_, err := tr.Add("ADD", "a", types.ScopeUser)
	require.NoError(t, err)
	require.NoError(t, tr.UpdateValue(mustFind(t, s, "MOD"), "m2"))
	require.NoError(t, tr.Remove(mustFind(t, s, "DEL")))

	ops := Plan(s, types.ScopeUser)
	require.Len(t, ops, 3)
	assert.Equal(t, Op{Kind: OpUnset, Scope: types.ScopeUser, Name: "DEL", Previous: "d", From: types.Deleted}, ops[0])
	assert.Equal(t, Op{Kind: OpSet, Scope: types.ScopeUser, Name: "MOD", Value: "m2", Previous: "m", From: types.Modified}, ops[1])
	assert.Equal(t, Op{Kind: OpSet, Scope: types.ScopeUser, Name: "ADD", Value: "a", From: types.Added}, ops[2])
}

func TestPlanUnsetsBeforeSetsRegardlessOfPosition(t *testing.T) {
	s, tr := loaded(t, map[string]string{"A": "1", "Z": "2"})

	require.NoError(t, tr.UpdateValue(mustFind(t, s, "A"), "10"))
	require.NoError(t, tr.Remove(mustFind(t, s, "Z")))

	ops := Plan(s, types.ScopeUser)
	require.Len(t, ops, 2)
	assert.Equal(t, OpUnset, ops[0].Kind)
	assert.Equal(t, "Z", ops[0].Name)
	assert.Equal(t, OpSet, ops[1].Kind)
}

func TestPlanRename(t *testing.T) {
	s, tr := loaded(t, map[string]string{"OLD": "v"})

	_, err := tr.Rename(mustFind(t, s, "OLD"), "NEW")
	require.NoError(t, err)

	ops := Plan(s, types.ScopeUser)
	require.Len(t, ops, 2)
	assert.Equal(t, "unset user OLD", ops[0].String())
	assert.Equal(t, `set user NEW="v"`, ops[1].String())
}

func TestPlanDropsUnsetOverwrittenBySet(t *testing.T) {
	s, tr := loaded(t, map[string]string{"A": "1", "B": "2"})

	require.NoError(t, tr.Remove(mustFind(t, s, "B")))
	_, err := tr.Rename(mustFind(t, s, "A"), "B")
	require.NoError(t, err)

	ops := Plan(s, types.ScopeUser)
	require.Len(t, ops, 2)
	assert.Equal(t, Op{Kind: OpUnset, Scope: types.ScopeUser, Name: "A", Previous: "1", From: types.Deleted}, ops[0])
	assert.Equal(t, Op{Kind: OpSet, Scope: types.ScopeUser, Name: "B", Value: "1", Previous: "2", From: types.Added}, ops[1])
}

func TestPlanCaseOnlyRenameKeepsUnset(t *testing.T) {
	s := store.New(store.WithFoldCase(true))
	s.LoadValues(types.ScopeUser, map[string]string{"Path": "/bin"})
	tr := store.NewTracker(s)

	_, err := tr.Rename(mustFind(t, s, "Path"), "PATH")
	require.NoError(t, err)

	ops := Plan(s, types.ScopeUser)
	require.Len(t, ops, 2)
	assert.Equal(t, "unset user Path", ops[0].String())
	assert.Equal(t, `set user PATH="/bin"`, ops[1].String())
	assert.Equal(t, "/bin", ops[1].Previous)
}

func TestPlanEmpty(t *testing.T) {
	s, _ := loaded(t, map[string]string{"A": "1"})
	assert.Empty(t, Plan(s, types.ScopeUser))
	assert.Empty(t, Plan(s, types.ScopeMachine))
}

func TestOpKindText(t *testing.T) {
	b, err := OpSet.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "set", string(b))
	assert.Equal(t, "unset", OpUnset.String())
}

func TestOpKindUnmarshal(t *testing.T) {
	var k OpKind
	require.NoError(t, k.UnmarshalText([]byte("set")))
	assert.Equal(t, OpSet, k)
	require.NoError(t, k.UnmarshalText([]byte("unset")))
	assert.Equal(t, OpUnset, k)
	assert.Error(t, k.UnmarshalText([]byte("rename")))
}
