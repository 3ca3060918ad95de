package osenv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	seed := map[types.Scope]map[string]string{types.ScopeUser: {"A": "1"}}
	m := NewMemory(seed)
	seed[types.ScopeUser]["A"] = "mutated"

	vars, err := m.Read(ctx, types.ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1"}, vars, "seed is copied")

	vars["B"] = "leak"
	_, ok := m.Get(types.ScopeUser, "B")
	assert.False(t, ok, "Read returns a copy")

	require.NoError(t, m.Set(ctx, types.ScopeMachine, "M", "x"))
	v, ok := m.Get(types.ScopeMachine, "M")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	require.NoError(t, m.Unset(ctx, types.ScopeUser, "A"))
	require.NoError(t, m.Unset(ctx, types.ScopeUser, "MISSING"))
	_, ok = m.Get(types.ScopeUser, "A")
	assert.False(t, ok)
	assert.Equal(t, 3, m.Writes())

	empty, err := m.Read(ctx, types.ScopeMachine)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = m.Read(ctx, types.Scope(4))
	assert.ErrorIs(t, err, ErrUnsupportedScope)
}

func TestMemoryFailOn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	errDenied := errors.New("access denied")

	m.FailOn("LOCKED", errDenied)
	assert.ErrorIs(t, m.Set(ctx, types.ScopeUser, "LOCKED", "x"), errDenied)
	assert.ErrorIs(t, m.Unset(ctx, types.ScopeUser, "LOCKED"), errDenied)
	assert.NoError(t, m.Set(ctx, types.ScopeUser, "OPEN", "x"))

	m.FailOn("LOCKED", nil)
	assert.NoError(t, m.Set(ctx, types.ScopeUser, "LOCKED", "x"))
}
