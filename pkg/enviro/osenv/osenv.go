// Package osenv reads and writes persistent OS environment variables.
//
// On Windows variables live in the registry. Elsewhere they live in
// KEY=VALUE environment files: /etc/environment for the machine scope and
// an environment.d drop-in for the user scope. Memory is an in-process
// backend for tests and dry runs.
package osenv

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// Environment is a scoped, persistent variable store.
type Environment interface {
	// Read returns every variable in the scope.
	Read(ctx context.Context, scope types.Scope) (map[string]string, error)
	// Set creates or overwrites one variable.
	Set(ctx context.Context, scope types.Scope, name, value string) error
	// Unset removes one variable. Removing a missing variable is not an error.
	Unset(ctx context.Context, scope types.Scope, name string) error
}

// ErrUnsupportedScope is returned by backends that do not manage a scope.
var ErrUnsupportedScope = errors.New("scope not supported by backend")

// Memory is a thread-safe in-memory Environment.
type Memory struct {
	mu     sync.Mutex
	vars   map[types.Scope]map[string]string
	fail   map[string]error
	writes int
}

// NewMemory returns a Memory seeded with the given scope contents.
func NewMemory(seed map[types.Scope]map[string]string) *Memory {
	m := &Memory{
		vars: make(map[types.Scope]map[string]string),
		fail: make(map[string]error),
	}
	for scope, vars := range seed {
		m.vars[scope] = maps.Clone(vars)
	}
	return m
}

// Read implements Environment.
func (m *Memory) Read(_ context.Context, scope types.Scope) (map[string]string, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScope, scope)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := maps.Clone(m.vars[scope])
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

// Set implements Environment.
func (m *Memory) Set(_ context.Context, scope types.Scope, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail[name]; err != nil {
		return err
	}
	if m.vars[scope] == nil {
		m.vars[scope] = make(map[string]string)
	}
	m.vars[scope][name] = value
	m.writes++
	return nil
}

// Unset implements Environment.
func (m *Memory) Unset(_ context.Context, scope types.Scope, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail[name]; err != nil {
		return err
	}
	delete(m.vars[scope], name)
	m.writes++
	return nil
}

// Get returns a single variable.
func (m *Memory) Get(scope types.Scope, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vars[scope][name]
	return v, ok
}

// FailOn makes every write to name fail with err. A nil err clears it.
func (m *Memory) FailOn(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, name)
		return
	}
	m.fail[name] = err
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
