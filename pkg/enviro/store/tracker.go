package store

import (
	"fmt"

	"github.com/jamesainslie/enviro/pkg/enviro/logging"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
	"github.com/jamesainslie/enviro/pkg/enviro/validate"
)

// Tracker is the mutation surface over a Store.
type Tracker struct {
	store  *Store
	logger *logging.Logger
}

// NewTracker returns a Tracker editing s.
func NewTracker(s *Store) *Tracker {
	return &Tracker{store: s, logger: logging.Get("store")}
}

// Store returns the store being edited.
func (t *Tracker) Store() *Store {
	return t.store
}

// Add creates an Added entry. It fails with ErrDuplicateName when any
// entry of that name exists in the scope, including one pending deletion.
func (t *Tracker) Add(name, value string, scope types.Scope) (*types.Entry, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidScope, int(scope))
	}
	if err := validate.CheckName(scope, name); err != nil {
		return nil, err
	}
	if err := validate.CheckValue(scope, name, value); err != nil {
		return nil, err
	}
	if t.store.Contains(name, scope) {
		return nil, types.NewValidationError(types.ErrDuplicateName, scope, name, "variable already exists")
	}

	e := &types.Entry{
		Name:     name,
		Value:    value,
		Baseline: value,
		State:    types.Added,
		Scope:    scope,
	}
	t.store.appendEntry(e)
	t.store.Revalidate(e)

	t.logger.Debug("added variable", "scope", scope, "name", name)
	return e, nil
}

// UpdateValue sets the current value. Added entries stay Added; all others
// become Modified. Deleted entries must be restored first.
func (t *Tracker) UpdateValue(e *types.Entry, value string) error {
	if err := t.owned(e); err != nil {
		return err
	}
	if e.State == types.Deleted {
		return types.NewValidationError(types.ErrInvalidState, e.Scope, e.Name, "variable is pending deletion")
	}
	if err := validate.CheckValue(e.Scope, e.Name, value); err != nil {
		return err
	}

	e.Value = value
	if e.State != types.Added {
		e.State = types.Modified
	}
	t.store.Revalidate(e)

	t.logger.Debug("updated variable", "scope", e.Scope, "name", e.Name, "state", e.State)
	return nil
}

// Remove drops an Added entry outright and soft-deletes anything else.
// Removing an already Deleted entry does nothing.
func (t *Tracker) Remove(e *types.Entry) error {
	if err := t.owned(e); err != nil {
		return err
	}

	switch e.State {
	case types.Added:
		t.store.removeAt(e.Scope, t.store.indexOf(e))
		t.logger.Debug("discarded added variable", "scope", e.Scope, "name", e.Name)
	case types.Deleted:
	default:
		e.State = types.Deleted
		t.logger.Debug("deleted variable", "scope", e.Scope, "name", e.Name)
	}
	return nil
}

// Rename gives e a new name and returns the entry that now carries it.
//
// Added entries are renamed in place. Anything else is split into a
// Deleted entry under the old name and a new Added entry under newName
// holding the current value; commit applies both halves in one pass.
func (t *Tracker) Rename(e *types.Entry, newName string) (*types.Entry, error) {
	if err := t.owned(e); err != nil {
		return nil, err
	}
	if err := validate.CheckName(e.Scope, newName); err != nil {
		return nil, err
	}
	if e.Name == newName {
		return e, nil
	}
	if e.State == types.Deleted {
		return nil, types.NewValidationError(types.ErrInvalidState, e.Scope, e.Name, "variable is pending deletion")
	}
	if t.store.containsLive(newName, e.Scope, e) {
		return nil, types.NewValidationError(types.ErrDuplicateName, e.Scope, newName, "variable already exists")
	}

	if e.State == types.Added {
		e.Name = newName
		t.store.Revalidate(e)
		t.logger.Debug("renamed added variable", "scope", e.Scope, "name", newName)
		return e, nil
	}

	renamed := &types.Entry{
		Name:     newName,
		Value:    e.Value,
		Baseline: e.Value,
		State:    types.Added,
		Scope:    e.Scope,
	}
	e.State = types.Deleted
	t.store.appendEntry(renamed)
	t.store.Revalidate(renamed)

	t.logger.Debug("renamed variable", "scope", e.Scope, "from", e.Name, "to", newName)
	return renamed, nil
}

// Reset discards the edit of a Modified entry.
func (t *Tracker) Reset(e *types.Entry) error {
	if err := t.owned(e); err != nil {
		return err
	}
	if e.State != types.Modified {
		return types.NewValidationError(types.ErrInvalidState, e.Scope, e.Name,
			fmt.Sprintf("only modified variables can be reset, got %s", e.State))
	}

	e.Value = e.Baseline
	e.State = types.Unchanged
	t.store.Revalidate(e)
	return nil
}

// Restore brings a Deleted entry back to its baseline. Edits made before
// the deletion are not recovered.
func (t *Tracker) Restore(e *types.Entry) error {
	if err := t.owned(e); err != nil {
		return err
	}
	if e.State != types.Deleted {
		return types.NewValidationError(types.ErrInvalidState, e.Scope, e.Name,
			fmt.Sprintf("only deleted variables can be restored, got %s", e.State))
	}
	if t.store.containsLive(e.Name, e.Scope, e) {
		return types.NewValidationError(types.ErrDuplicateName, e.Scope, e.Name, "a variable with this name was added since")
	}

	e.Value = e.Baseline
	e.State = types.Unchanged
	t.store.Revalidate(e)
	return nil
}

func (t *Tracker) owned(e *types.Entry) error {
	if e == nil || t.store.indexOf(e) < 0 {
		name := ""
		scope := types.ScopeUser
		if e != nil {
			name, scope = e.Name, e.Scope
		}
		return types.NewValidationError(types.ErrNotFound, scope, name, "entry is not tracked by this store")
	}
	return nil
}
