package transfer

import (
	"fmt"

	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
	"github.com/jamesainslie/enviro/pkg/enviro/validate"
)

// ChangeKind classifies an imported pair against the store.
type ChangeKind int

const (
	// ChangeNew is a name the scope does not track.
	ChangeNew ChangeKind = iota
	// ChangeUpdated is a tracked name whose value differs, or one pending deletion.
	ChangeUpdated
	// ChangeUnchanged is a tracked name with the same value.
	ChangeUnchanged
)

// String returns "new", "updated" or "unchanged".
func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "new"
	case ChangeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Change is one classified pair.
type Change struct {
	Kind    ChangeKind
	Scope   types.Scope
	Name    string
	Value   string
	Current string
}

// Preview lists what an import would do.
type Preview struct {
	Changes []Change
}

// Names returns the names of changes of kind.
func (p *Preview) Names(kind ChangeKind) []string {
	var out []string
	for _, c := range p.Changes {
		if c.Kind == kind {
			out = append(out, c.Name)
		}
	}
	return out
}

// Count returns the number of changes of kind.
func (p *Preview) Count(kind ChangeKind) int {
	return len(p.Names(kind))
}

// Diff classifies every pair in b against s. It fails on the first
// invalid name or value so nothing is staged from a broken file.
func Diff(s *store.Store, b *Bundle) (*Preview, error) {
	p := &Preview{}
	for _, scope := range types.Scopes {
		for _, pair := range b.Pairs(scope) {
			if err := validate.CheckName(scope, pair.Name); err != nil {
				return nil, err
			}
			if err := validate.CheckValue(scope, pair.Name, pair.Value); err != nil {
				return nil, err
			}

			c := Change{Kind: ChangeNew, Scope: scope, Name: pair.Name, Value: pair.Value}
			if e, ok := s.Find(pair.Name, scope); ok {
				c.Current = e.Value
				switch {
				case e.State == types.Deleted, e.Value != pair.Value:
					c.Kind = ChangeUpdated
				default:
					c.Kind = ChangeUnchanged
				}
			}
			p.Changes = append(p.Changes, c)
		}
	}
	return p, nil
}

// Apply stages the new and updated pairs of b through t. Entries pending
// deletion are restored before their value is set.
func Apply(t *store.Tracker, b *Bundle) (*Preview, error) {
	s := t.Store()
	p, err := Diff(s, b)
	if err != nil {
		return nil, err
	}

	for _, c := range p.Changes {
		switch c.Kind {
		case ChangeNew:
			if _, err := t.Add(c.Name, c.Value, c.Scope); err != nil {
				return p, fmt.Errorf("import %s: %w", c.Name, err)
			}
		case ChangeUpdated:
			if err := update(t, c); err != nil {
				return p, fmt.Errorf("import %s: %w", c.Name, err)
			}
		}
	}
	return p, nil
}

func update(t *store.Tracker, c Change) error {
	e, ok := t.Store().Find(c.Name, c.Scope)
	if !ok {
		return types.NewValidationError(types.ErrNotFound, c.Scope, c.Name, "variable disappeared during import")
	}
	if e.State == types.Deleted {
		if err := t.Restore(e); err != nil {
			return err
		}
		if e.Value == c.Value {
			return nil
		}
	}
	return t.UpdateValue(e, c.Value)
}
