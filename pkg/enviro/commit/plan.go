// Package commit reconciles pending store state with the OS environment.
//
// A commit derives a plan of Set and Unset operations per scope from the
// entries' edit states, applies it through a Writer and then settles the
// scope so every entry carries its committed value as the new baseline.
package commit

import (
	"fmt"

	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// OpKind is the kind of OS write an operation performs.
type OpKind int

// Operation kinds.
const (
	OpUnset OpKind = iota
	OpSet
)

// String returns "set" or "unset".
func (k OpKind) String() string {
	if k == OpSet {
		return "set"
	}
	return "unset"
}

// MarshalText implements encoding.TextMarshaler.
func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OpKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "set":
		*k = OpSet
	case "unset":
		*k = OpUnset
	default:
		return fmt.Errorf("unknown operation kind %q", b)
	}
	return nil
}

// Op is a single OS write.
type Op struct {
	Kind  OpKind      `json:"kind" yaml:"kind"`
	Scope types.Scope `json:"-" yaml:"-"`
	Name  string      `json:"name" yaml:"name"`
	// Value is the value written by a Set.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	// Previous is the committed value the operation replaces, if any.
	Previous string `json:"previous,omitempty" yaml:"previous,omitempty"`
	// From is the edit state that produced the operation.
	From types.EditState `json:"-" yaml:"-"`
}

// String renders the operation for logs and dry runs.
func (o Op) String() string {
	if o.Kind == OpSet {
		return fmt.Sprintf("set %s %s=%q", o.Scope, o.Name, o.Value)
	}
	return fmt.Sprintf("unset %s %s", o.Scope, o.Name)
}

// Plan derives the operations that bring the OS in line with the scope's
// pending entries. Unsets for Deleted entries come first, then Sets for
// Modified entries, then Sets for Added entries. An Unset is dropped when
// the same name is Set later in the plan, so a variable renamed onto a
// deleted name is overwritten instead of briefly removed. A name that only
// differs in case keeps its Unset: overwriting would leave the old casing
// on case-insensitive backends.
func Plan(s *store.Store, scope types.Scope) []Op {
	var unsets, modified, added []Op
	for _, e := range s.Entries(scope) {
		switch e.State {
		case types.Deleted:
			unsets = append(unsets, Op{Kind: OpUnset, Scope: scope, Name: e.Name, Previous: e.Baseline, From: e.State})
		case types.Modified:
			modified = append(modified, Op{Kind: OpSet, Scope: scope, Name: e.Name, Value: e.Value, Previous: e.Baseline, From: e.State})
		case types.Added:
			added = append(added, Op{Kind: OpSet, Scope: scope, Name: e.Name, Value: e.Value, From: e.State})
		}
	}

	sets := append(modified, added...)
	ops := make([]Op, 0, len(unsets)+len(sets))
	for _, u := range unsets {
		overwritten := false
		for i := range sets {
			if !s.SameName(sets[i].Name, u.Name) {
				continue
			}
			if sets[i].Previous == "" {
				sets[i].Previous = u.Previous
			}
			if sets[i].Name == u.Name {
				overwritten = true
			}
		}
		if !overwritten {
			ops = append(ops, u)
		}
	}

	return append(ops, sets...)
}
