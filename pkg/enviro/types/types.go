// Package types provides the core data types shared by the enviro packages.
// It defines variable scopes, edit states, tracked entries and the error
// values returned by validation and editing operations.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Scope partitions environment variables into per-user and machine-wide sets.
type Scope int

// Supported scopes. User is always committed before Machine.
const (
	ScopeUser Scope = iota
	ScopeMachine
)

// Scopes lists every scope in commit order.
var Scopes = []Scope{ScopeUser, ScopeMachine}

// String returns the lowercase scope name.
func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeMachine:
		return "machine"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeUser || s == ScopeMachine
}

// ParseScope parses a scope name. It accepts "user", "machine" and the
// Windows-style alias "system" for machine, case-insensitively.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "u":
		return ScopeUser, nil
	case "machine", "system", "m":
		return ScopeMachine, nil
	default:
		return ScopeUser, fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// EditState tags where an entry is in its edit lifecycle.
type EditState int

// Edit states.
const (
	Unchanged EditState = iota
	Added
	Modified
	Deleted
)

// String returns the lowercase state name.
func (s EditState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pending reports whether the state still has to be applied to the OS.
func (s EditState) Pending() bool {
	return s != Unchanged
}

// ParseEditState parses a state name as produced by String.
func ParseEditState(s string) (EditState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unchanged":
		return Unchanged, nil
	case "added":
		return Added, nil
	case "modified":
		return Modified, nil
	case "deleted":
		return Deleted, nil
	default:
		return Unchanged, fmt.Errorf("%w: unknown edit state %q", ErrInvalidState, s)
	}
}

// Entry is one environment variable under tracking.
type Entry struct {
	// Name identifies the variable within its scope.
	Name string `json:"name" yaml:"name"`

	// Value is the value as currently edited.
	Value string `json:"value" yaml:"value"`

	// Baseline is the value last loaded from or committed to the OS.
	Baseline string `json:"baseline" yaml:"baseline"`

	// State is the edit lifecycle tag.
	State EditState `json:"-" yaml:"-"`

	// Corrupted is set by the corruption validator and never by edits.
	Corrupted bool `json:"corrupted" yaml:"corrupted"`

	// CheckErr holds a filesystem probe error when the validator is
	// configured to propagate probe failures instead of judging them.
	CheckErr error `json:"-" yaml:"-"`

	// Scope is the partition the entry belongs to.
	Scope Scope `json:"-" yaml:"-"`
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// Dirty reports whether the current value differs from the baseline.
func (e *Entry) Dirty() bool {
	return e.Value != e.Baseline
}

// Sentinel errors returned by validation and editing operations.
var (
	// ErrDuplicateName indicates the name is already taken in the scope.
	ErrDuplicateName = errors.New("duplicate variable name")

	// ErrInvalidName indicates a blank or malformed variable name.
	ErrInvalidName = errors.New("invalid variable name")

	// ErrInvalidValue indicates a blank variable value.
	ErrInvalidValue = errors.New("invalid variable value")

	// ErrNotFound indicates the variable or entry is not tracked.
	ErrNotFound = errors.New("variable not found")

	// ErrInvalidState indicates the operation does not apply to the entry's edit state.
	ErrInvalidState = errors.New("invalid edit state for operation")

	// ErrInvalidScope indicates an unknown scope.
	ErrInvalidScope = errors.New("invalid scope")
)

// ValidationError describes a rejected edit. It wraps one of the sentinel
// errors so callers can match with errors.Is.
type ValidationError struct {
	Err    error
	Scope  Scope
	Name   string
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s %q", e.Err, e.Scope, e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError.
func NewValidationError(err error, scope Scope, name, reason string) *ValidationError {
	return &ValidationError{Err: err, Scope: scope, Name: name, Reason: reason}
}
