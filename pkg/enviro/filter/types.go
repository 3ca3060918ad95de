// Package filter selects and orders variable entries for listing. It
// supports glob name patterns, edit state and corruption filters, and
// configurable sorting and limits.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// SortField specifies the field entries are sorted by.
type SortField int

const (
	// SortNone keeps collection order.
	SortNone SortField = iota
	// SortName sorts by variable name.
	SortName
	// SortState sorts by edit state, then name.
	SortState
	// SortLength sorts by value length, then name.
	SortLength
)

const (
	sortFieldNone   = "none"
	sortFieldName   = "name"
	sortFieldState  = "state"
	sortFieldLength = "length"
)

// String returns the string representation of the sort field.
func (s SortField) String() string {
	switch s {
	case SortName:
		return sortFieldName
	case SortState:
		return sortFieldState
	case SortLength:
		return sortFieldLength
	default:
		return sortFieldNone
	}
}

// ErrInvalidSortField indicates that the sort field string could not be parsed.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField parses "none", "name", "state" or "length" case-insensitively.
// Empty selects SortNone.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", sortFieldNone:
		return SortNone, nil
	case sortFieldName:
		return SortName, nil
	case sortFieldState:
		return SortState, nil
	case sortFieldLength:
		return SortLength, nil
	default:
		return SortNone, fmt.Errorf("%w: %q (valid: none, name, state, length)", ErrInvalidSortField, s)
	}
}

// ParseStates parses a list of edit state names such as
// ["added", "modified,deleted"]. The alias "pending" expands to every
// state except unchanged.
func ParseStates(values []string) ([]types.EditState, error) {
	var out []types.EditState
	seen := make(map[types.EditState]bool)
	add := func(s types.EditState) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.EqualFold(part, "pending") {
				add(types.Added)
				add(types.Modified)
				add(types.Deleted)
				continue
			}
			s, err := types.ParseEditState(part)
			if err != nil {
				return nil, err
			}
			add(s)
		}
	}
	return out, nil
}
