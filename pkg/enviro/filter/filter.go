package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// Filter defines criteria for selecting, sorting and limiting entries.
type Filter struct {
	// Include holds glob patterns; when non-empty a name must match one.
	Include []string

	// Exclude holds glob patterns; matching names are dropped.
	Exclude []string

	// States keeps only entries in one of these edit states.
	States []types.EditState

	// CorruptedOnly keeps only entries flagged corrupted.
	CorruptedOnly bool

	// FoldCase matches patterns case-insensitively.
	FoldCase bool

	// SortBy selects the sort field.
	SortBy SortField

	// SortDescending reverses the order.
	SortDescending bool

	// Limit caps the result. 0 means unlimited.
	Limit int

	include []glob.Glob
	exclude []glob.Glob
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter. By default it matches everything in collection order.
func New(opts ...Option) *Filter {
	f := &Filter{}
	for _, opt := range opts {
		opt(f)
	}
	f.include = compile(f.Include, f.FoldCase)
	f.exclude = compile(f.Exclude, f.FoldCase)
	return f
}

// WithInclude sets the include glob patterns.
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = patterns
	}
}

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithStates keeps only entries in the given states.
func WithStates(states ...types.EditState) Option {
	return func(f *Filter) {
		f.States = states
	}
}

// WithCorruptedOnly keeps only corrupted entries.
func WithCorruptedOnly(only bool) Option {
	return func(f *Filter) {
		f.CorruptedOnly = only
	}
}

// WithFoldCase matches patterns case-insensitively.
func WithFoldCase(fold bool) Option {
	return func(f *Filter) {
		f.FoldCase = fold
	}
}

// WithSortBy sets the field to sort by.
func WithSortBy(field SortField) Option {
	return func(f *Filter) {
		f.SortBy = field
	}
}

// WithSortDescending reverses the sort order.
func WithSortDescending(desc bool) Option {
	return func(f *Filter) {
		f.SortDescending = desc
	}
}

// WithLimit caps the number of entries returned. Negative means unlimited.
func WithLimit(limit int) Option {
	return func(f *Filter) {
		if limit < 0 {
			limit = 0
		}
		f.Limit = limit
	}
}

// compile skips invalid patterns.
func compile(patterns []string, fold bool) []glob.Glob {
	var out []glob.Glob
	for _, p := range patterns {
		if fold {
			p = strings.ToLower(p)
		}
		g, err := glob.Compile(p)
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Match reports whether e passes every criterion.
func (f *Filter) Match(e *types.Entry) bool {
	if f.CorruptedOnly && !e.Corrupted {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, e.State) {
		return false
	}

	name := e.Name
	if f.FoldCase {
		name = strings.ToLower(name)
	}
	if matchesAny(name, f.exclude) {
		return false
	}
	if len(f.Include) > 0 && !matchesAny(name, f.include) {
		return false
	}
	return true
}

func matchesAny(name string, globs []glob.Glob) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy of entries. The sort is stable.
func (f *Filter) Sort(entries []*types.Entry) []*types.Entry {
	sorted := slices.Clone(entries)
	if f.SortBy == SortNone {
		if f.SortDescending {
			slices.Reverse(sorted)
		}
		return sorted
	}

	slices.SortStableFunc(sorted, func(a, b *types.Entry) int {
		var result int
		switch f.SortBy {
		case SortState:
			result = cmp.Compare(a.State, b.State)
		case SortLength:
			result = cmp.Compare(len(a.Value), len(b.Value))
		}
		if result == 0 {
			result = f.compareNames(a.Name, b.Name)
		}
		if f.SortDescending {
			return -result
		}
		return result
	})
	return sorted
}

func (f *Filter) compareNames(a, b string) int {
	if f.FoldCase {
		return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
	}
	return cmp.Compare(a, b)
}

// Apply runs Match, Sort and Limit.
func (f *Filter) Apply(entries []*types.Entry) []*types.Entry {
	var matched []*types.Entry
	for _, e := range entries {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}

	sorted := f.Sort(matched)
	if f.Limit > 0 && len(sorted) > f.Limit {
		return sorted[:f.Limit]
	}
	return sorted
}
