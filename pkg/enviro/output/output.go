// Package output renders entry listings, status, commit reports and
// commit history in several formats (pretty, plain, json, yaml).
//
// Formatters are kept in a registry so the CLI can select one by name:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/enviro/pkg/enviro/commit"
	"github.com/jamesainslie/enviro/pkg/enviro/journal"
	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// Kind selects which section of a Result a formatter renders.
type Kind int

const (
	// KindEntries is a variable listing.
	KindEntries Kind = iota
	// KindStatus lists pending changes and drift.
	KindStatus
	// KindCommit is a commit report or dry-run plan.
	KindCommit
	// KindHistory lists journal entries.
	KindHistory
)

// EntryInfo is one variable prepared for display.
type EntryInfo struct {
	Scope     string   `json:"scope" yaml:"scope"`
	Name      string   `json:"name" yaml:"name"`
	Value     string   `json:"value" yaml:"value"`
	Baseline  string   `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	State     string   `json:"state" yaml:"state"`
	Corrupted bool     `json:"corrupted,omitempty" yaml:"corrupted,omitempty"`
	Broken    []string `json:"broken,omitempty" yaml:"broken,omitempty"`
	CheckErr  string   `json:"check_error,omitempty" yaml:"check_error,omitempty"`
}

// NewEntryInfo converts an entry. broken lists the unresolved segments
// of a corrupted value and may be nil.
func NewEntryInfo(e *types.Entry, broken []string) EntryInfo {
	info := EntryInfo{
		Scope:     e.Scope.String(),
		Name:      e.Name,
		Value:     e.Value,
		State:     e.State.String(),
		Corrupted: e.Corrupted,
		Broken:    broken,
	}
	if e.State == types.Modified || e.State == types.Deleted {
		info.Baseline = e.Baseline
	}
	if e.CheckErr != nil {
		info.CheckErr = e.CheckErr.Error()
	}
	return info
}

// DriftInfo is an out-of-band OS change.
type DriftInfo struct {
	Scope     string `json:"scope" yaml:"scope"`
	Name      string `json:"name" yaml:"name"`
	Baseline  string `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Current   string `json:"current,omitempty" yaml:"current,omitempty"`
	Present   bool   `json:"present" yaml:"present"`
	Untracked bool   `json:"untracked,omitempty" yaml:"untracked,omitempty"`
}

// NewDriftInfo converts store drift for scope.
func NewDriftInfo(scope types.Scope, drift []store.Drift) []DriftInfo {
	out := make([]DriftInfo, 0, len(drift))
	for _, d := range drift {
		out = append(out, DriftInfo{
			Scope:     scope.String(),
			Name:      d.Name,
			Baseline:  d.Baseline,
			Current:   d.Current,
			Present:   d.Present,
			Untracked: d.Untracked,
		})
	}
	return out
}

// OpInfo is one planned or executed write.
type OpInfo struct {
	Kind     string `json:"kind" yaml:"kind"`
	Name     string `json:"name" yaml:"name"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Previous string `json:"previous,omitempty" yaml:"previous,omitempty"`
	Status   string `json:"status" yaml:"status"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Op statuses.
const (
	StatusPlanned = "planned"
	StatusApplied = "applied"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// ScopeInfo groups the writes of one scope.
type ScopeInfo struct {
	Scope      string   `json:"scope" yaml:"scope"`
	Skipped    bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	SkipReason string   `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Ops        []OpInfo `json:"ops" yaml:"ops"`
}

// CommitInfo is a commit report or, when DryRun is set, a plan.
type CommitInfo struct {
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	DryRun   bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Success  bool          `json:"success" yaml:"success"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Scopes   []ScopeInfo   `json:"scopes" yaml:"scopes"`
}

// Count returns the number of ops with the given status.
func (c *CommitInfo) Count(status string) int {
	n := 0
	for _, s := range c.Scopes {
		for _, op := range s.Ops {
			if op.Status == status {
				n++
			}
		}
	}
	return n
}

func newOpInfo(op commit.Op, status string) OpInfo {
	return OpInfo{
		Kind:     op.Kind.String(),
		Name:     op.Name,
		Value:    op.Value,
		Previous: op.Previous,
		Status:   status,
	}
}

// NewPlanInfo describes a dry run.
func NewPlanInfo(plan map[types.Scope][]commit.Op) *CommitInfo {
	info := &CommitInfo{DryRun: true, Success: true}
	for _, scope := range types.Scopes {
		ops, ok := plan[scope]
		if !ok {
			continue
		}
		si := ScopeInfo{Scope: scope.String()}
		for _, op := range ops {
			si.Ops = append(si.Ops, newOpInfo(op, StatusPlanned))
		}
		info.Scopes = append(info.Scopes, si)
	}
	return info
}

// NewCommitInfo describes a finished commit. Planned ops that neither
// succeeded nor failed are reported as pending.
func NewCommitInfo(r *commit.Report, err error) *CommitInfo {
	info := &CommitInfo{Success: err == nil}
	if err != nil {
		info.Error = err.Error()
	}
	if r == nil {
		return info
	}
	info.Duration = r.Finished.Sub(r.Started)

	for _, sr := range r.Scopes {
		si := ScopeInfo{
			Scope:      sr.Scope.String(),
			Skipped:    sr.Skipped,
			SkipReason: sr.SkipReason,
		}
		for i, op := range sr.Planned {
			switch {
			case i < len(sr.Applied):
				si.Ops = append(si.Ops, newOpInfo(op, StatusApplied))
			case sr.Failed != nil && i == len(sr.Applied):
				oi := newOpInfo(op, StatusFailed)
				oi.Error = sr.Failed.Err.Error()
				si.Ops = append(si.Ops, oi)
			default:
				si.Ops = append(si.Ops, newOpInfo(op, StatusPending))
			}
		}
		info.Scopes = append(info.Scopes, si)
	}
	return info
}

// NewJournalInfo rebuilds a commit report from a journal record.
func NewJournalInfo(e *journal.Entry) *CommitInfo {
	info := &CommitInfo{
		ID:       e.ID,
		Success:  e.Success,
		Error:    e.Error,
		Duration: e.Duration,
	}
	for _, sr := range e.Scopes {
		si := ScopeInfo{Scope: sr.Scope, Skipped: sr.Skipped, SkipReason: sr.SkipReason}
		for _, op := range sr.Applied {
			si.Ops = append(si.Ops, newOpInfo(op, StatusApplied))
		}
		if sr.Failed != nil {
			oi := newOpInfo(sr.Failed.Op, StatusFailed)
			oi.Error = sr.Failed.Error
			si.Ops = append(si.Ops, oi)
		}
		info.Scopes = append(info.Scopes, si)
	}
	return info
}

// HistoryInfo is a journal entry summary.
type HistoryInfo struct {
	ID        string        `json:"id" yaml:"id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Success   bool          `json:"success" yaml:"success"`
	Sets      int           `json:"sets" yaml:"sets"`
	Unsets    int           `json:"unsets" yaml:"unsets"`
	Skipped   int           `json:"skipped_scopes,omitempty" yaml:"skipped_scopes,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewHistoryInfo converts journal entries.
func NewHistoryInfo(entries []journal.Entry) []HistoryInfo {
	out := make([]HistoryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryInfo{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Duration:  e.Duration,
			Success:   e.Success,
			Sets:      e.Summary.Sets,
			Unsets:    e.Summary.Unsets,
			Skipped:   e.Summary.Skipped,
			Error:     e.Error,
		})
	}
	return out
}

// Result is the data handed to a formatter. Only the section selected by
// Kind is rendered; Warnings are rendered for every kind.
type Result struct {
	Kind     Kind
	Entries  []EntryInfo
	Drift    []DriftInfo
	Commit   *CommitInfo
	History  []HistoryInfo
	Warnings []string

	// Now anchors relative ages in history output. Zero means time.Now.
	Now time.Time
}

func (r *Result) now() time.Time {
	if r.Now.IsZero() {
		return time.Now()
	}
	return r.Now
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
