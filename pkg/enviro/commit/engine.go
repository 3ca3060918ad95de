package commit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/enviro/pkg/enviro/logging"
	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// Errors returned by Commit.
var (
	// ErrCommitFailed wraps the first OS write that failed.
	ErrCommitFailed = errors.New("commit failed")

	// ErrCommitInProgress is returned when a commit is already running.
	ErrCommitInProgress = errors.New("commit already in progress")

	// ErrNoChanges is returned when there is nothing to commit.
	ErrNoChanges = errors.New("no changes detected")
)

// Writer applies single-variable writes to the OS.
type Writer interface {
	Set(ctx context.Context, scope types.Scope, name, value string) error
	Unset(ctx context.Context, scope types.Scope, name string) error
}

// Privilege reports whether the process may write machine-wide variables.
type Privilege interface {
	IsElevated() bool
}

// PrivilegeFunc adapts a function to Privilege.
type PrivilegeFunc func() bool

// IsElevated calls f.
func (f PrivilegeFunc) IsElevated() bool { return f() }

// OpError records the operation that failed.
type OpError struct {
	Op  Op
	Err error
}

// Error implements error.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// ScopeReport is the outcome for one scope.
type ScopeReport struct {
	Scope types.Scope `json:"-"`
	// Skipped is set when the scope was not attempted.
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
	// Planned lists every operation derived for the scope.
	Planned []Op `json:"planned,omitempty"`
	// Applied lists the operations that reached the OS.
	Applied []Op `json:"applied,omitempty"`
	// Failed is the operation that aborted the commit.
	Failed *OpError `json:"-"`
	// Settled is true when the scope's baseline was reset.
	Settled bool `json:"settled"`
}

// Report describes a commit attempt.
type Report struct {
	Scopes   []ScopeReport `json:"scopes"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
}

// Success reports whether every attempted operation succeeded.
func (r *Report) Success() bool {
	for _, s := range r.Scopes {
		if s.Failed != nil {
			return false
		}
	}
	return true
}

// Applied returns the number of operations that reached the OS.
func (r *Report) Applied() int {
	n := 0
	for _, s := range r.Scopes {
		n += len(s.Applied)
	}
	return n
}

// Scope returns the report for scope, if the scope was visited.
func (r *Report) Scope(scope types.Scope) (ScopeReport, bool) {
	for _, s := range r.Scopes {
		if s.Scope == scope {
			return s, true
		}
	}
	return ScopeReport{}, false
}

// Outcome is delivered by CommitAsync. Err is ErrNoChanges when nothing
// was pending; use Failed to tell a real failure apart.
type Outcome struct {
	Report *Report
	Err    error
}

// Failed reports whether the commit went wrong. Having nothing to commit
// is not a failure.
func (o Outcome) Failed() bool {
	return o.Err != nil && !errors.Is(o.Err, ErrNoChanges)
}

// Engine commits a store's pending changes.
type Engine struct {
	store   *store.Store
	writer  Writer
	priv    Privilege
	running atomic.Bool
	logger  *logging.Logger
	now     func() time.Time
}

// New creates an Engine. A nil priv is treated as never elevated.
func New(s *store.Store, w Writer, priv Privilege) *Engine {
	if priv == nil {
		priv = PrivilegeFunc(func() bool { return false })
	}
	return &Engine{
		store:  s,
		writer: w,
		priv:   priv,
		logger: logging.Get("commit"),
		now:    time.Now,
	}
}

// Plan returns the operations a commit would perform now, per scope.
// Scopes that would be skipped for lack of privilege are omitted.
func (e *Engine) Plan() map[types.Scope][]Op {
	out := make(map[types.Scope][]Op)
	for _, scope := range types.Scopes {
		if reason := e.skipReason(scope); reason != "" {
			continue
		}
		if ops := Plan(e.store, scope); len(ops) > 0 {
			out[scope] = ops
		}
	}
	return out
}

// Commit applies pending changes, User scope first. The Machine scope is
// skipped unless the process is elevated; its entries stay pending.
//
// Each write is independent: the first failure aborts the commit without
// rolling back earlier writes, and the failing scope keeps its pending
// state. Scopes that completed before the failure are settled. The
// context is checked between scopes only.
//
// The store must not be edited while a commit is running.
func (e *Engine) Commit(ctx context.Context) (*Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrCommitInProgress
	}
	defer e.running.Store(false)

	report := &Report{Started: e.now()}
	defer func() { report.Finished = e.now() }()

	if !e.store.HasPendingChanges() {
		return report, ErrNoChanges
	}

	for _, scope := range types.Scopes {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("commit interrupted before %s scope: %w", scope, err)
		}

		sr := ScopeReport{Scope: scope}
		if !e.store.HasPending(scope) {
			report.Scopes = append(report.Scopes, sr)
			continue
		}
		if reason := e.skipReason(scope); reason != "" {
			sr.Skipped = true
			sr.SkipReason = reason
			sr.Planned = Plan(e.store, scope)
			report.Scopes = append(report.Scopes, sr)
			e.logger.Warn("skipping scope", "scope", scope, "reason", reason)
			continue
		}

		err := e.applyScope(ctx, &sr)
		report.Scopes = append(report.Scopes, sr)
		if err != nil {
			return report, err
		}
	}

	e.logger.Info("commit complete", "applied", report.Applied())
	return report, nil
}

// CommitAsync runs Commit on its own goroutine. The returned channel
// delivers exactly one Outcome and is then closed. An Outcome carrying
// ErrNoChanges means there was nothing to apply, not that the commit
// failed; check Outcome.Failed.
func (e *Engine) CommitAsync(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	if e.running.Load() {
		ch <- Outcome{Err: ErrCommitInProgress}
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		report, err := e.Commit(ctx)
		ch <- Outcome{Report: report, Err: err}
	}()
	return ch
}

// Running reports whether a commit is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) skipReason(scope types.Scope) string {
	if scope == types.ScopeMachine && !e.priv.IsElevated() {
		return "machine scope requires elevated privileges"
	}
	return ""
}

func (e *Engine) applyScope(ctx context.Context, sr *ScopeReport) error {
	sr.Planned = Plan(e.store, sr.Scope)
	log := e.logger.With("scope", sr.Scope)
	log.Info("applying changes", "ops", len(sr.Planned))

	for _, op := range sr.Planned {
		var err error
		switch op.Kind {
		case OpUnset:
			err = e.writer.Unset(ctx, op.Scope, op.Name)
		case OpSet:
			err = e.writer.Set(ctx, op.Scope, op.Name, op.Value)
		}
		if err != nil {
			sr.Failed = &OpError{Op: op, Err: err}
			log.Error("write failed", "op", op.Kind, "name", op.Name, "error", err)
			return fmt.Errorf("%w: %w", ErrCommitFailed, sr.Failed)
		}
		sr.Applied = append(sr.Applied, op)
		log.Debug("write applied", "op", op.Kind, "name", op.Name)
	}

	e.store.Settle(sr.Scope)
	sr.Settled = true
	return nil
}
