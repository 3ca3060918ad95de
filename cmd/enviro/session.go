package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/enviro/pkg/enviro/commit"
	"github.com/jamesainslie/enviro/pkg/enviro/config"
	"github.com/jamesainslie/enviro/pkg/enviro/journal"
	"github.com/jamesainslie/enviro/pkg/enviro/osenv"
	"github.com/jamesainslie/enviro/pkg/enviro/staging"
	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
	"github.com/jamesainslie/enviro/pkg/enviro/validate"
)

// session is the working state of one CLI invocation: the store restored
// from staging or loaded from the OS, and the backend it commits to.
type session struct {
	cfg       *config.Config
	env       osenv.Environment
	validator *validate.Validator
	store     *store.Store
	tracker   *store.Tracker
	area      *staging.Area

	// restored is true when the store came from the staging area.
	restored bool
	// drift holds out-of-band OS changes found after a restore.
	drift map[types.Scope][]store.Drift
}

// newEnvironment builds the OS backend. Tests replace it.
var newEnvironment = func(cfg *config.Config) osenv.Environment {
	return osenv.Default(osenv.Options{
		UserFile:    cfg.Backend.UserFile,
		MachineFile: cfg.Backend.MachineFile,
	})
}

// isElevated reports machine-scope write access. Tests replace it.
var isElevated = osenv.IsElevated

func newValidator(cfg *config.Config) (*validate.Validator, error) {
	policy, err := validate.ParsePolicy(cfg.Validation.OnError)
	if err != nil {
		return nil, err
	}
	return validate.New(
		validate.WithPolicy(policy),
		validate.WithEnabled(cfg.Validation.Enabled),
	), nil
}

// openSession restores staged edits or, when none are staged, loads both
// scopes from the OS. A machine scope that cannot be read is left unloaded.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	v, err := newValidator(cfg)
	if err != nil {
		return nil, err
	}

	fold, set, err := cfg.FoldCase()
	if err != nil {
		return nil, err
	}
	if !set {
		fold = store.DefaultFoldCase()
	}

	st := store.New(store.WithChecker(v), store.WithFoldCase(fold))
	area, err := staging.Open(cfg.StagingPath())
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		env:       newEnvironment(cfg),
		validator: v,
		store:     st,
		tracker:   store.NewTracker(st),
		area:      area,
		drift:     make(map[types.Scope][]store.Drift),
	}

	s.restored, err = area.Load(st)
	if err != nil {
		_ = area.Close()
		return nil, err
	}

	if s.restored {
		s.checkDrift(ctx)
		return s, nil
	}

	for _, scope := range types.Scopes {
		if err := st.Load(ctx, s.env, scope); err != nil {
			if scope == types.ScopeUser {
				_ = area.Close()
				return nil, err
			}
			logger.Warn("machine scope unavailable", "error", err)
			printVerbose("machine scope not loaded: %v", err)
		}
	}
	return s, nil
}

// checkDrift compares staged baselines with the OS and warns when others
// changed variables since the edits were staged.
func (s *session) checkDrift(ctx context.Context) {
	total := 0
	for _, scope := range types.Scopes {
		if !s.store.Loaded(scope) {
			continue
		}
		values, err := s.env.Read(ctx, scope)
		if err != nil {
			logger.Warn("drift check failed", "scope", scope, "error", err)
			continue
		}
		d := s.store.Drift(scope, values)
		s.drift[scope] = d
		total += len(d)
	}

	if total > 0 {
		logger.Warn("staged baselines differ from the OS", "count", total)
		printWarning("%d variable(s) changed outside enviro since your edits were staged; run 'enviro status'", total)
	}
}

// stagedAge describes when the restored snapshot was saved.
func (s *session) stagedAge() string {
	if !s.restored {
		return ""
	}
	meta, err := s.area.Info()
	if err != nil {
		return ""
	}
	return humanize.Time(meta.SavedAt)
}

// save persists pending edits, or clears the staging area when there are none.
func (s *session) save() error {
	if s.store.HasPendingChanges() {
		return s.area.Save(s.store)
	}
	return s.area.Clear()
}

// close releases the staging database.
func (s *session) close() {
	if err := s.area.Close(); err != nil {
		logger.Warn("closing staging area", "error", err)
	}
}

// engine returns a commit engine bound to the session's backend.
func (s *session) engine() *commit.Engine {
	return commit.New(s.store, s.env, commit.PrivilegeFunc(isElevated))
}

// openJournal returns the commit journal, or nil when it is disabled.
func (s *session) openJournal() (*journal.Journal, error) {
	if !s.cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.New(s.cfg.JournalPath())
}

// brokenSegments lists the unresolved path segments of a corrupted entry.
func (s *session) brokenSegments(e *types.Entry) []string {
	if !e.Corrupted {
		return nil
	}
	broken, err := s.validator.BrokenSegments(e.Value)
	if err != nil {
		logger.Debug("segment check failed", "name", e.Name, "error", err)
	}
	return broken
}

// find looks up name in scope and reports a ValidationError when it is
// not tracked.
func (s *session) find(name string, scope types.Scope) (*types.Entry, error) {
	if !s.store.Loaded(scope) {
		return nil, fmt.Errorf("%s scope is not loaded", scope)
	}
	e, ok := s.store.Find(name, scope)
	if !ok {
		return nil, types.NewValidationError(types.ErrNotFound, scope, name, "no such variable")
	}
	return e, nil
}

// findDeleted looks up the entry of name pending deletion.
func (s *session) findDeleted(name string, scope types.Scope) (*types.Entry, error) {
	for _, e := range s.store.Entries(scope) {
		if e.State == types.Deleted && s.store.SameName(e.Name, name) {
			return e, nil
		}
	}
	if _, err := s.find(name, scope); err != nil {
		return nil, err
	}
	return nil, types.NewValidationError(types.ErrInvalidState, scope, name, "variable is not pending deletion")
}

// withSession opens a session, runs fn and saves the store when fn
// succeeds and mutate is set.
func withSession(ctx context.Context, mutate bool, fn func(*session) error) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(s); err != nil {
		return err
	}
	if !mutate {
		return nil
	}
	if err := s.save(); err != nil {
		return fmt.Errorf("failed to save staged changes: %w", err)
	}
	return nil
}

// isNoChanges reports whether err means there was nothing to commit.
func isNoChanges(err error) bool {
	return errors.Is(err, commit.ErrNoChanges)
}
