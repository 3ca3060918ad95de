// Package journal keeps a history of commit attempts on disk.
package journal

import (
	"time"

	"github.com/jamesainslie/enviro/pkg/enviro/commit"
)

// Entry is one recorded commit attempt.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Scopes    []ScopeRecord `json:"scopes"`
	Summary   Summary       `json:"summary"`
}

// ScopeRecord is the outcome for one scope.
type ScopeRecord struct {
	Scope      string      `json:"scope"`
	Skipped    bool        `json:"skipped,omitempty"`
	SkipReason string      `json:"skip_reason,omitempty"`
	Applied    []commit.Op `json:"applied,omitempty"`
	Failed     *FailedOp   `json:"failed,omitempty"`
}

// FailedOp is the write that aborted a commit.
type FailedOp struct {
	Op    commit.Op `json:"op"`
	Error string    `json:"error"`
}

// Summary counts applied operations.
type Summary struct {
	Sets    int `json:"sets"`
	Unsets  int `json:"unsets"`
	Skipped int `json:"skipped_scopes"`
}
