package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/enviro/pkg/enviro/commit"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("journal entry not found")

// Journal stores one JSON file per commit attempt.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Journal in dir. The directory is created on first write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// Record persists the outcome of a commit and returns the created entry.
func (j *Journal) Record(report *commit.Report, commitErr error) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := FromReport(report, commitErr)
	entry.Timestamp = j.now().UTC()
	entry.ID = generateID(entry.Timestamp)

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if err := j.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}
	return entry, nil
}

// FromReport converts a commit report to an Entry without ID or timestamp.
func FromReport(report *commit.Report, commitErr error) *Entry {
	entry := &Entry{Success: commitErr == nil, Scopes: []ScopeRecord{}}
	if commitErr != nil {
		entry.Error = commitErr.Error()
	}
	if report == nil {
		return entry
	}

	entry.Duration = report.Finished.Sub(report.Started)
	for _, sr := range report.Scopes {
		rec := ScopeRecord{
			Scope:      sr.Scope.String(),
			Skipped:    sr.Skipped,
			SkipReason: sr.SkipReason,
			Applied:    sr.Applied,
		}
		if sr.Failed != nil {
			rec.Failed = &FailedOp{Op: sr.Failed.Op, Error: sr.Failed.Err.Error()}
		}
		if sr.Skipped {
			entry.Summary.Skipped++
		}
		for _, op := range sr.Applied {
			if op.Kind == commit.OpSet {
				entry.Summary.Sets++
			} else {
				entry.Summary.Unsets++
			}
		}
		entry.Scopes = append(entry.Scopes, rec)
	}
	return entry
}

func (j *Journal) writeEntry(entry *Entry) error {
	path := filepath.Join(j.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of 0 or less returns all.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID. A unique ID prefix is accepted.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry ID prefix: %s", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	files, err := os.ReadDir(j.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read journal directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, f.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (j *Journal) readAll() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(j.dir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// generateID creates an ID like "commit-2024-06-15T10-30-00-1a2b3c4d".
func generateID(ts time.Time) string {
	return fmt.Sprintf("commit-%s-%s", ts.Format("2006-01-02T15-04-05"), uuid.NewString()[:8])
}
