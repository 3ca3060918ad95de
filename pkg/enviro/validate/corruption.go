package validate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrorPolicy decides how a filesystem probe error (anything other than
// "does not exist") is judged.
type ErrorPolicy int

// Probe error policies.
const (
	// PolicyCorrupted counts an unreadable segment as broken.
	PolicyCorrupted ErrorPolicy = iota
	// PolicyClean ignores probe errors.
	PolicyClean
	// PolicyPropagate returns the probe error to the caller.
	PolicyPropagate
)

// ErrInvalidPolicy is returned for unknown policy names.
var ErrInvalidPolicy = errors.New("invalid probe error policy")

// String returns the policy name used in configuration.
func (p ErrorPolicy) String() string {
	switch p {
	case PolicyCorrupted:
		return "corrupted"
	case PolicyClean:
		return "clean"
	case PolicyPropagate:
		return "propagate"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name. Empty selects PolicyCorrupted.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "corrupted":
		return PolicyCorrupted, nil
	case "clean":
		return PolicyClean, nil
	case "propagate":
		return PolicyPropagate, nil
	default:
		return PolicyCorrupted, fmt.Errorf("%w: %s", ErrInvalidPolicy, s)
	}
}

// DefaultSeparator splits list values such as PATH.
const DefaultSeparator = ";"

// StatFunc probes a filesystem path.
type StatFunc func(name string) (fs.FileInfo, error)

// Validator judges whether values reference missing filesystem targets.
type Validator struct {
	separator  string
	colonLists bool
	lookup    LookupFunc
	stat      StatFunc
	policy    ErrorPolicy
	enabled   bool
}

// Option configures a Validator.
type Option func(*Validator)

// New creates a Validator. Defaults:
//   - separator: ";"
//   - colon lists: on where the platform list separator is ':'
//   - lookup: os.LookupEnv
//   - stat: os.Stat
//   - policy: PolicyCorrupted
func New(opts ...Option) *Validator {
	v := &Validator{
		separator:  DefaultSeparator,
		colonLists: filepath.ListSeparator == ':',
		lookup:     os.LookupEnv,
		stat:       os.Stat,
		policy:     PolicyCorrupted,
		enabled:    true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithColonLists controls whether a value without the separator is read
// as a ':'-separated list. It only splits when every piece is rooted, so
// URLs and host:port values stay whole.
func WithColonLists(enabled bool) Option {
	return func(v *Validator) {
		v.colonLists = enabled
	}
}

// WithSeparator sets the segment separator for list values.
// An empty separator disables splitting.
func WithSeparator(sep string) Option {
	return func(v *Validator) {
		v.separator = sep
	}
}

// WithLookup sets the placeholder resolver.
func WithLookup(lookup LookupFunc) Option {
	return func(v *Validator) {
		v.lookup = lookup
	}
}

// WithStat replaces the filesystem probe.
func WithStat(stat StatFunc) Option {
	return func(v *Validator) {
		if stat != nil {
			v.stat = stat
		}
	}
}

// WithPolicy sets the probe error policy.
func WithPolicy(p ErrorPolicy) Option {
	return func(v *Validator) {
		v.policy = p
	}
}

// WithEnabled turns corruption checking on or off. A disabled validator
// reports every value as clean.
func WithEnabled(enabled bool) Option {
	return func(v *Validator) {
		v.enabled = enabled
	}
}

// Enabled reports whether checking is on.
func (v *Validator) Enabled() bool {
	return v.enabled
}

// Policy returns the probe error policy.
func (v *Validator) Policy() ErrorPolicy {
	return v.policy
}

// IsCorrupted reports whether any path-like segment of value is missing.
// A non-nil error is only returned under PolicyPropagate.
func (v *Validator) IsCorrupted(value string) (bool, error) {
	broken, err := v.BrokenSegments(value)
	return len(broken) > 0, err
}

// BrokenSegments returns the expanded path-like segments of value that
// do not resolve to an existing file or directory.
func (v *Validator) BrokenSegments(value string) ([]string, error) {
	if !v.enabled {
		return nil, nil
	}

	var broken []string
	var errs []error
	for _, seg := range v.Segments(value) {
		if !pathLike(seg) {
			continue
		}
		_, err := v.stat(seg)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			broken = append(broken, seg)
		case v.policy == PolicyCorrupted:
			broken = append(broken, seg)
		case v.policy == PolicyPropagate:
			errs = append(errs, fmt.Errorf("probing %s: %w", seg, err))
		}
	}

	return broken, errors.Join(errs...)
}

// Segments splits value on the separator, expands placeholders and trims
// each segment. Blank segments are dropped.
func (v *Validator) Segments(value string) []string {
	parts := []string{value}
	switch {
	case v.separator != "" && strings.Contains(value, v.separator):
		parts = strings.Split(value, v.separator)
	case v.colonLists && strings.Contains(value, ":"):
		if pieces := strings.Split(value, ":"); allRooted(pieces, v.lookup) {
			parts = pieces
		}
	}

	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(Expand(p, v.lookup))
		if p == "" {
			continue
		}
		segs = append(segs, p)
	}
	return segs
}

// allRooted reports whether every non-blank piece expands to a rooted path.
func allRooted(pieces []string, lookup LookupFunc) bool {
	for _, p := range pieces {
		p = strings.TrimSpace(Expand(p, lookup))
		if p != "" && !IsRooted(p) {
			return false
		}
	}
	return true
}

// pathLike reports whether seg names a filesystem location. URLs are
// never path-like even when they parse as rooted.
func pathLike(seg string) bool {
	return IsRooted(seg) && !strings.Contains(seg, "://")
}

// IsRooted reports whether p is an absolute or rooted filesystem path.
// Windows forms such as `C:\dir` and `\dir` count on every platform.
func IsRooted(p string) bool {
	if p == "" {
		return false
	}
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return true
	}
	if p[0] == '/' || p[0] == '\\' {
		return true
	}
	return len(p) >= 3 && isDriveLetter(p[0]) && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
