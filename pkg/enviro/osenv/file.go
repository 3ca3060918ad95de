package osenv

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jamesainslie/enviro/pkg/enviro/logging"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// FileEnv stores variables in KEY=VALUE files, one per scope, in the
// format read by pam_env and systemd environment.d. Comments and lines
// that are not assignments are preserved on rewrite.
type FileEnv struct {
	mu     sync.Mutex
	paths  map[types.Scope]string
	logger *logging.Logger
}

// NewFileEnv returns a FileEnv using the given files. An empty path
// leaves that scope unsupported.
func NewFileEnv(userPath, machinePath string) *FileEnv {
	paths := make(map[types.Scope]string)
	if userPath != "" {
		paths[types.ScopeUser] = userPath
	}
	if machinePath != "" {
		paths[types.ScopeMachine] = machinePath
	}
	return &FileEnv{paths: paths, logger: logging.Get("osenv")}
}

// Path returns the file backing scope.
func (f *FileEnv) Path(scope types.Scope) (string, error) {
	p, ok := f.paths[scope]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScope, scope)
	}
	return p, nil
}

// Read implements Environment. A missing file reads as empty.
func (f *FileEnv) Read(_ context.Context, scope types.Scope) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.load(scope)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string)
	for _, l := range lines {
		if l.key != "" {
			vars[l.key] = l.value
		}
	}
	return vars, nil
}

// Set implements Environment. The first assignment of name is rewritten
// in place and later duplicates are dropped; otherwise the assignment is
// appended.
func (f *FileEnv) Set(_ context.Context, scope types.Scope, name, value string) error {
	if err := checkFileName(scope, name); err != nil {
		return err
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: value of %s contains a line break", types.ErrInvalidValue, name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.load(scope)
	if err != nil {
		return err
	}

	out := make([]line, 0, len(lines)+1)
	replaced := false
	for _, l := range lines {
		if l.key != name {
			out = append(out, l)
			continue
		}
		if !replaced {
			out = append(out, assignment(name, value))
			replaced = true
		}
	}
	if !replaced {
		out = append(out, assignment(name, value))
	}

	return f.save(scope, out)
}

// Unset implements Environment.
func (f *FileEnv) Unset(_ context.Context, scope types.Scope, name string) error {
	if err := checkFileName(scope, name); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.load(scope)
	if err != nil {
		return err
	}

	out := lines[:0]
	for _, l := range lines {
		if l.key != name {
			out = append(out, l)
		}
	}
	if len(out) == len(lines) {
		return nil
	}
	return f.save(scope, out)
}

// checkFileName rejects names that would not read back as the same key,
// such as names with blanks or a leading '#'.
func checkFileName(scope types.Scope, name string) error {
	if !strings.ContainsAny(name, "\n\r") {
		if key, _, ok := ParseLine(name + "=x"); ok && key == name {
			return nil
		}
	}
	return types.NewValidationError(types.ErrInvalidName, scope, name, "name cannot be stored in an environment file")
}

type line struct {
	raw   string
	key   string
	value string
}

func assignment(name, value string) line {
	return line{raw: name + "=" + Quote(value), key: name, value: value}
}

func (f *FileEnv) load(scope types.Scope) ([]line, error) {
	path, err := f.Path(scope)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var lines []line
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Text()
		key, value, ok := ParseLine(raw)
		if !ok {
			lines = append(lines, line{raw: raw})
			continue
		}
		lines = append(lines, line{raw: raw, key: key, value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// save writes atomically through a temp file in the same directory.
func (f *FileEnv) save(scope types.Scope, lines []line) error {
	path, err := f.Path(scope)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l.raw)
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), mode); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	f.logger.Debug("wrote environment file", "scope", scope, "path", path, "lines", len(lines))
	return nil
}

// ParseLine parses one KEY=VALUE line. Blank lines, comments and lines
// without '=' report ok=false. An "export " prefix is accepted. Matching
// surrounding quotes are removed; double-quoted values unescape \" and \\.
func ParseLine(raw string) (key, value string, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", "", false
	}
	s = strings.TrimPrefix(s, "export ")

	key, value, found := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}

	return key, unquote(strings.TrimSpace(value)), true
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	switch {
	case v[0] == '\'' && v[len(v)-1] == '\'':
		return v[1 : len(v)-1]
	case v[0] == '"' && v[len(v)-1] == '"':
		r := strings.NewReplacer(`\"`, `"`, `\\`, `\`)
		return r.Replace(v[1 : len(v)-1])
	}
	return v
}

// Quote renders v for a KEY=VALUE line, double-quoting it when it holds
// whitespace, quotes, backslashes or a comment marker.
func Quote(v string) string {
	if v == "" || !strings.ContainsAny(v, " \t#\"'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
