// Package transfer exports tracked variables to a portable bundle and
// stages variables imported from a bundle or dotenv file.
package transfer

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/enviro/pkg/enviro/osenv"
	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// Format is a serialization format.
type Format string

// Supported formats.
const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatDotenv Format = "dotenv"
)

// ErrUnknownFormat indicates an unsupported format name.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat parses a format name. "yml" and "env" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "dotenv", "env":
		return FormatDotenv, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: json, yaml, dotenv)", ErrUnknownFormat, s)
	}
}

// DetectFormat guesses a format from a file extension, falling back to dotenv.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatDotenv
	}
}

// Pair is one exported variable.
type Pair struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Bundle holds variables for both scopes.
type Bundle struct {
	User    []Pair `json:"user" yaml:"user"`
	Machine []Pair `json:"machine" yaml:"machine"`
}

// Pairs returns the pairs for scope.
func (b *Bundle) Pairs(scope types.Scope) []Pair {
	if scope == types.ScopeMachine {
		return b.Machine
	}
	return b.User
}

func (b *Bundle) set(scope types.Scope, pairs []Pair) {
	if scope == types.ScopeMachine {
		b.Machine = pairs
	} else {
		b.User = pairs
	}
}

// Len returns the number of pairs in both scopes.
func (b *Bundle) Len() int {
	return len(b.User) + len(b.Machine)
}

// Export collects the current values of every live entry in scopes.
// Deleted entries are left out.
func Export(s *store.Store, scopes ...types.Scope) *Bundle {
	if len(scopes) == 0 {
		scopes = types.Scopes
	}
	b := &Bundle{User: []Pair{}, Machine: []Pair{}}
	for _, scope := range scopes {
		pairs := []Pair{}
		for _, e := range s.Entries(scope) {
			if e.State == types.Deleted {
				continue
			}
			pairs = append(pairs, Pair{Name: e.Name, Value: e.Value})
		}
		b.set(scope, pairs)
	}
	return b
}

// Encode writes b in format. For dotenv only the user scope is written
// unless the user scope is empty.
func Encode(w io.Writer, b *Bundle, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	case FormatDotenv:
		pairs := b.User
		if len(pairs) == 0 {
			pairs = b.Machine
		}
		bw := bufio.NewWriter(w)
		for _, p := range pairs {
			if strings.ContainsAny(p.Value, "\r\n") {
				return types.NewValidationError(types.ErrInvalidValue, types.ScopeUser, p.Name, "value contains a line break")
			}
			fmt.Fprintf(bw, "%s=%s\n", p.Name, osenv.Quote(p.Value))
		}
		return bw.Flush()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode reads a bundle in format. Dotenv input has no scope information
// and is placed in scope.
func Decode(r io.Reader, format Format, scope types.Scope) (*Bundle, error) {
	b := &Bundle{}
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(b); err != nil {
			return nil, fmt.Errorf("failed to decode json bundle: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(b); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode yaml bundle: %w", err)
		}
	case FormatDotenv:
		pairs, err := ParseDotenv(r)
		if err != nil {
			return nil, err
		}
		b.set(scope, pairs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return b, nil
}

// ParseDotenv reads KEY=VALUE lines. Blank lines and comments are skipped;
// any other line without an assignment is an error. A repeated name keeps
// its first position and takes the last value.
func ParseDotenv(r io.Reader) ([]Pair, error) {
	var pairs []Pair
	index := make(map[string]int)

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := osenv.ParseLine(line)
		if !ok {
			return nil, fmt.Errorf("invalid format at line %d: %s", lineNumber, line)
		}
		if i, seen := index[key]; seen {
			pairs[i].Value = value
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, Pair{Name: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return pairs, nil
}
