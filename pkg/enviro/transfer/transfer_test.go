package transfer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/enviro/pkg/enviro/store"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

func newStore(t *testing.T, user, machine map[string]string) *store.Store {
	t.Helper()
	s := store.New(store.WithFoldCase(false))
	s.LoadValues(types.ScopeUser, user)
	s.LoadValues(types.ScopeMachine, machine)
	return s
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"YAML", FormatYAML},
		{"yml", FormatYAML},
		{"env", FormatDotenv},
		{"dotenv", FormatDotenv},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("toml")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat("vars.JSON"))
	assert.Equal(t, FormatYAML, DetectFormat("vars.yml"))
	assert.Equal(t, FormatDotenv, DetectFormat(".env"))
	assert.Equal(t, FormatDotenv, DetectFormat("vars"))
}

func TestExportSkipsDeleted(t *testing.T) {
	s := newStore(t, map[string]string{"A": "1", "B": "2"}, map[string]string{"M": "x"})
	tr := store.NewTracker(s)

	b, _ := s.Find("B", types.ScopeUser)
	require.NoError(t, tr.Remove(b))
	_, err := tr.Add("C", "3", types.ScopeUser)
	require.NoError(t, err)

	bundle := Export(s)
	assert.Equal(t, []Pair{{"A", "1"}, {"C", "3"}}, bundle.User)
	assert.Equal(t, []Pair{{"M", "x"}}, bundle.Machine)
	assert.Equal(t, 3, bundle.Len())

	userOnly := Export(s, types.ScopeUser)
	assert.Empty(t, userOnly.Machine)
}

func TestEncodeDecodeBundle(t *testing.T) {
	bundle := &Bundle{
		User:    []Pair{{"PATH", `C:\bin;%HOME%\go`}},
		Machine: []Pair{{"JAVA_HOME", "/opt/java"}},
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, bundle, format))

			got, err := Decode(&buf, format, types.ScopeUser)
			require.NoError(t, err)
			assert.Equal(t, bundle, got)
		})
	}
}

func TestEncodeDotenv(t *testing.T) {
	var buf bytes.Buffer
	bundle := &Bundle{User: []Pair{{"A", "plain"}, {"B", "has space"}}}
	require.NoError(t, Encode(&buf, bundle, FormatDotenv))
	assert.Equal(t, "A=plain\nB=\"has space\"\n", buf.String())

	err := Encode(&bytes.Buffer{}, &Bundle{User: []Pair{{"X", "a\nb"}}}, FormatDotenv)
	assert.True(t, errors.Is(err, types.ErrInvalidValue))

	assert.True(t, errors.Is(Encode(&bytes.Buffer{}, bundle, "xml"), ErrUnknownFormat))
}

func TestDecodeEmptyYAML(t *testing.T) {
	b, err := Decode(strings.NewReader(""), FormatYAML, types.ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
}

func TestDecodeDotenvUsesScope(t *testing.T) {
	b, err := Decode(strings.NewReader("A=1\n"), FormatDotenv, types.ScopeMachine)
	require.NoError(t, err)
	assert.Empty(t, b.User)
	assert.Equal(t, []Pair{{"A", "1"}}, b.Machine)
}

func TestParseDotenv(t *testing.T) {
	input := `# comment

export EDITOR=vim
GREETING="hello \"world\""
SINGLE='it is'
EDITOR=nano
`
	pairs, err := ParseDotenv(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Pair{
		{"EDITOR", "nano"},
		{"GREETING", `hello "world"`},
		{"SINGLE", "it is"},
	}, pairs)
}

func TestParseDotenvInvalidLine(t *testing.T) {
	_, err := ParseDotenv(strings.NewReader("A=1\nnot an assignment\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDiff(t *testing.T) {
	s := newStore(t, map[string]string{"SAME": "1", "DIFF": "old", "GONE": "g"}, nil)
	tr := store.NewTracker(s)
	gone, _ := s.Find("GONE", types.ScopeUser)
	require.NoError(t, tr.Remove(gone))

	bundle := &Bundle{User: []Pair{{"SAME", "1"}, {"DIFF", "new"}, {"GONE", "g"}, {"FRESH", "f"}}}
	p, err := Diff(s, bundle)
	require.NoError(t, err)

	assert.Equal(t, []string{"FRESH"}, p.Names(ChangeNew))
	assert.Equal(t, []string{"DIFF", "GONE"}, p.Names(ChangeUpdated))
	assert.Equal(t, []string{"SAME"}, p.Names(ChangeUnchanged))
	assert.Equal(t, "old", p.Changes[1].Current)

	// Diff never mutates.
	assert.False(t, s.Contains("FRESH", types.ScopeUser))
}

func TestDiffRejectsInvalidPairs(t *testing.T) {
	s := newStore(t, nil, nil)

	_, err := Diff(s, &Bundle{User: []Pair{{"A=B", "1"}}})
	assert.True(t, errors.Is(err, types.ErrInvalidName))

	_, err = Diff(s, &Bundle{Machine: []Pair{{"A", "  "}}})
	assert.True(t, errors.Is(err, types.ErrInvalidValue))
}

func TestApply(t *testing.T) {
	s := newStore(t, map[string]string{"SAME": "1", "DIFF": "old", "GONE": "g", "BACK": "b"}, nil)
	tr := store.NewTracker(s)
	for _, name := range []string{"GONE", "BACK"} {
		e, _ := s.Find(name, types.ScopeUser)
		require.NoError(t, tr.Remove(e))
	}

	bundle := &Bundle{
		User:    []Pair{{"SAME", "1"}, {"DIFF", "new"}, {"GONE", "changed"}, {"BACK", "b"}},
		Machine: []Pair{{"M", "m"}},
	}
	p, err := Apply(tr, bundle)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Count(ChangeNew)+p.Count(ChangeUnchanged))

	same, _ := s.Find("SAME", types.ScopeUser)
	assert.Equal(t, types.Unchanged, same.State)

	diff, _ := s.Find("DIFF", types.ScopeUser)
	assert.Equal(t, types.Modified, diff.State)
	assert.Equal(t, "new", diff.Value)

	gone, _ := s.Find("GONE", types.ScopeUser)
	assert.Equal(t, types.Modified, gone.State)
	assert.Equal(t, "changed", gone.Value)

	back, _ := s.Find("BACK", types.ScopeUser)
	assert.Equal(t, types.Unchanged, back.State)

	m, ok := s.Find("M", types.ScopeMachine)
	require.True(t, ok)
	assert.Equal(t, types.Added, m.State)
}

func TestApplyNothingStagedOnInvalidInput(t *testing.T) {
	s := newStore(t, nil, nil)
	tr := store.NewTracker(s)

	_, err := Apply(tr, &Bundle{User: []Pair{{"OK", "1"}, {"", "2"}}})
	require.Error(t, err)
	assert.False(t, s.HasPendingChanges())
}
