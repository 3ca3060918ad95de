package validate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestExpand(t *testing.T) {
	lookup := lookupMap(map[string]string{
		"HOME": "/home/me",
		"Y":    "why",
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no placeholders", input: "plain", want: "plain"},
		{name: "single", input: "%HOME%/bin", want: "/home/me/bin"},
		{name: "adjacent", input: "%HOME%%Y%", want: "/home/mewhy"},
		{name: "unknown left verbatim", input: "%NOPE%/x", want: "%NOPE%/x"},
		{name: "unknown then known", input: "%X% %Y%", want: "%X% why"},
		{name: "unterminated", input: "50% off", want: "50% off"},
		{name: "empty name", input: "%%", want: "%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.input, lookup))
		})
	}
}

func TestIsRooted(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/usr/bin", true},
		{`C:\Windows`, true},
		{"c:/tools", true},
		{`\share`, true},
		{"relative/dir", false},
		{"1.2.3", false},
		{"--flag", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRooted(tt.input))
		})
	}
}

func TestIsCorrupted(t *testing.T) {
	dir := t.TempDir()
	exists := filepath.Join(dir, "exists")
	require.NoError(t, os.Mkdir(exists, 0o755))
	file := filepath.Join(dir, "tool.exe")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	missing := filepath.Join(dir, "does_not_exist")

	v := New(
		WithSeparator(";"),
		WithLookup(lookupMap(map[string]string{"KNOWN_VAR": exists, "GONE": missing})),
	)

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "existing directory", value: exists, want: false},
		{name: "existing file", value: file, want: false},
		{name: "missing path", value: missing, want: true},
		{name: "list with missing segment", value: exists + ";" + missing, want: true},
		{name: "list all present", value: exists + ";" + file, want: false},
		{name: "plain text", value: "plain text", want: false},
		{name: "version number", value: "1.2.3", want: false},
		{name: "relative segments ignored", value: "bin;lib", want: false},
		{name: "blank segments ignored", value: exists + ";;  ;", want: false},
		{name: "padded segment trimmed", value: "  " + exists + "  ", want: false},
		{name: "known placeholder expanded", value: "%KNOWN_VAR%", want: false},
		{name: "placeholder to missing", value: "%GONE%", want: true},
		{name: "unknown placeholder not rooted", value: "%NOPE%", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.IsCorrupted(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultValidator(t *testing.T) {
	dir := t.TempDir()
	exists := filepath.Join(dir, "exists")
	require.NoError(t, os.Mkdir(exists, 0o755))
	missing := filepath.Join(dir, "missing")

	v := New()

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "proxy url", value: "http://proxy.example:3128", want: false},
		{name: "https url", value: "https://example.com/api", want: false},
		{name: "file url", value: "file://" + missing, want: false},
		{name: "host and port", value: "localhost:5432", want: false},
		{name: "semicolon list present", value: exists + ";" + exists, want: false},
		{name: "semicolon list missing", value: exists + ";" + missing, want: true},
		{name: "url segment in list", value: exists + ";http://example.com/x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.IsCorrupted(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColonLists(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("temp paths carry a drive letter")
	}
	dir := t.TempDir()
	exists := filepath.Join(dir, "exists")
	require.NoError(t, os.Mkdir(exists, 0o755))
	missing := filepath.Join(dir, "missing")

	v := New(WithColonLists(true))
	broken, err := v.BrokenSegments(exists + ":" + missing)
	require.NoError(t, err)
	assert.Equal(t, []string{missing}, broken)

	broken, err = New().BrokenSegments(exists + ":" + exists)
	require.NoError(t, err)
	assert.Empty(t, broken)

	assert.Equal(t, []string{"http://proxy.example:3128"}, v.Segments("http://proxy.example:3128"), "mixed pieces stay whole")
	assert.Equal(t, []string{"/usr/bin", "/bin"}, v.Segments("/usr/bin:/bin"))
	assert.Equal(t, []string{"/usr/bin:/bin"}, New(WithColonLists(false)).Segments("/usr/bin:/bin"))
}

func TestBrokenSegments(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.Mkdir(a, 0o755))

	v := New(WithSeparator(";"))
	broken, err := v.BrokenSegments(a + ";" + b + ";" + b)
	require.NoError(t, err)
	assert.Equal(t, []string{b, b}, broken)
}

func TestDisabledValidator(t *testing.T) {
	v := New(WithEnabled(false))
	got, err := v.IsCorrupted(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.False(t, got)
	assert.False(t, v.Enabled())
}

func TestProbeErrorPolicy(t *testing.T) {
	errDenied := errors.New("access denied")
	stat := func(string) (fs.FileInfo, error) { return nil, errDenied }
	value := "/locked/dir"

	t.Run("corrupted", func(t *testing.T) {
		got, err := New(WithStat(stat), WithPolicy(PolicyCorrupted)).IsCorrupted(value)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("clean", func(t *testing.T) {
		got, err := New(WithStat(stat), WithPolicy(PolicyClean)).IsCorrupted(value)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("propagate", func(t *testing.T) {
		got, err := New(WithStat(stat), WithPolicy(PolicyPropagate)).IsCorrupted(value)
		assert.ErrorIs(t, err, errDenied)
		assert.False(t, got)
	})
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []ErrorPolicy{PolicyCorrupted, PolicyClean, PolicyPropagate} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCorrupted, got)

	_, err = ParsePolicy("maybe")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
