package validate

import "strings"

// LookupFunc resolves a variable name to its value.
type LookupFunc func(name string) (string, bool)

// Expand substitutes %NAME% placeholders using lookup. Unknown names and
// unterminated placeholders are left verbatim, matching the Windows
// ExpandEnvironmentStrings behaviour.
func Expand(value string, lookup LookupFunc) string {
	if lookup == nil || !strings.Contains(value, "%") {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))

	rest := value
	for {
		start := strings.IndexByte(rest, '%')
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start+1:], '%')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start + 1

		name := rest[start+1 : end]
		b.WriteString(rest[:start])
		if resolved, ok := lookup(name); ok && name != "" {
			b.WriteString(resolved)
			rest = rest[end+1:]
			continue
		}

		// Keep the opening '%' literal and retry from the closing one,
		// which may open the next placeholder.
		b.WriteString(rest[start:end])
		rest = rest[end:]
	}

	return b.String()
}
