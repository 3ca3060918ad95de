package output

import (
	"bytes"
	"encoding/json"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Entries  []EntryInfo   `json:"entries,omitempty" yaml:"entries,omitempty"`
	Drift    []DriftInfo   `json:"drift,omitempty" yaml:"drift,omitempty"`
	Commit   *CommitInfo   `json:"commit,omitempty" yaml:"commit,omitempty"`
	History  []HistoryInfo `json:"history,omitempty" yaml:"history,omitempty"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// buildDocument keeps only the section selected by r.Kind. Listings are
// never nil so an empty result encodes as [] rather than being omitted.
func buildDocument(r *Result) document {
	doc := document{Warnings: r.Warnings}
	switch r.Kind {
	case KindEntries:
		doc.Entries = nonNil(r.Entries)
	case KindStatus:
		doc.Entries = nonNil(r.Entries)
		doc.Drift = r.Drift
	case KindCommit:
		doc.Commit = r.Commit
	case KindHistory:
		doc.History = nonNil(r.History)
	}
	return doc
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
