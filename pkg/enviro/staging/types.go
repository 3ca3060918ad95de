package staging

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// FormatVersion is incremented when the record layout changes. Records
// written by another version are ignored.
const FormatVersion = 1

// KeySeparator separates key components.
const KeySeparator = '\x00'

var (
	metaKey     = []byte("meta")
	entryPrefix = []byte("entry" + string(KeySeparator))
)

// Record is one staged entry.
type Record struct {
	Name     string
	Value    string
	Baseline string
	State    types.EditState
}

// Meta describes a saved session.
type Meta struct {
	Version  int
	SavedAt  time.Time
	Scopes   []types.Scope
	Pending  int
	FoldCase bool
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// entryKey builds entry\x00<scope>\x00<position>. The zero-padded
// position keeps badger's key order equal to collection order.
func entryKey(scope types.Scope, pos int) []byte {
	return append(scopePrefix(scope), fmt.Sprintf("%08d", pos)...)
}

func scopePrefix(scope types.Scope) []byte {
	key := append([]byte{}, entryPrefix...)
	key = append(key, scope.String()...)
	return append(key, KeySeparator)
}
