// Package validate checks variable names and values. It also decides
// whether a value is a corrupted filesystem reference.
package validate

import (
	"strings"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

// CheckName rejects blank names and names containing '='.
func CheckName(scope types.Scope, name string) error {
	if strings.TrimSpace(name) == "" {
		return types.NewValidationError(types.ErrInvalidName, scope, name, "name is blank")
	}
	if strings.ContainsRune(name, '=') {
		return types.NewValidationError(types.ErrInvalidName, scope, name, "name contains '='")
	}
	if strings.ContainsRune(name, 0) {
		return types.NewValidationError(types.ErrInvalidName, scope, name, "name contains NUL")
	}
	return nil
}

// CheckValue rejects blank values. The OS treats an empty value as an
// unset, so removal must go through the delete path instead.
func CheckValue(scope types.Scope, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return types.NewValidationError(types.ErrInvalidValue, scope, name, "value is blank")
	}
	return nil
}
