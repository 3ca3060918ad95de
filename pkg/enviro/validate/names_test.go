package validate

import (
	"errors"
	"testing"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

func TestCheckName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "PATH"},
		{name: "lowercase with digits", input: "go_path2"},
		{name: "parens allowed", input: "ProgramFiles(x86)"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "equals sign", input: "A=B", wantErr: true},
		{name: "nul byte", input: "A\x00B", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckName(types.ScopeUser, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidName) {
				t.Errorf("CheckName(%q) error = %v, want ErrInvalidName", tt.input, err)
			}
		})
	}
}

func TestCheckValue(t *testing.T) {
	if err := CheckValue(types.ScopeUser, "A", "x"); err != nil {
		t.Errorf("CheckValue(x) error = %v", err)
	}
	for _, v := range []string{"", " ", "\t"} {
		if err := CheckValue(types.ScopeUser, "A", v); !errors.Is(err, types.ErrInvalidValue) {
			t.Errorf("CheckValue(%q) error = %v, want ErrInvalidValue", v, err)
		}
	}
}
