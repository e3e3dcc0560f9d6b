package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "web-1", false},
		{"valid with underscore", "db_primary", false},
		{"valid with dot", "svc.internal", false},
		{"valid with space", "load balancer", false},
		{"valid unicode", "kørsel", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"carriage return", "foo\rbar", true},
		{"tab", "foo\tbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && GetCode(err) != ErrCodeInvalidDefinition {
				t.Errorf("ValidateNodeID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidDefinition)
			}
		})
	}
}

func TestValidateNodeIDs(t *testing.T) {
	if err := ValidateNodeIDs([]string{"a", "b", "c"}); err != nil {
		t.Errorf("valid IDs rejected: %v", err)
	}
	if err := ValidateNodeIDs(nil); err != nil {
		t.Errorf("empty list rejected: %v", err)
	}
	if err := ValidateNodeIDs([]string{"a", ""}); err == nil {
		t.Error("offending ID not reported")
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidDefinition,
		ErrCodeInvalidStructure,
		ErrCodeInvalidFormat,
		ErrCodeInvalidEasing,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
