package sql

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestValidateAndNormalize_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple select without semicolon",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "simple select with trailing semicolon",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "doubled terminator",
			input:    "SELECT SUM(units) FROM sales;;",
			expected: "SELECT SUM(units) FROM sales",
		},
		{
			name:     "terminators separated by whitespace",
			input:    "SELECT 1 ; ;  ",
			expected: "SELECT 1",
		},
		{
			name:     "semicolon inside single quoted string",
			input:    "SELECT * FROM sales WHERE product = 'a;b';",
			expected: "SELECT * FROM sales WHERE product = 'a;b'",
		},
		{
			name:     "semicolon inside double quoted identifier",
			input:    `SELECT * FROM "table;name"`,
			expected: `SELECT * FROM "table;name"`,
		},
		{
			name:     "semicolon inside bracket identifier",
			input:    "SELECT [a;b] FROM sales",
			expected: "SELECT [a;b] FROM sales",
		},
		{
			name:     "semicolon inside backtick identifier",
			input:    "SELECT `a;b` FROM sales",
			expected: "SELECT `a;b` FROM sales",
		},
		{
			name:     "semicolon inside block comment",
			input:    "SELECT 1 /* ; */ FROM sales",
			expected: "SELECT 1 /* ; */ FROM sales",
		},
		{
			name:     "semicolon inside line comment",
			input:    "SELECT 1 -- ; trailing note\nFROM sales",
			expected: "SELECT 1 -- ; trailing note\nFROM sales",
		},
		{
			name:     "SQL standard escaped single quote",
			input:    "SELECT * FROM vendors WHERE name = 'O''Brien;'",
			expected: "SELECT * FROM vendors WHERE name = 'O''Brien;'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if result.Error != nil {
				t.Errorf("unexpected error: %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("got %q, want %q", result.NormalizedSQL, tt.expected)
			}
		})
	}
}

func TestValidateAndNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty string", input: "", wantErr: ErrEmptyStatement},
		{name: "terminators only", input: " ;; ", wantErr: ErrEmptyStatement},
		{name: "two selects", input: "SELECT 1; SELECT 2", wantErr: ErrMultipleStatements},
		{name: "no space after separator", input: "SELECT 1;SELECT 2;", wantErr: ErrMultipleStatements},
		{name: "drop table attempt", input: "SELECT 1; DROP TABLE sales", wantErr: ErrMultipleStatements},
		{name: "separator after string", input: "SELECT 'a;b'; DELETE FROM sales", wantErr: ErrMultipleStatements},
		{name: "separator after comment", input: "SELECT 1 /* x */; SELECT 2", wantErr: ErrMultipleStatements},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("got error %v, want %v", result.Error, tt.wantErr)
			}
			if result.NormalizedSQL != "" {
				t.Errorf("expected empty NormalizedSQL, got %q", result.NormalizedSQL)
			}
		})
	}
}

func TestExtractStringLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "none", input: "SELECT week FROM sales", expected: nil},
		{name: "single", input: "SELECT * FROM sales WHERE product = 'widget'", expected: []string{"widget"}},
		{name: "doubled quote", input: "SELECT 'it''s'", expected: []string{"it's"}},
		{name: "backslash quote", input: `SELECT 'it\'s'`, expected: []string{"it's"}},
		{name: "empty literal", input: "SELECT ''", expected: []string{""}},
		{name: "ignores identifiers", input: `SELECT "it's" FROM t WHERE a = 'x'`, expected: []string{"x"}},
		{name: "ignores comments", input: "SELECT 1 -- 'note'\n, 'y'", expected: []string{"y"}},
		{name: "several", input: "SELECT * FROM t WHERE a IN ('x', 'y') AND b = 'z'", expected: []string{"x", "y", "z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractStringLiterals(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMaskQuoted(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no quotes", input: "SELECT week FROM sales", want: "SELECT week FROM sales"},
		{name: "literal", input: "SELECT 'Into' FROM t", want: "SELECT " + strings.Repeat(" ", 6) + " FROM t"},
		{name: "double quoted identifier", input: `SELECT "into" FROM t`, want: "SELECT " + strings.Repeat(" ", 6) + " FROM t"},
		{name: "bracketed identifier", input: "SELECT [into] FROM t", want: "SELECT " + strings.Repeat(" ", 6) + " FROM t"},
		{name: "separator kept", input: "SELECT 1; SELECT 2", want: "SELECT 1; SELECT 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskQuoted(tt.input); got != tt.want {
				t.Errorf("MaskQuoted(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	masked := MaskQuoted("SELECT units -- into archive\nFROM sales /* into */ WHERE a = 'it''s into'")
	if strings.Contains(strings.ToLower(masked), "into") {
		t.Errorf("comment or literal text survived masking: %q", masked)
	}
	for _, keep := range []string{"SELECT units", "FROM sales", "WHERE a ="} {
		if !strings.Contains(masked, keep) {
			t.Errorf("masked statement lost %q: %q", keep, masked)
		}
	}
}
