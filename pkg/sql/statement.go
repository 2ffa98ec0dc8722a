// Package sql holds the statement checks applied to generated queries before
// they reach a store, and the identifier rules shared with ingestion.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyStatement indicates there was nothing left to run after normalization.
	ErrEmptyStatement = errors.New("statement is empty")
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized statement, the string literals it
// carries, and any validation error.
type ValidationResult struct {
	NormalizedSQL string
	Literals      []string
	Error         error
}

// ValidateAndNormalize trims the statement, drops every trailing terminator
// (a doubled ";;" is common in generated text) and rejects anything that still
// holds a statement separator outside literals, identifiers or comments.
func ValidateAndNormalize(statement string) ValidationResult {
	normalized := stripTrailingTerminators(statement)
	if normalized == "" {
		return ValidationResult{Error: ErrEmptyStatement}
	}

	scan := scanStatement(normalized)
	if scan.separators > 0 {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized, Literals: scan.literals}
}

// ExtractStringLiterals returns the unescaped contents of every single-quoted
// literal in the statement, in order of appearance.
func ExtractStringLiterals(statement string) []string {
	return scanStatement(statement).literals
}

// MaskQuoted returns the statement with string literals, quoted identifiers
// and comments replaced by spaces, so keyword checks only see SQL code.
func MaskQuoted(statement string) string {
	return scanStatement(statement).code
}

type statementScan struct {
	separators int
	literals   []string
	code       string
}

// scanStatement walks the statement once, tracking quote and comment state.
// Single quotes escape as '' or \'. Double quotes, backticks and brackets
// delimit identifiers and are skipped.
func scanStatement(statement string) statementScan {
	const (
		stateNormal = iota
		stateSingleQuote
		stateIdentifier
		stateLineComment
		stateBlockComment
	)

	var (
		result  statementScan
		literal strings.Builder
		code    strings.Builder
		closer  rune
	)

	runes := []rune(statement)
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		if state != stateNormal {
			code.WriteByte(' ')
		}

		switch state {
		case stateNormal:
			switch {
			case c == ';':
				result.separators++
				code.WriteRune(c)
			case c == '\'':
				state = stateSingleQuote
				literal.Reset()
			case c == '"' || c == '`':
				state, closer = stateIdentifier, c
			case c == '[':
				state, closer = stateIdentifier, ']'
			case c == '-' && next == '-':
				state = stateLineComment
				i++
			case c == '/' && next == '*':
				state = stateBlockComment
				i++
			default:
				code.WriteRune(c)
			}
			if state != stateNormal {
				code.WriteByte(' ')
			}
		case stateSingleQuote:
			switch {
			case c == '\\' && next == '\'':
				literal.WriteRune('\'')
				i++
			case c == '\'' && next == '\'':
				literal.WriteRune('\'')
				i++
			case c == '\'':
				result.literals = append(result.literals, literal.String())
				state = stateNormal
			default:
				literal.WriteRune(c)
			}
		case stateIdentifier:
			if c == closer {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	result.code = code.String()
	return result
}

// stripTrailingTerminators removes every trailing semicolon and the whitespace
// around them.
func stripTrailingTerminators(statement string) string {
	statement = strings.TrimSpace(statement)
	for strings.HasSuffix(statement, ";") {
		statement = strings.TrimSpace(strings.TrimSuffix(statement, ";"))
	}
	return statement
}
