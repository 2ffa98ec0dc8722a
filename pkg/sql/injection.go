package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a string literal that libinjection flagged.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Position    int    // Zero-based index of the literal within the statement
	Value       string // The unescaped literal that was checked
}

// CheckLiteralForInjection runs libinjection over a single unescaped literal.
// Returns nil when the literal is clean.
func CheckLiteralForInjection(position int, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Position:    position,
		Value:       value,
	}
}

// CheckStatementLiterals checks every literal of a statement. A generated
// query that embeds a tautology or a second statement inside a quoted value is
// a sign the question text was crafted to steer the model.
func CheckStatementLiterals(literals []string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for i, literal := range literals {
		if result := CheckLiteralForInjection(i, literal); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// String renders the result for log fields.
func (r *InjectionCheckResult) String() string {
	return fmt.Sprintf("literal[%d] fingerprint=%s", r.Position, r.Fingerprint)
}
