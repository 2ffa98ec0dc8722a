package models

import "fmt"

// QueryResult is a successful execution: ordered columns, ordered row tuples
// and the statement that actually ran.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"` // Rows stopped at the configured cap
	Statement string   `json:"statement"`
}

// IsEmpty reports whether the statement returned no rows.
func (r *QueryResult) IsEmpty() bool {
	return r == nil || r.RowCount == 0
}

// FailureKind classifies why a statement did not produce a result.
type FailureKind string

const (
	// FailureRejected means the read-only guard refused the statement.
	FailureRejected FailureKind = "rejected"
	// FailureUnknownIdentifier means the store did not recognize a table or column.
	FailureUnknownIdentifier FailureKind = "unknown_identifier"
	// FailureExecution covers syntax errors and any other store-side error.
	FailureExecution FailureKind = "execution"
	// FailureStoreUnavailable means no connection could be checked out.
	FailureStoreUnavailable FailureKind = "store_unavailable"
)

// QueryFailure describes a statement that did not produce a result. Message
// holds raw store text and is only shown on the admin debug path.
type QueryFailure struct {
	Kind         FailureKind         `json:"kind"`
	Statement    string              `json:"statement"`
	Message      string              `json:"message"`
	SchemaDigest map[string][]string `json:"schema_digest,omitempty"`
}

func (f *QueryFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}
