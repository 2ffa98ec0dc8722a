package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	sqlutil "github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// SQLStatementType represents the type of SQL statement.
type SQLStatementType string

const (
	SQLTypeSelect  SQLStatementType = "SELECT"
	SQLTypeInsert  SQLStatementType = "INSERT"
	SQLTypeUpdate  SQLStatementType = "UPDATE"
	SQLTypeDelete  SQLStatementType = "DELETE"
	SQLTypeCall    SQLStatementType = "CALL"
	SQLTypeDDL     SQLStatementType = "DDL"     // CREATE, ALTER, DROP, TRUNCATE
	SQLTypeUnknown SQLStatementType = "UNKNOWN" // Unrecognized or blocked statement types
)

var (
	// modifyingCTEPattern matches CTEs that contain data-modifying operations.
	// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
	modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

	// selectIntoPattern matches SELECT ... INTO, which creates a table in
	// Postgres and SQL Server and writes a file in MySQL.
	selectIntoPattern = regexp.MustCompile(`(?i)\bINTO\b`)
)

// DetectSQLType determines the type of SQL statement based on the first keyword.
// Returns SQLTypeDDL for DDL statements (CREATE, ALTER, DROP, TRUNCATE) which are blocked.
// Returns SQLTypeUnknown for unrecognized statements or data-modifying CTEs.
//
// Keyword checks run on the masked statement, so INTO or DELETE inside a
// string literal, a quoted identifier or a comment does not count.
func DetectSQLType(sql string) SQLStatementType {
	sql = sqlutil.MaskQuoted(sql)
	// Normalize: trim whitespace and convert to uppercase for prefix matching
	normalized := strings.ToUpper(strings.TrimSpace(sql))

	switch {
	case strings.HasPrefix(normalized, "SELECT"):
		if selectIntoPattern.MatchString(sql) {
			return SQLTypeUnknown
		}
		return SQLTypeSelect

	case strings.HasPrefix(normalized, "WITH"):
		// CTEs starting with WITH could be:
		// 1. Pure SELECT: WITH cte AS (SELECT ...) SELECT * FROM cte
		// 2. Data-modifying CTE: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
		// Block data-modifying CTEs for safety
		if containsModifyingCTE(sql) || selectIntoPattern.MatchString(sql) {
			return SQLTypeUnknown
		}
		return SQLTypeSelect

	case strings.HasPrefix(normalized, "INSERT"):
		return SQLTypeInsert

	case strings.HasPrefix(normalized, "UPDATE"):
		return SQLTypeUpdate

	case strings.HasPrefix(normalized, "DELETE"):
		return SQLTypeDelete

	case strings.HasPrefix(normalized, "CALL"):
		return SQLTypeCall

	// DDL statements - blocked entirely
	case strings.HasPrefix(normalized, "CREATE"),
		strings.HasPrefix(normalized, "ALTER"),
		strings.HasPrefix(normalized, "DROP"),
		strings.HasPrefix(normalized, "TRUNCATE"):
		return SQLTypeDDL

	// Transaction control and store-specific commands (PRAGMA, ATTACH, ...) - blocked
	case strings.HasPrefix(normalized, "BEGIN"),
		strings.HasPrefix(normalized, "COMMIT"),
		strings.HasPrefix(normalized, "ROLLBACK"),
		strings.HasPrefix(normalized, "SAVEPOINT"):
		return SQLTypeUnknown

	default:
		return SQLTypeUnknown
	}
}

// containsModifyingCTE checks if a WITH clause contains data-modifying operations.
// This detects CTEs like: WITH deleted AS (DELETE FROM t RETURNING *) SELECT * FROM deleted
func containsModifyingCTE(sql string) bool {
	return modifyingCTEPattern.MatchString(sql)
}

// SQLTypeError represents an error related to SQL statement type validation.
type SQLTypeError struct {
	Type    SQLStatementType
	Message string
}

func (e *SQLTypeError) Error() string {
	return e.Message
}

// Unwrap lets callers match apperrors.ErrNotReadOnly.
func (e *SQLTypeError) Unwrap() error {
	return apperrors.ErrNotReadOnly
}

// ReadOnlyStatement is a generated statement that passed ValidateReadOnly.
type ReadOnlyStatement struct {
	SQL      string   // Trimmed, trailing terminators removed
	Literals []string // Unescaped string literals, in order
}

// ValidateReadOnly accepts exactly one SELECT statement (a WITH whose CTEs
// only read counts as one) and rejects everything else.
func ValidateReadOnly(statement string) (*ReadOnlyStatement, error) {
	result := sqlutil.ValidateAndNormalize(statement)
	if result.Error != nil {
		return nil, result.Error
	}

	sqlType := DetectSQLType(result.NormalizedSQL)
	if sqlType != SQLTypeSelect {
		return nil, &SQLTypeError{
			Type:    sqlType,
			Message: fmt.Sprintf("only read-only SELECT statements are allowed, got %s", sqlType),
		}
	}

	return &ReadOnlyStatement{SQL: result.NormalizedSQL, Literals: result.Literals}, nil
}
