package mssql

import (
	"fmt"
	"strings"
)

// quoteName brackets an identifier the way QUOTENAME() does, escaping ] as ]].
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// buildFullyQualifiedName builds a fully qualified table name: [schema].[table]
func buildFullyQualifiedName(schema, table string) string {
	return fmt.Sprintf("%s.%s", quoteName(schema), quoteName(table))
}
