package models

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var (
	// ErrDuplicateTable is returned when two tables normalize to the same name.
	ErrDuplicateTable = errors.New("duplicate table name in snapshot")
	// ErrDuplicateColumn is returned when a table lists the same column twice.
	ErrDuplicateColumn = errors.New("duplicate column name in table")
	// ErrInvalidIdentifier is returned for names that are not letter-leading word identifiers.
	ErrInvalidIdentifier = errors.New("identifier is not word-safe")
)

// IsValidIdentifier reports whether name can be used unquoted in every
// supported dialect.
func IsValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ColumnDescriptor describes one column of a table as the model sees it.
type ColumnDescriptor struct {
	Name         string `json:"name"`          // Normalized identifier used in queries
	OriginalName string `json:"original_name"` // Header as it appeared in the source workbook
	DataType     string `json:"data_type"`     // Declared storage type
}

// EntityColumn is a column whose name suggests it holds entity labels
// (products, items, SKUs, names), with a bounded set of its distinct values.
type EntityColumn struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// TableDescriptor is the catalog view of a single table.
type TableDescriptor struct {
	Name          string             `json:"name"`
	DisplayName   string             `json:"display_name"` // Sheet name for ingested tables, otherwise Name
	Columns       []ColumnDescriptor `json:"columns"`
	RowCount      int64              `json:"row_count"`
	SampleRows    [][]any            `json:"sample_rows"`
	EntityColumns []EntityColumn     `json:"entity_columns,omitempty"`
}

// ColumnNames returns the normalized column names in ordinal order.
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaSnapshot is an immutable description of every table in the store.
// It is built wholesale by the catalog and replaced, never edited.
type SchemaSnapshot struct {
	tables     []TableDescriptor
	index      map[string]int
	generation uint64
	builtAt    time.Time
}

// NewSchemaSnapshot validates the descriptors and freezes them into a
// snapshot ordered by table name. Table names must be unique
// case-insensitively, and every table and column name must be word-safe.
func NewSchemaSnapshot(tables []TableDescriptor, generation uint64, builtAt time.Time) (*SchemaSnapshot, error) {
	ordered := make([]TableDescriptor, len(tables))
	copy(ordered, tables)
	sort.Slice(ordered, func(i, j int) bool {
		return strings.ToLower(ordered[i].Name) < strings.ToLower(ordered[j].Name)
	})

	index := make(map[string]int, len(ordered))
	for i, table := range ordered {
		if !IsValidIdentifier(table.Name) {
			return nil, fmt.Errorf("table %q: %w", table.Name, ErrInvalidIdentifier)
		}
		key := strings.ToLower(table.Name)
		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("table %q: %w", table.Name, ErrDuplicateTable)
		}
		index[key] = i

		seen := make(map[string]bool, len(table.Columns))
		for _, col := range table.Columns {
			if !IsValidIdentifier(col.Name) {
				return nil, fmt.Errorf("column %s.%s: %w", table.Name, col.Name, ErrInvalidIdentifier)
			}
			colKey := strings.ToLower(col.Name)
			if seen[colKey] {
				return nil, fmt.Errorf("column %s.%s: %w", table.Name, col.Name, ErrDuplicateColumn)
			}
			seen[colKey] = true
		}
		if ordered[i].DisplayName == "" {
			ordered[i].DisplayName = table.Name
		}
	}

	return &SchemaSnapshot{
		tables:     ordered,
		index:      index,
		generation: generation,
		builtAt:    builtAt,
	}, nil
}

// Tables returns the descriptors ordered by name. Callers must not modify
// the returned values.
func (s *SchemaSnapshot) Tables() []TableDescriptor {
	return s.tables
}

// Table looks up a table by name, ignoring case.
func (s *SchemaSnapshot) Table(name string) (TableDescriptor, bool) {
	i, ok := s.index[strings.ToLower(name)]
	if !ok {
		return TableDescriptor{}, false
	}
	return s.tables[i], true
}

// TableNames returns the table names in snapshot order.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.Name
	}
	return names
}

// TableCount returns the number of tables.
func (s *SchemaSnapshot) TableCount() int {
	return len(s.tables)
}

// TotalRows sums row counts across all tables.
func (s *SchemaSnapshot) TotalRows() int64 {
	var total int64
	for _, t := range s.tables {
		total += t.RowCount
	}
	return total
}

// Digest returns a table to column-name map for diagnostics.
func (s *SchemaSnapshot) Digest() map[string][]string {
	digest := make(map[string][]string, len(s.tables))
	for _, t := range s.tables {
		digest[t.Name] = t.ColumnNames()
	}
	return digest
}

// Generation is the provider generation the snapshot was built for.
func (s *SchemaSnapshot) Generation() uint64 {
	return s.generation
}

// BuiltAt is when the catalog finished building the snapshot.
func (s *SchemaSnapshot) BuiltAt() time.Time {
	return s.builtAt
}
