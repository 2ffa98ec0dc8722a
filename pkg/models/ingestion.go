package models

import "time"

// IngestedTable reports how one workbook sheet landed in the store.
type IngestedTable struct {
	Sheet    string             `json:"sheet"`
	Table    string             `json:"table"`
	RowCount int                `json:"row_count"`
	Columns  []ColumnDescriptor `json:"columns"`
}

// IngestionSummary is the outcome of loading a workbook.
type IngestionSummary struct {
	Source     string          `json:"source"`
	Tables     []IngestedTable `json:"tables"`
	Skipped    []string        `json:"skipped,omitempty"` // Sheets with no data after dropping empty rows and columns
	TotalRows  int             `json:"total_rows"`
	IngestedAt time.Time       `json:"ingested_at"`
}
