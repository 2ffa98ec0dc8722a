package datasource

// TableMetadata describes a discovered table.
type TableMetadata struct {
	TableName  string `json:"table_name"`
	SourceName string `json:"source_name,omitempty"` // Sheet name recorded at ingestion, if any
	RowCount   int64  `json:"row_count"`
}

// ColumnMetadata describes a discovered column.
type ColumnMetadata struct {
	ColumnName      string `json:"column_name"`
	OriginalName    string `json:"original_name,omitempty"` // Header recorded at ingestion, if any
	DataType        string `json:"data_type"`
	IsNullable      bool   `json:"is_nullable"`
	OrdinalPosition int    `json:"ordinal_position"`
}
