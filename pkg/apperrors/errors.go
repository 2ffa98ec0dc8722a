package apperrors

import "errors"

var (
	ErrNotWritable     = errors.New("store does not accept ingestion")
	ErrNotReadOnly     = errors.New("statement is not a read-only query")
	ErrIngestionFailed = errors.New("workbook ingestion failed")
)
