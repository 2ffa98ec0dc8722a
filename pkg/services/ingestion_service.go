package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// Storage types inferred for ingested columns.
const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
)

// groupedNumberPattern matches numbers displayed with thousands separators.
var groupedNumberPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// IngestionService loads workbooks into the store.
type IngestionService interface {
	// IngestWorkbook replaces one table per non-empty sheet and invalidates
	// the schema snapshot. source names the workbook in logs and the summary.
	IngestWorkbook(ctx context.Context, r io.Reader, source string) (*models.IngestionSummary, error)

	// IngestFile is IngestWorkbook for a file on disk.
	IngestFile(ctx context.Context, path string) (*models.IngestionSummary, error)
}

type ingestionService struct {
	store          StoreRef
	adapterFactory datasource.DatasourceAdapterFactory
	provider       *SnapshotProvider
	auditor        *audit.SecurityAuditor
	logger         *zap.Logger
}

// NewIngestionService creates an ingestion service for store.
func NewIngestionService(
	store StoreRef,
	adapterFactory datasource.DatasourceAdapterFactory,
	provider *SnapshotProvider,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NewSecurityAuditor(logger)
	}
	return &ingestionService{
		store:          store,
		adapterFactory: adapterFactory,
		provider:       provider,
		auditor:        auditor,
		logger:         logger.Named("ingestion"),
	}
}

func (s *ingestionService) IngestFile(ctx context.Context, path string) (*models.IngestionSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return s.IngestWorkbook(ctx, f, filepath.Base(path))
}

func (s *ingestionService) IngestWorkbook(ctx context.Context, r io.Reader, source string) (*models.IngestionSummary, error) {
	tables, skipped, err := ReadWorkbook(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrIngestionFailed, err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets with data", apperrors.ErrIngestionFailed)
	}

	if datasource.GetTableWriterFactory(s.store.Type) == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotWritable, s.store.Type)
	}

	writer, err := s.adapterFactory.NewTableWriter(ctx, s.store.Type, s.store.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: open store: %w", apperrors.ErrIngestionFailed, err)
	}
	defer writer.Close()

	summary := &models.IngestionSummary{Source: source, Skipped: skipped}
	names := make([]string, 0, len(tables))

	// Tables written before a failure stay written, so the snapshot is
	// invalidated on every path that reached the store.
	defer func() {
		if len(names) > 0 {
			s.provider.Invalidate("ingestion of " + source)
		}
	}()

	for _, table := range tables {
		if err := writer.ReplaceTable(ctx, table); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrIngestionFailed, err)
		}
		names = append(names, table.Name)

		ingested := models.IngestedTable{Sheet: table.SourceName, Table: table.Name, RowCount: len(table.Rows)}
		for _, c := range table.Columns {
			ingested.Columns = append(ingested.Columns, models.ColumnDescriptor{
				Name:         c.ColumnName,
				OriginalName: c.OriginalName,
				DataType:     c.DataType,
			})
		}
		summary.Tables = append(summary.Tables, ingested)
		summary.TotalRows += len(table.Rows)
	}
	summary.IngestedAt = time.Now().UTC()

	s.auditor.LogWorkbookIngested(ctx, source, names)
	s.logger.Info("Ingestion complete",
		zap.String("source", source),
		zap.Int("tables", len(summary.Tables)),
		zap.Int("rows", summary.TotalRows),
		zap.Strings("skipped", skipped))

	return summary, nil
}

// ReadWorkbook converts every sheet of an xlsx workbook into table data.
// Fully empty rows and columns are dropped, the first remaining row is the
// header, names are normalized and made unique, and each column gets the
// narrowest type all its values parse as. Sheets with no data rows are
// returned in skipped.
func ReadWorkbook(r io.Reader) (tables []*datasource.TableData, skipped []string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	tableNames := sqlutil.UniqueIdentifiers(sheets)

	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		table := sheetToTable(rows)
		if table == nil {
			skipped = append(skipped, sheet)
			continue
		}
		table.Name = tableNames[i]
		table.SourceName = sheet
		tables = append(tables, table)
	}
	return tables, skipped, nil
}

// sheetToTable returns nil when the sheet has a header but no data.
func sheetToTable(rows [][]string) *datasource.TableData {
	grid := dropEmptyRows(rows)
	if len(grid) < 2 {
		return nil
	}

	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}

	// Keep columns with at least one data value; a header alone is not data.
	var keep []int
	for c := 0; c < width; c++ {
		for _, row := range grid[1:] {
			if strings.TrimSpace(cell(row, c)) != "" {
				keep = append(keep, c)
				break
			}
		}
	}
	if len(keep) == 0 {
		return nil
	}

	headers := make([]string, len(keep))
	for j, c := range keep {
		headers[j] = strings.TrimSpace(cell(grid[0], c))
	}
	names := sqlutil.UniqueIdentifiers(headers)

	data := &datasource.TableData{Columns: make([]datasource.ColumnMetadata, len(keep))}
	for j, c := range keep {
		values := make([]string, 0, len(grid)-1)
		for _, row := range grid[1:] {
			values = append(values, strings.TrimSpace(cell(row, c)))
		}
		original := headers[j]
		if original == "" {
			original = names[j]
		}
		data.Columns[j] = datasource.ColumnMetadata{
			ColumnName:      names[j],
			OriginalName:    original,
			DataType:        InferColumnType(values),
			IsNullable:      true,
			OrdinalPosition: j + 1,
		}
	}

	for _, row := range grid[1:] {
		converted := make([]any, len(keep))
		for j, c := range keep {
			converted[j] = ConvertCell(strings.TrimSpace(cell(row, c)), data.Columns[j].DataType)
		}
		data.Rows = append(data.Rows, converted)
	}
	return data
}

func dropEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func cell(row []string, c int) string {
	if c < len(row) {
		return row[c]
	}
	return ""
}

// InferColumnType returns INTEGER if every non-empty value is an integer,
// REAL if every one is a number, and TEXT otherwise. A column of empty
// values is TEXT.
func InferColumnType(values []string) string {
	sawValue, allInt, allNum := false, true, true
	for _, v := range values {
		if v == "" {
			continue
		}
		sawValue = true
		v = ungroup(v)
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allNum = false
			break
		}
	}
	switch {
	case !sawValue:
		return TypeText
	case allInt:
		return TypeInteger
	case allNum:
		return TypeReal
	default:
		return TypeText
	}
}

// ConvertCell parses v as the column type. Empty cells become NULL.
func ConvertCell(v, dataType string) any {
	if v == "" {
		return nil
	}
	switch dataType {
	case TypeInteger:
		if n, err := strconv.ParseInt(ungroup(v), 10, 64); err == nil {
			return n
		}
	case TypeReal:
		if f, err := strconv.ParseFloat(ungroup(v), 64); err == nil {
			return f
		}
	}
	return v
}

func ungroup(v string) string {
	if groupedNumberPattern.MatchString(v) {
		return strings.ReplaceAll(v, ",", "")
	}
	return v
}
