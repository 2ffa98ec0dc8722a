package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesTable() TableDescriptor {
	return TableDescriptor{
		Name:        "sales",
		DisplayName: "Sales",
		Columns: []ColumnDescriptor{
			{Name: "product", OriginalName: "Product", DataType: "TEXT"},
			{Name: "week", OriginalName: "Week", DataType: "INTEGER"},
			{Name: "units", OriginalName: "Units", DataType: "INTEGER"},
		},
		RowCount: 2,
	}
}

func TestNewSchemaSnapshot_OrdersAndIndexes(t *testing.T) {
	vendors := TableDescriptor{
		Name:     "Vendors",
		Columns:  []ColumnDescriptor{{Name: "vendor", DataType: "TEXT"}},
		RowCount: 3,
	}

	snap, err := NewSchemaSnapshot([]TableDescriptor{vendors, salesTable()}, 7, time.Unix(100, 0))
	require.NoError(t, err)

	assert.Equal(t, []string{"sales", "Vendors"}, snap.TableNames())
	assert.Equal(t, 2, snap.TableCount())
	assert.Equal(t, int64(5), snap.TotalRows())
	assert.Equal(t, uint64(7), snap.Generation())
	assert.Equal(t, time.Unix(100, 0), snap.BuiltAt())

	got, ok := snap.Table("VENDORS")
	require.True(t, ok)
	assert.Equal(t, "Vendors", got.DisplayName, "display name defaults to table name")

	_, ok = snap.Table("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string][]string{
		"sales":   {"product", "week", "units"},
		"Vendors": {"vendor"},
	}, snap.Digest())
}

func TestNewSchemaSnapshot_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		tables  []TableDescriptor
		wantErr error
	}{
		{
			name:    "duplicate table ignoring case",
			tables:  []TableDescriptor{salesTable(), {Name: "SALES"}},
			wantErr: ErrDuplicateTable,
		},
		{
			name: "duplicate column",
			tables: []TableDescriptor{{
				Name:    "sales",
				Columns: []ColumnDescriptor{{Name: "week"}, {Name: "Week"}},
			}},
			wantErr: ErrDuplicateColumn,
		},
		{
			name:    "table name not word-safe",
			tables:  []TableDescriptor{{Name: "weekly sales"}},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name: "column name starts with digit",
			tables: []TableDescriptor{{
				Name:    "sales",
				Columns: []ColumnDescriptor{{Name: "2024_units"}},
			}},
			wantErr: ErrInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := NewSchemaSnapshot(tt.tables, 1, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
			if snap != nil {
				t.Error("expected nil snapshot on error")
			}
		})
	}
}

func TestNewSchemaSnapshot_CopiesInput(t *testing.T) {
	tables := []TableDescriptor{salesTable()}
	snap, err := NewSchemaSnapshot(tables, 1, time.Now())
	require.NoError(t, err)

	tables[0].Name = "mutated"
	assert.Equal(t, []string{"sales"}, snap.TableNames())
}
