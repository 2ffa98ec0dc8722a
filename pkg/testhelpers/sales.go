// Package testhelpers provides fixtures for testing ekaya-ask components.
package testhelpers

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// SalesRow is one row of the sales fixture.
type SalesRow struct {
	Product string
	Week    int64
	Units   int64
}

// SalesRows is the sales fixture: widget sold 10 units in week 25.
var SalesRows = []SalesRow{
	{Product: "widget", Week: 25, Units: 10},
	{Product: "gadget", Week: 25, Units: 4},
	{Product: "widget", Week: 26, Units: 7},
	{Product: "gizmo", Week: 26, Units: 12},
}

const salesDDL = `CREATE TABLE IF NOT EXISTS sales (product TEXT, week INTEGER, units INTEGER)`

// NewSalesStore writes the sales fixture into a fresh SQLite file and
// returns its path. The file is removed when the test ends.
func NewSalesStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "business_data.db")
	ExecSQLite(t, path, salesDDL)
	for _, r := range SalesRows {
		ExecSQLite(t, path, `INSERT INTO sales (product, week, units) VALUES (?, ?, ?)`, r.Product, r.Week, r.Units)
	}
	return path
}

// NewEmptyStore creates a SQLite file with no user tables.
func NewEmptyStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.db")
	ExecSQLite(t, path, `CREATE TABLE _placeholder (id INTEGER)`)
	return path
}

// ExecSQLite runs one statement against the SQLite file at path.
func ExecSQLite(t *testing.T, path, stmt string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()
	if _, err := db.Exec(stmt, args...); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}
