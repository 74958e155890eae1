// Package export copies csvdb tables into other databases.
//
// EDUCATIONAL NOTES:
// ------------------
// A csvdb table has no types: every value is the text found in the CSV
// file. The SQLite copy keeps it that way. Each header becomes a TEXT
// column and the row id becomes an INTEGER PRIMARY KEY, so
//
//	,name,age
//	0,Ann,30
//
// turns into
//
//	CREATE TABLE "students" ("id" INTEGER PRIMARY KEY, "name" TEXT, "age" TEXT);
//	INSERT INTO "students" VALUES (0, 'Ann', '30');
//
// The whole copy runs in a single transaction. If anything fails the
// transaction is rolled back and the SQLite file keeps its old contents.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

// fallbackIDColumn names the primary key when a table already has a real
// column called "id".
const fallbackIDColumn = "csvdb_id"

// ToSQLite writes every row of tbl into the SQLite database at dbPath as
// tableName, replacing any existing table of that name.
func ToSQLite(ctx context.Context, tbl *table.Table, tableName, dbPath string) error {
	if tableName == "" {
		return sqlerr.Semanticf("export needs a table name")
	}

	rows, err := tbl.Rows()
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return sqlerr.IOf(err, "open %s", dbPath)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return sqlerr.IOf(err, "begin export to %s", dbPath)
	}
	defer tx.Rollback()

	columns := Columns(tbl.Headers())
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(tableName)); err != nil {
		return sqlerr.IOf(err, "drop %s", tableName)
	}
	if _, err := tx.ExecContext(ctx, createStatement(tableName, columns)); err != nil {
		return sqlerr.IOf(err, "create %s", tableName)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(tableName, len(columns)))
	if err != nil {
		return sqlerr.IOf(err, "prepare insert into %s", tableName)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for _, row := range rows {
		args[0] = row.ID
		for i, v := range row.Values {
			args[i+1] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return sqlerr.IOf(err, "insert row %d into %s", row.ID, tableName)
		}
	}

	if err := tx.Commit(); err != nil {
		return sqlerr.IOf(err, "commit export to %s", dbPath)
	}
	log.Info("exported %d rows of %s to %s:%s", len(rows), tbl.Path(), dbPath, tableName)
	return nil
}

// Columns returns the SQLite column names for a table with the given
// headers: the primary key first, then one column per header. Empty
// headers get a positional name. SQLite compares names without case, so a
// header that repeats an earlier name that way gets a numeric suffix.
func Columns(headers []string) []string {
	inHeaders := make(map[string]bool, len(headers))
	for _, h := range headers {
		inHeaders[strings.ToLower(h)] = true
	}

	idColumn := table.IDColumn
	if inHeaders[idColumn] {
		idColumn = fallbackIDColumn
	}
	for n := 2; inHeaders[strings.ToLower(idColumn)]; n++ {
		idColumn = fmt.Sprintf("%s_%d", fallbackIDColumn, n)
	}

	taken := map[string]bool{strings.ToLower(idColumn): true}
	out := make([]string, 0, len(headers)+1)
	out = append(out, idColumn)
	for i, h := range headers {
		if h == "" {
			h = fmt.Sprintf("column%d", i+1)
		}
		name := h
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		taken[strings.ToLower(name)] = true
		out = append(out, name)
	}
	return out
}

func createStatement(tableName string, columns []string) string {
	defs := make([]string, len(columns))
	defs[0] = quoteIdent(columns[0]) + " INTEGER PRIMARY KEY"
	for i := 1; i < len(columns); i++ {
		defs[i] = quoteIdent(columns[i]) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), strings.Join(defs, ", "))
}

func insertStatement(tableName string, n int) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(tableName), marks)
}

// quoteIdent quotes a SQLite identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
