// Package executor implements the csvdb query executor.
//
// EDUCATIONAL NOTES:
// ------------------
// The executor is the component that actually runs SQL queries. It works
// in two phases:
//
//  1. Build walks the AST once and produces a Request: a plain struct that
//     says which table, which columns, which predicates and what action.
//  2. Run takes that Request and carries it out against the catalog's
//     tables.
//
// Keeping the phases apart means Run never has to look at the AST, and a
// Request can be built, inspected or logged without touching any file.
//
// When the executor is created with AllowPaths(true), queries may name a
// CSV file directly (SELECT * FROM data/people.csv). Such files are
// registered as temporary tables for the duration of the statement and
// released afterwards, whatever the outcome. The REPL allows this. The HTTP
// server leaves it off, so its callers only reach manifest tables.

package executor

import (
	"fmt"
	"strings"

	"github.com/cabewaldrop/csvdb/internal/catalog"
	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sql/lexer"
	"github.com/cabewaldrop/csvdb/internal/sql/parser"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

// Result represents the result of executing a query.
type Result struct {
	Columns  []string
	Rows     [][]string
	RowCount int
	Message  string
}

// String formats the result for display.
func (r *Result) String() string {
	if r.Message != "" {
		return r.Message
	}

	if len(r.Rows) == 0 {
		return "(no rows)"
	}

	var sb strings.Builder

	widths := make([]int, len(r.Columns))
	for i, col := range r.Columns {
		widths[i] = len(col)
	}
	for _, row := range r.Rows {
		for i, val := range row {
			if i < len(widths) && len(val) > widths[i] {
				widths[i] = len(val)
			}
		}
	}

	border := func() {
		sb.WriteString("+")
		for _, w := range widths {
			sb.WriteString(strings.Repeat("-", w+2))
			sb.WriteString("+")
		}
		sb.WriteString("\n")
	}

	border()
	sb.WriteString("|")
	for i, col := range r.Columns {
		sb.WriteString(fmt.Sprintf(" %-*s |", widths[i], col))
	}
	sb.WriteString("\n")
	border()

	for _, row := range r.Rows {
		sb.WriteString("|")
		for i := range r.Columns {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			sb.WriteString(fmt.Sprintf(" %-*s |", widths[i], val))
		}
		sb.WriteString("\n")
	}

	border()
	sb.WriteString(fmt.Sprintf("(%d rows)\n", len(r.Rows)))

	return sb.String()
}

// Maps returns the rows as column-keyed maps.
func (r *Result) Maps() []map[string]string {
	out := make([]map[string]string, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]string, len(r.Columns))
		for j, col := range r.Columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// Executor executes statements against a catalog.
type Executor struct {
	catalog    *catalog.Catalog
	allowPaths bool
}

// Option configures an Executor.
type Option func(*Executor)

// AllowPaths controls whether queries may name CSV files directly. It is
// off by default: without it a path is looked up like any table name.
func AllowPaths(allow bool) Option {
	return func(e *Executor) {
		e.allowPaths = allow
	}
}

// New creates a new Executor.
func New(cat *catalog.Catalog, opts ...Option) *Executor {
	e := &Executor{catalog: cat}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the executor's catalog.
func (e *Executor) Catalog() *catalog.Catalog {
	return e.catalog
}

// ExecuteSQL parses text and executes every statement in order. Nothing is
// executed when the text doesn't parse; otherwise execution stops at the
// first failing statement and the results so far are returned with the
// error.
func (e *Executor) ExecuteSQL(text string) ([]*Result, error) {
	p := parser.New(lexer.New(text))
	prog := p.Parse()
	if err := p.Err(); err != nil {
		return nil, err
	}

	var results []*Result
	for _, stmt := range prog.Body {
		if _, ok := stmt.(*parser.EmptyStatement); ok {
			continue
		}
		res, err := e.Execute(stmt)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Execute builds and runs a single statement.
func (e *Executor) Execute(stmt parser.Statement) (*Result, error) {
	if _, ok := stmt.(*parser.EmptyStatement); ok {
		return &Result{}, nil
	}
	req, err := Build(stmt)
	if err != nil {
		log.Warn("rejected %s: %v", stmt, err)
		return nil, err
	}
	return e.Run(req)
}

// Run executes a built request.
func (e *Executor) Run(req *Request) (*Result, error) {
	for _, name := range []string{req.Table, req.Join.Table} {
		if !e.allowPaths || !isCSVPath(name) {
			continue
		}
		if _, err := e.catalog.CreateTempTable(name, name); err != nil {
			return nil, err
		}
		defer e.catalog.FreeTable(name)
	}

	tbl, ok := e.catalog.GetTable(req.Table)
	if !ok {
		return nil, sqlerr.NotFoundf("table %s does not exist", req.Table)
	}

	switch req.Action {
	case ActionSelect:
		return e.runSelect(tbl, req)
	case ActionInsert:
		return e.runInsert(tbl, req)
	case ActionUpdate:
		return e.runUpdate(tbl, req)
	case ActionDelete:
		return e.runDelete(tbl, req)
	case ActionJoin:
		return e.runJoin(tbl, req)
	default:
		return nil, reject("unsupported action %q", req.Action)
	}
}

func (e *Executor) runSelect(tbl *table.Table, req *Request) (*Result, error) {
	set, err := tbl.ListWhere(req.Columns, req.Where, req.Order)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: set.Columns, Rows: set.Rows, RowCount: len(set.Rows)}, nil
}

func (e *Executor) runInsert(tbl *table.Table, req *Request) (*Result, error) {
	headers := tbl.Headers()
	values := req.Values
	if len(values) < len(headers) {
		return nil, reject("INSERT INTO %s expects %d values, got %d", req.Table, len(headers), len(values))
	}
	if len(values) > len(headers) {
		log.Warn("INSERT INTO %s: dropping %d extra values", req.Table, len(values)-len(headers))
		values = values[:len(headers)]
	}

	id, err := tbl.Append(values)
	if err != nil {
		return nil, err
	}
	return &Result{RowCount: 1, Message: fmt.Sprintf("1 row inserted (id %d)", id)}, nil
}

func (e *Executor) runUpdate(tbl *table.Table, req *Request) (*Result, error) {
	if len(req.Set) == 0 {
		return nil, reject("UPDATE %s needs a SET clause", req.Table)
	}
	if len(req.Where) == 0 {
		return nil, reject("UPDATE %s needs a WHERE clause", req.Table)
	}
	if len(req.Where) > 1 {
		log.Warn("UPDATE %s: only the first WHERE predicate is used", req.Table)
	}

	n, err := tbl.Update(req.Set, req.Where[0])
	if err != nil {
		return nil, err
	}
	return &Result{RowCount: n, Message: fmt.Sprintf("%d row(s) updated", n)}, nil
}

func (e *Executor) runDelete(tbl *table.Table, req *Request) (*Result, error) {
	if len(req.Where) == 0 {
		return nil, reject("DELETE FROM %s needs a WHERE clause", req.Table)
	}
	if len(req.Where) > 1 {
		log.Warn("DELETE FROM %s: only the first WHERE predicate is used", req.Table)
	}

	w := req.Where[0]
	n, err := tbl.Delete(w.Column, w.Term)
	if err != nil {
		return nil, err
	}
	return &Result{RowCount: n, Message: fmt.Sprintf("%d row(s) deleted", n)}, nil
}

// runJoin merges each selected row of the primary table with the last row
// of the joined table whose ON column matches. Rows without a match are
// kept unmerged.
func (e *Executor) runJoin(left *table.Table, req *Request) (*Result, error) {
	right, ok := e.catalog.GetTable(req.Join.Table)
	if !ok {
		return nil, sqlerr.NotFoundf("table %s does not exist", req.Join.Table)
	}

	leftCol, rightCol := req.Join.On[0], req.Join.On[1]
	if leftCol == "" || rightCol == "" {
		return nil, reject("JOIN %s needs an ON clause", req.Join.Table)
	}
	if !left.HasColumn(leftCol) {
		return nil, reject("column %s does not exist in %s", leftCol, req.Table)
	}
	if !right.HasColumn(rightCol) {
		return nil, reject("column %s does not exist in %s", rightCol, req.Join.Table)
	}

	hasColumn := func(c string) bool { return left.HasColumn(c) || right.HasColumn(c) }

	columns, err := joinColumns(req.Columns, left, right, hasColumn)
	if err != nil {
		return nil, err
	}
	for _, c := range req.Order.Columns {
		if !hasColumn(c) {
			return nil, reject("column %s does not exist in %s or %s", c, req.Table, req.Join.Table)
		}
	}

	leftRecords, err := left.Select(req.Where)
	if err != nil {
		return nil, err
	}
	rightRows, err := right.Rows()
	if err != nil {
		return nil, err
	}

	lastMatch := make(map[string]table.Record, len(rightRows))
	for _, row := range rightRows {
		rec := right.Record(row)
		lastMatch[rec[rightCol]] = rec
	}

	var merged []table.Record
	for _, l := range leftRecords {
		rec := make(table.Record, len(l))
		for k, v := range l {
			rec[k] = v
		}
		if r, ok := lastMatch[l[leftCol]]; ok {
			for k, v := range r {
				rec[k] = v
			}
		}
		if matchesAll(rec, req.Join.Where) {
			merged = append(merged, rec)
		}
	}

	table.SortRecords(merged, req.Order)
	rows := table.Project(merged, columns)
	return &Result{Columns: columns, Rows: rows, RowCount: len(rows)}, nil
}

// joinColumns expands "*" to the headers of both tables, primary first.
func joinColumns(requested []string, left, right *table.Table, has func(string) bool) ([]string, error) {
	if len(requested) == 0 {
		return nil, reject("no columns selected")
	}
	var out []string
	for _, c := range requested {
		if c != table.Wildcard {
			if !has(c) {
				return nil, reject("column %s does not exist in the joined tables", c)
			}
			out = append(out, c)
			continue
		}
		seen := make(map[string]bool)
		for _, h := range append(left.Headers(), right.Headers()...) {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out, nil
}

func matchesAll(rec table.Record, where []table.Predicate) bool {
	for _, p := range where {
		if !p.Matches(rec) {
			return false
		}
	}
	return true
}

// GetTables returns all table names.
func (e *Executor) GetTables() []string {
	return e.catalog.ListTables()
}

// GetTable returns a table by name.
func (e *Executor) GetTable(name string) (*table.Table, bool) {
	return e.catalog.GetTable(name)
}

// reject builds a semantic error and logs it.
func reject(format string, args ...interface{}) error {
	err := sqlerr.Semanticf(format, args...)
	log.Warn("%v", err)
	return err
}

// isCSVPath reports whether a table name refers to a CSV file.
func isCSVPath(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}
