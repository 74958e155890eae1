// Package table implements CSV-backed tables and row operations.
//
// EDUCATIONAL NOTES:
// ------------------
// A csvdb table is a plain CSV file:
//
//   ,name,age        <- header: empty id placeholder, then column names
//   0,Ann,30         <- each row: row id, then values
//   1,Bo,25
//
// Row ids are assigned at append time and never reused, so deleting row 1
// leaves a gap and the next append still gets max(id)+1.
//
// On top of the file, each table keeps one in-memory trie per column
// (storage.Indexes). A lookup resolves the matching ids through the trie
// first and then walks the file from the top, collecting only the target
// rows and stopping after the last one. There's no offset index and no
// random access: the file stays append-friendly and human-editable.
//
// Update and delete rewrite the whole file in one pass. Rows they don't
// touch are copied back byte for byte, so hand-written spacing, quoting and
// CRLF line endings survive. There's no temp file and no rename, so a crash
// mid-rewrite can corrupt a table. That's an accepted trade-off for a
// teaching database.

package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/storage"
)

// IDColumn is the name of the implicit row id column. It is selectable
// and usable in WHERE unless the table has a real column with that name.
const IDColumn = "id"

// Wildcard selects every header.
const Wildcard = "*"

// Row is one data row.
type Row struct {
	ID     int
	Values []string // in header order
}

// Record is a row keyed by column name, including the id column.
type Record map[string]string

// Predicate is a column = term condition.
type Predicate struct {
	Column string
	Term   string
}

// Matches reports whether rec holds Term in Column.
func (p Predicate) Matches(rec Record) bool {
	v, ok := rec[p.Column]
	return ok && v == p.Term
}

// Order is an ORDER BY specification.
type Order struct {
	Columns []string
	Desc    bool
}

// Assignment is one column = value pair of an UPDATE.
type Assignment struct {
	Column string
	Value  string
}

// RowSet is a projected, ordered selection.
type RowSet struct {
	Columns []string
	Rows    [][]string
}

// Table is a CSV file plus its in-memory indexes.
type Table struct {
	path      string
	headers   []string
	indexes   *storage.Indexes
	nextRowID int
	rowCount  int
}

// Open loads the table stored at path and indexes every row.
func Open(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sqlerr.IOf(err, "open table %s", path)
	}

	header, err := newReader(bytes.NewReader(data)).Read()
	if errors.Is(err, io.EOF) {
		return nil, sqlerr.IOf(err, "table file %s has no header", path)
	}
	if err != nil {
		return nil, sqlerr.IOf(err, "read header of %s", path)
	}

	headers := append([]string(nil), header[1:]...)
	idx := storage.NewIndexes(headers)
	count, maxID, err := idx.Load(bytes.NewReader(data))
	if err != nil {
		return nil, sqlerr.IOf(err, "index %s", path)
	}

	log.Debug("opened %s: %d rows, next id %d", path, count, maxID+1)
	return &Table{
		path:      path,
		headers:   headers,
		indexes:   idx,
		nextRowID: maxID + 1,
		rowCount:  count,
	}, nil
}

// Create writes a new, empty table file with the given headers and opens it.
// It fails if path already exists.
func Create(path string, headers []string) (*Table, error) {
	if len(headers) == 0 {
		return nil, sqlerr.Semanticf("table needs at least one column")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, sqlerr.IOf(err, "create table %s", path)
	}
	w := csv.NewWriter(f)
	w.Write(append([]string{""}, headers...))
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, sqlerr.IOf(err, "write header of %s", path)
	}
	if err := f.Close(); err != nil {
		return nil, sqlerr.IOf(err, "close %s", path)
	}

	return Open(path)
}

// Path returns the table file path.
func (t *Table) Path() string { return t.path }

// Headers returns the column names in on-disk order, without the id column.
func (t *Table) Headers() []string { return append([]string(nil), t.headers...) }

// NextRowID returns the id the next appended row will get.
func (t *Table) NextRowID() int { return t.nextRowID }

// Len returns the number of rows.
func (t *Table) Len() int { return t.rowCount }

// HasColumn reports whether column is a header or the implicit id column.
func (t *Table) HasColumn(column string) bool {
	return column == IDColumn || t.indexes.Has(column)
}

func (t *Table) checkColumn(column string) error {
	if !t.HasColumn(column) {
		return sqlerr.Semanticf("column %s does not exist in %s", column, t.path)
	}
	return nil
}

// isPseudoID reports whether column refers to the implicit row id.
func (t *Table) isPseudoID(column string) bool {
	return column == IDColumn && !t.indexes.Has(IDColumn)
}

// resolve returns the sorted ids of rows where column = term.
func (t *Table) resolve(column, term string) []int {
	if t.isPseudoID(column) {
		id, err := strconv.Atoi(term)
		if err != nil {
			return nil
		}
		return []int{id}
	}
	return t.indexes.Find(term, column)
}

// Find returns the rows where column = term, in id order.
func (t *Table) Find(column, term string) ([]Row, error) {
	if err := t.checkColumn(column); err != nil {
		return nil, err
	}
	ids := t.resolve(column, term)
	if len(ids) == 0 {
		return nil, nil
	}
	return t.readRows(ids)
}

// readRows walks the file from the top, collecting exactly the rows whose
// id is in ids (sorted ascending). Ids missing from the file are skipped
// and the walk stops after the last target.
func (t *Table) readRows(ids []int) ([]Row, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, sqlerr.IOf(err, "open %s", t.path)
	}
	defer f.Close()

	cr := newReader(f)
	if _, err := cr.Read(); err != nil {
		return nil, sqlerr.IOf(err, "read header of %s", t.path)
	}

	rows := make([]Row, 0, len(ids))
	next := 0
	for next < len(ids) {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sqlerr.IOf(err, "read %s", t.path)
		}

		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, sqlerr.IOf(err, "invalid row id %q in %s", record[0], t.path)
		}

		for next < len(ids) && ids[next] < id {
			next++
		}
		if next < len(ids) && ids[next] == id {
			rows = append(rows, t.row(id, record[1:]))
			for next < len(ids) && ids[next] == id {
				next++
			}
		}
	}
	return rows, nil
}

// Rows returns every row of the table.
func (t *Table) Rows() ([]Row, error) {
	_, lines, err := t.readAll()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		id, err := strconv.Atoi(line.fields[0])
		if err != nil {
			return nil, sqlerr.IOf(err, "invalid row id %q in %s", line.fields[0], t.path)
		}
		rows = append(rows, t.row(id, line.fields[1:]))
	}
	return rows, nil
}

// row pads or trims values to the header count.
func (t *Table) row(id int, values []string) Row {
	out := make([]string, len(t.headers))
	copy(out, values)
	return Row{ID: id, Values: out}
}

// Record converts r to a column-keyed record.
func (t *Table) Record(r Row) Record {
	rec := make(Record, len(t.headers)+1)
	rec[IDColumn] = strconv.Itoa(r.ID)
	for i, h := range t.headers {
		if i < len(r.Values) {
			rec[h] = r.Values[i]
		}
	}
	return rec
}

// Append writes values as a new row and indexes it. It returns the new
// row's id.
func (t *Table) Append(values []string) (int, error) {
	if len(values) != len(t.headers) {
		return 0, sqlerr.Semanticf("%s expects %d values, got %d", t.path, len(t.headers), len(values))
	}

	f, err := os.OpenFile(t.path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return 0, sqlerr.IOf(err, "open %s", t.path)
	}
	defer f.Close()

	if err := ensureTrailingNewline(f); err != nil {
		return 0, sqlerr.IOf(err, "append to %s", t.path)
	}

	id := t.nextRowID
	w := csv.NewWriter(f)
	w.Write(append([]string{strconv.Itoa(id)}, values...))
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, sqlerr.IOf(err, "append to %s", t.path)
	}

	t.nextRowID++
	t.rowCount++
	t.indexes.Insert(id, values)
	return id, nil
}

// Delete removes the rows where column = term and returns how many were
// removed. Every removed row's values are dropped from every column index.
func (t *Table) Delete(column, term string) (int, error) {
	if err := t.checkColumn(column); err != nil {
		return 0, err
	}
	ids := t.resolve(column, term)
	if len(ids) == 0 {
		return 0, nil
	}
	targets := idSet(ids)

	header, lines, err := t.readAll()
	if err != nil {
		return 0, err
	}

	kept := lines[:0:0]
	var removed []Row
	for _, line := range lines {
		id, err := strconv.Atoi(line.fields[0])
		if err == nil && targets[id] {
			removed = append(removed, t.row(id, line.fields[1:]))
			continue
		}
		kept = append(kept, line)
	}
	if len(removed) == 0 {
		return 0, nil
	}

	if err := t.rewrite(header, kept); err != nil {
		return 0, err
	}

	for _, r := range removed {
		for i, h := range t.headers {
			t.indexes.Delete(r.ID, h, r.Values[i])
		}
	}
	if !t.isPseudoID(column) {
		t.indexes.DeleteAll(term, column)
	}
	t.rowCount -= len(removed)
	return len(removed), nil
}

// Update applies updates to the rows where where.Column = where.Term and
// returns how many rows changed.
func (t *Table) Update(updates []Assignment, where Predicate) (int, error) {
	if len(updates) == 0 {
		return 0, sqlerr.Semanticf("update needs at least one column")
	}
	positions := make([]int, len(updates))
	for i, u := range updates {
		pos := t.headerIndex(u.Column)
		if pos < 0 {
			if u.Column == IDColumn {
				return 0, sqlerr.Semanticf("row ids cannot be updated")
			}
			return 0, sqlerr.Semanticf("column %s does not exist in %s", u.Column, t.path)
		}
		positions[i] = pos
	}
	if err := t.checkColumn(where.Column); err != nil {
		return 0, err
	}

	ids := t.resolve(where.Column, where.Term)
	if len(ids) == 0 {
		return 0, nil
	}
	targets := idSet(ids)

	header, lines, err := t.readAll()
	if err != nil {
		return 0, err
	}

	type change struct {
		id            int
		column        string
		before, after string
	}
	var changes []change
	updated := 0

	for r, line := range lines {
		id, err := strconv.Atoi(line.fields[0])
		if err != nil || !targets[id] {
			continue
		}
		record := line.fields
		for len(record) < len(t.headers)+1 {
			record = append(record, "")
		}
		for i, u := range updates {
			cell := positions[i] + 1
			changes = append(changes, change{id, u.Column, record[cell], u.Value})
			record[cell] = u.Value
		}
		raw, err := encodeLine(record, line.raw)
		if err != nil {
			return 0, sqlerr.IOf(err, "encode row %d of %s", id, t.path)
		}
		lines[r] = rawLine{fields: record, raw: raw}
		updated++
	}

	if err := t.rewrite(header, lines); err != nil {
		return 0, err
	}

	for _, c := range changes {
		t.indexes.Delete(c.id, c.column, c.before)
		t.indexes.InsertOne(c.id, c.column, c.after)
	}
	return updated, nil
}

// Select returns the records matching every predicate. The first predicate
// is resolved through the index, the rest filter its result.
func (t *Table) Select(where []Predicate) ([]Record, error) {
	for _, p := range where {
		if err := t.checkColumn(p.Column); err != nil {
			return nil, err
		}
	}

	var rows []Row
	var err error
	if len(where) == 0 {
		rows, err = t.Rows()
	} else {
		rows, err = t.Find(where[0].Column, where[0].Term)
	}
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec := t.Record(r)
		if matchesAll(rec, where) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// List returns every row projected to columns and sorted by order.
func (t *Table) List(columns []string, order Order) (*RowSet, error) {
	return t.ListWhere(columns, nil, order)
}

// ListWhere returns the rows matching where, projected and sorted.
func (t *Table) ListWhere(columns []string, where []Predicate, order Order) (*RowSet, error) {
	cols, err := t.ExpandColumns(columns)
	if err != nil {
		return nil, err
	}
	for _, c := range order.Columns {
		if err := t.checkColumn(c); err != nil {
			return nil, err
		}
	}

	records, err := t.Select(where)
	if err != nil {
		return nil, err
	}
	SortRecords(records, order)
	return &RowSet{Columns: cols, Rows: Project(records, cols)}, nil
}

// ExpandColumns validates columns and replaces "*" with every header.
func (t *Table) ExpandColumns(columns []string) ([]string, error) {
	if len(columns) == 0 {
		return nil, sqlerr.Semanticf("no columns selected")
	}
	var out []string
	for _, c := range columns {
		if c == Wildcard {
			out = append(out, t.headers...)
			continue
		}
		if err := t.checkColumn(c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SortRecords sorts records in place by order. Values that both parse as
// numbers compare numerically, anything else compares as text.
func SortRecords(records []Record, order Order) {
	if len(order.Columns) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, col := range order.Columns {
			c := CompareValues(records[i][col], records[j][col])
			if c == 0 {
				continue
			}
			if order.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// CompareValues compares two cell values. Returns -1, 0, or 1.
func CompareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// Project turns records into rows holding only columns, in that order.
func Project(records []Record, columns []string) [][]string {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return rows
}

func matchesAll(rec Record, where []Predicate) bool {
	for _, p := range where {
		if !p.Matches(rec) {
			return false
		}
	}
	return true
}

func (t *Table) headerIndex(column string) int {
	for i, h := range t.headers {
		if h == column {
			return i
		}
	}
	return -1
}

// rawLine is one data record together with the exact bytes it occupies in
// the file, line terminator included.
type rawLine struct {
	fields []string
	raw    []byte
}

// readAll reads the raw header and every data record.
func (t *Table) readAll() ([]byte, []rawLine, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, nil, sqlerr.IOf(err, "open %s", t.path)
	}

	cr := newReader(bytes.NewReader(data))
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, nil, sqlerr.IOf(err, "table file %s has no header", t.path)
	}
	start := cr.InputOffset()
	header := data[:start]

	var lines []rawLine
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, sqlerr.IOf(err, "read %s", t.path)
		}
		end := cr.InputOffset()
		lines = append(lines, rawLine{fields: record, raw: data[start:end]})
		start = end
	}

	// trailing blank lines stay with whatever precedes them
	if tail := data[start:]; len(tail) > 0 {
		if n := len(lines); n > 0 {
			lines[n-1].raw = data[start-int64(len(lines[n-1].raw)):]
		} else {
			header = data
		}
	}
	return header, lines, nil
}

// rewrite replaces the file contents with header and lines, byte for byte.
func (t *Table) rewrite(header []byte, lines []rawLine) error {
	var buf bytes.Buffer
	buf.Write(header)
	for _, line := range lines {
		if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.Write(line.raw)
	}

	if err := os.WriteFile(t.path, buf.Bytes(), 0644); err != nil {
		return sqlerr.IOf(err, "rewrite %s", t.path)
	}

	log.Debug("rewrote %s with %d rows", t.path, len(lines))
	return nil
}

// encodeLine renders fields as one CSV record using the line terminator of
// like, the bytes the record replaces.
func encodeLine(fields []string, like []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = bytes.HasSuffix(like, []byte("\r\n"))
	w.Write(fields)
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(like, []byte("\n")) {
		return bytes.TrimRight(buf.Bytes(), "\r\n"), nil
	}
	return buf.Bytes(), nil
}

// String returns a short description of the table.
func (t *Table) String() string {
	return fmt.Sprintf("%s(%s)", t.path, strings.Join(t.headers, ", "))
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func idSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ensureTrailingNewline makes sure an append starts on a fresh line.
func ensureTrailingNewline(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] != '\n' {
		_, err = f.Write([]byte("\n"))
	}
	return err
}
