// Package storage - Per-column indexes
//
// EDUCATIONAL NOTES:
// ------------------
// Without an index, answering "WHERE age = 25" means reading every row of
// the table file. Indexes keeps one Trie per column, so the same question
// becomes a single trie walk that returns the matching row ids directly.
//
// The indexes live only in memory. They're rebuilt from the CSV file every
// time a table is opened, and then maintained incrementally as rows are
// appended, updated and deleted.

package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Indexes owns one trie per table column.
type Indexes struct {
	columns []string
	tries   map[string]*Trie
}

// NewIndexes creates empty indexes for the given columns, in on-disk order.
func NewIndexes(columns []string) *Indexes {
	idx := &Indexes{
		columns: append([]string(nil), columns...),
		tries:   make(map[string]*Trie, len(columns)),
	}
	for _, col := range columns {
		idx.tries[col] = NewTrie()
	}
	return idx
}

// Load indexes every data row of a table file. The first record is the
// header and is skipped; each following record is "id, values...".
// It returns the number of rows loaded and the largest id seen (-1 when
// the table is empty).
func (idx *Indexes) Load(r io.Reader) (int, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, -1, nil
		}
		return 0, -1, fmt.Errorf("reading header: %w", err)
	}

	count, maxID := 0, -1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, maxID, fmt.Errorf("reading row %d: %w", count+1, err)
		}

		id, err := strconv.Atoi(record[0])
		if err != nil {
			return count, maxID, fmt.Errorf("row %d: invalid id %q", count+1, record[0])
		}

		idx.Insert(id, record[1:])
		count++
		if id > maxID {
			maxID = id
		}
	}
	return count, maxID, nil
}

// Columns returns the indexed column names in on-disk order.
func (idx *Indexes) Columns() []string {
	return append([]string(nil), idx.columns...)
}

// Has reports whether column is indexed.
func (idx *Indexes) Has(column string) bool {
	_, ok := idx.tries[column]
	return ok
}

// Find returns the ids of rows whose column equals term, sorted ascending.
// It returns nil for an unknown column or when nothing matches.
func (idx *Indexes) Find(term, column string) []int {
	trie, ok := idx.tries[column]
	if !ok {
		return nil
	}
	node := trie.Find(term)
	if node == nil {
		return nil
	}

	ids := append([]int(nil), node.IDs...)
	sort.Ints(ids)
	return ids
}

// Insert indexes a whole row. values are in column order, without the id.
func (idx *Indexes) Insert(id int, values []string) {
	for i, col := range idx.columns {
		if i >= len(values) {
			break
		}
		idx.tries[col].Insert(id, values[i])
	}
}

// InsertOne indexes a single cell.
func (idx *Indexes) InsertOne(id int, column, value string) {
	if trie, ok := idx.tries[column]; ok {
		trie.Insert(id, value)
	}
}

// Delete removes id from the entry for value in column.
func (idx *Indexes) Delete(id int, column, value string) {
	if trie, ok := idx.tries[column]; ok {
		trie.Delete(id, value)
	}
}

// DeleteAll drops every id stored under term in column.
func (idx *Indexes) DeleteAll(term, column string) {
	if trie, ok := idx.tries[column]; ok {
		trie.DeleteAll(term)
	}
}
