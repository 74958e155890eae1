package executor

import (
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

// Query builds a Request from Go code instead of SQL text. Each method
// fills in the same part of the request as the matching clause would:
//
//	q := executor.NewQuery().From("students").Select("name").Where("age", "30").Order(true, "name")
//	result, err := exec.RunQuery(q)
//
// Methods can be chained in any order. The first invalid call is kept and
// reported by Request.
type Query struct {
	req Request
	err error
}

// NewQuery starts an empty query.
func NewQuery() *Query {
	return &Query{}
}

// From sets the table to read from or delete from.
func (q *Query) From(tableName string) *Query {
	q.req.Table = tableName
	return q
}

// Select adds columns to the result and makes the query a SELECT.
func (q *Query) Select(columns ...string) *Query {
	if len(columns) == 0 {
		q.fail(sqlerr.Semanticf("SELECT expects column names"))
		return q
	}
	for _, c := range columns {
		q.req.Columns = append(q.req.Columns, bareColumn(c))
	}
	q.req.setAction(ActionSelect)
	return q
}

// Where adds a column = term predicate. After Join it filters the joined
// rows, before it the primary table.
func (q *Query) Where(column, term string) *Query {
	if column == "" {
		q.fail(sqlerr.Semanticf("WHERE expects column=value pairs"))
		return q
	}
	p := table.Predicate{Column: bareColumn(column), Term: term}
	if q.req.Join.Table != "" {
		q.req.Join.Where = append(q.req.Join.Where, p)
	} else {
		q.req.Where = append(q.req.Where, p)
	}
	return q
}

// Join merges in joinTable, matching column of the primary table against
// joinColumn.
func (q *Query) Join(column, joinTable, joinColumn string) *Query {
	if joinTable == "" {
		q.fail(sqlerr.Semanticf("JOIN expects a single table name"))
		return q
	}
	if column == "" || joinColumn == "" {
		q.fail(sqlerr.Semanticf("ON expects two columns"))
		return q
	}
	q.req.Join.Table = joinTable
	q.req.Join.On = [2]string{bareColumn(column), bareColumn(joinColumn)}
	return q
}

// Order sorts the result by columns, descending when desc is set.
func (q *Query) Order(desc bool, columns ...string) *Query {
	if len(columns) == 0 {
		q.fail(sqlerr.Semanticf("ORDER BY expects column names"))
		return q
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = bareColumn(c)
	}
	q.req.Order = table.Order{Columns: cols, Desc: desc}
	return q
}

// Insert makes the query an INSERT into tableName.
func (q *Query) Insert(tableName string) *Query {
	q.req.Table = tableName
	q.req.setAction(ActionInsert)
	return q
}

// Values sets the row to insert, in header order.
func (q *Query) Values(values ...string) *Query {
	q.req.Values = append([]string(nil), values...)
	return q
}

// Update makes the query an UPDATE of tableName.
func (q *Query) Update(tableName string) *Query {
	q.req.Table = tableName
	q.req.setAction(ActionUpdate)
	return q
}

// Set adds a column = value assignment to an UPDATE.
func (q *Query) Set(column, value string) *Query {
	if column == "" {
		q.fail(sqlerr.Semanticf("SET expects column=value pairs"))
		return q
	}
	q.req.Set = append(q.req.Set, table.Assignment{Column: bareColumn(column), Value: value})
	return q
}

// Delete makes the query a DELETE. The table comes from From.
func (q *Query) Delete() *Query {
	q.req.setAction(ActionDelete)
	return q
}

// Request returns the built request, or the first error met while
// building it.
func (q *Query) Request() (*Request, error) {
	if q.err != nil {
		return nil, q.err
	}
	req := q.req
	if err := req.finish(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// RunQuery builds q and runs it.
func (e *Executor) RunQuery(q *Query) (*Result, error) {
	req, err := q.Request()
	if err != nil {
		return nil, err
	}
	return e.Run(req)
}
