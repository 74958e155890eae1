package executor

import (
	"strings"

	"github.com/cabewaldrop/csvdb/internal/sql/parser"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

// Action is what a request does to its table.
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionJoin   Action = "join"
)

// Join describes the JOIN part of a request.
type Join struct {
	Table string
	On    [2]string // primary column, joined column
	Where []table.Predicate
}

// Request is the structured form of one statement. Build produces it from
// the AST and Run consumes it; nothing modifies it in between.
type Request struct {
	Table   string
	Columns []string
	Values  []string
	Set     []table.Assignment
	Where   []table.Predicate
	Order   table.Order
	Join    Join
	Action  Action
}

// Build walks a statement's clause chain once and returns the request it
// describes.
//
// EDUCATIONAL NOTE:
// -----------------
// Clauses may appear in any order, so each one only fills in its own part
// of the request. A WHERE that follows a JOIN filters the joined rows, a
// WHERE before it filters the primary table.
func Build(stmt parser.Statement) (*Request, error) {
	es, ok := stmt.(*parser.ExpressionStatement)
	if !ok {
		return nil, sqlerr.Semanticf("nothing to execute in %s", stmt)
	}
	if es.Expression == nil {
		return nil, sqlerr.Semanticf("statement did not parse")
	}
	clause, ok := es.Expression.(*parser.Clause)
	if !ok {
		return nil, sqlerr.Semanticf("literal %s is not a query", es.Expression)
	}

	req := &Request{}
	for c := clause; c != nil; c = c.Next {
		if err := req.apply(c); err != nil {
			return nil, err
		}
	}
	if err := req.finish(); err != nil {
		return nil, err
	}
	return req, nil
}

// finish checks that the request is complete and settles its action.
func (r *Request) finish() error {
	if r.Join.Table != "" {
		if r.Action != ActionSelect && r.Action != ActionJoin {
			return sqlerr.Semanticf("JOIN is only supported with SELECT")
		}
		r.Action = ActionJoin
	}
	if r.Action == "" {
		return sqlerr.Semanticf("statement has no SELECT, INSERT, UPDATE or DELETE")
	}
	if r.Table == "" {
		return sqlerr.Semanticf("statement names no table")
	}
	return nil
}

func (r *Request) apply(c *parser.Clause) error {
	if c.Order != nil && c.Kind != parser.OrderExpression {
		return sqlerr.Semanticf("%s only belongs after ORDER BY", c.Order)
	}

	switch c.Kind {
	case parser.SelectExpression:
		cols, err := identifiers(c)
		if err != nil {
			return err
		}
		r.Columns = append(r.Columns, cols...)
		r.setAction(ActionSelect)

	case parser.OrderExpression:
		cols, err := identifiers(c)
		if err != nil {
			return err
		}
		r.Order = table.Order{Columns: cols, Desc: c.Order.Desc()}

	case parser.FromExpression:
		name, err := tableName(c)
		if err != nil {
			return err
		}
		r.Table = name

	case parser.InsertExpression:
		name, err := tableName(c)
		if err != nil {
			return err
		}
		r.Table = name
		r.setAction(ActionInsert)

	case parser.UpdateExpression:
		name, err := tableName(c)
		if err != nil {
			return err
		}
		r.Table = name
		r.setAction(ActionUpdate)

	case parser.DeleteExpression:
		r.setAction(ActionDelete)

	case parser.JoinExpression:
		name, err := tableName(c)
		if err != nil {
			return err
		}
		r.Join.Table = name

	case parser.ValuesExpression:
		params, ok := c.Value().(*parser.Params)
		if !ok || len(c.Args) != 1 {
			return sqlerr.Semanticf("VALUES expects one (...) list")
		}
		r.Values = append([]string(nil), params.Values...)

	case parser.SetExpression:
		pairs, err := keypairs(c)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			r.Set = append(r.Set, table.Assignment{Column: p.Column, Value: p.Term})
		}

	case parser.WhereExpression:
		pairs, err := keypairs(c)
		if err != nil {
			return err
		}
		if r.Join.Table != "" {
			r.Join.Where = append(r.Join.Where, pairs...)
		} else {
			r.Where = append(r.Where, pairs...)
		}

	case parser.OnExpression:
		on, err := onColumns(c)
		if err != nil {
			return err
		}
		r.Join.On = on

	default:
		return sqlerr.Semanticf("unsupported clause %s", c.Kind)
	}
	return nil
}

// setAction keeps the first action seen, so the FROM of a DELETE doesn't
// turn it into a SELECT.
func (r *Request) setAction(a Action) {
	if r.Action == "" {
		r.Action = a
	}
}

// identifiers returns the bare column names of a SELECT or ORDER BY.
func identifiers(c *parser.Clause) ([]string, error) {
	names := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		id, ok := arg.(*parser.Identifier)
		if !ok {
			return nil, sqlerr.Semanticf("%s expects column names, got %s", c.Kind, arg)
		}
		names = append(names, bareColumn(id.Name))
	}
	return names, nil
}

func tableName(c *parser.Clause) (string, error) {
	id, ok := c.Value().(*parser.Identifier)
	if !ok || len(c.Args) != 1 {
		return "", sqlerr.Semanticf("%s expects a single table name", c.Kind)
	}
	return id.Name, nil
}

// keypairs returns the column = value pairs of a SET or WHERE in order.
func keypairs(c *parser.Clause) ([]table.Predicate, error) {
	pairs := make([]table.Predicate, 0, len(c.Args))
	for _, arg := range c.Args {
		assign, ok := arg.(*parser.Assign)
		if !ok {
			return nil, sqlerr.Semanticf("%s expects column=value pairs, got %s", c.Kind, arg)
		}
		pairs = append(pairs, table.Predicate{
			Column: bareColumn(assign.Left.Name),
			Term:   literalValue(assign.Right),
		})
	}
	return pairs, nil
}

// onColumns accepts both "ON a.x, b.y" and "ON a.x = b.y".
func onColumns(c *parser.Clause) ([2]string, error) {
	var on [2]string
	switch len(c.Args) {
	case 1:
		assign, ok := c.Args[0].(*parser.Assign)
		if ok {
			if right, ok := assign.Right.(*parser.Identifier); ok {
				on[0], on[1] = bareColumn(assign.Left.Name), bareColumn(right.Name)
				return on, nil
			}
		}
	case 2:
		left, okL := c.Args[0].(*parser.Identifier)
		right, okR := c.Args[1].(*parser.Identifier)
		if okL && okR {
			on[0], on[1] = bareColumn(left.Name), bareColumn(right.Name)
			return on, nil
		}
	}
	return on, sqlerr.Semanticf("ON expects two columns")
}

func literalValue(expr parser.Expression) string {
	switch v := expr.(type) {
	case *parser.StringLiteral:
		return v.Value
	case *parser.NumericLiteral:
		return v.Literal
	case *parser.Identifier:
		return v.Name
	default:
		return expr.String()
	}
}

// bareColumn strips a "table." qualifier.
func bareColumn(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
