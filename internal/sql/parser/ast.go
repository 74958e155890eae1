// Package parser implements a SQL parser that builds an Abstract Syntax Tree (AST).
//
// EDUCATIONAL NOTES:
// ------------------
// An Abstract Syntax Tree (AST) is a tree representation of the structure
// of source code. Each node in the tree represents a construct in the code.
//
// csvdb's dialect is a pipeline of clauses rather than a fixed statement
// grammar. Every keyword starts a Clause, and each Clause links to the one
// that follows it. For example, the SQL:
//   SELECT name, age FROM users WHERE age = 18;
//
// Becomes an AST like:
//   Program
//   └── ExpressionStatement
//       └── SelectExpression  Args: [name, age]
//           └── FromExpression  Args: [users]
//               └── WhereExpression  Args: [Assign(age = 18)]
//
// Comma-separated arguments are kept as an ordered slice on the clause, so
// walking "SELECT a, b, c" is a simple range over Args.

package parser

import (
	"fmt"
	"strings"
)

// NodeType tags every AST node.
type NodeType string

const (
	ProgramNode             NodeType = "Program"
	EmptyStatementNode      NodeType = "EmptyStatement"
	ExpressionStatementNode NodeType = "ExpressionStatement"

	SelectExpression NodeType = "SelectExpression"
	FromExpression   NodeType = "FromExpression"
	UpdateExpression NodeType = "UpdateExpression"
	InsertExpression NodeType = "InsertExpression"
	DeleteExpression NodeType = "DeleteExpression"
	ValuesExpression NodeType = "ValuesExpression"
	WhereExpression  NodeType = "WhereExpression"
	SetExpression    NodeType = "SetExpression"
	JoinExpression   NodeType = "JoinExpression"
	OnExpression     NodeType = "OnExpression"
	OrderExpression  NodeType = "OrderExpression"

	IdentifierNode     NodeType = "Identifier"
	ParamsNode         NodeType = "Params"
	AssignNode         NodeType = "Assign"
	NumericLiteralNode NodeType = "NumericLiteral"
	StringLiteralNode  NodeType = "StringLiteral"
	OrderOptionNode    NodeType = "OrderOption"
)

// Node is the base interface for all AST nodes.
type Node interface {
	node()
	Type() NodeType
	String() string
}

// Statement represents one ;-terminated statement.
type Statement interface {
	Node
	statement()
}

// Expression represents a clause or a value inside a clause.
type Expression interface {
	Node
	expression()
}

// ============================================================================
// Program and statements
// ============================================================================

// Program is the root of every parse.
type Program struct {
	Body []Statement
}

func (p *Program) node()          {}
func (p *Program) Type() NodeType { return ProgramNode }
func (p *Program) String() string {
	parts := make([]string, len(p.Body))
	for i, s := range p.Body {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// EmptyStatement is a lone ";".
type EmptyStatement struct{}

func (s *EmptyStatement) node()          {}
func (s *EmptyStatement) statement()     {}
func (s *EmptyStatement) Type() NodeType { return EmptyStatementNode }
func (s *EmptyStatement) String() string { return ";" }

// ExpressionStatement wraps one clause chain (or a bare literal).
// Expression is nil when the statement failed to parse.
type ExpressionStatement struct {
	Expression Expression
}

func (s *ExpressionStatement) node()          {}
func (s *ExpressionStatement) statement()     {}
func (s *ExpressionStatement) Type() NodeType { return ExpressionStatementNode }
func (s *ExpressionStatement) String() string {
	if s.Expression == nil {
		return "<invalid>;"
	}
	return s.Expression.String() + ";"
}

// ============================================================================
// Clauses
// ============================================================================

var clauseKeywords = map[NodeType]string{
	SelectExpression: "SELECT",
	FromExpression:   "FROM",
	UpdateExpression: "UPDATE",
	InsertExpression: "INSERT INTO",
	DeleteExpression: "DELETE",
	ValuesExpression: "VALUES",
	WhereExpression:  "WHERE",
	SetExpression:    "SET",
	JoinExpression:   "JOIN",
	OnExpression:     "ON",
	OrderExpression:  "ORDER BY",
}

// Clause is one keyword and its arguments, linked to the following clause
// of the same statement through Next.
//
// Example: ORDER BY name, age DESC
//
//	Clause{Kind: OrderExpression, Args: [name, age], Order: DESC}
type Clause struct {
	Kind  NodeType
	Args  []Expression // Identifier, Params or Assign, in source order
	Order *OrderOption // trailing ASC/DESC, if any
	Next  *Clause
}

func (c *Clause) node()          {}
func (c *Clause) expression()    {}
func (c *Clause) Type() NodeType { return c.Kind }

// Value returns the clause's first argument, or nil for argument-less
// clauses such as DELETE.
func (c *Clause) Value() Expression {
	if len(c.Args) == 0 {
		return nil
	}
	return c.Args[0]
}

func (c *Clause) String() string {
	var b strings.Builder
	b.WriteString(clauseKeywords[c.Kind])
	for i, arg := range c.Args {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	if c.Order != nil {
		b.WriteString(" " + c.Order.String())
	}
	if c.Next != nil {
		b.WriteString(" " + c.Next.String())
	}
	return b.String()
}

// ============================================================================
// Values
// ============================================================================

// Identifier is a column name, table name, csv path or "*".
type Identifier struct {
	Name string
}

func (i *Identifier) node()          {}
func (i *Identifier) expression()    {}
func (i *Identifier) Type() NodeType { return IdentifierNode }
func (i *Identifier) String() string { return i.Name }

// Params is a parenthesized, comma-separated value list.
type Params struct {
	Values []string
}

func (p *Params) node()          {}
func (p *Params) expression()    {}
func (p *Params) Type() NodeType { return ParamsNode }
func (p *Params) String() string { return "(" + strings.Join(p.Values, ", ") + ")" }

// Assign is a key=value pair in SET, WHERE or ON.
type Assign struct {
	Op    string
	Left  *Identifier
	Right Expression // Identifier, NumericLiteral or StringLiteral
}

func (a *Assign) node()          {}
func (a *Assign) expression()    {}
func (a *Assign) Type() NodeType { return AssignNode }
func (a *Assign) String() string {
	return fmt.Sprintf("%s %s %s", a.Left, a.Op, a.Right)
}

// NumericLiteral keeps both the parsed value and the source text, so
// "25" and "25.0" stay distinguishable when compared against CSV cells.
type NumericLiteral struct {
	Value   float64
	Literal string
}

func (n *NumericLiteral) node()          {}
func (n *NumericLiteral) expression()    {}
func (n *NumericLiteral) Type() NodeType { return NumericLiteralNode }
func (n *NumericLiteral) String() string { return n.Literal }

// StringLiteral holds a quoted value with its quotes removed.
type StringLiteral struct {
	Value string
}

func (s *StringLiteral) node()          {}
func (s *StringLiteral) expression()    {}
func (s *StringLiteral) Type() NodeType { return StringLiteralNode }
func (s *StringLiteral) String() string { return "'" + s.Value + "'" }

// OrderOption is ASC or DESC.
type OrderOption struct {
	Value string
}

func (o *OrderOption) node()          {}
func (o *OrderOption) expression()    {}
func (o *OrderOption) Type() NodeType { return OrderOptionNode }
func (o *OrderOption) String() string { return o.Value }

// Desc reports whether the option requests descending order.
func (o *OrderOption) Desc() bool {
	return o != nil && o.Value == "DESC"
}
