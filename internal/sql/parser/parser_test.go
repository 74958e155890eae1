package parser

import (
	"testing"

	"github.com/cabewaldrop/csvdb/internal/sql/lexer"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
)

// parseOne parses input that must contain exactly one valid expression
// statement and returns its expression.
func parseOne(t *testing.T, input string) Expression {
	t.Helper()

	l := lexer.New(input)
	p := New(l)
	prog := p.Parse()
	if err := p.Err(); err != nil {
		t.Fatalf("Parse(%q) error: %v", input, err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("Parse(%q) expected 1 statement, got %d", input, len(prog.Body))
	}
	stmt, ok := prog.Body[0].(*ExpressionStatement)
	if !ok {
		t.Fatalf("Parse(%q) expected ExpressionStatement, got %T", input, prog.Body[0])
	}
	if stmt.Expression == nil {
		t.Fatalf("Parse(%q) expected an expression", input)
	}
	return stmt.Expression
}

func identNames(t *testing.T, args []Expression) []string {
	t.Helper()

	names := make([]string, len(args))
	for i, arg := range args {
		id, ok := arg.(*Identifier)
		if !ok {
			t.Fatalf("arg %d: expected Identifier, got %T", i, arg)
		}
		names[i] = id.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseNumericLiteralStatement(t *testing.T) {
	expr := parseOne(t, "42;")

	num, ok := expr.(*NumericLiteral)
	if !ok {
		t.Fatalf("expected NumericLiteral, got %T", expr)
	}
	if num.Value != 42 {
		t.Errorf("expected 42, got %v", num.Value)
	}
	if num.Literal != "42" {
		t.Errorf("expected literal %q, got %q", "42", num.Literal)
	}
}

func TestParseStringLiteralStatement(t *testing.T) {
	expr := parseOne(t, "'hello';")

	str, ok := expr.(*StringLiteral)
	if !ok {
		t.Fatalf("expected StringLiteral, got %T", expr)
	}
	if str.Value != "hello" {
		t.Errorf("expected %q, got %q", "hello", str.Value)
	}
}

func TestParseSelect(t *testing.T) {
	expr := parseOne(t, "SELECT id, name FROM students;")

	sel, ok := expr.(*Clause)
	if !ok || sel.Kind != SelectExpression {
		t.Fatalf("expected SelectExpression, got %v", expr)
	}
	if got := identNames(t, sel.Args); !equalStrings(got, []string{"id", "name"}) {
		t.Errorf("expected columns [id name], got %v", got)
	}
	if id, ok := sel.Value().(*Identifier); !ok || id.Name != "id" {
		t.Errorf("expected Value() to be the first identifier, got %v", sel.Value())
	}

	from := sel.Next
	if from == nil || from.Kind != FromExpression {
		t.Fatalf("expected FromExpression after SELECT, got %v", from)
	}
	if got := identNames(t, from.Args); !equalStrings(got, []string{"students"}) {
		t.Errorf("expected FROM students, got %v", got)
	}
	if from.Next != nil {
		t.Errorf("expected end of chain, got %v", from.Next)
	}
}

func TestParseSelectPipeline(t *testing.T) {
	expr := parseOne(t, "SELECT a, b FROM t WHERE x = 1 ORDER BY a, b DESC;")

	var kinds []NodeType
	for c := expr.(*Clause); c != nil; c = c.Next {
		kinds = append(kinds, c.Kind)
	}
	expected := []NodeType{SelectExpression, FromExpression, WhereExpression, OrderExpression}
	if len(kinds) != len(expected) {
		t.Fatalf("expected chain %v, got %v", expected, kinds)
	}
	for i := range expected {
		if kinds[i] != expected[i] {
			t.Errorf("clause %d: expected %s, got %s", i, expected[i], kinds[i])
		}
	}

	order := expr.(*Clause).Next.Next.Next
	if got := identNames(t, order.Args); !equalStrings(got, []string{"a", "b"}) {
		t.Errorf("expected ORDER BY [a b], got %v", got)
	}
	if !order.Order.Desc() {
		t.Errorf("expected DESC, got %v", order.Order)
	}
}

func TestParseWhereKeypairs(t *testing.T) {
	expr := parseOne(t, "SELECT * FROM students WHERE age = '25', name = Bo, score = 9.5;")

	where := expr.(*Clause).Next.Next
	if where.Kind != WhereExpression {
		t.Fatalf("expected WhereExpression, got %s", where.Kind)
	}
	if len(where.Args) != 3 {
		t.Fatalf("expected 3 predicates, got %d", len(where.Args))
	}

	tests := []struct {
		column string
		right  NodeType
		value  string
	}{
		{"age", StringLiteralNode, "'25'"},
		{"name", IdentifierNode, "Bo"},
		{"score", NumericLiteralNode, "9.5"},
	}

	for i, tt := range tests {
		assign, ok := where.Args[i].(*Assign)
		if !ok {
			t.Fatalf("arg %d: expected Assign, got %T", i, where.Args[i])
		}
		if assign.Op != "=" {
			t.Errorf("arg %d: expected op =, got %q", i, assign.Op)
		}
		if assign.Left.Name != tt.column {
			t.Errorf("arg %d: expected column %q, got %q", i, tt.column, assign.Left.Name)
		}
		if assign.Right.Type() != tt.right {
			t.Errorf("arg %d: expected %s, got %s", i, tt.right, assign.Right.Type())
		}
		if assign.Right.String() != tt.value {
			t.Errorf("arg %d: expected %q, got %q", i, tt.value, assign.Right.String())
		}
	}
}

func TestParseInsert(t *testing.T) {
	expr := parseOne(t, "INSERT INTO students VALUES (Cy, 40);")

	insert := expr.(*Clause)
	if insert.Kind != InsertExpression {
		t.Fatalf("expected InsertExpression, got %s", insert.Kind)
	}
	if got := identNames(t, insert.Args); !equalStrings(got, []string{"students"}) {
		t.Errorf("expected INSERT INTO students, got %v", got)
	}

	values := insert.Next
	if values == nil || values.Kind != ValuesExpression {
		t.Fatalf("expected ValuesExpression, got %v", values)
	}
	params, ok := values.Value().(*Params)
	if !ok {
		t.Fatalf("expected Params, got %T", values.Value())
	}
	if !equalStrings(params.Values, []string{"Cy", "40"}) {
		t.Errorf("expected [Cy 40], got %v", params.Values)
	}
}

func TestParseParamsQuotes(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"VALUES ('Ann', \"x y\", 3);", []string{"Ann", "x y", "3"}},
		{"VALUES ( a ,b );", []string{"a", "b"}},
		{"VALUES ();", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr := parseOne(t, tt.input)
			params := expr.(*Clause).Value().(*Params)
			if !equalStrings(params.Values, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, params.Values)
			}
		})
	}
}

func TestParseUpdate(t *testing.T) {
	expr := parseOne(t, "UPDATE students SET age = 31, name = 'Annie' WHERE id = 0;")

	update := expr.(*Clause)
	if update.Kind != UpdateExpression {
		t.Fatalf("expected UpdateExpression, got %s", update.Kind)
	}

	set := update.Next
	if set == nil || set.Kind != SetExpression || len(set.Args) != 2 {
		t.Fatalf("expected SET with 2 pairs, got %v", set)
	}
	if set.Args[1].(*Assign).Right.(*StringLiteral).Value != "Annie" {
		t.Errorf("unexpected second pair %v", set.Args[1])
	}

	where := set.Next
	if where == nil || where.Kind != WhereExpression {
		t.Fatalf("expected WHERE after SET, got %v", where)
	}
}

func TestParseDelete(t *testing.T) {
	tests := []struct {
		input  string
		chain  []NodeType
		output string
	}{
		{"DELETE FROM t WHERE id = 3;", []NodeType{DeleteExpression, FromExpression, WhereExpression}, "DELETE FROM t WHERE id = 3;"},
		{"DELETE FROM t;", []NodeType{DeleteExpression, FromExpression}, "DELETE FROM t;"},
		{"DELETE;", []NodeType{DeleteExpression}, "DELETE;"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr := parseOne(t, tt.input)

			var kinds []NodeType
			for c := expr.(*Clause); c != nil; c = c.Next {
				kinds = append(kinds, c.Kind)
			}
			if len(kinds) != len(tt.chain) {
				t.Fatalf("expected chain %v, got %v", tt.chain, kinds)
			}
			for i := range kinds {
				if kinds[i] != tt.chain[i] {
					t.Errorf("clause %d: expected %s, got %s", i, tt.chain[i], kinds[i])
				}
			}
			if got := expr.String() + ";"; got != tt.output {
				t.Errorf("expected %q, got %q", tt.output, got)
			}
			if expr.(*Clause).Value() != nil {
				t.Error("DELETE should not carry arguments")
			}
		})
	}
}

func TestParseJoin(t *testing.T) {
	tests := []struct {
		input string
		args  int
	}{
		{"SELECT * FROM a JOIN b ON a.id, b.a_id;", 2},
		{"SELECT * FROM a JOIN b ON a.id = b.a_id;", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr := parseOne(t, tt.input)

			join := expr.(*Clause).Next.Next
			if join.Kind != JoinExpression {
				t.Fatalf("expected JoinExpression, got %s", join.Kind)
			}
			on := join.Next
			if on == nil || on.Kind != OnExpression {
				t.Fatalf("expected OnExpression, got %v", on)
			}
			if len(on.Args) != tt.args {
				t.Errorf("expected %d ON args, got %d", tt.args, len(on.Args))
			}
		})
	}
}

func TestParseMissingArgument(t *testing.T) {
	l := lexer.New("FROM ;")
	p := New(l)
	prog := p.Parse()

	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	stmt, ok := prog.Body[0].(*ExpressionStatement)
	if !ok {
		t.Fatalf("expected ExpressionStatement, got %T", prog.Body[0])
	}
	if stmt.Expression != nil {
		t.Errorf("expected nil expression, got %v", stmt.Expression)
	}

	err := p.Err()
	if !sqlerr.IsKind(err, sqlerr.KindSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if p.Err() != nil {
		t.Error("Err should clear the pending error once read")
	}
}

func TestParseContinuesAfterError(t *testing.T) {
	prog, err := ParseString("FROM ; SELECT a FROM t;")
	if err == nil {
		t.Fatal("expected an error for the first statement")
	}
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Body))
	}

	first := prog.Body[0].(*ExpressionStatement)
	if first.Expression != nil {
		t.Errorf("first statement should be nil, got %v", first.Expression)
	}
	second := prog.Body[1].(*ExpressionStatement)
	if second.Expression == nil || second.Expression.String() != "SELECT a FROM t" {
		t.Errorf("second statement should parse, got %v", second.Expression)
	}
}

func TestParseEmptyStatements(t *testing.T) {
	prog, err := ParseString(";;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Body))
	}
	for i, stmt := range prog.Body {
		if _, ok := stmt.(*EmptyStatement); !ok {
			t.Errorf("statement %d: expected EmptyStatement, got %T", i, stmt)
		}
	}
}

func TestParseMultipleStatements(t *testing.T) {
	prog, err := ParseString("SELECT * FROM a; SELECT * FROM b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Body))
	}
	if prog.String() != "SELECT * FROM a; SELECT * FROM b;" {
		t.Errorf("unexpected program string %q", prog.String())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"SELECT FROM users;",
		"SELECT a, FROM t;",
		"SELECT a FROM t WHERE x = ;",
		"VALUES (a) = 1;",
		"SELECT a FROM t 42;",
		"users;",
		"SELECT a FROM t ! garbage",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			prog, err := ParseString(input)
			if err == nil {
				t.Fatalf("expected error for %q", input)
			}
			if len(prog.Body) == 0 {
				t.Fatal("expected at least one statement")
			}
			if es, ok := prog.Body[0].(*ExpressionStatement); !ok || es.Expression != nil {
				t.Errorf("failed statement should have nil expression, got %v", prog.Body[0])
			}
		})
	}
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	expr := parseOne(t, "select name from students where age = 25 order by name asc")

	c := expr.(*Clause)
	if c.String() != "SELECT name FROM students WHERE age = 25 ORDER BY name ASC" {
		t.Errorf("unexpected chain %q", c.String())
	}
}
