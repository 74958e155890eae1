package executor

import (
	"reflect"
	"testing"

	"github.com/cabewaldrop/csvdb/internal/sql/parser"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

func buildOne(t *testing.T, sql string) (*Request, error) {
	t.Helper()

	prog, err := parser.ParseString(sql)
	if err != nil {
		t.Fatalf("ParseString(%q): %v", sql, err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	return Build(prog.Body[0])
}

func TestBuild(t *testing.T) {
	tests := []struct {
		sql      string
		expected Request
	}{
		{
			"SELECT id, name FROM students;",
			Request{Table: "students", Columns: []string{"id", "name"}, Action: ActionSelect},
		},
		{
			"SELECT s.name FROM students WHERE age = '25', name = Bo ORDER BY name, age DESC;",
			Request{
				Table:   "students",
				Columns: []string{"name"},
				Where:   []table.Predicate{{Column: "age", Term: "25"}, {Column: "name", Term: "Bo"}},
				Order:   table.Order{Columns: []string{"name", "age"}, Desc: true},
				Action:  ActionSelect,
			},
		},
		{
			"INSERT INTO students VALUES (Cy, 40);",
			Request{Table: "students", Values: []string{"Cy", "40"}, Action: ActionInsert},
		},
		{
			"UPDATE students SET age = 31, name = \"Annie\" WHERE id = 0;",
			Request{
				Table:  "students",
				Set:    []table.Assignment{{Column: "age", Value: "31"}, {Column: "name", Value: "Annie"}},
				Where:  []table.Predicate{{Column: "id", Term: "0"}},
				Action: ActionUpdate,
			},
		},
		{
			"DELETE FROM students WHERE name = Ann;",
			Request{
				Table:  "students",
				Where:  []table.Predicate{{Column: "name", Term: "Ann"}},
				Action: ActionDelete,
			},
		},
		{
			"SELECT * FROM a WHERE x = 1 JOIN b ON a.k = b.k2 WHERE y = 2;",
			Request{
				Table:   "a",
				Columns: []string{"*"},
				Where:   []table.Predicate{{Column: "x", Term: "1"}},
				Join: Join{
					Table: "b",
					On:    [2]string{"k", "k2"},
					Where: []table.Predicate{{Column: "y", Term: "2"}},
				},
				Action: ActionJoin,
			},
		},
		{
			"SELECT * FROM data/people.csv;",
			Request{Table: "data/people.csv", Columns: []string{"*"}, Action: ActionSelect},
		},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			req, err := buildOne(t, tt.sql)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !reflect.DeepEqual(*req, tt.expected) {
				t.Errorf("Build(%q)\n got  %+v\n want %+v", tt.sql, *req, tt.expected)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []string{
		"42;",
		"'just a string';",
		"FROM students;",
		"SELECT name;",
		"SELECT a = 1 FROM t;",
		"SELECT * FROM a, b;",
		"VALUES (a), (b);",
		"SELECT * FROM t WHERE name;",
		"SELECT * FROM a JOIN b ON x;",
		"SELECT * FROM a JOIN b ON x = 1;",
		"DELETE FROM a JOIN b ON x, y WHERE z = 1;",
		"SELECT name DESC FROM t;",
		"SELECT name FROM t ASC;",
		"SELECT * FROM t WHERE a = 1 DESC;",
	}

	for _, sql := range tests {
		t.Run(sql, func(t *testing.T) {
			if _, err := buildOne(t, sql); !sqlerr.IsKind(err, sqlerr.KindSemantic) {
				t.Errorf("expected semantic error, got %v", err)
			}
		})
	}
}

func TestBuildRejectsUnparsedStatements(t *testing.T) {
	if _, err := Build(&parser.ExpressionStatement{}); !sqlerr.IsKind(err, sqlerr.KindSemantic) {
		t.Errorf("expected semantic error for nil expression, got %v", err)
	}
	if _, err := Build(&parser.EmptyStatement{}); err == nil {
		t.Error("expected error for empty statement")
	}
}
