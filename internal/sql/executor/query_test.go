package executor

import (
	"reflect"
	"testing"

	"github.com/cabewaldrop/csvdb/internal/sqlerr"
)

// TestQueryMatchesSQL checks that each builder chain produces the same
// request as the SQL text it mirrors.
func TestQueryMatchesSQL(t *testing.T) {
	tests := []struct {
		sql   string
		query *Query
	}{
		{
			"SELECT id, name FROM students;",
			NewQuery().From("students").Select("id", "name"),
		},
		{
			"SELECT s.name FROM students WHERE age = '25', name = Bo ORDER BY name, age DESC;",
			NewQuery().Select("s.name").From("students").Where("age", "25").Where("name", "Bo").Order(true, "name", "age"),
		},
		{
			"INSERT INTO students VALUES (Cy, 40);",
			NewQuery().Insert("students").Values("Cy", "40"),
		},
		{
			"UPDATE students SET age = 31, name = \"Annie\" WHERE id = 0;",
			NewQuery().Update("students").Set("age", "31").Set("name", "Annie").Where("id", "0"),
		},
		{
			"DELETE FROM students WHERE name = Ann;",
			NewQuery().Delete().From("students").Where("name", "Ann"),
		},
		{
			"SELECT * FROM a WHERE x = 1 JOIN b ON a.k = b.k2 WHERE y = 2;",
			NewQuery().Select("*").From("a").Where("x", "1").Join("a.k", "b", "b.k2").Where("y", "2"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			want, err := buildOne(t, tt.sql)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			got, err := tt.query.Request()
			if err != nil {
				t.Fatalf("Request: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("builder and SQL disagree\n got  %+v\n want %+v", *got, *want)
			}
		})
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
	}{
		{"no action", NewQuery().From("students")},
		{"no table", NewQuery().Select("name")},
		{"empty select", NewQuery().Select().From("students")},
		{"empty order", NewQuery().Select("*").From("students").Order(false)},
		{"join without select", NewQuery().Delete().From("a").Join("x", "b", "y")},
		{"join without table", NewQuery().Select("*").From("a").Join("x", "", "y")},
		{"join without columns", NewQuery().Select("*").From("a").Join("", "b", "y")},
		{"empty set column", NewQuery().Update("students").Set("", "x")},
		{"empty where column", NewQuery().Select("*").From("students").Where("", "x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.query.Request(); !sqlerr.IsKind(err, sqlerr.KindSemantic) {
				t.Errorf("expected semantic error, got %v", err)
			}
		})
	}
}

func TestRunQuery(t *testing.T) {
	exec, _ := setupTestExecutor(t)

	if _, err := exec.RunQuery(NewQuery().Insert("students").Values("Cy", "41")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := exec.RunQuery(NewQuery().Update("students").Set("age", "26").Where("name", "Bo")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := exec.RunQuery(NewQuery().Delete().From("students").Where("name", "Ann")); err != nil {
		t.Fatalf("delete: %v", err)
	}

	result, err := exec.RunQuery(NewQuery().From("students").Select("name", "age").Order(true, "age"))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := rowsString(result); got != "Cy,41;Bo,26" {
		t.Errorf("expected Cy,41;Bo,26, got %s", got)
	}

	result, err = exec.RunQuery(NewQuery().Select("name", "class").From("students").Join("name", "classes", "student"))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.RowCount != 2 {
		t.Errorf("expected 2 joined rows, got %d", result.RowCount)
	}

	if _, err := exec.RunQuery(NewQuery().From("students")); !sqlerr.IsKind(err, sqlerr.KindSemantic) {
		t.Errorf("expected semantic error for an incomplete query, got %v", err)
	}
}
