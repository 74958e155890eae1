package storage

import (
	"strings"
	"testing"
)

const studentsCSV = `,name,age
0,Ann,30
1,Bo,25
3,Cy,25
`

func TestIndexesLoad(t *testing.T) {
	idx := NewIndexes([]string{"name", "age"})

	count, maxID, err := idx.Load(strings.NewReader(studentsCSV))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rows, got %d", count)
	}
	if maxID != 3 {
		t.Errorf("expected max id 3, got %d", maxID)
	}

	tests := []struct {
		term   string
		column string
		ids    []int
	}{
		{"25", "age", []int{1, 3}},
		{"Ann", "name", []int{0}},
		{"Ann", "age", nil},
		{"99", "age", nil},
		{"Ann", "missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.column+"="+tt.term, func(t *testing.T) {
			got := idx.Find(tt.term, tt.column)
			if !equalInts(got, tt.ids) {
				t.Errorf("Find(%q, %q) = %v, want %v", tt.term, tt.column, got, tt.ids)
			}
			if tt.ids == nil && got != nil {
				t.Errorf("expected nil, got %v", got)
			}
		})
	}
}

func TestIndexesLoadEmpty(t *testing.T) {
	tests := []string{"", ",name,age\n"}

	for _, input := range tests {
		idx := NewIndexes([]string{"name", "age"})
		count, maxID, err := idx.Load(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Load(%q): %v", input, err)
		}
		if count != 0 || maxID != -1 {
			t.Errorf("Load(%q) = (%d, %d), want (0, -1)", input, count, maxID)
		}
	}
}

func TestIndexesLoadBadID(t *testing.T) {
	idx := NewIndexes([]string{"name"})
	if _, _, err := idx.Load(strings.NewReader(",name\nx,Ann\n")); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestIndexesFindReturnsSortedCopy(t *testing.T) {
	idx := NewIndexes([]string{"v"})
	idx.InsertOne(5, "v", "a")
	idx.InsertOne(2, "v", "a")
	idx.InsertOne(9, "v", "a")

	got := idx.Find("a", "v")
	if !equalInts(got, []int{2, 5, 9}) {
		t.Fatalf("expected sorted ids, got %v", got)
	}

	got[0] = 100
	if again := idx.Find("a", "v"); again[0] != 2 {
		t.Error("Find must return a copy")
	}
}

func TestIndexesMaintenance(t *testing.T) {
	idx := NewIndexes([]string{"name", "age"})
	idx.Insert(0, []string{"Ann", "30"})
	idx.Insert(1, []string{"Bo", "30"})

	idx.Delete(0, "age", "30")
	if got := idx.Find("30", "age"); !equalInts(got, []int{1}) {
		t.Errorf("after Delete expected [1], got %v", got)
	}

	idx.DeleteAll("30", "age")
	if got := idx.Find("30", "age"); got != nil {
		t.Errorf("after DeleteAll expected nil, got %v", got)
	}
	if got := idx.Find("Bo", "name"); !equalInts(got, []int{1}) {
		t.Errorf("other columns must be untouched, got %v", got)
	}

	// Unknown columns are ignored.
	idx.InsertOne(2, "nope", "x")
	idx.Delete(2, "nope", "x")
	idx.DeleteAll("x", "nope")
}

func TestIndexesShortRow(t *testing.T) {
	idx := NewIndexes([]string{"name", "age"})
	idx.Insert(0, []string{"Ann"})

	if got := idx.Find("Ann", "name"); !equalInts(got, []int{0}) {
		t.Errorf("expected [0], got %v", got)
	}
	if !idx.Has("age") || idx.Has("id") {
		t.Error("Has reports the wrong columns")
	}
	cols := idx.Columns()
	if len(cols) != 2 || cols[0] != "name" || cols[1] != "age" {
		t.Errorf("unexpected columns %v", cols)
	}
}
