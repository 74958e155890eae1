package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTableListPage(t *testing.T) {
	ts := setupTestServer(t)

	status, body := getBody(t, ts.URL+"/tables")
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	for _, want := range []string{`href="/tables/students"`, "students.csv", "<td>3</td>"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in table list", want)
		}
	}
}

func TestTableListPageWithoutExecutor(t *testing.T) {
	ts := httptest.NewServer(NewServer(0, nil).Router())
	defer ts.Close()

	status, _ := getBody(t, ts.URL+"/tables")
	if status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", status)
	}
}

func TestTableDataPage(t *testing.T) {
	ts := setupTestServer(t)

	status, body := getBody(t, ts.URL+"/tables/students")
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	for _, want := range []string{"<th>id</th>", "<th>name</th>", "<td>Ann</td>", "<td>Cy</td>", "of 3"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in table page", want)
		}
	}
	if strings.Contains(body, "Next") || strings.Contains(body, "Previous") {
		t.Error("a single page should have no navigation links")
	}
}

func TestTableDataPagination(t *testing.T) {
	ts := setupTestServer(t)

	_, first := getBody(t, ts.URL+"/tables/students?limit=2")
	if !strings.Contains(first, "/tables/students?limit=2&amp;offset=2") {
		t.Error("expected a next link on the first page")
	}
	if strings.Contains(first, "<td>Cy</td>") {
		t.Error("first page should stop after two rows")
	}

	_, second := getBody(t, ts.URL+"/tables/students?limit=2&offset=2")
	if !strings.Contains(second, "<td>Cy</td>") {
		t.Error("expected Cy on the second page")
	}
	if !strings.Contains(second, "/tables/students?limit=2&amp;offset=0") {
		t.Error("expected a previous link on the second page")
	}
}

func TestTableDataNotFound(t *testing.T) {
	ts := setupTestServer(t)

	status, body := getBody(t, ts.URL+"/tables/teachers")
	if status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", status)
	}
	if !strings.Contains(body, "does not exist") {
		t.Error("expected an error message on the page")
	}
}

func TestTableDataEscapesValues(t *testing.T) {
	exec := createTestExecutor(t)
	if _, err := exec.ExecuteSQL(`INSERT INTO students VALUES ('<b>x</b>', 1);`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ts := httptest.NewServer(NewServer(0, exec).Router())
	defer ts.Close()

	_, body := getBody(t, ts.URL+"/tables/students")
	if strings.Contains(body, "<b>x</b>") {
		t.Error("cell values must be HTML-escaped")
	}
	if !strings.Contains(body, "&lt;b&gt;x&lt;/b&gt;") {
		t.Error("expected escaped cell value")
	}
}
