package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/table"
)

const pageStyle = `
        body { font-family: system-ui, sans-serif; margin: 20px; }
        table { border-collapse: collapse; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
        th { background-color: #f4f4f4; }
        .nav a { margin-right: 10px; }
        .empty { color: #666; font-style: italic; }
        .error { color: red; }
        h1 a { color: inherit; text-decoration: none; }`

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>csvdb</title>
    <style>` + pageStyle + `</style>
</head>
<body>
    <h1>csvdb</h1>
    <p>A small SQL database stored in CSV files.</p>
    <ul>
        <li><a href="/tables">Browse tables</a> ({{.}})</li>
        <li>POST <code>/api/query</code> with <code>{"sql": "SELECT * FROM t;"}</code> to run queries</li>
        <li><a href="/health">Health check</a></li>
    </ul>
</body>
</html>`))

var tableListTemplate = template.Must(template.New("tableList").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Tables - csvdb</title>
    <style>` + pageStyle + `</style>
</head>
<body>
    <h1><a href="/">csvdb</a> / tables</h1>
    {{if .}}
    <table>
        <thead><tr><th>Name</th><th>Columns</th><th>Rows</th><th>File</th></tr></thead>
        <tbody>
        {{range .}}<tr><td><a href="/tables/{{.Name}}">{{.Name}}</a></td><td>{{.Columns}}</td><td>{{.Rows}}</td><td>{{.Path}}</td></tr>
        {{end}}
        </tbody>
    </table>
    {{else}}
    <p class="empty">No tables yet. Use .import in the REPL to add one.</p>
    {{end}}
</body>
</html>`))

// tableDataPage holds data for rendering one page of a table.
type tableDataPage struct {
	TableName string
	Columns   []string
	Rows      [][]string
	Offset    int
	OffsetEnd int
	Total     int
	PrevURL   string
	NextURL   string
	Error     string
}

var tableDataTemplate = template.Must(template.New("tableData").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.TableName}} - csvdb</title>
    <style>` + pageStyle + `</style>
</head>
<body>
    <h1><a href="/">csvdb</a> / <a href="/tables">tables</a> / {{.TableName}}</h1>
    {{if .Error}}
        <p class="error">{{.Error}}</p>
    {{else if not .Rows}}
        <p class="empty">This table is empty.</p>
    {{else}}
        <p class="nav">
            {{if .PrevURL}}<a href="{{.PrevURL}}">&larr; Previous</a>{{end}}
            {{if .NextURL}}<a href="{{.NextURL}}">Next &rarr;</a>{{end}}
            Showing rows {{.Offset}} - {{.OffsetEnd}} of {{.Total}}
        </p>
        <table>
            <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
            <tbody>
                {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
                {{end}}
            </tbody>
        </table>
    {{end}}
</body>
</html>`))

type tableSummary struct {
	Name    string
	Columns int
	Rows    int
	Path    string
}

// renderHTML writes a page with the given status.
func renderHTML(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Warn("render %s: %v", tmpl.Name(), err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	status := "database not initialized"
	if s.executor != nil {
		s.locked(func() {
			status = fmt.Sprintf("%d tables", len(s.executor.GetTables()))
		})
	}
	renderHTML(w, http.StatusOK, indexTemplate, status)
}

// handleHealth is used by load balancers and monitoring.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleTableList(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		http.Error(w, "database not initialized", http.StatusServiceUnavailable)
		return
	}

	var summaries []tableSummary
	s.locked(func() {
		for _, name := range s.executor.GetTables() {
			tbl, ok := s.executor.GetTable(name)
			if !ok {
				continue
			}
			summaries = append(summaries, tableSummary{
				Name:    name,
				Columns: len(tbl.Headers()),
				Rows:    tbl.Len(),
				Path:    tbl.Path(),
			})
		}
	})
	renderHTML(w, http.StatusOK, tableListTemplate, summaries)
}

// handleTableData renders one page of a table.
// GET /tables/{name}?limit=50&offset=0
func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	page := tableDataPage{TableName: name}

	if s.executor == nil {
		page.Error = "Database not initialized"
		renderHTML(w, http.StatusServiceUnavailable, tableDataTemplate, page)
		return
	}

	limit, offset := pageParams(r)

	var err error
	s.locked(func() {
		var tbl *table.Table
		_, tbl, err = lookupTable(r, s.executor)
		if err != nil {
			return
		}
		var rows []table.Row
		rows, err = tbl.Rows()
		if err != nil {
			return
		}

		start, end := pageBounds(len(rows), offset, limit)
		page.Columns = append([]string{table.IDColumn}, tbl.Headers()...)
		for _, row := range rows[start:end] {
			page.Rows = append(page.Rows, append([]string{strconv.Itoa(row.ID)}, row.Values...))
		}
		page.Offset, page.OffsetEnd, page.Total = start, end, len(rows)
	})
	if err != nil {
		page.Error = err.Error()
		renderHTML(w, statusFor(err), tableDataTemplate, page)
		return
	}

	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		page.PrevURL = fmt.Sprintf("/tables/%s?limit=%d&offset=%d", name, limit, prev)
	}
	if page.OffsetEnd < page.Total {
		page.NextURL = fmt.Sprintf("/tables/%s?limit=%d&offset=%d", name, limit, page.OffsetEnd)
	}
	renderHTML(w, http.StatusOK, tableDataTemplate, page)
}
