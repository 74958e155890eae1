package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sql/executor"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

// APIResponse wraps every API response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Hint    string      `json:"hint,omitempty"`
}

// TableListResponse contains the list of tables.
type TableListResponse struct {
	Tables []string `json:"tables"`
}

// TableSchemaResponse describes a table.
type TableSchemaResponse struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Columns   []string `json:"columns"`
	RowCount  int      `json:"row_count"`
	NextRowID int      `json:"next_id"`
}

// RowsResponse contains one page of a table. The first column is the row
// id.
type RowsResponse struct {
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	TotalCount int        `json:"total_count"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
	HasMore    bool       `json:"has_more"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// QueryResponse holds the result of the last statement of a query and the
// number of statements executed.
type QueryResponse struct {
	Columns    []string   `json:"columns,omitempty"`
	Rows       [][]string `json:"rows,omitempty"`
	RowCount   int        `json:"row_count"`
	Message    string     `json:"message,omitempty"`
	Statements int        `json:"statements"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("encode response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// writeError reports err with the status of its kind and a hint.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), APIResponse{
		Success: false,
		Error:   err.Error(),
		Hint:    GetErrorHint(err),
	})
}

// lookupTable resolves the {name} URL parameter.
func lookupTable(r *http.Request, exec *executor.Executor) (string, *table.Table, error) {
	name := chi.URLParam(r, "name")
	if !IsValidTableName(name) {
		return name, nil, sqlerr.Semanticf("invalid table name %q", name)
	}
	tbl, ok := exec.GetTable(name)
	if !ok {
		return name, nil, sqlerr.NotFoundf("table %s does not exist", name)
	}
	return name, tbl, nil
}

// handleAPITables lists the tables.
// GET /api/tables
func (s *Server) handleAPITables(w http.ResponseWriter, r *http.Request) {
	exec := GetExecutor(r)

	var tables []string
	s.locked(func() { tables = exec.GetTables() })
	if tables == nil {
		tables = []string{}
	}
	writeSuccess(w, TableListResponse{Tables: tables})
}

// handleAPITableSchema describes one table.
// GET /api/tables/{name}
func (s *Server) handleAPITableSchema(w http.ResponseWriter, r *http.Request) {
	exec := GetExecutor(r)

	var resp TableSchemaResponse
	var err error
	s.locked(func() {
		var name string
		var tbl *table.Table
		name, tbl, err = lookupTable(r, exec)
		if err != nil {
			return
		}
		resp = TableSchemaResponse{
			Name:      name,
			Path:      tbl.Path(),
			Columns:   tbl.Headers(),
			RowCount:  tbl.Len(),
			NextRowID: tbl.NextRowID(),
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, resp)
}

// handleAPITableRows returns one page of a table's rows.
// GET /api/tables/{name}/rows?limit=50&offset=0
func (s *Server) handleAPITableRows(w http.ResponseWriter, r *http.Request) {
	exec := GetExecutor(r)
	limit, offset := pageParams(r)

	var resp RowsResponse
	var err error
	s.locked(func() {
		var tbl *table.Table
		_, tbl, err = lookupTable(r, exec)
		if err != nil {
			return
		}
		var rows []table.Row
		rows, err = tbl.Rows()
		if err != nil {
			return
		}

		start, end := pageBounds(len(rows), offset, limit)
		resp = RowsResponse{
			Columns:    append([]string{table.IDColumn}, tbl.Headers()...),
			Rows:       make([][]string, 0, end-start),
			TotalCount: len(rows),
			Offset:     offset,
			Limit:      limit,
			HasMore:    end < len(rows),
		}
		for _, row := range rows[start:end] {
			resp.Rows = append(resp.Rows, append([]string{strconv.Itoa(row.ID)}, row.Values...))
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, resp)
}

// handleAPIQuery executes every statement in the request body.
// POST /api/query
func (s *Server) handleAPIQuery(w http.ResponseWriter, r *http.Request) {
	exec := GetExecutor(r)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sqlerr.Semanticf("invalid JSON body: %v", err))
		return
	}
	if req.SQL == "" {
		writeError(w, sqlerr.Semanticf("sql field is required"))
		return
	}

	var results []*executor.Result
	var err error
	s.locked(func() { results, err = exec.ExecuteSQL(req.SQL) })
	if err != nil {
		writeError(w, err)
		return
	}
	if len(results) == 0 {
		writeSuccess(w, QueryResponse{Message: "no statements executed"})
		return
	}

	last := results[len(results)-1]
	writeSuccess(w, QueryResponse{
		Columns:    last.Columns,
		Rows:       last.Rows,
		RowCount:   last.RowCount,
		Message:    last.Message,
		Statements: len(results),
	})
}

// pageParams reads limit and offset, falling back to defaults for missing
// or out-of-range values.
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxPageLimit {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
