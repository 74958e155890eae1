package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cabewaldrop/csvdb/internal/sqlerr"
)

// statusFor maps an error's kind to an HTTP status.
func statusFor(err error) int {
	switch sqlerr.KindOf(err) {
	case sqlerr.KindLex, sqlerr.KindSyntax, sqlerr.KindSemantic:
		return http.StatusBadRequest
	case sqlerr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorHint returns a helpful hint for common query errors, or "".
func GetErrorHint(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var e *sqlerr.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	msg = strings.ToLower(msg)

	switch {
	case strings.HasPrefix(msg, "column ") && strings.Contains(msg, "does not exist"):
		return "Check the column name. GET /api/tables/{name} lists a table's columns."
	case strings.HasPrefix(msg, "table ") && strings.Contains(msg, "does not exist"):
		return "Check the table name. GET /api/tables lists the available tables."
	case strings.Contains(msg, "expects") && strings.Contains(msg, "values"):
		return "INSERT needs one value per column, in header order."
	case strings.Contains(msg, "needs a where clause"):
		return "UPDATE and DELETE only touch rows selected with WHERE column = value."
	case strings.Contains(msg, "needs a set clause"):
		return "Use SET column = value to say what to change."
	case strings.Contains(msg, "row ids cannot be updated"):
		return "The id column is assigned by the database and never changes."
	case strings.Contains(msg, "on expects two columns"), strings.Contains(msg, "needs an on clause"):
		return "Write the join condition as ON left.column = right.column."
	}

	switch sqlerr.KindOf(err) {
	case sqlerr.KindLex:
		return "The query contains characters csvdb does not understand. Quote text values with ' or \"."
	case sqlerr.KindSyntax:
		return "Check the query syntax near the indicated position. Every statement ends with ;."
	case sqlerr.KindIO:
		return "A table file could not be read or written. Check that it exists and is writable."
	}
	return ""
}
