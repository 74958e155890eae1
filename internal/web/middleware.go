package web

import (
	"context"
	"net/http"

	"github.com/cabewaldrop/csvdb/internal/sql/executor"
)

// contextKey keeps our context values from colliding with other packages'.
type contextKey string

const executorKey contextKey = "executor"

// WithExecutor returns middleware that stores exec in the request context
// for GetExecutor.
//
// EDUCATIONAL NOTE:
// -----------------
// Storing the executor in the context lets the API handlers be tested
// with any executor, without building a whole Server:
//
//	h := WithExecutor(exec)(http.HandlerFunc(handler))
func WithExecutor(exec *executor.Executor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), executorKey, exec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetExecutor returns the executor stored by WithExecutor, or nil.
func GetExecutor(r *http.Request) *executor.Executor {
	exec, ok := r.Context().Value(executorKey).(*executor.Executor)
	if !ok {
		return nil
	}
	return exec
}

// RequireExecutor answers 503 with a JSON error when no executor is in the
// request context.
func RequireExecutor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetExecutor(r) == nil {
			writeJSON(w, http.StatusServiceUnavailable, APIResponse{
				Success: false,
				Error:   "database not initialized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
