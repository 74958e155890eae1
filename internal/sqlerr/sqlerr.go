// Package sqlerr defines the error kinds produced while tokenizing, parsing
// and executing statements.
//
// EDUCATIONAL NOTES:
// ------------------
// A query can fail at three different stages, and callers usually want to
// react differently to each:
//
//   - Lex errors: no token rule matches the remaining input.
//   - Syntax errors: the tokens don't form a valid clause chain.
//   - Semantic errors: the statement is well formed but can't run against the
//     current database (unknown table, missing WHERE, wrong value count...).
//
// IO errors cover the table files themselves. Every error carries its Kind so
// the REPL and the HTTP API can decide how to report it without string
// matching.

package sqlerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the stage that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindLex
	KindSyntax
	KindSemantic
	KindNotFound
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindSyntax:
		return "syntax error"
	case KindSemantic:
		return "semantic error"
	case KindNotFound:
		return "not found"
	case KindIO:
		return "io error"
	default:
		return "error"
	}
}

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Lexf creates a lex error.
func Lexf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindLex, Message: fmt.Sprintf(format, args...)}
}

// Syntaxf creates a syntax error.
func Syntaxf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...)}
}

// Semanticf creates a semantic error.
func Semanticf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindSemantic, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not-found error (unknown table or column).
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// IOf wraps err as an IO error with a formatted message.
func IOf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindIO, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
// It returns KindUnknown for nil and for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
