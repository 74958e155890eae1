package web

import "regexp"

// tableNamePattern matches table names the lexer reads back as a single
// identifier that is not a file path.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidTableName reports whether s can be used as a table name in a URL.
//
// Examples:
//
//	IsValidTableName("students")   // true
//	IsValidTableName("class-2024") // true
//	IsValidTableName("a b")        // false
//	IsValidTableName("a/b.csv")    // false (paths are SQL-only)
//	IsValidTableName("")           // false
func IsValidTableName(s string) bool {
	return tableNamePattern.MatchString(s)
}

// pageBounds clamps offset and limit to n rows and returns the slice
// bounds of the page.
func pageBounds(n, offset, limit int) (start, end int) {
	start = offset
	if start > n {
		start = n
	}
	end = start + limit
	if end > n {
		end = n
	}
	return start, end
}
