package storage

import (
	"fmt"
	"strings"
)

// Helpers for building dynamically sized parameterized queries. Caller
// supplied values are always bound as parameters, never interpolated into
// query text.

// questionMarks returns n comma separated '?' markers, for SQLite style
// IN (...) clauses.
func questionMarks(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

// dollarMarks returns n comma separated $N markers starting at start, for
// Postgres style IN (...) clauses.
func dollarMarks(start, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(marks, ", ")
}

// stringArgs converts a string slice to query arguments.
func stringArgs(vals []string) []interface{} {
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
