package core

import "strconv"

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// Format returns the placeholder for the n-th (1-based) parameter.
func (s PlaceholderStyle) Format(n int) string {
	if s == PlaceholderDollar {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s PlaceholderStyle) String() string {
	if s == PlaceholderDollar {
		return "dollar"
	}
	return "question"
}
