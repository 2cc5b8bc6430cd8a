package executor

import (
	"database/sql"
	"strings"
	"unicode"

	"github.com/leapstack-labs/leapmapper/pkg/mapping"
)

// ResultOptions are the settings that shape map results.
type ResultOptions struct {
	MapUnderscoreToCamelCase  bool
	CallSettersOnNulls        bool
	ReturnInstanceForEmptyRow bool
}

// DefaultResultSetHandler returns each row as a map keyed by column label.
type DefaultResultSetHandler struct {
	ms   *mapping.MappedStatement
	opts ResultOptions
}

func NewDefaultResultSetHandler(ms *mapping.MappedStatement, opts ResultOptions) *DefaultResultSetHandler {
	return &DefaultResultSetHandler{ms: ms, opts: opts}
}

// HandleResultSets reads and closes rows. Null columns are left out of a
// row unless CallSettersOnNulls is set; a row of nulls only is dropped
// unless ReturnInstanceForEmptyRow is set.
func (h *DefaultResultSetHandler) HandleResultSets(rows *sql.Rows) ([]Row, error) {
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c
		if h.opts.MapUnderscoreToCamelCase {
			keys[i] = camelCase(c)
		}
	}

	var out []Row
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		empty := true
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if v == nil && !h.opts.CallSettersOnNulls {
				continue
			}
			if v != nil {
				empty = false
			}
			row[keys[i]] = v
		}
		if empty && !h.opts.ReturnInstanceForEmptyRow {
			continue
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// camelCase maps "user_name" to "userName".
func camelCase(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	var b strings.Builder
	upper := false
	for i, r := range strings.ToLower(s) {
		if r == '_' {
			upper = i > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
