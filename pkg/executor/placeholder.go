package executor

import (
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// RewritePlaceholders replaces the "?" markers of sql, outside quoted
// text, with the markers of style.
func RewritePlaceholders(sql string, style core.PlaceholderStyle) string {
	if style == core.PlaceholderQuestion || !strings.Contains(sql, "?") {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteString(style.Format(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
