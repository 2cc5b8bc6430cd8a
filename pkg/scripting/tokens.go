package scripting

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
)

// replaceTokens rewrites every open...close token of text with fn(content).
// Escaped openings lose their backslash and are kept; an unterminated
// token is kept as is.
func replaceTokens(text, open, close string, fn func(content string) (string, error)) (string, error) {
	var b strings.Builder
	for {
		i := strings.Index(text, open)
		if i < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		if i > 0 && text[i-1] == '\\' {
			b.WriteString(text[:i-1])
			b.WriteString(open)
			text = text[i+len(open):]
			continue
		}
		end := strings.Index(text[i+len(open):], close)
		if end < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		b.WriteString(text[:i])
		out, err := fn(text[i+len(open) : i+len(open)+end])
		if err != nil {
			return "", err
		}
		b.WriteString(out)
		text = text[i+len(open)+end+len(close):]
	}
}

func hasToken(text, open string) bool {
	for {
		i := strings.Index(text, open)
		if i < 0 {
			return false
		}
		if i == 0 || text[i-1] != '\\' {
			return true
		}
		text = text[i+len(open):]
	}
}

// parseParameters replaces #{...} tokens with "?" and returns the mappings.
func parseParameters(text string) (string, []mapping.ParameterMapping, error) {
	var mappings []mapping.ParameterMapping
	sql, err := replaceTokens(text, "#{", "}", func(content string) (string, error) {
		pm, err := parseParameterMapping(content)
		if err != nil {
			return "", err
		}
		mappings = append(mappings, pm)
		return "?", nil
	})
	return sql, mappings, err
}

func parseParameterMapping(content string) (mapping.ParameterMapping, error) {
	parts := strings.Split(content, ",")
	pm := mapping.ParameterMapping{Property: strings.TrimSpace(parts[0])}
	if pm.Property == "" {
		return pm, fmt.Errorf("parameter expression #{%s} has no property", content)
	}
	for _, attr := range parts[1:] {
		k, v, ok := strings.Cut(attr, "=")
		if !ok {
			return pm, fmt.Errorf("invalid parameter attribute %q in #{%s}", attr, content)
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch k {
		case "sqlType", "jdbcType":
			st, err := core.ParseSQLType(v)
			if err != nil {
				return pm, fmt.Errorf("#{%s}: %w", content, err)
			}
			pm.SQLType = st
		default:
			return pm, fmt.Errorf("unknown parameter attribute %q in #{%s}", k, content)
		}
	}
	return pm, nil
}
