package parsing

import (
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// Keys that switch on and tune the ${key:default} syntax.
const (
	KeyEnableDefaultValue    = "parsing.enable-default-value"
	KeyDefaultValueSeparator = "parsing.default-value-separator"

	defaultSeparator = ":"
)

// Variables is the substitution context shared by every Node of a Document.
type Variables struct {
	props core.Properties
}

// NewVariables returns a context over a copy of props.
func NewVariables(props core.Properties) *Variables {
	return &Variables{props: props.Clone()}
}

// Set replaces the variable set.
func (v *Variables) Set(props core.Properties) {
	v.props = props.Clone()
}

// Properties returns a copy of the current variable set.
func (v *Variables) Properties() core.Properties {
	return v.props.Clone()
}

// Replace substitutes every ${key} in s. Unknown keys are left untouched.
// A backslash before ${ escapes the token.
func (v *Variables) Replace(s string) string {
	if v == nil || !strings.Contains(s, "${") {
		return s
	}
	defaults := v.props.Bool(KeyEnableDefaultValue, false)
	sep := v.props.GetOr(KeyDefaultValueSeparator, defaultSeparator)

	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		if start > 0 && rest[start-1] == '\\' {
			b.WriteString(rest[:start-1])
			b.WriteString("${")
			rest = rest[start+2:]
			continue
		}
		end := strings.Index(rest[start+2:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		key := rest[start+2 : start+2+end]
		b.WriteString(v.lookup(key, defaults, sep))
		rest = rest[start+2+end+1:]
	}
}

func (v *Variables) lookup(key string, defaults bool, sep string) string {
	if defaults {
		if name, def, found := strings.Cut(key, sep); found {
			if val, ok := v.props.Get(name); ok {
				return val
			}
			return def
		}
	}
	if val, ok := v.props.Get(key); ok {
		return val
	}
	return "${" + key + "}"
}
