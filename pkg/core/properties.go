package core

import (
	"maps"
	"slices"
	"strconv"
)

// Properties is a flat set of string key/value pairs handed to configurable
// strategies (interceptors, factories, providers) and used as the variable
// set for text substitution.
type Properties map[string]string

// Get returns the value for key and whether it was present.
func (p Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[key]
	return v, ok
}

// GetOr returns the value for key, or def when the key is absent.
func (p Properties) GetOr(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Bool returns the value for key parsed as a boolean, or def when the key is
// absent or not a boolean.
func (p Properties) Bool(key string, def bool) bool {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	maps.Copy(out, p)
	return out
}

// Merge copies every entry of other into p, overwriting existing keys.
func (p Properties) Merge(other Properties) {
	maps.Copy(p, other)
}

// Keys returns the keys in sorted order.
func (p Properties) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// AsMap returns the properties as a generic map, the shape mapstructure
// decodes from.
func (p Properties) AsMap() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
