// Package types holds the two registries consulted while a configuration is
// assembled: type aliases and type handlers.
package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"golang.org/x/text/cases"
)

// ErrEmptyAlias is returned when registering an alias with no name.
var ErrEmptyAlias = errors.New("alias cannot be empty")

type aliasEntry struct {
	alias string
	typ   *reflection.Type
}

// TypeAliasRegistry maps case-insensitive short names to types.
// Registering an existing alias again replaces it.
type TypeAliasRegistry struct {
	mu      sync.RWMutex
	entries map[string]aliasEntry
}

// NewTypeAliasRegistry returns a registry holding the built-in aliases.
func NewTypeAliasRegistry() *TypeAliasRegistry {
	r := &TypeAliasRegistry{entries: make(map[string]aliasEntry)}
	for alias, t := range builtinAliases() {
		_ = r.RegisterAlias(alias, t)
	}
	return r
}

func builtinAliases() map[string]*reflection.Type {
	return map[string]*reflection.Type{
		"string":   reflection.NewType[string](),
		"byte":     reflection.NewType[byte](),
		"int":      reflection.NewType[int](),
		"int8":     reflection.NewType[int8](),
		"int16":    reflection.NewType[int16](),
		"int32":    reflection.NewType[int32](),
		"int64":    reflection.NewType[int64](),
		"uint":     reflection.NewType[uint](),
		"uint64":   reflection.NewType[uint64](),
		"float32":  reflection.NewType[float32](),
		"float64":  reflection.NewType[float64](),
		"bool":     reflection.NewType[bool](),
		"bytes":    reflection.NewType[[]byte](),
		"time":     reflection.NewType[time.Time](),
		"duration": reflection.NewType[time.Duration](),
		"map":      reflection.NewType[map[string]any](),
		"list":     reflection.NewType[[]any](),
		"object":   reflection.InterfaceType[any](),
	}
}

// fold is the lookup key for alias; cases.Caser is stateful so one is made per call.
func fold(alias string) string {
	return cases.Fold().String(alias)
}

// RegisterAlias maps alias to t.
func (r *TypeAliasRegistry) RegisterAlias(alias string, t *reflection.Type) error {
	if alias == "" {
		return ErrEmptyAlias
	}
	if t == nil {
		return fmt.Errorf("alias %q: type cannot be nil", alias)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[fold(alias)] = aliasEntry{alias: alias, typ: t}
	return nil
}

// RegisterType registers t under its derived alias.
func (r *TypeAliasRegistry) RegisterType(t *reflection.Type) error {
	return r.RegisterAlias(reflection.SimpleAlias(t), t)
}

// RegisterPackage registers every instantiable type of pkg (and its
// sub-packages) from reg. Interfaces and anonymous types are skipped.
func (r *TypeAliasRegistry) RegisterPackage(reg *reflection.TypeRegistry, pkg string) (int, error) {
	n := 0
	for _, t := range reg.TypesInPackage(pkg) {
		if !t.Instantiable() {
			continue
		}
		if err := r.RegisterType(t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ResolveAlias looks alias up case-insensitively.
func (r *TypeAliasRegistry) ResolveAlias(alias string) (*reflection.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[fold(alias)]
	return e.typ, ok
}

// Resolve turns a type reference from a description into a type: an alias
// first, then an exact registered name. An empty name resolves to nil.
func (r *TypeAliasRegistry) Resolve(reg *reflection.TypeRegistry, name string) (*reflection.Type, error) {
	if name == "" {
		return nil, nil
	}
	if t, ok := r.ResolveAlias(name); ok {
		return t, nil
	}
	return reg.ForName(name)
}

// Aliases returns the registered aliases, as written when registered, mapped
// to their types.
func (r *TypeAliasRegistry) Aliases() map[string]*reflection.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*reflection.Type, len(r.entries))
	for _, e := range r.entries {
		out[e.alias] = e.typ
	}
	return out
}

// Names returns the registered aliases sorted case-insensitively.
func (r *TypeAliasRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = r.entries[k].alias
	}
	return out
}
