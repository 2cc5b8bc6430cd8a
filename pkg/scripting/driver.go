// Package scripting turns statement text into SQL sources.
//
// Statement text uses two kinds of tokens:
//
//	#{property[,sqlType=VARCHAR]}   a bound parameter, rendered as "?"
//	${property}                     text substituted before binding
//
// A backslash before the opening sequence keeps it literal.
package scripting

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// LanguageDriver creates the SQL source of a statement.
type LanguageDriver interface {
	CreateSQLSource(script string, paramType *reflection.Type) (mapping.SQLSource, error)
}

// Registry holds the language drivers of a configuration keyed by type name.
type Registry struct {
	mu          sync.RWMutex
	drivers     map[string]LanguageDriver
	defaultName string
}

// NewRegistry returns a registry whose default driver is XMLDriver.
func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[string]LanguageDriver)}
	xml := reflection.NewType[XMLDriver]()
	r.Register(xml.Name, &XMLDriver{})
	r.defaultName = xml.Name
	return r
}

// Register adds d under name, replacing any driver of that name.
func (r *Registry) Register(name string, d LanguageDriver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[name] = d
}

// SetDefault makes the driver registered as name the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drivers[name]; !ok {
		return fmt.Errorf("language driver %s is not registered", name)
	}
	r.defaultName = name
	return nil
}

// Driver returns the driver registered as name, or the default for "".
func (r *Registry) Driver(name string) (LanguageDriver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	d, ok := r.drivers[name]
	return d, ok
}

// Default returns the default driver.
func (r *Registry) Default() LanguageDriver {
	d, _ := r.Driver("")
	return d
}

// DefaultName returns the name of the default driver.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for n := range r.drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	reflection.Register(
		reflection.InterfaceType[LanguageDriver](),
		reflection.NewType[XMLDriver](reflection.WithAlias("XML")),
		reflection.NewType[RawDriver](reflection.WithAlias("RAW")),
		reflection.NewType[StarlarkDriver](reflection.WithAlias("STARLARK")),
	)
}
