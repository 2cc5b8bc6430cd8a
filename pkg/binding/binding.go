// Package binding registers mapper interfaces and the statements declared
// on them through annotations.
//
//	reflection.Register(reflection.InterfaceType[UserMapper](
//		reflection.WithAnnotations(
//			binding.Select{ID: "find", SQL: "select * from users where id = #{id}"},
//		),
//	))
package binding

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/scripting"
)

var (
	// ErrMapperExists is returned when a mapper type is added twice.
	ErrMapperExists = errors.New("mapper already known")
	// ErrNotInterface is returned when a concrete type is added as a mapper.
	ErrNotInterface = errors.New("mapper type is not an interface")
)

// Statement is the content shared by the statement annotations.
type Statement struct {
	ID         string
	SQL        string
	DatabaseID string
	Lang       string
	Timeout    time.Duration
}

// Statement annotations.
type (
	Select Statement
	Insert Statement
	Update Statement
	Delete Statement
)

// StatementSink receives the statements of registered mappers.
type StatementSink interface {
	DatabaseID() string
	LanguageDriver(name string) (scripting.LanguageDriver, bool)
	AddMappedStatement(ms *mapping.MappedStatement) error
}

// MapperRegistry tracks the mapper interfaces of a configuration.
type MapperRegistry struct {
	mu    sync.RWMutex
	sink  StatementSink
	known map[string]*reflection.Type
}

// NewMapperRegistry returns a registry feeding sink.
func NewMapperRegistry(sink StatementSink) *MapperRegistry {
	return &MapperRegistry{sink: sink, known: make(map[string]*reflection.Type)}
}

// AddMapper registers the interface t and the statements annotated on it.
// A mapper whose statements fail to load is not kept.
func (r *MapperRegistry) AddMapper(t *reflection.Type) error {
	if !t.IsInterface() {
		return fmt.Errorf("%s: %w", t.Name, ErrNotInterface)
	}
	r.mu.Lock()
	if _, ok := r.known[t.Name]; ok {
		r.mu.Unlock()
		return fmt.Errorf("type %s is already known to the mapper registry: %w", t.Name, ErrMapperExists)
	}
	r.known[t.Name] = t
	r.mu.Unlock()

	if err := r.parse(t); err != nil {
		r.mu.Lock()
		delete(r.known, t.Name)
		r.mu.Unlock()
		return err
	}
	return nil
}

// AddMappers registers every interface of pkg (and its sub-packages).
func (r *MapperRegistry) AddMappers(reg *reflection.TypeRegistry, pkg string) (int, error) {
	n := 0
	for _, t := range reg.TypesInPackage(pkg) {
		if !t.IsInterface() {
			continue
		}
		if err := r.AddMapper(t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// HasMapper reports whether the type named name is registered.
func (r *MapperRegistry) HasMapper(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[name]
	return ok
}

// Mappers returns the registered types sorted by name.
func (r *MapperRegistry) Mappers() []*reflection.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*reflection.Type, 0, len(r.known))
	for _, t := range r.known {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *MapperRegistry) parse(t *reflection.Type) error {
	for _, a := range t.Annotations {
		var (
			st  Statement
			cmd core.SQLCommandType
		)
		switch v := a.(type) {
		case Select:
			st, cmd = Statement(v), core.CommandSelect
		case Insert:
			st, cmd = Statement(v), core.CommandInsert
		case Update:
			st, cmd = Statement(v), core.CommandUpdate
		case Delete:
			st, cmd = Statement(v), core.CommandDelete
		default:
			continue
		}
		if st.DatabaseID != "" && st.DatabaseID != r.sink.DatabaseID() {
			continue
		}
		if st.ID == "" {
			return fmt.Errorf("%s: %s annotation without id", t.Name, cmd)
		}
		lang, ok := r.sink.LanguageDriver(st.Lang)
		if !ok {
			return fmt.Errorf("%s.%s: unknown language driver %q", t.Name, st.ID, st.Lang)
		}
		src, err := lang.CreateSQLSource(st.SQL, nil)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, st.ID, err)
		}
		ms := &mapping.MappedStatement{
			ID:            t.Name + "." + st.ID,
			Resource:      t.Name,
			Command:       cmd,
			StatementType: core.StatementPrepared,
			SQLSource:     src,
			Lang:          st.Lang,
			DatabaseID:    st.DatabaseID,
			Timeout:       st.Timeout,
		}
		if err := r.sink.AddMappedStatement(ms); err != nil {
			return err
		}
	}
	return nil
}
