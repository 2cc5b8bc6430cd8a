// Package session holds the Configuration a description is assembled into
// and the factories that create interceptable executors from it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapmapper/pkg/binding"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/logging"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/parsing"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/resources"
	"github.com/leapstack-labs/leapmapper/pkg/scripting"
	"github.com/leapstack-labs/leapmapper/pkg/types"
)

// builtinPackages are scanned for aliased types when a Configuration is
// created, registering names such as JDBC, POOLED and DB_VENDOR.
const builtinPackages = "github.com/leapstack-labs/leapmapper/pkg"

// ErrIncomplete is returned by a Pending definition that still refers to
// something not defined yet.
var ErrIncomplete = errors.New("incomplete element")

// Pending is a definition whose resolution was deferred because it refers
// to something defined later, typically in another mapper file.
type Pending interface {
	Resolve() error
}

// Configuration is the result of assembling a description. A builder
// fills it in one pass; afterwards it is only read, except for pending
// statements which resolve lazily on lookup.
type Configuration struct {
	Settings Settings

	env        *mapping.Environment
	databaseID string
	variables  core.Properties

	typeRegistry     *reflection.TypeRegistry
	aliases          *types.TypeAliasRegistry
	handlers         *types.TypeHandlerRegistry
	chain            plugin.InterceptorChain
	objectFactory    reflection.ObjectFactory
	wrapperFactory   reflection.ObjectWrapperFactory
	reflectorFactory reflection.ReflectorFactory
	proxyFactory     ProxyFactory
	languages        *scripting.Registry
	mappers          *binding.MapperRegistry
	loader           *resources.Loader

	logImpl    logging.Impl
	baseLogger *slog.Logger
	logger     *slog.Logger

	mu         sync.Mutex
	statements map[string]*mapping.MappedStatement
	shortNames map[string]string
	ambiguous  map[string][]string
	pending    []Pending
	fragments  map[string]*parsing.Node
	loaded     map[string]struct{}
}

// NewConfiguration returns a configuration with default settings that
// resolves type names against reg (the process-wide registry when nil).
func NewConfiguration(reg *reflection.TypeRegistry, logger *slog.Logger) *Configuration {
	if reg == nil {
		reg = reflection.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Configuration{
		Settings:         DefaultSettings(),
		variables:        core.Properties{},
		typeRegistry:     reg,
		aliases:          types.NewTypeAliasRegistry(),
		handlers:         types.NewTypeHandlerRegistry(),
		objectFactory:    &reflection.DefaultObjectFactory{Registry: reg},
		wrapperFactory:   reflection.DefaultObjectWrapperFactory{},
		reflectorFactory: reflection.NewDefaultReflectorFactory(),
		proxyFactory:     DirectProxyFactory{},
		languages:        scripting.NewRegistry(),
		loader:           resources.NewLoader(nil),
		baseLogger:       logger,
		logger:           logger,
		statements:       make(map[string]*mapping.MappedStatement),
		shortNames:       make(map[string]string),
		ambiguous:        make(map[string][]string),
		fragments:        make(map[string]*parsing.Node),
		loaded:           make(map[string]struct{}),
	}
	c.mappers = binding.NewMapperRegistry(c)

	for _, t := range reg.TypesInPackage(builtinPackages) {
		if t.Alias != "" {
			_ = c.aliases.RegisterAlias(t.Alias, t)
		}
	}
	c.languages.Register(reflection.TypeName(reflect.TypeFor[scripting.RawDriver]()), &scripting.RawDriver{})
	return c
}

// TypeRegistry returns the registry type names resolve against.
func (c *Configuration) TypeRegistry() *reflection.TypeRegistry { return c.typeRegistry }

// TypeAliases returns the alias registry.
func (c *Configuration) TypeAliases() *types.TypeAliasRegistry { return c.aliases }

// TypeHandlers returns the type handler registry.
func (c *Configuration) TypeHandlers() *types.TypeHandlerRegistry { return c.handlers }

// ResolveType resolves an alias or fully-qualified type name. An empty name
// yields nil and no error.
func (c *Configuration) ResolveType(name string) (*reflection.Type, error) {
	return c.aliases.Resolve(c.typeRegistry, name)
}

// Instantiate creates t through its no-argument constructor.
func (c *Configuration) Instantiate(t *reflection.Type) (any, error) {
	return c.typeRegistry.New(t)
}

// Environment returns the active environment, or nil.
func (c *Configuration) Environment() *mapping.Environment { return c.env }

func (c *Configuration) SetEnvironment(env *mapping.Environment) { c.env = env }

// Close closes the data source of the active environment. Closing twice is
// harmless.
func (c *Configuration) Close() error {
	if c.env == nil || c.env.DataSource == nil {
		return nil
	}
	return c.env.DataSource.Close()
}

// DatabaseID returns the identifier vendor-specific statements are
// selected with; "" when no provider is configured.
func (c *Configuration) DatabaseID() string { return c.databaseID }

func (c *Configuration) SetDatabaseID(id string) { c.databaseID = id }

// Variables returns a copy of the substitution variables.
func (c *Configuration) Variables() core.Properties { return c.variables.Clone() }

func (c *Configuration) SetVariables(vars core.Properties) { c.variables = vars.Clone() }

// AddInterceptor appends ic to the interceptor chain.
func (c *Configuration) AddInterceptor(ic plugin.Interceptor) { c.chain.AddInterceptor(ic) }

// Interceptors returns the interceptors in registration order.
func (c *Configuration) Interceptors() []plugin.Interceptor { return c.chain.Interceptors() }

// InterceptorChain returns the chain extension points are wrapped with.
func (c *Configuration) InterceptorChain() *plugin.InterceptorChain { return &c.chain }

func (c *Configuration) ObjectFactory() reflection.ObjectFactory { return c.objectFactory }

func (c *Configuration) SetObjectFactory(f reflection.ObjectFactory) { c.objectFactory = f }

func (c *Configuration) ObjectWrapperFactory() reflection.ObjectWrapperFactory {
	return c.wrapperFactory
}

func (c *Configuration) SetObjectWrapperFactory(f reflection.ObjectWrapperFactory) {
	c.wrapperFactory = f
}

func (c *Configuration) ReflectorFactory() reflection.ReflectorFactory { return c.reflectorFactory }

func (c *Configuration) SetReflectorFactory(f reflection.ReflectorFactory) { c.reflectorFactory = f }

func (c *Configuration) ProxyFactory() ProxyFactory { return c.proxyFactory }

// SetProxyFactory installs f; nil restores the direct factory.
func (c *Configuration) SetProxyFactory(f ProxyFactory) {
	if f == nil {
		f = DirectProxyFactory{}
	}
	c.proxyFactory = f
}

// Loader returns the resource loader mapper and property resources are
// read through.
func (c *Configuration) Loader() *resources.Loader { return c.loader }

// SetLoader replaces the resource loader.
func (c *Configuration) SetLoader(l *resources.Loader) {
	if l != nil {
		c.loader = l
	}
}

// AddVFS installs a VFS ahead of the loader's default one.
func (c *Configuration) AddVFS(v resources.VFS) { c.loader.AddVFS(v) }

// Logger returns the configuration's logger.
func (c *Configuration) Logger() *slog.Logger { return c.logger }

// SetLogImpl routes all later logging through impl.
func (c *Configuration) SetLogImpl(impl logging.Impl) {
	c.logImpl = impl
	c.rebuildLogger()
}

// SetLogPrefix sets the prefix attribute carried by every record.
func (c *Configuration) SetLogPrefix(prefix string) {
	c.Settings.LogPrefix = prefix
	c.rebuildLogger()
}

func (c *Configuration) rebuildLogger() {
	if c.logImpl != nil {
		c.logger = logging.New(c.logImpl, c.Settings.LogPrefix)
		return
	}
	c.logger = c.baseLogger
	if c.Settings.LogPrefix != "" {
		c.logger = c.logger.With(slog.String("prefix", c.Settings.LogPrefix))
	}
}

// Languages returns the language driver registry.
func (c *Configuration) Languages() *scripting.Registry { return c.languages }

// LanguageDriver returns the driver named by an alias or type name,
// registering it on first use. "" selects the default driver.
func (c *Configuration) LanguageDriver(name string) (scripting.LanguageDriver, bool) {
	if name == "" {
		return c.languages.Driver("")
	}
	t, err := c.ResolveType(name)
	if err != nil {
		return nil, false
	}
	d, err := c.languageDriver(t)
	if err != nil {
		return nil, false
	}
	return d, true
}

func (c *Configuration) languageDriver(t *reflection.Type) (scripting.LanguageDriver, error) {
	if d, ok := c.languages.Driver(t.Name); ok {
		return d, nil
	}
	v, err := c.Instantiate(t)
	if err != nil {
		return nil, err
	}
	d, ok := v.(scripting.LanguageDriver)
	if !ok {
		return nil, fmt.Errorf("%s is not a language driver", t.Name)
	}
	c.languages.Register(t.Name, d)
	return d, nil
}

// SetDefaultScriptingLanguage makes t the default language driver. A nil
// t keeps the current default.
func (c *Configuration) SetDefaultScriptingLanguage(t *reflection.Type) error {
	if t == nil {
		return nil
	}
	if _, err := c.languageDriver(t); err != nil {
		return err
	}
	c.Settings.DefaultScriptingLanguage = t
	return c.languages.SetDefault(t.Name)
}

// EnumTypeHandler builds the handler used for enum-like goType values with
// the defaultEnumTypeHandler setting, or types.EnumHandler when unset.
func (c *Configuration) EnumTypeHandler(goType *reflection.Type) (types.TypeHandler, error) {
	ht := c.Settings.DefaultEnumTypeHandler
	if ht == nil {
		var err error
		ht, err = c.typeRegistry.ForName(reflection.TypeName(reflect.TypeFor[types.EnumHandler]()))
		if err != nil {
			return nil, err
		}
	}
	arg := []string{reflection.TypeName(reflect.TypeFor[*reflection.Type]())}
	v, err := c.typeRegistry.Instantiate(ht, arg, []any{goType})
	if err != nil {
		return nil, err
	}
	h, ok := v.(types.TypeHandler)
	if !ok {
		return nil, fmt.Errorf("%s is not a type handler", ht.Name)
	}
	return h, nil
}

// Mappers returns the mapper interface registry.
func (c *Configuration) Mappers() *binding.MapperRegistry { return c.mappers }

// AddMappedStatement adds ms. Its id must be new; the part after the last
// dot also becomes a short name unless another statement shares it.
func (c *Configuration) AddMappedStatement(ms *mapping.MappedStatement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.statements[ms.ID]; ok {
		return fmt.Errorf("mapped statements collection already contains value for %s", ms.ID)
	}
	c.statements[ms.ID] = ms

	i := strings.LastIndex(ms.ID, ".")
	if i < 0 {
		return nil
	}
	short := ms.ID[i+1:]
	if ids, ok := c.ambiguous[short]; ok {
		c.ambiguous[short] = append(ids, ms.ID)
		return nil
	}
	if prev, ok := c.shortNames[short]; ok {
		delete(c.shortNames, short)
		c.ambiguous[short] = []string{prev, ms.ID}
		return nil
	}
	c.shortNames[short] = ms.ID
	return nil
}

// LookupStatement returns the statement with exactly id, without
// resolving pending definitions.
func (c *Configuration) LookupStatement(id string) (*mapping.MappedStatement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms, ok := c.statements[id]
	return ms, ok
}

// HasStatement reports whether id names a statement, after resolving
// pending definitions.
func (c *Configuration) HasStatement(id string) bool {
	_, err := c.MappedStatement(id)
	return err == nil
}

// MappedStatement returns the statement with the full or short id.
func (c *Configuration) MappedStatement(id string) (*mapping.MappedStatement, error) {
	if err := c.ResolvePending(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms, ok := c.statements[id]; ok {
		return ms, nil
	}
	if full, ok := c.shortNames[id]; ok {
		return c.statements[full], nil
	}
	if ids, ok := c.ambiguous[id]; ok {
		return nil, fmt.Errorf("%s is ambiguous in mapped statements collection (%s); use the full id", id, strings.Join(ids, ", "))
	}
	return nil, fmt.Errorf("mapped statements collection does not contain value for %s", id)
}

// MappedStatements returns every statement sorted by id. Pending
// statements that fail to resolve are logged and left out.
func (c *Configuration) MappedStatements() []*mapping.MappedStatement {
	if err := c.ResolvePending(); err != nil {
		c.Logger().Error("dropping unresolvable statements", "error", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*mapping.MappedStatement, 0, len(c.statements))
	for _, ms := range c.statements {
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddPending defers p until something it refers to is defined.
func (c *Configuration) AddPending(p Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, p)
}

// PendingCount returns the number of definitions still unresolved.
func (c *Configuration) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ResolvePending retries every pending definition. Those still incomplete
// stay pending; other failures are returned and dropped.
func (c *Configuration) ResolvePending() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	var (
		keep []Pending
		errs []error
	)
	for _, p := range pending {
		err := p.Resolve()
		switch {
		case err == nil:
		case errors.Is(err, ErrIncomplete):
			keep = append(keep, p)
		default:
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	c.pending = append(keep, c.pending...)
	c.mu.Unlock()
	return errors.Join(errs...)
}

// SQLFragment returns the shared fragment with the full id.
func (c *Configuration) SQLFragment(id string) (*parsing.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.fragments[id]
	return n, ok
}

// SetSQLFragment stores a fragment, replacing any with the same id.
func (c *Configuration) SetSQLFragment(id string, n *parsing.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments[id] = n
}

// AddLoadedResource records that resource has been parsed.
func (c *Configuration) AddLoadedResource(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded[resource] = struct{}{}
}

// IsResourceLoaded reports whether resource has been parsed.
func (c *Configuration) IsResourceLoaded(resource string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.loaded[resource]
	return ok
}

// LoadedResources returns the parsed resources, sorted.
func (c *Configuration) LoadedResources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.loaded))
	for r := range c.loaded {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
