package builder

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/datasource"
	"github.com/leapstack-labs/leapmapper/pkg/logging"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/parsing"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/resources"
	"github.com/leapstack-labs/leapmapper/pkg/session"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
)

// legacyVendorAlias is accepted for DB_VENDOR.
const legacyVendorAlias = "VENDOR"

type configurable interface {
	SetProperties(props core.Properties) error
}

// newInstance resolves name and creates the type it names, which must
// implement T.
func newInstance[T any](b *ConfigBuilder, name string) (T, *reflection.Type, error) {
	var zero T
	t, err := b.cfg.ResolveType(name)
	if err != nil {
		return zero, nil, err
	}
	v, err := b.cfg.Instantiate(t)
	if err != nil {
		return zero, nil, fmt.Errorf("error instantiating %s: %w", t.Name, err)
	}
	out, ok := v.(T)
	if !ok {
		return zero, nil, fmt.Errorf("%s does not implement %s", t.Name, reflect.TypeFor[T]())
	}
	return out, t, nil
}

// instance creates the type named by attribute attr of n and hands it the
// properties declared under n.
func instance[T any](b *ConfigBuilder, n *parsing.Node, attr string) (T, error) {
	var zero T
	name := n.StringAttr(attr)
	if name == "" {
		return zero, missingAttr(n.Name(), attr)
	}
	v, _, err := newInstance[T](b, name)
	if err != nil {
		return zero, err
	}
	if c, ok := any(v).(configurable); ok {
		if err := c.SetProperties(n.ChildrenAsProperties()); err != nil {
			return zero, fmt.Errorf("configuring %s: %w", name, err)
		}
	}
	return v, nil
}

func unexpected(parent, child *parsing.Node) error {
	return fmt.Errorf("unexpected element <%s> in <%s>", child.Name(), parent.Name())
}

func (b *ConfigBuilder) propertiesElement(n *parsing.Node) error {
	if n == nil {
		return nil
	}
	vars := n.ChildrenAsProperties()
	if n.HasAttr("resource") && n.HasAttr("url") {
		return fmt.Errorf("the properties element cannot specify both a url and a resource based property file reference, please specify one or the other: %w", ErrConflictingAttributes)
	}
	loader := b.cfg.Loader()
	switch {
	case n.HasAttr("resource"):
		props, err := loader.Properties(n.StringAttr("resource"))
		if err != nil {
			return err
		}
		vars.Merge(props)
	case n.HasAttr("url"):
		props, err := loader.URLProperties(n.StringAttr("url"))
		if err != nil {
			return err
		}
		vars.Merge(props)
	}
	vars.Merge(b.vars)
	b.doc.SetVariables(vars)
	b.cfg.SetVariables(vars)
	return nil
}

func settingsAsProperties(n *parsing.Node) (core.Properties, error) {
	if n == nil {
		return core.Properties{}, nil
	}
	props := n.ChildrenAsProperties()
	for _, key := range props.Keys() {
		if !session.IsKey(key) {
			return nil, &UnknownSettingError{Key: key}
		}
	}
	return props, nil
}

func (b *ConfigBuilder) loadCustomVFS(props core.Properties) error {
	value, ok := props.Get("vfsImpl")
	if !ok {
		return nil
	}
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		v, t, err := newInstance[resources.VFS](b, name)
		if err != nil {
			return fmt.Errorf("vfsImpl: %w", err)
		}
		b.cfg.AddVFS(v)
		b.cfg.Settings.VFSImpl = append(b.cfg.Settings.VFSImpl, t)
	}
	return nil
}

func (b *ConfigBuilder) loadCustomLogImpl(props core.Properties) error {
	name := props.GetOr("logImpl", "")
	if name == "" {
		return nil
	}
	impl, t, err := newInstance[logging.Impl](b, name)
	if err != nil {
		return fmt.Errorf("logImpl: %w", err)
	}
	b.cfg.Settings.LogImpl = t
	b.cfg.SetLogImpl(impl)
	return nil
}

func (b *ConfigBuilder) typeAliasesElement(n *parsing.Node) error {
	aliases := b.cfg.TypeAliases()
	for _, c := range n.Elements() {
		switch c.Name() {
		case "package":
			name := c.StringAttr("name")
			if name == "" {
				return missingAttr("package", "name")
			}
			if _, err := aliases.RegisterPackage(b.cfg.TypeRegistry(), name); err != nil {
				return err
			}
		case "typeAlias":
			alias, typ := c.StringAttr("alias"), c.StringAttr("type")
			if typ == "" {
				return missingAttr("typeAlias", "type")
			}
			t, err := b.cfg.TypeRegistry().ForName(typ)
			if err != nil {
				return fmt.Errorf("error registering typeAlias for '%s': %w", alias, err)
			}
			if alias == "" {
				err = aliases.RegisterType(t)
			} else {
				err = aliases.RegisterAlias(alias, t)
			}
			if err != nil {
				return err
			}
		default:
			return unexpected(n, c)
		}
	}
	return nil
}

func (b *ConfigBuilder) pluginsElement(n *parsing.Node) error {
	for _, c := range n.Elements() {
		if c.Name() != "plugin" {
			return unexpected(n, c)
		}
		ic, err := instance[plugin.Interceptor](b, c, "interceptor")
		if err != nil {
			return err
		}
		if err := plugin.CheckSignatures(ic); err != nil {
			return err
		}
		b.cfg.AddInterceptor(ic)
	}
	return nil
}

func (b *ConfigBuilder) objectFactoryElement(n *parsing.Node) error {
	if n == nil {
		return nil
	}
	f, err := instance[reflection.ObjectFactory](b, n, "type")
	if err != nil {
		return err
	}
	b.cfg.SetObjectFactory(f)
	return nil
}

func (b *ConfigBuilder) objectWrapperFactoryElement(n *parsing.Node) error {
	if n == nil {
		return nil
	}
	f, err := instance[reflection.ObjectWrapperFactory](b, n, "type")
	if err != nil {
		return err
	}
	b.cfg.SetObjectWrapperFactory(f)
	return nil
}

func (b *ConfigBuilder) reflectorFactoryElement(n *parsing.Node) error {
	if n == nil {
		return nil
	}
	f, err := instance[reflection.ReflectorFactory](b, n, "type")
	if err != nil {
		return err
	}
	b.cfg.SetReflectorFactory(f)
	return nil
}

func (b *ConfigBuilder) settingsElement(props core.Properties) error {
	for _, key := range props.Keys() {
		if err := b.applySetting(key, props[key]); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

func (b *ConfigBuilder) applySetting(key, value string) error {
	s := &b.cfg.Settings
	var err error
	switch key {
	case "autoMappingBehavior":
		s.AutoMappingBehavior, err = core.ParseAutoMappingBehavior(value)
	case "autoMappingUnknownColumnBehavior":
		s.AutoMappingUnknownColumnBehavior, err = core.ParseAutoMappingUnknownColumnBehavior(value)
	case "cacheEnabled":
		s.CacheEnabled, err = strconv.ParseBool(value)
	case "proxyFactory":
		var (
			f session.ProxyFactory
			t *reflection.Type
		)
		if f, t, err = newInstance[session.ProxyFactory](b, value); err == nil {
			s.ProxyFactory = t
			b.cfg.SetProxyFactory(f)
		}
	case "lazyLoadingEnabled":
		s.LazyLoadingEnabled, err = strconv.ParseBool(value)
	case "aggressiveLazyLoading":
		s.AggressiveLazyLoading, err = strconv.ParseBool(value)
	case "multipleResultSetsEnabled":
		s.MultipleResultSetsEnabled, err = strconv.ParseBool(value)
	case "useColumnLabel":
		s.UseColumnLabel, err = strconv.ParseBool(value)
	case "useGeneratedKeys":
		s.UseGeneratedKeys, err = strconv.ParseBool(value)
	case "defaultExecutorType":
		s.DefaultExecutorType, err = core.ParseExecutorType(value)
	case "defaultStatementTimeout":
		var secs int
		if secs, err = strconv.Atoi(value); err == nil {
			d := secondsDuration(secs)
			s.DefaultStatementTimeout = &d
		}
	case "defaultFetchSize":
		var n int
		if n, err = strconv.Atoi(value); err == nil {
			s.DefaultFetchSize = &n
		}
	case "defaultResultSetType":
		var t core.ResultSetType
		if t, err = core.ParseResultSetType(value); err == nil {
			s.DefaultResultSetType = &t
		}
	case "mapUnderscoreToCamelCase":
		s.MapUnderscoreToCamelCase, err = strconv.ParseBool(value)
	case "safeRowBoundsEnabled":
		s.SafeRowBoundsEnabled, err = strconv.ParseBool(value)
	case "localCacheScope":
		s.LocalCacheScope, err = core.ParseLocalCacheScope(value)
	case "jdbcTypeForNull":
		s.JdbcTypeForNull, err = core.ParseSQLType(value)
	case "lazyLoadTriggerMethods":
		s.LazyLoadTriggerMethods = splitList(value)
	case "safeResultHandlerEnabled":
		s.SafeResultHandlerEnabled, err = strconv.ParseBool(value)
	case "defaultScriptingLanguage":
		var t *reflection.Type
		if t, err = b.cfg.ResolveType(value); err == nil {
			err = b.cfg.SetDefaultScriptingLanguage(t)
		}
	case "defaultEnumTypeHandler":
		s.DefaultEnumTypeHandler, err = b.cfg.ResolveType(value)
	case "callSettersOnNulls":
		s.CallSettersOnNulls, err = strconv.ParseBool(value)
	case "useActualParamName":
		s.UseActualParamName, err = strconv.ParseBool(value)
	case "returnInstanceForEmptyRow":
		s.ReturnInstanceForEmptyRow, err = strconv.ParseBool(value)
	case "logPrefix":
		b.cfg.SetLogPrefix(value)
	case "configurationFactory":
		s.ConfigurationFactory, err = b.cfg.ResolveType(value)
	case "vfsImpl", "logImpl":
		// installed before aliases are read
	default:
		err = &UnknownSettingError{Key: key}
	}
	return err
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (b *ConfigBuilder) environmentsElement(n *parsing.Node) error {
	if n == nil {
		return nil
	}
	id := b.environment
	if id == "" {
		id = n.StringAttr("default")
	}
	if id == "" {
		return fmt.Errorf("no environment specified: %w", ErrMissingAttribute)
	}

	found := false
	for _, c := range n.Elements() {
		if c.Name() != "environment" {
			return unexpected(n, c)
		}
		envID := c.StringAttr("id")
		if envID == "" {
			return fmt.Errorf("environment requires an id attribute: %w", ErrMissingAttribute)
		}
		if envID != id || found {
			continue
		}
		env, err := b.buildEnvironment(envID, c)
		if err != nil {
			return fmt.Errorf("environment %s: %w", envID, err)
		}
		b.cfg.SetEnvironment(env)
		found = true
	}
	if !found {
		return fmt.Errorf("environment %q is not declared", id)
	}
	return nil
}

func (b *ConfigBuilder) buildEnvironment(id string, n *parsing.Node) (*mapping.Environment, error) {
	tm := n.Child("transactionManager")
	if tm == nil {
		return nil, fmt.Errorf("environment declaration requires a <transactionManager>: %w", ErrMissingAttribute)
	}
	tf, err := instance[transaction.Factory](b, tm, "type")
	if err != nil {
		return nil, err
	}
	ds := n.Child("dataSource")
	if ds == nil {
		return nil, fmt.Errorf("environment declaration requires a <dataSource>: %w", ErrMissingAttribute)
	}
	dsf, err := instance[datasource.Factory](b, ds, "type")
	if err != nil {
		return nil, err
	}
	db, err := dsf.DataSource()
	if err != nil {
		return nil, err
	}
	env, err := mapping.NewEnvironment(id, tf, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return env, nil
}

func (b *ConfigBuilder) databaseIDProviderElement(n *parsing.Node) error {
	if n == nil {
		return nil
	}
	typ := n.StringAttr("type")
	if typ == legacyVendorAlias {
		typ = "DB_VENDOR"
	}
	if typ == "" {
		return missingAttr(n.Name(), "type")
	}
	p, _, err := newInstance[mapping.DatabaseIDProvider](b, typ)
	if err != nil {
		return err
	}
	if err := p.SetProperties(n.ChildrenAsProperties()); err != nil {
		return err
	}
	env := b.cfg.Environment()
	if env == nil {
		return nil
	}
	id, err := p.DatabaseID(env.DataSource)
	if err != nil {
		return err
	}
	b.cfg.SetDatabaseID(id)
	return nil
}

func (b *ConfigBuilder) typeHandlersElement(n *parsing.Node) error {
	handlers := b.cfg.TypeHandlers()
	for _, c := range n.Elements() {
		switch c.Name() {
		case "package":
			name := c.StringAttr("name")
			if name == "" {
				return missingAttr("package", "name")
			}
			if _, err := handlers.RegisterPackage(b.cfg.TypeRegistry(), name); err != nil {
				return err
			}
		case "typeHandler":
			handler := c.StringAttr("handler")
			if handler == "" {
				return missingAttr("typeHandler", "handler")
			}
			goType, err := b.cfg.ResolveType(c.StringAttr("javaType"))
			if err != nil {
				return err
			}
			sqlType := core.SQLTypeUnset
			if v := c.StringAttr("jdbcType"); v != "" {
				if sqlType, err = core.ParseSQLType(v); err != nil {
					return err
				}
			}
			handlerType, err := b.cfg.ResolveType(handler)
			if err != nil {
				return err
			}
			if err := handlers.RegisterType(goType, sqlType, handlerType, b.cfg.TypeRegistry()); err != nil {
				return err
			}
		default:
			return unexpected(n, c)
		}
	}
	return nil
}

func (b *ConfigBuilder) mappersElement(n *parsing.Node) error {
	for _, c := range n.Elements() {
		switch c.Name() {
		case "package":
			name := c.StringAttr("name")
			if name == "" {
				return missingAttr("package", "name")
			}
			if _, err := b.cfg.Mappers().AddMappers(b.cfg.TypeRegistry(), name); err != nil {
				return err
			}
		case "mapper":
			if err := b.mapperElement(c); err != nil {
				return err
			}
		default:
			return unexpected(n, c)
		}
	}
	return nil
}

func (b *ConfigBuilder) mapperElement(n *parsing.Node) error {
	resource, url, class := n.StringAttr("resource"), n.StringAttr("url"), n.StringAttr("class")
	set := 0
	for _, v := range []string{resource, url, class} {
		if v != "" {
			set++
		}
	}
	const msg = "a mapper element may only specify a url, resource or class, but not more than one"
	switch set {
	case 0:
		return fmt.Errorf("%s: %w", msg, ErrMissingAttribute)
	case 1:
	default:
		return fmt.Errorf("%s: %w", msg, ErrConflictingAttributes)
	}

	switch {
	case resource != "":
		rc, err := b.cfg.Loader().Open(resource)
		if err != nil {
			return err
		}
		return b.parseMapper(rc, resource)
	case url != "":
		rc, err := b.cfg.Loader().OpenURL(url)
		if err != nil {
			return err
		}
		return b.parseMapper(rc, url)
	default:
		t, err := b.cfg.ResolveType(class)
		if err != nil {
			return err
		}
		return b.cfg.Mappers().AddMapper(t)
	}
}

func (b *ConfigBuilder) parseMapper(rc io.ReadCloser, resource string) error {
	defer rc.Close()
	prev := b.ctx.Resource
	b.ctx.Resource = resource
	if err := NewMapperBuilder(b.cfg, rc, resource).Parse(); err != nil {
		return err
	}
	b.ctx.Resource = prev
	return nil
}

func secondsDuration(secs int) time.Duration { return time.Duration(secs) * time.Second }
