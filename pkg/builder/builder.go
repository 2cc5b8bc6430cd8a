// Package builder assembles a session.Configuration from a description.
//
// A description is an XML or YAML tree rooted at <configuration>. Its
// sections are read in a fixed order because later sections depend on
// state left by earlier ones:
//
//	properties, settings (validated), vfsImpl/logImpl, typeAliases,
//	plugins, objectFactory, objectWrapperFactory, reflectorFactory,
//	settings (applied), environments, databaseIdProvider, typeHandlers,
//	mappers
//
// A ConfigBuilder runs once; the Configuration it returns is read-only
// from then on.
package builder

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/parsing"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/resources"
	"github.com/leapstack-labs/leapmapper/pkg/session"
)

// Option configures a ConfigBuilder.
type Option func(*ConfigBuilder)

// WithEnvironment selects the environment to activate, overriding the
// description's default.
func WithEnvironment(id string) Option {
	return func(b *ConfigBuilder) { b.environment = id }
}

// WithVariables supplies substitution variables. They win over variables
// declared in or loaded by the properties section.
func WithVariables(vars core.Properties) Option {
	return func(b *ConfigBuilder) { b.vars = vars.Clone() }
}

// WithFormat sets the description format instead of sniffing it.
func WithFormat(f parsing.Format) Option {
	return func(b *ConfigBuilder) { b.format = f }
}

// WithTypeRegistry resolves type names against reg instead of the
// process-wide registry.
func WithTypeRegistry(reg *reflection.TypeRegistry) Option {
	return func(b *ConfigBuilder) { b.registry = reg }
}

// WithLoader reads resources through l.
func WithLoader(l *resources.Loader) Option {
	return func(b *ConfigBuilder) { b.loader = l }
}

// WithLogger sets the logger used until a logImpl setting replaces it.
func WithLogger(logger *slog.Logger) Option {
	return func(b *ConfigBuilder) { b.logger = logger }
}

// WithResource names the description in error messages.
func WithResource(name string) Option {
	return func(b *ConfigBuilder) { b.ctx.Resource = name }
}

// ConfigBuilder assembles one Configuration. It is not safe for concurrent
// use.
type ConfigBuilder struct {
	r           io.Reader
	environment string
	vars        core.Properties
	format      parsing.Format
	registry    *reflection.TypeRegistry
	loader      *resources.Loader
	logger      *slog.Logger

	cfg    *session.Configuration
	doc    *parsing.Document
	ctx    ErrorContext
	parsed bool
}

// NewConfigBuilder returns a builder reading the description from r.
func NewConfigBuilder(r io.Reader, opts ...Option) *ConfigBuilder {
	b := &ConfigBuilder{r: r, vars: core.Properties{}}
	for _, o := range opts {
		o(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	b.logger = b.logger.With(slog.String("assembly_id", uuid.NewString()))
	b.cfg = session.NewConfiguration(b.registry, b.logger)
	b.cfg.SetLoader(b.loader)
	b.cfg.SetVariables(b.vars)
	return b
}

// Configuration returns the configuration being assembled.
func (b *ConfigBuilder) Configuration() *session.Configuration { return b.cfg }

// Parse reads the description and returns the assembled configuration.
// Any failure is returned as a *BuilderError; the configuration must then
// not be used, and a data source it had opened is already closed. On success
// the caller releases the data source with Configuration.Close. Parse fails
// with ErrBuilderUsed when called again.
func (b *ConfigBuilder) Parse() (*session.Configuration, error) {
	if b.parsed {
		return nil, &BuilderError{Message: "Error parsing configuration", Cause: ErrBuilderUsed}
	}
	b.parsed = true

	doc, err := parsing.Decode(b.r, b.format, b.vars)
	if err != nil {
		return nil, &BuilderError{Message: "Error creating document instance", Context: b.ctx, Cause: err}
	}
	b.doc = doc
	root, err := doc.Root("configuration")
	if err == nil {
		err = b.parseConfiguration(root)
	}
	if err != nil {
		if cerr := b.cfg.Close(); cerr != nil {
			b.logger.Warn("closing data source", "error", cerr)
		}
		return nil, &BuilderError{Message: "Error parsing configuration", Context: b.ctx, Cause: err}
	}
	b.ctx = ErrorContext{}
	return b.cfg, nil
}

type stage struct {
	section string
	run     func(n *parsing.Node) error
}

func (b *ConfigBuilder) parseConfiguration(root *parsing.Node) error {
	var settings core.Properties
	stages := []stage{
		{"properties", b.propertiesElement},
		{"settings", func(n *parsing.Node) (err error) {
			settings, err = settingsAsProperties(n)
			return err
		}},
		{"settings", func(*parsing.Node) error { return b.loadCustomVFS(settings) }},
		{"settings", func(*parsing.Node) error { return b.loadCustomLogImpl(settings) }},
		{"typeAliases", b.typeAliasesElement},
		{"plugins", b.pluginsElement},
		{"objectFactory", b.objectFactoryElement},
		{"objectWrapperFactory", b.objectWrapperFactoryElement},
		{"reflectorFactory", b.reflectorFactoryElement},
		{"settings", func(*parsing.Node) error { return b.settingsElement(settings) }},
		{"environments", b.environmentsElement},
		{"databaseIdProvider", b.databaseIDProviderElement},
		{"typeHandlers", b.typeHandlersElement},
		{"mappers", b.mappersElement},
	}
	for _, s := range stages {
		n := root.Child(s.section)
		b.ctx.Activity = "parsing " + s.section
		b.ctx.Object = ""
		if n != nil {
			b.ctx.Object = n.String()
		}
		if err := s.run(n); err != nil {
			return err
		}
		b.logger.Debug("section assembled", "section", s.section, "present", n != nil)
	}
	return nil
}

// Build assembles the description read from r.
func Build(r io.Reader, opts ...Option) (*session.Configuration, error) {
	return NewConfigBuilder(r, opts...).Parse()
}
