package builder

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/parsing"
	"github.com/leapstack-labs/leapmapper/pkg/session"
)

// namespaceResourcePrefix marks a namespace whose interface was bound.
const namespaceResourcePrefix = "namespace:"

// MapperBuilder reads the statements and sql fragments of one mapper
// resource into a Configuration.
//
// A statement may include fragments declared later in the same or another
// mapper; it is then kept pending and resolved once the fragment exists.
type MapperBuilder struct {
	cfg       *session.Configuration
	r         io.Reader
	resource  string
	format    parsing.Format
	namespace string
}

// NewMapperBuilder returns a builder for the mapper read from r. resource
// names it in errors and in the configuration's loaded resources.
func NewMapperBuilder(cfg *session.Configuration, r io.Reader, resource string) *MapperBuilder {
	return &MapperBuilder{cfg: cfg, r: r, resource: resource}
}

// Parse reads the mapper unless its resource was already loaded, then
// retries pending statements.
func (m *MapperBuilder) Parse() error {
	if !m.cfg.IsResourceLoaded(m.resource) {
		doc, err := parsing.Decode(m.r, m.format, m.cfg.Variables())
		if err != nil {
			return fmt.Errorf("mapper %s: %w", m.resource, err)
		}
		root, err := doc.Root("mapper")
		if err != nil {
			return fmt.Errorf("mapper %s: %w", m.resource, err)
		}
		if err := m.configurationElement(root); err != nil {
			return fmt.Errorf("error parsing mapper %s: %w", m.resource, err)
		}
		m.cfg.AddLoadedResource(m.resource)
		if err := m.bindMapperForNamespace(); err != nil {
			return err
		}
		m.cfg.Logger().Debug("mapper parsed", "resource", m.resource, "namespace", m.namespace)
	}
	return m.cfg.ResolvePending()
}

func (m *MapperBuilder) configurationElement(root *parsing.Node) error {
	ns := root.StringAttr("namespace")
	if ns == "" {
		return fmt.Errorf("mapper's namespace cannot be empty: %w", ErrMissingAttribute)
	}
	m.namespace = ns

	var fragments, statements []*parsing.Node
	for _, c := range root.Elements() {
		switch c.Name() {
		case "sql":
			fragments = append(fragments, c)
		case "select", "insert", "update", "delete":
			statements = append(statements, c)
		default:
			return unexpected(root, c)
		}
	}

	databaseID := m.cfg.DatabaseID()
	if databaseID != "" {
		if err := m.sqlElements(fragments, databaseID); err != nil {
			return err
		}
	}
	if err := m.sqlElements(fragments, ""); err != nil {
		return err
	}
	if databaseID != "" {
		if err := m.statementElements(statements, databaseID); err != nil {
			return err
		}
	}
	return m.statementElements(statements, "")
}

// applyNamespace qualifies base with the mapper's namespace. References
// that already contain a dot are taken as qualified.
func (m *MapperBuilder) applyNamespace(base string, reference bool) (string, error) {
	if reference {
		if strings.Contains(base, ".") {
			return base, nil
		}
	} else {
		if strings.HasPrefix(base, m.namespace+".") {
			return base, nil
		}
		if strings.Contains(base, ".") {
			return "", fmt.Errorf("dots are not allowed in element names, please remove it from %s", base)
		}
	}
	return m.namespace + "." + base, nil
}

func (m *MapperBuilder) sqlElements(list []*parsing.Node, required string) error {
	for _, n := range list {
		base := n.StringAttr("id")
		if base == "" {
			return missingAttr("sql", "id")
		}
		id, err := m.applyNamespace(base, false)
		if err != nil {
			return err
		}
		if m.fragmentMatches(id, n.StringAttr("databaseId"), required) {
			m.cfg.SetSQLFragment(id, n)
		}
	}
	return nil
}

func (m *MapperBuilder) fragmentMatches(id, databaseID, required string) bool {
	if required != "" {
		return required == databaseID
	}
	if databaseID != "" {
		return false
	}
	prev, ok := m.cfg.SQLFragment(id)
	if !ok {
		return true
	}
	// a vendor-specific fragment wins over the generic one
	return prev.StringAttr("databaseId") == ""
}

func (m *MapperBuilder) statementMatches(id, databaseID, required string) bool {
	if required != "" {
		return required == databaseID
	}
	if databaseID != "" {
		return false
	}
	prev, ok := m.cfg.LookupStatement(id)
	if !ok {
		return true
	}
	return prev.DatabaseID == ""
}

type pendingStatement struct {
	m        *MapperBuilder
	n        *parsing.Node
	required string
}

func (p *pendingStatement) Resolve() error { return p.m.parseStatement(p.n, p.required) }

func (m *MapperBuilder) statementElements(list []*parsing.Node, required string) error {
	for _, n := range list {
		err := m.parseStatement(n, required)
		if errors.Is(err, session.ErrIncomplete) {
			m.cfg.AddPending(&pendingStatement{m: m, n: n, required: required})
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *MapperBuilder) parseStatement(n *parsing.Node, required string) error {
	base := n.StringAttr("id")
	if base == "" {
		return missingAttr(n.Name(), "id")
	}
	id, err := m.applyNamespace(base, false)
	if err != nil {
		return err
	}
	databaseID := n.StringAttr("databaseId")
	if !m.statementMatches(id, databaseID, required) {
		return nil
	}

	cmd, err := core.ParseSQLCommandType(strings.ToUpper(n.Name()))
	if err != nil {
		return err
	}
	script, err := m.statementText(n, map[string]bool{}, nil)
	if err != nil {
		return fmt.Errorf("statement %s: %w", id, err)
	}

	langName := n.StringAttr("lang")
	lang, ok := m.cfg.LanguageDriver(langName)
	if !ok {
		return fmt.Errorf("statement %s: unknown language driver %q", id, langName)
	}
	paramType, err := m.cfg.ResolveType(n.StringAttr("parameterType"))
	if err != nil {
		return fmt.Errorf("statement %s: %w", id, err)
	}
	resultType, err := m.cfg.ResolveType(n.StringAttr("resultType"))
	if err != nil {
		return fmt.Errorf("statement %s: %w", id, err)
	}

	ms := &mapping.MappedStatement{
		ID:            id,
		Resource:      m.resource,
		Command:       cmd,
		StatementType: core.StatementPrepared,
		Lang:          langName,
		DatabaseID:    databaseID,
		ParameterType: paramType,
		ResultType:    resultType,
	}
	if err := m.statementAttributes(n, ms); err != nil {
		return fmt.Errorf("statement %s: %w", id, err)
	}
	if ms.SQLSource, err = lang.CreateSQLSource(script, paramType); err != nil {
		return fmt.Errorf("statement %s: %w", id, err)
	}
	return m.cfg.AddMappedStatement(ms)
}

func (m *MapperBuilder) statementAttributes(n *parsing.Node, ms *mapping.MappedStatement) error {
	var err error
	if v := n.StringAttr("statementType"); v != "" {
		if ms.StatementType, err = core.ParseStatementType(v); err != nil {
			return err
		}
	}
	if v := n.StringAttr("resultSetType"); v != "" {
		if ms.ResultSetType, err = core.ParseResultSetType(v); err != nil {
			return err
		}
	} else if d := m.cfg.Settings.DefaultResultSetType; d != nil {
		ms.ResultSetType = *d
	}
	timeout, err := n.IntAttr("timeout")
	if err != nil {
		return err
	}
	if timeout != nil {
		ms.Timeout = secondsDuration(*timeout)
	}
	fetchSize, err := n.IntAttr("fetchSize")
	if err != nil {
		return err
	}
	if fetchSize != nil {
		ms.FetchSize = *fetchSize
	}
	def := m.cfg.Settings.UseGeneratedKeys && ms.Command == core.CommandInsert
	ms.UseGeneratedKeys, err = n.BoolAttr("useGeneratedKeys", def)
	return err
}

// statementText flattens the text of n, expanding <include refid="..."/>
// with the properties declared under each include.
func (m *MapperBuilder) statementText(n *parsing.Node, seen map[string]bool, props core.Properties) (string, error) {
	var b strings.Builder
	for _, c := range n.Children() {
		if c.IsText() {
			b.WriteString(substitute(c.Text(), props))
			continue
		}
		if c.Name() != "include" {
			return "", fmt.Errorf("unsupported element <%s> in <%s>", c.Name(), n.Name())
		}
		refid := substitute(c.StringAttr("refid"), props)
		if refid == "" {
			return "", missingAttr("include", "refid")
		}
		full, err := m.applyNamespace(refid, true)
		if err != nil {
			return "", err
		}
		if seen[full] {
			return "", fmt.Errorf("circular include of %s", full)
		}
		frag, ok := m.cfg.SQLFragment(full)
		if !ok {
			return "", fmt.Errorf("could not find SQL statement to include with refid '%s': %w", full, session.ErrIncomplete)
		}

		inner := props.Clone()
		for k, v := range c.ChildrenAsProperties() {
			inner[k] = substitute(v, props)
		}
		seen[full] = true
		text, err := m.statementText(frag, seen, inner)
		delete(seen, full)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func substitute(text string, props core.Properties) string {
	if len(props) == 0 {
		return text
	}
	return parsing.NewVariables(props).Replace(text)
}

func (m *MapperBuilder) bindMapperForNamespace() error {
	t, err := m.cfg.TypeRegistry().ForName(m.namespace)
	if err != nil || !t.IsInterface() {
		return nil
	}
	if m.cfg.Mappers().HasMapper(t.Name) {
		return nil
	}
	m.cfg.AddLoadedResource(namespaceResourcePrefix + m.namespace)
	return m.cfg.Mappers().AddMapper(t)
}
