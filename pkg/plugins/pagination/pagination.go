// Package pagination provides an interceptor that pages statements whose
// id matches a pattern.
//
// The parameter object of a paged statement is a map holding a *Page
// under the "page" key. Before the statement is prepared, the interceptor
// counts the rows of the unpaged query on the same connection, stores the
// total in the page and appends the dialect's limit clause to the SQL.
//
//	<plugin interceptor="PAGINATION">
//	  <property name="sqlType" value="mysql"/>
//	</plugin>
package pagination

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/executor"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// PageKey is the parameter map key the page is read from.
const PageKey = "page"

// DefaultPattern selects the statements to page when no pattern is set.
const DefaultPattern = `.*ByPage$`

// Page is the requested window and, after the query, the total row count.
type Page struct {
	// Number is 1-based.
	Number int
	Size   int
	Total  int64
}

// Offset is the number of rows before the page.
func (p *Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Pages is the number of pages needed for Total rows.
func (p *Page) Pages() int64 {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + int64(p.Size) - 1) / int64(p.Size)
}

type dialect struct {
	placeholder core.PlaceholderStyle
	limit       func(sql string, p *Page) string
}

func limitOffset(sql string, p *Page) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, p.Size, p.Offset())
}

func mysqlLimit(sql string, p *Page) string {
	return fmt.Sprintf("%s LIMIT %d, %d", sql, p.Offset(), p.Size)
}

var dialects = map[string]dialect{
	"":           {core.PlaceholderQuestion, limitOffset},
	"mysql":      {core.PlaceholderQuestion, mysqlLimit},
	"mariadb":    {core.PlaceholderQuestion, mysqlLimit},
	"postgres":   {core.PlaceholderDollar, limitOffset},
	"postgresql": {core.PlaceholderDollar, limitOffset},
	"sqlite":     {core.PlaceholderQuestion, limitOffset},
	"duckdb":     {core.PlaceholderQuestion, limitOffset},
	"h2":         {core.PlaceholderQuestion, limitOffset},
}

// Interceptor pages matching statements. Configure it through
// SetProperties or use New.
type Interceptor struct {
	SQLType string `mapstructure:"sqlType"`
	Pattern string `mapstructure:"pattern"`

	dialect dialect
	re      *regexp.Regexp
	logger  *slog.Logger
}

// New returns an interceptor for sqlType paging the statements matching
// pattern (DefaultPattern when empty).
func New(sqlType, pattern string, logger *slog.Logger) (*Interceptor, error) {
	ic := &Interceptor{SQLType: sqlType, Pattern: pattern, logger: logger}
	if err := ic.compile(); err != nil {
		return nil, err
	}
	return ic, nil
}

// SetProperties reads sqlType and pattern.
func (ic *Interceptor) SetProperties(props core.Properties) error {
	if err := reflection.DecodeProperties(props, ic); err != nil {
		return err
	}
	return ic.compile()
}

func (ic *Interceptor) compile() error {
	d, ok := dialects[strings.ToLower(ic.SQLType)]
	if !ok {
		return fmt.Errorf("pagination: unsupported sqlType %q", ic.SQLType)
	}
	ic.dialect = d
	if ic.Pattern == "" {
		ic.Pattern = DefaultPattern
	}
	re, err := regexp.Compile(ic.Pattern)
	if err != nil {
		return fmt.Errorf("pagination: invalid pattern: %w", err)
	}
	ic.re = re
	if ic.logger == nil {
		ic.logger = slog.New(slog.DiscardHandler)
	}
	return nil
}

func (ic *Interceptor) Signatures() []plugin.Signature {
	return []plugin.Signature{plugin.On[executor.StatementHandler](executor.StatementHandlerPrepare)}
}

func (ic *Interceptor) Intercept(inv *plugin.Invocation) (any, error) {
	if ic.re == nil {
		if err := ic.compile(); err != nil {
			return nil, err
		}
	}
	sh, ok := inv.Target.(executor.StatementHandler)
	if !ok {
		return inv.Proceed()
	}
	ms := sh.MappedStatement()
	if ms == nil || !ic.re.MatchString(ms.ID) {
		return inv.Proceed()
	}
	page := pageOf(sh.ParameterHandler().ParameterObject())
	if page == nil {
		return inv.Proceed()
	}

	conn, err := plugin.Arg[executor.Conn](inv.Args, 0, inv.Method)
	if err == nil && conn == nil {
		err = fmt.Errorf("%w: %s called without a connection", plugin.ErrInvalidArgument, inv.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("pagination: %w", err)
	}
	timeout, err := plugin.Arg[time.Duration](inv.Args, 1, inv.Method)
	if err != nil {
		return nil, fmt.Errorf("pagination: %w", err)
	}
	bound := sh.BoundSQL()
	total, err := ic.count(inv.Context(), conn, timeout, sh, bound.SQL)
	if err != nil {
		return nil, fmt.Errorf("pagination: counting %s: %w", ms.ID, err)
	}
	page.Total = total
	bound.SQL = ic.dialect.limit(bound.SQL, page)
	ic.logger.Debug("paged statement", "id", ms.ID, "total", total, "page", page.Number, "size", page.Size)
	return inv.Proceed()
}

func (ic *Interceptor) count(ctx context.Context, conn executor.Conn, timeout time.Duration, sh executor.StatementHandler, sql string) (int64, error) {
	stmt := &executor.Statement{
		Conn: conn,
		SQL:  executor.RewritePlaceholders("select count(0) from ("+sql+") AS a", ic.dialect.placeholder),
	}
	if err := sh.ParameterHandler().SetParameters(stmt); err != nil {
		return 0, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var total int64
	if err := conn.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func pageOf(param any) *Page {
	m, ok := param.(map[string]any)
	if !ok {
		return nil
	}
	p, _ := m[PageKey].(*Page)
	return p
}

func init() {
	reflection.Register(reflection.NewType[Interceptor](reflection.WithAlias("PAGINATION")))
}
