// Package drivers registers the database drivers leapmapper ships with.
// Import it for side effects:
//
//	import _ "github.com/leapstack-labs/leapmapper/pkg/datasource/drivers"
package drivers

import (
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/datasource"
	"github.com/marcboeker/go-duckdb"
	"modernc.org/sqlite"
)

func init() {
	datasource.RegisterDriverAlias("postgres", "pgx")
	datasource.RegisterDriverAlias("postgresql", "pgx")
	datasource.RegisterDriverAlias("sqlite3", "sqlite")

	datasource.RegisterProduct(stdlib.GetDefaultDriver(), datasource.Product{
		Name:        "PostgreSQL",
		Placeholder: core.PlaceholderDollar,
	})
	datasource.RegisterProduct(&sqlite.Driver{}, datasource.Product{
		Name:        "SQLite",
		Placeholder: core.PlaceholderQuestion,
	})
	datasource.RegisterProduct(duckdb.Driver{}, datasource.Product{
		Name:        "DuckDB",
		Placeholder: core.PlaceholderQuestion,
	})
}
