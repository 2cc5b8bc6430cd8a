// Package mapping holds the parts of an assembled configuration that
// statements run against: the environment, the database id provider and
// mapped statements.
package mapping

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/datasource"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
)

// Environment is the active transaction strategy and data source.
type Environment struct {
	ID                 string
	TransactionFactory transaction.Factory
	DataSource         *sql.DB
	// Placeholder is the parameter marker style of the database's driver.
	Placeholder core.PlaceholderStyle
}

// NewEnvironment validates the parts of an environment. The placeholder
// style comes from the driver's registered product, defaulting to "?".
func NewEnvironment(id string, tf transaction.Factory, db *sql.DB) (*Environment, error) {
	switch {
	case id == "":
		return nil, errors.New("environment requires an id")
	case tf == nil:
		return nil, fmt.Errorf("environment %s requires a transaction factory", id)
	case db == nil:
		return nil, fmt.Errorf("environment %s requires a data source", id)
	}
	env := &Environment{ID: id, TransactionFactory: tf, DataSource: db}
	if p, err := datasource.ProductOf(db); err == nil {
		env.Placeholder = p.Placeholder
	}
	return env, nil
}
