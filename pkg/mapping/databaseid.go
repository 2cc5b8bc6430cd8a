package mapping

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/datasource"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// DatabaseIDProvider tags a data source so statements can be written per
// database.
type DatabaseIDProvider interface {
	SetProperties(props core.Properties) error
	DatabaseID(db *sql.DB) (string, error)
}

// VendorDatabaseIDProvider derives the id from the database product name.
// Without properties the product name is the id. With properties, the
// first key (in sorted order) contained in the product name selects its
// value; no match yields "".
type VendorDatabaseIDProvider struct {
	props core.Properties
}

func (p *VendorDatabaseIDProvider) SetProperties(props core.Properties) error {
	p.props = props.Clone()
	return nil
}

func (p *VendorDatabaseIDProvider) DatabaseID(db *sql.DB) (string, error) {
	if db == nil {
		return "", fmt.Errorf("data source cannot be nil")
	}
	name, err := datasource.ProductName(db)
	if err != nil {
		return "", fmt.Errorf("could not get a database id from the data source: %w", err)
	}
	if len(p.props) == 0 {
		return name, nil
	}
	for _, key := range p.props.Keys() {
		if strings.Contains(name, key) {
			return p.props[key], nil
		}
	}
	return "", nil
}

func init() {
	reflection.Register(
		reflection.InterfaceType[DatabaseIDProvider](),
		reflection.NewType[VendorDatabaseIDProvider](reflection.WithAlias("DB_VENDOR")),
	)
}
