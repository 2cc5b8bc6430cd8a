package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// Factory builds the *sql.DB of an environment.
type Factory interface {
	SetProperties(props core.Properties) error
	DataSource() (*sql.DB, error)
}

const driverPropertyPrefix = "driver."

// UnpooledFactory opens a database that keeps no idle connections.
type UnpooledFactory struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// DriverProperties are the driver.* properties, prefix removed, passed
	// to the driver as DSN parameters.
	DriverProperties core.Properties `mapstructure:"-"`
}

// SetProperties reads driver, url, username, password and driver.* extras.
func (f *UnpooledFactory) SetProperties(props core.Properties) error {
	if err := reflection.DecodeProperties(props, f); err != nil {
		return err
	}
	for k, v := range props {
		if name, ok := strings.CutPrefix(k, driverPropertyPrefix); ok {
			if f.DriverProperties == nil {
				f.DriverProperties = core.Properties{}
			}
			f.DriverProperties[name] = v
		}
	}
	return nil
}

// DSN returns the data source name handed to sql.Open.
func (f *UnpooledFactory) DSN() (string, error) {
	if f.URL == "" {
		return "", errors.New("data source property 'url' is required")
	}
	dsn := f.URL
	if strings.Contains(dsn, "://") && (f.Username != "" || f.Password != "") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid url: %w", err)
		}
		if u.User == nil {
			if f.Password != "" {
				u.User = url.UserPassword(f.Username, f.Password)
			} else {
				u.User = url.User(f.Username)
			}
		}
		dsn = u.String()
	}
	if len(f.DriverProperties) > 0 {
		q := url.Values{}
		for _, k := range f.DriverProperties.Keys() {
			q.Set(k, f.DriverProperties[k])
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + q.Encode()
	}
	return dsn, nil
}

func (f *UnpooledFactory) open() (*sql.DB, error) {
	if f.Driver == "" {
		return nil, errors.New("data source property 'driver' is required")
	}
	dsn, err := f.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverName(f.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s data source: %w", f.Driver, err)
	}
	return db, nil
}

// DataSource opens the database. No connection is made until first use.
func (f *UnpooledFactory) DataSource() (*sql.DB, error) {
	db, err := f.open()
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(0)
	return db, nil
}

func init() {
	reflection.Register(
		reflection.InterfaceType[Factory](),
		reflection.NewType[UnpooledFactory](reflection.WithAlias("UNPOOLED")),
		reflection.NewType[PooledFactory](
			reflection.WithAlias("POOLED"),
			reflection.WithConstructor(reflection.NoArg(NewPooledFactory)),
		),
	)
}
