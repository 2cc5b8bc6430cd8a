package datasource

import (
	"context"
	"database/sql"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// PooledFactory opens a database with a bounded connection pool.
type PooledFactory struct {
	UnpooledFactory `mapstructure:",squash"`

	MaxActive    int    `mapstructure:"poolMaximumActiveConnections"`
	MaxIdle      int    `mapstructure:"poolMaximumIdleConnections"`
	CheckoutTime int    `mapstructure:"poolMaximumCheckoutTime"`
	PingEnabled  bool   `mapstructure:"poolPingEnabled"`
	PingQuery    string `mapstructure:"poolPingQuery"`
}

// NewPooledFactory returns a factory with the documented pool defaults.
func NewPooledFactory() *PooledFactory {
	return &PooledFactory{
		MaxActive:    10,
		MaxIdle:      5,
		CheckoutTime: 20000,
		PingQuery:    "NO PING QUERY SET",
	}
}

// SetProperties reads the unpooled properties plus the pool settings.
func (f *PooledFactory) SetProperties(props core.Properties) error {
	if err := reflection.DecodeProperties(props, f); err != nil {
		return err
	}
	return f.UnpooledFactory.SetProperties(props)
}

// DataSource opens the database and sizes its pool. The checkout time
// bounds the lifetime of a pooled connection.
func (f *PooledFactory) DataSource() (*sql.DB, error) {
	db, err := f.open()
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(f.MaxActive)
	db.SetMaxIdleConns(f.MaxIdle)
	if f.CheckoutTime > 0 {
		db.SetConnMaxLifetime(time.Duration(f.CheckoutTime) * time.Millisecond)
	}
	return db, nil
}

// Ping checks db with the ping query when pinging is enabled, else with
// the driver's own ping.
func (f *PooledFactory) Ping(ctx context.Context, db *sql.DB) error {
	if !f.PingEnabled {
		return db.PingContext(ctx)
	}
	_, err := db.ExecContext(ctx, f.PingQuery)
	return err
}
