package transaction

import (
	"context"
	"database/sql"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// ManagedFactory creates transactions whose commit and rollback are left to
// the surrounding container.
type ManagedFactory struct {
	CloseConnection bool `mapstructure:"closeConnection"`
}

// NewManagedFactory returns a factory that closes connections on Close.
func NewManagedFactory() *ManagedFactory {
	return &ManagedFactory{CloseConnection: true}
}

// SetProperties reads closeConnection.
func (f *ManagedFactory) SetProperties(props core.Properties) error {
	return reflection.DecodeProperties(props, f)
}

// NewTransaction returns a managed transaction; level and autoCommit are
// the container's business and ignored.
func (f *ManagedFactory) NewTransaction(db *sql.DB, _ sql.IsolationLevel, _ bool) Transaction {
	return &ManagedTransaction{db: db, closeConnection: f.CloseConnection}
}

// ManagedTransaction never commits or rolls back.
type ManagedTransaction struct {
	db              *sql.DB
	closeConnection bool
	conn            *sql.Conn
}

func (t *ManagedTransaction) Conn(ctx context.Context) (Conn, error) {
	if t.conn == nil {
		c, err := t.db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		t.conn = c
	}
	return t.conn, nil
}

func (t *ManagedTransaction) Commit() error { return nil }

func (t *ManagedTransaction) Rollback() error { return nil }

// Close releases the connection when closeConnection is set.
func (t *ManagedTransaction) Close() error {
	if t.conn == nil || !t.closeConnection {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *ManagedTransaction) Timeout() time.Duration { return 0 }
