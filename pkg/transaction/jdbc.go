package transaction

import (
	"context"
	"database/sql"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// JDBCFactory creates transactions that commit and roll back through
// database/sql.
type JDBCFactory struct {
	SkipSetAutoCommitOnClose bool `mapstructure:"skipSetAutoCommitOnClose"`
}

// SetProperties reads skipSetAutoCommitOnClose.
func (f *JDBCFactory) SetProperties(props core.Properties) error {
	return reflection.DecodeProperties(props, f)
}

// NewTransaction returns a transaction on db. With autoCommit off the first
// Conn call begins a *sql.Tx at level.
func (f *JDBCFactory) NewTransaction(db *sql.DB, level sql.IsolationLevel, autoCommit bool) Transaction {
	return &JDBCTransaction{
		db:         db,
		opts:       &sql.TxOptions{Isolation: level},
		autoCommit: autoCommit,
		skipReset:  f.SkipSetAutoCommitOnClose,
	}
}

// JDBCTransaction is a transaction managed by this package.
type JDBCTransaction struct {
	db         *sql.DB
	opts       *sql.TxOptions
	autoCommit bool
	skipReset  bool

	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

// Conn returns the *sql.Tx, or a dedicated *sql.Conn in auto-commit mode.
func (t *JDBCTransaction) Conn(ctx context.Context) (Conn, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if t.autoCommit {
		if t.conn == nil {
			c, err := t.db.Conn(ctx)
			if err != nil {
				return nil, err
			}
			t.conn = c
		}
		return t.conn, nil
	}
	if t.tx == nil {
		tx, err := t.db.BeginTx(ctx, t.opts)
		if err != nil {
			return nil, err
		}
		t.tx = tx
	}
	return t.tx, nil
}

// Commit commits the open *sql.Tx, if any.
func (t *JDBCTransaction) Commit() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Commit()
	t.tx = nil
	return err
}

// Rollback rolls the open *sql.Tx back, if any.
func (t *JDBCTransaction) Rollback() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return err
}

// Close rolls back an unfinished transaction unless skipSetAutoCommitOnClose
// is set, then releases the connection.
func (t *JDBCTransaction) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	var err error
	if t.tx != nil && !t.skipReset {
		err = t.tx.Rollback()
		t.tx = nil
	}
	if t.conn != nil {
		if cerr := t.conn.Close(); err == nil {
			err = cerr
		}
		t.conn = nil
	}
	return err
}

// Timeout always returns zero; statements carry their own timeouts.
func (t *JDBCTransaction) Timeout() time.Duration { return 0 }
