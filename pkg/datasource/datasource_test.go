package datasource

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return nil, errors.New("not connected") }

type otherDriver struct{}

func (*otherDriver) Open(string) (driver.Conn, error) { return nil, errors.New("not connected") }

func init() {
	sql.Register("leapmapper-fake", fakeDriver{})
	sql.Register("leapmapper-other", &otherDriver{})
	RegisterDriverAlias("fake", "leapmapper-fake")
	RegisterProduct(fakeDriver{}, Product{Name: "FakeDB", Placeholder: core.PlaceholderDollar})
}

func TestUnpooledFactory_DSN(t *testing.T) {
	tests := []struct {
		name  string
		props core.Properties
		want  string
	}{
		{
			name:  "plain",
			props: core.Properties{"driver": "fake", "url": "file:app.db"},
			want:  "file:app.db",
		},
		{
			name:  "credentials injected into url",
			props: core.Properties{"driver": "fake", "url": "postgres://localhost:5432/app", "username": "sa", "password": "pw"},
			want:  "postgres://sa:pw@localhost:5432/app",
		},
		{
			name:  "credentials in url kept",
			props: core.Properties{"driver": "fake", "url": "postgres://me@localhost/app", "username": "sa"},
			want:  "postgres://me@localhost/app",
		},
		{
			name:  "driver properties as parameters",
			props: core.Properties{"driver": "fake", "url": "file:app.db?mode=ro", "driver.cache": "shared", "driver._pragma": "foreign_keys(1)"},
			want:  "file:app.db?mode=ro&_pragma=foreign_keys%281%29&cache=shared",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &UnpooledFactory{}
			require.NoError(t, f.SetProperties(tt.props))
			got, err := f.DSN()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnpooledFactory_Required(t *testing.T) {
	_, err := (&UnpooledFactory{URL: "x"}).DataSource()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'driver'")

	_, err = (&UnpooledFactory{Driver: "fake"}).DataSource()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'url'")

	_, err = (&UnpooledFactory{Driver: "no-such-driver", URL: "x"}).DataSource()
	require.Error(t, err)
}

func TestPooledFactory(t *testing.T) {
	f := NewPooledFactory()
	require.NoError(t, f.SetProperties(core.Properties{
		"driver":                       "fake",
		"url":                          "mem",
		"poolMaximumActiveConnections": "3",
		"poolPingEnabled":              "true",
		"poolPingQuery":                "select 1",
		"driver.timeout":               "5",
	}))
	assert.Equal(t, 3, f.MaxActive)
	assert.Equal(t, 5, f.MaxIdle)
	assert.Equal(t, 20000, f.CheckoutTime)
	assert.True(t, f.PingEnabled)
	assert.Equal(t, "select 1", f.PingQuery)
	assert.Equal(t, "5", f.DriverProperties["timeout"])

	db, err := f.DataSource()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	assert.Equal(t, 3, db.Stats().MaxOpenConnections)

	err = f.SetProperties(core.Properties{"poolMaximumIdleConnections": "lots"})
	assert.Error(t, err)
}

func TestProductOf(t *testing.T) {
	db, err := sql.Open(DriverName("fake"), "x")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	p, err := ProductOf(db)
	require.NoError(t, err)
	assert.Equal(t, "FakeDB", p.Name)
	assert.Equal(t, core.PlaceholderDollar, p.Placeholder)

	other, err := sql.Open("leapmapper-other", "x")
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	_, err = ProductName(other)
	var unknown *UnknownProductError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Known, "FakeDB")

	assert.Equal(t, "unregistered", DriverName("unregistered"))
}
