// Package datasource provides the data source strategies an environment is
// built with, plus the driver tables they consult.
package datasource

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// Product describes the database behind a driver.
type Product struct {
	Name        string
	Placeholder core.PlaceholderStyle
}

var (
	registryMu sync.RWMutex
	aliases    = make(map[string]string)
	products   = make(map[reflect.Type]Product)
)

// RegisterDriverAlias lets descriptions name a database/sql driver by alias.
func RegisterDriverAlias(alias, driverName string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	aliases[alias] = driverName
}

// DriverName resolves an alias to a registered database/sql driver name.
// Unknown names are returned unchanged.
func DriverName(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if d, ok := aliases[name]; ok {
		return d
	}
	return name
}

// RegisterProduct records the product behind drv, typically the value
// returned by (*sql.DB).Driver().
// Called by driver packages in their init() functions.
func RegisterProduct(drv driver.Driver, p Product) {
	registryMu.Lock()
	defer registryMu.Unlock()
	products[driverKey(drv)] = p
}

func driverKey(drv driver.Driver) reflect.Type {
	t := reflect.TypeOf(drv)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// ProductOf returns the product of db's driver.
func ProductOf(db *sql.DB) (Product, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := products[driverKey(db.Driver())]
	if !ok {
		return Product{}, &UnknownProductError{Driver: fmt.Sprintf("%T", db.Driver()), Known: knownProducts()}
	}
	return p, nil
}

// ProductName returns the product name of db's driver.
func ProductName(db *sql.DB) (string, error) {
	p, err := ProductOf(db)
	return p.Name, err
}

func knownProducts() []string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// UnknownProductError is returned for drivers with no registered product.
type UnknownProductError struct {
	Driver string
	Known  []string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown database product for driver %s\nKnown products: %v", e.Driver, e.Known)
}
