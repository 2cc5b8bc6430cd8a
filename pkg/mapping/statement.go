package mapping

import (
	"reflect"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// MappedStatement is one statement definition.
type MappedStatement struct {
	// ID is namespace-qualified: "<namespace>.<id>".
	ID            string
	Resource      string
	Command       core.SQLCommandType
	StatementType core.StatementType
	SQLSource     SQLSource
	Lang          string
	DatabaseID    string
	Timeout       time.Duration
	FetchSize     int
	ResultSetType core.ResultSetType
	ParameterType *reflection.Type
	ResultType    *reflection.Type
	// UseGeneratedKeys reports whether inserts read back generated keys.
	UseGeneratedKeys bool
}

// BoundSQL returns the SQL for param.
func (ms *MappedStatement) BoundSQL(param any) (*BoundSQL, error) {
	return ms.SQLSource.BoundSQL(param)
}

// SQLSource produces the SQL of a statement for a parameter object.
type SQLSource interface {
	BoundSQL(param any) (*BoundSQL, error)
}

// ParameterMapping describes one "?" of a bound statement.
type ParameterMapping struct {
	Property string
	SQLType  core.SQLType
	// GoType selects the type handler; nil means "use the value's type".
	GoType reflect.Type
}

// BoundSQL is SQL text with "?" markers and the mappings that fill them.
type BoundSQL struct {
	SQL               string
	ParameterMappings []ParameterMapping
	Parameter         any
}

// StaticSQLSource returns the same SQL for every parameter.
type StaticSQLSource struct {
	SQL      string
	Mappings []ParameterMapping
}

func (s *StaticSQLSource) BoundSQL(param any) (*BoundSQL, error) {
	return &BoundSQL{
		SQL:               s.SQL,
		ParameterMappings: append([]ParameterMapping(nil), s.Mappings...),
		Parameter:         param,
	}, nil
}
