package executor

import (
	"fmt"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/scripting"
	"github.com/leapstack-labs/leapmapper/pkg/types"
)

// DefaultParameterHandler fills the arguments of a statement from the
// parameter object through type handlers.
type DefaultParameterHandler struct {
	ms       *mapping.MappedStatement
	param    any
	bound    *mapping.BoundSQL
	handlers *types.TypeHandlerRegistry
	wrappers reflection.ObjectWrapperFactory
	nullType core.SQLType
}

// NewDefaultParameterHandler returns a handler for bound. nullType is the
// SQL type used for nil values with no declared type.
func NewDefaultParameterHandler(ms *mapping.MappedStatement, param any, bound *mapping.BoundSQL,
	handlers *types.TypeHandlerRegistry, wrappers reflection.ObjectWrapperFactory, nullType core.SQLType) *DefaultParameterHandler {
	return &DefaultParameterHandler{
		ms:       ms,
		param:    param,
		bound:    bound,
		handlers: handlers,
		wrappers: wrappers,
		nullType: nullType,
	}
}

func (h *DefaultParameterHandler) ParameterObject() any { return h.param }

// SetParameters sets stmt.Args, one per parameter mapping.
func (h *DefaultParameterHandler) SetParameters(stmt *Statement) error {
	param := h.bound.Parameter
	args := make([]any, 0, len(h.bound.ParameterMappings))
	for _, pm := range h.bound.ParameterMappings {
		var value any
		if scripting.IsComplex(param) {
			v, err := reflection.GetProperty(param, pm.Property, h.wrappers)
			if err != nil {
				return err
			}
			value = v
		} else {
			value = param
		}

		sqlType := pm.SQLType
		if value == nil && !sqlType.IsSet() {
			sqlType = h.nullType
		}
		var th types.TypeHandler
		if pm.GoType != nil {
			th = h.handlers.Handler(pm.GoType, sqlType)
		}
		if th == nil {
			th = h.handlers.HandlerForValue(value, sqlType)
		}
		if th == nil {
			return fmt.Errorf("%w for parameter '%s' of %s", types.ErrNoTypeHandler, pm.Property, h.ms.ID)
		}
		arg, err := th.Bind(value, sqlType)
		if err != nil {
			return fmt.Errorf("could not set parameter '%s' of %s: %w", pm.Property, h.ms.ID, err)
		}
		args = append(args, arg)
	}
	stmt.Args = args
	return nil
}
