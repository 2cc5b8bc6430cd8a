package core

import (
	"errors"
	"fmt"
)

// ErrUnknownEnumValue is returned when a textual setting does not name a
// member of the expected enum.
var ErrUnknownEnumValue = errors.New("unknown enum value")

// UnknownEnumValueError reports the enum and the rejected text.
type UnknownEnumValueError struct {
	Enum  string
	Value string
}

func (e *UnknownEnumValueError) Error() string {
	return fmt.Sprintf("no enum constant %s.%s", e.Enum, e.Value)
}

func (e *UnknownEnumValueError) Is(target error) bool {
	return target == ErrUnknownEnumValue
}

// parseEnum matches s exactly (case-sensitive) against names.
func parseEnum[T ~int](enum string, names []string, s string) (T, error) {
	for i, n := range names {
		if n == s {
			return T(i), nil
		}
	}
	return 0, &UnknownEnumValueError{Enum: enum, Value: s}
}

func enumString(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "UNKNOWN"
	}
	return names[i]
}

// AutoMappingBehavior controls how columns are automatically mapped to
// properties.
type AutoMappingBehavior int

// AutoMappingBehavior values.
const (
	AutoMappingNone AutoMappingBehavior = iota
	AutoMappingPartial
	AutoMappingFull
)

var autoMappingBehaviorNames = []string{"NONE", "PARTIAL", "FULL"}

func (b AutoMappingBehavior) String() string { return enumString(autoMappingBehaviorNames, int(b)) }

// ParseAutoMappingBehavior parses NONE, PARTIAL or FULL.
func ParseAutoMappingBehavior(s string) (AutoMappingBehavior, error) {
	return parseEnum[AutoMappingBehavior]("AutoMappingBehavior", autoMappingBehaviorNames, s)
}

// AutoMappingUnknownColumnBehavior controls what happens when an auto-mapped
// column has no matching property.
type AutoMappingUnknownColumnBehavior int

// AutoMappingUnknownColumnBehavior values.
const (
	UnknownColumnNone AutoMappingUnknownColumnBehavior = iota
	UnknownColumnWarning
	UnknownColumnFailing
)

var unknownColumnNames = []string{"NONE", "WARNING", "FAILING"}

func (b AutoMappingUnknownColumnBehavior) String() string {
	return enumString(unknownColumnNames, int(b))
}

// ParseAutoMappingUnknownColumnBehavior parses NONE, WARNING or FAILING.
func ParseAutoMappingUnknownColumnBehavior(s string) (AutoMappingUnknownColumnBehavior, error) {
	return parseEnum[AutoMappingUnknownColumnBehavior]("AutoMappingUnknownColumnBehavior", unknownColumnNames, s)
}

// ExecutorType selects the statement executor strategy.
type ExecutorType int

// ExecutorType values.
const (
	ExecutorSimple ExecutorType = iota
	ExecutorReuse
	ExecutorBatch
)

var executorTypeNames = []string{"SIMPLE", "REUSE", "BATCH"}

func (t ExecutorType) String() string { return enumString(executorTypeNames, int(t)) }

// ParseExecutorType parses SIMPLE, REUSE or BATCH.
func ParseExecutorType(s string) (ExecutorType, error) {
	return parseEnum[ExecutorType]("ExecutorType", executorTypeNames, s)
}

// LocalCacheScope is the lifetime of the session-local cache.
type LocalCacheScope int

// LocalCacheScope values.
const (
	LocalCacheSession LocalCacheScope = iota
	LocalCacheStatement
)

var localCacheScopeNames = []string{"SESSION", "STATEMENT"}

func (s LocalCacheScope) String() string { return enumString(localCacheScopeNames, int(s)) }

// ParseLocalCacheScope parses SESSION or STATEMENT.
func ParseLocalCacheScope(s string) (LocalCacheScope, error) {
	return parseEnum[LocalCacheScope]("LocalCacheScope", localCacheScopeNames, s)
}

// ResultSetType is the cursor type requested for query results.
type ResultSetType int

// ResultSetType values.
const (
	ResultSetDefault ResultSetType = iota
	ResultSetForwardOnly
	ResultSetScrollInsensitive
	ResultSetScrollSensitive
)

var resultSetTypeNames = []string{"DEFAULT", "FORWARD_ONLY", "SCROLL_INSENSITIVE", "SCROLL_SENSITIVE"}

func (t ResultSetType) String() string { return enumString(resultSetTypeNames, int(t)) }

// ParseResultSetType parses DEFAULT, FORWARD_ONLY, SCROLL_INSENSITIVE or
// SCROLL_SENSITIVE.
func ParseResultSetType(s string) (ResultSetType, error) {
	return parseEnum[ResultSetType]("ResultSetType", resultSetTypeNames, s)
}

// SQLCommandType classifies a mapped statement.
type SQLCommandType int

// SQLCommandType values.
const (
	CommandUnknown SQLCommandType = iota
	CommandInsert
	CommandUpdate
	CommandDelete
	CommandSelect
	CommandFlush
)

var commandTypeNames = []string{"UNKNOWN", "INSERT", "UPDATE", "DELETE", "SELECT", "FLUSH"}

func (t SQLCommandType) String() string { return enumString(commandTypeNames, int(t)) }

// ParseSQLCommandType parses a command name such as SELECT.
func ParseSQLCommandType(s string) (SQLCommandType, error) {
	return parseEnum[SQLCommandType]("SqlCommandType", commandTypeNames, s)
}

// StatementType selects how a statement reaches the driver.
type StatementType int

// StatementType values.
const (
	StatementPrepared StatementType = iota
	StatementPlain
	StatementCallable
)

var statementTypeNames = []string{"PREPARED", "STATEMENT", "CALLABLE"}

func (t StatementType) String() string { return enumString(statementTypeNames, int(t)) }

// ParseStatementType parses PREPARED, STATEMENT or CALLABLE.
func ParseStatementType(s string) (StatementType, error) {
	return parseEnum[StatementType]("StatementType", statementTypeNames, s)
}
