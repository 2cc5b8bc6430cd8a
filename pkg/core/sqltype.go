package core

// SQLType is the store-side value kind a type handler converts to and from.
// The zero value means "not specified" and acts as the wildcard in type
// handler lookups.
type SQLType int

// SQLType values. Names follow the JDBC type names used in descriptions.
const (
	SQLTypeUnset SQLType = iota
	SQLTypeArray
	SQLTypeBit
	SQLTypeTinyint
	SQLTypeSmallint
	SQLTypeInteger
	SQLTypeBigint
	SQLTypeFloat
	SQLTypeReal
	SQLTypeDouble
	SQLTypeNumeric
	SQLTypeDecimal
	SQLTypeChar
	SQLTypeVarchar
	SQLTypeLongVarchar
	SQLTypeDate
	SQLTypeTime
	SQLTypeTimestamp
	SQLTypeBinary
	SQLTypeVarbinary
	SQLTypeLongVarbinary
	SQLTypeNull
	SQLTypeOther
	SQLTypeBlob
	SQLTypeClob
	SQLTypeBoolean
	SQLTypeCursor
	SQLTypeUndefined
	SQLTypeNVarchar
	SQLTypeNChar
	SQLTypeNClob
	SQLTypeStruct
	SQLTypeJavaObject
	SQLTypeDistinct
	SQLTypeRef
	SQLTypeDatalink
	SQLTypeRowID
	SQLTypeLongNVarchar
	SQLTypeSQLXML
	SQLTypeDatetimeOffset
	SQLTypeTimeWithTimezone
	SQLTypeTimestampWithTimezone
)

var sqlTypeNames = []string{
	"", "ARRAY", "BIT", "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "FLOAT", "REAL",
	"DOUBLE", "NUMERIC", "DECIMAL", "CHAR", "VARCHAR", "LONGVARCHAR", "DATE", "TIME",
	"TIMESTAMP", "BINARY", "VARBINARY", "LONGVARBINARY", "NULL", "OTHER", "BLOB",
	"CLOB", "BOOLEAN", "CURSOR", "UNDEFINED", "NVARCHAR", "NCHAR", "NCLOB", "STRUCT",
	"JAVA_OBJECT", "DISTINCT", "REF", "DATALINK", "ROWID", "LONGNVARCHAR", "SQLXML",
	"DATETIMEOFFSET", "TIME_WITH_TIMEZONE", "TIMESTAMP_WITH_TIMEZONE",
}

func (t SQLType) String() string {
	if t == SQLTypeUnset {
		return "UNSET"
	}
	return enumString(sqlTypeNames, int(t))
}

// IsSet reports whether t names a concrete store type.
func (t SQLType) IsSet() bool { return t != SQLTypeUnset }

// ParseSQLType parses a JDBC-style type name such as VARCHAR. The empty
// string is rejected; callers treat an absent attribute as SQLTypeUnset
// before calling.
func ParseSQLType(s string) (SQLType, error) {
	if s == "" {
		return SQLTypeUnset, &UnknownEnumValueError{Enum: "JdbcType", Value: s}
	}
	return parseEnum[SQLType]("JdbcType", sqlTypeNames, s)
}
