package session

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// Settings holds the global behaviour flags of a Configuration. Each field
// carries the key it is set from in a description's settings section.
type Settings struct {
	AutoMappingBehavior              core.AutoMappingBehavior              `setting:"autoMappingBehavior"`
	AutoMappingUnknownColumnBehavior core.AutoMappingUnknownColumnBehavior `setting:"autoMappingUnknownColumnBehavior"`
	CacheEnabled                     bool                                  `setting:"cacheEnabled"`
	ProxyFactory                     *reflection.Type                      `setting:"proxyFactory"`
	LazyLoadingEnabled               bool                                  `setting:"lazyLoadingEnabled"`
	AggressiveLazyLoading            bool                                  `setting:"aggressiveLazyLoading"`
	MultipleResultSetsEnabled        bool                                  `setting:"multipleResultSetsEnabled"`
	UseColumnLabel                   bool                                  `setting:"useColumnLabel"`
	UseGeneratedKeys                 bool                                  `setting:"useGeneratedKeys"`
	DefaultExecutorType              core.ExecutorType                     `setting:"defaultExecutorType"`
	DefaultStatementTimeout          *time.Duration                        `setting:"defaultStatementTimeout"`
	DefaultFetchSize                 *int                                  `setting:"defaultFetchSize"`
	DefaultResultSetType             *core.ResultSetType                   `setting:"defaultResultSetType"`
	MapUnderscoreToCamelCase         bool                                  `setting:"mapUnderscoreToCamelCase"`
	SafeRowBoundsEnabled             bool                                  `setting:"safeRowBoundsEnabled"`
	LocalCacheScope                  core.LocalCacheScope                  `setting:"localCacheScope"`
	JdbcTypeForNull                  core.SQLType                          `setting:"jdbcTypeForNull"`
	LazyLoadTriggerMethods           []string                              `setting:"lazyLoadTriggerMethods"`
	SafeResultHandlerEnabled         bool                                  `setting:"safeResultHandlerEnabled"`
	DefaultScriptingLanguage         *reflection.Type                      `setting:"defaultScriptingLanguage"`
	DefaultEnumTypeHandler           *reflection.Type                      `setting:"defaultEnumTypeHandler"`
	CallSettersOnNulls               bool                                  `setting:"callSettersOnNulls"`
	UseActualParamName               bool                                  `setting:"useActualParamName"`
	ReturnInstanceForEmptyRow        bool                                  `setting:"returnInstanceForEmptyRow"`
	LogPrefix                        string                                `setting:"logPrefix"`
	LogImpl                          *reflection.Type                      `setting:"logImpl"`
	VFSImpl                          []*reflection.Type                    `setting:"vfsImpl"`
	ConfigurationFactory             *reflection.Type                      `setting:"configurationFactory"`
}

// DefaultSettings returns the settings in force when a description leaves
// a key out. Keys without a default are nil or empty.
func DefaultSettings() Settings {
	return Settings{
		AutoMappingBehavior:              core.AutoMappingPartial,
		AutoMappingUnknownColumnBehavior: core.UnknownColumnNone,
		CacheEnabled:                     true,
		MultipleResultSetsEnabled:        true,
		UseColumnLabel:                   true,
		DefaultExecutorType:              core.ExecutorSimple,
		LocalCacheScope:                  core.LocalCacheSession,
		JdbcTypeForNull:                  core.SQLTypeOther,
		LazyLoadTriggerMethods:           []string{"equals", "clone", "hashCode", "toString"},
		SafeResultHandlerEnabled:         true,
		UseActualParamName:               true,
	}
}

// Keys returns every recognised setting key, sorted.
func Keys() []string {
	keys := settingsReflector.SetterNames()
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key names a setting. Keys are case-sensitive.
func IsKey(key string) bool {
	return settingsReflector.HasSetter(key)
}

var settingsReflector = reflection.NewDefaultReflectorFactory().FindForType(reflect.TypeFor[Settings]())

// Values returns every setting as display text keyed by setting key.
// Optional settings that are unset map to "".
func (s Settings) Values() map[string]string {
	v := reflect.ValueOf(s)
	t := v.Type()
	out := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		if key := t.Field(i).Tag.Get("setting"); key != "" {
			out[key] = settingText(v.Field(i).Interface())
		}
	}
	return out
}

func settingText(v any) string {
	switch x := v.(type) {
	case *reflection.Type:
		if x == nil {
			return ""
		}
		return x.Name
	case []*reflection.Type:
		names := make([]string, len(x))
		for i, t := range x {
			names[i] = t.Name
		}
		return strings.Join(names, ",")
	case []string:
		return strings.Join(x, ",")
	case *time.Duration:
		if x == nil {
			return ""
		}
		return x.String()
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case *core.ResultSetType:
		if x == nil {
			return ""
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
