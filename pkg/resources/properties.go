package resources

import (
	"bytes"
	"fmt"

	"github.com/joho/godotenv"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/magiconair/properties"
)

// ParseProperties decodes a property set according to the file extension
// (including the dot). Unknown extensions are read as .properties.
func ParseProperties(ext string, data []byte) (core.Properties, error) {
	switch ext {
	case ".env":
		return parseDotenv(data)
	case ".yaml", ".yml", ".json":
		return parseStructured(data)
	default:
		return parseJavaProperties(data)
	}
}

func parseJavaProperties(data []byte) (core.Properties, error) {
	// Expansion is left to the description's own ${...} handling.
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return core.Properties(p.Map()), nil
}

func parseDotenv(data []byte) (core.Properties, error) {
	m, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return core.Properties(m), nil
}

// parseStructured flattens nested YAML or JSON into dotted keys.
func parseStructured(data []byte) (core.Properties, error) {
	raw, err := koanfyaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, "."), nil); err != nil {
		return nil, err
	}
	props := core.Properties{}
	for key, v := range k.All() {
		props[key] = fmt.Sprint(v)
	}
	return props, nil
}
