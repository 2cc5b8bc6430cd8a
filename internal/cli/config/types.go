// Package config loads the settings of the leapmapper CLI itself.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Description is the path of the configuration description to assemble.
	Description string            `koanf:"description"`
	Environment string            `koanf:"environment"`
	Format      string            `koanf:"format"`
	Variables   map[string]string `koanf:"variables"`
	// Resources is the directory mapper and property resources are
	// resolved against; the description's directory when empty.
	Resources    string `koanf:"resources"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultDescription = "config.xml"
	DefaultFormat      = "auto"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix          = "LEAPMAPPER_"
)

// configFileNames are searched in order when no file is given.
var configFileNames = []string{"leapmapper.yaml", "leapmapper.yml"}
