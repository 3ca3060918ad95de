// Package config loads enviro settings from config.yaml, ENVIRO_
// environment variables and built-in defaults.
package config

// Default configuration values.
const (
	// AppName names the XDG subdirectories.
	AppName = "enviro"

	// EnvPrefix prefixes environment overrides, e.g. ENVIRO_OUTPUT_FORMAT.
	EnvPrefix = "ENVIRO"

	// DefaultOnError is how filesystem probe errors are treated.
	DefaultOnError = "corrupted"

	// DefaultFoldCase lets the platform decide name case sensitivity.
	DefaultFoldCase = "auto"

	// DefaultRetentionDays is how long commit journal records are kept.
	DefaultRetentionDays = 90

	// DefaultOutputFormat is the formatter used when --format is not given.
	DefaultOutputFormat = "pretty"

	// DefaultLogLevel is the file log level.
	DefaultLogLevel = "info"

	// DefaultConsoleLevel is the stderr log level. Empty disables it.
	DefaultConsoleLevel = ""

	// DefaultMaxLogSize is the size at which the log file rotates.
	DefaultMaxLogSize = "10MB"
)

// DefaultComponents holds per-component log levels.
var DefaultComponents = map[string]string{
	"store":   "info",
	"commit":  "info",
	"osenv":   "info",
	"staging": "warn",
	"journal": "warn",
}
