// Package logging provides component loggers with file rotation for enviro.
//
// Loggers can be obtained at package init time. They discard everything
// until Init installs a log file and start discarding again after Close.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("commit")
//	logger.Info("commit started", "scope", "user")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level = log.Level

// Supported levels, least severe first.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses debug, info, warn (or warning) and error.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	switch name {
	case "debug", "info", "warn", "error":
		return log.ParseLevel(name)
	}
	return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables stderr output at the specified level.
	// Empty disables console output.
	ConsoleLevel string
}

// outputs is the set of charm loggers one component writes to.
type outputs struct {
	file    *log.Logger
	console *log.Logger
}

func (o *outputs) write(level Level, msg string, keyvals []any) {
	o.file.Log(level, msg, keyvals...)
	if o.console != nil {
		o.console.Log(level, msg, keyvals...)
	}
}

// Logger writes leveled, structured records for one component.
type Logger struct {
	component string
	fields    []any
	out       *atomic.Pointer[outputs]
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }

// Component returns the component name the logger was created for.
func (l *Logger) Component() string {
	return l.component
}

// With returns a logger that adds the key/value pairs to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		component: l.component,
		fields:    append(slices.Clip(l.fields), args...),
		out:       l.out,
	}
}

func (l *Logger) log(level Level, msg string, args []any) {
	o := l.out.Load()
	if o == nil {
		return
	}
	if len(l.fields) > 0 {
		args = append(slices.Clip(l.fields), args...)
	}
	o.write(level, msg, args)
}

// settings is a parsed Config.
type settings struct {
	level        Level
	components   map[string]Level
	console      bool
	consoleLevel Level
}

func parseSettings(cfg Config) (settings, error) {
	var s settings
	var err error

	if s.level, err = ParseLevel(cfg.Level); err != nil {
		return s, fmt.Errorf("parsing log level: %w", err)
	}

	s.components = make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return s, fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		s.components[comp] = parsed
	}

	if cfg.ConsoleLevel != "" {
		if s.consoleLevel, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return s, fmt.Errorf("parsing console level: %w", err)
		}
		s.console = true
	}
	return s, nil
}

// registry owns the log file and every logger handed out by Get.
type registry struct {
	mu       sync.Mutex
	writer   *RotatingWriter
	settings settings
	console  io.Writer
	loggers  map[string]*Logger
}

var std = &registry{
	console: os.Stderr,
	loggers: make(map[string]*Logger),
}

// build returns the outputs for component, or nil when no file is open.
// Must be called with r.mu held.
func (r *registry) build(component string) *outputs {
	if r.writer == nil {
		return nil
	}

	level := r.settings.level
	if override, ok := r.settings.components[component]; ok {
		level = override
	}

	o := &outputs{
		file: log.NewWithOptions(r.writer, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}
	if r.settings.console {
		o.console = log.NewWithOptions(r.console, log.Options{
			Level:           r.settings.consoleLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}
	return o
}

// rebuild points every registered logger at the current outputs.
// Must be called with r.mu held.
func (r *registry) rebuild() {
	for component, logger := range r.loggers {
		logger.out.Store(r.build(component))
	}
}

// Init opens the log file and routes every logger to it. Calling Init
// again replaces the previous configuration.
func Init(cfg Config) error {
	s, err := parseSettings(cfg)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	std.mu.Lock()
	defer std.mu.Unlock()

	previous := std.writer
	std.writer = writer
	std.settings = s
	std.rebuild()

	if previous != nil {
		if err := previous.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	std.mu.Lock()
	defer std.mu.Unlock()

	if logger, ok := std.loggers[component]; ok {
		return logger
	}
	logger := &Logger{component: component, out: new(atomic.Pointer[outputs])}
	logger.out.Store(std.build(component))
	std.loggers[component] = logger
	return logger
}

// Close flushes and closes the log file. Existing loggers keep working
// and discard their output until the next Init.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.writer == nil {
		return nil
	}
	writer := std.writer
	std.writer = nil
	std.settings = settings{}
	std.rebuild()

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/enviro/enviro.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "enviro", "enviro.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
