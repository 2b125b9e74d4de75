package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the name of the rotating log file inside the logs directory.
const LogFileName = "testdb.log"

var (
	// Log is the global logger instance
	Log = zerolog.Nop()

	// fileWriter is the file output for logging (with rotation)
	fileWriter *lumberjack.Logger

	// runContext holds container/run identifiers for log entries (optional, may be empty)
	runContext   runContextData
	runContextMu sync.RWMutex
)

type runContextData struct {
	Container string
	RunID     string
}

// SetContext sets the container name and run ID attached to all subsequent
// log entries. Pass empty strings to clear. Thread-safe.
func SetContext(container, runID string) {
	runContextMu.Lock()
	defer runContextMu.Unlock()
	runContext = runContextData{
		Container: container,
		RunID:     runID,
	}
}

// ClearContext clears the container/run context.
func ClearContext() {
	SetContext("", "")
}

func getContext() runContextData {
	runContextMu.RLock()
	defer runContextMu.RUnlock()
	return runContext
}

func addContext(event *zerolog.Event) *zerolog.Event {
	ctx := getContext()
	if ctx.Container != "" {
		event = event.Str("container", ctx.Container)
	}
	if ctx.RunID != "" {
		event = event.Str("run_id", ctx.RunID)
	}
	return event
}

// LoggingConfig holds configuration for file-based logging.
// This mirrors config.LoggingConfig; it is duplicated here to keep the
// logger free of config imports.
type LoggingConfig struct {
	FileEnabled *bool
	MaxSizeMB   int
	MaxAgeDays  int
	MaxBackups  int
}

// IsFileEnabled returns whether file logging is enabled.
// Defaults to true if not explicitly set.
func (c *LoggingConfig) IsFileEnabled() bool {
	if c.FileEnabled == nil {
		return true
	}
	return *c.FileEnabled
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (c *LoggingConfig) GetMaxSizeMB() int {
	if c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (c *LoggingConfig) GetMaxAgeDays() int {
	if c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (c *LoggingConfig) GetMaxBackups() int {
	if c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// Init initializes console-only logging on stderr.
// Console output is limited to warnings unless debug is set, so that the
// provisioning messages on stdout stay readable.
func Init(debug bool) {
	lvl := zerolog.WarnLevel
	if debug {
		lvl = zerolog.DebugLevel
	}
	Log = zerolog.New(consoleWriter()).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// InitWithFile initializes the logger with an additional rotating JSON file.
// If logsDir is empty or cfg disables file logging, this behaves like Init.
func InitWithFile(debug bool, logsDir string, cfg *LoggingConfig) error {
	if logsDir == "" || cfg == nil || !cfg.IsFileEnabled() {
		Init(debug)
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, LogFileName),
		MaxSize:    cfg.GetMaxSizeMB(),  // MB
		MaxAge:     cfg.GetMaxAgeDays(), // days
		MaxBackups: cfg.GetMaxBackups(),
		LocalTime:  true,
	}

	// The file gets everything at the configured level; the console only
	// warnings and above unless debugging.
	consoleLevel := zerolog.WarnLevel
	if debug {
		consoleLevel = zerolog.DebugLevel
	}
	console := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: consoleWriter()},
		Level:  consoleLevel,
	}
	multi := zerolog.MultiLevelWriter(console, fileWriter)

	Log = zerolog.New(multi).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()

	return nil
}

// CloseFileWriter closes the file writer if it exists.
func CloseFileWriter() error {
	if fileWriter != nil {
		err := fileWriter.Close()
		fileWriter = nil
		return err
	}
	return nil
}

// GetLogFilePath returns the path to the current log file, or empty string if file logging is disabled.
func GetLogFilePath() string {
	if fileWriter != nil {
		return fileWriter.Filename
	}
	return ""
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return addContext(Log.Debug())
}

// Info logs an info message
func Info() *zerolog.Event {
	return addContext(Log.Info())
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return addContext(Log.Warn())
}

// Error logs an error message
func Error() *zerolog.Event {
	return addContext(Log.Error())
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return addContext(Log.Fatal())
}

// Global adapts the package-level functions to the iostreams.Logger shape so
// that commands can log with run context through an injected interface.
type Global struct{}

func (Global) Debug() *zerolog.Event { return Debug() }
func (Global) Info() *zerolog.Event  { return Info() }
func (Global) Warn() *zerolog.Event  { return Warn() }
func (Global) Error() *zerolog.Event { return Error() }

// Writer returns an io.Writer that logs each write at debug level.
// Used to mirror raw session transcripts into the log file.
func Writer(source string) io.Writer {
	return debugWriter{source: source}
}

type debugWriter struct{ source string }

func (w debugWriter) Write(p []byte) (int, error) {
	Debug().Str("source", w.source).Str("data", string(p)).Msg("transcript")
	return len(p), nil
}
