package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It is usable before Init and writes
// warnings to stderr until configured.
var Logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel, Prefix: "dayplan"})

// Config holds logger configuration
type Config struct {
	Level string // debug, info, warn, error
	File  string // optional rotating log file
}

// Init replaces the global logger according to cfg.
func Init(cfg Config) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.WarnLevel
	}
	debug := level == log.DebugLevel

	var writer io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		// Only mirror to stderr when debugging; the CLI owns stdout and stderr otherwise.
		if debug {
			writer = io.MultiWriter(os.Stderr, fileWriter)
		} else {
			writer = fileWriter
		}
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "dayplan",
	})
	return nil
}

func Debug(msg string, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

func Info(msg string, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

func Warn(msg string, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

func Error(msg string, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }
