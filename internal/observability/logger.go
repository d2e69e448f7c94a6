// Package observability owns the process logger.
//
// CLILogger is the logger every command writes to. It starts as a no-op so
// packages and tests can log before initialization.
package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logging profiles.
const (
	ProfileStructured = "STRUCTURED"
	ProfileConsole    = "CONSOLE"
)

// CLILogger is the process-wide logger.
var CLILogger = zap.NewNop()

// Options configures CLILogger.
type Options struct {
	Service string
	Level   string
	Profile string

	// Output receives log lines. Nil means stderr.
	Output io.Writer
}

// InitCLILogger installs a console logger on stderr at info level, or debug
// when verbose is set.
func InitCLILogger(service string, verbose bool) {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := NewLogger(Options{Service: service, Level: level, Profile: ProfileConsole})
	if err != nil {
		return
	}
	CLILogger = logger
}

// Configure replaces CLILogger according to opts.
func Configure(opts Options) error {
	logger, err := NewLogger(opts)
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// NewLogger builds a zap logger. The STRUCTURED profile writes JSON; CONSOLE
// writes human-readable lines.
func NewLogger(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoderFor(opts.Profile), zapcore.Lock(zapcore.AddSync(out)), level)
	return withService(zap.New(core), opts.Service), nil
}

// InitFileLogger points CLILogger at a rotating JSON log file. The dashboard
// uses it so log lines never draw over the terminal UI. The returned func
// flushes and closes the file.
func InitFileLogger(service, path, level string) (func() error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	core := zapcore.NewCore(encoderFor(ProfileStructured), zapcore.AddSync(rotator), lvl)
	logger := withService(zap.New(core), service)
	CLILogger = logger

	return func() error {
		_ = logger.Sync()
		return rotator.Close()
	}, nil
}

// ParseLevel accepts debug, info, warn and error (case-insensitive). Empty
// means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func encoderFor(profile string) zapcore.Encoder {
	if strings.EqualFold(profile, ProfileConsole) {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func withService(l *zap.Logger, service string) *zap.Logger {
	if service == "" {
		return l
	}
	return l.With(zap.String("service", service))
}
