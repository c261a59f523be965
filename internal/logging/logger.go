// Package logging provides config-driven categorized logging for scriptterm.
// In debug mode logs are written to <dir>/<date>_scriptterm.log with one named
// zap logger per category. Outside debug mode every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, process wiring
	CategoryBridge  Category = "bridge"  // Request dispatch, run queue
	CategoryRuntime Category = "runtime" // Interpreter, script stderr
	CategoryConsole Category = "console" // Terminal controller
	CategorySource  Category = "source"  // Script fetch and watch
)

// Config controls where and how much is logged.
type Config struct {
	Debug      bool
	Level      string
	Dir        string
	JSON       bool
	Categories map[string]bool // nil enables every category
}

// Logs owns the root logger and its log file, if any.
type Logs struct {
	cfg  Config
	root *zap.Logger
	file *os.File
	path string

	mu      sync.Mutex
	loggers map[Category]*zap.Logger
}

// Open builds the loggers described by cfg. With cfg.Debug unset it returns
// no-op loggers and touches nothing on disk.
func Open(cfg Config) (*Logs, error) {
	if !cfg.Debug {
		return Nop(), nil
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("log directory required in debug mode")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	path := filepath.Join(cfg.Dir, time.Now().Format("2006-01-02")+"_scriptterm.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	core := zapcore.NewCore(encoder(cfg.JSON), zapcore.AddSync(file), level)
	l := &Logs{
		cfg:     cfg,
		root:    zap.New(core),
		file:    file,
		path:    path,
		loggers: make(map[Category]*zap.Logger),
	}
	l.Get(CategoryBoot).Info("logging initialized",
		zap.String("path", path),
		zap.String("level", level.String()))
	return l, nil
}

// Stderr logs every category to standard error. Headless modes use it
// because stdout carries script output or protocol lines.
func Stderr(verbose bool) (*Logs, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	root, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Logs{cfg: Config{Debug: true}, root: root, loggers: make(map[Category]*zap.Logger)}, nil
}

// Nop returns loggers that discard everything.
func Nop() *Logs {
	return &Logs{root: zap.NewNop(), loggers: make(map[Category]*zap.Logger)}
}

func encoder(json bool) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if json {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Enabled reports whether category writes anywhere.
func (l *Logs) Enabled(category Category) bool {
	if !l.cfg.Debug {
		return false
	}
	if l.cfg.Categories == nil {
		return true
	}
	enabled, exists := l.cfg.Categories[string(category)]
	return !exists || enabled
}

// Get returns the logger for category, or a no-op logger when the category
// is disabled.
func (l *Logs) Get(category Category) *zap.Logger {
	if !l.Enabled(category) {
		return zap.NewNop()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lg, ok := l.loggers[category]; ok {
		return lg
	}
	lg := l.root.Named(string(category))
	l.loggers[category] = lg
	return lg
}

// Path is the log file path, empty when not logging to a file.
func (l *Logs) Path() string { return l.path }

// Close flushes buffered entries and closes the log file.
func (l *Logs) Close() error {
	_ = l.root.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
