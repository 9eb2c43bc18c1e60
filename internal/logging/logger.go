// Package logging provides categorized file-based logging for spacer.
// Logs are written as JSON lines to .spacer/logs/ in the project workspace.
// Logging is gated by debug mode - when it is off, every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config resolution
	CategorySession    Category = "session"    // Chat loop, slash commands
	CategoryPerception Category = "perception" // Brain calls (API and CLI)
	CategoryBackend    Category = "backend"    // Backend detection and verification
	CategoryPhase      Category = "phase"      // spacer.yaml reads and checklist mutations
	CategoryTranscript Category = "transcript" // Transcript persistence
	CategoryBib        Category = "bib"        // Bibliography lookups
	CategoryTactile    Category = "tactile"    // Hands subprocesses
)

// Logger wraps a zap sugared logger with its category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	stateMu   sync.RWMutex
	base      *zap.Logger
	logFile   *os.File
	logsDir   string
	debugMode bool

	nop = zap.NewNop().Sugar()
)

// Initialize sets up the logs directory under workspace and opens the log
// file. With debug false it only records that logging is disabled.
func Initialize(workspace string, debug bool) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	CloseAll()

	stateMu.Lock()
	debugMode = debug
	if !debug {
		stateMu.Unlock()
		return nil
	}

	logsDir = filepath.Join(workspace, ".spacer", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		debugMode = false
		stateMu.Unlock()
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	filename := fmt.Sprintf("%s_spacer.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(logsDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		debugMode = false
		stateMu.Unlock()
		return fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.NameKey = "cat"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)

	logFile = f
	base = zap.New(core)
	stateMu.Unlock()

	Boot("=== spacer logging initialized ===")
	Boot("Workspace: %s", workspace)
	Boot("Logs directory: %s", logsDir)
	return nil
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return debugMode
}

// LogsDir returns the active logs directory, or "" when logging is off.
func LogsDir() string {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if !debugMode {
		return ""
	}
	return logsDir
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled.
func Get(category Category) *Logger {
	stateMu.RLock()
	b := base
	enabled := debugMode
	stateMu.RUnlock()

	if !enabled || b == nil {
		return &Logger{category: category, sugar: nop}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, sugar: b.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key-value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries.
func Sync() {
	stateMu.RLock()
	b := base
	stateMu.RUnlock()
	if b != nil {
		_ = b.Sync()
	}
}

// CloseAll flushes and closes the log file (call at shutdown)
func CloseAll() {
	stateMu.Lock()
	if base != nil {
		_ = base.Sync()
	}
	if logFile != nil {
		logFile.Close()
	}
	base = nil
	logFile = nil
	stateMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops when debug mode is off
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Session logs to the session category
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// SessionWarn logs warning to the session category
func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warn(format, args...)
}

// Perception logs to the perception category
func Perception(format string, args ...interface{}) {
	Get(CategoryPerception).Info(format, args...)
}

// PerceptionDebug logs debug to the perception category
func PerceptionDebug(format string, args ...interface{}) {
	Get(CategoryPerception).Debug(format, args...)
}

// PerceptionWarn logs warning to the perception category
func PerceptionWarn(format string, args ...interface{}) {
	Get(CategoryPerception).Warn(format, args...)
}

// PerceptionError logs error to the perception category
func PerceptionError(format string, args ...interface{}) {
	Get(CategoryPerception).Error(format, args...)
}

// Backend logs to the backend category
func Backend(format string, args ...interface{}) {
	Get(CategoryBackend).Info(format, args...)
}

// BackendDebug logs debug to the backend category
func BackendDebug(format string, args ...interface{}) {
	Get(CategoryBackend).Debug(format, args...)
}

// Phase logs to the phase category
func Phase(format string, args ...interface{}) {
	Get(CategoryPhase).Info(format, args...)
}

// PhaseDebug logs debug to the phase category
func PhaseDebug(format string, args ...interface{}) {
	Get(CategoryPhase).Debug(format, args...)
}

// Transcript logs to the transcript category
func Transcript(format string, args ...interface{}) {
	Get(CategoryTranscript).Info(format, args...)
}

// Bib logs to the bib category
func Bib(format string, args ...interface{}) {
	Get(CategoryBib).Info(format, args...)
}

// BibDebug logs debug to the bib category
func BibDebug(format string, args ...interface{}) {
	Get(CategoryBib).Debug(format, args...)
}

// BibWarn logs warning to the bib category
func BibWarn(format string, args ...interface{}) {
	Get(CategoryBib).Warn(format, args...)
}

// Tactile logs to the tactile category
func Tactile(format string, args ...interface{}) {
	Get(CategoryTactile).Info(format, args...)
}

// TactileDebug logs debug to the tactile category
func TactileDebug(format string, args ...interface{}) {
	Get(CategoryTactile).Debug(format, args...)
}

// TactileWarn logs warning to the tactile category
func TactileWarn(format string, args ...interface{}) {
	Get(CategoryTactile).Warn(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
