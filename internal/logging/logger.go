// Package logging provides the minimal printf-style logging contract used
// across the application, with component-scoped console loggers.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	minLevel   = INFO
	minLevelMu sync.RWMutex

	levelColors = map[Level]func(a ...any) string{
		DEBUG: color.New(color.FgHiBlack).SprintFunc(),
		INFO:  color.New(color.FgBlue).SprintFunc(),
		WARN:  color.New(color.FgYellow).SprintFunc(),
		ERROR: color.New(color.FgRed).SprintFunc(),
	}
	levelNames = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}
)

// SetLevel sets the minimum level emitted by component loggers.
func SetLevel(level Level) {
	minLevelMu.Lock()
	minLevel = level
	minLevelMu.Unlock()
}

// ParseLevel maps a level name to its Level, defaulting to INFO.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type componentLogger struct {
	component string
	out       *log.Logger
}

// NewComponentLogger returns a console logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{
		component: component,
		out:       log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *componentLogger) log(level Level, format string, args ...any) {
	minLevelMu.RLock()
	enabled := level >= minLevel
	minLevelMu.RUnlock()
	if !enabled {
		return
	}

	label := levelNames[level]
	if colorize, ok := levelColors[level]; ok {
		label = colorize(label)
	}
	l.out.Printf("[%s] [%s] %s", label, l.component, fmt.Sprintf(format, args...))
}

func (l *componentLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }
