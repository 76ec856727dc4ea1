// Package logger wraps the gommon logger used by echo so that services and
// HTTP middleware write through the same levelled output.
package logger

import (
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

// Logger is the printf-style logging contract accepted by services.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Log is the gommon-backed Logger.
type Log struct {
	l *log.Logger
}

// New builds a logger with the given prefix and level name (debug, info,
// warn, error, off). Unknown level names fall back to info.
func New(prefix, level string) *Log {
	l := log.New(prefix)
	l.SetHeader(`${time_rfc3339} ${level} ${prefix} ${short_file}:${line}`)
	l.SetLevel(ParseLevel(level))
	return &Log{l: l}
}

// ParseLevel maps a level name to the gommon level.
func ParseLevel(level string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}

// Raw exposes the underlying gommon logger, e.g. to install it as e.Logger.
func (g *Log) Raw() *log.Logger { return g.l }

// SetOutput redirects the output, mainly for tests.
func (g *Log) SetOutput(w io.Writer) { g.l.SetOutput(w) }

func (g *Log) Debug(format string, args ...any) { g.l.Debugf(format, args...) }
func (g *Log) Info(format string, args ...any)  { g.l.Infof(format, args...) }
func (g *Log) Warn(format string, args ...any)  { g.l.Warnf(format, args...) }
func (g *Log) Error(format string, args ...any) { g.l.Errorf(format, args...) }

// Fatal logs and exits the process.
func (g *Log) Fatal(format string, args ...any) { g.l.Fatalf(format, args...) }

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }
