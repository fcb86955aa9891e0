// Package logging adapts go-ethereum's structured logger to tge.Logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// Logger forwards engine log records to a go-ethereum logger.
type Logger struct {
	log log.Logger
}

var _ tge.Logger = (*Logger)(nil)

// New wraps l. A nil l logs through the go-ethereum root logger.
func New(l log.Logger) *Logger {
	if l == nil {
		l = log.Root()
	}
	return &Logger{log: l}
}

// NewTerminal returns a Logger writing human-readable records at level and above to w.
func NewTerminal(w io.Writer, level slog.Level, color bool) *Logger {
	return New(log.NewLogger(log.NewTerminalHandlerWithLevel(w, level, color)))
}

// With returns a Logger that adds keyvals to every record.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{log: l.log.With(keyvals...)}
}

func (l *Logger) Debug(_ context.Context, msg string, keyvals ...interface{}) {
	l.log.Debug(msg, keyvals...)
}

func (l *Logger) Info(_ context.Context, msg string, keyvals ...interface{}) {
	l.log.Info(msg, keyvals...)
}

func (l *Logger) Error(_ context.Context, msg string, keyvals ...interface{}) {
	l.log.Error(msg, keyvals...)
}

// ParseLevel parses trace, debug, info, warn, or error.
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return log.LevelTrace, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
