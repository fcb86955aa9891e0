package tge

import "context"

// Logger receives structured log records from the engines.
// keyvals are alternating key/value pairs. A nil Logger disables logging.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...interface{})
	Info(ctx context.Context, msg string, keyvals ...interface{})
	Error(ctx context.Context, msg string, keyvals ...interface{})
}
