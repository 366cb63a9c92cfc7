// Package zapadapter routes pgx query logging into a zap.Logger and carries
// the per-request id assigned by the HTTP layer through context, so database
// log lines can be correlated with the request that caused them.
package zapadapter

import (
	"context"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key string

var idKey key

// NewContextWithID returns a context carrying the request id
func NewContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// IDFromContext extracts the request id set by NewContextWithID
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey).(string)
	return id, ok
}

type Logger struct {
	logger *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

// Log implements the pgx.Logger interface
func (pl *Logger) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, 0, len(data)+1)
	if id, ok := IDFromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	for k, v := range data {
		fields = append(fields, zap.Reflect(k, v))
	}

	switch level {
	case pgx.LogLevelTrace, pgx.LogLevelDebug:
		pl.logger.Debug(msg, fields...)
	case pgx.LogLevelInfo:
		pl.logger.Info(msg, fields...)
	case pgx.LogLevelWarn:
		pl.logger.Warn(msg, fields...)
	default:
		pl.logger.Error(msg, append(fields, zap.Stringer("PGX_LOG_LEVEL", level))...)
	}
}
