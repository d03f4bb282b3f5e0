package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
)

// Logger wraps logrus.Logger with the fields this service logs everywhere.
type Logger struct {
	*logrus.Logger
}

// New creates a JSON logger writing to stdout at the given level.
func New(level string) *Logger {
	return NewWithOutput(level, os.Stdout)
}

func NewWithOutput(level string, out io.Writer) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	return &Logger{Logger: log}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithOutput("panic", io.Discard)
}

// WithComponent tags entries with the emitting package.
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequestID returns the request id stored by ContextWithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext adds request and user ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(l.Logger)
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		entry = entry.WithField("request_id", id)
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		entry = entry.WithField("user_id", id)
	}
	return entry
}

// HTTPRequest logs one served request; 4xx/5xx at warn.
func (l *Logger) HTTPRequest(ctx context.Context, method, path string, status int, durationMs int64) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": durationMs,
	})
	if status >= 400 {
		entry.Warn("http request completed with error")
		return
	}
	entry.Info("http request completed")
}
