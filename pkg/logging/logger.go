package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process logger. Packages below cmd/ take the embedded
// *zap.Logger and name it after themselves.
type Logger struct {
	*zap.Logger
	serviceName string
}

// Config is the logging section of the service config
type Config struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Format      string `json:"format" yaml:"format" mapstructure:"format"`
	Output      string `json:"output" yaml:"output" mapstructure:"output"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

type contextKey string

// RequestIDKey is the context key the request id middleware stores ids under.
const RequestIDKey contextKey = "request_id"

func NewLogger(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if config.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "json"
	if strings.EqualFold(config.Format, "console") {
		zc.Encoding = "console"
	}
	zc.OutputPaths = []string{outputPath(config.Output)}
	if config.ServiceName != "" {
		zc.InitialFields = map[string]interface{}{"service": config.ServiceName}
	}

	zl, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{Logger: zl, serviceName: config.ServiceName}, nil
}

// outputPath maps the config value to a zap sink. Anything other than the
// standard streams is treated as a file path.
func outputPath(output string) string {
	switch strings.ToLower(output) {
	case "", "stdout":
		return "stdout"
	case "stderr":
		return "stderr"
	}
	return output
}

// Wrap adapts an existing zap logger, typically zaptest.NewLogger in tests.
func Wrap(l *zap.Logger, serviceName string) *Logger {
	return &Logger{Logger: l, serviceName: serviceName}
}

func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func (l *Logger) ServiceName() string {
	return l.serviceName
}

// Cleanup flushes buffered entries. Sync errors on stdout/stderr are expected
// on some platforms and ignored.
func (l *Logger) Cleanup() {
	if l != nil && l.Logger != nil {
		_ = l.Logger.Sync()
	}
}

// FromContext returns l with the request id carried by ctx, if any.
func FromContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	if ctx == nil {
		return l
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return l.With(zap.String("request_id", id))
	}
	return l
}

var global = NewNop()

// SetGlobalLogger installs logger as the process logger and redirects zap's
// globals to it.
func SetGlobalLogger(logger *Logger) {
	if logger == nil {
		return
	}
	global = logger
	zap.ReplaceGlobals(logger.Logger)
}

// Global returns the logger installed by SetGlobalLogger, or a no-op logger.
func Global() *Logger {
	return global
}
