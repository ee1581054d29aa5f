package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/panchayat-portal/internal/config"
)

// NewLogger creates a structured JSON zap.Logger tagged with the app name and env.
func NewLogger(app config.AppConfig, cfg config.LoggerConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: app.Env != "production",
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "ts",
			CallerKey:     "caller",
			StacktraceKey: "stack",
			EncodeLevel:   zapcore.LowercaseLevelEncoder,
			EncodeTime:    zapcore.ISO8601TimeEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"service": app.Name,
			"env":     app.Env,
		},
	}

	return zapCfg.Build()
}

// SecurityEvent logs an audit line carrying an `event` field. Callers never
// pass OTP codes or passwords in fields.
func SecurityEvent(logger *zap.Logger, event string, fields ...zap.Field) {
	logger.Info("security event", append([]zap.Field{zap.String("event", event)}, fields...)...)
}

// SecurityWarning is SecurityEvent at warn level.
func SecurityWarning(logger *zap.Logger, event string, fields ...zap.Field) {
	logger.Warn("security event", append([]zap.Field{zap.String("event", event)}, fields...)...)
}
