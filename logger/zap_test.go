package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func setupTestZap() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

func TestNewZapLogger(t *testing.T) {
	zapLogger, _ := setupTestZap()

	config := Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	}

	zapAdapter := NewZapLogger(zapLogger, config)

	require.NotNil(t, zapAdapter)
	assert.Equal(t, Info, zapAdapter.(*ZapLogger).LogLevel)
	assert.Equal(t, 100*time.Millisecond, zapAdapter.(*ZapLogger).SlowThreshold)
}

func TestZapLogger_LogMode(t *testing.T) {
	logger := NewZapLogger(zap.NewNop(), Config{
		LogLevel: Error,
	})

	infoLogger := logger.LogMode(Info)
	assert.Equal(t, Info, infoLogger.(*ZapLogger).LogLevel)

	// original is not affected
	assert.Equal(t, Error, logger.(*ZapLogger).LogLevel)
}

func TestZapLogger_LogLevels(t *testing.T) {
	ctx := context.Background()
	zapLogger, buf := setupTestZap()
	logger := NewZapLogger(zapLogger, Config{LogLevel: Info})

	tests := []struct {
		name   string
		level  LogLevel
		logMsg string
	}{
		{"Info level", Info, "Test info message"},
		{"Warn level", Warn, "Test warn message"},
		{"Error level", Error, "Test error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			switch tt.level {
			case Info:
				logger.Info(ctx, tt.logMsg, "key", "value")
			case Warn:
				logger.Warn(ctx, tt.logMsg, "key", "value")
			case Error:
				logger.Error(ctx, tt.logMsg, "key", "value")
			}

			output := buf.String()
			assert.Contains(t, output, tt.logMsg)
			assert.Contains(t, output, "key")
			assert.Contains(t, output, "value")
		})
	}
}

func TestZapLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("Normal trace", func(t *testing.T) {
		zapLogger, buf := setupTestZap()
		logger := NewZapLogger(zapLogger, Config{LogLevel: Info})

		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT * FROM movies", 3
		}, nil)

		output := buf.String()
		assert.Contains(t, output, "SELECT * FROM movies")
		assert.Contains(t, output, "rows")
		assert.Contains(t, output, "duration")
	})

	t.Run("Slow query", func(t *testing.T) {
		zapLogger, buf := setupTestZap()
		logger := NewZapLogger(zapLogger, Config{
			LogLevel:      Warn,
			SlowThreshold: 100 * time.Millisecond,
		})

		logger.Trace(ctx, time.Now().Add(-150*time.Millisecond), func() (string, int64) {
			return "SELECT * FROM large_table", 1000
		}, nil)

		output := buf.String()
		assert.Contains(t, output, "SLOW SQL")
		assert.Contains(t, output, "slow_threshold")
	})

	t.Run("Error trace", func(t *testing.T) {
		zapLogger, buf := setupTestZap()
		logger := NewZapLogger(zapLogger, Config{LogLevel: Error})

		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT * FROM missing", 0
		}, assert.AnError)

		output := buf.String()
		assert.Contains(t, output, "SELECT * FROM missing")
		assert.Contains(t, output, "error")
	})

	t.Run("Record not found error with ignore", func(t *testing.T) {
		zapLogger, buf := setupTestZap()
		logger := NewZapLogger(zapLogger, Config{
			LogLevel:                  Error,
			IgnoreRecordNotFoundError: true,
		})

		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT * FROM empty_table", 0
		}, ErrRecordNotFound)

		assert.Empty(t, buf.String())
	})
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected zapcore.Level
	}{
		{"Silent", Silent, zapcore.DPanicLevel},
		{"Error", Error, zapcore.ErrorLevel},
		{"Warn", Warn, zapcore.WarnLevel},
		{"Info", Info, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ZapLevel(tt.level))
		})
	}
}

func TestNewZapLoggerWithConfig(t *testing.T) {
	logger := NewZapLoggerWithConfig(Config{LogLevel: Warn})

	require.NotNil(t, logger)
	assert.Equal(t, Warn, logger.(*ZapLogger).LogLevel)
}
