package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogrus() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger, &buf
}

func TestNewLogrusLogger(t *testing.T) {
	logrusLogger, _ := setupTestLogrus()

	config := Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	}

	logrusAdapter := NewLogrusLogger(logrusLogger, config)

	require.NotNil(t, logrusAdapter)
	assert.Equal(t, Info, logrusAdapter.(*LogrusLogger).LogLevel)
	assert.Equal(t, 100*time.Millisecond, logrusAdapter.(*LogrusLogger).SlowThreshold)
}

func TestLogrusLogger_LogMode(t *testing.T) {
	logrusLogger, _ := setupTestLogrus()

	logger := NewLogrusLogger(logrusLogger, Config{
		LogLevel: Error,
	})

	infoLogger := logger.LogMode(Info)
	assert.Equal(t, Info, infoLogger.(*LogrusLogger).LogLevel)

	// original is not affected
	assert.Equal(t, Error, logger.(*LogrusLogger).LogLevel)
}

func TestLogrusLogger_LogLevels(t *testing.T) {
	ctx := context.Background()
	logrusLogger, buf := setupTestLogrus()
	logger := NewLogrusLogger(logrusLogger, Config{LogLevel: Info})

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

func TestLogrusLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("Normal trace", func(t *testing.T) {
		logrusLogger, buf := setupTestLogrus()
		logger := NewLogrusLogger(logrusLogger, Config{LogLevel: Info})

		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT * FROM movies", 3
		}, nil)

		output := buf.String()
		assert.Contains(t, output, "SELECT * FROM movies")
		assert.Contains(t, output, "rows")
		assert.Contains(t, output, "duration")
	})

	t.Run("Slow query", func(t *testing.T) {
		logrusLogger, buf := setupTestLogrus()
		logger := NewLogrusLogger(logrusLogger, Config{
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
		logrusLogger, buf := setupTestLogrus()
		logger := NewLogrusLogger(logrusLogger, Config{LogLevel: Error})

		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT * FROM missing", 0
		}, assert.AnError)

		output := buf.String()
		assert.Contains(t, output, "SELECT * FROM missing")
		assert.Contains(t, output, "error")
	})

	t.Run("Record not found error with ignore", func(t *testing.T) {
		logrusLogger, buf := setupTestLogrus()
		logger := NewLogrusLogger(logrusLogger, Config{
			LogLevel:                  Error,
			IgnoreRecordNotFoundError: true,
		})

		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT * FROM empty_table", 0
		}, ErrRecordNotFound)

		assert.Empty(t, buf.String())
	})
}

func TestLogrusLogger_SilentLevel(t *testing.T) {
	ctx := context.Background()
	logrusLogger, buf := setupTestLogrus()
	logger := NewLogrusLogger(logrusLogger, Config{LogLevel: Silent})

	logger.Info(ctx, "This should not be logged")
	logger.Warn(ctx, "This should not be logged")
	logger.Error(ctx, "This should not be logged")
	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	assert.Empty(t, buf.String())
}
