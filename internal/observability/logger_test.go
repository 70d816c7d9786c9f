package observability

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/threatgraph/internal/config"
)

// resetGlobalLogger rearms the init guard so each test can build a fresh
// logger. Tests here cannot run in parallel because of the shared global.
func resetGlobalLogger() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

func setupTestLogger(t *testing.T, cfg config.LoggerConfig) *bytes.Buffer {
	t.Helper()
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	var buf bytes.Buffer
	initializeLogger(cfg, zapcore.AddSync(&buf))
	return &buf
}

func TestInitializeLogger(t *testing.T) {
	t.Run("json format emits structured entries", func(t *testing.T) {
		buf := setupTestLogger(t, config.LoggerConfig{
			Level:       "debug",
			Format:      "json",
			ServiceName: "threatgraph-test",
		})

		GetLogger().Info("entity upserted", zap.String("entity_id", "actor-1"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be valid JSON: %s", buf.String())
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "entity upserted", entry["msg"])
		assert.Equal(t, "actor-1", entry["entity_id"])
		assert.Equal(t, "threatgraph-test", entry["logger"])
	})

	t.Run("level threshold filters lower entries", func(t *testing.T) {
		buf := setupTestLogger(t, config.LoggerConfig{
			Level:  "warn",
			Format: "json",
		})

		GetLogger().Info("suppressed")
		GetLogger().Warn("visible")

		assert.NotContains(t, buf.String(), "suppressed")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		buf := setupTestLogger(t, config.LoggerConfig{
			Level:  "loudest",
			Format: "json",
		})

		GetLogger().Debug("suppressed")
		GetLogger().Info("visible")

		assert.NotContains(t, buf.String(), "suppressed")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("console format is human readable", func(t *testing.T) {
		buf := setupTestLogger(t, config.LoggerConfig{
			Level:  "info",
			Format: "console",
		})

		GetLogger().Info("relation added")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "relation added")
		assert.False(t, json.Valid(buf.Bytes()), "console output should not be JSON")
	})

	t.Run("second initialization is a no-op", func(t *testing.T) {
		buf := setupTestLogger(t, config.LoggerConfig{Level: "info", Format: "json"})

		var second bytes.Buffer
		initializeLogger(config.LoggerConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&second))

		GetLogger().Info("still the first core")
		assert.Contains(t, buf.String(), "still the first core")
		assert.Empty(t, second.String())
	})
}

func TestGetLoggerFallback(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	logger := GetLogger()
	require.NotNil(t, logger, "a usable logger must exist before initialization")
}
