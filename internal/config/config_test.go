package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithMemoryDirectory(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "memory")

	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Directory.Driver)
	assert.Equal(t, ":3000", cfg.API.Port)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.CallTimeout)
	assert.Equal(t, 64, cfg.Dispatch.MaxConcurrentPushes)
	assert.Equal(t, 500, cfg.Dispatch.QueueSize)
	assert.Equal(t, 10, cfg.Dispatch.MaxWorkers)
	assert.Equal(t, "alerts", cfg.Push.AndroidChannelID)
	assert.Equal(t, "dispatch-service", cfg.Kafka.GroupID)
}

func TestPostgresRequiresDSN(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "")
	t.Setenv("DB_DSN", "")

	_, err := fromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestKafkaBrokerRequiresTopic(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "memory")
	t.Setenv("KAFKA_BROKER", "localhost:9092")
	t.Setenv("KAFKA_TOPIC", "")

	_, err := fromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TOPIC")
}

func TestOverrides(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/dispatch")
	t.Setenv("DISPATCH_CALL_TIMEOUT", "750ms")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("API_PORT", ":9999")

	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Dispatch.CallTimeout)
	assert.Equal(t, 3, cfg.Dispatch.MaxWorkers)
	assert.Equal(t, ":9999", cfg.API.Port)
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "memory")
	t.Setenv("DISPATCH_CALL_TIMEOUT", "soon")
	t.Setenv("QUEUE_SIZE", "-1")

	_, err := fromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISPATCH_CALL_TIMEOUT")
	assert.Contains(t, err.Error(), "QUEUE_SIZE")
}

func TestUnknownDriver(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "mongo")

	_, err := fromEnv()
	require.Error(t, err)
}
