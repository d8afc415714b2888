package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "HTTP_ADDR", "STORE_DRIVER", "DATABASE_URL", "MONGO_URI", "MONGO_DB",
		"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "PAYMENT_TOPIC", "KAFKA_CONSUMER_GROUP",
		"IDEMP_TTL", "OUTBOX_POLL_INTERVAL", "RETRY_BACKOFF", "COMPLETION_INTERVAL",
		"JWT_SECRET", "PROPERTIES_FIXTURES",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "payment.events.v1", cfg.PaymentTopic)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, time.Hour, cfg.CompletionInterval)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=postgres\nDATABASE_URL=postgres://localhost/stay\nKAFKA_BROKERS=a:9092, b:9092\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("IDEMP_TTL", "soon")
	_, err := Load(missing)
	assert.ErrorContains(t, err, "IDEMP_TTL")

	clearEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "MONGO_URI")

	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "JWT_SECRET")
}
