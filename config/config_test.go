package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Worker.Slots)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Worker.MaxDelay)
	assert.Equal(t, "8080", cfg.API.Port)
	assert.Equal(t, "photo-ingestion", cfg.Kafka.Topic)
	assert.Equal(t, "photo-ingestion-dlq", cfg.Kafka.DeadLetterTopic)
	assert.Equal(t, "photos", cfg.Qdrant.Collection)
	assert.Equal(t, 512, cfg.Qdrant.Dimension)
	assert.Equal(t, "cosine", cfg.Qdrant.Distance)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WORKER_SLOTS", "16")
	t.Setenv("WORKER_BASE_DELAY", "2s")
	t.Setenv("KAFKA_TOPIC", "photos-in")
	t.Setenv("QDRANT_DIMENSION", "768")
	t.Setenv("STORAGE_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Worker.Slots)
	assert.Equal(t, 2*time.Second, cfg.Worker.BaseDelay)
	assert.Equal(t, "photos-in", cfg.Kafka.Topic)
	assert.Equal(t, 768, cfg.Qdrant.Dimension)
	assert.True(t, cfg.Storage.UseSSL)
}
