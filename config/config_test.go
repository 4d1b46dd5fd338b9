package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "videos")
	t.Setenv("POSTS_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "videos", cfg.AWS.PostsBucket)
	assert.Equal(t, DispatchLocal, cfg.Encode.Dispatch)
	assert.Equal(t, RegistryMemory, cfg.Encode.Registry)
	assert.Equal(t, time.Hour, cfg.Encode.Retention)
	assert.False(t, cfg.Encode.UsesRedis())
}

func TestLoad_RedisDispatchNeedsRedisRegistry(t *testing.T) {
	t.Setenv("ENCODE_DISPATCH", "redis")
	t.Setenv("ENCODE_REGISTRY", "memory")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("ENCODE_REGISTRY", "REDIS")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Encode.UsesRedis())
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("STORAGE_TRANSPORT", "ftp")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ClampsConcurrency(t *testing.T) {
	t.Setenv("ENCODE_MAX_CONCURRENT", "0")
	t.Setenv("ENCODE_QUEUE_DEPTH", "-2")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Encode.MaxConcurrent)
	assert.Equal(t, 0, cfg.Encode.QueueDepth)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@h:1/db?sslmode=disable",
		DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "1", DBName: "db", SSLMode: "disable"}.DSN())
	assert.Equal(t, "postgres://x", DatabaseConfig{URL: "postgres://x", Host: "ignored"}.DSN())
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitOrigins(" a, ,b "))
	assert.Nil(t, SplitOrigins(""))
}
