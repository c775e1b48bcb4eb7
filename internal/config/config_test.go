package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that might interfere with defaults.
	os.Unsetenv("HTTP_LISTEN_ADDR")
	os.Unsetenv("GATEWAY_LISTEN_ADDR")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("S3_BUCKET")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("BASE_DOMAIN")
	os.Unsetenv("BUILD_TIMEOUT_SECONDS")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, ":8081", cfg.GatewayListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "shipstatic", cfg.S3Bucket)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "shipstatic.local", cfg.BaseDomain)
	assert.Equal(t, "npm install", cfg.InstallCommand)
	assert.Equal(t, "npm run build", cfg.BuildCommand)
	assert.Equal(t, "dist", cfg.OutputDir)
	assert.Equal(t, 10*time.Minute, cfg.BuildTimeout)
	assert.True(t, cfg.S3UsePathStyle)
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", ":7070")
	t.Setenv("REDIS_ADDR", "redis.example.com:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("S3_BUCKET", "deployments")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/shipstatic")
	t.Setenv("BASE_DOMAIN", "sites.example.com")
	t.Setenv("BUILD_TIMEOUT_SECONDS", "120")
	t.Setenv("UPLOAD_CONCURRENCY", "16")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPListenAddr)
	assert.Equal(t, "redis.example.com:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "http://minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "deployments", cfg.S3Bucket)
	assert.Equal(t, "postgres://localhost:5432/shipstatic", cfg.DatabaseURL)
	assert.Equal(t, "sites.example.com", cfg.BaseDomain)
	assert.Equal(t, 2*time.Minute, cfg.BuildTimeout)
	assert.Equal(t, 16, cfg.UploadConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate_IntakeAPI_MissingFields(t *testing.T) {
	cfg := &Config{UploadConcurrency: 1}
	err := cfg.Validate("intake-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestValidate_BuildWorker_MissingBuildCommand(t *testing.T) {
	cfg := &Config{
		RedisAddr:         "localhost:6379",
		S3Bucket:          "shipstatic",
		WorkspaceDir:      "/tmp/shipstatic",
		UploadConcurrency: 1,
	}
	err := cfg.Validate("build-worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUILD_COMMAND")
}

func TestValidate_UnknownService(t *testing.T) {
	cfg := &Config{UploadConcurrency: 1}
	err := cfg.Validate("mystery")
	require.Error(t, err)
}

func TestValidate_OK(t *testing.T) {
	cfg := &Config{
		RedisAddr:         "localhost:6379",
		S3Bucket:          "shipstatic",
		WorkspaceDir:      "/tmp/shipstatic",
		BuildCommand:      "npm run build",
		UploadConcurrency: 4,
	}
	assert.NoError(t, cfg.Validate("intake-api"))
	assert.NoError(t, cfg.Validate("build-worker"))
	assert.NoError(t, cfg.Validate("edge-gateway"))
}
