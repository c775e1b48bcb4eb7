package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// ServiceName is set by each binary before the logger is built.
	ServiceName string

	HTTPListenAddr    string
	GatewayListenAddr string
	MetricsAddr       string
	LogLevel          string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// DatabaseURL is optional; without it the deployment catalog is disabled
	// and only the queue-backed status is available.
	DatabaseURL string

	// BaseDomain is the suffix under which deployments are served, e.g.
	// "shipstatic.local" serves deployment abc at abc.shipstatic.local.
	BaseDomain string

	WorkspaceDir      string
	InstallCommand    string
	BuildCommand      string
	OutputDir         string
	CloneTimeout      time.Duration
	BuildTimeout      time.Duration
	UploadConcurrency int
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8080"),
		GatewayListenAddr: getEnv("GATEWAY_LISTEN_ADDR", ":8081"),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", "shipstatic"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		BaseDomain:        getEnv("BASE_DOMAIN", "shipstatic.local"),
		WorkspaceDir:      getEnv("WORKSPACE_DIR", "/tmp/shipstatic"),
		InstallCommand:    getEnv("INSTALL_COMMAND", "npm install"),
		BuildCommand:      getEnv("BUILD_COMMAND", "npm run build"),
		OutputDir:         getEnv("OUTPUT_DIR", "dist"),
		CloneTimeout:      time.Duration(getEnvInt("CLONE_TIMEOUT_SECONDS", 60)) * time.Second,
		BuildTimeout:      time.Duration(getEnvInt("BUILD_TIMEOUT_SECONDS", 600)) * time.Second,
		UploadConcurrency: getEnvInt("UPLOAD_CONCURRENCY", 8),
	}

	return cfg, nil
}

// Validate checks that the config carries everything the given service needs
// to start, so a misconfigured binary fails at startup rather than on the
// first request.
func (c *Config) Validate(service string) error {
	switch service {
	case "intake-api":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for %s", service)
		}
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for %s", service)
		}
	case "build-worker":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for %s", service)
		}
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for %s", service)
		}
		if c.WorkspaceDir == "" {
			return fmt.Errorf("WORKSPACE_DIR is required for %s", service)
		}
		if c.BuildCommand == "" {
			return fmt.Errorf("BUILD_COMMAND is required for %s", service)
		}
	case "edge-gateway":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for %s", service)
		}
	default:
		return fmt.Errorf("unknown service %q", service)
	}
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
