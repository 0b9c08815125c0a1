package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	JWTTTL    time.Duration

	// CORSAllowedHosts are the admin panel and storefront hosts (host[:port]).
	CORSAllowedHosts []string

	DB     DatabaseConfig
	Redis  RedisConfig
	S3     S3Config
	Worker WorkerConfig
	Cache  CacheConfig
	Import ImportConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters. An empty Host disables
// the availability cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// S3Config contains the bucket that receives mirrored product images.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether image mirroring has somewhere to upload to.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// WorkerConfig contains settings for the image mirror worker.
type WorkerConfig struct {
	ImageWorkers       int
	ImageQueueSize     int
	ImageSweepInterval time.Duration
	ImageFetchTimeout  time.Duration
}

// CacheConfig contains TTLs for HTTP-layer caches.
type CacheConfig struct {
	AvailabilityTTL time.Duration
}

// ImportConfig contains bulk import settings.
type ImportConfig struct {
	GradeProfilesPath string
	MaxBatchSize      int
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// S3 image mirror
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "sa-east-1"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	cfg.Worker.ImageWorkers = getEnvInt("IMAGE_WORKERS", 2)
	cfg.Worker.ImageQueueSize = getEnvInt("IMAGE_QUEUE_SIZE", 256)

	cfg.Import = ImportConfig{
		GradeProfilesPath: getEnv("GRADE_PROFILES_PATH", ""),
		MaxBatchSize:      getEnvInt("IMPORT_MAX_BATCH_SIZE", 500),
	}

	// Durations
	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.Worker.ImageSweepInterval, err = parseDurationEnv("IMAGE_SWEEP_INTERVAL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid IMAGE_SWEEP_INTERVAL: %w", err)
	}
	if cfg.Worker.ImageFetchTimeout, err = parseDurationEnv("IMAGE_FETCH_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid IMAGE_FETCH_TIMEOUT: %w", err)
	}
	if cfg.Cache.AvailabilityTTL, err = parseDurationEnv("AVAILABILITY_CACHE_TTL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid AVAILABILITY_CACHE_TTL: %w", err)
	}

	// Basic validation for DB parameters.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	if cfg.Worker.ImageWorkers < 1 {
		return nil, errors.New("IMAGE_WORKERS must be at least 1")
	}
	if cfg.Import.MaxBatchSize < 1 {
		return nil, errors.New("IMPORT_MAX_BATCH_SIZE must be at least 1")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key, def string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
