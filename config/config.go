package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Media    MediaConfig
	Encode   EncodeConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int // 0 disables; direct uploads can take minutes
	// FrontendOrigins is a comma-separated allow list (credentials are allowed, so "*" is not honored).
	FrontendOrigins string
	CookieSecure    bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds credentials and bucket names for S3 or an S3-compatible store.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, switches to path-style addressing
	Bucket          string // video bucket; empty means storage is not configured
	PostsBucket     string
	Transport       string // "signed" or "sdk"
	SignedURLTTLSec int
}

// MediaConfig locates the external media binaries.
type MediaConfig struct {
	FFmpegPath  string
	FFprobePath string
	WorkDir     string // parent for per-job temp directories; empty = os.TempDir()
}

// EncodeConfig tunes the ingestion pipeline.
type EncodeConfig struct {
	MaxConcurrent    int
	QueueDepth       int
	Retention        time.Duration
	ProgressInterval time.Duration
	Dispatch         string // "local" or "redis"
	Registry         string // "memory" or "redis"
}

// AdminConfig holds defaults for the seeding command.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

const (
	DispatchLocal = "local"
	DispatchRedis = "redis"

	RegistryMemory = "memory"
	RegistryRedis  = "redis"

	TransportSigned = "signed"
	TransportSDK    = "sdk"
)

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// UsesRedis reports whether any encode backend needs a Redis connection.
func (c EncodeConfig) UsesRedis() bool {
	return c.Dispatch == DispatchRedis || c.Registry == RegistryRedis
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	postsBucket := getEnv("POSTS_BUCKET", "")
	bucket := getEnv("STORAGE_BUCKET", "")
	if postsBucket == "" {
		postsBucket = bucket
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:    getEnvInt("WRITE_TIMEOUT_SEC", 0),
			FrontendOrigins: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
			CookieSecure:    getEnvBool("COOKIE_SECURE", false),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "socionet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 0)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24*7),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			Bucket:          bucket,
			PostsBucket:     postsBucket,
			Transport:       strings.ToLower(getEnv("STORAGE_TRANSPORT", TransportSigned)),
			SignedURLTTLSec: getEnvInt("SIGNED_URL_TTL_SEC", 3600),
		},
		Media: MediaConfig{
			FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
			WorkDir:     getEnv("ENCODE_WORK_DIR", ""),
		},
		Encode: EncodeConfig{
			MaxConcurrent:    getEnvInt("ENCODE_MAX_CONCURRENT", 2),
			QueueDepth:       getEnvInt("ENCODE_QUEUE_DEPTH", 16),
			Retention:        time.Duration(getEnvInt("ENCODE_JOB_RETENTION_MIN", 60)) * time.Minute,
			ProgressInterval: time.Duration(getEnvInt("ENCODE_PROGRESS_INTERVAL_MS", 500)) * time.Millisecond,
			Dispatch:         strings.ToLower(getEnv("ENCODE_DISPATCH", DispatchLocal)),
			Registry:         strings.ToLower(getEnv("ENCODE_REGISTRY", RegistryMemory)),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Encode.Dispatch {
	case DispatchLocal, DispatchRedis:
	default:
		return fmt.Errorf("ENCODE_DISPATCH must be %q or %q, got %q", DispatchLocal, DispatchRedis, c.Encode.Dispatch)
	}
	switch c.Encode.Registry {
	case RegistryMemory, RegistryRedis:
	default:
		return fmt.Errorf("ENCODE_REGISTRY must be %q or %q, got %q", RegistryMemory, RegistryRedis, c.Encode.Registry)
	}
	// A worker process can only report progress the API can read through a shared registry.
	if c.Encode.Dispatch == DispatchRedis && c.Encode.Registry != RegistryRedis {
		return fmt.Errorf("ENCODE_DISPATCH=redis requires ENCODE_REGISTRY=redis")
	}
	switch c.AWS.Transport {
	case TransportSigned, TransportSDK:
	default:
		return fmt.Errorf("STORAGE_TRANSPORT must be %q or %q, got %q", TransportSigned, TransportSDK, c.AWS.Transport)
	}
	if c.Encode.MaxConcurrent <= 0 {
		c.Encode.MaxConcurrent = 1
	}
	if c.Encode.QueueDepth < 0 {
		c.Encode.QueueDepth = 0
	}
	return nil
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

// SplitOrigins parses the comma-separated FRONTEND_ORIGIN value.
func SplitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
