package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Index and blob backend identifiers.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDisk     = "disk"
	BackendMinIO    = "minio"
)

// DefaultSessionSecret is the placeholder used when EASYSHARE_SESSION_SECRET is
// unset. It is only accepted in dev mode.
const DefaultSessionSecret = "change-me-to-a-32-byte-secret"

// Config aggregates runtime configuration for the Easy File Share server.
type Config struct {
	// DevMode relaxes checks meant for real deployments.
	DevMode  bool
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
	// ReadHeaderTimeout bounds the request line and headers only.
	ReadHeaderTimeout time.Duration
	// ReadTimeout and WriteTimeout cover whole bodies; zero means no limit,
	// which keeps large transfers on slow links alive.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	CookieSecure  bool
	BcryptCost    int
}

// StorageConfig selects where upload records and blobs live.
type StorageConfig struct {
	IndexBackend   string
	BlobBackend    string
	UploadDir      string
	MaxUploadBytes int64
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	port := getInt("EASYSHARE_PORT", 3000)

	cfg := Config{
		DevMode: getBool("EASYSHARE_DEV_MODE", false),
		Server: ServerConfig{
			Host:              getString("EASYSHARE_HOST", "0.0.0.0"),
			Port:              port,
			BaseURL:           strings.TrimRight(getString("EASYSHARE_BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
			ReadHeaderTimeout: getDuration("EASYSHARE_READ_HEADER_TIMEOUT", 10*time.Second),
			ReadTimeout:       getDuration("EASYSHARE_READ_TIMEOUT", 0),
			WriteTimeout:      getDuration("EASYSHARE_WRITE_TIMEOUT", 0),
			IdleTimeout:       getDuration("EASYSHARE_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "easyshare"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "easyshare"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "easyshare"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "easyshare"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth: loadAuthConfig(),
		Storage: StorageConfig{
			IndexBackend:   strings.ToLower(getString("EASYSHARE_INDEX_BACKEND", BackendMemory)),
			BlobBackend:    strings.ToLower(getString("EASYSHARE_BLOB_BACKEND", BackendDisk)),
			UploadDir:      getString("EASYSHARE_UPLOAD_DIR", "uploads"),
			MaxUploadBytes: getInt64("EASYSHARE_MAX_UPLOAD_BYTES", 100*1024*1024),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("EASYSHARE_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot run with.
func (c Config) Validate() error {
	switch c.Storage.IndexBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unknown index backend %q", c.Storage.IndexBackend)
	}
	switch c.Storage.BlobBackend {
	case BackendDisk, BackendMinIO:
	default:
		return fmt.Errorf("unknown blob backend %q", c.Storage.BlobBackend)
	}
	if c.Storage.BlobBackend == BackendDisk && strings.TrimSpace(c.Storage.UploadDir) == "" {
		return errors.New("upload directory is required for the disk backend")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if len(c.Auth.SessionSecret) < 16 {
		return errors.New("session secret must be at least 16 bytes")
	}
	if c.Auth.SessionSecret == DefaultSessionSecret && !c.DevMode {
		return errors.New("EASYSHARE_SESSION_SECRET must be set outside dev mode")
	}
	return nil
}

// UsesPostgres reports whether any component needs a database pool.
func (c Config) UsesPostgres() bool {
	return c.Storage.IndexBackend == BackendPostgres
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("EASYSHARE_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		SessionSecret: getString("EASYSHARE_SESSION_SECRET", DefaultSessionSecret),
		SessionTTL:    getDuration("EASYSHARE_SESSION_TTL", 12*time.Hour),
		CookieName:    getString("EASYSHARE_SESSION_COOKIE", "easyshare_session"),
		CookieSecure:  getBool("EASYSHARE_SESSION_COOKIE_SECURE", false),
		BcryptCost:    cost,
	}
}
