package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Database DatabaseConfig
	Content  ContentConfig
	Auth     AuthConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type DatabaseConfig struct {
	URL     string `env:"DATABASE_URL"`
	Migrate bool   `env:"DATABASE_MIGRATE, default=true"`
}

type ContentConfig struct {
	URL          string `env:"CONTENT_API_URL"`
	APIKey       string `env:"CONTENT_API_KEY"`
	APIKeyHeader string `env:"CONTENT_API_KEY_HEADER, default=X-API-Key"`
}

type AuthConfig struct {
	BackendTimeout    time.Duration `env:"BACKEND_TIMEOUT,    default=5s"`
	ProbeInterval     time.Duration `env:"PROBE_INTERVAL,     default=0s"`
	AllowDemoLogin    bool          `env:"ALLOW_DEMO_LOGIN,   default=false"`
	StrictPersistence bool          `env:"STRICT_PERSISTENCE, default=false"`
	DemoAccountsFile  string        `env:"DEMO_ACCOUNTS_FILE"`
}

// MongoConfig is optional; an empty URI disables the audit trail.
type MongoConfig struct {
	URI          string `env:"MONGO_URI"`
	Database     string `env:"MONGO_DB,      default=backoffice"`
	AuditWorkers int    `env:"AUDIT_WORKERS, default=4"`
}

// RedisConfig is optional; an empty Addr disables login throttling.
type RedisConfig struct {
	Addr             string        `env:"REDIS_ADDR"`
	Password         string        `env:"REDIS_PASSWORD"`
	DB               int           `env:"REDIS_DB,           default=0"`
	LoginMaxFailures int           `env:"LOGIN_MAX_FAILURES, default=5"`
	LoginLockout     time.Duration `env:"LOGIN_LOCKOUT,      default=15m"`
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through the given lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
