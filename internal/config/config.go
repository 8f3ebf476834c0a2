package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/AnshRaj112/laundry-backend/pkg/utils"
)

// DefaultTokenSecret is only acceptable outside production.
const DefaultTokenSecret = "laundry-service-secret-key-change-in-production"

const (
	TokenFormatHMAC   = "hmac"
	TokenFormatSealed = "sealed"

	RelayNone  = "none"
	RelayRedis = "redis"
)

type Config struct {
	Environment    string   `env:"ENV" envDefault:"development"`
	Port           string   `env:"PORT" envDefault:"3000"`
	Host           string   `env:"HOST" envDefault:"http://localhost:3000"`
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	TokenSecret   string `env:"TOKEN_SECRET" envDefault:"laundry-service-secret-key-change-in-production"`
	TokenFormat   string `env:"TOKEN_FORMAT" envDefault:"hmac"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	PostgresURI   string `env:"POSTGRES_URI" envDefault:"postgres://localhost:5432/laundry?sslmode=disable"`
	RedisURI      string `env:"REDIS_URI" envDefault:"redis://localhost:6379/0"`
	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017/laundry"`

	RealtimeRelay          string `env:"REALTIME_RELAY" envDefault:"none"`
	TrustProxy             bool   `env:"TRUST_PROXY" envDefault:"false"`
	StrictOrderTransitions bool   `env:"ORDER_STRICT_TRANSITIONS" envDefault:"true"`
}

// Load parses the environment. Call godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.TokenFormat = strings.ToLower(strings.TrimSpace(cfg.TokenFormat))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.RealtimeRelay = strings.ToLower(strings.TrimSpace(cfg.RealtimeRelay))
	cfg.AllowedOrigins = resolveOrigins(cfg.AllowedOrigins, cfg.FrontendURL, cfg.Host)
	return &cfg, nil
}

// Validate rejects settings that would run insecurely or could never work.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && (c.TokenSecret == "" || c.TokenSecret == DefaultTokenSecret) {
		errs = append(errs, errors.New("TOKEN_SECRET must be set in production"))
	}

	switch c.TokenFormat {
	case TokenFormatHMAC:
		if c.TokenSecret == "" {
			errs = append(errs, errors.New("TOKEN_SECRET is required for hmac tokens"))
		}
	case TokenFormatSealed:
		if _, err := utils.ParseEncryptionKey(c.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("ENCRYPTION_KEY: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOKEN_FORMAT %q", c.TokenFormat))
	}

	switch c.StorageDriver {
	case "file":
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the file driver"))
		}
	case "memory", "postgres", "redis", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.RealtimeRelay {
	case RelayNone, "":
	case RelayRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown REALTIME_RELAY %q", c.RealtimeRelay))
	}

	return errors.Join(errs...)
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedHost is the hostname enforced by the production host check, or ""
// when the check is off.
func (c *Config) AllowedHost() string {
	if !c.IsProduction() {
		return ""
	}
	return hostOnly(c.Host)
}

// NeedsRedis reports whether the process must connect to Redis.
func (c *Config) NeedsRedis() bool {
	return c.StorageDriver == "redis" || c.RealtimeRelay == RelayRedis
}

// resolveOrigins uses ALLOWED_ORIGINS when set, else FRONTEND_URL. When HOST
// is a backend subdomain (api.example.com) the apex and www origins are added.
func resolveOrigins(explicit []string, frontendURL, host string) []string {
	var origins []string
	for _, o := range explicit {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		if u := strings.TrimSpace(frontendURL); u != "" {
			origins = append(origins, u)
		}
	}

	hostname := hostOnly(host)
	if hostname != "" && hostname != "localhost" && hostname != "127.0.0.1" {
		parts := strings.Split(hostname, ".")
		if len(parts) > 2 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(origins, origin) {
					origins = append(origins, origin)
				}
			}
		}
	}

	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

func hostOnly(raw string) string {
	h := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}
