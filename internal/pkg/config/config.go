package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	CORSOrigins []string `env:"CORS_ORIGINS, default=http://localhost:5173"`

	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	Events EventsConfig
}

type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET,         required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET, required"`
	AccessTTL        time.Duration `env:"JWT_EXPIRE,         default=6h"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_EXPIRE, default=72h"`
	TokenLookup      string        `env:"AUTH_TOKEN_LOOKUP,  default=cookie"`
	CookieSecure     bool          `env:"COOKIE_SECURE,      default=false"`
	CookieSameSite   string        `env:"COOKIE_SAMESITE,    default=lax"`
	CookieDomain     string        `env:"COOKIE_DOMAIN"`
	AdminSignup      bool          `env:"ADMIN_SIGNUP,       default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=rincon_intipuquenio"`
}

type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// KafkaConfig is optional: with no brokers, events only reach the audit store.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC, default=orders.events"`
}

type EventsConfig struct {
	Workers int `env:"EVENT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == c.Auth.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	switch c.Auth.TokenLookup {
	case "cookie", "header":
	default:
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_LOOKUP must be cookie or header, got %q", c.Auth.TokenLookup))
	}
	if _, ok := sameSiteModes[strings.ToLower(c.Auth.CookieSameSite)]; !ok {
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE must be lax, strict or none, got %q", c.Auth.CookieSameSite))
	}
	if strings.EqualFold(c.Auth.CookieSameSite, "none") && !c.Auth.CookieSecure {
		errs = append(errs, errors.New("COOKIE_SAMESITE=none requires COOKIE_SECURE=true"))
	}
	if c.Events.Workers <= 0 {
		errs = append(errs, errors.New("EVENT_WORKERS must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

var sameSiteModes = map[string]http.SameSite{
	"lax":    http.SameSiteLaxMode,
	"strict": http.SameSiteStrictMode,
	"none":   http.SameSiteNoneMode,
}

// SameSite returns the cookie SameSite mode.
func (a AuthConfig) SameSite() http.SameSite {
	if m, ok := sameSiteModes[strings.ToLower(a.CookieSameSite)]; ok {
		return m
	}
	return http.SameSiteLaxMode
}
