package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the contacts API.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	HTTP      HTTPConfig
	Metrics   MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
// URL takes precedence over the discrete fields when set.
type PostgresConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information for avatars.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	PresignTTL      time.Duration
}

// RedisConfig points at the optional Redis used for rate limiting.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	SecretKey       string
	Algorithm       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	EmailTokenTTL   time.Duration
	BcryptCost      int
}

// RateLimitConfig caps the contact listing endpoint per client.
type RateLimitConfig struct {
	ContactsRequests int
	ContactsWindow   time.Duration
}

// MailConfig configures outbound confirmation emails.
type MailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	PublicBaseURL  string
}

// HTTPConfig holds edge policies applied by the router.
type HTTPConfig struct {
	CORSOrigins       []string
	BannedIPs         []string
	BannedUserAgents  []string
	MaxAvatarBytes    int64
	TrustedProxyCIDRs []string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("CONTACTS_API_HOST", "0.0.0.0"),
			Port:         getInt("CONTACTS_API_PORT", 8000),
			ReadTimeout:  getDuration("CONTACTS_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("CONTACTS_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("CONTACTS_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      getString("DATABASE_URL", ""),
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "postgres"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "contacts"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "contacts"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "avatars"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
			PresignTTL:      getDuration("MINIO_PRESIGN_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", ""),
			Password: getString("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Auth: loadAuthConfig(),
		RateLimit: RateLimitConfig{
			ContactsRequests: getInt("RATE_LIMIT_CONTACTS_REQUESTS", 10),
			ContactsWindow:   getDuration("RATE_LIMIT_CONTACTS_WINDOW", 60*time.Second),
		},
		Mail: MailConfig{
			SendGridAPIKey: getString("SENDGRID_API_KEY", ""),
			FromAddress:    getString("MAIL_FROM", "no-reply@contacts.local"),
			FromName:       getString("MAIL_FROM_NAME", "Contacts"),
			PublicBaseURL:  strings.TrimRight(getString("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),
		},
		HTTP: HTTPConfig{
			CORSOrigins:       getList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
			BannedIPs:         getList("BANNED_IPS", nil),
			BannedUserAgents:  getList("BANNED_USER_AGENTS", nil),
			MaxAvatarBytes:    int64(getInt("AVATAR_MAX_BYTES", 5*1024*1024)),
			TrustedProxyCIDRs: getList("TRUSTED_PROXIES", nil),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported ALGORITHM %q: only HMAC algorithms are allowed", c.Auth.Algorithm))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 || c.Auth.EmailTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RateLimit.ContactsRequests <= 0 || c.RateLimit.ContactsWindow <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	return errors.Join(errs...)
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

// getList splits a comma-separated variable, dropping blanks.
func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadAuthConfig() AuthConfig {
	cost := getInt("AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		SecretKey:       getString("SECRET_KEY", ""),
		Algorithm:       strings.ToUpper(getString("ALGORITHM", "HS256")),
		AccessTokenTTL:  getDuration("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		EmailTokenTTL:   getDuration("AUTH_EMAIL_TOKEN_TTL", 24*time.Hour),
		BcryptCost:      cost,
	}
}
