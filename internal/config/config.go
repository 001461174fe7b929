package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App          AppConfig
	Backend      BackendConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BackendConfig points at the authentication backend.
type BackendConfig struct {
	BaseURL        string
	CookieName     string
	TimeoutSeconds int
}

// RedisConfig holds Redis connection values. An empty Addr disables the user list cache.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	UserListTTLSeconds int
}

// LoggerConfig configures logging behavior. Format is json or console.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines session parameters. An empty CredentialFile keeps the credential in
// memory only, so a restart starts unauthenticated.
type AuthConfig struct {
	LoginTimeoutSeconds  int
	LogoutTimeoutSeconds int
	MinPasswordLength    int
	CredentialFile       string
}

// NotificationConfig controls the notification queue.
type NotificationConfig struct {
	DefaultTTLMillis int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "staff-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "http://localhost:5001/api"),
			CookieName:     getEnv("BACKEND_COOKIE_NAME", "token"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10),
		},
		Redis: RedisConfig{
			Addr:               os.Getenv("REDIS_ADDR"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			UserListTTLSeconds: getEnvAsInt("REDIS_USER_LIST_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			LoginTimeoutSeconds:  getEnvAsInt("AUTH_LOGIN_TIMEOUT_SECONDS", 15),
			LogoutTimeoutSeconds: getEnvAsInt("AUTH_LOGOUT_TIMEOUT_SECONDS", 5),
			MinPasswordLength:    getEnvAsInt("AUTH_MIN_PASSWORD_LENGTH", 6),
			CredentialFile:       credentialFile(getEnv("AUTH_CREDENTIAL_FILE", defaultCredentialFile())),
		},
		Notification: NotificationConfig{
			DefaultTTLMillis: getEnvAsInt("NOTIFY_DEFAULT_TTL_MS", 3000),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	base := strings.ToLower(c.Backend.BaseURL)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("invalid BACKEND_BASE_URL %q: must be an http(s) url", c.Backend.BaseURL)
	}
	if strings.TrimSpace(c.Backend.CookieName) == "" {
		return fmt.Errorf("BACKEND_COOKIE_NAME must not be blank")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// Timeout bounds a single backend call. Zero means no client-side limit.
func (b BackendConfig) Timeout() time.Duration {
	return seconds(b.TimeoutSeconds)
}

// LoginTimeout bounds a login attempt.
func (a AuthConfig) LoginTimeout() time.Duration {
	return seconds(a.LoginTimeoutSeconds)
}

// LogoutTimeout bounds the backend logout notification.
func (a AuthConfig) LogoutTimeout() time.Duration {
	return seconds(a.LogoutTimeoutSeconds)
}

// UserListTTL is how long a cached user list stays valid.
func (r RedisConfig) UserListTTL() time.Duration {
	return seconds(r.UserListTTLSeconds)
}

// DefaultTTL is the lifetime of a notification that does not set its own.
func (n NotificationConfig) DefaultTTL() time.Duration {
	if n.DefaultTTLMillis <= 0 {
		return 0
	}
	return time.Duration(n.DefaultTTLMillis) * time.Millisecond
}

// defaultCredentialFile is ~/.staff-console/credentials.json, or empty without a home directory.
func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".staff-console", "credentials.json")
}

func credentialFile(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), "none") {
		return ""
	}
	return v
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
