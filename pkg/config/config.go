package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend   BackendConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Export    ExportConfig
}

// BackendConfig points at the institution REST backend that owns students, courses and groupings.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs redis-backed caching of grouping lookups and resolved principals.
type CacheConfig struct {
	Enabled     bool
	KeyPrefix   string
	GroupingTTL time.Duration
	AuthTTL     time.Duration
}

// AuthConfig describes how the dashboard session cookie is resolved.
// When JWTSecret is empty the cookie is introspected through the backend.
type AuthConfig struct {
	CookieName string
	JWTSecret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes scheduler session lifetime and pre-selection replay.
type SchedulerConfig struct {
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	ReplayConcurrency int
}

// ExportConfig controls calendar exports.
type ExportConfig struct {
	Enabled   bool
	TermWeeks int
	Timezone  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		BaseURL: strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("CACHE_ENABLED"),
		KeyPrefix:   v.GetString("CACHE_KEY_PREFIX"),
		GroupingTTL: parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
		AuthTTL:     parseDuration(v.GetString("AUTH_CACHE_TTL"), time.Minute),
	}

	cfg.Auth = AuthConfig{
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		JWTSecret:  v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	replay := v.GetInt("SCHEDULER_REPLAY_CONCURRENCY")
	if replay <= 0 {
		replay = 4
	}
	cfg.Scheduler = SchedulerConfig{
		SessionTTL:        parseDuration(v.GetString("SESSION_TTL"), 2*time.Hour),
		SweepInterval:     parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), 5*time.Minute),
		ReplayConcurrency: replay,
	}

	weeks := v.GetInt("EXPORT_TERM_WEEKS")
	if weeks <= 0 {
		weeks = 14
	}
	cfg.Export = ExportConfig{
		Enabled:   v.GetBool("ENABLE_EXPORTS"),
		TermWeeks: weeks,
		Timezone:  v.GetString("EXPORT_TIMEZONE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:5000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_KEY_PREFIX", "scheduler:")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("AUTH_CACHE_TTL", "1m")

	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "5m")
	v.SetDefault("SCHEDULER_REPLAY_CONCURRENCY", 4)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORT_TERM_WEEKS", 14)
	v.SetDefault("EXPORT_TIMEZONE", "America/Vancouver")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
