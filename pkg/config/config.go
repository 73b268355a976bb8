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

	Backend  BackendConfig
	Profile  ProfileConfig
	Redis    RedisConfig
	Deletion DeletionConfig
	Reports  ReportsConfig
	Metrics  MetricsConfig
	Docs     DocsConfig
	CORS     CORSConfig
	Log      LogConfig
}

// BackendConfig points the gateway at the school REST backend.
type BackendConfig struct {
	BaseURL    string
	Timeout    time.Duration
	AuthScheme string
}

// ProfileConfig controls how the cached user-profile blob is trusted.
type ProfileConfig struct {
	SigningSecret string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// DeletionConfig governs the two-phase delete confirmation tokens.
type DeletionConfig struct {
	ConfirmSecret string
	ConfirmTTL    time.Duration
}

// ReportsConfig toggles local report-card rendering.
type ReportsConfig struct {
	PDFFallback bool
}

type MetricsConfig struct {
	Enabled bool
}

type DocsConfig struct {
	Enabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		BaseURL:    strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout:    parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		AuthScheme: v.GetString("BACKEND_AUTH_SCHEME"),
	}

	cfg.Profile = ProfileConfig{SigningSecret: v.GetString("PROFILE_SIGNING_SECRET")}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Deletion = DeletionConfig{
		ConfirmSecret: v.GetString("DELETE_CONFIRM_SECRET"),
		ConfirmTTL:    parseDuration(v.GetString("DELETE_CONFIRM_TTL"), 5*time.Minute),
	}

	cfg.Reports = ReportsConfig{PDFFallback: v.GetBool("REPORT_PDF_FALLBACK")}
	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}
	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "http://127.0.0.1:8000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_AUTH_SCHEME", "Bearer")

	v.SetDefault("PROFILE_SIGNING_SECRET", "")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("DELETE_CONFIRM_SECRET", "dev_delete_secret")
	v.SetDefault("DELETE_CONFIRM_TTL", "5m")

	v.SetDefault("REPORT_PDF_FALLBACK", true)
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("ENABLE_DOCS", true)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
