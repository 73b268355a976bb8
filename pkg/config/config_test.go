package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "Bearer", cfg.Backend.AuthScheme)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Deletion.ConfirmTTL)
	assert.True(t, cfg.Reports.PDFFallback)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://school.example/api/")
	t.Setenv("BACKEND_AUTH_SCHEME", "Token")
	t.Setenv("BACKEND_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_ENABLED", "true")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, "https://school.example/api", cfg.Backend.BaseURL)
	assert.Equal(t, "Token", cfg.Backend.AuthScheme)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled)
}
