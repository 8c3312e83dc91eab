package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "STORAGE_DRIVER", "TUITION_FEE", "MAX_UPLOAD_SIZE_MB", "REALTIME_ENABLED", "ALLOWED_ORIGINS", "JWT_EXPIRY_HOURS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorageDriverLocal, cfg.StorageDriver)
	assert.Equal(t, 15000.0, cfg.TuitionFee)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.RealtimeEnabled)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TUITION_FEE", "22500.5")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "2")
	t.Setenv("REALTIME_ENABLED", "false")
	t.Setenv("SUPABASE_PROJECT_URL", "https://abc.supabase.co/")
	t.Setenv("LOGIN_RATE_LIMIT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 22500.5, cfg.TuitionFee)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxUploadBytes)
	assert.False(t, cfg.RealtimeEnabled)
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, 10, cfg.LoginRateLimit)
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"https://a.example.org", "http://localhost:5173"},
		parseOrigins(" https://a.example.org , ,http://localhost:5173"))
}
