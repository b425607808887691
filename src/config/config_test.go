package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_PATH", "RECURRENCE_MAX_ITERATIONS", "RECURRENCE_RUN_ON_LOGIN",
		"RECURRENCE_SCHEDULER_INTERVAL", "RECURRENCE_UPCOMING_DAYS", "ADMIN_EMAILS", "API_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := buildConfig("jwt", "csrf")

	assert.Equal(t, "jwt", cfg.JWTSecret)
	assert.Equal(t, []byte("csrf"), cfg.CSRFAuthKey)
	assert.Equal(t, 36, cfg.RecurrenceMaxIterations)
	assert.True(t, cfg.RecurrenceRunOnLogin)
	assert.Equal(t, time.Hour, cfg.RecurrenceSchedulerInterval)
	assert.Equal(t, 30, cfg.RecurrenceUpcomingDays)
	assert.Empty(t, cfg.AdminEmails)
}

func TestBuildConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECURRENCE_MAX_ITERATIONS", "12")
	t.Setenv("RECURRENCE_RUN_ON_LOGIN", "false")
	t.Setenv("RECURRENCE_SCHEDULER_INTERVAL", "0")
	t.Setenv("ADMIN_EMAILS", " a@example.com , b@example.com")
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("GOOGLE_REDIRECT_URL", "")

	cfg := buildConfig("jwt", "csrf")

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.RecurrenceMaxIterations)
	assert.False(t, cfg.RecurrenceRunOnLogin)
	assert.Equal(t, time.Duration(0), cfg.RecurrenceSchedulerInterval)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RECURRENCE_MAX_ITERATIONS", "0")
	t.Setenv("RECURRENCE_UPCOMING_DAYS", "abc")
	t.Setenv("RECURRENCE_RUN_ON_LOGIN", "maybe")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "soon")

	cfg := buildConfig("jwt", "csrf")

	assert.Equal(t, 36, cfg.RecurrenceMaxIterations)
	assert.Equal(t, 30, cfg.RecurrenceUpcomingDays)
	assert.True(t, cfg.RecurrenceRunOnLogin)
	assert.Equal(t, 60*time.Minute, cfg.AccessTokenExpiry)
}
