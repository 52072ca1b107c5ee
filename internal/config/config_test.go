package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "45s", want: 45 * time.Second},
		{name: "plain seconds", value: "12", want: 12 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
		{name: "empty falls back", value: "", want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("COLLABORATOR_TIMEOUT", "5s")

	cfg := Load()
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, 5*time.Second, cfg.Intake.CollaboratorTimeout)
	assert.Equal(t, int64(10<<20), cfg.Intake.MaxUploadBytes)
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, getEnvAsBool("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "nope")
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
}
