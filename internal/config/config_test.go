package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.Deck)
	assert.Equal(t, 16, cfg.SubscriberBuffer)
	assert.Equal(t, 50, cfg.MaxClientsPerSession)
	assert.Equal(t, int64(10000), cfg.MaxConnections)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DECK", "1,2,3")
	t.Setenv("SUBSCRIBER_BUFFER", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "1,2,3", cfg.Deck)
	assert.Equal(t, 64, cfg.SubscriberBuffer)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero subscriber buffer", "SUBSCRIBER_BUFFER", "0"},
		{"zero max clients", "MAX_CLIENTS_PER_SESSION", "0"},
		{"zero max connections", "MAX_CONNECTIONS", "0"},
		{"negative connection rate", "CONNECTION_RATE", "-1"},
		{"zero connection burst", "CONNECTION_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
