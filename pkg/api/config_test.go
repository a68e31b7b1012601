package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIConfigDefaults(t *testing.T) {
	var cfg APIConfig
	cfg.ApplyDefaults()

	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	// Default write deadline covers the default 10s quit vote timeout.
	assert.True(t, cfg.CoversQuit(10*time.Second))

	t.Run("NegativeTimeoutKept", func(t *testing.T) {
		cfg := APIConfig{ReadTimeout: -1, WriteTimeout: -1}
		cfg.ApplyDefaults()
		assert.Equal(t, time.Duration(-1), cfg.ReadTimeout)
		assert.Equal(t, time.Duration(-1), cfg.WriteTimeout)
	})

	t.Run("ExplicitlyDisabled", func(t *testing.T) {
		off := false
		cfg := APIConfig{Enabled: &off}
		assert.False(t, cfg.IsEnabled())
	})
}

func TestAPIConfigCoversQuit(t *testing.T) {
	off := false
	tests := []struct {
		name  string
		cfg   APIConfig
		quit  time.Duration
		cover bool
	}{
		{"Headroom", APIConfig{WriteTimeout: 30 * time.Second}, 10 * time.Second, true},
		{"ExactlyHeadroom", APIConfig{WriteTimeout: 11 * time.Second}, 10 * time.Second, true},
		{"InsideHeadroom", APIConfig{WriteTimeout: 10500 * time.Millisecond}, 10 * time.Second, false},
		{"EqualToQuit", APIConfig{WriteTimeout: 10 * time.Second}, 10 * time.Second, false},
		{"UnboundedQuit", APIConfig{WriteTimeout: 30 * time.Second}, 0, false},
		{"NoWriteDeadline", APIConfig{WriteTimeout: -1}, 0, true},
		{"Disabled", APIConfig{Enabled: &off, WriteTimeout: time.Second}, time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cover, tt.cfg.CoversQuit(tt.quit))
		})
	}
}
