package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.Booking.CancellationCutoff)
	assert.Equal(t, "UTC", cfg.Booking.Location.String())
	assert.True(t, cfg.Booking.UpdateCancelEnforcesCutoff)
	assert.Equal(t, 5*time.Minute, cfg.Redis.DoctorTTL)
	assert.Contains(t, cfg.Database.DSN, "@tcp(localhost:3306)/booking")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("CANCELLATION_CUTOFF_HOURS", "48")
	t.Setenv("CLINIC_TIMEZONE", "Europe/Berlin")
	t.Setenv("UPDATE_CANCEL_ENFORCES_CUTOFF", "false")
	t.Setenv("RATING_RECONCILE_SCHEDULE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, 48*time.Hour, cfg.Booking.CancellationCutoff)
	assert.Equal(t, "Europe/Berlin", cfg.Booking.Location.String())
	assert.False(t, cfg.Booking.UpdateCancelEnforcesCutoff)
	assert.Empty(t, cfg.RatingReconcileSpec)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"STORE_DRIVER":                  "postgres",
		"JWT_EXPIRATION_MINUTES":        "soon",
		"CANCELLATION_CUTOFF_HOURS":     "-1",
		"CLINIC_TIMEZONE":               "Mars/Olympus",
		"UPDATE_CANCEL_ENFORCES_CUTOFF": "maybe",
		"METRICS_ENABLED":               "sometimes",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
