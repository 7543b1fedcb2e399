package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  host: 0.0.0.0
  port: 8080
database:
  host: localhost
  user: rentacar
  database: rentacar
jwt:
  secret: 0123456789abcdef0123456789abcdef
storage:
  upload_dir: ./uploads
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.ExpireStaleReservations)
	assert.Equal(t, "0 0 * * * *", cfg.Scheduler.SyncVehicleStatuses)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "postgres://rentacar:@localhost:5432/rentacar?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://rent.example.com")

	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"http://localhost:3000", "https://rent.example.com"}, cfg.Server.AllowedOrigins)
}

func TestParse_Invalid(t *testing.T) {
	t.Run("Short secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "short")
		_, err := Parse([]byte(validYAML))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("Bad port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "70000")
		_, err := Parse([]byte(validYAML))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		_, err := Parse([]byte("server: ["))
		assert.Error(t, err)
	})
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("auth.login"))
	assert.Equal(t, SecurityOptional, GetSecurityLevel("vehicles.list"))
	assert.Equal(t, SecurityQuery, GetSecurityLevel("logs.stream"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("reservations.create"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("does.not.exist"))
}
