package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.Equal(t, "lostnfound", cfg.Database.Name)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Notifications.Backoff)
	assert.Equal(t, "disk", cfg.Storage.Driver)
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_LNF_SECRET", "from-env")

	path := writeConfig(t, `
server:
  addr: ":8081"
database:
  driver: memory
  name: campus
auth:
  jwt_secret: ${TEST_LNF_SECRET}
  token_ttl: 12h
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "campus", cfg.Database.Name)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRES_IN", "2d")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")

	path := writeConfig(t, "server:\n  addr: \":8081\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 48*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "mongodb://db:27017", cfg.Database.URI)
}

func TestLoad_EnumsAreCaseInsensitive(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("DB_DRIVER", "Memory")

	path := writeConfig(t, "logging:\n  format: JSON\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeConfig(t, "auth:\n  token_ttl: forever\n"))
		assert.ErrorContains(t, err, "token_ttl")
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		_, err := Load(writeConfig(t, "storage:\n  driver: s3\n  s3:\n    public_url: https://cdn.example.com\n"))
		assert.ErrorContains(t, err, "storage: s3")
	})

	t.Run("unknown database driver", func(t *testing.T) {
		_, err := Load(writeConfig(t, "database:\n  driver: postgres\n"))
		assert.ErrorContains(t, err, "database")
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 168 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"xd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
