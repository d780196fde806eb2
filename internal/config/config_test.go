package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 10, cfg.RateLimit.ContactsRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.ContactsWindow)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestLoadRejectsNonHMACAlgorithm(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("ALGORITHM", "rs256")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RS256")
}

func TestDatabaseURLOverridesDiscreteFields(t *testing.T) {
	p := PostgresConfig{
		URL:  "postgres://app:pw@db:5432/contacts",
		Host: "ignored",
	}
	assert.Equal(t, "postgres://app:pw@db:5432/contacts", p.DSN())

	p.URL = ""
	p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode = "u", "p", "h", 1, "d", "disable"
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", p.DSN())
}

func TestGetListSkipsBlanks(t *testing.T) {
	t.Setenv("BANNED_IPS", " 10.0.0.1, ,192.168.1.2 ")
	assert.Equal(t, []string{"10.0.0.1", "192.168.1.2"}, getList("BANNED_IPS", nil))
}

func TestBcryptCostOutOfRangeFallsBack(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "2")
	assert.Equal(t, 12, loadAuthConfig().BcryptCost)
}
