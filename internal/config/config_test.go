package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/domain"
)

// isolate points the loader at a .env file in a temp dir and clears the keys it reads.
func isolate(t *testing.T, dotenv string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(dotenv), 0o600))
	t.Setenv(EnvFile, path)

	for _, key := range []string{
		EnvAddr, EnvDatabaseURL, EnvDeployer, EnvBasePrice, EnvBaseFee, EnvCapacity,
		EnvRefundExcess, EnvAPIKeys, EnvRateLimit, EnvLogLevel, EnvOTLPEndpoint,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t, "REALTICKET_DEPLOYER=admin\n")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, domain.Address("admin"), cfg.Deployer)
	assert.Equal(t, "10000000000000000", cfg.Settings.BasePrice.String())
	assert.Equal(t, "1000000000000000", cfg.Settings.BaseFee.String())
	assert.Equal(t, uint64(1000), cfg.Settings.Capacity)
	assert.False(t, cfg.RefundExcess)
	assert.Equal(t, 10.0, cfg.RateLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t, "REALTICKET_DEPLOYER=from-file\nREALTICKET_CAPACITY=5\nREALTICKET_ADDR=:1\n")
	t.Setenv(EnvCapacity, "7")
	t.Setenv(EnvAddr, ":2")

	cfg, err := Load([]string{"--addr", ":3", "--refund-excess=true", "--log-level", "debug"})
	require.NoError(t, err)
	assert.Equal(t, domain.Address("from-file"), cfg.Deployer)
	assert.Equal(t, uint64(7), cfg.Settings.Capacity)
	assert.Equal(t, ":3", cfg.Addr)
	assert.True(t, cfg.RefundExcess)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadMissingEnvFile(t *testing.T) {
	isolate(t, "")
	t.Setenv(EnvFile, filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := Load([]string{"--deployer", "admin"})
	require.NoError(t, err)
	assert.Equal(t, domain.Address("admin"), cfg.Deployer)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative price", []string{"--base-price", "-1"}},
		{"bad fee", []string{"--base-fee", "cheap"}},
		{"bad capacity", []string{"--capacity", "lots"}},
		{"bad refund flag", []string{"--refund-excess", "maybe"}},
		{"zero rate limit", []string{"--rate-limit", "0"}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"unknown flag", []string{"--colour", "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t, "REALTICKET_DEPLOYER=admin\n")
			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}

	t.Run("missing deployer", func(t *testing.T) {
		isolate(t, "")
		_, err := Load(nil)
		assert.ErrorIs(t, err, ErrMissingDeployer)
	})
}
