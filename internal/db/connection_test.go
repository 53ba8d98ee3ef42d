package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
)

func writePasswordFile(t *testing.T, password string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte(password+"\n"), 0600))
	return path
}

func TestPoolConfig(t *testing.T) {
	t.Parallel()

	passwordFile := writePasswordFile(t, "p@ssw0rd")

	tests := []struct {
		name          string
		cfg           config.DatabaseConfig
		errorContains string
		maxConns      int32
		minConns      int32
		lifetime      time.Duration
	}{
		{
			name:          "missing host",
			cfg:           config.DatabaseConfig{Port: 5432, User: "lb", Database: "lb", PasswordFile: passwordFile},
			errorContains: "host is required",
		},
		{
			name:          "missing port",
			cfg:           config.DatabaseConfig{Host: "localhost", User: "lb", Database: "lb", PasswordFile: passwordFile},
			errorContains: "port is required",
		},
		{
			name:          "missing user",
			cfg:           config.DatabaseConfig{Host: "localhost", Port: 5432, Database: "lb", PasswordFile: passwordFile},
			errorContains: "user is required",
		},
		{
			name:          "missing database",
			cfg:           config.DatabaseConfig{Host: "localhost", Port: 5432, User: "lb", PasswordFile: passwordFile},
			errorContains: "name is required",
		},
		{
			name: "unreadable password file",
			cfg: config.DatabaseConfig{
				Host: "localhost", Port: 5432, User: "lb", Database: "lb",
				PasswordFile: filepath.Join(t.TempDir(), "missing"),
			},
			errorContains: "failed to get database password",
		},
		{
			name: "bad lifetime",
			cfg: config.DatabaseConfig{
				Host: "localhost", Port: 5432, User: "lb", Database: "lb",
				PasswordFile: passwordFile, ConnMaxLifetime: "forever",
			},
			errorContains: "invalid connection max lifetime",
		},
		{
			name: "defaults",
			cfg: config.DatabaseConfig{
				Host: "localhost", Port: 5432, User: "lb", Database: "lb",
				PasswordFile: passwordFile, SSLMode: "disable",
			},
			maxConns: defaultMaxOpenConns,
			lifetime: defaultConnMaxLifetime,
		},
		{
			name: "explicit pool settings",
			cfg: config.DatabaseConfig{
				Host: "db.internal", Port: 6543, User: "lb", Database: "lb",
				PasswordFile: passwordFile, SSLMode: "disable",
				MaxOpenConns: 25, MaxIdleConns: 3, ConnMaxLifetime: "30m",
			},
			maxConns: 25,
			minConns: 3,
			lifetime: 30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			poolConfig, err := PoolConfig(&tt.cfg)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.maxConns, poolConfig.MaxConns)
			assert.Equal(t, tt.minConns, poolConfig.MinConns)
			assert.Equal(t, tt.lifetime, poolConfig.MaxConnLifetime)
			assert.Equal(t, defaultConnectTimeout, poolConfig.ConnConfig.ConnectTimeout)
			assert.Equal(t, tt.cfg.Host, poolConfig.ConnConfig.Host)
			assert.Equal(t, uint16(tt.cfg.Port), poolConfig.ConnConfig.Port)
			assert.Equal(t, "p@ssw0rd", poolConfig.ConnConfig.Password)
		})
	}
}

func TestNewPool_NilConfig(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Contains(t, err.Error(), "database configuration is required")
}

func TestNewPool_InvalidConfigIsNotRetried(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(context.Background(), &config.DatabaseConfig{Port: 5432},
		WithConnectAttempts(3), WithBackOff(&backoff.ZeroBackOff{}))
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Contains(t, err.Error(), "host is required")
}

func TestNewPool_UnreachableDatabase(t *testing.T) {
	t.Parallel()

	cfg := &config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1,
		User:         "lb",
		Database:     "lb",
		SSLMode:      "disable",
		PasswordFile: writePasswordFile(t, "secret"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, cfg, WithConnectAttempts(2), WithBackOff(&backoff.ZeroBackOff{}))
	require.Error(t, err)
	assert.Nil(t, pool)
}
