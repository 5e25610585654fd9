package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykv/notifykv/kv/store"
)

// TestDefault verifies the zero-config deployment: in-memory backend with
// package defaults everywhere else.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Empty(t, cfg.Path)
	assert.Zero(t, cfg.Shards)
	assert.Zero(t, cfg.MailboxCapacity)
	require.NoError(t, cfg.Validate())
}

// TestLoad_FromFile verifies yaml parsing and that omitted fields keep their
// defaults.
func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	yamlContent := `
backend: bolt
path: /tmp/notifykv-test.db
mailbox_capacity: 256
`

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, BackendBolt, cfg.Backend)
	assert.Equal(t, "/tmp/notifykv-test.db", cfg.Path)
	assert.Equal(t, 256, cfg.MailboxCapacity)
	assert.Zero(t, cfg.Shards, "omitted fields must keep their defaults")
}

// TestLoad_EnvOverrides verifies NOTIFYKV_* variables win over file values.
// No t.Parallel(): t.Setenv mutates process state.
func TestLoad_EnvOverrides(t *testing.T) {
	yamlContent := `
backend: memory
shards: 4
`

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o644))

	t.Setenv("NOTIFYKV_BACKEND", "badger")
	t.Setenv("NOTIFYKV_PATH", "/tmp/badger-dir")
	t.Setenv("NOTIFYKV_SHARDS", "8")
	t.Setenv("NOTIFYKV_MAILBOX_CAPACITY", "512")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "/tmp/badger-dir", cfg.Path)
	assert.Equal(t, 8, cfg.Shards)
	assert.Equal(t, 512, cfg.MailboxCapacity)
}

// TestLoad_InvalidEnv verifies malformed numeric overrides are rejected.
func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("NOTIFYKV_SHARDS", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
}

// TestValidate covers the rejection paths.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "cassandra"},
			wantErr: ErrUnknownBackend,
		},
		{
			name:    "negative shards",
			cfg:     Config{Backend: BackendMemory, Shards: -1},
			wantErr: ErrInvalidShards,
		},
		{
			name:    "negative mailbox capacity",
			cfg:     Config{Backend: BackendMemory, MailboxCapacity: -1},
			wantErr: ErrInvalidMailboxCapacity,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}

// TestLoad_MissingFile verifies a nonexistent path is an error while an
// empty path means "defaults only".
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

// TestOpen constructs and opens each backend kind.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()

		backend, err := Open(&Config{Backend: BackendMemory, Shards: 4})
		require.NoError(t, err)
		require.IsType(t, &store.MemoryMap{}, backend)
		require.NoError(t, backend.Close())
	})

	t.Run("bolt", func(t *testing.T) {
		t.Parallel()

		backend, err := Open(&Config{
			Backend: BackendBolt,
			Path:    filepath.Join(t.TempDir(), "open-test.db"),
		})
		require.NoError(t, err)
		require.IsType(t, &store.BoltMap{}, backend)

		require.NoError(t, backend.Insert([]byte("k"), []byte("v")))
		require.NoError(t, backend.Close())
	})

	t.Run("badger in-memory", func(t *testing.T) {
		t.Parallel()

		backend, err := Open(&Config{Backend: BackendBadger})
		require.NoError(t, err)
		require.IsType(t, &store.BadgerMap{}, backend)
		require.NoError(t, backend.Close())
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := Open(&Config{Backend: "cassandra"})
		require.ErrorIs(t, err, ErrUnknownBackend)
	})
}
