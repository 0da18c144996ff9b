package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "lexical", cfg.Retrieval.Ranker)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[chunking]
chunk_size = 600
overlap = 100

[database]
driver = "postgres"
dsn = "host=db user=offer dbname=offers sslmode=disable"

[rabbitmq]
enabled = false
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHUNK_OVERLAP", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db user=offer dbname=offers sslmode=disable", cfg.DatabaseDSN())
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadRejectsInvalidChunking(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := Load()
	require.Error(t, err)
}

func TestDatabaseDSNFromParts(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Password = "pw"
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/offerdesk?parseTime=true&loc=Local&charset=utf8mb4", cfg.DatabaseDSN())
}
