package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABRICKS_APP_PORT", "")

	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.HTTPAddress)
	assert.Equal(t, "pq", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "databricks_postgres", cfg.Database.Name)
	assert.Equal(t, "trex-game-db", cfg.Database.InstanceName)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "databricks-meta-llama-3-3-70b-instruct", cfg.LLM.ServingEndpoint)
	assert.Equal(t, 150, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.9, cfg.LLM.Temperature, 0.0001)
	assert.False(t, cfg.Database.StaticCredentials())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LAKEBASE_HOST", "instance-123.database.cloud.databricks.com")
	t.Setenv("LAKEBASE_PORT", "6543")
	t.Setenv("LAKEBASE_INSTANCE_NAME", "booth-db")
	t.Setenv("SERVING_ENDPOINT_NAME", "my-endpoint")
	t.Setenv("LAKEBASE_CONNECT_TIMEOUT", "3s")
	t.Setenv("DATABRICKS_APP_PORT", "8080")

	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "instance-123.database.cloud.databricks.com", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "booth-db", cfg.Database.InstanceName)
	assert.Equal(t, "my-endpoint", cfg.LLM.ServingEndpoint)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("DATABRICKS_APP_PORT", "9999")

	dir := t.TempDir()
	yaml := `
server:
  http_address: "127.0.0.1:7000"
database:
  user: booth
  password: secret
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.HTTPAddress)
	assert.True(t, cfg.Database.StaticCredentials())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
