package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
minio:
  endpoint: "minio.internal:9000"
  accessKeyID: "file-access"
  secretAccessKey: "file-secret"
  bucketName: "raw-bucket"
mysql:
  host: "db.internal"
  port: 3307
  username: "etl"
  password: "secret"
  database: "job_market"
redis:
  enabled: true
  address: "redis.internal:6379"
extractor:
  data_dir: "/var/data/raw"
  include_remote: true
loader:
  table: "jobs_test"
  batch_size: 100
keywords: ["go", "rust"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "minio.internal:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "file-access", cfg.MinIO.AccessKeyID)
	assert.Equal(t, "raw-bucket", cfg.MinIO.BucketName)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, "/var/data/raw", cfg.Extractor.DataDir)
	assert.True(t, cfg.Extractor.IncludeRemote)
	assert.Equal(t, "jobs_test", cfg.Loader.Table)
	assert.Equal(t, 100, cfg.Loader.BatchSize)
	assert.Equal(t, []string{"go", "rust"}, cfg.Keywords)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, `
mysql:
  host: "localhost"
`))
	require.NoError(t, err)

	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, 10, cfg.MySQL.MaxIdleConns)
	assert.Equal(t, 100, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, 30, cfg.MySQL.ConnectTimeoutSeconds)
	assert.Equal(t, "data-lake-brut", cfg.MinIO.BucketName)
	assert.Equal(t, 2, cfg.MinIO.MaxRetries)
	assert.False(t, cfg.Redis.Enabled, "the dedup cache is opt-in")
	assert.Equal(t, 365, cfg.Redis.LoadedIDExpireDays)
	assert.Equal(t, "data/raw/france_travail", cfg.Extractor.DataDir)
	assert.Equal(t, "*.json", cfg.Extractor.FilePattern)
	assert.Equal(t, "raw/france_travail/", cfg.Extractor.RemotePrefix)
	assert.False(t, cfg.Extractor.IncludeRemote)
	assert.Equal(t, "france_travail_jobs", cfg.Loader.Table)
	assert.Equal(t, 500, cfg.Loader.BatchSize)
	assert.Equal(t, "FRANCE_TRAVAIL", cfg.Loader.Source)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "logs", cfg.Logger.Directory)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("KEY_ACCESS", "env-access")
	t.Setenv("KEY_SECRET", "env-secret")
	t.Setenv("DATA_LAKE_BUCKET", "env-bucket")
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "13306")
	t.Setenv("DB_PASSWORD", "env-password")

	cfg, err := LoadConfig(writeConfigFile(t, `
minio:
  accessKeyID: "file-access"
  secretAccessKey: "file-secret"
mysql:
  host: "file-host"
  port: 3306
  password: "file-password"
`))
	require.NoError(t, err)

	assert.Equal(t, "env-access", cfg.MinIO.AccessKeyID)
	assert.Equal(t, "env-secret", cfg.MinIO.SecretAccessKey)
	assert.Equal(t, "env-bucket", cfg.MinIO.BucketName)
	assert.Equal(t, "env-host", cfg.MySQL.Host)
	assert.Equal(t, 13306, cfg.MySQL.Port)
	assert.Equal(t, "env-password", cfg.MySQL.Password)
}

func TestLoadConfigEnvPortInvalid(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	cfg, err := LoadConfig(writeConfigFile(t, `
mysql:
  port: 3307
`))
	require.NoError(t, err)
	assert.Equal(t, 3307, cfg.MySQL.Port, "an unparsable override keeps the file value")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfigFile(t, "mysql: [not a mapping"))
	assert.Error(t, err)
}

func TestCreateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateSampleConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "job_market", cfg.MySQL.Database)
	assert.Equal(t, "france_travail_jobs", cfg.Loader.Table)

	assert.Error(t, CreateSampleConfig(path), "existing files are never overwritten")
}
