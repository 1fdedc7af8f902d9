// Package config loads the pipeline configuration from a YAML file into
// one explicit struct. Components receive their section by value; no
// component reads environment variables at call sites. Credentials have
// a single source (file or the documented override variables) and a
// missing credential fails the affected stage closed.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	// Object storage holding the raw posting batches
	MinIO MinIOConfig `yaml:"minio"`

	// Relational store receiving the standardized postings
	MySQL MySQLConfig `yaml:"mysql"`

	// Optional cross-run loaded-ID cache
	Redis RedisConfig `yaml:"redis"`

	// Raw-batch discovery settings
	Extractor ExtractorConfig `yaml:"extractor"`

	// Target table settings
	Loader LoaderConfig `yaml:"loader"`

	// Optional keyword vocabulary override for the keyword pass; empty
	// keeps the built-in technology vocabulary
	Keywords []string `yaml:"keywords"`

	// Logging settings
	Logger LoggerConfig `yaml:"logger"`
}

// MinIOConfig configures access to the raw-batch object store.
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"`
	// Remote access is best effort, bounded by fixed timeouts
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`
	MaxRetries            int `yaml:"max_retries"`
}

// MySQLConfig configures the relational store connection.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Connection pool
	MaxIdleConns           int `yaml:"max_idle_conns"`
	MaxOpenConns           int `yaml:"max_open_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"`
	// Timeouts
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`
	// GORM log level (1=silent .. 4=info)
	LogLevel int `yaml:"log_level"`
}

// RedisConfig configures the optional loaded-ID dedup cache. Leaving
// Enabled false keeps reruns relying on the store's upsert-ignore alone.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Pool and timeout settings
	PoolSize            int `yaml:"pool_size"`
	MinIdleConns        int `yaml:"min_idle_conns"`
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
	// Loaded-ID marks expire after this many days
	LoadedIDExpireDays int `yaml:"loaded_id_expire_days"`
}

// ExtractorConfig configures where raw batches are discovered.
type ExtractorConfig struct {
	DataDir       string `yaml:"data_dir"`       // local batch directory
	FilePattern   string `yaml:"file_pattern"`   // glob pattern for batch files
	RemotePrefix  string `yaml:"remote_prefix"`  // key prefix of the raw-batch namespace
	TempDir       string `yaml:"temp_dir"`       // scratch parent for remote downloads
	IncludeRemote bool   `yaml:"include_remote"` // also list and download from object storage
}

// LoaderConfig configures the persisted table.
type LoaderConfig struct {
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batch_size"`
	Source    string `yaml:"source"` // source discriminator stamped on every row
}

// LoggerConfig mirrors logger.Config in YAML form.
type LoggerConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
	Directory    string `yaml:"directory"`
}

// LoadConfig reads and parses the configuration file. When no path is
// given the usual locations are searched.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		for _, path := range []string{"config.yaml", "./config.yaml", "../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no config file found, pass --config")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)
	return &config, nil
}

// applyEnvOverrides lets deployment environments inject credentials
// without writing them to the config file. These are the only
// environment variables the pipeline reads.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("KEY_ACCESS"); v != "" {
		config.MinIO.AccessKeyID = v
	}
	if v := os.Getenv("KEY_SECRET"); v != "" {
		config.MinIO.SecretAccessKey = v
	}
	if v := os.Getenv("DATA_LAKE_BUCKET"); v != "" {
		config.MinIO.BucketName = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		config.MySQL.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.MySQL.Port = port
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.MySQL.Database = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		config.MySQL.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.MySQL.Password = v
	}
}

func applyDefaults(config *Config) {
	if config.MinIO.ConnectTimeoutSeconds == 0 {
		config.MinIO.ConnectTimeoutSeconds = 5
	}
	if config.MinIO.ReadTimeoutSeconds == 0 {
		config.MinIO.ReadTimeoutSeconds = 10
	}
	if config.MinIO.MaxRetries == 0 {
		config.MinIO.MaxRetries = 2
	}
	if config.MinIO.BucketName == "" {
		config.MinIO.BucketName = "data-lake-brut"
	}

	if config.MySQL.Port == 0 {
		config.MySQL.Port = 3306
	}
	if config.MySQL.MaxIdleConns == 0 {
		config.MySQL.MaxIdleConns = 10
	}
	if config.MySQL.MaxOpenConns == 0 {
		config.MySQL.MaxOpenConns = 100
	}
	if config.MySQL.ConnMaxLifetimeMinutes == 0 {
		config.MySQL.ConnMaxLifetimeMinutes = 60
	}
	if config.MySQL.ConnMaxIdleTimeMinutes == 0 {
		config.MySQL.ConnMaxIdleTimeMinutes = 30
	}
	if config.MySQL.ConnectTimeoutSeconds == 0 {
		config.MySQL.ConnectTimeoutSeconds = 30
	}
	if config.MySQL.ReadTimeoutSeconds == 0 {
		config.MySQL.ReadTimeoutSeconds = 30
	}
	if config.MySQL.WriteTimeoutSeconds == 0 {
		config.MySQL.WriteTimeoutSeconds = 30
	}
	if config.MySQL.LogLevel == 0 {
		config.MySQL.LogLevel = 2
	}

	if config.Redis.Address == "" {
		config.Redis.Address = "localhost:6379"
	}
	if config.Redis.PoolSize == 0 {
		config.Redis.PoolSize = 10
	}
	if config.Redis.MinIdleConns == 0 {
		config.Redis.MinIdleConns = 2
	}
	if config.Redis.DialTimeoutSeconds == 0 {
		config.Redis.DialTimeoutSeconds = 5
	}
	if config.Redis.ReadTimeoutSeconds == 0 {
		config.Redis.ReadTimeoutSeconds = 3
	}
	if config.Redis.WriteTimeoutSeconds == 0 {
		config.Redis.WriteTimeoutSeconds = 3
	}
	if config.Redis.MaxRetries == 0 {
		config.Redis.MaxRetries = 3
	}
	if config.Redis.LoadedIDExpireDays == 0 {
		config.Redis.LoadedIDExpireDays = 365
	}

	if config.Extractor.DataDir == "" {
		config.Extractor.DataDir = "data/raw/france_travail"
	}
	if config.Extractor.FilePattern == "" {
		config.Extractor.FilePattern = "*.json"
	}
	if config.Extractor.RemotePrefix == "" {
		config.Extractor.RemotePrefix = "raw/france_travail/"
	}
	if config.Extractor.TempDir == "" {
		config.Extractor.TempDir = "data/temp"
	}

	if config.Loader.Table == "" {
		config.Loader.Table = "france_travail_jobs"
	}
	if config.Loader.BatchSize == 0 {
		config.Loader.BatchSize = 500
	}
	if config.Loader.Source == "" {
		config.Loader.Source = "FRANCE_TRAVAIL"
	}

	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Format == "" {
		config.Logger.Format = "pretty"
	}
	if config.Logger.TimeFormat == "" {
		config.Logger.TimeFormat = "2006-01-02 15:04:05"
	}
	if config.Logger.Directory == "" {
		config.Logger.Directory = "logs"
	}
}

// CreateSampleConfig writes a config file populated with the defaults.
// Existing files are never overwritten.
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("file '%s' already exists, refusing to overwrite", filePath)
	}

	config := &Config{}
	applyDefaults(config)
	config.MinIO.Endpoint = "localhost:9000"
	config.MySQL.Host = "localhost"
	config.MySQL.Username = "etl"
	config.MySQL.Database = "job_market"
	config.Extractor.IncludeRemote = true

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("serialize sample config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("write sample config '%s': %w", filePath, err)
	}
	return nil
}
