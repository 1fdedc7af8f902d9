package storage

import (
	"context"

	"job-etl-go/internal/config"
	"job-etl-go/internal/logger"
)

// Storage aggregates the pipeline's storage dependencies. MinIO and
// Redis are optional collaborators: a failed initialization degrades
// the run (local-only extraction, no cross-run dedup cache) instead of
// aborting it. MySQL is connected on demand by the orchestrator so a
// dry run never touches the database.
type Storage struct {
	MinIO *MinIO
	Redis *Redis
	MySQL *MySQL

	cfg *config.Config
}

// NewStorage initializes the best-effort dependencies.
func NewStorage(ctx context.Context, cfg *config.Config) *Storage {
	s := &Storage{cfg: cfg}

	if cfg.Extractor.IncludeRemote {
		minioClient, err := NewMinIO(ctx, &cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).
				Str("endpoint", cfg.MinIO.Endpoint).
				Str("bucket", cfg.MinIO.BucketName).
				Msg("object storage unavailable, continuing with local batches only")
		} else {
			s.MinIO = minioClient
		}
	}

	if cfg.Redis.Enabled {
		redisClient, err := NewRedis(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).
				Str("address", cfg.Redis.Address).
				Msg("redis unavailable, loaded-id dedup cache disabled for this run")
		} else {
			s.Redis = redisClient
		}
	}

	return s
}

// ConnectMySQL opens the warehouse connection. Called by the load stage
// only, and only when loading was not skipped.
func (s *Storage) ConnectMySQL() error {
	if s.MySQL != nil {
		return nil
	}
	mysqlClient, err := NewMySQL(&s.cfg.MySQL)
	if err != nil {
		return err
	}
	s.MySQL = mysqlClient
	return nil
}

// Close releases every held connection.
func (s *Storage) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("close mysql")
		}
	}
}
