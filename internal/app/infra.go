package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-payroll/internal/shared/connection"
	"go-payroll/internal/shared/storage"
)

type infra struct {
	gormDB *gorm.DB
	db     *sql.DB
	rdb    *redis.Client
	store  storage.Storage
}

func (i *infra) Close() {
	if i.rdb != nil {
		_ = i.rdb.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func connectInfra(ctx context.Context, cfg Config, logger *zap.Logger) (*infra, error) {
	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DB.Host,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Name,
		cfg.DB.Port,
		cfg.DB.SSLMode,
		cfg.MaxRetries,
	)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	in := &infra{gormDB: gormDB, db: sqlDB}

	in.rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.MaxRetries)
	if err != nil {
		in.Close()
		return nil, err
	}
	logger.Info("redis connection established")

	if cfg.Storage.Bucket != "" {
		in.store, err = storage.NewGCS(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.CredentialsJSON)
		if err != nil {
			in.Close()
			return nil, err
		}
		logger.Info("artifact storage on GCS", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		in.store = storage.NewMemory()
		logger.Warn("GCS_BUCKET not set, bank files and journal exports are kept in memory")
	}

	return in, nil
}
