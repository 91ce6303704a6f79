package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shadow-links/internal/logging"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectTimeout = 10 * time.Second

// LoggerPackage provides *logging.Logger and the *zap.Logger it wraps.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*logging.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return logging.New(logging.Config{
			Format: opts.LogFormat,
			Level:  opts.LogLevel,
			File:   opts.LogFile,
		})
	})

	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		logger, err := do.Invoke[*logging.Logger](i)
		if err != nil {
			return nil, err
		}

		return logger.Logger, nil
	})
}

type redisService struct {
	client *redis.Client
}

func (s *redisService) Shutdown() error {
	return s.client.Close()
}

// RedisPackage provides *redis.Client. The client connects lazily.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redisService, error) {
		opts := do.MustInvoke[*Options](i)

		return &redisService{client: redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})}, nil
	})

	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		svc, err := do.Invoke[*redisService](i)
		if err != nil {
			return nil, err
		}

		return svc.client, nil
	})
}

type postgresService struct {
	pool *pgxpool.Pool
}

func (s *postgresService) Shutdown() error {
	s.pool.Close()

	return nil
}

// PostgresPackage provides *pgxpool.Pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*postgresService, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &postgresService{pool: pool}, nil
	})

	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		svc, err := do.Invoke[*postgresService](i)
		if err != nil {
			return nil, err
		}

		return svc.pool, nil
	})
}

type gormService struct {
	db *gorm.DB
}

func (s *gormService) Shutdown() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// GormPackage provides *gorm.DB for the mysql and sqlite storage options.
func GormPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gormService, error) {
		opts := do.MustInvoke[*Options](i)

		var dialector gorm.Dialector

		switch opts.Storage {
		case StorageMySQL:
			dialector = mysql.Open(opts.GormDSN)
		case StorageSQLite:
			dialector = sqlite.Open(opts.GormDSN)
		default:
			return nil, fmt.Errorf("storage %q is not served by gorm", opts.Storage)
		}

		db, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.Storage, err)
		}

		return &gormService{db: db}, nil
	})

	do.Provide(injector, func(i *do.Injector) (*gorm.DB, error) {
		svc, err := do.Invoke[*gormService](i)
		if err != nil {
			return nil, err
		}

		return svc.db, nil
	})
}
