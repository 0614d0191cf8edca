package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/config"
	"github.com/rohits-web03/edudrive/internal/drive"
	"github.com/rohits-web03/edudrive/internal/notify"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

// container holds the process-wide dependencies shared by every command.
type container struct {
	cfg    config.Config
	db     *gorm.DB
	redis  *redis.Client
	bridge *notify.Bridge
	svc    *drive.Service
}

func (c *container) init(cfg config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg

	db, err := repositories.ConnectDatabase(cfg.DB_URL)
	if err != nil {
		return err
	}
	c.db = db

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return err
	}

	sinks := notify.MultiSink{
		notify.NewDBSink(db),
		notify.NewLogSink(log.Logger),
	}
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		c.redis = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, notifications will not be published until it recovers")
		}
		sinks = append(sinks, notify.NewRedisSink(c.redis, cfg.Redis.Channel))
	}

	c.bridge = notify.NewBridge(sinks, log.Logger)
	c.svc = drive.NewService(db, blobs, c.bridge, cfg.Drive, drive.WithLogger(log.Logger))
	return nil
}

func newBlobStore(cfg config.Config) (repositories.BlobStore, error) {
	switch cfg.BlobBackend {
	case "memory":
		log.Warn().Msg("using in-memory blob store, content is lost on restart")
		return repositories.NewMemoryBlobStore(), nil
	default:
		store, err := repositories.NewR2Store(
			cfg.R2.AccessKeyID,
			cfg.R2.SecretAccessKey,
			cfg.R2.AccountID,
			cfg.R2.BucketName,
			cfg.R2.Region,
		)
		if err != nil {
			return nil, fmt.Errorf("init r2 store: %w", err)
		}
		return store, nil
	}
}

// close waits for queued notifications and releases connections.
func (c *container) close() {
	if c.bridge != nil {
		c.bridge.Wait()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
