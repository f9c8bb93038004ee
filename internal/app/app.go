package app

import (
	"context"
	"time"

	"DealSync/internal/adapter"
	"DealSync/internal/cache"
	"DealSync/internal/config"
	"DealSync/internal/database"
	"DealSync/internal/interfaces"
	"DealSync/internal/repository"
	"DealSync/internal/service"
	"DealSync/internal/utils/limiter"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 组合根：server 与 CLI 共用的依赖
type App struct {
	DB      *gorm.DB
	Catalog repository.CatalogRepository
	Deals   repository.DealRepository
	Source  interfaces.NamedAdapter
	Tracker *service.JobTracker
	Syncer  *service.DealSyncService
	Job     *service.DealSyncJob
	Query   *service.DealQueryService

	closers []func() error
}

// New 连接数据库、选择数据源、组装仓储与服务
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, db, logger)
}

// Wire 在已有连接上组装依赖
func Wire(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (*App, error) {
	a := &App{DB: db}

	lim := limiter.New(cfg.Source.Concurrency, cfg.Source.RatePerSecond)
	source, err := adapter.Select(cfg, lim, logger)
	if err != nil {
		return nil, err
	}
	a.Source = source
	metadata := adapter.NewMetadataSource(cfg, lim, logger)

	var queryCache service.QueryCache = cache.NoopCache{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			logger.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("Redis不可用，查询缓存已禁用")
			_ = rc.Close()
		} else {
			logger.WithField("addr", cfg.Redis.Addr).Info("Redis查询缓存已启用")
			queryCache = rc
			a.closers = append(a.closers, rc.Close)
		}
	}

	a.Catalog = repository.NewCatalogRepository(db)
	a.Deals = repository.NewDealRepository(db)
	a.Tracker = service.NewJobTracker(repository.NewJobRepository(db), logger)
	a.Syncer = service.NewDealSyncService(a.Catalog, a.Deals, source, metadata, queryCache, cfg.Sync, logger)
	a.Job = service.NewDealSyncJob(a.Tracker, a.Syncer, cfg.Sync.Countries, logger)
	a.Query = service.NewDealQueryService(a.Deals, a.Catalog, queryCache, logger)
	return a, nil
}

// Close 释放缓存与数据库连接
func (a *App) Close() error {
	for _, c := range a.closers {
		_ = c()
	}
	if a.DB == nil {
		return nil
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
