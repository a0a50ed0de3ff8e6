// Package service assembles the storage, cache, metrics and task layers
// shared by the server and the one-shot collector.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lysyi3m/buzz-comb/app/cache"
	"github.com/lysyi3m/buzz-comb/app/cfg"
	"github.com/lysyi3m/buzz-comb/app/database"
	"github.com/lysyi3m/buzz-comb/app/export"
	"github.com/lysyi3m/buzz-comb/app/metrics"
	"github.com/lysyi3m/buzz-comb/app/source"
	"github.com/lysyi3m/buzz-comb/app/tasks"
	"github.com/lysyi3m/buzz-comb/app/topic"
)

type Service struct {
	Config      *cfg.Cfg
	DB          *database.DB
	TopicRepo   *database.TopicRepo
	ItemRepo    *database.ItemRepo
	ConfigCache *topic.ConfigCache
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry
	Cache       cache.Store
	Tasks       *tasks.Services

	redis *cache.Cache
}

// Open connects to the database, applies migrations, loads topic files and
// registers metrics. Redis is optional.
func Open(ctx context.Context, c *cfg.Cfg) (*Service, error) {
	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Service{Config: c, DB: db}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	s.ConfigCache = topic.NewConfigCache(c.TopicsDir)
	if err := s.ConfigCache.Run(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load topic configurations: %w", err)
	}
	slog.Info("Topic configurations loaded", "dir", c.TopicsDir, "count", s.ConfigCache.GetConfigCount())

	s.TopicRepo = database.NewTopicRepository(db)
	s.ItemRepo = database.NewItemRepository(db)

	s.Registry = prometheus.NewRegistry()
	s.Metrics = metrics.NewMetrics()
	if err := s.Metrics.Register(s.Registry); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	s.Cache = cache.Disabled{}
	if c.RedisAddr != "" {
		redisCache, err := cache.NewCache(ctx, c.RedisAddr, c.GetCacheTTL())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = redisCache
		s.Cache = redisCache
	}

	s.Tasks = &tasks.Services{
		TopicRepo:     s.TopicRepo,
		ItemRepo:      s.ItemRepo,
		SourceOptions: SourceOptions(c),
		Metrics:       s.Metrics,
		Cache:         s.Cache,
		Writer:        export.NewWriter(c.ExportDir, c.Version, c.Location()),
	}

	return s, nil
}

func SourceOptions(c *cfg.Cfg) source.Options {
	return source.Options{
		HTTPClient:         &http.Client{Timeout: c.GetHTTPTimeout()},
		UserAgent:          c.UserAgent,
		TwitterBearerToken: c.TwitterBearerToken,
		Reddit: source.RedditCredentials{
			ClientID:     c.RedditClientID,
			ClientSecret: c.RedditClientSecret,
			UserAgent:    c.RedditUserAgent,
		},
		WeiboAccessToken: c.WeiboAccessToken,
	}
}

func (s *Service) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
