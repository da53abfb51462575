package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediatrack/internal/cachestore"
	"mediatrack/internal/cachesvc"
	"mediatrack/internal/config"
	"mediatrack/internal/logging"
	"mediatrack/internal/providers/tmdb"
	"mediatrack/internal/resolver"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

// startedAt seeds the process version of unversioned dev builds, so every
// dev run invalidates version-sensitive entries.
var startedAt = time.Now()

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	registry   *prometheus.Registry

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	storeOnce sync.Once
	store     *cachestore.Store
	storeErr  error

	serviceOnce sync.Once
	service     *cachesvc.Service
	serviceErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		registry:   prometheus.NewRegistry(),
	}
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger.With(logging.String(logging.FieldComponent, "cli"))
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ensureStore() (*cachestore.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = cachestore.Open(cfg)
	})
	return c.store, c.storeErr
}

func (c *commandContext) ensureService() (*cachesvc.Service, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		logger, err := c.ensureLogger()
		if err != nil {
			c.serviceErr = err
			return
		}
		store, err := c.ensureStore()
		if err != nil {
			c.serviceErr = err
			return
		}
		c.service, c.serviceErr = cachesvc.New(store, cachesvc.Options{
			Version: processVersion(cfg),
			TTLs:    cachesvc.DefaultTTLTable(cfg.ProgressUpdateWindow()),
			Logger:  logger,
			Metrics: cachesvc.NewMetrics(c.registry),
		})
	})
	return c.service, c.serviceErr
}

func (c *commandContext) newResolver() (*resolver.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	svc, err := c.ensureService()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := tmdb.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return resolver.New(svc, client, resolver.Options{
		Limiter: resolver.NewLimiter(cfg.TMDB.RequestsPerSecond),
		Logger:  logger,
	})
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// processVersion picks the version stamped on version-sensitive entries.
func processVersion(cfg *config.Config) string {
	if cfg != nil && strings.TrimSpace(cfg.Cache.Version) != "" {
		return cfg.Cache.Version
	}
	if buildVersion != "" && buildVersion != "dev" {
		return buildVersion
	}
	return fmt.Sprintf("dev-%d", startedAt.Unix())
}
