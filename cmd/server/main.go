package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/facilitytables/internal/cache"
	"github.com/JonMunkholm/facilitytables/internal/config"
	"github.com/JonMunkholm/facilitytables/internal/core"
	_ "github.com/JonMunkholm/facilitytables/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/facilitytables/internal/format"
	"github.com/JonMunkholm/facilitytables/internal/logging"
	"github.com/JonMunkholm/facilitytables/internal/monitor"
	"github.com/JonMunkholm/facilitytables/internal/store"
	"github.com/JonMunkholm/facilitytables/internal/strategy"
	"github.com/JonMunkholm/facilitytables/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"cache", cfg.Cache.Backend,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Background work (watcher, warmer) stops when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	configStore, closeStore, err := openStore(jobCtx, cfg)
	if err != nil {
		slog.Error("failed to open config store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	configCache, closeCache, err := openCache(jobCtx, cfg)
	if err != nil {
		slog.Error("failed to open cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	metrics, err := monitor.NewPrometheus(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	engine := core.NewEngine(core.Options{
		Store:   configStore,
		Cache:   configCache,
		Monitor: metrics,
		Formatter: format.New(format.Options{
			EmptyMarker:   cfg.Format.EmptyMarker,
			DateLayout:    cfg.Format.DateLayout,
			Locale:        cfg.Format.Locale,
			PhonePattern:  cfg.Format.PhonePattern,
			TextMaxLength: cfg.Format.TextMaxLength,
		}),
		Strategist: strategy.New(strategy.Thresholds{
			Lazy:         cfg.Performance.LazyThreshold,
			PaginateMax:  cfg.Performance.PaginateMax,
			Virtual:      cfg.Performance.VirtualThreshold,
			MemoryBudget: cfg.Performance.MemoryBudget,
		}),
		ConfigTTL:   cfg.Cache.ConfigTTL,
		CompiledTTL: cfg.Cache.CompiledTTL,
	})

	slog.Info("tables registered",
		"count", core.TableCount(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		slog.Debug("table group", "group", group, "tables", len(core.ByGroup(group)))
	}

	if ys, ok := configStore.(*store.YAMLStore); ok && cfg.Store.Watch {
		err := ys.Watch(jobCtx, store.DefaultDebounce, func(tableType string) {
			slog.Info("config file changed", "table_type", tableType)
			engine.Invalidate(jobCtx, tableType)
		})
		if err != nil {
			slog.Warn("config watcher disabled", "dir", ys.Dir(), "error", err)
		}
	}

	if cfg.Cache.WarmInterval > 0 {
		go engine.StartCacheWarmer(jobCtx, cfg.Cache.WarmInterval)
	}

	server := web.NewServer(engine, cfg, web.Options{
		Metrics:  promhttp.Handler(),
		Observer: metrics,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openStore builds the configured ConfigStore. The returned close function
// is always non-nil.
func openStore(ctx context.Context, cfg *config.Config) (core.ConfigStore, func(), error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case config.StoreMemory:
		return store.NewMemoryStore(), func() {}, nil

	case config.StoreYAML:
		s, err := store.NewYAMLStore(cfg.Store.ConfigDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using yaml config store", "dir", s.Dir())
		return s, func() {}, nil

	case config.StorePostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		opts := store.PGOptions{}
		if cfg.Store.History {
			opts.HistoryTable = store.DefaultHistoryTable
		}
		s := store.NewPGStore(pool, opts)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return s, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func openPool(ctx context.Context, dbc config.DatabaseConfig) (*pgxpool.Pool, error) {
	if dbc.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	poolConfig, err := pgxpool.ParseConfig(dbc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(dbc.MaxConns)
	poolConfig.MinConns = int32(dbc.MinConns)
	poolConfig.MaxConnLifetime = dbc.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbc.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(dbc.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

func openCache(ctx context.Context, cfg *config.Config) (core.Cache, func(), error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case config.CacheMemory:
		c, err := cache.NewMemory(cfg.Cache.Size)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil

	case config.CacheRedis:
		c, err := cache.NewRedis(cache.RedisOptions{
			URL:    cfg.Cache.RedisURL,
			Prefix: cfg.Cache.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := c.Ping(ctx); err != nil {
			// The engine treats cache errors as misses, so keep serving.
			slog.Warn("redis unreachable at startup", "error", err)
		}
		return c, func() { c.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
