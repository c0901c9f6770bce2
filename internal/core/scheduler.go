package core

// scheduler.go keeps the config cache warm.
//
// The warmer reads every registered table type's config key in one GetMany,
// resolves the missing ones through the store, validating and repairing them
// as GetConfig would, and writes them back in one SetMany, so the first
// request after a restart or an expiry does not pay for the store round
// trip. It runs immediately on start, then on every tick, and stops when the
// context is cancelled. A table type whose config cannot be loaded is left
// uncached and never stops the loop.

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultWarmInterval is used when StartCacheWarmer gets a non-positive
// interval.
const DefaultWarmInterval = 4 * time.Minute

// Warm loads the config of every registered table type into the cache and
// returns how many are cached afterwards.
func (e *Engine) Warm(ctx context.Context) int {
	start := time.Now()
	defs := All()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = configKey(def.Info.Key)
	}

	cached, err := e.cache.GetMany(ctx, keys)
	if err != nil {
		slog.Warn("cache warm read failed", "error", err)
		cached = nil
	}

	n := 0
	items := make(map[string][]byte)
	for i, def := range defs {
		if ctx.Err() != nil {
			break
		}
		if _, ok := cached[keys[i]]; ok {
			e.monitor.CacheHit(layerConfig)
			n++
			continue
		}
		e.monitor.CacheMiss(layerConfig)

		cfg, err := e.resolveConfig(ctx, def.Info.Key)
		if err != nil {
			slog.Warn("cache warm skipped table", "table_type", def.Info.Key, "error", err)
			continue
		}
		raw, err := json.Marshal(cfg)
		if err != nil {
			slog.Warn("cache warm encode failed", "table_type", def.Info.Key, "error", err)
			continue
		}
		items[keys[i]] = raw
		slog.Debug("warmed table config",
			"table_type", def.Info.Key,
			"columns", len(cfg.Columns),
		)
		n++
	}

	if len(items) > 0 {
		if err := e.cache.SetMany(ctx, items, e.configTTL); err != nil {
			slog.Warn("cache warm write failed", "entries", len(items), "error", err)
			n -= len(items)
		}
	}
	slog.Info("cache warm completed",
		"tables", n,
		"loaded", len(items),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n
}

// StartCacheWarmer runs Warm now and then every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (e *Engine) StartCacheWarmer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWarmInterval
	}
	slog.Info("cache warmer started", "interval", interval.String())

	e.Warm(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache warmer stopped")
			return
		case <-ticker.C:
			e.Warm(ctx)
		}
	}
}
