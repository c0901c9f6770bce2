package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/facilitytables/internal/format"
	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/JonMunkholm/facilitytables/internal/strategy"
)

// Default cache TTLs.
const (
	DefaultConfigTTL   = 300 * time.Second
	DefaultCompiledTTL = 3600 * time.Second
)

// Cache key layout.
const (
	configKeyPrefix   = "table_config:"
	compiledKeyPrefix = "table_compiled:"
	allKeysPattern    = "table_*"
)

func configKey(tableType string) string {
	return configKeyPrefix + tableType
}

func compiledKey(tableType, fingerprint, shape string) string {
	return compiledKeyPrefix + tableType + ":" + fingerprint + ":" + shape
}

func compiledPattern(tableType string) string {
	return compiledKeyPrefix + tableType + ":*"
}

// Options configures an Engine. Nil collaborators get inert defaults: no
// store (type defaults only), no cache, no monitor, registry defaults.
type Options struct {
	Store      ConfigStore
	Cache      Cache
	Monitor    Monitor
	Defaults   DefaultConfigProvider
	Formatter  *format.Formatter
	Strategist *strategy.Strategist

	ConfigTTL   time.Duration
	CompiledTTL time.Duration
}

// Engine is the entry point for table configuration, formatting and
// rendering. It is safe for concurrent use.
type Engine struct {
	store      ConfigStore
	cache      Cache
	monitor    Monitor
	defaults   DefaultConfigProvider
	formatter  *format.Formatter
	strategist *strategy.Strategist
	handler    *ErrorHandler

	configTTL   time.Duration
	compiledTTL time.Duration
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		store:       opts.Store,
		cache:       opts.Cache,
		monitor:     opts.Monitor,
		defaults:    opts.Defaults,
		formatter:   opts.Formatter,
		strategist:  opts.Strategist,
		configTTL:   opts.ConfigTTL,
		compiledTTL: opts.CompiledTTL,
	}
	if e.cache == nil {
		e.cache = noCache{}
	}
	if e.monitor == nil {
		e.monitor = nopMonitor{}
	}
	if e.defaults == nil {
		e.defaults = RegistryDefaults
	}
	if e.formatter == nil {
		e.formatter = format.New(format.Options{})
	}
	if e.strategist == nil {
		e.strategist = strategy.New(strategy.Thresholds{})
	}
	if e.configTTL <= 0 {
		e.configTTL = DefaultConfigTTL
	}
	if e.compiledTTL <= 0 {
		e.compiledTTL = DefaultCompiledTTL
	}
	e.handler = NewErrorHandler(e.defaults, e.monitor)
	return e
}

// Formatter returns the engine's formatter, e.g. to register custom
// predicates or type formatters.
func (e *Engine) Formatter() *format.Formatter { return e.formatter }

// Strategist returns the engine's strategist.
func (e *Engine) Strategist() *strategy.Strategist { return e.strategist }

// Handler returns the engine's error handler.
func (e *Engine) Handler() *ErrorHandler { return e.handler }

// GetConfig returns the validated config for tableType. It never fails:
// unknown types, store failures and invalid documents are resolved by the
// ErrorHandler into a repaired, default or minimal config.
func (e *Engine) GetConfig(ctx context.Context, tableType string) schema.TableConfig {
	cfg, err := e.loadConfig(ctx, tableType)
	if err != nil {
		return e.handler.HandleConfigError(ctx, tableType, err)
	}
	return cfg
}

func (e *Engine) loadConfig(ctx context.Context, tableType string) (schema.TableConfig, error) {
	if !IsKnown(tableType) {
		return schema.TableConfig{}, NewEngineError(KindConfigNotFound, tableType, errors.New("unknown table type"))
	}

	var cached schema.TableConfig
	if e.cacheGetJSON(ctx, layerConfig, configKey(tableType), &cached) {
		return cached, nil
	}

	cfg, err := e.resolveConfig(ctx, tableType)
	if err != nil {
		return schema.TableConfig{}, err
	}
	e.cacheSetJSON(ctx, configKey(tableType), cfg, e.configTTL)
	return cfg.Clone(), nil
}

// resolveConfig merges, validates and if needed repairs the config of
// tableType without touching the cache.
func (e *Engine) resolveConfig(ctx context.Context, tableType string) (schema.TableConfig, error) {
	doc, err := e.mergedDocument(ctx, tableType)
	if err != nil {
		return schema.TableConfig{}, err
	}

	result := Validate(doc)
	var cfg schema.TableConfig
	if result.Valid {
		cfg, err = schema.Decode(doc)
		if err != nil {
			result.add(ValidationIssue{Code: CodeInvalidSection, ColumnIndex: NoColumn, Message: err.Error()})
		}
	}
	if !result.Valid {
		cfg = e.handler.HandleValidationError(ctx, tableType, doc, result)
	}
	return cfg, nil
}

// mergedDocument overlays the stored document for tableType on its defaults.
func (e *Engine) mergedDocument(ctx context.Context, tableType string) (schema.Document, error) {
	defaults, err := e.defaults.DefaultConfig(tableType)
	if err != nil {
		return nil, NewEngineError(KindConfigNotFound, tableType, err)
	}
	base, err := schema.Encode(defaults)
	if err != nil {
		return nil, NewEngineError(KindConfigNotFound, tableType, err)
	}

	custom, err := e.loadDocument(ctx, tableType)
	if err != nil {
		return nil, NewEngineError(KindConfigNotFound, tableType, err)
	}
	return MergeWithDefaults(base, custom), nil
}

func (e *Engine) loadDocument(ctx context.Context, tableType string) (schema.Document, error) {
	if e.store == nil {
		return nil, nil
	}
	doc, err := e.store.Load(ctx, tableType)
	if errors.Is(err, ErrNoDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", tableType, err)
	}
	return doc, nil
}

// FormatValue formats one value for col.
func (e *Engine) FormatValue(value any, col schema.ColumnSpec) string {
	return e.formatter.FormatValue(value, col)
}

// FormatTableData formats rows against cfg.
func (e *Engine) FormatTableData(rows []schema.Row, cfg schema.TableConfig) []format.FormattedRow {
	return e.formatter.FormatTableData(rows, cfg)
}

// ClearResult reports what a cache clear achieved.
type ClearResult struct {
	Deleted int `json:"deleted"`

	// Complete is false when the cache backend could not enumerate keys, in
	// which case compiled entries may survive until their TTL expires.
	Complete bool   `json:"complete"`
	Error    string `json:"error,omitempty"`
}

// ClearCache removes cached entries for tableType, or for every table type
// when tableType is empty. It is best-effort.
func (e *Engine) ClearCache(ctx context.Context, tableType string) ClearResult {
	var res ClearResult
	var errs []error

	if tableType != "" {
		if err := e.cache.Delete(ctx, configKey(tableType)); err != nil {
			errs = append(errs, err)
		}
		n, supported, err := e.cache.DeletePattern(ctx, compiledPattern(tableType))
		if err != nil {
			errs = append(errs, err)
		}
		res.Deleted, res.Complete = n, supported && err == nil
	} else {
		n, supported, err := e.cache.DeletePattern(ctx, allKeysPattern)
		if err != nil {
			errs = append(errs, err)
		}
		res.Deleted, res.Complete = n, supported && err == nil
		if !supported {
			keys := make([]string, 0, TableCount())
			for _, def := range All() {
				keys = append(keys, configKey(def.Info.Key))
			}
			if err := e.cache.Delete(ctx, keys...); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		res.Error = err.Error()
		slog.Warn("cache clear incomplete", "table_type", tableType, "error", err)
	}
	slog.Debug("cache cleared",
		"table_type", tableType,
		"deleted", res.Deleted,
		"complete", res.Complete,
	)
	return res
}

// Invalidate drops cached state for tableType after its stored document
// changed.
func (e *Engine) Invalidate(ctx context.Context, tableType string) {
	e.ClearCache(ctx, tableType)
}

func (e *Engine) cacheGetJSON(ctx context.Context, layer, key string, dst any) bool {
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		ok = false
	}
	if ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
			ok = false
		}
	}
	if ok {
		e.monitor.CacheHit(layer)
	} else {
		e.monitor.CacheMiss(layer)
	}
	return ok
}

func (e *Engine) cacheSetJSON(ctx context.Context, key string, v any, ttl time.Duration) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return nil
	}
	if err := e.cache.Set(ctx, key, raw, ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
	return raw
}

// noCache stores nothing.
type noCache struct{}

func (noCache) Get(context.Context, string) ([]byte, bool, error)               { return nil, false, nil }
func (noCache) Set(context.Context, string, []byte, time.Duration) error        { return nil }
func (noCache) Delete(context.Context, ...string) error                         { return nil }
func (noCache) GetMany(context.Context, []string) (map[string][]byte, error)    { return nil, nil }
func (noCache) SetMany(context.Context, map[string][]byte, time.Duration) error { return nil }
func (noCache) DeletePattern(context.Context, string) (int, bool, error)        { return 0, true, nil }
