package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// CompileWithData returns the config for tableType adapted to rows: inferred
// columns added when dynamic columns are enabled, columns whose show
// condition fails removed, widths computed when auto width is enabled.
// Results are cached per config fingerprint and data shape, so identical
// inputs yield identical output. It never fails; on error the uncompiled
// config is returned.
func (e *Engine) CompileWithData(ctx context.Context, tableType string, rows []schema.Row) schema.CompiledConfig {
	compiled, err := e.compile(ctx, tableType, rows)
	if err != nil {
		slog.Error("table compile failed, using base config",
			"table_type", tableType,
			"rows", len(rows),
			"error", err,
		)
		e.monitor.ReportFailure(string(KindRenderFailed), tableType, string(SeverityError), err)
		return schema.CompiledConfig{
			TableConfig: e.GetConfig(ctx, tableType),
			TableType:   tableType,
			ShapeHash:   ShapeHash(rows),
		}
	}
	return compiled
}

// GetConfigWithDynamicColumns is CompileWithData.
func (e *Engine) GetConfigWithDynamicColumns(ctx context.Context, tableType string, rows []schema.Row) schema.CompiledConfig {
	return e.CompileWithData(ctx, tableType, rows)
}

func (e *Engine) compile(ctx context.Context, tableType string, rows []schema.Row) (out schema.CompiledConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEngineError(KindRenderFailed, tableType, fmt.Errorf("compile panic: %v", r))
		}
	}()

	base := e.GetConfig(ctx, tableType)
	shape := ShapeHash(rows)
	key := compiledKey(tableType, ConfigFingerprint(base), shape)

	var cached schema.CompiledConfig
	if e.cacheGetJSON(ctx, layerCompiled, key, &cached) {
		return cached, nil
	}

	compiled := buildCompiled(e, base, tableType, shape, rows)

	raw := e.cacheSetJSON(ctx, key, compiled, e.compiledTTL)
	if raw == nil {
		return compiled, nil
	}
	// Callers always see the cached representation, hit or miss.
	var canonical schema.CompiledConfig
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return schema.CompiledConfig{}, fmt.Errorf("decode compiled config: %w", err)
	}
	return canonical, nil
}

func buildCompiled(e *Engine, base schema.TableConfig, tableType, shape string, rows []schema.Row) schema.CompiledConfig {
	cfg := base.Clone()
	out := schema.CompiledConfig{
		TableType:  tableType,
		ShapeHash:  shape,
		CompiledAt: time.Now().UTC().Truncate(time.Second),
	}

	if cfg.Features.DynamicColumns {
		inferred := e.formatter.InferColumns(rows, cfg)
		out.DynamicColumns = inferred
		cfg.Columns = append(cfg.Columns, inferred...)
	}

	visible, filtered := e.formatter.FilterColumns(cfg.Columns, rows)
	cfg.Columns = visible
	out.FilteredColumns = filtered

	if cfg.Features.AutoWidth {
		cfg.Columns = e.formatter.OptimizeWidths(cfg.Columns, rows)
	}
	if len(filtered) > 0 {
		cfg.Merge = pruneMergeRules(cfg.Merge, cfg.Keys())
	}

	out.ResponsiveClass = cfg.Styling.ResponsiveClass
	if out.ResponsiveClass == "" && cfg.Layout.ResponsiveBreakpoint != "" {
		out.ResponsiveClass = "table-responsive-" + cfg.Layout.ResponsiveBreakpoint
	}
	out.TableConfig = cfg
	return out
}

// pruneMergeRules drops columns no longer present from merge rules, and
// rules left with nothing to merge.
func pruneMergeRules(rules []schema.MergeRule, keys []string) []schema.MergeRule {
	var out []schema.MergeRule
	for _, rule := range rules {
		rule.Columns = slices.DeleteFunc(slices.Clone(rule.Columns), func(k string) bool {
			return !slices.Contains(keys, k)
		})
		rule.Vertical = slices.DeleteFunc(slices.Clone(rule.Vertical), func(k string) bool {
			return !slices.Contains(keys, k)
		})
		if len(rule.Columns) == 0 {
			continue
		}
		out = append(out, rule)
	}
	return out
}
