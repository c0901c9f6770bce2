package core

// mutations.go implements the administrative column API.
//
// Every mutation starts from the effective config (stored document over
// defaults, validated), applies the change, validates the affected column
// and then the whole config, and only then commits the result through the
// ConfigStore and drops cached state for the table type. A rejected mutation
// leaves the store and cache untouched and returns a ColumnMutationInvalid
// error carrying the validation issues.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// ErrNoStore is returned by mutations on an engine without a ConfigStore.
var ErrNoStore = errors.New("no config store configured")

// AddColumn inserts col at position. A negative or out-of-range position
// appends.
func (e *Engine) AddColumn(ctx context.Context, tableType string, col schema.ColumnSpec, position int) (schema.TableConfig, error) {
	return e.mutate(ctx, tableType, "add_column", func(cfg *schema.TableConfig) (*schema.ColumnSpec, error) {
		if cfg.ColumnIndex(col.Key) >= 0 {
			return nil, fmt.Errorf("Duplicate column key '%s'", col.Key)
		}
		if position < 0 || position > len(cfg.Columns) {
			position = len(cfg.Columns)
		}
		cfg.Columns = slices.Insert(cfg.Columns, position, col)
		return &col, nil
	})
}

// RemoveColumn deletes the column with key. Merge rules lose the column too.
func (e *Engine) RemoveColumn(ctx context.Context, tableType, key string) (schema.TableConfig, error) {
	return e.mutate(ctx, tableType, "remove_column", func(cfg *schema.TableConfig) (*schema.ColumnSpec, error) {
		i := cfg.ColumnIndex(key)
		if i < 0 {
			return nil, fmt.Errorf("column not found: %q", key)
		}
		if len(cfg.Columns) == 1 {
			return nil, fmt.Errorf("cannot remove %q: a table needs at least one column", key)
		}
		cfg.Columns = slices.Delete(cfg.Columns, i, i+1)
		cfg.Merge = pruneMergeRules(cfg.Merge, cfg.Keys())
		return nil, nil
	})
}

// UpdateColumn applies patch, a partial column document such as
// {"label": "施設名", "width": 20}, to the column with key. A patch that
// changes "key" renames the column in merge rules as well.
func (e *Engine) UpdateColumn(ctx context.Context, tableType, key string, patch map[string]any) (schema.TableConfig, error) {
	return e.mutate(ctx, tableType, "update_column", func(cfg *schema.TableConfig) (*schema.ColumnSpec, error) {
		i := cfg.ColumnIndex(key)
		if i < 0 {
			return nil, fmt.Errorf("column not found: %q", key)
		}
		updated, err := patchColumn(cfg.Columns[i], patch)
		if err != nil {
			return nil, err
		}
		if updated.Key != key {
			if cfg.ColumnIndex(updated.Key) >= 0 {
				return nil, fmt.Errorf("Duplicate column key '%s'", updated.Key)
			}
			renameInMerge(cfg.Merge, key, updated.Key)
		}
		cfg.Columns[i] = updated
		return &updated, nil
	})
}

// ReorderColumns puts columns in the order of keys, which must name every
// column exactly once.
func (e *Engine) ReorderColumns(ctx context.Context, tableType string, keys []string) (schema.TableConfig, error) {
	return e.mutate(ctx, tableType, "reorder_columns", func(cfg *schema.TableConfig) (*schema.ColumnSpec, error) {
		if len(keys) != len(cfg.Columns) {
			return nil, fmt.Errorf("reorder lists %d keys, table has %d columns", len(keys), len(cfg.Columns))
		}
		reordered := make([]schema.ColumnSpec, 0, len(keys))
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if seen[k] {
				return nil, fmt.Errorf("Duplicate column key '%s'", k)
			}
			seen[k] = true
			col, ok := cfg.Column(k)
			if !ok {
				return nil, fmt.Errorf("column not found: %q", k)
			}
			reordered = append(reordered, col)
		}
		cfg.Columns = reordered
		return nil, nil
	})
}

type mutation func(cfg *schema.TableConfig) (*schema.ColumnSpec, error)

func (e *Engine) mutate(ctx context.Context, tableType, op string, apply mutation) (schema.TableConfig, error) {
	if !IsKnown(tableType) {
		return schema.TableConfig{}, NewEngineError(KindConfigNotFound, tableType, errors.New("unknown table type"))
	}
	if e.store == nil {
		return schema.TableConfig{}, NewEngineError(KindColumnMutationInvalid, tableType, ErrNoStore)
	}

	cfg, err := e.storedConfig(ctx, tableType)
	if err != nil {
		return schema.TableConfig{}, err
	}
	col, err := apply(&cfg)
	if err != nil {
		if issues := IssuesOf(err); len(issues) > 0 {
			return schema.TableConfig{}, e.rejectMutation(tableType, op, nil, issues...)
		}
		return schema.TableConfig{}, e.rejectMutation(tableType, op, err)
	}

	if col != nil {
		single := schema.TableConfig{Columns: []schema.ColumnSpec{*col}, Layout: cfg.Layout}
		if res := ValidateConfig(single); !res.Valid {
			return schema.TableConfig{}, e.rejectMutation(tableType, op, nil, res.Issues...)
		}
	}
	if res := ValidateConfig(cfg); !res.Valid {
		return schema.TableConfig{}, e.rejectMutation(tableType, op, nil, res.Issues...)
	}

	doc, err := schema.Encode(cfg)
	if err != nil {
		return schema.TableConfig{}, e.rejectMutation(tableType, op, err)
	}
	if err := e.store.Save(ctx, tableType, doc); err != nil {
		// The store may have applied part of the write.
		e.Invalidate(ctx, tableType)
		return schema.TableConfig{}, fmt.Errorf("save %s config: %w", tableType, err)
	}
	e.Invalidate(ctx, tableType)

	slog.Info("table config mutated",
		"table_type", tableType,
		"op", op,
		"columns", len(cfg.Columns),
		"actor", ActorFromContext(ctx),
		"ip", IPAddressFromContext(ctx),
	)
	return cfg, nil
}

// storedConfig reads the current config straight from the store, skipping
// the cache and the ErrorHandler. A repaired or default config must never be
// written back over stored columns.
func (e *Engine) storedConfig(ctx context.Context, tableType string) (schema.TableConfig, error) {
	doc, err := e.mergedDocument(ctx, tableType)
	if err != nil {
		return schema.TableConfig{}, fmt.Errorf("load %s config: %w", tableType, err)
	}
	if res := Validate(doc); !res.Valid {
		return schema.TableConfig{}, NewEngineError(KindConfigValidationFailed, tableType, nil, res.Issues...)
	}
	cfg, err := schema.Decode(doc)
	if err != nil {
		return schema.TableConfig{}, NewEngineError(KindConfigValidationFailed, tableType, err)
	}
	return cfg, nil
}

func (e *Engine) rejectMutation(tableType, op string, cause error, issues ...ValidationIssue) error {
	err := NewEngineError(KindColumnMutationInvalid, tableType, cause, issues...)
	slog.Warn("column mutation rejected",
		"table_type", tableType,
		"op", op,
		"error", err,
	)
	e.monitor.ReportFailure(string(KindColumnMutationInvalid), tableType, string(SeverityWarning), err)
	return err
}

// patchColumn overlays patch on col at the document level so that mistyped
// values surface as validation issues instead of decode errors where
// possible.
func patchColumn(col schema.ColumnSpec, patch map[string]any) (schema.ColumnSpec, error) {
	doc, err := schema.Encode(schema.TableConfig{Columns: []schema.ColumnSpec{col}})
	if err != nil {
		return schema.ColumnSpec{}, err
	}
	m := doc["columns"].([]any)[0].(map[string]any)
	for k, v := range patch {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}

	if res := Validate(schema.Document{"columns": []any{m}}); !res.Valid {
		return schema.ColumnSpec{}, NewEngineError(KindColumnMutationInvalid, "", nil, res.Issues...)
	}
	cfg, err := schema.Decode(schema.Document{"columns": []any{m}})
	if err != nil {
		return schema.ColumnSpec{}, fmt.Errorf("invalid column patch: %w", err)
	}
	return cfg.Columns[0], nil
}

func renameInMerge(rules []schema.MergeRule, from, to string) {
	for i := range rules {
		for j, k := range rules[i].Columns {
			if k == from {
				rules[i].Columns[j] = to
			}
		}
		for j, k := range rules[i].Vertical {
			if k == from {
				rules[i].Vertical[j] = to
			}
		}
	}
}
