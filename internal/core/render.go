package core

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/JonMunkholm/facilitytables/internal/format"
	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/JonMunkholm/facilitytables/internal/strategy"
	"github.com/google/uuid"
)

// RenderMode records which path of the render chain produced a table.
type RenderMode string

const (
	RenderPrimary RenderMode = "primary"
	RenderLegacy  RenderMode = "legacy"
	RenderMinimal RenderMode = "minimal"
)

// RenderedTable is a fully formatted table ready for a presentation layer.
// Cell values are HTML-escaped.
type RenderedTable struct {
	ID        string                `json:"id"`
	TableType string                `json:"table_type"`
	Mode      RenderMode            `json:"mode"`
	Config    schema.CompiledConfig `json:"config"`
	Headers   format.HeaderTree     `json:"headers"`
	Rows      []format.FormattedRow `json:"rows"`
	TotalRows int                   `json:"total_rows"`
	Strategy  strategy.Plan         `json:"strategy"`
	Warnings  []string              `json:"warnings,omitempty"`
	Notice    string                `json:"notice,omitempty"`
}

func escape(s string) string {
	return html.EscapeString(s)
}

// OptimizedTable is formatted data with the compiled config and delivery
// plan chosen for it.
type OptimizedTable struct {
	Data     []format.FormattedRow `json:"data"`
	Config   schema.CompiledConfig `json:"config"`
	Strategy strategy.Plan         `json:"strategy"`
}

// OptimizeTableData compiles the config for rows, formats every row and
// attaches the delivery strategy. Merge rules are applied when cell merging
// is enabled.
func (e *Engine) OptimizeTableData(ctx context.Context, tableType string, rows []schema.Row) OptimizedTable {
	cfg := e.CompileWithData(ctx, tableType, rows)
	data := e.formatter.FormatTableData(rows, cfg.TableConfig)
	if cfg.Features.CellMerge && len(cfg.Merge) > 0 {
		data = format.ApplyMerges(data, cfg.Merge)
	}
	plan := e.strategist.PlanFor(rows)
	e.monitor.ObserveStrategy(tableType, string(plan.Strategy.Kind), len(rows))
	return OptimizedTable{Data: data, Config: cfg, Strategy: plan}
}

// Render produces a table for rows. It never fails: a failing primary render
// falls back to the legacy render and then to the minimal table.
func (e *Engine) Render(ctx context.Context, tableType string, rows []schema.Row) *RenderedTable {
	t, err := e.renderPrimary(ctx, tableType, rows)
	if err != nil {
		t = e.handler.HandleRenderError(ctx, tableType, rows, err, func() (*RenderedTable, error) {
			return e.renderLegacy(tableType, rows)
		})
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	slog.Debug("table rendered",
		"table_type", tableType,
		"render_id", t.ID,
		"mode", t.Mode,
		"rows", t.TotalRows,
		"strategy", t.Strategy.Strategy.Kind,
	)
	return t
}

func (e *Engine) renderPrimary(ctx context.Context, tableType string, rows []schema.Row) (t *RenderedTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, NewEngineError(KindRenderFailed, tableType, fmt.Errorf("render panic: %v", r))
		}
	}()

	cfg, err := e.compile(ctx, tableType, rows)
	if err != nil {
		return nil, err
	}
	if len(cfg.Columns) == 0 {
		return nil, NewEngineError(KindRenderFailed, tableType, errors.New("no visible columns"))
	}

	plan := e.strategist.PlanFor(rows)
	e.monitor.ObserveStrategy(tableType, string(plan.Strategy.Kind), len(rows))

	data := e.formatter.FormatTableData(visibleSlice(rows, plan.Strategy), cfg.TableConfig)
	if cfg.Features.CellMerge && len(cfg.Merge) > 0 {
		data = format.ApplyMerges(data, cfg.Merge)
	}
	if err := checkStructure(data, len(cfg.Columns)); err != nil {
		return nil, NewEngineError(KindRenderFailed, tableType, err)
	}

	t = &RenderedTable{
		ID:        uuid.NewString(),
		TableType: tableType,
		Mode:      RenderPrimary,
		Config:    cfg,
		Headers:   format.BuildHeaderTree(cfg.Columns),
		Rows:      data,
		TotalRows: len(rows),
		Strategy:  plan,
	}
	for _, key := range cfg.FilteredColumns {
		t.Warnings = append(t.Warnings, fmt.Sprintf("column %q hidden by its show condition", key))
	}
	t.Warnings = append(t.Warnings, plan.Memory.Recommendations...)
	return t, nil
}

// renderLegacy formats rows against the type default without compiling:
// no inference, filtering, width optimization or merging.
func (e *Engine) renderLegacy(tableType string, rows []schema.Row) (t *RenderedTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("legacy render panic: %v", r)
		}
	}()

	cfg, err := e.defaults.DefaultConfig(tableType)
	if err != nil {
		return nil, err
	}
	if len(cfg.Columns) == 0 {
		return nil, errors.New("default config has no columns")
	}

	st := strategy.Strategy{Kind: strategy.FullRender, RowCount: len(rows)}
	return &RenderedTable{
		ID:        uuid.NewString(),
		TableType: tableType,
		Mode:      RenderLegacy,
		Config:    schema.CompiledConfig{TableConfig: cfg, TableType: tableType, ShapeHash: ShapeHash(rows)},
		Headers:   format.BuildHeaderTree(cfg.Columns),
		Rows:      e.formatter.FormatTableData(rows, cfg),
		TotalRows: len(rows),
		Strategy:  strategy.Plan{Strategy: st},
	}, nil
}

// RowWindow selects the rows of a follow-up request after the initial
// render. Page, when positive, takes precedence over Offset.
type RowWindow struct {
	Offset int
	Page   int
}

// RowBatch is a window of formatted rows delivered after the initial render.
// Row indexes are absolute.
type RowBatch struct {
	TableType  string                `json:"table_type"`
	Rows       []format.FormattedRow `json:"rows"`
	Offset     int                   `json:"offset"`
	NextOffset int                   `json:"next_offset"`
	HasMore    bool                  `json:"has_more"`
	TotalRows  int                   `json:"total_rows"`
	Strategy   strategy.Strategy     `json:"strategy"`
	Page       *strategy.PageInfo    `json:"page,omitempty"`
}

// RenderRows formats the rows in win using the config compiled for the full
// row set, so batches line up with the initial render.
func (e *Engine) RenderRows(ctx context.Context, tableType string, rows []schema.Row, win RowWindow) RowBatch {
	cfg := e.CompileWithData(ctx, tableType, rows)
	st := e.strategist.Choose(len(rows))
	b := RowBatch{TableType: tableType, TotalRows: len(rows), Strategy: st}

	var slice []schema.Row
	if win.Page > 0 {
		p := strategy.Paginate(rows, win.Page, st.PageSize)
		slice, b.Offset = p.Rows, p.Offset()
		b.Page = &p.PageInfo
	} else {
		slice, b.Offset = strategy.Batch(rows, win.Offset, st), max(win.Offset, 0)
	}

	data := e.formatter.FormatTableData(slice, cfg.TableConfig)
	if cfg.Features.CellMerge && len(cfg.Merge) > 0 {
		data = format.ApplyMerges(data, cfg.Merge)
	}
	for i := range data {
		data[i].Index += b.Offset
	}
	b.Rows = data
	b.NextOffset = min(b.Offset+len(slice), len(rows))
	b.HasMore = b.NextOffset < len(rows)
	return b
}

// visibleSlice returns the rows delivered with the first response for st.
func visibleSlice(rows []schema.Row, st strategy.Strategy) []schema.Row {
	switch st.Kind {
	case strategy.LazyLoading:
		initial, _ := strategy.LazySplit(rows, st)
		return initial
	case strategy.VirtualScroll:
		vp := strategy.VisibleRange(len(rows), 0, st.ChunkSize*strategy.RowHeight, st)
		return rows[vp.Start:vp.End]
	case strategy.Pagination:
		return strategy.Paginate(rows, 1, st.PageSize).Rows
	}
	return rows
}

func checkStructure(rows []format.FormattedRow, columns int) error {
	for _, row := range rows {
		if len(row.Cells) != columns {
			return fmt.Errorf("row %d has %d cells, want %d", row.Index, len(row.Cells), columns)
		}
	}
	return nil
}
