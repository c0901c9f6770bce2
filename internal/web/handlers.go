package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/JonMunkholm/facilitytables/internal/web/view"
)

// rowsRequest is the body of the data-driven endpoints. An empty body means
// no rows.
type rowsRequest struct {
	Rows []schema.Row `json:"rows"`
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) decodeRows(w http.ResponseWriter, r *http.Request) ([]schema.Row, bool) {
	var req rowsRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "invalid request body: "+err.Error())
		return nil, false
	}
	return req.Rows, true
}

// handleListTables lists registered table types by group.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	type group struct {
		Group  string           `json:"group"`
		Tables []core.TableInfo `json:"tables"`
	}
	groups := make([]group, 0, len(core.Groups()))
	for _, g := range core.Groups() {
		defs := core.ByGroup(g)
		infos := make([]core.TableInfo, len(defs))
		for i, def := range defs {
			infos[i] = def.Info
		}
		groups = append(groups, group{Group: g, Tables: infos})
	}
	writeJSON(w, map[string]any{
		"count":  core.TableCount(),
		"groups": groups,
	})
}

// handleSchema serves the JSON Schema of a table config document.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, schema.JSONSchema())
}

// ValidateResponse is the body of POST /api/validate.
type ValidateResponse struct {
	core.ValidationResult
	Details  []core.DetailedError `json:"details,omitempty"`
	Severity core.Severity        `json:"severity,omitempty"`
}

// handleValidate validates a config document. YAML bodies are accepted when
// the Content-Type says so.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.badRequest(w, r, "could not read request body")
		return
	}

	var doc schema.Document
	if isYAML(r.Header.Get("Content-Type")) {
		doc, err = schema.ParseYAML(body)
	} else {
		doc, err = schema.ParseJSON(body)
	}
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	result := core.Validate(doc)
	resp := ValidateResponse{ValidationResult: result}
	if !result.Valid {
		resp.Details = core.CreateDetailedErrorMessages(result.Issues, r.URL.Query().Get("table_type"))
		resp.Severity = core.HighestSeverity(resp.Details)
	}
	writeJSON(w, resp)
}

func isYAML(contentType string) bool {
	return strings.Contains(contentType, "yaml")
}

// handleGetConfig returns the effective config of a table type. It never
// fails: unknown types and broken stored documents resolve to a fallback.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	tableType := chi.URLParam(r, "tableType")
	cfg := s.engine.GetConfig(r.Context(), tableType)
	if !core.IsKnown(tableType) {
		w.Header().Set("X-Table-Fallback", "unknown-type")
	}
	writeJSON(w, cfg)
}

// handleCompile compiles a table type against row data.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.decodeRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.engine.GetConfigWithDynamicColumns(r.Context(), chi.URLParam(r, "tableType"), rows))
}

// formatRequest either formats rows against the table config or a single
// value against a column, given inline or by key.
type formatRequest struct {
	Rows      []schema.Row       `json:"rows"`
	Value     any                `json:"value"`
	Column    *schema.ColumnSpec `json:"column"`
	ColumnKey string             `json:"column_key"`
}

// handleFormat formats a single value or a set of rows.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	tableType := chi.URLParam(r, "tableType")

	if req.Column == nil && req.ColumnKey == "" {
		cfg := s.engine.GetConfig(r.Context(), tableType)
		writeJSON(w, map[string]any{"rows": s.engine.FormatTableData(req.Rows, cfg)})
		return
	}

	col := req.Column
	if col == nil {
		c, ok := s.engine.GetConfig(r.Context(), tableType).Column(req.ColumnKey)
		if !ok {
			s.respondError(w, r, core.NewEngineError(core.KindConfigNotFound, tableType,
				errors.New("column not found: "+req.ColumnKey)), http.StatusNotFound)
			return
		}
		col = &c
	}
	writeJSON(w, map[string]string{"value": s.engine.FormatValue(req.Value, *col)})
}

// handleOptimize returns formatted rows with the compiled config and the
// delivery strategy.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.decodeRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.engine.OptimizeTableData(r.Context(), chi.URLParam(r, "tableType"), rows))
}

// handleRender renders a table as an HTML fragment, or as JSON when the
// client asks for it. Rendering always succeeds; the mode header tells
// clients whether a fallback path was taken.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.decodeRows(w, r)
	if !ok {
		return
	}
	table := s.engine.Render(r.Context(), chi.URLParam(r, "tableType"), rows)

	w.Header().Set("X-Render-ID", table.ID)
	w.Header().Set("X-Render-Mode", string(table.Mode))
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, RenderResponse{
			RenderedTable:  table,
			WarningDetails: core.DetailedFromStrings(table.Warnings, table.TableType),
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Table(table).Render(r.Context(), w); err != nil {
		// Headers are sent; all we can do is log.
		s.logRenderError(r, err)
	}
}

// RenderResponse is the JSON form of a rendered table. Warnings are
// classified by severity for display.
type RenderResponse struct {
	*core.RenderedTable
	WarningDetails []core.DetailedError `json:"warning_details,omitempty"`
}

// handleRows serves the rows after the initial render: ?offset=N for lazy
// loading and virtual scroll, ?page=N for pagination. The body carries the
// full row set, as for /render.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	rows, ok := s.decodeRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.engine.RenderRows(r.Context(), chi.URLParam(r, "tableType"), rows, win))
}

func parseWindow(r *http.Request) (core.RowWindow, error) {
	var win core.RowWindow
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"offset", &win.Offset},
		{"page", &win.Page},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return core.RowWindow{}, fmt.Errorf("%s must be a non-negative integer, got %q", p.name, v)
		}
		*p.dst = n
	}
	return win, nil
}

// addColumnRequest is the body of POST /columns. A missing position appends.
type addColumnRequest struct {
	Column   schema.ColumnSpec `json:"column"`
	Position *int              `json:"position"`
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	ctx := WithRequestMetadata(r.Context(), r)
	cfg, err := s.engine.AddColumn(ctx, chi.URLParam(r, "tableType"), req.Column, position)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusCreated, cfg)
}

func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if len(patch) == 0 {
		s.badRequest(w, r, "empty column patch")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	cfg, err := s.engine.UpdateColumn(ctx, chi.URLParam(r, "tableType"), chi.URLParam(r, "key"), patch)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, cfg)
}

func (s *Server) handleRemoveColumn(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	cfg, err := s.engine.RemoveColumn(ctx, chi.URLParam(r, "tableType"), chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, cfg)
}

func (s *Server) handleReorderColumns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if len(req.Keys) == 0 {
		s.badRequest(w, r, "no column keys specified")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	cfg, err := s.engine.ReorderColumns(ctx, chi.URLParam(r, "tableType"), req.Keys)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, cfg)
}

// handleClearCache clears cached state for one table type (table_type query
// parameter or body field) or for all of them.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableType string `json:"table_type"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if q := r.URL.Query().Get("table_type"); q != "" {
		req.TableType = q
	}
	writeJSON(w, s.engine.ClearCache(r.Context(), req.TableType))
}
