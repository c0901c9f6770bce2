// Package strategy picks how a table of a given size should be delivered to
// the client and slices rows accordingly.
//
// Thresholds are evaluated in a fixed order: virtual scroll first, then lazy
// loading, then pagination, else a full render. Because the lazy threshold is
// below the pagination maximum in the default configuration, the pagination
// branch is only reachable when thresholds are configured otherwise.
package strategy

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind names a render strategy.
type Kind string

const (
	FullRender    Kind = "full_render"
	Pagination    Kind = "pagination"
	LazyLoading   Kind = "lazy_loading"
	VirtualScroll Kind = "virtual_scroll"
)

// Default thresholds and parameters.
const (
	DefaultLazyThreshold    = 50
	DefaultPaginateMax      = 100
	DefaultVirtualThreshold = 200
	DefaultMemoryBudget     = 128 << 20

	DefaultChunkSize   = 50
	DefaultBufferSize  = 10
	DefaultPageSize    = 100
	DefaultInitialLoad = 50
	DefaultIncrement   = 25

	// RowHeight is the estimated pixel height of one rendered row.
	RowHeight = 40
)

// Thresholds configures a Strategist. Zero values select the defaults.
type Thresholds struct {
	Lazy         int
	PaginateMax  int
	Virtual      int
	MemoryBudget int64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.Lazy <= 0 {
		t.Lazy = DefaultLazyThreshold
	}
	if t.PaginateMax <= 0 {
		t.PaginateMax = DefaultPaginateMax
	}
	if t.Virtual <= 0 {
		t.Virtual = DefaultVirtualThreshold
	}
	if t.MemoryBudget <= 0 {
		t.MemoryBudget = DefaultMemoryBudget
	}
	return t
}

// Strategy is the chosen delivery mode with its parameters. Parameters that
// do not apply to Kind are zero.
type Strategy struct {
	Kind        Kind `json:"kind"`
	RowCount    int  `json:"row_count"`
	ChunkSize   int  `json:"chunk_size,omitempty"`
	BufferSize  int  `json:"buffer_size,omitempty"`
	PageSize    int  `json:"page_size,omitempty"`
	InitialLoad int  `json:"initial_load,omitempty"`
	Increment   int  `json:"increment,omitempty"`
}

// Strategist selects strategies. It holds no mutable state.
type Strategist struct {
	th Thresholds
}

// New creates a Strategist.
func New(th Thresholds) *Strategist {
	return &Strategist{th: th.withDefaults()}
}

// Thresholds returns the effective thresholds.
func (s *Strategist) Thresholds() Thresholds {
	return s.th
}

// Choose returns the strategy for rowCount rows.
func (s *Strategist) Choose(rowCount int) Strategy {
	switch {
	case rowCount > s.th.Virtual:
		return Strategy{
			Kind:       VirtualScroll,
			RowCount:   rowCount,
			ChunkSize:  DefaultChunkSize,
			BufferSize: DefaultBufferSize,
		}
	case rowCount > s.th.Lazy:
		return Strategy{
			Kind:        LazyLoading,
			RowCount:    rowCount,
			InitialLoad: DefaultInitialLoad,
			Increment:   DefaultIncrement,
		}
	case rowCount > s.th.PaginateMax:
		return Strategy{
			Kind:     Pagination,
			RowCount: rowCount,
			PageSize: DefaultPageSize,
		}
	default:
		return Strategy{Kind: FullRender, RowCount: rowCount}
	}
}

// Chunk describes one virtual-scroll window over the rows.
type Chunk struct {
	Index  int `json:"index"`
	Start  int `json:"start"`
	End    int `json:"end"` // exclusive
	Top    int `json:"top"` // pixel offset of the first row
	Height int `json:"height"`
}

// VirtualChunks splits rowCount rows into chunks of st.ChunkSize.
func VirtualChunks(rowCount int, st Strategy) []Chunk {
	size := st.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []Chunk
	for start := 0; start < rowCount; start += size {
		end := min(start+size, rowCount)
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Start:  start,
			End:    end,
			Top:    start * RowHeight,
			Height: (end - start) * RowHeight,
		})
	}
	return chunks
}

// Viewport is the visible slice of a virtual-scroll table.
type Viewport struct {
	Start       int `json:"start"`
	End         int `json:"end"`
	TotalHeight int `json:"total_height"`
	OffsetTop   int `json:"offset_top"`
}

// VisibleRange returns the rows to render for a scroll position, padded by
// st.BufferSize rows on each side.
func VisibleRange(rowCount, scrollTop, viewportHeight int, st Strategy) Viewport {
	buf := st.BufferSize
	if buf < 0 {
		buf = 0
	}
	first := max(scrollTop/RowHeight-buf, 0)
	visible := int(math.Ceil(float64(viewportHeight) / RowHeight))
	last := min(scrollTop/RowHeight+visible+buf, rowCount)
	if first > last {
		first = last
	}
	return Viewport{
		Start:       first,
		End:         last,
		TotalHeight: rowCount * RowHeight,
		OffsetTop:   first * RowHeight,
	}
}

// LazySplit returns the initially loaded rows and the rest.
func LazySplit[T any](rows []T, st Strategy) (initial, remaining []T) {
	n := st.InitialLoad
	if n <= 0 {
		n = DefaultInitialLoad
	}
	if n >= len(rows) {
		return rows, nil
	}
	return rows[:n], rows[n:]
}

// NextBatch returns the increment of rows following offset.
func NextBatch[T any](rows []T, offset int, st Strategy) []T {
	inc := st.Increment
	if inc <= 0 {
		inc = DefaultIncrement
	}
	if offset < 0 || offset >= len(rows) {
		return nil
	}
	return rows[offset:min(offset+inc, len(rows))]
}

// Batch returns the rows served after offset for st: one increment for lazy
// loading, one chunk for virtual scroll and the remainder otherwise.
func Batch[T any](rows []T, offset int, st Strategy) []T {
	if offset < 0 || offset >= len(rows) {
		return nil
	}
	switch st.Kind {
	case LazyLoading:
		return NextBatch(rows, offset, st)
	case VirtualScroll:
		size := st.ChunkSize
		if size <= 0 {
			size = DefaultChunkSize
		}
		return rows[offset:min(offset+size, len(rows))]
	case Pagination:
		size := st.PageSize
		if size <= 0 {
			size = DefaultPageSize
		}
		return rows[offset:min(offset+size, len(rows))]
	}
	return rows[offset:]
}

// PageInfo locates a page within a paginated table.
type PageInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalRows  int  `json:"total_rows"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Offset is the index of the first row of the page.
func (p PageInfo) Offset() int {
	return min((p.Page-1)*p.PageSize, p.TotalRows)
}

// Page is one page of a paginated table.
type Page[T any] struct {
	Rows []T `json:"rows"`
	PageInfo
}

// Paginate returns the 1-based page of rows. Out-of-range pages are clamped.
func Paginate[T any](rows []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(rows)
	pages := max((total+pageSize-1)/pageSize, 1)
	page = min(max(page, 1), pages)

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return Page[T]{
		Rows: rows[start:end],
		PageInfo: PageInfo{
			Page:       page,
			PageSize:   pageSize,
			TotalRows:  total,
			TotalPages: pages,
			HasPrev:    page > 1,
			HasNext:    page < pages,
		},
	}
}

// LazyState tells a lazy-loading client where the first response ended.
type LazyState struct {
	Loaded     int `json:"loaded"`
	Remaining  int `json:"remaining"`
	NextOffset int `json:"next_offset"`
	Increment  int `json:"increment"`
}

// MemoryEstimate is an advisory projection of a table's payload size.
type MemoryEstimate struct {
	SampleBytes     int      `json:"sample_bytes"`
	EstimatedBytes  int64    `json:"estimated_bytes"`
	BudgetBytes     int64    `json:"budget_bytes"`
	ExceedsBudget   bool     `json:"exceeds_budget"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// EstimateMemory projects the JSON size of rows from its first row.
func (s *Strategist) EstimateMemory(rows []map[string]any) MemoryEstimate {
	est := MemoryEstimate{BudgetBytes: s.th.MemoryBudget}
	if len(rows) == 0 {
		return est
	}

	raw, err := json.Marshal(rows[0])
	if err != nil {
		est.Recommendations = append(est.Recommendations,
			"sample row is not serialisable; size estimate unavailable")
		return est
	}
	est.SampleBytes = len(raw)
	est.EstimatedBytes = int64(len(raw)) * int64(len(rows))

	if est.EstimatedBytes > est.BudgetBytes {
		est.ExceedsBudget = true
		est.Recommendations = append(est.Recommendations,
			fmt.Sprintf("estimated payload %s exceeds budget %s; load rows on demand",
				humanBytes(est.EstimatedBytes), humanBytes(est.BudgetBytes)))
	} else if est.EstimatedBytes > est.BudgetBytes/2 {
		est.Recommendations = append(est.Recommendations,
			fmt.Sprintf("estimated payload %s is above half of the budget", humanBytes(est.EstimatedBytes)))
	}
	if len(rows) > s.th.Virtual {
		est.Recommendations = append(est.Recommendations, "use virtual scrolling")
	}
	if est.SampleBytes > 4<<10 {
		est.Recommendations = append(est.Recommendations, "rows are wide; consider trimming unused fields")
	}
	return est
}

// Plan combines the strategy and memory estimate for rows.
type Plan struct {
	Strategy Strategy       `json:"strategy"`
	Memory   MemoryEstimate `json:"memory"`
	Chunks   []Chunk        `json:"chunks,omitempty"`
	Lazy     *LazyState     `json:"lazy,omitempty"`
	Page     *PageInfo      `json:"page,omitempty"`
}

// PlanFor chooses a strategy for rows and attaches its advisory data.
func (s *Strategist) PlanFor(rows []map[string]any) Plan {
	st := s.Choose(len(rows))
	p := Plan{
		Strategy: st,
		Memory:   s.EstimateMemory(rows),
	}
	switch st.Kind {
	case VirtualScroll:
		p.Chunks = VirtualChunks(len(rows), st)
	case LazyLoading:
		initial, rest := LazySplit(rows, st)
		p.Lazy = &LazyState{
			Loaded:     len(initial),
			Remaining:  len(rest),
			NextOffset: len(initial),
			Increment:  st.Increment,
		}
	case Pagination:
		info := Paginate(rows, 1, st.PageSize).PageInfo
		p.Page = &info
	}
	return p
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
