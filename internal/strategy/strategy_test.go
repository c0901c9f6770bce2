package strategy

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChoose(t *testing.T) {
	s := New(Thresholds{})

	tests := []struct {
		rows int
		want Kind
	}{
		{0, FullRender},
		{10, FullRender},
		{50, FullRender},
		{51, LazyLoading},
		{70, LazyLoading},
		{80, LazyLoading},
		{150, LazyLoading},
		{200, LazyLoading},
		{201, VirtualScroll},
		{300, VirtualScroll},
	}

	for _, tt := range tests {
		got := s.Choose(tt.rows)
		if got.Kind != tt.want {
			t.Errorf("Choose(%d) = %s, want %s", tt.rows, got.Kind, tt.want)
		}
		if got.RowCount != tt.rows {
			t.Errorf("Choose(%d).RowCount = %d", tt.rows, got.RowCount)
		}
	}
}

func TestChoose_Parameters(t *testing.T) {
	s := New(Thresholds{})

	if got, want := s.Choose(300), (Strategy{Kind: VirtualScroll, RowCount: 300, ChunkSize: 50, BufferSize: 10}); got != want {
		t.Errorf("virtual: got %+v, want %+v", got, want)
	}
	if got, want := s.Choose(80), (Strategy{Kind: LazyLoading, RowCount: 80, InitialLoad: 50, Increment: 25}); got != want {
		t.Errorf("lazy: got %+v, want %+v", got, want)
	}
}

func TestChoose_PaginationNeedsCustomThresholds(t *testing.T) {
	def := New(Thresholds{})
	for n := 0; n <= 1000; n++ {
		if def.Choose(n).Kind == Pagination {
			t.Fatalf("pagination chosen for %d rows with default thresholds", n)
		}
	}

	s := New(Thresholds{Lazy: 500, PaginateMax: 100, Virtual: 1000})
	got := s.Choose(150)
	if got.Kind != Pagination || got.PageSize != DefaultPageSize {
		t.Errorf("Choose(150) = %+v, want pagination", got)
	}
}

func TestVirtualChunks(t *testing.T) {
	chunks := VirtualChunks(120, Strategy{ChunkSize: 50})
	want := []Chunk{
		{Index: 0, Start: 0, End: 50, Top: 0, Height: 2000},
		{Index: 1, Start: 50, End: 100, Top: 2000, Height: 2000},
		{Index: 2, Start: 100, End: 120, Top: 4000, Height: 800},
	}
	if diff := cmp.Diff(want, chunks); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestVisibleRange(t *testing.T) {
	vp := VisibleRange(1000, 4000, 400, Strategy{BufferSize: 10})
	want := Viewport{Start: 90, End: 120, TotalHeight: 40000, OffsetTop: 3600}
	if vp != want {
		t.Errorf("got %+v, want %+v", vp, want)
	}

	end := VisibleRange(30, 0, 4000, Strategy{BufferSize: 10})
	if end.Start != 0 || end.End != 30 {
		t.Errorf("short table viewport = %+v", end)
	}
}

func TestLazySplit(t *testing.T) {
	rows := make([]int, 80)
	for i := range rows {
		rows[i] = i
	}
	st := New(Thresholds{}).Choose(len(rows))

	initial, rest := LazySplit(rows, st)
	if len(initial) != 50 || len(rest) != 30 || rest[0] != 50 {
		t.Errorf("split = %d/%d", len(initial), len(rest))
	}

	batch := NextBatch(rows, 50, st)
	if len(batch) != 25 || batch[0] != 50 {
		t.Errorf("next batch = %v", batch)
	}
	if got := NextBatch(rows, 75, st); len(got) != 5 {
		t.Errorf("tail batch len = %d, want 5", len(got))
	}
	if got := NextBatch(rows, 80, st); got != nil {
		t.Errorf("batch past end = %v", got)
	}

	small, none := LazySplit(rows[:10], st)
	if len(small) != 10 || none != nil {
		t.Errorf("small split = %d/%v", len(small), none)
	}
}

func TestPaginate(t *testing.T) {
	rows := make([]string, 250)

	tests := []struct {
		name      string
		page      int
		wantPage  int
		wantRows  int
		wantPrev  bool
		wantNext  bool
		wantPages int
	}{
		{"first page", 1, 1, 100, false, true, 3},
		{"last partial page", 3, 3, 50, true, false, 3},
		{"page below range clamps", 0, 1, 100, false, true, 3},
		{"page above range clamps", 9, 3, 50, true, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(rows, tt.page, 100)
			if p.Page != tt.wantPage || len(p.Rows) != tt.wantRows ||
				p.HasPrev != tt.wantPrev || p.HasNext != tt.wantNext || p.TotalPages != tt.wantPages {
				t.Errorf("got %+v", p)
			}
		})
	}

	empty := Paginate([]string{}, 1, 0)
	if empty.TotalPages != 1 || len(empty.Rows) != 0 || empty.PageSize != DefaultPageSize {
		t.Errorf("empty page = %+v", empty)
	}
}

func TestEstimateMemory(t *testing.T) {
	row := map[string]any{"name": strings.Repeat("x", 100)}
	rows := make([]map[string]any, 300)
	for i := range rows {
		rows[i] = row
	}

	s := New(Thresholds{MemoryBudget: 1024})
	est := s.EstimateMemory(rows)
	if est.SampleBytes == 0 || est.EstimatedBytes != int64(est.SampleBytes)*300 {
		t.Errorf("unexpected estimate: %+v", est)
	}
	if !est.ExceedsBudget {
		t.Error("expected budget to be exceeded")
	}
	if len(est.Recommendations) < 2 {
		t.Errorf("expected recommendations, got %v", est.Recommendations)
	}

	roomy := New(Thresholds{}).EstimateMemory(rows[:5])
	if roomy.ExceedsBudget || len(roomy.Recommendations) != 0 {
		t.Errorf("small table should fit: %+v", roomy)
	}

	if none := s.EstimateMemory(nil); none.EstimatedBytes != 0 || none.BudgetBytes != 1024 {
		t.Errorf("empty estimate = %+v", none)
	}
}

func TestPlanFor(t *testing.T) {
	rows := make([]map[string]any, 250)
	for i := range rows {
		rows[i] = map[string]any{"id": i}
	}
	p := New(Thresholds{}).PlanFor(rows)
	if p.Strategy.Kind != VirtualScroll || len(p.Chunks) != 5 {
		t.Errorf("plan = %+v", p)
	}
	if p.Lazy != nil || p.Page != nil {
		t.Errorf("virtual plan carries lazy/page state: %+v", p)
	}

	lazy := New(Thresholds{}).PlanFor(rows[:80])
	want := &LazyState{Loaded: 50, Remaining: 30, NextOffset: 50, Increment: DefaultIncrement}
	if diff := cmp.Diff(want, lazy.Lazy); diff != "" {
		t.Errorf("lazy state mismatch (-want +got):\n%s", diff)
	}

	paged := New(Thresholds{Lazy: 500, PaginateMax: 100, Virtual: 1000}).PlanFor(rows)
	if paged.Strategy.Kind != Pagination || paged.Page == nil {
		t.Fatalf("plan = %+v", paged)
	}
	if paged.Page.TotalPages != 3 || !paged.Page.HasNext || paged.Page.Page != 1 {
		t.Errorf("page info = %+v", paged.Page)
	}
}

func TestBatchReachesEveryRow(t *testing.T) {
	rows := make([]int, 260)
	for i := range rows {
		rows[i] = i
	}
	tests := []struct {
		name  string
		th    Thresholds
		count int
	}{
		{"lazy loading", Thresholds{}, 80},
		{"virtual scroll", Thresholds{}, 260},
		{"pagination", Thresholds{Lazy: 500, PaginateMax: 100, Virtual: 1000}, 260},
		{"full render", Thresholds{}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rows[:tt.count]
			st := New(tt.th).Choose(len(data))
			var got []int
			for offset := 0; offset < len(data); {
				b := Batch(data, offset, st)
				if len(b) == 0 {
					t.Fatalf("empty batch at offset %d", offset)
				}
				got = append(got, b...)
				offset += len(b)
			}
			if diff := cmp.Diff(data, got); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if b := Batch(rows, len(rows), Strategy{Kind: LazyLoading}); b != nil {
		t.Errorf("batch past end = %v", b)
	}
}

func TestPageInfoOffset(t *testing.T) {
	rows := make([]string, 250)
	if got := Paginate(rows, 3, 100).Offset(); got != 200 {
		t.Errorf("offset = %d, want 200", got)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		512:       "512B",
		2048:      "2.0KiB",
		128 << 20: "128.0MiB",
	}
	for n, want := range tests {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
