package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestMemory(t *testing.T, size int) (*Memory, *time.Time) {
	t.Helper()
	m, err := NewMemory(size)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 10)

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("Get(missing) reported a hit")
	}

	value := []byte(`{"columns":[]}`)
	if err := m.Set(ctx, "table_config:basic_info", value, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value[0] = 'X'

	got, ok, err := m.Get(ctx, "table_config:basic_info")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"columns":[]}` {
		t.Errorf("Get = %s; stored value aliases caller slice", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(t, 10)

	_ = m.Set(ctx, "short", []byte("a"), time.Minute)
	_ = m.Set(ctx, "forever", []byte("b"), 0)

	*now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "short"); !ok {
		t.Error("entry expired early")
	}

	*now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Error("entry served after expiry")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl expired")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 2)

	_ = m.Set(ctx, "a", []byte("1"), 0)
	_ = m.Set(ctx, "b", []byte("2"), 0)
	_, _, _ = m.Get(ctx, "a")
	_ = m.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("least recently used entry was not evicted")
	}
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Error("recently used entry was evicted")
	}
}

func TestMemoryMany(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 10)

	err := m.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Minute)
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	got, err := m.GetMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	want := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetMany mismatch (-want +got):\n%s", diff)
	}

	if err := m.Delete(ctx, "a", "c"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("deleted key still present")
	}
}

func TestMemoryDeletePattern(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 10)

	for _, k := range []string{
		"table_config:basic_info",
		"table_config:land_info",
		"table_compiled:basic_info:f1:s1",
		"table_compiled:basic_info:f1:s2",
		"table_compiled:land_info:f2:s1",
		"other:key",
	} {
		_ = m.Set(ctx, k, []byte("x"), 0)
	}

	tests := []struct {
		pattern string
		want    int
		left    int
	}{
		{"table_compiled:basic_info:*", 2, 4},
		{"table_config:land_info", 1, 3},
		{"table_*", 2, 1},
		{"nothing*", 0, 1},
	}
	for _, tt := range tests {
		n, supported, err := m.DeletePattern(ctx, tt.pattern)
		if err != nil || !supported {
			t.Fatalf("DeletePattern(%q): supported=%v err=%v", tt.pattern, supported, err)
		}
		if n != tt.want || m.Len() != tt.left {
			t.Errorf("DeletePattern(%q) = %d (left %d), want %d (left %d)", tt.pattern, n, m.Len(), tt.want, tt.left)
		}
	}

	if _, _, err := m.DeletePattern(ctx, "table_[bad"); err == nil {
		t.Error("invalid pattern accepted")
	}
}
