package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/fatih/color"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "basic_info.yaml", `
columns:
  - key: facility_name
    label: 施設名
    type: text
`)
	invalid := writeFile(t, dir, "broken.json", `{"columns":[{"key":"kind","label":"種別","type":"select"}]}`)

	tests := []struct {
		name    string
		file    string
		wantErr error
		want    []string
	}{
		{"valid yaml", valid, nil, []string{"✓", "basic_info.yaml"}},
		{"select without options", invalid, errInvalid, []string{"✗", "1 issue(s)", "[error]", "hint:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "validate", tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestValidateUnreadable(t *testing.T) {
	if _, err := run(t, "validate", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRenderTable(t *testing.T) {
	rows := writeFile(t, t.TempDir(), "rows.json",
		`[{"facility_name":"ひまわり <本館>","facility_type":"group_home"}]`)

	out, err := run(t, "render", "basic_info", "--rows", rows)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, s := range []string{"basic_info", "mode=primary", "施設名", "ひまわり <本館>", "グループホーム"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestRenderJSONUsesStoredConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "basic_info.yaml", `
columns:
  - key: facility_name
    label: 名称
    type: text
`)
	rows := writeFile(t, t.TempDir(), "rows.json", `[{"facility_name":"A"}]`)

	out, err := run(t, "render", "basic_info", "--rows", rows, "--config-dir", dir, "-o", "json")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var got core.RenderedTable
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Mode != core.RenderPrimary {
		t.Errorf("mode = %q, want primary", got.Mode)
	}
	if got.ID == "" {
		t.Error("render id not set")
	}
	var label string
	for _, col := range got.Config.Columns {
		if col.Key == "facility_name" {
			label = col.Label
		}
	}
	if label != "名称" {
		t.Errorf("facility_name label = %q, want stored override", label)
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := run(t, "render", "basic_info", "-o", "html")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `data-table-type="basic_info"`) {
		t.Errorf("html output missing table type attribute:\n%s", out)
	}
}

func TestRenderBadOutput(t *testing.T) {
	if _, err := run(t, "render", "basic_info", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown output")
	}
}

func TestStrategy(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"strategy", "10"}, "full_render"},
		{[]string{"strategy", "80"}, "lazy_loading"},
		{[]string{"strategy", "500"}, "virtual_scroll"},
		{[]string{"strategy", "80", "--lazy-threshold", "100"}, "full_render"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("strategy: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}

	if _, err := run(t, "strategy", "-3"); err == nil {
		t.Error("expected error for negative row count")
	}
}

func TestStrategyFromEnv(t *testing.T) {
	t.Setenv("TABLECTL_LAZY_THRESHOLD", "100")
	out, err := run(t, "strategy", "80")
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	if !strings.Contains(out, "full_render") {
		t.Errorf("env threshold ignored:\n%s", out)
	}
}

func TestSchemaAndTypes(t *testing.T) {
	out, err := run(t, "schema")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("schema output is not JSON: %v", err)
	}

	out, err = run(t, "types")
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	for _, s := range []string{"basic_info", "基本情報", "repair_history"} {
		if !strings.Contains(out, s) {
			t.Errorf("types output missing %q:\n%s", s, out)
		}
	}
}
