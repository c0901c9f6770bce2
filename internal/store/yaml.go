package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

const yamlExt = ".yaml"

// DefaultDebounce groups bursts of file events (editors often write a file
// several times on save) into a single change notification.
const DefaultDebounce = 200 * time.Millisecond

// YAMLStore is a ConfigStore reading one <table_type>.yaml file per table from a
// directory.
type YAMLStore struct {
	dir string

	mu sync.Mutex // serialises writes
}

// NewYAMLStore creates a YAML store rooted at dir. The directory is created if it
// does not exist.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if dir == "" {
		return nil, errors.New("yaml store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("yaml store: create %s: %w", dir, err)
	}
	return &YAMLStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *YAMLStore) Dir() string { return s.dir }

func (s *YAMLStore) path(tableType string) (string, error) {
	if tableType == "" || strings.ContainsAny(tableType, `/\`) || strings.HasPrefix(tableType, ".") {
		return "", fmt.Errorf("yaml store: invalid table type %q", tableType)
	}
	return filepath.Join(s.dir, tableType+yamlExt), nil
}

func (s *YAMLStore) Load(_ context.Context, tableType string) (schema.Document, error) {
	p, err := s.path(tableType)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", tableType, core.ErrNoDocument)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	doc, err := schema.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return doc, nil
}

// Save writes doc to <table_type>.yaml via a temp file and rename, so
// watchers never observe a half-written file.
func (s *YAMLStore) Save(_ context.Context, tableType string, doc schema.Document) error {
	p, err := s.path(tableType)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", tableType, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+tableType+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename into %s: %w", p, err)
	}
	return nil
}

// Types lists the table types with a file in the directory, sorted.
func (s *YAMLStore) Types(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	var out []string
	for _, e := range entries {
		if t, ok := tableTypeOf(e.Name()); ok && !e.IsDir() {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

func tableTypeOf(name string) (string, bool) {
	name = filepath.Base(name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, yamlExt) {
		return "", false
	}
	return strings.TrimSuffix(name, yamlExt), true
}

// Watch calls onChange with the table type of every YAML file that is
// created, written, removed or renamed in the store directory, until ctx is
// cancelled. Events for the same file within debounce are coalesced; a
// debounce <= 0 uses DefaultDebounce.
func (s *YAMLStore) Watch(ctx context.Context, debounce time.Duration, onChange func(tableType string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go func() {
		defer w.Close()

		pending := make(map[string]struct{})
		timer := time.NewTimer(debounce)
		timer.Stop()

		mask := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if evt.Op&mask == 0 {
					continue
				}
				t, ok := tableTypeOf(evt.Name)
				if !ok {
					continue
				}
				slog.Debug("config file event", "event", evt.String(), "table_type", t)
				pending[t] = struct{}{}
				timer.Reset(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "dir", s.dir, "error", err)
			case <-timer.C:
				for t := range pending {
					onChange(t)
				}
				clear(pending)
			}
		}
	}()
	return nil
}
