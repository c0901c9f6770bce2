package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// TableInfo contains display information about a table type.
type TableInfo struct {
	Key         string `json:"key"`   // Unique identifier: "basic_info"
	Group       string `json:"group"` // Screen the table belongs to: "facility", "land"
	Label       string `json:"label"` // Display name: "基本情報"
	Description string `json:"description,omitempty"`
}

// TableDefinition registers a table type and its built-in defaults.
type TableDefinition struct {
	Info TableInfo

	// Defaults builds a fresh default config. It is called on every fallback,
	// so it must not share slices or maps between calls.
	Defaults func() schema.TableConfig
}

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same key is already registered.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	if def.Defaults == nil {
		panic(fmt.Sprintf("table %s registered without defaults", def.Info.Key))
	}

	registry[def.Info.Key] = def
}

// Get returns a table definition by key.
// Returns false if not found.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// IsKnown reports whether tableType is a registered table type.
func IsKnown(tableType string) bool {
	_, ok := Get(tableType)
	return ok
}

// All returns all registered table definitions.
// Sorted by group then by key for consistent ordering.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByGroup returns all table definitions for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group string) []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []TableDefinition
	for _, def := range registry {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}

// DefaultConfigProvider supplies the built-in config for a table type. One
// provider is shared by the engine and its ErrorHandler.
type DefaultConfigProvider interface {
	DefaultConfig(tableType string) (schema.TableConfig, error)
}

// DefaultConfigFunc adapts a function to DefaultConfigProvider.
type DefaultConfigFunc func(tableType string) (schema.TableConfig, error)

// DefaultConfig calls f(tableType).
func (f DefaultConfigFunc) DefaultConfig(tableType string) (schema.TableConfig, error) {
	return f(tableType)
}

// RegistryDefaults serves defaults from the table registry.
var RegistryDefaults DefaultConfigProvider = DefaultConfigFunc(registryDefault)

func registryDefault(tableType string) (cfg schema.TableConfig, err error) {
	def, ok := Get(tableType)
	if !ok {
		return schema.TableConfig{}, NewEngineError(KindConfigNotFound, tableType, fmt.Errorf("unknown table type"))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("building defaults for %s: %v", tableType, r)
		}
	}()
	return def.Defaults(), nil
}
