package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// ConfigStore holds per-table-type configuration documents.
// Load returns ErrNoDocument (possibly wrapped) when the store has nothing
// for tableType.
type ConfigStore interface {
	Load(ctx context.Context, tableType string) (schema.Document, error)
	Save(ctx context.Context, tableType string, doc schema.Document) error
}

// Cache is a byte-oriented cache with per-entry TTLs. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	// DeletePattern removes keys matching a glob pattern. supported is false
	// when the backend cannot enumerate keys, in which case nothing is removed.
	DeletePattern(ctx context.Context, pattern string) (deleted int, supported bool, err error)
}

// Monitor receives engine failures and operational signals. All methods must
// be cheap and must not block.
type Monitor interface {
	ReportFailure(kind, tableType, severity string, err error)
	ObserveStrategy(tableType, strategy string, rows int)
	CacheHit(layer string)
	CacheMiss(layer string)
}

// Severity of a reported failure or validation issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
)

type nopMonitor struct{}

func (nopMonitor) ReportFailure(string, string, string, error) {}
func (nopMonitor) ObserveStrategy(string, string, int)         {}
func (nopMonitor) CacheHit(string)                             {}
func (nopMonitor) CacheMiss(string)                            {}

// Cache layers reported to the Monitor.
const (
	layerConfig   = "config"
	layerCompiled = "compiled"
)
