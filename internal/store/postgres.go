package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// Default table names used by PGStore.
const (
	DefaultConfigTable  = "table_configs"
	DefaultHistoryTable = "table_config_history"
)

// DBTX is the subset of *pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ DBTX = (*pgxpool.Pool)(nil)

// PGOptions configures a PGStore.
type PGOptions struct {
	ConfigTable  string
	HistoryTable string // empty disables history
}

// PGStore keeps one JSONB document per table type. Every Save also appends
// the document to a history table together with the actor and IP address
// carried by the context.
type PGStore struct {
	db           DBTX
	qb           squirrel.StatementBuilderType
	configTable  string
	historyTable string
	now          func() time.Time
}

// NewPGStore creates a PGStore on db.
func NewPGStore(db DBTX, opts PGOptions) *PGStore {
	if opts.ConfigTable == "" {
		opts.ConfigTable = DefaultConfigTable
	}
	return &PGStore{
		db:           db,
		qb:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		configTable:  opts.ConfigTable,
		historyTable: opts.HistoryTable,
		now:          time.Now,
	}
}

// Migrate creates the store tables if they do not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	stmts := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		table_type TEXT PRIMARY KEY,
		document JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`, pgx.Identifier{s.configTable}.Sanitize())}
	if s.historyTable != "" {
		h := pgx.Identifier{s.historyTable}.Sanitize()
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		table_type TEXT NOT NULL,
		document JSONB NOT NULL,
		actor TEXT NOT NULL,
		ip_address TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`, h),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (table_type, created_at DESC)`,
				pgx.Identifier{s.historyTable + "_type_idx"}.Sanitize(), h),
		)
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate config store: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context, tableType string) (schema.Document, error) {
	query, args, err := s.qb.Select("document").
		From(s.configTable).
		Where(squirrel.Eq{"table_type": tableType}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}

	var raw []byte
	err = s.db.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", tableType, core.ErrNoDocument)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", tableType, err)
	}
	return schema.ParseJSON(raw)
}

func (s *PGStore) Save(ctx context.Context, tableType string, doc schema.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", tableType, err)
	}
	now := s.now().UTC()

	query, args, err := s.qb.Insert(s.configTable).
		Columns("table_type", "document", "updated_at").
		Values(tableType, string(raw), now).
		Suffix("ON CONFLICT (table_type) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build save query: %w", err)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", tableType, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s: %w", tableType, err)
	}

	if s.historyTable != "" {
		var ip any
		if v := core.IPAddressFromContext(ctx); v != "" {
			ip = v
		}
		query, args, err = s.qb.Insert(s.historyTable).
			Columns("id", "table_type", "document", "actor", "ip_address", "created_at").
			Values(uuid.NewString(), tableType, string(raw), core.ActorFromContext(ctx), ip, now).
			ToSql()
		if err != nil {
			return fmt.Errorf("build history query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("record history for %s: %w", tableType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save %s: %w", tableType, err)
	}
	return nil
}

// Types lists the table types with a stored document, sorted.
func (s *PGStore) Types(ctx context.Context) ([]string, error) {
	query, args, err := s.qb.Select("table_type").
		From(s.configTable).
		OrderBy("table_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build types query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list table types: %w", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan table types: %w", err)
	}
	return types, nil
}

// Revision is one saved version of a table config.
type Revision struct {
	ID        string          `json:"id"`
	TableType string          `json:"tableType"`
	Document  schema.Document `json:"document"`
	Actor     string          `json:"actor"`
	IPAddress string          `json:"ipAddress,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// History returns up to limit saved revisions of tableType, newest first.
func (s *PGStore) History(ctx context.Context, tableType string, limit int) ([]Revision, error) {
	if s.historyTable == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	query, args, err := s.qb.Select("id", "table_type", "document", "actor", "COALESCE(ip_address, '')", "created_at").
		From(s.historyTable).
		Where(squirrel.Eq{"table_type": tableType}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", tableType, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			rev Revision
			raw []byte
		)
		if err := rows.Scan(&rev.ID, &rev.TableType, &raw, &rev.Actor, &rev.IPAddress, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if rev.Document, err = schema.ParseJSON(raw); err != nil {
			return nil, fmt.Errorf("revision %s: %w", rev.ID, err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}
