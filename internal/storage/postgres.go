package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"content-targeting-engine/internal/config"
	"content-targeting-engine/internal/engine"
	"content-targeting-engine/internal/glossary"
)

//go:embed schema.sql
var schema string

// Store reads targeting content from Postgres. Queries go through database/sql
// on top of the pgx pool; the pool itself is kept for LISTEN.
type Store struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// NewWithDB wraps an existing database handle. LISTEN is unavailable.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const (
	rulesQuery = `
		SELECT id, kind, definition
		FROM targeting_rules
		ORDER BY position, id`
	contentQuery = `
		SELECT id, definition
		FROM content_items
		ORDER BY position, id`
	tagsQuery = `
		SELECT id, name, color, description
		FROM content_tags
		ORDER BY id`
	glossaryQuery = `
		SELECT id, definition
		FROM wiki_entries
		ORDER BY position, id`
)

// LoadBundle reads every rule, tag rule, content item, tag and glossary entry
// in one read-only transaction. Rows come back in a stable order so that
// trigger collisions in the glossary resolve the same way on every rebuild.
func (s *Store) LoadBundle(ctx context.Context) (engine.Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return engine.Bundle{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var b engine.Bundle
	if err := loadRules(ctx, tx, &b); err != nil {
		return engine.Bundle{}, err
	}
	if b.RecommendedContent, err = loadDefinitions(ctx, tx, contentQuery, func(id string, c *engine.ContentItem) { c.ID = id }); err != nil {
		return engine.Bundle{}, fmt.Errorf("content: %w", err)
	}
	if b.ContentTags, err = loadTags(ctx, tx); err != nil {
		return engine.Bundle{}, err
	}
	if b.Glossary, err = loadDefinitions(ctx, tx, glossaryQuery, func(id string, e *glossary.Entry) { e.ID = id }); err != nil {
		return engine.Bundle{}, fmt.Errorf("glossary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return engine.Bundle{}, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

func loadRules(ctx context.Context, tx *sql.Tx, b *engine.Bundle) error {
	rows, err := tx.QueryContext(ctx, rulesQuery)
	if err != nil {
		return fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, kind string
			def      []byte
		)
		if err := rows.Scan(&id, &kind, &def); err != nil {
			return fmt.Errorf("scan rule: %w", err)
		}
		switch kind {
		case engine.KindTagRule:
			var tr engine.TagRule
			if err := json.Unmarshal(def, &tr); err != nil {
				return fmt.Errorf("decode tag rule %s: %w", id, err)
			}
			tr.ID = id
			b.TagRules = append(b.TagRules, tr)
		case engine.KindBanner, engine.KindPlay:
			var r engine.Rule
			if err := json.Unmarshal(def, &r); err != nil {
				return fmt.Errorf("decode %s %s: %w", kind, id, err)
			}
			r.ID, r.Kind = id, kind
			if kind == engine.KindBanner {
				b.Banners = append(b.Banners, r)
			} else {
				b.Plays = append(b.Plays, r)
			}
		default:
			return fmt.Errorf("rule %s: unknown kind %q", id, kind)
		}
	}
	return rows.Err()
}

func loadDefinitions[T any](ctx context.Context, tx *sql.Tx, query string, setID func(string, *T)) ([]T, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var (
			id  string
			def []byte
		)
		if err := rows.Scan(&id, &def); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var v T
		if err := json.Unmarshal(def, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		setID(id, &v)
		out = append(out, v)
	}
	return out, rows.Err()
}

func loadTags(ctx context.Context, tx *sql.Tx) ([]engine.Tag, error) {
	rows, err := tx.QueryContext(ctx, tagsQuery)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []engine.Tag
	for rows.Next() {
		var (
			t           engine.Tag
			color, desc sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &color, &desc); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		t.Color, t.Description = color.String, desc.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// PgxPool is the pool LISTEN connections are acquired from.
func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
