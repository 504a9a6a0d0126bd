package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/teslashibe/go-focus/pkg/persist"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres stores records in PostgreSQL.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects to dsn and waits for the database to answer.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres connected", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &Postgres{pool: pool, logger: logger}, nil
}

// ping waits for the database to be ready, backing off between attempts.
func ping(ctx context.Context, pool *pgxpool.Pool) error {
	var err error
	for attempt := 1; attempt <= 10; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("ping timeout: %w", err)
}

// Migrate applies the embedded schema migrations to dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Insert writes one record.
func (p *Postgres) Insert(ctx context.Context, r persist.Record) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO focus_records (id, subject_id, area_id, is_focused, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.SubjectID, r.AreaID, r.IsFocused, r.Confidence, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert focus record: %w", err)
	}
	return nil
}

// ResolveArea returns the subject's default area, creating it if absent.
func (p *Postgres) ResolveArea(ctx context.Context, subjectID string) (string, error) {
	var id string
	err := p.pool.QueryRow(ctx,
		`INSERT INTO focus_areas (id, subject_id, name, is_default)
		 VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (subject_id) WHERE is_default
		 DO UPDATE SET subject_id = EXCLUDED.subject_id
		 RETURNING id::text`,
		uuid.NewString(), subjectID, DefaultAreaName).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("resolve area: %w", err)
	}
	return id, nil
}

// Records returns the subject's most recent records.
func (p *Postgres) Records(ctx context.Context, subjectID string, limit int) ([]persist.Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id::text, subject_id, area_id::text, is_focused, confidence, created_at
		 FROM focus_records WHERE subject_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []persist.Record
	for rows.Next() {
		var r persist.Record
		if err := rows.Scan(&r.ID, &r.SubjectID, &r.AreaID, &r.IsFocused, &r.Confidence, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ Store = (*Postgres)(nil)
