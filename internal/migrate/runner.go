package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"
)

const createLedger = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    BIGINT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Status describes one known migration and whether it has been applied.
type Status struct {
	Version   int64      `json:"version"`
	Name      string     `json:"name"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

type Runner struct {
	db         *sql.DB
	migrations []Migration
}

func NewRunner(db *sql.DB, migrations []Migration) *Runner {
	return &Runner{db: db, migrations: migrations}
}

func (r *Runner) Migrations() []Migration {
	return r.migrations
}

// lockKey serializes runners across processes for the lifetime of a migration transaction.
func lockKey() int64 {
	h := fnv.New64a()
	h.Write([]byte("schema_migrations"))

	return int64(h.Sum64())
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createLedger); err != nil {
		return fmt.Errorf("creating ledger: %w", err)
	}

	return nil
}

func (r *Runner) appliedAt(ctx context.Context) (map[int64]time.Time, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]time.Time)

	for rows.Next() {
		var (
			version int64
			at      time.Time
		)

		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}

		applied[version] = at
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applied migrations: %w", err)
	}

	return applied, nil
}

func (r *Runner) appliedSet(ctx context.Context) (map[int64]bool, error) {
	at, err := r.appliedAt(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[int64]bool, len(at))
	for v := range at {
		set[v] = true
	}

	return set, nil
}

// Up applies every pending migration in version order and returns the ones it applied.
func (r *Runner) Up(ctx context.Context) ([]Migration, error) {
	applied, err := r.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var done []Migration

	for _, m := range pending(r.migrations, applied) {
		ok, err := r.Apply(ctx, m)
		if err != nil {
			return done, err
		}

		if ok {
			done = append(done, m)
		}
	}

	return done, nil
}

// Apply runs a single migration's up script together with its ledger row.
// It reports false when another runner applied it first.
func (r *Runner) Apply(ctx context.Context, m Migration) (bool, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning migration %s: %w", m.Label(), err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey()); err != nil {
		return false, fmt.Errorf("acquiring migration lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking migration %s: %w", m.Label(), err)
	}

	if exists {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return false, fmt.Errorf("applying migration %s: %w", m.Label(), err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`,
		m.Version, m.Name,
	); err != nil {
		return false, fmt.Errorf("recording migration %s: %w", m.Label(), err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing migration %s: %w", m.Label(), err)
	}

	slog.Info("applied migration", "migration", m.Label())

	return true, nil
}

// Down rolls back the newest steps applied migrations.
func (r *Runner) Down(ctx context.Context, steps int) ([]Migration, error) {
	applied, err := r.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var done []Migration

	for _, m := range rollbackOrder(r.migrations, applied, steps) {
		if m.Down == "" {
			return done, fmt.Errorf("%s: %w", m.Label(), ErrNoRollback)
		}

		if err := r.rollback(ctx, m); err != nil {
			return done, err
		}

		done = append(done, m)
	}

	return done, nil
}

func (r *Runner) rollback(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rollback %s: %w", m.Label(), err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey()); err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, m.Down); err != nil {
		return fmt.Errorf("rolling back %s: %w", m.Label(), err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
		return fmt.Errorf("unrecording %s: %w", m.Label(), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rollback %s: %w", m.Label(), err)
	}

	slog.Info("rolled back migration", "migration", m.Label())

	return nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	applied, err := r.appliedAt(ctx)
	if err != nil {
		return nil, err
	}

	return statuses(r.migrations, applied), nil
}

func statuses(migrations []Migration, applied map[int64]time.Time) []Status {
	out := make([]Status, 0, len(migrations))

	for _, m := range migrations {
		s := Status{Version: m.Version, Name: m.Name}
		if at, ok := applied[m.Version]; ok {
			s.AppliedAt = &at
		}

		out = append(out, s)
	}

	return out
}

// Verify checks that every known migration is applied and that the
// projects table answers a select with its current columns.
func (r *Runner) Verify(ctx context.Context) error {
	applied, err := r.appliedSet(ctx)
	if err != nil {
		return err
	}

	if missing := pending(r.migrations, applied); len(missing) > 0 {
		return fmt.Errorf("%d pending migrations, first is %s", len(missing), missing[0].Label())
	}

	rows, err := r.db.QueryContext(ctx, `SELECT * FROM projects LIMIT 1`)
	if err != nil {
		return fmt.Errorf("probing projects: %w", err)
	}

	return rows.Close()
}
