package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/entity"
)

// PostgresStore is the pgx-backed LedgerStore, for setups where several
// devices share one ledger database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	cfg    common.StoreConfig
	fields FieldSet
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool, ensures the schema, and runs the one-time
// self-heal pass.
func OpenPostgres(ctx context.Context, cfg common.StoreConfig, fields FieldSet, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening ledger store", "backend", "postgres")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse postgres dsn", "error", err)
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "shiftledger"

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	s := &PostgresStore{pool: pool, cfg: cfg, fields: fields, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.heal(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id             UUID PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'ACTIVE',
	entry_date     DATE NOT NULL,
	revenue        JSONB NOT NULL DEFAULT '{}',
	cost           JSONB NOT NULL DEFAULT '{}',
	odometer_start INTEGER NOT NULL DEFAULT 0,
	odometer_end   INTEGER NOT NULL DEFAULT 0,
	note           TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_owner_date ON ledger_entries(owner_id, entry_date);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) heal(ctx context.Context) error {
	entries, err := s.scan(ctx, "SELECT id, owner_id, status, entry_date, revenue, cost, odometer_start, odometer_end, note, created_at FROM ledger_entries")
	if err != nil {
		return err
	}

	healed := 0
	for _, e := range entries {
		if !backfillEntry(e, s.fields) {
			continue
		}
		revenue, err := encodeFields(e.Revenue)
		if err != nil {
			return err
		}
		cost, err := encodeFields(e.Cost)
		if err != nil {
			return err
		}
		_, err = s.pool.Exec(ctx,
			"UPDATE ledger_entries SET status = $1, revenue = $2, cost = $3 WHERE id = $4",
			string(e.Status), revenue, cost, e.ID)
		if err != nil {
			return fmt.Errorf("heal row %s: %w", e.ID, err)
		}
		healed++
	}
	if healed > 0 {
		s.logger.Info("backfilled ledger rows", "count", healed)
	}
	return nil
}

// Append inserts a new row, retrying serialization/deadlock failures within
// the configured budget.
func (s *PostgresStore) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	revenue, err := encodeFields(e.Revenue)
	if err != nil {
		return err
	}
	cost, err := encodeFields(e.Cost)
	if err != nil {
		return err
	}

	return retryAppend(ctx, s.cfg, s.logger, pgRetryable, func() error {
		_, err := s.pool.Exec(ctx, `
INSERT INTO ledger_entries
	(id, owner_id, status, entry_date, revenue, cost, odometer_start, odometer_end, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID,
			common.NormalizeOwnerID(e.OwnerID),
			string(e.Status),
			e.Date,
			revenue,
			cost,
			e.OdometerStart,
			e.OdometerEnd,
			e.Note,
			e.CreatedAt.UTC(),
		)
		return err
	})
}

func (s *PostgresStore) List(ctx context.Context, q Query) ([]*entity.LedgerEntry, error) {
	owner := common.NormalizeOwnerID(q.OwnerID)
	if owner == "" {
		return nil, common.NewAppError("STORE_LIST", "owner id is required", common.ErrInvalidInput)
	}

	query := "SELECT id, owner_id, status, entry_date, revenue, cost, odometer_start, odometer_end, note, created_at FROM ledger_entries WHERE owner_id = $1"
	args := []any{owner}
	if !q.IncludeTrashed {
		args = append(args, string(constants.StatusActive))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if q.From != nil {
		args = append(args, *q.From)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if q.To != nil {
		args = append(args, *q.To)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	query += " ORDER BY entry_date, created_at"

	return s.scan(ctx, query, args...)
}

func (s *PostgresStore) Trash(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE ledger_entries SET status = $1 WHERE id = $2",
		string(constants.StatusTrashed), id)
	if err != nil {
		return fmt.Errorf("trash entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("STORE_TRASH", "entry "+id.String(), common.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) scan(ctx context.Context, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		var (
			e       entity.LedgerEntry
			status  string
			date    time.Time
			revenue string
			cost    string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &status, &date, &revenue, &cost,
			&e.OdometerStart, &e.OdometerEnd, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Status = constants.EntryStatus(status)
		e.Date = date
		if e.Revenue, err = decodeFields(revenue); err != nil {
			return nil, fmt.Errorf("ledger row %s: %w", e.ID, err)
		}
		if e.Cost, err = decodeFields(cost); err != nil {
			return nil, fmt.Errorf("ledger row %s: %w", e.ID, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// pgRetryable reports whether an append error is worth retrying:
// serialization failures, deadlocks, and transient connection drops.
func pgRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization, deadlock, lock not available
			return true
		}
	}
	return pgconn.SafeToRetry(err)
}
