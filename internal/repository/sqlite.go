package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/entity"
)

// schemaVersion is bumped whenever migrate learns a new step.
const schemaVersion = 1

// SqliteStore is the default LedgerStore backend: a single append-only table
// in a local sqlite file.
type SqliteStore struct {
	db     *sql.DB
	cfg    common.StoreConfig
	fields FieldSet
	logger *slog.Logger
}

// OpenSqlite opens (creating if needed) the sqlite-backed ledger, runs the
// versioned migration, and performs the one-time self-heal pass over
// existing rows.
func OpenSqlite(ctx context.Context, cfg common.StoreConfig, fields FieldSet, logger *slog.Logger) (*SqliteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening ledger store", "backend", "sqlite", "dsn", cfg.DSN)

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection sidesteps most writer-vs-writer lock churn; the
	// busy retry below covers cross-process contention
	db.SetMaxOpenConns(1)

	s := &SqliteStore{db: db, cfg: cfg, fields: fields, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.heal(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	s.logger.Info("migrating ledger schema", "from", version, "to", schemaVersion)
	const ddl = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'ACTIVE',
	entry_date     TEXT NOT NULL,
	revenue        TEXT NOT NULL DEFAULT '{}',
	cost           TEXT NOT NULL DEFAULT '{}',
	odometer_start INTEGER NOT NULL DEFAULT 0,
	odometer_end   INTEGER NOT NULL DEFAULT 0,
	note           TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_owner_date ON ledger_entries(owner_id, entry_date);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// heal backfills missing fields in already-persisted rows and writes the
// corrected rows back once. Runs at open time only, never on the read path.
func (s *SqliteStore) heal(ctx context.Context) error {
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
		_, err = s.db.ExecContext(ctx,
			"UPDATE ledger_entries SET status = ?, revenue = ?, cost = ? WHERE id = ?",
			string(e.Status), revenue, cost, e.ID.String())
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

// Append inserts a new row. Busy/locked errors are retried within the
// configured budget; anything left over surfaces as ErrWriteExhausted.
func (s *SqliteStore) Append(ctx context.Context, e *entity.LedgerEntry) error {
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

	return retryAppend(ctx, s.cfg, s.logger, sqliteBusy, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO ledger_entries
	(id, owner_id, status, entry_date, revenue, cost, odometer_start, odometer_end, note, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID.String(),
			common.NormalizeOwnerID(e.OwnerID),
			string(e.Status),
			e.Date.Format(dateLayout),
			revenue,
			cost,
			e.OdometerStart,
			e.OdometerEnd,
			e.Note,
			e.CreatedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
}

// List returns the owner's entries, oldest first. Trashed rows are excluded
// unless the query asks for them.
func (s *SqliteStore) List(ctx context.Context, q Query) ([]*entity.LedgerEntry, error) {
	owner := common.NormalizeOwnerID(q.OwnerID)
	if owner == "" {
		return nil, common.NewAppError("STORE_LIST", "owner id is required", common.ErrInvalidInput)
	}

	query := "SELECT id, owner_id, status, entry_date, revenue, cost, odometer_start, odometer_end, note, created_at FROM ledger_entries WHERE owner_id = ?"
	args := []any{owner}
	if !q.IncludeTrashed {
		query += " AND status = ?"
		args = append(args, string(constants.StatusActive))
	}
	if q.From != nil {
		query += " AND entry_date >= ?"
		args = append(args, q.From.Format(dateLayout))
	}
	if q.To != nil {
		query += " AND entry_date <= ?"
		args = append(args, q.To.Format(dateLayout))
	}
	query += " ORDER BY entry_date, created_at"

	return s.scan(ctx, query, args...)
}

// Trash soft-deletes an entry. The transition is one-way and idempotent:
// trashing a Trashed row is a no-op, nothing ever goes back to Active.
func (s *SqliteStore) Trash(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ledger_entries SET status = ? WHERE id = ?",
		string(constants.StatusTrashed), id.String())
	if err != nil {
		return fmt.Errorf("trash entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("STORE_TRASH", "entry "+id.String(), common.ErrNotFound)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) scan(ctx context.Context, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		var (
			e         entity.LedgerEntry
			idStr     string
			status    string
			date      string
			revenue   string
			cost      string
			createdAt string
		)
		if err := rows.Scan(&idStr, &e.OwnerID, &status, &date, &revenue, &cost,
			&e.OdometerStart, &e.OdometerEnd, &e.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if e.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("bad id in ledger row: %w", err)
		}
		e.Status = constants.EntryStatus(status)
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("bad date in ledger row %s: %w", idStr, err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("bad created_at in ledger row %s: %w", idStr, err)
		}
		if e.Revenue, err = decodeFields(revenue); err != nil {
			return nil, fmt.Errorf("ledger row %s: %w", idStr, err)
		}
		if e.Cost, err = decodeFields(cost); err != nil {
			return nil, fmt.Errorf("ledger row %s: %w", idStr, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func sqliteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
