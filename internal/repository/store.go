package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/entity"
)

// Store errors surfaced to callers.
var (
	// ErrWriteExhausted means an append kept failing after the bounded
	// retry budget. The caller may retry the whole commit.
	ErrWriteExhausted = errors.New("ledger write retries exhausted")
)

// Query filters the read path. The zero value lists nothing useful: OwnerID
// is always required because the ledger is shared between owners.
type Query struct {
	OwnerID        string
	From, To       *time.Time // inclusive date bounds, nil = open
	IncludeTrashed bool
}

// LedgerStore is the append-only shift ledger. Commit always adds a new row;
// the only supported mutation of an existing row is the soft-delete
// transition Active -> Trashed.
type LedgerStore interface {
	Append(ctx context.Context, e *entity.LedgerEntry) error
	List(ctx context.Context, q Query) ([]*entity.LedgerEntry, error)
	Trash(ctx context.Context, id uuid.UUID) error
	Close() error
}

// FieldSet names the revenue channels and cost categories a store is
// expected to carry. Rows missing one of these fields are backfilled with 0
// by the self-heal pass at open time.
type FieldSet struct {
	Revenue []string
	Cost    []string
}

// Open selects a backend by DSN scheme: postgres:// and postgresql:// go to
// the pgx-backed store, everything else to sqlite. An empty FieldSet heals
// against the default spreadsheet columns.
func Open(ctx context.Context, cfg common.StoreConfig, fields FieldSet, logger *slog.Logger) (LedgerStore, error) {
	if len(fields.Revenue) == 0 && len(fields.Cost) == 0 {
		fields = FieldSet{
			Revenue: constants.DefaultRevenueFields,
			Cost:    constants.DefaultCostFields,
		}
	}
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return OpenPostgres(ctx, cfg, fields, logger)
	}
	return OpenSqlite(ctx, cfg, fields, logger)
}

// validateEntry gates every append, whatever the backend: no row with a
// missing identity, unknown status, or negative amount ever reaches storage.
func validateEntry(e *entity.LedgerEntry) error {
	if e == nil {
		return common.NewAppError("STORE_APPEND", "nil entry", common.ErrInvalidInput)
	}
	if e.ID == uuid.Nil {
		return common.NewAppError("STORE_APPEND", "entry id is required", common.ErrInvalidInput)
	}
	if common.NormalizeOwnerID(e.OwnerID) == "" {
		return common.NewAppError("STORE_APPEND", "owner id is required", common.ErrInvalidInput)
	}
	if !e.Status.IsValid() {
		return common.NewAppError("STORE_APPEND", "unknown entry status", common.ErrInvalidInput)
	}
	if e.OdometerStart < 0 || e.OdometerEnd < 0 {
		return common.NewAppError("STORE_APPEND", "odometer values must be non-negative", common.ErrInvalidInput)
	}
	for name, v := range e.Revenue {
		if v.IsNegative() {
			return common.NewAppError("STORE_APPEND", "negative amount in revenue."+name, common.ErrInvalidInput)
		}
	}
	for name, v := range e.Cost {
		if v.IsNegative() {
			return common.NewAppError("STORE_APPEND", "negative amount in cost."+name, common.ErrInvalidInput)
		}
	}
	return nil
}

// retryAppend runs fn with the bounded retry budget from cfg. Only errors
// the backend marks retryable are retried; the last error is wrapped in
// ErrWriteExhausted once the budget runs out.
func retryAppend(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger, retryable func(error) bool, fn func() error) error {
	attempts := cfg.WriteRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		logger.Warn("ledger append failed, retrying",
			"attempt", attempt, "max_attempts", attempts, "error", err)
		if attempt < attempts {
			select {
			case <-time.After(cfg.WriteRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return common.NewAppError("STORE_APPEND", err.Error(), ErrWriteExhausted)
}
