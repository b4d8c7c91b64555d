package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEntry(owner string, date time.Time) *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID:      uuid.New(),
		OwnerID: owner,
		Status:  constants.StatusActive,
		Date:    date,
		Revenue: map[string]decimal.Decimal{"Urbano": decimal.NewFromInt(200)},
		Cost:    map[string]decimal.Decimal{"Energia": decimal.NewFromInt(40)},

		OdometerStart: 1000,
		OdometerEnd:   1120,
		CreatedAt:     time.Now(),
	}
}

func TestMemoryStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if err := s.Append(ctx, testEntry("  Joao ", day)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, testEntry("maria", day)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// owner ids are normalized on the way in and matched by equality
	got, err := s.List(ctx, Query{OwnerID: "JOAO"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(got))
	}
	if got[0].OwnerID != "joao" {
		t.Errorf("OwnerID = %q, want joao", got[0].OwnerID)
	}
}

func TestMemoryStoreListRequiresOwner(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.List(context.Background(), Query{OwnerID: "   "}); err == nil {
		t.Fatal("List accepted an empty owner id")
	}
}

func TestMemoryStoreDateRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, d := range []string{"2026-01-05", "2026-02-05", "2026-03-05"} {
		day, _ := time.Parse("2006-01-02", d)
		if err := s.Append(ctx, testEntry("joao", day)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	got, err := s.List(ctx, Query{OwnerID: "joao", From: &from, To: &to})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Date.Month() != time.February {
		t.Errorf("ranged List = %d entries, want the February one", len(got))
	}
}

func TestTrashIsOneWayAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e := testEntry("joao", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Trash(ctx, e.ID); err != nil {
			t.Fatalf("Trash #%d: %v", i+1, err)
		}
	}

	active, err := s.List(ctx, Query{OwnerID: "joao"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("trashed entry still listed as active")
	}

	all, err := s.List(ctx, Query{OwnerID: "joao", IncludeTrashed: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Status != constants.StatusTrashed {
		t.Errorf("trashed entry not retained in storage: %v", all)
	}
}

func TestTrashUnknownID(t *testing.T) {
	s := NewMemoryStore()
	err := s.Trash(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Trash(unknown) = %v, want ErrNotFound", err)
	}
}

func TestValidateEntry(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(*entity.LedgerEntry)
	}{
		{"nil id", func(e *entity.LedgerEntry) { e.ID = uuid.Nil }},
		{"empty owner", func(e *entity.LedgerEntry) { e.OwnerID = "  " }},
		{"bad status", func(e *entity.LedgerEntry) { e.Status = "GONE" }},
		{"negative revenue", func(e *entity.LedgerEntry) {
			e.Revenue["Urbano"] = decimal.NewFromInt(-1)
		}},
		{"negative cost", func(e *entity.LedgerEntry) {
			e.Cost["Energia"] = decimal.NewFromInt(-1)
		}},
		{"negative odometer", func(e *entity.LedgerEntry) { e.OdometerStart = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEntry("joao", day)
			tt.mutate(e)
			if err := validateEntry(e); err == nil {
				t.Errorf("validateEntry accepted %s", tt.name)
			}
		})
	}

	if err := validateEntry(testEntry("joao", day)); err != nil {
		t.Errorf("validateEntry rejected a valid entry: %v", err)
	}
}

func TestBackfillEntry(t *testing.T) {
	fields := FieldSet{
		Revenue: []string{"Urbano", "Boraali"},
		Cost:    []string{"Energia"},
	}

	e := &entity.LedgerEntry{
		Revenue: map[string]decimal.Decimal{"Urbano": decimal.NewFromInt(10)},
	}
	if !backfillEntry(e, fields) {
		t.Fatal("backfillEntry reported no changes for an incomplete row")
	}
	if e.Status != constants.StatusActive {
		t.Errorf("status = %q, want backfilled ACTIVE", e.Status)
	}
	if !e.Revenue["Boraali"].IsZero() || !e.Cost["Energia"].IsZero() {
		t.Errorf("missing fields not backfilled with 0: %v %v", e.Revenue, e.Cost)
	}
	if !e.Revenue["Urbano"].Equal(decimal.NewFromInt(10)) {
		t.Errorf("existing field was overwritten")
	}

	// a complete row passes through untouched
	if backfillEntry(e, fields) {
		t.Error("backfillEntry reported changes on a healed row")
	}
}

func TestRetryAppend(t *testing.T) {
	cfg := common.StoreConfig{WriteRetries: 3, WriteRetryDelay: time.Millisecond}
	logger := testLogger()
	retryable := func(err error) bool { return err.Error() == "busy" }

	t.Run("succeeds within budget", func(t *testing.T) {
		calls := 0
		err := retryAppend(context.Background(), cfg, logger, retryable, func() error {
			calls++
			if calls < 3 {
				return errors.New("busy")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err = %v, calls = %d; want success on third call", err, calls)
		}
	})

	t.Run("exhausts budget", func(t *testing.T) {
		err := retryAppend(context.Background(), cfg, logger, retryable, func() error {
			return errors.New("busy")
		})
		if !errors.Is(err, ErrWriteExhausted) {
			t.Errorf("err = %v, want ErrWriteExhausted", err)
		}
	})

	t.Run("non-retryable fails fast", func(t *testing.T) {
		calls := 0
		err := retryAppend(context.Background(), cfg, logger, retryable, func() error {
			calls++
			return errors.New("constraint violation")
		})
		if err == nil || errors.Is(err, ErrWriteExhausted) || calls != 1 {
			t.Errorf("err = %v, calls = %d; want immediate failure", err, calls)
		}
	})
}
