package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/entity"
)

// MemoryStore is an in-memory LedgerStore used by tests and by callers that
// want a scratch ledger without a database file.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*entity.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, e *entity.LedgerEntry) error {
	if err := validateEntry(e); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	cp.OwnerID = common.NormalizeOwnerID(e.OwnerID)
	cp.Revenue = cloneFields(e.Revenue)
	cp.Cost = cloneFields(e.Cost)
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryStore) List(_ context.Context, q Query) ([]*entity.LedgerEntry, error) {
	owner := common.NormalizeOwnerID(q.OwnerID)
	if owner == "" {
		return nil, common.NewAppError("STORE_LIST", "owner id is required", common.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.LedgerEntry
	for _, e := range m.entries {
		if e.OwnerID != owner {
			continue
		}
		if !q.IncludeTrashed && e.Status == constants.StatusTrashed {
			continue
		}
		if q.From != nil && e.Date.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Date.After(*q.To) {
			continue
		}
		cp := *e
		cp.Revenue = cloneFields(e.Revenue)
		cp.Cost = cloneFields(e.Cost)
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Trash(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID == id {
			e.Status = constants.StatusTrashed
			return nil
		}
	}
	return common.NewAppError("STORE_TRASH", "entry "+id.String(), common.ErrNotFound)
}

func (m *MemoryStore) Close() error { return nil }

func cloneFields(fields map[string]decimal.Decimal) map[string]decimal.Decimal {
	cp := make(map[string]decimal.Decimal, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}
