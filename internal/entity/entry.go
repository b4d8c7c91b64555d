package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
)

// LedgerEntry is one committed shift row. Entries are append-only: after
// commit the only permitted mutation is the Active -> Trashed transition.
// Corrections are made by trashing and re-entering.
type LedgerEntry struct {
	ID            uuid.UUID                  `json:"id"`
	OwnerID       string                     `json:"owner_id"`
	Status        constants.EntryStatus      `json:"status"`
	Date          time.Time                  `json:"date"`
	Revenue       map[string]decimal.Decimal `json:"revenue"`
	Cost          map[string]decimal.Decimal `json:"cost"`
	OdometerStart int                        `json:"odometer_start"`
	OdometerEnd   int                        `json:"odometer_end"`
	Note          string                     `json:"note"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// RevenueTotal sums all revenue channels of the entry.
func (e *LedgerEntry) RevenueTotal() decimal.Decimal {
	return sumFields(e.Revenue)
}

// CostTotal sums all cost categories of the entry.
func (e *LedgerEntry) CostTotal() decimal.Decimal {
	return sumFields(e.Cost)
}

// Distance is the kilometers driven this shift. A reversed odometer pair
// contributes 0, never a negative distance.
func (e *LedgerEntry) Distance() int {
	if d := e.OdometerEnd - e.OdometerStart; d > 0 {
		return d
	}
	return 0
}

func sumFields(fields map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range fields {
		total = total.Add(v)
	}
	return total
}
