package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingDraft is a transient, not-yet-persisted candidate entry produced by
// classification and OCR. Every field is editable until the draft is either
// committed or discarded.
type PendingDraft struct {
	Date          time.Time                  `json:"date"`
	Revenue       map[string]decimal.Decimal `json:"revenue"`
	Cost          map[string]decimal.Decimal `json:"cost"`
	OdometerStart int                        `json:"odometer_start"`
	OdometerEnd   int                        `json:"odometer_end"`
	Note          string                     `json:"note"`

	// Warnings carry non-fatal review hints (unreadable photo, reversed
	// odometer pair). They are surfaced to the reviewer, never persisted.
	Warnings []string `json:"warnings,omitempty"`
}

// NewPendingDraft returns an empty draft dated at date with initialized
// field maps.
func NewPendingDraft(date time.Time) *PendingDraft {
	return &PendingDraft{
		Date:    date,
		Revenue: make(map[string]decimal.Decimal),
		Cost:    make(map[string]decimal.Decimal),
	}
}

// Warn appends a non-fatal review warning.
func (d *PendingDraft) Warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
}
