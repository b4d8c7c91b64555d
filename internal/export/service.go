package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shiftledger/shiftledger/internal/entity"
	"github.com/shiftledger/shiftledger/internal/metrics"
	"github.com/shiftledger/shiftledger/internal/repository"
)

// Service is a tiny façade over the ledger store that produces XLSX bytes
// for statement exports.
type Service struct {
	store  repository.LedgerStore
	fields repository.FieldSet
	logger *slog.Logger
}

func NewService(store repository.LedgerStore, fields repository.FieldSet, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, fields: fields, logger: logger}
}

// ExportLedgerXLSX returns an XLSX workbook (as bytes) for the given owner
// and date window: a Ledger sheet with one row per active entry and a
// Summary sheet with per-group totals.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all entries for the owner.
func (s *Service) ExportLedgerXLSX(ctx context.Context, ownerID string, from, to *time.Time, grouping metrics.Grouping) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	entries, err := s.store.List(ctx, repository.Query{OwnerID: ownerID, From: fromDate, To: toDate})
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	f := excelize.NewFile()
	const ledgerSheet = "Ledger"
	if err := renameDefaultSheet(f, ledgerSheet); err != nil {
		return nil, err
	}

	headers := []string{"Date"}
	headers = append(headers, s.fields.Revenue...)
	headers = append(headers, s.fields.Cost...)
	headers = append(headers, "Odometer Start", "Odometer End", "Distance (km)", "Notes")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ledgerSheet, cell, h)
	}

	for i, e := range entries {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(ledgerSheet, cell, v)
		}

		col := 1
		write(col, e.Date.Format("2006-01-02"))
		for _, name := range s.fields.Revenue {
			col++
			write(col, e.Revenue[name].InexactFloat64())
		}
		for _, name := range s.fields.Cost {
			col++
			write(col, e.Cost[name].InexactFloat64())
		}
		write(col+1, e.OdometerStart)
		write(col+2, e.OdometerEnd)
		write(col+3, e.Distance())
		write(col+4, e.Note)
	}

	if err := s.writeSummary(f, entries, grouping); err != nil {
		return nil, err
	}

	// Widen the date and note columns
	_ = f.SetColWidth(ledgerSheet, "A", "A", 12)
	noteCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(ledgerSheet, noteCol, noteCol, 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", ownerID,
		"rows", len(entries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, entries []*entity.LedgerEntry, grouping metrics.Grouping) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	headers := []string{"Period", "Entries", "Revenue", "Cost", "Profit", "Distance (km)", "Revenue/km", "Profit/km"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, g := range metrics.AggregateBy(entries, grouping) {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		period := g.Key
		if period == "" {
			period = "Total"
		}
		write(1, period)
		write(2, g.Entries)
		write(3, g.Revenue.InexactFloat64())
		write(4, g.Cost.InexactFloat64())
		write(5, g.Profit.InexactFloat64())
		write(6, g.Distance)
		write(7, g.RevenuePerDistance.Round(2).InexactFloat64())
		write(8, g.ProfitPerDistance.Round(2).InexactFloat64())
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	return nil
}

func renameDefaultSheet(f *excelize.File, name string) error {
	def := f.GetSheetName(f.GetActiveSheetIndex())
	if def == name {
		return nil
	}
	if err := f.SetSheetName(def, name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	return nil
}
