package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shiftledger/shiftledger/internal/classify"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/export"
	"github.com/shiftledger/shiftledger/internal/metrics"
	"github.com/shiftledger/shiftledger/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		owner = flag.String("owner", "", "owner identity key (required)")
		from  = flag.String("from", "", "start date as YYYY-MM-DD (inclusive)")
		to    = flag.String("to", "", "end date as YYYY-MM-DD (inclusive)")
		group = flag.String("group", "", "grouping: day, month, or year (default: single total)")
		xlsx  = flag.String("xlsx", "", "also write an XLSX statement to this path")
	)
	flag.Parse()

	if common.NormalizeOwnerID(*owner) == "" {
		logger.Error("usage", "cmd", "shift-summary -owner <id> [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-group day|month|year] [-xlsx out.xlsx]")
		os.Exit(2)
	}

	grouping, ok := metrics.ParseGrouping(*group)
	if !ok {
		logger.Error("invalid -group, want day, month, or year", "group", *group)
		os.Exit(2)
	}

	fromDate, err := parseDateFlag(*from)
	if err != nil {
		logger.Error("invalid -from", "error", err)
		os.Exit(2)
	}
	toDate, err := parseDateFlag(*to)
	if err != nil {
		logger.Error("invalid -to", "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rules := classify.DefaultRules()
	if cfg.Classify.RulesPath != "" {
		if rules, err = classify.LoadRules(cfg.Classify.RulesPath); err != nil {
			logger.Error("load classifier rules", "path", cfg.Classify.RulesPath, "error", err)
			os.Exit(1)
		}
	}
	revenue, cost := classify.Categories(rules, classify.Fallback{})
	fields := repository.FieldSet{Revenue: revenue, Cost: cost}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, cfg.Store, fields, logger)
	if err != nil {
		logger.Error("open ledger store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close ledger store", "error", cerr)
		}
	}()

	entries, err := store.List(ctx, repository.Query{OwnerID: *owner, From: fromDate, To: toDate})
	if err != nil {
		logger.Error("list ledger", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%-10s %8s %10s %10s %10s %10s %10s %10s\n",
		"period", "entries", "revenue", "cost", "profit", "km", "rev/km", "profit/km")
	for _, g := range metrics.AggregateBy(entries, grouping) {
		period := g.Key
		if period == "" {
			period = "total"
		}
		fmt.Printf("%-10s %8d %10s %10s %10s %10d %10s %10s\n",
			period,
			g.Entries,
			g.Revenue.StringFixed(2),
			g.Cost.StringFixed(2),
			g.Profit.StringFixed(2),
			g.Distance,
			g.RevenuePerDistance.StringFixed(2),
			g.ProfitPerDistance.StringFixed(2),
		)
	}

	if *xlsx == "" {
		return
	}

	svc := export.NewService(store, fields, logger)
	buf, err := svc.ExportLedgerXLSX(ctx, *owner, fromDate, toDate, grouping)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*xlsx, buf, 0o644); err != nil {
		logger.Error("write xlsx", "path", *xlsx, "error", err)
		os.Exit(1)
	}
	logger.Info("statement written", "path", *xlsx, "bytes", len(buf))
}

func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM-DD, got %q", s)
	}
	return &d, nil
}
