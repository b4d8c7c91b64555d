package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shiftledger/shiftledger/internal/classify"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/ocr"
	"github.com/shiftledger/shiftledger/internal/repository"
	"github.com/shiftledger/shiftledger/internal/workflow"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		owner   = flag.String("owner", "", "owner identity key (required)")
		text    = flag.String("text", "", "free-text shift description, e.g. \"urbano 200, almoço 20\"")
		photo   = flag.String("photo", "", "odometer photo path (png/jpg)")
		date    = flag.String("date", "", "shift date as YYYY-MM-DD (default today)")
		commit  = flag.Bool("commit", false, "persist the entry; without it the draft is printed and discarded")
		edits   editList
	)
	flag.Var(&edits, "edit", "draft edit as field=value, repeatable (e.g. -edit odometer_start=88000)")
	flag.Parse()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var shiftDate time.Time
	if *date != "" {
		d, err := time.Parse("2006-01-02", *date)
		if err != nil {
			logger.Error("invalid -date, want YYYY-MM-DD", "date", *date)
			os.Exit(2)
		}
		shiftDate = d
	}

	rules := classify.DefaultRules()
	if cfg.Classify.RulesPath != "" {
		var err error
		if rules, err = classify.LoadRules(cfg.Classify.RulesPath); err != nil {
			logger.Error("load classifier rules", "path", cfg.Classify.RulesPath, "error", err)
			os.Exit(1)
		}
	}
	classifier := classify.NewClassifier(rules, classify.Fallback{})
	revenue, cost := classify.Categories(rules, classify.Fallback{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, cfg.Store, repository.FieldSet{Revenue: revenue, Cost: cost}, logger)
	if err != nil {
		logger.Error("open ledger store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close ledger store", "error", cerr)
		}
	}()

	reader := ocr.NewReader(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		OdometerMin:   cfg.OCR.OdometerMin,
		OdometerMax:   cfg.OCR.OdometerMax,
	}, logger)

	svc := workflow.NewService(classifier, reader, store, logger)

	w, err := svc.Begin(*owner)
	if err != nil {
		logger.Error("invalid owner id", "error", err)
		os.Exit(2)
	}

	draft, err := w.Submit(ctx, *text, *photo, shiftDate)
	if err != nil {
		logger.Error("submit failed", "error", err)
		os.Exit(1)
	}

	for _, e := range edits {
		field, value, _ := strings.Cut(e, "=")
		if draft, err = w.Edit(field, value); err != nil {
			logger.Error("edit rejected", "edit", e, "error", err)
			os.Exit(2)
		}
	}

	for _, warn := range draft.Warnings {
		logger.Warn("draft warning", "warning", warn)
	}

	out, _ := json.MarshalIndent(draft, "", "  ")
	fmt.Println(string(out))

	if !*commit {
		logger.Info("dry run, draft discarded (pass -commit to persist)")
		if err := w.Cancel(); err != nil {
			logger.Error("cancel failed", "error", err)
			os.Exit(1)
		}
		return
	}

	entry, err := w.Commit(ctx)
	if err != nil {
		logger.Error("commit failed, entry not saved; you may retry", "error", err)
		os.Exit(1)
	}
	logger.Info("entry committed", "entry_id", entry.ID, "owner_id", entry.OwnerID, "date", entry.Date.Format("2006-01-02"))
}

// editList collects repeated -edit flags.
type editList []string

func (e *editList) String() string { return strings.Join(*e, ",") }

func (e *editList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("want field=value, got %q", v)
	}
	*e = append(*e, v)
	return nil
}
