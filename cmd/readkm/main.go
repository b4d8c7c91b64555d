package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "readkm <photo-path>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reader := ocr.NewReader(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		OdometerMin:   cfg.OCR.OdometerMin,
		OdometerMax:   cfg.OCR.OdometerMax,
	}, logger)

	reading, err := reader.Read(ctx, path)
	if err != nil {
		logger.Error("odometer read failed", "path", path, "error", err)
		os.Exit(1)
	}
	if !reading.Found {
		logger.Warn("no plausible odometer reading in photo",
			"path", path,
			"duration_ms", reading.Duration.Milliseconds(),
		)
		os.Exit(1)
	}

	logger.Info("odometer read OK",
		"path", path,
		"value", reading.Value,
		"duration_ms", reading.Duration.Milliseconds(),
	)
}
