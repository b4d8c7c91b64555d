package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shiftledger/shiftledger/constants"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "por"
	TessdataDir   string

	// Plausibility window for the numeric post-filter; zero values select
	// the package defaults.
	OdometerMin int
	OdometerMax int
}

// Reading is the outcome of an odometer photo read. A Reading with
// Found=false and a nil error means the engine ran but no plausible number
// survived the filter; an engine failure is returned as an error so callers
// can tell the two apart.
type Reading struct {
	Value    int
	Found    bool
	RawText  string
	Duration time.Duration
	Warnings []string
}

// Reader extracts odometer readings from dashboard photos.
type Reader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewReader(cfg Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "por"
	}
	if cfg.OdometerMin <= 0 {
		cfg.OdometerMin = DefaultOdometerMin
	}
	if cfg.OdometerMax <= 0 {
		cfg.OdometerMax = DefaultOdometerMax
	}
	return &Reader{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Read OCRs the photo at path and post-filters the text to a best-guess
// odometer value.
func (r *Reader) Read(ctx context.Context, path string) (Reading, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	r.logger.Debug("starting odometer read", "path", path, "ext", ext)

	if !constants.IsPhotoExt(ext) {
		return Reading{}, fmt.Errorf("unsupported photo extension: %q", ext)
	}

	txt, warn, err := r.tesseractOCR(ctx, path)
	if err != nil {
		return Reading{Warnings: warn, Duration: time.Since(start)}, err
	}

	value := BestCandidate(txt, r.cfg.OdometerMin, r.cfg.OdometerMax)
	reading := Reading{
		Value:    value,
		Found:    value > 0,
		RawText:  txt,
		Duration: time.Since(start),
		Warnings: warn,
	}
	r.logger.Info("odometer read done",
		"path", path,
		"found", reading.Found,
		"value", reading.Value,
		"duration_ms", reading.Duration.Milliseconds(),
	)
	return reading, nil
}

func (r *Reader) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", r.cfg.TesseractLang}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}
