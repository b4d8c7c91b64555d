package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// cap on stderr carried into the log record
const maxStderrLog = 4 << 10

// Runner abstracts the OCR engine invocation so tests can run without a
// tesseract binary on the path.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		msg := stderr.String()
		if len(msg) > maxStderrLog {
			msg = msg[:maxStderrLog] + "...(truncated)"
		}
		r.logger.Error("ocr engine failed",
			"engine", name,
			"args", strings.Join(args, " "),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
			"stderr", msg,
		)
		return stdout.Bytes(), stderr.Bytes(), err
	}

	r.logger.Debug("ocr engine ok",
		"engine", name,
		"duration_ms", elapsed.Milliseconds(),
		"stdout_bytes", stdout.Len(),
	)
	return stdout.Bytes(), stderr.Bytes(), nil
}
