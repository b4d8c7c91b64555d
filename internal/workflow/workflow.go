// Package workflow drives a shift submission from free text to a committed
// ledger entry through an explicit state machine:
//
//	Collecting -> (submit) -> Reviewing -> (commit) -> Committed
//	                          Reviewing -> (cancel) -> Collecting
//
// Committed is terminal per submission; a fresh submission starts with a new
// Workflow from Service.Begin. All session state lives in the Workflow value
// itself.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/classify"
	"github.com/shiftledger/shiftledger/internal/common"
	"github.com/shiftledger/shiftledger/internal/entity"
	"github.com/shiftledger/shiftledger/internal/ocr"
	"github.com/shiftledger/shiftledger/internal/repository"
)

// State names a position in the reconciliation state machine.
type State string

const (
	StateCollecting State = "COLLECTING"
	StateReviewing  State = "REVIEWING"
	StateCommitted  State = "COMMITTED"
)

var (
	// ErrNothingToSubmit is the validation gate before the workflow: a
	// submission with neither text nor photo has nothing to assemble.
	ErrNothingToSubmit = errors.New("nothing to submit: text and photo are both empty")

	// ErrInvalidTransition means the operation is not allowed in the
	// workflow's current state.
	ErrInvalidTransition = errors.New("operation not allowed in current workflow state")
)

// OdometerReader reads an odometer value from a photo. Satisfied by
// *ocr.Reader; stubbed in tests.
type OdometerReader interface {
	Read(ctx context.Context, path string) (ocr.Reading, error)
}

// Service wires the classifier, the odometer reader, and the ledger store
// into workflow instances.
type Service struct {
	classifier *classify.Classifier
	reader     OdometerReader
	store      repository.LedgerStore
	logger     *slog.Logger
}

func NewService(classifier *classify.Classifier, reader OdometerReader, store repository.LedgerStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{classifier: classifier, reader: reader, store: store, logger: logger}
}

// Begin validates the identity key and returns a fresh workflow in
// Collecting. A malformed owner id is a hard reject: no classification or
// storage logic runs for it.
func (s *Service) Begin(ownerID string) (*Workflow, error) {
	validator := common.NewValidator()
	validator.Field("owner_id", ownerID, common.Required, common.OwnerID)
	if err := validator.Error(); err != nil {
		return nil, err
	}
	return &Workflow{
		svc:     s,
		ownerID: common.NormalizeOwnerID(ownerID),
		state:   StateCollecting,
	}, nil
}

// Workflow is one submission in flight. It is not safe for concurrent use;
// each submission owns its instance.
type Workflow struct {
	svc     *Service
	ownerID string
	state   State
	draft   *entity.PendingDraft
}

func (w *Workflow) OwnerID() string { return w.ownerID }
func (w *Workflow) State() State    { return w.state }

// Draft returns the pending draft, nil outside Reviewing.
func (w *Workflow) Draft() *entity.PendingDraft { return w.draft }

// Submit classifies the shift text, reads the odometer photo if one was
// attached, and assembles the pending draft, moving the workflow to
// Reviewing. OCR trouble never aborts the submission: an unreadable photo
// degrades to "no reading" with a warning on the draft.
func (w *Workflow) Submit(ctx context.Context, text, photoPath string, date time.Time) (*entity.PendingDraft, error) {
	if w.state != StateCollecting {
		return nil, fmt.Errorf("submit in state %s: %w", w.state, ErrInvalidTransition)
	}
	text = strings.TrimSpace(text)
	if text == "" && photoPath == "" {
		return nil, ErrNothingToSubmit
	}
	if date.IsZero() {
		date = time.Now()
	}

	draft := entity.NewPendingDraft(date)

	res := w.svc.classifier.Classify(classify.Tokenize(text))
	draft.Revenue = res.Revenue
	draft.Cost = res.Cost
	if len(res.Unmatched) > 0 {
		draft.Note = strings.Join(res.Unmatched, ", ")
		draft.Warn("unrecognized labels routed to " + constants.FallbackCategory + ": " + draft.Note)
	}

	if photoPath != "" {
		reading, err := w.svc.reader.Read(ctx, photoPath)
		switch {
		case err != nil:
			w.svc.logger.Warn("odometer read failed", "owner_id", w.ownerID, "photo", photoPath, "error", err)
			draft.Warn("odometer photo could not be read")
		case reading.Found:
			draft.OdometerEnd = reading.Value
		default:
			draft.Warn("no plausible odometer reading found in photo")
		}
	}

	// continue the odometer from the previous committed shift
	if prev, err := w.latestOdometerEnd(ctx); err != nil {
		w.svc.logger.Warn("could not look up previous odometer", "owner_id", w.ownerID, "error", err)
	} else if prev > 0 {
		draft.OdometerStart = prev
	}
	warnIfReversed(draft)

	w.draft = draft
	w.state = StateReviewing
	w.svc.logger.Info("draft assembled",
		"owner_id", w.ownerID,
		"revenue_fields", len(draft.Revenue),
		"cost_fields", len(draft.Cost),
		"odometer_end", draft.OdometerEnd,
		"warnings", len(draft.Warnings),
	)
	return draft, nil
}

// Edit updates one draft field, addressed by name: "date", "note",
// "odometer_start", "odometer_end", "revenue.<Category>", or
// "cost.<Category>". Amounts must parse and be non-negative.
func (w *Workflow) Edit(field, value string) (*entity.PendingDraft, error) {
	if w.state != StateReviewing {
		return nil, fmt.Errorf("edit in state %s: %w", w.state, ErrInvalidTransition)
	}

	switch {
	case field == "date":
		d, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, common.NewAppError("DRAFT_EDIT", "date must be YYYY-MM-DD", common.ErrInvalidInput)
		}
		w.draft.Date = d
	case field == "note":
		w.draft.Note = value
	case field == "odometer_start" || field == "odometer_end":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, common.NewAppError("DRAFT_EDIT", field+" must be a non-negative integer", common.ErrInvalidInput)
		}
		if field == "odometer_start" {
			w.draft.OdometerStart = n
		} else {
			w.draft.OdometerEnd = n
		}
		warnIfReversed(w.draft)
	case strings.HasPrefix(field, "revenue.") || strings.HasPrefix(field, "cost."):
		bucket, category, _ := strings.Cut(field, ".")
		if category == "" {
			return nil, common.NewAppError("DRAFT_EDIT", "missing category in field "+field, common.ErrInvalidInput)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || amount.IsNegative() {
			return nil, common.NewAppError("DRAFT_EDIT", field+" must be a non-negative amount", common.ErrInvalidInput)
		}
		if bucket == "revenue" {
			w.draft.Revenue[category] = amount
		} else {
			w.draft.Cost[category] = amount
		}
	default:
		return nil, common.NewAppError("DRAFT_EDIT", "unknown field "+field, common.ErrInvalidInput)
	}
	return w.draft, nil
}

// Commit turns the reviewed draft into a permanent ledger entry. On a store
// failure the workflow stays in Reviewing so the user can retry the commit;
// on success it reaches the terminal Committed state.
func (w *Workflow) Commit(ctx context.Context) (*entity.LedgerEntry, error) {
	if w.state != StateReviewing {
		return nil, fmt.Errorf("commit in state %s: %w", w.state, ErrInvalidTransition)
	}

	entry := &entity.LedgerEntry{
		ID:            uuid.New(),
		OwnerID:       w.ownerID,
		Status:        constants.StatusActive,
		Date:          w.draft.Date,
		Revenue:       w.draft.Revenue,
		Cost:          w.draft.Cost,
		OdometerStart: w.draft.OdometerStart,
		OdometerEnd:   w.draft.OdometerEnd,
		Note:          w.draft.Note,
		CreatedAt:     time.Now(),
	}

	if err := w.svc.store.Append(ctx, entry); err != nil {
		w.svc.logger.Error("ledger append failed", "owner_id", w.ownerID, "error", err)
		return nil, common.NewAppError("SAVE_FAILED", "could not save the entry; the commit may be retried", err)
	}

	w.state = StateCommitted
	w.draft = nil
	w.svc.logger.Info("entry committed", "owner_id", w.ownerID, "entry_id", entry.ID)
	return entry, nil
}

// Cancel discards the draft and returns the workflow to Collecting.
func (w *Workflow) Cancel() error {
	if w.state != StateReviewing {
		return fmt.Errorf("cancel in state %s: %w", w.state, ErrInvalidTransition)
	}
	w.draft = nil
	w.state = StateCollecting
	return nil
}

// latestOdometerEnd returns the odometer_end of the owner's most recent
// active entry, 0 when there is none.
func (w *Workflow) latestOdometerEnd(ctx context.Context) (int, error) {
	entries, err := w.svc.store.List(ctx, repository.Query{OwnerID: w.ownerID})
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	// List is ordered by date then creation time
	return entries[len(entries)-1].OdometerEnd, nil
}

func warnIfReversed(d *entity.PendingDraft) {
	if d.OdometerEnd > 0 && d.OdometerStart > d.OdometerEnd {
		d.Warn(fmt.Sprintf("odometer end %d is below start %d; distance will count as 0", d.OdometerEnd, d.OdometerStart))
	}
}
