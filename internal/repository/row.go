package repository

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/entity"
)

const dateLayout = "2006-01-02"

// encodeFields serializes a field map for storage. A nil map encodes as {}.
func encodeFields(fields map[string]decimal.Decimal) (string, error) {
	if fields == nil {
		fields = map[string]decimal.Decimal{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

// decodeFields is lenient about what it accepts: empty or blank cells decode
// to an empty map rather than an error, since the self-heal pass fills them
// in afterwards.
func decodeFields(raw string) (map[string]decimal.Decimal, error) {
	if raw == "" {
		return map[string]decimal.Decimal{}, nil
	}
	var fields map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if fields == nil {
		fields = map[string]decimal.Decimal{}
	}
	return fields, nil
}

// backfillEntry fills type-appropriate defaults into a loaded entry: Active
// for a missing status, initialized maps, and a 0 amount for every
// configured field the row does not carry. Reports whether anything had to
// be filled in, so the caller can write the corrected row back once.
func backfillEntry(e *entity.LedgerEntry, fields FieldSet) bool {
	changed := false

	if !e.Status.IsValid() {
		e.Status = constants.StatusActive
		changed = true
	}
	if e.Revenue == nil {
		e.Revenue = map[string]decimal.Decimal{}
		changed = true
	}
	if e.Cost == nil {
		e.Cost = map[string]decimal.Decimal{}
		changed = true
	}
	for _, name := range fields.Revenue {
		if _, ok := e.Revenue[name]; !ok {
			e.Revenue[name] = decimal.Zero
			changed = true
		}
	}
	for _, name := range fields.Cost {
		if _, ok := e.Cost[name]; !ok {
			e.Cost[name] = decimal.Zero
			changed = true
		}
	}
	return changed
}
