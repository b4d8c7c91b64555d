package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/entity"
)

func entry(date string, revenue, cost map[string]decimal.Decimal, start, end int) *entity.LedgerEntry {
	d, _ := time.Parse("2006-01-02", date)
	return &entity.LedgerEntry{
		ID:            uuid.New(),
		OwnerID:       "joao",
		Status:        constants.StatusActive,
		Date:          d,
		Revenue:       revenue,
		Cost:          cost,
		OdometerStart: start,
		OdometerEnd:   end,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	if !got.Revenue.IsZero() || !got.Cost.IsZero() || !got.Profit.IsZero() {
		t.Errorf("empty aggregate = %+v, want all zero", got)
	}
	if got.Distance != 0 || !got.RevenuePerDistance.IsZero() || !got.ProfitPerDistance.IsZero() {
		t.Errorf("empty aggregate ratios = %+v, want zero", got)
	}
}

func TestAggregateTotals(t *testing.T) {
	entries := []*entity.LedgerEntry{
		entry("2026-03-10",
			map[string]decimal.Decimal{"Urbano": dec("200"), "Boraali": dec("50")},
			map[string]decimal.Decimal{"Energia": dec("40")},
			1000, 1150),
		entry("2026-03-11",
			map[string]decimal.Decimal{"Urbano": dec("100.5")},
			map[string]decimal.Decimal{"OutrosCustos": dec("20")},
			1150, 1250),
	}

	got := Aggregate(entries)
	if !got.Revenue.Equal(dec("350.5")) {
		t.Errorf("Revenue = %s, want 350.5", got.Revenue)
	}
	if !got.Cost.Equal(dec("60")) {
		t.Errorf("Cost = %s, want 60", got.Cost)
	}
	if !got.Profit.Equal(dec("290.5")) {
		t.Errorf("Profit = %s, want 290.5", got.Profit)
	}
	if got.Distance != 250 {
		t.Errorf("Distance = %d, want 250", got.Distance)
	}
	if !got.RevenuePerDistance.Equal(dec("350.5").Div(dec("250"))) {
		t.Errorf("RevenuePerDistance = %s", got.RevenuePerDistance)
	}
}

// profit = revenue - cost must hold for every aggregate, including ones with
// reversed odometer pairs and fallback-only entries.
func TestProfitIdentity(t *testing.T) {
	cases := [][]*entity.LedgerEntry{
		nil,
		{entry("2026-01-01", map[string]decimal.Decimal{"X": dec("10")}, nil, 0, 0)},
		{
			entry("2026-01-01", map[string]decimal.Decimal{"X": dec("1.25")},
				map[string]decimal.Decimal{"Y": dec("9.75")}, 500, 400),
			entry("2026-01-02", nil, map[string]decimal.Decimal{"Y": dec("3")}, 0, 0),
		},
	}
	for i, entries := range cases {
		got := Aggregate(entries)
		if !got.Profit.Equal(got.Revenue.Sub(got.Cost)) {
			t.Errorf("case %d: profit %s != revenue %s - cost %s", i, got.Profit, got.Revenue, got.Cost)
		}
	}
}

func TestReversedOdometerClampsToZero(t *testing.T) {
	entries := []*entity.LedgerEntry{
		entry("2026-03-10", map[string]decimal.Decimal{"Urbano": dec("100")}, nil, 1000, 800),
	}
	got := Aggregate(entries)
	if got.Distance != 0 {
		t.Errorf("Distance = %d, want 0 (reversed pair contributes 0, not -200)", got.Distance)
	}
	if !got.RevenuePerDistance.IsZero() {
		t.Errorf("RevenuePerDistance = %s, want 0 when distance is 0", got.RevenuePerDistance)
	}
}

func TestTrashedEntriesExcluded(t *testing.T) {
	trashed := entry("2026-03-10", map[string]decimal.Decimal{"Urbano": dec("999")}, nil, 0, 0)
	trashed.Status = constants.StatusTrashed
	entries := []*entity.LedgerEntry{
		trashed,
		entry("2026-03-10", map[string]decimal.Decimal{"Urbano": dec("100")}, nil, 0, 0),
	}

	got := Aggregate(entries)
	if !got.Revenue.Equal(dec("100")) || got.Entries != 1 {
		t.Errorf("aggregate includes trashed entry: %+v", got)
	}
}

func TestAggregateBy(t *testing.T) {
	entries := []*entity.LedgerEntry{
		entry("2026-03-10", map[string]decimal.Decimal{"Urbano": dec("100")}, nil, 0, 100),
		entry("2026-03-10", map[string]decimal.Decimal{"Urbano": dec("50")}, nil, 100, 150),
		entry("2026-04-01", map[string]decimal.Decimal{"Urbano": dec("70")}, nil, 150, 160),
		entry("2025-12-31", map[string]decimal.Decimal{"Urbano": dec("30")}, nil, 0, 0),
	}

	t.Run("by day", func(t *testing.T) {
		got := AggregateBy(entries, GroupDay)
		if len(got) != 3 {
			t.Fatalf("got %d buckets, want 3", len(got))
		}
		if got[0].Key != "2025-12-31" || got[1].Key != "2026-03-10" || got[2].Key != "2026-04-01" {
			t.Errorf("keys = %v, want sorted day keys", []string{got[0].Key, got[1].Key, got[2].Key})
		}
		if !got[1].Revenue.Equal(dec("150")) {
			t.Errorf("2026-03-10 revenue = %s, want 150", got[1].Revenue)
		}
	})

	t.Run("by month", func(t *testing.T) {
		got := AggregateBy(entries, GroupMonth)
		if len(got) != 3 {
			t.Fatalf("got %d buckets, want 3", len(got))
		}
		if got[1].Key != "2026-03" {
			t.Errorf("bucket key = %q, want 2026-03", got[1].Key)
		}
	})

	t.Run("by year", func(t *testing.T) {
		got := AggregateBy(entries, GroupYear)
		if len(got) != 2 {
			t.Fatalf("got %d buckets, want 2", len(got))
		}
		if !got[1].Revenue.Equal(dec("220")) {
			t.Errorf("2026 revenue = %s, want 220", got[1].Revenue)
		}
	})

	t.Run("ungrouped", func(t *testing.T) {
		got := AggregateBy(entries, GroupNone)
		if len(got) != 1 || got[0].Key != "" {
			t.Fatalf("GroupNone = %v, want a single unlabeled bucket", got)
		}
		if !got[0].Revenue.Equal(dec("250")) {
			t.Errorf("total revenue = %s, want 250", got[0].Revenue)
		}
	})
}

func TestParseGrouping(t *testing.T) {
	for _, ok := range []string{"", "day", "month", "year"} {
		if _, valid := ParseGrouping(ok); !valid {
			t.Errorf("ParseGrouping(%q) rejected a valid grouping", ok)
		}
	}
	if _, valid := ParseGrouping("week"); valid {
		t.Error("ParseGrouping accepted week")
	}
}
