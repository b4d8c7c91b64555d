// Package metrics rolls committed ledger entries into revenue, cost, profit,
// distance, and per-distance efficiency figures. Everything here is a pure
// function over an entry slice; filtering by owner or date range happens on
// the store's read path.
package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
	"github.com/shiftledger/shiftledger/internal/entity"
)

// Grouping selects the calendar bucket entries are rolled into.
type Grouping string

const (
	GroupNone  Grouping = ""
	GroupDay   Grouping = "day"
	GroupMonth Grouping = "month"
	GroupYear  Grouping = "year"
)

// ParseGrouping maps a user-supplied grouping name to a Grouping.
func ParseGrouping(s string) (Grouping, bool) {
	switch Grouping(s) {
	case GroupNone, GroupDay, GroupMonth, GroupYear:
		return Grouping(s), true
	}
	return GroupNone, false
}

// Totals is one aggregate over a set of entries.
type Totals struct {
	Entries  int
	Revenue  decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
	Distance int64

	// Per-distance ratios are 0 whenever Distance is 0; there is no
	// division-by-zero outcome.
	RevenuePerDistance decimal.Decimal
	ProfitPerDistance  decimal.Decimal
}

// GroupTotals is a Totals labeled with its calendar bucket key.
type GroupTotals struct {
	Key string
	Totals
}

// Aggregate computes the totals over entries. Trashed entries never
// contribute, whatever the caller passed in.
func Aggregate(entries []*entity.LedgerEntry) Totals {
	t := Totals{
		Revenue: decimal.Zero,
		Cost:    decimal.Zero,
	}
	for _, e := range entries {
		if e.Status == constants.StatusTrashed {
			continue
		}
		t.Entries++
		t.Revenue = t.Revenue.Add(e.RevenueTotal())
		t.Cost = t.Cost.Add(e.CostTotal())
		t.Distance += int64(e.Distance())
	}
	t.Profit = t.Revenue.Sub(t.Cost)
	if t.Distance > 0 {
		km := decimal.NewFromInt(t.Distance)
		t.RevenuePerDistance = t.Revenue.Div(km)
		t.ProfitPerDistance = t.Profit.Div(km)
	} else {
		t.RevenuePerDistance = decimal.Zero
		t.ProfitPerDistance = decimal.Zero
	}
	return t
}

// AggregateBy buckets entries by day, month, or year and aggregates each
// bucket. Buckets come back sorted by key, oldest first. GroupNone returns a
// single unlabeled bucket.
func AggregateBy(entries []*entity.LedgerEntry, g Grouping) []GroupTotals {
	if g == GroupNone {
		return []GroupTotals{{Totals: Aggregate(entries)}}
	}

	buckets := make(map[string][]*entity.LedgerEntry)
	for _, e := range entries {
		key := groupKey(e, g)
		buckets[key] = append(buckets[key], e)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupTotals, 0, len(keys))
	for _, k := range keys {
		out = append(out, GroupTotals{Key: k, Totals: Aggregate(buckets[k])})
	}
	return out
}

func groupKey(e *entity.LedgerEntry, g Grouping) string {
	switch g {
	case GroupDay:
		return e.Date.Format("2006-01-02")
	case GroupMonth:
		return e.Date.Format("2006-01")
	case GroupYear:
		return e.Date.Format("2006")
	default:
		return ""
	}
}
