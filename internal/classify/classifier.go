package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
)

// Rule maps a keyword to a (bucket, category) pair. Rules live in an ordered
// list: the first rule whose keyword is a substring of a label wins, so match
// precedence is part of the table's contract. Specific keywords must be
// listed before generic ones (e.g. "163" before "app").
type Rule struct {
	Keyword  string           `json:"keyword"`
	Bucket   constants.Bucket `json:"bucket"`
	Category string           `json:"category"`
}

// Fallback is where amounts whose label matches no rule are routed.
type Fallback struct {
	Bucket   constants.Bucket
	Category string
}

// Result is the bucketed outcome of classifying a token sequence.
type Result struct {
	Revenue map[string]decimal.Decimal
	Cost    map[string]decimal.Decimal

	// Unmatched lists the labels routed to the fallback category, in input
	// order. They are surfaced to the reviewer as a needs-review note.
	Unmatched []string
}

// Classifier resolves (label, amount) pairs against an ordered rule table.
type Classifier struct {
	rules    []Rule
	fallback Fallback
}

// NewClassifier builds a classifier over rules. A zero fallback selects the
// default miscellaneous-revenue category.
func NewClassifier(rules []Rule, fallback Fallback) *Classifier {
	if fallback.Category == "" {
		fallback = Fallback{Bucket: constants.FallbackBucket, Category: constants.FallbackCategory}
	}
	return &Classifier{rules: rules, fallback: fallback}
}

// Classify routes every pair to a (bucket, category) and accumulates amounts
// per category. Pairs mapping to the same category sum, never overwrite.
// Classify is pure and total: any label resolves, at worst to the fallback.
func (c *Classifier) Classify(pairs []Pair) Result {
	res := Result{
		Revenue: make(map[string]decimal.Decimal),
		Cost:    make(map[string]decimal.Decimal),
	}
	for _, p := range pairs {
		bucket, category, ok := c.match(p.Label)
		if !ok {
			bucket, category = c.fallback.Bucket, c.fallback.Category
			res.Unmatched = append(res.Unmatched, p.Label)
		}
		fields := res.Revenue
		if bucket == constants.BucketCost {
			fields = res.Cost
		}
		fields[category] = fields[category].Add(p.Amount)
	}
	return res
}

// match scans the rule table in order and returns the first rule whose
// keyword is a substring of label. Both sides are accent-folded so a rule
// written as "almoco" still matches the label "almoço".
func (c *Classifier) match(label string) (constants.Bucket, string, bool) {
	label = foldAccents.Replace(label)
	for _, r := range c.rules {
		if r.Keyword != "" && strings.Contains(label, foldAccents.Replace(r.Keyword)) {
			return r.Bucket, r.Category, true
		}
	}
	return "", "", false
}
