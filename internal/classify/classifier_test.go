package classify

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shiftledger/shiftledger/constants"
)

func testRules() []Rule {
	return []Rule{
		{Keyword: "urbano", Bucket: constants.BucketRevenue, Category: "Urbano"},
		{Keyword: "bora", Bucket: constants.BucketRevenue, Category: "Boraali"},
		{Keyword: "almoco", Bucket: constants.BucketCost, Category: "Food"},
	}
}

func TestClassifyKnownKeywords(t *testing.T) {
	c := NewClassifier(testRules(), Fallback{})
	res := c.Classify(Tokenize("urbano 200, borali 50, almoço 20"))

	if got := res.Revenue["Urbano"]; !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("revenue.Urbano = %s, want 200", got)
	}
	if got := res.Revenue["Boraali"]; !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("revenue.Boraali = %s, want 50", got)
	}
	if got := res.Cost["Food"]; !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("cost.Food = %s, want 20", got)
	}
	if len(res.Unmatched) != 0 {
		t.Errorf("Unmatched = %v, want empty", res.Unmatched)
	}
}

func TestClassifyFallback(t *testing.T) {
	c := NewClassifier(testRules(), Fallback{})
	res := c.Classify(Tokenize("estranho 75"))

	if got := res.Revenue[constants.FallbackCategory]; !got.Equal(decimal.NewFromInt(75)) {
		t.Errorf("fallback amount = %s, want 75", got)
	}
	if len(res.Unmatched) != 1 || res.Unmatched[0] != "estranho" {
		t.Errorf("Unmatched = %v, want [estranho]", res.Unmatched)
	}
}

func TestClassifySameCategoryAccumulates(t *testing.T) {
	c := NewClassifier(testRules(), Fallback{})
	res := c.Classify(Tokenize("urbano 100, urbano 50,5"))

	if got := res.Revenue["Urbano"]; !got.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("revenue.Urbano = %s, want 150.5", got)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// "163" is listed before "app": an app163 label is revenue, a plain
	// app fee is cost.
	rules := []Rule{
		{Keyword: "163", Bucket: constants.BucketRevenue, Category: "App163"},
		{Keyword: "app", Bucket: constants.BucketCost, Category: "Aplicativo"},
	}
	c := NewClassifier(rules, Fallback{})

	res := c.Classify(Tokenize("app163 80, app 12"))
	if got := res.Revenue["App163"]; !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("revenue.App163 = %s, want 80", got)
	}
	if got := res.Cost["Aplicativo"]; !got.Equal(decimal.NewFromInt(12)) {
		t.Errorf("cost.Aplicativo = %s, want 12", got)
	}
}

// No amount may be lost or duplicated: the classified sum always equals the
// tokenized input sum, fallback included.
func TestClassifyPreservesTotal(t *testing.T) {
	inputs := []string{
		"urbano 200, borali 50, almoço 20",
		"estranho 75, urbano 10",
		"a 1 b 2 c 3 d 4",
		"urbano 0,5 urbano 0,5",
		"",
	}
	c := NewClassifier(DefaultRules(), Fallback{})
	for _, in := range inputs {
		pairs := Tokenize(in)
		want := decimal.Zero
		for _, p := range pairs {
			want = want.Add(p.Amount)
		}

		res := c.Classify(pairs)
		got := decimal.Zero
		for _, v := range res.Revenue {
			got = got.Add(v)
		}
		for _, v := range res.Cost {
			got = got.Add(v)
		}
		if !got.Equal(want) {
			t.Errorf("input %q: classified sum %s, want %s", in, got, want)
		}
	}
}

func TestClassifyNeverPanics(t *testing.T) {
	c := NewClassifier(nil, Fallback{})
	weird := []string{"", "\x00", "ç ã õ 9", "1 2 3", "---", "ütf8 ✓ 42"}
	for _, in := range weird {
		res := c.Classify(Tokenize(in))
		if res.Revenue == nil || res.Cost == nil {
			t.Fatalf("Classify(%q) returned nil maps", in)
		}
	}
}
