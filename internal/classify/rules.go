package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/shiftledger/shiftledger/constants"
)

// DefaultRules returns the built-in keyword table. Order matters: it is the
// match-precedence contract, preserved from the spreadsheet-era app this tool
// replaced. "163" sits before "app" so an "app163" label resolves to the
// revenue channel, not the app-fee cost.
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "urbano", Bucket: constants.BucketRevenue, Category: "Urbano"},
		{Keyword: "bora", Bucket: constants.BucketRevenue, Category: "Boraali"},
		{Keyword: "163", Bucket: constants.BucketRevenue, Category: "App163"},
		{Keyword: "particula", Bucket: constants.BucketRevenue, Category: "OutrosReceita"},
		{Keyword: "viagem", Bucket: constants.BucketRevenue, Category: "OutrosReceita"},
		{Keyword: "energia", Bucket: constants.BucketCost, Category: "Energia"},
		{Keyword: "gasolina", Bucket: constants.BucketCost, Category: "Energia"},
		{Keyword: "alcool", Bucket: constants.BucketCost, Category: "Energia"},
		{Keyword: "manut", Bucket: constants.BucketCost, Category: "Manuten"},
		{Keyword: "seguro", Bucket: constants.BucketCost, Category: "Seguro"},
		{Keyword: "app", Bucket: constants.BucketCost, Category: "Aplicativo"},
		{Keyword: "marmita", Bucket: constants.BucketCost, Category: "OutrosCustos"},
		{Keyword: "almoco", Bucket: constants.BucketCost, Category: "OutrosCustos"},
	}
}

// Categories returns the distinct revenue and cost categories a rule table
// can produce, in table order, with the fallback category included in its
// bucket. The result names the ledger's expected fields.
func Categories(rules []Rule, fallback Fallback) (revenue, cost []string) {
	if fallback.Category == "" {
		fallback = Fallback{Bucket: constants.FallbackBucket, Category: constants.FallbackCategory}
	}

	seen := map[string]struct{}{}
	add := func(bucket constants.Bucket, category string) {
		key := string(bucket) + "." + category
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		if bucket == constants.BucketCost {
			cost = append(cost, category)
		} else {
			revenue = append(revenue, category)
		}
	}

	for _, r := range rules {
		add(r.Bucket, r.Category)
	}
	add(fallback.Bucket, fallback.Category)
	return revenue, cost
}

// rulesJSONSchema returns the JSON-Schema (draft 2020-12 subset) the rules
// file must satisfy.
func rulesJSONSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"keyword":  map[string]any{"type": "string", "minLength": 1},
				"bucket":   map[string]any{"type": "string", "enum": []string{string(constants.BucketRevenue), string(constants.BucketCost)}},
				"category": map[string]any{"type": "string", "minLength": 1},
			},
			"required": []string{"keyword", "bucket", "category"},
		},
	}
}

// LoadRules reads an ordered rules file (JSON array of keyword/bucket/
// category objects), validates it against the schema, and returns the table
// with keywords lowercased to match normalized labels.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules validates and decodes a rules document.
func ParseRules(raw []byte) ([]Rule, error) {
	if err := validateAgainstSchema(rulesJSONSchema(), raw); err != nil {
		return nil, err
	}

	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	for i := range rules {
		rules[i].Keyword = strings.ToLower(strings.TrimSpace(rules[i].Keyword))
	}
	return rules, nil
}

// validateAgainstSchema validates "data" against "schemaMap".
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rules do not match schema: %w", err)
	}
	return nil
}
