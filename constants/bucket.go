package constants

// Bucket is the top-level grouping of a ledger field.
type Bucket string

// Stable values (store these exact strings in config files and DB).
const (
	BucketRevenue Bucket = "revenue"
	BucketCost    Bucket = "cost"
)

// IsValid reports whether b is one of the known buckets.
func (b Bucket) IsValid() bool {
	return b == BucketRevenue || b == BucketCost
}

// Default field names. These mirror the spreadsheet columns the tool grew out
// of; the classifier rules file may introduce additional categories at runtime.
var (
	DefaultRevenueFields = []string{"Urbano", "Boraali", "App163", "OutrosReceita"}
	DefaultCostFields    = []string{"Energia", "Manuten", "Seguro", "Aplicativo", "OutrosCustos"}
)

// FallbackCategory is where unmatched free-text amounts land.
const (
	FallbackBucket   = BucketRevenue
	FallbackCategory = "OutrosReceita"
)
