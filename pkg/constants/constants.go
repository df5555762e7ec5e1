// Package constants provides shared constants for the loan-tracker application.
package constants

// DateLayout is the calendar date format used in stored records, config
// files and API payloads.
const DateLayout = "2006-01-02"

// Label layouts used for chart points.
const (
	// FullLabelLayout labels the origin point of a growth series.
	FullLabelLayout = "Jan 2, 2006"

	// ShortLabelLayout labels sampled points of a growth series.
	ShortLabelLayout = "Jan 2"
)

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DaysPerYear is the fixed actual/365 day-count divisor
	DaysPerYear = 365

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DailyRateDivisor turns percent-per-year times days into a fraction (365 * 100)
	DailyRateDivisor = DaysPerYear * PercentageMultiplier

	// MonthlyRateDivisor turns an annual percent into a monthly fraction (12 * 100)
	MonthlyRateDivisor = MonthsPerYear * PercentageMultiplier

	// CurrencyFraction is the number of minor-unit digits shown for amounts
	CurrencyFraction = 2

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PaidOffThreshold is the outstanding balance at or below which an EMI
	// loan is treated as fully repaid when backfilling installments
	PaidOffThreshold = 1.0

	// GrowthSampleCount is the approximate number of sampled points in a
	// daily-interest growth series
	GrowthSampleCount = 20
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Storage backend constants
const (
	// StorageBackendJSON keeps the collection in a single JSON document
	StorageBackendJSON = "json"

	// StorageBackendSQLite keeps the collection in a SQLite database
	StorageBackendSQLite = "sqlite"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "loan-tracker.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultDataFile is the default JSON storage location
	DefaultDataFile = "loan_records.json"

	// DefaultCurrency is the default ISO 4217 display currency
	DefaultCurrency = "INR"

	// EnvPrefix is the prefix for environment overrides of config keys
	EnvPrefix = "LOANTRACKER"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum backup upload size (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024
)
