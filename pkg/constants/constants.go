// Package constants provides shared constants for the auto-loan calculator.
package constants

// DateTimeLayout is the YYYY-MM format used for schedule date labels.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxRequestSizeBytes int64 = 256 * 1024
)

// Validation thresholds used when generating configuration warnings. Warnings
// never reject a calculation; input sanity is a policy concern above the core.
const (
	// ImplausibleRateThreshold is the annual rate (percent) above which a
	// warning is emitted.
	ImplausibleRateThreshold = 30.0

	// MaxReasonableTermMonths is the term length above which a warning is
	// emitted.
	MaxReasonableTermMonths = 120
)
