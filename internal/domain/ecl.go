package domain

import "time"

// ECLResult is one reporting line per (account, run). Immutable after
// creation; reporting-currency amounts start equal to the natural-currency
// amounts and are enriched by the external FX collaborator, never by the
// core. Corresponds to the ecl_results table in ClickHouse.
type ECLResult struct {
	AsOfDate      time.Time
	RunID         int64
	AccountNumber string

	Currency          string
	ReportingCurrency string

	ECL12                float64
	ECLLifetime          float64
	ECL12Reporting       float64
	ECLLifetimeReporting float64

	EAD           float64
	LifetimePD    float64
	TwelveMonthPD float64
	LGD           float64 // fraction

	Methodology Methodology
	CreatedAt   time.Time
}
