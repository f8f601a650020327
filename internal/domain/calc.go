package domain

import "time"

// CalcRow is the per-bucket working record the pipeline converges on.
// One row per (as_of_date, run_id, account_number, bucket_id). Each stage
// fills its own field subset and returns a new slice; rows are persisted
// atomically per account between stage invocations.
type CalcRow struct {
	AsOfDate      time.Time
	RunID         int64
	AccountNumber string
	BucketID      int
	Date          time.Time
	MonthOffset   float64 // bucket position in month-equivalents from the as-of date
	Currency      string

	// Projection
	CashFlowAmount float64

	// Alignment (PD fields)
	MarginalPD         float64
	CumulativePD       float64
	CumulativeLossRate float64 // CumulativePD * LGD
	TwelveMonthCumPD   float64 // clamped at the 12-month threshold bucket
	WithinTwelveMonths bool    // bucket id at or below the 12-month threshold

	// Discounting
	DiscountRate   float64 // percent
	DiscountFactor float64

	ExpectedCashFlow        float64
	ExpectedCashFlowPV      float64
	TwelveMonthExpectedCF   float64
	TwelveMonthExpectedCFPV float64
	CashShortfall           float64
	CashShortfallPV         float64
	TwelveMonthShortfall    float64
	TwelveMonthShortfallPV  float64

	// Exposure
	EAD float64

	// Forward losses (forward_exposure methodology inputs)
	ForwardExpectedLoss      float64
	ForwardExpectedLossPV    float64
	TwelveMonthForwardLoss   float64
	TwelveMonthForwardLossPV float64
}
