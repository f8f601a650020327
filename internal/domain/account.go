package domain

import "time"

// Account is one instrument snapshot for one as-of date.
// Corresponds to the accounts table in PostgreSQL.
// Identity key: (as_of_date, account_number).
type Account struct {
	AsOfDate      time.Time // reporting date (date precision)
	AccountNumber string
	CustomerName  string
	Currency      string // natural currency, ISO 4217

	OutstandingBalance float64  // contractual principal outstanding
	CarryingAmount     *float64 // book value (nullable)
	AccruedInterest    *float64 // pre-supplied accrued interest (nullable)

	InterestRate          float64        // nominal annual rate, percent
	EffectiveInterestRate *float64       // EIR, percent (nullable)
	DiscountRate          *float64       // fallback discount rate, percent (nullable)
	BaseRate              float64        // floating base, percent
	Margin                float64        // floating margin, percent
	InterestMethod        InterestMethod // SIMPLE | COMPOUND | ANNUITY | FLOATING

	StartDate       *time.Time // loan origination date (nullable)
	MaturityDate    *time.Time // contractual maturity (nullable)
	LastPaymentDate *time.Time // most recent payment (nullable)

	AmortizationUnit AmortizationUnit // D | W | M | Q | H | Y
	DayCount         DayCount         // 30/360 | 30/365
	Bullet           bool             // principal repaid at maturity only

	WithholdingTaxPct float64 // percent deducted from gross interest
	ManagementFeePct  float64 // percent of balance, charged per anniversary

	RatingCode      string // credit rating basis code
	DelinquencyBand string // delinquency band basis code
	DelinquentDays  int    // days past due

	TermStructureID string  // PD term-structure key for this segment
	LGDPercent      float64 // loss given default, percent

	CurrentStage Stage // effective stage carried from the stage engine
}

// ScheduleEntry is one row of an externally supplied payment schedule.
type ScheduleEntry struct {
	AsOfDate      time.Time
	AccountNumber string
	Date          time.Time
	Principal     float64
	Interest      float64
}
