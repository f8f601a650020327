// Package align joins interpolated PD series to account cash-flow
// timelines and pins the 12-month cumulative PD.
package align

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ifrs9-engine/internal/domain"
)

// Alignment errors.
var (
	// ErrNoPD marks an account with no matching interpolated PD series.
	// Missing-reference: the account is skipped and the run continues.
	ErrNoPD = errors.New("no interpolated PD series for account")

	// ErrNoBuckets marks an account without projected cash flows.
	ErrNoBuckets = errors.New("no cashflow buckets for account")
)

// TwelveMonthThreshold returns the number of buckets that cover the first
// 12 months for an account. For regular units this is the unit's periods
// per year (quarterly accounts need 4 buckets, yearly accounts need 1).
// Daily and weekly amortization degenerates under the integer arithmetic,
// so the threshold falls back to counting buckets dated within 365 days
// of the as-of date, never less than 1.
func TwelveMonthThreshold(unit domain.AmortizationUnit, buckets []*domain.CashflowBucket, asOf time.Time) int {
	switch unit {
	case domain.UnitMonthly, domain.UnitQuarterly, domain.UnitHalfYearly, domain.UnitYearly:
		return unit.PeriodsPerYear()
	}

	horizon := asOf.AddDate(1, 0, 0)
	n := 0
	for _, b := range buckets {
		if !b.Date.After(horizon) {
			n++
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Align produces one calc row per cash-flow bucket, carrying marginal and
// cumulative PD, the cumulative loss rate and the clamped 12-month
// cumulative PD. pdPeriodsPerYear is the granularity of the PD series,
// used to map account buckets onto PD buckets when the two differ.
func Align(acct *domain.Account, buckets []*domain.CashflowBucket, pdRows []*domain.InterpolatedPD, pdPeriodsPerYear int, runID int64, asOf time.Time) ([]*domain.CalcRow, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("account %s: %w", acct.AccountNumber, ErrNoBuckets)
	}
	if len(pdRows) == 0 {
		return nil, fmt.Errorf("account %s: %w", acct.AccountNumber, ErrNoPD)
	}

	threshold := TwelveMonthThreshold(acct.AmortizationUnit, buckets, asOf)
	monthsPerPeriod := acct.AmortizationUnit.MonthsPerPeriod()
	lgd := acct.LGDPercent / 100

	rows := make([]*domain.CalcRow, 0, len(buckets))
	for _, b := range buckets {
		monthOffset := float64(b.BucketID) * monthsPerPeriod
		pd := pdAt(pdRows, monthOffset, pdPeriodsPerYear)

		// Beyond the threshold the 12-month PD is pinned to the threshold
		// bucket's value: a clamp, not a continuation.
		clampedID := b.BucketID
		if clampedID > threshold {
			clampedID = threshold
		}
		clampedMonths := float64(clampedID) * monthsPerPeriod
		pd12 := pdAt(pdRows, clampedMonths, pdPeriodsPerYear)

		rows = append(rows, &domain.CalcRow{
			AsOfDate:           asOf,
			RunID:              runID,
			AccountNumber:      acct.AccountNumber,
			BucketID:           b.BucketID,
			Date:               b.Date,
			MonthOffset:        monthOffset,
			Currency:           b.Currency,
			CashFlowAmount:     b.TotalPayment,
			MarginalPD:         pd.MarginalPD,
			CumulativePD:       pd.CumulativePD,
			CumulativeLossRate: pd.CumulativePD * lgd,
			TwelveMonthCumPD:   pd12.CumulativePD,
			WithinTwelveMonths: b.BucketID <= threshold,
		})
	}
	return rows, nil
}

// pdAt maps a month offset onto the PD series bucket that covers it,
// clamping to the final bucket past the series horizon.
func pdAt(pdRows []*domain.InterpolatedPD, monthOffset float64, pdPeriodsPerYear int) *domain.InterpolatedPD {
	monthsPerPDBucket := 12.0 / float64(pdPeriodsPerYear)
	idx := int(math.Ceil(monthOffset/monthsPerPDBucket)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(pdRows) {
		idx = len(pdRows) - 1
	}
	return pdRows[idx]
}
