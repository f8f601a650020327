// Package ecl aggregates bucket-level figures into 12-month and lifetime
// expected credit losses per account.
package ecl

import (
	"errors"
	"fmt"
	"time"

	"ifrs9-engine/internal/domain"
)

// Aggregation errors.
var (
	// ErrNoRows marks an account with no calc rows to aggregate.
	ErrNoRows = errors.New("no calc rows to aggregate")
)

// Aggregate combines calc rows into one ECLResult under the configured
// methodology. The usesDiscounting flag switches between the PV and
// non-PV field variants for cash_flow and forward_exposure; simple_ead
// never discounts.
func Aggregate(rows []*domain.CalcRow, acct *domain.Account, methodology domain.Methodology, usesDiscounting bool, now time.Time) (*domain.ECLResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("account %s: %w", acct.AccountNumber, ErrNoRows)
	}

	last := rows[len(rows)-1]
	result := &domain.ECLResult{
		AsOfDate:          last.AsOfDate,
		RunID:             last.RunID,
		AccountNumber:     acct.AccountNumber,
		Currency:          acct.Currency,
		ReportingCurrency: acct.Currency, // enriched later by the FX collaborator
		EAD:               rows[0].EAD,
		LifetimePD:        last.CumulativePD,
		TwelveMonthPD:     maxTwelveMonthPD(rows),
		LGD:               acct.LGDPercent / 100,
		Methodology:       methodology,
		CreatedAt:         now,
	}

	switch methodology {
	case domain.MethodologyCashFlow:
		for _, r := range rows {
			if usesDiscounting {
				result.ECLLifetime += r.CashShortfallPV
				result.ECL12 += r.TwelveMonthShortfallPV
			} else {
				result.ECLLifetime += r.CashShortfall
				result.ECL12 += r.TwelveMonthShortfall
			}
		}
	case domain.MethodologyForwardExposure:
		for _, r := range rows {
			if usesDiscounting {
				result.ECLLifetime += r.ForwardExpectedLossPV
				result.ECL12 += r.TwelveMonthForwardLossPV
			} else {
				result.ECLLifetime += r.ForwardExpectedLoss
				result.ECL12 += r.TwelveMonthForwardLoss
			}
		}
	case domain.MethodologySimpleEAD:
		// Single formula against the account's final EAD/PD/LGD,
		// no bucket summation.
		result.ECLLifetime = result.EAD * result.LifetimePD * result.LGD
		result.ECL12 = result.EAD * result.TwelveMonthPD * result.LGD
	default:
		return nil, fmt.Errorf("unknown ECL methodology %q", methodology)
	}

	result.ECLLifetimeReporting = result.ECLLifetime
	result.ECL12Reporting = result.ECL12
	return result, nil
}

// maxTwelveMonthPD returns the pinned 12-month cumulative PD, which is
// the largest value in the series by the clamping invariant.
func maxTwelveMonthPD(rows []*domain.CalcRow) float64 {
	maxPD := 0.0
	for _, r := range rows {
		if r.TwelveMonthCumPD > maxPD {
			maxPD = r.TwelveMonthCumPD
		}
	}
	return maxPD
}
