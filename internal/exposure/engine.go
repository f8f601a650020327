// Package exposure computes exposure at default and forward expected
// losses on calc rows.
package exposure

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ifrs9-engine/internal/domain"
)

// Exposure errors.
var (
	// ErrMissingCarryingAmount marks an account without a carrying amount
	// under the accrual strategy. The account is skipped, not failed.
	ErrMissingCarryingAmount = errors.New("missing carrying amount")

	// ErrNoRows marks an account without calc rows.
	ErrNoRows = errors.New("no calc rows for account")
)

// Apply fills EAD and forward-loss fields per the selected strategy and
// returns a new slice. Exactly one strategy is active per deployment;
// the two are never combined.
func Apply(rows []*domain.CalcRow, acct *domain.Account, strategy domain.EADStrategy, asOf time.Time) ([]*domain.CalcRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("account %s: %w", acct.AccountNumber, ErrNoRows)
	}

	var out []*domain.CalcRow
	switch strategy {
	case domain.EADAccrual:
		ead, err := accrualEAD(acct, asOf)
		if err != nil {
			return nil, err
		}
		out = withConstantEAD(rows, ead)
	case domain.EADCashflowPV:
		out = withCashflowPVEAD(rows)
	default:
		return nil, fmt.Errorf("unknown EAD strategy %q", strategy)
	}

	fillForwardLosses(out, acct.LGDPercent/100)
	return out, nil
}

// accrualEAD computes carrying amount plus accrued interest. Accrued
// interest is pre-supplied when available, otherwise derived as
// principal * (rate/100) * (daysSinceLastPayment / dayCountBasis).
func accrualEAD(acct *domain.Account, asOf time.Time) (float64, error) {
	if acct.CarryingAmount == nil {
		return 0, fmt.Errorf("account %s: %w", acct.AccountNumber, ErrMissingCarryingAmount)
	}

	accrued := 0.0
	if acct.AccruedInterest != nil {
		accrued = *acct.AccruedInterest
	} else if acct.LastPaymentDate != nil {
		days := asOf.Sub(*acct.LastPaymentDate).Hours() / 24
		if days > 0 {
			accrued = acct.OutstandingBalance * (acct.InterestRate / 100) * (days / acct.DayCount.Basis())
		}
	}
	return *acct.CarryingAmount + accrued, nil
}

// withConstantEAD stamps the same EAD on every bucket.
func withConstantEAD(rows []*domain.CalcRow, ead float64) []*domain.CalcRow {
	out := make([]*domain.CalcRow, 0, len(rows))
	for _, r := range rows {
		cp := *r
		cp.EAD = ead
		out = append(out, &cp)
	}
	return out
}

// withCashflowPVEAD sets each bucket's EAD to the present value of all
// remaining contractual cash flows from that bucket onward: a reverse
// cumulative sum ordered by bucket id descending.
func withCashflowPVEAD(rows []*domain.CalcRow) []*domain.CalcRow {
	out := make([]*domain.CalcRow, 0, len(rows))
	for _, r := range rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketID > out[j].BucketID })

	running := 0.0
	for _, r := range out {
		running += r.CashFlowAmount * r.DiscountFactor
		r.EAD = running
	}

	sort.Slice(out, func(i, j int) bool { return out[i].BucketID < out[j].BucketID })
	return out
}

// fillForwardLosses computes forward expected losses per bucket:
// EAD * marginal PD * LGD, with the 12-month variant accruing only up to
// the 12-month threshold.
func fillForwardLosses(rows []*domain.CalcRow, lgd float64) {
	for _, r := range rows {
		r.ForwardExpectedLoss = r.EAD * r.MarginalPD * lgd
		r.ForwardExpectedLossPV = r.ForwardExpectedLoss * r.DiscountFactor
		if r.WithinTwelveMonths {
			r.TwelveMonthForwardLoss = r.ForwardExpectedLoss
			r.TwelveMonthForwardLossPV = r.ForwardExpectedLossPV
		} else {
			r.TwelveMonthForwardLoss = 0
			r.TwelveMonthForwardLossPV = 0
		}
	}
}
