// Package discount computes discount factors and expected cash-flow /
// shortfall fields on calc rows.
package discount

import (
	"math"

	"ifrs9-engine/internal/domain"
)

// Rate resolves the discount rate for an account: the effective interest
// rate when present, else the nominal discount rate, else zero.
func Rate(acct *domain.Account) float64 {
	if acct.EffectiveInterestRate != nil {
		return *acct.EffectiveInterestRate
	}
	if acct.DiscountRate != nil {
		return *acct.DiscountRate
	}
	return 0
}

// Apply fills the discount fields on every row and returns a new slice.
// The bucket position is taken from MonthOffset, so rows are discounted
// uniformly in month terms regardless of granularity.
//
//	discountFactor = 1 / (1 + rate/100)^(months/12)
func Apply(rows []*domain.CalcRow, acct *domain.Account) []*domain.CalcRow {
	rate := Rate(acct)
	lgd := acct.LGDPercent / 100

	out := make([]*domain.CalcRow, 0, len(rows))
	for _, r := range rows {
		cp := *r
		cp.DiscountRate = rate
		cp.DiscountFactor = 1 / math.Pow(1+rate/100, cp.MonthOffset/12)

		cf := cp.CashFlowAmount
		cp.ExpectedCashFlow = cf * (1 - cp.CumulativeLossRate)
		cp.ExpectedCashFlowPV = cp.ExpectedCashFlow * cp.DiscountFactor
		cp.TwelveMonthExpectedCF = cf * (1 - cp.TwelveMonthCumPD*lgd)
		cp.TwelveMonthExpectedCFPV = cp.TwelveMonthExpectedCF * cp.DiscountFactor

		cp.CashShortfall = cf - cp.ExpectedCashFlow
		cp.CashShortfallPV = cp.DiscountFactor * cp.CashShortfall
		cp.TwelveMonthShortfall = cf - cp.TwelveMonthExpectedCF
		cp.TwelveMonthShortfallPV = cp.DiscountFactor * cp.TwelveMonthShortfall

		out = append(out, &cp)
	}
	return out
}
