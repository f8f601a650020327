// Package cashflow projects future payment buckets for accounts.
package cashflow

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ifrs9-engine/internal/domain"
)

// Projection errors.
var (
	// ErrMissingDates marks an account without start or maturity date.
	// The account is skipped with a warning, never failed.
	ErrMissingDates = errors.New("missing start or maturity date")
)

// Project builds the ordered bucket sequence for an account as of asOf.
// When schedule is non-empty the buckets are taken directly from it;
// otherwise payments are derived from the amortization term unit, the
// day-count convention and the configured interest method.
func Project(acct *domain.Account, schedule []*domain.ScheduleEntry, asOf time.Time) ([]*domain.CashflowBucket, error) {
	if len(schedule) > 0 {
		return fromSchedule(acct, schedule, asOf), nil
	}
	return fromTerms(acct, asOf)
}

// fromSchedule converts an explicit payment schedule into buckets,
// tracking the running balance. No amortization math needed.
func fromSchedule(acct *domain.Account, schedule []*domain.ScheduleEntry, asOf time.Time) []*domain.CashflowBucket {
	balance := acct.OutstandingBalance
	buckets := make([]*domain.CashflowBucket, 0, len(schedule))

	id := 0
	for _, e := range schedule {
		if e.Date.Before(asOf) {
			continue
		}
		id++
		balance -= e.Principal
		if balance < 0 {
			balance = 0
		}
		buckets = append(buckets, &domain.CashflowBucket{
			AsOfDate:      asOf,
			AccountNumber: acct.AccountNumber,
			BucketID:      id,
			Date:          e.Date,
			Principal:     e.Principal,
			Interest:      e.Interest,
			TotalPayment:  e.Principal + e.Interest,
			Balance:       balance,
			Currency:      acct.Currency,
		})
	}
	return buckets
}

// fromTerms derives the bucket sequence from the account's contractual
// terms.
func fromTerms(acct *domain.Account, asOf time.Time) ([]*domain.CashflowBucket, error) {
	if acct.StartDate == nil || acct.MaturityDate == nil {
		return nil, fmt.Errorf("account %s: %w", acct.AccountNumber, ErrMissingDates)
	}

	daysPerPeriod := acct.AmortizationUnit.DaysPerPeriod(acct.DayCount)
	daysToMaturity := daysBetween(asOf, *acct.MaturityDate)
	if daysToMaturity <= 0 {
		return nil, nil // matured, nothing to project
	}

	periods := int(math.Ceil(float64(daysToMaturity) / float64(daysPerPeriod)))
	if periods < 1 {
		periods = 1
	}

	balance := acct.OutstandingBalance
	installment := 0.0
	if !acct.Bullet {
		installment = balance / float64(periods)
	}

	periodFraction := float64(daysPerPeriod) / acct.DayCount.Basis()

	// Level payment for the annuity method, solved from the remaining periods.
	annuityPayment := 0.0
	if acct.InterestMethod == domain.InterestAnnuity && !acct.Bullet {
		annuityPayment = levelPayment(balance, periodicRate(acct)*periodFraction, periods)
	}

	buckets := make([]*domain.CashflowBucket, 0, periods)
	for i := 1; i <= periods; i++ {
		date := asOf.AddDate(0, 0, i*daysPerPeriod)
		if date.After(*acct.MaturityDate) {
			date = *acct.MaturityDate
		}

		interest := periodInterest(acct, balance, periodFraction, annuityPayment)

		principal := installment
		if acct.InterestMethod == domain.InterestAnnuity && !acct.Bullet {
			principal = annuityPayment - interest
		}
		if acct.Bullet {
			principal = 0
		}
		if i == periods {
			principal = balance // absorb rounding residue, bullet repays here
		}
		if principal > balance {
			principal = balance
		}

		// Withholding tax is deducted from gross interest before recording.
		if acct.WithholdingTaxPct > 0 {
			interest -= interest * acct.WithholdingTaxPct / 100
		}

		// Management fee applies once per anniversary of the start date.
		prevDate := asOf.AddDate(0, 0, (i-1)*daysPerPeriod)
		if acct.ManagementFeePct > 0 && coversAnniversary(*acct.StartDate, prevDate, date) {
			interest += balance * acct.ManagementFeePct / 100
		}

		balance -= principal
		if balance < 0 {
			balance = 0
		}

		buckets = append(buckets, &domain.CashflowBucket{
			AsOfDate:      asOf,
			AccountNumber: acct.AccountNumber,
			BucketID:      i,
			Date:          date,
			Principal:     principal,
			Interest:      interest,
			TotalPayment:  principal + interest,
			Balance:       balance,
			Currency:      acct.Currency,
		})
	}
	return buckets, nil
}

// periodInterest computes interest for one period on the current balance.
func periodInterest(acct *domain.Account, balance, periodFraction, annuityPayment float64) float64 {
	rate := periodicRate(acct)
	switch acct.InterestMethod {
	case domain.InterestCompound:
		return balance * (math.Pow(1+rate, periodFraction) - 1)
	case domain.InterestAnnuity:
		return balance * rate * periodFraction
	case domain.InterestFloating:
		return balance * (acct.BaseRate + acct.Margin) / 100 * periodFraction
	default: // simple
		return balance * rate * periodFraction
	}
}

// periodicRate returns the annual rate as a fraction.
func periodicRate(acct *domain.Account) float64 {
	return acct.InterestRate / 100
}

// levelPayment solves the annuity payment for a per-period rate r over n
// periods.
func levelPayment(balance, r float64, n int) float64 {
	if r == 0 {
		return balance / float64(n)
	}
	return balance * r / (1 - math.Pow(1+r, -float64(n)))
}

// coversAnniversary reports whether an anniversary of start falls within
// (prev, current].
func coversAnniversary(start, prev, current time.Time) bool {
	for y := prev.Year(); y <= current.Year(); y++ {
		anniv := time.Date(y, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if anniv.After(prev) && !anniv.After(current) {
			return true
		}
	}
	return false
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
