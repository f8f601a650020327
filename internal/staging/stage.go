// Package staging assigns IFRS9 stages and stabilizes them with
// cooling-period hysteresis.
package staging

import (
	"ifrs9-engine/internal/domain"
)

// ComputeStage resolves the stage for an account. A configured rating
// mapping takes priority; otherwise the delinquent-days thresholds for
// the account's payment frequency apply. Unresolvable input yields
// StageUnknown, never a default.
func ComputeStage(acct *domain.Account, ratings []*domain.RatingStageMapping, thresholds []*domain.DelinquencyThreshold) domain.Stage {
	if acct.RatingCode != "" {
		for _, m := range ratings {
			if m.RatingCode == acct.RatingCode {
				return m.Stage
			}
		}
	}

	ts := make([]domain.DelinquencyThreshold, 0, len(thresholds))
	for _, t := range thresholds {
		ts = append(ts, *t)
	}
	return domain.StageForDelinquency(ts, acct.AmortizationUnit, acct.DelinquentDays)
}

// CoolingDaysFor looks up the cooling duration for an amortization unit.
// Returns 0 when the unit has no configured duration.
func CoolingDaysFor(durations []*domain.CoolingDuration, unit domain.AmortizationUnit) int {
	for _, d := range durations {
		if d.Unit == unit {
			return d.Days
		}
	}
	return 0
}
