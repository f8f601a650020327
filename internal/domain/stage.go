package domain

import "time"

// StageRecord is the IFRS9 stage state of an account at an as-of date,
// including the cooling-period hysteresis fields carried to the next
// as-of date. Corresponds to the stage_records table in PostgreSQL.
type StageRecord struct {
	AsOfDate      time.Time
	AccountNumber string

	Stage         Stage // effective stage for this as-of date
	PreviousStage Stage // effective stage at the prior as-of date
	TargetStage   Stage // computed stage held back while cooling

	InCooling        bool
	CoolingStartDate *time.Time
	CoolingDays      int // configured duration, days
}

// RatingStageMapping maps a credit rating code to a stage.
// Configuration entity.
type RatingStageMapping struct {
	RatingCode string
	Stage      Stage
}

// DelinquencyThreshold maps a delinquent-days range to a stage for a
// payment frequency. Thresholds with MaxDays < 0 are open-ended.
type DelinquencyThreshold struct {
	Unit    AmortizationUnit
	MinDays int
	MaxDays int // inclusive; -1 means no upper bound
	Stage   Stage
}

// CoolingDuration is the configured cooling period for an amortization
// unit, in days.
type CoolingDuration struct {
	Unit AmortizationUnit
	Days int
}

// StageFor returns the stage for a delinquent-days value, or StageUnknown
// when no threshold matches.
func StageForDelinquency(thresholds []DelinquencyThreshold, unit AmortizationUnit, days int) Stage {
	for _, t := range thresholds {
		if t.Unit != unit {
			continue
		}
		if days < t.MinDays {
			continue
		}
		if t.MaxDays >= 0 && days > t.MaxDays {
			continue
		}
		return t.Stage
	}
	return StageUnknown
}
