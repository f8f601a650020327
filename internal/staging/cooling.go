package staging

import (
	"time"

	"ifrs9-engine/internal/domain"
)

// Transition applies the cooling-period hysteresis to a freshly computed
// stage, given the most recent prior record for the account. It is a
// pure function: the outcome depends only on (previous stage, previous
// cooling state, computed stage, elapsed days).
//
// Rules:
//  1. No prior record: the computed stage is accepted as-is.
//  2. Previously cooling, recovered to a stage at least as favorable as
//     the pre-cooling stage: cooling ends immediately, computed accepted.
//  3. Previously cooling, still worse: once elapsed days reach the
//     configured duration cooling ends and the computed stage becomes
//     effective; before that, the previous stage is re-asserted.
//  4. Not cooling, computed worse than previous: a new cooling period
//     starts and the previous stage remains in force.
func Transition(prev *domain.StageRecord, computed domain.Stage, asOf time.Time, coolingDays int) *domain.StageRecord {
	rec := &domain.StageRecord{
		AsOfDate: asOf,
	}

	// Rule 1: first observation.
	if prev == nil {
		rec.Stage = computed
		rec.PreviousStage = computed
		return rec
	}

	rec.AccountNumber = prev.AccountNumber
	rec.PreviousStage = prev.Stage

	if prev.InCooling {
		// Rule 2: recovery at least as favorable as the pre-cooling stage.
		if computed.AtLeastAsFavorable(prev.Stage) {
			rec.Stage = computed
			return rec
		}

		// Rule 3: still worse; check the dwell time.
		elapsed := 0
		if prev.CoolingStartDate != nil {
			elapsed = int(asOf.Sub(*prev.CoolingStartDate).Hours() / 24)
		}
		if elapsed >= prev.CoolingDays {
			rec.Stage = computed
			return rec
		}

		// Cooling continues: the previous stage is re-asserted and the
		// computed stage is discarded for this run.
		rec.Stage = prev.Stage
		rec.TargetStage = prev.TargetStage
		rec.InCooling = true
		rec.CoolingStartDate = prev.CoolingStartDate
		rec.CoolingDays = prev.CoolingDays
		return rec
	}

	// Rule 4: fresh downgrade opens a cooling period.
	if computed.WorseThan(prev.Stage) {
		start := asOf
		rec.Stage = prev.Stage
		rec.TargetStage = computed
		rec.InCooling = true
		rec.CoolingStartDate = &start
		rec.CoolingDays = coolingDays
		return rec
	}

	// Equal or improved without a cooling period in flight.
	rec.Stage = computed
	return rec
}
