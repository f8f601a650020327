package staging

import (
	"testing"
	"time"

	"ifrs9-engine/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestTransition_NoPriorRecordAcceptsComputed(t *testing.T) {
	rec := Transition(nil, domain.Stage2, day(0), 90)

	if rec.Stage != domain.Stage2 {
		t.Errorf("stage %v, expected Stage2", rec.Stage)
	}
	if rec.InCooling {
		t.Error("fresh record must not be cooling")
	}
}

func TestTransition_DowngradeStartsCooling(t *testing.T) {
	prev := &domain.StageRecord{
		AccountNumber: "ACC-1",
		AsOfDate:      day(0),
		Stage:         domain.Stage1,
	}

	rec := Transition(prev, domain.Stage2, day(1), 90)

	if rec.Stage != domain.Stage1 {
		t.Errorf("stage %v, expected previous Stage1 retained", rec.Stage)
	}
	if !rec.InCooling {
		t.Fatal("expected cooling to start")
	}
	if rec.TargetStage != domain.Stage2 {
		t.Errorf("target stage %v, expected Stage2", rec.TargetStage)
	}
	if rec.CoolingDays != 90 {
		t.Errorf("cooling days %d, expected 90", rec.CoolingDays)
	}
	if rec.CoolingStartDate == nil || !rec.CoolingStartDate.Equal(day(1)) {
		t.Errorf("cooling start %v, expected day 1", rec.CoolingStartDate)
	}
}

func TestTransition_RecoveryEndsCoolingImmediately(t *testing.T) {
	start := day(1)
	prev := &domain.StageRecord{
		AccountNumber:    "ACC-1",
		AsOfDate:         start,
		Stage:            domain.Stage1,
		TargetStage:      domain.Stage2,
		InCooling:        true,
		CoolingStartDate: &start,
		CoolingDays:      90,
	}

	// Day 30: improves back to Stage 1 -> cooling ends, Stage 1 effective.
	rec := Transition(prev, domain.Stage1, day(30), 90)

	if rec.Stage != domain.Stage1 {
		t.Errorf("stage %v, expected Stage1", rec.Stage)
	}
	if rec.InCooling {
		t.Error("cooling must end immediately on recovery")
	}
	if rec.CoolingStartDate != nil {
		t.Error("cooling fields must be reset")
	}
}

func TestTransition_CoolingExpiresAndDowngradeTakesEffect(t *testing.T) {
	start := day(1)
	prev := &domain.StageRecord{
		AccountNumber:    "ACC-2",
		AsOfDate:         start,
		Stage:            domain.Stage1,
		TargetStage:      domain.Stage2,
		InCooling:        true,
		CoolingStartDate: &start,
		CoolingDays:      90,
	}

	// Still Stage 2 past day 90: cooling switches off, Stage 2 effective.
	rec := Transition(prev, domain.Stage2, day(95), 90)

	if rec.Stage != domain.Stage2 {
		t.Errorf("stage %v, expected Stage2 after cooling expiry", rec.Stage)
	}
	if rec.InCooling {
		t.Error("cooling must end after the configured duration")
	}
}

func TestTransition_CoolingHoldsBeforeExpiry(t *testing.T) {
	start := day(1)
	prev := &domain.StageRecord{
		AccountNumber:    "ACC-2",
		AsOfDate:         start,
		Stage:            domain.Stage1,
		TargetStage:      domain.Stage2,
		InCooling:        true,
		CoolingStartDate: &start,
		CoolingDays:      90,
	}

	// Day 45, still worse: previous stage re-asserted, cooling carried on.
	rec := Transition(prev, domain.Stage2, day(45), 90)

	if rec.Stage != domain.Stage1 {
		t.Errorf("stage %v, expected conservative Stage1 re-asserted", rec.Stage)
	}
	if !rec.InCooling {
		t.Fatal("cooling must continue")
	}
	if rec.TargetStage != domain.Stage2 {
		t.Errorf("target %v, expected Stage2 carried forward", rec.TargetStage)
	}
	if rec.CoolingStartDate == nil || !rec.CoolingStartDate.Equal(start) {
		t.Error("cooling start date must carry forward unchanged")
	}
}

func TestTransition_FurtherDowngradeDuringCoolingHeld(t *testing.T) {
	start := day(1)
	prev := &domain.StageRecord{
		AccountNumber:    "ACC-3",
		AsOfDate:         start,
		Stage:            domain.Stage1,
		TargetStage:      domain.Stage2,
		InCooling:        true,
		CoolingStartDate: &start,
		CoolingDays:      90,
	}

	rec := Transition(prev, domain.Stage3, day(10), 90)

	if rec.Stage != domain.Stage1 {
		t.Errorf("stage %v, expected Stage1 held during cooling", rec.Stage)
	}
	if !rec.InCooling {
		t.Error("cooling must continue")
	}
}

func TestTransition_ImprovementWithoutCooling(t *testing.T) {
	prev := &domain.StageRecord{
		AccountNumber: "ACC-4",
		AsOfDate:      day(0),
		Stage:         domain.Stage2,
	}

	rec := Transition(prev, domain.Stage1, day(30), 90)

	if rec.Stage != domain.Stage1 {
		t.Errorf("stage %v, expected Stage1 accepted", rec.Stage)
	}
	if rec.InCooling {
		t.Error("improvement must not start cooling")
	}
}

func TestComputeStage_RatingTakesPriority(t *testing.T) {
	acct := &domain.Account{
		RatingCode:       "BB",
		AmortizationUnit: domain.UnitMonthly,
		DelinquentDays:   120,
	}
	ratings := []*domain.RatingStageMapping{{RatingCode: "BB", Stage: domain.Stage1}}
	thresholds := []*domain.DelinquencyThreshold{
		{Unit: domain.UnitMonthly, MinDays: 90, MaxDays: -1, Stage: domain.Stage3},
	}

	if got := ComputeStage(acct, ratings, thresholds); got != domain.Stage1 {
		t.Errorf("stage %v, expected rating mapping Stage1 to win", got)
	}
}

func TestComputeStage_DelinquencyFallback(t *testing.T) {
	thresholds := []*domain.DelinquencyThreshold{
		{Unit: domain.UnitMonthly, MinDays: 0, MaxDays: 30, Stage: domain.Stage1},
		{Unit: domain.UnitMonthly, MinDays: 31, MaxDays: 90, Stage: domain.Stage2},
		{Unit: domain.UnitMonthly, MinDays: 91, MaxDays: -1, Stage: domain.Stage3},
	}

	cases := []struct {
		days int
		want domain.Stage
	}{
		{0, domain.Stage1},
		{30, domain.Stage1},
		{31, domain.Stage2},
		{90, domain.Stage2},
		{91, domain.Stage3},
		{400, domain.Stage3},
	}
	for _, c := range cases {
		acct := &domain.Account{AmortizationUnit: domain.UnitMonthly, DelinquentDays: c.days}
		if got := ComputeStage(acct, nil, thresholds); got != c.want {
			t.Errorf("%d days: stage %v, expected %v", c.days, got, c.want)
		}
	}
}

func TestComputeStage_UnresolvableIsUnknown(t *testing.T) {
	acct := &domain.Account{
		RatingCode:       "ZZZ",
		AmortizationUnit: domain.UnitWeekly,
		DelinquentDays:   10,
	}
	thresholds := []*domain.DelinquencyThreshold{
		{Unit: domain.UnitMonthly, MinDays: 0, MaxDays: -1, Stage: domain.Stage1},
	}

	if got := ComputeStage(acct, nil, thresholds); got != domain.StageUnknown {
		t.Errorf("stage %v, expected StageUnknown", got)
	}
}
