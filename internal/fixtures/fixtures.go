// Package fixtures provides a small synthetic portfolio so the pipeline
// can run end-to-end without a database.
package fixtures

import (
	"context"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage/memory"
)

// Stores bundles the in-memory stores the demo portfolio loads into.
type Stores struct {
	Accounts       *memory.AccountStore
	Schedules      *memory.PaymentScheduleStore
	Cashflows      *memory.CashflowStore
	TermStructures *memory.TermStructureStore
	PDs            *memory.InterpolatedPDStore
	Calc           *memory.CalcStore
	Stages         *memory.StageStore
	StageConfig    *memory.StageConfigStore
	Runs           *memory.RunStore
	Results        *memory.ECLResultStore
	Facts          *memory.CalcFactStore
}

// NewStores creates one in-memory store of each kind.
func NewStores() *Stores {
	return &Stores{
		Accounts:       memory.NewAccountStore(),
		Schedules:      memory.NewPaymentScheduleStore(),
		Cashflows:      memory.NewCashflowStore(),
		TermStructures: memory.NewTermStructureStore(),
		PDs:            memory.NewInterpolatedPDStore(),
		Calc:           memory.NewCalcStore(),
		Stages:         memory.NewStageStore(),
		StageConfig:    memory.NewStageConfigStore(),
		Runs:           memory.NewRunStore(),
		Results:        memory.NewECLResultStore(),
		Facts:          memory.NewCalcFactStore(),
	}
}

// Load populates the stores with the demo portfolio for an as-of date.
func Load(ctx context.Context, s *Stores, asOf time.Time) error {
	if err := s.Accounts.ReplaceForDate(ctx, asOf, Accounts(asOf)); err != nil {
		return err
	}
	s.Schedules.Put(asOf, "DEMO-SCHED", ScheduleEntries(asOf))
	for _, ts := range TermStructures() {
		s.TermStructures.Put(ts)
	}
	s.StageConfig.SetRatingMappings(RatingMappings())
	s.StageConfig.SetDelinquencyThresholds(DelinquencyThresholds())
	s.StageConfig.SetCoolingDurations(CoolingDurations())
	return nil
}

func ptr[T any](v T) *T { return &v }

// Accounts returns the demo portfolio: an amortizing monthly loan, a
// quarterly bullet loan, a delinquent account and a schedule-fed account.
func Accounts(asOf time.Time) []*domain.Account {
	start := asOf.AddDate(-1, 0, 0)
	return []*domain.Account{
		{
			AsOfDate:           asOf,
			AccountNumber:      "DEMO-AMORT",
			CustomerName:       "Nordwind Logistics",
			Currency:           "EUR",
			OutstandingBalance: 240000,
			CarryingAmount:     ptr(236800.0),
			InterestRate:       5.5,
			InterestMethod:     domain.InterestSimple,
			StartDate:          ptr(start),
			MaturityDate:       ptr(asOf.AddDate(2, 0, 0)),
			AmortizationUnit:   domain.UnitMonthly,
			DayCount:           domain.DayCount360,
			RatingCode:         "A",
			TermStructureID:    "TS-CORP",
			LGDPercent:         45,
		},
		{
			AsOfDate:           asOf,
			AccountNumber:      "DEMO-BULLET",
			CustomerName:       "Meridian Estates",
			Currency:           "EUR",
			OutstandingBalance: 500000,
			CarryingAmount:     ptr(502400.0),
			AccruedInterest:    ptr(2400.0),
			InterestRate:       7,
			InterestMethod:     domain.InterestCompound,
			StartDate:          ptr(start),
			MaturityDate:       ptr(asOf.AddDate(3, 0, 0)),
			AmortizationUnit:   domain.UnitQuarterly,
			DayCount:           domain.DayCount360,
			Bullet:             true,
			RatingCode:         "BB",
			TermStructureID:    "TS-CORP",
			LGDPercent:         40,
		},
		{
			AsOfDate:           asOf,
			AccountNumber:      "DEMO-DELINQ",
			CustomerName:       "Helios Retail",
			Currency:           "EUR",
			OutstandingBalance: 80000,
			CarryingAmount:     ptr(81500.0),
			InterestRate:       9,
			InterestMethod:     domain.InterestSimple,
			StartDate:          ptr(start),
			MaturityDate:       ptr(asOf.AddDate(1, 0, 0)),
			AmortizationUnit:   domain.UnitMonthly,
			DayCount:           domain.DayCount365,
			DelinquencyBand:    "B2",
			DelinquentDays:     64,
			TermStructureID:    "TS-DELINQ",
			LGDPercent:         60,
		},
		{
			AsOfDate:           asOf,
			AccountNumber:      "DEMO-SCHED",
			CustomerName:       "Aster Components",
			Currency:           "EUR",
			OutstandingBalance: 90000,
			CarryingAmount:     ptr(89200.0),
			InterestRate:       6,
			InterestMethod:     domain.InterestSimple,
			StartDate:          ptr(start),
			MaturityDate:       ptr(asOf.AddDate(0, 9, 0)),
			AmortizationUnit:   domain.UnitQuarterly,
			DayCount:           domain.DayCount360,
			RatingCode:         "A",
			TermStructureID:    "TS-CORP",
			LGDPercent:         45,
		},
	}
}

// ScheduleEntries returns the explicit payment schedule for DEMO-SCHED:
// three quarterly installments supplied by the servicing system.
func ScheduleEntries(asOf time.Time) []*domain.ScheduleEntry {
	return []*domain.ScheduleEntry{
		{AsOfDate: asOf, AccountNumber: "DEMO-SCHED", Date: asOf.AddDate(0, 3, 0), Principal: 30000, Interest: 1350},
		{AsOfDate: asOf, AccountNumber: "DEMO-SCHED", Date: asOf.AddDate(0, 6, 0), Principal: 30000, Interest: 900},
		{AsOfDate: asOf, AccountNumber: "DEMO-SCHED", Date: asOf.AddDate(0, 9, 0), Principal: 30000, Interest: 450},
	}
}

// TermStructures returns a rating-keyed and a delinquency-keyed curve.
func TermStructures() []*domain.PDTermStructure {
	return []*domain.PDTermStructure{
		{
			ID:           "TS-CORP",
			Name:         "Corporate ratings",
			Kind:         domain.TermStructureRating,
			Granularity:  domain.GranularityMonthly,
			HorizonYears: 5,
			Inputs: []domain.PDInput{
				{TermStructureID: "TS-CORP", BasisCode: "A", AnnualPD: 0.015},
				{TermStructureID: "TS-CORP", BasisCode: "BB", AnnualPD: 0.055},
			},
		},
		{
			ID:           "TS-DELINQ",
			Name:         "Delinquency bands",
			Kind:         domain.TermStructureDelinquency,
			Granularity:  domain.GranularityMonthly,
			HorizonYears: 3,
			Inputs: []domain.PDInput{
				{TermStructureID: "TS-DELINQ", BasisCode: "B1", AnnualPD: 0.09},
				{TermStructureID: "TS-DELINQ", BasisCode: "B2", AnnualPD: 0.18},
			},
		},
	}
}

// RatingMappings maps the demo rating codes to stages.
func RatingMappings() []*domain.RatingStageMapping {
	return []*domain.RatingStageMapping{
		{RatingCode: "A", Stage: domain.Stage1},
		{RatingCode: "BB", Stage: domain.Stage2},
	}
}

// DelinquencyThresholds covers the demo payment frequencies.
func DelinquencyThresholds() []*domain.DelinquencyThreshold {
	return []*domain.DelinquencyThreshold{
		{Unit: domain.UnitMonthly, MinDays: 0, MaxDays: 30, Stage: domain.Stage1},
		{Unit: domain.UnitMonthly, MinDays: 31, MaxDays: 90, Stage: domain.Stage2},
		{Unit: domain.UnitMonthly, MinDays: 91, MaxDays: -1, Stage: domain.Stage3},
		{Unit: domain.UnitQuarterly, MinDays: 0, MaxDays: 90, Stage: domain.Stage1},
		{Unit: domain.UnitQuarterly, MinDays: 91, MaxDays: 180, Stage: domain.Stage2},
		{Unit: domain.UnitQuarterly, MinDays: 181, MaxDays: -1, Stage: domain.Stage3},
	}
}

// CoolingDurations returns the cooling period per payment frequency.
func CoolingDurations() []*domain.CoolingDuration {
	return []*domain.CoolingDuration{
		{Unit: domain.UnitMonthly, Days: 90},
		{Unit: domain.UnitQuarterly, Days: 180},
	}
}
