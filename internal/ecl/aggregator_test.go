package ecl

import (
	"errors"
	"math"
	"testing"
	"time"

	"ifrs9-engine/internal/domain"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func testAccount() *domain.Account {
	return &domain.Account{
		AccountNumber: "ACC-1",
		Currency:      "EUR",
		LGDPercent:    45,
	}
}

func completedRows() []*domain.CalcRow {
	rows := make([]*domain.CalcRow, 0, 4)
	for i := 1; i <= 4; i++ {
		rows = append(rows, &domain.CalcRow{
			RunID:                    7,
			AccountNumber:            "ACC-1",
			BucketID:                 i,
			EAD:                      10000,
			CumulativePD:             0.01 * float64(i),
			TwelveMonthCumPD:         0.01 * float64(min(i, 2)),
			CashShortfall:            100,
			CashShortfallPV:          95,
			TwelveMonthShortfall:     60,
			TwelveMonthShortfallPV:   57,
			ForwardExpectedLoss:      20,
			ForwardExpectedLossPV:    19,
			TwelveMonthForwardLoss:   10,
			TwelveMonthForwardLossPV: 9.5,
		})
	}
	return rows
}

func TestAggregate_CashFlow(t *testing.T) {
	res, err := Aggregate(completedRows(), testAccount(), domain.MethodologyCashFlow, true, testNow)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.ECLLifetime != 4*95 {
		t.Errorf("lifetime ECL %v, expected %v", res.ECLLifetime, 4*95)
	}
	if res.ECL12 != 4*57 {
		t.Errorf("12m ECL %v, expected %v", res.ECL12, 4*57)
	}

	// Without discounting the non-PV variants are summed.
	res, err = Aggregate(completedRows(), testAccount(), domain.MethodologyCashFlow, false, testNow)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.ECLLifetime != 4*100 {
		t.Errorf("undiscounted lifetime ECL %v, expected %v", res.ECLLifetime, 4*100)
	}
}

func TestAggregate_ForwardExposure(t *testing.T) {
	res, err := Aggregate(completedRows(), testAccount(), domain.MethodologyForwardExposure, true, testNow)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.ECLLifetime != 4*19 {
		t.Errorf("lifetime ECL %v, expected %v", res.ECLLifetime, 4*19)
	}
	if res.ECL12 != 4*9.5 {
		t.Errorf("12m ECL %v, expected %v", res.ECL12, 4*9.5)
	}
}

func TestAggregate_SimpleEADExact(t *testing.T) {
	// simple_ead with discounting disabled must satisfy
	// ECL = EAD * PD * LGD exactly, no bucket summation drift.
	rows := completedRows()
	res, err := Aggregate(rows, testAccount(), domain.MethodologySimpleEAD, false, testNow)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	wantLifetime := 10000 * 0.04 * 0.45
	want12 := 10000 * 0.02 * 0.45
	if math.Abs(res.ECLLifetime-wantLifetime) > 1e-12 {
		t.Errorf("lifetime ECL %v, expected exactly %v", res.ECLLifetime, wantLifetime)
	}
	if math.Abs(res.ECL12-want12) > 1e-12 {
		t.Errorf("12m ECL %v, expected exactly %v", res.ECL12, want12)
	}

	// The discounting flag never changes simple_ead.
	res2, err := Aggregate(rows, testAccount(), domain.MethodologySimpleEAD, true, testNow)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res2.ECLLifetime != res.ECLLifetime || res2.ECL12 != res.ECL12 {
		t.Error("simple_ead result changed with discounting flag")
	}
}

func TestAggregate_ResultMetadata(t *testing.T) {
	res, err := Aggregate(completedRows(), testAccount(), domain.MethodologyCashFlow, true, testNow)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if res.RunID != 7 {
		t.Errorf("run id %d, expected 7", res.RunID)
	}
	if res.EAD != 10000 {
		t.Errorf("EAD %v, expected 10000", res.EAD)
	}
	if res.LifetimePD != 0.04 {
		t.Errorf("lifetime PD %v, expected 0.04", res.LifetimePD)
	}
	if res.TwelveMonthPD != 0.02 {
		t.Errorf("12m PD %v, expected 0.02", res.TwelveMonthPD)
	}
	if res.ReportingCurrency != "EUR" || res.ECLLifetimeReporting != res.ECLLifetime {
		t.Error("reporting fields must mirror natural currency until FX enrichment")
	}
}

func TestAggregate_Errors(t *testing.T) {
	_, err := Aggregate(nil, testAccount(), domain.MethodologyCashFlow, true, testNow)
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	_, err = Aggregate(completedRows(), testAccount(), domain.Methodology("VAR"), true, testNow)
	if err == nil {
		t.Error("expected error for unknown methodology")
	}
}
