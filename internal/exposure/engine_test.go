package exposure

import (
	"errors"
	"math"
	"testing"
	"time"

	"ifrs9-engine/internal/domain"
)

var testAsOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func discountedRows(n int) []*domain.CalcRow {
	rows := make([]*domain.CalcRow, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, &domain.CalcRow{
			AccountNumber:      "ACC-1",
			BucketID:           i,
			MonthOffset:        float64(i),
			CashFlowAmount:     1000,
			DiscountFactor:     1 / math.Pow(1.005, float64(i)),
			MarginalPD:         0.004,
			WithinTwelveMonths: i <= 12,
		})
	}
	return rows
}

func TestApply_AccrualWithPreSuppliedInterest(t *testing.T) {
	carrying, accrued := 95000.0, 350.0
	acct := &domain.Account{
		AccountNumber:   "ACC-1",
		CarryingAmount:  &carrying,
		AccruedInterest: &accrued,
		LGDPercent:      45,
	}

	out, err := Apply(discountedRows(6), acct, domain.EADAccrual, testAsOf)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, r := range out {
		if r.EAD != 95350.0 {
			t.Errorf("bucket %d: EAD %v, expected 95350", r.BucketID, r.EAD)
		}
	}
}

func TestApply_AccrualComputesAccruedInterest(t *testing.T) {
	carrying := 100000.0
	lastPayment := testAsOf.AddDate(0, 0, -30)
	acct := &domain.Account{
		AccountNumber:      "ACC-1",
		CarryingAmount:     &carrying,
		OutstandingBalance: 100000,
		InterestRate:       6,
		DayCount:           domain.DayCount360,
		LastPaymentDate:    &lastPayment,
		LGDPercent:         45,
	}

	out, err := Apply(discountedRows(1), acct, domain.EADAccrual, testAsOf)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// 100000 * 6% * 30/360 = 500
	want := 100500.0
	if math.Abs(out[0].EAD-want) > 1e-9 {
		t.Errorf("EAD %v, expected %v", out[0].EAD, want)
	}
}

func TestApply_AccrualMissingCarryingAmountSkips(t *testing.T) {
	acct := &domain.Account{AccountNumber: "ACC-1"}

	_, err := Apply(discountedRows(1), acct, domain.EADAccrual, testAsOf)
	if !errors.Is(err, ErrMissingCarryingAmount) {
		t.Errorf("expected ErrMissingCarryingAmount, got %v", err)
	}
}

func TestApply_CashflowPVReverseCumulative(t *testing.T) {
	acct := &domain.Account{AccountNumber: "ACC-1", LGDPercent: 45}
	rows := discountedRows(3)

	out, err := Apply(rows, acct, domain.EADCashflowPV, testAsOf)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Bucket 3 holds only its own PV; bucket 1 holds the PV of all three.
	pv := func(i int) float64 { return rows[i].CashFlowAmount * rows[i].DiscountFactor }
	want3 := pv(2)
	want2 := pv(1) + pv(2)
	want1 := pv(0) + pv(1) + pv(2)

	if math.Abs(out[2].EAD-want3) > 1e-9 {
		t.Errorf("bucket 3 EAD %v, expected %v", out[2].EAD, want3)
	}
	if math.Abs(out[1].EAD-want2) > 1e-9 {
		t.Errorf("bucket 2 EAD %v, expected %v", out[1].EAD, want2)
	}
	if math.Abs(out[0].EAD-want1) > 1e-9 {
		t.Errorf("bucket 1 EAD %v, expected %v", out[0].EAD, want1)
	}

	// Output must come back ordered by bucket id ascending.
	for i, r := range out {
		if r.BucketID != i+1 {
			t.Fatalf("row %d: bucket id %d, expected %d", i, r.BucketID, i+1)
		}
	}
}

func TestApply_ForwardLossesRespectTwelveMonthCutoff(t *testing.T) {
	carrying := 50000.0
	acct := &domain.Account{AccountNumber: "ACC-1", CarryingAmount: &carrying, LGDPercent: 40}

	out, err := Apply(discountedRows(18), acct, domain.EADAccrual, testAsOf)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, r := range out {
		wantFEL := r.EAD * r.MarginalPD * 0.40
		if math.Abs(r.ForwardExpectedLoss-wantFEL) > 1e-9 {
			t.Errorf("bucket %d: forward loss %v, expected %v", r.BucketID, r.ForwardExpectedLoss, wantFEL)
		}
		if r.BucketID <= 12 {
			if r.TwelveMonthForwardLoss != r.ForwardExpectedLoss {
				t.Errorf("bucket %d: 12m forward loss should equal lifetime within threshold", r.BucketID)
			}
		} else if r.TwelveMonthForwardLoss != 0 {
			t.Errorf("bucket %d: 12m forward loss %v, expected 0 past threshold", r.BucketID, r.TwelveMonthForwardLoss)
		}
	}
}

func TestApply_NoRows(t *testing.T) {
	acct := &domain.Account{AccountNumber: "ACC-1"}
	_, err := Apply(nil, acct, domain.EADCashflowPV, testAsOf)
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}
