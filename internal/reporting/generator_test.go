package reporting

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
	"ifrs9-engine/internal/storage/memory"
)

var testAsOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
var testClock = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func seedStores(t *testing.T) (*memory.RunStore, *memory.ECLResultStore, *memory.StageStore, int64) {
	t.Helper()
	ctx := context.Background()

	runs := memory.NewRunStore()
	run, err := runs.Allocate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("allocate run: %v", err)
	}
	if err := runs.Complete(ctx, run.RunID, domain.RunStatusCompleted, ""); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	results := memory.NewECLResultStore()
	err = results.InsertBulk(ctx, []*domain.ECLResult{
		{
			AsOfDate:      testAsOf,
			RunID:         run.RunID,
			AccountNumber: "ACC-001",
			Currency:      "EUR",
			EAD:           100000,
			ECL12:         450,
			ECLLifetime:   900,
			TwelveMonthPD: 0.02,
			LifetimePD:    0.04,
			LGD:           0.45,
			Methodology:   domain.MethodologyCashFlow,
		},
		{
			AsOfDate:      testAsOf,
			RunID:         run.RunID,
			AccountNumber: "ACC-002",
			Currency:      "EUR",
			EAD:           50000,
			ECL12:         1200,
			ECLLifetime:   4800,
			TwelveMonthPD: 0.08,
			LifetimePD:    0.20,
			LGD:           0.60,
			Methodology:   domain.MethodologyCashFlow,
		},
	})
	if err != nil {
		t.Fatalf("insert results: %v", err)
	}

	stages := memory.NewStageStore()
	for _, rec := range []*domain.StageRecord{
		{AsOfDate: testAsOf, AccountNumber: "ACC-001", Stage: domain.Stage1},
		{AsOfDate: testAsOf, AccountNumber: "ACC-002", Stage: domain.Stage2},
	} {
		if err := stages.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert stage: %v", err)
		}
	}

	return runs, results, stages, run.RunID
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	runs, results, stages, runID := seedStores(t)

	gen := NewGenerator(runs, results, stages).
		WithClock(func() time.Time { return testClock })

	report, err := gen.Generate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if report.RunID != runID {
		t.Errorf("run id %d, want %d", report.RunID, runID)
	}
	if !report.GeneratedAt.Equal(testClock) {
		t.Errorf("generated at %v, want %v", report.GeneratedAt, testClock)
	}
	if report.Summary.Accounts != 2 {
		t.Errorf("accounts %d, want 2", report.Summary.Accounts)
	}
	if report.Summary.TotalEAD != 150000 {
		t.Errorf("total EAD %f, want 150000", report.Summary.TotalEAD)
	}

	// Stage 1 takes the 12-month figure, stage 2 the lifetime one.
	wantApplied := 450.0 + 4800.0
	if math.Abs(report.Summary.TotalECLApplied-wantApplied) > 1e-9 {
		t.Errorf("applied ECL %f, want %f", report.Summary.TotalECLApplied, wantApplied)
	}
	wantCoverage := wantApplied / 150000
	if math.Abs(report.Summary.CoverageRatio-wantCoverage) > 1e-9 {
		t.Errorf("coverage %f, want %f", report.Summary.CoverageRatio, wantCoverage)
	}

	if len(report.Results) != 2 {
		t.Fatalf("results %d, want 2", len(report.Results))
	}
	if report.Results[0].AccountNumber != "ACC-001" {
		t.Errorf("expected ACC-001 first, got %s", report.Results[0].AccountNumber)
	}
	if report.Results[0].ECLApplied != 450 {
		t.Errorf("ACC-001 applied %f, want 450", report.Results[0].ECLApplied)
	}
	if report.Results[1].ECLApplied != 4800 {
		t.Errorf("ACC-002 applied %f, want 4800", report.Results[1].ECLApplied)
	}

	if len(report.StageDistribution) != 2 {
		t.Fatalf("stage rows %d, want 2", len(report.StageDistribution))
	}
	if report.StageDistribution[0].Stage != domain.Stage1 {
		t.Errorf("expected stage 1 first, got %s", report.StageDistribution[0].Stage)
	}
	if math.Abs(report.StageDistribution[0].EADShare-100000.0/150000.0) > 1e-9 {
		t.Errorf("stage 1 EAD share %f", report.StageDistribution[0].EADShare)
	}
}

func TestGenerator_Generate_NoCompletedRun(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(memory.NewRunStore(), memory.NewECLResultStore(), memory.NewStageStore())

	_, err := gen.Generate(ctx, testAsOf)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerator_Generate_MissingStageRecord(t *testing.T) {
	ctx := context.Background()
	runs, results, _, runID := seedStores(t)

	// Empty stage store: accounts fall back to the unknown stage and the
	// conservative lifetime allowance.
	gen := NewGenerator(runs, results, memory.NewStageStore()).
		WithClock(func() time.Time { return testClock })

	report, err := gen.GenerateForRun(ctx, testAsOf, runID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, row := range report.Results {
		if row.Stage != domain.StageUnknown {
			t.Errorf("%s: stage %s, want %s", row.AccountNumber, row.Stage, domain.StageUnknown)
		}
		if row.ECLApplied != row.ECLLifetime {
			t.Errorf("%s: applied %f, want lifetime %f", row.AccountNumber, row.ECLApplied, row.ECLLifetime)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	rows := []ResultRow{
		{
			AccountNumber: "ACC-001",
			Currency:      "EUR",
			Stage:         domain.Stage1,
			EAD:           100000,
			TwelveMonthPD: 0.02,
			LifetimePD:    0.04,
			LGD:           0.45,
			ECL12:         450,
			ECLLifetime:   900,
			ECLApplied:    450,
			Methodology:   domain.MethodologyCashFlow,
		},
	}

	csv := RenderResultsCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "account_number,currency,stage,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "ACC-001,EUR,STAGE_1,100000.00") {
		t.Errorf("unexpected row: %s", lines[1])
	}
	if !strings.Contains(lines[1], "CASH_FLOW") {
		t.Errorf("expected methodology in row: %s", lines[1])
	}
}

func TestGenerator_WriteFiles(t *testing.T) {
	ctx := context.Background()
	runs, results, stages, _ := seedStores(t)

	gen := NewGenerator(runs, results, stages).
		WithClock(func() time.Time { return testClock })

	report, err := gen.Generate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	dir := t.TempDir()
	if err := gen.WriteFiles(report, dir); err != nil {
		t.Fatalf("write files: %v", err)
	}

	for _, name := range []string{"ecl_results.csv", "stage_summary.csv", "REPORT_ECL.md"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	md, _ := os.ReadFile(filepath.Join(dir, "REPORT_ECL.md"))
	if !strings.Contains(string(md), "## Stage Distribution") {
		t.Error("markdown missing stage distribution section")
	}
	if !strings.Contains(string(md), "2025-06-30") {
		t.Error("markdown missing as-of date")
	}
}
