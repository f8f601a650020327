package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// Generator produces reports from stored run results.
type Generator struct {
	runs    storage.RunStore
	results storage.ECLResultStore
	stages  storage.StageStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.RunStore,
	resultStore storage.ECLResultStore,
	stageStore storage.StageStore,
) *Generator {
	return &Generator{
		runs:    runStore,
		results: resultStore,
		stages:  stageStore,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for the latest completed run of an as-of
// date. Returns storage.ErrNotFound when no run has completed.
func (g *Generator) Generate(ctx context.Context, asOf time.Time) (*Report, error) {
	run, err := g.runs.GetLatestCompleted(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve latest completed run: %w", err)
	}
	return g.GenerateForRun(ctx, asOf, run.RunID)
}

// GenerateForRun builds the report for a specific run id.
func (g *Generator) GenerateForRun(ctx context.Context, asOf time.Time, runID int64) (*Report, error) {
	results, err := g.results.GetByRun(ctx, asOf, runID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	stageByAccount, err := g.loadStages(ctx, asOf)
	if err != nil {
		return nil, err
	}

	rows := make([]ResultRow, 0, len(results))
	for _, r := range results {
		stage, ok := stageByAccount[r.AccountNumber]
		if !ok {
			stage = domain.StageUnknown
		}
		rows = append(rows, ResultRow{
			AccountNumber: r.AccountNumber,
			Currency:      r.Currency,
			Stage:         stage,
			EAD:           r.EAD,
			TwelveMonthPD: r.TwelveMonthPD,
			LifetimePD:    r.LifetimePD,
			LGD:           r.LGD,
			ECL12:         r.ECL12,
			ECLLifetime:   r.ECLLifetime,
			ECLApplied:    appliedECL(stage, r.ECL12, r.ECLLifetime),
			Methodology:   r.Methodology,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AccountNumber < rows[j].AccountNumber
	})

	report := &Report{
		GeneratedAt:       g.now(),
		AsOfDate:          asOf,
		RunID:             runID,
		Summary:           summarize(rows),
		StageDistribution: distribute(rows),
		Results:           rows,
	}
	return report, nil
}

// WriteFiles renders the report and writes ecl_results.csv,
// stage_summary.csv and REPORT_ECL.md into dir.
func (g *Generator) WriteFiles(report *Report, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	resultsPath := filepath.Join(dir, "ecl_results.csv")
	if err := os.WriteFile(resultsPath, []byte(RenderResultsCSV(report.Results)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", resultsPath, err)
	}

	stagePath := filepath.Join(dir, "stage_summary.csv")
	if err := os.WriteFile(stagePath, []byte(RenderStageSummaryCSV(report.StageDistribution)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", stagePath, err)
	}

	mdPath := filepath.Join(dir, "REPORT_ECL.md")
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(report)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	return nil
}

func (g *Generator) loadStages(ctx context.Context, asOf time.Time) (map[string]domain.Stage, error) {
	records, err := g.stages.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load stage records: %w", err)
	}
	stages := make(map[string]domain.Stage, len(records))
	for _, rec := range records {
		stages[rec.AccountNumber] = rec.Stage
	}
	return stages, nil
}

func summarize(rows []ResultRow) PortfolioSummary {
	s := PortfolioSummary{Accounts: len(rows)}
	for _, r := range rows {
		s.TotalEAD += r.EAD
		s.TotalECL12 += r.ECL12
		s.TotalECLLifetime += r.ECLLifetime
		s.TotalECLApplied += r.ECLApplied
		s.Methodology = r.Methodology
	}
	if s.TotalEAD > 0 {
		s.CoverageRatio = s.TotalECLApplied / s.TotalEAD
	}
	return s
}

func distribute(rows []ResultRow) []StageDistributionRow {
	byStage := make(map[domain.Stage]*StageDistributionRow)
	totalEAD := 0.0
	for _, r := range rows {
		totalEAD += r.EAD
		d, ok := byStage[r.Stage]
		if !ok {
			d = &StageDistributionRow{Stage: r.Stage}
			byStage[r.Stage] = d
		}
		d.Accounts++
		d.EAD += r.EAD
		d.ECLApplied += r.ECLApplied
	}

	dist := make([]StageDistributionRow, 0, len(byStage))
	for _, d := range byStage {
		if totalEAD > 0 {
			d.EADShare = d.EAD / totalEAD
		}
		dist = append(dist, *d)
	}
	sort.Slice(dist, func(i, j int) bool { return dist[i].Stage < dist[j].Stage })
	return dist
}
