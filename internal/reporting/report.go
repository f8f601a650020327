package reporting

import (
	"time"

	"ifrs9-engine/internal/domain"
)

// Report is the portfolio ECL report for one completed run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	AsOfDate    time.Time
	RunID       int64

	// Portfolio totals
	Summary PortfolioSummary

	// Per-stage breakdown (sorted by stage)
	StageDistribution []StageDistributionRow

	// Per-account results (sorted by account number)
	Results []ResultRow
}

// PortfolioSummary contains portfolio-level totals.
type PortfolioSummary struct {
	Accounts         int
	TotalEAD         float64
	TotalECL12       float64
	TotalECLLifetime float64
	TotalECLApplied  float64 // stage-dependent allowance
	CoverageRatio    float64 // applied ECL / EAD
	Methodology      domain.Methodology
}

// StageDistributionRow is the breakdown for one stage.
type StageDistributionRow struct {
	Stage      domain.Stage
	Accounts   int
	EAD        float64
	ECLApplied float64
	EADShare   float64 // fraction of total EAD
}

// ResultRow is one account line of the report.
type ResultRow struct {
	AccountNumber string
	Currency      string
	Stage         domain.Stage
	EAD           float64
	TwelveMonthPD float64
	LifetimePD    float64
	LGD           float64
	ECL12         float64
	ECLLifetime   float64
	ECLApplied    float64
	Methodology   domain.Methodology
}

// appliedECL picks the allowance the stage prescribes: 12-month for
// stage 1, lifetime for stages 2 and 3. Unstaged accounts take the
// lifetime figure.
func appliedECL(stage domain.Stage, ecl12, eclLifetime float64) float64 {
	switch stage {
	case domain.Stage1:
		return ecl12
	case domain.Stage2, domain.Stage3:
		return eclLifetime
	default:
		return eclLifetime
	}
}
