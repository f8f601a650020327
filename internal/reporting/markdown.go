package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# ECL Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("As-of date: %s | Run: %d | Methodology: %s\n\n",
		r.AsOfDate.Format("2006-01-02"), r.RunID, r.Summary.Methodology))

	// Portfolio Summary
	sb.WriteString("## Portfolio Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Accounts | %d |\n", r.Summary.Accounts))
	sb.WriteString(fmt.Sprintf("| Total EAD | %.2f |\n", r.Summary.TotalEAD))
	sb.WriteString(fmt.Sprintf("| Total 12-month ECL | %.2f |\n", r.Summary.TotalECL12))
	sb.WriteString(fmt.Sprintf("| Total lifetime ECL | %.2f |\n", r.Summary.TotalECLLifetime))
	sb.WriteString(fmt.Sprintf("| Applied allowance | %.2f |\n", r.Summary.TotalECLApplied))
	sb.WriteString(fmt.Sprintf("| Coverage ratio | %.4f |\n", r.Summary.CoverageRatio))
	sb.WriteString("\n")

	// Stage Distribution
	sb.WriteString("## Stage Distribution\n\n")
	if len(r.StageDistribution) > 0 {
		sb.WriteString("| Stage | Accounts | EAD | Applied ECL | EAD Share |\n")
		sb.WriteString("|-------|----------|-----|-------------|-----------|\n")
		for _, d := range r.StageDistribution {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f%% |\n",
				d.Stage, d.Accounts, d.EAD, d.ECLApplied, d.EADShare*100))
		}
	} else {
		sb.WriteString("No staged accounts.\n")
	}
	sb.WriteString("\n")

	// Account Results
	sb.WriteString("## Account Results\n\n")
	if len(r.Results) > 0 {
		sb.WriteString("| Account | Ccy | Stage | EAD | 12m PD | Lifetime PD | LGD | 12m ECL | Lifetime ECL | Applied |\n")
		sb.WriteString("|---------|-----|-------|-----|--------|-------------|-----|---------|--------------|--------|\n")
		for _, row := range r.Results {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.4f | %.4f | %.2f | %.2f | %.2f | %.2f |\n",
				row.AccountNumber, row.Currency, row.Stage,
				row.EAD, row.TwelveMonthPD, row.LifetimePD, row.LGD,
				row.ECL12, row.ECLLifetime, row.ECLApplied))
		}
	} else {
		sb.WriteString("No results available for this run.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
