package reporting

import (
	"fmt"
	"strings"
)

// RenderResultsCSV renders the per-account result rows as CSV string.
func RenderResultsCSV(rows []ResultRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("account_number,currency,stage,ead,twelve_month_pd,lifetime_pd,lgd,")
	sb.WriteString("ecl_12m,ecl_lifetime,ecl_applied,methodology\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.2f,%.6f,%.6f,%.4f,%.2f,%.2f,%.2f,%s\n",
			r.AccountNumber,
			r.Currency,
			r.Stage,
			r.EAD,
			r.TwelveMonthPD,
			r.LifetimePD,
			r.LGD,
			r.ECL12,
			r.ECLLifetime,
			r.ECLApplied,
			r.Methodology,
		))
	}

	return sb.String()
}

// RenderStageSummaryCSV renders the stage distribution as CSV string.
func RenderStageSummaryCSV(dist []StageDistributionRow) string {
	var sb strings.Builder

	sb.WriteString("stage,accounts,ead,ecl_applied,ead_share\n")
	for _, d := range dist {
		sb.WriteString(fmt.Sprintf("%s,%d,%.2f,%.2f,%.6f\n",
			d.Stage, d.Accounts, d.EAD, d.ECLApplied, d.EADShare))
	}

	return sb.String()
}
