package domain

import "time"

// InterpolatedPD is one bucket of a per-period default probability series.
// Scope is either (term_structure_id, basis_code) or account_number,
// selected by Level. Fully regenerated (delete-then-insert) per as-of date.
// Invariant: CumulativePD is non-decreasing in bucket id and bounded in [0,1].
type InterpolatedPD struct {
	AsOfDate        time.Time
	Level           PDLevel
	TermStructureID string // set when Level == PDLevelTermStructure
	BasisCode       string // rating code or delinquency band
	AccountNumber   string // set when Level == PDLevelAccount
	BucketID        int    // 1-based
	MarginalPD      float64
	CumulativePD    float64
}
