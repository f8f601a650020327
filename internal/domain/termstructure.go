package domain

// PDTermStructure is a configured PD curve, keyed by rating (kind R) or
// delinquency band (kind D). Configuration entity, never mutated by the
// engine.
type PDTermStructure struct {
	ID           string
	Name         string
	Kind         TermStructureKind // R | D
	Granularity  Granularity       // M | Q | H | Y
	HorizonYears int               // lifetime horizon cap
	Inputs       []PDInput         // one per credit-risk basis code
}

// PDInput is the annual PD for one basis code (rating or band) within a
// term structure. AnnualPD is a fraction in [0,1].
type PDInput struct {
	TermStructureID string
	BasisCode       string
	AnnualPD        float64
}

// InputFor returns the annual PD input for a basis code.
func (ts *PDTermStructure) InputFor(basisCode string) (PDInput, bool) {
	for _, in := range ts.Inputs {
		if in.BasisCode == basisCode {
			return in, true
		}
	}
	return PDInput{}, false
}
