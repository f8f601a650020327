package domain

import "fmt"

// AmortizationUnit is the payment interval unit of an account.
type AmortizationUnit string

const (
	UnitDaily      AmortizationUnit = "D"
	UnitWeekly     AmortizationUnit = "W"
	UnitMonthly    AmortizationUnit = "M"
	UnitQuarterly  AmortizationUnit = "Q"
	UnitHalfYearly AmortizationUnit = "H"
	UnitYearly     AmortizationUnit = "Y"
)

// ParseAmortizationUnit validates a unit code.
func ParseAmortizationUnit(s string) (AmortizationUnit, error) {
	switch AmortizationUnit(s) {
	case UnitDaily, UnitWeekly, UnitMonthly, UnitQuarterly, UnitHalfYearly, UnitYearly:
		return AmortizationUnit(s), nil
	default:
		return "", fmt.Errorf("unknown amortization unit %q", s)
	}
}

// DaysPerPeriod returns the day count of one payment period under the
// given day-count convention (30/360 vs 30/365 differ for Q, H and Y).
func (u AmortizationUnit) DaysPerPeriod(dc DayCount) int {
	switch u {
	case UnitDaily:
		return 1
	case UnitWeekly:
		return 7
	case UnitMonthly:
		return 30
	case UnitQuarterly:
		if dc == DayCount365 {
			return 91
		}
		return 90
	case UnitHalfYearly:
		if dc == DayCount365 {
			return 182
		}
		return 180
	case UnitYearly:
		if dc == DayCount365 {
			return 365
		}
		return 360
	default:
		return 30
	}
}

// PeriodsPerYear returns how many payment periods fit in one year.
func (u AmortizationUnit) PeriodsPerYear() int {
	switch u {
	case UnitDaily:
		return 365
	case UnitWeekly:
		return 52
	case UnitMonthly:
		return 12
	case UnitQuarterly:
		return 4
	case UnitHalfYearly:
		return 2
	case UnitYearly:
		return 1
	default:
		return 12
	}
}

// MonthsPerPeriod returns the month-equivalent length of one period,
// used to express bucket ids as month offsets for discounting.
func (u AmortizationUnit) MonthsPerPeriod() float64 {
	switch u {
	case UnitDaily:
		return 1.0 / 30.0
	case UnitWeekly:
		return 7.0 / 30.0
	case UnitMonthly:
		return 1
	case UnitQuarterly:
		return 3
	case UnitHalfYearly:
		return 6
	case UnitYearly:
		return 12
	default:
		return 1
	}
}

// DayCount is the day-count convention of an account.
type DayCount string

const (
	DayCount360 DayCount = "30/360"
	DayCount365 DayCount = "30/365"
)

// Basis returns the annual day-count basis (360 or 365).
func (d DayCount) Basis() float64 {
	if d == DayCount365 {
		return 365
	}
	return 360
}

// ParseDayCount validates a day-count convention code.
func ParseDayCount(s string) (DayCount, error) {
	switch DayCount(s) {
	case DayCount360, DayCount365:
		return DayCount(s), nil
	default:
		return "", fmt.Errorf("unknown day count convention %q", s)
	}
}

// InterestMethod selects how per-period interest is computed.
type InterestMethod string

const (
	InterestSimple   InterestMethod = "SIMPLE"
	InterestCompound InterestMethod = "COMPOUND"
	InterestAnnuity  InterestMethod = "ANNUITY"
	InterestFloating InterestMethod = "FLOATING"
)

// ParseInterestMethod validates an interest method code.
func ParseInterestMethod(s string) (InterestMethod, error) {
	switch InterestMethod(s) {
	case InterestSimple, InterestCompound, InterestAnnuity, InterestFloating:
		return InterestMethod(s), nil
	default:
		return "", fmt.Errorf("unknown interest method %q", s)
	}
}

// CurveMethod selects the PD interpolation curve shape.
type CurveMethod string

const (
	CurvePoisson          CurveMethod = "POISSON"
	CurveGeometric        CurveMethod = "GEOMETRIC"
	CurveArithmetic       CurveMethod = "ARITHMETIC"
	CurveExponentialDecay CurveMethod = "EXPONENTIAL_DECAY"
)

// ParseCurveMethod validates a curve method name.
func ParseCurveMethod(s string) (CurveMethod, error) {
	switch CurveMethod(s) {
	case CurvePoisson, CurveGeometric, CurveArithmetic, CurveExponentialDecay:
		return CurveMethod(s), nil
	default:
		return "", fmt.Errorf("unknown curve method %q", s)
	}
}

// PDLevel is the scope at which PD interpolation runs.
type PDLevel string

const (
	PDLevelAccount       PDLevel = "ACCOUNT"
	PDLevelTermStructure PDLevel = "TERM_STRUCTURE"
)

// ParsePDLevel validates a PD interpolation level.
func ParsePDLevel(s string) (PDLevel, error) {
	switch PDLevel(s) {
	case PDLevelAccount, PDLevelTermStructure:
		return PDLevel(s), nil
	default:
		return "", fmt.Errorf("unknown PD level %q", s)
	}
}

// Methodology selects the ECL aggregation formula.
type Methodology string

const (
	MethodologyCashFlow        Methodology = "CASH_FLOW"
	MethodologyForwardExposure Methodology = "FORWARD_EXPOSURE"
	MethodologySimpleEAD       Methodology = "SIMPLE_EAD"
)

// ParseMethodology validates a methodology name. An unknown name is a
// configuration error and fatal for the whole run.
func ParseMethodology(s string) (Methodology, error) {
	switch Methodology(s) {
	case MethodologyCashFlow, MethodologyForwardExposure, MethodologySimpleEAD:
		return Methodology(s), nil
	default:
		return "", fmt.Errorf("unknown ECL methodology %q", s)
	}
}

// EADStrategy selects how exposure at default is computed.
type EADStrategy string

const (
	EADAccrual    EADStrategy = "ACCRUAL"
	EADCashflowPV EADStrategy = "CASHFLOW_PV"
)

// ParseEADStrategy validates an EAD strategy name.
func ParseEADStrategy(s string) (EADStrategy, error) {
	switch EADStrategy(s) {
	case EADAccrual, EADCashflowPV:
		return EADStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown EAD strategy %q", s)
	}
}

// TermStructureKind distinguishes rating-based from delinquency-based curves.
type TermStructureKind string

const (
	TermStructureRating      TermStructureKind = "R"
	TermStructureDelinquency TermStructureKind = "D"
)

// Granularity is the periodic granularity of a PD term structure.
type Granularity string

const (
	GranularityMonthly    Granularity = "M"
	GranularityQuarterly  Granularity = "Q"
	GranularityHalfYearly Granularity = "H"
	GranularityYearly     Granularity = "Y"
)

// PeriodsPerYear returns the number of PD buckets per year.
func (g Granularity) PeriodsPerYear() int {
	switch g {
	case GranularityMonthly:
		return 12
	case GranularityQuarterly:
		return 4
	case GranularityHalfYearly:
		return 2
	case GranularityYearly:
		return 1
	default:
		return 12
	}
}

// Stage is an IFRS9 stage. Lower values are more favorable; StageUnknown
// marks accounts whose inputs resolved to no mapping.
type Stage int

const (
	StageUnknown Stage = 0
	Stage1       Stage = 1
	Stage2       Stage = 2
	Stage3       Stage = 3
)

// WorseThan reports whether s is less favorable than other.
func (s Stage) WorseThan(other Stage) bool {
	return s > other
}

// AtLeastAsFavorable reports whether s is equal to or better than other.
func (s Stage) AtLeastAsFavorable(other Stage) bool {
	return s <= other
}

func (s Stage) String() string {
	switch s {
	case Stage1:
		return "STAGE_1"
	case Stage2:
		return "STAGE_2"
	case Stage3:
		return "STAGE_3"
	default:
		return "STAGE_UNKNOWN"
	}
}
