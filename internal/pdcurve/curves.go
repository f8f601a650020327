// Package pdcurve interpolates annual default probabilities into
// per-bucket marginal and cumulative series.
package pdcurve

import (
	"errors"
	"fmt"
	"math"

	"ifrs9-engine/internal/domain"
)

// Interpolation errors.
var (
	ErrInvalidAnnualPD = errors.New("annual PD outside [0,1]")
	ErrInvalidBuckets  = errors.New("bucket count must be positive")
)

// Point is one bucket of an interpolated series.
type Point struct {
	BucketID   int
	Marginal   float64
	Cumulative float64
}

// Interpolate produces totalBuckets points for an annual PD at the given
// granularity. Cumulative PD is non-decreasing and capped at 1 for every
// curve shape. The exponential-decay curve may terminate early once the
// remaining population is depleted.
func Interpolate(method domain.CurveMethod, annualPD float64, periodsPerYear, totalBuckets int) ([]Point, error) {
	if annualPD < 0 || annualPD > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnnualPD, annualPD)
	}
	if totalBuckets < 1 || periodsPerYear < 1 {
		return nil, ErrInvalidBuckets
	}

	switch method {
	case domain.CurvePoisson:
		return constantMarginal(poissonMarginal(annualPD, periodsPerYear), totalBuckets), nil
	case domain.CurveGeometric:
		return constantMarginal(geometricMarginal(annualPD, periodsPerYear), totalBuckets), nil
	case domain.CurveArithmetic:
		return constantMarginal(annualPD/float64(periodsPerYear), totalBuckets), nil
	case domain.CurveExponentialDecay:
		return exponentialDecay(annualPD, periodsPerYear, totalBuckets), nil
	default:
		return nil, fmt.Errorf("unknown curve method %q", method)
	}
}

// poissonMarginal derives the hazard-rate per-period PD:
// 1 - exp(ln(1 - annualPD) / periodsPerYear).
func poissonMarginal(annualPD float64, periodsPerYear int) float64 {
	if annualPD >= 1 {
		return 1
	}
	return 1 - math.Exp(math.Log(1-annualPD)/float64(periodsPerYear))
}

// geometricMarginal derives (1 + annualPD)^(1/periodsPerYear) - 1.
func geometricMarginal(annualPD float64, periodsPerYear int) float64 {
	return math.Pow(1+annualPD, 1/float64(periodsPerYear)) - 1
}

// constantMarginal builds a series with a fixed marginal, compounding the
// cumulative as 1 - (1-cum)(1-marginal).
func constantMarginal(marginal float64, totalBuckets int) []Point {
	points := make([]Point, 0, totalBuckets)
	cumulative := 0.0
	for i := 1; i <= totalBuckets; i++ {
		cumulative = 1 - (1-cumulative)*(1-marginal)
		if cumulative > 1 {
			cumulative = 1
		}
		points = append(points, Point{BucketID: i, Marginal: marginal, Cumulative: cumulative})
	}
	return points
}

// exponentialDecay models population depletion: the per-period rate is
// applied to the surviving population, whose share shrinks every bucket.
// The loop terminates early once the remaining population reaches zero.
func exponentialDecay(annualPD float64, periodsPerYear, totalBuckets int) []Point {
	periodRate := 1 - math.Pow(1-annualPD, 1/float64(periodsPerYear))

	points := make([]Point, 0, totalBuckets)
	remaining := 1.0
	cumulative := 0.0
	for i := 1; i <= totalBuckets; i++ {
		if remaining <= 0 {
			break
		}
		marginal := remaining * periodRate
		cumulative += marginal
		if cumulative > 1 {
			cumulative = 1
		}
		remaining -= marginal
		points = append(points, Point{BucketID: i, Marginal: marginal, Cumulative: cumulative})
	}
	return points
}
