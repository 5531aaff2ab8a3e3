package empirical

import (
	"fmt"
	"math"
)

// IECDFMethod selects the quantile estimator used for the inverse
// empirical CDF. These are the nine standard quantile types, differing
// only in their plotting-position constants.
type IECDFMethod string

const (
	IECDFInvertedCDF             IECDFMethod = "inverted_cdf"
	IECDFAveragedInvertedCDF     IECDFMethod = "averaged_inverted_cdf"
	IECDFClosestObservation      IECDFMethod = "closest_observation"
	IECDFInterpolatedInvertedCDF IECDFMethod = "interpolated_inverted_cdf"
	IECDFHazen                   IECDFMethod = "hazen"
	IECDFWeibull                 IECDFMethod = "weibull"
	IECDFLinear                  IECDFMethod = "linear"
	IECDFMedianUnbiased          IECDFMethod = "median_unbiased"
	IECDFNormalUnbiased          IECDFMethod = "normal_unbiased"
)

// plotting positions (alpha, beta) for the continuous estimators
var iecdfPositions = map[IECDFMethod][2]float64{
	IECDFInterpolatedInvertedCDF: {0., 1.},
	IECDFHazen:                   {.5, .5},
	IECDFWeibull:                 {0., 0.},
	IECDFLinear:                  {1., 1.},
	IECDFMedianUnbiased:          {1. / 3., 1. / 3.},
	IECDFNormalUnbiased:          {3. / 8., 3. / 8.},
}

// IECDF evaluates the empirical quantile function of x at the
// probabilities p.
func IECDF(x, p []float64, method IECDFMethod) ([]float64, error) {
	if len(x) == 0 {
		return nil, errEmptySample
	}
	for _, pi := range p {
		if pi < 0. || pi > 1. || math.IsNaN(pi) {
			return nil, fmt.Errorf("empirical: probability %v outside [0,1]", pi)
		}
	}
	xs := sortedCopy(x)
	n := len(xs)
	q := make([]float64, len(p))
	switch method {
	case IECDFInvertedCDF:
		for i, pi := range p {
			j := int(math.Ceil(pi * float64(n)))
			q[i] = xs[clampIdx(j, n)-1]
		}
	case IECDFAveragedInvertedCDF:
		for i, pi := range p {
			h := pi * float64(n)
			j := int(math.Floor(h))
			if h == math.Floor(h) && j >= 1 && j < n {
				q[i] = .5 * (xs[j-1] + xs[j])
			} else {
				q[i] = xs[clampIdx(int(math.Ceil(h)), n)-1]
			}
		}
	case IECDFClosestObservation:
		for i, pi := range p {
			h := pi*float64(n) - .5
			j := int(math.Floor(h))
			if h == math.Floor(h) && j%2 == 0 {
				q[i] = xs[clampIdx(j, n)-1]
			} else {
				q[i] = xs[clampIdx(j+1, n)-1]
			}
		}
	default:
		ab, ok := iecdfPositions[method]
		if !ok {
			return nil, fmt.Errorf("empirical: unknown iecdf method %q", method)
		}
		alpha, beta := ab[0], ab[1]
		for i, pi := range p {
			h := pi*(float64(n)-alpha-beta+1.) + alpha // 1-based virtual index
			switch {
			case h <= 1.:
				q[i] = xs[0]
			case h >= float64(n):
				q[i] = xs[n-1]
			default:
				j := int(math.Floor(h))
				g := h - float64(j)
				q[i] = xs[j-1] + g*(xs[j]-xs[j-1])
			}
		}
	}
	return q, nil
}

func clampIdx(j, n int) int {
	if j < 1 {
		return 1
	}
	if j > n {
		return n
	}
	return j
}

// DefaultCDFThreshold is the clamp applied to CDF values before
// inversion when no sample-size derived threshold is specified.
const DefaultCDFThreshold = 1e-10

// ThresholdCDFVals clamps probabilities into [threshold, 1-threshold]
// so that inverse CDFs stay finite at the extremes. A non-positive
// threshold selects DefaultCDFThreshold.
func ThresholdCDFVals(p []float64, threshold float64) []float64 {
	if threshold <= 0. {
		threshold = DefaultCDFThreshold
	}
	out := make([]float64, len(p))
	for i, pi := range p {
		out[i] = math.Max(threshold, math.Min(1.-threshold, pi))
	}
	return out
}
