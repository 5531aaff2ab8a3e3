// Package empirical provides the empirical cumulative distribution
// primitives shared by the debiasing algorithms: the ECDF evaluated by
// three estimators, its inverse evaluated by the nine standard
// quantile-type estimators, and CDF-value clamping.
package empirical

import (
	"errors"
	"fmt"
	"sort"
)

// ECDFMethod selects the estimator used to evaluate the empirical CDF.
type ECDFMethod string

const (
	ECDFStepFunction        ECDFMethod = "step_function"
	ECDFLinearInterpolation ECDFMethod = "linear_interpolation"
	ECDFKernelDensity       ECDFMethod = "kernel_density"
)

var errEmptySample = errors.New("empirical: empty sample")

// ECDF evaluates the empirical CDF fit on x at the query points y.
func ECDF(x, y []float64, method ECDFMethod) ([]float64, error) {
	if len(x) == 0 {
		return nil, errEmptySample
	}
	switch method {
	case ECDFStepFunction:
		return ecdfStep(x, y), nil
	case ECDFLinearInterpolation:
		return ecdfLinear(x, y), nil
	case ECDFKernelDensity:
		return ecdfKernel(x, y), nil
	default:
		return nil, fmt.Errorf("empirical: unknown ecdf method %q", method)
	}
}

// ecdfStep is the right-continuous step function at the order statistics
// of x: F(y) = #{x_i <= y}/n.
func ecdfStep(x, y []float64) []float64 {
	xs := sortedCopy(x)
	n := float64(len(xs))
	p := make([]float64, len(y))
	for i, yi := range y {
		k := sort.Search(len(xs), func(j int) bool { return xs[j] > yi })
		p[i] = float64(k) / n
	}
	return p
}

// ecdfLinear interpolates linearly between the order statistics of x at
// plotting positions i/(n-1), held flat at 0 and 1 beyond the sample range.
func ecdfLinear(x, y []float64) []float64 {
	xs := sortedCopy(x)
	n := len(xs)
	p := make([]float64, len(y))
	if n == 1 {
		for i, yi := range y {
			if yi >= xs[0] {
				p[i] = 1.
			}
		}
		return p
	}
	for i, yi := range y {
		switch {
		case yi <= xs[0]:
			// at or below range: 0
		case yi >= xs[n-1]:
			p[i] = 1.
		default:
			k := sort.Search(n, func(j int) bool { return xs[j] > yi }) // xs[k-1] <= yi < xs[k]
			lo, hi := xs[k-1], xs[k]
			plo, phi := float64(k-1)/float64(n-1), float64(k)/float64(n-1)
			if hi > lo {
				p[i] = plo + (phi-plo)*(yi-lo)/(hi-lo)
			} else {
				p[i] = plo
			}
		}
	}
	return p
}

func sortedCopy(x []float64) []float64 {
	xs := make([]float64, len(x))
	copy(xs, x)
	sort.Float64s(xs)
	return xs
}
