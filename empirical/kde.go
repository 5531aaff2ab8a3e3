package empirical

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ecdfKernel evaluates the CDF of a Gaussian kernel density estimate of
// x at the query points y. Bandwidth follows Scott's rule, as the usual
// Gaussian KDE implementations do.
func ecdfKernel(x, y []float64) []float64 {
	n := len(x)
	sd := math.Sqrt(stat.Variance(x, nil))
	h := sd * math.Pow(float64(n), -1./5.)
	if h <= 0 || math.IsNaN(h) {
		// degenerate sample, fall back to the step estimator
		return ecdfStep(x, y)
	}
	p := make([]float64, len(y))
	for i, yi := range y {
		s := 0.
		for _, xj := range x {
			s += distuv.UnitNormal.CDF((yi - xj) / h)
		}
		p[i] = s / float64(n)
	}
	return p
}
