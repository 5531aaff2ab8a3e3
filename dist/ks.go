package dist

import (
	"math"
	"sort"
)

// KolmogorovSmirnov returns the one-sample KS statistic
// sup|ECDF(x)-F(x)| of data against the fitted CDF. The quantile
// mapping core tests fits against a fixed acceptance bound with it.
func KolmogorovSmirnov(data []float64, f Fitted) float64 {
	if len(data) == 0 {
		return 0.
	}
	xs := make([]float64, len(data))
	copy(xs, data)
	sort.Float64s(xs)
	n := float64(len(xs))
	d := 0.
	for i, x := range xs {
		c := f.CDF(x)
		d = math.Max(d, math.Max(math.Abs(float64(i+1)/n-c), math.Abs(float64(i)/n-c)))
	}
	return d
}
