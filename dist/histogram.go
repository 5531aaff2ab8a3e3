package dist

import (
	"math"
	"sort"
)

// Histogram is an empirical distribution over equal-width bins,
// satisfying the same fit/cdf/ppf contract as the parametric adapters.
// Bins <= 0 selects the square-root rule.
type Histogram struct {
	Bins int
}

func (h Histogram) Fit(data []float64) (Fitted, error) {
	if len(data) == 0 {
		return nil, ErrEmptySample
	}
	xs := make([]float64, len(data))
	copy(xs, data)
	sort.Float64s(xs)

	nb := h.Bins
	if nb <= 0 {
		nb = int(math.Ceil(math.Sqrt(float64(len(xs)))))
	}
	lo, hi := xs[0], xs[len(xs)-1]
	if hi <= lo {
		return nil, ErrDegenerateSample
	}
	width := (hi - lo) / float64(nb)

	// cumulative counts at the right edge of each bin
	cum := make([]float64, nb+1)
	for _, x := range xs {
		k := int((x - lo) / width)
		if k >= nb {
			k = nb - 1
		}
		cum[k+1]++
	}
	n := float64(len(xs))
	for i := 1; i <= nb; i++ {
		cum[i] = cum[i-1] + cum[i]/n
	}
	return histFitted{lo: lo, width: width, cum: cum}, nil
}

type histFitted struct {
	lo, width float64
	cum       []float64 // cum[i] = CDF at lo + i*width, cum[0]=0, cum[nb]=1
}

func (f histFitted) CDF(x float64) float64 {
	nb := len(f.cum) - 1
	t := (x - f.lo) / f.width
	if t <= 0. {
		return 0.
	}
	if t >= float64(nb) {
		return 1.
	}
	k := int(t)
	return f.cum[k] + (f.cum[k+1]-f.cum[k])*(t-float64(k))
}

func (f histFitted) PPF(p float64) float64 {
	nb := len(f.cum) - 1
	if p <= 0. {
		return f.lo
	}
	if p >= 1. {
		return f.lo + float64(nb)*f.width
	}
	k := sort.Search(nb, func(i int) bool { return f.cum[i+1] >= p }) // cum[k] < p <= cum[k+1]
	dk := f.cum[k+1] - f.cum[k]
	frac := 1.
	if dk > 0. {
		frac = (p - f.cum[k]) / dk
	}
	return f.lo + (float64(k)+frac)*f.width
}
