package dist

import (
	"math"
)

// LeftCensoredGamma models a zero-inflated variable such as
// precipitation: observations below Threshold are treated as censored
// mass at the left tail and the body above the threshold is gamma.
// The fitted CDF ramps linearly through the censored mass so it stays
// invertible; if CensorInPPF is set, quantiles inside the censored
// mass return zero.
type LeftCensoredGamma struct {
	Threshold   float64
	CensorInPPF bool
}

func (c LeftCensoredGamma) Fit(data []float64) (Fitted, error) {
	if len(data) == 0 {
		return nil, ErrEmptySample
	}
	if !(c.Threshold > 0.) {
		return nil, ErrDegenerateSample
	}
	var body []float64
	for _, x := range data {
		if math.IsNaN(x) {
			return nil, ErrDegenerateSample
		}
		if x >= c.Threshold {
			body = append(body, x)
		}
	}
	p0 := float64(len(data)-len(body)) / float64(len(data))
	if len(body) == 0 {
		// everything censored: degenerate spike at zero
		return censoredFitted{p0: 1., threshold: c.Threshold, censorPPF: c.CensorInPPF}, nil
	}
	f, err := (Gamma{}).Fit(body)
	if err != nil {
		return nil, err
	}
	return censoredFitted{p0: p0, threshold: c.Threshold, body: f, censorPPF: c.CensorInPPF}, nil
}

type censoredFitted struct {
	p0        float64
	threshold float64
	body      Fitted
	censorPPF bool
}

func (f censoredFitted) CDF(x float64) float64 {
	if x < f.threshold {
		if x <= 0. {
			return 0.
		}
		return f.p0 * x / f.threshold
	}
	if f.body == nil {
		return 1.
	}
	return f.p0 + (1.-f.p0)*f.body.CDF(x)
}

func (f censoredFitted) PPF(p float64) float64 {
	if p <= f.p0 || f.body == nil {
		if f.censorPPF {
			return 0.
		}
		if f.p0 == 0. {
			return 0.
		}
		return f.threshold * math.Max(0., p) / f.p0
	}
	return f.body.PPF((p - f.p0) / (1. - f.p0))
}
