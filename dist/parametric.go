package dist

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Normal fits a Gaussian by sample mean and standard deviation.
type Normal struct{}

func (Normal) Fit(data []float64) (Fitted, error) {
	if len(data) == 0 {
		return nil, ErrEmptySample
	}
	mu, sigma := stat.MeanStdDev(data, nil)
	if !(sigma > 0.) || math.IsNaN(mu) {
		return nil, ErrDegenerateSample
	}
	return fitted{distuv.Normal{Mu: mu, Sigma: sigma}}, nil
}

// Gamma fits a gamma distribution to positive data using the standard
// closed-form maximum-likelihood approximation for the shape.
type Gamma struct{}

func (Gamma) Fit(data []float64) (Fitted, error) {
	if len(data) == 0 {
		return nil, ErrEmptySample
	}
	m, ml := 0., 0.
	for _, x := range data {
		if x <= 0. || math.IsNaN(x) {
			return nil, ErrDegenerateSample
		}
		m += x
		ml += math.Log(x)
	}
	n := float64(len(data))
	m /= n
	ml /= n
	s := math.Log(m) - ml
	if !(s > 0.) {
		return nil, ErrDegenerateSample
	}
	k := (3. - s + math.Sqrt((s-3.)*(s-3.)+24.*s)) / (12. * s)
	if !(k > 0.) || math.IsInf(k, 0) {
		return nil, ErrDegenerateSample
	}
	return fitted{distuv.Gamma{Alpha: k, Beta: k / m}}, nil
}

// Beta fits a beta distribution on (0,1) by the method of moments.
// Samples exactly at 0 or 1 are nudged inside the open interval.
type Beta struct{}

func (Beta) Fit(data []float64) (Fitted, error) {
	if len(data) == 0 {
		return nil, ErrEmptySample
	}
	const eps = 1e-9
	z := make([]float64, len(data))
	for i, x := range data {
		if x < 0. || x > 1. || math.IsNaN(x) {
			return nil, ErrDegenerateSample
		}
		z[i] = math.Min(1.-eps, math.Max(eps, x))
	}
	m, v := stat.MeanVariance(z, nil)
	if !(v > 0.) || m <= 0. || m >= 1. {
		return nil, ErrDegenerateSample
	}
	c := m*(1.-m)/v - 1.
	if !(c > 0.) {
		return nil, ErrDegenerateSample
	}
	return fitted{distuv.Beta{Alpha: m * c, Beta: (1. - m) * c}}, nil
}

// Weibull fits a two-parameter Weibull to positive data by the
// maximum-likelihood fixed-point iteration on the shape parameter.
type Weibull struct{}

func (Weibull) Fit(data []float64) (Fitted, error) {
	if len(data) == 0 {
		return nil, ErrEmptySample
	}
	n := float64(len(data))
	mlog := 0.
	for _, x := range data {
		if x <= 0. || math.IsNaN(x) {
			return nil, ErrDegenerateSample
		}
		mlog += math.Log(x)
	}
	mlog /= n

	k := 1.
	for iter := 0; iter < 100; iter++ {
		var sk, skl float64
		for _, x := range data {
			xk := math.Pow(x, k)
			sk += xk
			skl += xk * math.Log(x)
		}
		knew := 1. / (skl/sk - mlog)
		if !(knew > 0.) || math.IsInf(knew, 0) || math.IsNaN(knew) {
			return nil, ErrDegenerateSample
		}
		if math.Abs(knew-k) < 1e-10*k {
			k = knew
			break
		}
		k = knew
	}
	sk := 0.
	for _, x := range data {
		sk += math.Pow(x, k)
	}
	lambda := math.Pow(sk/n, 1./k)
	if !(lambda > 0.) {
		return nil, ErrDegenerateSample
	}
	return fitted{distuv.Weibull{K: k, Lambda: lambda}}, nil
}
