// Package dist defines the distribution capability consumed by the
// debiasing algorithms: anything that can be fit to a sample and then
// queried for CDF and quantile values. Parametric adapters wrap the
// gonum distributions; a histogram adapter satisfies the same contract
// empirically; a left-censored gamma covers zero-inflated variables
// such as precipitation.
package dist

import (
	"errors"
)

// Fitted is an immutable fitted distribution.
type Fitted interface {
	CDF(x float64) float64
	PPF(p float64) float64
}

// Distribution fits itself to a sample. One fit per window-context
// invocation; fits are never reused across locations.
type Distribution interface {
	Fit(data []float64) (Fitted, error)
}

var (
	ErrEmptySample      = errors.New("dist: empty sample")
	ErrDegenerateSample = errors.New("dist: sample does not determine the distribution parameters")
)

// quantiler is satisfied by the gonum continuous distributions.
type quantiler interface {
	CDF(x float64) float64
	Quantile(p float64) float64
}

type fitted struct{ d quantiler }

func (f fitted) CDF(x float64) float64 { return f.d.CDF(x) }
func (f fitted) PPF(p float64) float64 { return f.d.Quantile(p) }

// Affine fixes location and scale of d: data are fit after the map
// x -> (x-loc)/scale and queries are mapped back. This is how the
// quantile-mapping core pins a distribution's support to the
// threshold interval.
func Affine(d Distribution, loc, scale float64) Distribution {
	if scale == 0. {
		scale = 1.
	}
	return affine{d: d, loc: loc, scale: scale}
}

type affine struct {
	d          Distribution
	loc, scale float64
}

func (a affine) Fit(data []float64) (Fitted, error) {
	z := make([]float64, len(data))
	for i, x := range data {
		z[i] = (x - a.loc) / a.scale
	}
	f, err := a.d.Fit(z)
	if err != nil {
		return nil, err
	}
	return affineFitted{f: f, loc: a.loc, scale: a.scale}, nil
}

type affineFitted struct {
	f          Fitted
	loc, scale float64
}

func (a affineFitted) CDF(x float64) float64 { return a.f.CDF((x - a.loc) / a.scale) }
func (a affineFitted) PPF(p float64) float64 { return a.loc + a.scale*a.f.PPF(p) }
