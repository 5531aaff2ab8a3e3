// Package debias statistically corrects systematic biases in climate
// model output by remapping its distribution onto the observed one
// while preserving the model-projected trend. Three algorithms are
// provided (CDFt, QuantileDeltaMapping, ISIMIP), all operating on one
// location's aligned series of observations, historical model output
// and future model output.
package debias

import (
	"fmt"
	"log"
	"sort"
	"time"
)

// Debiaser is the common contract of the three algorithm variants.
// ApplyLocation consumes one location's three series with optional
// per-sample dates (nil slices mean absent; dates are then synthesized
// assuming the first sample falls on a January 1st with daily steps)
// and returns a corrected series of the same length and order as
// cmFuture. Calls are independent across locations and never mutate
// the configuration, so the caller may parallelize over locations.
type Debiaser interface {
	ApplyLocation(obs, cmHist, cmFuture []float64, timeObs, timeCmHist, timeCmFuture []time.Time) ([]float64, error)
}

// checkTimes synthesizes missing date arrays (with a warning, since
// inferred chunk boundaries can differ slightly from true dates) and
// validates that every series aligns 1:1 with its dates.
func checkTimes(name string, obs, cmHist, cmFuture []float64,
	timeObs, timeCmHist, timeCmFuture []time.Time) ([]time.Time, []time.Time, []time.Time, error) {

	if timeObs == nil || timeCmHist == nil || timeCmFuture == nil {
		log.Printf("%s: missing time information for at least one of obs, cm_hist, cm_future; assuming the first sample of each series falls on a January 1st with daily steps. Chunk boundaries may differ slightly from a run with true dates.", name)
		timeObs = syntheticDates(len(obs))
		timeCmHist = syntheticDates(len(cmHist))
		timeCmFuture = syntheticDates(len(cmFuture))
	}
	if len(obs) != len(timeObs) || len(cmHist) != len(timeCmHist) || len(cmFuture) != len(timeCmFuture) {
		return nil, nil, nil, fmt.Errorf("%s: time array lengths (%d,%d,%d) do not match value array lengths (%d,%d,%d)",
			name, len(timeObs), len(timeCmHist), len(timeCmFuture), len(obs), len(cmHist), len(cmFuture))
	}
	if len(obs) == 0 || len(cmHist) == 0 || len(cmFuture) == 0 {
		return nil, nil, nil, fmt.Errorf("%s: empty input series", name)
	}
	return timeObs, timeCmHist, timeCmFuture, nil
}

func syntheticDates(n int) []time.Time {
	t0 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.AddDate(0, 0, i)
	}
	return out
}

func yearsOf(ts []time.Time) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.Year()
	}
	return out
}

func monthsOf(ts []time.Time) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = int(t.Month())
	}
	return out
}

func daysOfYearOf(ts []time.Time) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.YearDay()
	}
	return out
}

func gather(x []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func gatherInts(x []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

// scatter writes vals into out at the given indices.
func scatter(out []float64, idx []int, vals []float64) {
	for i, j := range idx {
		out[j] = vals[i]
	}
}

// argsort returns the permutation that sorts x ascending.
func argsort(x []float64) []int {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	return idx
}

// ranks returns, per element, its position in the sorted order of x
// (the inverse of argsort).
func ranks(x []float64) []int {
	a := argsort(x)
	r := make([]int, len(x))
	for pos, i := range a {
		r[i] = pos
	}
	return r
}

// sortLike returns the values of x arranged so they preserve the
// relative rank order of y: the smallest x goes where y's smallest sat.
func sortLike(x, y []float64) []float64 {
	xs := make([]float64, len(x))
	copy(xs, x)
	sort.Float64s(xs)
	out := make([]float64, len(y))
	for i, r := range ranks(y) {
		out[i] = xs[r]
	}
	return out
}

// linspace01 returns n evenly spaced probabilities on [0,1].
func linspace01(n int) []float64 {
	p := make([]float64, n)
	if n == 1 {
		p[0] = 0.
		return p
	}
	for i := range p {
		p[i] = float64(i) / float64(n-1)
	}
	return p
}

// interpLinear evaluates the piecewise-linear function through
// (xs, ys) at q, extrapolating with the edge segments. xs must be
// strictly increasing.
func interpLinear(xs, ys []float64, q float64) float64 {
	n := len(xs)
	if n == 1 {
		return ys[0]
	}
	k := sort.SearchFloat64s(xs, q)
	switch {
	case k == 0:
		k = 1
	case k >= n:
		k = n - 1
	}
	x0, x1 := xs[k-1], xs[k]
	y0, y1 := ys[k-1], ys[k]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(q-x0)/(x1-x0)
}

// interpOnLength linearly resamples sorted vals onto the given length,
// matching positions on [0,1].
func interpOnLength(vals []float64, length int) []float64 {
	if len(vals) == length {
		out := make([]float64, length)
		copy(out, vals)
		return out
	}
	src := linspace01(len(vals))
	dst := linspace01(length)
	out := make([]float64, length)
	for i, p := range dst {
		out[i] = interpLinear(src, vals, p)
	}
	return out
}
