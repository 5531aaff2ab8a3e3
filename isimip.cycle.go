package debias

import (
	"time"
)

// annualCycle holds a multiyear day-of-year cycle of upper bounds,
// smoothed by circular running max and mean filters.
type annualCycle struct {
	doys []int // unique, ascending
	vals []float64
}

func (a annualCycle) at(doy int) (float64, bool) {
	for i, d := range a.doys {
		if d == doy {
			return a.vals[i], true
		}
	}
	return 0, false
}

// cycleOfUpperBounds computes, per day of year, the multiyear maximum,
// then smooths it with circular running maximum and running mean
// filters of the configured window length.
func (c *ISIMIP) cycleOfUpperBounds(vals []float64, doys []int) annualCycle {
	byDOY := map[int]float64{}
	for i, d := range doys {
		if v, ok := byDOY[d]; !ok || vals[i] > v {
			byDOY[d] = vals[i]
		}
	}
	uniq := uniqueSortedKeys(byDOY)
	cycle := make([]float64, len(uniq))
	for i, d := range uniq {
		cycle[i] = byDOY[d]
	}
	cycle = circularRunningMax(cycle, c.WindowLengthAnnualCycle)
	cycle = circularRunningMean(cycle, c.WindowLengthAnnualCycle)
	return annualCycle{doys: uniq, vals: cycle}
}

// scaleByCycle divides vals by the cycle value of their day of year.
// Zero cycle values leave the sample untouched.
func scaleByCycle(vals []float64, doys []int, cyc annualCycle) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		s, ok := cyc.at(doys[i])
		if !ok || s == 0 {
			out[i] = v
			continue
		}
		out[i] = v / s
	}
	return out
}

// debiasCycle builds the cycle the mapped future values are rescaled
// with: the observed cycle scaled by the change factor between the
// future and historical model cycles, clipped to [0.1, 10].
func debiasCycle(obs, hist, fut annualCycle) annualCycle {
	out := annualCycle{doys: fut.doys, vals: make([]float64, len(fut.vals))}
	for i, d := range fut.doys {
		o, okO := obs.at(d)
		h, okH := hist.at(d)
		if !okO || !okH {
			out.vals[i] = fut.vals[i]
			continue
		}
		factor := 1.
		if h != 0 {
			factor = clip(fut.vals[i]/h, 0.1, 10)
		}
		out.vals[i] = o * factor
	}
	return out
}

// step1 scales all three series by their annual cycle of upper bounds
// when configured, and returns the cycle the output is rescaled with
// in step 8.
func (c *ISIMIP) step1(obs, cmHist, cmFuture []float64, timeObs, timeCmHist, timeCmFuture []time.Time) ([]float64, []float64, []float64, *annualCycle, error) {
	if !c.ScaleByAnnualCycleOfUpperBounds {
		return obs, cmHist, cmFuture, nil, nil
	}
	doyObs, doyHist, doyFut := daysOfYearOf(timeObs), daysOfYearOf(timeCmHist), daysOfYearOf(timeCmFuture)
	cycObs := c.cycleOfUpperBounds(obs, doyObs)
	cycHist := c.cycleOfUpperBounds(cmHist, doyHist)
	cycFut := c.cycleOfUpperBounds(cmFuture, doyFut)
	deb := debiasCycle(cycObs, cycHist, cycFut)
	return scaleByCycle(obs, doyObs, cycObs),
		scaleByCycle(cmHist, doyHist, cycHist),
		scaleByCycle(cmFuture, doyFut, cycFut),
		&deb, nil
}

// step8 multiplies the mapped future values back by the debiased
// annual cycle.
func (c *ISIMIP) step8(vals []float64, deb *annualCycle, timeCmFuture []time.Time) []float64 {
	if deb == nil {
		return vals
	}
	doys := daysOfYearOf(timeCmFuture)
	out := make([]float64, len(vals))
	for i, v := range vals {
		if s, ok := deb.at(doys[i]); ok {
			out[i] = v * s
		} else {
			out[i] = v
		}
	}
	return out
}

func circularRunningMax(x []float64, length int) []float64 {
	n, h := len(x), length/2
	out := make([]float64, n)
	for i := range x {
		m := x[i]
		for k := -h; k <= h; k++ {
			if v := x[((i+k)%n+n)%n]; v > m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

func circularRunningMean(x []float64, length int) []float64 {
	n, h := len(x), length/2
	out := make([]float64, n)
	for i := range x {
		s, cnt := 0., 0
		for k := -h; k <= h; k++ {
			s += x[((i+k)%n+n)%n]
			cnt++
		}
		out[i] = s / float64(cnt)
	}
	return out
}

func uniqueSortedKeys(m map[int]float64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ { // insertion sort, cycle is short
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
