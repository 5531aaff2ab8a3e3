package debias

import (
	"fmt"
	"math"
	"sort"

	"github.com/maseology/debias/empirical"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// step2 imputes invalid (NaN or infinite) values by sampling the
// inverse empirical CDF of the valid ones and reinserting the sorted
// sample at ranks consistent with the surrounding valid values.
func (c *ISIMIP) step2(obsHist, cmHist, cmFuture []float64) ([]float64, []float64, []float64, error) {
	if !c.ImputeMissingValues {
		return obsHist, cmHist, cmFuture, nil
	}
	var err error
	if obsHist, err = c.imputeInvalid(obsHist); err != nil {
		return nil, nil, nil, err
	}
	if cmHist, err = c.imputeInvalid(cmHist); err != nil {
		return nil, nil, nil, err
	}
	if cmFuture, err = c.imputeInvalid(cmFuture); err != nil {
		return nil, nil, nil, err
	}
	return obsHist, cmHist, cmFuture, nil
}

func (c *ISIMIP) imputeInvalid(x []float64) ([]float64, error) {
	var validIdx, invalidIdx []int
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			invalidIdx = append(invalidIdx, i)
		} else {
			validIdx = append(validIdx, i)
		}
	}
	if len(invalidIdx) == 0 {
		return x, nil
	}
	if len(validIdx) == 0 {
		return nil, fmt.Errorf("isimip: imputation impossible, all values invalid in the given month/window")
	}
	out := make([]float64, len(x))
	copy(out, x)
	valid := gather(x, validIdx)
	if len(valid) == 1 {
		for _, i := range invalidIdx {
			out[i] = valid[0]
		}
		return out, nil
	}

	p := make([]float64, len(invalidIdx))
	for i := range p {
		p[i] = c.Rng.Float64()
	}
	sampled, err := empirical.IECDF(valid, p, c.IECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("isimip: imputation: %w", err)
	}
	sort.Float64s(sampled)

	// interpolate the rank pattern of the valid values onto the
	// invalid positions, so the inserted sample respects the
	// temporal ordering of its neighbours
	pos := make([]float64, len(validIdx))
	rnk := make([]float64, len(validIdx))
	for i, j := range validIdx {
		pos[i] = float64(j)
	}
	for i, r := range ranks(valid) {
		rnk[i] = float64(r)
	}
	interp := make([]float64, len(invalidIdx))
	for i, j := range invalidIdx {
		interp[i] = interpLinear(pos, rnk, float64(j))
	}
	for i, r := range ranks(interp) {
		out[invalidIdx[i]] = sampled[r]
	}
	return out, nil
}

// step3 removes a linear yearly-mean trend from all three series when
// detrending is enabled, returning the future trend so step 7 can
// restore it.
func (c *ISIMIP) step3(obsHist, cmHist, cmFuture []float64, yObs, yHist, yFut []int) ([]float64, []float64, []float64, []float64) {
	if !c.Detrending {
		return obsHist, cmHist, cmFuture, nil
	}
	obsHist, _ = c.removeTrend(obsHist, yObs)
	cmHist, _ = c.removeTrend(cmHist, yHist)
	cmFuture, trendFut := c.removeTrend(cmFuture, yFut)
	return obsHist, cmHist, cmFuture, trendFut
}

// removeTrend regresses yearly means against years and subtracts
// slope*(year - mean(years)) from every sample. With the significance
// test enabled a trend with regression p-value >= 0.05 is treated as
// zero.
func (c *ISIMIP) removeTrend(x []float64, years []int) ([]float64, []float64) {
	trend := make([]float64, len(x))
	uy, means := yearlyMeans(x, years)
	if len(uy) < 2 {
		return x, trend
	}
	xs := make([]float64, len(uy))
	for i, y := range uy {
		xs[i] = float64(y)
	}
	alpha, beta := stat.LinearRegression(xs, means, nil, false)
	if c.TrendRemovalWithSignificanceTest && regressionPValue(xs, means, alpha, beta) >= 0.05 {
		return x, trend
	}
	meanYear := stat.Mean(xs, nil)
	out := make([]float64, len(x))
	for i, v := range x {
		trend[i] = beta * (float64(years[i]) - meanYear)
		out[i] = v - trend[i]
	}
	return out, trend
}

func yearlyMeans(x []float64, years []int) ([]int, []float64) {
	sums := map[int]float64{}
	counts := map[int]int{}
	for i, y := range years {
		sums[y] += x[i]
		counts[y]++
	}
	uy := make([]int, 0, len(sums))
	for y := range sums {
		uy = append(uy, y)
	}
	sort.Ints(uy)
	means := make([]float64, len(uy))
	for i, y := range uy {
		means[i] = sums[y] / float64(counts[y])
	}
	return uy, means
}

// regressionPValue is the two-sided p-value of the t-test on the
// regression slope.
func regressionPValue(xs, ys []float64, alpha, beta float64) float64 {
	n := len(xs)
	if n < 3 {
		return 1
	}
	xbar := stat.Mean(xs, nil)
	var sse, sxx float64
	for i, x := range xs {
		r := ys[i] - (alpha + beta*x)
		sse += r * r
		sxx += (x - xbar) * (x - xbar)
	}
	if sxx == 0 {
		return 1
	}
	se := math.Sqrt(sse / float64(n-2) / sxx)
	if se == 0 {
		if beta == 0 {
			return 1
		}
		return 0
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * t.Survival(math.Abs(beta/se))
}

// step4 randomizes values beyond a threshold uniformly between the
// bound and the threshold, preserving their relative order.
func (c *ISIMIP) step4(obsHist, cmHist, cmFuture []float64) ([]float64, []float64, []float64) {
	if c.hasLowerBound() && c.hasLowerThreshold() {
		obsHist = c.randomizeBeyond(obsHist, c.LowerBound, c.LowerThreshold, c.beyondLower)
		cmHist = c.randomizeBeyond(cmHist, c.LowerBound, c.LowerThreshold, c.beyondLower)
		cmFuture = c.randomizeBeyond(cmFuture, c.LowerBound, c.LowerThreshold, c.beyondLower)
	}
	if c.hasUpperBound() && c.hasUpperThreshold() {
		obsHist = c.randomizeBeyond(obsHist, c.UpperThreshold, c.UpperBound, c.beyondUpper)
		cmHist = c.randomizeBeyond(cmHist, c.UpperThreshold, c.UpperBound, c.beyondUpper)
		cmFuture = c.randomizeBeyond(cmFuture, c.UpperThreshold, c.UpperBound, c.beyondUpper)
	}
	return obsHist, cmHist, cmFuture
}

func (c *ISIMIP) randomizeBeyond(x []float64, lo, hi float64, beyond func(float64) bool) []float64 {
	var idx []int
	for i, v := range x {
		if beyond(v) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return x
	}
	draws := make([]float64, len(idx))
	for i := range draws {
		draws[i] = lo + c.Rng.Float64()*(hi-lo)
	}
	out := make([]float64, len(x))
	copy(out, x)
	scatter(out, idx, sortLike(draws, gather(x, idx)))
	return out
}

// step5 builds pseudo future observations by transferring the
// simulated trend between cm_hist and cm_future onto obs_hist.
func (c *ISIMIP) step5(obsHist, cmHist, cmFuture []float64) ([]float64, error) {
	if !c.TrendTransferOnlyWithinThreshold || !c.hasThreshold() {
		return c.transferTrend(obsHist, cmHist, cmFuture)
	}
	var betweenIdx []int
	for i, v := range obsHist {
		if c.betweenThresholds(v) {
			betweenIdx = append(betweenIdx, i)
		}
	}
	out := make([]float64, len(obsHist))
	copy(out, obsHist)
	hB := c.valuesBetweenThresholds(cmHist)
	fB := c.valuesBetweenThresholds(cmFuture)
	if len(betweenIdx) == 0 || len(hB) == 0 || len(fB) == 0 {
		return out, nil
	}
	mapped, err := c.transferTrend(gather(obsHist, betweenIdx), hB, fB)
	if err != nil {
		return nil, err
	}
	scatter(out, betweenIdx, mapped)
	return out, nil
}

func (c *ISIMIP) transferTrend(obsHist, cmHist, cmFuture []float64) ([]float64, error) {
	p, err := empirical.ECDF(obsHist, obsHist, c.ECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("isimip: trend transfer: %w", err)
	}
	qFut, err := empirical.IECDF(cmFuture, p, c.IECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("isimip: trend transfer: %w", err)
	}
	qHist, err := empirical.IECDF(cmHist, p, c.IECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("isimip: trend transfer: %w", err)
	}

	out := make([]float64, len(obsHist))
	switch c.TrendTransfer {
	case TransferAdditive:
		for i, v := range obsHist {
			out[i] = v + qFut[i] - qHist[i]
		}
	case TransferMultiplicative:
		for i, v := range obsHist {
			out[i] = v * multiplicativeDelta(qFut[i], qHist[i])
		}
	case TransferMixed:
		for i, v := range obsHist {
			qObs := v
			gamma := 0.
			switch {
			case qHist[i] >= qObs:
				gamma = 1
			case qObs < 9*qHist[i]:
				gamma = 0.5 * (1 + math.Cos((qObs/qHist[i]-1)*math.Pi/8))
			}
			add := v + qFut[i] - qHist[i]
			mult := v * multiplicativeDelta(qFut[i], qHist[i])
			out[i] = gamma*mult + (1-gamma)*add
		}
	case TransferBounded:
		a, b := c.LowerBound, c.UpperBound
		for i, v := range obsHist {
			qObs, qH, qF := v, qHist[i], qFut[i]
			var r float64
			switch {
			case (qH < qObs && qF < qH) || (qH > qObs && qF > qH):
				// the simulated change moves away from the bias,
				// transfer it additively
				r = qObs + qF - qH
			case qH > qObs: // positive bias
				r = a + (qObs-a)*(qF-a)/(qH-a)
			case isClose(qH, qObs):
				r = qF
			default: // negative bias
				r = b - (b-qObs)*(b-qF)/(b-qH)
			}
			out[i] = clip(r, a, b)
		}
	default:
		return nil, fmt.Errorf("isimip: trend transfer method must be one of [additive multiplicative mixed bounded], got %q", c.TrendTransfer)
	}
	return out, nil
}

func multiplicativeDelta(qFut, qHist float64) float64 {
	if qHist == 0 {
		return 1
	}
	return clip(qFut/qHist, 0.01, 100)
}

// numpy-style closeness, rtol 1e-5 and atol 1e-8
func isClose(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}

// step7 restores the future trend removed in step 3.
func (c *ISIMIP) step7(vals, trendFut []float64) []float64 {
	if !c.Detrending || trendFut == nil {
		return vals
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v + trendFut[i]
	}
	return out
}
