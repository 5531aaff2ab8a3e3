package debias

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/maseology/debias/dist"
	"github.com/maseology/debias/empirical"
)

// step6 is the core of the pipeline: parametric quantile mapping of
// cm_future onto the pseudo future observations, with the frequency of
// values beyond the thresholds bias-adjusted first for (partly)
// bounded variables.
func (c *ISIMIP) step6(obsHist, obsFuture, cmHist, cmFuture []float64) ([]float64, error) {
	asort := argsort(cmFuture)
	cmFutSorted := gather(cmFuture, asort)
	obsHistSorted := sortedFloats(obsHist)
	obsFutSorted := sortedFloats(obsFuture)
	cmHistSorted := sortedFloats(cmHist)

	mapped := make([]float64, len(cmFutSorted))
	copy(mapped, cmFutSorted)

	nLower, nUpper := 0, 0
	if c.hasLowerThreshold() {
		nLower = c.entriesToSetToBound(obsHistSorted, cmHistSorted, cmFutSorted, c.beyondLower)
	}
	if c.hasUpperThreshold() {
		nUpper = c.entriesToSetToBound(obsHistSorted, cmHistSorted, cmFutSorted, c.beyondUpper)
	}
	if nLower+nUpper > len(cmFutSorted) {
		nLower, nUpper = rescaleBoundCounts(nLower, nUpper, len(cmFutSorted))
	}

	// first nLower entries go to the lower bound, last nUpper to the upper
	for i := 0; i < nLower; i++ {
		mapped[i] = c.LowerBound
	}
	for i := len(mapped) - nUpper; i < len(mapped); i++ {
		mapped[i] = c.UpperBound
	}

	if nLower+nUpper < len(mapped) {
		notSent := mapped[nLower : len(mapped)-nUpper]
		adj, err := c.adjustBetweenThresholds(
			c.valuesBetweenThresholds(obsHistSorted),
			c.valuesBetweenThresholds(obsFutSorted),
			c.valuesBetweenThresholds(cmHistSorted),
			notSent,
			c.valuesBetweenThresholds(cmFutSorted))
		if err != nil {
			return nil, err
		}
		copy(notSent, adj)
	}

	out := make([]float64, len(mapped))
	for i, j := range asort {
		out[j] = mapped[i]
	}
	return out, nil
}

// entriesToSetToBound returns the number of sorted cm_future entries
// forced to the bound, from the bias-adjusted frequency of values
// beyond the threshold.
func (c *ISIMIP) entriesToSetToBound(obsHistSorted, cmHistSorted, cmFutSorted []float64, beyond func(float64) bool) int {
	pObsFuture := fractionBeyond(obsHistSorted, beyond)
	if c.AdjustFrequenciesBeyondThresholds {
		pObsHist := pObsFuture
		pCmHist := fractionBeyond(cmHistSorted, beyond)
		pCmFut := fractionBeyond(cmFutSorted, beyond)
		pObsFuture = adjustedFrequency(pObsHist, pCmHist, pCmFut)
	}
	// half to even, so counts agree with ISIMIP3 reference outputs
	return int(math.RoundToEven(float64(len(cmFutSorted)) * pObsFuture))
}

func fractionBeyond(x []float64, beyond func(float64) bool) float64 {
	if len(x) == 0 {
		return 0
	}
	n := 0
	for _, v := range x {
		if beyond(v) {
			n++
		}
	}
	return float64(n) / float64(len(x))
}

func adjustedFrequency(pObsHist, pCmHist, pCmFut float64) float64 {
	switch {
	case isClose(pCmHist, pObsHist):
		return pCmFut
	case pCmFut <= pCmHist && pCmHist > pObsHist:
		return pObsHist * pCmFut / pCmHist
	case pCmFut >= pCmHist && pCmHist < pObsHist:
		return 1 - (1-pObsHist)*(1-pCmFut)/(1-pCmHist)
	default:
		return pObsHist + pCmFut - pCmHist
	}
}

// rescaleBoundCounts proportionally shrinks the two counts so they fit
// the series length; the lower count is recomputed first and its
// updated value enters the upper count's denominator.
func rescaleBoundCounts(nLower, nUpper, size int) (int, int) {
	l := int(math.RoundToEven(float64(nLower) * float64(size) / float64(nLower+nUpper)))
	u := int(math.RoundToEven(float64(nUpper) * float64(size) / float64(l+nUpper)))
	return l, u
}

// adjustBetweenThresholds quantile maps the entries not sent to a
// bound. All inputs are sorted ascending.
func (c *ISIMIP) adjustBetweenThresholds(obsHistB, obsFutB, cmHistB, notSent, cmFutB []float64) ([]float64, error) {
	var err error
	if c.hasThreshold() && !c.NonparametricQM {
		// entries between bounds are mapped non-parametrically on
		// entries between thresholds before the parametric fit
		if notSent, err = c.quantileMapXOnY(notSent, cmFutB); err != nil {
			return nil, err
		}
	}
	if c.NonparametricQM {
		return c.quantileMapNonParametric(notSent, obsFutB, notSent)
	}

	// pin the fitted location and scale to the thresholds; scale
	// stays free for the Weibull family
	d := c.Distribution
	if c.hasLowerThreshold() {
		scale := 0.
		if c.hasUpperThreshold() {
			if _, isWeibull := d.(dist.Weibull); !isWeibull {
				scale = c.UpperThreshold - c.LowerThreshold
			}
		}
		d = dist.Affine(d, c.LowerThreshold, scale)
	}

	fitCmFut, errF := d.Fit(cmFutB)
	fitObsFut, errO := d.Fit(obsFutB)
	if errF != nil || errO != nil {
		log.Printf("isimip: step 6: parametric fit failed (%v, %v), falling back to nonparametric quantile mapping", errF, errO)
		return c.quantileMapNonParametric(notSent, obsFutB, notSent)
	}
	if c.KSTestForGoodnessOfFit {
		if dist.KolmogorovSmirnov(cmFutB, fitCmFut) > 0.5 || dist.KolmogorovSmirnov(obsFutB, fitObsFut) > 0.5 {
			log.Printf("isimip: step 6: goodness of fit not good enough according to ks-test, using nonparametric quantile mapping instead")
			return c.quantileMapNonParametric(notSent, obsFutB, notSent)
		}
	}

	cdfCmFut := make([]float64, len(notSent))
	for i, v := range notSent {
		cdfCmFut[i] = fitCmFut.CDF(v)
	}
	cdfCmFut = empirical.ThresholdCDFVals(cdfCmFut, empirical.DefaultCDFThreshold)

	out := make([]float64, len(notSent))
	if !c.EventLikelihoodAdjustment {
		for i, p := range cdfCmFut {
			out[i] = fitObsFut.PPF(p)
		}
		return out, nil
	}

	// event likelihood adjustment after Switanek 2017: shift the
	// log-odds of each event by the (clipped) simulated change
	fitObsHist, errO := c.Distribution.Fit(obsHistB)
	fitCmHist, errH := c.Distribution.Fit(cmHistB)
	if errO != nil || errH != nil {
		return nil, fmt.Errorf("isimip: step 6: historical fit for event likelihood adjustment failed (%v, %v)", errO, errH)
	}
	cdfObsHist := interpOnLength(empirical.ThresholdCDFVals(cdfOfSorted(fitObsHist, obsHistB), empirical.DefaultCDFThreshold), len(notSent))
	cdfCmHist := interpOnLength(empirical.ThresholdCDFVals(cdfOfSorted(fitCmHist, cmHistB), empirical.DefaultCDFThreshold), len(notSent))

	ln10 := math.Log(10)
	for i := range notSent {
		delta := clip(logit(cdfCmFut[i])-logit(cdfCmHist[i]), -ln10, ln10)
		out[i] = fitObsFut.PPF(expit(logit(cdfObsHist[i]) + delta))
	}
	return out, nil
}

// quantileMapNonParametric maps vals through IECDF_y(ECDF_x(vals)).
func (c *ISIMIP) quantileMapNonParametric(x, y, vals []float64) ([]float64, error) {
	p, err := empirical.ECDF(x, vals, c.ECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("isimip: nonparametric quantile mapping: %w", err)
	}
	out, err := empirical.IECDF(y, p, c.IECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("isimip: nonparametric quantile mapping: %w", err)
	}
	return out, nil
}

// quantileMapXOnY maps the sorted values x onto the sorted values y.
func (c *ISIMIP) quantileMapXOnY(x, y []float64) ([]float64, error) {
	switch c.NonParametricMode {
	case NonParametricISIMIPv3:
		out, err := empirical.IECDF(y, linspace01(len(x)), c.IECDFMethod)
		if err != nil {
			return nil, fmt.Errorf("isimip: quantile mapping between thresholds: %w", err)
		}
		return out, nil
	default:
		return c.quantileMapNonParametric(x, y, x)
	}
}

func cdfOfSorted(f dist.Fitted, sorted []float64) []float64 {
	out := make([]float64, len(sorted))
	for i, v := range sorted {
		out[i] = f.CDF(v)
	}
	return out
}

func sortedFloats(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	sort.Float64s(out)
	return out
}

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func expit(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
