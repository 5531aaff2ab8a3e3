package debias

import (
	"fmt"
	"sort"
	"time"

	"github.com/maseology/debias/dist"
	"github.com/maseology/debias/empirical"
	"github.com/maseology/debias/window"
)

// TrendPreservation selects how QuantileDeltaMapping imposes the
// model-projected change onto the bias-corrected values.
type TrendPreservation string

const (
	TrendAdditive TrendPreservation = "additive"
	TrendRelative TrendPreservation = "relative"
)

// QuantileDeltaMapping bias-corrects by quantile mapping onto fitted
// observation and historical-model distributions while preserving the
// modeled trend in every quantile: each future value keeps its rank
// tau_t within its own window and is shifted (additive) or scaled
// (relative) by the difference of the fitted quantile functions at
// tau_t. Two independently toggleable running windows apply the method
// seasonally (day-of-year, circular) and over the years of the future
// run (edge-clipped).
type QuantileDeltaMapping struct {
	Distribution      dist.Distribution
	TrendPreservation TrendPreservation

	CensorValuesToZero bool
	CensoringThreshold float64

	RunningWindowOverYears bool
	OverYearsLength        int // odd, default 31
	OverYearsStep          int // odd, default 1

	RunningWindowWithinYear bool
	WithinYearLength        int // odd, default 91
	WithinYearStep          int // odd, default 31

	ECDFMethod   empirical.ECDFMethod
	CDFThreshold float64 // default 1/(WithinYearLength*OverYearsLength+1)

	winYears *window.OverYears
	winDOY   *window.OverDaysOfYear
}

// NewQuantileDeltaMapping validates cfg, fills defaults and derives
// the running windows.
func NewQuantileDeltaMapping(cfg QuantileDeltaMapping) (*QuantileDeltaMapping, error) {
	if cfg.Distribution == nil {
		return nil, fmt.Errorf("qdm: a distribution satisfying the fit/cdf/ppf capability is required")
	}
	switch cfg.TrendPreservation {
	case TrendAdditive, TrendRelative:
	default:
		return nil, fmt.Errorf("qdm: trend preservation must be one of [additive relative], got %q", cfg.TrendPreservation)
	}
	if cfg.OverYearsLength == 0 {
		cfg.OverYearsLength = 31
	}
	if cfg.OverYearsStep == 0 {
		cfg.OverYearsStep = 1
	}
	if cfg.WithinYearLength == 0 {
		cfg.WithinYearLength = 91
	}
	if cfg.WithinYearStep == 0 {
		cfg.WithinYearStep = 31
	}
	if cfg.ECDFMethod == "" {
		cfg.ECDFMethod = empirical.ECDFLinearInterpolation
	}
	if _, err := empirical.ECDF([]float64{0., 1.}, []float64{.5}, cfg.ECDFMethod); err != nil {
		return nil, fmt.Errorf("qdm: %w", err)
	}
	if cfg.RunningWindowOverYears {
		w, err := window.NewOverYears(cfg.OverYearsLength, cfg.OverYearsStep)
		if err != nil {
			return nil, fmt.Errorf("qdm: %w", err)
		}
		cfg.winYears = w
	}
	if cfg.RunningWindowWithinYear {
		w, err := window.NewOverDaysOfYear(cfg.WithinYearLength, cfg.WithinYearStep)
		if err != nil {
			return nil, fmt.Errorf("qdm: %w", err)
		}
		cfg.winDOY = w
	}
	if cfg.CDFThreshold == 0. {
		cfg.CDFThreshold = 1. / float64(cfg.WithinYearLength*cfg.OverYearsLength+1)
	}
	if cfg.CDFThreshold < 0. || cfg.CDFThreshold >= .5 {
		return nil, fmt.Errorf("qdm: cdf threshold %v outside [0, 0.5)", cfg.CDFThreshold)
	}
	return &cfg, nil
}

// ApplyLocation debiases one location's future series.
func (q *QuantileDeltaMapping) ApplyLocation(obs, cmHist, cmFuture []float64, timeObs, timeCmHist, timeCmFuture []time.Time) ([]float64, error) {
	timeObs, timeCmHist, timeCmFuture, err := checkTimes("qdm", obs, cmHist, cmFuture, timeObs, timeCmHist, timeCmFuture)
	if err != nil {
		return nil, err
	}
	yearsFut := yearsOf(timeCmFuture)

	if !q.RunningWindowWithinYear {
		return q.applySeasonalChunk(obs, cmHist, cmFuture, yearsFut)
	}

	doyObs, doyHist, doyFut := daysOfYearOf(timeObs), daysOfYearOf(timeCmHist), daysOfYearOf(timeCmFuture)
	out := make([]float64, len(cmFuture))
	for _, win := range q.winDOY.Use(doyFut) {
		if len(win.Target) == 0 {
			continue
		}
		idxObs := q.winDOY.IndicesInWindow(doyObs, win.Center)
		idxHist := q.winDOY.IndicesInWindow(doyHist, win.Center)
		// the fitting context must cover its own target indices
		idxFut := unionSorted(q.winDOY.IndicesInWindow(doyFut, win.Center), win.Target)
		if len(idxObs) == 0 || len(idxHist) == 0 {
			return nil, fmt.Errorf("qdm: no obs or cm_hist samples in the window centered on day %d", win.Center)
		}
		mapped, err := q.applySeasonalChunk(gather(obs, idxObs), gather(cmHist, idxHist), gather(cmFuture, idxFut), gatherInts(yearsFut, idxFut))
		if err != nil {
			return nil, err
		}
		inTarget := memberSet(win.Target)
		for i, j := range idxFut {
			if inTarget[j] {
				out[j] = mapped[i]
			}
		}
	}
	return out, nil
}

// applySeasonalChunk fits obs and cm_hist once for the chunk, then
// optionally splits the future values further over years to track the
// modeled trend.
func (q *QuantileDeltaMapping) applySeasonalChunk(obs, cmHist, cmFuture []float64, yearsFut []int) ([]float64, error) {
	fitObs, err := q.Distribution.Fit(obs)
	if err != nil {
		return nil, fmt.Errorf("qdm: fitting obs: %w", err)
	}
	fitHist, err := q.Distribution.Fit(cmHist)
	if err != nil {
		return nil, fmt.Errorf("qdm: fitting cm_hist: %w", err)
	}

	if !q.RunningWindowOverYears {
		return q.applyDelta(cmFuture, fitObs, fitHist)
	}

	out := make([]float64, len(cmFuture))
	for _, seg := range q.winYears.Use(yearsFut) {
		tgtIdx := window.IndicesInYears(yearsFut, seg.TargetFirst, seg.TargetLast)
		if len(tgtIdx) == 0 {
			continue
		}
		// the fitting context must cover its own target indices: the
		// edge targets are extended to the domain edges and can reach
		// beyond the context when the years are not contiguous
		ctxIdx := unionSorted(window.IndicesInYears(yearsFut, seg.ContextFirst, seg.ContextLast), tgtIdx)
		mapped, err := q.applyDelta(gather(cmFuture, ctxIdx), fitObs, fitHist)
		if err != nil {
			return nil, err
		}
		inTarget := memberSet(tgtIdx)
		for i, j := range ctxIdx {
			if inTarget[j] {
				out[j] = mapped[i]
			}
		}
	}
	return out, nil
}

// applyDelta corrects one innermost chunk: rank each future value
// within its own window, then impose the quantile delta between the
// fitted obs and cm_hist distributions at that rank.
func (q *QuantileDeltaMapping) applyDelta(cmFuture []float64, fitObs, fitHist dist.Fitted) ([]float64, error) {
	p, err := empirical.ECDF(cmFuture, cmFuture, q.ECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("qdm: %w", err)
	}
	tau := empirical.ThresholdCDFVals(p, q.CDFThreshold)

	out := make([]float64, len(cmFuture))
	switch q.TrendPreservation {
	case TrendAdditive:
		for i, v := range cmFuture {
			out[i] = v + fitObs.PPF(tau[i]) - fitHist.PPF(tau[i])
		}
	case TrendRelative:
		for i, v := range cmFuture {
			out[i] = v * fitObs.PPF(tau[i]) / fitHist.PPF(tau[i])
		}
	default:
		return nil, fmt.Errorf("qdm: trend preservation must be one of [additive relative], got %q", q.TrendPreservation)
	}

	if q.CensorValuesToZero {
		for i, v := range out {
			if v < q.CensoringThreshold {
				out[i] = 0.
			}
		}
	}
	return out, nil
}

func unionSorted(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func memberSet(idx []int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, v := range idx {
		m[v] = true
	}
	return m
}
