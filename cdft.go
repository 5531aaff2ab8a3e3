package debias

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/maseology/debias/empirical"
	"github.com/maseology/debias/window"
	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
	"gonum.org/v1/gonum/stat"
)

// DeltaShift selects the mean shift applied to the climate model
// series before the quantile-quantile mapping of CDFt.
type DeltaShift string

const (
	DeltaShiftAdditive       DeltaShift = "additive"
	DeltaShiftMultiplicative DeltaShift = "multiplicative"
	DeltaShiftNone           DeltaShift = "no_shift"
)

// CDFt maps the future climate model distribution onto the observed
// one through the composition iecdf(cm_future, ecdf(cm_hist,
// iecdf(obs, ecdf(cm_future, .)))), optionally after a mean delta
// shift, per calendar month, in a running window over the years of the
// future run, and with stochastic singularity removal (SSR) for
// zero-inflated variables.
type CDFt struct {
	SSR               bool
	DeltaShift        DeltaShift
	ApplyByMonth      bool
	RunningWindowMode bool
	WindowLengthYears int // odd, default 17
	WindowStepYears   int // odd, default 9
	ECDFMethod        empirical.ECDFMethod
	IECDFMethod       empirical.IECDFMethod
	Rng               *rand.Rand

	win *window.OverYears
}

// NewCDFt validates cfg, fills defaults and derives the running
// window. The returned value is read-only across ApplyLocation calls.
func NewCDFt(cfg CDFt) (*CDFt, error) {
	if cfg.WindowLengthYears == 0 {
		cfg.WindowLengthYears = 17
	}
	if cfg.WindowStepYears == 0 {
		cfg.WindowStepYears = 9
	}
	if cfg.ECDFMethod == "" {
		cfg.ECDFMethod = empirical.ECDFLinearInterpolation
	}
	if cfg.IECDFMethod == "" {
		cfg.IECDFMethod = empirical.IECDFLinear
	}
	if cfg.DeltaShift == "" {
		cfg.DeltaShift = DeltaShiftAdditive
	}
	switch cfg.DeltaShift {
	case DeltaShiftAdditive, DeltaShiftMultiplicative, DeltaShiftNone:
	default:
		return nil, fmt.Errorf("cdft: delta shift must be one of [additive multiplicative no_shift], got %q", cfg.DeltaShift)
	}
	if err := checkMethods("cdft", cfg.ECDFMethod, cfg.IECDFMethod); err != nil {
		return nil, err
	}
	if cfg.RunningWindowMode {
		w, err := window.NewOverYears(cfg.WindowLengthYears, cfg.WindowStepYears)
		if err != nil {
			return nil, fmt.Errorf("cdft: %w", err)
		}
		cfg.win = w
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(mrg63k3a.New())
		cfg.Rng.Seed(time.Now().UnixNano())
	}
	return &cfg, nil
}

// checkMethods validates ecdf/iecdf method names once at construction
// by probing them on a trivial sample.
func checkMethods(name string, em empirical.ECDFMethod, im empirical.IECDFMethod) error {
	if _, err := empirical.ECDF([]float64{0., 1.}, []float64{.5}, em); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := empirical.IECDF([]float64{0., 1.}, []float64{.5}, im); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ApplyLocation debiases one location's future series.
func (c *CDFt) ApplyLocation(obs, cmHist, cmFuture []float64, timeObs, timeCmHist, timeCmFuture []time.Time) ([]float64, error) {
	timeObs, timeCmHist, timeCmFuture, err := checkTimes("cdft", obs, cmHist, cmFuture, timeObs, timeCmHist, timeCmFuture)
	if err != nil {
		return nil, err
	}

	if !c.RunningWindowMode {
		return c.applyWindow(obs, cmHist, cmFuture, timeObs, timeCmHist, timeCmFuture)
	}

	yearsFut := yearsOf(timeCmFuture)
	out := make([]float64, len(cmFuture))
	for _, seg := range c.win.Use(yearsFut) {
		tgtIdx := window.IndicesInYears(yearsFut, seg.TargetFirst, seg.TargetLast)
		if len(tgtIdx) == 0 {
			continue
		}
		// the fitting context must cover its own target indices: the
		// edge targets are extended to the domain edges and can reach
		// beyond the context when the years are not contiguous
		ctxIdx := unionSorted(window.IndicesInYears(yearsFut, seg.ContextFirst, seg.ContextLast), tgtIdx)
		mapped, err := c.applyWindow(obs, cmHist, gather(cmFuture, ctxIdx), timeObs, timeCmHist, gatherTimes(timeCmFuture, ctxIdx))
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

func (c *CDFt) applyWindow(obs, cmHist, cmFuture []float64, timeObs, timeCmHist, timeCmFuture []time.Time) ([]float64, error) {
	if !c.ApplyByMonth {
		return c.applyChunk(obs, cmHist, cmFuture)
	}
	monObs, monHist, monFut := monthsOf(timeObs), monthsOf(timeCmHist), monthsOf(timeCmFuture)
	out := make([]float64, len(cmFuture))
	for m := 1; m <= 12; m++ {
		idxFut := indicesEq(monFut, m)
		if len(idxFut) == 0 {
			continue
		}
		idxObs, idxHist := indicesEq(monObs, m), indicesEq(monHist, m)
		if len(idxObs) == 0 || len(idxHist) == 0 {
			return nil, fmt.Errorf("cdft: no obs or cm_hist samples for month %d", m)
		}
		mapped, err := c.applyChunk(gather(obs, idxObs), gather(cmHist, idxHist), gather(cmFuture, idxFut))
		if err != nil {
			return nil, err
		}
		scatter(out, idxFut, mapped)
	}
	return out, nil
}

// applyChunk runs SSR, the delta shift and the QQ-mapping on one chunk.
func (c *CDFt) applyChunk(obs, cmHist, cmFuture []float64) ([]float64, error) {
	var ssrThreshold float64
	if c.SSR {
		var ok bool
		if ssrThreshold, ok = minPositive(obs, cmHist, cmFuture); !ok {
			return nil, fmt.Errorf("cdft: SSR requires at least one positive value in each of obs, cm_hist, cm_future")
		}
		obs = c.randomizeZeros(obs, ssrThreshold)
		cmHist = c.randomizeZeros(cmHist, ssrThreshold)
		cmFuture = c.randomizeZeros(cmFuture, ssrThreshold)
	}

	switch c.DeltaShift {
	case DeltaShiftAdditive:
		shift := stat.Mean(obs, nil) - stat.Mean(cmHist, nil)
		cmHist = addConst(cmHist, shift)
		cmFuture = addConst(cmFuture, shift)
	case DeltaShiftMultiplicative:
		scale := stat.Mean(obs, nil) / stat.Mean(cmHist, nil)
		cmHist = mulConst(cmHist, scale)
		cmFuture = mulConst(cmFuture, scale)
	}

	p, err := empirical.ECDF(cmFuture, cmFuture, c.ECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("cdft: %w", err)
	}
	q, err := empirical.IECDF(obs, p, c.IECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("cdft: %w", err)
	}
	p2, err := empirical.ECDF(cmHist, q, c.ECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("cdft: %w", err)
	}
	mapped, err := empirical.IECDF(cmFuture, p2, c.IECDFMethod)
	if err != nil {
		return nil, fmt.Errorf("cdft: %w", err)
	}

	if c.SSR {
		for i, v := range mapped {
			if v < ssrThreshold {
				mapped[i] = 0.
			}
		}
	}
	return mapped, nil
}

func (c *CDFt) randomizeZeros(x []float64, threshold float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v == 0. {
			out[i] = c.Rng.Float64() * threshold
		} else {
			out[i] = v
		}
	}
	return out
}

func minPositive(series ...[]float64) (float64, bool) {
	found := false
	m := 0.
	for _, s := range series {
		mi, ok := 0., false
		for _, v := range s {
			if v > 0. && (!ok || v < mi) {
				mi, ok = v, true
			}
		}
		if !ok {
			return 0., false
		}
		if !found || mi < m {
			m, found = mi, true
		}
	}
	return m, found
}

func addConst(x []float64, c float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v + c
	}
	return out
}

func mulConst(x []float64, c float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * c
	}
	return out
}

func indicesEq(v []int, want int) []int {
	var idx []int
	for i, x := range v {
		if x == want {
			idx = append(idx, i)
		}
	}
	return idx
}

func gatherTimes(ts []time.Time, idx []int) []time.Time {
	out := make([]time.Time, len(idx))
	for i, j := range idx {
		out[i] = ts[j]
	}
	return out
}
