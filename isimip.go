package debias

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/maseology/debias/dist"
	"github.com/maseology/debias/empirical"
	"github.com/maseology/debias/window"
	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
)

// TrendTransfer selects the formula used by the ISIMIP pipeline to
// build pseudo future observations from rank-matched quantiles.
type TrendTransfer string

const (
	TransferAdditive       TrendTransfer = "additive"
	TransferMultiplicative TrendTransfer = "multiplicative"
	TransferMixed          TrendTransfer = "mixed"
	TransferBounded        TrendTransfer = "bounded"
)

// NonParametricMode selects how values not sent to a bound are mapped
// onto the between-threshold entries in the quantile mapping core.
type NonParametricMode string

const (
	NonParametricNormal   NonParametricMode = "normal"
	NonParametricISIMIPv3 NonParametricMode = "isimipv3.0"
)

// ISIMIP is the 8-step bias adjustment pipeline: annual-cycle scaling
// of bounded variables, imputation of invalid values, detrending,
// threshold randomization, trend transfer onto pseudo future
// observations, parametric quantile mapping with frequency adjustment
// of values beyond the thresholds, trend restoration and annual-cycle
// rescaling. Steps 1 and 8 run once over the whole future series;
// steps 2-7 run per running-window chunk (day of year, circular) or
// per calendar month when running-window mode is off.
//
// Bounds follow the sentinel convention of the data model: -Inf/+Inf
// mark unbounded sides. A zero-valued bounds quadruple is treated as
// fully unbounded.
type ISIMIP struct {
	Distribution  dist.Distribution
	TrendTransfer TrendTransfer
	Detrending    bool

	// ReasonablePhysicalRange, when non-nil, is checked against all
	// three raw input series before any stage runs.
	ReasonablePhysicalRange *[2]float64

	LowerBound, LowerThreshold float64
	UpperBound, UpperThreshold float64

	ScaleByAnnualCycleOfUpperBounds bool
	WindowLengthAnnualCycle         int // odd, default 31

	ImputeMissingValues               bool
	TrendRemovalWithSignificanceTest  bool
	TrendTransferOnlyWithinThreshold  bool
	AdjustFrequenciesBeyondThresholds bool
	EventLikelihoodAdjustment         bool
	KSTestForGoodnessOfFit            bool
	NonparametricQM                   bool

	ECDFMethod        empirical.ECDFMethod
	IECDFMethod       empirical.IECDFMethod
	NonParametricMode NonParametricMode

	RunningWindowMode bool
	WindowLengthDays  int // odd, default 31
	WindowStepDays    int // odd, default 1

	Rng *rand.Rand

	win *window.OverDaysOfYear
}

// ISIMIP3Defaults returns a configuration carrying the general (non
// variable specific) ISIMIP3 settings; callers set the distribution,
// bounds and per-variable switches on top of it.
func ISIMIP3Defaults() ISIMIP {
	return ISIMIP{
		LowerBound:     math.Inf(-1),
		LowerThreshold: math.Inf(-1),
		UpperBound:     math.Inf(1),
		UpperThreshold: math.Inf(1),

		WindowLengthAnnualCycle:           31,
		TrendRemovalWithSignificanceTest:  true,
		TrendTransferOnlyWithinThreshold:  true,
		AdjustFrequenciesBeyondThresholds: true,
		KSTestForGoodnessOfFit:            true,

		ECDFMethod:        empirical.ECDFLinearInterpolation,
		IECDFMethod:       empirical.IECDFLinear,
		NonParametricMode: NonParametricISIMIPv3,

		RunningWindowMode: true,
		WindowLengthDays:  31,
		WindowStepDays:    1,
	}
}

// NewISIMIP validates cfg, fills defaults and derives the running
// window.
func NewISIMIP(cfg ISIMIP) (*ISIMIP, error) {
	if cfg.Distribution == nil && !cfg.NonparametricQM {
		return nil, fmt.Errorf("isimip: a distribution satisfying the fit/cdf/ppf capability is required unless nonparametric quantile mapping is configured")
	}
	switch cfg.TrendTransfer {
	case TransferAdditive, TransferMultiplicative, TransferMixed, TransferBounded:
	default:
		return nil, fmt.Errorf("isimip: trend transfer method must be one of [additive multiplicative mixed bounded], got %q", cfg.TrendTransfer)
	}
	if cfg.LowerBound == 0. && cfg.LowerThreshold == 0. && cfg.UpperBound == 0. && cfg.UpperThreshold == 0. {
		cfg.LowerBound, cfg.LowerThreshold = math.Inf(-1), math.Inf(-1)
		cfg.UpperBound, cfg.UpperThreshold = math.Inf(1), math.Inf(1)
	}
	if cfg.hasLowerBound() && cfg.hasLowerThreshold() && cfg.LowerBound >= cfg.LowerThreshold {
		return nil, fmt.Errorf("isimip: lower bound %v must lie below lower threshold %v", cfg.LowerBound, cfg.LowerThreshold)
	}
	if cfg.hasUpperBound() && cfg.hasUpperThreshold() && cfg.UpperThreshold >= cfg.UpperBound {
		return nil, fmt.Errorf("isimip: upper threshold %v must lie below upper bound %v", cfg.UpperThreshold, cfg.UpperBound)
	}
	if cfg.hasLowerThreshold() && cfg.hasUpperThreshold() && cfg.LowerThreshold >= cfg.UpperThreshold {
		return nil, fmt.Errorf("isimip: lower threshold %v must lie below upper threshold %v", cfg.LowerThreshold, cfg.UpperThreshold)
	}
	if r := cfg.ReasonablePhysicalRange; r != nil && !(r[0] < r[1]) {
		return nil, fmt.Errorf("isimip: reasonable physical range [%v, %v] must have lower < upper", r[0], r[1])
	}
	if cfg.WindowLengthAnnualCycle == 0 {
		cfg.WindowLengthAnnualCycle = 31
	}
	if cfg.WindowLengthAnnualCycle < 1 {
		return nil, fmt.Errorf("isimip: annual cycle window length %d must be positive", cfg.WindowLengthAnnualCycle)
	}
	if cfg.ECDFMethod == "" {
		cfg.ECDFMethod = empirical.ECDFLinearInterpolation
	}
	if cfg.IECDFMethod == "" {
		cfg.IECDFMethod = empirical.IECDFLinear
	}
	if err := checkMethods("isimip", cfg.ECDFMethod, cfg.IECDFMethod); err != nil {
		return nil, err
	}
	switch cfg.NonParametricMode {
	case "":
		cfg.NonParametricMode = NonParametricISIMIPv3
	case NonParametricNormal, NonParametricISIMIPv3:
	default:
		return nil, fmt.Errorf("isimip: non-parametric mode must be one of [normal isimipv3.0], got %q", cfg.NonParametricMode)
	}
	if cfg.RunningWindowMode {
		if cfg.WindowLengthDays == 0 {
			cfg.WindowLengthDays = 31
		}
		if cfg.WindowStepDays == 0 {
			cfg.WindowStepDays = 1
		}
		w, err := window.NewOverDaysOfYear(cfg.WindowLengthDays, cfg.WindowStepDays)
		if err != nil {
			return nil, fmt.Errorf("isimip: %w", err)
		}
		cfg.win = w
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(mrg63k3a.New())
		cfg.Rng.Seed(time.Now().UnixNano())
	}
	return &cfg, nil
}

func (c *ISIMIP) hasLowerBound() bool     { return !math.IsInf(c.LowerBound, -1) }
func (c *ISIMIP) hasLowerThreshold() bool { return !math.IsInf(c.LowerThreshold, -1) }
func (c *ISIMIP) hasUpperBound() bool     { return !math.IsInf(c.UpperBound, 1) }
func (c *ISIMIP) hasUpperThreshold() bool { return !math.IsInf(c.UpperThreshold, 1) }
func (c *ISIMIP) hasThreshold() bool      { return c.hasLowerThreshold() || c.hasUpperThreshold() }

func (c *ISIMIP) beyondLower(x float64) bool { return x <= c.LowerThreshold }
func (c *ISIMIP) beyondUpper(x float64) bool { return x >= c.UpperThreshold }
func (c *ISIMIP) betweenThresholds(x float64) bool {
	return x > c.LowerThreshold && x < c.UpperThreshold
}

func (c *ISIMIP) valuesBetweenThresholds(x []float64) []float64 {
	var out []float64
	for _, v := range x {
		if c.betweenThresholds(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *ISIMIP) checkPhysicalRange(obs, cmHist, cmFuture []float64) error {
	r := c.ReasonablePhysicalRange
	if r == nil {
		return nil
	}
	for _, s := range []struct {
		name string
		vals []float64
	}{{"obs", obs}, {"cm_hist", cmHist}, {"cm_future", cmFuture}} {
		for _, v := range s.vals {
			if v < r[0] || v > r[1] {
				return fmt.Errorf("isimip: values of %s lie outside the reasonable physical range [%v, %v]", s.name, r[0], r[1])
			}
		}
	}
	return nil
}

// ApplyLocation debiases one location's future series.
func (c *ISIMIP) ApplyLocation(obs, cmHist, cmFuture []float64, timeObs, timeCmHist, timeCmFuture []time.Time) ([]float64, error) {
	if err := c.checkPhysicalRange(obs, cmHist, cmFuture); err != nil {
		return nil, err
	}
	timeObs, timeCmHist, timeCmFuture, err := checkTimes("isimip", obs, cmHist, cmFuture, timeObs, timeCmHist, timeCmFuture)
	if err != nil {
		return nil, err
	}

	yearsObs := yearsOf(timeObs)
	yearsHist := yearsOf(timeCmHist)
	yearsFut := yearsOf(timeCmFuture)

	// steps 1 and 8 run outside the running window
	obs, cmHist, cmFuture, debiasedCycle, err := c.step1(obs, cmHist, cmFuture, timeObs, timeCmHist, timeCmFuture)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(cmFuture))
	if c.RunningWindowMode {
		doyObs, doyHist, doyFut := daysOfYearOf(timeObs), daysOfYearOf(timeCmHist), daysOfYearOf(timeCmFuture)
		for _, win := range c.win.Use(doyFut) {
			if len(win.Target) == 0 {
				continue
			}
			idxObs := c.win.IndicesInWindow(doyObs, win.Center)
			idxHist := c.win.IndicesInWindow(doyHist, win.Center)
			// the fitting context must cover its own target indices
			idxFut := unionSorted(c.win.IndicesInWindow(doyFut, win.Center), win.Target)
			if len(idxObs) == 0 || len(idxHist) == 0 {
				return nil, fmt.Errorf("isimip: no obs or cm_hist samples in the window centered on day %d", win.Center)
			}
			mapped, err := c.applyOnWindow(
				gather(obs, idxObs), gather(cmHist, idxHist), gather(cmFuture, idxFut),
				gatherInts(yearsObs, idxObs), gatherInts(yearsHist, idxHist), gatherInts(yearsFut, idxFut))
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
	} else {
		monObs, monHist, monFut := monthsOf(timeObs), monthsOf(timeCmHist), monthsOf(timeCmFuture)
		for m := 1; m <= 12; m++ {
			idxFut := indicesEq(monFut, m)
			if len(idxFut) == 0 {
				continue
			}
			idxObs, idxHist := indicesEq(monObs, m), indicesEq(monHist, m)
			if len(idxObs) == 0 || len(idxHist) == 0 {
				return nil, fmt.Errorf("isimip: no obs or cm_hist samples for month %d", m)
			}
			mapped, err := c.applyOnWindow(
				gather(obs, idxObs), gather(cmHist, idxHist), gather(cmFuture, idxFut),
				gatherInts(yearsObs, idxObs), gatherInts(yearsHist, idxHist), gatherInts(yearsFut, idxFut))
			if err != nil {
				return nil, err
			}
			scatter(out, idxFut, mapped)
		}
	}

	return c.step8(out, debiasedCycle, timeCmFuture), nil
}

// applyOnWindow runs steps 2 through 7 on one chunk.
func (c *ISIMIP) applyOnWindow(obsHist, cmHist, cmFuture []float64, yearsObs, yearsHist, yearsFut []int) ([]float64, error) {
	obsHist, cmHist, cmFuture, err := c.step2(obsHist, cmHist, cmFuture)
	if err != nil {
		return nil, err
	}
	obsHist, cmHist, cmFuture, trendFut := c.step3(obsHist, cmHist, cmFuture, yearsObs, yearsHist, yearsFut)
	obsHist, cmHist, cmFuture = c.step4(obsHist, cmHist, cmFuture)
	obsFuture, err := c.step5(obsHist, cmHist, cmFuture)
	if err != nil {
		return nil, err
	}
	mapped, err := c.step6(obsHist, obsFuture, cmHist, cmFuture)
	if err != nil {
		return nil, err
	}
	return c.step7(mapped, trendFut), nil
}
