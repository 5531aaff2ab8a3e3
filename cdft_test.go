package debias

import (
	"math"
	"testing"

	"github.com/maseology/debias/empirical"
	"github.com/maseology/objfunc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatPattern(pattern []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func TestCDFtIdentity(t *testing.T) {
	c, err := NewCDFt(CDFt{})
	require.NoError(t, err)

	x := repeatPattern([]float64{1, 2, 3, 4, 5}, 100)
	ts := dailySeries(2000, len(x))
	out, err := c.ApplyLocation(x, x, x, ts, ts, ts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, x, out, 1e-9)
}

func TestCDFtAdditiveShift(t *testing.T) {
	c, err := NewCDFt(CDFt{DeltaShift: DeltaShiftAdditive})
	require.NoError(t, err)

	obs := repeatPattern([]float64{1, 2, 3, 4, 5}, 50)
	hist := repeatPattern([]float64{2, 3, 4, 5, 6}, 50)
	fut := repeatPattern([]float64{3, 4, 5, 6, 7}, 50)
	ts := dailySeries(2000, 50)
	out, err := c.ApplyLocation(obs, hist, fut, ts, ts, ts)
	require.NoError(t, err)

	// the historical bias of +1 is removed while the simulated +1
	// change between hist and future is kept
	want := repeatPattern([]float64{2, 3, 4, 5, 6}, 50)
	assert.InDeltaSlice(t, want, out, 1e-9)
}

func TestCDFtMultiplicativeShift(t *testing.T) {
	c, err := NewCDFt(CDFt{DeltaShift: DeltaShiftMultiplicative})
	require.NoError(t, err)

	obs := repeatPattern([]float64{1, 2, 3, 4, 5}, 50)
	hist := repeatPattern([]float64{2, 4, 6, 8, 10}, 50)
	fut := repeatPattern([]float64{4, 8, 12, 16, 20}, 50)
	ts := dailySeries(2000, 50)
	out, err := c.ApplyLocation(obs, hist, fut, ts, ts, ts)
	require.NoError(t, err)

	want := repeatPattern([]float64{2, 4, 6, 8, 10}, 50)
	assert.InDeltaSlice(t, want, out, 1e-9)
}

func TestCDFtImprovesSkillUnderBias(t *testing.T) {
	rng := seededRng(101)
	const nYears = 40
	n := nYears * 12 // monthly sampling keeps the run small
	times := monthlySeries(1980, n)
	truth := make([]float64, n)
	obs := make([]float64, n)
	hist := make([]float64, n)
	fut := make([]float64, n)
	for i := range truth {
		seasonal := 10 + 8*math.Sin(2*math.Pi*float64(i%12)/12)
		truth[i] = seasonal + rng.NormFloat64()
		obs[i] = seasonal + rng.NormFloat64()
		bias := 3.5
		hist[i] = seasonal + bias + rng.NormFloat64()
		fut[i] = truth[i] + bias
	}

	c, err := NewCDFt(CDFt{ApplyByMonth: true, RunningWindowMode: true})
	require.NoError(t, err)
	out, err := c.ApplyLocation(obs, hist, fut, times, times, times)
	require.NoError(t, err)

	assert.Less(t, objfunc.RMSE(truth, out), objfunc.RMSE(truth, fut),
		"debiased series must beat the raw model run")
	assert.Less(t, math.Abs(objfunc.Bias(truth, out)), math.Abs(objfunc.Bias(truth, fut)))
}

func TestCDFtSSRReproducibleWithSeed(t *testing.T) {
	obs := repeatPattern([]float64{0, 0, 1.2, 2.5, 0, 3.1}, 120)
	hist := repeatPattern([]float64{0, 0.8, 0, 2.1, 2.9, 0}, 120)
	fut := repeatPattern([]float64{0, 1.1, 0, 0, 2.4, 3.3}, 120)
	ts := dailySeries(2000, 120)

	run := func() []float64 {
		c, err := NewCDFt(CDFt{SSR: true, DeltaShift: DeltaShiftNone, Rng: seededRng(55)})
		require.NoError(t, err)
		out, err := c.ApplyLocation(obs, hist, fut, ts, ts, ts)
		require.NoError(t, err)
		return out
	}

	a, b := run(), run()
	assert.Equal(t, a, b, "identical seeds must reproduce the run")
	for _, v := range a {
		assert.GreaterOrEqual(t, v, 0.)
	}
	zeros := 0
	for _, v := range a {
		if v == 0 {
			zeros++
		}
	}
	assert.Greater(t, zeros, 0, "SSR must restore dry days")
}

func TestCDFtSSRRequiresPositiveValues(t *testing.T) {
	c, err := NewCDFt(CDFt{SSR: true, Rng: seededRng(1)})
	require.NoError(t, err)
	zero := make([]float64, 30)
	pos := repeatPattern([]float64{1, 2, 3}, 30)
	ts := dailySeries(2000, 30)
	_, err = c.ApplyLocation(zero, pos, pos, ts, ts, ts)
	assert.Error(t, err)
}

func TestCDFtMonthlyRequiresMonthCoverage(t *testing.T) {
	c, err := NewCDFt(CDFt{ApplyByMonth: true})
	require.NoError(t, err)
	// obs covers January only while the future run spans the year
	obsTimes := dailySeries(2000, 20)
	futTimes := dailySeries(2000, 365)
	obs := repeatPattern([]float64{1, 2}, 20)
	fut := repeatPattern([]float64{1, 2}, 365)
	_, err = c.ApplyLocation(obs, obs, fut, obsTimes, obsTimes, futTimes)
	assert.Error(t, err)
}

func TestCDFtRunningWindowWithYearGaps(t *testing.T) {
	c, err := NewCDFt(CDFt{ApplyByMonth: true, RunningWindowMode: true})
	require.NoError(t, err)

	rng := seededRng(83)
	n := 2 * 365
	x := make([]float64, n)
	for i := range x {
		x[i] = 10 + rng.NormFloat64()
	}
	ts := append(dailySeries(2000, 365), dailySeries(2020, 365)...)

	// identity inputs must map to themselves even though the edge
	// targets extend past the fitting context of the single window the
	// two-year record produces
	out, err := c.ApplyLocation(x, x, x, ts, ts, ts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, x, out, 1e-9)
}

func TestCDFtConfigValidation(t *testing.T) {
	_, err := NewCDFt(CDFt{DeltaShift: DeltaShift("quadratic")})
	assert.Error(t, err)
	_, err = NewCDFt(CDFt{ECDFMethod: empirical.ECDFMethod("spline")})
	assert.Error(t, err)
	_, err = NewCDFt(CDFt{RunningWindowMode: true, WindowLengthYears: 16})
	assert.Error(t, err)
	_, err = NewCDFt(CDFt{RunningWindowMode: true, WindowLengthYears: 9, WindowStepYears: 17})
	assert.Error(t, err)
}
