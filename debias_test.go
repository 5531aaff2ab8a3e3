package debias

import (
	"math/rand"
	"testing"
	"time"

	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dailySeries returns n consecutive daily timestamps starting Jan 1 of
// the given year.
func dailySeries(year, n int) []time.Time {
	ts := make([]time.Time, n)
	d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = d
		d = d.AddDate(0, 0, 1)
	}
	return ts
}

// monthlySeries returns n mid-month timestamps starting January of the
// given year.
func monthlySeries(year, n int) []time.Time {
	ts := make([]time.Time, n)
	d := time.Date(year, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = d
		d = d.AddDate(0, 1, 0)
	}
	return ts
}

func seededRng(seed int64) *rand.Rand {
	rng := rand.New(mrg63k3a.New())
	rng.Seed(seed)
	return rng
}

func TestCheckTimesSynthesizesMissingDates(t *testing.T) {
	obs := []float64{1, 2, 3}
	to, th, tf, err := checkTimes("x", obs, obs, obs, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, to, 3)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), to[0])
	assert.Equal(t, to[1], th[1])
	assert.Equal(t, to[2], tf[2])
}

func TestCheckTimesLengthMismatch(t *testing.T) {
	obs := []float64{1, 2, 3}
	_, _, _, err := checkTimes("x", obs, obs, obs, dailySeries(2000, 2), dailySeries(2000, 3), dailySeries(2000, 3))
	assert.Error(t, err)
}

func TestCheckTimesEmptySeries(t *testing.T) {
	_, _, _, err := checkTimes("x", nil, []float64{1}, []float64{1}, nil, nil, nil)
	assert.Error(t, err)
}

func TestArgsortRanksSortLike(t *testing.T) {
	x := []float64{3, 1, 2}
	assert.Equal(t, []int{1, 2, 0}, argsort(x))
	assert.Equal(t, []int{2, 0, 1}, ranks(x))

	// smallest of x goes where y's smallest sat
	got := sortLike([]float64{30, 10, 20}, []float64{0.2, 0.9, 0.5})
	assert.Equal(t, []float64{10, 30, 20}, got)
}

func TestInterpLinear(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 10, 40}
	assert.InDelta(t, 5., interpLinear(xs, ys, 0.5), 1e-12)
	assert.InDelta(t, 25., interpLinear(xs, ys, 1.5), 1e-12)
	// edge extrapolation
	assert.InDelta(t, -10., interpLinear(xs, ys, -1), 1e-12)
	assert.InDelta(t, 70., interpLinear(xs, ys, 3), 1e-12)
}

func TestInterpOnLength(t *testing.T) {
	got := interpOnLength([]float64{0, 1}, 5)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75, 1}, got, 1e-12)

	same := interpOnLength([]float64{1, 2, 3}, 3)
	assert.Equal(t, []float64{1, 2, 3}, same)
}

func TestUnionSorted(t *testing.T) {
	got := unionSorted([]int{5, 1, 3}, []int{3, 2})
	assert.Equal(t, []int{1, 2, 3, 5}, got)
}

func TestDaysOfYearOf(t *testing.T) {
	ts := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), // leap year day 366
	}
	assert.Equal(t, []int{1, 366}, daysOfYearOf(ts))
}

func TestSyntheticDatesAreDaily(t *testing.T) {
	ts := syntheticDates(400)
	require.Len(t, ts, 400)
	for i := 1; i < len(ts); i++ {
		assert.Equal(t, 24*time.Hour, ts[i].Sub(ts[i-1]))
	}
	assert.Equal(t, 2000, ts[0].Year())
}
