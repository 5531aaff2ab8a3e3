package dist

import (
	"math"
	"math/rand"
	"testing"

	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRng(seed int64) *rand.Rand {
	rng := rand.New(mrg63k3a.New())
	rng.Seed(seed)
	return rng
}

func TestNormalFitRecoversParameters(t *testing.T) {
	rng := testRng(42)
	data := make([]float64, 5000)
	for i := range data {
		data[i] = 10 + 2*rng.NormFloat64()
	}
	f, err := Normal{}.Fit(data)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, f.CDF(10), 0.02)
	assert.InDelta(t, 10, f.PPF(0.5), 0.1)
	assert.InDelta(t, 12, f.PPF(0.841344746), 0.15) // one sigma up
}

func TestGammaFit(t *testing.T) {
	rng := testRng(7)
	data := make([]float64, 5000)
	for i := range data {
		// shape 2, rate 1
		data[i] = rng.ExpFloat64() + rng.ExpFloat64()
	}
	f, err := Gamma{}.Fit(data)
	require.NoError(t, err)

	// Gamma(2,1): F(2) = 1 - 3e^-2
	assert.InDelta(t, 0.59399, f.CDF(2), 0.03)
	for _, x := range []float64{0.5, 1, 2, 4} {
		assert.InDelta(t, x, f.PPF(f.CDF(x)), 1e-6)
	}
}

func TestBetaFit(t *testing.T) {
	rng := testRng(11)
	data := make([]float64, 4000)
	for i := range data {
		data[i] = rng.Float64() // Beta(1,1)
	}
	f, err := Beta{}.Fit(data)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f.CDF(0.5), 0.05)
	assert.InDelta(t, 0.25, f.CDF(0.25), 0.05)
}

func TestWeibullFit(t *testing.T) {
	rng := testRng(3)
	data := make([]float64, 5000)
	for i := range data {
		// the square root of a standard exponential is Weibull with
		// shape 2 and scale 1
		data[i] = math.Sqrt(rng.ExpFloat64())
	}
	f, err := Weibull{}.Fit(data)
	require.NoError(t, err)
	// Weibull(k=2, lambda=1): F(1) = 1 - 1/e
	assert.InDelta(t, 0.6321, f.CDF(1), 0.03)
	assert.InDelta(t, 1, f.PPF(f.CDF(1)), 1e-6)
}

func TestHistogramInverts(t *testing.T) {
	rng := testRng(5)
	data := make([]float64, 2000)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	f, err := Histogram{}.Fit(data)
	require.NoError(t, err)
	for _, x := range []float64{10, 33, 50, 90} {
		assert.InDelta(t, x, f.PPF(f.CDF(x)), 5)
	}
	assert.InDelta(t, 0.5, f.CDF(50), 0.05)
}

func TestEmptyAndDegenerateSamples(t *testing.T) {
	_, err := Normal{}.Fit(nil)
	assert.ErrorIs(t, err, ErrEmptySample)
	_, err = Gamma{}.Fit(nil)
	assert.ErrorIs(t, err, ErrEmptySample)
	_, err = Histogram{}.Fit(nil)
	assert.ErrorIs(t, err, ErrEmptySample)
}

func TestKolmogorovSmirnov(t *testing.T) {
	rng := testRng(13)
	data := make([]float64, 2000)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	f, err := Normal{}.Fit(data)
	require.NoError(t, err)
	assert.Less(t, KolmogorovSmirnov(data, f), 0.1, "fit on its own sample")

	shifted := make([]float64, len(data))
	for i, v := range data {
		shifted[i] = v + 5
	}
	assert.Greater(t, KolmogorovSmirnov(shifted, f), 0.5, "fit on a displaced sample")
}

func TestLeftCensoredGamma(t *testing.T) {
	rng := testRng(17)
	const threshold = 0.5
	data := make([]float64, 1000)
	for i := range data {
		if i%5 < 2 { // 40% censored
			data[i] = 0
		} else {
			data[i] = threshold + rng.ExpFloat64()
		}
	}
	f, err := LeftCensoredGamma{Threshold: threshold}.Fit(data)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, f.CDF(threshold), 0.02)
	assert.Equal(t, 0., f.CDF(0))
	q := f.PPF(0.2)
	assert.Greater(t, q, 0.)
	assert.Less(t, q, threshold)

	fc, err := LeftCensoredGamma{Threshold: threshold, CensorInPPF: true}.Fit(data)
	require.NoError(t, err)
	assert.Equal(t, 0., fc.PPF(0.2))

	_, err = LeftCensoredGamma{}.Fit(data)
	assert.ErrorIs(t, err, ErrDegenerateSample, "threshold is required")
}

func TestAffinePinsLocation(t *testing.T) {
	rng := testRng(23)
	const loc = 5.
	data := make([]float64, 3000)
	for i := range data {
		data[i] = loc + rng.ExpFloat64() + rng.ExpFloat64()
	}
	f, err := Affine(Gamma{}, loc, 0).Fit(data)
	require.NoError(t, err)

	assert.Greater(t, f.PPF(0.01), loc)
	assert.Less(t, f.CDF(loc+1e-9), 0.01)
	for _, x := range []float64{6, 7, 9} {
		assert.InDelta(t, x, f.PPF(f.CDF(x)), 1e-6)
	}
}
