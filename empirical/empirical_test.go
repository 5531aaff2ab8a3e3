package empirical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECDFStepFunction(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	p, err := ECDF(x, []float64{0.5, 1, 2.5, 4, 9}, ECDFStepFunction)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 1, 1}, p)
}

func TestECDFLinearInterpolation(t *testing.T) {
	x := []float64{1, 2, 3, 5}
	p, err := ECDF(x, []float64{1, 2, 4, 5, 0, 9}, ECDFLinearInterpolation)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1. / 3, 5. / 6, 1, 0, 1}, p, 1e-12)
}

func TestECDFKernelDensity(t *testing.T) {
	x := []float64{-2, -1, 1, 2}
	p, err := ECDF(x, []float64{-3, 0, 3}, ECDFKernelDensity)
	require.NoError(t, err)
	// symmetric sample, so the center sits at one half
	assert.InDelta(t, 0.5, p[1], 1e-12)
	assert.Less(t, p[0], p[1])
	assert.Less(t, p[1], p[2])
	for _, pi := range p {
		assert.GreaterOrEqual(t, pi, 0.)
		assert.LessOrEqual(t, pi, 1.)
	}
}

func TestECDFEmptySample(t *testing.T) {
	_, err := ECDF(nil, []float64{0.5}, ECDFStepFunction)
	assert.Error(t, err)
}

func TestECDFUnknownMethod(t *testing.T) {
	_, err := ECDF([]float64{1, 2}, []float64{1}, ECDFMethod("spline"))
	assert.Error(t, err)
}

func TestIECDFRoundTrip(t *testing.T) {
	x := []float64{3, 1, 4, 1.5, 9, 2.6, 5.3, 5.8, 9.7, 0.2}
	p, err := ECDF(x, x, ECDFLinearInterpolation)
	require.NoError(t, err)
	q, err := IECDF(x, p, IECDFLinear)
	require.NoError(t, err)
	assert.InDeltaSlice(t, x, q, 1e-12)
}

func TestIECDFEstimatorsAgreeAtMedian(t *testing.T) {
	x := []float64{5, 3, 1, 4, 2}
	for _, m := range []IECDFMethod{
		IECDFInvertedCDF, IECDFAveragedInvertedCDF,
		IECDFHazen, IECDFWeibull, IECDFLinear,
		IECDFMedianUnbiased, IECDFNormalUnbiased,
	} {
		q, err := IECDF(x, []float64{0.5}, m)
		require.NoError(t, err, string(m))
		assert.InDelta(t, 3, q[0], 1e-12, string(m))
	}

	// the interpolated inverted cdf sits half a sample lower
	q, err := IECDF(x, []float64{0.5}, IECDFInterpolatedInvertedCDF)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, q[0], 1e-12)
}

func TestIECDFEdges(t *testing.T) {
	x := []float64{5, 3, 1, 4, 2}
	for _, m := range []IECDFMethod{
		IECDFInvertedCDF, IECDFAveragedInvertedCDF, IECDFClosestObservation,
		IECDFInterpolatedInvertedCDF, IECDFHazen, IECDFWeibull,
		IECDFLinear, IECDFMedianUnbiased, IECDFNormalUnbiased,
	} {
		q, err := IECDF(x, []float64{0, 1}, m)
		require.NoError(t, err, string(m))
		assert.Equal(t, 1., q[0], string(m))
		assert.Equal(t, 5., q[1], string(m))
	}
}

func TestIECDFRejectsBadProbabilities(t *testing.T) {
	_, err := IECDF([]float64{1, 2}, []float64{1.5}, IECDFLinear)
	assert.Error(t, err)
	_, err = IECDF([]float64{1, 2}, []float64{-0.1}, IECDFLinear)
	assert.Error(t, err)
	_, err = IECDF(nil, []float64{0.5}, IECDFLinear)
	assert.Error(t, err)
}

func TestThresholdCDFVals(t *testing.T) {
	p := ThresholdCDFVals([]float64{0, 0.5, 1}, 0.01)
	assert.Equal(t, []float64{0.01, 0.5, 0.99}, p)

	p = ThresholdCDFVals([]float64{0, 1}, 0)
	assert.Equal(t, []float64{DefaultCDFThreshold, 1 - DefaultCDFThreshold}, p)
}
