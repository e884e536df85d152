package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"
)

func TestLinearRecoversParameters(t *testing.T) {
	xs, ys := SyntheticLinear(500, 2.5, -1.0, 0.2, 1)

	slope, intercept, err := Linear(xs, ys)
	require.NoError(t, err)
	require.InDelta(t, 2.5, slope, 0.05)
	require.InDelta(t, -1.0, intercept, 0.2)
}

func TestLinearExactFit(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7} // y = 2x + 1

	slope, intercept, err := Linear(xs, ys)
	require.NoError(t, err)
	require.InDelta(t, 2.0, slope, 1e-9)
	require.InDelta(t, 1.0, intercept, 1e-9)
}

func TestLinearRejectsBadData(t *testing.T) {
	_, _, err := Linear([]float64{1, 2}, []float64{1})
	require.Error(t, err)

	_, _, err = Linear([]float64{1}, []float64{1})
	require.Error(t, err)
}

func expDecay(params []float64, x float64) float64 {
	return params[0] * math.Exp(-params[1]*x)
}

func TestCurveRecoversParameters(t *testing.T) {
	truth := []float64{3.0, 0.7}
	xs, ys := SyntheticCurve(expDecay, truth, 200, 0, 5, 0.01, 2)

	got, err := Curve(expDecay, xs, ys, []float64{1, 1})
	require.NoError(t, err)
	require.InDelta(t, truth[0], got[0], 0.1)
	require.InDelta(t, truth[1], got[1], 0.1)
}

func TestCurveRejectsBadInput(t *testing.T) {
	_, err := Curve(expDecay, []float64{1}, []float64{1, 2}, []float64{1, 1})
	require.Error(t, err)

	_, err = Curve(expDecay, nil, nil, []float64{1, 1})
	require.Error(t, err)
}

func TestMinimizeQuadraticBowl(t *testing.T) {
	objective := func(p []float64) float64 {
		return (p[0]-3)*(p[0]-3) + (p[1]+1)*(p[1]+1)
	}

	got, err := Minimize(objective, []float64{0, 0}, nil)
	require.NoError(t, err)
	require.InDelta(t, 3.0, got[0], 1e-3)
	require.InDelta(t, -1.0, got[1], 1e-3)

	// Same answer with an explicitly chosen method.
	got, err = Minimize(objective, []float64{0, 0}, &optimize.NelderMead{})
	require.NoError(t, err)
	require.InDelta(t, 3.0, got[0], 1e-3)
}

func TestLogPosteriorShape(t *testing.T) {
	truth := []float64{3.0, 0.7}
	xs, ys := SyntheticCurve(expDecay, truth, 100, 0, 5, 0.05, 3)

	prior := FlatLogPrior([]float64{0, 0}, []float64{10, 5})
	like := GaussianLogLikelihood(expDecay, xs, ys, 0.05)
	post := LogPosterior(prior, like)

	atTruth := post(truth)
	require.False(t, math.IsInf(atTruth, -1))

	// The posterior prefers the truth over a clearly wrong point.
	require.Greater(t, atTruth, post([]float64{5.0, 2.0}))

	// Outside the prior bounds the posterior is impossible and the
	// likelihood is never evaluated.
	require.True(t, math.IsInf(post([]float64{-1, 0.7}), -1))
}

func TestFlatLogPriorBounds(t *testing.T) {
	prior := FlatLogPrior([]float64{-1, -1}, []float64{1, 1})
	require.Equal(t, 0.0, prior([]float64{0, 0}))
	require.True(t, math.IsInf(prior([]float64{2, 0}), -1))
	require.True(t, math.IsInf(prior([]float64{0}), -1))
}
