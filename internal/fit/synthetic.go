package fit

import "math/rand"

// SyntheticLinear generates n points on y = slope*x + intercept over [0,10]
// with Gaussian noise, for the demos and tests.
func SyntheticLinear(n int, slope, intercept, noise float64, seed int64) (xs, ys []float64) {
	rng := rand.New(rand.NewSource(seed))
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		x := 10 * float64(i) / float64(n)
		xs[i] = x
		ys[i] = slope*x + intercept + noise*rng.NormFloat64()
	}
	return xs, ys
}

// SyntheticCurve samples model at n evenly spaced points on [a,b] with
// Gaussian noise.
func SyntheticCurve(model Model, params []float64, n int, a, b, noise float64, seed int64) (xs, ys []float64) {
	rng := rand.New(rand.NewSource(seed))
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		x := a + (b-a)*float64(i)/float64(n)
		xs[i] = x
		ys[i] = model(params, x) + noise*rng.NormFloat64()
	}
	return xs, ys
}
