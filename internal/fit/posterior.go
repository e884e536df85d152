package fit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LogProb evaluates an unnormalized log-probability at a parameter vector.
type LogProb func(params []float64) float64

// Sampler is the contract for an external posterior sampler (an ensemble
// MCMC implementation, for example). Implementations evolve the initial
// walker positions and return parameter-vector samples distributed
// according to logProb. This package provides the log-probability plumbing
// only; it ships no sampler.
type Sampler interface {
	Sample(ctx context.Context, logProb LogProb, walkers [][]float64, steps int) ([][]float64, error)
}

// FlatLogPrior is uniform inside the per-parameter bounds and impossible
// outside: 0 inside, -Inf out.
func FlatLogPrior(lo, hi []float64) LogProb {
	return func(params []float64) float64 {
		if len(params) != len(lo) || len(params) != len(hi) {
			return math.Inf(-1)
		}
		for i, p := range params {
			if p < lo[i] || p > hi[i] {
				return math.Inf(-1)
			}
		}
		return 0
	}
}

// GaussianLogLikelihood assumes independent Gaussian noise of known sigma
// around the model prediction at every data point.
func GaussianLogLikelihood(model Model, xs, ys []float64, sigma float64) LogProb {
	return func(params []float64) float64 {
		var ll float64
		for i, x := range xs {
			noise := distuv.Normal{Mu: model(params, x), Sigma: sigma}
			ll += noise.LogProb(ys[i])
		}
		return ll
	}
}

// LogPosterior is the unnormalized sum of log-prior and log-likelihood. The
// likelihood is skipped wherever the prior already rules the point out.
func LogPosterior(prior, likelihood LogProb) LogProb {
	return func(params []float64) float64 {
		lp := prior(params)
		if math.IsInf(lp, -1) {
			return lp
		}
		return lp + likelihood(params)
	}
}
