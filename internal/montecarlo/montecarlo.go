// Package montecarlo estimates the area under a curve by uniform sampling.
// The same estimate runs in two execution models: fanned over the shared
// worker pool, or split across isolated ranks that combine partial sums with
// message-passing collectives. Partial results are always accumulated
// locally and combined in a single-threaded reduction, never through a
// shared counter.
package montecarlo

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/jayunimelb/bootcamp/internal/comm"
	"github.com/jayunimelb/bootcamp/pool"
)

// Func is the integrand.
type Func func(x float64) float64

// chunksPerWorker controls how finely the sample budget is split in pooled
// mode. More chunks than workers lets a slow chunk self-balance.
const chunksPerWorker = 4

// Estimate integrates f over [a,b] with the given sample budget, fanning
// sample chunks over the worker pool. The result is deterministic for a
// fixed seed, worker count included, because every chunk owns its own
// seeded generator.
func Estimate(ctx context.Context, p *pool.Pool, f Func, a, b float64, samples, workers int, seed int64) (float64, error) {
	if samples < 1 {
		return 0, errors.Errorf("montecarlo: sample count must be at least 1, got %d", samples)
	}

	chunks := split(samples, workers*chunksPerWorker)
	partials := make([]float64, len(chunks))

	_, err := p.Run(ctx, len(chunks), workers, func(ctx context.Context, item int) error {
		// Each chunk writes only its own slot; the pool's join publishes
		// the slice to the reducing goroutine.
		partials[item] = sampleSum(f, a, b, chunks[item], seed+int64(item))
		return nil
	})
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, s := range partials {
		sum += s
	}
	return (b - a) * sum / float64(samples), nil
}

// EstimateRanks runs the same estimate across isolated ranks:
// rank 0 scatters per-rank sample counts, every rank samples locally, the
// partial sums are combined with an all-reduce, and every rank returns its
// own view of the combined estimate.
func EstimateRanks(f Func, a, b float64, samples, ranks int, seed int64) ([]float64, error) {
	if samples < 1 {
		return nil, errors.Errorf("montecarlo: sample count must be at least 1, got %d", samples)
	}
	w, err := comm.NewWorld[float64](ranks)
	if err != nil {
		return nil, err
	}

	views := make([]float64, ranks)
	w.Run(func(r *comm.Rank[float64]) {
		var shares []float64
		if r.ID() == 0 {
			// Unlike pooled chunks, every rank gets a share, zero or not:
			// the scatter must match the world size.
			base, rem := samples/ranks, samples%ranks
			shares = make([]float64, ranks)
			for i := range shares {
				shares[i] = float64(base)
				if i < rem {
					shares[i]++
				}
			}
		}
		n := int(r.Scatter(0, shares))

		local := sampleSum(f, a, b, n, seed+int64(r.ID()))
		total := r.AllReduce(local, func(x, y float64) float64 { return x + y })

		r.Barrier()
		views[r.ID()] = (b - a) * total / float64(samples)
	})
	return views, nil
}

// sampleSum draws n uniform points on [a,b] from a private generator and
// sums f over them.
func sampleSum(f Func, a, b float64, n int, seed int64) float64 {
	rng := rand.New(rand.NewSource(seed))
	var sum float64
	for i := 0; i < n; i++ {
		sum += f(a + (b-a)*rng.Float64())
	}
	return sum
}

// split divides total into at most parts chunks whose sizes differ by at
// most one. Empty chunks are dropped so small budgets produce fewer chunks.
func split(total, parts int) []int {
	if parts < 1 {
		parts = 1
	}
	base := total / parts
	rem := total % parts
	var out []int
	for i := 0; i < parts; i++ {
		n := base
		if i < rem {
			n++
		}
		if n > 0 {
			out = append(out, n)
		}
	}
	return out
}
