// Package comm provides message-passing collectives for a fixed set of ranks
// running inside one process. Ranks keep disjoint state and interact only
// through explicit Send/Recv and the collectives built on top of them, the
// way an MPI program would. It is a teaching stand-in, not a distributed
// runtime: every rank is a goroutine and a crash takes the whole computation
// down.
package comm

import (
	"sync"

	"github.com/pkg/errors"
)

// World connects size ranks with a channel per ordered pair.
type World[T any] struct {
	size    int
	mesh    [][]chan T // mesh[from][to]
	barrier *barrier
}

// NewWorld creates a World of the given size.
func NewWorld[T any](size int) (*World[T], error) {
	if size < 1 {
		return nil, errors.Errorf("comm: world size must be at least 1, got %d", size)
	}
	mesh := make([][]chan T, size)
	for from := range mesh {
		mesh[from] = make([]chan T, size)
		for to := range mesh[from] {
			mesh[from][to] = make(chan T, 1)
		}
	}
	return &World[T]{size: size, mesh: mesh, barrier: newBarrier(size)}, nil
}

// Size returns the number of ranks.
func (w *World[T]) Size() int { return w.size }

// Rank returns the handle for rank id. Each handle must be used by exactly
// one goroutine.
func (w *World[T]) Rank(id int) *Rank[T] {
	if id < 0 || id >= w.size {
		panic(errors.Errorf("comm: rank %d out of range [0,%d)", id, w.size))
	}
	return &Rank[T]{world: w, id: id}
}

// Run starts one goroutine per rank and blocks until all of them return.
func (w *World[T]) Run(body func(r *Rank[T])) {
	var wg sync.WaitGroup
	for id := 0; id < w.size; id++ {
		wg.Add(1)
		go func(r *Rank[T]) {
			defer wg.Done()
			body(r)
		}(w.Rank(id))
	}
	wg.Wait()
}

// Rank is one participant's view of the World.
type Rank[T any] struct {
	world *World[T]
	id    int
}

// ID returns this rank's number.
func (r *Rank[T]) ID() int { return r.id }

// Size returns the world size.
func (r *Rank[T]) Size() int { return r.world.size }

// Send delivers v to rank to. It blocks once the one-slot buffer to that
// rank is full.
func (r *Rank[T]) Send(to int, v T) {
	r.world.mesh[r.id][to] <- v
}

// Recv blocks until a value from rank from arrives.
func (r *Rank[T]) Recv(from int) T {
	return <-r.world.mesh[from][r.id]
}

// Barrier blocks until every rank has reached it.
func (r *Rank[T]) Barrier() {
	r.world.barrier.await()
}

// Bcast distributes root's value to every rank and returns it. All ranks
// must call it; v is only read on root.
func (r *Rank[T]) Bcast(root int, v T) T {
	if r.id == root {
		for to := 0; to < r.world.size; to++ {
			if to != root {
				r.Send(to, v)
			}
		}
		return v
	}
	return r.Recv(root)
}

// Scatter splits vals (length == world size) across the ranks and returns
// this rank's element. All ranks must call it; vals is only read on root.
func (r *Rank[T]) Scatter(root int, vals []T) T {
	if r.id == root {
		if len(vals) != r.world.size {
			panic(errors.Errorf("comm: scatter of %d values across %d ranks", len(vals), r.world.size))
		}
		for to := 0; to < r.world.size; to++ {
			if to != root {
				r.Send(to, vals[to])
			}
		}
		return vals[root]
	}
	return r.Recv(root)
}

// Gather collects one value from every rank, in rank order, on root. The
// slice is nil on every other rank. All ranks must call it.
func (r *Rank[T]) Gather(root int, v T) []T {
	if r.id != root {
		r.Send(root, v)
		return nil
	}
	out := make([]T, r.world.size)
	for from := 0; from < r.world.size; from++ {
		if from == root {
			out[from] = v
			continue
		}
		out[from] = r.Recv(from)
	}
	return out
}

// AllReduce combines every rank's value with op and returns the result on
// all ranks. op must be associative.
func (r *Rank[T]) AllReduce(v T, op func(a, b T) T) T {
	const root = 0
	vals := r.Gather(root, v)
	var combined T
	if r.id == root {
		combined = vals[0]
		for _, x := range vals[1:] {
			combined = op(combined, x)
		}
	}
	return r.Bcast(root, combined)
}

// barrier is a reusable cyclic barrier.
type barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	size  int
	count int
	gen   int
}

func newBarrier(size int) *barrier {
	b := &barrier{size: size}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) await() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.gen
	b.count++
	if b.count == b.size {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
}
