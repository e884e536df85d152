package pool

import "sync"

// claimQueue hands out the items of a finite batch, each to exactly one
// claimant. Items are the indices 0..size-1 in insertion order.
type claimQueue struct {
	mu   sync.Mutex
	next int
	size int
}

func newClaimQueue(size int) *claimQueue {
	return &claimQueue{size: size}
}

// Claim removes the next pending item from the queue. It never blocks: the
// second return value is false once the queue is empty.
func (q *claimQueue) Claim() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= q.size {
		return 0, false
	}
	item := q.next
	q.next++
	return item, true
}

// Remaining reports the number of items not yet claimed.
func (q *claimQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size - q.next
}
