package planner

import (
	"errors"
	"math"
	"sync"

	"github.com/golang/glog"
)

// ErrQueueOverflow signals a bug: admission blocking should always have
// prevented this, so it is only ever returned from a non-blocking caller.
var ErrQueueOverflow = errors.New("planner: queue overflow on a non-blocking path")

const (
	// DefaultCapacity is the primary ring size.
	DefaultCapacity = 48
	// DefaultHeadroom is PLANNER_BUFFER_HEADROOM, the number of free
	// slots the parser must see before it is allowed to enqueue
	// another block, guaranteeing look-ahead depth for back-planning.
	DefaultHeadroom = 4
)

// Queue is a fixed-capacity doubly linked ring of Blocks. w is the next
// empty slot to initialize; r is the block currently running (or next
// to run).
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	blocks   []Block
	w        *Block
	r        *Block
	headroom int
	count    int // number of non-EMPTY blocks currently queued
}

// New builds a Queue with capacity slots linked into a circular ring.
func New(capacity, headroom int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if headroom <= 0 {
		headroom = DefaultHeadroom
	}
	q := &Queue{blocks: make([]Block, capacity), headroom: headroom}
	for i := range q.blocks {
		q.blocks[i].idx = i
	}
	for i := range q.blocks {
		next := &q.blocks[(i+1)%capacity]
		q.blocks[i].next = next
		next.prev = &q.blocks[i]
	}
	q.w = &q.blocks[0]
	q.r = &q.blocks[0]
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Capacity returns the ring's fixed slot count.
func (q *Queue) Capacity() int { return len(q.blocks) }

// Available reports how many slots are free right now.
func (q *Queue) Available() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.blocks) - q.count
}

// GetWriteBlock blocks until at least `headroom` slots beyond the one
// being handed out remain free, then returns the next empty block to
// fill in as INITIALIZING. The caller
// must finish filling it and call CommitWrite.
func (q *Queue) GetWriteBlock() *Block {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.blocks)-q.count <= q.headroom {
		q.notFull.Wait()
	}
	b := q.w
	b.BufferState = Initializing
	return b
}

// CommitWrite marks a freshly filled block NOT_PLANNED and advances
// the write cursor, making it visible to back-planning. A move's exit
// velocity is seeded at its optimistic ceiling here: the rearward
// back-planning sweep only ever tightens exits, so it needs a nonzero
// starting point to tighten from. The queue tail is the exception —
// FinalizeTail forces its exit to zero once no more blocks are coming.
func (q *Queue) CommitWrite(b *Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if b.Type == BlockALINE {
		b.ExitVelocity = math.Min(b.CruiseVmax, b.ExitVmax)
	}
	b.BufferState = NotPlanned
	b.Plannable = true
	q.w = b.next
	q.count++
	q.notEmpty.Signal()
}

// Peek returns the current running/next-to-run block (r), or nil if
// the queue is empty.
func (q *Queue) Peek() *Block {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	return q.r
}

// Release frees the running block (r) after the executor has emitted
// its final segment, advances r, and wakes any blocked writer. This is
// the only path back to BufferState Empty.
func (q *Queue) Release(b *Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if b != q.r {
		glog.Errorf("planner: Release called on non-running block %d (running=%d)", b.idx, q.r.idx)
		return
	}
	q.r = b.next
	b.reset()
	q.count--
	q.notFull.Signal()
}

// Walk calls fn for every non-EMPTY block starting at r and following
// next, stopping when it reaches the write cursor or fn returns false.
// Used by both back-planning (forward walk collecting, then processed
// in reverse) and diagnostics.
func (q *Queue) Walk(fn func(b *Block) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return
	}
	b := q.r
	for i := 0; i < q.count; i++ {
		if !fn(b) {
			return
		}
		b = b.next
	}
}

// Blocks returns a snapshot slice of the queued blocks in running-to-
// newest order, for back-planning to walk in reverse.
func (q *Queue) Blocks() []*Block {
	var out []*Block
	q.Walk(func(b *Block) bool {
		out = append(out, b)
		return true
	})
	return out
}

// Count reports how many blocks are currently queued (non-EMPTY).
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
