// Package cleanup implements the bounded producer/consumer queue and the
// single background worker that destroys tracked allocations after a
// scope exits. Scope cleanup has exactly one worker, not a pool of them,
// so the whole thing is one bounded channel, a stop channel, and a select
// loop.
package cleanup

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gobasic/sammrt/internal/scope"
)

// QueueDepth is the bounded depth of the cleanup channel. Producers
// (ExitScope) block once it is full.
const QueueDepth = 1024

// Callback destroys one tracked pointer of a given alloc-type. Registered
// per AllocType; SAMM installs defaults for every AllocType (Unknown
// included) and callers may override any of them via Queue.Register.
type Callback func(ptr unsafe.Pointer)

// Queue is the bounded channel of detached scope frames plus the single
// worker goroutine that drains it.
type Queue struct {
	mu        sync.Mutex
	callbacks map[scope.AllocType]Callback

	batches chan *scope.Frame

	drainMu   sync.Mutex
	drainCond *sync.Cond
	pending   int // batches submitted but not yet fully processed

	stop chan struct{}
	done chan struct{}

	started bool
}

// NewQueue constructs a queue with no worker running yet; call Start to
// launch the worker goroutine.
func NewQueue() *Queue {
	q := &Queue{
		callbacks: make(map[scope.AllocType]Callback),
		batches:   make(chan *scope.Frame, QueueDepth),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	q.drainCond = sync.NewCond(&q.drainMu)
	return q
}

// Register installs or overrides the cleanup callback for t.
func (q *Queue) Register(t scope.AllocType, cb Callback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.callbacks[t] = cb
}

func (q *Queue) callbackFor(t scope.AllocType) Callback {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.callbacks[t]
}

// Start launches the single worker goroutine. Idempotent.
func (q *Queue) Start() {
	q.drainMu.Lock()
	already := q.started
	q.started = true
	q.drainMu.Unlock()
	if already {
		return
	}
	go q.run()
}

// Submit hands a detached frame to the worker, blocking if the queue is
// full. Ownership of the frame transfers atomically here: the mutator must
// not touch it again after Submit returns.
func (q *Queue) Submit(f *scope.Frame) {
	q.drainMu.Lock()
	q.pending++
	q.drainMu.Unlock()

	q.batches <- f
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			q.drainRemaining()
			return
		case f := <-q.batches:
			q.processBatch(f)
		}
	}
}

// drainRemaining processes any batches still queued after a stop signal, so
// a shutdown never silently drops already-submitted cleanup work (force
// abandon is a distinct, explicit path; see Abandon).
func (q *Queue) drainRemaining() {
	for {
		select {
		case f := <-q.batches:
			q.processBatch(f)
		default:
			return
		}
	}
}

// processBatch iterates the frame in reverse track order (LIFO mirrors
// stack semantics) and dispatches each record to its registered callback.
func (q *Queue) processBatch(f *scope.Frame) {
	records := f.Records()
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		cb := q.callbackFor(r.Type)
		if cb != nil {
			cb(r.Ptr)
		}
	}

	q.drainMu.Lock()
	q.pending--
	if q.pending == 0 {
		q.drainCond.Broadcast()
	}
	q.drainMu.Unlock()
}

// Wait blocks until the queue is empty and the worker is idle, i.e. every
// batch submitted before this call has been fully processed.
func (q *Queue) Wait() {
	q.drainMu.Lock()
	for q.pending > 0 {
		q.drainCond.Wait()
	}
	q.drainMu.Unlock()
}

// Stop signals the worker to finish its current batch, drain whatever is
// still queued, then exit. It blocks until the worker has stopped.
func (q *Queue) Stop() {
	q.drainMu.Lock()
	started := q.started
	q.drainMu.Unlock()
	if !started {
		return
	}
	close(q.stop)
	<-q.done
}

// Abandon drops all frames still waiting in the channel without running
// their destructors and resets the pending count so Wait returns, for the
// SIGALRM/SIGABRT force_abandon path where pool mutexes may be held by an
// unwound mutator and running destructors risks deadlock. The worker, if
// started, keeps running and processes frames submitted afterwards. It
// never blocks.
func (q *Queue) Abandon() {
	for {
		select {
		case <-q.batches:
		default:
			q.drainMu.Lock()
			q.pending = 0
			q.drainCond.Broadcast()
			q.drainMu.Unlock()
			return
		}
	}
}

// String reports the queue's current depth, for diagnostics.
func (q *Queue) String() string {
	return fmt.Sprintf("cleanup queue: %d/%d batches queued", len(q.batches), QueueDepth)
}
