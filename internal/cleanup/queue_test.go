package cleanup

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/gobasic/sammrt/internal/scope"
)

func newTestFrame(records ...scope.Record) *scope.Frame {
	s := scope.New()
	s.Enter()
	for _, r := range records {
		s.Track(r.Ptr, r.Type)
	}
	f, _ := s.Exit()
	return f
}

// Given tracked pointers [a,b,c], destructors fire c, b, a.
func TestLIFOCleanupOrder(t *testing.T) {
	q := NewQueue()
	q.Start()
	defer q.Stop()

	var mu sync.Mutex
	var order []unsafe.Pointer
	q.Register(scope.Object, func(ptr unsafe.Pointer) {
		mu.Lock()
		order = append(order, ptr)
		mu.Unlock()
	})

	var a, b, c int
	pa, pb, pc := unsafe.Pointer(&a), unsafe.Pointer(&b), unsafe.Pointer(&c)
	frame := newTestFrame(
		scope.Record{Ptr: pa, Type: scope.Object},
		scope.Record{Ptr: pb, Type: scope.Object},
		scope.Record{Ptr: pc, Type: scope.Object},
	)

	q.Submit(frame)
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []unsafe.Pointer{pc, pb, pa}
	if len(order) != len(want) {
		t.Fatalf("len(order) = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %p, want %p (LIFO cleanup order)", i, order[i], want[i])
		}
	}
}

func TestWaitBlocksUntilDrained(t *testing.T) {
	q := NewQueue()
	q.Start()
	defer q.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	q.Register(scope.Generic, func(ptr unsafe.Pointer) {
		close(started)
		<-release
	})

	var x int
	q.Submit(newTestFrame(scope.Record{Ptr: unsafe.Pointer(&x), Type: scope.Generic}))

	<-started
	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Wait() returned before the in-flight callback finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Wait() did not return after the callback finished")
	}
}

func TestAbandonSkipsDestructors(t *testing.T) {
	q := NewQueue()
	// Not started: Abandon must work even without a running worker,
	// draining whatever is sitting in the channel buffer.
	var called bool
	q.Register(scope.Generic, func(ptr unsafe.Pointer) { called = true })

	var x int
	q.Submit(newTestFrame(scope.Record{Ptr: unsafe.Pointer(&x), Type: scope.Generic}))
	q.Abandon()

	if called {
		t.Fatalf("Abandon() invoked a cleanup callback, want none")
	}
	q.Wait() // must not block forever after Abandon resets pending to 0
}

func TestRegisterOverridesDefault(t *testing.T) {
	q := NewQueue()
	q.Start()
	defer q.Stop()

	var calls int
	q.Register(scope.Generic, func(ptr unsafe.Pointer) { calls++ })
	q.Register(scope.Generic, func(ptr unsafe.Pointer) { calls += 10 })

	var x int
	q.Submit(newTestFrame(scope.Record{Ptr: unsafe.Pointer(&x), Type: scope.Generic}))
	q.Wait()

	if calls != 10 {
		t.Fatalf("calls = %d, want 10 (second Register should override the first)", calls)
	}
}
