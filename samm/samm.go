// Package samm is the Scope-Aware Memory Manager's public surface: the
// runtime a compiled BASIC program links against for heap management,
// scope-driven cleanup, string handling, and JIT protection. It glues
// together internal/scope, internal/slab, internal/bloom,
// internal/cleanup, internal/strdesc, internal/list, internal/class, and
// internal/protect behind one process singleton with an explicit
// Init → workers-running → Shutdown lifecycle.
package samm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gobasic/sammrt/internal/bloom"
	"github.com/gobasic/sammrt/internal/class"
	"github.com/gobasic/sammrt/internal/cleanup"
	"github.com/gobasic/sammrt/internal/diag"
	"github.com/gobasic/sammrt/internal/errtab"
	"github.com/gobasic/sammrt/internal/list"
	"github.com/gobasic/sammrt/internal/protect"
	"github.com/gobasic/sammrt/internal/scope"
	"github.com/gobasic/sammrt/internal/slab"
	"github.com/gobasic/sammrt/internal/strdesc"
	"github.com/gobasic/sammrt/internal/tracing"
)

type runtimeState struct {
	enabledMu sync.RWMutex
	enabled   bool

	scopeStack   *scope.Stack
	registry     *slab.Registry
	bloomFilter  *bloom.Filter
	cleanupQueue *cleanup.Queue
	strMgr       *strdesc.Manager
	listMgr      *list.Manager
	harness      *protect.Harness

	bytesFreed atomic.Int64

	// BASIC error state surfaced via Err/Erl. curLine is maintained by
	// compiled code calling SetLine once per statement; Throw snapshots it
	// into errLine so a CATCH handler (or a post-mortem) can read the
	// throw site's line number.
	curLine int
	errCode errtab.Code
	errLine int
}

var (
	coreMu sync.Mutex
	core   *runtimeState
)

// Init constructs the SAMM singleton: the scope stack, the fixed slab
// registry, the lazily-allocated Bloom filter, the cleanup worker
// (started immediately), and the string/list managers, then installs the
// default per-alloc-type cleanup callbacks. Returns an error if SAMM is
// already initialized.
func Init() error {
	coreMu.Lock()
	defer coreMu.Unlock()
	if core != nil {
		return fmt.Errorf("samm: already initialized")
	}

	r := &runtimeState{
		enabled:      true,
		scopeStack:   scope.New(),
		registry:     slab.NewRegistry(),
		bloomFilter:  bloom.New(),
		cleanupQueue: cleanup.NewQueue(),
		harness:      protect.New(),
	}
	r.strMgr = strdesc.NewManager(r.autoTrack)
	r.listMgr = list.NewManager(r.autoTrack)
	r.registerDefaultCallbacks()
	r.cleanupQueue.Start()

	core = r
	return nil
}

// Shutdown drains the cleanup queue, reports BASIC_MEMORY_STATS-gated
// stats, stops the worker, shuts down tracing, and clears the singleton
// so a subsequent Init starts fresh.
func Shutdown() {
	coreMu.Lock()
	r := core
	core = nil
	coreMu.Unlock()
	if r == nil {
		return
	}

	r.cleanupQueue.Wait()
	diag.ReportStats(r.statsLines()...)
	r.cleanupQueue.Stop()
	for _, p := range r.registry.All() {
		p.Destroy()
	}
	_ = tracing.Shutdown(context.Background())
}

func active() *runtimeState {
	coreMu.Lock()
	r := core
	coreMu.Unlock()
	if r == nil {
		diag.Fatalf("samm: operation attempted before Init or after Shutdown")
	}
	return r
}

func (r *runtimeState) autoTrack(ptr unsafe.Pointer, t scope.AllocType) {
	if !r.isEnabled() {
		return
	}
	r.scopeStack.Track(ptr, t)
}

func (r *runtimeState) isEnabled() bool {
	r.enabledMu.RLock()
	defer r.enabledMu.RUnlock()
	return r.enabled
}

// SetEnabled globally toggles SAMM. Disabled, AllocObject uses raw
// calloc-equivalent allocation, FreeObject is a no-op (the Go GC
// reclaims once unreferenced), and every track/untrack/retain call is a
// no-op. EnterScope and ExitScope still push and pop frames while
// disabled (so depth and the entered/exited counters keep changing), but
// ExitScope discards the popped frame instead of queuing it for cleanup.
func SetEnabled(enabled bool) {
	r := active()
	r.enabledMu.Lock()
	r.enabled = enabled
	r.enabledMu.Unlock()
}

// IsEnabled reports SAMM's current enabled state.
func IsEnabled() bool {
	return active().isEnabled()
}

// Wait blocks until the cleanup queue is empty and the worker is idle.
// Called before statistics reporting and before shutdown.
func Wait() {
	active().cleanupQueue.Wait()
}

// SetTrace toggles OpenTelemetry span instrumentation of SAMM's own
// operations. jaegerEndpoint is only consulted when enabling; pass "" to
// use the default collector endpoint.
func SetTrace(enabled bool, jaegerEndpoint string) error {
	active() // ensure SAMM is initialized before touching tracing state
	if !enabled {
		return tracing.Shutdown(context.Background())
	}
	return tracing.InitTracing(jaegerEndpoint)
}

func (r *runtimeState) registerDefaultCallbacks() {
	r.cleanupQueue.Register(scope.String, r.strMgr.ReleasePtr)
	r.cleanupQueue.Register(scope.List, func(ptr unsafe.Pointer) {
		r.listMgr.ReleaseHeader(ptr)
	})
	r.cleanupQueue.Register(scope.ListAtom, func(ptr unsafe.Pointer) {
		r.listMgr.ReleaseAtom(ptr)
	})
	r.cleanupQueue.Register(scope.Object, func(ptr unsafe.Pointer) {
		obj := ptr
		class.DeleteObject(&obj, func(p unsafe.Pointer) { r.freeObjectPtr(p) })
	})
	generic := func(ptr unsafe.Pointer) { r.freeObjectPtr(ptr) }
	r.cleanupQueue.Register(scope.Array, generic)
	r.cleanupQueue.Register(scope.Generic, generic)
	r.cleanupQueue.Register(scope.Unknown, generic)
}
