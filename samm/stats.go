package samm

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/gobasic/sammrt/internal/cleanup"
	"github.com/gobasic/sammrt/internal/scope"
	"github.com/gobasic/sammrt/internal/slab"
)

// Stats is SAMM's aggregate diagnostic snapshot across every pool plus
// the Bloom filter and cleanup queue.
type Stats struct {
	Enabled       bool
	ObjectPools   []slab.Stats
	StringDesc    slab.TypedStats
	ListHeader    slab.TypedStats
	ListAtom      slab.TypedStats
	BytesFreed    int64
	BloomAllocated bool
	CleanupQueue  string
	ScopeDepth    int
	ScopesEntered int64
	ScopesExited  int64
}

// GetStats snapshots every pool, the Bloom filter's allocation state, the
// cleanup queue's depth, and the scope stack's balance counters.
func GetStats() Stats {
	return active().getStats()
}

func (r *runtimeState) getStats() Stats {
	var objStats []slab.Stats
	for _, p := range r.registry.All() {
		objStats = append(objStats, p.Stats())
	}

	return Stats{
		Enabled:        r.isEnabled(),
		ObjectPools:    objStats,
		StringDesc:     r.strMgr.Pool().Stats(),
		ListHeader:     r.listMgr.Headers().Stats(),
		ListAtom:       r.listMgr.Atoms().Stats(),
		BytesFreed:     r.bytesFreed.Load(),
		BloomAllocated: r.bloomFilter.Allocated(),
		CleanupQueue:   r.cleanupQueue.String(),
		ScopeDepth:     r.scopeStack.Depth(),
		ScopesEntered:  r.scopeStack.Entered(),
		ScopesExited:   r.scopeStack.Exited(),
	}
}

// PrintStats renders GetStats as a human-readable multi-line report, one
// banner line per subsystem.
func PrintStats() string {
	s := GetStats()
	var b strings.Builder
	fmt.Fprintf(&b, "samm: enabled=%v scope_depth=%d entered=%d exited=%d bytes_freed=%d bloom_allocated=%v\n",
		s.Enabled, s.ScopeDepth, s.ScopesEntered, s.ScopesExited, s.BytesFreed, s.BloomAllocated)
	for _, p := range s.ObjectPools {
		fmt.Fprintf(&b, "  slab[%s]: slabs=%d cap=%d in_use=%d peak=%d overflow=%d\n",
			p.Name, p.TotalSlabs, p.TotalCap, p.InUse, p.PeakUse, p.Overflow)
	}
	fmt.Fprintf(&b, "  %s\n", s.StringDesc.String())
	fmt.Fprintf(&b, "  %s\n", s.ListHeader.String())
	fmt.Fprintf(&b, "  %s\n", s.ListAtom.String())
	fmt.Fprintf(&b, "  %s", s.CleanupQueue)
	return b.String()
}

func (r *runtimeState) statsLines() []string {
	s := r.getStats()
	lines := []string{
		fmt.Sprintf("scope: depth=%d entered=%d exited=%d", s.ScopeDepth, s.ScopesEntered, s.ScopesExited),
		fmt.Sprintf("bytes_freed: %d", s.BytesFreed),
		fmt.Sprintf("bloom_allocated: %v", s.BloomAllocated),
		s.CleanupQueue,
	}
	for _, p := range s.ObjectPools {
		lines = append(lines, fmt.Sprintf("%s: in_use=%d peak=%d overflow=%d", p.Name, p.InUse, p.PeakUse, p.Overflow))
	}
	return lines
}

// RecordBytesFreed adds n to the running bytes-freed counter, for
// compiled code that tracks its own allocation sizes (samm_record_bytes_freed).
func RecordBytesFreed(n int) {
	active().bytesFreed.Add(int64(n))
}

// IsProbablyFreed reports whether ptr was marked as a raw-heap overflow
// free by the Bloom filter. Advisory only: false positives are possible,
// false negatives are not.
func IsProbablyFreed(ptr unsafe.Pointer) bool {
	return active().bloomFilter.ProbablyContains(ptr)
}

// RegisterCleanup installs or overrides the cleanup callback for t,
// overriding the default Init installs for it (Init installs one for
// every alloc-type, Unknown included).
func RegisterCleanup(t scope.AllocType, cb cleanup.Callback) {
	active().cleanupQueue.Register(t, cb)
}
