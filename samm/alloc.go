package samm

import (
	"context"
	"unsafe"

	"github.com/gobasic/sammrt/internal/diag"
	"github.com/gobasic/sammrt/internal/list"
	"github.com/gobasic/sammrt/internal/scope"
	"github.com/gobasic/sammrt/internal/strdesc"
	"github.com/gobasic/sammrt/internal/tracing"
)

// OverflowThreshold is the largest size the slab registry pools directly;
// anything above it goes to raw heap allocation with Bloom-filter
// coverage on free.
const OverflowThreshold = 1024

func rawZeroed(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	buf := make([]byte, size)
	return unsafe.Pointer(&buf[0])
}

// AllocObject dispatches to the smallest size class ≥ size
// (32/64/128/256/512/1024), falling back to raw heap allocation above
// 1024 bytes or when the chosen pool has exhausted MaxSlabs. Always
// returns zeroed memory. Does not auto-track: callers must invoke
// TrackObject after installing the vtable and class id.
func AllocObject(size int) unsafe.Pointer {
	r := active()
	if !r.isEnabled() {
		return rawZeroed(size)
	}
	ctx, span := tracing.StartSAMMSpan(context.Background(), "samm.AllocObject", tracing.AllocSize(size))
	defer span.End()

	pool, ok := r.registry.ObjectPool(size)
	if !ok {
		span.SetAttributes(tracing.SizeClass(0))
		tracing.AddEvent(ctx, "overflow_alloc")
		return rawZeroed(size)
	}
	span.SetAttributes(tracing.SizeClass(pool.SlotSize()))
	ptr := pool.Alloc()
	if ptr == nil {
		pool.RecordOverflow()
		diag.Warnf("object pool exhausted for %d-byte class, falling back to raw heap", size)
		tracing.AddEvent(ctx, "pool_exhausted_fallback")
		return rawZeroed(size)
	}
	return ptr
}

// FreeObject returns ptr to its owning pool. For a raw-heap overflow
// allocation it instead marks the Bloom filter and warns if it
// looks like an already-recorded double free. A no-op when SAMM is
// disabled: the Go garbage collector reclaims an unreferenced raw
// allocation on its own.
func FreeObject(ptr unsafe.Pointer) {
	r := active()
	if ptr == nil || !r.isEnabled() {
		return
	}
	ctx, span := tracing.StartSAMMSpan(context.Background(), "samm.FreeObject")
	defer span.End()

	if r.freeFromPool(ptr) {
		return
	}
	if r.bloomFilter.ProbablyContains(ptr) {
		diag.Warnf("probable double free at %p", ptr)
		tracing.AddEvent(ctx, "probable_double_free")
	}
	r.bloomFilter.Mark(ptr)
}

func (r *runtimeState) freeObjectPtr(ptr unsafe.Pointer) {
	FreeObject(ptr)
}

func (r *runtimeState) freeFromPool(ptr unsafe.Pointer) bool {
	for _, p := range r.registry.All() {
		if p.Contains(ptr) {
			p.Free(ptr)
			return true
		}
	}
	return false
}

// AllocString allocates a refcount-1, ASCII-encoded string descriptor
// wrapping s, auto-tracked in the current scope.
func AllocString(s string) *strdesc.Descriptor {
	return active().strMgr.New(s)
}

// AllocList allocates an empty list header, auto-tracked as scope.List.
func AllocList() unsafe.Pointer {
	return unsafe.Pointer(active().listMgr.NewList())
}

// AllocListAtom allocates a list atom wrapping value, auto-tracked as
// scope.ListAtom. It is not linked into any list until the caller appends
// it.
func AllocListAtom(value unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(active().listMgr.NewAtom(value))
}

// AppendListAtom links atom onto the tail of the list rooted at header.
func AppendListAtom(header, atom unsafe.Pointer) {
	active().listMgr.Append((*list.Header)(header), (*list.Atom)(atom))
}

// Track appends ptr/t to the current scope frame. A no-op when SAMM is
// disabled.
func Track(ptr unsafe.Pointer, t scope.AllocType) {
	r := active()
	if !r.isEnabled() {
		return
	}
	r.scopeStack.Track(ptr, t)
}

// TrackObject tracks ptr as scope.Object.
func TrackObject(ptr unsafe.Pointer) { Track(ptr, scope.Object) }

// TrackString tracks d as scope.String. Ordinarily redundant, since
// descriptors from SAMM's own string manager (AllocString, and its Clone
// and ToDescriptor) are auto-tracked; exported for descriptors allocated
// through a strdesc.Manager that has no track hook.
func TrackString(d *strdesc.Descriptor) { Track(unsafe.Pointer(d), scope.String) }

// TrackList tracks ptr as scope.List.
func TrackList(ptr unsafe.Pointer) { Track(ptr, scope.List) }

// Untrack removes ptr from the current scope frame, if present. A silent
// no-op on a miss, matching an explicit DELETE of an ancestor-scope
// allocation or an already-reclaimed pointer.
func Untrack(ptr unsafe.Pointer) bool {
	r := active()
	if !r.isEnabled() {
		return false
	}
	return r.scopeStack.Untrack(ptr)
}

// Retain moves ptr out of the current scope frame and into the frame k
// levels up, preserving its alloc-type. A no-op when SAMM is disabled
// (nothing was tracked in the first place).
func Retain(ptr unsafe.Pointer, k int) error {
	r := active()
	if !r.isEnabled() {
		return nil
	}
	return r.scopeStack.Retain(ptr, k)
}

// RetainParent is Retain(ptr, 1): the common case of surviving exactly
// one enclosing scope exit, used by string-returning intrinsics that want
// to hand their result up to the caller's scope.
func RetainParent(ptr unsafe.Pointer) error {
	return Retain(ptr, 1)
}
