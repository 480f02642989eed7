package slab

import (
	"testing"
	"unsafe"
)

// Allocating 257 slots from a pool with slots_per_slab=256 must grow to
// exactly two slabs.
func TestGrowAcrossTwoSlabs(t *testing.T) {
	p := NewPool("test", 32, 256)
	for i := 0; i < 257; i++ {
		if ptr := p.Alloc(); ptr == nil {
			t.Fatalf("Alloc() returned nil at iteration %d", i)
		}
	}
	stats := p.Stats()
	if stats.TotalSlabs != 2 {
		t.Fatalf("TotalSlabs = %d, want 2", stats.TotalSlabs)
	}
	if stats.InUse != 257 {
		t.Fatalf("InUse = %d, want 257", stats.InUse)
	}
}

// Every pointer returned by Alloc points to slot_size zero bytes, even
// when reused from a freed slot that previously held non-zero data.
func TestAllocZeroesSlot(t *testing.T) {
	p := NewPool("test", 64, 4)
	ptr := p.Alloc()
	buf := unsafe.Slice((*byte)(ptr), 64)
	for i := range buf {
		buf[i] = 0xFF
	}
	p.Free(ptr)

	reused := p.Alloc()
	if reused != ptr {
		t.Fatalf("expected LIFO free list to hand back the same slot")
	}
	zeroed := unsafe.Slice((*byte)(reused), 64)
	for i, b := range zeroed {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0 (reused slot not zeroed)", i, b)
		}
	}
}

// Allocating N objects and freeing them all returns InUse to its
// pre-allocation value.
func TestRoundTripReturnsToPreEnterLevel(t *testing.T) {
	p := NewPool("test", 32, 16)
	before := p.Stats().InUse

	var ptrs []unsafe.Pointer
	for i := 0; i < 10; i++ {
		ptrs = append(ptrs, p.Alloc())
	}
	for _, ptr := range ptrs {
		p.Free(ptr)
	}

	if got := p.Stats().InUse; got != before {
		t.Fatalf("InUse after round trip = %d, want %d", got, before)
	}
}

func TestDestroyResetsPool(t *testing.T) {
	p := NewPool("test", 32, 8)
	p.Alloc()
	p.Alloc()
	p.Destroy()

	stats := p.Stats()
	if stats.TotalSlabs != 0 || stats.InUse != 0 || stats.FreeListLen != 0 {
		t.Fatalf("after Destroy: slabs=%d in_use=%d free=%d, want all 0",
			stats.TotalSlabs, stats.InUse, stats.FreeListLen)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate after Destroy: %v", err)
	}
	if ptr := p.Alloc(); ptr == nil {
		t.Fatalf("Alloc after Destroy returned nil, want a fresh slab")
	}
}

// Pool integrity invariant: pool
// integrity requires free_count + in_use == total_capacity at all times.
func TestValidateDetectsIntegrityViolation(t *testing.T) {
	p := NewPool("test", 32, 8)
	for i := 0; i < 5; i++ {
		p.Alloc()
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() on a healthy pool returned %v", err)
	}

	// Corrupt the in_use counter directly to simulate a bookkeeping bug
	// and confirm Validate catches it.
	p.inUse = 999
	if err := p.Validate(); err == nil {
		t.Fatalf("Validate() did not detect the integrity violation")
	}
}

func TestContainsOnlyMatchesOwnedSlots(t *testing.T) {
	p := NewPool("test", 32, 8)
	ptr := p.Alloc()
	if !p.Contains(ptr) {
		t.Fatalf("Contains() = false for a pointer this pool allocated")
	}

	other := NewPool("other", 32, 8)
	otherPtr := other.Alloc()
	if p.Contains(otherPtr) {
		t.Fatalf("Contains() = true for a pointer from a different pool")
	}
}

func TestMaxSlabsExhaustionFallsBackToNil(t *testing.T) {
	p := NewPool("test", 32, 1)
	for i := 0; i < MaxSlabs; i++ {
		if ptr := p.Alloc(); ptr == nil {
			t.Fatalf("Alloc() returned nil before exhausting MaxSlabs at iteration %d", i)
		}
	}
	if ptr := p.Alloc(); ptr != nil {
		t.Fatalf("Alloc() after exhausting MaxSlabs = %p, want nil", ptr)
	}
}

func TestFreeListNoCyclesAfterManyFrees(t *testing.T) {
	p := NewPool("test", 32, 16)
	var ptrs []unsafe.Pointer
	for i := 0; i < 40; i++ {
		ptrs = append(ptrs, p.Alloc())
	}
	for _, ptr := range ptrs {
		p.Free(ptr)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() after freeing everything returned %v", err)
	}
}
