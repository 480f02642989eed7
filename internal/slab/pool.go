// Package slab implements the fixed-slot-size slab allocator SAMM uses
// for every pooled size class, built around an intrusive,
// address-addressable free list: a slab's free cells are threaded into a
// singly-linked list through the cells themselves, which is what lets
// Pool.Alloc hand back a real pointer into a slab's backing array.
package slab

import (
	"fmt"
	"sync"
	"unsafe"
)

// MaxSlabs caps how many slabs a single pool may grow to before Alloc
// falls back to raw heap allocation.
const MaxSlabs = 1024

// freeNode overlays the first machine word of a free slot.
type freeNode struct {
	next unsafe.Pointer
}

type slabBlock struct {
	data      []byte
	usedCount int
}

func (b *slabBlock) owns(addr uintptr) bool {
	base := uintptr(unsafe.Pointer(&b.data[0]))
	return addr >= base && addr < base+uintptr(len(b.data))
}

// Pool is a fixed-slot-size slab allocator with a per-pool lock.
type Pool struct {
	mu sync.Mutex

	name         string
	slotSize     int
	slotsPerSlab int

	slabs    []*slabBlock
	freeHead unsafe.Pointer

	inUse    int
	peakUse  int
	overflow int // raw-heap fallback allocations, counted but not pooled
}

// NewPool creates an empty pool; no slabs are allocated until the first
// Alloc call.
func NewPool(name string, slotSize, slotsPerSlab int) *Pool {
	if slotSize < int(unsafe.Sizeof(freeNode{})) {
		slotSize = int(unsafe.Sizeof(freeNode{}))
	}
	return &Pool{name: name, slotSize: slotSize, slotsPerSlab: slotsPerSlab}
}

func (p *Pool) slotPtr(block *slabBlock, index int) unsafe.Pointer {
	return unsafe.Pointer(&block.data[index*p.slotSize])
}

// growLocked allocates one more slab and threads all of its slots onto the
// free list in reverse index order, so slot 0 becomes the new list head.
// This gives sequential allocations within a slab contiguous addresses.
func (p *Pool) growLocked() error {
	if len(p.slabs) >= MaxSlabs {
		return fmt.Errorf("slab %s: max slabs (%d) exhausted", p.name, MaxSlabs)
	}
	block := &slabBlock{data: make([]byte, p.slotSize*p.slotsPerSlab)}
	p.slabs = append(p.slabs, block)

	for i := p.slotsPerSlab - 1; i >= 0; i-- {
		slot := p.slotPtr(block, i)
		node := (*freeNode)(slot)
		node.next = p.freeHead
		p.freeHead = slot
	}
	return nil
}

// Alloc returns a zeroed slot, or nil if the pool has exhausted MAX_SLABS
// slabs (the caller is expected to fall back to raw heap allocation in that
// case).
func (p *Pool) Alloc() unsafe.Pointer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freeHead == nil {
		if err := p.growLocked(); err != nil {
			return nil
		}
	}

	slot := p.freeHead
	node := (*freeNode)(slot)
	p.freeHead = node.next

	zero := unsafe.Slice((*byte)(slot), p.slotSize)
	for i := range zero {
		zero[i] = 0
	}

	if b := p.blockForLocked(uintptr(slot)); b != nil {
		b.usedCount++
	}
	p.inUse++
	if p.inUse > p.peakUse {
		p.peakUse = p.inUse
	}
	return slot
}

// Free pushes a slot back onto the head of the free list (LIFO, for
// cache-warm reuse). It does not zero the slot. Callers must guarantee ptr
// was returned by this pool's Alloc and has not already been freed; Free
// itself has no way to detect a double-free; that is the Bloom filter's job
// for overflow-class allocations and the pool accounting's job here (see
// TotalAllocs/UsagePercent and the validate invariant).
func (p *Pool) Free(ptr unsafe.Pointer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	node := (*freeNode)(ptr)
	node.next = p.freeHead
	p.freeHead = ptr
	if b := p.blockForLocked(uintptr(ptr)); b != nil {
		b.usedCount--
	}
	p.inUse--
}

func (p *Pool) blockForLocked(addr uintptr) *slabBlock {
	for _, b := range p.slabs {
		if b.owns(addr) {
			return b
		}
	}
	return nil
}

// Destroy releases every slab and resets the pool to its initial empty
// state. Any pointer previously handed out by Alloc is invalid afterwards;
// callers drain (or deliberately abandon) outstanding allocations first.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slabs = nil
	p.freeHead = nil
	p.inUse = 0
	p.peakUse = 0
	p.overflow = 0
}

// SlotSize returns the pool's configured slot size.
func (p *Pool) SlotSize() int { return p.slotSize }

// Stats summarizes a pool's current accounting.
type Stats struct {
	Name         string
	SlotSize     int
	SlotsPerSlab int
	TotalSlabs   int
	TotalCap     int
	InUse        int
	FreeListLen  int
	PeakUse      int
	Overflow     int
}

func (p *Pool) freeListLenLocked() int {
	n := 0
	cur := p.freeHead
	cap := len(p.slabs) * p.slotsPerSlab
	for cur != nil && n <= cap {
		n++
		cur = (*freeNode)(cur).next
	}
	return n
}

// Stats reports slots, peak use, slabs and footprint.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:         p.name,
		SlotSize:     p.slotSize,
		SlotsPerSlab: p.slotsPerSlab,
		TotalSlabs:   len(p.slabs),
		TotalCap:     len(p.slabs) * p.slotsPerSlab,
		InUse:        p.inUse,
		FreeListLen:  p.freeListLenLocked(),
		PeakUse:      p.peakUse,
		Overflow:     p.overflow,
	}
}

// PrintStats writes a human-readable one-line summary.
func (p *Pool) PrintStats() string {
	s := p.Stats()
	usage := 0.0
	if s.TotalCap > 0 {
		usage = float64(s.InUse) / float64(s.TotalCap) * 100
	}
	return fmt.Sprintf("slab[%s]: slots=%d/slab slabs=%d cap=%d in_use=%d peak=%d usage=%.1f%%",
		s.Name, s.SlotsPerSlab, s.TotalSlabs, s.TotalCap, s.InUse, s.PeakUse, usage)
}

// Validate walks the free list counting nodes, capping traversal at total
// capacity (which both bounds the cost of the check and detects a cycle: a
// cyclic free list would otherwise make this loop forever), and checks the
// pool-integrity invariant free_count + in_use == total_capacity.
func (p *Pool) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cap := len(p.slabs) * p.slotsPerSlab
	n := 0
	cur := p.freeHead
	for cur != nil {
		n++
		if n > cap {
			return fmt.Errorf("slab %s: free list cycle detected (exceeded capacity %d)", p.name, cap)
		}
		cur = (*freeNode)(cur).next
	}
	if n+p.inUse != cap {
		return fmt.Errorf("slab %s: integrity violation: free=%d in_use=%d total=%d", p.name, n, p.inUse, cap)
	}
	return nil
}

// CheckLeaks reports the number of slots still in use; a fully drained pool
// returns 0.
func (p *Pool) CheckLeaks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// TotalAllocs returns the pool's total slot capacity across all grown
// slabs.
func (p *Pool) TotalAllocs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slabs) * p.slotsPerSlab
}

// UsagePercent returns in_use/total_capacity as a percentage.
func (p *Pool) UsagePercent() float64 {
	s := p.Stats()
	if s.TotalCap == 0 {
		return 0
	}
	return float64(s.InUse) / float64(s.TotalCap) * 100
}

// RecordOverflow notes a raw-heap allocation that bypassed pooling because
// the pool had exhausted MaxSlabs, for diagnostics.
func (p *Pool) RecordOverflow() {
	p.mu.Lock()
	p.overflow++
	p.mu.Unlock()
}

// Contains reports whether ptr lies inside one of this pool's slabs at a
// slot boundary. Used by the class/string layers to distinguish pooled
// pointers from raw-heap overflow pointers when freeing.
func (p *Pool) Contains(ptr unsafe.Pointer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	addr := uintptr(ptr)
	b := p.blockForLocked(addr)
	if b == nil {
		return false
	}
	base := uintptr(unsafe.Pointer(&b.data[0]))
	return (addr-base)%uintptr(p.slotSize) == 0
}
