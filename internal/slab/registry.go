package slab

// Registry is the fixed set of raw-byte pools SAMM routes ABI-layout
// object allocations through: six object size classes with decreasing
// slots-per-slab. Anything larger than 1024 bytes bypasses the registry
// entirely and uses raw heap allocation.
//
// StringDesc(40,256), ListHeader(32,256), and ListAtom(24,512) are still
// part of the fixed pool set, but they are not raw-byte
// Pools here: a descriptor or list node holds Go-heap pointers of its own
// (a utf8 cache slice, a next-atom pointer into another pooled value), and
// a []byte slab gives the garbage collector no way to see those: it
// scans an allocation's pointer words using the allocation's static type,
// and a []byte's type carries no pointers, so a pointer value written
// into slab bytes by hand is invisible to the collector. internal/strdesc
// and internal/list own slab.TypedPool[T] instances instead, which pool
// ordinary *T values the GC already understands natively. See DESIGN.md.
type Registry struct {
	// Object pools, indexed by size class for AllocObject's smallest-fit
	// dispatch.
	Object32   *Pool
	Object64   *Pool
	Object128  *Pool
	Object256  *Pool
	Object512  *Pool
	Object1024 *Pool
}

// ObjectSizeClasses lists the size-class boundaries in ascending order,
// matching the Object_{32,64,128,256,512,1024} pools below. 1024 is the
// fixed overflow boundary that also defines Bloom-filter coverage.
var ObjectSizeClasses = [6]int{32, 64, 128, 256, 512, 1024}

// NewRegistry constructs the fixed pool set. Slab slot counts decrease as
// size class grows.
func NewRegistry() *Registry {
	return &Registry{
		Object32:   NewPool("Object_32", 32, 4096),
		Object64:   NewPool("Object_64", 64, 2048),
		Object128:  NewPool("Object_128", 128, 1024),
		Object256:  NewPool("Object_256", 256, 512),
		Object512:  NewPool("Object_512", 512, 256),
		Object1024: NewPool("Object_1024", 1024, 128),
	}
}

// ObjectPool returns the pool for the smallest size class that is >= size,
// and false if size exceeds the largest class (caller must use raw heap
// allocation and Bloom-mark on free).
func (r *Registry) ObjectPool(size int) (*Pool, bool) {
	switch {
	case size <= 32:
		return r.Object32, true
	case size <= 64:
		return r.Object64, true
	case size <= 128:
		return r.Object128, true
	case size <= 256:
		return r.Object256, true
	case size <= 512:
		return r.Object512, true
	case size <= 1024:
		return r.Object1024, true
	default:
		return nil, false
	}
}

// All returns every pool in the registry, for bulk diagnostics (Validate,
// PrintStats, CheckLeaks across the whole registry).
func (r *Registry) All() []*Pool {
	return []*Pool{
		r.Object32, r.Object64, r.Object128, r.Object256, r.Object512, r.Object1024,
	}
}
