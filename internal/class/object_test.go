package class

import (
	"testing"
	"unsafe"
)

// calloc is a trivial Allocator backed by plain Go heap allocation, for
// tests that don't need SAMM's pooling.
type calloc struct {
	freed   []unsafe.Pointer
	tracked []unsafe.Pointer
}

func (c *calloc) AllocObject(size int) unsafe.Pointer {
	buf := make([]byte, size)
	return unsafe.Pointer(&buf[0])
}
func (c *calloc) FreeObject(ptr unsafe.Pointer)  { c.freed = append(c.freed, ptr) }
func (c *calloc) TrackObject(ptr unsafe.Pointer) { c.tracked = append(c.tracked, ptr) }

func TestNewObjectRejectsUndersizedAllocation(t *testing.T) {
	alloc := &calloc{}
	vt := &Metadata{ID: 1, Name: "Tiny"}
	if _, err := NewObject(alloc, 8, vt); err == nil {
		t.Fatalf("NewObject(8, ...) succeeded, want an error (below MinObjectSize)")
	}
}

func TestNewObjectInstallsHeaderAndTracks(t *testing.T) {
	alloc := &calloc{}
	vt := &Metadata{ID: 42, Name: "Widget"}

	obj, err := NewObject(alloc, 32, vt)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if got := VTableAt(obj); got != vt {
		t.Fatalf("VTableAt(obj) = %v, want %v", got, vt)
	}
	if got := ClassIDAt(obj); got != 42 {
		t.Fatalf("ClassIDAt(obj) = %d, want 42", got)
	}
	if len(alloc.tracked) != 1 || alloc.tracked[0] != obj {
		t.Fatalf("object was not tracked: %v", alloc.tracked)
	}
}

// The destructor at vtable slot 3 must be invoked exactly once, with the
// object pointer.
func TestDeleteObjectInvokesDestructorOnce(t *testing.T) {
	alloc := &calloc{}
	var destructedWith unsafe.Pointer
	var calls int
	vt := &Metadata{ID: 7, Name: "WithDtor", Destructor: func(obj unsafe.Pointer) {
		calls++
		destructedWith = obj
	}}

	obj, err := NewObject(alloc, 32, vt)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	ref := obj
	DeleteObject(&ref, alloc.FreeObject)

	if calls != 1 {
		t.Fatalf("destructor called %d times, want exactly 1", calls)
	}
	if destructedWith != obj {
		t.Fatalf("destructor invoked with %p, want the object pointer %p", destructedWith, obj)
	}
	if ref != nil {
		t.Fatalf("*ref = %p after DeleteObject, want nil", ref)
	}
}

func TestDeleteObjectSafeOnNil(t *testing.T) {
	var ref unsafe.Pointer
	DeleteObject(&ref, func(unsafe.Pointer) { t.Fatalf("free called on a nil reference") })
	DeleteObject(nil, func(unsafe.Pointer) { t.Fatalf("free called with a nil *ref") })
}

// For a hierarchy A <- B <- C: is_instance(C_obj, A_id) == true,
// is_instance(A_obj, C_id) == false, is_instance(null, *) == false.
func TestIsInstanceHierarchy(t *testing.T) {
	classA := &Metadata{ID: 1, Name: "A"}
	classB := &Metadata{ID: 2, Parent: classA, Name: "B"}
	classC := &Metadata{ID: 3, Parent: classB, Name: "C"}

	alloc := &calloc{}
	aObj, _ := NewObject(alloc, 16, classA)
	cObj, _ := NewObject(alloc, 16, classC)

	if !IsInstance(cObj, classA.ID) {
		t.Fatalf("IsInstance(C instance, A.ID) = false, want true")
	}
	if !IsInstance(cObj, classB.ID) {
		t.Fatalf("IsInstance(C instance, B.ID) = false, want true")
	}
	if !IsInstance(cObj, classC.ID) {
		t.Fatalf("IsInstance(C instance, C.ID) = false, want true (fast path)")
	}
	if IsInstance(aObj, classC.ID) {
		t.Fatalf("IsInstance(A instance, C.ID) = true, want false")
	}
	if IsInstance(nil, classA.ID) {
		t.Fatalf("IsInstance(nil, *) = true, want false")
	}
}
