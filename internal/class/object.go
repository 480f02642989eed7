// Package class implements the BASIC class-object model: the object
// header layout compiled code relies on (vtable pointer + class id +
// declared fields), vtable-based destructor dispatch, and the single-
// inheritance IS type check. This is part of the stable ABI between
// codegen and the runtime, so the header layout below must not change.
package class

import (
	"context"
	"fmt"
	"os"
	"unsafe"

	"github.com/gobasic/sammrt/internal/tracing"
)

// Object header layout, in bytes from the start of an allocated object:
//   [0..8)  vtable pointer
//   [8..16) class_id (int64)
//   [16..)  declared fields, inherited first
const (
	VTableOffset  = 0
	ClassIDOffset = 8
	HeaderSize    = 16
)

// MinObjectSize is the smallest size NewObject will accept: an object
// must at minimum hold its own header.
const MinObjectSize = 16

// DestructorFunc is a compiled class's destructor, invoked with the object
// pointer (not including any synthetic argument).
type DestructorFunc func(obj unsafe.Pointer)

// Metadata is the runtime's typed view of a vtable. Codegen emits vtables
// as opaque byte tables ([0] class_id, [1] parent_vtable, [2] class_name,
// [3] destructor, [4..] methods); within the runtime they are kept as
// this stable-layout struct rather than reparsed from raw bytes on every
// access.
type Metadata struct {
	ID         int64
	Parent     *Metadata
	Name       string
	Destructor DestructorFunc
	Methods    []unsafe.Pointer
}

// Allocator is the subset of the SAMM surface class.NewObject needs: a
// size-classed, always-zeroed allocation and a matching free. SAMM itself
// implements this interface; tests can supply a trivial calloc-backed one.
type Allocator interface {
	AllocObject(size int) unsafe.Pointer
	FreeObject(ptr unsafe.Pointer)
	TrackObject(ptr unsafe.Pointer)
}

func writeHeader(obj unsafe.Pointer, vt *Metadata, classID int64) {
	*(*unsafe.Pointer)(obj) = unsafe.Pointer(vt)
	*(*int64)(unsafe.Add(obj, ClassIDOffset)) = classID
}

// VTableAt reads the vtable pointer out of an object's header.
func VTableAt(obj unsafe.Pointer) *Metadata {
	return (*Metadata)(*(*unsafe.Pointer)(obj))
}

// ClassIDAt reads the class id out of an object's header.
func ClassIDAt(obj unsafe.Pointer) int64 {
	return *(*int64)(unsafe.Add(obj, ClassIDOffset))
}

// NewObject validates size, allocates it through alloc (SAMM's dispatcher,
// or calloc when SAMM is disabled), installs the vtable pointer and class
// id, tracks the object in the current scope, and returns the pointer.
func NewObject(alloc Allocator, size int, vt *Metadata) (unsafe.Pointer, error) {
	ctx, span := tracing.StartSAMMSpan(context.Background(), "class.NewObject",
		tracing.ClassName(vt.Name), tracing.AllocSize(size))
	defer span.End()

	if size < MinObjectSize {
		err := fmt.Errorf("class: object size %d below minimum %d", size, MinObjectSize)
		tracing.RecordError(ctx, err)
		return nil, err
	}
	obj := alloc.AllocObject(size)
	if obj == nil {
		err := fmt.Errorf("class: allocation failed for %d-byte object of class %q", size, vt.Name)
		tracing.RecordError(ctx, err)
		return nil, err
	}
	writeHeader(obj, vt, vt.ID)
	alloc.TrackObject(obj)
	return obj, nil
}

// DeleteObject reads the object's vtable, invokes its destructor if one is
// registered, frees the object, and clears *ref. Safe to call with *ref
// already nil.
func DeleteObject(ref *unsafe.Pointer, free func(unsafe.Pointer)) {
	if ref == nil || *ref == nil {
		return
	}
	obj := *ref
	vt := VTableAt(obj)
	if vt != nil && vt.Destructor != nil {
		vt.Destructor(obj)
	}
	free(obj)
	*ref = nil
}

// IsInstance implements the BASIC `IS` operator: false for a null
// reference; a fast-path class-id comparison; otherwise a walk up the
// single-inheritance parent-vtable chain, terminating at the root (nil
// parent).
func IsInstance(obj unsafe.Pointer, targetID int64) bool {
	if obj == nil {
		return false
	}
	if ClassIDAt(obj) == targetID {
		return true
	}
	for vt := VTableAt(obj); vt != nil; vt = vt.Parent {
		if vt.ID == targetID {
			return true
		}
	}
	return false
}

// NullMethodError reports a method call on a NOTHING reference and exits
// with code 1.
func NullMethodError(location, method string) {
	fmt.Fprintf(os.Stderr, "Method call on NOTHING reference at %s (method: %s)\n", location, method)
	os.Exit(1)
}

// NullFieldError reports a field access on a NOTHING reference, mirroring
// NullMethodError's wording for the field case, and exits with code 1.
func NullFieldError(location, field string) {
	fmt.Fprintf(os.Stderr, "Field access on NOTHING reference at %s (field: %s)\n", location, field)
	os.Exit(1)
}
