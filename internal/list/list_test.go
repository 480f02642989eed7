package list

import (
	"testing"
	"unsafe"

	"github.com/gobasic/sammrt/internal/scope"
)

func TestAppendBuildsChain(t *testing.T) {
	m := NewManager(nil)
	h := m.NewList()

	var x, y, z int
	m.Append(h, m.NewAtom(unsafe.Pointer(&x)))
	m.Append(h, m.NewAtom(unsafe.Pointer(&y)))
	m.Append(h, m.NewAtom(unsafe.Pointer(&z)))

	if h.Count != 3 {
		t.Fatalf("Count = %d, want 3", h.Count)
	}
	if h.Head.Value != unsafe.Pointer(&x) {
		t.Fatalf("Head does not point at the first appended atom")
	}
	if h.Tail.Value != unsafe.Pointer(&z) {
		t.Fatalf("Tail does not point at the last appended atom")
	}
	if h.Head.Next.Next != h.Tail {
		t.Fatalf("chain is not correctly linked")
	}
}

func TestAutoTrackTypes(t *testing.T) {
	var gotTypes []scope.AllocType
	m := NewManager(func(ptr unsafe.Pointer, at scope.AllocType) {
		gotTypes = append(gotTypes, at)
	})
	m.NewList()
	m.NewAtom(nil)

	if len(gotTypes) != 2 || gotTypes[0] != scope.List || gotTypes[1] != scope.ListAtom {
		t.Fatalf("gotTypes = %v, want [List ListAtom]", gotTypes)
	}
}

func TestReleaseReturnsToPool(t *testing.T) {
	m := NewManager(nil)
	h := m.NewList()
	a := m.NewAtom(nil)

	m.ReleaseHeader(unsafe.Pointer(h))
	m.ReleaseAtom(unsafe.Pointer(a))

	if got := m.Headers().CheckLeaks(); got != 0 {
		t.Fatalf("header CheckLeaks() = %d, want 0", got)
	}
	if got := m.Atoms().CheckLeaks(); got != 0 {
		t.Fatalf("atom CheckLeaks() = %d, want 0", got)
	}
}
