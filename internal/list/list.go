// Package list implements SAMM's list header and atom pools. Like
// internal/strdesc, these are
// pooled as GC-visible Go structs via slab.TypedPool rather than raw byte
// slabs, since an Atom's Next pointer and a Header's Head pointer are
// ordinary Go pointers the collector must be able to follow.
package list

import (
	"unsafe"

	"github.com/gobasic/sammrt/internal/scope"
	"github.com/gobasic/sammrt/internal/slab"
)

// Atom is one singly-linked list node. Value is an opaque payload
// pointer, typically into an Object or StringDescriptor allocated
// elsewhere in SAMM, that the list does not own or free.
type Atom struct {
	Value unsafe.Pointer
	Next  *Atom
}

// Header is a list's head/tail/count bookkeeping cell.
type Header struct {
	Head  *Atom
	Tail  *Atom
	Count int
}

// Manager owns the ListHeader and ListAtom pools plus the scope-tracking
// hooks each alloc-type auto-tracks through.
type Manager struct {
	headers *slab.TypedPool[Header]
	atoms   *slab.TypedPool[Atom]

	trackList func(ptr unsafe.Pointer, t scope.AllocType)
}

// NewManager constructs a Manager backed by fresh, empty TypedPools.
// track is invoked for every freshly allocated header or atom; pass nil
// to opt out.
func NewManager(track func(ptr unsafe.Pointer, t scope.AllocType)) *Manager {
	return &Manager{
		headers:   slab.NewTypedPool[Header]("list_header", 0),
		atoms:     slab.NewTypedPool[Atom]("list_atom", 0),
		trackList: track,
	}
}

// Headers exposes the backing header pool for stats/diagnostics.
func (m *Manager) Headers() *slab.TypedPool[Header] { return m.headers }

// Atoms exposes the backing atom pool for stats/diagnostics.
func (m *Manager) Atoms() *slab.TypedPool[Atom] { return m.atoms }

// NewList allocates an empty list header, tracked as scope.List.
func (m *Manager) NewList() *Header {
	h := m.headers.Alloc()
	if m.trackList != nil {
		m.trackList(unsafe.Pointer(h), scope.List)
	}
	return h
}

// NewAtom allocates a list atom wrapping value, tracked as
// scope.ListAtom. It is not linked into any list until Append does so
// explicitly.
func (m *Manager) NewAtom(value unsafe.Pointer) *Atom {
	a := m.atoms.Alloc()
	a.Value = value
	if m.trackList != nil {
		m.trackList(unsafe.Pointer(a), scope.ListAtom)
	}
	return a
}

// Append links atom onto the tail of h.
func (m *Manager) Append(h *Header, atom *Atom) {
	atom.Next = nil
	if h.Tail == nil {
		h.Head = atom
		h.Tail = atom
	} else {
		h.Tail.Next = atom
		h.Tail = atom
	}
	h.Count++
}

// ReleaseHeader returns a detached list header to the pool. It does not
// walk or release the header's atoms; those are tracked (and reclaimed)
// independently by the cleanup worker per their own scope.ListAtom
// records.
func (m *Manager) ReleaseHeader(ptr unsafe.Pointer) {
	m.headers.Free((*Header)(ptr))
}

// ReleaseAtom returns a detached atom to the pool.
func (m *Manager) ReleaseAtom(ptr unsafe.Pointer) {
	m.atoms.Free((*Atom)(ptr))
}
