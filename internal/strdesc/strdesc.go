// Package strdesc implements the refcounted string descriptor and its
// BASIC intrinsics: a 40-byte-in-C descriptor holding
// either an ASCII/UTF-8 byte buffer or a UTF-32 code-point buffer, plus a
// lazily-built UTF-8 cache for the UTF-32 case. Descriptors are pooled
// through a slab.TypedPool rather than slab.Pool, since a Descriptor
// carries Go-heap pointers of its own (its data and utf8Cache slices) that
// a raw byte slab has no way to keep reachable for the garbage collector.
package strdesc

import (
	"unsafe"

	"github.com/gobasic/sammrt/internal/scope"
	"github.com/gobasic/sammrt/internal/slab"
)

// Encoding tags which element layout a Descriptor's data buffer holds.
type Encoding int

const (
	ASCII Encoding = iota
	UTF32
)

// Descriptor is the pool-allocated, refcounted string shell. Field order
// mirrors the descriptor ABI (data*, length, capacity, refcount,
// encoding, dirty, utf8_cache*) even though Go gives no control over the actual
// in-memory layout of a pooled struct.
type Descriptor struct {
	data     []byte
	length   int // element count: bytes for ASCII, code points for UTF-32
	capacity int
	refcount int32
	encoding Encoding
	dirty    bool // utf8Cache needs rebuilding
	utf8Cache []byte
}

// Len reports the descriptor's element count (LEN intrinsic).
func (d *Descriptor) Len() int { return d.length }

// Encoding reports the descriptor's current encoding tag.
func (d *Descriptor) Encoding() Encoding { return d.encoding }

// UTF8 returns the descriptor's content as a UTF-8 string, building and
// caching the UTF-32-to-UTF-8 view on first access if the descriptor is
// UTF-32-encoded.
func (d *Descriptor) UTF8() string {
	if d.encoding == ASCII {
		return string(d.data)
	}
	if d.dirty || d.utf8Cache == nil {
		d.utf8Cache = decodeUTF32LEToUTF8(d.data)
		d.dirty = false
	}
	return string(d.utf8Cache)
}

// Manager owns the StringDesc pool and the scope-tracking hook every
// string-returning intrinsic auto-tracks through.
type Manager struct {
	pool  *slab.TypedPool[Descriptor]
	track func(ptr unsafe.Pointer, t scope.AllocType)
}

// NewManager constructs a Manager backed by a fresh, empty TypedPool.
// track is invoked for every freshly allocated descriptor so results are
// automatically tracked in the current scope; pass nil to opt out (used
// by tests that manage descriptors by hand).
func NewManager(track func(ptr unsafe.Pointer, t scope.AllocType)) *Manager {
	return &Manager{
		pool:  slab.NewTypedPool[Descriptor]("string_desc", 0),
		track: track,
	}
}

// Pool exposes the backing TypedPool for stats/diagnostics.
func (m *Manager) Pool() *slab.TypedPool[Descriptor] { return m.pool }

func (m *Manager) autoTrack(d *Descriptor) {
	if m.track != nil {
		m.track(unsafe.Pointer(d), scope.String)
	}
}

// New allocates a refcount-1, ASCII-encoded descriptor wrapping s, auto-
// tracked in the current scope.
func (m *Manager) New(s string) *Descriptor {
	d := m.pool.Alloc()
	d.data = []byte(s)
	d.length = len(d.data)
	d.capacity = len(d.data)
	d.refcount = 1
	d.encoding = ASCII
	d.dirty = true
	m.autoTrack(d)
	return d
}

// NewUTF32 allocates a refcount-1, UTF-32-encoded descriptor from runes,
// auto-tracked in the current scope.
func (m *Manager) NewUTF32(runes []rune) *Descriptor {
	d := m.pool.Alloc()
	d.data = make([]byte, 4*len(runes))
	for i, r := range runes {
		u := uint32(r)
		d.data[4*i] = byte(u)
		d.data[4*i+1] = byte(u >> 8)
		d.data[4*i+2] = byte(u >> 16)
		d.data[4*i+3] = byte(u >> 24)
	}
	d.length = len(runes)
	d.capacity = len(runes)
	d.refcount = 1
	d.encoding = UTF32
	d.dirty = true
	m.autoTrack(d)
	return d
}

// Retain increments the refcount. It never crosses goroutines so the
// counter is a plain int32, per the concurrency model's "not atomic"
// rule.
func (m *Manager) Retain(d *Descriptor) {
	if d != nil {
		d.refcount++
	}
}

// Release decrements the refcount; at zero it clears the descriptor's
// buffers and returns the shell to the pool. Safe to call with d == nil.
func (m *Manager) Release(d *Descriptor) {
	if d == nil {
		return
	}
	d.refcount--
	if d.refcount > 0 {
		return
	}
	d.data = nil
	d.utf8Cache = nil
	m.pool.Free(d)
}

// ReleasePtr is the cleanup-queue adapter: it recovers the *Descriptor
// from the opaque pointer the scope tracker carries and releases it. This
// is the callback samm.Init registers for scope.String.
func (m *Manager) ReleasePtr(ptr unsafe.Pointer) {
	m.Release((*Descriptor)(ptr))
}

// Clone deep-copies d's data buffer, honoring the per-encoding element
// size (1 byte for ASCII, 4 for UTF-32), returning a new refcount-1
// descriptor auto-tracked in the current scope.
func (m *Manager) Clone(d *Descriptor) *Descriptor {
	cp := m.pool.Alloc()
	cp.data = append([]byte(nil), d.data...)
	cp.length = d.length
	cp.capacity = d.capacity
	cp.refcount = 1
	cp.encoding = d.encoding
	cp.dirty = true
	m.autoTrack(cp)
	return cp
}
