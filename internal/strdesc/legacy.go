package strdesc

import "strings"

// BasicString is the legacy refcounted UTF-8 string type kept alongside
// Descriptor for compatibility: simpler (always UTF-8,
// no lazily-built cache), used where older compiled code still expects
// the pre-StringDescriptor ABI. Conversions between the two happen at the
// BASIC intrinsic layer, not inside either type.
type BasicString struct {
	data     []byte
	length   int
	capacity int
	refcount int32
}

// NewBasicString allocates a refcount-1 legacy string. Legacy strings are
// not pooled: they predate StringDesc pooling and are comparatively
// rare in practice, so a plain heap allocation is the faithful
// adaptation rather than growing a second pool for a type this module
// only keeps for compatibility.
func NewBasicString(s string) *BasicString {
	b := []byte(s)
	return &BasicString{data: b, length: len(b), capacity: len(b), refcount: 1}
}

// Len reports the legacy string's byte length.
func (b *BasicString) Len() int { return b.length }

// String returns the legacy string's content.
func (b *BasicString) String() string { return string(b.data) }

// Retain increments the refcount.
func (b *BasicString) Retain() { b.refcount++ }

// Release decrements the refcount; at zero it drops the backing buffer.
// There is no pool to return to, so release just clears data for the GC
// to reclaim.
func (b *BasicString) Release() {
	b.refcount--
	if b.refcount <= 0 {
		b.data = nil
	}
}

// Concat returns a new refcount-1 legacy string holding b followed by o.
func (b *BasicString) Concat(o *BasicString) *BasicString {
	return NewBasicString(string(b.data) + string(o.data))
}

// Substr is the legacy MID$ equivalent: start is 1-based and converted to
// a 0-based offset before slicing, with the same clamping as the
// descriptor intrinsics.
func (b *BasicString) Substr(start, length int) *BasicString {
	r := []rune(string(b.data))
	lo, hi := clampedBounds(len(r), start, length)
	return NewBasicString(string(r[lo:hi]))
}

// Left returns the first n elements.
func (b *BasicString) Left(n int) *BasicString {
	r := []rune(string(b.data))
	_, hi := clampedBounds(len(r), 1, n)
	return NewBasicString(string(r[:hi]))
}

// Right returns the last n elements.
func (b *BasicString) Right(n int) *BasicString {
	r := []rune(string(b.data))
	if n < 0 {
		n = 0
	}
	lo := len(r) - n
	if lo < 0 {
		lo = 0
	}
	return NewBasicString(string(r[lo:]))
}

// Upper returns an upper-cased copy.
func (b *BasicString) Upper() *BasicString {
	return NewBasicString(strings.ToUpper(string(b.data)))
}

// Lower returns a lower-cased copy.
func (b *BasicString) Lower() *BasicString {
	return NewBasicString(strings.ToLower(string(b.data)))
}

// Trim returns a copy with leading and trailing whitespace stripped.
func (b *BasicString) Trim() *BasicString {
	return NewBasicString(strings.TrimSpace(string(b.data)))
}

// Instr returns the 1-based element position of needle's first occurrence,
// 0 if absent; an empty needle returns 1, matching the descriptor
// intrinsic.
func (b *BasicString) Instr(needle *BasicString) int {
	if len(needle.data) == 0 {
		return 1
	}
	idx := strings.Index(string(b.data), string(needle.data))
	if idx < 0 {
		return 0
	}
	return len([]rune(string(b.data[:idx]))) + 1
}

// Replace returns a copy with every occurrence of old replaced by repl.
func (b *BasicString) Replace(old, repl *BasicString) *BasicString {
	return NewBasicString(strings.ReplaceAll(string(b.data), string(old.data), string(repl.data)))
}

// CompareBasic orders two legacy strings byte-wise, returning -1, 0, or 1.
func CompareBasic(a, b *BasicString) int {
	sa, sb := string(a.data), string(b.data)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// ToDescriptor promotes a legacy string into a pool-managed, ASCII-
// encoded Descriptor. Conversions between the two types cross at the
// BASIC intrinsic layer.
func (m *Manager) ToDescriptor(b *BasicString) *Descriptor {
	return m.New(string(b.data))
}

// FromDescriptor demotes a Descriptor into a fresh, independent legacy
// BasicString (always UTF-8, decoding UTF-32 content first if needed).
func FromDescriptor(d *Descriptor) *BasicString {
	return NewBasicString(d.UTF8())
}
