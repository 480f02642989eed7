package strdesc

import (
	"strings"
)

// runes decodes a descriptor's content to a rune slice regardless of
// encoding, for intrinsics that need code-point-addressable access
// (LEFT$/RIGHT$/MID$ operate on elements, not bytes).
func (d *Descriptor) runes() []rune {
	if d.encoding == ASCII {
		return []rune(string(d.data))
	}
	out := make([]rune, d.length)
	for i := range out {
		b := d.data[4*i : 4*i+4]
		out[i] = rune(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	}
	return out
}

// PromoteUTF32 rewrites an ASCII descriptor's backing storage as UTF-32LE
// in place, the promotion step that precedes mixed-encoding comparison and
// concatenation. A no-op on an already-UTF-32 descriptor.
func (m *Manager) PromoteUTF32(d *Descriptor) {
	if d.encoding == UTF32 {
		return
	}
	n := len([]rune(string(d.data)))
	d.data = encodeUTF32LE(d.data)
	d.length = n
	d.capacity = n
	d.encoding = UTF32
	d.dirty = true
}

// Concat implements the BASIC concatenation operator. If either operand
// is UTF-32, the result is UTF-32 (promoting the ASCII side); otherwise
// the result stays ASCII.
func (m *Manager) Concat(a, b *Descriptor) *Descriptor {
	if a.encoding == ASCII && b.encoding == ASCII {
		return m.New(string(a.data) + string(b.data))
	}
	runes := append(append([]rune(nil), a.runes()...), b.runes()...)
	return m.NewUTF32(runes)
}

// clampedBounds converts BASIC's 1-based, possibly out-of-range
// start/length into a safe [lo, hi) slice of the rune sequence;
// out-of-range inputs clamp rather than panic or error.
func clampedBounds(total, start, length int) (lo, hi int) {
	if start < 1 {
		start = 1
	}
	lo = start - 1
	if lo > total {
		lo = total
	}
	hi = lo + length
	if hi > total {
		hi = total
	}
	if hi < lo {
		hi = lo
	}
	return
}

// Left implements LEFT$(s, n): the first n elements.
func (m *Manager) Left(d *Descriptor, n int) *Descriptor {
	r := d.runes()
	_, hi := clampedBounds(len(r), 1, n)
	return m.fromRunes(r[:hi], d.encoding)
}

// Right implements RIGHT$(s, n): the last n elements.
func (m *Manager) Right(d *Descriptor, n int) *Descriptor {
	r := d.runes()
	if n < 0 {
		n = 0
	}
	lo := len(r) - n
	if lo < 0 {
		lo = 0
	}
	return m.fromRunes(r[lo:], d.encoding)
}

// Mid implements MID$(s, start, length): start is 1-based on input and
// converted to a 0-based offset before slicing.
func (m *Manager) Mid(d *Descriptor, start, length int) *Descriptor {
	r := d.runes()
	lo, hi := clampedBounds(len(r), start, length)
	return m.fromRunes(r[lo:hi], d.encoding)
}

// Substr is the exported name the string ABI uses for the MID$
// operation.
func (m *Manager) Substr(d *Descriptor, start, length int) *Descriptor {
	return m.Mid(d, start, length)
}

func (m *Manager) fromRunes(r []rune, enc Encoding) *Descriptor {
	if enc == UTF32 {
		return m.NewUTF32(r)
	}
	return m.New(string(r))
}

// Upper implements UPPER$.
func (m *Manager) Upper(d *Descriptor) *Descriptor {
	return m.fromRunes([]rune(strings.ToUpper(string(d.runes()))), d.encoding)
}

// Lower implements LOWER$.
func (m *Manager) Lower(d *Descriptor) *Descriptor {
	return m.fromRunes([]rune(strings.ToLower(string(d.runes()))), d.encoding)
}

// Trim implements TRIM$: strips leading and trailing white space, as
// defined by Unicode (strings.TrimSpace).
func (m *Manager) Trim(d *Descriptor) *Descriptor {
	return m.fromRunes([]rune(strings.TrimSpace(string(d.runes()))), d.encoding)
}

// Instr implements INSTR: the 1-based position of needle's first
// occurrence in d, 0 if not found. An empty needle returns 1.
func (m *Manager) Instr(d, needle *Descriptor) int {
	if needle.length == 0 {
		return 1
	}
	hay := string(d.runes())
	nee := string(needle.runes())
	idx := strings.Index(hay, nee)
	if idx < 0 {
		return 0
	}
	return len([]rune(hay[:idx])) + 1
}

// Replace implements REPLACE: every occurrence of old in d replaced with
// repl.
func (m *Manager) Replace(d, old, repl *Descriptor) *Descriptor {
	out := strings.ReplaceAll(string(d.runes()), string(old.runes()), string(repl.runes()))
	return m.fromRunes([]rune(out), d.encoding)
}

// Compare is encoding-aware: two ASCII descriptors compare their byte
// buffers directly; anything else is promoted to a code-point sequence
// first. Comparing raw UTF-32LE bytes lexicographically
// would misorder multi-byte code points (the low byte comes first), so
// promotion compares code points, not backing bytes. Returns -1, 0, or 1.
func (m *Manager) Compare(a, b *Descriptor) int {
	var sa, sb string
	if a.encoding == ASCII && b.encoding == ASCII {
		sa, sb = string(a.data), string(b.data)
	} else {
		sa, sb = string(a.runes()), string(b.runes())
	}
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
