// UTF-32 has no Transformer in golang.org/x/text/encoding/unicode (that
// package only ships UTF-8 and UTF-16 codecs), so the two directions this
// runtime needs (UTF-32LE bytes to UTF-8, and back) are hand-written
// here. They still speak the transform.Transformer contract the rest of
// the x/text ecosystem uses, so callers compose them with
// transform.Bytes exactly like any stock x/text codec.
package strdesc

import (
	"unicode/utf8"

	"golang.org/x/text/transform"
)

type utf32LEToUTF8 struct{}

func (utf32LEToUTF8) Reset() {}

func (utf32LEToUTF8) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for len(src)-nSrc >= 4 {
		cp := rune(uint32(src[nSrc]) | uint32(src[nSrc+1])<<8 | uint32(src[nSrc+2])<<16 | uint32(src[nSrc+3])<<24)
		if !utf8.ValidRune(cp) {
			cp = utf8.RuneError
		}
		if len(dst)-nDst < utf8.UTFMax {
			err = transform.ErrShortDst
			return
		}
		n := utf8.EncodeRune(dst[nDst:], cp)
		nDst += n
		nSrc += 4
	}
	if rem := len(src) - nSrc; rem > 0 && atEOF {
		err = transform.ErrShortSrc // truncated code point at end of input
	} else if rem > 0 {
		err = transform.ErrShortSrc
	}
	return
}

type utf8ToUTF32LE struct{}

func (utf8ToUTF32LE) Reset() {}

func (utf8ToUTF32LE) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		cp, size := utf8.DecodeRune(src[nSrc:])
		if cp == utf8.RuneError && size <= 1 {
			if !atEOF && nSrc+size >= len(src) {
				err = transform.ErrShortSrc
				return
			}
		}
		if len(dst)-nDst < 4 {
			err = transform.ErrShortDst
			return
		}
		u := uint32(cp)
		dst[nDst] = byte(u)
		dst[nDst+1] = byte(u >> 8)
		dst[nDst+2] = byte(u >> 16)
		dst[nDst+3] = byte(u >> 24)
		nDst += 4
		nSrc += size
	}
	return
}

// encodeUTF32LE converts UTF-8 bytes to raw UTF-32LE backing storage.
func encodeUTF32LE(utf8Bytes []byte) []byte {
	out, _, err := transform.Bytes(utf8ToUTF32LE{}, utf8Bytes)
	if err != nil {
		// utf8ToUTF32LE never returns a terminal error for well-formed
		// input at atEOF; a malformed rune still decodes (as
		// utf8.RuneError) rather than failing the transform.
		return out
	}
	return out
}

// decodeUTF32LEToUTF8 builds the lazily-cached UTF-8 view of UTF-32LE
// backing storage.
func decodeUTF32LEToUTF8(utf32Bytes []byte) []byte {
	out, _, err := transform.Bytes(utf32LEToUTF8{}, utf32Bytes)
	if err != nil {
		return out
	}
	return out
}
