package core

// Readers applied to imported backup files before they are decoded.
//
// Backups edited on Windows often start with a UTF-8 byte-order mark, and
// files saved in a legacy code page can hold bytes that are not UTF-8. Both
// would make the JSON decoder reject an otherwise usable file.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a leading UTF-8 byte-order mark.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			b.r.Discard(len(utf8BOM))
		}
	}
	return b.r.Read(p)
}

// UTF8Sanitizer replaces every byte that is not part of a valid UTF-8
// sequence with '?'. A multi-byte sequence split across reads is held back
// until the rest arrives.
type UTF8Sanitizer struct {
	r   io.Reader
	buf []byte // raw input not yet cleaned
	out []byte // cleaned output not yet returned
	err error  // sticky error from r
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		chunk := make([]byte, max(len(p), 512))
		m, err := s.r.Read(chunk)
		s.buf = append(s.buf, chunk[:m]...)
		s.err = err
		s.clean()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// clean moves every complete sequence of buf to out. Once r has failed the
// whole buffer is flushed, so a truncated sequence at EOF becomes '?'.
func (s *UTF8Sanitizer) clean() {
	i := 0
	for i < len(s.buf) {
		rest := s.buf[i:]
		if s.err == nil && !utf8.FullRune(rest) {
			break
		}
		r, size := utf8.DecodeRune(rest)
		if r == utf8.RuneError && size == 1 {
			s.out = append(s.out, '?')
			i++
			continue
		}
		s.out = append(s.out, rest[:size]...)
		i += size
	}
	s.buf = s.buf[i:]
}

// NewImportReader applies BOM skipping then UTF-8 sanitizing to r.
func NewImportReader(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(NewBOMSkippingReader(r))
}
