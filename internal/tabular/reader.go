package tabular

// reader.go wraps CSV input so the csv package sees clean text:
//
//   - a leading UTF-8 BOM from spreadsheet exports is removed
//   - invalid UTF-8 bytes are replaced with '?' without buffering the file
//   - input beyond the configured size limit fails with ErrFileTooLarge

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned when a CSV source exceeds the size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader positioned after a UTF-8 BOM, if r starts with one.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil &&
		head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' as data streams through.
// A multi-byte rune split across two reads is held back until the next read.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

// SanitizeUTF8 wraps r so every byte it yields is valid UTF-8.
func SanitizeUTF8(r io.Reader) io.Reader {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	atEOF := err == io.EOF
	data := p[:n]
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			break
		}
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}

	if write == 0 && len(s.pending) > 0 && err == nil {
		// Only a partial rune arrived; read again rather than return 0, nil.
		return s.Read(p)
	}
	return write, err
}

// limitReader fails once more than max bytes have been read.
type limitReader struct {
	r    io.Reader
	left int64
}

// LimitSize wraps r so reading past max bytes returns ErrFileTooLarge.
// A non-positive max disables the limit.
func LimitSize(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &limitReader{r: r, left: max}
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, ErrFileTooLarge
	}
	// Allow one byte past the limit to detect overflow.
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}

// WrapCSV applies BOM skipping, UTF-8 sanitization and the size limit in
// that order.
func WrapCSV(r io.Reader, maxSize int64) io.Reader {
	return SanitizeUTF8(SkipBOM(LimitSize(r, maxSize)))
}
