package aseprite

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// reader is a forward cursor over little-endian Aseprite data.
// The first error is sticky: subsequent reads return zero values
// and the error is reported by Err.
type reader struct {
	src io.Reader
	br  *bufio.Reader
	pos int64
	buf [8]byte
	err error
}

func newReader(r io.Reader) *reader {
	return &reader{
		src: r,
		br:  bufio.NewReader(r),
	}
}

// Err returns the first error encountered by the cursor.
func (r *reader) Err() error {
	return r.err
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Offset returns the absolute position of the cursor.
func (r *reader) Offset() int64 {
	return r.pos
}

// Read implements io.Reader so that the cursor can feed a decompressor.
// Failures other than io.EOF become sticky.
func (r *reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.br.Read(p)
	r.pos += int64(n)
	if err != nil && err != io.EOF {
		r.fail(&IOError{Offset: r.pos, Err: err})
	}
	return n, err
}

// payload returns a stream of the input up to the absolute offset end.
// Running out of input before end is a sticky io.ErrUnexpectedEOF.
func (r *reader) payload(end int64) io.Reader {
	return &payloadReader{r: r, end: end}
}

type payloadReader struct {
	r   *reader
	end int64
}

func (p *payloadReader) Read(b []byte) (int, error) {
	remaining := p.end - p.r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(b)) > remaining {
		b = b[:remaining]
	}

	n, err := p.r.Read(b)
	if err == io.EOF {
		p.r.fail(&IOError{Offset: p.r.pos, Err: io.ErrUnexpectedEOF})
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}

	var p []byte
	if n <= len(r.buf) {
		p = r.buf[:n]
	} else {
		p = make([]byte, n)
	}

	m, err := io.ReadFull(r.br, p)
	r.pos += int64(m)
	if err != nil {
		// running out of input inside a record is never expected
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.fail(&IOError{Offset: r.pos, Err: err})
		return nil
	}
	return p
}

func (r *reader) u8() uint8 {
	if p := r.next(1); p != nil {
		return p[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if p := r.next(2); p != nil {
		return binary.LittleEndian.Uint16(p)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if p := r.next(4); p != nil {
		return binary.LittleEndian.Uint32(p)
	}
	return 0
}

func (r *reader) i16() int16 {
	return int16(r.u16())
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

// string reads a string prefixed by its 16-bit byte length.
func (r *reader) string() string {
	n := int(r.u16())
	p := r.next(n)
	if p == nil {
		return ""
	}
	if !utf8.Valid(p) {
		r.fail(FormatError("string is not valid UTF-8"))
		return ""
	}
	return string(p)
}

func (r *reader) discard(n int64) {
	if r.err != nil || n == 0 {
		return
	}
	m, err := io.CopyN(io.Discard, r.br, n)
	r.pos += m
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.fail(&IOError{Offset: r.pos, Err: err})
	}
}

// skip discards n reserved bytes.
func (r *reader) skip(n int) {
	r.discard(int64(n))
}

// seek moves the cursor to an absolute offset.
// Forward seeks discard input so that plain readers are supported;
// backward seeks require the source to implement io.Seeker.
func (r *reader) seek(offset int64) {
	if r.err != nil {
		return
	}

	if offset >= r.pos {
		r.discard(offset - r.pos)
		return
	}

	s, ok := r.src.(io.Seeker)
	if !ok {
		r.fail(&IOError{Offset: r.pos, Err: errBackwardSeek})
		return
	}

	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		r.fail(&IOError{Offset: r.pos, Err: err})
		return
	}

	r.br.Reset(r.src)
	r.pos = offset
}

// advanceTo consumes input up to offset, which must not lie behind the cursor.
func (r *reader) advanceTo(offset int64) {
	if r.err != nil {
		return
	}

	if offset < r.pos {
		r.fail(FormatError("chunk data overruns its declared size"))
		return
	}

	r.discard(offset - r.pos)
}
