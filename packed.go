package chant

import (
	"encoding/binary"
	"fmt"
	"math"
)

// packer builds the fixed binary layouts used by every envelope. Fields
// are written in order; variable fields carry a 4 byte big-endian length.
type packer struct {
	buf []byte
}

func newPacker(size int) *packer {
	return &packer{buf: make([]byte, 0, size)}
}

func (p *packer) byte(b byte) *packer {
	p.buf = append(p.buf, b)
	return p
}

// fixed appends a field whose size is implied by the layout.
func (p *packer) fixed(b []byte) *packer {
	p.buf = append(p.buf, b...)
	return p
}

// prefixed appends a len4 field. Callers check the size with checkLen first.
func (p *packer) prefixed(b []byte) *packer {
	p.buf = binary.BigEndian.AppendUint32(p.buf, uint32(len(b)))
	p.buf = append(p.buf, b...)
	return p
}

func (p *packer) bytes() []byte {
	return p.buf
}

// checkLen reports whether b fits behind a 32 bit length prefix.
func checkLen(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(b))
	}
	return nil
}

// unpacker reads the layouts written by packer. Every read is bounds
// checked; the first failure sticks and is reported by finish.
type unpacker struct {
	buf []byte
	err error
}

func newUnpacker(b []byte) *unpacker {
	return &unpacker{buf: b}
}

func (u *unpacker) fail(format string, args ...any) {
	if u.err == nil {
		u.err = fmt.Errorf("%w: %s", ErrStructural, fmt.Sprintf(format, args...))
	}
}

func (u *unpacker) byte() byte {
	if u.err != nil {
		return 0
	}
	if len(u.buf) < 1 {
		u.fail("missing byte")
		return 0
	}
	b := u.buf[0]
	u.buf = u.buf[1:]
	return b
}

// fixed returns the next n bytes. The result aliases the input.
func (u *unpacker) fixed(n int) []byte {
	if u.err != nil {
		return nil
	}
	if n < 0 || len(u.buf) < n {
		u.fail("need %d bytes, have %d", n, len(u.buf))
		return nil
	}
	b := u.buf[:n:n]
	u.buf = u.buf[n:]
	return b
}

// prefixed returns the next len4 field. The result aliases the input.
func (u *unpacker) prefixed() []byte {
	if u.err != nil {
		return nil
	}
	if len(u.buf) < 4 {
		u.fail("missing length prefix")
		return nil
	}
	n := binary.BigEndian.Uint32(u.buf)
	if uint64(n) > uint64(len(u.buf)-4) {
		u.fail("declared length %d exceeds remaining %d", n, len(u.buf)-4)
		return nil
	}
	u.buf = u.buf[4:]
	return u.fixed(int(n))
}

// finish returns the first read error, or an error if bytes remain.
func (u *unpacker) finish() error {
	if u.err != nil {
		return u.err
	}
	if len(u.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrStructural, len(u.buf))
	}
	return nil
}
