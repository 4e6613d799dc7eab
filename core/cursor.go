package core

import "encoding/binary"

// Cursor is a bounds-checked reader over a borrowed buffer. Every read
// that would run past the end returns a ParseError instead of panicking.
// The byte order applies to Uint16/Uint32; JPEG and PNG are big-endian,
// TIFF blocks pick theirs from the II/MM marker.
type Cursor struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// NewCursor returns a Cursor at offset 0.
func NewCursor(buf []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{buf: buf, order: order}
}

// Pos is the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Len is the total buffer length.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining is the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Order returns the byte order in use.
func (c *Cursor) Order() binary.ByteOrder { return c.order }

// SetOrder switches byte order, e.g. after reading a TIFF header.
func (c *Cursor) SetOrder(order binary.ByteOrder) { c.order = order }

// Seek moves to an absolute offset. Seeking to Len() is allowed.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return Parsef("offset %d outside buffer of %d bytes", off, len(c.buf))
	}
	c.pos = off
	return nil
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int) error {
	if n < 0 || n > c.Remaining() {
		return Parsef("cannot skip %d bytes at offset %d: %d remaining", n, c.pos, c.Remaining())
	}
	c.pos += n
	return nil
}

// Bytes returns the next n bytes without copying and advances past them.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, Parsef("need %d bytes at offset %d: %d remaining", n, c.pos, c.Remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Byte reads one byte.
func (c *Cursor) Byte() (byte, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads two bytes in the cursor's byte order.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// Uint32 reads four bytes in the cursor's byte order.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

// Rest returns everything from the current offset to the end.
func (c *Cursor) Rest() []byte { return c.buf[c.pos:] }
