package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a peek reaches past the code window.
	ErrTruncated = errors.New("truncated instruction")
	// ErrUnknownOpcode is returned for bit patterns with no decoder leaf.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrUndecodable wraps every Disassemble failure.
	ErrUndecodable = errors.New("undecodable instruction")
)

// Undecodable wraps cause (ErrTruncated or ErrUnknownOpcode) for pc.
func Undecodable(pc uint64, cause error) error {
	return fmt.Errorf("%w at %#x: %w", ErrUndecodable, pc, cause)
}

// Reader is a bounded random-access window over machine code. Offset 0
// corresponds to PC(). Peeks are pure and never read past the window.
type Reader struct {
	code  []byte
	pc    uint64
	order binary.ByteOrder
}

// NewReader returns a Reader over code whose first byte lives at pc.
func NewReader(code []byte, pc uint64, order binary.ByteOrder) *Reader {
	return &Reader{code: code, pc: pc, order: order}
}

// PC returns the absolute address of offset 0.
func (r *Reader) PC() uint64 { return r.pc }

// Len returns the size of the window.
func (r *Reader) Len() int { return len(r.code) }

// Order returns the byte order used for multi-byte peeks.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// At returns a window starting off bytes further on. Out-of-range offsets
// produce an empty window.
func (r *Reader) At(off int) *Reader {
	if off < 0 || off > len(r.code) {
		return &Reader{pc: r.pc + uint64(off), order: r.order}
	}
	return &Reader{code: r.code[off:], pc: r.pc + uint64(off), order: r.order}
}

// Bytes returns n bytes at off.
func (r *Reader) Bytes(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.code) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d of %d", ErrTruncated, n, off, len(r.code))
	}
	return r.code[off : off+n], nil
}

func (r *Reader) Peek8(off int) (uint8, error) {
	b, err := r.Bytes(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Peek16(off int) (uint16, error) {
	b, err := r.Bytes(off, 2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) Peek32(off int) (uint32, error) {
	b, err := r.Bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) Peek64(off int) (uint64, error) {
	b, err := r.Bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *Reader) PeekI8(off int) (int8, error) {
	v, err := r.Peek8(off)
	return int8(v), err
}

func (r *Reader) PeekI16(off int) (int16, error) {
	v, err := r.Peek16(off)
	return int16(v), err
}

func (r *Reader) PeekI32(off int) (int32, error) {
	v, err := r.Peek32(off)
	return int32(v), err
}

// Cursor returns a sticky-error view used inside opcode trees.
func (r *Reader) Cursor() *Cursor { return &Cursor{r: r} }

// Cursor wraps a Reader so a decode tree can fetch fields without checking
// each error: after the first out-of-bound read every accessor returns 0
// and Err reports the fault. Decoders check Err once at their boundary.
type Cursor struct {
	r   *Reader
	err error
}

// PC returns the address of the instruction start.
func (c *Cursor) PC() uint64 { return c.r.pc }

// Err returns the first fault, if any.
func (c *Cursor) Err() error { return c.err }

// Require faults unless n bytes are available.
func (c *Cursor) Require(n int) bool {
	if c.err != nil {
		return false
	}
	if n > len(c.r.code) {
		c.err = fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(c.r.code))
		return false
	}
	return true
}

func (c *Cursor) U8(off int) uint8 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Peek8(off)
	c.err = err
	return v
}

func (c *Cursor) U16(off int) uint16 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Peek16(off)
	c.err = err
	return v
}

func (c *Cursor) U32(off int) uint32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Peek32(off)
	c.err = err
	return v
}

func (c *Cursor) U64(off int) uint64 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.Peek64(off)
	c.err = err
	return v
}

func (c *Cursor) I8(off int) int8   { return int8(c.U8(off)) }
func (c *Cursor) I16(off int) int16 { return int16(c.U16(off)) }
func (c *Cursor) I32(off int) int32 { return int32(c.U32(off)) }

// Raw returns a copy of the first n bytes of the window, or nil.
func (r *Reader) Raw(n int) []byte {
	b, err := r.Bytes(0, n)
	if err != nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
