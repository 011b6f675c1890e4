// Package breader implements component B: fast, bounds-checked reading of
// fixed-width little-endian integers, 32-byte hashes, and Bitcoin varints
// from a contiguous byte region.
//
// Grounded on _examples/original_source/BlockChain.cpp's
// BlockImpl::readU8/readU16/readU32/readU64/readHash/readVariableLengthInteger,
// adapted from raw-pointer-advance to a cursor over a Go byte slice. The
// fixed-width decode itself uses stdlib encoding/binary, the idiomatic way
// to read little-endian integers in Go — no pack library specializes this
// beyond what encoding/binary already provides.
package breader

import (
	"encoding/binary"
	"errors"

	"github.com/jratcliff63367/blockchain21/internal/model"
)

// ErrShortBuffer is returned whenever a read would run past the end of the
// underlying slice.
var ErrShortBuffer = errors.New("breader: short buffer")

// Reader is a cursor over a byte slice that does not own or copy it; callers
// must keep the backing slice alive for the reader's lifetime (mirroring the
// "memory-mapped access" ownership contract in spec §3/§9).
type Reader struct {
	buf []byte
	pos int
}

// New wraps buf in a Reader starting at offset 0.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// SetPos repositions the cursor.
func (r *Reader) SetPos(p int) { r.pos = p }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread tail of the buffer without advancing.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrShortBuffer
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadI64 reads a little-endian int64 (used for output values).
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadHash256 reads a 32-byte hash as it appears on disk (no byte reversal —
// callers that need the customary display order use Hash256.String).
func (r *Reader) ReadHash256() (model.Hash256, error) {
	var h model.Hash256
	if err := r.need(32); err != nil {
		return h, err
	}
	copy(h[:], r.buf[r.pos:r.pos+32])
	r.pos += 32
	return h, nil
}

// ReadBytes reads n raw bytes, returning a sub-slice of the underlying
// buffer (not a copy — see the ownership note on Reader).
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrShortBuffer
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes without reading them.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadVarInt reads a Bitcoin CompactSize integer: a byte below 0xFD is
// itself; 0xFD introduces a little-endian uint16; 0xFE a uint32; 0xFF a
// uint64.
func (r *Reader) ReadVarInt() (uint64, error) {
	first, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	switch first {
	case 0xFD:
		v, err := r.ReadU16()
		return uint64(v), err
	case 0xFE:
		v, err := r.ReadU32()
		return uint64(v), err
	case 0xFF:
		return r.ReadU64()
	default:
		return uint64(first), nil
	}
}
