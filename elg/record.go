// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import (
	"bytes"
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

// ByteOrder is the byte-order tag stored in a trace header.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = 0
	BigEndian    ByteOrder = 1
)

// byteOrder reads and appends multi-byte fields.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (o ByteOrder) binary() byteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	}
	return "invalid byte order"
}

// MaxLength is the largest body a single record can carry.
const MaxLength = 255

// ErrShortBody is latched by a Record when a read runs past the end of its body.
var ErrShortBody = xerrors.New("elg: read past end of record body")

// Record is one length-prefixed, typed record read from a trace.
//
// Its fields are consumed exactly once, in order, through the Read methods.
// A Record is not safe for concurrent use.
type Record struct {
	typ   Type
	order binary.ByteOrder
	body  []byte
	pos   int
	err   error
}

// NewRecord returns a record of type t over body, whose multi-byte fields
// are stored in byte order o. A zero-length body is kept as nil.
func NewRecord(t Type, o ByteOrder, body []byte) *Record {
	if len(body) == 0 {
		body = nil
	}
	return &Record{typ: t, order: o.binary(), body: body}
}

// Type returns the record type.
func (r *Record) Type() Type { return r.typ }

// Len returns the length of the record body in bytes.
func (r *Record) Len() int { return len(r.body) }

// Remaining returns the number of unread body bytes.
func (r *Record) Remaining() int { return len(r.body) - r.pos }

// Err returns ErrShortBody if any read ran past the end of the body.
func (r *Record) Err() error { return r.err }

func (r *Record) next(n int) []byte {
	if r.pos+n > len(r.body) {
		r.pos = len(r.body)
		r.err = ErrShortBody
		return nil
	}
	b := r.body[r.pos : r.pos+n]
	r.pos += n
	return b
}

// ReadU1 reads a one-byte unsigned integer.
func (r *Record) ReadU1() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadU4 reads a four-byte unsigned integer.
func (r *Record) ReadU4() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

// ReadU8 reads an eight-byte unsigned integer.
func (r *Record) ReadU8() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return r.order.Uint64(b)
}

// ReadD8 reads an eight-byte IEEE 754 floating-point value.
func (r *Record) ReadD8() float64 {
	return math.Float64frombits(r.ReadU8())
}

// StringBytes returns the remaining body up to the first NUL byte without
// copying. The result aliases the record body and is only valid while the
// record is alive. StringBytes does not advance the cursor.
func (r *Record) StringBytes() []byte {
	b := r.body[r.pos:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return b
}

// ReadString returns a copy of the NUL-terminated string at the cursor and
// consumes the rest of the body.
func (r *Record) ReadString() string {
	s := string(r.StringBytes())
	r.pos = len(r.body)
	return s
}
