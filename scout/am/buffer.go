// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

// ErrShortBuffer is latched by a Buffer when a read runs past its end.
var ErrShortBuffer = xerrors.New("am: read past end of buffer")

// Buffer is the wire buffer of one message. All fields are little-endian
// and fixed width. Writes append; reads consume from the front.
type Buffer struct {
	b   []byte
	pos int
	err error
}

// NewBuffer returns a Buffer reading from b.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Bytes returns the unread contents of the buffer.
func (b *Buffer) Bytes() []byte { return b.b[b.pos:] }

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return len(b.b) - b.pos }

// Err returns ErrShortBuffer if any read ran past the end.
func (b *Buffer) Err() error { return b.err }

func (b *Buffer) PutUint8(v uint8) { b.b = append(b.b, v) }

func (b *Buffer) PutUint32(v uint32) { b.b = binary.LittleEndian.AppendUint32(b.b, v) }

func (b *Buffer) PutUint64(v uint64) { b.b = binary.LittleEndian.AppendUint64(b.b, v) }

func (b *Buffer) PutFloat64(v float64) { b.PutUint64(math.Float64bits(v)) }

// PutID writes an event, callpath or communicator identifier.
func (b *Buffer) PutID(v uint32) { b.PutUint32(v) }

// PutTimestamp writes an event timestamp.
func (b *Buffer) PutTimestamp(v float64) { b.PutFloat64(v) }

func (b *Buffer) next(n int) []byte {
	if b.pos+n > len(b.b) {
		b.pos = len(b.b)
		b.err = ErrShortBuffer
		return nil
	}
	p := b.b[b.pos : b.pos+n]
	b.pos += n
	return p
}

func (b *Buffer) Uint8() uint8 {
	p := b.next(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (b *Buffer) Uint32() uint32 {
	p := b.next(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (b *Buffer) Uint64() uint64 {
	p := b.next(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (b *Buffer) Float64() float64 { return math.Float64frombits(b.Uint64()) }

func (b *Buffer) ID() uint32 { return b.Uint32() }

func (b *Buffer) Timestamp() float64 { return b.Float64() }
