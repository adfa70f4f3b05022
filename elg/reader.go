// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elg reads and writes EPILOG event traces.
//
// A trace is a fixed header followed by a sequence of records. Each record
// is a one-byte body length, a one-byte type and the body itself. Reader
// produces raw Records; Decoder turns them into typed values and hands
// them to Callbacks; Writer produces the same byte stream.
package elg

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/scalasca/pearl/elg/internal/mmap"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Label is the magic string at the start of every trace. On disk it is
// followed by its NUL terminator.
const Label = "EPILOG"

const headerLen int64 = int64(len(Label)) + 1 + 3

var (
	// ErrBadHeader is returned when a stream does not start with a valid
	// trace header.
	ErrBadHeader = xerrors.New("elg: bad trace header")

	// ErrNotSeekable is returned by Seek on a stream without random access.
	ErrNotSeekable = xerrors.New("elg: stream is not seekable")

	// ErrBadOffset is returned by Seek for an offset outside an in-memory trace.
	ErrBadOffset = xerrors.New("elg: seek offset out of range")
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger used for diagnostics. The default discards
// all output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reader reads records from a trace.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	src    source
	log    *zap.Logger
	name   string
	off    int64
	major  uint8
	minor  uint8
	order  ByteOrder
	closed bool
}

// source is a backend of a Reader. Offsets are absolute positions in the
// uncompressed stream.
type source interface {
	io.Reader
	seek(off int64) error
	close() error
}

// Open opens the named trace file. Gzip-compressed files are decompressed
// transparently.
func Open(path string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("elg: %w", err)
	}
	br := bufio.NewReader(f)
	var src source
	if magic, _ := br.Peek(2); bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, xerrors.Errorf("elg: %s: %w", path, err)
		}
		src = &gzipSource{f: f, zr: zr, br: bufio.NewReader(zr)}
	} else {
		src = &fileSource{f: f, br: br}
	}
	r, err := newReader(src, path, o)
	if err != nil {
		return nil, err
	}
	o.log.Debug("opened trace", zap.String("path", path), zap.Uint32("version", r.Version()))
	return r, nil
}

// OpenMapped memory-maps the named trace file and reads it through the
// in-memory backend.
func OpenMapped(path string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	m, err := mmap.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("elg: %w", err)
	}
	return newReader(&memSource{data: m.Bytes(), closer: m}, path, o)
}

// NewReader returns a Reader over an in-memory trace.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	return newReader(&memSource{data: data}, "", buildOptions(opts))
}

// NewStreamReader returns a Reader over a stream without random access.
func NewStreamReader(r io.Reader, opts ...Option) (*Reader, error) {
	return newReader(&streamSource{br: bufio.NewReader(r)}, "", buildOptions(opts))
}

func newReader(src source, name string, o options) (*Reader, error) {
	r := &Reader{src: src, log: o.log, name: name}
	if err := r.readHeader(); err != nil {
		src.close()
		if name != "" {
			return nil, xerrors.Errorf("elg: %s: %w", name, err)
		}
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r.src, hdr[:]); err != nil {
		return ErrBadHeader
	}
	if string(hdr[:len(Label)]) != Label || hdr[len(Label)] != 0 {
		return ErrBadHeader
	}
	r.major = hdr[len(Label)+1]
	r.minor = hdr[len(Label)+2]
	r.order = ByteOrder(hdr[len(Label)+3])
	if r.order != LittleEndian && r.order != BigEndian {
		return xerrors.Errorf("%w: byte order tag %d", ErrBadHeader, r.order)
	}
	r.off = headerLen
	return nil
}

// Version returns the format version as major*1000+minor.
func (r *Reader) Version() uint32 {
	return uint32(r.major)*1000 + uint32(r.minor)
}

// ByteOrder returns the byte order of multi-byte record fields.
func (r *Reader) ByteOrder() ByteOrder { return r.order }

// Offset returns the stream position of the next record.
func (r *Reader) Offset() int64 { return r.off }

// ReadRecord reads the next record. It returns io.EOF at the end of the
// stream. A truncated length/type pair or body also ends the stream.
func (r *Reader) ReadRecord() (*Record, error) {
	var hdr [2]byte
	n, err := io.ReadFull(r.src, hdr[:])
	r.off += int64(n)
	if err != nil {
		return nil, r.eof(err)
	}
	length, typ := int(hdr[0]), Type(hdr[1])
	var body []byte
	if length > 0 {
		body = make([]byte, length)
		n, err := io.ReadFull(r.src, body)
		r.off += int64(n)
		if err != nil {
			return nil, r.eof(err)
		}
	}
	return &Record{typ: typ, order: r.order.binary(), body: body}, nil
}

// eof maps short reads to a clean end of stream. Other I/O errors are
// reported as they are.
func (r *Reader) eof(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if err == io.ErrUnexpectedEOF {
			r.log.Debug("truncated record at end of trace", zap.String("name", r.name), zap.Int64("offset", r.off))
		}
		return io.EOF
	}
	return err
}

// SeekOffset moves to the absolute stream offset off, which must be the
// start of a record.
func (r *Reader) SeekOffset(off int64) error {
	if err := r.src.seek(off); err != nil {
		return err
	}
	r.off = off
	return nil
}

// Close releases the underlying resources.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.src.close()
}

type fileSource struct {
	f  *os.File
	br *bufio.Reader
}

func (s *fileSource) Read(p []byte) (int, error) { return s.br.Read(p) }

func (s *fileSource) seek(off int64) error {
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return xerrors.Errorf("elg: seek: %w", err)
	}
	s.br.Reset(s.f)
	return nil
}

func (s *fileSource) close() error { return s.f.Close() }

// gzipSource seeks by rewinding and discarding decompressed bytes.
type gzipSource struct {
	f  *os.File
	zr *gzip.Reader
	br *bufio.Reader
}

func (s *gzipSource) Read(p []byte) (int, error) { return s.br.Read(p) }

func (s *gzipSource) seek(off int64) error {
	if off < 0 {
		return ErrBadOffset
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return xerrors.Errorf("elg: seek: %w", err)
	}
	if err := s.zr.Reset(s.f); err != nil {
		return xerrors.Errorf("elg: seek: %w", err)
	}
	s.br.Reset(s.zr)
	if _, err := io.CopyN(io.Discard, s.br, off); err != nil {
		return xerrors.Errorf("elg: seek to %d: %w", off, err)
	}
	return nil
}

func (s *gzipSource) close() error {
	return multierr.Append(s.zr.Close(), s.f.Close())
}

type memSource struct {
	data   []byte
	off    int
	closer io.Closer
}

func (s *memSource) Read(p []byte) (int, error) {
	if s.off >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.off:])
	s.off += n
	return n, nil
}

func (s *memSource) seek(off int64) error {
	if off < 0 || off >= int64(len(s.data)) {
		return xerrors.Errorf("%w: %d not in [0, %d)", ErrBadOffset, off, len(s.data))
	}
	s.off = int(off)
	return nil
}

func (s *memSource) close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

type streamSource struct {
	br *bufio.Reader
}

func (s *streamSource) Read(p []byte) (int, error) { return s.br.Read(p) }

func (s *streamSource) seek(int64) error { return ErrNotSeekable }

func (s *streamSource) close() error { return nil }
