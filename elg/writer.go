// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import (
	"bufio"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Default format version written by a Writer.
const (
	DefaultMajor = 1
	DefaultMinor = 9
)

// stringPrimaryCap is the number of string bytes in a STRING record that
// is followed by STRING_CNT records.
const stringPrimaryCap = MaxLength - 5

var (
	// ErrMetricArity is returned when an event carries a different number
	// of metric values than the trace has established.
	ErrMetricArity = xerrors.New("elg: metric count mismatch")

	// ErrTooLong is returned for a value that does not fit the record
	// format, even with continuation records.
	ErrTooLong = xerrors.New("elg: value too long for record")
)

// WriterConfig configures a Writer. The zero value writes a little-endian
// trace of the default version with explicit locations.
type WriterConfig struct {
	// Major and Minor select the format version. Fields introduced after
	// that version are omitted. Both zero means DefaultMajor.DefaultMinor.
	Major, Minor uint8

	Order ByteOrder

	// SingleLocation omits the location field of every event. Readers
	// substitute the id of the last LOCATION definition.
	SingleLocation bool

	// Compress gzip-compresses the output of Create.
	Compress bool

	Logger *zap.Logger
}

// Writer encodes values as trace records.
//
// A Writer is not safe for concurrent use. Errors are sticky: after the
// first failure every call returns the same error.
type Writer struct {
	bw      *bufio.Writer
	closers []io.Closer
	log     *zap.Logger

	cfg         WriterConfig
	version     uint32
	metricKnown bool
	metricCount int

	enc encoder
	err error
}

// NewWriter writes a trace header to w and returns a Writer for the
// records that follow.
func NewWriter(w io.Writer, cfg WriterConfig) (*Writer, error) {
	if cfg.Major == 0 && cfg.Minor == 0 {
		cfg.Major, cfg.Minor = DefaultMajor, DefaultMinor
	}
	if cfg.Order != LittleEndian && cfg.Order != BigEndian {
		return nil, xerrors.Errorf("elg: invalid byte order %d", cfg.Order)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	wr := &Writer{
		bw:      bufio.NewWriter(w),
		log:     cfg.Logger,
		cfg:     cfg,
		version: uint32(cfg.Major)*1000 + uint32(cfg.Minor),
		enc:     encoder{order: cfg.Order.binary(), b: make([]byte, 0, MaxLength)},
	}
	hdr := append([]byte(Label), 0, cfg.Major, cfg.Minor, uint8(cfg.Order))
	if _, err := wr.bw.Write(hdr); err != nil {
		return nil, xerrors.Errorf("elg: write header: %w", err)
	}
	return wr, nil
}

// Create creates the named trace file.
func Create(path string, cfg WriterConfig) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, xerrors.Errorf("elg: %w", err)
	}
	var w io.Writer = f
	closers := []io.Closer{f}
	if cfg.Compress {
		zw := gzip.NewWriter(f)
		w = zw
		closers = []io.Closer{zw, f}
	}
	wr, err := NewWriter(w, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	wr.closers = closers
	wr.log.Debug("created trace", zap.String("path", path), zap.Uint32("version", wr.version))
	return wr, nil
}

// Version returns the format version being written.
func (w *Writer) Version() uint32 { return w.version }

// Flush writes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = xerrors.Errorf("elg: flush: %w", err)
	}
	return w.err
}

// Close flushes the Writer and closes the file opened by Create.
func (w *Writer) Close() error {
	err := w.Flush()
	for _, c := range w.closers {
		err = multierr.Append(err, c.Close())
	}
	w.closers = nil
	return err
}

// WriteRaw writes a record with the given type and body as is.
func (w *Writer) WriteRaw(t Type, body []byte) error {
	if w.err != nil {
		return w.err
	}
	if len(body) > MaxLength {
		return xerrors.Errorf("%w: %s body of %d bytes", ErrTooLong, t, len(body))
	}
	w.bw.WriteByte(uint8(len(body)))
	w.bw.WriteByte(uint8(t))
	if _, err := w.bw.Write(body); err != nil {
		w.err = xerrors.Errorf("elg: write: %w", err)
	}
	return w.err
}

// Write encodes v. Values that do not fit one record are split into the
// primary record and its continuation records.
func (w *Writer) Write(v Value) error {
	if w.err != nil {
		return w.err
	}
	switch v := v.(type) {
	case String:
		return w.writeString(v)
	case StringCnt:
		w.begin().str(v.Str)
	case Machine:
		w.begin().u4(v.ID).u4(v.Nodes).u4(v.NameID)
	case Node:
		e := w.begin().u4(v.ID).u4(v.Machine).u4(v.CPUs).u4(v.NameID)
		if w.version >= versionNodeClockRate {
			e.d8(v.ClockRate)
		}
	case Process:
		w.begin().u4(v.ID).u4(v.NameID)
	case Thread:
		w.begin().u4(v.ID).u4(v.Process).u4(v.NameID)
	case Location:
		w.begin().u4(v.ID).u4(v.Machine).u4(v.Node).u4(v.Process).u4(v.Thread)
	case File:
		w.begin().u4(v.ID).u4(v.NameID)
	case Region:
		w.begin().u4(v.ID).u4(v.NameID).u4(v.File).u4(v.BeginLine).u4(v.EndLine).u4(v.DescID).u1(v.Kind)
	case CallSite:
		w.begin().u4(v.ID).u4(v.File).u4(v.Line).u4(v.EnterRegion).u4(v.ExitRegion)
	case CallPath:
		w.begin().u4(v.ID).u4(v.Region).u4(v.Parent).u8(v.Order)
	case Metric:
		w.begin().u4(v.ID).u4(v.NameID).u4(v.DescID).u1(v.DataType).u1(v.Mode).u1(v.Interval)
		w.metricKnown = true
		w.metricCount++
	case MPIGroup:
		return w.writeGroup(v)
	case MPICommDist:
		w.begin().u4(v.ID).u4(v.Root).u4(v.LocalID).u4(v.LocalRank).u4(v.Size)
	case MPICommRef:
		w.begin().u4(v.ID).u4(v.Group)
	case MPIComm:
		return w.writeComm(v)
	case CartTopology:
		return w.writeCartTopology(v)
	case CartCoords:
		if len(v.Coords) > math.MaxUint8 {
			return xerrors.Errorf("%w: %d coordinates", ErrTooLong, len(v.Coords))
		}
		e := w.begin().u4(v.Topology).u4(v.Location).u1(uint8(len(v.Coords)))
		for _, c := range v.Coords {
			e.u4(c)
		}
	case MPIWin:
		w.begin().u4(v.ID).u4(v.Comm)
	case Offset:
		w.begin().d8(v.LocalTime).d8(v.Offset)
	case NumEvents:
		w.begin().u4(v.Count)
	case EventTypes:
		e := w.begin().u4(uint32(len(v.Types)))
		for _, t := range v.Types {
			e.u1(t)
		}
	case EventCounts:
		e := w.begin().u4(uint32(len(v.Counts)))
		for _, c := range v.Counts {
			e.u4(c)
		}
	case MapSection:
		w.begin().u4(v.Rank)
	case MapOffset:
		w.begin().u4(v.Rank).u4(v.Offset)
	case IDMap:
		head := w.begin().u1(v.Kind).u1(v.Mode).u4(uint32(len(v.Map))).b
		return writeContinued(w, v.Type(), head, v.Map, idmapPrimaryCap, idmapContCap, TypeIDMapCnt, (*encoder).u4)
	case LastDef:
		w.begin()
	case AttrUI1:
		w.begin().u1(v.Attr).u1(v.Value)
	case AttrUI4:
		w.begin().u1(v.Attr).u4(v.Value)

	case Enter:
		e := w.event(v.Loc, v.Time).u4(v.Region)
		if err := w.metrics(e, v.Type(), v.Metrics); err != nil {
			return err
		}
	case EnterCS:
		e := w.event(v.Loc, v.Time).u4(v.CallSite)
		if err := w.metrics(e, v.Type(), v.Metrics); err != nil {
			return err
		}
	case Exit:
		if err := w.metrics(w.event(v.Loc, v.Time), v.Type(), v.Metrics); err != nil {
			return err
		}
	case MPISend:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.Comm).u4(v.Tag).u4(v.Sent)
	case MPIRecv:
		w.event(v.Loc, v.Time).u4(v.Source).u4(v.Comm).u4(v.Tag)
	case MPICollExit:
		e := w.event(v.Loc, v.Time)
		if err := w.metrics(e, v.Type(), v.Metrics); err != nil {
			return err
		}
		e.u4(v.Root).u4(v.Comm).u4(v.Sent).u4(v.Recvd)
	case MPISendComplete:
		w.event(v.Loc, v.Time).u4(v.Request)
	case MPIRecvRequest:
		w.event(v.Loc, v.Time).u4(v.Request)
	case MPIRequestTested:
		w.event(v.Loc, v.Time).u4(v.Request)
	case MPICancelled:
		w.event(v.Loc, v.Time).u4(v.Request)
	case MPIPut1TS:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.Win).u4(v.RMA).u4(v.Bytes)
	case MPIPut1TE:
		w.event(v.Loc, v.Time).u4(v.Source).u4(v.Win).u4(v.RMA)
	case MPIPut1TERemote:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.Win).u4(v.RMA)
	case MPIGet1TO:
		w.event(v.Loc, v.Time).u4(v.RMA)
	case MPIGet1TS:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.Win).u4(v.RMA).u4(v.Bytes)
	case MPIGet1TSRemote:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.Win).u4(v.RMA).u4(v.Bytes)
	case MPIGet1TE:
		w.event(v.Loc, v.Time).u4(v.Source).u4(v.Win).u4(v.RMA)
	case MPIWinExit:
		e := w.event(v.Loc, v.Time)
		if err := w.metrics(e, v.Type(), v.Metrics); err != nil {
			return err
		}
		e.u4(v.Win).u4(v.Comm).u1(v.Synex)
	case MPIWinCollExit:
		e := w.event(v.Loc, v.Time)
		if err := w.metrics(e, v.Type(), v.Metrics); err != nil {
			return err
		}
		e.u4(v.Win)
	case MPIWinLock:
		w.event(v.Loc, v.Time).u4(v.Lock).u4(v.Win).u1(v.LockType)
	case MPIWinUnlock:
		w.event(v.Loc, v.Time).u4(v.Lock).u4(v.Win)
	case Put1TS:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.RMA).u4(v.Bytes)
	case Put1TE:
		w.event(v.Loc, v.Time).u4(v.Source).u4(v.RMA)
	case Put1TERemote:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.RMA)
	case Get1TS:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.RMA).u4(v.Bytes)
	case Get1TSRemote:
		w.event(v.Loc, v.Time).u4(v.Dest).u4(v.RMA).u4(v.Bytes)
	case Get1TE:
		w.event(v.Loc, v.Time).u4(v.Source).u4(v.RMA)
	case CollExit:
		e := w.event(v.Loc, v.Time)
		if err := w.metrics(e, v.Type(), v.Metrics); err != nil {
			return err
		}
		e.u4(v.Root).u4(v.Comm).u4(v.Sent).u4(v.Recvd)
	case ALock:
		w.event(v.Loc, v.Time).u4(v.Lock)
	case RLock:
		w.event(v.Loc, v.Time).u4(v.Lock)
	case OMPFork:
		w.event(v.Loc, v.Time)
	case OMPJoin:
		w.event(v.Loc, v.Time)
	case OMPALock:
		w.event(v.Loc, v.Time).u4(v.Lock)
	case OMPRLock:
		w.event(v.Loc, v.Time).u4(v.Lock)
	case OMPCollExit:
		if err := w.metrics(w.event(v.Loc, v.Time), v.Type(), v.Metrics); err != nil {
			return err
		}
	case LogOff:
		if err := w.metrics(w.event(v.Loc, v.Time), v.Type(), v.Metrics); err != nil {
			return err
		}
	case LogOn:
		if err := w.metrics(w.event(v.Loc, v.Time), v.Type(), v.Metrics); err != nil {
			return err
		}
	case EnterTracing:
		if err := w.metrics(w.event(v.Loc, v.Time), v.Type(), v.Metrics); err != nil {
			return err
		}
	case ExitTracing:
		if err := w.metrics(w.event(v.Loc, v.Time), v.Type(), v.Metrics); err != nil {
			return err
		}
	default:
		return xerrors.Errorf("%w: %T", ErrUnknownType, v)
	}
	return w.WriteRaw(v.Type(), w.enc.b)
}

// encoder appends fields to the body of the record being built.
type encoder struct {
	order byteOrder
	b     []byte
}

func (e *encoder) u1(v uint8) *encoder {
	e.b = append(e.b, v)
	return e
}

func (e *encoder) u4(v uint32) *encoder {
	e.b = e.order.AppendUint32(e.b, v)
	return e
}

func (e *encoder) u8(v uint64) *encoder {
	e.b = e.order.AppendUint64(e.b, v)
	return e
}

func (e *encoder) d8(v float64) *encoder {
	return e.u8(math.Float64bits(v))
}

func (e *encoder) str(s string) *encoder {
	e.b = append(append(e.b, s...), 0)
	return e
}

// begin starts a new record body in the shared encoder.
func (w *Writer) begin() *encoder {
	w.enc.b = w.enc.b[:0]
	return &w.enc
}

// event starts an event body with its location and timestamp.
func (w *Writer) event(loc uint32, time float64) *encoder {
	e := w.begin()
	if !w.cfg.SingleLocation {
		e.u4(loc)
	}
	return e.d8(time)
}

func (w *Writer) metrics(e *encoder, t Type, m []uint64) error {
	if !w.metricKnown {
		w.metricKnown = true
		w.metricCount = len(m)
	}
	if len(m) != w.metricCount {
		return xerrors.Errorf("%w: %s has %d values, trace has %d", ErrMetricArity, t, len(m), w.metricCount)
	}
	for _, v := range m {
		e.u8(v)
	}
	return nil
}

func (w *Writer) writeString(v String) error {
	if len(v.Str) < stringPrimaryCap {
		return w.WriteRaw(TypeString, w.begin().u4(v.ID).u1(0).str(v.Str).b)
	}
	rest := v.Str[stringPrimaryCap:]
	n := len(rest)/MaxLength + 1
	if n > math.MaxUint8 {
		return xerrors.Errorf("%w: string %d of %d bytes", ErrTooLong, v.ID, len(v.Str))
	}
	e := w.begin().u4(v.ID).u1(uint8(n))
	e.b = append(e.b, v.Str[:stringPrimaryCap]...)
	if err := w.WriteRaw(TypeString, e.b); err != nil {
		return err
	}
	for len(rest) >= MaxLength {
		if err := w.WriteRaw(TypeStringCnt, []byte(rest[:MaxLength])); err != nil {
			return err
		}
		rest = rest[MaxLength:]
	}
	return w.WriteRaw(TypeStringCnt, w.begin().str(rest).b)
}

func (w *Writer) writeGroup(v MPIGroup) error {
	head := w.begin().u4(v.ID).u1(v.Mode).u4(uint32(len(v.Ranks))).b
	if v.Mode&GroupWorld != 0 {
		return w.WriteRaw(TypeMPIGroup, head)
	}
	return writeContinued(w, TypeMPIGroup, head, v.Ranks, groupPrimaryCap, groupContCap, TypeMPIGroupCnt, (*encoder).u4)
}

func (w *Writer) writeComm(v MPIComm) error {
	e := w.begin().u4(v.ID)
	if w.version >= versionCommMode {
		e.u1(v.Mode)
	}
	e.u4(uint32(len(v.Bitmap)))
	return writeContinued(w, TypeMPIComm, e.b, v.Bitmap, commPrimaryCap(w.version), commContCap, TypeMPICommCnt, (*encoder).u1)
}

func (w *Writer) writeCartTopology(v CartTopology) error {
	n := len(v.Dims)
	if n > math.MaxUint8 {
		return xerrors.Errorf("%w: %d dimensions", ErrTooLong, n)
	}
	if len(v.Periodic) > n || len(v.DimNameIDs) > n {
		return xerrors.Errorf("elg: topology %d: %d dimensions but %d periodicity flags and %d names", v.ID, n, len(v.Periodic), len(v.DimNameIDs))
	}
	e := w.begin().u4(v.ID).u4(v.Comm).u1(uint8(n))
	for _, d := range v.Dims {
		e.u4(d)
	}
	for i := 0; i < n; i++ {
		var p uint8
		if i < len(v.Periodic) {
			p = v.Periodic[i]
		}
		e.u1(p)
	}
	if w.version >= versionCartNames {
		e.u4(v.NameID)
		for i := 0; i < n; i++ {
			id := uint32(NoID)
			if i < len(v.DimNameIDs) {
				id = v.DimNameIDs[i]
			}
			e.u4(id)
		}
	}
	return w.WriteRaw(TypeCartTopology, e.b)
}

// writeContinued writes head followed by the elements of vals, at most
// primaryCap in the primary record of type t and at most contCap in each
// continuation record of type cont.
func writeContinued[T any](w *Writer, t Type, head []byte, vals []T, primaryCap, contCap int, cont Type, put func(*encoder, T) *encoder) error {
	e := &encoder{order: w.enc.order, b: head}
	k := min(len(vals), primaryCap)
	for _, v := range vals[:k] {
		put(e, v)
	}
	if err := w.WriteRaw(t, e.b); err != nil {
		return err
	}
	for vals = vals[k:]; len(vals) > 0; vals = vals[k:] {
		k = min(len(vals), contCap)
		e = w.begin()
		for _, v := range vals[:k] {
			put(e, v)
		}
		if err := w.WriteRaw(cont, e.b); err != nil {
			return err
		}
	}
	return nil
}
