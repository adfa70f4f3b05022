// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import (
	"io"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Format versions that introduced optional fields.
const (
	versionNodeClockRate = 1001
	versionCommMode      = 1003
	versionCartNames     = 1009
)

// metricWidth is the size of one metric value on the wire.
const metricWidth = 8

var (
	// ErrContinuation is returned when a record that must be followed by
	// continuation records is followed by anything else. The traversal
	// cannot continue after it.
	ErrContinuation = xerrors.New("elg: continuation record expected")

	// ErrUnknownType is returned by Decode for a record type without a
	// decoder.
	ErrUnknownType = xerrors.New("elg: unknown record type")
)

// Decoder decodes the records of one traversal of a trace.
//
// Some fields are only self-describing at their first occurrence, so the
// Decoder carries state from record to record: the metric arity, the last
// single location id and the format version. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	r   *Reader
	cb  *Callbacks
	log *zap.Logger

	version     uint32
	metricKnown bool
	metrics     []uint64
	singleLoc   uint32
	inactive    [256]bool
}

// NewDecoder returns a Decoder reading records from r and delivering them
// to cb. All record types are active.
func NewDecoder(r *Reader, cb *Callbacks) *Decoder {
	if cb == nil {
		cb = &Callbacks{}
	}
	return &Decoder{
		r:       r,
		cb:      cb,
		log:     r.log,
		version: r.Version(),
	}
}

// Version returns the format version of the trace being decoded.
func (d *Decoder) Version() uint32 { return d.version }

// MetricCount returns the number of metric values attached to
// metric-bearing events, and whether it is known yet.
func (d *Decoder) MetricCount() (int, bool) {
	return len(d.metrics), d.metricKnown
}

// Activate enables decoding of records of type t.
func (d *Decoder) Activate(t Type) { d.inactive[t] = false }

// Deactivate disables decoding of records of type t. Dispatch still calls
// the All callback for them and reports them as handled.
func (d *Decoder) Deactivate(t Type) { d.inactive[t] = true }

// Dispatch decodes rec and invokes the matching callback. It reports false
// for an unknown record type. A non-nil error means the traversal cannot
// continue.
func (d *Decoder) Dispatch(rec *Record) (bool, error) {
	if d.cb.All != nil {
		d.cb.All(rec.Type(), uint8(rec.Len()))
	}
	if d.inactive[rec.Type()] {
		return true, nil
	}
	v, err := d.Decode(rec)
	if xerrors.Is(err, ErrUnknownType) {
		d.log.Warn("unknown record type", zap.Uint8("type", uint8(rec.Type())), zap.Int("length", rec.Len()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.cb.call(v)
	return true, nil
}

// Decode decodes rec into a typed value without invoking callbacks. It
// still updates the traversal state.
func (d *Decoder) Decode(rec *Record) (Value, error) {
	dec := decoders[rec.Type()]
	if dec == nil {
		return nil, xerrors.Errorf("%w: %d", ErrUnknownType, rec.Type())
	}
	v, err := dec(d, rec)
	if err != nil {
		return nil, err
	}
	if err := rec.Err(); err != nil {
		return nil, xerrors.Errorf("elg: %s record of length %d: %w", rec.Type(), rec.Len(), err)
	}
	return v, nil
}

// ReadNextDef reads records until one that is not an event and dispatches
// it. It returns io.EOF at the end of the trace.
func (d *Decoder) ReadNextDef() (bool, error) {
	for {
		rec, err := d.r.ReadRecord()
		if err != nil {
			return false, err
		}
		if !rec.Type().IsEvent() {
			return d.Dispatch(rec)
		}
	}
}

// ReadNextEvent reads records until an event or attribute record and
// dispatches it. It returns io.EOF at the end of the trace.
func (d *Decoder) ReadNextEvent() (bool, error) {
	for {
		rec, err := d.r.ReadRecord()
		if err != nil {
			return false, err
		}
		if t := rec.Type(); t.IsEvent() || t.IsAttribute() {
			return d.Dispatch(rec)
		}
	}
}

// SeekOffset moves the underlying reader to the absolute offset off.
func (d *Decoder) SeekOffset(off int64) error {
	return d.r.SeekOffset(off)
}

// Run dispatches every remaining record until the end of the trace.
// Unknown record types are skipped.
func (d *Decoder) Run() error {
	for {
		rec, err := d.r.ReadRecord()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := d.Dispatch(rec); err != nil {
			return err
		}
	}
}

// InferMetricCount returns the number of metric values of the given width
// in a record body of the given length whose other fields take fixed
// bytes. Integer division absorbs an optional field narrower than width.
func InferMetricCount(length, fixed, width int) int {
	if length <= fixed || width <= 0 {
		return 0
	}
	return (length - fixed) / width
}

func (d *Decoder) setMetricCount(n int) {
	d.metricKnown = true
	if cap(d.metrics) >= n {
		d.metrics = d.metrics[:n]
		return
	}
	d.metrics = make([]uint64, n)
}

// inferMetrics establishes the metric arity from the first metric-bearing
// event. The arity is never re-derived afterwards.
func (d *Decoder) inferMetrics(rec *Record) {
	if d.metricKnown {
		return
	}
	d.setMetricCount(InferMetricCount(rec.Len(), specs[rec.Type()].Fixed, metricWidth))
}

// location reads the leading location field of an event, or substitutes
// the single location id when the body length shows it was elided.
func (d *Decoder) location(rec *Record) uint32 {
	s := &specs[rec.Type()]
	rest := s.Fixed
	if s.HasMetrics {
		rest += len(d.metrics) * metricWidth
	}
	if rec.Len() == 4+rest {
		return rec.ReadU4()
	}
	return d.singleLoc
}

func (d *Decoder) readMetrics(rec *Record) []uint64 {
	for i := range d.metrics {
		d.metrics[i] = rec.ReadU8()
	}
	return d.metrics
}

// readContinued reads count elements with read. The first at most
// primaryCap come from rec; the rest come from the following records,
// which must have type cont and carry at most contCap elements each.
func readContinued[T any](d *Decoder, rec *Record, count, primaryCap, contCap int, cont Type, read func(*Record) T) ([]T, error) {
	out := make([]T, 0, min(count, primaryCap+16*contCap))
	for i := min(count, primaryCap); i > 0; i-- {
		out = append(out, read(rec))
	}
	for len(out) < count {
		if d.r == nil {
			return nil, xerrors.Errorf("%w: %s after %s, no reader", ErrContinuation, cont, rec.Type())
		}
		c, err := d.r.ReadRecord()
		if err == io.EOF {
			return nil, xerrors.Errorf("%w: %s after %s, got end of trace", ErrContinuation, cont, rec.Type())
		}
		if err != nil {
			return nil, err
		}
		if c.Type() != cont {
			return nil, xerrors.Errorf("%w: %s after %s, got %s", ErrContinuation, cont, rec.Type(), c.Type())
		}
		for i := min(count-len(out), contCap); i > 0; i-- {
			out = append(out, read(c))
		}
		if err := c.Err(); err != nil {
			return nil, xerrors.Errorf("elg: %s record: %w", cont, err)
		}
	}
	return out, nil
}

func readU1(r *Record) uint8  { return r.ReadU1() }
func readU4(r *Record) uint32 { return r.ReadU4() }
