// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"cmp"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/elg"
	"github.com/scalasca/pearl/elg/defs"
)

var (
	ErrTimeOrder  = xerrors.New("scout: event timestamps decrease")
	ErrUnbalanced = xerrors.New("scout: leave without matching enter")
)

// Trace holds the events of one rank in timestamp order. The id of an
// event is its index.
type Trace struct {
	rank   int
	events []Event
}

// Rank returns the global rank the trace was recorded on.
func (t *Trace) Rank() int { return t.rank }

// Len returns the number of events.
func (t *Trace) Len() int { return len(t.events) }

// Events returns the events in order. The caller must not modify them.
func (t *Trace) Events() []Event { return t.events }

// At returns the event with the given id.
func (t *Trace) At(id uint32) (Event, bool) {
	if int64(id) >= int64(len(t.events)) {
		return Event{}, false
	}
	return t.events[id], true
}

// LowerBound returns the index of the first event whose timestamp is not
// before time, or Len if there is none.
func (t *Trace) LowerBound(time float64) int {
	i, _ := slices.BinarySearchFunc(t.events, time, func(e Event, time float64) int {
		return cmp.Compare(e.Time, time)
	})
	return i
}

// EnterOf returns the enter event matching the leave event e.
func (t *Trace) EnterOf(e Event) (Event, bool) {
	if !e.Is(GroupLeave) {
		return Event{}, false
	}
	return t.At(e.Enter)
}

type callpathKey struct {
	parent uint32
	region uint32
}

// A TraceBuilder assembles a Trace event by event. It assigns event ids,
// matches leave events to their enter and numbers the call paths of the
// rank. The first error is latched and reported by Trace.
type TraceBuilder struct {
	rank      int
	events    []Event
	stack     []uint32
	callpaths map[callpathKey]uint32
	err       error
}

// NewTraceBuilder returns a builder for the trace of rank.
func NewTraceBuilder(rank int) *TraceBuilder {
	return &TraceBuilder{rank: rank, callpaths: make(map[callpathKey]uint32)}
}

func (b *TraceBuilder) add(e Event) (Event, bool) {
	if b.err != nil {
		return e, false
	}
	if n := len(b.events); n > 0 && e.Time < b.events[n-1].Time {
		b.err = xerrors.Errorf("%w: event %d at %g after %g", ErrTimeOrder, n, e.Time, b.events[n-1].Time)
		return e, false
	}
	e.ID = uint32(len(b.events))
	if top, ok := b.top(); ok {
		e.Region = top.Region
		e.Callpath = top.Callpath
	}
	return e, true
}

func (b *TraceBuilder) top() (Event, bool) {
	if len(b.stack) == 0 {
		return Event{}, false
	}
	return b.events[b.stack[len(b.stack)-1]], true
}

// Enter records entering region r.
func (b *TraceBuilder) Enter(time float64, r Region) {
	e, ok := b.add(Event{Type: TypeEnter, Time: time})
	if !ok {
		return
	}
	var parent uint32 = noCallpath
	if top, ok := b.top(); ok {
		parent = top.Callpath
	}
	key := callpathKey{parent, r.ID}
	cp, ok := b.callpaths[key]
	if !ok {
		cp = uint32(len(b.callpaths))
		b.callpaths[key] = cp
	}
	e.Region = r
	e.Callpath = cp
	b.events = append(b.events, e)
	b.stack = append(b.stack, e.ID)
}

const noCallpath = ^uint32(0)

// Leave records leaving the innermost region. If coll is set the region
// was a collective operation.
func (b *TraceBuilder) Leave(time float64, coll bool) {
	typ := TypeLeave
	if coll {
		typ = TypeCollLeave
	}
	e, ok := b.add(Event{Type: typ, Time: time})
	if !ok {
		return
	}
	top, ok := b.top()
	if !ok {
		b.err = xerrors.Errorf("%w: event %d at %g", ErrUnbalanced, e.ID, time)
		return
	}
	e.Enter = top.ID
	b.events = append(b.events, e)
	b.stack = b.stack[:len(b.stack)-1]
}

// Add records an event other than an enter or leave, for example the
// start of a one-sided transfer or a lock operation.
func (b *TraceBuilder) Add(typ Type, time float64, lock uint32) {
	e, ok := b.add(Event{Type: typ, Time: time, Lock: lock})
	if ok {
		b.events = append(b.events, e)
	}
}

// Trace returns the trace built so far.
func (b *TraceBuilder) Trace() (*Trace, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Trace{rank: b.rank, events: b.events}, nil
}

// WinLockID returns the lock id of the lock on rank target of window win.
func WinLockID(win, target uint32) uint32 {
	return win<<16 | target&0xffff
}

// LoadTrace reads the events of location loc from r. Region names and
// classes come from d, which must hold the definitions of the same
// trace. The result is the trace of rank.
func LoadTrace(r *elg.Reader, d *defs.Collector, loc uint32, rank int) (*Trace, error) {
	b := NewTraceBuilder(rank)
	classes := make(map[uint32]Class)
	region := func(id uint32) Region {
		c, ok := classes[id]
		if !ok {
			var file string
			if reg, ok := d.Region(id); ok {
				if f, ok := d.File(reg.File); ok {
					file, _ = d.String(f.NameID)
				}
			}
			c = Classify(d.RegionName(id), file)
			classes[id] = c
		}
		return Region{ID: id, Class: c}
	}
	leave := func(l uint32, time float64, coll bool) {
		if l == loc {
			b.Leave(time, coll)
		}
	}
	add := func(l uint32, typ Type, time float64, lock uint32) {
		if l == loc {
			b.Add(typ, time, lock)
		}
	}
	cb := &elg.Callbacks{
		Value: func(v elg.Value) {
			switch v := v.(type) {
			case elg.Enter:
				if v.Loc == loc {
					b.Enter(v.Time, region(v.Region))
				}
			case elg.EnterCS:
				if v.Loc == loc {
					cs, _ := d.CallSite(v.CallSite)
					b.Enter(v.Time, region(cs.EnterRegion))
				}
			case elg.Exit:
				leave(v.Loc, v.Time, false)
			case elg.MPIWinExit:
				leave(v.Loc, v.Time, false)
			case elg.MPICollExit:
				leave(v.Loc, v.Time, true)
			case elg.MPIWinCollExit:
				leave(v.Loc, v.Time, true)
			case elg.CollExit:
				leave(v.Loc, v.Time, true)
			case elg.OMPCollExit:
				leave(v.Loc, v.Time, true)
			case elg.MPIPut1TS:
				add(v.Loc, TypeRMAPutStart, v.Time, 0)
			case elg.Put1TS:
				add(v.Loc, TypeRMAPutStart, v.Time, 0)
			case elg.MPIGet1TS:
				add(v.Loc, TypeRMAGetStart, v.Time, 0)
			case elg.Get1TS:
				add(v.Loc, TypeRMAGetStart, v.Time, 0)
			case elg.MPIWinLock:
				add(v.Loc, TypeWinLock, v.Time, WinLockID(v.Win, v.Lock))
			case elg.MPIWinUnlock:
				add(v.Loc, TypeWinUnlock, v.Time, WinLockID(v.Win, v.Lock))
			case elg.ALock:
				add(v.Loc, TypeLockAcquire, v.Time, v.Lock)
			case elg.OMPALock:
				add(v.Loc, TypeLockAcquire, v.Time, v.Lock)
			case elg.RLock:
				add(v.Loc, TypeLockRelease, v.Time, v.Lock)
			case elg.OMPRLock:
				add(v.Loc, TypeLockRelease, v.Time, v.Lock)
			}
		},
	}
	if err := elg.NewDecoder(r, cb).Run(); err != nil {
		return nil, xerrors.Errorf("scout: loading location %d: %w", loc, err)
	}
	return b.Trace()
}
