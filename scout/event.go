// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"fmt"

	"github.com/scalasca/pearl/scout/am"
)

// Type is the kind of a replay event.
type Type uint8

const (
	TypeEnter Type = iota + 1
	TypeLeave
	TypeCollLeave // leave of a collective operation
	TypeRMAPutStart
	TypeRMAGetStart
	TypeLockAcquire // ARMCI or OpenMP lock acquired
	TypeLockRelease
	TypeWinLock // MPI window lock acquired
	TypeWinUnlock
)

var typeNames = [...]string{
	TypeEnter:       "Enter",
	TypeLeave:       "Leave",
	TypeCollLeave:   "CollLeave",
	TypeRMAPutStart: "RMAPutStart",
	TypeRMAGetStart: "RMAGetStart",
	TypeLockAcquire: "LockAcquire",
	TypeLockRelease: "LockRelease",
	TypeWinLock:     "WinLock",
	TypeWinUnlock:   "WinUnlock",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Group is a set of event types that an analysis treats alike.
type Group uint16

const (
	GroupEnter Group = 1 << iota
	GroupLeave
	GroupRMAPutStart
	GroupRMAGetStart
	GroupLockAcquire
	GroupLockRelease
)

var typeGroups = [...]Group{
	TypeEnter:       GroupEnter,
	TypeLeave:       GroupLeave,
	TypeCollLeave:   GroupLeave,
	TypeRMAPutStart: GroupRMAPutStart,
	TypeRMAGetStart: GroupRMAGetStart,
	TypeLockAcquire: GroupLockAcquire,
	TypeLockRelease: GroupLockRelease,
	TypeWinLock:     GroupLockAcquire,
	TypeWinUnlock:   GroupLockRelease,
}

// Is reports whether t belongs to any of the groups in g.
func (t Type) Is(g Group) bool {
	return int(t) < len(typeGroups) && typeGroups[t]&g != 0
}

// Region is the code region an event belongs to.
type Region struct {
	ID    uint32
	Class Class
}

// Event is one event of a rank's trace.
type Event struct {
	ID       uint32 // position in the trace of the recording rank
	Type     Type
	Time     float64
	Region   Region // region entered or left, or the enclosing region
	Callpath uint32
	Enter    uint32 // for leave events, the id of the matching enter
	Lock     uint32 // for lock events
}

// Is reports whether the type of e belongs to any of the groups in g.
func (e Event) Is(g Group) bool { return e.Type.Is(g) }

func putEvent(b *am.Buffer, e Event) {
	b.PutUint8(uint8(e.Type))
	b.PutID(e.ID)
	b.PutTimestamp(e.Time)
	b.PutID(e.Region.ID)
	b.PutUint32(uint32(e.Region.Class))
	b.PutID(e.Callpath)
	b.PutID(e.Enter)
	b.PutUint32(e.Lock)
}

func getEvent(b *am.Buffer) Event {
	var e Event
	e.Type = Type(b.Uint8())
	e.ID = b.ID()
	e.Time = b.Timestamp()
	e.Region.ID = b.ID()
	e.Region.Class = Class(b.Uint32())
	e.Callpath = b.ID()
	e.Enter = b.ID()
	e.Lock = b.Uint32()
	return e
}

func putEvents(b *am.Buffer, events []Event) {
	b.PutUint32(uint32(len(events)))
	for _, e := range events {
		putEvent(b, e)
	}
}

// getEvents reads a count-prefixed event list. The count is checked
// against the bytes left so that a corrupt count cannot force a large
// allocation.
func getEvents(b *am.Buffer) []Event {
	n := b.Uint32()
	if b.Err() != nil || uint64(n)*eventWireSize > uint64(b.Len()) {
		// Consume the rest so the caller sees a short buffer.
		for b.Err() == nil {
			b.Uint8()
		}
		return nil
	}
	events := make([]Event, n)
	for i := range events {
		events[i] = getEvent(b)
	}
	return events
}

const eventWireSize = 1 + 4 + 8 + 4 + 4 + 4 + 4 + 4
