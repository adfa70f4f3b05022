// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/scout/am"
)

// A severity exchange reports waiting time detected on another rank for
// one of the receiver's events.
func packSeverity(b *am.Buffer, u UserEvent, eventID, callpath uint32, rank int, idle float64) {
	b.PutUint32(uint32(u))
	b.PutID(eventID)
	b.PutID(callpath)
	b.PutUint32(uint32(rank))
	b.PutTimestamp(idle)
}

type severityExchange struct{ s *Session }

func (h severityExchange) Name() string { return "SeverityExchange" }

func (h severityExchange) Execute(from int, b *am.Buffer) error {
	u := UserEvent(b.Uint32())
	eventID := b.ID()
	callpath := b.ID()
	rank := int(b.Uint32())
	idle := b.Timestamp()
	if err := b.Err(); err != nil {
		return err
	}
	e, ok := h.s.trace.At(eventID)
	if !ok {
		return xerrors.Errorf("%w %d in severity from rank %d", ErrUnknownEvent, eventID, from)
	}
	h.s.cb.Notify(u, e, CbData{Idle: idle, SyncRank: rank, CallpathID: callpath})
	return nil
}

// A syncpoint exchange marks one of the receiver's events as the remote
// end of a synchronization detected on another rank.
func packSyncpoint(b *am.Buffer, u UserEvent, commID, eventID uint32, wait float64, syncRank int) {
	b.PutUint32(uint32(u))
	b.PutUint32(commID)
	b.PutID(eventID)
	b.PutTimestamp(wait)
	b.PutUint32(uint32(syncRank))
}

type syncpointExchange struct{ s *Session }

func (h syncpointExchange) Name() string { return "SyncpointExchange" }

func (h syncpointExchange) Execute(from int, b *am.Buffer) error {
	u := UserEvent(b.Uint32())
	commID := b.Uint32()
	eventID := b.ID()
	wait := b.Timestamp()
	syncRank := int(b.Uint32())
	if err := b.Err(); err != nil {
		return err
	}
	e, ok := h.s.trace.At(eventID)
	if !ok {
		return xerrors.Errorf("%w %d in syncpoint from rank %d", ErrUnknownEvent, eventID, from)
	}
	h.s.cb.Notify(u, e, CbData{Idle: wait, SyncRank: syncRank, CommID: commID, CallpathID: e.Callpath})
	return nil
}
