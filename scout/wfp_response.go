// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/scout/am"
)

// respond sends the local progress segment for query key back to local
// rank origin of c. A nil segment tells the origin that this rank has
// none.
func (s *Session) respond(c *Comm, origin int, key uint32, segment []Event) error {
	self, ok := c.LocalRank(s.rt.Rank())
	if !ok {
		return xerrors.Errorf("scout: rank %d not in communicator %d", s.rt.Rank(), c.ID)
	}
	var eventID uint32
	if len(segment) > 0 {
		eventID = segment[0].ID
	}
	return s.send(c, origin, s.responseID, func(b *am.Buffer) {
		b.PutUint32(key)
		b.PutUint32(uint32(self))
		b.PutID(eventID)
		b.PutID(c.ID)
		putEvents(b, segment)
	})
}

// wfpResponse runs on the origin of a multi-dependency query.
type wfpResponse struct{ s *Session }

func (h wfpResponse) Name() string { return "WaitForProgressResponse" }

func (h wfpResponse) Execute(from int, b *am.Buffer) error {
	s := h.s
	key := b.Uint32()
	responder := int(b.Uint32())
	eventID := b.ID()
	commID := b.ID()
	events := getEvents(b)
	if err := b.Err(); err != nil {
		return err
	}
	e, ok := s.cache.get(key)
	if !ok {
		return xerrors.Errorf("%w %d from rank %d", ErrUnknownKey, key, from)
	}
	if len(events)%2 != 0 {
		return xerrors.Errorf("%w: %d events for key %d", ErrOddSegments, len(events), key)
	}
	if commID != e.commID {
		return xerrors.Errorf("%w: response for key %d names communicator %d, want %d", ErrUnknownComm, key, commID, e.commID)
	}
	for i := 0; i < len(events); i += 2 {
		e.addRemote(Segment{
			Start: events[i].Time,
			End:   events[i+1].Time,
			Rank:  responder,
			Event: eventID,
		})
	}
	e.pending--
	if e.pending > 0 {
		return nil
	}
	s.cache.purge(key)
	return s.complete(e)
}

// complete attributes the waiting time of a query that has all its
// responses. The rank whose segment started last is told about the
// synchronization point.
func (s *Session) complete(e *wfpElement) error {
	idle := e.idle(s.cfg.IdlePolicy)
	if idle <= 0 {
		return nil
	}
	c, err := s.comm(e.commID)
	if err != nil {
		return err
	}
	last, _ := latest(e.segments())
	peer, ok := c.GlobalRank(last.Rank)
	if !ok {
		return xerrors.Errorf("scout: responder %d not in communicator %d", last.Rank, c.ID)
	}
	err = s.send(c, last.Rank, s.syncpointID, func(b *am.Buffer) {
		packSyncpoint(b, WFPSync, e.commID, last.Event, 0, s.rt.Rank())
	})
	if err != nil {
		return err
	}
	s.cb.Notify(RMAWaitForProgress, e.enter, CbData{
		Idle:       idle,
		SyncRank:   peer,
		CommID:     e.commID,
		CallpathID: e.enter.Callpath,
	})
	return nil
}
