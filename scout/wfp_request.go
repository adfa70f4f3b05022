// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/scout/am"
)

var (
	ErrMissingEnter    = xerrors.New("scout: epoch has no enter event")
	ErrMissingRMAStart = xerrors.New("scout: epoch has no RMA start event")
	ErrMissingLeave    = xerrors.New("scout: epoch has no leave event")
)

// Dependency kinds of a wait-for-progress request.
const (
	singleDependency uint32 = 0
	multiDependency  uint32 = 1
)

// WaitForProgress asks the ranks in targets, given as local ranks of
// communicator commID, whether the local RMA epoch had to wait for them
// to make progress. epoch holds the local events of the epoch: an enter,
// an RMA start and a leave.
//
// With one target the target computes the waiting time and reports it
// back. With several targets the origin keeps the query until every
// target has answered with its progress segment and then attributes the
// waiting time itself. Requests are only queued; they are sent when the
// runtime advances.
func (s *Session) WaitForProgress(commID uint32, epoch []Event, targets []int) error {
	c, err := s.comm(commID)
	if err != nil {
		return err
	}
	self, ok := c.LocalRank(s.rt.Rank())
	if !ok {
		return xerrors.Errorf("scout: rank %d not in communicator %d", s.rt.Rank(), commID)
	}
	targets = slices.Clone(targets)
	slices.Sort(targets)
	targets = slices.Compact(targets)
	for _, t := range targets {
		if _, ok := c.GlobalRank(t); !ok {
			return xerrors.Errorf("scout: target %d not in communicator %d of size %d", t, commID, c.Size())
		}
	}

	switch len(targets) {
	case 0:
		return nil
	case 1:
		return s.send(c, targets[0], s.requestID, func(b *am.Buffer) {
			packRequest(b, 0, self, commID, singleDependency, epoch)
		})
	}

	enter, leave, err := epochBounds(epoch)
	if err != nil {
		return err
	}
	key := s.nextKey()
	s.cache.store(key, newWFPElement(len(targets), enter, leave, commID, s.now()))
	for _, t := range targets {
		err := s.send(c, t, s.requestID, func(b *am.Buffer) {
			packRequest(b, key, self, commID, multiDependency, epoch)
		})
		if err != nil {
			s.cache.purge(key)
			return err
		}
	}
	return nil
}

// epochBounds returns the first enter and the last leave of epoch.
func epochBounds(epoch []Event) (enter, leave Event, err error) {
	i := slices.IndexFunc(epoch, func(e Event) bool { return e.Is(GroupEnter) })
	if i < 0 {
		return enter, leave, ErrMissingEnter
	}
	j := len(epoch) - 1
	for j > i && !epoch[j].Is(GroupLeave) {
		j--
	}
	if j == i {
		return enter, leave, ErrMissingLeave
	}
	return epoch[i], epoch[j], nil
}

func packRequest(b *am.Buffer, key uint32, origin int, commID, dep uint32, epoch []Event) {
	b.PutUint32(key)
	b.PutUint32(uint32(origin))
	b.PutID(commID)
	b.PutUint32(dep)
	putEvents(b, epoch)
}

// progressMatch is the local progress region matched to a remote epoch.
type progressMatch struct {
	remoteStart Event
	localEnter  Event
	localLeave  Event
	idle        float64
}

// matchProgress finds the first local progress region left at or after
// the enter of the remote epoch. ok is false if there is none.
func (s *Session) matchProgress(epoch []Event) (m progressMatch, ok bool, err error) {
	enter := slices.IndexFunc(epoch, func(e Event) bool { return e.Is(GroupEnter) })
	if enter < 0 {
		return m, false, ErrMissingEnter
	}
	start := enter
	for start < len(epoch) && !epoch[start].Is(GroupRMAPutStart|GroupRMAGetStart) {
		start++
	}
	if start == len(epoch) {
		return m, false, ErrMissingRMAStart
	}
	leave := start
	for leave < len(epoch) && !epoch[leave].Is(GroupLeave) {
		leave++
	}
	if leave == len(epoch) {
		return m, false, ErrMissingLeave
	}
	remoteEnter, remoteLeave := epoch[enter], epoch[leave]
	m.remoteStart = epoch[start]

	events := s.trace.Events()
	n := s.trace.LowerBound(remoteEnter.Time)
	for n < len(events) && !(events[n].Is(GroupLeave) && IsProgress(events[n].Region.Class)) {
		n++
	}
	if n == len(events) {
		return m, false, nil
	}
	m.localLeave = events[n]
	m.localEnter, ok = s.trace.EnterOf(m.localLeave)
	if !ok {
		return m, false, xerrors.Errorf("%w: enter of leave %d", ErrUnknownEvent, m.localLeave.ID)
	}
	if m.localEnter.Time > remoteEnter.Time && m.localEnter.Time <= remoteLeave.Time {
		m.idle = m.localEnter.Time - remoteEnter.Time
	}
	return m, true, nil
}

// wfpRequest runs on a target of WaitForProgress.
type wfpRequest struct{ s *Session }

func (h wfpRequest) Name() string { return "WaitForProgressRequest" }

func (h wfpRequest) Execute(from int, b *am.Buffer) error {
	s := h.s
	key := b.Uint32()
	origin := int(b.Uint32())
	commID := b.ID()
	dep := b.Uint32()
	epoch := getEvents(b)
	if err := b.Err(); err != nil {
		return err
	}
	c, err := s.comm(commID)
	if err != nil {
		return err
	}

	m, ok, err := s.matchProgress(epoch)
	if err != nil || !ok {
		if dep == multiDependency && !s.cfg.NoNack {
			if nerr := s.respond(c, origin, key, nil); nerr != nil {
				return nerr
			}
		}
		if err != nil {
			return xerrors.Errorf("request %d from rank %d: %w", key, from, err)
		}
		s.log.Debug("no local progress after remote enter", zap.Uint32("key", key), zap.Int("from", from))
		return nil
	}

	switch dep {
	case singleDependency:
		if m.idle <= 0 {
			return nil
		}
		syncRank, _ := c.GlobalRank(origin)
		err := s.send(c, origin, s.severityID, func(b *am.Buffer) {
			packSeverity(b, RMAWaitForProgress, m.remoteStart.ID, m.remoteStart.Callpath, s.rt.Rank(), m.idle)
		})
		if err != nil {
			return err
		}
		s.cb.Notify(WFPSync, m.localEnter, CbData{SyncRank: syncRank, CommID: commID})
	case multiDependency:
		return s.respond(c, origin, key, []Event{m.localEnter, m.localLeave})
	}
	return nil
}
