// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scout replays the traces of a parallel program across ranks
// to find wait states in one-sided communication.
//
// Every rank owns a Session bound to an active-message runtime. Analyses
// ship parts of the local trace to the ranks that hold the matching
// remote information; handlers on those ranks compare the data with their
// own trace and either report the result or answer with what the origin
// still needs. Detected patterns are published on a Callbacks bus.
package scout

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/scout/am"
)

var (
	ErrUnknownComm  = xerrors.New("scout: unknown communicator")
	ErrUnknownKey   = xerrors.New("scout: unknown wait-for-progress key")
	ErrUnknownEvent = xerrors.New("scout: unknown event")
	ErrOddSegments  = xerrors.New("scout: odd number of segment events")
	ErrPending      = xerrors.New("scout: wait-for-progress queries still pending")
)

// Session is the replay state of one rank. Like the runtime it is bound
// to, a Session is not safe for concurrent use: handlers run on the
// goroutine that advances the runtime.
type Session struct {
	rt    *am.Runtime
	trace *Trace
	comms map[uint32]*Comm
	cb    *Callbacks
	cfg   Config
	log   *zap.Logger
	now   func() time.Time

	key   uint32
	cache *wfpCache
	locks map[uint32]EpochQueue

	requestID   am.HandlerID
	responseID  am.HandlerID
	severityID  am.HandlerID
	syncpointID am.HandlerID
	lockEpochID am.HandlerID
}

// NewSession attaches the replay handlers to rt. Every rank must create
// its session before any message arrives, so that handler ids agree.
func NewSession(rt *am.Runtime, trace *Trace, comms map[uint32]*Comm, cb *Callbacks, cfg Config) *Session {
	if cb == nil {
		cb = &Callbacks{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		rt:    rt,
		trace: trace,
		comms: comms,
		cb:    cb,
		cfg:   cfg,
		log:   log.With(zap.Int("rank", rt.Rank())),
		now:   time.Now,
		key:   1,
		cache: newWFPCache(),
		locks: make(map[uint32]EpochQueue),
	}
	s.requestID = rt.Attach(wfpRequest{s})
	s.responseID = rt.Attach(wfpResponse{s})
	s.severityID = rt.Attach(severityExchange{s})
	s.syncpointID = rt.Attach(syncpointExchange{s})
	s.lockEpochID = rt.Attach(lockEpochExchange{s})
	return s
}

// Trace returns the local trace.
func (s *Session) Trace() *Trace { return s.trace }

func (s *Session) nextKey() uint32 {
	s.key++
	return s.key
}

func (s *Session) comm(id uint32) (*Comm, error) {
	c, ok := s.comms[id]
	if !ok {
		return nil, xerrors.Errorf("%w %d", ErrUnknownComm, id)
	}
	return c, nil
}

// send enqueues a request to local rank dest of c. pack appends the
// handler fields.
func (s *Session) send(c *Comm, dest int, id am.HandlerID, pack func(b *am.Buffer)) error {
	global, ok := c.GlobalRank(dest)
	if !ok {
		return xerrors.Errorf("scout: rank %d not in communicator %d of size %d", dest, c.ID, c.Size())
	}
	q := s.rt.NewRequest(global, id)
	pack(q.Buffer())
	s.rt.Enqueue(q)
	return nil
}

// Pending returns the number of wait-for-progress queries still waiting
// for responses.
func (s *Session) Pending() int { return s.cache.len() }

// ExpirePending drops the queries that have waited longer than the
// configured PendingTimeout at time now and returns how many it dropped.
func (s *Session) ExpirePending(now time.Time) int {
	if s.cfg.PendingTimeout <= 0 {
		return 0
	}
	n := 0
	for _, key := range s.cache.keys() {
		e, _ := s.cache.get(key)
		if now.Sub(e.created) <= s.cfg.PendingTimeout {
			continue
		}
		s.log.Warn("wait-for-progress query expired",
			zap.Uint32("key", key),
			zap.Int("pending", e.pending),
			zap.Float64("enter", e.enter.Time),
			zap.Duration("age", now.Sub(e.created)))
		s.cache.purge(key)
		n++
	}
	return n
}

// Close reports and drops the queries still pending. It returns an error
// wrapping ErrPending if there were any.
func (s *Session) Close() error {
	keys := s.cache.keys()
	for _, key := range keys {
		e, _ := s.cache.get(key)
		s.log.Warn("wait-for-progress query unanswered",
			zap.Uint32("key", key),
			zap.Int("pending", e.pending),
			zap.Float64("enter", e.enter.Time))
		s.cache.purge(key)
	}
	if len(keys) > 0 {
		return xerrors.Errorf("%w: %d", ErrPending, len(keys))
	}
	return nil
}
