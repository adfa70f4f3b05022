// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/scout/am"
)

var ErrQueueRegistered = xerrors.New("scout: lock queue already registered")

// RegisterQueue makes q the queue collecting the epochs of lock.
func (s *Session) RegisterQueue(lock uint32, q EpochQueue) error {
	if _, ok := s.locks[lock]; ok {
		return xerrors.Errorf("%w for lock %d", ErrQueueRegistered, lock)
	}
	s.locks[lock] = q
	return nil
}

// ReleaseQueue removes and returns the queue of lock.
func (s *Session) ReleaseQueue(lock uint32) (EpochQueue, bool) {
	q, ok := s.locks[lock]
	delete(s.locks, lock)
	return q, ok
}

// queue returns the queue of lock, creating a LockQueue on first use.
func (s *Session) queue(lock uint32) EpochQueue {
	q, ok := s.locks[lock]
	if !ok {
		q = &LockQueue{}
		s.locks[lock] = q
	}
	return q
}

// ShipLockEpoch queues the epoch for the queue of its lock on global
// rank dest, which analyzes that lock.
func (s *Session) ShipLockEpoch(dest int, l *LockEpoch) {
	q := s.rt.NewRequest(dest, s.lockEpochID)
	b := q.Buffer()
	b.PutUint32(l.Lock)
	b.PutUint32(uint32(l.Rank))
	putEvents(b, l.Events)
	s.rt.Enqueue(q)
}

type lockEpochExchange struct{ s *Session }

func (h lockEpochExchange) Name() string { return "LockEpochExchange" }

func (h lockEpochExchange) Execute(from int, b *am.Buffer) error {
	lock := b.Uint32()
	rank := int(b.Uint32())
	events := getEvents(b)
	if err := b.Err(); err != nil {
		return err
	}
	l, err := NewLockEpoch(lock, rank, events)
	if err != nil {
		return err
	}
	h.s.queue(lock).Push(l)
	return nil
}

// AnalyzeLockContention drains the queue of lock in release order. An
// epoch that acquired the lock before the previous holder released it
// waited for that holder; the waiting time is reported as LockContention
// on the acquire event. It returns the number of contended epochs.
func (s *Session) AnalyzeLockContention(lock uint32) int {
	q := s.queue(lock)
	var prev *LockEpoch
	n := 0
	for {
		l, ok := q.Pop()
		if !ok {
			return n
		}
		if prev != nil {
			acquire := l.Acquire()
			if wait := prev.Release().Time - acquire.Time; wait > 0 {
				s.cb.Notify(LockContention, acquire, CbData{
					Idle:       wait,
					SyncRank:   prev.Rank,
					CallpathID: acquire.Callpath,
				})
				n++
			}
		}
		prev = l
	}
}
