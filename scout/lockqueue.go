// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

var ErrLockRelease = xerrors.New("scout: lock epoch needs exactly one release event")

// LockEpoch is the span of events one rank spent holding, or waiting
// for, a lock. It ends with the release of the lock.
type LockEpoch struct {
	Lock   uint32
	Rank   int // global rank the epoch was recorded on
	Events []Event

	release int
}

// NewLockEpoch checks that events contain exactly one release event.
func NewLockEpoch(lock uint32, rank int, events []Event) (*LockEpoch, error) {
	release := -1
	for i, e := range events {
		if !e.Is(GroupLockRelease) {
			continue
		}
		if release >= 0 {
			return nil, xerrors.Errorf("%w: lock %d on rank %d has a second release at %g", ErrLockRelease, lock, rank, e.Time)
		}
		release = i
	}
	if release < 0 {
		return nil, xerrors.Errorf("%w: lock %d on rank %d has none", ErrLockRelease, lock, rank)
	}
	return &LockEpoch{Lock: lock, Rank: rank, Events: events, release: release}, nil
}

// Release returns the release event.
func (l *LockEpoch) Release() Event { return l.Events[l.release] }

// Acquire returns the first acquire event, or the first event of the
// epoch if it has none.
func (l *LockEpoch) Acquire() Event {
	if i := slices.IndexFunc(l.Events, func(e Event) bool { return e.Is(GroupLockAcquire) }); i >= 0 {
		return l.Events[i]
	}
	return l.Events[0]
}

// EpochQueue orders the lock epochs of one lock for analysis.
type EpochQueue interface {
	Push(*LockEpoch)
	// Pop removes the next epoch. ok is false if the queue is empty.
	Pop() (l *LockEpoch, ok bool)
	Len() int
}

// LockQueue is an EpochQueue that yields epochs in the order their
// locks were released, independent of the order they were pushed in.
// Epochs released at the same time keep their push order.
type LockQueue struct {
	heap []lockEntry
	seq  uint64
}

type lockEntry struct {
	time  float64
	seq   uint64
	epoch *LockEpoch
}

func (a lockEntry) less(b lockEntry) bool {
	if a.time != b.time {
		return a.time < b.time
	}
	return a.seq < b.seq
}

func (q *LockQueue) Len() int { return len(q.heap) }

func (q *LockQueue) Push(l *LockEpoch) {
	q.heap = append(q.heap, lockEntry{l.Release().Time, q.seq, l})
	q.seq++
	q.siftUp(len(q.heap) - 1)
}

func (q *LockQueue) Pop() (*LockEpoch, bool) {
	if len(q.heap) == 0 {
		return nil, false
	}
	top := q.heap[0].epoch
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap[last] = lockEntry{}
	q.heap = q.heap[:last]
	q.siftDown(0)
	return top, true
}

func (q *LockQueue) siftUp(i int) {
	h := q.heap
	for i > 0 && h[i].less(h[(i-1)/2]) {
		h[(i-1)/2], h[i] = h[i], h[(i-1)/2]
		i = (i - 1) / 2
	}
}

func (q *LockQueue) siftDown(i int) {
	h := q.heap
	for {
		m := i
		for _, c := range [2]int{2*i + 1, 2*i + 2} {
			if c < len(h) && h[c].less(h[m]) {
				m = c
			}
		}
		if m == i {
			// Heap invariant already applies.
			return
		}
		h[i], h[m] = h[m], h[i]
		i = m
	}
}
