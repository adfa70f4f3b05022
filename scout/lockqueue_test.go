// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"math/rand"
	"testing"

	"golang.org/x/xerrors"
)

func lockEpoch(t *testing.T, lock uint32, rank int, acquire, release float64) *LockEpoch {
	t.Helper()
	l, err := NewLockEpoch(lock, rank, []Event{
		{Type: TypeLockAcquire, Time: acquire, Lock: lock},
		{Type: TypeLockRelease, Time: release, Lock: lock},
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLockQueueOrder(t *testing.T) {
	var q LockQueue
	for i, release := range []float64{30, 10, 20} {
		q.Push(lockEpoch(t, 1, i, 0, release))
	}
	var got []float64
	for {
		l, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, l.Release().Time)
	}
	want := []float64{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("drained %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drained %v, want %v", got, want)
		}
	}
}

func TestLockQueueRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var q LockQueue
	for i := 0; i < 500; i++ {
		q.Push(lockEpoch(t, 1, i, 0, float64(rng.Intn(100))))
		if rng.Intn(4) == 0 {
			q.Pop()
		}
	}
	prev := -1.0
	prevRank := -1
	for q.Len() > 0 {
		l, _ := q.Pop()
		r := l.Release().Time
		if r < prev || (r == prev && l.Rank < prevRank) {
			t.Fatalf("popped release %g of rank %d after %g of rank %d", r, l.Rank, prev, prevRank)
		}
		prev, prevRank = r, l.Rank
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue succeeded")
	}
}

func TestNewLockEpoch(t *testing.T) {
	acquire := Event{Type: TypeWinLock, Time: 1}
	release := Event{Type: TypeWinUnlock, Time: 2}
	if _, err := NewLockEpoch(1, 0, []Event{acquire}); !xerrors.Is(err, ErrLockRelease) {
		t.Errorf("epoch without release: err = %v, want %v", err, ErrLockRelease)
	}
	if _, err := NewLockEpoch(1, 0, []Event{acquire, release, release}); !xerrors.Is(err, ErrLockRelease) {
		t.Errorf("epoch with two releases: err = %v, want %v", err, ErrLockRelease)
	}
	l, err := NewLockEpoch(1, 0, []Event{{Type: TypeEnter, Time: 0.5}, acquire, release})
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Acquire(); got != acquire {
		t.Errorf("Acquire() = %+v, want %+v", got, acquire)
	}
	if got := l.Release(); got != release {
		t.Errorf("Release() = %+v, want %+v", got, release)
	}
}
