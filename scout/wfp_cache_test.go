// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"math/rand"
	"testing"
	"time"
)

func TestMergedIdle(t *testing.T) {
	local := Segment{Start: 10, End: 50}
	tests := []struct {
		name   string
		remote []Segment
		merged float64
		latest float64
	}{
		{"overlapping", []Segment{{Start: 5, End: 30}, {Start: 25, End: 45}}, 35, 15},
		{"unsorted", []Segment{{Start: 25, End: 45}, {Start: 5, End: 30}}, 35, 15},
		{"disjoint", []Segment{{Start: 12, End: 14}, {Start: 20, End: 30}}, 12, 10},
		{"nested", []Segment{{Start: 15, End: 40}, {Start: 20, End: 30}}, 25, 10},
		{"before", []Segment{{Start: 0, End: 5}}, 0, 0},
		{"after", []Segment{{Start: 60, End: 70}}, 0, 0},
		{"covering", []Segment{{Start: 0, End: 100}}, 40, 0},
		{"none", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergedIdle(local, tt.remote); got != tt.merged {
				t.Errorf("MergedIdle = %g, want %g", got, tt.merged)
			}
			if got := LatestEnterIdle(local, tt.remote); got != tt.latest {
				t.Errorf("LatestEnterIdle = %g, want %g", got, tt.latest)
			}
		})
	}
}

// coverage counts the unit cells of local covered by any remote segment.
// All bounds must be integers.
func coverage(local Segment, remote []Segment) float64 {
	n := 0
	for x := local.Start; x < local.End; x++ {
		for _, s := range remote {
			if s.Start <= x && x+1 <= s.End {
				n++
				break
			}
		}
	}
	return float64(n)
}

func TestMergedIdleRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		start := float64(rng.Intn(50))
		local := Segment{Start: start, End: start + float64(rng.Intn(50))}
		remote := make([]Segment, rng.Intn(6))
		for j := range remote {
			s := float64(rng.Intn(100))
			remote[j] = Segment{Start: s, End: s + float64(rng.Intn(40)), Rank: j}
		}
		got := MergedIdle(local, remote)
		if dur := local.End - local.Start; got < 0 || got > dur {
			t.Fatalf("MergedIdle(%v, %v) = %g, outside [0, %g]", local, remote, got, dur)
		}
		if want := coverage(local, remote); got != want {
			t.Fatalf("MergedIdle(%v, %v) = %g, want %g", local, remote, got, want)
		}
	}
}

func TestWFPElementOrder(t *testing.T) {
	e := newWFPElement(2, Event{Time: 10}, Event{Time: 50}, 0, time.Time{})
	e.addRemote(Segment{Start: 25, End: 45, Rank: 2})
	e.addRemote(Segment{Start: 5, End: 30, Rank: 1})
	e.addRemote(Segment{Start: 5, End: 30, Rank: 1})
	segs := e.segments()
	if len(segs) != 2 || segs[0].Rank != 1 || segs[1].Rank != 2 {
		t.Fatalf("segments = %v, want rank 1 then rank 2", segs)
	}
	if got := e.idle(MergedGaps); got != 35 {
		t.Errorf("merged idle = %g, want 35", got)
	}
	if got := e.idle(LatestEnter); got != 15 {
		t.Errorf("latest enter idle = %g, want 15", got)
	}
}
