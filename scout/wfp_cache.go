// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"time"

	"github.com/google/btree"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Segment is a time interval during which a rank was inside a region.
type Segment struct {
	Start, End float64
	Rank       int    // local rank of the contributing rank
	Event      uint32 // id of the contributing enter event on that rank
}

func segmentLess(a, b Segment) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.Event < b.Event
}

// MergedIdle returns the part of the local segment covered by the union of
// the remote segments. The result never exceeds the local duration.
func MergedIdle(local Segment, remote []Segment) float64 {
	sorted := slices.Clone(remote)
	slices.SortFunc(sorted, func(a, b Segment) int {
		switch {
		case segmentLess(a, b):
			return -1
		case segmentLess(b, a):
			return 1
		}
		return 0
	})
	return mergedIdle(local, sorted)
}

// mergedIdle is MergedIdle for segments sorted by start time.
func mergedIdle(local Segment, remote []Segment) float64 {
	idle := 0.0
	current := local.Start
	for _, s := range remote {
		from := max(s.Start, current)
		to := min(s.End, local.End)
		if to > from {
			idle += to - from
		}
		if s.End > current {
			current = s.End
		}
	}
	return idle
}

// LatestEnterIdle returns the time from the local start to the latest
// remote start, if that lies inside the local segment.
func LatestEnterIdle(local Segment, remote []Segment) float64 {
	last, ok := latest(remote)
	if !ok || last.Start <= local.Start || last.Start >= local.End {
		return 0
	}
	return last.Start - local.Start
}

func latest(segs []Segment) (Segment, bool) {
	if len(segs) == 0 {
		return Segment{}, false
	}
	last := segs[0]
	for _, s := range segs[1:] {
		if s.Start > last.Start {
			last = s
		}
	}
	return last, true
}

// wfpElement is the state of a multi-dependency query at its origin.
type wfpElement struct {
	pending int
	enter   Event
	leave   Event
	commID  uint32
	created time.Time
	remote  *btree.BTreeG[Segment]
}

func newWFPElement(pending int, enter, leave Event, commID uint32, now time.Time) *wfpElement {
	return &wfpElement{
		pending: pending,
		enter:   enter,
		leave:   leave,
		commID:  commID,
		created: now,
		remote:  btree.NewG(8, segmentLess),
	}
}

func (e *wfpElement) local() Segment {
	return Segment{Start: e.enter.Time, End: e.leave.Time}
}

func (e *wfpElement) addRemote(s Segment) {
	e.remote.ReplaceOrInsert(s)
}

// segments returns the remote segments in start time order.
func (e *wfpElement) segments() []Segment {
	segs := make([]Segment, 0, e.remote.Len())
	e.remote.Ascend(func(s Segment) bool {
		segs = append(segs, s)
		return true
	})
	return segs
}

func (e *wfpElement) idle(p IdlePolicy) float64 {
	segs := e.segments()
	if p == LatestEnter {
		return LatestEnterIdle(e.local(), segs)
	}
	return mergedIdle(e.local(), segs)
}

// wfpCache holds the pending multi-dependency queries of a rank by key.
type wfpCache struct {
	elements map[uint32]*wfpElement
}

func newWFPCache() *wfpCache {
	return &wfpCache{elements: make(map[uint32]*wfpElement)}
}

func (c *wfpCache) store(key uint32, e *wfpElement) { c.elements[key] = e }

func (c *wfpCache) get(key uint32) (*wfpElement, bool) {
	e, ok := c.elements[key]
	return e, ok
}

func (c *wfpCache) purge(key uint32) { delete(c.elements, key) }

func (c *wfpCache) len() int { return len(c.elements) }

// keys returns the keys of all pending queries in increasing order.
func (c *wfpCache) keys() []uint32 {
	keys := maps.Keys(c.elements)
	slices.Sort(keys)
	return keys
}
