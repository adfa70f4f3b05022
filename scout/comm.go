// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"github.com/scalasca/pearl/elg/defs"
)

// Comm is a communicator: an ordered set of global ranks. The position
// of a rank in the set is its local rank.
type Comm struct {
	ID    uint32
	ranks []int
	local map[int]int
}

// NewComm returns the communicator id over the given global ranks.
func NewComm(id uint32, ranks []int) *Comm {
	c := &Comm{ID: id, ranks: ranks, local: make(map[int]int, len(ranks))}
	for i, r := range ranks {
		c.local[r] = i
	}
	return c
}

// WorldComm returns communicator id over the global ranks 0 to n-1.
func WorldComm(id uint32, n int) *Comm {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	return NewComm(id, ranks)
}

// Size returns the number of ranks in c.
func (c *Comm) Size() int { return len(c.ranks) }

// GlobalRank maps a local rank of c to its global rank.
func (c *Comm) GlobalRank(local int) (int, bool) {
	if local < 0 || local >= len(c.ranks) {
		return 0, false
	}
	return c.ranks[local], true
}

// LocalRank maps a global rank to its local rank in c.
func (c *Comm) LocalRank(global int) (int, bool) {
	l, ok := c.local[global]
	return l, ok
}

// CommsFromDefs builds the communicators defined in a trace.
func CommsFromDefs(d *defs.Collector) map[uint32]*Comm {
	comms := make(map[uint32]*Comm)
	for _, id := range d.Comms() {
		ranks, ok := d.CommRanks(id)
		if !ok {
			continue
		}
		global := make([]int, len(ranks))
		for i, r := range ranks {
			global[i] = int(r)
		}
		comms[id] = NewComm(id, global)
	}
	return comms
}
