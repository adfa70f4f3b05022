// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package defs collects the definition records of an EPILOG trace into
// lookup tables.
package defs

import (
	"io"
	"strings"

	"github.com/scalasca/pearl/elg"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

var (
	// ErrUnexpectedStringCnt is reported for a STRING_CNT record that does
	// not continue a STRING.
	ErrUnexpectedStringCnt = xerrors.New("defs: STRING_CNT without STRING")

	// ErrIncompleteString is reported when a STRING chain is interrupted
	// before all its continuation records were read.
	ErrIncompleteString = xerrors.New("defs: incomplete STRING chain")
)

// Collector accumulates definitions. Its Callbacks method returns the
// callbacks to hand to an elg.Decoder; Load does both steps for a trace.
//
// Callbacks cannot fail, so the first inconsistency is kept and reported
// by Err.
type Collector struct {
	log *zap.Logger
	err error

	chain     *chain
	strings   map[uint32]string
	machines  map[uint32]elg.Machine
	nodes     map[uint32]elg.Node
	processes map[uint32]elg.Process
	threads   map[uint32]elg.Thread
	locations map[uint32]elg.Location
	files     map[uint32]elg.File
	regions   map[uint32]elg.Region
	callSites map[uint32]elg.CallSite
	callPaths map[uint32]elg.CallPath
	metrics   []elg.Metric
	groups    map[uint32]elg.MPIGroup
	commDists map[uint32]elg.MPICommDist
	commRefs  map[uint32]elg.MPICommRef
	comms     map[uint32]elg.MPIComm
	wins      map[uint32]elg.MPIWin
	topos     map[uint32]elg.CartTopology
	coords    []elg.CartCoords
	idmaps    []elg.IDMap
	offsets   []elg.Offset
	complete  bool
}

// chain is a STRING record whose continuation records are still being read.
type chain struct {
	id   uint32
	left int
	sb   strings.Builder
}

// New returns an empty Collector logging to log, which may be nil.
func New(log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		log:       log,
		strings:   make(map[uint32]string),
		machines:  make(map[uint32]elg.Machine),
		nodes:     make(map[uint32]elg.Node),
		processes: make(map[uint32]elg.Process),
		threads:   make(map[uint32]elg.Thread),
		locations: make(map[uint32]elg.Location),
		files:     make(map[uint32]elg.File),
		regions:   make(map[uint32]elg.Region),
		callSites: make(map[uint32]elg.CallSite),
		callPaths: make(map[uint32]elg.CallPath),
		groups:    make(map[uint32]elg.MPIGroup),
		commDists: make(map[uint32]elg.MPICommDist),
		commRefs:  make(map[uint32]elg.MPICommRef),
		comms:     make(map[uint32]elg.MPIComm),
		wins:      make(map[uint32]elg.MPIWin),
		topos:     make(map[uint32]elg.CartTopology),
	}
}

// Load reads every definition record of r. Event records are skipped.
func Load(r *elg.Reader, log *zap.Logger) (*Collector, error) {
	c := New(log)
	d := elg.NewDecoder(r, c.Callbacks())
	for {
		_, err := d.ReadNextDef()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if c.err != nil {
			return nil, c.err
		}
	}
	if c.chain != nil {
		c.fail(xerrors.Errorf("%w: string %d at end of trace", ErrIncompleteString, c.chain.id))
	}
	return c, c.err
}

// Err returns the first inconsistency found in the definitions.
func (c *Collector) Err() error { return c.err }

func (c *Collector) fail(err error) {
	if c.err == nil {
		c.err = err
		c.log.Warn("inconsistent definitions", zap.Error(err))
	}
}

// Callbacks returns the callbacks feeding c.
func (c *Collector) Callbacks() *elg.Callbacks {
	return &elg.Callbacks{
		All: func(t elg.Type, _ uint8) {
			if c.chain != nil && t != elg.TypeStringCnt && !t.IsEvent() {
				c.fail(xerrors.Errorf("%w: string %d interrupted by %s", ErrIncompleteString, c.chain.id, t))
				c.chain = nil
			}
		},
		String:       c.addString,
		StringCnt:    c.addStringCnt,
		Machine:      func(v elg.Machine) { c.machines[v.ID] = v },
		Node:         func(v elg.Node) { c.nodes[v.ID] = v },
		Process:      func(v elg.Process) { c.processes[v.ID] = v },
		Thread:       func(v elg.Thread) { c.threads[v.ID] = v },
		Location:     func(v elg.Location) { c.locations[v.ID] = v },
		File:         func(v elg.File) { c.files[v.ID] = v },
		Region:       func(v elg.Region) { c.regions[v.ID] = v },
		CallSite:     func(v elg.CallSite) { c.callSites[v.ID] = v },
		CallPath:     func(v elg.CallPath) { c.callPaths[v.ID] = v },
		Metric:       func(v elg.Metric) { c.metrics = append(c.metrics, v) },
		MPIGroup:     func(v elg.MPIGroup) { c.groups[v.ID] = v },
		MPICommDist:  func(v elg.MPICommDist) { c.commDists[v.ID] = v },
		MPICommRef:   func(v elg.MPICommRef) { c.commRefs[v.ID] = v },
		MPIComm:      func(v elg.MPIComm) { c.comms[v.ID] = v },
		MPIWin:       func(v elg.MPIWin) { c.wins[v.ID] = v },
		CartTopology: func(v elg.CartTopology) { c.topos[v.ID] = v },
		CartCoords:   func(v elg.CartCoords) { c.coords = append(c.coords, v) },
		IDMap:        func(v elg.IDMap) { c.idmaps = append(c.idmaps, v) },
		Offset:       func(v elg.Offset) { c.offsets = append(c.offsets, v) },
		LastDef:      func(elg.LastDef) { c.complete = true },
	}
}

func (c *Collector) addString(v elg.String) {
	if v.Cont == 0 {
		c.strings[v.ID] = v.Str
		return
	}
	c.chain = &chain{id: v.ID, left: int(v.Cont)}
	c.chain.sb.WriteString(v.Str)
}

func (c *Collector) addStringCnt(v elg.StringCnt) {
	if c.chain == nil {
		c.fail(ErrUnexpectedStringCnt)
		return
	}
	c.chain.sb.WriteString(v.Str)
	if c.chain.left--; c.chain.left == 0 {
		c.strings[c.chain.id] = c.chain.sb.String()
		c.chain = nil
	}
}

// String returns the string with the given id.
func (c *Collector) String(id uint32) (string, bool) {
	s, ok := c.strings[id]
	return s, ok
}

// Strings returns all strings by id.
func (c *Collector) Strings() map[uint32]string { return c.strings }

// Complete reports whether a LAST_DEF record was seen.
func (c *Collector) Complete() bool { return c.complete }

func (c *Collector) Machine(id uint32) (elg.Machine, bool) {
	v, ok := c.machines[id]
	return v, ok
}

func (c *Collector) Node(id uint32) (elg.Node, bool) {
	v, ok := c.nodes[id]
	return v, ok
}

func (c *Collector) Process(id uint32) (elg.Process, bool) {
	v, ok := c.processes[id]
	return v, ok
}

func (c *Collector) Thread(id uint32) (elg.Thread, bool) {
	v, ok := c.threads[id]
	return v, ok
}

func (c *Collector) Location(id uint32) (elg.Location, bool) {
	v, ok := c.locations[id]
	return v, ok
}

// Locations returns the ids of all locations in increasing order.
func (c *Collector) Locations() []uint32 {
	ids := maps.Keys(c.locations)
	slices.Sort(ids)
	return ids
}

func (c *Collector) File(id uint32) (elg.File, bool) {
	v, ok := c.files[id]
	return v, ok
}

func (c *Collector) Region(id uint32) (elg.Region, bool) {
	v, ok := c.regions[id]
	return v, ok
}

// Regions returns the ids of all regions in increasing order.
func (c *Collector) Regions() []uint32 {
	ids := maps.Keys(c.regions)
	slices.Sort(ids)
	return ids
}

// RegionName returns the name of region id, or the empty string.
func (c *Collector) RegionName(id uint32) string {
	r, ok := c.regions[id]
	if !ok {
		return ""
	}
	return c.strings[r.NameID]
}

func (c *Collector) CallSite(id uint32) (elg.CallSite, bool) {
	v, ok := c.callSites[id]
	return v, ok
}

func (c *Collector) CallPath(id uint32) (elg.CallPath, bool) {
	v, ok := c.callPaths[id]
	return v, ok
}

// Metrics returns the metric definitions in trace order.
func (c *Collector) Metrics() []elg.Metric { return c.metrics }

func (c *Collector) Group(id uint32) (elg.MPIGroup, bool) {
	v, ok := c.groups[id]
	return v, ok
}

func (c *Collector) Comm(id uint32) (elg.MPIComm, bool) {
	v, ok := c.comms[id]
	return v, ok
}

// Comms returns the ids of all communicators in increasing order,
// whichever record kind defined them.
func (c *Collector) Comms() []uint32 {
	seen := make(map[uint32]bool)
	for id := range c.comms {
		seen[id] = true
	}
	for id := range c.commRefs {
		seen[id] = true
	}
	ids := maps.Keys(seen)
	slices.Sort(ids)
	return ids
}

// CommRanks returns the global ranks of communicator id in local rank
// order. A communicator is defined either by a membership bitmap or by
// a reference to a group.
func (c *Collector) CommRanks(id uint32) ([]uint32, bool) {
	if ref, ok := c.commRefs[id]; ok {
		g, ok := c.groups[ref.Group]
		if !ok {
			return nil, false
		}
		return g.Ranks, true
	}
	comm, ok := c.comms[id]
	if !ok {
		return nil, false
	}
	var ranks []uint32
	for i, b := range comm.Bitmap {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				ranks = append(ranks, uint32(i*8+bit))
			}
		}
	}
	return ranks, true
}

func (c *Collector) CommDist(id uint32) (elg.MPICommDist, bool) {
	v, ok := c.commDists[id]
	return v, ok
}

func (c *Collector) Win(id uint32) (elg.MPIWin, bool) {
	v, ok := c.wins[id]
	return v, ok
}

func (c *Collector) Topology(id uint32) (elg.CartTopology, bool) {
	v, ok := c.topos[id]
	return v, ok
}

// Coords returns the coordinates of every location in topology id.
func (c *Collector) Coords(id uint32) []elg.CartCoords {
	var out []elg.CartCoords
	for _, cc := range c.coords {
		if cc.Topology == id {
			out = append(out, cc)
		}
	}
	return out
}

// IDMaps returns the identifier maps in trace order.
func (c *Collector) IDMaps() []elg.IDMap { return c.idmaps }

// Offsets returns the clock offset measurements in trace order.
func (c *Collector) Offsets() []elg.Offset { return c.offsets }

// Counts returns the number of definitions of each kind, keyed by record
// type name.
func (c *Collector) Counts() map[string]int {
	return map[string]int{
		elg.TypeString.String():       len(c.strings),
		elg.TypeMachine.String():      len(c.machines),
		elg.TypeNode.String():         len(c.nodes),
		elg.TypeProcess.String():      len(c.processes),
		elg.TypeThread.String():       len(c.threads),
		elg.TypeLocation.String():     len(c.locations),
		elg.TypeFile.String():         len(c.files),
		elg.TypeRegion.String():       len(c.regions),
		elg.TypeCallSite.String():     len(c.callSites),
		elg.TypeCallPath.String():     len(c.callPaths),
		elg.TypeMetric.String():       len(c.metrics),
		elg.TypeMPIGroup.String():     len(c.groups),
		elg.TypeMPICommDist.String():  len(c.commDists),
		elg.TypeMPICommRef.String():   len(c.commRefs),
		elg.TypeMPIComm.String():      len(c.comms),
		elg.TypeMPIWin.String():       len(c.wins),
		elg.TypeCartTopology.String(): len(c.topos),
		elg.TypeCartCoords.String():   len(c.coords),
		elg.TypeIDMap.String():        len(c.idmaps),
		elg.TypeOffset.String():       len(c.offsets),
	}
}
