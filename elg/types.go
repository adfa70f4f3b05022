// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import "strconv"

// Type is the one-byte tag identifying the kind of a record.
type Type uint8

// Definition records.
const (
	TypeString       Type = 1
	TypeStringCnt    Type = 2
	TypeMachine      Type = 3
	TypeNode         Type = 4
	TypeProcess      Type = 5
	TypeThread       Type = 6
	TypeLocation     Type = 7
	TypeFile         Type = 8
	TypeRegion       Type = 9
	TypeCallSite     Type = 10
	TypeCallPath     Type = 11
	TypeMetric       Type = 12
	TypeMPIGroup     Type = 13
	TypeMPIGroupCnt  Type = 14
	TypeMPICommDist  Type = 15
	TypeMPICommRef   Type = 16
	TypeMPIComm      Type = 17
	TypeMPICommCnt   Type = 18
	TypeCartTopology Type = 19
	TypeCartCoords   Type = 20
	TypeMPIWin       Type = 21
	TypeOffset       Type = 22
	TypeNumEvents    Type = 23
	TypeEventTypes   Type = 24
	TypeEventCounts  Type = 25
	TypeMapSection   Type = 26
	TypeMapOffset    Type = 27
	TypeIDMap        Type = 28
	TypeIDMapCnt     Type = 29
	TypeLastDef      Type = 30
)

// Attribute records.
const (
	TypeFirstAttr Type = 90
	TypeAttrUI1   Type = 90
	TypeAttrUI4   Type = 91
	TypeLastAttr  Type = 99
)

// Event records.
const (
	TypeFirstEvent       Type = 100
	TypeEnter            Type = 100
	TypeExit             Type = 101
	TypeEnterCS          Type = 102
	TypeMPISend          Type = 103
	TypeMPIRecv          Type = 104
	TypeMPICollExit      Type = 105
	TypeMPISendComplete  Type = 106
	TypeMPIRecvRequest   Type = 107
	TypeMPIRequestTested Type = 108
	TypeMPICancelled     Type = 109
	TypeMPIPut1TS        Type = 110
	TypeMPIPut1TE        Type = 111
	TypeMPIPut1TERemote  Type = 112
	TypeMPIGet1TO        Type = 113
	TypeMPIGet1TS        Type = 114
	TypeMPIGet1TSRemote  Type = 115
	TypeMPIGet1TE        Type = 116
	TypeMPIWinExit       Type = 117
	TypeMPIWinCollExit   Type = 118
	TypeMPIWinLock       Type = 119
	TypeMPIWinUnlock     Type = 120
	TypePut1TS           Type = 121
	TypePut1TE           Type = 122
	TypePut1TERemote     Type = 123
	TypeGet1TS           Type = 124
	TypeGet1TSRemote     Type = 125
	TypeGet1TE           Type = 126
	TypeCollExit         Type = 127
	TypeALock            Type = 128
	TypeRLock            Type = 129
	TypeOMPFork          Type = 130
	TypeOMPJoin          Type = 131
	TypeOMPALock         Type = 132
	TypeOMPRLock         Type = 133
	TypeOMPCollExit      Type = 134
	TypeLogOff           Type = 135
	TypeLogOn            Type = 136
	TypeEnterTracing     Type = 137
	TypeExitTracing      Type = 138
)

// NoID marks an identifier that is not present.
const NoID = 0xFFFFFFFF

// Group mode flags of MPI_GROUP records.
const (
	GroupSelf  = 1 << 0
	GroupWorld = 1 << 1
)

// Modes of IDMAP records.
const (
	MapDense  = 0
	MapSparse = 1
)

// Region types of REGION records.
const (
	RegionFunction = iota
	RegionLoop
	RegionUser
	RegionFunctionCollBarrier
	RegionFunctionCollOne2All
	RegionFunctionCollAll2One
	RegionFunctionCollAll2All
	RegionFunctionCollOther
	RegionOMPParallel
	RegionOMPLoop
	RegionOMPSections
	RegionOMPSection
	RegionOMPWorkshare
	RegionOMPSingle
	RegionOMPMaster
	RegionOMPCritical
	RegionOMPAtomic
	RegionOMPBarrier
	RegionOMPIBarrier
	RegionOMPFlush
	RegionOMPCriticalSBlock
	RegionOMPSingleSBlock
	RegionOMPWrapper
)

// IsEvent reports whether t is a timestamped event record.
func (t Type) IsEvent() bool {
	return t >= TypeFirstEvent
}

// IsAttribute reports whether t is an attribute record.
func (t Type) IsAttribute() bool {
	return t >= TypeFirstAttr && t <= TypeLastAttr
}

// IsDefinition reports whether t is a definition or internal record.
func (t Type) IsDefinition() bool {
	return !t.IsEvent() && !t.IsAttribute()
}

func (t Type) String() string {
	if s := specs[t]; s.Name != "" {
		return s.Name
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Spec describes the wire shape of one record type.
type Spec struct {
	// Name is the human-readable name of the record type.
	Name string

	// Fixed is the size in bytes of the fields that are always present,
	// excluding the optional location field of events and any trailing
	// metric values or variable-length arrays.
	Fixed int

	// HasLocation indicates an event whose leading location field may be
	// elided in single-location traces.
	HasLocation bool

	// HasMetrics indicates an event carrying a trailing vector of metric
	// values whose arity is not encoded on the wire.
	HasMetrics bool

	// Continuation is the type of the continuation records following a
	// record of this type when its array does not fit.
	Continuation Type
}

// Specs returns the spec of every known record type, indexed by type.
// Unknown types have a zero Spec.
func Specs() *[256]Spec {
	return &specs
}

// TypeByName returns the type whose spec is named name.
func TypeByName(name string) (Type, bool) {
	for t, s := range specs {
		if s.Name != "" && s.Name == name {
			return Type(t), true
		}
	}
	return 0, false
}

var specs = [256]Spec{
	TypeString:       {Name: "STRING", Fixed: 5, Continuation: TypeStringCnt},
	TypeStringCnt:    {Name: "STRING_CNT"},
	TypeMachine:      {Name: "MACHINE", Fixed: 12},
	TypeNode:         {Name: "NODE", Fixed: 16},
	TypeProcess:      {Name: "PROCESS", Fixed: 8},
	TypeThread:       {Name: "THREAD", Fixed: 12},
	TypeLocation:     {Name: "LOCATION", Fixed: 20},
	TypeFile:         {Name: "FILE", Fixed: 8},
	TypeRegion:       {Name: "REGION", Fixed: 25},
	TypeCallSite:     {Name: "CALL_SITE", Fixed: 20},
	TypeCallPath:     {Name: "CALL_PATH", Fixed: 20},
	TypeMetric:       {Name: "METRIC", Fixed: 15},
	TypeMPIGroup:     {Name: "MPI_GROUP", Fixed: 9, Continuation: TypeMPIGroupCnt},
	TypeMPIGroupCnt:  {Name: "MPI_GROUP_CNT"},
	TypeMPICommDist:  {Name: "MPI_COMM_DIST", Fixed: 20},
	TypeMPICommRef:   {Name: "MPI_COMM_REF", Fixed: 8},
	TypeMPIComm:      {Name: "MPI_COMM", Fixed: 8, Continuation: TypeMPICommCnt},
	TypeMPICommCnt:   {Name: "MPI_COMM_CNT"},
	TypeCartTopology: {Name: "CART_TOPOLOGY", Fixed: 9},
	TypeCartCoords:   {Name: "CART_COORDS", Fixed: 9},
	TypeMPIWin:       {Name: "MPI_WIN", Fixed: 8},
	TypeOffset:       {Name: "OFFSET", Fixed: 16},
	TypeNumEvents:    {Name: "NUM_EVENTS", Fixed: 4},
	TypeEventTypes:   {Name: "EVENT_TYPES", Fixed: 4},
	TypeEventCounts:  {Name: "EVENT_COUNTS", Fixed: 4},
	TypeMapSection:   {Name: "MAP_SECTION", Fixed: 4},
	TypeMapOffset:    {Name: "MAP_OFFSET", Fixed: 8},
	TypeIDMap:        {Name: "IDMAP", Fixed: 6, Continuation: TypeIDMapCnt},
	TypeIDMapCnt:     {Name: "IDMAP_CNT"},
	TypeLastDef:      {Name: "LAST_DEF"},

	TypeAttrUI1: {Name: "ATTR_UI1", Fixed: 2},
	TypeAttrUI4: {Name: "ATTR_UI4", Fixed: 5},

	TypeEnter:            {Name: "ENTER", Fixed: 12, HasLocation: true, HasMetrics: true},
	TypeExit:             {Name: "EXIT", Fixed: 8, HasLocation: true, HasMetrics: true},
	TypeEnterCS:          {Name: "ENTER_CS", Fixed: 12, HasLocation: true, HasMetrics: true},
	TypeMPISend:          {Name: "MPI_SEND", Fixed: 24, HasLocation: true},
	TypeMPIRecv:          {Name: "MPI_RECV", Fixed: 20, HasLocation: true},
	TypeMPICollExit:      {Name: "MPI_COLLEXIT", Fixed: 24, HasLocation: true, HasMetrics: true},
	TypeMPISendComplete:  {Name: "MPI_SEND_COMPLETE", Fixed: 12, HasLocation: true},
	TypeMPIRecvRequest:   {Name: "MPI_RECV_REQUEST", Fixed: 12, HasLocation: true},
	TypeMPIRequestTested: {Name: "MPI_REQUEST_TESTED", Fixed: 12, HasLocation: true},
	TypeMPICancelled:     {Name: "MPI_CANCELLED", Fixed: 12, HasLocation: true},
	TypeMPIPut1TS:        {Name: "MPI_PUT_1TS", Fixed: 24, HasLocation: true},
	TypeMPIPut1TE:        {Name: "MPI_PUT_1TE", Fixed: 20, HasLocation: true},
	TypeMPIPut1TERemote:  {Name: "MPI_PUT_1TE_REMOTE", Fixed: 20, HasLocation: true},
	TypeMPIGet1TO:        {Name: "MPI_GET_1TO", Fixed: 12, HasLocation: true},
	TypeMPIGet1TS:        {Name: "MPI_GET_1TS", Fixed: 24, HasLocation: true},
	TypeMPIGet1TSRemote:  {Name: "MPI_GET_1TS_REMOTE", Fixed: 24, HasLocation: true},
	TypeMPIGet1TE:        {Name: "MPI_GET_1TE", Fixed: 20, HasLocation: true},
	TypeMPIWinExit:       {Name: "MPI_WINEXIT", Fixed: 17, HasLocation: true, HasMetrics: true},
	TypeMPIWinCollExit:   {Name: "MPI_WINCOLLEXIT", Fixed: 12, HasLocation: true, HasMetrics: true},
	TypeMPIWinLock:       {Name: "MPI_WIN_LOCK", Fixed: 17, HasLocation: true},
	TypeMPIWinUnlock:     {Name: "MPI_WIN_UNLOCK", Fixed: 16, HasLocation: true},
	TypePut1TS:           {Name: "PUT_1TS", Fixed: 20, HasLocation: true},
	TypePut1TE:           {Name: "PUT_1TE", Fixed: 16, HasLocation: true},
	TypePut1TERemote:     {Name: "PUT_1TE_REMOTE", Fixed: 16, HasLocation: true},
	TypeGet1TS:           {Name: "GET_1TS", Fixed: 20, HasLocation: true},
	TypeGet1TSRemote:     {Name: "GET_1TS_REMOTE", Fixed: 20, HasLocation: true},
	TypeGet1TE:           {Name: "GET_1TE", Fixed: 16, HasLocation: true},
	TypeCollExit:         {Name: "COLLEXIT", Fixed: 24, HasLocation: true, HasMetrics: true},
	TypeALock:            {Name: "ALOCK", Fixed: 12, HasLocation: true},
	TypeRLock:            {Name: "RLOCK", Fixed: 12, HasLocation: true},
	TypeOMPFork:          {Name: "OMP_FORK", Fixed: 8, HasLocation: true},
	TypeOMPJoin:          {Name: "OMP_JOIN", Fixed: 8, HasLocation: true},
	TypeOMPALock:         {Name: "OMP_ALOCK", Fixed: 12, HasLocation: true},
	TypeOMPRLock:         {Name: "OMP_RLOCK", Fixed: 12, HasLocation: true},
	TypeOMPCollExit:      {Name: "OMP_COLLEXIT", Fixed: 8, HasLocation: true, HasMetrics: true},
	TypeLogOff:           {Name: "LOG_OFF", Fixed: 8, HasLocation: true, HasMetrics: true},
	TypeLogOn:            {Name: "LOG_ON", Fixed: 8, HasLocation: true, HasMetrics: true},
	TypeEnterTracing:     {Name: "ENTER_TRACING", Fixed: 8, HasLocation: true, HasMetrics: true},
	TypeExitTracing:      {Name: "EXIT_TRACING", Fixed: 8, HasLocation: true, HasMetrics: true},
}
