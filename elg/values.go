// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

// Value is a decoded record. Every record kind has its own struct type.
type Value interface {
	Type() Type
}

// Definition records.

// String defines a string. When Cont is non-zero, Str holds only the first
// fragment and Cont STRING_CNT records follow.
type String struct {
	ID   uint32
	Cont uint8
	Str  string
}

// StringCnt continues the string of the last String record.
type StringCnt struct {
	Str string
}

type Machine struct {
	ID     uint32
	Nodes  uint32
	NameID uint32
}

// Node defines a node. ClockRate is 1.0 in traces older than version 1.1.
type Node struct {
	ID        uint32
	Machine   uint32
	CPUs      uint32
	NameID    uint32
	ClockRate float64
}

type Process struct {
	ID     uint32
	NameID uint32
}

type Thread struct {
	ID      uint32
	Process uint32
	NameID  uint32
}

type Location struct {
	ID      uint32
	Machine uint32
	Node    uint32
	Process uint32
	Thread  uint32
}

type File struct {
	ID     uint32
	NameID uint32
}

type Region struct {
	ID        uint32
	NameID    uint32
	File      uint32
	BeginLine uint32
	EndLine   uint32
	DescID    uint32
	Kind      uint8
}

type CallSite struct {
	ID          uint32
	File        uint32
	Line        uint32
	EnterRegion uint32
	ExitRegion  uint32
}

type CallPath struct {
	ID     uint32
	Region uint32
	Parent uint32
	Order  uint64
}

type Metric struct {
	ID       uint32
	NameID   uint32
	DescID   uint32
	DataType uint8
	Mode     uint8
	Interval uint8
}

// MPIGroup defines a process group. len(Ranks) is the group size. A group
// with the GroupWorld mode flag has the identity membership.
type MPIGroup struct {
	ID    uint32
	Mode  uint8
	Ranks []uint32
}

type MPICommDist struct {
	ID        uint32
	Root      uint32
	LocalID   uint32
	LocalRank uint32
	Size      uint32
}

type MPICommRef struct {
	ID    uint32
	Group uint32
}

// MPIComm defines a communicator by a membership bitmap. Mode is 0 in
// traces older than version 1.3.
type MPIComm struct {
	ID     uint32
	Mode   uint8
	Bitmap []uint8
}

// CartTopology defines a Cartesian topology. NameID and DimNameIDs are NoID
// in traces older than version 1.9.
type CartTopology struct {
	ID         uint32
	NameID     uint32
	Comm       uint32
	Dims       []uint32
	Periodic   []uint8
	DimNameIDs []uint32
}

type CartCoords struct {
	Topology uint32
	Location uint32
	Coords   []uint32
}

type MPIWin struct {
	ID   uint32
	Comm uint32
}

type Offset struct {
	LocalTime float64
	Offset    float64
}

type NumEvents struct {
	Count uint32
}

type EventTypes struct {
	Types []uint8
}

type EventCounts struct {
	Counts []uint32
}

type MapSection struct {
	Rank uint32
}

type MapOffset struct {
	Rank   uint32
	Offset uint32
}

// IDMap is an identifier remapping table of the given definition kind.
type IDMap struct {
	Kind uint8
	Mode uint8
	Map  []uint32
}

type LastDef struct{}

type AttrUI1 struct {
	Attr  uint8
	Value uint8
}

type AttrUI4 struct {
	Attr  uint8
	Value uint32
}

// Event records. Loc is the location the event occurred on, Time its
// timestamp. Metrics, where present, aliases storage owned by the Decoder
// and is only valid until the next record is dispatched.

type Enter struct {
	Loc     uint32
	Time    float64
	Region  uint32
	Metrics []uint64
}

type EnterCS struct {
	Loc      uint32
	Time     float64
	CallSite uint32
	Metrics  []uint64
}

type Exit struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
}

type MPISend struct {
	Loc  uint32
	Time float64
	Dest uint32
	Comm uint32
	Tag  uint32
	Sent uint32
}

type MPIRecv struct {
	Loc    uint32
	Time   float64
	Source uint32
	Comm   uint32
	Tag    uint32
}

type MPICollExit struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
	Root    uint32
	Comm    uint32
	Sent    uint32
	Recvd   uint32
}

type MPISendComplete struct {
	Loc     uint32
	Time    float64
	Request uint32
}

type MPIRecvRequest struct {
	Loc     uint32
	Time    float64
	Request uint32
}

type MPIRequestTested struct {
	Loc     uint32
	Time    float64
	Request uint32
}

type MPICancelled struct {
	Loc     uint32
	Time    float64
	Request uint32
}

type MPIPut1TS struct {
	Loc   uint32
	Time  float64
	Dest  uint32
	Win   uint32
	RMA   uint32
	Bytes uint32
}

type MPIPut1TE struct {
	Loc    uint32
	Time   float64
	Source uint32
	Win    uint32
	RMA    uint32
}

type MPIPut1TERemote struct {
	Loc  uint32
	Time float64
	Dest uint32
	Win  uint32
	RMA  uint32
}

type MPIGet1TO struct {
	Loc  uint32
	Time float64
	RMA  uint32
}

type MPIGet1TS struct {
	Loc   uint32
	Time  float64
	Dest  uint32
	Win   uint32
	RMA   uint32
	Bytes uint32
}

type MPIGet1TSRemote struct {
	Loc   uint32
	Time  float64
	Dest  uint32
	Win   uint32
	RMA   uint32
	Bytes uint32
}

type MPIGet1TE struct {
	Loc    uint32
	Time   float64
	Source uint32
	Win    uint32
	RMA    uint32
}

type MPIWinExit struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
	Win     uint32
	Comm    uint32
	Synex   uint8
}

type MPIWinCollExit struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
	Win     uint32
}

type MPIWinLock struct {
	Loc      uint32
	Time     float64
	Lock     uint32
	Win      uint32
	LockType uint8
}

type MPIWinUnlock struct {
	Loc  uint32
	Time float64
	Lock uint32
	Win  uint32
}

type Put1TS struct {
	Loc   uint32
	Time  float64
	Dest  uint32
	RMA   uint32
	Bytes uint32
}

type Put1TE struct {
	Loc    uint32
	Time   float64
	Source uint32
	RMA    uint32
}

type Put1TERemote struct {
	Loc  uint32
	Time float64
	Dest uint32
	RMA  uint32
}

type Get1TS struct {
	Loc   uint32
	Time  float64
	Dest  uint32
	RMA   uint32
	Bytes uint32
}

type Get1TSRemote struct {
	Loc   uint32
	Time  float64
	Dest  uint32
	RMA   uint32
	Bytes uint32
}

type Get1TE struct {
	Loc    uint32
	Time   float64
	Source uint32
	RMA    uint32
}

type CollExit struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
	Root    uint32
	Comm    uint32
	Sent    uint32
	Recvd   uint32
}

type ALock struct {
	Loc  uint32
	Time float64
	Lock uint32
}

type RLock struct {
	Loc  uint32
	Time float64
	Lock uint32
}

type OMPFork struct {
	Loc  uint32
	Time float64
}

type OMPJoin struct {
	Loc  uint32
	Time float64
}

type OMPALock struct {
	Loc  uint32
	Time float64
	Lock uint32
}

type OMPRLock struct {
	Loc  uint32
	Time float64
	Lock uint32
}

type OMPCollExit struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
}

type LogOff struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
}

type LogOn struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
}

type EnterTracing struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
}

type ExitTracing struct {
	Loc     uint32
	Time    float64
	Metrics []uint64
}

func (String) Type() Type       { return TypeString }
func (StringCnt) Type() Type    { return TypeStringCnt }
func (Machine) Type() Type      { return TypeMachine }
func (Node) Type() Type         { return TypeNode }
func (Process) Type() Type      { return TypeProcess }
func (Thread) Type() Type       { return TypeThread }
func (Location) Type() Type     { return TypeLocation }
func (File) Type() Type         { return TypeFile }
func (Region) Type() Type       { return TypeRegion }
func (CallSite) Type() Type     { return TypeCallSite }
func (CallPath) Type() Type     { return TypeCallPath }
func (Metric) Type() Type       { return TypeMetric }
func (MPIGroup) Type() Type     { return TypeMPIGroup }
func (MPICommDist) Type() Type  { return TypeMPICommDist }
func (MPICommRef) Type() Type   { return TypeMPICommRef }
func (MPIComm) Type() Type      { return TypeMPIComm }
func (CartTopology) Type() Type { return TypeCartTopology }
func (CartCoords) Type() Type   { return TypeCartCoords }
func (MPIWin) Type() Type       { return TypeMPIWin }
func (Offset) Type() Type       { return TypeOffset }
func (NumEvents) Type() Type    { return TypeNumEvents }
func (EventTypes) Type() Type   { return TypeEventTypes }
func (EventCounts) Type() Type  { return TypeEventCounts }
func (MapSection) Type() Type   { return TypeMapSection }
func (MapOffset) Type() Type    { return TypeMapOffset }
func (IDMap) Type() Type        { return TypeIDMap }
func (LastDef) Type() Type      { return TypeLastDef }
func (AttrUI1) Type() Type      { return TypeAttrUI1 }
func (AttrUI4) Type() Type      { return TypeAttrUI4 }

func (Enter) Type() Type            { return TypeEnter }
func (EnterCS) Type() Type          { return TypeEnterCS }
func (Exit) Type() Type             { return TypeExit }
func (MPISend) Type() Type          { return TypeMPISend }
func (MPIRecv) Type() Type          { return TypeMPIRecv }
func (MPICollExit) Type() Type      { return TypeMPICollExit }
func (MPISendComplete) Type() Type  { return TypeMPISendComplete }
func (MPIRecvRequest) Type() Type   { return TypeMPIRecvRequest }
func (MPIRequestTested) Type() Type { return TypeMPIRequestTested }
func (MPICancelled) Type() Type     { return TypeMPICancelled }
func (MPIPut1TS) Type() Type        { return TypeMPIPut1TS }
func (MPIPut1TE) Type() Type        { return TypeMPIPut1TE }
func (MPIPut1TERemote) Type() Type  { return TypeMPIPut1TERemote }
func (MPIGet1TO) Type() Type        { return TypeMPIGet1TO }
func (MPIGet1TS) Type() Type        { return TypeMPIGet1TS }
func (MPIGet1TSRemote) Type() Type  { return TypeMPIGet1TSRemote }
func (MPIGet1TE) Type() Type        { return TypeMPIGet1TE }
func (MPIWinExit) Type() Type       { return TypeMPIWinExit }
func (MPIWinCollExit) Type() Type   { return TypeMPIWinCollExit }
func (MPIWinLock) Type() Type       { return TypeMPIWinLock }
func (MPIWinUnlock) Type() Type     { return TypeMPIWinUnlock }
func (Put1TS) Type() Type           { return TypePut1TS }
func (Put1TE) Type() Type           { return TypePut1TE }
func (Put1TERemote) Type() Type     { return TypePut1TERemote }
func (Get1TS) Type() Type           { return TypeGet1TS }
func (Get1TSRemote) Type() Type     { return TypeGet1TSRemote }
func (Get1TE) Type() Type           { return TypeGet1TE }
func (CollExit) Type() Type         { return TypeCollExit }
func (ALock) Type() Type            { return TypeALock }
func (RLock) Type() Type            { return TypeRLock }
func (OMPFork) Type() Type          { return TypeOMPFork }
func (OMPJoin) Type() Type          { return TypeOMPJoin }
func (OMPALock) Type() Type         { return TypeOMPALock }
func (OMPRLock) Type() Type         { return TypeOMPRLock }
func (OMPCollExit) Type() Type      { return TypeOMPCollExit }
func (LogOff) Type() Type           { return TypeLogOff }
func (LogOn) Type() Type            { return TypeLogOn }
func (EnterTracing) Type() Type     { return TypeEnterTracing }
func (ExitTracing) Type() Type      { return TypeExitTracing }
