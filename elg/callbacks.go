// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

// Callbacks receives decoded records. Every field is optional; a nil field
// means the consumer is not interested in that record kind, but the record
// is still decoded and counts as handled.
//
// All is called for every dispatched record, before decoding, with the
// record type and body length.
type Callbacks struct {
	All func(t Type, length uint8)

	String       func(String)
	StringCnt    func(StringCnt)
	Machine      func(Machine)
	Node         func(Node)
	Process      func(Process)
	Thread       func(Thread)
	Location     func(Location)
	File         func(File)
	Region       func(Region)
	CallSite     func(CallSite)
	CallPath     func(CallPath)
	Metric       func(Metric)
	MPIGroup     func(MPIGroup)
	MPICommDist  func(MPICommDist)
	MPICommRef   func(MPICommRef)
	MPIComm      func(MPIComm)
	CartTopology func(CartTopology)
	CartCoords   func(CartCoords)
	MPIWin       func(MPIWin)
	Offset       func(Offset)
	NumEvents    func(NumEvents)
	EventTypes   func(EventTypes)
	EventCounts  func(EventCounts)
	MapSection   func(MapSection)
	MapOffset    func(MapOffset)
	IDMap        func(IDMap)
	LastDef      func(LastDef)
	AttrUI1      func(AttrUI1)
	AttrUI4      func(AttrUI4)

	Enter            func(Enter)
	EnterCS          func(EnterCS)
	Exit             func(Exit)
	MPISend          func(MPISend)
	MPIRecv          func(MPIRecv)
	MPICollExit      func(MPICollExit)
	MPISendComplete  func(MPISendComplete)
	MPIRecvRequest   func(MPIRecvRequest)
	MPIRequestTested func(MPIRequestTested)
	MPICancelled     func(MPICancelled)
	MPIPut1TS        func(MPIPut1TS)
	MPIPut1TE        func(MPIPut1TE)
	MPIPut1TERemote  func(MPIPut1TERemote)
	MPIGet1TO        func(MPIGet1TO)
	MPIGet1TS        func(MPIGet1TS)
	MPIGet1TSRemote  func(MPIGet1TSRemote)
	MPIGet1TE        func(MPIGet1TE)
	MPIWinExit       func(MPIWinExit)
	MPIWinCollExit   func(MPIWinCollExit)
	MPIWinLock       func(MPIWinLock)
	MPIWinUnlock     func(MPIWinUnlock)
	Put1TS           func(Put1TS)
	Put1TE           func(Put1TE)
	Put1TERemote     func(Put1TERemote)
	Get1TS           func(Get1TS)
	Get1TSRemote     func(Get1TSRemote)
	Get1TE           func(Get1TE)
	CollExit         func(CollExit)
	ALock            func(ALock)
	RLock            func(RLock)
	OMPFork          func(OMPFork)
	OMPJoin          func(OMPJoin)
	OMPALock         func(OMPALock)
	OMPRLock         func(OMPRLock)
	OMPCollExit      func(OMPCollExit)
	LogOff           func(LogOff)
	LogOn            func(LogOn)
	EnterTracing     func(EnterTracing)
	ExitTracing      func(ExitTracing)

	// Value, if set, receives every decoded record after its typed
	// callback.
	Value func(Value)
}

func (cb *Callbacks) call(v Value) {
	switch v := v.(type) {
	case String:
		if cb.String != nil {
			cb.String(v)
		}
	case StringCnt:
		if cb.StringCnt != nil {
			cb.StringCnt(v)
		}
	case Machine:
		if cb.Machine != nil {
			cb.Machine(v)
		}
	case Node:
		if cb.Node != nil {
			cb.Node(v)
		}
	case Process:
		if cb.Process != nil {
			cb.Process(v)
		}
	case Thread:
		if cb.Thread != nil {
			cb.Thread(v)
		}
	case Location:
		if cb.Location != nil {
			cb.Location(v)
		}
	case File:
		if cb.File != nil {
			cb.File(v)
		}
	case Region:
		if cb.Region != nil {
			cb.Region(v)
		}
	case CallSite:
		if cb.CallSite != nil {
			cb.CallSite(v)
		}
	case CallPath:
		if cb.CallPath != nil {
			cb.CallPath(v)
		}
	case Metric:
		if cb.Metric != nil {
			cb.Metric(v)
		}
	case MPIGroup:
		if cb.MPIGroup != nil {
			cb.MPIGroup(v)
		}
	case MPICommDist:
		if cb.MPICommDist != nil {
			cb.MPICommDist(v)
		}
	case MPICommRef:
		if cb.MPICommRef != nil {
			cb.MPICommRef(v)
		}
	case MPIComm:
		if cb.MPIComm != nil {
			cb.MPIComm(v)
		}
	case CartTopology:
		if cb.CartTopology != nil {
			cb.CartTopology(v)
		}
	case CartCoords:
		if cb.CartCoords != nil {
			cb.CartCoords(v)
		}
	case MPIWin:
		if cb.MPIWin != nil {
			cb.MPIWin(v)
		}
	case Offset:
		if cb.Offset != nil {
			cb.Offset(v)
		}
	case NumEvents:
		if cb.NumEvents != nil {
			cb.NumEvents(v)
		}
	case EventTypes:
		if cb.EventTypes != nil {
			cb.EventTypes(v)
		}
	case EventCounts:
		if cb.EventCounts != nil {
			cb.EventCounts(v)
		}
	case MapSection:
		if cb.MapSection != nil {
			cb.MapSection(v)
		}
	case MapOffset:
		if cb.MapOffset != nil {
			cb.MapOffset(v)
		}
	case IDMap:
		if cb.IDMap != nil {
			cb.IDMap(v)
		}
	case LastDef:
		if cb.LastDef != nil {
			cb.LastDef(v)
		}
	case AttrUI1:
		if cb.AttrUI1 != nil {
			cb.AttrUI1(v)
		}
	case AttrUI4:
		if cb.AttrUI4 != nil {
			cb.AttrUI4(v)
		}
	case Enter:
		if cb.Enter != nil {
			cb.Enter(v)
		}
	case EnterCS:
		if cb.EnterCS != nil {
			cb.EnterCS(v)
		}
	case Exit:
		if cb.Exit != nil {
			cb.Exit(v)
		}
	case MPISend:
		if cb.MPISend != nil {
			cb.MPISend(v)
		}
	case MPIRecv:
		if cb.MPIRecv != nil {
			cb.MPIRecv(v)
		}
	case MPICollExit:
		if cb.MPICollExit != nil {
			cb.MPICollExit(v)
		}
	case MPISendComplete:
		if cb.MPISendComplete != nil {
			cb.MPISendComplete(v)
		}
	case MPIRecvRequest:
		if cb.MPIRecvRequest != nil {
			cb.MPIRecvRequest(v)
		}
	case MPIRequestTested:
		if cb.MPIRequestTested != nil {
			cb.MPIRequestTested(v)
		}
	case MPICancelled:
		if cb.MPICancelled != nil {
			cb.MPICancelled(v)
		}
	case MPIPut1TS:
		if cb.MPIPut1TS != nil {
			cb.MPIPut1TS(v)
		}
	case MPIPut1TE:
		if cb.MPIPut1TE != nil {
			cb.MPIPut1TE(v)
		}
	case MPIPut1TERemote:
		if cb.MPIPut1TERemote != nil {
			cb.MPIPut1TERemote(v)
		}
	case MPIGet1TO:
		if cb.MPIGet1TO != nil {
			cb.MPIGet1TO(v)
		}
	case MPIGet1TS:
		if cb.MPIGet1TS != nil {
			cb.MPIGet1TS(v)
		}
	case MPIGet1TSRemote:
		if cb.MPIGet1TSRemote != nil {
			cb.MPIGet1TSRemote(v)
		}
	case MPIGet1TE:
		if cb.MPIGet1TE != nil {
			cb.MPIGet1TE(v)
		}
	case MPIWinExit:
		if cb.MPIWinExit != nil {
			cb.MPIWinExit(v)
		}
	case MPIWinCollExit:
		if cb.MPIWinCollExit != nil {
			cb.MPIWinCollExit(v)
		}
	case MPIWinLock:
		if cb.MPIWinLock != nil {
			cb.MPIWinLock(v)
		}
	case MPIWinUnlock:
		if cb.MPIWinUnlock != nil {
			cb.MPIWinUnlock(v)
		}
	case Put1TS:
		if cb.Put1TS != nil {
			cb.Put1TS(v)
		}
	case Put1TE:
		if cb.Put1TE != nil {
			cb.Put1TE(v)
		}
	case Put1TERemote:
		if cb.Put1TERemote != nil {
			cb.Put1TERemote(v)
		}
	case Get1TS:
		if cb.Get1TS != nil {
			cb.Get1TS(v)
		}
	case Get1TSRemote:
		if cb.Get1TSRemote != nil {
			cb.Get1TSRemote(v)
		}
	case Get1TE:
		if cb.Get1TE != nil {
			cb.Get1TE(v)
		}
	case CollExit:
		if cb.CollExit != nil {
			cb.CollExit(v)
		}
	case ALock:
		if cb.ALock != nil {
			cb.ALock(v)
		}
	case RLock:
		if cb.RLock != nil {
			cb.RLock(v)
		}
	case OMPFork:
		if cb.OMPFork != nil {
			cb.OMPFork(v)
		}
	case OMPJoin:
		if cb.OMPJoin != nil {
			cb.OMPJoin(v)
		}
	case OMPALock:
		if cb.OMPALock != nil {
			cb.OMPALock(v)
		}
	case OMPRLock:
		if cb.OMPRLock != nil {
			cb.OMPRLock(v)
		}
	case OMPCollExit:
		if cb.OMPCollExit != nil {
			cb.OMPCollExit(v)
		}
	case LogOff:
		if cb.LogOff != nil {
			cb.LogOff(v)
		}
	case LogOn:
		if cb.LogOn != nil {
			cb.LogOn(v)
		}
	case EnterTracing:
		if cb.EnterTracing != nil {
			cb.EnterTracing(v)
		}
	case ExitTracing:
		if cb.ExitTracing != nil {
			cb.ExitTracing(v)
		}
	}
	if cb.Value != nil {
		cb.Value(v)
	}
}
