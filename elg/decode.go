// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import "golang.org/x/xerrors"

type decodeFunc func(d *Decoder, r *Record) (Value, error)

// decoders maps each record type to its decoder. Continuation types have
// none: they are only read while decoding their primary record.
var decoders = [256]decodeFunc{
	TypeString:       decodeString,
	TypeStringCnt:    decodeStringCnt,
	TypeMachine:      decodeMachine,
	TypeNode:         decodeNode,
	TypeProcess:      decodeProcess,
	TypeThread:       decodeThread,
	TypeLocation:     decodeLocation,
	TypeFile:         decodeFile,
	TypeRegion:       decodeRegion,
	TypeCallSite:     decodeCallSite,
	TypeCallPath:     decodeCallPath,
	TypeMetric:       decodeMetric,
	TypeMPIGroup:     decodeMPIGroup,
	TypeMPICommDist:  decodeMPICommDist,
	TypeMPICommRef:   decodeMPICommRef,
	TypeMPIComm:      decodeMPIComm,
	TypeCartTopology: decodeCartTopology,
	TypeCartCoords:   decodeCartCoords,
	TypeMPIWin:       decodeMPIWin,
	TypeOffset:       decodeOffset,
	TypeNumEvents:    decodeNumEvents,
	TypeEventTypes:   decodeEventTypes,
	TypeEventCounts:  decodeEventCounts,
	TypeMapSection:   decodeMapSection,
	TypeMapOffset:    decodeMapOffset,
	TypeIDMap:        decodeIDMap,
	TypeLastDef:      decodeLastDef,
	TypeAttrUI1:      decodeAttrUI1,
	TypeAttrUI4:      decodeAttrUI4,

	TypeEnter:            decodeEnter,
	TypeEnterCS:          decodeEnterCS,
	TypeExit:             decodeExit,
	TypeMPISend:          decodeMPISend,
	TypeMPIRecv:          decodeMPIRecv,
	TypeMPICollExit:      decodeMPICollExit,
	TypeMPISendComplete:  decodeMPISendComplete,
	TypeMPIRecvRequest:   decodeMPIRecvRequest,
	TypeMPIRequestTested: decodeMPIRequestTested,
	TypeMPICancelled:     decodeMPICancelled,
	TypeMPIPut1TS:        decodeMPIPut1TS,
	TypeMPIPut1TE:        decodeMPIPut1TE,
	TypeMPIPut1TERemote:  decodeMPIPut1TERemote,
	TypeMPIGet1TO:        decodeMPIGet1TO,
	TypeMPIGet1TS:        decodeMPIGet1TS,
	TypeMPIGet1TSRemote:  decodeMPIGet1TSRemote,
	TypeMPIGet1TE:        decodeMPIGet1TE,
	TypeMPIWinExit:       decodeMPIWinExit,
	TypeMPIWinCollExit:   decodeMPIWinCollExit,
	TypeMPIWinLock:       decodeMPIWinLock,
	TypeMPIWinUnlock:     decodeMPIWinUnlock,
	TypePut1TS:           decodePut1TS,
	TypePut1TE:           decodePut1TE,
	TypePut1TERemote:     decodePut1TERemote,
	TypeGet1TS:           decodeGet1TS,
	TypeGet1TSRemote:     decodeGet1TSRemote,
	TypeGet1TE:           decodeGet1TE,
	TypeCollExit:         decodeCollExit,
	TypeALock:            decodeALock,
	TypeRLock:            decodeRLock,
	TypeOMPFork:          decodeOMPFork,
	TypeOMPJoin:          decodeOMPJoin,
	TypeOMPALock:         decodeOMPALock,
	TypeOMPRLock:         decodeOMPRLock,
	TypeOMPCollExit:      decodeOMPCollExit,
	TypeLogOff:           decodeLogOff,
	TypeLogOn:            decodeLogOn,
	TypeEnterTracing:     decodeEnterTracing,
	TypeExitTracing:      decodeExitTracing,
}

// Array capacities of primary and continuation records.
const (
	groupPrimaryCap = (MaxLength - 4 - 1 - 4) / 4
	groupContCap    = MaxLength / 4
	idmapPrimaryCap = (MaxLength - 1 - 1 - 4) / 4
	idmapContCap    = MaxLength / 4
	commContCap     = MaxLength
)

// commPrimaryCap returns how many bitmap bytes fit in an MPI_COMM record.
func commPrimaryCap(version uint32) int {
	if version < versionCommMode {
		return MaxLength - 4 - 4
	}
	return MaxLength - 4 - 4 - 1
}

func decodeString(d *Decoder, r *Record) (Value, error) {
	var v String
	v.ID = r.ReadU4()
	v.Cont = r.ReadU1()
	v.Str = r.ReadString()
	return v, nil
}

func decodeStringCnt(d *Decoder, r *Record) (Value, error) {
	return StringCnt{Str: r.ReadString()}, nil
}

func decodeMachine(d *Decoder, r *Record) (Value, error) {
	var v Machine
	v.ID = r.ReadU4()
	v.Nodes = r.ReadU4()
	v.NameID = r.ReadU4()
	return v, nil
}

func decodeNode(d *Decoder, r *Record) (Value, error) {
	var v Node
	v.ID = r.ReadU4()
	v.Machine = r.ReadU4()
	v.CPUs = r.ReadU4()
	v.NameID = r.ReadU4()
	v.ClockRate = 1.0
	if d.version >= versionNodeClockRate {
		v.ClockRate = r.ReadD8()
	}
	return v, nil
}

func decodeProcess(d *Decoder, r *Record) (Value, error) {
	var v Process
	v.ID = r.ReadU4()
	v.NameID = r.ReadU4()
	return v, nil
}

func decodeThread(d *Decoder, r *Record) (Value, error) {
	var v Thread
	v.ID = r.ReadU4()
	v.Process = r.ReadU4()
	v.NameID = r.ReadU4()
	return v, nil
}

func decodeLocation(d *Decoder, r *Record) (Value, error) {
	var v Location
	v.ID = r.ReadU4()
	v.Machine = r.ReadU4()
	v.Node = r.ReadU4()
	v.Process = r.ReadU4()
	v.Thread = r.ReadU4()
	d.singleLoc = v.ID
	return v, nil
}

func decodeFile(d *Decoder, r *Record) (Value, error) {
	var v File
	v.ID = r.ReadU4()
	v.NameID = r.ReadU4()
	return v, nil
}

func decodeRegion(d *Decoder, r *Record) (Value, error) {
	var v Region
	v.ID = r.ReadU4()
	v.NameID = r.ReadU4()
	v.File = r.ReadU4()
	v.BeginLine = r.ReadU4()
	v.EndLine = r.ReadU4()
	v.DescID = r.ReadU4()
	v.Kind = r.ReadU1()
	return v, nil
}

func decodeCallSite(d *Decoder, r *Record) (Value, error) {
	var v CallSite
	v.ID = r.ReadU4()
	v.File = r.ReadU4()
	v.Line = r.ReadU4()
	v.EnterRegion = r.ReadU4()
	v.ExitRegion = r.ReadU4()
	return v, nil
}

func decodeCallPath(d *Decoder, r *Record) (Value, error) {
	var v CallPath
	v.ID = r.ReadU4()
	v.Region = r.ReadU4()
	v.Parent = r.ReadU4()
	v.Order = r.ReadU8()
	return v, nil
}

// decodeMetric also grows the metric arity by one: metric definitions
// precede the events carrying their values.
func decodeMetric(d *Decoder, r *Record) (Value, error) {
	var v Metric
	v.ID = r.ReadU4()
	v.NameID = r.ReadU4()
	v.DescID = r.ReadU4()
	v.DataType = r.ReadU1()
	v.Mode = r.ReadU1()
	v.Interval = r.ReadU1()
	n, _ := d.MetricCount()
	d.setMetricCount(n + 1)
	return v, nil
}

// MaxWorldSize is the largest world group a decoder expands. The ranks of
// a world group are implied by its count, so the count alone bounds the
// allocation.
const MaxWorldSize = 1 << 24

func decodeMPIGroup(d *Decoder, r *Record) (Value, error) {
	var v MPIGroup
	v.ID = r.ReadU4()
	v.Mode = r.ReadU1()
	count := r.ReadU4()
	n := int(count)
	if v.Mode&GroupWorld != 0 {
		// The world group is never enumerated on the wire.
		if count > MaxWorldSize {
			return nil, xerrors.Errorf("%w: world group %d of %d ranks", ErrTooLong, v.ID, count)
		}
		v.Ranks = make([]uint32, n)
		for i := range v.Ranks {
			v.Ranks[i] = uint32(i)
		}
		return v, nil
	}
	ranks, err := readContinued(d, r, n, groupPrimaryCap, groupContCap, TypeMPIGroupCnt, readU4)
	if err != nil {
		return nil, err
	}
	v.Ranks = ranks
	return v, nil
}

func decodeMPICommDist(d *Decoder, r *Record) (Value, error) {
	var v MPICommDist
	v.ID = r.ReadU4()
	v.Root = r.ReadU4()
	v.LocalID = r.ReadU4()
	v.LocalRank = r.ReadU4()
	v.Size = r.ReadU4()
	return v, nil
}

func decodeMPICommRef(d *Decoder, r *Record) (Value, error) {
	var v MPICommRef
	v.ID = r.ReadU4()
	v.Group = r.ReadU4()
	return v, nil
}

func decodeMPIComm(d *Decoder, r *Record) (Value, error) {
	var v MPIComm
	v.ID = r.ReadU4()
	if d.version >= versionCommMode {
		v.Mode = r.ReadU1()
	}
	n := int(r.ReadU4())
	bitmap, err := readContinued(d, r, n, commPrimaryCap(d.version), commContCap, TypeMPICommCnt, readU1)
	if err != nil {
		return nil, err
	}
	v.Bitmap = bitmap
	return v, nil
}

func decodeCartTopology(d *Decoder, r *Record) (Value, error) {
	var v CartTopology
	v.ID = r.ReadU4()
	v.NameID = NoID
	v.Comm = r.ReadU4()
	n := int(r.ReadU1())
	v.Dims = make([]uint32, n)
	for i := range v.Dims {
		v.Dims[i] = r.ReadU4()
	}
	v.Periodic = make([]uint8, n)
	for i := range v.Periodic {
		v.Periodic[i] = r.ReadU1()
	}
	v.DimNameIDs = make([]uint32, n)
	if d.version >= versionCartNames {
		v.NameID = r.ReadU4()
		for i := range v.DimNameIDs {
			v.DimNameIDs[i] = r.ReadU4()
		}
	} else {
		for i := range v.DimNameIDs {
			v.DimNameIDs[i] = NoID
		}
	}
	return v, nil
}

func decodeCartCoords(d *Decoder, r *Record) (Value, error) {
	var v CartCoords
	v.Topology = r.ReadU4()
	v.Location = r.ReadU4()
	v.Coords = make([]uint32, r.ReadU1())
	for i := range v.Coords {
		v.Coords[i] = r.ReadU4()
	}
	return v, nil
}

func decodeMPIWin(d *Decoder, r *Record) (Value, error) {
	var v MPIWin
	v.ID = r.ReadU4()
	v.Comm = r.ReadU4()
	return v, nil
}

func decodeOffset(d *Decoder, r *Record) (Value, error) {
	var v Offset
	v.LocalTime = r.ReadD8()
	v.Offset = r.ReadD8()
	return v, nil
}

func decodeNumEvents(d *Decoder, r *Record) (Value, error) {
	return NumEvents{Count: r.ReadU4()}, nil
}

func decodeEventTypes(d *Decoder, r *Record) (Value, error) {
	n := int(r.ReadU4())
	if n > r.Remaining() {
		return nil, xerrors.Errorf("%w: %s declares %d elements", ErrShortBody, r.Type(), n)
	}
	v := EventTypes{Types: make([]uint8, n)}
	for i := range v.Types {
		v.Types[i] = r.ReadU1()
	}
	return v, nil
}

func decodeEventCounts(d *Decoder, r *Record) (Value, error) {
	n := int(r.ReadU4())
	if n*4 > r.Remaining() {
		return nil, xerrors.Errorf("%w: %s declares %d elements", ErrShortBody, r.Type(), n)
	}
	v := EventCounts{Counts: make([]uint32, n)}
	for i := range v.Counts {
		v.Counts[i] = r.ReadU4()
	}
	return v, nil
}

func decodeMapSection(d *Decoder, r *Record) (Value, error) {
	return MapSection{Rank: r.ReadU4()}, nil
}

func decodeMapOffset(d *Decoder, r *Record) (Value, error) {
	var v MapOffset
	v.Rank = r.ReadU4()
	v.Offset = r.ReadU4()
	return v, nil
}

func decodeIDMap(d *Decoder, r *Record) (Value, error) {
	var v IDMap
	v.Kind = r.ReadU1()
	v.Mode = r.ReadU1()
	n := int(r.ReadU4())
	m, err := readContinued(d, r, n, idmapPrimaryCap, idmapContCap, TypeIDMapCnt, readU4)
	if err != nil {
		return nil, err
	}
	v.Map = m
	return v, nil
}

func decodeLastDef(d *Decoder, r *Record) (Value, error) {
	return LastDef{}, nil
}

func decodeAttrUI1(d *Decoder, r *Record) (Value, error) {
	var v AttrUI1
	v.Attr = r.ReadU1()
	v.Value = r.ReadU1()
	return v, nil
}

func decodeAttrUI4(d *Decoder, r *Record) (Value, error) {
	var v AttrUI4
	v.Attr = r.ReadU1()
	v.Value = r.ReadU4()
	return v, nil
}

// Events.

func decodeEnter(d *Decoder, r *Record) (Value, error) {
	var v Enter
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Region = r.ReadU4()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeEnterCS(d *Decoder, r *Record) (Value, error) {
	var v EnterCS
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.CallSite = r.ReadU4()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeExit(d *Decoder, r *Record) (Value, error) {
	var v Exit
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeMPISend(d *Decoder, r *Record) (Value, error) {
	var v MPISend
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.Comm = r.ReadU4()
	v.Tag = r.ReadU4()
	v.Sent = r.ReadU4()
	return v, nil
}

func decodeMPIRecv(d *Decoder, r *Record) (Value, error) {
	var v MPIRecv
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Source = r.ReadU4()
	v.Comm = r.ReadU4()
	v.Tag = r.ReadU4()
	return v, nil
}

func decodeMPICollExit(d *Decoder, r *Record) (Value, error) {
	var v MPICollExit
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	v.Root = r.ReadU4()
	v.Comm = r.ReadU4()
	v.Sent = r.ReadU4()
	v.Recvd = r.ReadU4()
	return v, nil
}

func decodeMPISendComplete(d *Decoder, r *Record) (Value, error) {
	var v MPISendComplete
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Request = r.ReadU4()
	return v, nil
}

func decodeMPIRecvRequest(d *Decoder, r *Record) (Value, error) {
	var v MPIRecvRequest
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Request = r.ReadU4()
	return v, nil
}

func decodeMPIRequestTested(d *Decoder, r *Record) (Value, error) {
	var v MPIRequestTested
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Request = r.ReadU4()
	return v, nil
}

func decodeMPICancelled(d *Decoder, r *Record) (Value, error) {
	var v MPICancelled
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Request = r.ReadU4()
	return v, nil
}

func decodeMPIPut1TS(d *Decoder, r *Record) (Value, error) {
	var v MPIPut1TS
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.Win = r.ReadU4()
	v.RMA = r.ReadU4()
	v.Bytes = r.ReadU4()
	return v, nil
}

func decodeMPIPut1TE(d *Decoder, r *Record) (Value, error) {
	var v MPIPut1TE
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Source = r.ReadU4()
	v.Win = r.ReadU4()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodeMPIPut1TERemote(d *Decoder, r *Record) (Value, error) {
	var v MPIPut1TERemote
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.Win = r.ReadU4()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodeMPIGet1TO(d *Decoder, r *Record) (Value, error) {
	var v MPIGet1TO
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodeMPIGet1TS(d *Decoder, r *Record) (Value, error) {
	var v MPIGet1TS
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.Win = r.ReadU4()
	v.RMA = r.ReadU4()
	v.Bytes = r.ReadU4()
	return v, nil
}

func decodeMPIGet1TSRemote(d *Decoder, r *Record) (Value, error) {
	var v MPIGet1TSRemote
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.Win = r.ReadU4()
	v.RMA = r.ReadU4()
	v.Bytes = r.ReadU4()
	return v, nil
}

func decodeMPIGet1TE(d *Decoder, r *Record) (Value, error) {
	var v MPIGet1TE
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Source = r.ReadU4()
	v.Win = r.ReadU4()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodeMPIWinExit(d *Decoder, r *Record) (Value, error) {
	var v MPIWinExit
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	v.Win = r.ReadU4()
	v.Comm = r.ReadU4()
	v.Synex = r.ReadU1()
	return v, nil
}

func decodeMPIWinCollExit(d *Decoder, r *Record) (Value, error) {
	var v MPIWinCollExit
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	v.Win = r.ReadU4()
	return v, nil
}

func decodeMPIWinLock(d *Decoder, r *Record) (Value, error) {
	var v MPIWinLock
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Lock = r.ReadU4()
	v.Win = r.ReadU4()
	v.LockType = r.ReadU1()
	return v, nil
}

func decodeMPIWinUnlock(d *Decoder, r *Record) (Value, error) {
	var v MPIWinUnlock
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Lock = r.ReadU4()
	v.Win = r.ReadU4()
	return v, nil
}

func decodePut1TS(d *Decoder, r *Record) (Value, error) {
	var v Put1TS
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.RMA = r.ReadU4()
	v.Bytes = r.ReadU4()
	return v, nil
}

func decodePut1TE(d *Decoder, r *Record) (Value, error) {
	var v Put1TE
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Source = r.ReadU4()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodePut1TERemote(d *Decoder, r *Record) (Value, error) {
	var v Put1TERemote
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodeGet1TS(d *Decoder, r *Record) (Value, error) {
	var v Get1TS
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.RMA = r.ReadU4()
	v.Bytes = r.ReadU4()
	return v, nil
}

func decodeGet1TSRemote(d *Decoder, r *Record) (Value, error) {
	var v Get1TSRemote
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Dest = r.ReadU4()
	v.RMA = r.ReadU4()
	v.Bytes = r.ReadU4()
	return v, nil
}

func decodeGet1TE(d *Decoder, r *Record) (Value, error) {
	var v Get1TE
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Source = r.ReadU4()
	v.RMA = r.ReadU4()
	return v, nil
}

func decodeCollExit(d *Decoder, r *Record) (Value, error) {
	var v CollExit
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	v.Root = r.ReadU4()
	v.Comm = r.ReadU4()
	v.Sent = r.ReadU4()
	v.Recvd = r.ReadU4()
	return v, nil
}

func decodeALock(d *Decoder, r *Record) (Value, error) {
	var v ALock
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Lock = r.ReadU4()
	return v, nil
}

func decodeRLock(d *Decoder, r *Record) (Value, error) {
	var v RLock
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Lock = r.ReadU4()
	return v, nil
}

func decodeOMPFork(d *Decoder, r *Record) (Value, error) {
	var v OMPFork
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	return v, nil
}

func decodeOMPJoin(d *Decoder, r *Record) (Value, error) {
	var v OMPJoin
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	return v, nil
}

func decodeOMPALock(d *Decoder, r *Record) (Value, error) {
	var v OMPALock
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Lock = r.ReadU4()
	return v, nil
}

func decodeOMPRLock(d *Decoder, r *Record) (Value, error) {
	var v OMPRLock
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Lock = r.ReadU4()
	return v, nil
}

func decodeOMPCollExit(d *Decoder, r *Record) (Value, error) {
	var v OMPCollExit
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeLogOff(d *Decoder, r *Record) (Value, error) {
	var v LogOff
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeLogOn(d *Decoder, r *Record) (Value, error) {
	var v LogOn
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeEnterTracing(d *Decoder, r *Record) (Value, error) {
	var v EnterTracing
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	return v, nil
}

func decodeExitTracing(d *Decoder, r *Record) (Value, error) {
	var v ExitTracing
	d.inferMetrics(r)
	v.Loc = d.location(r)
	v.Time = r.ReadD8()
	v.Metrics = d.readMetrics(r)
	return v, nil
}
