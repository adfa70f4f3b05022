// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"golang.org/x/xerrors"

	"github.com/scalasca/pearl/elg"
	"github.com/scalasca/pearl/elg/defs"
)

var (
	userRegion = Region{ID: 1, Class: ClassUser}
	mpiRegion  = Region{ID: 2, Class: ClassMPI | CatMPIP2P}
)

func TestTraceBuilder(t *testing.T) {
	b := NewTraceBuilder(3)
	b.Enter(1, userRegion)
	b.Enter(2, mpiRegion)
	b.Add(TypeRMAPutStart, 2.5, 0)
	b.Leave(3, false)
	b.Enter(4, mpiRegion)
	b.Leave(5, true)
	b.Leave(6, false)
	tr, err := b.Trace()
	if err != nil {
		t.Fatal(err)
	}
	want := []Event{
		{ID: 0, Type: TypeEnter, Time: 1, Region: userRegion, Callpath: 0},
		{ID: 1, Type: TypeEnter, Time: 2, Region: mpiRegion, Callpath: 1},
		{ID: 2, Type: TypeRMAPutStart, Time: 2.5, Region: mpiRegion, Callpath: 1},
		{ID: 3, Type: TypeLeave, Time: 3, Region: mpiRegion, Callpath: 1, Enter: 1},
		{ID: 4, Type: TypeEnter, Time: 4, Region: mpiRegion, Callpath: 1},
		{ID: 5, Type: TypeCollLeave, Time: 5, Region: mpiRegion, Callpath: 1, Enter: 4},
		{ID: 6, Type: TypeLeave, Time: 6, Region: userRegion, Callpath: 0, Enter: 0},
	}
	if diff := cmp.Diff(want, tr.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if tr.Rank() != 3 || tr.Len() != len(want) {
		t.Errorf("Rank, Len = %d, %d, want 3, %d", tr.Rank(), tr.Len(), len(want))
	}

	for _, tt := range []struct {
		time float64
		want int
	}{{0, 0}, {1, 0}, {2.2, 2}, {3, 3}, {6, 6}, {7, 7}} {
		if got := tr.LowerBound(tt.time); got != tt.want {
			t.Errorf("LowerBound(%g) = %d, want %d", tt.time, got, tt.want)
		}
	}
	if e, ok := tr.EnterOf(want[5]); !ok || e.ID != 4 {
		t.Errorf("EnterOf(leave 5) = %d, %v, want 4, true", e.ID, ok)
	}
	if _, ok := tr.EnterOf(want[2]); ok {
		t.Error("EnterOf(RMA start) succeeded")
	}
	if _, ok := tr.At(7); ok {
		t.Error("At(7) succeeded")
	}
}

func TestTraceBuilderErrors(t *testing.T) {
	b := NewTraceBuilder(0)
	b.Enter(2, userRegion)
	b.Leave(1, false)
	b.Leave(3, false)
	if _, err := b.Trace(); !xerrors.Is(err, ErrTimeOrder) {
		t.Errorf("decreasing time: err = %v, want %v", err, ErrTimeOrder)
	}

	b = NewTraceBuilder(0)
	b.Leave(1, false)
	if _, err := b.Trace(); !xerrors.Is(err, ErrUnbalanced) {
		t.Errorf("leave first: err = %v, want %v", err, ErrUnbalanced)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name, file string
		want       Class
		progress   bool
	}{
		{"main", "app.c", ClassUser, false},
		{"MPI_Send", "MPI", ClassMPI | CatMPIP2P, true},
		{"MPI_Allreduce", "MPI", ClassMPI | CatMPICollective, true},
		{"MPI_Win_lock", "MPI", ClassMPI | CatMPIRMA | TypeMPIRMAPassive | ModeRMALock, true},
		{"MPI_Win_fence", "", ClassMPI | CatMPIRMA | TypeMPIRMAColl | ModeRMAFence, true},
		{"MPI_Put", "MPI", ClassMPI | CatMPIRMA | TypeMPIRMAComm | ModeRMAPut, true},
		{"ARMCI_Put", "ARMCI", ClassARMCI | CatARMCIComm, true},
		{"ARMCI_Barrier", "", ClassARMCI | CatARMCISync, true},
		{"!$omp parallel @foo.c:12", "", ClassOMP | CatOMPParallel, false},
		{"pthread_mutex_lock", "PTHREAD", ClassPthread | CatPthreadSync, false},
		{"TRACING", "EPIK", ClassInternal, false},
	}
	for _, tt := range tests {
		c := Classify(tt.name, tt.file)
		if c != tt.want {
			t.Errorf("Classify(%q, %q) = %#x, want %#x", tt.name, tt.file, c, tt.want)
		}
		if got := IsProgress(c); got != tt.progress {
			t.Errorf("IsProgress(%q) = %v, want %v", tt.name, got, tt.progress)
		}
	}
	if !IsMPIRMAPassive(Classify("MPI_Win_unlock", "MPI")) || IsMPIRMAPassive(Classify("MPI_Win_fence", "MPI")) {
		t.Error("IsMPIRMAPassive misclassifies window calls")
	}
	if !IsInternal(Classify("PAUSE", "EPIK")) || IsInternal(ClassUser) {
		t.Error("IsInternal misclassifies regions")
	}
}

func TestLoadTrace(t *testing.T) {
	var buf bytes.Buffer
	w, err := elg.NewWriter(&buf, elg.WriterConfig{})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []elg.Value{
		elg.String{ID: 0, Str: "MPI"},
		elg.String{ID: 1, Str: "MPI_Win_unlock"},
		elg.String{ID: 2, Str: "main"},
		elg.String{ID: 3, Str: "app.c"},
		elg.File{ID: 0, NameID: 0},
		elg.File{ID: 1, NameID: 3},
		elg.Region{ID: 0, NameID: 2, File: 1, DescID: elg.NoID},
		elg.Region{ID: 1, NameID: 1, File: 0, DescID: elg.NoID},
		elg.Location{ID: 0},
		elg.Location{ID: 1, Thread: 1},
		elg.Enter{Loc: 0, Time: 1, Region: 0},
		elg.Enter{Loc: 0, Time: 2, Region: 1},
		elg.MPIPut1TS{Loc: 0, Time: 3, Dest: 1, Win: 1},
		elg.Enter{Loc: 1, Time: 3.2, Region: 0},
		elg.MPIWinUnlock{Loc: 0, Time: 3.5, Lock: 2, Win: 1},
		elg.Exit{Loc: 0, Time: 4},
		elg.Exit{Loc: 1, Time: 4.5},
		elg.Exit{Loc: 0, Time: 5},
	} {
		if err := w.Write(v); err != nil {
			t.Fatalf("writing %s: %v", v.Type(), err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := elg.NewReader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	d, err := defs.Load(r, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	r, err = elg.NewReader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := LoadTrace(r, d, 0, 5)
	if err != nil {
		t.Fatal(err)
	}

	main := Region{ID: 0, Class: ClassUser}
	unlock := Region{ID: 1, Class: ClassMPI | CatMPIRMA | TypeMPIRMAPassive | ModeRMAUnlock}
	want := []Event{
		{ID: 0, Type: TypeEnter, Time: 1, Region: main, Callpath: 0},
		{ID: 1, Type: TypeEnter, Time: 2, Region: unlock, Callpath: 1},
		{ID: 2, Type: TypeRMAPutStart, Time: 3, Region: unlock, Callpath: 1},
		{ID: 3, Type: TypeWinUnlock, Time: 3.5, Region: unlock, Callpath: 1, Lock: WinLockID(1, 2)},
		{ID: 4, Type: TypeLeave, Time: 4, Region: unlock, Callpath: 1, Enter: 1},
		{ID: 5, Type: TypeLeave, Time: 5, Region: main, Callpath: 0, Enter: 0},
	}
	if diff := cmp.Diff(want, tr.Events()); diff != "" {
		t.Errorf("loaded events (-want +got):\n%s", diff)
	}
	if tr.Rank() != 5 {
		t.Errorf("Rank() = %d, want 5", tr.Rank())
	}
}
