// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package defs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scalasca/pearl/elg"
	"go.uber.org/zap/zaptest"
	"golang.org/x/xerrors"
)

func trace(t *testing.T, raw func(w *elg.Writer) error, vals ...elg.Value) *elg.Reader {
	t.Helper()
	var buf bytes.Buffer
	w, err := elg.NewWriter(&buf, elg.WriterConfig{})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vals {
		if err := w.Write(v); err != nil {
			t.Fatalf("writing %s: %v", v.Type(), err)
		}
	}
	if raw != nil {
		if err := raw(w); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := elg.NewReader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLoad(t *testing.T) {
	long := strings.Repeat("abcdefghij", 70)
	r := trace(t, nil,
		elg.String{ID: 0, Str: "MPI_Win_lock"},
		elg.String{ID: 1, Str: long},
		elg.Location{ID: 3},
		elg.Location{ID: 1},
		elg.Region{ID: 5, NameID: 0, File: elg.NoID, DescID: elg.NoID},
		elg.Enter{Loc: 1, Time: 1, Region: 5},
		elg.MPIGroup{ID: 2, Ranks: []uint32{4, 6}},
		elg.MPICommRef{ID: 7, Group: 2},
		elg.MPIComm{ID: 8, Bitmap: []uint8{0x05, 0x80}},
		elg.Metric{ID: 0, NameID: 1},
		elg.LastDef{},
	)
	c, err := Load(r, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s, ok := c.String(1); !ok || s != long {
		t.Errorf("String(1) = %d bytes, %v, want %d bytes", len(s), ok, len(long))
	}
	if got := c.RegionName(5); got != "MPI_Win_lock" {
		t.Errorf("RegionName(5) = %q", got)
	}
	if got := c.RegionName(6); got != "" {
		t.Errorf("RegionName of undefined region = %q", got)
	}
	if diff := cmp.Diff([]uint32{1, 3}, c.Locations()); diff != "" {
		t.Errorf("Locations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{7, 8}, c.Comms()); diff != "" {
		t.Errorf("Comms (-want +got):\n%s", diff)
	}
	for _, tc := range []struct {
		id   uint32
		want []uint32
	}{
		{7, []uint32{4, 6}},
		{8, []uint32{0, 2, 15}},
	} {
		got, ok := c.CommRanks(tc.id)
		if !ok {
			t.Errorf("CommRanks(%d) not found", tc.id)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("CommRanks(%d) (-want +got):\n%s", tc.id, diff)
		}
	}
	if _, ok := c.CommRanks(9); ok {
		t.Error("CommRanks of undefined communicator found")
	}
	if !c.Complete() {
		t.Error("Complete() = false after LAST_DEF")
	}
	counts := c.Counts()
	if counts["STRING"] != 2 || counts["LOCATION"] != 2 || counts["METRIC"] != 1 {
		t.Errorf("Counts() = %v", counts)
	}
}

func TestUnexpectedStringCnt(t *testing.T) {
	r := trace(t, nil, elg.StringCnt{Str: "orphan"})
	_, err := Load(r, nil)
	if !xerrors.Is(err, ErrUnexpectedStringCnt) {
		t.Errorf("Load = %v, want %v", err, ErrUnexpectedStringCnt)
	}
}

func TestIncompleteString(t *testing.T) {
	// A STRING announcing two continuation records, followed by one.
	primary := append([]byte{9, 0, 0, 0, 2}, bytes.Repeat([]byte{'a'}, elg.MaxLength-5)...)
	for _, tc := range []struct {
		name string
		rest func(w *elg.Writer) error
	}{
		{"interrupted", func(w *elg.Writer) error {
			if err := w.WriteRaw(elg.TypeString, primary); err != nil {
				return err
			}
			if err := w.Write(elg.StringCnt{Str: "b"}); err != nil {
				return err
			}
			return w.Write(elg.Region{ID: 1})
		}},
		{"end of trace", func(w *elg.Writer) error {
			if err := w.WriteRaw(elg.TypeString, primary); err != nil {
				return err
			}
			return w.Write(elg.StringCnt{Str: "b"})
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(trace(t, tc.rest), nil)
			if !xerrors.Is(err, ErrIncompleteString) {
				t.Errorf("Load = %v, want %v", err, ErrIncompleteString)
			}
		})
	}
}
