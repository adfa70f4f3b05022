// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scalasca/pearl/elg"
)

func writeTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.elg")
	w, err := elg.Create(path, elg.WriterConfig{Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []elg.Value{
		elg.String{ID: 0, Str: "compute"},
		elg.Location{ID: 0},
		elg.Region{ID: 1, NameID: 0, BeginLine: 3, EndLine: 9},
		elg.LastDef{},
		elg.Enter{Time: 1, Region: 1},
		elg.Exit{Time: 2},
		elg.Enter{Time: 3, Region: 1},
		elg.Exit{Time: 4},
	} {
		if err := w.Write(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("elgdump %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommands(t *testing.T) {
	path := writeTrace(t)
	for _, tc := range []struct {
		args []string
		want []string
	}{
		{[]string{"dump", path}, []string{
			"# version 1009, little-endian",
			`STRING id=0 cont=0 str="compute"`,
			"ENTER loc=0 time=3 region=1 metrics=[]",
		}},
		{[]string{"stat", path}, []string{"ENTER", "total"}},
		{[]string{"defs", path}, []string{`region 1 "compute" lines 3-9`}},
	} {
		got := run(t, tc.args...)
		for _, w := range tc.want {
			if !strings.Contains(got, w) {
				t.Errorf("elgdump %s: output does not contain %q:\n%s", tc.args[0], w, got)
			}
		}
	}
}

func TestStatTotals(t *testing.T) {
	r, err := elg.Open(writeTrace(t))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	stats, err := collectStats(r)
	if err != nil {
		t.Fatal(err)
	}
	var records uint64
	for i, s := range stats {
		if i > 0 && stats[i-1].typ >= s.typ {
			t.Errorf("stats not sorted by type at %d", i)
		}
		records += s.count
	}
	if records != 8 {
		t.Errorf("counted %d records, want 8", records)
	}
}

func TestDumpSkip(t *testing.T) {
	path := writeTrace(t)
	got := run(t, "dump", "--skip", "enter,STRING", path)
	if strings.Contains(got, "ENTER ") || strings.Contains(got, "STRING ") {
		t.Errorf("skipped records rendered:\n%s", got)
	}
	if !strings.Contains(got, "EXIT loc=0 time=4") {
		t.Errorf("EXIT records missing:\n%s", got)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"dump", "--skip", "NOPE", path})
	if err := cmd.Execute(); err == nil {
		t.Error("dump accepted an unknown record type")
	}
}
