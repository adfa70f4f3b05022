// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import (
	"bytes"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/tools/txtar"
	"golang.org/x/xerrors"
)

func TestReader(t *testing.T) {
	matches, err := filepath.Glob("./testdata/*.test")
	if err != nil {
		t.Fatalf("failed to glob for tests: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no tests found")
	}
	for _, testPath := range matches {
		testPath := testPath
		t.Run(filepath.Base(testPath), func(t *testing.T) {
			trace, exp, want := parseTestFile(t, testPath)
			r, err := NewReader(trace)
			if err != nil {
				exp.check(t, err)
				return
			}
			var buf bytes.Buffer
			if err := Dump(&buf, r); err != nil {
				exp.check(t, err)
				return
			}
			exp.check(t, nil)
			if diff := cmp.Diff(want, buf.String()); diff != "" {
				t.Errorf("dump mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// parseTestFile reads a txtar test with an expectation, a hex-encoded
// trace and, for successful tests, the expected dump.
func parseTestFile(t *testing.T, testPath string) ([]byte, expectation, string) {
	t.Helper()

	ar, err := txtar.ParseFile(testPath)
	if err != nil {
		t.Fatalf("failed to read test file for %s: %v", testPath, err)
	}
	if len(ar.Files) != 2 && len(ar.Files) != 3 {
		t.Fatalf("malformed test %s: wrong number of files", testPath)
	}
	if ar.Files[0].Name != "expect" {
		t.Fatalf("malformed test %s: bad filename %s", testPath, ar.Files[0].Name)
	}
	if ar.Files[1].Name != "trace" {
		t.Fatalf("malformed test %s: bad filename %s", testPath, ar.Files[1].Name)
	}
	trace, err := parseHex(ar.Files[1].Data)
	if err != nil {
		t.Fatalf("malformed test %s: bad trace file: %v", testPath, err)
	}
	var dump string
	if len(ar.Files) == 3 {
		if ar.Files[2].Name != "dump" {
			t.Fatalf("malformed test %s: bad filename %s", testPath, ar.Files[2].Name)
		}
		dump = string(ar.Files[2].Data)
	}
	return trace, parseExpectation(t, ar.Files[0].Data), dump
}

// parseHex decodes whitespace-separated hex strings. A '#' starts a
// comment running to the end of the line.
func parseHex(data []byte) ([]byte, error) {
	var out []byte
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, f := range strings.Fields(line) {
			b, err := hex.DecodeString(f)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

type expectation struct {
	failure bool
	matcher *regexp.Regexp
}

func (e expectation) check(t *testing.T, err error) {
	t.Helper()

	if !e.failure && err != nil {
		t.Fatalf("unexpected error while reading the trace: %v", err)
	}
	if e.failure && err == nil {
		t.Fatalf("expected error while reading the trace: want something matching %q, got none", e.matcher)
	}
	if e.failure && err != nil && !e.matcher.MatchString(err.Error()) {
		t.Fatalf("unexpected error while reading the trace: want something matching %q, got %s", e.matcher, err.Error())
	}
}

func parseExpectation(t *testing.T, data []byte) expectation {
	t.Helper()

	data = bytes.TrimSpace(data)
	if len(data) < 7 {
		t.Fatalf("malformed expectation file: %s", data)
	}
	var exp expectation
	switch result := string(data[:7]); result {
	case "SUCCESS":
	case "FAILURE":
		exp.failure = true
	default:
		t.Fatalf("malformed expectation file: %s", data)
	}
	if exp.failure {
		quoted := string(bytes.TrimSpace(data[7:]))
		pattern, err := strconv.Unquote(quoted)
		if err != nil {
			t.Fatalf("malformed pattern: not correctly quoted: %s: %v", quoted, err)
		}
		matcher, err := regexp.Compile(pattern)
		if err != nil {
			t.Fatalf("malformed pattern: not a valid regexp: %s: %v", pattern, err)
		}
		exp.matcher = matcher
	}
	return exp
}

// sampleTrace returns a small trace and the offsets of its records.
func sampleTrace(t *testing.T) ([]byte, []int64) {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WriterConfig{})
	if err != nil {
		t.Fatal(err)
	}
	var offs []int64
	for _, v := range []Value{
		Location{ID: 0},
		LastDef{},
		Enter{Loc: 0, Time: 1, Region: 7},
		Exit{Loc: 0, Time: 2},
	} {
		if err := w.Flush(); err != nil {
			t.Fatal(err)
		}
		offs = append(offs, int64(buf.Len()))
		if err := w.Write(v); err != nil {
			t.Fatalf("writing %s: %v", v.Type(), err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), offs
}

func readTypes(t *testing.T, r *Reader) []Type {
	t.Helper()
	var types []Type
	for {
		rec, err := r.ReadRecord()
		if err == io.EOF {
			return types
		}
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		types = append(types, rec.Type())
	}
}

func TestReaderHeader(t *testing.T) {
	data, offs := sampleTrace(t)
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.Version(), uint32(1009); got != want {
		t.Errorf("Version() = %d, want %d", got, want)
	}
	if got := r.ByteOrder(); got != LittleEndian {
		t.Errorf("ByteOrder() = %s, want %s", got, LittleEndian)
	}
	if got, want := r.Offset(), int64(headerLen); got != want || got != offs[0] {
		t.Errorf("Offset() = %d, want %d", got, want)
	}
	want := []Type{TypeLocation, TypeLastDef, TypeEnter, TypeExit}
	if diff := cmp.Diff(want, readTypes(t, r)); diff != "" {
		t.Errorf("record types (-want +got):\n%s", diff)
	}
	if got, want := r.Offset(), int64(len(data)); got != want {
		t.Errorf("Offset() at end = %d, want %d", got, want)
	}
}

func TestReaderSeek(t *testing.T) {
	data, offs := sampleTrace(t)
	dir := t.TempDir()
	plain := filepath.Join(dir, "trace.elg")
	if err := os.WriteFile(plain, data, 0o644); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "trace.elg.gz")
	var zbuf bytes.Buffer
	zw := gzip.NewWriter(&zbuf)
	zw.Write(data)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(compressed, zbuf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		open func() (*Reader, error)
	}{
		{"memory", func() (*Reader, error) { return NewReader(data) }},
		{"file", func() (*Reader, error) { return Open(plain) }},
		{"gzip", func() (*Reader, error) { return Open(compressed) }},
		{"mapped", func() (*Reader, error) { return OpenMapped(plain) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := tc.open()
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			readTypes(t, r)
			if err := r.SeekOffset(offs[2]); err != nil {
				t.Fatalf("Seek(%d): %v", offs[2], err)
			}
			if got := r.Offset(); got != offs[2] {
				t.Errorf("Offset() = %d, want %d", got, offs[2])
			}
			want := []Type{TypeEnter, TypeExit}
			if diff := cmp.Diff(want, readTypes(t, r)); diff != "" {
				t.Errorf("records after seek (-want +got):\n%s", diff)
			}
			if err := r.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
			if err := r.Close(); err != nil {
				t.Errorf("second Close: %v", err)
			}
		})
	}
}

func TestReaderSeekErrors(t *testing.T) {
	data, _ := sampleTrace(t)
	r, err := NewReader(data)
	if err != nil {
		t.Fatal(err)
	}
	for _, off := range []int64{-1, int64(len(data))} {
		if err := r.SeekOffset(off); !xerrors.Is(err, ErrBadOffset) {
			t.Errorf("Seek(%d) = %v, want %v", off, err, ErrBadOffset)
		}
	}

	s, err := NewStreamReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SeekOffset(headerLen); !xerrors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek on stream = %v, want %v", err, ErrNotSeekable)
	}
	if got := readTypes(t, s); len(got) != 4 {
		t.Errorf("stream reader read %d records, want 4", len(got))
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.elg"))
	if !xerrors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open of missing file = %v, want %v", err, fs.ErrNotExist)
	}
}

func TestOpenBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.elg")
	if err := os.WriteFile(path, []byte("EPILOG"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if !xerrors.Is(err, ErrBadHeader) {
		t.Errorf("Open = %v, want %v", err, ErrBadHeader)
	}
}
