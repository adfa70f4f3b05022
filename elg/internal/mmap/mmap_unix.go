// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

// Package mmap provides read-only memory-mapped access to trace files.
package mmap

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// File is a read-only memory-mapped file.
type File struct {
	data []byte

	mu     sync.Mutex
	closed bool
}

// Open memory-maps the named file for reading.
func Open(filename string) (*File, error) {
	const maxSize = 1 << 40

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size < 0 || maxSize < size {
		return nil, fmt.Errorf("mmap: file %q is too large", filename)
	}
	if size == 0 {
		// Mapping an empty file fails with EINVAL.
		return &File{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", filename, err)
	}
	m := &File{data: data}
	runtime.SetFinalizer(m, (*File).Close)
	return m, nil
}

// Bytes returns the mapped contents. The slice must not be used after Close.
func (m *File) Bytes() []byte {
	return m.data
}

// Size returns the size of the mapped file.
func (m *File) Size() int64 {
	return int64(len(m.data))
}

// Close unmaps the file. Closing twice is a no-op.
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	runtime.SetFinalizer(m, nil)
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}
