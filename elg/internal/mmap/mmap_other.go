// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

// Package mmap provides read-only memory-mapped access to trace files.
package mmap

import "os"

// File holds the contents of a file. On this platform the file is read into
// memory instead of being mapped.
type File struct {
	data []byte
}

// Open reads the named file.
func Open(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}

// Bytes returns the file contents.
func (m *File) Bytes() []byte {
	return m.data
}

// Size returns the size of the file.
func (m *File) Size() int64 {
	return int64(len(m.data))
}

// Close releases the contents.
func (m *File) Close() error {
	m.data = nil
	return nil
}
