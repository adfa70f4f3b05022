// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elg

import (
	"bufio"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// TextWriter renders decoded values one per line, as the record name
// followed by name=value pairs.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter returns a TextWriter writing to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// WriteValue writes one line for v.
func (t *TextWriter) WriteValue(v Value) error {
	t.w.WriteString(v.Type().String())
	rv := reflect.ValueOf(v)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		fmt.Fprintf(t.w, " %s=", strings.ToLower(rt.Field(i).Name))
		switch f := rv.Field(i); f.Kind() {
		case reflect.String:
			fmt.Fprintf(t.w, "%q", f.String())
		case reflect.Slice:
			fmt.Fprintf(t.w, "%v", f.Interface())
		default:
			fmt.Fprint(t.w, f.Interface())
		}
	}
	return t.w.WriteByte('\n')
}

// WriteUnknown writes one line for a record whose type has no decoder.
func (t *TextWriter) WriteUnknown(typ Type, length int) error {
	_, err := fmt.Fprintf(t.w, "%s length=%d\n", typ, length)
	return err
}

// Flush writes any buffered text.
func (t *TextWriter) Flush() error {
	return t.w.Flush()
}

// Dump decodes every remaining record of r and renders it to w. It stops
// at the first decode error. Records of the skipped types are read but
// neither decoded nor rendered.
func Dump(w io.Writer, r *Reader, skip ...Type) error {
	tw := NewTextWriter(w)
	d := NewDecoder(r, &Callbacks{
		Value: func(v Value) { tw.WriteValue(v) },
	})
	for _, t := range skip {
		d.Deactivate(t)
	}
	for {
		rec, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			tw.Flush()
			return err
		}
		ok, err := d.Dispatch(rec)
		if err != nil {
			tw.Flush()
			return err
		}
		if !ok {
			tw.WriteUnknown(rec.Type(), rec.Len())
		}
	}
	return tw.Flush()
}
