// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/scalasca/pearl/elg"
	"github.com/scalasca/pearl/elg/defs"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type typeStat struct {
	typ   elg.Type
	count uint64
	bytes uint64
}

func newStatCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stat FILE",
		Short: "Print record counts and sizes per type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			stats, err := collectStats(r)
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), stats)
		},
	}
}

func collectStats(r *elg.Reader) ([]typeStat, error) {
	byType := make(map[elg.Type]*typeStat)
	for {
		rec, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		s, ok := byType[rec.Type()]
		if !ok {
			s = &typeStat{typ: rec.Type()}
			byType[rec.Type()] = s
		}
		s.count++
		s.bytes += uint64(2 + rec.Len())
	}
	stats := make([]typeStat, 0, len(byType))
	for _, s := range byType {
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b typeStat) int { return int(a.typ) - int(b.typ) })
	return stats, nil
}

func printStats(w io.Writer, stats []typeStat) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TYPE\tRECORDS\tSIZE\t")
	var count, size uint64
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", s.typ, humanize.Comma(int64(s.count)), humanize.IBytes(s.bytes))
		count += s.count
		size += s.bytes
	}
	fmt.Fprintf(tw, "total\t%s\t%s\t\n", humanize.Comma(int64(count)), humanize.IBytes(size))
	return tw.Flush()
}

func newDefsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "defs FILE",
		Short: "Print a summary of the definitions of a trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			c, err := defs.Load(r, o.log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			counts := c.Counts()
			names := maps.Keys(counts)
			slices.Sort(names)
			tw := tabwriter.NewWriter(out, 0, 8, 1, ' ', 0)
			for _, name := range names {
				if counts[name] > 0 {
					fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, id := range c.Regions() {
				region, _ := c.Region(id)
				fmt.Fprintf(out, "region %d %q lines %d-%d\n", id, c.RegionName(id), region.BeginLine, region.EndLine)
			}
			if !c.Complete() {
				fmt.Fprintln(out, "# no LAST_DEF record")
			}
			return nil
		},
	}
}
