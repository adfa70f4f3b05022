// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Elgdump inspects EPILOG trace files.
//
// Usage:
//
//	elgdump dump [--mapped] [--skip TYPE,...] FILE   print every record, one per line
//	elgdump stat FILE              print record counts and sizes per type
//	elgdump defs FILE              print a summary of the definitions
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/scalasca/pearl/elg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	verbose bool
	mapped  bool
	log     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:          "elgdump",
		Short:        "Inspect EPILOG trace files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if o.verbose {
				o.log, err = zap.NewDevelopment()
			} else {
				cfg := zap.NewProductionConfig()
				cfg.Encoding = "console"
				cfg.OutputPaths = []string{"stderr"}
				o.log, err = cfg.Build()
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.log != nil {
				o.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log debug output")
	root.PersistentFlags().BoolVar(&o.mapped, "mapped", false, "memory-map the trace instead of reading it")
	root.AddCommand(newDumpCmd(o), newStatCmd(o), newDefsCmd(o))
	return root
}

func (o *options) open(path string) (*elg.Reader, error) {
	if o.mapped {
		return elg.OpenMapped(path, elg.WithLogger(o.log))
	}
	return elg.Open(path, elg.WithLogger(o.log))
}

// typeList is a comma-separated list of record type names.
type typeList []elg.Type

var _ pflag.Value = (*typeList)(nil)

func (l *typeList) String() string {
	names := make([]string, len(*l))
	for i, t := range *l {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}

func (l *typeList) Set(s string) error {
	for _, name := range strings.Split(s, ",") {
		t, ok := elg.TypeByName(strings.ToUpper(strings.TrimSpace(name)))
		if !ok {
			return fmt.Errorf("unknown record type %q", name)
		}
		*l = append(*l, t)
	}
	return nil
}

func (l *typeList) Type() string { return "types" }

func newDumpCmd(o *options) *cobra.Command {
	var skip typeList
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print every record of a trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "# version %d, %s\n", r.Version(), r.ByteOrder())
			return elg.Dump(cmd.OutOrStdout(), r, skip...)
		},
	}
	cmd.Flags().Var(&skip, "skip", "record types to leave out, for example ENTER,EXIT")
	return cmd
}
