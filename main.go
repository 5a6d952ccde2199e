// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/certik/libmesh-sub001/fem"
	"github.com/certik/libmesh-sub001/inp"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/spf13/cobra"
)

// flags
var (
	paramsFile  string
	dirout      string
	verbose     bool
	outputVTK   bool
	saveSummary bool
)

// newRootCmd returns the command line interface bound to the flag variables
func newRootCmd() (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "adaptfem [params file]",
		Short: "Adaptive finite elements with adjoint-weighted error estimation",
		Long: `adaptfem solves the corner singularity problem on the L-shaped domain, estimates the
error of quantities of interest and refines the mesh until the number of steps or the
target is reached. Parameters are read from GetPot (key = value) or YAML files.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringVarP(&paramsFile, "params", "p", "examples/lshaped.in", "parameters file")
	cmd.Flags().StringVarP(&dirout, "dirout", "o", "", "output directory; overrides dirout in parameters file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", true, "show messages; overrides verbose in parameters file")
	cmd.Flags().BoolVar(&outputVTK, "vtk", false, "write VTK files at each step; overrides output_vtk in parameters file")
	cmd.Flags().BoolVar(&saveSummary, "summary", true, "save summary of QoI errors")
	return
}

// readSim reads the parameters file and applies the flags given in the command line. The
// default of verbose is used only if the parameters file does not set it
func readSim(cmd *cobra.Command, args []string) (sim *inp.Simulation, err error) {
	if len(args) > 0 {
		paramsFile = args[0]
	}
	sim, err = inp.ReadSim(paramsFile)
	if err != nil {
		return
	}
	flags := cmd.Flags()
	if dirout != "" {
		sim.Data.DirOut = dirout
	}
	if flags.Changed("vtk") {
		sim.Data.OutputVTK = outputVTK
	}
	if flags.Changed("verbose") || !sim.Params.Has("verbose") {
		sim.Data.Verbose = verbose
	}
	return
}

func run(cmd *cobra.Command, args []string) (err error) {

	// input data
	sim, err := readSim(cmd, args)
	if err != nil {
		return
	}

	// message
	if sim.Data.Verbose {
		io.PfWhite("\nadaptfem -- adaptive finite elements with goal-oriented error estimation\n")
		io.Pf("Copyright 2016 The Gofem Authors. All rights reserved.\n")
		io.Pf("Use of this source code is governed by a BSD-style\n")
		io.Pf("license that can be found in the LICENSE file.\n")
		io.Pf("\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
			"parameters file", "params", paramsFile,
			"output directory", "dirout", sim.Data.DirOut,
			"write VTK files", "vtk", sim.Data.OutputVTK,
			"save summary", "summary", saveSummary,
		))
	}

	// run simulation
	driver, err := fem.NewDriver(sim, nil)
	if err != nil {
		return
	}
	driver.SaveSummary = saveSummary
	return driver.Run()
}

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			io.PfRed("\nERROR: %v", err)
			io.Pf("See location of error below:\n")
			chk.Verbose = true
			for i := 5; i > 3; i-- {
				chk.CallerInfo(i)
			}
			os.Exit(1)
		}
	}()

	// execute command
	if err := newRootCmd().Execute(); err != nil {
		io.PfRed("ERROR: %v\n", err)
		os.Exit(1)
	}
}
