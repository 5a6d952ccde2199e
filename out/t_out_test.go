// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func twoQuads() *Grid {
	g := NewGrid()
	g.X = []float64{0, 1, 2, 0, 1, 2}
	g.Y = []float64{0, 0, 0, 1, 1, 1}
	g.Quads = [][4]int{{0, 1, 4, 3}, {1, 2, 5, 4}}
	g.Point["u"] = []float64{0, 1, 2, 0, 1, 2}
	g.Cell["level"] = []float64{0, 1}
	return g
}

func Test_vtk01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("vtk01. legacy format")

	g := twoQuads()
	var buf bytes.Buffer
	err := g.Encode(&buf, "two quads")
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	res := buf.String()
	io.Pforan("%s\n", res)
	lines := strings.Split(res, "\n")
	chk.String(tst, lines[0], "# vtk DataFile Version 3.0")
	chk.String(tst, lines[1], "two quads")
	chk.String(tst, lines[4], "POINTS 6 double")
	for _, s := range []string{"CELLS 2 10\n4 0 1 4 3\n4 1 2 5 4\n", "CELL_TYPES 2\n9\n9\n", "POINT_DATA 6\nSCALARS u double 1", "CELL_DATA 2\nSCALARS level double 1"} {
		if !strings.Contains(res, s) {
			tst.Errorf("output should contain %q\n", s)
		}
	}

	g.Cell["level"] = []float64{0}
	err = g.Encode(&buf, "bad")
	if err == nil {
		tst.Errorf("wrong number of cell values should fail\n")
	}
	g.Quads[1][2] = 6
	err = g.Check()
	if err == nil {
		tst.Errorf("vertex out of range should fail\n")
	}
}

func Test_summary01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("summary01. save and read")

	type step struct {
		Step   int       `json:"step"`
		Errors []float64 `json:"errors"`
	}
	steps := []step{{0, []float64{0.1, 0.2}}, {1, []float64{0.05, 0.08}}}
	sum := Summary{Key: "t_summary01", Desc: "test"}
	fn, err := sum.Save("/tmp/adaptfem/out", steps)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.String(tst, fn, "t_summary01-summary.json")

	var res []step
	read, err := ReadSummary("/tmp/adaptfem/out", "t_summary01", &res)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.String(tst, read.Desc, "test")
	chk.Int(tst, "nsteps", len(res), 2)
	chk.Int(tst, "step", res[1].Step, 1)
	chk.Array(tst, "errors", 1e-17, res[1].Errors, []float64{0.05, 0.08})

	_, err = ReadSummary("/tmp/adaptfem/out", "t_summary01_missing", nil)
	if err == nil {
		tst.Errorf("reading a missing summary should fail\n")
	}
}
