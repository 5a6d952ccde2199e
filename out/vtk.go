// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements output of adaptive FE results: VTK files for visualisation and
// JSON summaries of the error history
package out

import (
	"bytes"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Grid holds a snapshot of a quadrilateral grid and its results
type Grid struct {
	X, Y  []float64            // [nverts] coordinates
	Quads [][4]int             // [ncells] connectivity; counter-clockwise
	Point map[string][]float64 // [nverts] point data
	Cell  map[string][]float64 // [ncells] cell data
}

// NewGrid returns a new empty grid
func NewGrid() *Grid {
	return &Grid{Point: make(map[string][]float64), Cell: make(map[string][]float64)}
}

// Check checks the sizes of arrays
func (o *Grid) Check() (err error) {
	nv := len(o.X)
	if len(o.Y) != nv {
		return chk.Err("number of x (%d) and y (%d) coordinates must be equal", nv, len(o.Y))
	}
	for c, q := range o.Quads {
		for _, v := range q {
			if v < 0 || v >= nv {
				return chk.Err("cell %d references vertex %d out of range [0,%d)", c, v, nv)
			}
		}
	}
	for key, vals := range o.Point {
		if len(vals) != nv {
			return chk.Err("point data %q has %d values; %d expected", key, len(vals), nv)
		}
	}
	for key, vals := range o.Cell {
		if len(vals) != len(o.Quads) {
			return chk.Err("cell data %q has %d values; %d expected", key, len(vals), len(o.Quads))
		}
	}
	return
}

// Encode writes the grid in the VTK legacy ASCII format
func (o *Grid) Encode(buf *bytes.Buffer, title string) (err error) {
	err = o.Check()
	if err != nil {
		return
	}

	// header
	nv, nc := len(o.X), len(o.Quads)
	io.Ff(buf, "# vtk DataFile Version 3.0\n%s\nASCII\nDATASET UNSTRUCTURED_GRID\n", title)

	// points and cells
	io.Ff(buf, "POINTS %d double\n", nv)
	for i := 0; i < nv; i++ {
		io.Ff(buf, "%23.15e %23.15e %23.15e\n", o.X[i], o.Y[i], 0.0)
	}
	io.Ff(buf, "CELLS %d %d\n", nc, 5*nc)
	for _, q := range o.Quads {
		io.Ff(buf, "4 %d %d %d %d\n", q[0], q[1], q[2], q[3])
	}
	io.Ff(buf, "CELL_TYPES %d\n", nc)
	for i := 0; i < nc; i++ {
		io.Ff(buf, "9\n") // VTK_QUAD
	}

	// data
	if len(o.Point) > 0 {
		io.Ff(buf, "POINT_DATA %d\n", nv)
		scalars(buf, o.Point)
	}
	if len(o.Cell) > 0 {
		io.Ff(buf, "CELL_DATA %d\n", nc)
		scalars(buf, o.Cell)
	}
	return
}

// WriteVTK writes the grid to dirout/fn
func (o *Grid) WriteVTK(dirout, fn, title string) (err error) {
	var buf bytes.Buffer
	err = o.Encode(&buf, title)
	if err != nil {
		return
	}
	io.WriteFileD(dirout, fn, &buf)
	return
}

// scalars writes scalar fields sorted by name
func scalars(buf *bytes.Buffer, data map[string][]float64) {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		io.Ff(buf, "SCALARS %s double 1\nLOOKUP_TABLE default\n", key)
		for _, v := range data[key] {
			io.Ff(buf, "%23.15e\n", v)
		}
	}
}
