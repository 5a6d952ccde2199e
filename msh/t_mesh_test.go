// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msh

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func Test_mesh01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mesh01. L-shaped domain")

	m := NewLShape(8)
	chk.Int(tst, "nactive", m.NActiveElem(), 192)
	chk.Int(tst, "revision", m.Revision(), 1)

	// first cell: lower-left corner of domain
	x, y := m.Origin(0)
	chk.Float64(tst, "x0", 1e-15, x, -1)
	chk.Float64(tst, "y0", 1e-15, y, -1)
	chk.Float64(tst, "h", 1e-15, m.Size(0), 0.125)
	chk.Ints(tst, "neighbours of 0", m.Elems[0].Neighbors[:], []int{-1, 1, 8, -1})

	// cell 7 touches the hole on its right side
	chk.Int(tst, "right of 7", m.Elems[7].Neighbors[1], -1)

	// re-entrant corner at (0,0) is vertex 2 of cell 63
	x, y = m.Corner(63, 2)
	chk.Float64(tst, "corner x", 1e-15, x, 0)
	chk.Float64(tst, "corner y", 1e-15, y, 0)
}

func Test_mesh02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mesh02. refine and coarsen")

	m := NewSquare(2) // cells: 0 1 / 2 3
	err := m.RefineElem(0)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	m.Update()
	chk.Int(tst, "nactive", m.NActiveElem(), 7)
	chk.Ints(tst, "children", m.Elems[0].Children, []int{4, 5, 6, 7})

	// child 5 (lower-right) sees coarse cell 1 on its right
	chk.Int(tst, "right of 5", m.Elems[5].Neighbors[1], 1)
	chk.Int(tst, "left of 5", m.Elems[5].Neighbors[3], 4)
	chk.Int(tst, "top of 5", m.Elems[5].Neighbors[2], 6)

	// coarse cell 1 sees children 5 and 6 on its left
	nbs := m.ActiveNeighbors(1, 3, nil)
	chk.Ints(tst, "active left of 1", nbs, []int{5, 6})

	// hanging vertex: mid-point of left side of cell 1 is corner 2 of child 5
	if m.MidKey(1, 3) != m.VertexKey(5, 2) {
		tst.Errorf("mid-point key mismatch\n")
	}
	x, y := m.KeyCoords(m.MidKey(1, 3))
	chk.Float64(tst, "mid x", 1e-15, x, 0.5)
	chk.Float64(tst, "mid y", 1e-15, y, 0.25)

	if err = m.CheckOneIrregular(); err != nil {
		tst.Errorf("%v", err)
	}

	// refining child 6 (upper-right of cell 0) breaks 1-irregularity with cell 1
	m.RefineElem(6)
	m.Update()
	if m.CheckOneIrregular() == nil {
		tst.Errorf("grandchildren of 0 and cell 1 differ by 2 levels; check should have failed\n")
	}

	// coarsen back
	rev := m.Revision()
	err = m.CoarsenParent(0)
	if err == nil {
		tst.Errorf("coarsening parent with refined child should have failed\n")
		return
	}
	err = m.CoarsenParent(6)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	m.Update()
	if m.Revision() == rev {
		tst.Errorf("revision should have changed\n")
	}
	chk.Int(tst, "nactive", m.NActiveElem(), 7)
	if m.Elems[6].Flag != JustCoarsened {
		tst.Errorf("flag of 6 should be JUST_COARSENED; got %v", m.Elems[6].Flag)
	}
	err = m.CoarsenParent(0)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	m.Update()
	chk.Int(tst, "nactive", m.NActiveElem(), 4)
	chk.Ints(tst, "active", m.ActiveElems(), []int{0, 1, 2, 3})
	for _, c := range []int{4, 5, 6, 7} {
		if !m.Elems[c].Removed {
			tst.Errorf("child %d should be removed\n", c)
		}
	}
	chk.Ints(tst, "neighbours of 1", m.Elems[1].Neighbors[:], []int{-1, -1, 3, 0})
}

func Test_mesh03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mesh03. two-level jump is detected")

	m := NewSquare(2)
	m.RefineElem(0)
	m.Update()
	m.RefineElem(5) // lower-right child of 0; touches cell 1
	m.Update()
	err := m.CheckOneIrregular()
	io.Pforan("err = %v\n", err)
	if err == nil {
		tst.Errorf("1-irregularity violation should have been detected\n")
	}
	m.CleanFlags()
	for _, id := range m.ActiveElems() {
		if m.Elems[id].Flag != DoNothing {
			tst.Errorf("flag of %d should be DO_NOTHING\n", id)
		}
	}
	if m.Elems[0].Flag != Inactive {
		tst.Errorf("flag of 0 should be INACTIVE\n")
	}
}
