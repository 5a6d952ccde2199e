// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package msh implements an arena of hierarchically refined quadrilaterals
package msh

import (
	"math"
	"sort"

	"github.com/cpmech/gosl/chk"
)

// MaxDepth is the deepest refinement level that can be represented by vertex keys
const MaxDepth = 24

// Flag is the refinement flag of an element
type Flag int

// refinement flags
const (
	DoNothing Flag = iota
	Refine
	Coarsen
	Inactive
	JustRefined
	JustCoarsened
)

// String returns the flag name
func (o Flag) String() string {
	switch o {
	case DoNothing:
		return "DO_NOTHING"
	case Refine:
		return "REFINE"
	case Coarsen:
		return "COARSEN"
	case Inactive:
		return "INACTIVE"
	case JustRefined:
		return "JUST_REFINED"
	case JustCoarsened:
		return "JUST_COARSENED"
	}
	return "UNKNOWN"
}

// local numbering of corners and sides
//
//    3 ----2---- 2
//    |           |
//    3           1
//    |           |
//    0 ----0---- 1
//
// children are numbered as corners; side s joins corners s and (s+1)%4
var (
	cornerX = [4]int{0, 1, 1, 0}
	cornerY = [4]int{0, 0, 1, 1}
	sideDi  = [4]int{0, 1, 0, -1}
	sideDj  = [4]int{-1, 0, 1, 0}
)

// Elem holds an element (cell) of the arena. Parent, Children and Neighbors are indices in
// Mesh.Elems; -1 means none
type Elem struct {
	Id        int    // index in Mesh.Elems
	Level     int    // refinement level; 0 for root cells
	I, J      int    // position in the grid of level Level
	Parent    int    // parent element; -1 for root cells
	Children  []int  // [4] children ordered as corners; nil if not refined
	Neighbors [4]int // element of same level (or coarser) across each side; -1 => boundary
	Active    bool   // element is a leaf
	Removed   bool   // element was deleted by coarsening
	Flag      Flag   // refinement flag
}

// VertKey identifies a vertex by its integer coordinates on the grid of level MaxDepth
type VertKey struct {
	X, Y int
}

// cellKey identifies a cell by level and grid position
type cellKey struct {
	L, I, J int
}

// Mesh holds all elements, active or not, in a contiguous table
type Mesh struct {
	X0, Y0 float64 // lower-left corner of root grid
	H0     float64 // size of root cells
	Elems  []*Elem // all elements; including inactive and removed ones

	grid     map[cellKey]int // maps level/position to element id (removed elements excluded)
	active   []int           // ids of active elements, ascending
	revision int             // incremented after each topological change
}

// NewGrid returns a mesh with nx×ny root cells of size h, except the ones for which skip
// returns true
func NewGrid(nx, ny int, x0, y0, h float64, skip func(i, j int) bool) (o *Mesh) {
	if nx < 1 || ny < 1 || h <= 0 {
		chk.Panic("cannot allocate grid with nx=%d, ny=%d and h=%g", nx, ny, h)
	}
	o = &Mesh{X0: x0, Y0: y0, H0: h, grid: make(map[cellKey]int)}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if skip != nil && skip(i, j) {
				continue
			}
			o.add(&Elem{Level: 0, I: i, J: j, Parent: -1, Active: true})
		}
	}
	o.Update()
	return
}

// NewSquare returns the unit square [0,1]² divided into ndiv×ndiv cells
func NewSquare(ndiv int) *Mesh {
	return NewGrid(ndiv, ndiv, 0, 0, 1.0/float64(ndiv), nil)
}

// NewLShape returns the L-shaped domain [-1,1]² \ (0,1]×[-1,0) with ndiv cells per unit length.
// With ndiv=8, there are 192 cells
func NewLShape(ndiv int) *Mesh {
	return NewGrid(2*ndiv, 2*ndiv, -1, -1, 1.0/float64(ndiv), func(i, j int) bool {
		return i >= ndiv && j < ndiv
	})
}

// Revision returns a counter that changes whenever the topology changes
func (o *Mesh) Revision() int { return o.revision }

// NActiveElem returns the number of active elements
func (o *Mesh) NActiveElem() int { return len(o.active) }

// ActiveElems returns the ids of active elements in ascending order.
//  Note: the slice is owned by the mesh and is valid until the next Update
func (o *Mesh) ActiveElems() []int { return o.active }

// Elem returns element by id
func (o *Mesh) Elem(id int) *Elem { return o.Elems[id] }

// MaxLevel returns the maximum level among active elements
func (o *Mesh) MaxLevel() (lmax int) {
	for _, id := range o.active {
		if o.Elems[id].Level > lmax {
			lmax = o.Elems[id].Level
		}
	}
	return
}

// Size returns the side length of element
func (o *Mesh) Size(id int) float64 {
	return math.Ldexp(o.H0, -o.Elems[id].Level)
}

// Origin returns the coordinates of the lower-left corner of element
func (o *Mesh) Origin(id int) (x, y float64) {
	e := o.Elems[id]
	h := math.Ldexp(o.H0, -e.Level)
	return o.X0 + float64(e.I)*h, o.Y0 + float64(e.J)*h
}

// Center returns the coordinates of the centre of element
func (o *Mesh) Center(id int) (x, y float64) {
	x, y = o.Origin(id)
	h := o.Size(id) / 2
	return x + h, y + h
}

// Corner returns the coordinates of corner k of element
func (o *Mesh) Corner(id, k int) (x, y float64) {
	x, y = o.Origin(id)
	h := o.Size(id)
	return x + float64(cornerX[k])*h, y + float64(cornerY[k])*h
}

// VertexKey returns the key of corner k of element
func (o *Mesh) VertexKey(id, k int) VertKey {
	e := o.Elems[id]
	s := uint(MaxDepth - e.Level)
	return VertKey{(e.I + cornerX[k]) << s, (e.J + cornerY[k]) << s}
}

// MidKey returns the key of the mid-point of side s of element
func (o *Mesh) MidKey(id, s int) VertKey {
	a, b := o.VertexKey(id, s), o.VertexKey(id, (s+1)%4)
	return VertKey{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// KeyCoords returns the coordinates of a vertex key
func (o *Mesh) KeyCoords(k VertKey) (x, y float64) {
	h := math.Ldexp(o.H0, -MaxDepth)
	return o.X0 + float64(k.X)*h, o.Y0 + float64(k.Y)*h
}

// ActiveNeighbors appends to buf the active elements across side s of element id.
// The result has one element if the neighbour is as fine or coarser and more if it is finer
func (o *Mesh) ActiveNeighbors(id, s int, buf []int) []int {
	nb := o.Elems[id].Neighbors[s]
	if nb < 0 {
		return buf
	}
	return o.collectSide(nb, (s+2)%4, buf)
}

// SideChildren returns the two children of a refined element touching side s
func SideChildren(s int) (a, b int) {
	return s, (s + 1) % 4
}

// RefineElem splits an active element into four children
func (o *Mesh) RefineElem(id int) (err error) {
	e := o.Elems[id]
	if !e.Active || e.Removed {
		return chk.Err("cannot refine inactive element %d", id)
	}
	if e.Level >= MaxDepth {
		return chk.Err("cannot refine element %d beyond level %d", id, MaxDepth)
	}
	e.Children = make([]int, 4)
	for c := 0; c < 4; c++ {
		e.Children[c] = o.add(&Elem{
			Level:  e.Level + 1,
			I:      2*e.I + cornerX[c],
			J:      2*e.J + cornerY[c],
			Parent: id,
			Active: true,
			Flag:   JustRefined,
		})
	}
	e.Active = false
	e.Flag = Inactive
	return
}

// CoarsenParent deletes the children of a parent whose children are all active
func (o *Mesh) CoarsenParent(id int) (err error) {
	p := o.Elems[id]
	if p.Active || len(p.Children) != 4 {
		return chk.Err("element %d is not a parent and cannot be coarsened", id)
	}
	for _, c := range p.Children {
		if !o.Elems[c].Active {
			return chk.Err("cannot coarsen parent %d because child %d is not active", id, c)
		}
	}
	for _, c := range p.Children {
		child := o.Elems[c]
		child.Removed = true
		child.Active = false
		child.Flag = Inactive
		delete(o.grid, cellKey{child.Level, child.I, child.J})
	}
	p.Children = nil
	p.Active = true
	p.Flag = JustCoarsened
	return
}

// Update recomputes neighbours and the list of active elements and bumps the revision.
// Must be called after RefineElem/CoarsenParent
func (o *Mesh) Update() {
	o.active = o.active[:0]
	for _, e := range o.Elems {
		if e.Removed {
			continue
		}
		for s := 0; s < 4; s++ {
			e.Neighbors[s] = o.find(e.Level, e.I+sideDi[s], e.J+sideDj[s])
		}
		if e.Active {
			o.active = append(o.active, e.Id)
		}
	}
	sort.Ints(o.active)
	o.revision++
}

// CleanFlags resets flags of active elements to DoNothing and of inactive ones to Inactive
func (o *Mesh) CleanFlags() {
	for _, e := range o.Elems {
		if e.Active {
			e.Flag = DoNothing
		} else {
			e.Flag = Inactive
		}
	}
}

// CheckOneIrregular returns an error if two face-adjacent active elements differ by more
// than one refinement level
func (o *Mesh) CheckOneIrregular() (err error) {
	var buf []int
	for _, id := range o.active {
		e := o.Elems[id]
		for s := 0; s < 4; s++ {
			buf = o.ActiveNeighbors(id, s, buf[:0])
			for _, nb := range buf {
				if d := o.Elems[nb].Level - e.Level; d > 1 || d < -1 {
					return chk.Err("elements %d (level %d) and %d (level %d) violate 1-irregularity", id, e.Level, nb, o.Elems[nb].Level)
				}
			}
		}
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// add appends element to arena
func (o *Mesh) add(e *Elem) int {
	e.Id = len(o.Elems)
	e.Neighbors = [4]int{-1, -1, -1, -1}
	o.Elems = append(o.Elems, e)
	o.grid[cellKey{e.Level, e.I, e.J}] = e.Id
	return e.Id
}

// find returns the element at (l,i,j) or its deepest existing ancestor position; -1 if none
func (o *Mesh) find(l, i, j int) int {
	for ; l >= 0; l-- {
		if id, ok := o.grid[cellKey{l, i, j}]; ok {
			return id
		}
		i >>= 1
		j >>= 1
	}
	return -1
}

// collectSide appends the active descendants of id that touch side s of id
func (o *Mesh) collectSide(id, s int, buf []int) []int {
	e := o.Elems[id]
	if e.Active {
		return append(buf, id)
	}
	a, b := SideChildren(s)
	buf = o.collectSide(e.Children[a], s, buf)
	return o.collectSide(e.Children[b], s, buf)
}
