// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"sort"

	"github.com/certik/libmesh-sub001/est"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/cpmech/gosl/chk"
)

// Term holds one contribution coef・U[Eq] to the value at a vertex
type Term struct {
	Eq   int     // equation number
	Coef float64 // coefficient
}

// Node holds the expansion of the value at a vertex in terms of the unknowns:
//
//   u(vertex) = C + Σ coef・U[eq]
//
// Free vertices have one term with coef=1; Dirichlet vertices have no terms; hanging
// vertices are averages of the end points of the coarse side they lie on
type Node struct {
	Key     msh.VertKey    // vertex key
	X, Y    float64        // coordinates
	Terms   []Term         // contributions of unknowns
	C       float64        // constant part (Dirichlet values)
	Eq      int            // equation number of free vertices; -1 otherwise
	Hanging bool           // vertex is hanging
	hang    [2]msh.VertKey // end points of the coarse side of hanging vertices
	kind    int            // 0: not resolved, 1: resolving, 2: resolved
}

// Domain holds the degrees of freedom of the active elements of a mesh
type Domain struct {

	// input
	Msh *msh.Mesh                  // mesh
	Ebc func(x, y float64) float64 // Dirichlet values on the boundary

	// dofs: set by Reinit
	Nodes    map[msh.VertKey]*Node // all vertices of active elements
	Eq2node  []*Node               // [Neq] free vertices
	Conn     map[int][4]*Node      // active element id => corner nodes
	Neq      int                   // number of equations
	Revision int                   // mesh revision used by Reinit

	// solution
	U       []float64   // [Neq] primal solution
	Adjoint [][]float64 // [nqoi][Neq] adjoint solutions

	// auxiliary
	swapped int // 1+q if U holds the adjoint solution of QoI q; 0 otherwise
}

// NewDomain returns a new domain with allocated dofs
func NewDomain(m *msh.Mesh, ebc func(x, y float64) float64, nqoi int) (o *Domain, err error) {
	o = &Domain{Msh: m, Ebc: ebc, Adjoint: make([][]float64, nqoi)}
	err = o.Reinit()
	return
}

// Reinit rebuilds the degrees of freedom after the mesh has changed. The previous solutions
// are projected onto the new vertices
func (o *Domain) Reinit() (err error) {

	// save previous state
	var prev *snapshot
	if o.Nodes != nil {
		prev = o.snapshot()
	}

	// collect vertices
	o.Nodes = make(map[msh.VertKey]*Node)
	o.Conn = make(map[int][4]*Node)
	boundary := make(map[msh.VertKey]bool)
	hanging := make(map[msh.VertKey][2]msh.VertKey)
	for _, id := range o.Msh.ActiveElems() {
		e := o.Msh.Elem(id)
		var conn [4]*Node
		for k := 0; k < 4; k++ {
			key := o.Msh.VertexKey(id, k)
			n, ok := o.Nodes[key]
			if !ok {
				x, y := o.Msh.KeyCoords(key)
				n = &Node{Key: key, X: x, Y: y, Eq: -1}
				o.Nodes[key] = n
			}
			conn[k] = n
		}
		o.Conn[id] = conn
		for s := 0; s < 4; s++ {
			a, b := o.Msh.VertexKey(id, s), o.Msh.VertexKey(id, (s+1)%4)
			nb := e.Neighbors[s]
			if nb < 0 {
				boundary[a], boundary[b] = true, true
				continue
			}
			if !o.Msh.Elem(nb).Active {
				hanging[o.Msh.MidKey(id, s)] = [2]msh.VertKey{a, b}
			}
		}
	}

	// number equations in a deterministic order
	keys := make([]msh.VertKey, 0, len(o.Nodes))
	for key := range o.Nodes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y == keys[j].Y {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})
	o.Eq2node = o.Eq2node[:0]
	for _, key := range keys {
		n := o.Nodes[key]
		if h, ok := hanging[key]; ok {
			n.Hanging, n.hang = true, h
			continue
		}
		if boundary[key] {
			if o.Ebc != nil {
				n.C = o.Ebc(n.X, n.Y)
			}
			n.kind = 2
			continue
		}
		n.Eq = len(o.Eq2node)
		n.Terms = []Term{{n.Eq, 1}}
		n.kind = 2
		o.Eq2node = append(o.Eq2node, n)
	}
	o.Neq = len(o.Eq2node)

	// resolve hanging vertices
	for _, key := range keys {
		err = o.resolve(o.Nodes[key])
		if err != nil {
			return
		}
	}

	// solution vectors
	o.U = make([]float64, o.Neq)
	for q := range o.Adjoint {
		o.Adjoint[q] = make([]float64, o.Neq)
	}
	if prev != nil {
		o.project(prev)
	}
	o.Revision = o.Msh.Revision()
	return
}

// resolve computes the expansion of a hanging vertex
func (o *Domain) resolve(n *Node) (err error) {
	switch n.kind {
	case 2:
		return
	case 1:
		return chk.Err("circular hanging vertex constraint at (%g,%g)", n.X, n.Y)
	}
	n.kind = 1
	coefs := make(map[int]float64)
	var eqs []int
	for _, key := range n.hang {
		p, ok := o.Nodes[key]
		if !ok {
			x, y := o.Msh.KeyCoords(key)
			return chk.Err("end point (%g,%g) of hanging vertex (%g,%g) is not a vertex", x, y, n.X, n.Y)
		}
		err = o.resolve(p)
		if err != nil {
			return
		}
		n.C += 0.5 * p.C
		for _, t := range p.Terms {
			if _, ok := coefs[t.Eq]; !ok {
				eqs = append(eqs, t.Eq)
			}
			coefs[t.Eq] += 0.5 * t.Coef
		}
	}
	sort.Ints(eqs)
	n.Terms = make([]Term, len(eqs))
	for i, eq := range eqs {
		n.Terms[i] = Term{eq, coefs[eq]}
	}
	n.kind = 2
	return
}

// Value returns the value at node n given the vector of unknowns x
func (o *Node) Value(x []float64) (u float64) {
	u = o.C
	for _, t := range o.Terms {
		u += t.Coef * x[t.Eq]
	}
	return
}

// Homogeneous returns the value at node n given the vector of unknowns x without the
// constant part. Adjoint solutions vanish on the Dirichlet boundary
func (o *Node) Homogeneous(x []float64) (u float64) {
	for _, t := range o.Terms {
		u += t.Coef * x[t.Eq]
	}
	return
}

// ElemValues fills u[4] with the corner values of element eid given the vector of unknowns x
func (o *Domain) ElemValues(eid int, x, u []float64) {
	o.elemValues(eid, x, u, false)
}

// elemValues fills u[4]; hom skips the Dirichlet values
func (o *Domain) elemValues(eid int, x, u []float64, hom bool) {
	conn, ok := o.Conn[eid]
	if !ok {
		chk.Panic("element %d is not active in domain (revision %d)", eid, o.Revision)
	}
	for k, n := range conn {
		if hom {
			u[k] = n.Homogeneous(x)
			continue
		}
		u[k] = n.Value(x)
	}
}

// FreeDofs returns the number of corners of element eid depending on unknowns
func (o *Domain) FreeDofs(eid int) (nfree int) {
	for _, n := range o.Conn[eid] {
		if len(n.Terms) > 0 {
			nfree++
		}
	}
	return
}

// Field returns the primal solution as a field
func (o *Domain) Field() est.Field { return &field{o, o.U, false} }

// AdjointField returns the adjoint solution of QoI q as a field. The adjoint problem has
// homogeneous Dirichlet conditions; thus the field is zero on the boundary
func (o *Domain) AdjointField(q int) est.Field { return &field{o, o.Adjoint[q], true} }

// SwapAdjoint swaps the primal and the adjoint solution of QoI q; e.g. to write the adjoint
// solution with the output routines of the primal one. Call again to swap back
func (o *Domain) SwapAdjoint(q int) {
	switch o.swapped {
	case 0:
		o.swapped = q + 1
	case q + 1:
		o.swapped = 0
	default:
		chk.Panic("cannot swap adjoint %d: adjoint %d is already swapped", q, o.swapped-1)
	}
	o.U, o.Adjoint[q] = o.Adjoint[q], o.U
}

// homogeneous tells whether the i-th vector returned by vectors holds an adjoint solution
func (o *Domain) homogeneous(i int) bool {
	if i == 0 {
		return o.swapped > 0
	}
	return o.swapped != i
}

// field implements est.Field
type field struct {
	d   *Domain
	x   []float64
	hom bool // homogeneous Dirichlet values
}

func (o *field) Mesh() *msh.Mesh                 { return o.d.Msh }
func (o *field) ElemValues(eid int, u []float64) { o.d.elemValues(eid, o.x, u, o.hom) }
func (o *field) FreeDofs(eid int) int            { return o.d.FreeDofs(eid) }

// solved implements est.Solved
type solved struct {
	d        *Domain
	adjoints map[int]bool // QoIs with solved adjoint problems
}

func (o *solved) Field() est.Field { return o.d.Field() }

func (o *solved) Adjoint(q int) (est.Field, bool) {
	if !o.adjoints[q] || q < 0 || q >= len(o.d.Adjoint) {
		return nil, false
	}
	return o.d.AdjointField(q), true
}
