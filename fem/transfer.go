// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/certik/libmesh-sub001/msh"
)

// snapshot holds vertex and element values of all solution vectors before a mesh change
type snapshot struct {
	verts map[msh.VertKey][]float64 // key => [1+nqoi] values
	elems map[int][][4]float64      // element id => [1+nqoi] corner values
}

// vectors returns the primal and adjoint solution vectors
func (o *Domain) vectors() (res [][]float64) {
	res = append(res, o.U)
	return append(res, o.Adjoint...)
}

// snapshot records the current values of all solution vectors
func (o *Domain) snapshot() (s *snapshot) {
	vecs := o.vectors()
	s = &snapshot{
		verts: make(map[msh.VertKey][]float64, len(o.Nodes)),
		elems: make(map[int][][4]float64, len(o.Conn)),
	}
	for key, n := range o.Nodes {
		vals := make([]float64, len(vecs))
		for i, x := range vecs {
			if len(x) != o.Neq {
				continue
			}
			if o.homogeneous(i) {
				vals[i] = n.Homogeneous(x)
				continue
			}
			vals[i] = n.Value(x)
		}
		s.verts[key] = vals
	}
	for id, conn := range o.Conn {
		vals := make([][4]float64, len(vecs))
		for k, n := range conn {
			for i := range vecs {
				vals[i][k] = s.verts[n.Key][i]
			}
		}
		s.elems[id] = vals
	}
	return
}

// project sets the free values of all solution vectors from a snapshot. Vertices that existed
// keep their values; new vertices are interpolated in the closest ancestor element recorded
// in the snapshot
func (o *Domain) project(s *snapshot) {
	vecs := o.vectors()
	owner := make(map[msh.VertKey]int)
	for id, conn := range o.Conn {
		for _, n := range conn {
			owner[n.Key] = id
		}
	}
	for _, n := range o.Eq2node {
		if vals, ok := s.verts[n.Key]; ok {
			for i, x := range vecs {
				x[n.Eq] = vals[i]
			}
			continue
		}
		for id := owner[n.Key]; id >= 0; id = o.Msh.Elem(id).Parent {
			vals, ok := s.elems[id]
			if !ok {
				continue
			}
			x0, y0 := o.Msh.Origin(id)
			h := o.Msh.Size(id)
			ξ, η := (n.X-x0)/h, (n.Y-y0)/h
			for i, x := range vecs {
				u := vals[i]
				x[n.Eq] = (1-ξ)*(1-η)*u[0] + ξ*(1-η)*u[1] + ξ*η*u[2] + (1-ξ)*η*u[3]
			}
			break
		}
	}
}
