// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"sort"

	"github.com/certik/libmesh-sub001/est"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/certik/libmesh-sub001/out"
)

// Grid returns the active elements and the current solution U as an output grid. After
// SwapAdjoint, U holds an adjoint solution and the Dirichlet values are not added.
// Cell data holds the refinement level and, if ev is not nil and matches the mesh, the error
// indicators
func (o *Domain) Grid(name string, ev *est.ErrorVector) *out.Grid {

	// vertices
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
	g := out.NewGrid()
	vid := make(map[msh.VertKey]int, len(keys))
	u := make([]float64, len(keys))
	hom := o.homogeneous(0)
	for i, key := range keys {
		n := o.Nodes[key]
		vid[key] = i
		g.X = append(g.X, n.X)
		g.Y = append(g.Y, n.Y)
		if hom {
			u[i] = n.Homogeneous(o.U)
			continue
		}
		u[i] = n.Value(o.U)
	}
	g.Point[name] = u

	// cells
	ids := o.Msh.ActiveElems()
	level := make([]float64, len(ids))
	var errs []float64
	if ev != nil && ev.Revision == o.Msh.Revision() {
		errs = make([]float64, len(ids))
	}
	for c, id := range ids {
		var q [4]int
		for k, n := range o.Conn[id] {
			q[k] = vid[n.Key]
		}
		g.Quads = append(g.Quads, q)
		level[c] = float64(o.Msh.Elem(id).Level)
		if errs != nil {
			errs[c], _ = ev.Value(id)
		}
	}
	g.Cell["level"] = level
	if errs != nil {
		g.Cell["error"] = errs
	}
	return g
}
