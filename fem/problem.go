// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/certik/libmesh-sub001/ana"
	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/msh"
)

// Problem holds the definition of a boundary value problem and its quantities of interest
type Problem struct {
	Mesh    *msh.Mesh                  // coarse mesh
	Ebc     func(x, y float64) float64 // Dirichlet values
	Source  func(x, y float64) float64 // f; nil => 0
	Regions []RegionIntegral           // QoIs
	Exact   []float64                  // exact values of QoIs; nil => unknown
}

// LShapeProblem returns the problem of the corner singularity on the L-shaped domain with two
// QoIs: the integrals of u over [0.5,1]² and over [-1,-0.5]². If sim.Data.Reaction is not zero,
// the source term is set so that u remains the exact solution
func LShapeProblem(sim *inp.Simulation) *Problem {
	sol := ana.NewLShape()
	c := sim.Data.Reaction
	o := &Problem{
		Mesh: msh.NewLShape(sim.Data.Ndiv),
		Ebc:  sol.U,
		Regions: []RegionIntegral{
			{Xmin: 0.5, Xmax: 1, Ymin: 0.5, Ymax: 1},
			{Xmin: -1, Xmax: -0.5, Ymin: -1, Ymax: -0.5},
		},
	}
	if c != 0 {
		o.Source = func(x, y float64) float64 {
			u := sol.U(x, y)
			return sol.Source(x, y) + c*u*u*u
		}
	}
	for _, r := range o.Regions {
		o.Exact = append(o.Exact, sol.Integral(r.Xmin, r.Xmax, r.Ymin, r.Ymax, 20))
	}
	return o
}
