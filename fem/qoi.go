// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

// RegionIntegral implements the quantity of interest
//
//   Q(u) = ∫_region u dx
//
// over a box aligned with the edges of the coarse mesh
type RegionIntegral struct {
	Xmin, Xmax float64 // limits along x
	Ymin, Ymax float64 // limits along y
}

// contains tells whether active element id lies inside the region
func (o RegionIntegral) contains(d *Domain, id int) bool {
	x0, y0 := d.Msh.Origin(id)
	h := d.Msh.Size(id)
	tol := 1e-10 * h
	return x0 >= o.Xmin-tol && x0+h <= o.Xmax+tol && y0 >= o.Ymin-tol && y0+h <= o.Ymax+tol
}

// Value computes Q given the vector of unknowns x
func (o RegionIntegral) Value(d *Domain, x []float64) (q float64) {
	for _, id := range d.Msh.ActiveElems() {
		if !o.contains(d, id) {
			continue
		}
		h := d.Msh.Size(id)
		for _, n := range d.Conn[id] {
			q += h * h / 4.0 * n.Value(x)
		}
	}
	return
}

// Load computes the adjoint load vector dQ/dx
func (o RegionIntegral) Load(d *Domain, rhs []float64) {
	for i := range rhs {
		rhs[i] = 0
	}
	for _, id := range d.Msh.ActiveElems() {
		if !o.contains(d, id) {
			continue
		}
		h := d.Msh.Size(id)
		for _, n := range d.Conn[id] {
			for _, t := range n.Terms {
				rhs[t.Eq] += h * h / 4.0 * t.Coef
			}
		}
	}
}
