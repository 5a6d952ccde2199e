// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/certik/libmesh-sub001/lsol"
)

// kLaplace holds the stiffness matrix of the Laplace operator for square Q1 elements;
// it does not depend on the element size in 2D
var kLaplace = [4][4]float64{
	{4.0 / 6.0, -1.0 / 6.0, -2.0 / 6.0, -1.0 / 6.0},
	{-1.0 / 6.0, 4.0 / 6.0, -1.0 / 6.0, -2.0 / 6.0},
	{-2.0 / 6.0, -1.0 / 6.0, 4.0 / 6.0, -1.0 / 6.0},
	{-1.0 / 6.0, -2.0 / 6.0, -1.0 / 6.0, 4.0 / 6.0},
}

// Poisson implements the discrete system of
//
//   -∇²u + c・u³ = f
//
// with Q1 elements. The reaction and source terms are integrated with the nodal (lumped)
// quadrature rule
type Poisson struct {
	Dom      *Domain                    // domain
	Source   func(x, y float64) float64 // f; nil => 0
	Reaction float64                    // c
	Analytic bool                       // analytic Jacobian; otherwise finite differences
}

// Ndof returns the number of unknowns
func (o *Poisson) Ndof() int { return o.Dom.Neq }

// elemResidual computes the residual of element id given the corner values ue
func (o *Poisson) elemResidual(id int, conn [4]*Node, ue, re []float64) {
	h := o.Dom.Msh.Size(id)
	w := h * h / 4.0
	for k := 0; k < 4; k++ {
		re[k] = 0
		for l := 0; l < 4; l++ {
			re[k] += kLaplace[k][l] * ue[l]
		}
		re[k] += o.Reaction * w * ue[k] * ue[k] * ue[k]
		if o.Source != nil {
			re[k] -= w * o.Source(conn[k].X, conn[k].Y)
		}
	}
}

// elemJacobian computes the Jacobian of element id given the corner values ue
func (o *Poisson) elemJacobian(id int, conn [4]*Node, ue []float64, Ke *[4][4]float64) {

	// analytic
	if o.Analytic {
		h := o.Dom.Msh.Size(id)
		w := h * h / 4.0
		*Ke = kLaplace
		for k := 0; k < 4; k++ {
			Ke[k][k] += 3.0 * o.Reaction * w * ue[k] * ue[k]
		}
		return
	}

	// finite differences
	var up, r0, rp [4]float64
	o.elemResidual(id, conn, ue, r0[:])
	for l := 0; l < 4; l++ {
		copy(up[:], ue)
		δ := 1e-7 * math.Max(1, math.Abs(ue[l]))
		up[l] += δ
		o.elemResidual(id, conn, up[:], rp[:])
		for k := 0; k < 4; k++ {
			Ke[k][l] = (rp[k] - r0[k]) / δ
		}
	}
}

// Residual computes r := R(x)
func (o *Poisson) Residual(r, x []float64) (err error) {
	for i := range r {
		r[i] = 0
	}
	var ue, re [4]float64
	for _, id := range o.Dom.Msh.ActiveElems() {
		conn := o.Dom.Conn[id]
		for k, n := range conn {
			ue[k] = n.Value(x)
		}
		o.elemResidual(id, conn, ue[:], re[:])
		for k, n := range conn {
			for _, t := range n.Terms {
				r[t.Eq] += t.Coef * re[k]
			}
		}
	}
	return
}

// Jacobian adds dR/dx to J
func (o *Poisson) Jacobian(J *lsol.Triplet, x []float64) (err error) {
	var ue [4]float64
	var Ke [4][4]float64
	for _, id := range o.Dom.Msh.ActiveElems() {
		conn := o.Dom.Conn[id]
		for k, n := range conn {
			ue[k] = n.Value(x)
		}
		o.elemJacobian(id, conn, ue[:], &Ke)
		for k, nk := range conn {
			for l, nl := range conn {
				for _, tk := range nk.Terms {
					for _, tl := range nl.Terms {
						J.Put(tk.Eq, tl.Eq, tk.Coef*Ke[k][l]*tl.Coef)
					}
				}
			}
		}
	}
	return
}
