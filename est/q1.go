// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package est

import (
	"github.com/certik/libmesh-sub001/msh"
	"gonum.org/v1/gonum/integrate/quad"
)

// Gauss-Legendre points and weights on [0,1]
var (
	gp2, gw2 = gauss(2)
	gp3, gw3 = gauss(3)
)

// gauss returns n Gauss-Legendre points and weights on [0,1]
func gauss(n int) (x, w []float64) {
	x = make([]float64, n)
	w = make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, 0, 1)
	return
}

// value computes u(ξ,η) with bilinear interpolation of corner values; (ξ,η) ∈ [0,1]²
func value(u []float64, ξ, η float64) float64 {
	return (1-ξ)*(1-η)*u[0] + ξ*(1-η)*u[1] + ξ*η*u[2] + (1-ξ)*η*u[3]
}

// grad computes ∇u(ξ,η) on a square element of size h
func grad(u []float64, h, ξ, η float64) (gx, gy float64) {
	gx = ((1-η)*(u[1]-u[0]) + η*(u[2]-u[3])) / h
	gy = ((1-ξ)*(u[3]-u[0]) + ξ*(u[2]-u[1])) / h
	return
}

// local returns the local coordinates of point (x,y) in element id
func local(m *msh.Mesh, id int, x, y float64) (ξ, η float64) {
	x0, y0 := m.Origin(id)
	h := m.Size(id)
	return clamp01((x - x0) / h), clamp01((y - y0) / h)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// outward unit normals of sides
var (
	normalX = [4]float64{0, 1, 0, -1}
	normalY = [4]float64{-1, 0, 1, 0}
)
