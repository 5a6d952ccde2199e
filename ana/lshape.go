// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ana implements analytical solutions
package ana

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// LShape implements the singular solution of the Laplace equation on the L-shaped domain
// [-1,1]² \ (0,1]×[-1,0)
//
//   u(r,θ) = r^α・sin(α・θ)   with α = 2/3 and 0 ≤ θ ≤ 3π/2
//
// u vanishes on the edges meeting at the re-entrant corner and ∇u is singular at the origin
type LShape struct {
	Alpha float64 // exponent; default = 2/3
}

// NewLShape returns a new solution with α = 2/3
func NewLShape() *LShape {
	return &LShape{Alpha: 2.0 / 3.0}
}

// polar returns r and θ ∈ [0,2π)
func polar(x, y float64) (r, θ float64) {
	r = math.Hypot(x, y)
	θ = math.Atan2(y, x)
	if θ < 0 {
		θ += 2 * math.Pi
	}
	return
}

// U computes u(x,y)
func (o *LShape) U(x, y float64) float64 {
	r, θ := polar(x, y)
	if r == 0 {
		return 0
	}
	return math.Pow(r, o.Alpha) * math.Sin(o.Alpha*θ)
}

// Grad computes ∇u(x,y). Not defined at the origin
func (o *LShape) Grad(x, y float64) (gx, gy float64) {
	r, θ := polar(x, y)
	c := o.Alpha * math.Pow(r, o.Alpha-1)
	gx = c * math.Sin((o.Alpha-1)*θ)
	gy = c * math.Cos((o.Alpha-1)*θ)
	return
}

// Source returns the source term f = -∇²u = 0
func (o *LShape) Source(x, y float64) float64 { return 0 }

// Integral computes ∫∫ u dx dy over the box [xa,xb]×[ya,yb] with n×n Gauss points
func (o *LShape) Integral(xa, xb, ya, yb float64, n int) float64 {
	return IntegrateBox(o.U, xa, xb, ya, yb, n)
}

// IntegrateBox computes ∫∫ f dx dy over the box [xa,xb]×[ya,yb] with n×n Gauss-Legendre points
func IntegrateBox(f func(x, y float64) float64, xa, xb, ya, yb float64, n int) float64 {
	return quad.Fixed(func(y float64) float64 {
		return quad.Fixed(func(x float64) float64 {
			return f(x, y)
		}, xa, xb, n, quad.Legendre{}, 0)
	}, ya, yb, n, quad.Legendre{}, 0)
}
