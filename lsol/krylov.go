// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsol

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/floats"
)

func init() {
	register("cg", func() Solver { return new(CG) })
	register("bicgstab", func() Solver { return new(BiCGStab) })
}

// jacobi holds the inverse of the diagonal
type jacobi struct {
	dinv []float64
}

func (o *jacobi) build(A *CSR) {
	if len(o.dinv) != A.M {
		o.dinv = make([]float64, A.M)
	}
	A.Diag(o.dinv)
	for i, d := range o.dinv {
		if math.Abs(d) > 0 {
			o.dinv[i] = 1.0 / d
		} else {
			o.dinv[i] = 1.0
		}
	}
}

// apply computes z := M⁻¹・r
func (o *jacobi) apply(z, r []float64) {
	for i, d := range o.dinv {
		z[i] = d * r[i]
	}
}

// zero sets all components of x to zero
func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// matvec computes y := A・x or y := Aᵀ・x
func matvec(A *CSR, y, x []float64, transpose bool) {
	if transpose {
		A.MulVecTrans(y, x)
		return
	}
	A.MulVec(y, x)
}

// CG implements the Jacobi-preconditioned conjugate gradient method
type CG struct {
	precState
	prec jacobi
}

// SetOperator sets the matrix
func (o *CG) SetOperator(A *CSR) error { return o.setOperator(A) }

// Solve solves the system
func (o *CG) Solve(x, b []float64, transpose bool, tol float64, maxIt int) (st Stats, err error) {
	if err = o.check(x, b); err != nil {
		return
	}
	if o.needBuild() {
		o.prec.build(o.A)
	}
	n := len(b)
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		zero(x)
		return
	}
	r := make([]float64, n)
	z := make([]float64, n)
	p := make([]float64, n)
	Ap := make([]float64, n)
	matvec(o.A, r, x, transpose)
	floats.SubTo(r, b, r)
	o.prec.apply(z, r)
	copy(p, z)
	rz := floats.Dot(r, z)
	for st.Iterations = 0; st.Iterations < maxIt; st.Iterations++ {
		st.Residual = floats.Norm(r, 2) / bnorm
		if st.Residual <= tol {
			return
		}
		matvec(o.A, Ap, p, transpose)
		pAp := floats.Dot(p, Ap)
		if pAp <= 0 {
			return st, chk.Err("cg: breakdown (pᵀAp = %g); matrix is not positive-definite", pAp)
		}
		α := rz / pAp
		floats.AddScaled(x, α, p)
		floats.AddScaled(r, -α, Ap)
		o.prec.apply(z, r)
		rzNew := floats.Dot(r, z)
		β := rzNew / rz
		rz = rzNew
		floats.AddScaledTo(p, z, β, p)
	}
	st.Residual = floats.Norm(r, 2) / bnorm
	if st.Residual <= tol {
		return
	}
	return st, notConverged("cg", st)
}

// breakdownTol is the relative size of r̂・r below which BiCGStab restarts
const breakdownTol = 1e-14

// BiCGStab implements the Jacobi-preconditioned stabilised bi-conjugate gradient method
type BiCGStab struct {
	precState
	prec jacobi
}

// SetOperator sets the matrix
func (o *BiCGStab) SetOperator(A *CSR) error { return o.setOperator(A) }

// Solve solves the system
func (o *BiCGStab) Solve(x, b []float64, transpose bool, tol float64, maxIt int) (st Stats, err error) {
	if err = o.check(x, b); err != nil {
		return
	}
	if o.needBuild() {
		o.prec.build(o.A)
	}
	n := len(b)
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		zero(x)
		return
	}
	r := make([]float64, n)
	rhat := make([]float64, n)
	p := make([]float64, n)
	v := make([]float64, n)
	s := make([]float64, n)
	t := make([]float64, n)
	phat := make([]float64, n)
	shat := make([]float64, n)
	matvec(o.A, r, x, transpose)
	floats.SubTo(r, b, r)
	copy(rhat, r)
	ρ, α, ω := 1.0, 1.0, 1.0
	fresh, restartedAt := true, -2
	for st.Iterations = 0; st.Iterations < maxIt; st.Iterations++ {
		st.Residual = floats.Norm(r, 2) / bnorm
		if st.Residual <= tol {
			return
		}

		// restart with r̂ = r if r̂・r vanishes
		ρnew := floats.Dot(rhat, r)
		if math.Abs(ρnew) <= breakdownTol*floats.Norm(rhat, 2)*floats.Norm(r, 2) {
			if restartedAt == st.Iterations-1 {
				return st, chk.Err("bicgstab: breakdown (ρ = %g) after restart at iteration %d", ρnew, st.Iterations)
			}
			copy(rhat, r)
			ρnew = floats.Dot(rhat, r)
			ρ, α, ω = 1.0, 1.0, 1.0
			fresh, restartedAt = true, st.Iterations
			st.Restarts++
		}

		// search direction
		if fresh {
			copy(p, r)
			zero(v)
			fresh = false
		} else {
			β := (ρnew / ρ) * (α / ω)
			floats.AddScaled(p, -ω, v)
			floats.AddScaledTo(p, r, β, p)
		}
		o.prec.apply(phat, p)
		matvec(o.A, v, phat, transpose)
		α = ρnew / floats.Dot(rhat, v)
		floats.AddScaledTo(s, r, -α, v)
		if floats.Norm(s, 2)/bnorm <= tol {
			floats.AddScaled(x, α, phat)
			copy(r, s)
			ρ = ρnew
			continue
		}
		o.prec.apply(shat, s)
		matvec(o.A, t, shat, transpose)
		tt := floats.Dot(t, t)
		if tt == 0 {
			return st, chk.Err("bicgstab: breakdown (tᵀt = 0) at iteration %d", st.Iterations)
		}
		ω = floats.Dot(t, s) / tt
		floats.AddScaled(x, α, phat)
		floats.AddScaled(x, ω, shat)
		floats.AddScaledTo(r, s, -ω, t)
		ρ = ρnew
	}
	st.Residual = floats.Norm(r, 2) / bnorm
	if st.Residual <= tol {
		return
	}
	return st, notConverged("bicgstab", st)
}
