// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsol

import (
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func init() {
	register("dense", func() Solver { return new(Dense) })
}

// Dense implements a direct solver based on the LU factorisation of a dense copy of the
// operator. Reusing the "preconditioner" means reusing the factorisation
type Dense struct {
	precState
	lu mat.LU
}

// SetOperator sets the matrix
func (o *Dense) SetOperator(A *CSR) error { return o.setOperator(A) }

// Solve solves the system. tol and maxIt are ignored
func (o *Dense) Solve(x, b []float64, transpose bool, tol float64, maxIt int) (st Stats, err error) {
	if err = o.check(x, b); err != nil {
		return
	}
	if o.needBuild() {
		o.lu.Factorize(o.A.ToDense())
	}
	dst := mat.NewVecDense(len(x), x)
	err = o.lu.SolveVecTo(dst, transpose, mat.NewVecDense(len(b), b))
	if err != nil {
		return st, chk.Err("dense: cannot solve linear system:\n%v", err)
	}
	st.Iterations = 1
	r := make([]float64, len(b))
	matvec(o.A, r, x, transpose)
	floats.Sub(r, b)
	if bnorm := floats.Norm(b, 2); bnorm > 0 {
		st.Residual = floats.Norm(r, 2) / bnorm
	}
	return
}
