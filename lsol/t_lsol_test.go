// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsol

import (
	"errors"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// laplace1d returns the tridiagonal matrix [-1 2 -1] with repeated entries on the diagonal
func laplace1d(n int) *CSR {
	var t Triplet
	t.Init(n, n, 4*n)
	for i := 0; i < n; i++ {
		t.Put(i, i, 1)
		t.Put(i, i, 1)
		if i > 0 {
			t.Put(i, i-1, -1)
		}
		if i < n-1 {
			t.Put(i, i+1, -1)
		}
	}
	return t.ToCSR()
}

// nonsym returns a small nonsymmetric diagonally dominant matrix
func nonsym() *CSR {
	var t Triplet
	t.Init(3, 3, 9)
	t.Put(0, 0, 4)
	t.Put(0, 1, 1)
	t.Put(1, 0, -2)
	t.Put(1, 1, 5)
	t.Put(1, 2, 1)
	t.Put(2, 1, 3)
	t.Put(2, 2, 6)
	return t.ToCSR()
}

func Test_triplet01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("triplet01. conversion to CSR")

	A := laplace1d(4)
	chk.Int(tst, "nnz", A.Nnz(), 10)
	chk.Ints(tst, "ptr", A.Ptr, []int{0, 2, 5, 8, 10})
	chk.Ints(tst, "col", A.Col, []int{0, 1, 0, 1, 2, 1, 2, 3, 2, 3})
	chk.Array(tst, "val", 1e-17, A.Val, []float64{2, -1, -1, 2, -1, -1, 2, -1, -1, 2})

	B := nonsym()
	y := make([]float64, 3)
	B.MulVec(y, []float64{1, 2, 3})
	chk.Array(tst, "A・x", 1e-15, y, []float64{6, 11, 24})
	B.MulVecTrans(y, []float64{1, 2, 3})
	chk.Array(tst, "Aᵀ・x", 1e-15, y, []float64{0, 20, 20})
}

func Test_solvers01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solvers01. symmetric system")

	n := 20
	A := laplace1d(n)
	xref := make([]float64, n)
	for i := range xref {
		xref[i] = float64(i%5) - 1.5
	}
	b := make([]float64, n)
	A.MulVec(b, xref)

	for _, name := range []string{"cg", "bicgstab", "dense"} {
		sol, err := New(name)
		if err != nil {
			tst.Errorf("%v", err)
			return
		}
		err = sol.SetOperator(A)
		if err != nil {
			tst.Errorf("%v", err)
			return
		}
		x := make([]float64, n)
		st, err := sol.Solve(x, b, false, 1e-12, 200)
		if err != nil {
			tst.Errorf("%s failed:\n%v", name, err)
			return
		}
		io.Pforan("%-10s: iterations = %3d  residual = %g\n", name, st.Iterations, st.Residual)
		chk.Array(tst, name, 1e-9, x, xref)
	}
}

func Test_solvers02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solvers02. transpose solves and preconditioner reuse")

	A := nonsym()
	xref := []float64{1, -2, 3}
	b := make([]float64, 3)
	bt := make([]float64, 3)
	A.MulVec(b, xref)
	A.MulVecTrans(bt, xref)

	for _, name := range []string{"bicgstab", "dense"} {
		sol, _ := New(name)
		sol.SetOperator(A)
		x := make([]float64, 3)
		_, err := sol.Solve(x, b, false, 1e-13, 100)
		if err != nil {
			tst.Errorf("%s failed:\n%v", name, err)
			return
		}
		chk.Array(tst, name+": x", 1e-10, x, xref)

		sol.ReusePreconditioner(true)
		xt := make([]float64, 3)
		_, err = sol.Solve(xt, bt, true, 1e-13, 100)
		if err != nil {
			tst.Errorf("%s (transpose) failed:\n%v", name, err)
			return
		}
		chk.Array(tst, name+": xᵀ", 1e-10, xt, xref)
		chk.Int(tst, name+": builds with reuse", sol.PreconditionerBuilds(), 1)

		sol.ReusePreconditioner(false)
		sol.Solve(xt, bt, true, 1e-13, 100)
		chk.Int(tst, name+": builds without reuse", sol.PreconditionerBuilds(), 2)
	}
}

func Test_solvers03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solvers03. errors")

	_, err := New("umfpack")
	if err == nil {
		tst.Errorf("unknown solver should fail\n")
	}

	A := laplace1d(50)
	b := make([]float64, 50)
	b[0] = 1
	sol, _ := New("cg")
	sol.SetOperator(A)
	x := make([]float64, 50)
	st, err := sol.Solve(x, b, false, 1e-14, 3)
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, ErrNotConverged) {
		tst.Errorf("expected ErrNotConverged; got %v", err)
	}
	chk.Int(tst, "iterations", st.Iterations, 3)

	_, err = sol.Solve(make([]float64, 3), b, false, 1e-8, 10)
	if err == nil {
		tst.Errorf("size mismatch should fail\n")
	}
}

func Test_solvers04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solvers04. bicgstab restart after breakdown")

	// with x₀ = 0, r̂・r₁ = 0 for Aᵀ・x = [8 0 16]
	A := nonsym()
	bt := []float64{8, 0, 16}
	sol, _ := New("bicgstab")
	sol.SetOperator(A)
	x := make([]float64, 3)
	st, err := sol.Solve(x, bt, true, 1e-13, 100)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	io.Pforan("iterations = %d, restarts = %d, residual = %g\n", st.Iterations, st.Restarts, st.Residual)
	if st.Restarts < 1 {
		tst.Errorf("bicgstab should have restarted\n")
	}
	chk.Array(tst, "x", 1e-10, x, []float64{1, -2, 3})
}
