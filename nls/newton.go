// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package nls implements the Newton controller for nonlinear systems of equations
package nls

import (
	"errors"
	"fmt"
	"math"

	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/lsol"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gonum.org/v1/gonum/floats"
)

// ErrConvergence is returned (wrapped) when Newton iterations fail and continuing is not allowed
var ErrConvergence = errors.New("nonlinear solver did not converge")

// System defines the callbacks of a nonlinear system R(x) = 0
type System interface {

	// Ndof returns the number of unknowns
	Ndof() int

	// Residual computes r := R(x)
	Residual(r, x []float64) (err error)

	// Jacobian adds dR/dx to J, which is already started
	Jacobian(J *lsol.Triplet, x []float64) (err error)
}

// Status holds the outcome of a nonlinear solve
type Status int

// statuses
const (
	Converged Status = iota
	ContinuedAfterStall
	Failed
)

func (o Status) String() string {
	switch o {
	case Converged:
		return "converged"
	case ContinuedAfterStall:
		return "continued after stall"
	}
	return "failed"
}

// reasons for stalling
const (
	ReasonNone      = ""
	ReasonMaxIt     = "max_iterations"
	ReasonBacktrack = "backtrack_failure"
)

// Result holds the results of the last solve
type Result struct {
	Status           Status   // outcome
	Reason           string   // reason of stall; empty if converged
	Iterations       int      // number of Newton iterations (Jacobian solves)
	ResidualNorm     float64  // final ‖R‖
	StepNorm         float64  // last ‖δx‖
	LinearIterations int      // total number of linear iterations
	Warnings         []string // messages of continued stalls
}

// Newton implements the Newton-Raphson method with inexact linear solves and backtracking
type Newton struct {
	Dat    *inp.SolverData // parameters
	LinSol lsol.Solver     // linear solver
	Last   Result          // result of last Solve

	// workspace
	J   lsol.Triplet // Jacobian
	r   []float64    // residual
	rt  []float64    // trial residual
	dx  []float64    // step
	xt  []float64    // trial iterate
	rhs []float64    // -R
}

// New returns a new Newton controller
func New(dat *inp.SolverData, linsol lsol.Solver) *Newton {
	return &Newton{Dat: dat, LinSol: linsol}
}

// init allocates workspace
func (o *Newton) init(n int) {
	if len(o.r) != n {
		o.r = make([]float64, n)
		o.rt = make([]float64, n)
		o.dx = make([]float64, n)
		o.xt = make([]float64, n)
		o.rhs = make([]float64, n)
	}
	m, _ := o.J.Size()
	if m != n {
		o.J.Init(n, n, 9*9*n)
	}
}

// assemble assembles the Jacobian and sets the linear solver operator
func (o *Newton) assemble(sys System, x []float64) (err error) {
	o.J.Start()
	err = sys.Jacobian(&o.J, x)
	if err != nil {
		return chk.Err("cannot assemble Jacobian:\n%v", err)
	}
	return o.LinSol.SetOperator(o.J.ToCSR())
}

// linsolve solves J・δx = b; non-converged linear solves are accepted
func (o *Newton) linsolve(dx, b []float64, transpose bool, tol float64) (err error) {
	st, err := o.LinSol.Solve(dx, b, transpose, tol, o.Dat.MaxLinIt)
	o.Last.LinearIterations += st.Iterations
	if errors.Is(err, lsol.ErrNotConverged) {
		if o.Dat.ShowR {
			io.Pfyel("%v\n", err)
		}
		return nil
	}
	return
}

// Solve solves R(x) = 0 starting from x, which is updated in place
//  Note: the preconditioner reuse flag of LinSol is left untouched
func (o *Newton) Solve(sys System, x []float64) (res *Result, err error) {

	// auxiliary
	n := sys.Ndof()
	if len(x) != n {
		return nil, chk.Err("size of x (%d) must be equal to the number of unknowns (%d)", len(x), n)
	}
	o.init(n)
	o.Last = Result{}
	res = &o.Last
	dat := o.Dat

	// message
	if dat.ShowR {
		io.Pf("\n%4s%23s%23s%23s\n", "it", "‖R‖", "‖δx‖", "λ")
	}

	// initial residual
	err = sys.Residual(o.r, x)
	if err != nil {
		return res, chk.Err("cannot compute residual:\n%v", err)
	}
	nr := floats.Norm(o.r, 2)
	nr0 := nr
	res.ResidualNorm = nr

	// iterations
	var it int
	λ := 1.0
	for it = 0; ; it++ {

		// message
		if dat.ShowR {
			io.Pf("%4d%23.15e%23.15e%23.15e\n", it, nr, res.StepNorm, λ)
		}

		// check convergence
		if o.converged(it, nr, nr0, x) {
			res.Status = Converged
			return
		}

		// max number of iterations
		if it >= dat.NmaxIt {
			return res, o.stall(ReasonMaxIt, dat.ContinueMaxIt, nr)
		}

		// linear tolerance
		ltol := dat.InitLinTol
		if it > 0 {
			ltol = math.Min(math.Max(dat.LinTolMult*nr, dat.MinLinTol), dat.InitLinTol)
		}

		// solve J・δx = -R
		err = o.assemble(sys, x)
		if err != nil {
			return
		}
		for i := 0; i < n; i++ {
			o.rhs[i] = -o.r[i]
			o.dx[i] = 0
		}
		err = o.linsolve(o.dx, o.rhs, false, ltol)
		if err != nil {
			return res, chk.Err("linear solve failed at Newton iteration %d:\n%v", it, err)
		}
		res.Iterations++

		// line search
		λ = 1.0
		for {
			floats.AddScaledTo(o.xt, x, λ, o.dx)
			err = sys.Residual(o.rt, o.xt)
			if err != nil {
				return res, chk.Err("cannot compute residual:\n%v", err)
			}
			nrt := floats.Norm(o.rt, 2)
			if !dat.RequireReduct || nrt < nr {
				nr = nrt
				break
			}
			λ *= 0.5
			if λ < dat.MinStepLength {
				return res, o.stall(ReasonBacktrack, dat.ContinueBktrck, nr)
			}
		}

		// update
		copy(x, o.xt)
		copy(o.r, o.rt)
		res.StepNorm = λ * floats.Norm(o.dx, 2)
		res.ResidualNorm = nr
	}
}

// converged checks convergence
func (o *Newton) converged(it int, nr, nr0 float64, x []float64) bool {
	dat := o.Dat
	if nr <= dat.AbsResidTol {
		return true
	}
	if nr0 > 0 && nr/nr0 <= dat.RelResidTol {
		return true
	}
	if it > 0 {
		ns := o.Last.StepNorm
		if ns <= dat.AbsStepTol {
			return true
		}
		if nx := floats.Norm(x, 2); nx > 0 && ns/nx <= dat.RelStepTol {
			return true
		}
	}
	return false
}

// stall handles a stall: the last iterate is returned with a warning if continuing is
// allowed; otherwise an error wrapping ErrConvergence is returned
func (o *Newton) stall(reason string, cont bool, nr float64) error {
	o.Last.Reason = reason
	msg := fmt.Sprintf("Newton %s after %d iterations: ‖R‖ = %g", reason, o.Last.Iterations, nr)
	if cont {
		o.Last.Status = ContinuedAfterStall
		o.Last.Warnings = append(o.Last.Warnings, msg)
		io.Pfred("WARNING: %s; continuing\n", msg)
		return nil
	}
	o.Last.Status = Failed
	return fmt.Errorf("%w: %s", ErrConvergence, msg)
}

// SolveAdjoint solves J(x)ᵀ・z = rhs with the linear tolerance at its minimum.
// z holds the initial guess
func (o *Newton) SolveAdjoint(sys System, x, z, rhs []float64) (err error) {
	n := sys.Ndof()
	if len(x) != n || len(z) != n || len(rhs) != n {
		return chk.Err("adjoint: sizes of x, z and rhs must be equal to the number of unknowns (%d)", n)
	}
	o.init(n)
	err = o.assemble(sys, x)
	if err != nil {
		return
	}
	err = o.linsolve(z, rhs, true, o.Dat.MinLinTol)
	if err != nil {
		return chk.Err("adjoint solve failed:\n%v", err)
	}
	return
}
