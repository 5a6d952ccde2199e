// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsol

import (
	"errors"
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// ErrNotConverged is returned (wrapped) when an iterative solver exhausts its iterations
var ErrNotConverged = errors.New("linear solver did not converge")

// Stats holds statistics of one solution
type Stats struct {
	Iterations int     // number of iterations; 1 for direct solvers
	Residual   float64 // final relative residual ‖b - A・x‖ / ‖b‖
	Restarts   int     // number of restarts after breakdowns
}

// Solver defines linear solvers
//  Note: the preconditioner (or factorisation) is rebuilt at the next Solve after SetOperator,
//  unless ReusePreconditioner(true) was called and a preconditioner of matching size exists
type Solver interface {

	// SetOperator sets the matrix
	SetOperator(A *CSR) (err error)

	// ReusePreconditioner keeps the current preconditioner for the next solves
	ReusePreconditioner(reuse bool)

	// PreconditionerBuilds returns the number of times the preconditioner was (re)built
	PreconditionerBuilds() int

	// Solve solves A・x = b (or Aᵀ・x = b if transpose) with x holding the initial guess
	Solve(x, b []float64, transpose bool, tol float64, maxIt int) (st Stats, err error)
}

// allocators holds all available solvers
var allocators = make(map[string]func() Solver)

// New returns a new linear solver
//  name -- "cg" (symmetric positive-definite), "bicgstab" or "dense"
func New(name string) (Solver, error) {
	if alloc, ok := allocators[name]; ok {
		return alloc(), nil
	}
	return nil, chk.Err("cannot find linear solver named %q", name)
}

// register sets a new allocator
func register(name string, alloc func() Solver) {
	if _, ok := allocators[name]; ok {
		chk.Panic("cannot register linear solver %q because it exists already", name)
	}
	allocators[name] = alloc
}

// precState holds the preconditioner bookkeeping shared by all solvers
type precState struct {
	A      *CSR // current operator
	reuse  bool // reuse flag
	ready  bool // preconditioner was built for some operator
	size   int  // size of the operator used to build the preconditioner
	builds int  // counter
}

func (o *precState) setOperator(A *CSR) error {
	if A == nil || A.M != A.N {
		return chk.Err("operator must be a non-nil square matrix")
	}
	o.A = A
	return nil
}

func (o *precState) ReusePreconditioner(reuse bool) { o.reuse = reuse }

func (o *precState) PreconditionerBuilds() int { return o.builds }

// needBuild tells whether the preconditioner must be rebuilt and records the build
func (o *precState) needBuild() bool {
	if o.reuse && o.ready && o.size == o.A.M {
		return false
	}
	o.ready = true
	o.size = o.A.M
	o.builds++
	return true
}

// check verifies operator and vector sizes
func (o *precState) check(x, b []float64) error {
	if o.A == nil {
		return chk.Err("operator must be set before Solve")
	}
	if len(x) != o.A.N || len(b) != o.A.M {
		return chk.Err("vector sizes (%d,%d) are incompatible with %d×%d operator", len(x), len(b), o.A.M, o.A.N)
	}
	return nil
}

// notConverged wraps ErrNotConverged
func notConverged(name string, st Stats) error {
	return fmt.Errorf("%w: %s after %d iterations (residual = %g)", ErrNotConverged, name, st.Iterations, st.Residual)
}
