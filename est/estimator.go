// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package est implements a posteriori error estimators
package est

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/certik/libmesh-sub001/qoi"
	"github.com/cpmech/gosl/chk"
	"golang.org/x/sync/errgroup"
)

// errors
var (
	ErrUnknownIndicator = errors.New("unknown error indicator")
	ErrPrecondition     = errors.New("error estimator precondition not met")
)

// Field defines a discrete scalar field on the active elements of a mesh
type Field interface {

	// Mesh returns the mesh
	Mesh() *msh.Mesh

	// ElemValues fills u[4] with the values at the corners of active element eid
	ElemValues(eid int, u []float64)

	// FreeDofs returns the number of unconstrained degrees of freedom of element eid
	FreeDofs(eid int) int
}

// Solved defines a system with a solved primal field and, possibly, adjoint fields
type Solved interface {

	// Field returns the primal solution
	Field() Field

	// Adjoint returns the adjoint solution of QoI q; false if not available
	Adjoint(q int) (Field, bool)
}

// Estimator defines error estimators
type Estimator interface {
	EstimateError(sys Solved, qois *qoi.Set) (ev *ErrorVector, err error)
}

// Norm holds the weights of the error norm: L2・‖e‖² + H1・|e|²₁
type Norm struct {
	L2 float64 // weight of L2 norm
	H1 float64 // weight of H1 seminorm
}

// allocators holds all available estimators
var allocators = make(map[string]func(dat *inp.AdaptData) (Estimator, error))

// New returns a new estimator
//  name -- "kelly", "patch_recovery" or "adjoint_residual"
func New(name string, dat *inp.AdaptData) (Estimator, error) {
	if alloc, ok := allocators[name]; ok {
		return alloc(dat)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIndicator, name)
}

// ErrorVector holds one non-negative error value per active element
type ErrorVector struct {
	Revision int       // mesh revision when the vector was computed
	Ids      []int     // ids of active elements (ascending)
	Vals     []float64 // error values
}

// newErrorVector allocates a vector for the active elements of m
func newErrorVector(m *msh.Mesh) (o *ErrorVector, err error) {
	ids := m.ActiveElems()
	if len(ids) == 0 {
		return nil, chk.Err("cannot estimate error on mesh without active elements")
	}
	o = &ErrorVector{
		Revision: m.Revision(),
		Ids:      append([]int(nil), ids...),
		Vals:     make([]float64, len(ids)),
	}
	return
}

// Len returns the number of values
func (o *ErrorVector) Len() int { return len(o.Vals) }

// Value returns the error of element id; false if id is not in the vector
func (o *ErrorVector) Value(id int) (float64, bool) {
	k := sort.SearchInts(o.Ids, id)
	if k < len(o.Ids) && o.Ids[k] == id {
		return o.Vals[k], true
	}
	return 0, false
}

// Max returns the largest value
func (o *ErrorVector) Max() (max float64) {
	for _, v := range o.Vals {
		max = math.Max(max, v)
	}
	return
}

// Sum returns the sum of values
func (o *ErrorVector) Sum() (sum float64) {
	for _, v := range o.Vals {
		sum += v
	}
	return
}

// L2Norm returns sqrt(Σ eᵢ²)
func (o *ErrorVector) L2Norm() float64 {
	var sum float64
	for _, v := range o.Vals {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// RMS returns the root mean square of values
func (o *ErrorVector) RMS() float64 {
	if len(o.Vals) == 0 {
		return 0
	}
	return o.L2Norm() / math.Sqrt(float64(len(o.Vals)))
}

// Workers is the max number of goroutines used in per-element loops; 0 => GOMAXPROCS
var Workers int

// forEach runs fcn(k) for k in [0,n) concurrently; each call must write only to slot k
func forEach(n int, fcn func(k int) error) error {
	nw := Workers
	if nw < 1 {
		nw = runtime.GOMAXPROCS(0)
	}
	chunk := (n + nw - 1) / nw
	var g errgroup.Group
	g.SetLimit(nw)
	for start := 0; start < n; start += chunk {
		a, b := start, start+chunk
		if b > n {
			b = n
		}
		g.Go(func() error {
			for k := a; k < b; k++ {
				if err := fcn(k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
