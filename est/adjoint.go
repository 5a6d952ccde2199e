// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package est

import (
	"fmt"
	"math"

	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/qoi"
	"github.com/cpmech/gosl/io"
)

func init() {
	allocators[inp.IndicatorAdjointResidual] = func(dat *inp.AdaptData) (Estimator, error) {
		primal, err := New(dat.PrimalEstimator, dat)
		if err != nil {
			return nil, err
		}
		dual, err := New(dat.DualEstimator, dat)
		if err != nil {
			return nil, err
		}
		return &AdjointResidual{Primal: primal, Dual: dual}, nil
	}
}

// CombineFunc combines the primal error of one element with the dual errors of each QoI
type CombineFunc func(primal float64, duals, weights []float64) float64

// ProductCombine returns primal・Σ_q |w_q|・dual_q
func ProductCombine(primal float64, duals, weights []float64) (res float64) {
	for q, d := range duals {
		res += math.Abs(weights[q]) * d
	}
	return primal * res
}

// AdjointResidual implements the adjoint-weighted (goal-oriented) estimator built from a
// primal and a dual estimator
type AdjointResidual struct {
	Primal  Estimator   // estimator for the primal field
	Dual    Estimator   // estimator for the adjoint fields
	QoIs    *qoi.Set    // QoIs used when EstimateError receives nil
	Combine CombineFunc // nil => ProductCombine

	// AdjointAlreadySolved must be set by the caller after the adjoint solves
	AdjointAlreadySolved bool

	// Verbose shows the global estimates of each pass
	Verbose bool
}

// SetPatchReuse forwards the patch reuse flag to the sub-estimators
func (o *AdjointResidual) SetPatchReuse(reuse bool) {
	for _, e := range []Estimator{o.Primal, o.Dual} {
		if r, ok := e.(interface{ SetPatchReuse(bool) }); ok {
			r.SetPatchReuse(reuse)
		}
	}
}

// SetNorm forwards the error norm to the sub-estimators
func (o *AdjointResidual) SetNorm(norm Norm) {
	for _, e := range []Estimator{o.Primal, o.Dual} {
		if r, ok := e.(interface{ SetNorm(Norm) }); ok {
			r.SetNorm(norm)
		}
	}
}

// dual exposes one adjoint solution as the field of a Solved
type dual struct {
	f Field
}

func (o dual) Field() Field                { return o.f }
func (o dual) Adjoint(q int) (Field, bool) { return nil, false }

// EstimateError computes the adjoint-weighted error
func (o *AdjointResidual) EstimateError(sys Solved, qois *qoi.Set) (ev *ErrorVector, err error) {

	// check
	if qois == nil {
		qois = o.QoIs
	}
	if !o.AdjointAlreadySolved {
		return nil, fmt.Errorf("%w: adjoint problems must be solved before estimating the error", ErrPrecondition)
	}
	if qois == nil || qois.Len() == 0 {
		return nil, fmt.Errorf("%w: adjoint residual estimator needs at least one QoI", ErrPrecondition)
	}
	idx := qois.Indices()
	fields := make([]Field, len(idx))
	weights := make([]float64, len(idx))
	for k, q := range idx {
		f, ok := sys.Adjoint(q)
		if !ok {
			return nil, fmt.Errorf("%w: adjoint solution of QoI %d is not available", ErrPrecondition, q)
		}
		fields[k] = f
		weights[k], _ = qois.Weight(q)
	}

	// primal
	ev, err = o.Primal.EstimateError(sys, qois)
	if err != nil {
		return
	}

	// duals
	duals := make([]*ErrorVector, len(idx))
	for k, f := range fields {
		duals[k], err = o.Dual.EstimateError(dual{f}, qois)
		if err != nil {
			return nil, err
		}
		if duals[k].Revision != ev.Revision || duals[k].Len() != ev.Len() {
			return nil, fmt.Errorf("%w: dual error of QoI %d was computed on a different mesh", ErrPrecondition, idx[k])
		}
	}

	// message
	if o.Verbose {
		io.Pf("primal error = %g\n", ev.L2Norm())
		for k, q := range idx {
			io.Pf("dual error (QoI %d) = %g\n", q, duals[k].L2Norm())
		}
	}

	// combine
	combine := o.Combine
	if combine == nil {
		combine = ProductCombine
	}
	err = forEach(ev.Len(), func(i int) error {
		d := make([]float64, len(duals))
		for k := range duals {
			d[k] = duals[k].Vals[i]
		}
		ev.Vals[i] = math.Abs(combine(ev.Vals[i], d, weights))
		return nil
	})
	return
}
