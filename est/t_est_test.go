// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package est

import (
	"errors"
	"math"
	"testing"

	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/certik/libmesh-sub001/qoi"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// fnField interpolates a function at the corners of elements
type fnField struct {
	m     *msh.Mesh
	fcn   func(x, y float64) float64
	fixed map[int]bool // elements without free DOFs
}

func (o *fnField) Mesh() *msh.Mesh { return o.m }

func (o *fnField) ElemValues(eid int, u []float64) {
	for k := 0; k < 4; k++ {
		u[k] = o.fcn(o.m.Corner(eid, k))
	}
}

func (o *fnField) FreeDofs(eid int) int {
	if o.fixed[eid] {
		return 0
	}
	return 4
}

// solved holds primal and adjoint fields
type solved struct {
	primal Field
	duals  map[int]Field
}

func (o *solved) Field() Field { return o.primal }

func (o *solved) Adjoint(q int) (Field, bool) {
	f, ok := o.duals[q]
	return f, ok
}

func linear(x, y float64) float64 { return 1 + 2*x - 3*y }
func square(x, y float64) float64 { return x * x }

// refined returns a 4×4 square mesh with element 5 refined
func refined() *msh.Mesh {
	m := msh.NewSquare(4)
	m.RefineElem(5)
	m.Update()
	return m
}

func Test_kelly01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("kelly01. linear field and hanging faces")

	m := refined()
	sys := &solved{primal: &fnField{m: m, fcn: linear}}
	var kelly Kelly
	ev, err := kelly.EstimateError(sys, nil)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.Int(tst, "len", ev.Len(), 19)
	chk.Int(tst, "revision", ev.Revision, m.Revision())
	chk.Float64(tst, "max", 1e-13, ev.Max(), 0)
}

func Test_kelly02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("kelly02. quadratic field, idempotence")

	m := msh.NewSquare(4)
	f := &fnField{m: m, fcn: square, fixed: map[int]bool{15: true}}
	sys := &solved{primal: f}
	var kelly Kelly
	ev1, err := kelly.EstimateError(sys, nil)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	io.Pforan("η = %v\n", ev1.Vals)

	// the jump of ∂u/∂x across vertical faces is 2h
	h := 0.25
	η5, _ := ev1.Value(5)
	η4, _ := ev1.Value(4)
	η15, _ := ev1.Value(15)
	chk.Float64(tst, "η5 (two vertical faces)", 1e-15, η5, math.Sqrt(8)*h*h)
	chk.Float64(tst, "η4 (one vertical face)", 1e-15, η4, 2*h*h)
	chk.Float64(tst, "η15 (no free DOFs)", 1e-17, η15, 0)
	for _, v := range ev1.Vals {
		if v < 0 {
			tst.Errorf("error values must be non-negative\n")
			return
		}
	}

	ev2, _ := kelly.EstimateError(sys, nil)
	chk.Array(tst, "idempotence", 1e-17, ev1.Vals, ev2.Vals)
}

func Test_patch01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("patch01. patches")

	m := msh.NewSquare(4)
	chk.Ints(tst, "patch of 5", buildPatch(m, 5, 4), []int{5, 1, 4, 6, 9})
	chk.Ints(tst, "patch of 0", buildPatch(m, 0, 4), []int{0, 1, 2, 4, 5, 8})
	chk.Ints(tst, "patch of 0 (target=1)", buildPatch(m, 0, 1), []int{0})

	one := msh.NewSquare(1)
	chk.Ints(tst, "cannot grow", buildPatch(one, 0, 4), []int{0})
}

func Test_patch02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("patch02. recovery")

	m := refined()
	var dat inp.AdaptData
	dat.SetDefault()
	dat.NormL2 = 1
	pr := NewPatchRecovery(&dat)

	// linear field is recovered exactly
	ev, err := pr.EstimateError(&solved{primal: &fnField{m: m, fcn: linear}}, nil)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.Float64(tst, "max", 1e-12, ev.Max(), 0)

	// quadratic field; patches are reused
	ev, err = pr.EstimateError(&solved{primal: &fnField{m: m, fcn: square}}, nil)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	io.Pforan("η = %v\n", ev.Vals)
	if ev.Max() <= 0 {
		tst.Errorf("error of quadratic field must be positive\n")
	}
	for _, v := range ev.Vals {
		if v < 0 {
			tst.Errorf("error values must be non-negative\n")
			return
		}
	}
	chk.Int(tst, "builds with reuse", pr.Builds, 1)

	// new revision => new patches
	m.RefineElem(0)
	m.Update()
	pr.EstimateError(&solved{primal: &fnField{m: m, fcn: square}}, nil)
	chk.Int(tst, "builds after refinement", pr.Builds, 2)

	// no reuse
	pr.SetPatchReuse(false)
	pr.EstimateError(&solved{primal: &fnField{m: m, fcn: square}}, nil)
	pr.EstimateError(&solved{primal: &fnField{m: m, fcn: square}}, nil)
	chk.Int(tst, "builds without reuse", pr.Builds, 4)
}

func Test_adjoint01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("adjoint01. preconditions and combination")

	m := msh.NewSquare(4)
	qois := qoi.FromWeights([]float64{0.5, -0.5})
	ar := &AdjointResidual{Primal: new(Kelly), Dual: new(Kelly)}
	primal := &fnField{m: m, fcn: square}
	dual := &fnField{m: m, fcn: func(x, y float64) float64 { return 2 * x * x }}

	// adjoint not solved
	_, err := ar.EstimateError(&solved{primal: primal}, qois)
	if !errors.Is(err, ErrPrecondition) {
		tst.Errorf("expected ErrPrecondition; got %v", err)
	}

	// missing dual
	ar.AdjointAlreadySolved = true
	_, err = ar.EstimateError(&solved{primal: primal, duals: map[int]Field{0: dual}}, qois)
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, ErrPrecondition) {
		tst.Errorf("expected ErrPrecondition; got %v", err)
	}

	// primal・Σ|w|・dual = p・(0.5・2p + 0.5・2p) = 2p²
	sys := &solved{primal: primal, duals: map[int]Field{0: dual, 1: dual}}
	ev, err := ar.EstimateError(sys, qois)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	h := 0.25
	p := math.Sqrt(8) * h * h
	η5, _ := ev.Value(5)
	chk.Float64(tst, "η5", 1e-15, η5, 2*p*p)

	// custom combination
	ar.Combine = func(primal float64, duals, weights []float64) float64 { return primal + duals[0] }
	ev, _ = ar.EstimateError(sys, qois)
	η5, _ = ev.Value(5)
	chk.Float64(tst, "η5 (sum)", 1e-15, η5, 3*p)
}

func Test_factory01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("factory01. estimators by name")

	var dat inp.AdaptData
	dat.SetDefault()
	_, err := New("residual", &dat)
	if !errors.Is(err, ErrUnknownIndicator) {
		tst.Errorf("expected ErrUnknownIndicator; got %v", err)
	}

	e, err := New(inp.IndicatorAdjointResidual, &dat)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	ar, ok := e.(*AdjointResidual)
	if !ok {
		tst.Errorf("adjoint_residual should allocate *AdjointResidual\n")
		return
	}
	ar.SetPatchReuse(false)
	ar.SetNorm(Norm{L2: 1})
	for _, sub := range []Estimator{ar.Primal, ar.Dual} {
		pr, ok := sub.(*PatchRecovery)
		if !ok {
			tst.Errorf("sub-estimators should be *PatchRecovery\n")
			return
		}
		if pr.PatchReuse {
			tst.Errorf("patch reuse should have been forwarded\n")
		}
		chk.Float64(tst, "L2 weight", 1e-17, pr.Norm.L2, 1)
		chk.Float64(tst, "H1 weight", 1e-17, pr.Norm.H1, 0)
	}
}

func Test_errvec01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("errvec01. error vector and empty meshes")

	ev := &ErrorVector{Ids: []int{2, 5, 7}, Vals: []float64{3, 0, 4}}
	v, ok := ev.Value(7)
	chk.Float64(tst, "value", 1e-17, v, 4)
	if _, ok = ev.Value(3); ok {
		tst.Errorf("3 is not in the vector\n")
	}
	chk.Float64(tst, "max", 1e-17, ev.Max(), 4)
	chk.Float64(tst, "sum", 1e-17, ev.Sum(), 7)
	chk.Float64(tst, "L2", 1e-15, ev.L2Norm(), 5)
	chk.Float64(tst, "RMS", 1e-15, ev.RMS(), 5/math.Sqrt(3))

	empty := msh.NewGrid(2, 2, 0, 0, 1, func(i, j int) bool { return true })
	var kelly Kelly
	_, err := kelly.EstimateError(&solved{primal: &fnField{m: empty, fcn: linear}}, nil)
	if err == nil {
		tst.Errorf("mesh without active elements should fail\n")
	}
}
