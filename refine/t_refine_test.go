// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refine

import (
	"errors"
	"testing"

	"github.com/certik/libmesh-sub001/est"
	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// errvec returns an error vector with values computed by fcn(k, id)
func errvec(m *msh.Mesh, fcn func(k, id int) float64) *est.ErrorVector {
	ids := append([]int(nil), m.ActiveElems()...)
	ev := &est.ErrorVector{Revision: m.Revision(), Ids: ids, Vals: make([]float64, len(ids))}
	for k, id := range ids {
		ev.Vals[k] = fcn(k, id)
	}
	return ev
}

// flagged returns the ids of active elements with the given flag
func flagged(m *msh.Mesh, flag msh.Flag) (ids []int) {
	for _, id := range m.ActiveElems() {
		if m.Elem(id).Flag == flag {
			ids = append(ids, id)
		}
	}
	return
}

func Test_policy01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("policy01. policies from configuration")

	var dat inp.AdaptData
	dat.SetDefault()
	p, err := PolicyFrom(&dat)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.String(tst, p.String(), "error_fraction")

	dat.NelemTarget = 2000
	p, _ = PolicyFrom(&dat)
	chk.String(tst, p.String(), "element_count_target(2000)")

	dat.GlobalTolerance = 1e-3
	_, err = PolicyFrom(&dat)
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, ErrConfig) {
		tst.Errorf("expected ErrConfig; got %v", err)
	}

	dat.NelemTarget = 0
	p, _ = PolicyFrom(&dat)
	chk.String(tst, p.String(), "error_tolerance(0.001)")

	dat.RefineUniformly = true
	p, _ = PolicyFrom(&dat)
	chk.String(tst, p.String(), "uniform")
}

func Test_uniform01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("uniform01. uniform refinement and max level")

	m := msh.NewSquare(2)
	o := &Engine{Mesh: m}
	err := o.RefineUniformly(2)
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.Int(tst, "nactive", m.NActiveElem(), 64)
	chk.Int(tst, "max level", m.MaxLevel(), 2)
	chk.Int(tst, "revision", m.Revision(), 3)

	m = msh.NewSquare(2)
	o = &Engine{Mesh: m, MaxHLevel: 1}
	o.RefineUniformly(3)
	chk.Int(tst, "nactive (max_h_level=1)", m.NActiveElem(), 16)
	chk.Int(tst, "revision (max_h_level=1)", m.Revision(), 2)
}

func Test_flag01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("flag01. all-zero errors, stale vectors and configuration errors")

	m := msh.NewSquare(4)
	m.RefineElem(5)
	m.Update()
	o := &Engine{Mesh: m, RefineFraction: 0.5, CoarsenFraction: 0.5, CoarsenThreshold: 0.5}
	zero := errvec(m, func(k, id int) float64 { return 0 })
	for _, p := range []Policy{{Kind: ErrorFraction}, {Kind: ErrorTolerance, Tol: 1e-3}, {Kind: ElementCountTarget, Target: 100}} {
		reached, err := o.FlagElements(p, zero)
		if err != nil {
			tst.Errorf("%v: %v", p, err)
			return
		}
		if reached {
			tst.Errorf("%v: target should not be reached\n", p)
		}
		chk.Int(tst, p.String()+": number of flagged elements", len(m.ActiveElems())-len(flagged(m, msh.DoNothing)), 0)
	}

	// tolerance must be positive
	_, err := o.FlagElements(Policy{Kind: ErrorTolerance}, zero)
	if !errors.Is(err, ErrConfig) {
		tst.Errorf("expected ErrConfig; got %v", err)
	}

	// stale vector
	m.RefineElem(0)
	m.Update()
	_, err = o.FlagElements(Policy{Kind: ErrorFraction}, zero)
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, ErrStaleErrorVector) {
		tst.Errorf("expected ErrStaleErrorVector; got %v", err)
	}
	_, err = o.FlagElements(Policy{Kind: ErrorFraction}, nil)
	if !errors.Is(err, ErrStaleErrorVector) {
		tst.Errorf("expected ErrStaleErrorVector; got %v", err)
	}
}

func Test_flag02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("flag02. fraction and tolerance policies")

	// fraction: refine if e > (1-0.5)・max
	m := msh.NewSquare(4)
	o := &Engine{Mesh: m, RefineFraction: 0.5}
	ev := errvec(m, func(k, id int) float64 { return float64(id) })
	o.FlagElements(Policy{Kind: ErrorFraction}, ev)
	chk.Ints(tst, "refine (fraction)", flagged(m, msh.Refine), []int{8, 9, 10, 11, 12, 13, 14, 15})

	// tolerance: local tolerance = 2/√16 = 0.5; global error ≈ 3.39
	ev = errvec(m, func(k, id int) float64 {
		if id == 3 || id == 7 {
			return 2
		}
		return 0.5
	})
	o.FlagElements(Policy{Kind: ErrorTolerance, Tol: 2}, ev)
	chk.Ints(tst, "refine (tolerance)", flagged(m, msh.Refine), []int{3, 7})

	// global error below tolerance => nothing to refine
	o.FlagElements(Policy{Kind: ErrorTolerance, Tol: 10}, ev)
	chk.Int(tst, "refine (converged)", len(flagged(m, msh.Refine)), 0)
}

func Test_target01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("target01. element count target")

	for _, target := range []int{100, 101, 70} {
		m := msh.NewSquare(8)
		o := &Engine{Mesh: m, RefineFraction: 0.3}
		ev := errvec(m, func(k, id int) float64 { return float64((id * 37) % 64) })
		reached, err := o.Apply(Policy{Kind: ElementCountTarget, Target: target}, ev)
		if err != nil {
			tst.Errorf("%v", err)
			return
		}
		if reached {
			tst.Errorf("target should not be reached yet\n")
		}
		n := m.NActiveElem()
		io.Pforan("target = %d  =>  nactive = %d\n", target, n)
		if n <= 64 || n > target+2 {
			tst.Errorf("number of elements must increase without exceeding target+2. %d is not in (64,%d]", n, target+2)
		}

		// refine_fraction limits the first step
		if target == 100 {
			chk.Int(tst, "nactive", n, 100)
		}

		// target reached => no changes
		rev := m.Revision()
		ev = errvec(m, func(k, id int) float64 { return 1 })
		reached, _ = o.Apply(Policy{Kind: ElementCountTarget, Target: n}, ev)
		if !reached {
			tst.Errorf("target should be reached\n")
		}
		chk.Int(tst, "revision", m.Revision(), rev)
	}
}

func Test_target02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("target02. element count target with coarsening")

	for _, byParents := range []bool{true, false} {
		m := msh.NewSquare(4)
		o := &Engine{Mesh: m, RefineFraction: 0.3, CoarsenFraction: 0.5, CoarsenByParents: byParents}
		o.RefineUniformly(1)
		n0 := m.NActiveElem()
		ev := errvec(m, func(k, id int) float64 { return float64((id * 13) % 97) })
		_, err := o.Apply(Policy{Kind: ElementCountTarget, Target: 80}, ev)
		if err != nil {
			tst.Errorf("%v", err)
			return
		}
		n := m.NActiveElem()
		io.Pforan("coarsen_by_parents = %v: %d => %d\n", byParents, n0, n)
		if n <= n0 || n > 82 {
			tst.Errorf("number of elements must increase without exceeding target+2. %d is not in (%d,82]", n, n0)
		}
		err = m.CheckOneIrregular()
		if err != nil {
			tst.Errorf("%v", err)
		}
	}
}

func Test_compat01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("compat01. 1-irregularity")

	// refining child 16 (lower-left corner of 5) forces refinement of 1 and 4
	m := msh.NewSquare(4)
	m.RefineElem(5)
	m.Update()
	o := &Engine{Mesh: m, RefineFraction: 0.5}
	ev := errvec(m, func(k, id int) float64 {
		if id == 16 {
			return 1
		}
		return 0
	})
	o.FlagElements(Policy{Kind: ErrorFraction}, ev)
	chk.Ints(tst, "flagged", flagged(m, msh.Refine), []int{16})
	err := o.MakeCompatible()
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.Ints(tst, "compatible", flagged(m, msh.Refine), []int{1, 4, 16})
	nref, ncrs, err := o.Commit()
	if err != nil {
		tst.Errorf("%v", err)
		return
	}
	chk.Int(tst, "nrefined", nref, 3)
	chk.Int(tst, "ncoarsened", ncrs, 0)
	err = m.CheckOneIrregular()
	if err != nil {
		tst.Errorf("%v", err)
	}

	// cap on sweeps
	m = msh.NewSquare(4)
	m.RefineElem(5)
	m.Update()
	o = &Engine{Mesh: m, MaxPasses: 1}
	m.Elem(16).Flag = msh.Refine
	err = o.MakeCompatible()
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, ErrIncompatible) {
		tst.Errorf("expected ErrIncompatible; got %v", err)
	}
}

func Test_coarsen01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("coarsen01. sibling groups")

	// incomplete group
	m := msh.NewSquare(2)
	m.RefineElem(0)
	m.Update()
	o := &Engine{Mesh: m}
	for _, id := range []int{4, 5, 6} {
		m.Elem(id).Flag = msh.Coarsen
	}
	o.MakeCompatible()
	chk.Int(tst, "coarsen (incomplete group)", len(flagged(m, msh.Coarsen)), 0)

	// complete group
	for _, id := range []int{4, 5, 6, 7} {
		m.Elem(id).Flag = msh.Coarsen
	}
	o.MakeCompatible()
	chk.Ints(tst, "coarsen (complete group)", flagged(m, msh.Coarsen), []int{4, 5, 6, 7})
	nref, ncrs, _ := o.Commit()
	chk.Int(tst, "nrefined", nref, 0)
	chk.Int(tst, "ncoarsened", ncrs, 1)
	chk.Ints(tst, "active", m.ActiveElems(), []int{0, 1, 2, 3})
	chk.Int(tst, "flag of 0", int(m.Elem(0).Flag), int(msh.JustCoarsened))

	// coarsening blocked by 1-irregularity
	m = msh.NewSquare(2)
	m.RefineElem(0) // 4..7
	m.RefineElem(1) // 8..11
	m.Update()
	m.RefineElem(5) // 12..15; 13 and 14 are next to 8
	m.Update()
	o = &Engine{Mesh: m}
	for _, id := range []int{8, 9, 10, 11} {
		m.Elem(id).Flag = msh.Coarsen
	}
	o.MakeCompatible()
	chk.Int(tst, "coarsen (blocked)", len(flagged(m, msh.Coarsen)), 0)
	rev := m.Revision()
	nref, ncrs, _ = o.Commit()
	chk.Int(tst, "nothing committed", nref+ncrs, 0)
	chk.Int(tst, "revision", m.Revision(), rev)
}

func Test_coarsen02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("coarsen02. coarsen by parents")

	// errors of group 0 (children 4..7) are small but one child is above the cutoff
	m := msh.NewSquare(2)
	o := &Engine{Mesh: m, CoarsenThreshold: 0.5}
	o.RefineUniformly(1)
	ev := errvec(m, func(k, id int) float64 {
		switch id {
		case 4, 5, 6:
			return 0.1
		case 7:
			return 6
		}
		return 10
	})

	// per element: 4,5,6 flagged; incomplete group is then unflagged
	o.FlagElements(Policy{Kind: ErrorTolerance, Tol: 100}, ev)
	chk.Ints(tst, "per element", flagged(m, msh.Coarsen), []int{4, 5, 6})
	o.MakeCompatible()
	chk.Int(tst, "per element (compatible)", len(flagged(m, msh.Coarsen)), 0)

	// by parents: RMS of group = √((3・0.01 + 36)/4) ≈ 3 < 0.5・10
	o.CoarsenByParents = true
	o.FlagElements(Policy{Kind: ErrorTolerance, Tol: 100}, ev)
	chk.Ints(tst, "by parents", flagged(m, msh.Coarsen), []int{4, 5, 6, 7})
	o.MakeCompatible()
	nref, ncrs, _ := o.Commit()
	chk.Int(tst, "nrefined", nref, 0)
	chk.Int(tst, "ncoarsened", ncrs, 1)
	chk.Int(tst, "nactive", m.NActiveElem(), 13)
}
