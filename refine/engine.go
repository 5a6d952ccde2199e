// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package refine implements the flagging, compatibility and commit phases of mesh refinement
package refine

import (
	"fmt"
	"math"
	"sort"

	"github.com/certik/libmesh-sub001/est"
	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/cpmech/gosl/io"
)

// Topology defines the mesh operations used by the engine
type Topology interface {
	Revision() int
	ActiveElems() []int
	Elem(id int) *msh.Elem
	ActiveNeighbors(id, s int, buf []int) []int
	RefineElem(id int) error
	CoarsenParent(id int) error
	CleanFlags()
	Update()
}

// Engine implements the refinement engine
type Engine struct {
	Mesh             Topology // mesh
	RefineFraction   float64  // fraction of elements (or of the error range) to refine
	CoarsenFraction  float64  // fraction of elements (or of the error range) to coarsen
	CoarsenThreshold float64  // tolerance policy: coarsen if error < threshold・max(error)
	CoarsenByParents bool     // flag complete sibling groups for coarsening based on their joint error
	MaxHLevel        int      // max refinement level; 0 => unlimited
	MaxPasses        int      // max number of compatibility sweeps; 0 => automatic
	Workers          int      // max number of goroutines; 0 => GOMAXPROCS
	Verbose          bool     // show messages
}

// NewEngine returns a new engine configured with the adaptivity data
func NewEngine(mesh Topology, dat *inp.AdaptData) *Engine {
	return &Engine{
		Mesh:             mesh,
		RefineFraction:   dat.RefineFraction,
		CoarsenFraction:  dat.CoarsenFraction,
		CoarsenThreshold: dat.CoarsenThreshold,
		CoarsenByParents: dat.CoarsenByParents,
		MaxHLevel:        dat.MaxHLevel,
		MaxPasses:        dat.MaxCompatPasses,
	}
}

// Apply flags elements, makes flags compatible and commits. If targetReached is returned,
// the mesh is unchanged
func (o *Engine) Apply(p Policy, ev *est.ErrorVector) (targetReached bool, err error) {
	targetReached, err = o.FlagElements(p, ev)
	if err != nil || targetReached {
		return
	}
	err = o.MakeCompatible()
	if err != nil {
		return
	}
	nref, ncrs, err := o.Commit()
	if err != nil {
		return
	}
	if o.Verbose {
		io.Pf("refine: policy = %v, refined = %d, coarsened groups = %d, nactive = %d\n", p, nref, ncrs, len(o.Mesh.ActiveElems()))
	}
	return
}

// RefineUniformly refines all active elements n times
func (o *Engine) RefineUniformly(n int) (err error) {
	for i := 0; i < n; i++ {
		_, err = o.Apply(Policy{Kind: Uniform}, nil)
		if err != nil {
			return
		}
	}
	return
}

// FlagElements sets the refinement flags of active elements according to the policy
func (o *Engine) FlagElements(p Policy, ev *est.ErrorVector) (targetReached bool, err error) {

	// check
	if o.RefineFraction < 0 || o.RefineFraction > 1 || o.CoarsenFraction < 0 || o.CoarsenFraction > 1 {
		return false, fmt.Errorf("%w: refine_fraction (%g) and coarsen_fraction (%g) must be in [0,1]", ErrConfig, o.RefineFraction, o.CoarsenFraction)
	}
	ids := o.Mesh.ActiveElems()
	o.Mesh.CleanFlags()

	// uniform
	if p.Kind == Uniform {
		for _, id := range ids {
			if o.refinable(id) {
				o.Mesh.Elem(id).Flag = msh.Refine
			}
		}
		return
	}

	// check error vector
	if ev == nil {
		return false, fmt.Errorf("%w: policy %v needs an error vector", ErrStaleErrorVector, p)
	}
	if ev.Revision != o.Mesh.Revision() || ev.Len() != len(ids) {
		return false, fmt.Errorf("%w: vector has revision %d and %d values; mesh has revision %d and %d active elements", ErrStaleErrorVector, ev.Revision, ev.Len(), o.Mesh.Revision(), len(ids))
	}
	emax, emin := ev.Max(), math.Inf(1)
	for _, v := range ev.Vals {
		emin = math.Min(emin, v)
	}

	// flag
	switch p.Kind {

	case ErrorFraction:
		if emax == 0 {
			return
		}
		refcut := (1.0 - o.RefineFraction) * emax
		crscut := o.CoarsenFraction*(emax-emin) + emin
		o.flagRefine(ev, func(v float64) bool { return v > refcut })
		o.flagCoarsen(ev, func(v float64) bool { return v < crscut })

	case ErrorTolerance:
		if p.Tol <= 0 {
			return false, fmt.Errorf("%w: global tolerance must be positive; got %g", ErrConfig, p.Tol)
		}
		if emax == 0 {
			return
		}
		localTol := p.Tol / math.Sqrt(float64(len(ids)))
		if ev.L2Norm() > p.Tol {
			o.flagRefine(ev, func(v float64) bool { return v > localTol })
		}
		crscut := o.CoarsenThreshold * emax
		o.flagCoarsen(ev, func(v float64) bool { return v < crscut })

	case ElementCountTarget:
		if p.Target <= 0 {
			return false, fmt.Errorf("%w: target number of elements must be positive; got %d", ErrConfig, p.Target)
		}
		n := len(ids)
		if n >= p.Target {
			return true, nil
		}
		if emax == 0 {
			return
		}
		nref := imin(int(math.Ceil(o.RefineFraction*float64(n))), (p.Target-n+2)/3)
		nref = o.flagLargest(ev, nref)
		if nref > 0 {
			ncrs := imin(int(math.Floor(o.CoarsenFraction*float64(n))), 4*nref-1)
			o.flagSmallest(ev, ncrs)
		}

	default:
		return false, fmt.Errorf("%w: unknown policy kind %d", ErrConfig, p.Kind)
	}
	return
}

// refinable tells whether element id can be refined without exceeding MaxHLevel
func (o *Engine) refinable(id int) bool {
	return o.MaxHLevel <= 0 || o.Mesh.Elem(id).Level < o.MaxHLevel
}

// coarsenable tells whether element id has a parent
func (o *Engine) coarsenable(id int) bool {
	return o.Mesh.Elem(id).Level > 0
}

// flagRefine flags elements whose error satisfies cond
func (o *Engine) flagRefine(ev *est.ErrorVector, cond func(v float64) bool) {
	for k, id := range ev.Ids {
		if cond(ev.Vals[k]) && o.refinable(id) {
			o.Mesh.Elem(id).Flag = msh.Refine
		}
	}
}

// flagCoarsen flags elements (or sibling groups with CoarsenByParents) whose error satisfies cond
func (o *Engine) flagCoarsen(ev *est.ErrorVector, cond func(v float64) bool) {
	if o.CoarsenByParents {
		for _, g := range o.groups(ev) {
			if cond(g.err) {
				o.flagGroup(g)
			}
		}
		return
	}
	for k, id := range ev.Ids {
		e := o.Mesh.Elem(id)
		if e.Flag == msh.DoNothing && cond(ev.Vals[k]) && o.coarsenable(id) {
			e.Flag = msh.Coarsen
		}
	}
}

// flagLargest flags up to n elements with the largest errors; ties are broken by id.
// Returns the number of flagged elements
func (o *Engine) flagLargest(ev *est.ErrorVector, n int) (nflagged int) {
	order := make([]int, ev.Len())
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ev.Vals[order[a]] > ev.Vals[order[b]]
	})
	for _, k := range order {
		if nflagged >= n {
			break
		}
		if id := ev.Ids[k]; o.refinable(id) {
			o.Mesh.Elem(id).Flag = msh.Refine
			nflagged++
		}
	}
	return
}

// flagSmallest flags up to n elements with the smallest errors for coarsening; with
// CoarsenByParents, complete sibling groups are flagged while the total stays within n
func (o *Engine) flagSmallest(ev *est.ErrorVector, n int) {
	if n <= 0 {
		return
	}
	if o.CoarsenByParents {
		groups := o.groups(ev)
		sort.SliceStable(groups, func(a, b int) bool { return groups[a].err < groups[b].err })
		nflagged := 0
		for _, g := range groups {
			if nflagged+len(g.children) > n {
				break
			}
			o.flagGroup(g)
			nflagged += len(g.children)
		}
		return
	}
	order := make([]int, ev.Len())
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ev.Vals[order[a]] < ev.Vals[order[b]]
	})
	nflagged := 0
	for _, k := range order {
		if nflagged >= n {
			break
		}
		id := ev.Ids[k]
		if e := o.Mesh.Elem(id); e.Flag == msh.DoNothing && o.coarsenable(id) {
			e.Flag = msh.Coarsen
			nflagged++
		}
	}
}

// group holds a complete group of active siblings
type group struct {
	parent   int     // parent id
	children []int   // active children
	err      float64 // RMS of children errors
}

// groups returns the sibling groups whose children are all active and not flagged for
// refinement, ordered by parent id
func (o *Engine) groups(ev *est.ErrorVector) (res []group) {
	index := make(map[int]int)
	for k, id := range ev.Ids {
		e := o.Mesh.Elem(id)
		if e.Parent < 0 {
			continue
		}
		g, ok := index[e.Parent]
		if !ok {
			g = len(res)
			index[e.Parent] = g
			res = append(res, group{parent: e.Parent})
		}
		res[g].children = append(res[g].children, id)
		res[g].err += ev.Vals[k] * ev.Vals[k]
	}
	complete := res[:0]
	for _, g := range res {
		if len(g.children) != len(o.Mesh.Elem(g.parent).Children) {
			continue
		}
		skip := false
		for _, c := range g.children {
			if o.Mesh.Elem(c).Flag == msh.Refine {
				skip = true
				break
			}
		}
		if !skip {
			g.err = math.Sqrt(g.err / float64(len(g.children)))
			complete = append(complete, g)
		}
	}
	sort.SliceStable(complete, func(a, b int) bool { return complete[a].parent < complete[b].parent })
	return complete
}

// flagGroup flags all children of a group for coarsening
func (o *Engine) flagGroup(g group) {
	for _, c := range g.children {
		o.Mesh.Elem(c).Flag = msh.Coarsen
	}
}

func imin(a, b int) int {
	if a < b {
		return a
	}
	return b
}
