// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refine

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/certik/libmesh-sub001/msh"
	"github.com/cpmech/gosl/chk"
	"golang.org/x/sync/errgroup"
)

// MakeCompatible modifies the flags until (1) only complete groups of active siblings are
// flagged for coarsening and (2) the mesh after Commit is 1-irregular. Flags only move from
// COARSEN to DO_NOTHING to REFINE, so sweeps reach a fixed point
func (o *Engine) MakeCompatible() (err error) {
	ids := o.Mesh.ActiveElems()
	n := len(ids)
	maxPasses := o.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 2*n + 2
	}
	flags := make([]msh.Flag, n)
	for pass := 0; pass < maxPasses; pass++ {

		// sweep: each element computes its own flag from the flags of the previous sweep
		var changed atomic.Bool
		err = o.forEach(n, func(k int) error {
			flags[k] = o.compatibleFlag(ids[k])
			if flags[k] != o.Mesh.Elem(ids[k]).Flag {
				changed.Store(true)
			}
			return nil
		})
		if err != nil {
			return
		}
		if !changed.Load() {
			return nil
		}
		for k, id := range ids {
			o.Mesh.Elem(id).Flag = flags[k]
		}
	}
	return fmt.Errorf("%w: no fixed point after %d sweeps", ErrIncompatible, maxPasses)
}

// postLevel returns the level of the element(s) replacing e after Commit
func postLevel(e *msh.Elem) int {
	switch e.Flag {
	case msh.Refine:
		return e.Level + 1
	case msh.Coarsen:
		return e.Level - 1
	}
	return e.Level
}

// compatibleFlag returns the flag of active element id compatible with its siblings and neighbours
func (o *Engine) compatibleFlag(id int) msh.Flag {

	// coarsening needs the complete group of active siblings
	e := o.Mesh.Elem(id)
	flag := e.Flag
	if flag == msh.Coarsen {
		if e.Parent < 0 {
			return msh.DoNothing
		}
		for _, c := range o.Mesh.Elem(e.Parent).Children {
			if s := o.Mesh.Elem(c); !s.Active || s.Flag != msh.Coarsen {
				return msh.DoNothing
			}
		}
	}

	// neighbours may be at most one level finer after commit
	level := postLevel(e)
	var buf []int
	for s := 0; s < 4; s++ {
		buf = o.Mesh.ActiveNeighbors(id, s, buf[:0])
		for _, nb := range buf {
			if postLevel(o.Mesh.Elem(nb)) > level+1 {
				if flag == msh.Coarsen {
					return msh.DoNothing
				}
				return msh.Refine
			}
		}
	}
	return flag
}

// Commit refines the elements flagged with REFINE and then coarsens the complete sibling
// groups flagged with COARSEN. The mesh is updated (and its revision changed) if anything
// was modified
func (o *Engine) Commit() (nrefined, ncoarsened int, err error) {

	// refine
	ids := append([]int(nil), o.Mesh.ActiveElems()...)
	var parents []int
	seen := make(map[int]bool)
	for _, id := range ids {
		e := o.Mesh.Elem(id)
		switch e.Flag {
		case msh.Refine:
			err = o.Mesh.RefineElem(id)
			if err != nil {
				return
			}
			nrefined++
		case msh.Coarsen:
			if e.Parent >= 0 && !seen[e.Parent] {
				seen[e.Parent] = true
				parents = append(parents, e.Parent)
			}
		}
	}

	// coarsen
	for _, p := range parents {
		err = o.Mesh.CoarsenParent(p)
		if err != nil {
			return nrefined, ncoarsened, chk.Err("commit failed:\n%v", err)
		}
		ncoarsened++
	}

	// update
	if nrefined+ncoarsened > 0 {
		o.Mesh.Update()
	}
	return
}

// forEach runs fcn(k) for k in [0,n) concurrently; each call must write only to slot k
func (o *Engine) forEach(n int, fcn func(k int) error) error {
	nw := o.Workers
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
