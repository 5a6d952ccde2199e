// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package est

import (
	"math"
	"sort"
	"sync"

	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/msh"
	"github.com/certik/libmesh-sub001/qoi"
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

func init() {
	allocators[inp.IndicatorPatchRecovery] = func(dat *inp.AdaptData) (Estimator, error) {
		return NewPatchRecovery(dat), nil
	}
}

// PatchRecovery implements the superconvergent patch recovery estimator. A linear polynomial
// is fitted, in the least-squares sense, to the gradient (and value, if Norm.L2 > 0) sampled
// at the Gauss points of a patch of face neighbours. The error of element e is
//
//   η_e² = L2・∫_e (u - u*)² + H1・∫_e |∇u - G*|²
type PatchRecovery struct {
	TargetPatchSize int  // minimum number of elements in a patch
	PatchReuse      bool // reuse patches while the mesh revision does not change
	Norm            Norm // error norm; zero value => H1 seminorm

	// patches cache
	mu       sync.Mutex
	revision int     // mesh revision of cached patches
	patches  [][]int // [nactive] patches
	cached   bool    // patches hold a valid cache
	Builds   int     // number of times patches were built
}

// NewPatchRecovery returns a new estimator configured with dat
func NewPatchRecovery(dat *inp.AdaptData) *PatchRecovery {
	return &PatchRecovery{
		TargetPatchSize: dat.TargetPatchSize,
		PatchReuse:      dat.PatchReuse,
		Norm:            Norm{L2: dat.NormL2, H1: dat.NormH1},
	}
}

// SetPatchReuse sets the patch reuse flag
func (o *PatchRecovery) SetPatchReuse(reuse bool) { o.PatchReuse = reuse }

// SetNorm sets the error norm
func (o *PatchRecovery) SetNorm(norm Norm) { o.Norm = norm }

// EstimateError computes the error of the primal field
func (o *PatchRecovery) EstimateError(sys Solved, qois *qoi.Set) (ev *ErrorVector, err error) {
	return o.estimate(sys.Field())
}

func (o *PatchRecovery) estimate(f Field) (ev *ErrorVector, err error) {
	m := f.Mesh()
	ev, err = newErrorVector(m)
	if err != nil {
		return
	}
	norm := o.Norm
	if norm.L2 == 0 && norm.H1 == 0 {
		norm.H1 = 1
	}
	patches, err := o.getPatches(m, ev.Ids)
	if err != nil {
		return nil, err
	}
	err = forEach(len(ev.Ids), func(k int) error {
		id := ev.Ids[k]
		if f.FreeDofs(id) == 0 {
			return nil
		}
		η2, e := recoverElem(m, f, id, patches[k], norm)
		if e != nil {
			return e
		}
		ev.Vals[k] = math.Sqrt(η2)
		return nil
	})
	return
}

// getPatches returns the patches of the active elements, using the cache if allowed
func (o *PatchRecovery) getPatches(m *msh.Mesh, ids []int) (patches [][]int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.PatchReuse && o.cached && o.revision == m.Revision() && len(o.patches) == len(ids) {
		return o.patches, nil
	}
	patches = make([][]int, len(ids))
	err = forEach(len(ids), func(k int) error {
		patches[k] = buildPatch(m, ids[k], o.TargetPatchSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.patches, o.revision, o.cached = patches, m.Revision(), true
	o.Builds++
	return
}

// buildPatch adds layers of face neighbours to element id until the patch has at least
// target elements or cannot grow anymore
func buildPatch(m *msh.Mesh, id, target int) (patch []int) {
	patch = []int{id}
	inpatch := map[int]bool{id: true}
	var buf []int
	for len(patch) < target {
		n := len(patch)
		for _, p := range patch[:n] {
			for s := 0; s < 4; s++ {
				buf = m.ActiveNeighbors(p, s, buf[:0])
				for _, nb := range buf {
					if !inpatch[nb] {
						inpatch[nb] = true
						patch = append(patch, nb)
					}
				}
			}
		}
		if len(patch) == n {
			break
		}
	}
	sort.Ints(patch[1:])
	return
}

// recoverElem fits the recovered fields on the patch and integrates the squared error over id
func recoverElem(m *msh.Mesh, f Field, id int, patch []int, norm Norm) (η2 float64, err error) {

	// scaling
	xc, yc := m.Center(id)
	he := m.Size(id)

	// sample gradients and values at Gauss points
	npts := len(patch) * len(gp2) * len(gp2)
	P := mat.NewDense(npts, 3, nil)
	B := mat.NewDense(npts, 3, nil)
	var u [4]float64
	row := 0
	for _, p := range patch {
		f.ElemValues(p, u[:])
		x0, y0 := m.Origin(p)
		h := m.Size(p)
		for _, ξ := range gp2 {
			for _, η := range gp2 {
				x, y := x0+ξ*h, y0+η*h
				gx, gy := grad(u[:], h, ξ, η)
				P.SetRow(row, []float64{1, (x - xc) / he, (y - yc) / he})
				B.SetRow(row, []float64{gx, gy, value(u[:], ξ, η)})
				row++
			}
		}
	}

	// least squares
	var C mat.Dense
	err = C.Solve(P, B)
	if err != nil {
		return 0, chk.Err("patch recovery of element %d failed (patch size = %d):\n%v", id, len(patch), err)
	}

	// integrate error over element
	f.ElemValues(id, u[:])
	x0, y0 := m.Origin(id)
	for i, ξ := range gp3 {
		for j, η := range gp3 {
			X, Y := (x0+ξ*he-xc)/he, (y0+η*he-yc)/he
			gx, gy := grad(u[:], he, ξ, η)
			rx := C.At(0, 0) + C.At(1, 0)*X + C.At(2, 0)*Y
			ry := C.At(0, 1) + C.At(1, 1)*X + C.At(2, 1)*Y
			w := gw3[i] * gw3[j] * he * he
			if norm.H1 > 0 {
				η2 += norm.H1 * w * ((gx-rx)*(gx-rx) + (gy-ry)*(gy-ry))
			}
			if norm.L2 > 0 {
				ru := C.At(0, 2) + C.At(1, 2)*X + C.At(2, 2)*Y
				d := value(u[:], ξ, η) - ru
				η2 += norm.L2 * w * d * d
			}
		}
	}
	return
}
