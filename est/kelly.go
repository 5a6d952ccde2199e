// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package est

import (
	"math"

	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/qoi"
)

func init() {
	allocators[inp.IndicatorKelly] = func(dat *inp.AdaptData) (Estimator, error) {
		return new(Kelly), nil
	}
}

// Kelly implements the flux-jump indicator
//
//   η_e² = Σ_faces h_e ∫_f [[∂u/∂n]]² ds
//
// Boundary faces are skipped. Hanging faces are integrated over the sides of the finer elements
type Kelly struct{}

// EstimateError computes the error indicator of the primal field
func (o *Kelly) EstimateError(sys Solved, qois *qoi.Set) (ev *ErrorVector, err error) {
	return o.estimate(sys.Field())
}

func (o *Kelly) estimate(f Field) (ev *ErrorVector, err error) {
	m := f.Mesh()
	ev, err = newErrorVector(m)
	if err != nil {
		return
	}
	err = forEach(len(ev.Ids), func(k int) error {
		id := ev.Ids[k]
		if f.FreeDofs(id) == 0 {
			return nil
		}
		var ue, un [4]float64
		var nbs []int
		f.ElemValues(id, ue[:])
		he := m.Size(id)
		var sum float64
		for s := 0; s < 4; s++ {
			nbs = m.ActiveNeighbors(id, s, nbs[:0])
			for _, nb := range nbs {
				f.ElemValues(nb, un[:])

				// shared segment: side of the finer element
				fine, side := id, s
				if m.Size(nb) < he {
					fine, side = nb, (s+2)%4
				}
				ax, ay := m.Corner(fine, side)
				bx, by := m.Corner(fine, (side+1)%4)
				length := m.Size(fine)

				// integrate jump²
				for i, t := range gp2 {
					x, y := ax+t*(bx-ax), ay+t*(by-ay)
					ξ, η := local(m, id, x, y)
					gxe, gye := grad(ue[:], he, ξ, η)
					ξ, η = local(m, nb, x, y)
					gxn, gyn := grad(un[:], m.Size(nb), ξ, η)
					jump := (gxe-gxn)*normalX[s] + (gye-gyn)*normalY[s]
					sum += he * jump * jump * gw2[i] * length
				}
			}
		}
		ev.Vals[k] = math.Sqrt(sum)
		return nil
	})
	return
}
