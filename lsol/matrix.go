// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package lsol implements sparse matrices and the linear solvers used by the nonlinear solver
package lsol

import (
	"sort"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// Triplet holds a matrix in coordinate format. Repeated entries are added together
type Triplet struct {
	m, n int       // dimensions
	i, j []int     // indices
	x    []float64 // values
}

// Init allocates triplet for an m×n matrix with capacity for max entries
func (o *Triplet) Init(m, n, max int) {
	o.m, o.n = m, n
	o.i = make([]int, 0, max)
	o.j = make([]int, 0, max)
	o.x = make([]float64, 0, max)
}

// Start resets the number of entries to zero, keeping the capacity
func (o *Triplet) Start() {
	o.i = o.i[:0]
	o.j = o.j[:0]
	o.x = o.x[:0]
}

// Put appends an entry
func (o *Triplet) Put(i, j int, x float64) {
	if i < 0 || i >= o.m || j < 0 || j >= o.n {
		chk.Panic("cannot put entry (%d,%d) in %d×%d triplet", i, j, o.m, o.n)
	}
	o.i = append(o.i, i)
	o.j = append(o.j, j)
	o.x = append(o.x, x)
}

// Size returns the dimensions
func (o *Triplet) Size() (m, n int) { return o.m, o.n }

// Len returns the number of entries, including repeated ones
func (o *Triplet) Len() int { return len(o.x) }

// ToCSR converts triplet to compressed-row format, adding repeated entries
func (o *Triplet) ToCSR() *CSR {
	a := &CSR{M: o.m, N: o.n, Ptr: make([]int, o.m+1)}
	count := make([]int, o.m)
	for _, i := range o.i {
		count[i]++
	}
	start := make([]int, o.m+1)
	for i := 0; i < o.m; i++ {
		start[i+1] = start[i] + count[i]
	}
	cols := make([]int, len(o.x))
	vals := make([]float64, len(o.x))
	pos := append([]int(nil), start[:o.m]...)
	for k, i := range o.i {
		cols[pos[i]] = o.j[k]
		vals[pos[i]] = o.x[k]
		pos[i]++
	}
	for i := 0; i < o.m; i++ {
		row := rowSorter{cols[start[i]:start[i+1]], vals[start[i]:start[i+1]]}
		sort.Stable(row)
		for k := 0; k < len(row.c); k++ {
			last := len(a.Col) - 1
			if k > 0 && last >= a.Ptr[i] && a.Col[last] == row.c[k] {
				a.Val[last] += row.v[k]
				continue
			}
			a.Col = append(a.Col, row.c[k])
			a.Val = append(a.Val, row.v[k])
		}
		a.Ptr[i+1] = len(a.Col)
	}
	return a
}

// CSR holds a matrix in compressed-row format
type CSR struct {
	M, N int       // dimensions
	Ptr  []int     // [M+1] row pointers
	Col  []int     // [nnz] column indices
	Val  []float64 // [nnz] values
}

// Nnz returns the number of stored entries
func (o *CSR) Nnz() int { return len(o.Val) }

// At returns entry (i,j)
func (o *CSR) At(i, j int) float64 {
	for k := o.Ptr[i]; k < o.Ptr[i+1]; k++ {
		if o.Col[k] == j {
			return o.Val[k]
		}
	}
	return 0
}

// MulVec computes y := A・x
func (o *CSR) MulVec(y, x []float64) {
	for i := 0; i < o.M; i++ {
		var s float64
		for k := o.Ptr[i]; k < o.Ptr[i+1]; k++ {
			s += o.Val[k] * x[o.Col[k]]
		}
		y[i] = s
	}
}

// MulVecTrans computes y := Aᵀ・x
func (o *CSR) MulVecTrans(y, x []float64) {
	for j := 0; j < o.N; j++ {
		y[j] = 0
	}
	for i := 0; i < o.M; i++ {
		for k := o.Ptr[i]; k < o.Ptr[i+1]; k++ {
			y[o.Col[k]] += o.Val[k] * x[i]
		}
	}
}

// Diag fills d with the diagonal entries
func (o *CSR) Diag(d []float64) {
	for i := 0; i < o.M && i < o.N; i++ {
		d[i] = o.At(i, i)
	}
}

// ToDense returns a dense copy
func (o *CSR) ToDense() *mat.Dense {
	a := mat.NewDense(o.M, o.N, nil)
	for i := 0; i < o.M; i++ {
		for k := o.Ptr[i]; k < o.Ptr[i+1]; k++ {
			a.Set(i, o.Col[k], o.Val[k])
		}
	}
	return a
}

// rowSorter sorts the entries of one row by column index
type rowSorter struct {
	c []int
	v []float64
}

func (o rowSorter) Len() int           { return len(o.c) }
func (o rowSorter) Less(i, j int) bool { return o.c[i] < o.c[j] }
func (o rowSorter) Swap(i, j int) {
	o.c[i], o.c[j] = o.c[j], o.c[i]
	o.v[i], o.v[j] = o.v[j], o.v[i]
}
