// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package qoi implements sets of weighted quantities of interest
package qoi

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidIndex is returned (wrapped) when a weight is set for an index that was not added
var ErrInvalidIndex = errors.New("invalid QoI index")

// Set holds the indices of active quantities of interest and their weights
//  Note: an index added without weight has weight 1
type Set struct {
	weights map[int]float64 // index => weight
	isset   map[int]bool    // index => weight was set explicitly
	sorted  []int           // indices in ascending order
}

// NewSet returns a new empty set
func NewSet() *Set {
	return &Set{
		weights: make(map[int]float64),
		isset:   make(map[int]bool),
	}
}

// FromWeights returns a set with indices 0..len(w)-1 and the given weights
func FromWeights(w []float64) (o *Set) {
	o = NewSet()
	for i, v := range w {
		o.AddIndices(i)
		o.weights[i] = v
		o.isset[i] = true
	}
	return
}

// AddIndices adds indices to the set. Adding an existing index does nothing
func (o *Set) AddIndices(idx ...int) {
	for _, i := range idx {
		if _, ok := o.weights[i]; ok {
			continue
		}
		o.weights[i] = 1
		o.sorted = append(o.sorted, i)
	}
	sort.Ints(o.sorted)
}

// SetWeight sets the weight of an existing index. Any real value is accepted
func (o *Set) SetWeight(i int, w float64) error {
	if _, ok := o.weights[i]; !ok {
		return fmt.Errorf("%w: %d has not been added to the set", ErrInvalidIndex, i)
	}
	o.weights[i] = w
	o.isset[i] = true
	return nil
}

// HasIndex tells whether i belongs to the set
func (o *Set) HasIndex(i int) bool {
	_, ok := o.weights[i]
	return ok
}

// Weight returns the weight of i and whether it was set explicitly.
// Indices not in the set have weight 0
func (o *Set) Weight(i int) (w float64, isset bool) {
	return o.weights[i], o.isset[i]
}

// Indices returns a copy of the indices in ascending order
func (o *Set) Indices() []int {
	return append([]int(nil), o.sorted...)
}

// Len returns the number of indices
func (o *Set) Len() int { return len(o.sorted) }

// Each runs fcn for all indices in ascending order
func (o *Set) Each(fcn func(i int, w float64)) {
	for _, i := range o.sorted {
		fcn(i, o.weights[i])
	}
}

// TotalWeight returns the sum of weights
func (o *Set) TotalWeight() (sum float64) {
	for _, i := range o.sorted {
		sum += o.weights[i]
	}
	return
}

// String returns a representation of the set; e.g. {0:0.5 1:0.5}
func (o *Set) String() string {
	l := "{"
	for k, i := range o.sorted {
		if k > 0 {
			l += " "
		}
		l += fmt.Sprintf("%d:%g", i, o.weights[i])
	}
	return l + "}"
}
