// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refine

import (
	"errors"
	"fmt"

	"github.com/certik/libmesh-sub001/inp"
)

// errors
var (
	ErrConfig           = errors.New("invalid refinement configuration")
	ErrStaleErrorVector = errors.New("error vector does not match the current mesh")
	ErrIncompatible     = errors.New("refinement flags did not become compatible")
)

// Kind defines the kind of flagging policy
type Kind int

// kinds of policies
const (
	ErrorFraction      Kind = iota // refine/coarsen by fractions of the error range
	Uniform                        // refine all elements
	ErrorTolerance                 // refine until the global error is below a tolerance
	ElementCountTarget             // refine until the number of active elements reaches a target
)

func (o Kind) String() string {
	switch o {
	case ErrorFraction:
		return "error_fraction"
	case Uniform:
		return "uniform"
	case ErrorTolerance:
		return "error_tolerance"
	case ElementCountTarget:
		return "element_count_target"
	}
	return "unknown"
}

// Policy holds the flagging policy
type Policy struct {
	Kind   Kind    // kind of policy
	Tol    float64 // global tolerance; ErrorTolerance only
	Target int     // number of active elements; ElementCountTarget only
}

// PolicyFrom returns the policy defined by the adaptivity data
func PolicyFrom(dat *inp.AdaptData) (p Policy, err error) {
	switch {
	case dat.RefineUniformly:
		p.Kind = Uniform
	case dat.GlobalTolerance != 0 && dat.NelemTarget != 0:
		err = fmt.Errorf("%w: global_tolerance (%g) and nelem_target (%d) cannot be used together", ErrConfig, dat.GlobalTolerance, dat.NelemTarget)
	case dat.GlobalTolerance != 0:
		p.Kind, p.Tol = ErrorTolerance, dat.GlobalTolerance
	case dat.NelemTarget != 0:
		p.Kind, p.Target = ElementCountTarget, dat.NelemTarget
	default:
		p.Kind = ErrorFraction
	}
	return
}

// String returns a description of the policy
func (o Policy) String() string {
	switch o.Kind {
	case ErrorTolerance:
		return fmt.Sprintf("%v(%g)", o.Kind, o.Tol)
	case ElementCountTarget:
		return fmt.Sprintf("%v(%d)", o.Kind, o.Target)
	}
	return o.Kind.String()
}
