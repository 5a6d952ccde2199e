// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fem implements the adaptive finite element driver and its collaborators
package fem

import (
	"fmt"
	"math"
	"time"

	"github.com/certik/libmesh-sub001/est"
	"github.com/certik/libmesh-sub001/inp"
	"github.com/certik/libmesh-sub001/lsol"
	"github.com/certik/libmesh-sub001/nls"
	"github.com/certik/libmesh-sub001/out"
	"github.com/certik/libmesh-sub001/qoi"
	"github.com/certik/libmesh-sub001/refine"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// Phase holds the phase of the adaptive loop
type Phase int

// phases
const (
	PhaseForward Phase = iota
	PhaseAdjoint
	PhasePostprocess
	PhaseEstimate
	PhaseRefine
	PhaseDone
)

var phaseNames = []string{"forward", "adjoint", "postprocess", "estimate", "refine", "done"}

func (o Phase) String() string {
	if o < 0 || int(o) >= len(phaseNames) {
		return io.Sf("phase(%d)", int(o))
	}
	return phaseNames[o]
}

// DriverState holds the state of the adaptive loop
type DriverState struct {
	Phase               Phase // current phase
	Step                int   // adaptive step
	ReusePreconditioner bool  // reuse flag of the current linear solves
	Final               bool  // last pass: solve and postprocess only
}

// StepResult holds the results of one adaptive step
type StepResult struct {
	Step          int       `json:"step"`
	Nactive       int       `json:"nactive"`
	Neq           int       `json:"neq"`
	NewtonStatus  string    `json:"newton_status"`
	NewtonIts     int       `json:"newton_iterations"`
	Warnings      []string  `json:"warnings,omitempty"`
	QoI           []float64 `json:"qoi"`
	Exact         []float64 `json:"exact,omitempty"`
	RelError      []float64 `json:"rel_error,omitempty"`
	Estimate      float64   `json:"estimate"` // ‖η‖; zero in the final step
	TargetReached bool      `json:"target_reached"`
}

// Driver runs the adaptive loop: forward solve, adjoint solves, postprocessing, error
// estimation and refinement, until the number of steps or the target is reached
type Driver struct {
	Sim         *inp.Simulation  // simulation data
	Prob        *Problem         // problem
	Dom         *Domain          // degrees of freedom and solutions
	Sys         *Poisson         // discrete system
	Newton      *nls.Newton      // nonlinear solver
	Estimator   est.Estimator    // error estimator
	Engine      *refine.Engine   // refinement engine
	Policy      refine.Policy    // refinement policy
	QoIs        *qoi.Set         // active QoIs and weights
	State       DriverState      // state of the loop
	History     []StepResult     // results of each step
	Errors      *est.ErrorVector // last error vector
	ShowMsg     bool             // show messages
	SaveSummary bool             // save summary to DirOut when Run returns

	solved solved // solutions exposed to the estimators
}

// NewDriver returns a new driver. prob == nil => LShapeProblem
func NewDriver(sim *inp.Simulation, prob *Problem) (o *Driver, err error) {

	// new driver
	if prob == nil {
		prob = LShapeProblem(sim)
	}
	o = &Driver{Sim: sim, Prob: prob, ShowMsg: sim.Data.Verbose}

	// quantities of interest
	o.QoIs = qoi.FromWeights(sim.QoI.Weights)
	if o.QoIs.Len() == 0 {
		o.QoIs.AddIndices(utl.IntRange(len(prob.Regions))...)
	}
	for _, q := range o.QoIs.Indices() {
		if q >= len(prob.Regions) {
			return nil, fmt.Errorf("%w: weight of QoI %d given but the problem has %d QoIs", inp.ErrConfig, q, len(prob.Regions))
		}
	}
	if len(prob.Exact) > 0 && len(prob.Exact) != len(prob.Regions) {
		return nil, chk.Err("number of exact QoI values (%d) must be equal to the number of QoIs (%d)", len(prob.Exact), len(prob.Regions))
	}

	// refinement
	o.Policy, err = refine.PolicyFrom(&sim.Adapt)
	if err != nil {
		return nil, err
	}
	o.Engine = refine.NewEngine(prob.Mesh, &sim.Adapt)
	o.Engine.Verbose = o.ShowMsg
	err = o.Engine.RefineUniformly(sim.Data.CoarseRefinements)
	if err != nil {
		return nil, err
	}

	// error estimator
	o.Estimator, err = est.New(sim.Adapt.IndicatorType, &sim.Adapt)
	if err != nil {
		return nil, err
	}
	if a, ok := o.Estimator.(*est.AdjointResidual); ok {
		a.QoIs = o.QoIs
		a.Verbose = o.ShowMsg
	}

	// discrete system
	o.Dom, err = NewDomain(prob.Mesh, prob.Ebc, len(prob.Regions))
	if err != nil {
		return nil, err
	}
	o.Sys = &Poisson{Dom: o.Dom, Source: prob.Source, Reaction: sim.Data.Reaction, Analytic: sim.Solver.AnalyticJac}
	o.solved = solved{d: o.Dom, adjoints: make(map[int]bool)}

	// solvers
	linsol, err := lsol.New(sim.LinSol.Name)
	if err != nil {
		return nil, err
	}
	o.Newton = nls.New(&sim.Solver, linsol)
	return
}

// Run runs the adaptive loop
func (o *Driver) Run() (err error) {

	// exit commands
	cputime := time.Now()
	defer func() { err = o.onexit(cputime, err) }()

	// loop over adaptive steps
	o.State = DriverState{Final: o.Sim.Adapt.MaxAdaptSteps < 1}
	o.History = o.History[:0]
	for {

		// solve and postprocess
		res := StepResult{Step: o.State.Step, Nactive: o.Dom.Msh.NActiveElem(), Neq: o.Dom.Neq}
		err = o.forward(&res)
		if err != nil {
			return
		}
		err = o.adjoint()
		if err != nil {
			return
		}
		err = o.postprocess(&res)
		if err != nil {
			return
		}
		if o.State.Final {
			o.History = append(o.History, res)
			break
		}

		// estimate and refine
		err = o.estimate(&res)
		if err != nil {
			return
		}
		var reached bool
		reached, err = o.refine(&res)
		if err != nil {
			return
		}
		o.History = append(o.History, res)
		o.State.Step++
		if reached || o.State.Step >= o.Sim.Adapt.MaxAdaptSteps {
			o.State.Final = true
		}
	}
	o.State.Phase = PhaseDone
	return
}

// forward solves the primal problem
func (o *Driver) forward(res *StepResult) (err error) {
	o.State.Phase = PhaseForward
	o.State.ReusePreconditioner = false
	o.Newton.LinSol.ReusePreconditioner(false)
	if o.ShowMsg {
		io.Pf("> Step %d: forward solve: nactive = %d, neq = %d\n", o.State.Step, res.Nactive, res.Neq)
	}
	r, err := o.Newton.Solve(o.Sys, o.Dom.U)
	if r != nil {
		res.NewtonStatus = r.Status.String()
		res.NewtonIts = r.Iterations
		res.Warnings = append(res.Warnings, r.Warnings...)
	}
	if err != nil {
		return fmt.Errorf("forward solve failed at step %d: %w", o.State.Step, err)
	}
	return
}

// adjoint solves the adjoint problem of each active QoI
func (o *Driver) adjoint() (err error) {
	o.State.Phase = PhaseAdjoint
	for q := range o.solved.adjoints {
		delete(o.solved.adjoints, q)
	}
	rhs := make([]float64, o.Dom.Neq)
	for k, q := range o.QoIs.Indices() {
		if o.Dom.Neq > 0 {
			o.State.ReusePreconditioner = k > 0 && o.Sim.Adapt.ReuseAdjointPrec
			o.Newton.LinSol.ReusePreconditioner(o.State.ReusePreconditioner)
			o.Prob.Regions[q].Load(o.Dom, rhs)
			err = o.Newton.SolveAdjoint(o.Sys, o.Dom.U, o.Dom.Adjoint[q], rhs)
			if err != nil {
				return chk.Err("adjoint solve of QoI %d failed at step %d:\n%v", q, o.State.Step, err)
			}
		}
		o.solved.adjoints[q] = true
		if o.ShowMsg {
			io.Pf("> Step %d: adjoint solve of QoI %d (reuse preconditioner = %v)\n", o.State.Step, q, o.State.ReusePreconditioner)
		}

		// output with the primal routines
		if o.Sim.Data.OutputVTK {
			o.Dom.SwapAdjoint(q)
			err = o.write(io.Sf("%s_%03d_adjoint%d.vtk", o.key(), o.State.Step, q), io.Sf("z%d", q))
			o.Dom.SwapAdjoint(q)
			if err != nil {
				return
			}
		}
	}
	o.State.ReusePreconditioner = false
	o.Newton.LinSol.ReusePreconditioner(false)
	if a, ok := o.Estimator.(*est.AdjointResidual); ok {
		a.AdjointAlreadySolved = true
	}
	return
}

// postprocess computes the QoIs and their errors
func (o *Driver) postprocess(res *StepResult) (err error) {
	o.State.Phase = PhasePostprocess
	for q, r := range o.Prob.Regions {
		v := r.Value(o.Dom, o.Dom.U)
		res.QoI = append(res.QoI, v)
		if len(o.Prob.Exact) == 0 {
			continue
		}
		ex := o.Prob.Exact[q]
		rel := math.Abs(v - ex)
		if ex != 0 {
			rel /= math.Abs(ex)
		}
		res.Exact = append(res.Exact, ex)
		res.RelError = append(res.RelError, rel)
	}
	if o.ShowMsg {
		io.Pf("%6s%23s%23s%14s\n", "QoI", "computed", "exact", "rel.error")
		for q, v := range res.QoI {
			if len(res.Exact) > 0 {
				io.Pf("%6d%23.15e%23.15e%14.6e\n", q, v, res.Exact[q], res.RelError[q])
			} else {
				io.Pf("%6d%23.15e\n", q, v)
			}
		}
	}
	if o.Sim.Data.OutputVTK {
		err = o.write(io.Sf("%s_%03d.vtk", o.key(), o.State.Step), "u")
	}
	return
}

// estimate computes the error vector
func (o *Driver) estimate(res *StepResult) (err error) {
	o.State.Phase = PhaseEstimate
	o.Errors, err = o.Estimator.EstimateError(&o.solved, o.QoIs)
	if err != nil {
		return
	}
	res.Estimate = o.Errors.L2Norm()
	if o.ShowMsg {
		io.Pf("> Step %d: %s estimate = %g\n", o.State.Step, o.Sim.Adapt.IndicatorType, res.Estimate)
	}
	return
}

// refine applies the policy and rebuilds the degrees of freedom on the new mesh
func (o *Driver) refine(res *StepResult) (reached bool, err error) {
	o.State.Phase = PhaseRefine
	reached, err = o.Engine.Apply(o.Policy, o.Errors)
	res.TargetReached = reached
	if err != nil {
		return
	}
	if reached {
		if o.ShowMsg {
			io.Pfyel("> Step %d: %v reached\n", o.State.Step, o.Policy)
		}
		return
	}
	err = o.Dom.Reinit()
	if err != nil {
		return
	}
	for q := range o.solved.adjoints {
		delete(o.solved.adjoints, q)
	}
	if a, ok := o.Estimator.(*est.AdjointResidual); ok {
		a.AdjointAlreadySolved = false
	}
	o.State.ReusePreconditioner = false
	return
}

// auxiliary //////////////////////////////////////////////////////////////////////////////////////

// key returns the simulation key
func (o *Driver) key() string {
	if o.Sim.Key == "" {
		return "adaptfem"
	}
	return o.Sim.Key
}

// write writes the current solution U to a VTK file
func (o *Driver) write(fn, name string) error {
	return o.Dom.Grid(name, o.Errors).WriteVTK(o.Sim.Data.DirOut, fn, o.Sim.Data.Desc)
}

// onexit prints the final message and saves the summary
func (o *Driver) onexit(cputime time.Time, prevErr error) (err error) {

	// show final message
	if o.ShowMsg {
		if prevErr == nil {
			io.PfGreen("> Success\n")
			io.Pf("> CPU time = %v\n", time.Now().Sub(cputime))
		} else {
			io.PfRed("> Failed in phase %v of step %d\n", o.State.Phase, o.State.Step)
		}
	}

	// save summary
	if o.SaveSummary {
		sum := out.Summary{Key: o.key(), Desc: o.Sim.Data.Desc}
		var fn string
		fn, err = sum.Save(o.Sim.Data.DirOut, o.History)
		if err != nil {
			return
		}
		if o.ShowMsg {
			io.Pf("> Summary saved to %s/%s\n", o.Sim.Data.DirOut, fn)
		}
	}

	// skip if previous error is not nil
	if prevErr != nil {
		err = prevErr
	}
	return
}
