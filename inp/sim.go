// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"encoding/json"
	"fmt"
	goio "io"
	"math"
	"path/filepath"

	"github.com/cpmech/gosl/io"
)

// indicator types known by the error estimators factory
const (
	IndicatorKelly           = "kelly"
	IndicatorPatchRecovery   = "patch_recovery"
	IndicatorAdjointResidual = "adjoint_residual"
)

// Data holds global data for simulations
type Data struct {
	Desc              string  `json:"desc"`              // description of simulation
	DirOut            string  `json:"dirout"`            // directory for output; e.g. /tmp/adaptfem
	Ndiv              int     `json:"ndiv"`              // number of coarse cells per unit length; 8 => 192 cells on the L-shaped domain
	CoarseRefinements int     `json:"coarserefinements"` // number of uniform refinements applied to the coarse mesh
	Reaction          float64 `json:"reaction"`          // coefficient c of the nonlinear reaction term c・u³
	OutputVTK         bool    `json:"outputvtk"`         // write VTK files at each adaptive step
	Verbose           bool    `json:"verbose"`           // show messages
}

// AdaptData holds data for the adaptive (outer) loop and the refinement engine
type AdaptData struct {
	MaxAdaptSteps    int     `json:"max_adaptivesteps"`  // max number of refinement cycles
	RefineFraction   float64 `json:"refine_fraction"`    // fraction of elements to refine
	CoarsenFraction  float64 `json:"coarsen_fraction"`   // fraction of elements to coarsen
	CoarsenThreshold float64 `json:"coarsen_threshold"`  // coarsen if error < threshold・max(error)
	NelemTarget      int     `json:"nelem_target"`       // target number of active elements; 0 => not used
	GlobalTolerance  float64 `json:"global_tolerance"`   // absolute global tolerance; 0 => not used
	RefineUniformly  bool    `json:"refine_uniformly"`   // refine all elements at each step
	CoarsenByParents bool    `json:"coarsen_by_parents"` // coarsen complete sibling groups only
	MaxHLevel        int     `json:"max_h_level"`        // max refinement level; 0 => unlimited
	MaxCompatPasses  int     `json:"max_compat_passes"`  // cap on compatibility sweeps; 0 => automatic

	// error estimators
	IndicatorType   string  `json:"indicator_type"`    // "kelly", "patch_recovery" or "adjoint_residual"
	PrimalEstimator string  `json:"primal_estimator"`  // primal sub-estimator of adjoint_residual
	DualEstimator   string  `json:"dual_estimator"`    // dual sub-estimator of adjoint_residual
	PatchReuse      bool    `json:"patch_reuse"`       // reuse patches during an estimation pass
	TargetPatchSize int     `json:"target_patch_size"` // minimum number of elements in recovery patches
	NormL2          float64 `json:"norm_l2"`           // weight of the L2 term in patch recovery
	NormH1          float64 `json:"norm_h1"`           // weight of the H1-seminorm term in patch recovery

	// adjoint solves
	ReuseAdjointPrec bool `json:"reuse_adjoint_prec"` // reuse preconditioner for repeated adjoint solves
}

// QoIData holds data for quantities of interest
type QoIData struct {
	Weights []float64 `json:"qoi_weights"` // weights of QoIs; index i => QoI number i
}

// LinSolData holds data for linear solvers
type LinSolData struct {
	Name      string `json:"name"`      // "cg", "bicgstab" or "dense"
	Symmetric bool   `json:"symmetric"` // matrix is symmetric
	Verbose   bool   `json:"verbose"`   // verbose?
}

// SolverData holds nonlinear (Newton) solver data
type SolverData struct {
	NmaxIt         int     `json:"max_nonlinear_iterations"`    // max number of nonlinear iterations
	RelStepTol     float64 `json:"relative_step_tolerance"`     // ‖δx‖/‖x‖ tolerance
	RelResidTol    float64 `json:"relative_residual_tolerance"` // ‖R‖/‖R0‖ tolerance
	AbsResidTol    float64 `json:"absolute_residual_tolerance"` // ‖R‖ tolerance
	AbsStepTol     float64 `json:"absolute_step_tolerance"`     // ‖δx‖ tolerance
	RequireReduct  bool    `json:"require_residual_reduction"`  // use backtracking line search
	MinStepLength  float64 `json:"min_step_length"`             // min line search step length
	LinTolMult     float64 `json:"linear_tolerance_multiplier"` // inexact Newton: multiplier of ‖R‖
	MaxLinIt       int     `json:"max_linear_iterations"`       // max number of linear iterations
	InitLinTol     float64 `json:"initial_linear_tolerance"`    // largest linear tolerance
	MinLinTol      float64 `json:"minimum_linear_tolerance"`    // smallest linear tolerance
	ContinueMaxIt  bool    `json:"continue_after_max_iterations"`
	ContinueBktrck bool    `json:"continue_after_backtrack_failure"`
	AnalyticJac    bool    `json:"analytic_jacobians"` // use analytic Jacobian; otherwise finite differences
	ShowR          bool    `json:"showr"`              // show residual
}

// Simulation holds all simulation data
type Simulation struct {
	Data   Data       `json:"data"`   // global data
	Adapt  AdaptData  `json:"adapt"`  // adaptivity data
	QoI    QoIData    `json:"qoi"`    // quantities of interest
	Solver SolverData `json:"solver"` // nonlinear solver data
	LinSol LinSolData `json:"linsol"` // linear solver data

	// derived
	Key    string // simulation key; e.g. lshaped.in => lshaped
	Params Params // raw parameters
}

// ReadSim reads all simulation data from a parameters file
func ReadSim(fn string) (o *Simulation, err error) {
	prms, err := ReadParams(fn)
	if err != nil {
		return
	}
	o, err = NewSimulation(prms)
	if err != nil {
		return nil, err
	}
	o.Key = io.FnKey(filepath.Base(fn))
	if o.Data.DirOut == "" {
		o.Data.DirOut = "/tmp/adaptfem/" + o.Key
	}
	return
}

// NewSimulation sets default values, loads prms and checks the results
func NewSimulation(prms Params) (o *Simulation, err error) {
	o = new(Simulation)
	o.Params = prms
	o.Data.SetDefault()
	o.Adapt.SetDefault()
	o.QoI.SetDefault()
	o.Solver.SetDefault()
	o.LinSol.SetDefault()
	for _, load := range []func(Params) error{o.Data.Load, o.Adapt.Load, o.QoI.Load, o.Solver.Load, o.LinSol.Load} {
		if err = load(prms); err != nil {
			return nil, err
		}
	}
	for _, post := range []func() error{o.Data.PostProcess, o.Adapt.PostProcess, o.Solver.PostProcess} {
		if err = post(); err != nil {
			return nil, err
		}
	}
	return
}

// GetInfo returns formatted information
func (o *Simulation) GetInfo(w goio.Writer) (err error) {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return
}

// extra settings //////////////////////////////////////////////////////////////////////////////////

// SetDefault sets default values
func (o *Data) SetDefault() {
	o.Ndiv = 8
}

// Load reads values from prms
func (o *Data) Load(prms Params) error {
	r := reader{p: prms}
	r.str("desc", &o.Desc)
	r.str("dirout", &o.DirOut)
	r.int("ndiv", &o.Ndiv)
	r.int("coarserefinements", &o.CoarseRefinements)
	r.float("reaction", &o.Reaction)
	r.bool("output_vtk", &o.OutputVTK)
	r.bool("verbose", &o.Verbose)
	return r.err
}

// PostProcess checks values
func (o *Data) PostProcess() error {
	if o.Ndiv < 1 {
		return fmt.Errorf("%w: ndiv must be positive; got %d", ErrConfig, o.Ndiv)
	}
	if o.CoarseRefinements < 0 {
		return fmt.Errorf("%w: coarserefinements must be non-negative; got %d", ErrConfig, o.CoarseRefinements)
	}
	return nil
}

// SetDefault sets default values
func (o *AdaptData) SetDefault() {
	o.MaxAdaptSteps = 1
	o.RefineFraction = 0.3
	o.CoarsenFraction = 0.0
	o.CoarsenThreshold = 0.1
	o.CoarsenByParents = true
	o.IndicatorType = IndicatorKelly
	o.PrimalEstimator = IndicatorPatchRecovery
	o.DualEstimator = IndicatorPatchRecovery
	o.PatchReuse = true
	o.TargetPatchSize = 4
	o.NormH1 = 1
	o.ReuseAdjointPrec = true
}

// Load reads values from prms
func (o *AdaptData) Load(prms Params) error {
	r := reader{p: prms}
	r.int("max_adaptivesteps", &o.MaxAdaptSteps)
	r.float("refine_fraction", &o.RefineFraction)
	r.float("coarsen_fraction", &o.CoarsenFraction)
	r.float("coarsen_threshold", &o.CoarsenThreshold)
	r.int("nelem_target", &o.NelemTarget)
	r.float("global_tolerance", &o.GlobalTolerance)
	r.bool("refine_uniformly", &o.RefineUniformly)
	r.bool("coarsen_by_parents", &o.CoarsenByParents)
	r.int("max_h_level", &o.MaxHLevel)
	r.int("max_compat_passes", &o.MaxCompatPasses)
	r.str("indicator_type", &o.IndicatorType)
	r.str("primal_estimator", &o.PrimalEstimator)
	r.str("dual_estimator", &o.DualEstimator)
	r.bool("patch_reuse", &o.PatchReuse)
	r.int("target_patch_size", &o.TargetPatchSize)
	r.float("norm_l2", &o.NormL2)
	r.float("norm_h1", &o.NormH1)
	r.bool("reuse_adjoint_prec", &o.ReuseAdjointPrec)
	return r.err
}

// PostProcess checks values
func (o *AdaptData) PostProcess() error {
	if o.MaxAdaptSteps < 0 {
		return fmt.Errorf("%w: max_adaptivesteps must be non-negative; got %d", ErrConfig, o.MaxAdaptSteps)
	}
	if o.RefineFraction < 0 || o.RefineFraction > 1 {
		return fmt.Errorf("%w: refine_fraction must be in [0,1]; got %g", ErrConfig, o.RefineFraction)
	}
	if o.CoarsenFraction < 0 || o.CoarsenFraction > 1 {
		return fmt.Errorf("%w: coarsen_fraction must be in [0,1]; got %g", ErrConfig, o.CoarsenFraction)
	}
	if o.CoarsenThreshold < 0 || o.CoarsenThreshold > 1 {
		return fmt.Errorf("%w: coarsen_threshold must be in [0,1]; got %g", ErrConfig, o.CoarsenThreshold)
	}
	if o.GlobalTolerance < 0 || o.NelemTarget < 0 {
		return fmt.Errorf("%w: global_tolerance and nelem_target must be non-negative", ErrConfig)
	}
	if o.GlobalTolerance > 0 && o.NelemTarget > 0 {
		return fmt.Errorf("%w: global_tolerance (%g) and nelem_target (%d) are mutually exclusive", ErrConfig, o.GlobalTolerance, o.NelemTarget)
	}
	for _, name := range []string{o.IndicatorType, o.PrimalEstimator, o.DualEstimator} {
		switch name {
		case IndicatorKelly, IndicatorPatchRecovery, IndicatorAdjointResidual:
		default:
			return fmt.Errorf("%w: unknown indicator_type %q", ErrConfig, name)
		}
	}
	if o.PrimalEstimator == IndicatorAdjointResidual || o.DualEstimator == IndicatorAdjointResidual {
		return fmt.Errorf("%w: sub-estimators of adjoint_residual cannot be adjoint_residual", ErrConfig)
	}
	if o.NormL2 < 0 || o.NormH1 < 0 || o.NormL2+o.NormH1 == 0 {
		return fmt.Errorf("%w: norm weights must be non-negative and not all zero; got l2=%g h1=%g", ErrConfig, o.NormL2, o.NormH1)
	}
	if o.TargetPatchSize < 1 {
		o.TargetPatchSize = 1
	}
	return nil
}

// SetDefault sets default values
func (o *QoIData) SetDefault() {
	o.Weights = []float64{0.5, 0.5}
}

// Load reads values from prms
func (o *QoIData) Load(prms Params) error {
	r := reader{p: prms}
	r.floats("qoi_weights", &o.Weights)
	return r.err
}

// SetDefault sets default values
func (o *LinSolData) SetDefault() {
	o.Name = "cg"
	o.Symmetric = true
}

// Load reads values from prms
func (o *LinSolData) Load(prms Params) error {
	r := reader{p: prms}
	r.str("linear_solver", &o.Name)
	r.bool("symmetric", &o.Symmetric)
	r.bool("linear_verbose", &o.Verbose)
	return r.err
}

// SetDefault sets default values
func (o *SolverData) SetDefault() {
	o.NmaxIt = 20
	o.RelStepTol = 1e-8
	o.RelResidTol = 1e-9
	o.AbsResidTol = 1e-12
	o.AbsStepTol = 0
	o.RequireReduct = true
	o.MinStepLength = 1e-5
	o.LinTolMult = 1e-3
	o.MaxLinIt = 5000
	o.InitLinTol = 1e-6
	o.MinLinTol = 1e-12
	o.AnalyticJac = true
}

// Load reads values from prms
func (o *SolverData) Load(prms Params) error {
	r := reader{p: prms}
	r.int("max_nonlinear_iterations", &o.NmaxIt)
	r.float("relative_step_tolerance", &o.RelStepTol)
	r.float("relative_residual_tolerance", &o.RelResidTol)
	r.float("absolute_residual_tolerance", &o.AbsResidTol)
	r.float("absolute_step_tolerance", &o.AbsStepTol)
	r.bool("require_residual_reduction", &o.RequireReduct)
	r.float("min_step_length", &o.MinStepLength)
	r.float("linear_tolerance_multiplier", &o.LinTolMult)
	r.int("max_linear_iterations", &o.MaxLinIt)
	r.float("initial_linear_tolerance", &o.InitLinTol)
	r.float("minimum_linear_tolerance", &o.MinLinTol)
	r.bool("continue_after_max_iterations", &o.ContinueMaxIt)
	r.bool("continue_after_backtrack_failure", &o.ContinueBktrck)
	r.bool("analytic_jacobians", &o.AnalyticJac)
	r.bool("showr", &o.ShowR)
	return r.err
}

// PostProcess checks values
func (o *SolverData) PostProcess() error {
	if o.NmaxIt < 1 {
		return fmt.Errorf("%w: max_nonlinear_iterations must be ≥ 1; got %d", ErrConfig, o.NmaxIt)
	}
	if o.MaxLinIt < 1 {
		return fmt.Errorf("%w: max_linear_iterations must be ≥ 1; got %d", ErrConfig, o.MaxLinIt)
	}
	if o.MinStepLength <= 0 || o.MinStepLength > 1 {
		return fmt.Errorf("%w: min_step_length must be in (0,1]; got %g", ErrConfig, o.MinStepLength)
	}
	if o.MinLinTol > o.InitLinTol {
		return fmt.Errorf("%w: minimum_linear_tolerance (%g) > initial_linear_tolerance (%g)", ErrConfig, o.MinLinTol, o.InitLinTol)
	}
	o.MinLinTol = math.Max(o.MinLinTol, 1e-16)
	return nil
}
