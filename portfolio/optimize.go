// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package portfolio

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Supported minimization methods
const (
	MethodBFGS       = "bfgs"
	MethodNelderMead = "nelder-mead"
	MethodBracket    = "bracket"
)

const (
	bracketTolerance = 1e-12
	boundNudge       = 1e-3

	// gradient threshold on the scaled objective; float64 line searches stall well before 1e-12
	gradientTolerance = 1e-9

	// largest excess over the constrained minimum, relative to max(var1, var2), accepted from a
	// search that stopped on a line search failure
	excessTolerance = 1e-12
)

// OptimizerOptions bound and seed the search for the first instrument's weight
type OptimizerOptions struct {
	Method      string
	StartWeight float64
	MinWeight   float64
	MaxWeight   float64
}

// DefaultOptimizerOptions searches the whole [0, 1] interval starting from an equal split
func DefaultOptimizerOptions() OptimizerOptions {
	return OptimizerOptions{
		Method:      MethodBFGS,
		StartWeight: 0.5,
		MinWeight:   0,
		MaxWeight:   1,
	}
}

// Allocation is the minimum variance split between two instruments
type Allocation struct {
	W1 float64
	W2 float64

	// Variance is the objective at (W1, W2); Risk is its square root
	Variance float64
	Risk     float64

	Method          string
	Status          string
	Iterations      int
	FuncEvaluations int
}

// Validate checks that the bounds are ordered and lie in [0, 1] and that the start is inside them
func (opts OptimizerOptions) Validate() error {
	if math.IsNaN(opts.MinWeight) || math.IsNaN(opts.MaxWeight) || math.IsNaN(opts.StartWeight) {
		return fmt.Errorf("%w: NaN weight", ErrInvalidBounds)
	}
	if opts.MinWeight < 0 || opts.MaxWeight > 1 || opts.MinWeight > opts.MaxWeight {
		return fmt.Errorf("%w: [%v, %v] must lie within [0, 1] with min <= max", ErrInvalidBounds, opts.MinWeight, opts.MaxWeight)
	}
	if opts.StartWeight < opts.MinWeight || opts.StartWeight > opts.MaxWeight {
		return fmt.Errorf("%w: start weight %v outside [%v, %v]", ErrInvalidBounds, opts.StartWeight, opts.MinWeight, opts.MaxWeight)
	}
	return nil
}

// PortfolioVariance is w1^2 var1 + w2^2 var2 + 2 w1 w2 cov12 with w2 = 1 - w1
func PortfolioVariance(cov mat.Symmetric, w1 float64) float64 {
	w2 := 1 - w1
	return w1*w1*cov.At(0, 0) + w2*w2*cov.At(1, 1) + 2*w1*w2*cov.At(0, 1)
}

// ClosedFormWeight is the analytic minimizer of PortfolioVariance clamped to [lo, hi]. When the
// objective is not strictly convex the better bound is returned.
func ClosedFormWeight(cov mat.Symmetric, lo, hi float64) float64 {
	var1, var2, cov12 := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)
	curvature := var1 + var2 - 2*cov12
	if curvature <= 0 {
		return betterBound(cov, lo, hi)
	}
	return clamp((var2-cov12)/curvature, lo, hi)
}

// MinimumVariance finds the weight of the first instrument minimizing the variance of a fully
// invested two asset portfolio. The second instrument receives the remainder.
func MinimumVariance(cov mat.Symmetric, opts OptimizerOptions) (*Allocation, error) {
	if r, c := cov.Dims(); r != 2 || c != 2 {
		return nil, fmt.Errorf("covariance matrix must be 2x2, got %dx%d", r, c)
	}

	if opts.Method == "" {
		opts.Method = MethodBFGS
	}
	opts.Method = strings.ToLower(opts.Method)

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		alloc *Allocation
		err   error
	)

	switch opts.Method {
	case MethodBFGS:
		alloc, err = minimizeTransformed(cov, opts, &optimize.BFGS{})
	case MethodNelderMead:
		alloc, err = minimizeTransformed(cov, opts, &optimize.NelderMead{})
	case MethodBracket:
		alloc, err = minimizeBracket(cov, opts)
	default:
		return nil, fmt.Errorf("%w: %q (expected %s, %s or %s)", ErrUnknownMethod, opts.Method, MethodBFGS, MethodNelderMead, MethodBracket)
	}

	if err != nil {
		log.Error().Err(err).Str("Method", opts.Method).Msg("minimum variance optimization failed")
		return nil, err
	}

	alloc.Method = opts.Method
	alloc.W2 = 1 - alloc.W1
	alloc.Variance = PortfolioVariance(cov, alloc.W1)
	// rounding can leave a tiny negative variance when the assets hedge perfectly
	alloc.Risk = math.Sqrt(math.Max(alloc.Variance, 0))

	log.Debug().Str("Method", alloc.Method).Str("Status", alloc.Status).
		Float64("W1", alloc.W1).Float64("W2", alloc.W2).Float64("Risk", alloc.Risk).
		Int("FuncEvaluations", alloc.FuncEvaluations).Msg("minimum variance allocation")

	return alloc, nil
}

// minimizeTransformed optimizes over theta with w = lo + (hi-lo) sin^2(theta), an unconstrained
// problem whose every point maps inside [lo, hi].
func minimizeTransformed(cov mat.Symmetric, opts OptimizerOptions, method optimize.Method) (*Allocation, error) {
	lo, hi := opts.MinWeight, opts.MaxWeight
	width := hi - lo
	if width == 0 {
		return &Allocation{W1: lo, Status: optimize.Success.String()}, nil
	}

	var1, var2, cov12 := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)
	if var1+var2-2*cov12 <= 0 {
		return &Allocation{W1: betterBound(cov, lo, hi), Status: optimize.Success.String()}, nil
	}

	scale := objectiveScale(cov)

	weight := func(theta float64) float64 {
		s := math.Sin(theta)
		return lo + width*s*s
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return PortfolioVariance(cov, weight(x[0])) / scale
		},
		Grad: func(grad, x []float64) {
			grad[0] = varianceSlope(cov, weight(x[0])) * width * math.Sin(2*x[0]) / scale
		},
	}

	start := opts.StartWeight
	// the bounds are stationary points of the transform, so a search started there never moves
	if start <= lo {
		start = lo + boundNudge*width
	}
	if start >= hi {
		start = hi - boundNudge*width
	}
	theta0 := math.Asin(math.Sqrt((start - lo) / width))

	settings := &optimize.Settings{
		GradientThreshold: gradientTolerance,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-15,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, []float64{theta0}, settings, method)
	if result == nil {
		return nil, fmt.Errorf("%w: %v", ErrDidNotConverge, err)
	}

	alloc := &Allocation{
		W1:              clamp(weight(result.X[0]), lo, hi),
		Status:          result.Status.String(),
		Iterations:      result.Stats.MajorIterations,
		FuncEvaluations: result.Stats.FuncEvaluations,
	}

	if err != nil || !acceptedStatus(result.Status) {
		// a line search that can no longer decrease the objective has usually stopped at the
		// minimum to within float64 precision; keep the point when first order information agrees
		if !nearOptimal(cov, alloc.W1, lo, hi) {
			if err != nil {
				return nil, fmt.Errorf("%w: status %s: %v", ErrDidNotConverge, result.Status, err)
			}
			return nil, fmt.Errorf("%w: status %s", ErrDidNotConverge, result.Status)
		}
		log.Debug().Err(err).Str("Status", result.Status.String()).Float64("W1", alloc.W1).
			Msg("search stopped early at the minimum")
		alloc.Status = optimize.MethodConverge.String()
	}

	return alloc, nil
}

// nearOptimal reports whether w is within excessTolerance of the constrained minimum. The
// objective is quadratic in w so the excess follows from the slope and the curvature at w.
func nearOptimal(cov mat.Symmetric, w, lo, hi float64) bool {
	var1, var2, cov12 := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)
	curvature := var1 + var2 - 2*cov12
	if curvature <= 0 {
		return false
	}

	slope := varianceSlope(cov, w)
	target := clamp(w-slope/(2*curvature), lo, hi)
	excess := PortfolioVariance(cov, w) - PortfolioVariance(cov, target)
	return excess <= excessTolerance*objectiveScale(cov)
}

// varianceSlope is dPortfolioVariance/dw1
func varianceSlope(cov mat.Symmetric, w float64) float64 {
	var1, var2, cov12 := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)
	return 2 * (w*var1 - (1-w)*var2 + (1-2*w)*cov12)
}

// objectiveScale brings weekly variances to order one so convergence thresholds mean something
func objectiveScale(cov mat.Symmetric) float64 {
	scale := math.Max(cov.At(0, 0), cov.At(1, 1))
	if scale <= 0 {
		return 1
	}
	return scale
}

// minimizeBracket solves the first order condition f'(w) = 0 inside [lo, hi]. f' is linear in w so
// a sign change brackets the unique minimum; without one the minimum sits on a bound.
func minimizeBracket(cov mat.Symmetric, opts OptimizerOptions) (*Allocation, error) {
	lo, hi := opts.MinWeight, opts.MaxWeight
	var1, var2, cov12 := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)

	evals := 0
	derivative := func(w float64) float64 {
		evals++
		return varianceSlope(cov, w)
	}

	alloc := &Allocation{Status: optimize.Success.String()}

	curvature := var1 + var2 - 2*cov12
	if lo == hi || curvature <= 0 {
		alloc.W1 = betterBound(cov, lo, hi)
		alloc.FuncEvaluations = 2
		return alloc, nil
	}

	dlo := derivative(lo)
	dhi := derivative(hi)
	switch {
	case dlo >= 0:
		alloc.W1 = lo
	case dhi <= 0:
		alloc.W1 = hi
	default:
		w, err := fsolve(derivative, lo, hi, bracketTolerance)
		if err != nil {
			return nil, fmt.Errorf("%w: root finder exhausted its iterations", err)
		}
		alloc.W1 = clamp(w, lo, hi)
	}

	alloc.FuncEvaluations = evals
	return alloc, nil
}

func acceptedStatus(status optimize.Status) bool {
	switch status {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

func betterBound(cov mat.Symmetric, lo, hi float64) float64 {
	if PortfolioVariance(cov, hi) < PortfolioVariance(cov, lo) {
		return hi
	}
	return lo
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
