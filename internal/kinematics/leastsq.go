package kinematics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	curve "honnef.co/go/curve"
)

// SolverOptions bound the per-frame nonlinear least-squares iteration.
type SolverOptions struct {
	// MaxIterations caps the outer Levenberg-Marquardt iterations.
	MaxIterations int
	// Tolerance is the residual infinity-norm below which the solve is
	// reported as converged.
	Tolerance float64
}

// DefaultSolverOptions returns the solver bounds used when the config
// does not override them.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		MaxIterations: 60,
		Tolerance:     1e-10,
	}
}

func (o SolverOptions) withDefaults() SolverOptions {
	def := DefaultSolverOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	return o
}

// Solution is the outcome of one pose solve. A non-converged solution
// still carries the best-effort positions; the caller decides whether
// that is fatal (it normally is not).
type Solution struct {
	Converged  bool
	Iterations int
	Residual   float64 // final residual infinity-norm
}

// SolvePose positions the free joints in frame so that every link
// matches its rest length, warm-starting from the free positions
// already present in the buffer. Fixed and driven entries of frame are
// treated as exact and never moved. The buffer is updated in place with
// the best positions found.
func (mdl *Model) SolvePose(frame []curve.Point, opts SolverOptions) Solution {
	nFree := len(mdl.free)
	if nFree == 0 {
		return Solution{Converged: true}
	}
	x := make([]float64, 2*nFree)
	for i, ji := range mdl.free {
		x[2*i] = frame[ji].X
		x[2*i+1] = frame[ji].Y
	}

	scratch := make([]curve.Point, len(frame))
	copy(scratch, frame)
	fn := func(x, out []float64) {
		mdl.residuals(scratch, x, out)
	}

	sol := levenbergMarquardt(fn, x, len(mdl.mech.Links), opts.withDefaults())

	for i, ji := range mdl.free {
		frame[ji] = curve.Pt(x[2*i], x[2*i+1])
	}
	return sol
}

// levenbergMarquardt minimizes the sum of squared residuals of fn over
// x (mutated in place), for small dense systems. The Jacobian is formed
// by forward differences and each step solves the damped normal
// equations (J'J + lambda*I) d = J'r, with the damping parameter grown
// on rejected steps and shrunk on accepted ones.
func levenbergMarquardt(fn func(x, out []float64), x []float64, m int, opts SolverOptions) Solution {
	n := len(x)
	r := make([]float64, m)
	fn(x, r)
	cost := dot(r, r)

	lambda := 1e-3
	const (
		lambdaMin = 1e-12
		lambdaMax = 1e12
	)

	jac := mat.NewDense(m, n, nil)
	rPerturbed := make([]float64, m)
	xTrial := make([]float64, n)
	rTrial := make([]float64, m)

	var iter int
	for iter = 0; iter < opts.MaxIterations; iter++ {
		if infNorm(r) <= opts.Tolerance {
			return Solution{Converged: true, Iterations: iter, Residual: infNorm(r)}
		}

		// Forward-difference Jacobian around the current point.
		for j := 0; j < n; j++ {
			h := 1e-8 * math.Max(math.Abs(x[j]), 1)
			saved := x[j]
			x[j] = saved + h
			fn(x, rPerturbed)
			x[j] = saved
			for i := 0; i < m; i++ {
				jac.Set(i, j, (rPerturbed[i]-r[i])/h)
			}
		}

		rVec := mat.NewVecDense(m, r)
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), rVec)

		// Damped step, retrying with heavier damping until the cost
		// drops or the damping range is exhausted.
		improved := false
		for lambda <= lambdaMax {
			a := mat.NewDense(n, n, nil)
			a.Copy(&jtj)
			for d := 0; d < n; d++ {
				a.Set(d, d, a.At(d, d)+lambda)
			}

			var delta mat.VecDense
			if err := delta.SolveVec(a, &grad); err != nil {
				lambda *= 10
				continue
			}
			for j := 0; j < n; j++ {
				xTrial[j] = x[j] - delta.AtVec(j)
			}
			fn(xTrial, rTrial)
			if trialCost := dot(rTrial, rTrial); trialCost < cost {
				copy(x, xTrial)
				copy(r, rTrial)
				cost = trialCost
				lambda = math.Max(lambda*0.3, lambdaMin)
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			// Stalled: no damping value makes progress from here.
			break
		}
	}

	return Solution{
		Converged:  infNorm(r) <= opts.Tolerance,
		Iterations: iter,
		Residual:   infNorm(r),
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func infNorm(v []float64) float64 {
	var s float64
	for _, x := range v {
		if a := math.Abs(x); a > s {
			s = a
		}
	}
	return s
}
