// Package fit wraps external numerical solvers for the model-fitting demos:
// linear least squares, nonlinear curve fitting and general multivariate
// minimization. The solvers are gonum's; nothing here reimplements them.
package fit

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Model evaluates a parametric model at x.
type Model func(params []float64, x float64) float64

// Linear fits y = slope*x + intercept by least squares (QR factorization of
// the design matrix).
func Linear(xs, ys []float64) (slope, intercept float64, err error) {
	if len(xs) != len(ys) {
		return 0, 0, errors.Errorf("fit: mismatched data lengths %d and %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return 0, 0, errors.Errorf("fit: need at least 2 points, got %d", len(xs))
	}

	n := len(xs)
	design := mat.NewDense(n, 2, nil)
	for i, x := range xs {
		design.Set(i, 0, x)
		design.Set(i, 1, 1)
	}
	rhs := mat.NewDense(n, 1, nil)
	for i, y := range ys {
		rhs.Set(i, 0, y)
	}

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, rhs); err != nil {
		return 0, 0, errors.Wrap(err, "solving least squares system")
	}
	return beta.At(0, 0), beta.At(1, 0), nil
}

// Curve fits model to the data by minimizing the residual sum of squares,
// starting from p0. The default method is Nelder-Mead, so the model need not
// be differentiable.
func Curve(model Model, xs, ys []float64, p0 []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, errors.Errorf("fit: mismatched data lengths %d and %d", len(xs), len(ys))
	}
	if len(xs) == 0 || len(p0) == 0 {
		return nil, errors.New("fit: empty data or initial guess")
	}

	objective := func(params []float64) float64 {
		var ssr float64
		for i, x := range xs {
			r := ys[i] - model(params, x)
			ssr += r * r
		}
		return ssr
	}
	return Minimize(objective, p0, nil)
}

// Minimize finds a local minimum of objective starting from p0. A nil method
// selects Nelder-Mead.
func Minimize(objective func([]float64) float64, p0 []float64, method optimize.Method) ([]float64, error) {
	if len(p0) == 0 {
		return nil, errors.New("fit: empty initial guess")
	}
	if method == nil {
		method = &optimize.NelderMead{}
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, p0, nil, method)
	if err != nil {
		return nil, errors.Wrap(err, "minimizing objective")
	}
	if err := result.Status.Err(); err != nil {
		return nil, errors.Wrap(err, "minimization did not converge")
	}
	return result.X, nil
}
