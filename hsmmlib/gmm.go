package hsmmlib

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// The fitted component variances are never allowed to go below this value
	varmin = 1e-6

	// Default settings for EM mixture fitting
	defaultMaxIter = 100
	defaultTol     = 1e-8
)

// GMM holds a fitted Gaussian mixture model with diagonal covariances.
type GMM struct {

	// Number of mixture components
	NComp int

	// Length of the feature vectors
	Dim int

	// The mixture weights, summing to 1
	Weights []float64

	// The component means, row-major with stride Dim
	Means []float64

	// The component variances (diagonal covariance), row-major with stride Dim
	Vars []float64

	// The log-likelihood of the data at the final EM iteration
	LogLike float64
}

// MixtureFitter fits a mixture model with a fixed number of components to
// a data matrix whose rows are samples.  The EM-based EMFitter is the
// default implementation; any other mixture-fitting toolkit can be used
// through this interface.
type MixtureFitter interface {
	Fit(data *mat.Dense, ncomp int) (*GMM, error)
}

// EMFitter fits Gaussian mixtures using the EM algorithm.  The zero value
// is ready to use and fits with default settings.
type EMFitter struct {

	// Maximum number of EM iterations, defaultMaxIter if zero
	MaxIter int

	// Convergence threshold on the log-likelihood change, defaultTol if zero
	Tol float64

	// Source of randomness for the starting values.  If nil, the global
	// source is used and fits are not reproducible.
	Src rand.Source

	// If true, per-iteration progress is written to the logger
	Verbose bool

	// Write log messages here, stderr if nil
	Logger *log.Logger
}

// Fit estimates a ncomp-component Gaussian mixture for the rows of data.
func (em *EMFitter) Fit(data *mat.Dense, ncomp int) (*GMM, error) {

	if data == nil {
		return nil, fmt.Errorf("gmm: no data to fit")
	}

	n, d := data.Dims()
	if n < ncomp {
		return nil, fmt.Errorf("gmm: %d samples is not enough to fit %d components", n, ncomp)
	}

	maxiter := em.MaxIter
	if maxiter == 0 {
		maxiter = defaultMaxIter
	}
	tol := em.Tol
	if tol == 0 {
		tol = defaultTol
	}
	logger := em.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.Ltime)
	}

	gmm := em.startParams(data, ncomp)

	resp := make([]float64, n*ncomp)
	var llf float64

	for iter := 0; iter < maxiter; iter++ {

		llfnew := gmm.responsibilities(data, resp)
		gmm.updateParams(data, resp)

		if em.Verbose {
			logger.Printf("gmm: iteration %d llf=%f\n", iter, llfnew)
		}

		if iter > 0 {
			if llfnew < llf {
				logger.Printf("gmm: log-likelihood decreased by %f\n", llf-llfnew)
			} else if llfnew-llf < tol*(1+math.Abs(llf)) {
				llf = llfnew
				break
			}
		}
		llf = llfnew
	}

	gmm.LogLike = llf

	for k := 0; k < ncomp; k++ {
		for j := 0; j < d; j++ {
			if gmm.Vars[k*d+j] <= varmin {
				return nil, fmt.Errorf("gmm: component %d collapsed to a singular covariance", k)
			}
		}
	}

	return gmm, nil
}

// startParams chooses EM starting values: means at randomly chosen data
// rows, shared marginal variances, and uniform weights.
func (em *EMFitter) startParams(data *mat.Dense, ncomp int) *GMM {

	n, d := data.Dims()

	gmm := &GMM{
		NComp:   ncomp,
		Dim:     d,
		Weights: make([]float64, ncomp),
		Means:   make([]float64, ncomp*d),
		Vars:    make([]float64, ncomp*d),
	}

	var perm []int
	if em.Src != nil {
		perm = rand.New(em.Src).Perm(n)
	} else {
		perm = rand.Perm(n)
	}

	for k := 0; k < ncomp; k++ {
		gmm.Weights[k] = 1 / float64(ncomp)
		copy(gmm.Means[k*d:(k+1)*d], data.RawRowView(perm[k]))
	}

	// Marginal variance of each feature, shared by all components
	mv := marginalVars(data)
	for k := 0; k < ncomp; k++ {
		copy(gmm.Vars[k*d:(k+1)*d], mv)
	}

	return gmm
}

// marginalVars returns the per-column sample variance of the data,
// floored at varmin.
func marginalVars(data *mat.Dense) []float64 {

	n, d := data.Dims()

	mean := make([]float64, d)
	for i := 0; i < n; i++ {
		floats.Add(mean, data.RawRowView(i))
	}
	floats.Scale(1/float64(n), mean)

	va := make([]float64, d)
	for i := 0; i < n; i++ {
		row := data.RawRowView(i)
		for j := 0; j < d; j++ {
			y := row[j] - mean[j]
			va[j] += y * y
		}
	}
	floats.Scale(1/float64(n), va)

	for j := range va {
		if va[j] < varmin {
			va[j] = varmin
		}
	}

	return va
}

// logProbDiag returns the log density of x under a Gaussian with the given
// mean and diagonal variance vectors.
func logProbDiag(x, mean, va []float64) float64 {

	lpr := -0.5 * float64(len(x)) * math.Log(2*math.Pi)
	for j := range x {
		z := x[j] - mean[j]
		lpr -= 0.5 * (math.Log(va[j]) + z*z/va[j])
	}

	return lpr
}

// responsibilities performs the E step, filling resp (row-major n x NComp)
// with the posterior component probabilities of each sample, and returns
// the log-likelihood of the data under the current parameters.
func (gmm *GMM) responsibilities(data *mat.Dense, resp []float64) float64 {

	n, d := data.Dims()
	ncomp := gmm.NComp

	var llf float64
	for i := 0; i < n; i++ {
		row := data.RawRowView(i)
		lp := resp[i*ncomp : (i+1)*ncomp]
		for k := 0; k < ncomp; k++ {
			lp[k] = math.Log(gmm.Weights[k]) +
				logProbDiag(row, gmm.Means[k*d:(k+1)*d], gmm.Vars[k*d:(k+1)*d])
		}

		lse := floats.LogSumExp(lp)
		llf += lse
		for k := 0; k < ncomp; k++ {
			lp[k] = math.Exp(lp[k] - lse)
		}
	}

	return llf
}

// updateParams performs the M step, replacing the weights, means and
// variances with their responsibility-weighted estimates.
func (gmm *GMM) updateParams(data *mat.Dense, resp []float64) {

	n, d := data.Dims()
	ncomp := gmm.NComp

	nk := make([]float64, ncomp)
	zero(gmm.Means)

	for i := 0; i < n; i++ {
		row := data.RawRowView(i)
		pr := resp[i*ncomp : (i+1)*ncomp]
		for k := 0; k < ncomp; k++ {
			nk[k] += pr[k]
			floats.AddScaled(gmm.Means[k*d:(k+1)*d], pr[k], row)
		}
	}

	for k := 0; k < ncomp; k++ {
		gmm.Weights[k] = nk[k] / float64(n)
		floats.Scale(1/nk[k], gmm.Means[k*d:(k+1)*d])
	}

	zero(gmm.Vars)
	for i := 0; i < n; i++ {
		row := data.RawRowView(i)
		pr := resp[i*ncomp : (i+1)*ncomp]
		for k := 0; k < ncomp; k++ {
			for j := 0; j < d; j++ {
				y := row[j] - gmm.Means[k*d+j]
				gmm.Vars[k*d+j] += pr[k] * y * y
			}
		}
	}

	for k := 0; k < ncomp; k++ {
		floats.Scale(1/nk[k], gmm.Vars[k*d:(k+1)*d])
		for j := 0; j < d; j++ {
			if gmm.Vars[k*d+j] < varmin {
				gmm.Vars[k*d+j] = varmin
			}
		}
	}
}

// Zero the elements of x
func zero(x []float64) {
	for j := range x {
		x[j] = 0
	}
}
