package hsmmlib

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// MixtureDistribution is a word's emission distribution: a weighted
// mixture of Gaussian components with diagonal covariances.
type MixtureDistribution struct {

	// Number of mixture components
	NComp int

	// Length of the feature vectors
	Dim int

	// The mixture weights, summing to 1
	Weights []float64

	// The component means, row-major with stride Dim
	Means []float64

	// The diagonal covariances, row-major with stride Dim
	Vars []float64

	// The component Gaussians, rebuilt from the arrays above after decoding
	components []*distmv.Normal

	// Log of Weights, precomputed for LogProb
	logw []float64
}

// NewMixtureDistribution builds the emission distribution for one word
// from its fitted mixture.  Only the diagonal of each component covariance
// is used; any off-diagonal structure in the fit is discarded.  Returns an
// error if a component covariance is singular.
func NewMixtureDistribution(gmm *GMM) (*MixtureDistribution, error) {

	mix := &MixtureDistribution{
		NComp:   gmm.NComp,
		Dim:     gmm.Dim,
		Weights: append([]float64(nil), gmm.Weights...),
		Means:   append([]float64(nil), gmm.Means...),
		Vars:    append([]float64(nil), gmm.Vars...),
	}

	if err := mix.rebuild(); err != nil {
		return nil, err
	}

	return mix, nil
}

// rebuild constructs the component Gaussians from the parameter arrays.
func (mix *MixtureDistribution) rebuild() error {

	d := mix.Dim
	mix.components = make([]*distmv.Normal, mix.NComp)
	mix.logw = make([]float64, mix.NComp)

	for k := 0; k < mix.NComp; k++ {

		sigma := mat.NewSymDense(d, nil)
		for j := 0; j < d; j++ {
			sigma.SetSym(j, j, mix.Vars[k*d+j])
		}

		normal, ok := distmv.NewNormal(mix.Means[k*d:(k+1)*d], sigma, nil)
		if !ok {
			return fmt.Errorf("component %d has a singular covariance", k)
		}

		mix.components[k] = normal
		mix.logw[k] = math.Log(mix.Weights[k])
	}

	return nil
}

// Component returns the k'th Gaussian component.
func (mix *MixtureDistribution) Component(k int) *distmv.Normal {
	return mix.components[k]
}

// LogProb returns the log density of the frame x under the mixture.
func (mix *MixtureDistribution) LogProb(x []float64) float64 {

	lp := make([]float64, mix.NComp)
	for k := 0; k < mix.NComp; k++ {
		lp[k] = mix.logw[k] + mix.components[k].LogProb(x)
	}

	return floats.LogSumExp(lp)
}

// Rand draws one frame from the mixture into dst, which must have length
// Dim.
func (mix *MixtureDistribution) Rand(dst []float64) []float64 {
	return mix.components[genDiscrete(mix.Weights)].Rand(dst)
}

// PoissonDuration is a word's duration distribution: the number of frames
// a word state persists, Poisson with rate Lambda.
type PoissonDuration struct {

	// Mean duration in frames
	Lambda float64
}

func (pd *PoissonDuration) dist() distuv.Poisson {
	return distuv.Poisson{Lambda: pd.Lambda}
}

// LogProb returns the log probability of a duration of k frames.
func (pd *PoissonDuration) LogProb(k float64) float64 {
	return pd.dist().LogProb(k)
}

// Mean returns the expected duration in frames.
func (pd *PoissonDuration) Mean() float64 {
	return pd.dist().Mean()
}

// Rand draws one duration.
func (pd *PoissonDuration) Rand() float64 {
	return pd.dist().Rand()
}

// HSMM is a hidden semi-Markov model over a vocabulary of word states,
// each emitting mixture-distributed frames for a Poisson-distributed
// number of steps.
type HSMM struct {

	// Number of word states
	NState int

	// The initial state distribution
	Init []float64

	// The transition probability matrix, row-major
	Trans []float64

	// The per-word emission distributions
	ObsDistns []*MixtureDistribution

	// The per-word duration distributions
	DurDistns []*PoissonDuration
}

// NewHSMM returns an HSMM with the given emission and duration
// distributions and default initial and transition probabilities.  The
// defaults favor self-transition; callers normally overwrite them with
// estimates via SetInitWeights and SetTransMatrix.
func NewHSMM(obsDistns []*MixtureDistribution, durDistns []*PoissonDuration) (*HSMM, error) {

	if len(obsDistns) != len(durDistns) {
		return nil, fmt.Errorf("hsmm: %d emission distributions but %d duration distributions",
			len(obsDistns), len(durDistns))
	}

	nstate := len(obsDistns)
	hsmm := &HSMM{
		NState:    nstate,
		ObsDistns: obsDistns,
		DurDistns: durDistns,
	}

	hsmm.Init = make([]float64, nstate)
	for i := 0; i < nstate; i++ {
		hsmm.Init[i] = 1 / float64(nstate)
	}

	hsmm.Trans = make([]float64, nstate*nstate)
	for i := 0; i < nstate; i++ {
		for j := 0; j < nstate; j++ {
			if i == j {
				hsmm.Trans[i*nstate+j] = 0.8
			} else {
				hsmm.Trans[i*nstate+j] = 0.2 / float64(nstate-1)
			}
		}
	}

	return hsmm, nil
}

// SetInitWeights overwrites the initial state distribution.
func (hsmm *HSMM) SetInitWeights(init []float64) {
	hsmm.Init = append([]float64(nil), init...)
}

// SetTransMatrix overwrites the transition matrix with a row-major
// NState x NState array.
func (hsmm *HSMM) SetTransMatrix(trans []float64) {
	hsmm.Trans = append([]float64(nil), trans...)
}

// ObsDistn returns the emission distribution for one word.
func (hsmm *HSMM) ObsDistn(word int) *MixtureDistribution {
	return hsmm.ObsDistns[word]
}

// DurDistn returns the duration distribution for one word.
func (hsmm *HSMM) DurDistn(word int) *PoissonDuration {
	return hsmm.DurDistns[word]
}

// BuildHSMM assembles the trained model from the estimated parameters:
// one mixture emission distribution and one Poisson duration distribution
// per word, with the model's default initial and transition probabilities
// replaced by the MLE estimates.
func BuildHSMM(initProbs, transProbs, durParams []float64, gmms []*GMM) (*HSMM, error) {

	obsDistns := make([]*MixtureDistribution, len(gmms))
	for word, gmm := range gmms {
		mix, err := NewMixtureDistribution(gmm)
		if err != nil {
			return nil, fmt.Errorf("word %d: %v", word, err)
		}
		obsDistns[word] = mix
	}

	durDistns := make([]*PoissonDuration, len(durParams))
	for word, lambda := range durParams {
		durDistns[word] = &PoissonDuration{Lambda: lambda}
	}

	hsmm, err := NewHSMM(obsDistns, durDistns)
	if err != nil {
		return nil, err
	}

	hsmm.SetTransMatrix(transProbs)
	hsmm.SetInitWeights(initProbs)

	return hsmm, nil
}

// WriteSummary writes the model parameters in text form to the given
// writer.  The optional row labels are used if provided.
func (hsmm *HSMM) WriteSummary(w io.Writer, labels []string, title string) {

	fmt.Fprintf(w, "%s\n\n", title)

	fmt.Fprintf(w, "Initial state distribution:\n")
	writeMatrix(w, hsmm.Init, hsmm.NState, 1, labels)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Transition matrix:\n")
	writeMatrix(w, hsmm.Trans, hsmm.NState, hsmm.NState, labels)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Mean durations:\n")
	for st := 0; st < hsmm.NState; st++ {
		fmt.Fprintf(w, "%12.4f ", hsmm.DurDistns[st].Lambda)
	}
	fmt.Fprintf(w, "\n")
}

// writeMatrix writes a matrix in text format
func writeMatrix(w io.Writer, x []float64, nrow, ncol int, labels []string) {

	var buf bytes.Buffer

	for i := 0; i < nrow; i++ {

		buf.Reset()

		if labels != nil {
			fmt.Fprintf(&buf, "%-20s", labels[i])
		}
		for j := 0; j < ncol; j++ {
			fmt.Fprintf(&buf, "%12.4f ", x[i*ncol+j])
		}
		fmt.Fprintf(&buf, "\n")

		_, _ = w.Write(buf.Bytes())
	}
}

// Generate a discrete random variable from the given probability vector,
// which must sum to 1.
func genDiscrete(pr []float64) int {

	u := rand.Float64()
	p := 0.0
	for j := range pr {
		p += pr[j]
		if u < p {
			return j
		}
	}

	// Round-off in the cumulative sum
	return len(pr) - 1
}
