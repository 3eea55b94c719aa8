// Package hsmmsim generates synthetic labeled corpora from a known HSMM,
// for simulation studies and tests of the estimation passes.
package hsmmsim

import (
	"math/rand"

	"github.com/OshratY/lip-reading/hsmmlib"
)

// GenChain draws one labeled chain with nseg word segments from the
// model.  The initial word is drawn from the model's initial distribution
// and subsequent words from its transition matrix; each segment's length
// is drawn from the word's duration distribution (at least one frame) and
// its frames from the word's emission mixture.
func GenChain(hsmm *hsmmlib.HSMM, nseg int) hsmmlib.Chain {

	chain := hsmmlib.Chain{
		StateSeq: make([]int, nseg),
		Obs:      make([]hsmmlib.Segment, nseg),
	}

	row := make([]float64, hsmm.NState)

	for i := 0; i < nseg; i++ {

		var word int
		if i == 0 {
			copy(row, hsmm.Init)
			word = genDiscrete(row)
		} else {
			st0 := chain.StateSeq[i-1]
			copy(row, hsmm.Trans[st0*hsmm.NState:(st0+1)*hsmm.NState])
			word = genDiscrete(row)
		}
		chain.StateSeq[i] = word

		dur := int(hsmm.DurDistn(word).Rand())
		if dur < 1 {
			dur = 1
		}

		mix := hsmm.ObsDistn(word)
		seg := make(hsmmlib.Segment, dur)
		for t := 0; t < dur; t++ {
			seg[t] = mix.Rand(make([]float64, mix.Dim))
		}
		chain.Obs[i] = seg
	}

	return chain
}

// GenCorpus draws nchain labeled chains with nseg segments each.
func GenCorpus(hsmm *hsmmlib.HSMM, nchain, nseg int) hsmmlib.Corpus {

	corpus := make(hsmmlib.Corpus, nchain)
	for c := range corpus {
		corpus[c] = GenChain(hsmm, nseg)
	}

	return corpus
}

// Generate a discrete random variable from the given weight vector, which
// is normalized in place.  The model's estimated transition rows sum to
// the row's share of all bigrams, not to 1, so normalization is required
// before sampling.
func genDiscrete(pr []float64) int {

	var total float64
	for _, p := range pr {
		total += p
	}
	if total <= 0 {
		panic("Not a weight vector")
	}
	for j := range pr {
		pr[j] /= total
	}

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
