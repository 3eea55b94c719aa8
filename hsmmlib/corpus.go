package hsmmlib

import "fmt"

// Segment holds the observation frames emitted during one occurrence of
// one word.  Each frame is a feature vector; all frames in a corpus must
// have the same length.
type Segment [][]float64

// Chain is one labeled training sequence: the word index for each segment,
// and the observed segment for each word occurrence.  StateSeq and Obs
// always have the same length.
type Chain struct {

	// The ground-truth word index for each segment
	StateSeq []int

	// The observed frames for each segment
	Obs []Segment
}

// Corpus is an ordered collection of labeled chains.
type Corpus []Chain

// NumFrames returns the total number of observation frames in the chain.
func (chain *Chain) NumFrames() int {

	var n int
	for _, seg := range chain.Obs {
		n += len(seg)
	}

	return n
}

// Validate checks the structural invariants of the corpus: every chain has
// one segment per state, every word index is in [0, vocabSize), and every
// word occurs at least once.  The estimators do not call this; callers who
// want malformed input rejected up front can.
func (corpus Corpus) Validate(vocabSize int) error {

	seen := make([]bool, vocabSize)

	for c, chain := range corpus {

		if len(chain.StateSeq) != len(chain.Obs) {
			return fmt.Errorf("chain %d: %d states but %d segments",
				c, len(chain.StateSeq), len(chain.Obs))
		}

		for i, word := range chain.StateSeq {
			if word < 0 || word >= vocabSize {
				return fmt.Errorf("chain %d: word index %d at position %d is outside [0, %d)",
					c, word, i, vocabSize)
			}
			seen[word] = true
		}
	}

	for word, ok := range seen {
		if !ok {
			return fmt.Errorf("word %d has no occurrence in the corpus", word)
		}
	}

	return nil
}
