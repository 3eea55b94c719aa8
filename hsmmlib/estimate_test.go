package hsmmlib

import (
	"math"
	"testing"
)

// scenarioCorpus is one chain with state sequence [0, 1, 0] and segment
// lengths 1, 2, 1 over two-dimensional frames.
func scenarioCorpus() Corpus {
	return Corpus{
		{
			StateSeq: []int{0, 1, 0},
			Obs: []Segment{
				{{1, 2}},
				{{3, 4}, {5, 6}},
				{{7, 8}},
			},
		},
	}
}

func TestEstimateInitProbs(t *testing.T) {

	corpus := scenarioCorpus()
	initProbs := EstimateInitProbs(corpus, 2)

	if len(initProbs) != 2 {
		t.Fatalf("got length %d, want 2", len(initProbs))
	}

	// One chain starting at word 0, counts divided by the vocabulary size
	if initProbs[0] != 0.5 || initProbs[1] != 0 {
		t.Errorf("got %v, want [0.5 0]", initProbs)
	}
}

// The initial probabilities are normalized by the vocabulary size rather
// than the chain count, so they do not in general sum to 1.  This pins
// the current behavior.
func TestEstimateInitProbsNormalization(t *testing.T) {

	corpus := Corpus{
		{StateSeq: []int{0}, Obs: []Segment{{{1}}}},
		{StateSeq: []int{1}, Obs: []Segment{{{2}}}},
	}

	initProbs := EstimateInitProbs(corpus, 3)

	var total float64
	for _, p := range initProbs {
		if p < 0 {
			t.Errorf("negative entry in %v", initProbs)
		}
		total += p
	}

	if math.Abs(total-2.0/3) > 1e-12 {
		t.Errorf("got total %f, want 2/3", total)
	}
}

func TestEstimateTransProbs(t *testing.T) {

	corpus := scenarioCorpus()
	trans := EstimateTransProbs(corpus, 2)

	if len(trans) != 4 {
		t.Fatalf("got length %d, want 4", len(trans))
	}

	// Two bigrams, (0,1) and (1,0), each at 1/2
	want := []float64{0, 0.5, 0.5, 0}
	for i := range want {
		if trans[i] != want[i] {
			t.Errorf("entry %d: got %f, want %f", i, trans[i], want[i])
		}
	}

	var total float64
	for _, p := range trans {
		if p < 0 {
			t.Errorf("negative entry in %v", trans)
		}
		total += p
	}
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("matrix total is %f, want 1", total)
	}
}

// The transition counts are divided by the global bigram total, so the
// rows are not individually stochastic.  This pins the current behavior.
func TestEstimateTransProbsRowsNotStochastic(t *testing.T) {

	corpus := scenarioCorpus()
	trans := EstimateTransProbs(corpus, 2)

	row0 := trans[0] + trans[1]
	if row0 == 1 {
		t.Errorf("row 0 sums to 1, expected global normalization (got row sum %f)", row0)
	}
}

func TestEstimateTransProbsNoBigrams(t *testing.T) {

	// Chains of length 0 and 1 contribute no bigrams
	corpus := Corpus{
		{StateSeq: []int{0}, Obs: []Segment{{{1}}}},
		{StateSeq: nil, Obs: nil},
	}

	trans := EstimateTransProbs(corpus, 2)
	for i, p := range trans {
		if !math.IsNaN(p) {
			t.Errorf("entry %d: got %f, want NaN for a corpus with no bigrams", i, p)
		}
	}
}

func TestEstimateDurations(t *testing.T) {

	corpus := scenarioCorpus()
	dur := EstimateDurations(corpus, 2)

	// Word 0 appears twice with one frame each; word 1 once with two frames
	if dur[0] != 1 {
		t.Errorf("word 0: got %f, want 1", dur[0])
	}
	if dur[1] != 2 {
		t.Errorf("word 1: got %f, want 2", dur[1])
	}
}

func TestEstimateDurationsExactMean(t *testing.T) {

	corpus := Corpus{
		{
			StateSeq: []int{0, 0, 0},
			Obs: []Segment{
				{{1}, {1}, {1}},
				{{1}},
				{{1}, {1}},
			},
		},
	}

	dur := EstimateDurations(corpus, 1)
	if dur[0] != 2 {
		t.Errorf("got %f, want the exact mean 2", dur[0])
	}
}

func TestEstimateDurationsUnobservedWord(t *testing.T) {

	corpus := scenarioCorpus()
	dur := EstimateDurations(corpus, 3)

	if !math.IsNaN(dur[2]) {
		t.Errorf("word 2: got %f, want NaN for an unobserved word", dur[2])
	}
}

func TestGatherEmissionData(t *testing.T) {

	corpus := scenarioCorpus()
	data := GatherEmissionData(corpus, 2)

	r0, c0 := data[0].Dims()
	if r0 != 2 || c0 != 2 {
		t.Fatalf("word 0: got %dx%d, want 2x2", r0, c0)
	}
	r1, c1 := data[1].Dims()
	if r1 != 2 || c1 != 2 {
		t.Fatalf("word 1: got %dx%d, want 2x2", r1, c1)
	}

	// Frames pooled in corpus traversal order
	want0 := [][]float64{{1, 2}, {7, 8}}
	for i, row := range want0 {
		for j, v := range row {
			if data[0].At(i, j) != v {
				t.Errorf("word 0 entry (%d,%d): got %f, want %f", i, j, data[0].At(i, j), v)
			}
		}
	}

	if data[1].At(0, 0) != 3 || data[1].At(1, 0) != 5 {
		t.Errorf("word 1 frames out of order")
	}
}

func TestGatherEmissionDataUnobservedWord(t *testing.T) {

	corpus := scenarioCorpus()
	data := GatherEmissionData(corpus, 3)

	if data[2] != nil {
		t.Errorf("word 2: got a matrix, want nil for an unobserved word")
	}
}

func TestValidate(t *testing.T) {

	for _, tc := range []struct {
		name   string
		corpus Corpus
		vocab  int
		ok     bool
	}{
		{"valid", scenarioCorpus(), 2, true},
		{"unobserved word", scenarioCorpus(), 3, false},
		{"length mismatch", Corpus{{StateSeq: []int{0, 1}, Obs: []Segment{{{1}}}}}, 2, false},
		{"word out of range", Corpus{{StateSeq: []int{2}, Obs: []Segment{{{1}}}}}, 2, false},
		{"negative word", Corpus{{StateSeq: []int{-1}, Obs: []Segment{{{1}}}}}, 2, false},
	} {
		err := tc.corpus.Validate(tc.vocab)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestChainNumFrames(t *testing.T) {

	chain := scenarioCorpus()[0]
	if chain.NumFrames() != 4 {
		t.Errorf("got %d, want 4", chain.NumFrames())
	}
}
