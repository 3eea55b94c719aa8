package hsmmlib

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EstimateInitProbs counts which word starts each chain and returns the
// counts divided by vocabSize.  Note that the result is normalized by the
// vocabulary size, not by the number of chains, so it does not in general
// sum to 1.
func EstimateInitProbs(corpus Corpus, vocabSize int) []float64 {

	initCounts := make([]float64, vocabSize)

	for _, chain := range corpus {
		if len(chain.StateSeq) > 0 {
			initCounts[chain.StateSeq[0]]++
		}
	}

	floats.Scale(1/float64(vocabSize), initCounts)

	return initCounts
}

// EstimateTransProbs returns the MLE of the word transition matrix from
// bigram counts, as a row-major vocabSize x vocabSize array with entry
// [i*vocabSize+j] giving the probability of moving from word i to word j.
// The counts are divided by the total number of bigrams in the corpus, so
// the matrix as a whole sums to 1 but the rows are not individually
// stochastic.
func EstimateTransProbs(corpus Corpus, vocabSize int) []float64 {

	bigramCounts := make([]float64, vocabSize*vocabSize)

	var numBigrams int
	for _, chain := range corpus {
		seq := chain.StateSeq
		for t := 0; t+1 < len(seq); t++ {
			bigramCounts[seq[t]*vocabSize+seq[t+1]]++
		}
		if len(seq) > 1 {
			numBigrams += len(seq) - 1
		}
	}

	floats.Scale(1/float64(numBigrams), bigramCounts)

	return bigramCounts
}

// EstimateDurations returns the MLE of the Poisson duration rate for each
// word, which is the mean observed segment length in frames.  A word with
// no occurrence in the corpus gets a NaN estimate.
func EstimateDurations(corpus Corpus, vocabSize int) []float64 {

	wordDurations := make([]float64, vocabSize)
	wordCounts := make([]float64, vocabSize)

	for _, chain := range corpus {
		for i, word := range chain.StateSeq {
			wordDurations[word] += float64(len(chain.Obs[i]))
			wordCounts[word]++
		}
	}

	floats.Div(wordDurations, wordCounts)

	return wordDurations
}

// GatherEmissionData pools, for each word, the frames from every segment
// labeled with that word into a single data matrix with one row per frame,
// in corpus traversal order.  A word with no occurrence gets a nil matrix.
func GatherEmissionData(corpus Corpus, vocabSize int) []*mat.Dense {

	// Count rows per word so each matrix is allocated once.
	nrow := make([]int, vocabSize)
	var dim int
	for _, chain := range corpus {
		for i, word := range chain.StateSeq {
			nrow[word] += len(chain.Obs[i])
			if dim == 0 && len(chain.Obs[i]) > 0 {
				dim = len(chain.Obs[i][0])
			}
		}
	}

	data := make([]*mat.Dense, vocabSize)
	for word := 0; word < vocabSize; word++ {
		if nrow[word] > 0 {
			data[word] = mat.NewDense(nrow[word], dim, nil)
		}
	}

	row := make([]int, vocabSize)
	for _, chain := range corpus {
		for i, word := range chain.StateSeq {
			for _, frame := range chain.Obs[i] {
				data[word].SetRow(row[word], frame)
				row[word]++
			}
		}
	}

	return data
}
