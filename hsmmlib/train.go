package hsmmlib

import (
	"fmt"
	"log"
	"os"

	"github.com/schollz/progressbar"
)

// Default number of mixture components per word
const defaultNComponents = 6

// Trainer runs the full estimation pipeline over a labeled corpus:
// initial probabilities, transition probabilities, duration parameters,
// emission data gathering, per-word mixture fitting, and model assembly.
// Each stage runs once, in that order, and any stage failure aborts the
// run.
type Trainer struct {

	// Number of words in the vocabulary
	VocabSize int

	// Number of mixture components per word, defaultNComponents if zero
	NComponents int

	// If true, stage progress notices are written to the logger
	Verbose bool

	// If set, the raw parameter bundle is saved here before assembly
	ParamFile string

	// If set, the assembled model is saved here before returning
	ModelFile string

	// Fits the per-word emission mixtures.  If nil, an EMFitter with
	// default settings is used.
	Fitter MixtureFitter

	// Write log messages here
	msglogger *log.Logger
}

// NewTrainer returns a Trainer for the given vocabulary size with the
// default component count.
func NewTrainer(vocabSize int) *Trainer {

	return &Trainer{
		VocabSize:   vocabSize,
		NComponents: defaultNComponents,
	}
}

// SetLogger creates a log file with the given name prefix and directs the
// trainer's messages there.  The calling program can also use the
// returned logger.
func (tr *Trainer) SetLogger(logname string) (*log.Logger, error) {

	fid, err := os.Create(logname + "_msg.log")
	if err != nil {
		return nil, err
	}
	tr.msglogger = log.New(fid, "", log.Ltime)

	return tr.msglogger, nil
}

func (tr *Trainer) notice(format string, args ...interface{}) {
	if tr.Verbose {
		tr.msglogger.Printf(format, args...)
	}
}

// Train estimates all parameters from the corpus and returns the
// assembled model.
func (tr *Trainer) Train(corpus Corpus) (*HSMM, error) {

	if tr.VocabSize <= 0 {
		return nil, fmt.Errorf("train: vocabulary size %d is not positive", tr.VocabSize)
	}

	ncomp := tr.NComponents
	if ncomp == 0 {
		ncomp = defaultNComponents
	}

	if tr.msglogger == nil {
		tr.msglogger = log.New(os.Stderr, "", log.Ltime)
	}

	fitter := tr.Fitter
	if fitter == nil {
		fitter = &EMFitter{Verbose: tr.Verbose, Logger: tr.msglogger}
	}

	tr.notice("Computing initial word probabilities...\n")
	initProbs := EstimateInitProbs(corpus, tr.VocabSize)

	tr.notice("Computing word transition probabilities...\n")
	transProbs := EstimateTransProbs(corpus, tr.VocabSize)

	tr.notice("Estimating word duration parameters...\n")
	durParams := EstimateDurations(corpus, tr.VocabSize)

	tr.notice("Gathering emission training data...\n")
	data := GatherEmissionData(corpus, tr.VocabSize)

	tr.notice("Fitting emission mixtures...\n")
	var bar *progressbar.ProgressBar
	if tr.Verbose {
		bar = progressbar.New(tr.VocabSize)
	}

	gmms := make([]*GMM, tr.VocabSize)
	for word := 0; word < tr.VocabSize; word++ {
		tr.notice("Fitting emission mixture for word %d\n", word)

		gmm, err := fitter.Fit(data[word], ncomp)
		if err != nil {
			return nil, fmt.Errorf("train: word %d: %v", word, err)
		}
		gmms[word] = gmm

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if tr.ParamFile != "" {
		tr.notice("Saving raw parameters to %s\n", tr.ParamFile)
		pa := &Params{
			WordInitProbs:  initProbs,
			WordTransProbs: transProbs,
			WordDurParams:  durParams,
			WordGMMs:       gmms,
		}
		if err := pa.Save(tr.ParamFile); err != nil {
			return nil, fmt.Errorf("train: saving parameters: %v", err)
		}
	}

	tr.notice("Assembling model...\n")
	hsmm, err := BuildHSMM(initProbs, transProbs, durParams, gmms)
	if err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}

	if tr.ModelFile != "" {
		tr.notice("Saving model to %s\n", tr.ModelFile)
		if err := hsmm.Save(tr.ModelFile); err != nil {
			return nil, fmt.Errorf("train: saving model: %v", err)
		}
	}

	return hsmm, nil
}
