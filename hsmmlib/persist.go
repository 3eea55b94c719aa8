package hsmmlib

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// Params bundles the raw parameter estimates of one training run, prior
// to model assembly.  It can be saved and reloaded so the estimation
// passes do not need to be repeated when re-assembling a model.
type Params struct {

	// First-word counts divided by the vocabulary size
	WordInitProbs []float64

	// Row-major transition matrix
	WordTransProbs []float64

	// Per-word Poisson duration rates
	WordDurParams []float64

	// Per-word fitted emission mixtures
	WordGMMs []*GMM
}

// Save writes the parameter bundle to a gzip-compressed gob file.
func (pa *Params) Save(fname string) error {

	fid, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer fid.Close()

	gid := gzip.NewWriter(fid)
	defer gid.Close()

	enc := gob.NewEncoder(gid)

	return enc.Encode(pa)
}

// ReadParams reads a parameter bundle from a gzip-compressed gob file.
func ReadParams(fname string) (*Params, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, err
	}
	defer gid.Close()

	dec := gob.NewDecoder(gid)

	var pa Params
	if err := dec.Decode(&pa); err != nil {
		return nil, err
	}

	return &pa, nil
}

// Save writes the assembled model to a gzip-compressed gob file.
func (hsmm *HSMM) Save(fname string) error {

	fid, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer fid.Close()

	gid := gzip.NewWriter(fid)
	defer gid.Close()

	enc := gob.NewEncoder(gid)

	return enc.Encode(hsmm)
}

// ReadHSMM reads an assembled model from a gzip-compressed gob file and
// rebuilds its emission distributions.
func ReadHSMM(fname string) (*HSMM, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, err
	}
	defer gid.Close()

	dec := gob.NewDecoder(gid)

	var hsmm HSMM
	if err := dec.Decode(&hsmm); err != nil {
		return nil, err
	}

	// The component Gaussians are not serialized, only their parameters
	for word, mix := range hsmm.ObsDistns {
		if err := mix.rebuild(); err != nil {
			return nil, fmt.Errorf("word %d: %v", word, err)
		}
	}

	return &hsmm, nil
}
