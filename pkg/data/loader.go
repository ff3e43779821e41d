package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/gzip"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// DatasetLoader provides the three structures a BatchGenerator is bound
// to. Implementations load each structure once; callers treat the results
// as read-only.
type DatasetLoader interface {
	GetContextFeatures() (*FeatureSet, error)
	GetDrugFeatures() (*DrugFeatureSet, error)
	GetLabeledTriples() (*LabeledTriples, error)
}

const (
	drugSetFile       = "drug_set.json"
	contextSetFile    = "context_set.json"
	moleculeFile      = "drug_molecules.json"
	labeledTripleFile = "labeled_triples.csv"
)

// DirLoader loads a synergy dataset from a local directory containing
// drug_set.json, context_set.json, labeled_triples.csv and optionally
// drug_molecules.json. Each file may instead be present gzip-compressed
// with a .gz suffix.
type DirLoader struct {
	dir string
}

// NewDirLoader creates a loader rooted at the given dataset directory
func NewDirLoader(dir string) (*DirLoader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset path %q is not a directory", dir)
	}
	return &DirLoader{dir: dir}, nil
}

// GetContextFeatures reads context_set.json, an id to feature-vector map
func (l *DirLoader) GetContextFeatures() (*FeatureSet, error) {
	r, err := l.open(contextSetFile)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var raw map[string][]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", contextSetFile, err)
	}

	set, err := NewFeatureSet(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", contextSetFile, err)
	}
	return set, nil
}

type rawDrugEntry struct {
	Smiles   string    `json:"smiles"`
	Features []float64 `json:"features"`
}

type rawMolecule struct {
	AtomFeatures [][]float64 `json:"atom_features"`
	Bonds        [][2]int    `json:"bonds"`
}

// GetDrugFeatures reads drug_set.json and, when present, merges the
// molecular graphs from drug_molecules.json into the entries
func (l *DirLoader) GetDrugFeatures() (*DrugFeatureSet, error) {
	r, err := l.open(drugSetFile)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var raw map[string]rawDrugEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", drugSetFile, err)
	}

	entries := make(map[string]*DrugEntry, len(raw))
	for id, entry := range raw {
		entries[id] = &DrugEntry{Smiles: entry.Smiles, Features: entry.Features}
	}

	if err := l.mergeMolecules(entries); err != nil {
		return nil, err
	}

	set, err := NewDrugFeatureSet(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", drugSetFile, err)
	}
	return set, nil
}

func (l *DirLoader) mergeMolecules(entries map[string]*DrugEntry) error {
	r, err := l.open(moleculeFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()

	var raw map[string]rawMolecule
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("decoding %s: %w", moleculeFile, err)
	}

	for id, mol := range raw {
		entry, ok := entries[id]
		if !ok {
			return fmt.Errorf("%s references drug %q absent from %s", moleculeFile, id, drugSetFile)
		}
		atoms, err := tensor.NewMatrixFromRows(mol.AtomFeatures)
		if err != nil {
			return fmt.Errorf("atom features for %q: %w", id, err)
		}
		molecule, err := NewMolecule(atoms, mol.Bonds)
		if err != nil {
			return fmt.Errorf("molecule for %q: %w", id, err)
		}
		entry.Molecule = molecule
	}
	return nil
}

// GetLabeledTriples reads labeled_triples.csv with columns
// drug_1,drug_2,context,label
func (l *DirLoader) GetLabeledTriples() (*LabeledTriples, error) {
	r, err := l.open(labeledTripleFile)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var rows []LabeledTriple
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", labeledTripleFile, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no rows", labeledTripleFile)
	}
	return NewLabeledTriples(rows), nil
}

// open resolves name inside the dataset directory, preferring the plain
// file and falling back to a gzip-compressed .gz variant
func (l *DirLoader) open(name string) (io.ReadCloser, error) {
	plain := filepath.Join(l.dir, name)
	if f, err := os.Open(plain); err == nil {
		return f, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	f, err := os.Open(plain + ".gz")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("opening %s: %w", name, os.ErrNotExist)
		}
		return nil, fmt.Errorf("opening %s.gz: %w", name, err)
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip %s: %w", name, err)
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
