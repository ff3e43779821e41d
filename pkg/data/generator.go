package data

import (
	"fmt"
	"io"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// BatchGenerator partitions a labeled-triples table into consecutive
// slices of at most batchSize rows and assembles a DrugPairBatch for each,
// looking up the requested feature categories for every row. It is
// configured once and rebound to data with SetData as often as needed.
type BatchGenerator struct {
	batchSize       int
	contextFeatures bool
	drugFeatures    bool
	drugMolecules   bool
	labels          bool

	contextSet *FeatureSet
	drugSet    *DrugFeatureSet
	triples    *LabeledTriples
}

// NewBatchGenerator creates a generator yielding batches of at most
// batchSize rows. The boolean flags select which feature categories are
// populated in each batch; disabled categories stay nil.
func NewBatchGenerator(batchSize int, contextFeatures, drugFeatures, drugMolecules, labels bool) (*BatchGenerator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	return &BatchGenerator{
		batchSize:       batchSize,
		contextFeatures: contextFeatures,
		drugFeatures:    drugFeatures,
		drugMolecules:   drugMolecules,
		labels:          labels,
	}, nil
}

// SetData binds the generator to concrete feature sets and a triples
// table. May be called repeatedly to rebind without reconstruction.
func (g *BatchGenerator) SetData(contextSet *FeatureSet, drugSet *DrugFeatureSet, triples *LabeledTriples) {
	g.contextSet = contextSet
	g.drugSet = drugSet
	g.triples = triples
}

// BatchSize returns the configured batch size
func (g *BatchGenerator) BatchSize() int {
	return g.batchSize
}

// Steps returns the number of batches per epoch, ceil(N/batchSize)
func (g *BatchGenerator) Steps() int {
	if g.triples == nil {
		return 0
	}
	return (g.triples.Len() + g.batchSize - 1) / g.batchSize
}

// Iter starts a fresh pass over the bound triples. Passes over unchanged
// data yield identical batch sequences.
func (g *BatchGenerator) Iter() *BatchIterator {
	return &BatchIterator{generator: g}
}

// BatchIterator is one lazy pass over the generator's triples table
type BatchIterator struct {
	generator *BatchGenerator
	pos       int
}

// Next assembles and returns the next batch. It returns io.EOF once the
// epoch is exhausted. A failed feature lookup aborts the call.
func (it *BatchIterator) Next() (*DrugPairBatch, error) {
	g := it.generator
	if g.triples == nil {
		return nil, fmt.Errorf("batch generator has no data bound, call SetData first")
	}
	if it.pos >= g.triples.Len() {
		return nil, io.EOF
	}

	hi := it.pos + g.batchSize
	if hi > g.triples.Len() {
		hi = g.triples.Len()
	}
	rows := g.triples.Slice(it.pos, hi)

	batch, err := g.generateBatch(rows)
	if err != nil {
		return nil, fmt.Errorf("batch at row %d: %w", it.pos, err)
	}

	it.pos = hi
	return batch, nil
}

func (g *BatchGenerator) generateBatch(rows []LabeledTriple) (*DrugPairBatch, error) {
	batch := &DrugPairBatch{
		Identifiers: append([]LabeledTriple(nil), rows...),
	}

	if g.contextFeatures {
		features, err := g.stackContexts(rows)
		if err != nil {
			return nil, fmt.Errorf("context features: %w", err)
		}
		batch.ContextFeatures = features
	}

	if g.drugFeatures {
		left, err := g.stackDrugs(rows, func(t LabeledTriple) string { return t.DrugLeft })
		if err != nil {
			return nil, fmt.Errorf("left drug features: %w", err)
		}
		right, err := g.stackDrugs(rows, func(t LabeledTriple) string { return t.DrugRight })
		if err != nil {
			return nil, fmt.Errorf("right drug features: %w", err)
		}
		batch.DrugFeaturesLeft = left
		batch.DrugFeaturesRight = right
	}

	if g.drugMolecules {
		left, err := g.stackMolecules(rows, func(t LabeledTriple) string { return t.DrugLeft })
		if err != nil {
			return nil, fmt.Errorf("left drug molecules: %w", err)
		}
		right, err := g.stackMolecules(rows, func(t LabeledTriple) string { return t.DrugRight })
		if err != nil {
			return nil, fmt.Errorf("right drug molecules: %w", err)
		}
		batch.DrugMoleculesLeft = left
		batch.DrugMoleculesRight = right
	}

	if g.labels {
		labels := tensor.MustNewMatrix(len(rows), 1)
		for i, row := range rows {
			labels.Data[i][0] = row.Label
		}
		batch.Labels = labels
	}

	return batch, nil
}

func (g *BatchGenerator) stackContexts(rows []LabeledTriple) (*tensor.Matrix, error) {
	stacked := make([][]float64, len(rows))
	for i, row := range rows {
		vec, err := g.contextSet.Get(row.Context)
		if err != nil {
			return nil, err
		}
		stacked[i] = vec
	}
	return tensor.NewMatrixFromRows(stacked)
}

func (g *BatchGenerator) stackDrugs(rows []LabeledTriple, key func(LabeledTriple) string) (*tensor.Matrix, error) {
	stacked := make([][]float64, len(rows))
	for i, row := range rows {
		entry, err := g.drugSet.Get(key(row))
		if err != nil {
			return nil, err
		}
		stacked[i] = entry.Features
	}
	return tensor.NewMatrixFromRows(stacked)
}

func (g *BatchGenerator) stackMolecules(rows []LabeledTriple, key func(LabeledTriple) string) (*MoleculeBatch, error) {
	molecules := make([]*Molecule, len(rows))
	for i, row := range rows {
		id := key(row)
		entry, err := g.drugSet.Get(id)
		if err != nil {
			return nil, err
		}
		if entry.Molecule == nil {
			return nil, fmt.Errorf("drug %q has no molecule", id)
		}
		molecules[i] = entry.Molecule
	}
	return &MoleculeBatch{Molecules: molecules}, nil
}
