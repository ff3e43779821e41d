package data

import "github.com/dualword/chemicalx/pkg/tensor"

// DrugPairBatch is one mini-batch of drug-pair rows with aligned tensors.
// Fields for disabled feature categories stay nil; every present tensor
// shares the same first dimension.
type DrugPairBatch struct {
	Identifiers        []LabeledTriple
	ContextFeatures    *tensor.Matrix
	DrugFeaturesLeft   *tensor.Matrix
	DrugFeaturesRight  *tensor.Matrix
	DrugMoleculesLeft  *MoleculeBatch
	DrugMoleculesRight *MoleculeBatch
	Labels             *tensor.Matrix
}

// Size returns the number of drug-pair rows in the batch
func (b *DrugPairBatch) Size() int {
	return len(b.Identifiers)
}
