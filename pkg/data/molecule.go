package data

import (
	"fmt"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// Molecule is a molecular graph: per-atom feature rows plus an undirected
// bond list indexing into them.
type Molecule struct {
	AtomFeatures *tensor.Matrix
	Bonds        [][2]int
}

// NewMolecule validates and wraps the atom features and bond list
func NewMolecule(atomFeatures *tensor.Matrix, bonds [][2]int) (*Molecule, error) {
	if atomFeatures == nil || atomFeatures.Rows == 0 {
		return nil, fmt.Errorf("molecule needs at least one atom")
	}
	for _, bond := range bonds {
		if bond[0] < 0 || bond[0] >= atomFeatures.Rows || bond[1] < 0 || bond[1] >= atomFeatures.Rows {
			return nil, fmt.Errorf("bond (%d,%d) out of range for %d atoms", bond[0], bond[1], atomFeatures.Rows)
		}
	}
	return &Molecule{AtomFeatures: atomFeatures, Bonds: bonds}, nil
}

// AtomCount returns the number of atoms
func (m *Molecule) AtomCount() int {
	return m.AtomFeatures.Rows
}

// MoleculeBatch holds one molecule per batch row, in row order
type MoleculeBatch struct {
	Molecules []*Molecule
}

// Size returns the number of molecules in the batch
func (b *MoleculeBatch) Size() int {
	return len(b.Molecules)
}

// AtomCount returns the total atom count across the batch
func (b *MoleculeBatch) AtomCount() int {
	total := 0
	for _, m := range b.Molecules {
		total += m.AtomCount()
	}
	return total
}
