// Package data holds the dataset side of the library: feature sets for
// drugs and biological contexts, labeled drug-pair triples, molecule
// containers, and the batch generator that assembles aligned tensors for
// the models.
package data

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownEntity indicates a feature lookup for an identifier that is
// not part of the feature set. Lookups never skip silently.
var ErrUnknownEntity = errors.New("data: unknown entity")

// FeatureSet maps an entity identifier to a fixed-length feature vector.
// Every vector in a set has the same length.
type FeatureSet struct {
	dim     int
	vectors map[string][]float64
}

// NewFeatureSet builds a feature set from id-keyed vectors. All vectors
// must share the same non-zero length.
func NewFeatureSet(vectors map[string][]float64) (*FeatureSet, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("feature set cannot be empty")
	}

	dim := -1
	for id, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("feature vector for %q is empty", id)
		}
		if dim == -1 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, fmt.Errorf("feature vector for %q has length %d, want %d", id, len(vec), dim)
		}
	}

	copied := make(map[string][]float64, len(vectors))
	for id, vec := range vectors {
		v := make([]float64, len(vec))
		copy(v, vec)
		copied[id] = v
	}

	return &FeatureSet{dim: dim, vectors: copied}, nil
}

// Get returns the feature vector for id, or a wrapped ErrUnknownEntity
func (fs *FeatureSet) Get(id string) ([]float64, error) {
	vec, ok := fs.vectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	return vec, nil
}

// Has reports whether id is part of the set
func (fs *FeatureSet) Has(id string) bool {
	_, ok := fs.vectors[id]
	return ok
}

// Dim returns the feature vector length
func (fs *FeatureSet) Dim() int {
	return fs.dim
}

// Len returns the number of entities
func (fs *FeatureSet) Len() int {
	return len(fs.vectors)
}

// IDs returns the sorted entity identifiers
func (fs *FeatureSet) IDs() []string {
	ids := make([]string, 0, len(fs.vectors))
	for id := range fs.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DrugEntry is the per-drug record of a DrugFeatureSet: a feature vector
// plus the optional molecular structure it was derived from.
type DrugEntry struct {
	Smiles   string
	Features []float64
	Molecule *Molecule
}

// DrugFeatureSet maps a drug identifier to its features and optional
// molecule. Every feature vector in a set has the same length.
type DrugFeatureSet struct {
	dim     int
	entries map[string]*DrugEntry
}

// NewDrugFeatureSet builds a drug feature set from id-keyed entries
func NewDrugFeatureSet(entries map[string]*DrugEntry) (*DrugFeatureSet, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("drug feature set cannot be empty")
	}

	dim := -1
	for id, entry := range entries {
		if entry == nil || len(entry.Features) == 0 {
			return nil, fmt.Errorf("drug %q has no features", id)
		}
		if dim == -1 {
			dim = len(entry.Features)
		} else if len(entry.Features) != dim {
			return nil, fmt.Errorf("drug %q has %d features, want %d", id, len(entry.Features), dim)
		}
	}

	copied := make(map[string]*DrugEntry, len(entries))
	for id, entry := range entries {
		features := make([]float64, len(entry.Features))
		copy(features, entry.Features)
		copied[id] = &DrugEntry{
			Smiles:   entry.Smiles,
			Features: features,
			Molecule: entry.Molecule,
		}
	}

	return &DrugFeatureSet{dim: dim, entries: copied}, nil
}

// Get returns the entry for id, or a wrapped ErrUnknownEntity
func (ds *DrugFeatureSet) Get(id string) (*DrugEntry, error) {
	entry, ok := ds.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	return entry, nil
}

// Has reports whether id is part of the set
func (ds *DrugFeatureSet) Has(id string) bool {
	_, ok := ds.entries[id]
	return ok
}

// Dim returns the drug feature vector length
func (ds *DrugFeatureSet) Dim() int {
	return ds.dim
}

// Len returns the number of drugs
func (ds *DrugFeatureSet) Len() int {
	return len(ds.entries)
}

// IDs returns the sorted drug identifiers
func (ds *DrugFeatureSet) IDs() []string {
	ids := make([]string, 0, len(ds.entries))
	for id := range ds.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
