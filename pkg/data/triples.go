package data

import (
	"fmt"
	"math/rand"
)

// LabeledTriple is one row of a synergy dataset: a drug pair, the
// biological context it was screened in, and the synergy label.
type LabeledTriple struct {
	DrugLeft  string  `csv:"drug_1"`
	DrugRight string  `csv:"drug_2"`
	Context   string  `csv:"context"`
	Label     float64 `csv:"label"`
}

// LabeledTriples is an ordered table of labeled drug-pair rows. Row order
// defines iteration order unless Shuffle is called.
type LabeledTriples struct {
	rows []LabeledTriple
}

// NewLabeledTriples builds a table from the given rows, copying them
func NewLabeledTriples(rows []LabeledTriple) *LabeledTriples {
	copied := make([]LabeledTriple, len(rows))
	copy(copied, rows)
	return &LabeledTriples{rows: copied}
}

// Len returns the number of rows
func (t *LabeledTriples) Len() int {
	return len(t.rows)
}

// Row returns the row at index i
func (t *LabeledTriples) Row(i int) LabeledTriple {
	return t.rows[i]
}

// Slice returns the rows in [lo, hi)
func (t *LabeledTriples) Slice(lo, hi int) []LabeledTriple {
	return t.rows[lo:hi]
}

// Shuffle reorders the rows in place using the given random source
func (t *LabeledTriples) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(t.rows), func(i, j int) {
		t.rows[i], t.rows[j] = t.rows[j], t.rows[i]
	})
}

// Split partitions the table into two new tables, the first holding
// round(frac*len) rows. Row order is preserved; shuffle first for a
// random split.
func (t *LabeledTriples) Split(frac float64) (*LabeledTriples, *LabeledTriples, error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, fmt.Errorf("split fraction %f must be in (0,1)", frac)
	}
	cut := int(float64(len(t.rows))*frac + 0.5)
	if cut == 0 || cut == len(t.rows) {
		return nil, nil, fmt.Errorf("split fraction %f leaves an empty side for %d rows", frac, len(t.rows))
	}
	return NewLabeledTriples(t.rows[:cut]), NewLabeledTriples(t.rows[cut:]), nil
}

// Clone returns a deep copy of the table
func (t *LabeledTriples) Clone() *LabeledTriples {
	return NewLabeledTriples(t.rows)
}
