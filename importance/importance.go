// Package importance maps the feature weights of a tICA component onto the
// residues and atoms the features are computed from.
package importance

import (
	"fmt"
	"math"

	"github.com/kinase-msm/kinmsm/frames"
	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"
)

// Importance holds per-atom and per-residue importance of one component.
type Importance struct {
	Atoms    []float64
	Residues []float64
}

// ResidueIndex returns the 0-based residue ordinal of every atom of top.
// A new residue starts wherever the chain or residue number changes.
func ResidueIndex(top chem.Atomer) (atomRes []int, nResidues int) {
	atomRes = make([]int, top.Len())
	var chain string
	molID := math.MinInt
	for i := range atomRes {
		a := top.Atom(i)
		if a.Chain != chain || a.MolID != molID {
			chain, molID = a.Chain, a.MolID
			nResidues++
		}
		atomRes[i] = nResidues - 1
	}
	return atomRes, nResidues
}

// MapTicComponent sums |component[f]| over every feature f into each residue
// the feature lists, then gives every atom the importance of its residue.
func MapTicComponent(component []float64, features []project.FeatureDescriptor, top chem.Atomer) (*Importance, error) {
	atomRes, nRes := ResidueIndex(top)
	imp := &Importance{
		Atoms:    make([]float64, len(atomRes)),
		Residues: make([]float64, nRes),
	}
	for _, f := range features {
		if f.Index < 0 || f.Index >= len(component) {
			return nil, msmerr.DimensionMismatch(f.Index+1, len(component)).With("feature", f.Index)
		}
		w := math.Abs(component[f.Index])
		for _, r := range f.Residues {
			if r < 0 || r >= nRes {
				return nil, msmerr.DimensionMismatch(r+1, nRes).
					With("feature", f.Index).
					With("residue", r)
			}
			imp.Residues[r] += w
		}
	}
	for i, r := range atomRes {
		imp.Atoms[i] = imp.Residues[r]
	}
	return imp, nil
}

// ForTic loads the tICA model and feature descriptors of protein and maps
// component tic onto top.
func ForTic(cfg *project.Config, protein string, tic int, top chem.Atomer) (*Importance, error) {
	model, err := project.LoadTicaModel(cfg, protein)
	if err != nil {
		return nil, err
	}
	if tic < 0 || tic >= len(model.Components) {
		return nil, msmerr.DimensionMismatch(tic+1, len(model.Components)).With("tic", tic)
	}
	features, err := project.LoadFeatureDescriptors(cfg, protein)
	if err != nil {
		return nil, err
	}
	return MapTicComponent(model.Components[tic], features, top)
}

// WritePDB writes coords with the atom importance in the B-factor column.
func WritePDB(path string, coords *v3.Matrix, top chem.Atomer, imp *Importance) error {
	if coords.NVecs() != len(imp.Atoms) {
		return fmt.Errorf("importance covers %d atoms, structure has %d", len(imp.Atoms), coords.NVecs())
	}
	return frames.WritePDB(path, coords, top, imp.Atoms)
}
