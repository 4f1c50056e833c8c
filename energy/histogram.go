/*
Package energy turns per-state observations into population-weighted free
energy curves and surfaces.

Each MSM state contributes a normalized density histogram over shared bin
edges, weighted by its stationary population. The weighted sum is converted to
a reduced free energy with

	F = -KT * ln(H)

Bins with no weight have no finite free energy and are reported as Unobserved
(+Inf) rather than left to propagate as NaN.
*/
package energy

import (
	"math"
	"sort"

	"github.com/kinase-msm/kinmsm/checks"
	"github.com/kinase-msm/kinmsm/msmerr"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KT approximates k_B*T at room temperature in kcal/mol.
const KT = 0.6

// Unobserved is the free energy of a bin without accumulated weight.
var Unobserved = math.Inf(1)

// IsUnobserved reports whether f is the unobserved-bin sentinel.
func IsUnobserved(f float64) bool { return math.IsInf(f, 1) }

// Histogram1D is a population-weighted histogram over one observable.
type Histogram1D struct {
	Edges      []float64
	PerState   [][]float64 // n_states × n_bins densities
	Overall    []float64
	FreeEnergy []float64
}

// Histogram2D is a population-weighted histogram over a pair of observables.
// Rows index x bins and columns index y bins.
type Histogram2D struct {
	XEdges, YEdges []float64
	PerState       []*mat.Dense
	Overall        *mat.Dense
	FreeEnergy     *mat.Dense
}

func validEdges(edges []float64) error {
	if !checks.IsIncreasing(edges) {
		return msmerr.New(msmerr.CodeDegenerateBinning, "bin edges must be at least two finite, strictly increasing values").
			With("n_edges", len(edges))
	}
	return nil
}

// bin returns the bin of v or -1 when v is outside edges. Bins are half-open
// except the last, which includes its right edge.
func bin(edges []float64, v float64) int {
	last := len(edges) - 1
	if math.IsNaN(v) || v < edges[0] || v > edges[last] {
		return -1
	}
	if v == edges[last] {
		return last - 1
	}
	i := sort.SearchFloat64s(edges, v)
	if edges[i] == v {
		return i
	}
	return i - 1
}

// Density is the normalized density histogram of obs over edges: counts
// divided by the number of in-range observations and the bin width, so it
// integrates to one. With no observation in range it is all zero.
func Density(obs, edges []float64) []float64 {
	out := make([]float64, len(edges)-1)
	var total float64
	for _, v := range obs {
		if b := bin(edges, v); b >= 0 {
			out[b]++
			total++
		}
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total * (edges[i+1] - edges[i])
	}
	return out
}

// Density2D is the two-dimensional analogue of Density. x and y must have
// the same length.
func Density2D(x, y, xEdges, yEdges []float64) (*mat.Dense, error) {
	if len(x) != len(y) {
		return nil, msmerr.DimensionMismatch(len(y), len(x))
	}
	nx, ny := len(xEdges)-1, len(yEdges)-1
	out := mat.NewDense(nx, ny, nil)
	var total float64
	for i := range x {
		bx, by := bin(xEdges, x[i]), bin(yEdges, y[i])
		if bx < 0 || by < 0 {
			continue
		}
		out.Set(bx, by, out.At(bx, by)+1)
		total++
	}
	if total == 0 {
		return out, nil
	}
	out.Apply(func(i, j int, v float64) float64 {
		return v / (total * (xEdges[i+1] - xEdges[i]) * (yEdges[j+1] - yEdges[j]))
	}, out)
	return out, nil
}

// Combine returns sum_i populations[i] * perState[i].
func Combine(populations []float64, perState [][]float64) ([]float64, error) {
	if len(perState) != len(populations) {
		return nil, msmerr.DimensionMismatch(len(perState), len(populations))
	}
	if len(perState) == 0 {
		return nil, msmerr.InsufficientData("states", 0, 1)
	}
	overall := make([]float64, len(perState[0]))
	for i, h := range perState {
		if len(h) != len(overall) {
			return nil, msmerr.DimensionMismatch(len(h), len(overall)).With("state", i)
		}
		floats.AddScaled(overall, populations[i], h)
	}
	return overall, nil
}

// FreeEnergy applies F = -KT*ln(h) elementwise. Non-positive weights map to
// Unobserved.
func FreeEnergy(h []float64) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = freeEnergy(v)
	}
	return out
}

func freeEnergy(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return Unobserved
	}
	f := -KT * math.Log(v)
	if f == 0 {
		return 0 // not -0
	}
	return f
}

func checkStates(nStates int, keys map[int][]float64) error {
	for s := range keys {
		if s < 0 || s >= nStates {
			return msmerr.DimensionMismatch(s+1, nStates).With("state", s)
		}
	}
	return nil
}

// OneDimHistogram builds the population-weighted histogram of obs, the
// observations of each state, over edges. States without observations
// contribute nothing; if no state has an observation inside edges the result
// is a DegenerateBinning error.
func OneDimHistogram(populations []float64, obs map[int][]float64, edges []float64) (*Histogram1D, error) {
	if err := validEdges(edges); err != nil {
		return nil, err
	}
	if err := checkStates(len(populations), obs); err != nil {
		return nil, err
	}
	h := &Histogram1D{
		Edges:    edges,
		PerState: make([][]float64, len(populations)),
	}
	empty := true
	for s := range populations {
		h.PerState[s] = Density(obs[s], edges)
		if floats.Sum(h.PerState[s]) > 0 {
			empty = false
		}
	}
	if empty {
		return nil, msmerr.DegenerateBinning(len(populations))
	}
	overall, err := Combine(populations, h.PerState)
	if err != nil {
		return nil, err
	}
	h.Overall = overall
	h.FreeEnergy = FreeEnergy(overall)
	return h, nil
}

// Reweight recombines the per-state densities with another population
// vector, as used for bootstrap estimates.
func (h *Histogram1D) Reweight(populations []float64) ([]float64, error) {
	overall, err := Combine(populations, h.PerState)
	if err != nil {
		return nil, err
	}
	return FreeEnergy(overall), nil
}

// Centers returns the bin midpoints.
func (h *Histogram1D) Centers() []float64 { return Centers(h.Edges) }

// TwoDimHistogram is OneDimHistogram over pairs (xObs[s][i], yObs[s][i]).
func TwoDimHistogram(populations []float64, xObs, yObs map[int][]float64, xEdges, yEdges []float64) (*Histogram2D, error) {
	if err := validEdges(xEdges); err != nil {
		return nil, err
	}
	if err := validEdges(yEdges); err != nil {
		return nil, err
	}
	if err := checkStates(len(populations), xObs); err != nil {
		return nil, err
	}
	if err := checkStates(len(populations), yObs); err != nil {
		return nil, err
	}

	nx, ny := len(xEdges)-1, len(yEdges)-1
	h := &Histogram2D{
		XEdges:   xEdges,
		YEdges:   yEdges,
		PerState: make([]*mat.Dense, len(populations)),
		Overall:  mat.NewDense(nx, ny, nil),
	}
	overall := h.Overall.RawMatrix().Data
	empty := true
	for s, p := range populations {
		if len(xObs[s]) != len(yObs[s]) {
			return nil, msmerr.DimensionMismatch(len(yObs[s]), len(xObs[s])).With("state", s)
		}
		d, err := Density2D(xObs[s], yObs[s], xEdges, yEdges)
		if err != nil {
			return nil, err
		}
		h.PerState[s] = d
		data := d.RawMatrix().Data
		if floats.Sum(data) > 0 {
			empty = false
		}
		floats.AddScaled(overall, p, data)
	}
	if empty {
		return nil, msmerr.DegenerateBinning(len(populations))
	}
	h.FreeEnergy = mat.NewDense(nx, ny, nil)
	h.FreeEnergy.Apply(func(_, _ int, v float64) float64 { return freeEnergy(v) }, h.Overall)
	return h, nil
}

// Centers returns the midpoints of consecutive edges.
func Centers(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	out := make([]float64, len(edges)-1)
	for i := range out {
		out[i] = (edges[i] + edges[i+1]) / 2
	}
	return out
}
