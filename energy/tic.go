package energy

import (
	"fmt"
	"math"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"gonum.org/v1/gonum/floats"
)

// DefaultEdges is the number of bin edges used when a caller gives neither
// edges nor a count.
const DefaultEdges = 100

// Bins selects the bin edges of each histogram axis. Edges, when set, gives
// them explicitly, one slice per axis. Otherwise Count linearly spaced edges
// span the observed range of each axis. Setting both is an error.
type Bins struct {
	Edges [][]float64
	Count int
}

func (b Bins) count() int {
	if b.Count == 0 {
		return DefaultEdges
	}
	return b.Count
}

func (b Bins) explicit(axes int) ([][]float64, bool, error) {
	if b.Edges == nil {
		return nil, false, nil
	}
	if b.Count != 0 {
		return nil, false, msmerr.Configuration("bins: set edges or a count, not both")
	}
	if len(b.Edges) != axes {
		return nil, false, msmerr.DimensionMismatch(len(b.Edges), axes).With("what", "bin edge axes")
	}
	return b.Edges, true, nil
}

func span(lo, hi float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, msmerr.InsufficientData("bin edges", n, 2)
	}
	if !(hi > lo) {
		return nil, msmerr.New(msmerr.CodeDegenerateBinning, "observed range [%g, %g] is empty", lo, hi)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// LinearEdges returns n edges evenly spaced between the smallest and largest
// value of obs.
func LinearEdges(obs map[string][]float64, n int) ([]float64, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	var seen int
	for _, values := range obs {
		if len(values) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(values))
		hi = math.Max(hi, floats.Max(values))
		seen += len(values)
	}
	if seen == 0 {
		return nil, msmerr.InsufficientData("observations", 0, 1)
	}
	return span(lo, hi, n)
}

// GlobalTicBoundaries returns, for each tic, n edges evenly spaced between the
// minimum and maximum of that tic over all proteins.
func GlobalTicBoundaries(proteins []*project.Protein, tics []int, n int) (map[int][]float64, error) {
	if len(proteins) == 0 {
		return nil, msmerr.InsufficientData("proteins", 0, 1)
	}
	out := make(map[int][]float64, len(tics))
	for _, tic := range tics {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, prt := range proteins {
			l, h, err := prt.TicRange(tic)
			if err != nil {
				return nil, err
			}
			lo, hi = math.Min(lo, l), math.Max(hi, h)
		}
		edges, err := span(lo, hi, n)
		if err != nil {
			return nil, fmt.Errorf("tic %d: %w", tic, err)
		}
		out[tic] = edges
	}
	return out, nil
}

func ticEdges(prt *project.Protein, tics []int, bins Bins) ([][]float64, error) {
	edges, ok, err := bins.explicit(len(tics))
	if err != nil || ok {
		return edges, err
	}
	bounds, err := GlobalTicBoundaries([]*project.Protein{prt}, tics, bins.count())
	if err != nil {
		return nil, err
	}
	edges = make([][]float64, len(tics))
	for i, tic := range tics {
		edges[i] = bounds[tic]
	}
	return edges, nil
}

func obsEdges(axes []map[string][]float64, bins Bins) ([][]float64, error) {
	edges, ok, err := bins.explicit(len(axes))
	if err != nil || ok {
		return edges, err
	}
	edges = make([][]float64, len(axes))
	for i, obs := range axes {
		if edges[i], err = LinearEdges(obs, bins.count()); err != nil {
			return nil, err
		}
	}
	return edges, nil
}

// TicResult is the histogram of a protein over one or two tics. Exactly one
// of OneDim and TwoDim is set.
type TicResult struct {
	Tics    []int
	Centers [][]float64
	OneDim  *Histogram1D
	TwoDim  *Histogram2D
}

// TicHistogram histograms prt along one or two tics, weighting states by the
// MSM populations.
func TicHistogram(prt *project.Protein, tics []int, bins Bins) (*TicResult, error) {
	if len(tics) != 1 && len(tics) != 2 {
		return nil, msmerr.DimensionMismatch(len(tics), 2).With("what", "tics")
	}
	edges, err := ticEdges(prt, tics, bins)
	if err != nil {
		return nil, err
	}
	res := &TicResult{Tics: tics, Centers: make([][]float64, len(tics))}
	byState := make([]map[int][]float64, len(tics))
	for i, tic := range tics {
		res.Centers[i] = Centers(edges[i])
		if byState[i], err = prt.TicDict(tic); err != nil {
			return nil, err
		}
	}

	if len(tics) == 1 {
		res.OneDim, err = OneDimHistogram(prt.MSM.Populations, byState[0], edges[0])
	} else {
		res.TwoDim, err = TwoDimHistogram(prt.MSM.Populations, byState[0], byState[1], edges[0], edges[1])
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Model labels of free-energy rows.
const (
	ModelMLE   = "mle"
	ModelMean  = "mean"
	ModelLower = "lower"
	ModelUpper = "upper"
)

// Row is one bin of a one-dimensional free-energy table.
type Row struct {
	TicValue   float64
	FreeEnergy float64
	Protein    string
	Model      string
}

func rows(protein, model string, centers, fe []float64) []Row {
	out := make([]Row, len(centers))
	for i, c := range centers {
		out[i] = Row{TicValue: c, FreeEnergy: fe[i], Protein: protein, Model: model}
	}
	return out
}

// OneDimTicFreeEnergy returns the MLE free energy of prt along tic, one row
// per bin center. With errorbars the bootstrap mean, lower and upper rows
// follow.
func OneDimTicFreeEnergy(prt *project.Protein, tic int, bins Bins, errorbars bool) ([]Row, error) {
	res, err := TicHistogram(prt, []int{tic}, bins)
	if err != nil {
		return nil, err
	}
	out := rows(prt.Name, ModelMLE, res.Centers[0], res.OneDim.FreeEnergy)
	if !errorbars {
		return out, nil
	}
	boot, err := bootstrapRows(prt, res.OneDim)
	if err != nil {
		return nil, err
	}
	return append(out, boot...), nil
}

// BootstrapOneDimTicFreeEnergy returns the free energy of prt along tic
// recomputed with the bootstrap mean populations and with mean ∓ 1.96·sem.
// Lower-bound populations are clipped at zero.
func BootstrapOneDimTicFreeEnergy(prt *project.Protein, tic int, bins Bins) ([]Row, error) {
	res, err := TicHistogram(prt, []int{tic}, bins)
	if err != nil {
		return nil, err
	}
	return bootstrapRows(prt, res.OneDim)
}

func bootstrapRows(prt *project.Protein, h *Histogram1D) ([]Row, error) {
	b := prt.MSM.Bootstrap
	if b == nil || len(b.Mean) == 0 {
		return nil, msmerr.Configuration("protein has no bootstrap MSM").With("protein", prt.Name)
	}
	if len(b.Mean) != prt.NStates() || len(b.SEM) != prt.NStates() {
		return nil, msmerr.DimensionMismatch(len(b.Mean), prt.NStates()).
			With("protein", prt.Name).
			With("what", "bootstrap populations")
	}
	lower := make([]float64, len(b.Mean))
	upper := make([]float64, len(b.Mean))
	for i, m := range b.Mean {
		lower[i] = math.Max(0, m-1.96*b.SEM[i])
		upper[i] = m + 1.96*b.SEM[i]
	}

	centers := h.Centers()
	var out []Row
	for _, est := range []struct {
		model string
		pops  []float64
	}{{ModelMean, b.Mean}, {ModelLower, lower}, {ModelUpper, upper}} {
		fe, err := h.Reweight(est.pops)
		if err != nil {
			return nil, err
		}
		out = append(out, rows(prt.Name, est.model, centers, fe)...)
	}
	return out, nil
}

// TwoDimTicFreeEnergy returns the free-energy surface of prt over a pair of
// tics.
func TwoDimTicFreeEnergy(prt *project.Protein, tics [2]int, bins Bins) (*Histogram2D, error) {
	res, err := TicHistogram(prt, tics[:], bins)
	if err != nil {
		return nil, err
	}
	return res.TwoDim, nil
}

// OneDimFreeEnergy returns MLE free-energy rows for an arbitrary
// per-trajectory observable, mapped to states through prt's assignments.
func OneDimFreeEnergy(prt *project.Protein, obs map[string][]float64, bins Bins) ([]Row, error) {
	edges, err := obsEdges([]map[string][]float64{obs}, bins)
	if err != nil {
		return nil, err
	}
	byState, err := prt.MapObsToState(obs)
	if err != nil {
		return nil, err
	}
	h, err := OneDimHistogram(prt.MSM.Populations, byState, edges[0])
	if err != nil {
		return nil, err
	}
	return rows(prt.Name, ModelMLE, h.Centers(), h.FreeEnergy), nil
}

// TwoDimFreeEnergy is OneDimFreeEnergy over a pair of observables.
func TwoDimFreeEnergy(prt *project.Protein, xObs, yObs map[string][]float64, bins Bins) (*Histogram2D, error) {
	edges, err := obsEdges([]map[string][]float64{xObs, yObs}, bins)
	if err != nil {
		return nil, err
	}
	xs, err := prt.MapObsToState(xObs)
	if err != nil {
		return nil, err
	}
	ys, err := prt.MapObsToState(yObs)
	if err != nil {
		return nil, err
	}
	return TwoDimHistogram(prt.MSM.Populations, xs, ys, edges[0], edges[1])
}

// SurfaceAt returns the free energy of the bin containing (x, y), or
// Unobserved when the point is outside the surface.
func (h *Histogram2D) SurfaceAt(x, y float64) float64 {
	bx, by := bin(h.XEdges, x), bin(h.YEdges, y)
	if bx < 0 || by < 0 {
		return Unobserved
	}
	return h.FreeEnergy.At(bx, by)
}
