package tica

import (
	"math"
	"math/rand"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"gonum.org/v1/gonum/floats"
)

// DefaultCandidates is how many frames nearest to each target along the tic
// compete in the full-space continuity tie-break.
const DefaultCandidates = 100

// Step is one sampled frame of a path.
type Step struct {
	Index     int
	Requested float64
	Achieved  float64
	FrameRef
}

// PathSampler traces a structurally continuous path along one tic.
type PathSampler struct {
	data       project.Coordinates
	tic        int
	index      *Index
	candidates int
}

// NewPathSampler indexes data along tic.
func NewPathSampler(data project.Coordinates, tic int) (*PathSampler, error) {
	idx, err := NewIndex(data, []int{tic})
	if err != nil {
		return nil, err
	}
	return &PathSampler{
		data:       data,
		tic:        tic,
		index:      idx,
		candidates: DefaultCandidates,
	}, nil
}

// SetCandidates changes the size of the tie-break pool. Values below 1
// restore DefaultCandidates.
func (s *PathSampler) SetCandidates(k int) {
	if k < 1 {
		k = DefaultCandidates
	}
	s.candidates = k
}

// Tic is the coordinate the sampler walks.
func (s *PathSampler) Tic() int { return s.tic }

// Values returns the tic value of every indexed frame.
func (s *PathSampler) Values() []float64 {
	out := make([]float64, s.index.Len())
	for i := range out {
		out[i] = s.index.Point(i)[0]
	}
	return out
}

// Run computes targets with scheme and samples the path through them.
func (s *PathSampler) Run(n int, scheme Scheme, rng *rand.Rand) ([]Step, error) {
	targets, err := Targets(s.Values(), n, scheme, rng)
	if err != nil {
		return nil, err
	}
	return s.Sample(targets)
}

// Sample picks one frame per target. The first frame is the nearest along
// the tic. Every later frame is chosen among the nearest candidates along the
// tic that lie strictly within half the gap to the neighboring targets: of
// those, the one closest in the full coordinate space to the previous pick
// wins. With no candidate inside that window the nearest frame along the tic
// is taken.
func (s *PathSampler) Sample(targets []float64) ([]Step, error) {
	if len(targets) > s.index.Len() {
		return nil, msmerr.InsufficientData("frames", s.index.Len(), len(targets))
	}
	k := s.candidates
	if k > s.index.Len() {
		k = s.index.Len()
	}

	steps := make([]Step, 0, len(targets))
	var prev []float64
	for i, target := range targets {
		var (
			pick FrameRef
			err  error
		)
		if i == 0 {
			pick, err = s.nearest(target)
		} else {
			pick, err = s.continuing(target, window(targets, i), prev, k)
		}
		if err != nil {
			return nil, err
		}
		prev = s.data[pick.Traj][pick.Frame]
		steps = append(steps, Step{
			Index:     i,
			Requested: target,
			Achieved:  prev[s.tic],
			FrameRef:  pick,
		})
	}
	return steps, nil
}

// window is half the smallest gap between targets[i] and its neighbors.
func window(targets []float64, i int) float64 {
	w := math.Inf(1)
	if i > 0 {
		w = math.Abs(targets[i] - targets[i-1])
	}
	if i+1 < len(targets) {
		w = math.Min(w, math.Abs(targets[i+1]-targets[i]))
	}
	return w / 2
}

func (s *PathSampler) nearest(target float64) (FrameRef, error) {
	hits, err := s.index.Query([]float64{target}, 1)
	if err != nil {
		return FrameRef{}, err
	}
	return hits[0].FrameRef, nil
}

func (s *PathSampler) continuing(target, win float64, prev []float64, k int) (FrameRef, error) {
	hits, err := s.index.Query([]float64{target}, k)
	if err != nil {
		return FrameRef{}, err
	}
	best, bestDist := 0, math.Inf(1)
	for i, h := range hits {
		x := s.data[h.Traj][h.Frame]
		if math.Abs(x[s.tic]-target) >= win {
			continue
		}
		d := floats.Distance(x, prev, 2)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return hits[best].FrameRef, nil
}
