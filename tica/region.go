package tica

import (
	"math/rand"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/mroth/weightedrand"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// populationScale converts stationary populations to the integer weights
// weightedrand draws with.
const populationScale = 1e9

// RegionPoint expands a sparse tic -> value map to a full nTics point;
// unspecified tics are zero.
func RegionPoint(region map[int]float64, nTics int) ([]float64, error) {
	p := make([]float64, nTics)
	for tic, v := range region {
		if tic < 0 || tic >= nTics {
			return nil, msmerr.DimensionMismatch(tic+1, nTics).With("tic", tic)
		}
		p[tic] = v
	}
	return p, nil
}

// NearestFrames returns the k frames of data nearest to region in the full
// tic space, nearest first.
func NearestFrames(data project.Coordinates, nTics int, region map[int]float64, k int) ([]Neighbor, error) {
	q, err := RegionPoint(region, nTics)
	if err != nil {
		return nil, err
	}
	dims := make([]int, nTics)
	for i := range dims {
		dims[i] = i
	}
	idx, err := NewIndex(data, dims)
	if err != nil {
		return nil, err
	}
	return idx.Query(q, k)
}

// EquilibriumFrames draws n frames at equilibrium: a state with probability
// proportional to its population, then a uniformly chosen frame of it.
// States without frames cannot be drawn.
func EquilibriumFrames(assignments project.Assignments, populations []float64, n int, rng *rand.Rand) ([]FrameRef, error) {
	if n < 1 {
		return nil, msmerr.InsufficientData("frames", n, 1)
	}
	members := make(map[int][]FrameRef)
	trajs := maps.Keys(assignments)
	slices.Sort(trajs)
	for _, traj := range trajs {
		for f, s := range assignments[traj] {
			members[s] = append(members[s], FrameRef{Traj: traj, Frame: f})
		}
	}

	var choices []weightedrand.Choice
	for s, p := range populations {
		w := uint(p * populationScale)
		if w == 0 || len(members[s]) == 0 {
			continue
		}
		choices = append(choices, weightedrand.NewChoice(s, w))
	}
	if len(choices) == 0 {
		return nil, msmerr.InsufficientData("populated states", 0, 1)
	}
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, err
	}

	out := make([]FrameRef, n)
	for i := range out {
		frames := members[chooser.PickSource(rng).(int)]
		out[i] = frames[rng.Intn(len(frames))]
	}
	return out, nil
}
