package energy_test

import (
	"errors"
	"math"
	"testing"

	"github.com/kinase-msm/kinmsm/energy"
	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestCombineScenario(t *testing.T) {
	overall, err := energy.Combine([]float64{0.5, 0.5}, [][]float64{{2, 0}, {0, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, overall)

	fe := energy.FreeEnergy(overall)
	assert.InDelta(t, 0, fe[0], 1e-12)
	assert.InDelta(t, -0.416, fe[1], 1e-3)
	assert.False(t, math.Signbit(fe[0]))

	_, err = energy.Combine([]float64{1}, [][]float64{{1}, {1}})
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch))
}

func TestDensity(t *testing.T) {
	edges := []float64{0, 1, 2}
	assert.Equal(t, []float64{0.5, 0.5}, energy.Density([]float64{0, 0.5, 1, 2}, edges))
	// out-of-range values do not count toward normalization
	assert.Equal(t, []float64{1, 0}, energy.Density([]float64{0.2, -1, 3, math.NaN()}, edges))
	assert.Equal(t, []float64{0, 0}, energy.Density(nil, edges))
	assert.Equal(t, []float64{0.25, 0.25}, energy.Density([]float64{0, 3.5}, []float64{0, 2, 4}))
}

var byState = map[int][]float64{0: {0, 1, 1.5}, 1: {2, 0.5}}

func TestOneDimHistogram(t *testing.T) {
	pops := []float64{0.5, 0.5}
	h, err := energy.OneDimHistogram(pops, byState, []float64{0, 1, 2})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1.0 / 3, 2.0 / 3}, h.PerState[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, h.PerState[1], 1e-12)
	assert.InDeltaSlice(t, []float64{5.0 / 12, 7.0 / 12}, h.Overall, 1e-12)
	assert.InDelta(t, -0.6*math.Log(5.0/12), h.FreeEnergy[0], 1e-12)
	assert.Equal(t, []float64{0.5, 1.5}, h.Centers())

	again, err := energy.OneDimHistogram(pops, byState, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, h, again)
}

func TestOverallIsWeightedSumOfStates(t *testing.T) {
	pops := []float64{0.2, 0.3, 0.5}
	obs := map[int][]float64{
		0: {0.1, 0.2, 0.9, 3.3},
		1: {1.1, 1.2, 2.5},
		2: {3.9, 0.4},
	}
	h, err := energy.OneDimHistogram(pops, obs, []float64{0, 1, 2, 3, 4})
	require.NoError(t, err)

	want := make([]float64, len(h.Overall))
	for s, p := range pops {
		floats.AddScaled(want, p, h.PerState[s])
	}
	assert.InDeltaSlice(t, want, h.Overall, 1e-12)
	assert.InDelta(t, 1, floats.Sum(h.Overall), 1e-12)
}

func TestUnobservedBins(t *testing.T) {
	h, err := energy.OneDimHistogram([]float64{1, 0}, map[int][]float64{0: {0.1}}, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, h.FreeEnergy[0])
	assert.True(t, energy.IsUnobserved(h.FreeEnergy[1]))
	for _, f := range h.FreeEnergy {
		assert.False(t, math.IsNaN(f))
	}
}

func TestOneDimHistogramErrors(t *testing.T) {
	pops := []float64{0.5, 0.5}

	_, err := energy.OneDimHistogram(pops, map[int][]float64{0: {5, 6}}, []float64{0, 1, 2})
	assert.True(t, errors.Is(err, msmerr.ErrDegenerateBinning), "got %v", err)

	_, err = energy.OneDimHistogram(pops, nil, []float64{0, 1, 2})
	assert.True(t, errors.Is(err, msmerr.ErrDegenerateBinning), "got %v", err)

	_, err = energy.OneDimHistogram(pops, byState, []float64{0, 0, 2})
	assert.True(t, errors.Is(err, msmerr.ErrDegenerateBinning), "got %v", err)

	_, err = energy.OneDimHistogram(pops, map[int][]float64{2: {1}}, []float64{0, 1, 2})
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch), "got %v", err)
}

func TestTwoDimHistogram(t *testing.T) {
	edges := []float64{0, 1, 2}
	h, err := energy.TwoDimHistogram([]float64{1},
		map[int][]float64{0: {0.5, 1.5}},
		map[int][]float64{0: {0.5, 0.5}},
		edges, edges)
	require.NoError(t, err)

	assert.Equal(t, 0.5, h.Overall.At(0, 0))
	assert.Equal(t, 0.5, h.Overall.At(1, 0))
	assert.Equal(t, 0.0, h.Overall.At(0, 1))
	assert.True(t, energy.IsUnobserved(h.FreeEnergy.At(0, 1)))
	assert.InDelta(t, -0.6*math.Log(0.5), h.SurfaceAt(0.5, 0.5), 1e-12)
	assert.True(t, energy.IsUnobserved(h.SurfaceAt(5, 0.5)))

	_, err = energy.TwoDimHistogram([]float64{1},
		map[int][]float64{0: {0.5, 1.5}},
		map[int][]float64{0: {0.5}},
		edges, edges)
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch), "got %v", err)
}

func testProtein() *project.Protein {
	return &project.Protein{
		Name: "abl",
		Tica: project.Coordinates{
			"run0": {{0, 10}, {1, 11}, {2, 12}},
			"run1": {{0.5, 20}, {1.5, 21}},
		},
		Assignments: project.Assignments{
			"run0": {0, 0, 1},
			"run1": {1, 0},
		},
		MSM: project.MSM{Populations: []float64{0.5, 0.5}},
	}
}

func TestOneDimTicFreeEnergy(t *testing.T) {
	prt := testProtein()
	rows, err := energy.OneDimTicFreeEnergy(prt, 0, energy.Bins{Count: 3}, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.5, rows[0].TicValue)
	assert.InDelta(t, -0.6*math.Log(5.0/12), rows[0].FreeEnergy, 1e-12)
	assert.Equal(t, "abl", rows[0].Protein)
	assert.Equal(t, energy.ModelMLE, rows[0].Model)
	assert.Equal(t, 1.5, rows[1].TicValue)

	_, err = energy.OneDimTicFreeEnergy(prt, 0, energy.Bins{Count: 3}, true)
	assert.True(t, errors.Is(err, msmerr.ErrConfiguration), "got %v", err)

	prt.MSM.Bootstrap = &project.Bootstrap{Mean: []float64{0.5, 0.5}, SEM: []float64{0.1, 0.3}}
	rows, err = energy.OneDimTicFreeEnergy(prt, 0, energy.Bins{Edges: [][]float64{{0, 1, 2}}}, true)
	require.NoError(t, err)
	require.Len(t, rows, 8)

	models := make(map[string][]energy.Row)
	for _, r := range rows {
		models[r.Model] = append(models[r.Model], r)
	}
	assert.Equal(t, models[energy.ModelMLE][0].FreeEnergy, models[energy.ModelMean][0].FreeEnergy)
	// lower populations are clipped at zero: 0.5-1.96*0.3 < 0
	h, err := energy.OneDimHistogram([]float64{0.5 - 1.96*0.1, 0}, byState, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, h.FreeEnergy[1], models[energy.ModelLower][1].FreeEnergy, 1e-12)
	assert.Less(t, models[energy.ModelUpper][0].FreeEnergy, models[energy.ModelMean][0].FreeEnergy)
}

func TestTicHistogramArity(t *testing.T) {
	prt := testProtein()
	_, err := energy.TicHistogram(prt, []int{0, 1, 1}, energy.Bins{})
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch))

	_, err = energy.TicHistogram(prt, []int{0}, energy.Bins{Count: 3, Edges: [][]float64{{0, 1}}})
	assert.True(t, errors.Is(err, msmerr.ErrConfiguration))

	res, err := energy.TicHistogram(prt, []int{0, 1}, energy.Bins{Count: 3})
	require.NoError(t, err)
	require.NotNil(t, res.TwoDim)
	assert.Nil(t, res.OneDim)
	assert.Equal(t, [][]float64{{0.5, 1.5}, {12.75, 18.25}}, res.Centers)

	surface, err := energy.TwoDimTicFreeEnergy(prt, [2]int{0, 1}, energy.Bins{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, res.TwoDim.FreeEnergy, surface.FreeEnergy)
}

func TestEdges(t *testing.T) {
	edges, err := energy.LinearEdges(map[string][]float64{"a": {3, 1}, "b": {2, 5}, "c": nil}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, edges)

	_, err = energy.LinearEdges(map[string][]float64{"a": {3}}, 5)
	assert.True(t, errors.Is(err, msmerr.ErrDegenerateBinning))

	_, err = energy.LinearEdges(map[string][]float64{"a": {1, 2}}, 1)
	assert.True(t, errors.Is(err, msmerr.ErrInsufficientData))

	other := testProtein()
	other.Tica = project.Coordinates{"run0": {{-2, 0}, {1, 30}, {1, 0}}, "run1": {{1, 0}, {1, 0}}}
	bounds, err := energy.GlobalTicBoundaries([]*project.Protein{testProtein(), other}, []int{0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, 0, 2}, bounds[0])
	assert.Equal(t, []float64{0, 15, 30}, bounds[1])
}

func TestObservableFreeEnergy(t *testing.T) {
	prt := testProtein()
	obs := map[string][]float64{"run0": {0, 1, 2}, "run1": {0.5, 1.5}}
	rows, err := energy.OneDimFreeEnergy(prt, obs, energy.Bins{Count: 3})
	require.NoError(t, err)

	want, err := energy.OneDimTicFreeEnergy(prt, 0, energy.Bins{Count: 3}, false)
	require.NoError(t, err)
	assert.Equal(t, want, rows)

	surface, err := energy.TwoDimFreeEnergy(prt, obs, obs, energy.Bins{Count: 3})
	require.NoError(t, err)
	assert.True(t, energy.IsUnobserved(surface.FreeEnergy.At(0, 1)))

	_, err = energy.OneDimFreeEnergy(prt, map[string][]float64{"run0": {1}}, energy.Bins{Edges: [][]float64{{0, 1, 2}}})
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch))
}
