package tica_test

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/kinase-msm/kinmsm/tica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ragged = project.Coordinates{
	"run0": {{0}, {1}, {2}},
	"run1": {{0.5}, {1.5}},
}

func TestIndexQueryOrdersByDistance(t *testing.T) {
	idx, err := tica.NewIndex(ragged, []int{0})
	require.NoError(t, err)
	require.Equal(t, 5, idx.Len())

	hits, err := idx.Query([]float64{1.2}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	want := []tica.FrameRef{{Traj: "run0", Frame: 1}, {Traj: "run1", Frame: 1}, {Traj: "run1", Frame: 0}}
	for i, h := range hits {
		assert.Equal(t, want[i], h.FrameRef)
	}
	assert.InDelta(t, 0.2, hits[0].Distance, 1e-12)
	assert.InDelta(t, 0.3, hits[1].Distance, 1e-12)
	assert.InDelta(t, 0.7, hits[2].Distance, 1e-12)
}

func TestIndexRefsCoverEveryFrameOnce(t *testing.T) {
	idx, err := tica.NewIndex(ragged, []int{0})
	require.NoError(t, err)

	seen := make(map[tica.FrameRef]bool)
	for i := 0; i < idx.Len(); i++ {
		r := idx.Ref(i)
		assert.False(t, seen[r], "duplicate ref %v", r)
		seen[r] = true
		assert.Equal(t, ragged[r.Traj][r.Frame][0], idx.Point(i)[0])
	}
	assert.Len(t, seen, ragged.Frames())
}

func TestIndexQueryErrors(t *testing.T) {
	idx, err := tica.NewIndex(ragged, []int{0})
	require.NoError(t, err)

	_, err = idx.Query([]float64{1, 2}, 1)
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch), "got %v", err)

	_, err = idx.Query([]float64{1}, 6)
	assert.True(t, errors.Is(err, msmerr.ErrInsufficientData), "got %v", err)

	_, err = idx.Query([]float64{1}, 0)
	assert.True(t, errors.Is(err, msmerr.ErrInsufficientData), "got %v", err)

	_, err = tica.NewIndex(ragged, []int{1})
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch), "got %v", err)

	_, err = tica.NewIndex(ragged, nil)
	assert.Error(t, err)
}

func randomCoordinates(rng *rand.Rand, trajs, frames, dims int) project.Coordinates {
	data := make(project.Coordinates)
	for i := 0; i < trajs; i++ {
		rows := make([][]float64, frames)
		for f := range rows {
			rows[f] = make([]float64, dims)
			for d := range rows[f] {
				rows[f][d] = rng.NormFloat64()
			}
		}
		data[string(rune('a'+i))] = rows
	}
	return data
}

func TestIndexMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := randomCoordinates(rng, 4, 50, 3)
	idx, err := tica.NewIndex(data, []int{0, 1, 2})
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		q := []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		hits, err := idx.Query(q, 8)
		require.NoError(t, err)

		var all []float64
		for _, rows := range data {
			for _, row := range rows {
				var sum float64
				for d, v := range row {
					sum += (v - q[d]) * (v - q[d])
				}
				all = append(all, math.Sqrt(sum))
			}
		}
		sort.Float64s(all)
		for i, h := range hits {
			assert.InDelta(t, all[i], h.Distance, 1e-9)
		}
	}
}

func TestIndexConcurrentQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := randomCoordinates(rng, 3, 40, 2)
	idx, err := tica.NewIndex(data, []int{0, 1})
	require.NoError(t, err)

	queries := make([][]float64, 32)
	want := make([][]tica.Neighbor, len(queries))
	for i := range queries {
		queries[i] = []float64{rng.NormFloat64(), rng.NormFloat64()}
		want[i], err = idx.Query(queries[i], 5)
		require.NoError(t, err)
	}

	got := make([][]tica.Neighbor, len(queries))
	var wg sync.WaitGroup
	for i := range queries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = idx.Query(queries[i], 5)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, want, got)
}
