package tica_test

import (
	"errors"
	"math"
	"testing"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/kinase-msm/kinmsm/tica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func achieved(steps []tica.Step) []float64 {
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = s.Achieved
	}
	return out
}

func TestPathFollowsLinearTargets(t *testing.T) {
	s, err := tica.NewPathSampler(ragged, 0)
	require.NoError(t, err)

	steps, err := s.Run(3, tica.Linear, nil)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	for i, st := range steps {
		assert.Equal(t, i, st.Index)
		assert.Equal(t, float64(i), st.Requested)
		assert.Equal(t, tica.FrameRef{Traj: "run0", Frame: i}, st.FrameRef)
	}
	assert.Equal(t, []float64{0, 1, 2}, achieved(steps))
}

func TestPathTieBreakPrefersPreviousFrame(t *testing.T) {
	s, err := tica.NewPathSampler(ragged, 0)
	require.NoError(t, err)

	steps, err := s.Sample([]float64{0, 0.9, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1.5}, achieved(steps))
	assert.Equal(t, "run1", steps[2].Traj)
}

func TestPathFallsBackToNearestAlongTic(t *testing.T) {
	s, err := tica.NewPathSampler(ragged, 0)
	require.NoError(t, err)

	// nothing lies within half a gap of 10
	steps, err := s.Sample([]float64{0, 10})
	require.NoError(t, err)
	assert.Equal(t, tica.FrameRef{Traj: "run0", Frame: 2}, steps[1].FrameRef)
}

func TestPathEdgeStaysAtExtremes(t *testing.T) {
	const n = 150
	data := project.Coordinates{"ramp": nil}
	for v := 0; v < n; v++ {
		data["ramp"] = append(data["ramp"], []float64{float64(v), math.Sin(float64(v))})
	}
	s, err := tica.NewPathSampler(data, 0)
	require.NoError(t, err)

	for _, frames := range []int{4, 6} {
		steps, err := s.Run(frames, tica.Edge, nil)
		require.NoError(t, err)
		require.Len(t, steps, frames)
		for _, st := range steps {
			assert.Equal(t, st.Requested, st.Achieved, "step %d", st.Index)
			low := st.Achieved < float64(frames/2)
			high := st.Achieved >= float64(n-frames/2)
			assert.True(t, low || high, "step %d landed in the interior at %g", st.Index, st.Achieved)
		}
	}
}

func TestPathStaysInOneBasin(t *testing.T) {
	// Two copies of the same tic-0 walk, separated along tic 1.
	data := project.Coordinates{"a": nil, "b": nil}
	for v := 0; v < 5; v++ {
		data["a"] = append(data["a"], []float64{float64(v), 0})
		data["b"] = append(data["b"], []float64{float64(v) + 0.01, 10})
	}
	s, err := tica.NewPathSampler(data, 0)
	require.NoError(t, err)

	steps, err := s.Run(5, tica.Linear, nil)
	require.NoError(t, err)
	for _, st := range steps {
		assert.Equal(t, "a", st.Traj, "step %d jumped basins", st.Index)
	}

	// without the tie-break the last target lands exactly on b
	s.SetCandidates(1)
	steps, err = s.Run(5, tica.Linear, nil)
	require.NoError(t, err)
	assert.Equal(t, tica.FrameRef{Traj: "b", Frame: 4}, steps[4].FrameRef)
}

func TestPathRequestedValuesSpanTheTic(t *testing.T) {
	s, err := tica.NewPathSampler(ragged, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Tic())
	assert.ElementsMatch(t, []float64{0, 1, 2, 0.5, 1.5}, s.Values())

	steps, err := s.Run(4, tica.Linear, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, steps[0].Requested)
	assert.Equal(t, 2.0, steps[3].Requested)
	for i := 1; i < len(steps); i++ {
		assert.LessOrEqual(t, steps[i-1].Requested, steps[i].Requested)
	}
}

func TestPathRejectsTooManyFrames(t *testing.T) {
	s, err := tica.NewPathSampler(ragged, 0)
	require.NoError(t, err)

	_, err = s.Run(6, tica.Linear, nil)
	assert.True(t, errors.Is(err, msmerr.ErrInsufficientData), "got %v", err)

	_, err = s.Sample(make([]float64, 6))
	assert.True(t, errors.Is(err, msmerr.ErrInsufficientData), "got %v", err)

	_, err = tica.NewPathSampler(ragged, 3)
	assert.True(t, errors.Is(err, msmerr.ErrDimensionMismatch), "got %v", err)
}
