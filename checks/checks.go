/*
Package checks provides utilities to check for certain properties of the
per-trajectory datasets and MSM vectors consumed by the sampling and
free-energy packages.
*/
package checks

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// PopulationTolerance is the slack allowed when checking that a stationary
// distribution sums to one.
const PopulationTolerance = 1e-6

// Dims returns the shared row width of a ragged per-trajectory dataset and
// whether every row of every trajectory has that width. An empty dataset,
// or one holding only empty trajectories, reports (0, true).
func Dims(data map[string][][]float64) (int, bool) {
	dims := -1
	for _, rows := range data {
		for _, row := range rows {
			if dims == -1 {
				dims = len(row)
				continue
			}
			if len(row) != dims {
				return 0, false
			}
		}
	}
	if dims == -1 {
		return 0, true
	}
	return dims, true
}

// IsPopulationVector reports whether p is non-negative and sums to one within
// PopulationTolerance.
func IsPopulationVector(p []float64) bool {
	if len(p) == 0 {
		return false
	}
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return false
		}
	}
	return scalar.EqualWithinAbs(floats.Sum(p), 1, PopulationTolerance)
}

// AssignmentsMatch reports whether every trajectory in coords has a label
// array of the same length, and no labels exist for unknown trajectories.
func AssignmentsMatch(coords map[string][][]float64, labels map[string][]int) bool {
	if len(coords) != len(labels) {
		return false
	}
	for traj, rows := range coords {
		l, ok := labels[traj]
		if !ok || len(l) != len(rows) {
			return false
		}
	}
	return true
}

// LabelsInRange reports whether every label lies in [0, nStates).
func LabelsInRange(labels map[string][]int, nStates int) bool {
	for _, l := range labels {
		for _, s := range l {
			if s < 0 || s >= nStates {
				return false
			}
		}
	}
	return true
}

// IsIncreasing reports whether edges is a valid bin-edge array: at least two
// finite values, strictly increasing.
func IsIncreasing(edges []float64) bool {
	if len(edges) < 2 {
		return false
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return false
		}
		if i > 0 && e <= edges[i-1] {
			return false
		}
	}
	return true
}
