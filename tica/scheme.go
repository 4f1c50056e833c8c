package tica

import (
	"math/rand"
	"sort"

	"github.com/kinase-msm/kinmsm/msmerr"
	"gonum.org/v1/gonum/floats"
)

// Scheme selects how target values along a tic are chosen.
type Scheme string

const (
	// Linear spaces targets evenly between the global min and max.
	Linear Scheme = "linear"
	// Random draws observed values without replacement, sorted ascending.
	Random Scheme = "random"
	// Edge takes the n/2 lowest and n/2 highest observed values.
	Edge Scheme = "edge"
)

// ParseScheme validates a scheme name.
func ParseScheme(name string) (Scheme, error) {
	switch s := Scheme(name); s {
	case Linear, Random, Edge:
		return s, nil
	}
	return "", msmerr.InvalidScheme(name)
}

// Targets computes n target values from the observed values of one
// coordinate. values is not modified. rng is only consulted by Random; a nil
// rng draws from a source seeded with DefaultSeed.
func Targets(values []float64, n int, scheme Scheme, rng *rand.Rand) ([]float64, error) {
	if _, err := ParseScheme(string(scheme)); err != nil {
		return nil, err
	}
	if n < 1 || n > len(values) {
		return nil, msmerr.InsufficientData("frames", len(values), n)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	switch scheme {
	case Linear:
		if n == 1 {
			return []float64{sorted[0]}, nil
		}
		return floats.Span(make([]float64, n), sorted[0], sorted[len(sorted)-1]), nil

	case Random:
		if rng == nil {
			rng = rand.New(rand.NewSource(DefaultSeed))
		}
		picked := make([]float64, n)
		for i, j := range rng.Perm(len(sorted))[:n] {
			picked[i] = sorted[j]
		}
		sort.Float64s(picked)
		return picked, nil

	default: // Edge
		cut := n / 2
		if cut == 0 {
			return nil, msmerr.InsufficientData("frames for edge sampling", n, 2)
		}
		out := make([]float64, 0, 2*cut)
		out = append(out, sorted[:cut]...)
		return append(out, sorted[len(sorted)-cut:]...), nil
	}
}
