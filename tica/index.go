/*
Package tica samples representative structures along tICA coordinates.

An Index flattens a ragged per-trajectory coordinate set into one k-d tree
and maps hits back to (trajectory, frame) pairs. Path sampling walks a chosen
tic with a continuity tie-break in the full coordinate space; region sampling
returns the nearest frames to a point; state sampling draws frames at
equilibrium from the MSM populations.
*/
package tica

import (
	"math"
	"sort"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// FrameRef locates one frame of one trajectory.
type FrameRef struct {
	Traj  string
	Frame int
}

// Neighbor is one query hit. Distance is Euclidean over the indexed dims.
type Neighbor struct {
	Distance float64
	FrameRef
}

// Index is an immutable nearest-neighbor index over a subset of the
// dimensions of a coordinate dataset. It is safe for concurrent queries.
type Index struct {
	dims   []int
	coords []float64 // len(refs)*len(dims), row-major
	refs   []FrameRef
	tree   *kdtree.Tree
}

// NewIndex builds an Index over dims of data. Trajectories are flattened in
// sorted id order, frames in file order.
func NewIndex(data project.Coordinates, dims []int) (*Index, error) {
	if len(dims) == 0 {
		return nil, msmerr.DimensionMismatch(0, 1)
	}
	n := data.Frames()
	idx := &Index{
		dims:   append([]int(nil), dims...),
		coords: make([]float64, 0, n*len(dims)),
		refs:   make([]FrameRef, 0, n),
	}
	for _, traj := range data.Trajectories() {
		for f, row := range data[traj] {
			for _, d := range dims {
				if d < 0 || d >= len(row) {
					return nil, msmerr.DimensionMismatch(d+1, len(row)).With("traj", traj).With("frame", f)
				}
				idx.coords = append(idx.coords, row[d])
			}
			idx.refs = append(idx.refs, FrameRef{Traj: traj, Frame: f})
		}
	}

	pts := make(points, len(idx.refs))
	for i := range pts {
		pts[i] = point{id: i, pos: idx.Point(i)}
	}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx, nil
}

// Len is the number of indexed frames.
func (idx *Index) Len() int { return len(idx.refs) }

// Dims returns the dataset dimensions the index was built over.
func (idx *Index) Dims() []int { return append([]int(nil), idx.dims...) }

// Ref maps a flat index back to its trajectory frame.
func (idx *Index) Ref(i int) FrameRef { return idx.refs[i] }

// Point returns the indexed coordinates of flat index i. The slice aliases
// the index and must not be modified.
func (idx *Index) Point(i int) []float64 {
	w := len(idx.dims)
	return idx.coords[i*w : (i+1)*w : (i+1)*w]
}

// Query returns the k frames nearest to q, nearest first. Equal distances
// are ordered by flat index.
func (idx *Index) Query(q []float64, k int) ([]Neighbor, error) {
	if len(q) != len(idx.dims) {
		return nil, msmerr.DimensionMismatch(len(q), len(idx.dims))
	}
	if k < 1 || k > idx.Len() {
		return nil, msmerr.InsufficientData("neighbors", idx.Len(), k)
	}

	keep := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keep, point{id: -1, pos: q})

	hits := make([]kdtree.ComparableDist, 0, k)
	for _, c := range keep.Heap {
		if c.Comparable != nil {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Dist != hits[j].Dist {
			return hits[i].Dist < hits[j].Dist
		}
		return hits[i].Comparable.(point).id < hits[j].Comparable.(point).id
	})

	out := make([]Neighbor, len(hits))
	for i, h := range hits {
		out[i] = Neighbor{Distance: math.Sqrt(h.Dist), FrameRef: idx.refs[h.Comparable.(point).id]}
	}
	return out, nil
}

// point is a kdtree.Comparable that remembers its flat index.
type point struct {
	id  int
	pos []float64
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.pos[d] - c.(point).pos[d]
}

func (p point) Dims() int { return len(p.pos) }

// Distance is the squared Euclidean distance, as kdtree expects.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	var sum float64
	for i, v := range p.pos {
		d := v - q.pos[i]
		sum += d * d
	}
	return sum
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median partitioning.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.points[i].pos[p.dim] < p.points[j].pos[p.dim] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
