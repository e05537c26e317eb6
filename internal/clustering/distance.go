package clustering

import (
	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/floats"
)

// Distance is the Euclidean distance between two points of equal dimension.
func Distance(a, b clusters.Coordinates) float64 {
	return floats.Distance(a, b, 2)
}

// Nearest returns the index of the centroid closest to point and its
// distance. Ties resolve to the lowest index. Nearest returns -1 when there
// are no centroids.
func Nearest(point clusters.Coordinates, centroids []clusters.Coordinates) (int, float64) {
	best, bestDist := -1, 0.0
	for i, c := range centroids {
		d := Distance(point, c)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Assign maps every point to its nearest centroid.
func Assign(points, centroids []clusters.Coordinates) []int {
	assignments := make([]int, len(points))
	for i, p := range points {
		assignments[i], _ = Nearest(p, centroids)
	}
	return assignments
}

// Sizes counts the members of each of k clusters.
func Sizes(assignments []int, k int) []int {
	sizes := make([]int, k)
	for _, a := range assignments {
		if a >= 0 && a < k {
			sizes[a]++
		}
	}
	return sizes
}

// Balanced reports whether every one of k clusters owns at least one point.
func Balanced(assignments []int, k int) bool {
	for _, n := range Sizes(assignments, k) {
		if n == 0 {
			return false
		}
	}
	return true
}
