package geometry

import "math"

// SmoothLineMinPoints is the floor on resampled point count:
// max(5, max(|a|,|b|)/2).
const SmoothLineMinPoints = 5

// ResampleCount returns the number of points two polylines should be
// resampled to before comparison. lenA and lenB are flat coordinate
// counts (len of the [x0,y0,...] slice), so half the larger one is the
// larger line's point count.
func ResampleCount(lenA, lenB int) int {
	n := lenA
	if lenB > n {
		n = lenB
	}
	c := n / 2
	if c < SmoothLineMinPoints {
		c = SmoothLineMinPoints
	}
	return c
}

// cumulativeLength returns the running arc length at each vertex of a
// flat [x0,y0,x1,y1,...] polyline.
func cumulativeLength(points []float64) []float64 {
	n := len(points) / 2
	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		dx := points[2*i] - points[2*(i-1)]
		dy := points[2*i+1] - points[2*(i-1)+1]
		cum[i] = cum[i-1] + math.Hypot(dx, dy)
	}
	return cum
}

// Resample evenly resamples a flat polyline to exactly n points along
// its arc length. A line of fewer than 2 points is returned repeated.
func Resample(points []float64, n int) []float64 {
	m := len(points) / 2
	if m == 0 || n <= 0 {
		return nil
	}
	if m == 1 {
		out := make([]float64, 2*n)
		for i := 0; i < n; i++ {
			out[2*i] = points[0]
			out[2*i+1] = points[1]
		}
		return out
	}
	cum := cumulativeLength(points)
	total := cum[m-1]
	out := make([]float64, 2*n)
	if total == 0 {
		for i := 0; i < n; i++ {
			out[2*i] = points[0]
			out[2*i+1] = points[1]
		}
		return out
	}
	seg := 0
	for i := 0; i < n; i++ {
		target := total * float64(i) / float64(n-1)
		if n == 1 {
			target = 0
		}
		for seg < m-2 && cum[seg+1] < target {
			seg++
		}
		segLen := cum[seg+1] - cum[seg]
		t := 0.0
		if segLen > 0 {
			t = (target - cum[seg]) / segLen
		}
		x := points[2*seg] + t*(points[2*(seg+1)]-points[2*seg])
		y := points[2*seg+1] + t*(points[2*(seg+1)+1]-points[2*seg+1])
		out[2*i] = x
		out[2*i+1] = y
	}
	return out
}

// MeanSegmentDistance averages the Euclidean distance between
// corresponding points of two equal-length point lists.
func MeanSegmentDistance(a, b []float64) float64 {
	n := len(a) / 2
	if n == 0 || len(b) != len(a) {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		dx := a[2*i] - b[2*i]
		dy := a[2*i+1] - b[2*i+1]
		sum += math.Hypot(dx, dy)
	}
	return sum / float64(n)
}

// PolylineDistance resamples both lines to the shared point count,
// computes the mean per-segment distance, and normalizes by the area of
// their combined bbox (weighted by the resample factor so longer,
// finely-sampled lines aren't penalized relative to coarse ones), mapping
// the normalized distance to a similarity in [0,1] via |1-s|.
func PolylineDistance(a, b []float64, combinedBboxArea float64) float64 {
	lenA, lenB := len(a), len(b)
	n := ResampleCount(lenA, lenB)
	ra := Resample(a, n)
	rb := Resample(b, n)
	meanDist := MeanSegmentDistance(ra, rb)
	if combinedBboxArea <= 0 {
		return 0
	}
	scale := math.Sqrt(combinedBboxArea)
	factorA := float64(lenA/2) / float64(n)
	factorB := float64(lenB/2) / float64(n)
	weight := (factorA + factorB) / 2
	if weight <= 0 {
		weight = 1
	}
	normalized := meanDist / (scale * weight)
	s := math.Abs(1 - normalized)
	if s > 1 {
		s = 1
	}
	if s < 0 {
		s = 0
	}
	return s
}
