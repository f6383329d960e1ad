//go:build !accel

package geometry

import "github.com/rawblock/annomerge/pkg/annotation"

// BboxIoUMatrix computes the |a|x|b| pairwise IoU matrix with a plain
// nested loop. This is the default build (no 'accel' tag); it has no
// external dependency and is always available.
func BboxIoUMatrix(a, b []annotation.BboxShape) [][]float64 {
	out := make([][]float64, len(a))
	for i := range a {
		out[i] = make([]float64, len(b))
		for j := range b {
			out[i][j] = BboxIoU(a[i], b[j])
		}
	}
	return out
}
