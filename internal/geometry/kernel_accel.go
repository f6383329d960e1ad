//go:build accel

package geometry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rawblock/annomerge/pkg/annotation"
)

// BboxIoUMatrix computes the |a|x|b| pairwise IoU matrix, precomputing
// each box's area once and collecting the results in a gonum Dense
// matrix. Built only with the 'accel' build tag; the default (untagged)
// build always works, and this one swaps in this loop in its place.
func BboxIoUMatrix(a, b []annotation.BboxShape) [][]float64 {
	areaA := make([]float64, len(a))
	for i, box := range a {
		areaA[i] = BboxArea(box)
	}
	areaB := make([]float64, len(b))
	for j, box := range b {
		areaB[j] = BboxArea(box)
	}

	m := mat.NewDense(len(a), len(b), nil)
	for i := range a {
		for j := range b {
			inter := BboxIntersection(a[i], b[j])
			if inter == 0 {
				continue
			}
			union := areaA[i] + areaB[j] - inter
			if union <= 0 {
				continue
			}
			m.Set(i, j, inter/union)
		}
	}

	out := make([][]float64, len(a))
	for i := range a {
		row := make([]float64, len(b))
		mat.Row(row, i, m)
		floats.Scale(1, row) // scaling by 1 leaves every value unchanged
		out[i] = row
	}
	return out
}
