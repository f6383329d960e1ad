// Package shadowcompare compares two merge configurations against the
// same input by clustering partitions and scoring their agreement,
// so a candidate configuration can be evaluated before it replaces
// the one in production.
package shadowcompare

import "math"

// AdjustedRandIndex computes the Adjusted Rand Index (ARI) between two
// cluster partitions of the same elements, in [-1,1]; 1 means perfect
// agreement, 0 means no better than chance.
func AdjustedRandIndex(a, b []int) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0.0
	}

	aLabels := uniqueLabels(a)
	bLabels := uniqueLabels(b)
	aIdx := indexOf(aLabels)
	bIdx := indexOf(bLabels)

	nij := make([][]int, len(aLabels))
	for i := range nij {
		nij[i] = make([]int, len(bLabels))
	}
	for k := 0; k < n; k++ {
		nij[aIdx[a[k]]][bIdx[b[k]]]++
	}

	rowSums := make([]int, len(aLabels))
	colSums := make([]int, len(bLabels))
	for i := range nij {
		for j := range nij[i] {
			rowSums[i] += nij[i][j]
			colSums[j] += nij[i][j]
		}
	}

	sumNijC2 := 0.0
	for i := range nij {
		for j := range nij[i] {
			sumNijC2 += comb2(nij[i][j])
		}
	}
	sumAiC2 := 0.0
	for _, v := range rowSums {
		sumAiC2 += comb2(v)
	}
	sumBjC2 := 0.0
	for _, v := range colSums {
		sumBjC2 += comb2(v)
	}
	nC2 := comb2(n)
	if nC2 == 0 {
		return 0.0
	}

	expected := (sumAiC2 * sumBjC2) / nC2
	maxIndex := 0.5 * (sumAiC2 + sumBjC2)
	denom := maxIndex - expected
	if math.Abs(denom) < 1e-12 {
		return 1.0
	}
	return (sumNijC2 - expected) / denom
}

// VariationOfInformation computes the VI distance between two
// partitions: the sum of the two conditional entropies H(A|B)+H(B|A).
// 0 means identical partitions; lower is always better.
func VariationOfInformation(a, b []int) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0.0
	}
	nf := float64(n)

	aLabels := uniqueLabels(a)
	bLabels := uniqueLabels(b)
	aIdx := indexOf(aLabels)
	bIdx := indexOf(bLabels)

	nij := make([][]int, len(aLabels))
	for i := range nij {
		nij[i] = make([]int, len(bLabels))
	}
	for k := 0; k < n; k++ {
		nij[aIdx[a[k]]][bIdx[b[k]]]++
	}

	rowSums := make([]int, len(aLabels))
	colSums := make([]int, len(bLabels))
	for i := range nij {
		for j := range nij[i] {
			rowSums[i] += nij[i][j]
			colSums[j] += nij[i][j]
		}
	}

	hAB := 0.0
	for i := range nij {
		for j := range nij[i] {
			if nij[i][j] > 0 && colSums[j] > 0 {
				p := float64(nij[i][j]) / nf
				hAB -= p * math.Log2(float64(nij[i][j])/float64(colSums[j]))
			}
		}
	}
	hBA := 0.0
	for i := range nij {
		for j := range nij[i] {
			if nij[i][j] > 0 && rowSums[i] > 0 {
				p := float64(nij[i][j]) / nf
				hBA -= p * math.Log2(float64(nij[i][j])/float64(rowSums[i]))
			}
		}
	}
	return hAB + hBA
}

func comb2(n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(n) * float64(n-1) / 2.0
}

func uniqueLabels(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func indexOf(labels []int) map[int]int {
	m := make(map[int]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
