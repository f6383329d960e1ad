// Package segment implements the one-to-one greedy pairwise matcher that
// both the shape matcher's edge discovery and any other two-list
// comparison in the engine builds on.
package segment

import (
	"sort"

	"github.com/rawblock/annomerge/pkg/annotation"
)

// DistanceFunc returns a similarity in [0,1] between two annotations,
// higher meaning more similar.
type DistanceFunc func(a, b annotation.Annotation) float64

// Pair is a matched (index into A, index into B) pair.
type Pair struct {
	A, B int
}

// Result is the four-way partition the segment matcher contract
// produces: label-agreeing matches, label-disagreeing matches
// (mispredictions), and the annotations from each side left unmatched.
type Result struct {
	Matches      []Pair
	Mispred      []Pair
	UnmatchedA   []int
	UnmatchedB   []int
}

// Match runs the segment matcher: stable-sort both lists by descending
// score (missing score defaults to 1 via Annotation.Score), compute the
// |A|x|B| distance matrix, then greedily claim each A annotation's best
// still-unclaimed B partner whose distance clears tau. Ties on distance
// favor the lower B index (scan order); ties on A ordering favor the
// earlier-occurring, higher-score annotation (stable sort).
func Match(a, b []annotation.Annotation, dist DistanceFunc, tau float64) Result {
	orderA := stableOrderByScoreDesc(a)
	orderB := stableOrderByScoreDesc(b)

	dm := make([][]float64, len(a))
	for i := range a {
		dm[i] = make([]float64, len(b))
		for j := range b {
			dm[i][j] = dist(a[i], b[j])
		}
	}

	claimedB := make([]bool, len(b))
	claimedA := make([]bool, len(a))
	var matches, mispred []Pair

	for _, ai := range orderA {
		bestJ := -1
		bestD := tau
		for _, bj := range orderB {
			if claimedB[bj] {
				continue
			}
			d := dm[ai][bj]
			if d < tau {
				continue
			}
			if bestJ < 0 || d > bestD {
				bestD = d
				bestJ = bj
			}
		}
		if bestJ < 0 {
			continue
		}
		claimedA[ai] = true
		claimedB[bestJ] = true
		pair := Pair{A: ai, B: bestJ}
		if labelsEqual(a[ai].Label, b[bestJ].Label) {
			matches = append(matches, pair)
		} else {
			mispred = append(mispred, pair)
		}
	}

	var unmatchedA, unmatchedB []int
	for i := range a {
		if !claimedA[i] {
			unmatchedA = append(unmatchedA, i)
		}
	}
	for j := range b {
		if !claimedB[j] {
			unmatchedB = append(unmatchedB, j)
		}
	}

	return Result{Matches: matches, Mispred: mispred, UnmatchedA: unmatchedA, UnmatchedB: unmatchedB}
}

func labelsEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// stableOrderByScoreDesc returns indices into list sorted by descending
// score, ties broken by original (first-occurrence) order.
func stableOrderByScoreDesc(list []annotation.Annotation) []int {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return list[idx[i]].Score() > list[idx[j]].Score()
	})
	return idx
}
