package shadowcompare

import (
	"time"

	"github.com/rawblock/annomerge/internal/match"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// Params is the subset of orchestrator.Config that affects how a
// single annotation type is clustered, duplicated here so this package
// doesn't need to import the orchestrator (which would create a cycle
// once the orchestrator wants to call into shadow comparison).
type Params struct {
	PairwiseDist float64
	ClusterDist  float64
	Sigma        []float64
	BboxGate     float64
}

// Partition clusters perSource (one annotation slice per source, all of
// the same type) under the given params and returns, for the flattened
// source-major ordering of every annotation, which cluster index it
// landed in.
func Partition(perSource [][]annotation.Annotation, t annotation.AnnType, p Params) []int {
	matcher := match.NewMatcher(t, p.PairwiseDist, p.ClusterDist, p.Sigma, p.BboxGate)
	if matcher == nil {
		return nil
	}
	clusters := matcher.Cluster(perSource)

	labelOf := make(map[match.Member]int)
	for ci, cl := range clusters {
		for _, m := range cl {
			labelOf[m] = ci
		}
	}

	var labels []int
	for s, anns := range perSource {
		for idx := range anns {
			labels = append(labels, labelOf[match.Member{Source: s, Index: idx}])
		}
	}
	return labels
}

// Report is the outcome of comparing a baseline and a candidate
// configuration's clustering of the same data: the agreement scores
// plus enough to log a divergence.
type Report struct {
	AnnType   annotation.AnnType
	ARI       float64
	VI        float64
	Diverges  bool
	ComparedAt time.Time
}

// DivergenceThreshold below this ARI, a candidate configuration is
// flagged as materially different from the baseline rather than a
// noise-level reshuffle.
const DivergenceThreshold = 0.9

// Compare clusters perSource once under the baseline params and once
// under the candidate params, then scores how much the two partitions
// agree.
func Compare(perSource [][]annotation.Annotation, t annotation.AnnType, baseline, candidate Params, now time.Time) Report {
	a := Partition(perSource, t, baseline)
	b := Partition(perSource, t, candidate)

	ari := AdjustedRandIndex(a, b)
	vi := VariationOfInformation(a, b)

	return Report{
		AnnType:    t,
		ARI:        ari,
		VI:         vi,
		Diverges:   ari < DivergenceThreshold,
		ComparedAt: now,
	}
}
