// Package match implements the per-type matcher strategies: the trivial
// LabelMatcher and the generic graph-closure ShapeMatcher (with its
// Bbox/Polygon/Mask/Points/Polyline distance specializations).
package match

import (
	"github.com/rawblock/annomerge/internal/segment"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// Member identifies one annotation within the per-item, per-source lists
// being matched: which source list it came from and its index within
// that source's annotation slice for this item.
type Member struct {
	Source int
	Index  int
}

// Cluster is an ordered set of Members, at most one per source for
// shape clusters. The Label matcher is the one exception: it does not
// cluster at all and returns every annotation in a single Cluster.
type Cluster []Member

// Matcher groups the per-source annotation lists of one item and one
// annotation type into clusters.
type Matcher interface {
	Cluster(sources [][]annotation.Annotation) []Cluster
}

// DefaultPairwiseDistShapes and DefaultPairwiseDistPoints are the
// matcher-level pairwise_dist defaults. No constructor in this package
// reads them: NewMatcher and the New*Matcher functions take
// pairwiseDist as an argument, and the orchestrator always supplies
// its own configured pairwise_dist (default 0.5) to every shape-type
// matcher it builds.
const (
	DefaultPairwiseDistShapes = 0.9
	DefaultPairwiseDistPoints = 0.5
)

// GraphMatcher is the generic graph-closure clusterer: pairwise edges
// are discovered via the segment matcher at PairwiseDist,
// then connected components are expanded with two admission filters —
// cluster cohesion (ClusterDist) and the single-source-per-cluster
// invariant.
type GraphMatcher struct {
	Dist         segment.DistanceFunc
	PairwiseDist float64
	// ClusterDist is the minimum distance a candidate must clear against
	// every existing cluster member. A negative value means "use
	// PairwiseDist".
	ClusterDist float64
}

type node struct {
	Source, Index int
}

// Cluster implements Matcher.
func (m GraphMatcher) Cluster(sources [][]annotation.Annotation) []Cluster {
	clusterDist := m.ClusterDist
	if clusterDist < 0 {
		clusterDist = m.PairwiseDist
	}

	adj := make(map[node][]node)
	addEdge := func(a, b node) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}

	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			res := segment.Match(sources[i], sources[j], m.Dist, m.PairwiseDist)
			for _, p := range res.Matches {
				addEdge(node{i, p.A}, node{j, p.B})
			}
			for _, p := range res.Mispred {
				// Clustering only needs distance agreement, not label
				// agreement.
				addEdge(node{i, p.A}, node{j, p.B})
			}
		}
	}

	visited := make(map[node]bool)
	var clusters []Cluster

	for s := 0; s < len(sources); s++ {
		for idx := range sources[s] {
			start := node{s, idx}
			if visited[start] {
				continue
			}
			visited[start] = true

			members := []Member{{Source: s, Index: idx}}
			memberAnns := []annotation.Annotation{sources[s][idx]}
			memberSources := map[int]bool{s: true}

			queue := append([]node(nil), adj[start]...)
			for len(queue) > 0 {
				cand := queue[0]
				queue = queue[1:]
				if visited[cand] || memberSources[cand.Source] {
					continue
				}
				candAnn := sources[cand.Source][cand.Index]

				cohesive := true
				for _, ma := range memberAnns {
					if m.Dist(ma, candAnn) < clusterDist {
						cohesive = false
						break
					}
				}
				if !cohesive {
					continue
				}

				visited[cand] = true
				members = append(members, Member{Source: cand.Source, Index: cand.Index})
				memberAnns = append(memberAnns, candAnn)
				memberSources[cand.Source] = true
				queue = append(queue, adj[cand]...)
			}

			clusters = append(clusters, Cluster(members))
		}
	}

	return clusters
}

// LabelMatcher implements the trivial Label strategy: no clustering, a
// single cluster holding every Label annotation across every source.
type LabelMatcher struct{}

func (LabelMatcher) Cluster(sources [][]annotation.Annotation) []Cluster {
	var members []Member
	for s, anns := range sources {
		for idx := range anns {
			members = append(members, Member{Source: s, Index: idx})
		}
	}
	if members == nil {
		return nil
	}
	return []Cluster{Cluster(members)}
}
