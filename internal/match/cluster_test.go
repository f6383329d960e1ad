package match

import (
	"testing"

	"github.com/rawblock/annomerge/pkg/annotation"
)

func bbox(x, y, w, h float64) annotation.Annotation {
	return annotation.Annotation{Type: annotation.TypeBbox, Bbox: &annotation.BboxShape{X: x, Y: y, W: w, H: h}}
}

func TestBboxMatcher_TwoSourcesAgree(t *testing.T) {
	a := []annotation.Annotation{bbox(0, 0, 10, 10)}
	b := []annotation.Annotation{bbox(1, 1, 10, 10)}

	m := NewBboxMatcher(0.5, -1)
	clusters := m.Cluster([][]annotation.Annotation{a, b})

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0]) != 2 {
		t.Fatalf("expected 2 members, got %d", len(clusters[0]))
	}
}

func TestBboxMatcher_DisjointBoxesStaySingletons(t *testing.T) {
	a := []annotation.Annotation{bbox(0, 0, 10, 10)}
	b := []annotation.Annotation{bbox(100, 100, 10, 10)}

	m := NewBboxMatcher(0.5, -1)
	clusters := m.Cluster([][]annotation.Annotation{a, b})

	if len(clusters) != 2 {
		t.Fatalf("expected 2 singleton clusters, got %d", len(clusters))
	}
	for _, c := range clusters {
		if len(c) != 1 {
			t.Errorf("expected singleton cluster, got size %d", len(c))
		}
	}
}

func TestBboxMatcher_ThreeSourcesOneClusterNoDuplicateSource(t *testing.T) {
	a := []annotation.Annotation{bbox(0, 0, 10, 10)}
	b := []annotation.Annotation{bbox(1, 1, 10, 10)}
	c := []annotation.Annotation{bbox(0, 1, 10, 10), bbox(1, 0, 10, 10)}

	m := NewBboxMatcher(0.5, -1)
	clusters := m.Cluster([][]annotation.Annotation{a, b, c})

	if len(clusters) == 0 {
		t.Fatalf("expected at least one cluster")
	}
	for _, cl := range clusters {
		seen := map[int]bool{}
		for _, mem := range cl {
			if seen[mem.Source] {
				t.Errorf("cluster has two members from the same source: %v", cl)
			}
			seen[mem.Source] = true
		}
	}
}

func TestLabelMatcher_FlattensEverySource(t *testing.T) {
	lbl := func(v int) annotation.Annotation {
		return annotation.Annotation{Type: annotation.TypeLabel, Label: &v}
	}
	a := []annotation.Annotation{lbl(1)}
	b := []annotation.Annotation{lbl(2), lbl(1)}

	clusters := LabelMatcher{}.Cluster([][]annotation.Annotation{a, b})
	if len(clusters) != 1 {
		t.Fatalf("expected exactly 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0]) != 3 {
		t.Fatalf("expected all 3 label annotations in one cluster, got %d", len(clusters[0]))
	}
}

func TestLabelMatcher_EmptyInputNoClusters(t *testing.T) {
	clusters := LabelMatcher{}.Cluster([][]annotation.Annotation{{}, {}})
	if clusters != nil {
		t.Fatalf("expected nil clusters for empty input, got %v", clusters)
	}
}
