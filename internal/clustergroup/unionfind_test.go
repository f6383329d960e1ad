package clustergroup

import "testing"

func TestResolve_TransitiveMerge(t *testing.T) {
	clusters := []Cluster{
		{Index: 0, GroupIDs: []int{5}},
		{Index: 1, GroupIDs: []int{5, 7}},
		{Index: 2, GroupIDs: []int{7}},
		{Index: 3, GroupIDs: nil},
	}

	final := Resolve(clusters)

	if final[0] != final[1] || final[1] != final[2] {
		t.Fatalf("expected clusters 0,1,2 in the same final group, got %v", final)
	}
	if final[3] != 0 {
		t.Fatalf("expected ungrouped cluster to map to 0, got %d", final[3])
	}
	if final[0] == 0 {
		t.Fatalf("expected grouped cluster to get a non-zero final group")
	}
}

func TestResolve_DisjointGroupsGetDifferentNumbers(t *testing.T) {
	clusters := []Cluster{
		{Index: 0, GroupIDs: []int{1}},
		{Index: 1, GroupIDs: []int{2}},
	}

	final := Resolve(clusters)

	if final[0] == final[1] {
		t.Fatalf("expected distinct groups to get distinct final numbers, got %v", final)
	}
}

func TestResolve_StableNumberingOrder(t *testing.T) {
	clusters := []Cluster{
		{Index: 0, GroupIDs: []int{9}},
		{Index: 1, GroupIDs: []int{3}},
	}

	final := Resolve(clusters)

	if final[0] != 1 {
		t.Errorf("expected first-encountered group to be numbered 1, got %d", final[0])
	}
	if final[1] != 2 {
		t.Errorf("expected second-encountered group to be numbered 2, got %d", final[1])
	}
}
