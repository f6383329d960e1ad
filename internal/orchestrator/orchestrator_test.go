package orchestrator

import (
	"testing"

	"github.com/rawblock/annomerge/internal/errs"
	"github.com/rawblock/annomerge/pkg/annotation"
)

func label(n int) *int { return &n }

func bboxCats() annotation.Categories {
	return annotation.Categories{
		annotation.TypeLabel: {Entries: []annotation.CategoryEntry{{Name: "car"}}},
	}
}

func TestRun_MergesAgreeingBboxes(t *testing.T) {
	cats := bboxCats()
	itemA := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
		},
	}
	itemB := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 1, Y: 1, W: 10, H: 10}},
		},
	}
	srcA := annotation.NewMemorySource(cats, []annotation.Item{itemA})
	srcB := annotation.NewMemorySource(cats, []annotation.Item{itemB})

	im := NewIntersectMerge(DefaultConfig())
	merged, errList := im.Run([]annotation.Source{srcA, srcB})

	if len(errList) != 0 {
		t.Fatalf("expected no errors, got %v", errList)
	}
	if len(merged) != 1 || len(merged[0].Annotations) != 1 {
		t.Fatalf("expected one merged item with one bbox annotation, got %+v", merged)
	}
	if merged[0].Annotations[0].Label == nil || *merged[0].Annotations[0].Label != 0 {
		t.Errorf("expected merged label 0, got %+v", merged[0].Annotations[0].Label)
	}
}

func TestRun_CategoryMismatchAborts(t *testing.T) {
	catsA := annotation.Categories{annotation.TypeLabel: {Entries: []annotation.CategoryEntry{{Name: "cat"}}}}
	catsB := annotation.Categories{annotation.TypeLabel: {Entries: []annotation.CategoryEntry{{Name: "dog"}}}}
	srcA := annotation.NewMemorySource(catsA, nil)
	srcB := annotation.NewMemorySource(catsB, nil)

	im := NewIntersectMerge(DefaultConfig())
	_, errList := im.Run([]annotation.Source{srcA, srcB})

	if len(errList) != 1 {
		t.Fatalf("expected exactly one fatal error, got %v", errList)
	}
	var cfgErr *errs.ConfigError
	if !asConfigError(errList[0], &cfgErr) {
		t.Fatalf("expected a ConfigError, got %T: %v", errList[0], errList[0])
	}
}

func TestRun_UnmatchedAnnotationReportsMissingSource(t *testing.T) {
	cats := bboxCats()
	itemA := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
		},
	}
	// itemB has an annotation for this item (so it isn't simply absent),
	// but none of the bbox type, so it never joins the bbox cluster.
	itemB := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeLabel, Label: label(0)},
		},
	}
	srcA := annotation.NewMemorySource(cats, []annotation.Item{itemA})
	srcB := annotation.NewMemorySource(cats, []annotation.Item{itemB})

	im := NewIntersectMerge(DefaultConfig())
	_, errList := im.Run([]annotation.Source{srcA, srcB})

	var found *errs.NoMatchingAnnError
	for _, e := range errList {
		if nm, ok := e.(*errs.NoMatchingAnnError); ok {
			found = nm
		}
	}
	if found == nil {
		t.Fatalf("expected a NoMatchingAnnError for the missing bbox source, got %v", errList)
	}
	if len(found.Sources) != 1 || found.Sources[0] != 1 {
		t.Fatalf("expected source 1 blamed, got %v", found.Sources)
	}
}

func TestRun_ItemWithNoAnnotationsIsNotReportedMissing(t *testing.T) {
	cats := bboxCats()
	itemA := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
		},
	}
	itemB := annotation.Item{
		ItemID:      annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: nil,
	}
	srcA := annotation.NewMemorySource(cats, []annotation.Item{itemA})
	srcB := annotation.NewMemorySource(cats, []annotation.Item{itemB})

	im := NewIntersectMerge(DefaultConfig())
	_, errList := im.Run([]annotation.Source{srcA, srcB})

	for _, e := range errList {
		if _, ok := e.(*errs.NoMatchingAnnError); ok {
			t.Fatalf("expected no NoMatchingAnnError when the other source has no annotations at all, got %v", errList)
		}
	}
}

func TestRun_NoSourcesReturnsEmpty(t *testing.T) {
	im := NewIntersectMerge(DefaultConfig())
	merged, errList := im.Run(nil)
	if merged != nil || errList != nil {
		t.Fatalf("expected nil, nil for no sources, got %v, %v", merged, errList)
	}
}

func TestRun_ProximityErrorOnCloseSingletons(t *testing.T) {
	cats := bboxCats()
	// Both bboxes come from the same source, so the matcher never
	// considers them for clustering (pairwise edges only span
	// different sources); each lands in its own singleton cluster, and
	// the merged results are compared by the proximity check instead.
	itemA := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 9}},
		},
	}
	srcA := annotation.NewMemorySource(cats, []annotation.Item{itemA})

	cfg := DefaultConfig()
	cfg.CloseDistance = 0.75
	im := NewIntersectMerge(cfg)
	_, errList := im.Run([]annotation.Source{srcA})

	found := false
	for _, e := range errList {
		if _, ok := e.(*errs.TooCloseError); ok {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TooCloseError for two near-identical singleton bboxes, got %v", errList)
	}
}

func TestRun_ProximityCheckDisabledAtZero(t *testing.T) {
	cats := bboxCats()
	itemA := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 9}},
		},
	}
	srcA := annotation.NewMemorySource(cats, []annotation.Item{itemA})

	cfg := DefaultConfig()
	cfg.CloseDistance = 0
	im := NewIntersectMerge(cfg)
	_, errList := im.Run([]annotation.Source{srcA})

	for _, e := range errList {
		if _, ok := e.(*errs.TooCloseError); ok {
			t.Fatalf("expected no TooCloseError with CloseDistance=0, got %v", errList)
		}
	}
}

func TestRun_IgnoredAttributeNeverEmitted(t *testing.T) {
	cats := bboxCats()
	itemA := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}, Attributes: map[string]any{"occluded": true}},
		},
	}
	itemB := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: label(0), Bbox: &annotation.BboxShape{X: 1, Y: 1, W: 10, H: 10}, Attributes: map[string]any{"occluded": true}},
		},
	}
	srcA := annotation.NewMemorySource(cats, []annotation.Item{itemA})
	srcB := annotation.NewMemorySource(cats, []annotation.Item{itemB})

	cfg := DefaultConfig()
	cfg.IgnoredAttributes = map[string]bool{"occluded": true}
	im := NewIntersectMerge(cfg)
	merged, errList := im.Run([]annotation.Source{srcA, srcB})

	if len(errList) != 0 {
		t.Fatalf("expected no errors, got %v", errList)
	}
	if len(merged) != 1 || len(merged[0].Annotations) != 1 {
		t.Fatalf("expected one merged bbox, got %+v", merged)
	}
	if _, ok := merged[0].Annotations[0].Attributes["occluded"]; ok {
		t.Fatalf("expected ignored attribute to be dropped from the merged annotation, got %+v", merged[0].Annotations[0].Attributes)
	}
}

func partsCats() annotation.Categories {
	return annotation.Categories{
		annotation.TypeLabel: {Entries: []annotation.CategoryEntry{
			{Name: "head"}, {Name: "eye"}, {Name: "tail"},
		}},
	}
}

func TestRun_WrongGroupErrorOnMismatchedComposition(t *testing.T) {
	cats := partsCats()
	head, tail := 0, 2
	item := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: &head, Group: 1, Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
			{Type: annotation.TypeBbox, Label: &tail, Group: 1, Bbox: &annotation.BboxShape{X: 20, Y: 20, W: 5, H: 5}},
		},
	}
	src := annotation.NewMemorySource(cats, []annotation.Item{item})

	cfg := DefaultConfig()
	cfg.GroupLabels = [][]GroupLabelSpec{
		{{Name: "head"}, {Name: "eye"}},
	}
	im := NewIntersectMerge(cfg)
	_, errList := im.Run([]annotation.Source{src})

	var found *errs.WrongGroupError
	for _, e := range errList {
		if we, ok := e.(*errs.WrongGroupError); ok {
			found = we
		}
	}
	if found == nil {
		t.Fatalf("expected a WrongGroupError for the {head,tail} group against expected {head,eye}, got %v", errList)
	}
	if len(found.Expected) != 2 || found.Expected[0] != "eye" || found.Expected[1] != "head" {
		t.Fatalf("expected Expected=[eye head], got %v", found.Expected)
	}
	if len(found.Found) != 2 || found.Found[0] != "head" || found.Found[1] != "tail" {
		t.Fatalf("expected Found=[head tail], got %v", found.Found)
	}
}

func TestRun_GroupCompositionWithOptionalLabelPasses(t *testing.T) {
	cats := partsCats()
	head, eye := 0, 1
	item := annotation.Item{
		ItemID: annotation.ItemID{ID: "img1", Subset: "train"},
		Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: &head, Group: 1, Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
		},
	}
	_ = eye
	src := annotation.NewMemorySource(cats, []annotation.Item{item})

	cfg := DefaultConfig()
	cfg.GroupLabels = [][]GroupLabelSpec{
		{{Name: "head"}, {Name: "eye", Optional: true}},
	}
	im := NewIntersectMerge(cfg)
	_, errList := im.Run([]annotation.Source{src})

	for _, e := range errList {
		if _, ok := e.(*errs.WrongGroupError); ok {
			t.Fatalf("expected the optional eye label to be absent without error, got %v", errList)
		}
	}
}

func asConfigError(err error, target **errs.ConfigError) bool {
	if ce, ok := err.(*errs.ConfigError); ok {
		*target = ce
		return true
	}
	return false
}
