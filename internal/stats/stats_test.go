package stats

import (
	"testing"

	"github.com/rawblock/annomerge/pkg/annotation"
)

func TestMeanStd_EmptyDataset(t *testing.T) {
	out := MeanStd(nil)
	for c, s := range out {
		if s.Mean != 0 || s.Std != 0 {
			t.Errorf("channel %d: expected zeroed stats, got %+v", c, s)
		}
	}
}

func TestMeanStd_ConstantImageHasZeroStd(t *testing.T) {
	data := make([]byte, 12) // 4 pixels, 3 channels, all zero
	items := []annotation.Item{
		{Image: &annotation.ImageInfo{HasData: true, Channels: 3, Data: data}},
	}
	out := MeanStd(items)
	for c, s := range out {
		if s.Std != 0 {
			t.Errorf("channel %d: expected zero std for constant image, got %f", c, s.Std)
		}
	}
}

func TestComputeAnnStatistics_CountsByTypeAndLabel(t *testing.T) {
	l0 := 0
	cats := annotation.Categories{
		annotation.TypeLabel: {Entries: []annotation.CategoryEntry{{Name: "cat"}, {Name: "dog"}}},
	}
	items := []annotation.Item{
		{Annotations: []annotation.Annotation{
			{Type: annotation.TypeBbox, Label: &l0, Bbox: &annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}},
		}},
	}
	out := ComputeAnnStatistics(items, cats)
	if out.CountByType[annotation.TypeBbox] != 1 {
		t.Fatalf("expected 1 bbox, got %d", out.CountByType[annotation.TypeBbox])
	}
	ls, ok := out.Labels["cat"]
	if !ok || ls.Count != 1 {
		t.Fatalf("expected label 'cat' with count 1, got %+v", out.Labels)
	}
}

func TestHistogram_SingleValueAllInFirstBin(t *testing.T) {
	h := histogram([]float64{5, 5, 5}, 10)
	if h[0] != 3 {
		t.Fatalf("expected all values in bin 0, got %v", h)
	}
}
