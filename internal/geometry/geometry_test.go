package geometry

import (
	"testing"

	"github.com/rawblock/annomerge/pkg/annotation"
)

func TestBboxIoU_Identical(t *testing.T) {
	a := annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}
	if got := BboxIoU(a, a); got != 1 {
		t.Errorf("expected IoU=1 for identical boxes, got %v", got)
	}
}

func TestBboxIoU_Disjoint(t *testing.T) {
	a := annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}
	b := annotation.BboxShape{X: 100, Y: 100, W: 10, H: 10}
	if got := BboxIoU(a, b); got != 0 {
		t.Errorf("expected IoU=0 for disjoint boxes, got %v", got)
	}
}

func TestBboxIoU_HalfOverlap(t *testing.T) {
	a := annotation.BboxShape{X: 0, Y: 0, W: 10, H: 10}
	b := annotation.BboxShape{X: 5, Y: 0, W: 10, H: 10}
	// intersection 5x10=50, union 200-50=150
	want := 50.0 / 150.0
	if got := BboxIoU(a, b); got != want {
		t.Errorf("expected IoU=%v, got %v", want, got)
	}
}

func TestMeanBbox(t *testing.T) {
	boxes := []annotation.BboxShape{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 10, Y: 10, W: 20, H: 20},
	}
	mean := MeanBbox(boxes)
	if mean.X != 5 || mean.Y != 5 || mean.W != 15 || mean.H != 15 {
		t.Errorf("unexpected mean bbox: %+v", mean)
	}
}

func TestMaskIoU_SameMask(t *testing.T) {
	m := &annotation.MaskShape{
		X: 0, Y: 0, Width: 4, Height: 2,
		Rows: [][]annotation.MaskSpan{
			{{Start: 0, Length: 4}},
			{{Start: 0, Length: 4}},
		},
	}
	if got := MaskIoU(m, m); got != 1 {
		t.Errorf("expected IoU=1 for identical masks, got %v", got)
	}
}

func TestMaskIoU_OffsetNoOverlap(t *testing.T) {
	a := &annotation.MaskShape{
		X: 0, Y: 0, Width: 2, Height: 1,
		Rows: [][]annotation.MaskSpan{{{Start: 0, Length: 2}}},
	}
	b := &annotation.MaskShape{
		X: 0, Y: 5, Width: 2, Height: 1,
		Rows: [][]annotation.MaskSpan{{{Start: 0, Length: 2}}},
	}
	if got := MaskIoU(a, b); got != 0 {
		t.Errorf("expected IoU=0 for row-disjoint masks, got %v", got)
	}
}

func TestMaskArea(t *testing.T) {
	m := &annotation.MaskShape{
		Rows: [][]annotation.MaskSpan{
			{{Start: 0, Length: 3}, {Start: 5, Length: 2}},
		},
	}
	if got := MaskArea(m); got != 5 {
		t.Errorf("expected area=5, got %d", got)
	}
}

func TestPointsBbox_SkipsInvisible(t *testing.T) {
	p := &annotation.PointsShape{
		Points:     []float64{0, 0, 10, 10, 100, 100},
		Visibility: []int{2, 2, 1},
	}
	box := PointsBbox(p)
	if box.W != 10 || box.H != 10 {
		t.Errorf("expected invisible point excluded from bbox, got %+v", box)
	}
}
