package merge

import (
	"github.com/rawblock/annomerge/internal/geometry"
	"github.com/rawblock/annomerge/pkg/annotation"
)

func bboxOfBbox(a annotation.Annotation) annotation.BboxShape {
	if a.Bbox == nil {
		return annotation.BboxShape{}
	}
	return *a.Bbox
}

func bboxOfPolygon(a annotation.Annotation) annotation.BboxShape {
	return geometry.PointsBbox(a.Polygon)
}

func bboxOfPolyline(a annotation.Annotation) annotation.BboxShape {
	return geometry.PointsBbox(a.Polyline)
}

func bboxOfPoints(a annotation.Annotation) annotation.BboxShape {
	return geometry.PointsBbox(a.Points)
}

func bboxOfMask(a annotation.Annotation) annotation.BboxShape {
	if a.Mask == nil {
		return annotation.BboxShape{}
	}
	return annotation.BboxShape{
		X: float64(a.Mask.X), Y: float64(a.Mask.Y),
		W: float64(a.Mask.Width), H: float64(a.Mask.Height),
	}
}

// NewShapeMerger builds a ShapeMerger for the given annotation type
// using dist as the pairwise similarity function — the same function
// the matcher used to form the cluster, so representative-shape
// selection stays consistent with how the cluster was built.
func NewShapeMerger(t annotation.AnnType, dist func(a, b annotation.Annotation) float64) ShapeMerger {
	var bboxOf func(annotation.Annotation) annotation.BboxShape
	switch t {
	case annotation.TypeBbox:
		bboxOf = bboxOfBbox
	case annotation.TypePolygon:
		bboxOf = bboxOfPolygon
	case annotation.TypeMask:
		bboxOf = bboxOfMask
	case annotation.TypePolyline:
		bboxOf = bboxOfPolyline
	case annotation.TypePoints:
		bboxOf = bboxOfPoints
	default:
		bboxOf = bboxOfBbox
	}
	return ShapeMerger{Dist: dist, BboxOf: bboxOf}
}

// NewMerger builds the Merger for an annotation type. Caption has no
// merger: it is carried through verbatim by the orchestrator rather
// than voted on, since there is no principled way to vote between two
// free-text captions.
func NewMerger(t annotation.AnnType, dist func(a, b annotation.Annotation) float64) Merger {
	switch t {
	case annotation.TypeLabel:
		return LabelMerger{}
	case annotation.TypeCaption:
		return nil
	default:
		return NewShapeMerger(t, dist)
	}
}
