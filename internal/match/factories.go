package match

import (
	"github.com/rawblock/annomerge/internal/geometry"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// NewBboxMatcher builds a GraphMatcher whose distance function is Bbox
// IoU. clusterDist < 0 reuses pairwiseDist for cohesion.
func NewBboxMatcher(pairwiseDist, clusterDist float64) GraphMatcher {
	return GraphMatcher{
		Dist: func(a, b annotation.Annotation) float64 {
			if a.Bbox == nil || b.Bbox == nil {
				return 0
			}
			return geometry.BboxIoU(*a.Bbox, *b.Bbox)
		},
		PairwiseDist: pairwiseDist,
		ClusterDist:  clusterDist,
	}
}

// NewPolygonMatcher builds a GraphMatcher whose distance function is
// polygon IoU via rasterization.
func NewPolygonMatcher(pairwiseDist, clusterDist float64) GraphMatcher {
	return GraphMatcher{
		Dist: func(a, b annotation.Annotation) float64 {
			if a.Polygon == nil || b.Polygon == nil {
				return 0
			}
			return geometry.PolygonIoU(a.Polygon, b.Polygon)
		},
		PairwiseDist: pairwiseDist,
		ClusterDist:  clusterDist,
	}
}

// NewMaskMatcher builds a GraphMatcher whose distance function is mask
// IoU over the run-length span representation.
func NewMaskMatcher(pairwiseDist, clusterDist float64) GraphMatcher {
	return GraphMatcher{
		Dist: func(a, b annotation.Annotation) float64 {
			if a.Mask == nil || b.Mask == nil {
				return 0
			}
			return geometry.MaskIoU(a.Mask, b.Mask)
		},
		PairwiseDist: pairwiseDist,
		ClusterDist:  clusterDist,
	}
}

// NewPolylineMatcher builds a GraphMatcher whose distance function
// resamples and normalizes two polylines by their combined bbox area.
func NewPolylineMatcher(pairwiseDist, clusterDist float64) GraphMatcher {
	return GraphMatcher{
		Dist: func(a, b annotation.Annotation) float64 {
			if a.Polyline == nil || b.Polyline == nil {
				return 0
			}
			boxA := geometry.PointsBbox(a.Polyline)
			boxB := geometry.PointsBbox(b.Polyline)
			combined := geometry.MaxBbox([]annotation.BboxShape{boxA, boxB})
			area := geometry.BboxArea(combined)
			return geometry.PolylineDistance(a.Polyline.Points, b.Polyline.Points, area)
		},
		PairwiseDist: pairwiseDist,
		ClusterDist:  clusterDist,
	}
}

// NewPointsMatcher builds a GraphMatcher whose distance function is OKS,
// gated by bounding-box overlap between the two instances: points that
// don't belong to roughly the same region of the image are never
// compared by keypoint distance alone. sigma may be nil to let OKS
// resolve it per annotation's point count.
func NewPointsMatcher(pairwiseDist, clusterDist float64, sigma []float64, bboxGate float64) GraphMatcher {
	return GraphMatcher{
		Dist: func(a, b annotation.Annotation) float64 {
			if a.Points == nil || b.Points == nil {
				return 0
			}
			boxA := geometry.PointsBbox(a.Points)
			boxB := geometry.PointsBbox(b.Points)
			if geometry.BboxIoU(boxA, boxB) < bboxGate {
				return 0
			}
			scale := geometry.BboxArea(geometry.MeanBbox([]annotation.BboxShape{boxA, boxB}))
			return geometry.OKS(a.Points.Points, b.Points.Points, a.Points.Visibility, b.Points.Visibility, sigma, scale)
		},
		PairwiseDist: pairwiseDist,
		ClusterDist:  clusterDist,
	}
}

// NewMatcher builds the Matcher for an annotation type using the given
// parameters. Caption has no matcher; callers must special-case it —
// captions are carried through verbatim rather than clustered.
func NewMatcher(t annotation.AnnType, pairwiseDist, clusterDist float64, sigma []float64, bboxGate float64) Matcher {
	switch t {
	case annotation.TypeLabel:
		return LabelMatcher{}
	case annotation.TypeBbox:
		return NewBboxMatcher(pairwiseDist, clusterDist)
	case annotation.TypePolygon:
		return NewPolygonMatcher(pairwiseDist, clusterDist)
	case annotation.TypeMask:
		return NewMaskMatcher(pairwiseDist, clusterDist)
	case annotation.TypePolyline:
		return NewPolylineMatcher(pairwiseDist, clusterDist)
	case annotation.TypePoints:
		return NewPointsMatcher(pairwiseDist, clusterDist, sigma, bboxGate)
	default:
		return nil
	}
}
