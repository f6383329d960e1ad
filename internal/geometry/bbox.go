// Package geometry implements the pure-math kernels the matcher and
// merger layers share: IoU over boxes/polygons/masks, object keypoint
// similarity, polyline smoothing/distance, and bounding-box combinators.
// Nothing here touches a dataset, a source index or an error — it only
// knows shapes.
package geometry

import "github.com/rawblock/annomerge/pkg/annotation"

// BboxArea returns w*h, clamped to 0 for degenerate boxes.
func BboxArea(b annotation.BboxShape) float64 {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// BboxIntersection returns the area shared by two boxes.
func BboxIntersection(a, b annotation.BboxShape) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// BboxIoU returns the intersection-over-union of two boxes in [0,1].
func BboxIoU(a, b annotation.BboxShape) float64 {
	inter := BboxIntersection(a, b)
	if inter == 0 {
		return 0
	}
	union := BboxArea(a) + BboxArea(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// MeanBbox returns the element-wise mean of a non-empty set of boxes.
func MeanBbox(boxes []annotation.BboxShape) annotation.BboxShape {
	var out annotation.BboxShape
	if len(boxes) == 0 {
		return out
	}
	for _, b := range boxes {
		out.X += b.X
		out.Y += b.Y
		out.W += b.W
		out.H += b.H
	}
	n := float64(len(boxes))
	out.X /= n
	out.Y /= n
	out.W /= n
	out.H /= n
	return out
}

// MaxBbox returns the smallest box enclosing every input box.
func MaxBbox(boxes []annotation.BboxShape) annotation.BboxShape {
	if len(boxes) == 0 {
		return annotation.BboxShape{}
	}
	x1, y1 := boxes[0].X, boxes[0].Y
	x2, y2 := boxes[0].X+boxes[0].W, boxes[0].Y+boxes[0].H
	for _, b := range boxes[1:] {
		x1 = min(x1, b.X)
		y1 = min(y1, b.Y)
		x2 = max(x2, b.X+b.W)
		y2 = max(y2, b.Y+b.H)
	}
	return annotation.BboxShape{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// PointsBbox returns the tight bounding box of a flat [x0,y0,x1,y1,...]
// point list, ignoring points marked invisible (Visibility == 1).
func PointsBbox(p *annotation.PointsShape) annotation.BboxShape {
	if p == nil || len(p.Points) < 2 {
		return annotation.BboxShape{}
	}
	var x1, y1, x2, y2 float64
	first := true
	for i := 0; i+1 < len(p.Points); i += 2 {
		if p.Visibility != nil && i/2 < len(p.Visibility) && p.Visibility[i/2] == 1 {
			continue
		}
		x, y := p.Points[i], p.Points[i+1]
		if first {
			x1, x2, y1, y2 = x, x, y, y
			first = false
			continue
		}
		x1 = min(x1, x)
		x2 = max(x2, x)
		y1 = min(y1, y)
		y2 = max(y2, y)
	}
	if first {
		return annotation.BboxShape{}
	}
	return annotation.BboxShape{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}
