package geometry

import "github.com/rawblock/annomerge/pkg/annotation"

// PolygonArea returns the unsigned area of a simple polygon given as a
// flat [x0,y0,x1,y1,...] point list, via the shoelace formula.
func PolygonArea(points []float64) float64 {
	n := len(points) / 2
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x1, y1 := points[2*i], points[2*i+1]
		x2, y2 := points[2*j], points[2*j+1]
		sum += x1*y2 - x2*y1
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// rasterizeMask rasterizes a polygon onto a dense grid within its bbox
// using a scanline even-odd fill. Used only to compute polygon IoU; the
// grid never leaves this package.
func rasterizeMask(points []float64, bbox annotation.BboxShape) [][]bool {
	w := int(bbox.W) + 1
	h := int(bbox.H) + 1
	if w <= 0 || h <= 0 {
		return nil
	}
	grid := make([][]bool, h)
	for i := range grid {
		grid[i] = make([]bool, w)
	}
	n := len(points) / 2
	if n < 3 {
		return grid
	}
	for row := 0; row < h; row++ {
		y := bbox.Y + float64(row) + 0.5
		var xs []float64
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			x1, y1 := points[2*i], points[2*i+1]
			x2, y2 := points[2*j], points[2*j+1]
			if (y1 <= y && y2 > y) || (y2 <= y && y1 > y) {
				t := (y - y1) / (y2 - y1)
				xs = append(xs, x1+t*(x2-x1))
			}
		}
		if len(xs) < 2 {
			continue
		}
		insertionSort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			startCol := int(xs[i] - bbox.X)
			endCol := int(xs[i+1] - bbox.X)
			if startCol < 0 {
				startCol = 0
			}
			if endCol >= w {
				endCol = w - 1
			}
			for c := startCol; c <= endCol; c++ {
				grid[row][c] = true
			}
		}
	}
	return grid
}

func insertionSort(xs []float64) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// PolygonIoU computes segment IoU between two polygons by rasterizing
// both onto the grid spanned by their combined bbox and comparing pixel
// membership, which keeps the implementation correct for
// non-axis-aligned and self-touching polygons at the cost of an O(area)
// pass.
func PolygonIoU(a, b *annotation.PointsShape) float64 {
	if a == nil || b == nil {
		return 0
	}
	bboxA := PointsBbox(a)
	bboxB := PointsBbox(b)
	union := MaxBbox([]annotation.BboxShape{bboxA, bboxB})
	if union.W <= 0 || union.H <= 0 {
		return 0
	}

	gridA := rasterizeMask(a.Points, union)
	gridB := rasterizeMask(b.Points, union)

	var inter, total int
	for r := range gridA {
		for c := range gridA[r] {
			ina := gridA[r][c]
			inb := r < len(gridB) && c < len(gridB[r]) && gridB[r][c]
			if ina && inb {
				inter++
			}
			if ina || inb {
				total++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(inter) / float64(total)
}
