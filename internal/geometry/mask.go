package geometry

import "github.com/rawblock/annomerge/pkg/annotation"

// spanOverlap returns the number of overlapping columns between two
// row spans expressed as absolute column ranges [start, start+length).
func spanOverlap(aStart, aLen, bStart, bLen int) int {
	x1 := max2(aStart, bStart)
	x2 := min2(aStart+aLen, bStart+bLen)
	if x2 <= x1 {
		return 0
	}
	return x2 - x1
}

func max2(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min2(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func rowArea(row []annotation.MaskSpan) int {
	n := 0
	for _, s := range row {
		n += s.Length
	}
	return n
}

// MaskArea returns the pixel count of a mask, summing its row spans
// rather than materializing a dense grid.
func MaskArea(m *annotation.MaskShape) int {
	if m == nil {
		return 0
	}
	n := 0
	for _, row := range m.Rows {
		n += rowArea(row)
	}
	return n
}

// MaskIoU computes intersection-over-union directly on the per-row span
// representation, aligning rows by absolute image Y so masks anchored at
// different offsets still compare correctly.
func MaskIoU(a, b *annotation.MaskShape) float64 {
	if a == nil || b == nil {
		return 0
	}
	minY := min2(a.Y, b.Y)
	maxY := max2(a.Y+a.Height, b.Y+b.Height)
	var inter, areaA, areaB int
	for y := minY; y < maxY; y++ {
		var rowA, rowB []annotation.MaskSpan
		if y >= a.Y && y < a.Y+a.Height {
			rowA = a.Rows[y-a.Y]
		}
		if y >= b.Y && y < b.Y+b.Height {
			rowB = b.Rows[y-b.Y]
		}
		areaA += rowArea(rowA)
		areaB += rowArea(rowB)
		for _, sa := range rowA {
			for _, sb := range rowB {
				inter += spanOverlap(a.X+sa.Start, sa.Length, b.X+sb.Start, sb.Length)
			}
		}
	}
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
