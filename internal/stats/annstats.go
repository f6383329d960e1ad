package stats

import (
	"strconv"

	"github.com/rawblock/annomerge/internal/geometry"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// excludedAttrKeys are attribute keys that describe bookkeeping rather
// than domain content and are left out of the per-label attribute
// distribution.
var excludedAttrKeys = map[string]bool{
	"occluded":   true,
	"visibility": true,
	"score":      true,
	"id":         true,
	"track_id":   true,
}

// LabelStats is the count/fraction/attribute-distribution breakdown for
// one label.
type LabelStats struct {
	Name       string
	Count      int
	Fraction   float64
	Attributes map[string]map[string]int
}

// AnnStatistics is the full per-dataset annotation summary.
type AnnStatistics struct {
	CountByType map[annotation.AnnType]int
	Labels      map[string]*LabelStats
	// AreaHistogram buckets the pixel area of every segment-bearing
	// (Bbox/Polygon/Mask) annotation into 10 bins spanning [min,max] area.
	AreaHistogram []int
	// PixelShareByLabel is, per label, the fraction of all annotated
	// pixels across the dataset that belong to that label.
	PixelShareByLabel map[string]float64
}

const areaHistogramBins = 10

// ComputeAnnStatistics summarizes every annotation across items,
// resolving label names via cats.
func ComputeAnnStatistics(items []annotation.Item, cats annotation.Categories) AnnStatistics {
	out := AnnStatistics{
		CountByType: make(map[annotation.AnnType]int),
		Labels:      make(map[string]*LabelStats),
	}

	labelName := func(t annotation.AnnType, idx int) string {
		bundle := cats[t]
		if bundle.Entries == nil {
			bundle = cats[annotation.TypeLabel]
		}
		if idx < 0 || idx >= len(bundle.Entries) {
			return "unknown"
		}
		return bundle.Entries[idx].Name
	}

	var areas []float64
	pixelsByLabel := make(map[string]float64)
	var totalPixels float64
	totalAnns := 0

	for _, it := range items {
		for _, a := range it.Annotations {
			out.CountByType[a.Type]++
			totalAnns++

			var name string
			if a.Label != nil {
				name = labelName(a.Type, *a.Label)
			} else {
				name = "unlabeled"
			}
			ls, ok := out.Labels[name]
			if !ok {
				ls = &LabelStats{Name: name, Attributes: make(map[string]map[string]int)}
				out.Labels[name] = ls
			}
			ls.Count++

			for k, v := range a.Attributes {
				if excludedAttrKeys[k] {
					continue
				}
				vs := attrValueString(v)
				if ls.Attributes[k] == nil {
					ls.Attributes[k] = make(map[string]int)
				}
				ls.Attributes[k][vs]++
			}

			area := annotationArea(a)
			if area > 0 {
				areas = append(areas, area)
				pixelsByLabel[name] += area
				totalPixels += area
			}
		}
	}

	for _, ls := range out.Labels {
		if totalAnns > 0 {
			ls.Fraction = float64(ls.Count) / float64(totalAnns)
		}
	}

	out.AreaHistogram = histogram(areas, areaHistogramBins)

	out.PixelShareByLabel = make(map[string]float64)
	if totalPixels > 0 {
		for name, px := range pixelsByLabel {
			out.PixelShareByLabel[name] = px / totalPixels
		}
	}

	return out
}

func attrValueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return "?"
	}
}

// histogram buckets values into n equal-width bins spanning
// [min(values), max(values)]. Empty input returns an all-zero histogram
// of length n; a single distinct value puts every value in bin 0.
func histogram(values []float64, n int) []int {
	out := make([]int, n)
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		out[0] = len(values)
		return out
	}
	width := (max - min) / float64(n)
	for _, v := range values {
		bin := int((v - min) / width)
		if bin >= n {
			bin = n - 1
		}
		if bin < 0 {
			bin = 0
		}
		out[bin]++
	}
	return out
}

func annotationArea(a annotation.Annotation) float64 {
	switch a.Type {
	case annotation.TypeMask:
		if a.Mask == nil {
			return 0
		}
		return float64(geometry.MaskArea(a.Mask))
	case annotation.TypePolygon:
		if a.Polygon == nil {
			return 0
		}
		return geometry.PolygonArea(a.Polygon.Points)
	case annotation.TypeBbox:
		if a.Bbox == nil {
			return 0
		}
		return a.Bbox.W * a.Bbox.H
	default:
		return 0
	}
}
