// Package stats computes per-dataset image and annotation statistics:
// a numerically stable mean/std over image pixels, and per-label
// counts, attribute distributions and shape-size histograms over
// annotations.
package stats

import (
	"math"

	"github.com/rawblock/annomerge/pkg/annotation"
)

// ChannelStats holds the running mean and unbiased (Bessel-corrected)
// standard deviation for one BGR channel, scaled to the 0-255 range.
type ChannelStats struct {
	Mean float64
	Std  float64
}

type accumulator struct {
	n     int64
	mean  [3]float64
	m2    [3]float64 // sum of squared deviations from the running mean
}

func newAccumulator(data []byte, channels int) accumulator {
	var acc accumulator
	if len(data) == 0 || channels == 0 {
		return acc
	}
	pixels := len(data) / channels
	acc.n = int64(pixels)
	if acc.n == 0 {
		return acc
	}

	for p := 0; p < pixels; p++ {
		for c := 0; c < 3; c++ {
			var v float64
			switch {
			case channels == 1:
				v = float64(data[p])
			case c < channels:
				v = float64(data[p*channels+c])
			default:
				v = float64(data[p*channels])
			}
			delta := v - acc.mean[c]
			acc.mean[c] += delta / float64(p+1)
			delta2 := v - acc.mean[c]
			acc.m2[c] += delta * delta2
		}
	}
	return acc
}

// combine merges two accumulators via the Chan et al. pairwise-parallel
// formula, so partial per-image accumulators can be folded together
// without revisiting every pixel.
func combine(a, b accumulator) accumulator {
	if a.n == 0 {
		return b
	}
	if b.n == 0 {
		return a
	}
	var out accumulator
	out.n = a.n + b.n
	for c := 0; c < 3; c++ {
		delta := b.mean[c] - a.mean[c]
		out.mean[c] = a.mean[c] + delta*float64(b.n)/float64(out.n)
		out.m2[c] = a.m2[c] + b.m2[c] + delta*delta*float64(a.n)*float64(b.n)/float64(out.n)
	}
	return out
}

func combineAll(accs []accumulator) accumulator {
	if len(accs) == 0 {
		return accumulator{}
	}
	if len(accs) == 1 {
		return accs[0]
	}
	mid := len(accs) / 2
	return combine(combineAll(accs[:mid]), combineAll(accs[mid:]))
}

// MeanStd computes per-channel (BGR) mean/std, in the 0-255 scale,
// across every image with pixel data in items. Images with no pixel
// data are skipped. An empty or all-dataless input returns zeros.
func MeanStd(items []annotation.Item) [3]ChannelStats {
	var accs []accumulator
	for _, it := range items {
		if it.Image == nil || !it.Image.HasData || it.Image.Channels == 0 {
			continue
		}
		accs = append(accs, newAccumulator(it.Image.Data, it.Image.Channels))
	}
	total := combineAll(accs)

	var out [3]ChannelStats
	if total.n == 0 {
		return out
	}
	for c := 0; c < 3; c++ {
		out[c].Mean = total.mean[c]
		if total.n > 1 {
			out[c].Std = math.Sqrt(total.m2[c] / float64(total.n-1))
		}
	}
	return out
}
