// Package merge fuses one matched cluster of annotations from several
// sources into merged annotations, by label voting (a plain count for
// Label clusters, score-weighted for shape clusters), representative
// shape selection and a subsequent orchestrator-driven attribute vote.
package merge

import (
	"sort"

	"github.com/rawblock/annomerge/internal/errs"
	"github.com/rawblock/annomerge/internal/geometry"
	"github.com/rawblock/annomerge/internal/segment"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// Merger fuses one cluster's members (already known to be the same
// annotation type) into zero or more merged annotations. quorum is the
// minimum vote count a label or attribute needs to be accepted (0
// disables gating); nSources is the total number of sources being
// merged (whether or not they hold this item), used as the denominator
// for the emitted confidence score.
type Merger interface {
	Merge(members []annotation.Annotation, itemID string, subset string, sources []int, quorum int, nSources int) ([]annotation.Annotation, []error)
}

// LabelMerger merges a cluster of Label annotations. Unlike shape
// mergers it never collapses to a single winner: every distinct label
// value that clears quorum is emitted as its own merged Label
// annotation (spec scenario: [A, A, B] under quorum 3 clears neither
// and yields two FailedLabelVotingErrors, not a majority pick).
type LabelMerger struct{}

func (LabelMerger) Merge(members []annotation.Annotation, itemID, subset string, sources []int, quorum int, nSources int) ([]annotation.Annotation, []error) {
	if len(members) == 0 {
		return nil, nil
	}

	votes := make(map[int]int)
	for _, m := range members {
		if m.Label == nil {
			continue
		}
		votes[*m.Label]++
	}

	labels := make([]int, 0, len(votes))
	for l := range votes {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	var merged []annotation.Annotation
	var errList []error
	for _, lbl := range labels {
		count := votes[lbl]
		if count < quorum {
			var omitted []int
			for i, m := range members {
				if m.Label == nil || *m.Label != lbl {
					omitted = append(omitted, sources[i])
				}
			}
			errList = append(errList, &errs.FailedLabelVotingError{
				ItemID: itemID, Subset: subset, Sources: omitted, Votes: cloneIntVotes(votes),
			})
			continue
		}

		l := lbl
		score := 1.0
		if nSources > 0 {
			score = float64(count) / float64(nSources)
		}
		merged = append(merged, annotation.Annotation{
			Type:       annotation.TypeLabel,
			Label:      &l,
			Attributes: map[string]any{annotation.ScoreAttr: score},
		})
	}
	return merged, errList
}

// ShapeMerger merges a cluster of shape-bearing annotations (Bbox,
// Polygon, Mask, Polyline, Points): a score-weighted label pick, and
// a representative-shape pick — the member whose bbox is most similar
// (by IoU) to the mean of every member's bbox — whose shape is cloned
// into the result. Unlike LabelMerger it always emits exactly one
// annotation: a cluster failing the label quorum still produces a
// merged shape (carrying the best-effort label and a FailedLabelVotingError),
// since a shape cluster has no sensible "no winner" output.
type ShapeMerger struct {
	// Dist computes similarity in [0,1] between two annotations of this
	// cluster's type; reused from the matcher that formed the cluster.
	Dist segment.DistanceFunc
	// BboxOf extracts the bounding box used for representative
	// selection from an annotation of this cluster's type.
	BboxOf func(annotation.Annotation) annotation.BboxShape
}

func (sm ShapeMerger) Merge(members []annotation.Annotation, itemID, subset string, sources []int, quorum int, nSources int) ([]annotation.Annotation, []error) {
	if len(members) == 0 {
		return nil, nil
	}

	label, labelScore, labelErr := sm.findClusterLabel(members, itemID, subset, sources, quorum)
	var errList []error
	if labelErr != nil {
		errList = append(errList, labelErr)
	}

	boxes := make([]annotation.BboxShape, len(members))
	for i, m := range members {
		boxes[i] = sm.BboxOf(m)
	}
	mean := geometry.MeanBbox(boxes)

	repIdx := 0
	bestSim := -1.0
	for i, b := range boxes {
		sim := geometry.BboxIoU(b, mean)
		if sim > bestSim {
			bestSim = sim
			repIdx = i
		}
	}
	rep := members[repIdx]

	var sum float64
	for _, m := range members {
		d := sm.Dist(rep, m)
		if d < 0 {
			d = 0
		}
		sum += d
	}
	shapeScore := sum / float64(len(members))

	merged := rep.Clone()
	merged.Label = label
	if merged.Attributes == nil {
		merged.Attributes = make(map[string]any)
	}
	if label != nil {
		merged.Attributes[annotation.ScoreAttr] = labelScore * shapeScore
	} else {
		merged.Attributes[annotation.ScoreAttr] = shapeScore
	}

	return []annotation.Annotation{merged}, errList
}

// findClusterLabel score-weighted-votes the label within one shape
// cluster: tally is (sum of member scores, member count) per label
// value, the winner is the label with the highest summed score, and
// the winner's confidence is its score divided by its own vote count.
// A winner whose vote count misses quorum still wins (the caller
// always needs a label to attach to the merged shape) but is reported.
func (sm ShapeMerger) findClusterLabel(members []annotation.Annotation, itemID, subset string, sources []int, quorum int) (*int, float64, error) {
	type tally struct {
		score float64
		count int
	}
	votes := make(map[int]*tally)
	for _, m := range members {
		if m.Label == nil {
			continue
		}
		t := votes[*m.Label]
		if t == nil {
			t = &tally{}
			votes[*m.Label] = t
		}
		t.score += m.Score()
		t.count++
	}
	if len(votes) == 0 {
		return nil, 0, nil
	}

	labels := make([]int, 0, len(votes))
	for l := range votes {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	best := labels[0]
	for _, l := range labels[1:] {
		if votes[l].score > votes[best].score {
			best = l
		}
	}

	winner := votes[best]
	var err error
	if winner.count < quorum {
		counts := make(map[int]int, len(votes))
		for l, t := range votes {
			counts[l] = t.count
		}
		err = &errs.FailedLabelVotingError{ItemID: itemID, Subset: subset, Sources: sources, Votes: counts}
	}

	lbl := best
	return &lbl, winner.score / float64(winner.count), err
}

func cloneIntVotes(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ApplyAttributeVotes tallies presence-vote counts for every attribute
// key appearing on any cluster member and writes the winner into
// merged's attribute map, except: a key merged already carries (e.g.
// inherited from the representative shape a ShapeMerger cloned) keeps
// its own value, and a key in ignored is never written regardless of
// its origin.
//
// A winning value whose own count misses quorum is dropped and
// reported via FailedAttrVotingError. Two readings are distinguished by
// how far short of quorum the vote fell: if every member that set the
// attribute at all still sums to fewer than quorum votes, none of them
// could have carried it — the members holding the winning value are
// blamed as "provokers" of an under-quorum vote. Otherwise the total
// cleared quorum but no single value did, so every member that did not
// vote the (non-winning) plurality — by voting another value or by not
// setting the attribute — is blamed as an "outlier".
func ApplyAttributeVotes(merged *annotation.Annotation, members []annotation.Annotation, itemID, subset string, sources []int, quorum int, ignored map[string]bool) []error {
	if merged.Attributes == nil {
		merged.Attributes = make(map[string]any)
	}

	type vote struct {
		counts map[any]int
		order  []any
	}
	tallies := make(map[string]*vote)
	var names []string
	for _, m := range members {
		for k := range m.Attributes {
			if k == annotation.ScoreAttr || ignored[k] {
				continue
			}
			if tallies[k] == nil {
				tallies[k] = &vote{counts: make(map[any]int)}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	for _, name := range names {
		v := tallies[name]
		for _, m := range members {
			val, ok := m.Attributes[name]
			if !ok {
				continue
			}
			if _, seen := v.counts[val]; !seen {
				v.order = append(v.order, val)
			}
			v.counts[val]++
		}
	}

	var errList []error
	for _, name := range names {
		v := tallies[name]
		winner := v.order[0]
		winnerCount := v.counts[winner]
		total := 0
		for _, val := range v.order {
			c := v.counts[val]
			total += c
			if c > winnerCount {
				winner, winnerCount = val, c
			}
		}

		if winnerCount < quorum {
			var blamed []int
			if total < quorum {
				for i, m := range members {
					if val, ok := m.Attributes[name]; ok && val == winner {
						blamed = append(blamed, sources[i])
					}
				}
			} else {
				for i, m := range members {
					val, ok := m.Attributes[name]
					if !ok || val != winner {
						blamed = append(blamed, sources[i])
					}
				}
			}
			errList = append(errList, &errs.FailedAttrVotingError{
				ItemID: itemID, Subset: subset, AttrKey: name,
				Sources: blamed, Votes: cloneAnyVotes(v.counts), Ann: merged,
			})
			continue
		}

		if _, already := merged.Attributes[name]; !already {
			merged.Attributes[name] = winner
		}
	}

	for k := range ignored {
		delete(merged.Attributes, k)
	}

	return errList
}

func cloneAnyVotes(m map[any]int) map[any]int {
	out := make(map[any]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
