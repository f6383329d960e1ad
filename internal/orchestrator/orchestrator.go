// Package orchestrator runs the full merge pipeline over a set of
// sources: category agreement, item alignment, per-type matching and
// merging, group resolution, consistency checks and score filtering.
package orchestrator

import (
	"sort"

	"github.com/rawblock/annomerge/internal/clustergroup"
	"github.com/rawblock/annomerge/internal/errs"
	"github.com/rawblock/annomerge/internal/match"
	"github.com/rawblock/annomerge/internal/merge"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// allTypes is the fixed processing order for annotation types within
// an item: label first (other types' group validation may depend on
// labels already being resolved), then shapes in a stable order,
// caption last (it isn't matched or voted on at all).
var allTypes = []annotation.AnnType{
	annotation.TypeLabel,
	annotation.TypeBbox,
	annotation.TypePolygon,
	annotation.TypeMask,
	annotation.TypePolyline,
	annotation.TypePoints,
	annotation.TypeCaption,
}

// IntersectMerge runs the merge pipeline over a fixed config. It holds
// no per-run state and is safe to reuse across concurrent Run calls,
// each of which owns its own working state.
type IntersectMerge struct {
	cfg Config
}

func NewIntersectMerge(cfg Config) *IntersectMerge {
	return &IntersectMerge{cfg: cfg.withDefaults()}
}

// clusterRecord tracks one surviving merged cluster long enough to run
// the cross-type group resolution and the proximity consistency check
// before final assembly.
type clusterRecord struct {
	annType   annotation.AnnType
	merged    annotation.Annotation
	groupIDs  []int
	sourceIdx []int
}

// Run merges every item reachable from the given sources. It returns
// the merged items (sorted by subset, then id) and the accumulated
// quality/merge-class errors. A category-schema mismatch or a group
// rule naming an unknown label aborts the run entirely and is returned
// as the sole error. Only the types in allTypes are processed;
// annotations of any other type are not merged and raise no error.
func (im *IntersectMerge) Run(sources []annotation.Source) ([]annotation.MergedItem, []error) {
	if len(sources) == 0 {
		return nil, nil
	}

	cats := sources[0].Categories()
	for _, s := range sources[1:] {
		if !cats.Equal(s.Categories()) {
			return nil, []error{errs.NewCategorySchemaError("one or more types")}
		}
	}

	if cfgErr := im.validateGroupLabels(cats); cfgErr != nil {
		return nil, []error{cfgErr}
	}

	itemIDs := unionItemIDs(sources)

	var out []annotation.MergedItem
	var allErrs []error

	for _, id := range itemIDs {
		merged, errList := im.mergeItem(id, sources, cats)
		allErrs = append(allErrs, errList...)
		if merged != nil {
			out = append(out, *merged)
		}
	}

	return out, allErrs
}

func (im *IntersectMerge) validateGroupLabels(cats annotation.Categories) error {
	if len(im.cfg.GroupLabels) == 0 {
		return nil
	}
	bundle := cats[annotation.TypeLabel]
	for _, group := range im.cfg.GroupLabels {
		for _, spec := range group {
			if _, _, ok := bundle.Find(spec.Name); !ok {
				return errs.NewUnknownGroupLabelError(spec.Name)
			}
		}
	}
	return nil
}

func unionItemIDs(sources []annotation.Source) []annotation.ItemID {
	seen := make(map[annotation.ItemID]bool)
	var ids []annotation.ItemID
	for _, s := range sources {
		for _, id := range s.ItemIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Subset != ids[j].Subset {
			return ids[i].Subset < ids[j].Subset
		}
		return ids[i].ID < ids[j].ID
	})
	return ids
}

func (im *IntersectMerge) mergeItem(id annotation.ItemID, sources []annotation.Source, cats annotation.Categories) (*annotation.MergedItem, []error) {
	var items []annotation.Item
	var present []int
	for i, s := range sources {
		item, ok := s.Get(id)
		if !ok {
			continue
		}
		items = append(items, item)
		present = append(present, i)
	}
	if len(items) == 0 {
		return nil, nil
	}
	nSources := len(sources)

	var errList []error
	var records []clusterRecord

	for _, t := range allTypes {
		if t == annotation.TypeCaption {
			rec := im.mergeCaptions(items, present)
			records = append(records, rec...)
			continue
		}

		perSource := make([][]annotation.Annotation, len(items))
		for i, it := range items {
			for _, a := range it.Annotations {
				if a.Type == t {
					perSource[i] = append(perSource[i], a)
				}
			}
		}

		matcher := match.NewMatcher(t, im.cfg.PairwiseDist, im.cfg.ClusterDist, im.cfg.Sigma, im.cfg.BboxGate)
		if matcher == nil {
			continue
		}
		clusters := matcher.Cluster(perSource)

		var distFn func(a, b annotation.Annotation) float64
		if gm, ok := matcher.(match.GraphMatcher); ok {
			distFn = gm.Dist
		}
		merger := merge.NewMerger(t, distFn)
		if merger == nil {
			continue
		}

		for _, cl := range clusters {
			members := make([]annotation.Annotation, len(cl))
			srcIdx := make([]int, len(cl))
			distinctSources := make(map[int]bool)
			var groupIDs []int
			for i, mem := range cl {
				members[i] = perSource[mem.Source][mem.Index]
				srcIdx[i] = present[mem.Source]
				distinctSources[mem.Source] = true
				groupIDs = append(groupIDs, members[i].Group)
			}

			// Cluster completeness is independent of quorum: a source
			// that has annotations for this item at all but contributed
			// none to this cluster is reported regardless of whether the
			// cluster's vote later succeeds.
			if t != annotation.TypeLabel {
				var missing []int
				for i, it := range items {
					if distinctSources[i] || len(it.Annotations) == 0 {
						continue
					}
					missing = append(missing, present[i])
				}
				if len(missing) > 0 {
					rep := members[0]
					errList = append(errList, &errs.NoMatchingAnnError{
						ItemID: id.ID, Subset: id.Subset, AnnType: string(t), Sources: missing, Ann: &rep,
					})
				}
			}

			mergedAnns, mergeErrs := merger.Merge(members, id.ID, id.Subset, srcIdx, im.cfg.Quorum, nSources)
			errList = append(errList, mergeErrs...)

			for _, mergedAnn := range mergedAnns {
				attrErrs := merge.ApplyAttributeVotes(&mergedAnn, members, id.ID, id.Subset, srcIdx, im.cfg.Quorum, im.cfg.IgnoredAttributes)
				errList = append(errList, attrErrs...)
				records = append(records, clusterRecord{annType: t, merged: mergedAnn, groupIDs: groupIDs, sourceIdx: srcIdx})
			}
		}
	}

	resolveGroups(records)

	errList = append(errList, im.checkGroupComposition(id, records, cats)...)
	errList = append(errList, im.checkProximity(id, records)...)

	var final []annotation.Annotation
	for _, r := range records {
		if r.merged.Score() < im.cfg.ScoreFilter {
			continue
		}
		final = append(final, r.merged)
	}

	return &annotation.MergedItem{ItemID: id, Annotations: final}, errList
}

func (im *IntersectMerge) mergeCaptions(items []annotation.Item, present []int) []clusterRecord {
	for i, it := range items {
		for _, a := range it.Annotations {
			if a.Type == annotation.TypeCaption {
				_ = present[i]
				return []clusterRecord{{annType: annotation.TypeCaption, merged: a.Clone()}}
			}
		}
	}
	return nil
}

// resolveGroups reassigns Group on every record using
// cross-type cluster-group discovery over the group ids carried by
// each record's original members.
func resolveGroups(records []clusterRecord) {
	var cgClusters []clustergroup.Cluster
	for i, r := range records {
		cgClusters = append(cgClusters, clustergroup.Cluster{Index: i, GroupIDs: r.groupIDs})
	}
	final := clustergroup.Resolve(cgClusters)
	for i := range records {
		records[i].merged.Group = final[i]
	}
}

func (im *IntersectMerge) checkProximity(id annotation.ItemID, records []clusterRecord) []error {
	if im.cfg.CloseDistance <= 0 {
		return nil
	}
	var out []error
	for _, t := range allTypes {
		if t == annotation.TypeLabel || t == annotation.TypeCaption {
			continue
		}
		var typed []clusterRecord
		for _, r := range records {
			if r.annType == t {
				typed = append(typed, r)
			}
		}
		matcher := match.NewMatcher(t, im.cfg.PairwiseDist, im.cfg.ClusterDist, im.cfg.Sigma, im.cfg.BboxGate)
		gm, ok := matcher.(match.GraphMatcher)
		if !ok {
			continue
		}
		for i := 0; i < len(typed); i++ {
			for j := i + 1; j < len(typed); j++ {
				d := gm.Dist(typed[i].merged, typed[j].merged)
				if d > im.cfg.CloseDistance {
					out = append(out, &errs.TooCloseError{ItemID: id.ID, Subset: id.Subset, AnnType: string(t), Distance: d})
				}
			}
		}
	}
	return out
}

// checkGroupComposition validates every non-zero group's label-name set
// (and every ungrouped annotation's singleton set) against the
// configured compositions. A group is tested against the first
// configured composition it shares a label with; sharing none means no
// configured rule applies to it, so it passes unchecked.
func (im *IntersectMerge) checkGroupComposition(id annotation.ItemID, records []clusterRecord, cats annotation.Categories) []error {
	if len(im.cfg.GroupLabels) == 0 {
		return nil
	}
	bundle := cats[annotation.TypeLabel]
	labelName := func(idx int) string {
		if idx < 0 || idx >= len(bundle.Entries) {
			return ""
		}
		return bundle.Entries[idx].Name
	}

	var out []error

	byGroup := make(map[int]map[string]bool)
	var groupOrder []int
	for _, r := range records {
		if r.merged.Label == nil {
			continue
		}
		name := labelName(*r.merged.Label)
		if r.merged.Group == 0 {
			// Ungrouped annotations are checked individually, as their
			// own singleton composition, not pooled with one another.
			if err := im.checkGroup(id, 0, map[string]bool{name: true}); err != nil {
				out = append(out, err)
			}
			continue
		}
		if byGroup[r.merged.Group] == nil {
			byGroup[r.merged.Group] = make(map[string]bool)
			groupOrder = append(groupOrder, r.merged.Group)
		}
		byGroup[r.merged.Group][name] = true
	}
	sort.Ints(groupOrder)

	for _, g := range groupOrder {
		if err := im.checkGroup(id, g, byGroup[g]); err != nil {
			out = append(out, err)
		}
	}
	return out
}

func (im *IntersectMerge) checkGroup(id annotation.ItemID, group int, found map[string]bool) *errs.WrongGroupError {
	for _, spec := range im.cfg.GroupLabels {
		check := make(map[string]bool, len(spec))
		optional := make(map[string]bool)
		for _, gl := range spec {
			check[gl.Name] = true
			if gl.Optional {
				optional[gl.Name] = true
			}
		}

		common := false
		for name := range found {
			if check[name] {
				common = true
				break
			}
		}
		if !common {
			continue
		}

		var missing, extra []string
		for name := range check {
			if !found[name] && !optional[name] {
				missing = append(missing, name)
			}
		}
		for name := range found {
			if !check[name] {
				extra = append(extra, name)
			}
		}
		if len(missing) > 0 || len(extra) > 0 {
			sort.Strings(extra)
			expected := make([]string, 0, len(check))
			for name := range check {
				expected = append(expected, name)
			}
			sort.Strings(expected)
			foundNames := make([]string, 0, len(found))
			for name := range found {
				foundNames = append(foundNames, name)
			}
			sort.Strings(foundNames)
			return &errs.WrongGroupError{ItemID: id.ID, Subset: id.Subset, Found: foundNames, Expected: expected, Group: group}
		}
		break
	}
	return nil
}
