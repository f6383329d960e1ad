// Package errs is the closed error taxonomy the merge engine raises:
// per-cluster quality failures, per-type merge failures, and the fatal
// configuration errors that abort a run before any item is processed.
package errs

import (
	"fmt"

	"github.com/rawblock/annomerge/pkg/annotation"
)

// TooCloseError reports two annotations that should have been merged by
// the matcher but ended up in adjacent, overlapping clusters instead.
type TooCloseError struct {
	ItemID   string
	Subset   string
	AnnType  string
	Distance float64
}

func (e *TooCloseError) Error() string {
	return fmt.Sprintf("item %s/%s: two %s annotations are too close to have been left unmatched (distance %.4f)", e.Subset, e.ItemID, e.AnnType, e.Distance)
}

// WrongGroupError reports a cluster whose members disagree on group
// membership in a way the configured group rules forbid: Found is the
// label-name set actually present in the group, Expected is the
// configured label-name set the group partially overlapped but didn't
// satisfy.
type WrongGroupError struct {
	ItemID   string
	Subset   string
	Found    []string
	Expected []string
	Group    int
}

func (e *WrongGroupError) Error() string {
	return fmt.Sprintf("item %s/%s: annotation group %d has wrong labels: found %v, expected %v", e.Subset, e.ItemID, e.Group, e.Found, e.Expected)
}

// NoMatchingItemError reports an item id present in some sources but
// missing from others, when exact-id alignment found no counterpart.
type NoMatchingItemError struct {
	ItemID  string
	Subset  string
	Sources []int
}

func (e *NoMatchingItemError) Error() string {
	return fmt.Sprintf("item %s/%s: no matching item in sources %v", e.Subset, e.ItemID, e.Sources)
}

// NoMatchingAnnError reports a source that has annotations for an item
// but contributed none to a particular matched cluster. Ann is one
// representative member of the cluster that did form, for context.
type NoMatchingAnnError struct {
	ItemID  string
	Subset  string
	AnnType string
	Sources []int
	Ann     *annotation.Annotation
}

func (e *NoMatchingAnnError) Error() string {
	return fmt.Sprintf("item %s/%s: can't find matching %s annotation in sources %v, annotation is %v", e.Subset, e.ItemID, e.AnnType, e.Sources, e.Ann)
}

// FailedLabelVotingError reports a label whose vote count could not
// reach the configured quorum. Votes is the full label->count tally.
// For a Label cluster, Sources names the sources that did not vote for
// the reported label; for a shape cluster it names every source in the
// cluster. Neither merger sets Ann.
type FailedLabelVotingError struct {
	ItemID  string
	Subset  string
	Sources []int
	Votes   map[int]int
	Ann     *annotation.Annotation
}

func (e *FailedLabelVotingError) Error() string {
	if e.Ann != nil {
		return fmt.Sprintf("item %s/%s: label voting failed for ann %v, votes %v, sources %v", e.Subset, e.ItemID, e.Ann, e.Votes, e.Sources)
	}
	return fmt.Sprintf("item %s/%s: label voting failed, votes %v, sources %v", e.Subset, e.ItemID, e.Votes, e.Sources)
}

// FailedAttrVotingError reports an attribute whose winning value could
// not reach the configured quorum. Sources names either the outliers
// (members that did not vote the winner, when the total vote reached
// quorum but the winner did not) or the provokers (members that voted
// the winner, when even the total vote stayed under quorum) — see
// merge.ApplyAttributeVotes. Ann is the merged annotation the attribute
// belongs to.
type FailedAttrVotingError struct {
	ItemID  string
	Subset  string
	AttrKey string
	Sources []int
	Votes   map[any]int
	Ann     *annotation.Annotation
}

func (e *FailedAttrVotingError) Error() string {
	return fmt.Sprintf("item %s/%s: attribute voting failed for ann %v, attr %q, votes %v, sources %v", e.Subset, e.ItemID, e.Ann, e.AttrKey, e.Votes, e.Sources)
}

// ConfigError is a fatal, run-aborting configuration failure detected
// before any item is processed: schema mismatches, unknown group
// labels, unsupported annotation types.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid merge configuration: " + e.Reason }

// NewCategorySchemaError reports that two sources disagree on their
// category catalog for an annotation type.
func NewCategorySchemaError(annType string) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf("category schema mismatch for %s annotations", annType)}
}

// NewUnknownGroupLabelError reports a group rule referencing a label
// that doesn't exist in the merged category schema.
func NewUnknownGroupLabelError(label string) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf("group rule references unknown label %q", label)}
}

// NewUnsupportedAnnTypeError reports an annotation type with no
// registered matcher/merger pair.
func NewUnsupportedAnnTypeError(annType string) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf("unsupported annotation type %q", annType)}
}
