package orchestrator

// Config holds every tunable of the merge pipeline. NewIntersectMerge
// replaces a zero PairwiseDist, ClusterDist or BboxGate with
// DefaultConfig's value; every other field is used as given.
type Config struct {
	// PairwiseDist is the similarity threshold an edge between two
	// annotations of different sources must clear to be considered a
	// match candidate. Also reused as the per-cluster cohesion floor
	// when ClusterDist is negative.
	PairwiseDist float64
	// ClusterDist overrides PairwiseDist as the cohesion floor a
	// candidate must clear against every existing cluster member.
	// Negative means "use PairwiseDist".
	ClusterDist float64
	// Quorum is the minimum number of votes a label or attribute value
	// must draw to be accepted. Zero disables quorum gating entirely:
	// every label and attribute clears voting unconditionally.
	Quorum int
	// Sigma is the per-keypoint OKS sigma vector; nil lets the Points
	// matcher resolve a default per annotation (COCO-17 for 17 points,
	// otherwise a flat geometry.DefaultSigma).
	Sigma []float64
	// BboxGate is the minimum bbox IoU two Points instances must clear
	// before OKS is even computed.
	BboxGate float64
	// ScoreFilter drops merged annotations whose final score is below
	// this threshold.
	ScoreFilter float64
	// GroupLabels, when non-empty, lists the label-name compositions a
	// group (or an ungrouped singleton) is allowed to have. A group is
	// checked against the first configured composition it shares any
	// label with; if that composition is missing one of its non-optional
	// labels, or the group carries a label outside it, WrongGroupError
	// is raised. A group that shares no label with any configured
	// composition is not checked at all.
	GroupLabels [][]GroupLabelSpec
	// CloseDistance is the similarity threshold above which two merged
	// annotations of the same type on one item are reported as
	// TooCloseError. Zero disables the check entirely.
	CloseDistance float64
	// IgnoredAttributes names attribute keys that are never voted on
	// or emitted in a merged annotation.
	IgnoredAttributes map[string]bool
}

// GroupLabelSpec names one label a configured group composition
// expects. Optional labels may be absent from a matching group without
// raising WrongGroupError; non-optional ones may not.
type GroupLabelSpec struct {
	Name     string
	Optional bool
}

// DefaultConfig mirrors the reference merge configuration. Quorum
// defaults to 0 (disabled), matching the upstream tool's own default.
func DefaultConfig() Config {
	return Config{
		PairwiseDist:  0.5,
		ClusterDist:   -1,
		Quorum:        0,
		BboxGate:      0.5,
		ScoreFilter:   0,
		CloseDistance: 0.75,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PairwiseDist == 0 {
		c.PairwiseDist = d.PairwiseDist
	}
	if c.ClusterDist == 0 {
		c.ClusterDist = d.ClusterDist
	}
	if c.BboxGate == 0 {
		c.BboxGate = d.BboxGate
	}
	return c
}
