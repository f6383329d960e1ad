// Package annotation defines the data model consumed by the merge engine:
// items, annotations, categories and the dataset collaborator contract.
// Dataset loading, on-disk formats and label catalogs are deliberately
// thin here — those concerns live outside this package.
package annotation

// AnnType is the tagged-variant discriminator for an Annotation.
type AnnType string

const (
	TypeLabel    AnnType = "label"
	TypeBbox     AnnType = "bbox"
	TypePolygon  AnnType = "polygon"
	TypeMask     AnnType = "mask"
	TypePolyline AnnType = "polyline"
	TypePoints   AnnType = "points"
	TypeCaption  AnnType = "caption"
)

// ScoreAttr is the reserved attribute name that carries an annotation's
// confidence in [0,1]. Absent means 1.
const ScoreAttr = "score"

// BboxShape is an axis-aligned box (x, y, w, h).
type BboxShape struct {
	X, Y, W, H float64
}

// PointsShape is a flat [x0,y0,x1,y1,...] coordinate list, used for
// Polygon, Polyline and Points payloads. Visibility is optional and,
// when present, has one entry per point (0=absent, 1=hidden, 2=visible).
type PointsShape struct {
	Points     []float64
	Visibility []int
}

// MaskSpan is one run of set pixels within a single row: columns
// [Start, Start+Length) are foreground. Storing masks as per-row spans
// avoids materializing a dense boolean grid for large images.
type MaskSpan struct {
	Start, Length int
}

// MaskShape is a 2-D binary mask stored as per-row foreground spans,
// anchored at (X, Y) within the parent image.
type MaskShape struct {
	X, Y          int
	Width, Height int
	Rows          [][]MaskSpan // len(Rows) == Height
}

// Annotation is a tagged variant over the seven annotation kinds. Exactly
// one shape field is populated, matching Type; Caption has none (it
// carries its text in the Caption field instead). This replaces class-inheritance dispatch with a
// single concrete type plus per-type strategy tables (see internal/match
// and internal/merge).
type Annotation struct {
	Type AnnType

	// Label is an index into the category label catalog. Absent (nil) for
	// Caption.
	Label *int

	// Group is a non-negative instance id; 0 means ungrouped.
	Group int

	// ZOrder is a painter-ordering hint, relevant for shape types.
	ZOrder int

	// Attributes holds arbitrary name->value pairs (string/float64/bool).
	// The reserved "score" key denotes confidence.
	Attributes map[string]any

	Bbox     *BboxShape
	Polygon  *PointsShape
	Mask     *MaskShape
	Polyline *PointsShape
	Points   *PointsShape
	Caption  *string
}

// Score returns the annotation's confidence, defaulting to 1 when the
// reserved "score" attribute is absent or not numeric.
func (a Annotation) Score() float64 {
	if a.Attributes == nil {
		return 1
	}
	v, ok := a.Attributes[ScoreAttr]
	if !ok {
		return 1
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 1
	}
}

// Clone returns a deep-enough copy so merge code never mutates an input
// annotation in place.
func (a Annotation) Clone() Annotation {
	out := a
	if a.Label != nil {
		l := *a.Label
		out.Label = &l
	}
	if a.Attributes != nil {
		out.Attributes = make(map[string]any, len(a.Attributes))
		for k, v := range a.Attributes {
			out.Attributes[k] = v
		}
	}
	if a.Bbox != nil {
		b := *a.Bbox
		out.Bbox = &b
	}
	if a.Polygon != nil {
		out.Polygon = clonePoints(a.Polygon)
	}
	if a.Polyline != nil {
		out.Polyline = clonePoints(a.Polyline)
	}
	if a.Points != nil {
		out.Points = clonePoints(a.Points)
	}
	if a.Mask != nil {
		m := *a.Mask
		m.Rows = make([][]MaskSpan, len(a.Mask.Rows))
		for i, row := range a.Mask.Rows {
			m.Rows[i] = append([]MaskSpan(nil), row...)
		}
		out.Mask = &m
	}
	if a.Caption != nil {
		c := *a.Caption
		out.Caption = &c
	}
	return out
}

func clonePoints(p *PointsShape) *PointsShape {
	cp := &PointsShape{
		Points: append([]float64(nil), p.Points...),
	}
	if p.Visibility != nil {
		cp.Visibility = append([]int(nil), p.Visibility...)
	}
	return cp
}

// CategoryEntry is one label/point-skeleton/mask-color entry in a
// category bundle.
type CategoryEntry struct {
	Name string
}

// CategoryBundle is the category catalog for one AnnType, with the
// find-by-name lookup the matcher/merger layer needs to resolve label
// names in group specs.
type CategoryBundle struct {
	Entries []CategoryEntry
}

// Find returns the index and entry for name, or ok=false.
func (b CategoryBundle) Find(name string) (int, CategoryEntry, bool) {
	for i, e := range b.Entries {
		if e.Name == name {
			return i, e, true
		}
	}
	return 0, CategoryEntry{}, false
}

// Equal reports whether two category bundles describe the same schema.
func (b CategoryBundle) Equal(other CategoryBundle) bool {
	if len(b.Entries) != len(other.Entries) {
		return false
	}
	for i := range b.Entries {
		if b.Entries[i].Name != other.Entries[i].Name {
			return false
		}
	}
	return true
}

// Categories maps each annotation type to its category bundle. Not every
// type needs one (e.g. Polyline might share Bbox's catalog); absent keys
// are treated as an empty bundle.
type Categories map[AnnType]CategoryBundle

// Equal reports whether two category sets agree on every kind present in
// either of them.
func (c Categories) Equal(other Categories) bool {
	seen := make(map[AnnType]bool, len(c)+len(other))
	for k := range c {
		seen[k] = true
	}
	for k := range other {
		seen[k] = true
	}
	for k := range seen {
		if !c[k].Equal(other[k]) {
			return false
		}
	}
	return true
}

// ImageInfo is the optional image payload attached to an Item.
type ImageInfo struct {
	Width, Height int
	HasData       bool
	// Data holds decoded BGR-ordered, row-major pixel bytes when HasData
	// is true. Channels is 1, 3 or 4; a 1-channel image is broadcast to
	// BGR by mean_std, >=3-channel images use only the first 3 channels.
	Data     []byte
	Channels int
}

// ItemID identifies one logical item across sources.
type ItemID struct {
	ID     string
	Subset string
}

// Item is one media unit: an id/subset pair, an optional image and its
// annotations.
type Item struct {
	ItemID
	Image       *ImageInfo
	Annotations []Annotation
}

// Source is one annotated dataset among several being merged: the
// minimal read-only surface — category schema, subsets, items by id —
// the orchestrator needs. Dataset loading and on-disk formats are out
// of scope here.
type Source interface {
	Categories() Categories
	Subsets() []string
	ItemIDs() []ItemID
	Get(id ItemID) (Item, bool)
}

// MemorySource is a read-only, in-memory Source implementation. It is the
// reference adapter used by tests and the CLI/API's JSON ingestion path.
type MemorySource struct {
	Cats  Categories
	Items []Item
}

func NewMemorySource(cats Categories, items []Item) *MemorySource {
	return &MemorySource{Cats: cats, Items: items}
}

func (s *MemorySource) Categories() Categories { return s.Cats }

func (s *MemorySource) Subsets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range s.Items {
		if !seen[it.Subset] {
			seen[it.Subset] = true
			out = append(out, it.Subset)
		}
	}
	return out
}

func (s *MemorySource) ItemIDs() []ItemID {
	out := make([]ItemID, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.ItemID
	}
	return out
}

func (s *MemorySource) Get(id ItemID) (Item, bool) {
	for _, it := range s.Items {
		if it.ItemID == id {
			return it, true
		}
	}
	return Item{}, false
}

// MergedItem carries the same identity as the inputs with the consensus
// annotation list.
type MergedItem struct {
	ItemID
	Annotations []Annotation
}

// Handle is the stable integer identity issued at ingest time: which
// source, which item (by position in the sorted item-id traversal) and
// which annotation within that item's list. The matcher and merger
// packages do not use it; they identify annotations by match.Member
// (source index, index within that source's per-item list), never by
// value.
type Handle struct {
	Source int
	Item   int
	Index  int
}
