// Package asset holds the records produced by one extraction pass over a
// presentation package: classified assets, animation behaviors and slide
// transitions, grouped per part and per package.
package asset

// RootID is the parent id of records that hang directly off a part's root.
const RootID = "Root"

// Type classifies an asset record.
type Type string

const (
	TypeText        Type = "Text"
	TypeShape       Type = "Shape"
	TypeImage       Type = "Image"
	TypeVideo       Type = "Video"
	TypeMedia       Type = "Media"
	TypeGraphicData Type = "Graphic Data"
	TypeGraphic     Type = "Graphic"
	TypeLayout      Type = "Layout"
	TypeColorMap    Type = "ColorMap"
	TypeSlide       Type = "Slide"
	TypeTree        Type = "Tree"
	TypeGroup       Type = "Group"
	TypePicture     Type = "Picture"
	TypeConnector   Type = "Connector"
	TypeBackground  Type = "Background"
	TypeLayoutList  Type = "LayoutList"
	TypeSlideList   Type = "SlideList"
)

// Record is one classified element of a part.
type Record struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Value    Value  `json:"value"`
}

// Behavior categories, named after the behavior's structural parent element.
const (
	CategorySet        = "set"
	CategoryAnimEffect = "animEffect"
	CategoryAnim       = "anim"
	CategoryAnimClr    = "animClr"
	CategoryAnimMotion = "animMotion"
	CategoryAnimRot    = "animRot"
	CategoryAnimScale  = "animScale"
	CategoryCmd        = "cmd"

	// CategoryTransition tags transition rows in the animation table.
	CategoryTransition = "Transition"
)

// Behavior is one animation effect applied to a target shape.
type Behavior struct {
	TargetID string `json:"target_id"`
	Category string `json:"category"`
	Property Value  `json:"property"`
	Value    Value  `json:"value"`
}

// Transition is a slide transition, independent of the timing tree.
type Transition struct {
	Type     Value `json:"type"`
	Duration Value `json:"duration"`
}

// Table names the asset table a part's records are appended to.
type Table string

const (
	TableSlides       Table = "asset"
	TablePresentation Table = "presentation"
	TableLayouts      Table = "layout"
)

// PartResult is everything extracted from one XML part.
type PartResult struct {
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Category    string       `json:"category"`
	Table       Table        `json:"table"`
	Assets      []Record     `json:"assets"`
	Behaviors   []Behavior   `json:"behaviors"`
	Transitions []Transition `json:"transitions"`

	// TimingCount and BehaviorCount are the two sides of the timing-tree
	// consistency check.
	TimingCount   int `json:"timing_count"`
	BehaviorCount int `json:"behavior_count"`
}

// Consistent reports whether the timing element count matches the behavior
// plus transition count.
func (p PartResult) Consistent() bool {
	return p.TimingCount == p.BehaviorCount
}

// Unresolved counts records whose relationship reference did not resolve.
func (p PartResult) Unresolved() int {
	n := 0
	for _, r := range p.Assets {
		if r.Value.IsUnresolved() {
			n++
		}
	}
	return n
}

// PackageResult is the complete extraction of one package.
type PackageResult struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"`
	Checksum string       `json:"checksum"`
	Parts    []PartResult `json:"parts"`
}

// Part returns the part with the given name.
func (p *PackageResult) Part(name string) (PartResult, bool) {
	for _, part := range p.Parts {
		if part.Name == name {
			return part, true
		}
	}
	return PartResult{}, false
}

// Texts returns the literal values of a part's Text assets, in document order.
func (p PartResult) Texts() []string {
	var out []string
	for _, r := range p.Assets {
		if r.Type != TypeText {
			continue
		}
		if s, ok := r.Value.Get(); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
