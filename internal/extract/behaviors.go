package extract

import (
	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/pptx"
)

// attrPairs lists, per behavior parent, the two attributes rendered as
// property and value.
var attrPairs = map[string][2]string{
	asset.CategoryAnimEffect: {"transition", "filter"},
	asset.CategoryAnim:       {"calcmode", "valueType"},
	asset.CategoryAnimClr:    {"clrSpc", "dir"},
	asset.CategoryAnimMotion: {"origin", "pathEditMode"},
	asset.CategoryCmd:        {"type", "cmd"},
}

var timingElements = []string{
	asset.CategorySet,
	asset.CategoryCmd,
	asset.CategoryAnimEffect,
	asset.CategoryAnim,
	asset.CategoryAnimClr,
	asset.CategoryAnimMotion,
	asset.CategoryAnimRot,
	asset.CategoryAnimScale,
	"transition",
}

// Behaviors returns one record per common behavior element that targets a
// shape, in document order. Behaviors without a shape target are skipped.
func (e *Extractor) Behaviors(root *pptx.Node) []asset.Behavior {
	p := e.profile(root)

	var out []asset.Behavior
	for _, b := range root.Descendants(p.NS.Presentation, "cBhvr") {
		tgt := b.Path(p.pml("tgtEl"), p.pml("spTgt"))
		if len(tgt) == 0 {
			continue
		}
		spid, ok := tgt[0].AttrValue("", "spid")
		if !ok {
			continue
		}

		parent := b.Parent
		rec := asset.Behavior{TargetID: spid, Category: parent.Local()}
		switch parent.Local() {
		case asset.CategorySet:
			rec.Property, rec.Value = asset.None(), asset.None()
			if names := b.Path(p.pml("attrNameLst"), p.pml("attrName")); len(names) > 0 {
				rec.Property = asset.Literal(names[0].Text)
				if to := parent.Path(p.pml("to"), p.pml("strVal")); len(to) > 0 {
					rec.Value = asset.Optional(to[0].AttrValue("", "val"))
				}
			}
		case asset.CategoryAnimRot, asset.CategoryAnimScale:
			rec.Property, rec.Value = asset.None(), asset.None()
		default:
			pair, known := attrPairs[parent.Local()]
			if !known {
				rec.Property, rec.Value = asset.Literal("Unknown"), asset.None()
				break
			}
			rec.Property = asset.Literal(pair[0] + "_" + attrOr(parent, pair[0]))
			rec.Value = asset.Literal(pair[1] + "_" + attrOr(parent, pair[1]))
		}
		out = append(out, rec)
	}
	return out
}

// Transitions returns every slide transition in the part.
func (e *Extractor) Transitions(root *pptx.Node) []asset.Transition {
	p := e.profile(root)

	var out []asset.Transition
	for _, t := range root.Descendants(p.NS.Presentation, "transition") {
		typ := asset.Optional(t.AttrValue("", "type"))
		if typ.IsNone() && len(t.Children) > 0 {
			typ = asset.Literal(t.Children[0].Local())
		}

		dur := asset.Optional(t.AttrLocal("dur"))
		if dur.IsNone() {
			dur = asset.Optional(t.AttrValue("", "spd"))
		}
		out = append(out, asset.Transition{Type: typ, Duration: dur})
	}
	return out
}

// Consistency counts timing elements and behavior plus transition elements.
// The two usually agree; a difference is a data-quality signal only.
func (e *Extractor) Consistency(root *pptx.Node) (timing, behaviors int) {
	p := e.profile(root)

	root.Walk(func(n *pptx.Node) {
		if n == root || n.Name.Space != p.NS.Presentation {
			return
		}
		for _, local := range timingElements {
			if n.Name.Local == local {
				timing++
				break
			}
		}
		if n.Name.Local == "cBhvr" || n.Name.Local == "transition" {
			behaviors++
		}
	})
	return timing, behaviors
}

func attrOr(n *pptx.Node, name string) string {
	if v, ok := n.AttrValue("", name); ok {
		return v
	}
	return asset.NoneValue
}
