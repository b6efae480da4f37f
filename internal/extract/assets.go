// Package extract classifies the elements of a presentation part into asset
// records, animation behaviors and transitions.
package extract

import (
	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/pptx"
	"go.uber.org/zap"
)

// Extractor runs extraction passes. It holds no per-pass state and is safe to
// reuse across parts.
type Extractor struct {
	profiles []Profile
	idPrefix string
	log      *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProfiles replaces the schema profiles. The first one is the fallback for
// parts whose root namespace matches none.
func WithProfiles(profiles ...Profile) Option {
	return func(e *Extractor) {
		if len(profiles) > 0 {
			e.profiles = profiles
		}
	}
}

// WithIDPrefix sets the prefix of synthesized ids.
func WithIDPrefix(prefix string) Option {
	return func(e *Extractor) {
		if prefix != "" {
			e.idPrefix = prefix
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(e *Extractor) {
		if log != nil {
			e.log = log
		}
	}
}

// New returns an Extractor with the built-in profiles.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		profiles: Profiles(),
		idPrefix: DefaultIDPrefix,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) profile(root *pptx.Node) Profile {
	p, ok := selectProfile(e.profiles, root)
	if !ok {
		e.log.Debug("no profile for root namespace, using fallback",
			zap.String("namespace", root.Name.Space), zap.String("profile", p.Name))
	}
	return p
}

// frame is one pending element of the asset walk.
type frame struct {
	node      *pptx.Node
	parentID  string
	container asset.Type // empty for the part root
}

// walker carries the state of one extraction pass.
type walker struct {
	p    Profile
	rels pptx.Relationships
	ids  *idSet
	log  *zap.Logger
	out  []asset.Record
}

// Assets classifies root and every nested container into asset records, in
// document order. A container's record precedes the records of its subtree,
// so every parent id is Root or an id emitted earlier.
func (e *Extractor) Assets(root *pptx.Node, rels pptx.Relationships) []asset.Record {
	return e.assets(root, rels, e.log)
}

func (e *Extractor) assets(root *pptx.Node, rels pptx.Relationships, log *zap.Logger) []asset.Record {
	w := &walker{
		p:    e.profile(root),
		rels: rels,
		ids:  newIDSet(Sequence(e.idPrefix)),
		log:  log,
	}

	stack := []frame{{node: root, parentID: asset.RootID}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parentID := f.parentID
		if f.container != "" {
			parentID = w.emitContainer(f)
		}
		w.applyRules(f.node, parentID)

		var children []frame
		for _, c := range f.node.Children {
			if typ, ok := w.p.container(c); ok {
				children = append(children, frame{node: c, parentID: parentID, container: typ})
			}
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return w.out
}

func (w *walker) emit(id, parentID, name string, typ asset.Type, v asset.Value) {
	w.out = append(w.out, asset.Record{ID: id, ParentID: parentID, Name: name, Type: typ, Value: v})
}

// emitContainer records a container and returns the id its subtree hangs off.
func (w *walker) emitContainer(f frame) string {
	id, name := "", asset.NoneValue
	if ident := f.node.Path(pptx.Any, w.p.pml("cNvPr")); len(ident) > 0 {
		if v, ok := ident[0].AttrValue("", "id"); ok && v != "" {
			id = w.claim(v)
		}
		if v, ok := ident[0].AttrValue("", "name"); ok {
			name = v
		}
	}
	if id == "" {
		id = w.ids.next()
	}
	w.emit(id, f.parentID, name, f.container, asset.None())
	return id
}

func (w *walker) applyRules(n *pptx.Node, parentID string) {
	w.text(n, parentID)
	w.geometry(n, parentID)
	w.media(n, parentID)
	w.graphicData(n, parentID)
	w.references(n, parentID)
}

func (w *walker) text(n *pptx.Node, parentID string) {
	for _, body := range n.ChildrenNamed(w.p.NS.Presentation, "txBody") {
		runs := body.Path(pptx.Any, w.p.dml("r"), w.p.dml("t"))
		if len(runs) == 0 {
			continue
		}
		// Only the first run is kept.
		w.emit(w.ids.next(), parentID, "Text", asset.TypeText, asset.Literal(runs[0].Text))
	}
}

func (w *walker) geometry(n *pptx.Node, parentID string) {
	for _, spPr := range n.ChildrenNamed(w.p.NS.Presentation, "spPr") {
		name, v := "Unknown Geometry", asset.None()
		if g := spPr.Child(w.p.NS.Drawing, "prstGeom"); g != nil {
			prst, ok := g.AttrValue("", "prst")
			name, v = "Preset Geometry", asset.Optional(prst, ok)
		} else if spPr.Child(w.p.NS.Drawing, "custGeom") != nil {
			name = "Custom Geometry"
		}
		w.emit(w.ids.next(), parentID, name, asset.TypeShape, v)
	}
}

func (w *walker) media(n *pptx.Node, parentID string) {
	blips := n.Path(w.p.pml("blipFill"), w.p.dml("blip"))
	blips = append(blips, n.Path(pptx.Any, w.p.dml("blipFill"), w.p.dml("blip"))...)
	for _, b := range blips {
		w.emit(w.ids.next(), parentID, "Blip", asset.TypeImage, w.resolve(b, "embed"))
	}

	videos := n.Path(pptx.Any, pptx.Any, w.p.dml("videoFile"))
	videos = append(videos, n.Path(pptx.Any, w.p.dml("videoFile"))...)
	for _, v := range videos {
		w.emit(w.ids.next(), parentID, "Video", asset.TypeVideo, w.resolve(v, "link"))
	}

	media := n.Path(pptx.Any, pptx.Any, w.p.pml("extLst"), pptx.Any,
		pptx.Name(w.p.NS.PowerPoint2010, "media"))
	for _, m := range media {
		w.emit(w.ids.next(), parentID, "Media", asset.TypeMedia, w.resolve(m, "embed"))
	}
}

func (w *walker) graphicData(n *pptx.Node, parentID string) {
	containers := n.ChildrenNamed(w.p.NS.Drawing, "graphicData")
	containers = append(containers, n.Path(w.p.dml("graphic"), w.p.dml("graphicData"))...)
	for _, gd := range containers {
		for _, c := range gd.Children {
			v := asset.None()
			if _, ok := c.AttrValue(w.p.NS.Relationships, "id"); ok {
				v = w.resolve(c, "id")
			} else if _, ok := c.AttrValue(w.p.NS.Relationships, "embed"); ok {
				v = w.resolve(c, "embed")
			}
			w.emit(w.ids.next(), parentID, c.Local(), asset.TypeGraphicData, v)
		}
	}
}

// references emits layout ids, slide ids and color map entries under their
// schema identifiers so other parts can join on them.
func (w *walker) references(n *pptx.Node, parentID string) {
	for _, l := range n.ChildrenNamed(w.p.NS.Presentation, "sldLayoutId") {
		w.emit(w.schemaID(l), parentID, "Layout data", asset.TypeLayout, w.resolve(l, "id"))
	}

	for _, m := range n.ChildrenNamed(w.p.NS.Presentation, "clrMap") {
		for _, a := range m.Attrs {
			if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
				continue
			}
			w.emit(w.claim("ClrMap_"+a.Name.Local), parentID, a.Name.Local, asset.TypeColorMap, asset.Literal(a.Value))
		}
	}

	for _, s := range n.ChildrenNamed(w.p.NS.Presentation, "sldId") {
		w.emit(w.schemaID(s), parentID, "Slide", asset.TypeSlide, w.resolve(s, "id"))
	}
}

// claim keeps a schema-provided id even when the part repeats it, since
// behaviors and other parts refer to it. A repeat is logged: the rebuilt
// hierarchy keeps only the last record with that id.
func (w *walker) claim(id string) string {
	if _, dup := w.ids.claim(id); dup {
		w.log.Warn("duplicate schema id in part", zap.String("id", id))
	}
	return id
}

func (w *walker) schemaID(n *pptx.Node) string {
	if id, ok := n.AttrValue("", "id"); ok && id != "" {
		return w.claim(id)
	}
	return w.ids.next()
}

// resolve looks up the relationship id held in the r:<attr> attribute. A
// missing attribute resolves like an unknown id.
func (w *walker) resolve(n *pptx.Node, attr string) asset.Value {
	id, _ := n.AttrValue(w.p.NS.Relationships, attr)
	return pptx.Resolve(w.rels, id)
}
