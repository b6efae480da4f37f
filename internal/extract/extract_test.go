package extract

import (
	"strings"
	"testing"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/pptx"
	"github.com/gnemet/SlideGraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func parse(t *testing.T, doc string) *pptx.Node {
	t.Helper()
	root, err := pptx.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return root
}

func sampleRels() pptx.Relationships {
	return pptx.Relationships{
		"rId1": "../slideLayouts/slideLayout1.xml",
		"rId3": "../media/image1.png",
	}
}

type row struct {
	id, parent, name string
	typ              asset.Type
	value            string
}

func rows(recs []asset.Record) []row {
	out := make([]row, 0, len(recs))
	for _, r := range recs {
		out = append(out, row{r.ID, r.ParentID, r.Name, r.Type, r.Value.String()})
	}
	return out
}

func TestAssetsSampleSlide(t *testing.T) {
	got := New().Assets(parse(t, testutil.SampleSlide), sampleRels())

	want := []row{
		{"Auto_1", "Root", "None", asset.TypeSlide, "None"},
		{"1", "Auto_1", "", asset.TypeTree, "None"},
		{"2", "1", "Title 1", asset.TypeShape, "None"},
		{"Auto_2", "2", "Text", asset.TypeText, "Hello"},
		{"Auto_3", "2", "Preset Geometry", asset.TypeShape, "rect"},
		{"3", "1", "Picture 2", asset.TypePicture, "None"},
		{"Auto_4", "3", "Unknown Geometry", asset.TypeShape, "None"},
		{"Auto_5", "3", "Blip", asset.TypeImage, "../media/image1.png"},
		{"4", "1", "Table 3", asset.TypeGraphic, "None"},
		{"Auto_6", "4", "tbl", asset.TypeGraphicData, "None"},
		{"5", "1", "Group 4", asset.TypeGroup, "None"},
		{"6", "5", "Freeform 5", asset.TypeShape, "None"},
		{"Auto_7", "6", "Custom Geometry", asset.TypeShape, "None"},
	}
	assert.Equal(t, want, rows(got))
}

func TestParentsEmittedFirst(t *testing.T) {
	for name, doc := range testutil.SampleDeck() {
		if !strings.HasSuffix(name, ".xml") || strings.Contains(name, "_rels") || strings.HasPrefix(name, "[") {
			continue
		}
		seen := map[string]bool{asset.RootID: true}
		for _, r := range New().Assets(parse(t, doc), nil) {
			assert.True(t, seen[r.ParentID], "%s: parent %q of %q not emitted before", name, r.ParentID, r.ID)
			assert.False(t, seen[r.ID] && r.ID != asset.RootID, "%s: id %q emitted twice", name, r.ID)
			seen[r.ID] = true
		}
	}
}

func TestAssetsDeterministic(t *testing.T) {
	root := parse(t, testutil.SampleSlide)
	e := New()
	assert.Equal(t, e.Assets(root, sampleRels()), e.Assets(root, sampleRels()))
}

func TestTextFirstRunOnly(t *testing.T) {
	doc := testutil.Slide(`<p:cSld><p:spTree><p:sp>
	  <p:nvSpPr><p:cNvPr id="7" name="Body"/></p:nvSpPr>
	  <p:txBody><a:p><a:r><a:t>Hello</a:t></a:r><a:r><a:t>World</a:t></a:r></a:p></p:txBody>
	</p:sp></p:spTree></p:cSld>`)

	var texts []string
	for _, r := range New().Assets(parse(t, doc), nil) {
		if r.Type == asset.TypeText {
			texts = append(texts, r.Value.String())
		}
	}
	assert.Equal(t, []string{"Hello"}, texts)
}

func TestImageUnresolved(t *testing.T) {
	got := New().Assets(parse(t, testutil.SampleSlide), pptx.Relationships{})

	var images []asset.Record
	for _, r := range got {
		if r.Type == asset.TypeImage {
			images = append(images, r)
		}
	}
	require.Len(t, images, 1)
	assert.True(t, images[0].Value.IsUnresolved())
	assert.Equal(t, "Rel not found", images[0].Value.String())
}

func TestMediaRules(t *testing.T) {
	doc := testutil.Slide(`<p:cSld><p:spTree><p:pic>
	  <p:nvPicPr><p:cNvPr id="9" name="Clip"/><p:cNvPicPr/>
	    <p:nvPr><a:videoFile r:link="rId5"/>
	      <p:extLst><p:ext uri="{DAA4B4D4-6D71-4841-9C94-3DE7FCFB9230}"><p14:media r:embed="rId6"/></p:ext></p:extLst>
	    </p:nvPr>
	  </p:nvPicPr>
	  <p:blipFill><a:blip r:embed="rId7"/></p:blipFill>
	  <p:spPr><a:prstGeom prst="rect"/></p:spPr>
	</p:pic>
	<p:sp><p:nvSpPr><p:cNvPr id="10" name="Filled"/></p:nvSpPr>
	  <p:spPr><a:blipFill><a:blip r:embed="rId8"/></a:blipFill></p:spPr>
	</p:sp></p:spTree></p:cSld>`)
	rels := pptx.Relationships{"rId5": "../media/video1.mp4", "rId6": "../media/media1.mp4", "rId7": "../media/image2.png"}

	got := rows(New().Assets(parse(t, doc), rels))
	assert.Contains(t, got, row{"Auto_4", "9", "Blip", asset.TypeImage, "../media/image2.png"})
	assert.Contains(t, got, row{"Auto_5", "9", "Video", asset.TypeVideo, "../media/video1.mp4"})
	assert.Contains(t, got, row{"Auto_6", "9", "Media", asset.TypeMedia, "../media/media1.mp4"})
	// A picture fill inside shape properties is found from the shape.
	assert.Contains(t, got, row{"Auto_8", "10", "Blip", asset.TypeImage, "Rel not found"})
}

func TestGraphicDataReference(t *testing.T) {
	doc := testutil.Slide(`<p:cSld><p:spTree><p:graphicFrame>
	  <p:nvGraphicFramePr><p:cNvPr id="4" name="Chart 3"/></p:nvGraphicFramePr>
	  <a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/chart">
	    <c:chart xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart" r:id="rId2"/>
	  </a:graphicData></a:graphic>
	</p:graphicFrame></p:spTree></p:cSld>`)

	got := rows(New().Assets(parse(t, doc), pptx.Relationships{"rId2": "../charts/chart1.xml"}))
	assert.Contains(t, got, row{"Auto_3", "4", "chart", asset.TypeGraphicData, "../charts/chart1.xml"})
}

func TestPresentationReferences(t *testing.T) {
	deck := testutil.SampleDeck()
	rels := pptx.Relationships{"rId2": "slides/slide1.xml"}

	got := rows(New().Assets(parse(t, deck["ppt/presentation.xml"]), rels))
	assert.Equal(t, []row{
		{"Auto_1", "Root", "None", asset.TypeSlideList, "None"},
		{"256", "Auto_1", "Slide", asset.TypeSlide, "slides/slide1.xml"},
		{"257", "Auto_1", "Slide", asset.TypeSlide, "Rel not found"},
	}, got)

	master := rows(New().Assets(parse(t, deck["ppt/slideMasters/slideMaster1.xml"]),
		pptx.Relationships{"rId1": "../slideLayouts/slideLayout1.xml"}))
	assert.Equal(t, []row{
		{"ClrMap_bg1", "Root", "bg1", asset.TypeColorMap, "lt1"},
		{"ClrMap_tx1", "Root", "tx1", asset.TypeColorMap, "dk1"},
		{"Auto_1", "Root", "None", asset.TypeSlide, "None"},
		{"1", "Auto_1", "", asset.TypeTree, "None"},
		{"Auto_2", "Root", "None", asset.TypeLayoutList, "None"},
		{"2147483649", "Auto_2", "Layout data", asset.TypeLayout, "../slideLayouts/slideLayout1.xml"},
	}, master)
}

func TestSynthesizedIDsSkipSchemaIDs(t *testing.T) {
	doc := testutil.Slide(`<p:cSld><p:spTree>
	  <p:nvGrpSpPr><p:cNvPr id="Auto_2" name="odd"/></p:nvGrpSpPr>
	  <p:sp><p:spPr/></p:sp>
	</p:spTree></p:cSld>`)

	got := rows(New(WithIDPrefix("Auto_")).Assets(parse(t, doc), nil))
	require.Len(t, got, 4)
	assert.Equal(t, "Auto_1", got[0].id)
	assert.Equal(t, "Auto_2", got[1].id)
	assert.Equal(t, "Auto_3", got[2].id)
	assert.Equal(t, "Auto_4", got[3].id)
}

func TestDuplicateSchemaIDLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := New(WithLogger(zap.New(core)))

	doc := testutil.Slide(`<p:cSld><p:spTree>
	  <p:nvGrpSpPr><p:cNvPr id="1" name=""/></p:nvGrpSpPr>
	  <p:sp><p:nvSpPr><p:cNvPr id="5" name="First"/></p:nvSpPr></p:sp>
	  <p:sp><p:nvSpPr><p:cNvPr id="5" name="Second"/></p:nvSpPr></p:sp>
	</p:spTree></p:cSld>`)
	res := e.Part(&pptx.Part{Name: "slide4.xml", Path: "ppt/slides/slide4.xml", Category: "slide",
		Table: asset.TableSlides, Root: parse(t, doc)})

	var ids []string
	for _, r := range res.Assets {
		if r.Type == asset.TypeShape {
			ids = append(ids, r.ID)
		}
	}
	assert.Equal(t, []string{"5", "5"}, ids)

	dups := logs.FilterMessage("duplicate schema id in part")
	require.Equal(t, 1, dups.Len())
	assert.Equal(t, "5", dups.All()[0].ContextMap()["id"])
	assert.Equal(t, "ppt/slides/slide4.xml", dups.All()[0].ContextMap()["part"])
}

func TestStrictProfile(t *testing.T) {
	strict := strings.NewReplacer(
		"http://schemas.openxmlformats.org/presentationml/2006/main", "http://purl.oclc.org/ooxml/presentationml/main",
		"http://schemas.openxmlformats.org/drawingml/2006/main", "http://purl.oclc.org/ooxml/drawingml/main",
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships", "http://purl.oclc.org/ooxml/officeDocument/relationships",
	).Replace(testutil.SampleSlide)

	e := New()
	assert.Equal(t, e.Assets(parse(t, testutil.SampleSlide), sampleRels()), e.Assets(parse(t, strict), sampleRels()))
	assert.Len(t, e.Behaviors(parse(t, strict)), 2)

	// Restricting to transitional leaves a strict part with no recognized
	// containers.
	assert.Empty(t, New(WithProfiles(Transitional())).Assets(parse(t, strict), sampleRels()))
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("strict")
	require.NoError(t, err)
	assert.Equal(t, "http://purl.oclc.org/ooxml/presentationml/main", p.NS.Presentation)

	_, err = ProfileByName("ecma")
	assert.Error(t, err)
}

func TestBehaviorsSample(t *testing.T) {
	got := New().Behaviors(parse(t, testutil.SampleSlide))
	require.Len(t, got, 2)

	assert.Equal(t, "2", got[0].TargetID)
	assert.Equal(t, "set", got[0].Category)
	assert.Equal(t, "style.visibility", got[0].Property.String())
	assert.Equal(t, "visible", got[0].Value.String())

	assert.Equal(t, "3", got[1].TargetID)
	assert.Equal(t, "animEffect", got[1].Category)
	assert.Equal(t, "transition_in", got[1].Property.String())
	assert.Equal(t, "filter_fade", got[1].Value.String())
}

func timing(inner string) string {
	return testutil.Slide(`<p:timing><p:tnLst><p:par><p:cTn id="1"><p:childTnLst>` + inner +
		`</p:childTnLst></p:cTn></p:par></p:tnLst></p:timing>`)
}

func bhvr(spid, extra string) string {
	return `<p:cBhvr><p:cTn id="2"/><p:tgtEl><p:spTgt spid="` + spid + `"/></p:tgtEl>` + extra + `</p:cBhvr>`
}

func TestBehaviorCategories(t *testing.T) {
	doc := timing(
		`<p:set>` + bhvr("4", `<p:attrNameLst><p:attrName>style.color</p:attrName></p:attrNameLst>`) +
			`<p:to><p:strVal val="red"/></p:to></p:set>` +
			`<p:set>` + bhvr("4", "") + `</p:set>` +
			`<p:anim calcmode="lin" valueType="num">` + bhvr("5", "") + `</p:anim>` +
			`<p:animClr clrSpc="rgb">` + bhvr("5", "") + `</p:animClr>` +
			`<p:animMotion origin="layout" pathEditMode="relative">` + bhvr("6", "") + `</p:animMotion>` +
			`<p:animRot by="60000">` + bhvr("6", "") + `</p:animRot>` +
			`<p:animScale>` + bhvr("6", "") + `</p:animScale>` +
			`<p:cmd type="call" cmd="playFrom(0.0)">` + bhvr("7", "") + `</p:cmd>` +
			`<p:audio>` + bhvr("8", "") + `</p:audio>` +
			`<p:animEffect>` + `<p:cBhvr><p:cTn id="3"/></p:cBhvr>` + `</p:animEffect>`,
	)

	var got [][4]string
	for _, b := range New().Behaviors(parse(t, doc)) {
		got = append(got, [4]string{b.TargetID, b.Category, b.Property.String(), b.Value.String()})
	}
	assert.Equal(t, [][4]string{
		{"4", "set", "style.color", "red"},
		{"4", "set", "None", "None"},
		{"5", "anim", "calcmode_lin", "valueType_num"},
		{"5", "animClr", "clrSpc_rgb", "dir_None"},
		{"6", "animMotion", "origin_layout", "pathEditMode_relative"},
		{"6", "animRot", "None", "None"},
		{"6", "animScale", "None", "None"},
		{"7", "cmd", "type_call", "cmd_playFrom(0.0)"},
		{"8", "audio", "Unknown", "None"},
	}, got)
}

func TestTransitions(t *testing.T) {
	doc := testutil.Slide(`<p:transition spd="slow"><p:wipe dir="r"/></p:transition>` +
		`<p:transition type="push" dur="1200"/>` +
		`<p:transition/>`)

	got := New().Transitions(parse(t, doc))
	require.Len(t, got, 3)
	assert.Equal(t, "wipe", got[0].Type.String())
	assert.Equal(t, "slow", got[0].Duration.String())
	assert.Equal(t, "push", got[1].Type.String())
	assert.Equal(t, "1200", got[1].Duration.String())
	assert.True(t, got[2].Type.IsNone())
	assert.True(t, got[2].Duration.IsNone())

	sample := New().Transitions(parse(t, testutil.SampleSlide))
	require.Len(t, sample, 1)
	assert.Equal(t, "fade", sample[0].Type.String())
	assert.Equal(t, "700", sample[0].Duration.String())
}

func TestConsistency(t *testing.T) {
	timingCount, behaviorCount := New().Consistency(parse(t, testutil.SampleSlide))
	assert.Equal(t, 3, timingCount)
	assert.Equal(t, 3, behaviorCount)

	// animScale without a common behavior unbalances the counts.
	doc := timing(`<p:cmd type="call" cmd="play">` + bhvr("2", "") + `</p:cmd><p:animScale/>`)
	timingCount, behaviorCount = New().Consistency(parse(t, doc))
	assert.Equal(t, 2, timingCount)
	assert.Equal(t, 1, behaviorCount)
}

func TestPartLogsMismatch(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := New(WithLogger(zap.New(core)))

	doc := timing(`<p:animScale/>`)
	res := e.Part(&pptx.Part{Name: "slide9.xml", Path: "ppt/slides/slide9.xml", Category: "slide",
		Table: asset.TableSlides, Root: parse(t, doc)})

	assert.False(t, res.Consistent())
	assert.Empty(t, res.Behaviors)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "animation count mismatch", entry.Message)
	assert.Equal(t, "ppt/slides/slide9.xml", entry.ContextMap()["part"])
}

func TestPartSample(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := New(WithLogger(zap.New(core)))

	res := e.Part(&pptx.Part{Name: "slide1.xml", Path: "ppt/slides/slide1.xml", Category: "slide",
		Table: asset.TableSlides, Root: parse(t, testutil.SampleSlide), Rels: sampleRels()})

	assert.True(t, res.Consistent())
	assert.Equal(t, 0, logs.Len())
	assert.Len(t, res.Assets, 13)
	assert.Len(t, res.Behaviors, 2)
	assert.Len(t, res.Transitions, 1)
	assert.Equal(t, []string{"Hello"}, res.Texts())
	assert.Equal(t, 0, res.Unresolved())
}

func TestSequence(t *testing.T) {
	gen := Sequence("x")
	assert.Equal(t, "x1", gen())
	assert.Equal(t, "x2", gen())
	assert.Equal(t, "x1", Sequence("x")())
}
