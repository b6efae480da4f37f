package hierarchy

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/table"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func rec(id, parent string, typ asset.Type, v asset.Value) asset.Record {
	return asset.Record{ID: id, ParentID: parent, Name: id, Type: typ, Value: v}
}

func child(t *testing.T, f Forest, ids ...string) *Node {
	t.Helper()
	n, ok := f.Get(ids[0])
	require.True(t, ok, "no top-level node %s", ids[0])
	for _, id := range ids[1:] {
		n, ok = n.Children.Get(id)
		require.True(t, ok, "no child %s", id)
	}
	return n
}

func TestBuildNestsUnderParent(t *testing.T) {
	f := Build([]asset.Record{
		rec("A", asset.RootID, asset.TypeSlide, asset.None()),
		rec("B", "A", asset.TypeText, asset.Literal("X")),
	})
	require.Equal(t, []string{"A"}, f.Keys())
	assert.Equal(t, "X", child(t, f, "A", "B").Value.String())

	pruned := Prune(f)
	assert.Equal(t, []string{"A"}, pruned.Keys())
	assert.Equal(t, []string{"B"}, child(t, pruned, "A").Children.Keys())
}

func TestBuildDeepAndOrphans(t *testing.T) {
	f := Build([]asset.Record{
		rec("1", asset.RootID, asset.TypeTree, asset.None()),
		rec("2", "1", asset.TypeGroup, asset.None()),
		rec("3", "2", asset.TypeShape, asset.None()),
		rec("4", "3", asset.TypeText, asset.Literal("deep")),
		rec("5", "missing", asset.TypeText, asset.Literal("orphan")),
	})
	assert.Equal(t, []string{"1", "5"}, f.Keys())
	assert.Equal(t, "deep", child(t, f, "1", "2", "3", "4").Value.String())
}

func TestBuildReusedID(t *testing.T) {
	f := Build([]asset.Record{
		rec("A", asset.RootID, asset.TypeSlide, asset.None()),
		rec("B", asset.RootID, asset.TypeSlide, asset.None()),
		rec("A", asset.RootID, asset.TypeText, asset.Literal("second")),
	})
	assert.Equal(t, []string{"A", "B"}, f.Keys())
	assert.Equal(t, "second", child(t, f, "A").Value.String())
}

func TestPruneLaw(t *testing.T) {
	f := Build([]asset.Record{
		rec("S", asset.RootID, asset.TypeSlide, asset.None()),
		rec("T", "S", asset.TypeTree, asset.None()),
		rec("E1", "T", asset.TypeShape, asset.None()),
		rec("E2", "E1", asset.TypeShape, asset.None()),
		rec("K", "T", asset.TypeShape, asset.None()),
		rec("KV", "K", asset.TypeImage, asset.Unresolved()),
		rec("V", "S", asset.TypeText, asset.Literal("")),
		rec("Lone", asset.RootID, asset.TypeBackground, asset.None()),
	})

	p := Prune(f)
	assert.Equal(t, []string{"S"}, p.Keys())
	assert.Equal(t, []string{"T", "V"}, child(t, p, "S").Children.Keys())
	assert.Equal(t, []string{"K"}, child(t, p, "S", "T").Children.Keys())
	assert.True(t, child(t, p, "S", "T", "K", "KV").Value.IsUnresolved())

	// Input is not modified.
	assert.Equal(t, []string{"S", "Lone"}, f.Keys())
	assert.Equal(t, []string{"E1", "K"}, child(t, f, "S", "T").Children.Keys())

	// Every retained node has a value or a retained child.
	var check func(nodes []*Node)
	check = func(nodes []*Node) {
		for _, n := range nodes {
			assert.True(t, !n.Value.IsNone() || n.Children.Len() > 0, "node %s retained without content", n.ID)
			check(n.Children.Values())
		}
	}
	check(p.Values())
}

func TestMediaBase(t *testing.T) {
	f := Build([]asset.Record{
		rec("m", asset.RootID, asset.TypeMedia, asset.Literal("../media/media1.mp4")),
		rec("u", asset.RootID, asset.TypeMedia, asset.Unresolved()),
		rec("i", asset.RootID, asset.TypeImage, asset.Literal("../media/image1.png")),
	}, WithMediaBase("media_files"))

	assert.Equal(t, "media/media1.mp4", child(t, f, "m").Value.String())
	assert.True(t, child(t, f, "u").Value.IsUnresolved())
	assert.Equal(t, "../media/image1.png", child(t, f, "i").Value.String())
}

func TestJSONShape(t *testing.T) {
	f := Build([]asset.Record{
		{ID: "A", ParentID: asset.RootID, Name: "None", Type: asset.TypeSlide, Value: asset.None()},
		{ID: "C", ParentID: "A", Name: "Text", Type: asset.TypeText, Value: asset.Literal("X")},
		{ID: "B", ParentID: "A", Name: "Blip", Type: asset.TypeImage, Value: asset.Unresolved()},
	})

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t,
		`{"A":{"asset_id":"A","asset_name":"None","asset_type":"Slide","asset_value":"None","children":{`+
			`"C":{"asset_id":"C","asset_name":"Text","asset_type":"Text","asset_value":"X","children":{}},`+
			`"B":{"asset_id":"B","asset_name":"Blip","asset_type":"Image","asset_value":"Rel not found","children":{}}}}}`,
		string(data))
}

func TestYAMLKeepsOrder(t *testing.T) {
	var doc Document
	doc.Set("slide2.xml", Build([]asset.Record{rec("z", asset.RootID, asset.TypeText, asset.Literal("b"))}))
	doc.Set("slide1.xml", Build([]asset.Record{rec("a", asset.RootID, asset.TypeText, asset.Literal("a"))}))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, doc))
	out := buf.String()
	assert.Less(t, strings.Index(out, "slide2.xml"), strings.Index(out, "slide1.xml"))

	var back map[string]map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "b", back["slide2.xml"]["z"]["asset_value"])
}

func TestFromRows(t *testing.T) {
	rows := []table.AssetRow{
		{PackageName: "a.pptx", PartName: "slide1.xml", Record: rec("1", asset.RootID, asset.TypeTree, asset.None())},
		{PackageName: "a.pptx", PartName: "slide1.xml", Record: rec("2", "1", asset.TypeText, asset.Literal("hi"))},
		{PackageName: "a.pptx", PartName: "slide2.xml", Record: rec("1", asset.RootID, asset.TypeTree, asset.None())},
		{PackageName: "b.pptx", PartName: "slide1.xml", Record: rec("9", asset.RootID, asset.TypeText, asset.Literal("b"))},
	}

	docs := FromRows(rows)
	assert.Equal(t, []string{"a.pptx", "b.pptx"}, docs.Keys())

	a, _ := docs.Get("a.pptx")
	assert.Equal(t, []string{"slide1.xml", "slide2.xml"}, a.Keys())
	s1, _ := a.Get("slide1.xml")
	assert.Equal(t, "hi", child(t, s1, "1", "2").Value.String())
	s2, _ := a.Get("slide2.xml")
	assert.Equal(t, 0, s2.Len())
}

func TestLiteralNonePrunedLikeExport(t *testing.T) {
	res := &asset.PackageResult{Name: "a.pptx", Parts: []asset.PartResult{{
		Name:  "slide1.xml",
		Table: asset.TableSlides,
		Assets: []asset.Record{
			rec("S", asset.RootID, asset.TypeSlide, asset.None()),
			rec("T", "S", asset.TypeText, asset.Literal("None")),
			rec("U", "S", asset.TypeText, asset.Literal("kept")),
		},
	}}}

	fsys := afero.NewMemMapFs()
	w, err := table.NewCSVWriter(fsys, "/out")
	require.NoError(t, err)
	require.NoError(t, w.Write(table.FromPackage(res)))
	require.NoError(t, w.Close())
	rows, err := table.ReadAssetsFile(fsys, "/out/asset.csv")
	require.NoError(t, err)

	live, _ := BuildDocument(res).Get("slide1.xml")
	doc, _ := FromRows(rows).Get("a.pptx")
	exported, _ := doc.Get("slide1.xml")

	assert.Equal(t, []string{"U"}, child(t, live, "S").Children.Keys())
	assert.Equal(t, []string{"U"}, child(t, exported, "S").Children.Keys())
}

func TestSink(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s, err := NewSink(fsys, "/out/hierarchy", FormatJSON)
	require.NoError(t, err)

	res := &asset.PackageResult{Name: "deck.pptx", Parts: []asset.PartResult{{
		Name: "slide1.xml",
		Assets: []asset.Record{
			rec("A", asset.RootID, asset.TypeSlide, asset.None()),
			rec("B", "A", asset.TypeText, asset.Literal("X")),
			rec("C", "A", asset.TypeShape, asset.None()),
		},
	}}}
	require.NoError(t, s.Consume(context.Background(), res))
	require.NoError(t, s.Close())

	data, err := afero.ReadFile(fsys, "/out/hierarchy/deck.json")
	require.NoError(t, err)

	var got map[string]map[string]struct {
		Children map[string]json.RawMessage `json:"children"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Contains(t, got, "slide1.xml")
	assert.Len(t, got["slide1.xml"]["A"].Children, 1)

	_, err = NewSink(fsys, "/out", "xml")
	assert.Error(t, err)
}
