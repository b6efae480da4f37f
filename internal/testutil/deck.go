// Package testutil builds small presentation packages for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

const (
	nsDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
		`xmlns:p14="http://schemas.microsoft.com/office/powerpoint/2010/main"`

	relsDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`
)

// Slide wraps slide body markup in a p:sld root with the usual namespaces.
func Slide(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><p:sld ` + nsDecl + `>` + body + `</p:sld>`
}

// Rels builds a relationship part from id/target pairs.
func Rels(pairs ...string) string {
	var b bytes.Buffer
	b.WriteString(relsDecl)
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(`<Relationship Id="` + pairs[i] + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="` + pairs[i+1] + `"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

// Zip packs members into an archive, in sorted member order.
func Zip(t testing.TB, members map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(members[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteDeck stores a packed deck at path on fsys.
func WriteDeck(t testing.TB, fsys afero.Fs, path string, members map[string]string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, Zip(t, members), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SampleSlide is a slide with a titled shape, a picture, a table frame, a
// group, a timing tree and a transition.
var SampleSlide = Slide(`
<p:cSld>
  <p:spTree>
    <p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
    <p:grpSpPr/>
    <p:sp>
      <p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
      <p:spPr><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
      <p:txBody><a:bodyPr/><a:p><a:r><a:t>Hello</a:t></a:r><a:r><a:t>World</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:pic>
      <p:nvPicPr><p:cNvPr id="3" name="Picture 2"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>
      <p:blipFill><a:blip r:embed="rId3"/></p:blipFill>
      <p:spPr/>
    </p:pic>
    <p:graphicFrame>
      <p:nvGraphicFramePr><p:cNvPr id="4" name="Table 3"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>
      <a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl/></a:graphicData></a:graphic>
    </p:graphicFrame>
    <p:grpSp>
      <p:nvGrpSpPr><p:cNvPr id="5" name="Group 4"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
      <p:grpSpPr/>
      <p:sp>
        <p:nvSpPr><p:cNvPr id="6" name="Freeform 5"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
        <p:spPr><a:custGeom/></p:spPr>
      </p:sp>
    </p:grpSp>
  </p:spTree>
</p:cSld>
<p:transition spd="med" p14:dur="700"><p:fade/></p:transition>
<p:timing>
  <p:tnLst><p:par><p:cTn id="1" dur="indefinite" nodeType="tmRoot"><p:childTnLst>
    <p:set>
      <p:cBhvr>
        <p:cTn id="5" dur="1" fill="hold"/>
        <p:tgtEl><p:spTgt spid="2"/></p:tgtEl>
        <p:attrNameLst><p:attrName>style.visibility</p:attrName></p:attrNameLst>
      </p:cBhvr>
      <p:to><p:strVal val="visible"/></p:to>
    </p:set>
    <p:animEffect transition="in" filter="fade">
      <p:cBhvr>
        <p:cTn id="6" dur="500"/>
        <p:tgtEl><p:spTgt spid="3"/></p:tgtEl>
      </p:cBhvr>
    </p:animEffect>
  </p:childTnLst></p:cTn></p:par></p:tnLst>
</p:timing>`)

// SampleDeck returns the members of a small but complete presentation.
func SampleDeck() map[string]string {
	return map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"ppt/presentation.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><p:presentation ` + nsDecl + `>
  <p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
  <p:sldIdLst><p:sldId id="256" r:id="rId2"/><p:sldId id="257" r:id="rId3"/></p:sldIdLst>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": Rels("rId1", "slideMasters/slideMaster1.xml", "rId2", "slides/slide1.xml", "rId3", "slides/slide2.xml"),
		"ppt/slideMasters/slideMaster1.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><p:sldMaster ` + nsDecl + `>
  <p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld>
  <p:clrMap bg1="lt1" tx1="dk1"/>
  <p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
</p:sldMaster>`,
		"ppt/slideMasters/_rels/slideMaster1.xml.rels": Rels("rId1", "../slideLayouts/slideLayout1.xml"),
		"ppt/slideLayouts/slideLayout1.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><p:sldLayout ` + nsDecl + `>
  <p:cSld name="Title Slide"><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>
    <p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/></p:sp>
  </p:spTree></p:cSld>
</p:sldLayout>`,
		"ppt/slides/slide1.xml":            SampleSlide,
		"ppt/slides/_rels/slide1.xml.rels": Rels("rId1", "../slideLayouts/slideLayout1.xml", "rId3", "../media/image1.png"),
		"ppt/slides/slide2.xml": Slide(`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>
  <p:sp><p:nvSpPr><p:cNvPr id="2" name="Body"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
    <p:txBody><a:bodyPr/><a:p><a:r><a:t>Second</a:t></a:r></a:p></p:txBody></p:sp>
</p:spTree></p:cSld>`),
	}
}
