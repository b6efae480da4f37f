package pptx

import (
	"encoding/xml"
	"io"
	"path"

	"github.com/gnemet/SlideGraph/internal/asset"
	"golang.org/x/net/html/charset"
)

// Relationships maps a part's relationship ids to their raw targets.
type Relationships map[string]string

// Lookup returns the target for id.
func (r Relationships) Lookup(id string) (string, bool) {
	target, ok := r[id]
	return target, ok
}

// Resolve turns an embed or link reference into a value. It never fails: an
// id missing from the map comes back as an unresolved value.
func Resolve(rels Relationships, id string) asset.Value {
	if target, ok := rels.Lookup(id); ok {
		return asset.Literal(target)
	}
	return asset.Unresolved()
}

// RelsPath returns the relationship part that belongs to a member, e.g.
// ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels.
func RelsPath(member string) string {
	return path.Join(path.Dir(member), "_rels", path.Base(member)+".rels")
}

// parseRelationships reads a .rels part. Relationship elements are matched by
// local name, the package relationship namespace is the same in every profile.
func parseRelationships(r io.Reader) (Relationships, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	rels := make(Relationships)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "Relationship" {
			var id, target string
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" {
				rels[id] = target
			}
		}
	}
	return rels, nil
}
