package extract

import (
	"encoding/xml"
	"fmt"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/pptx"
)

// Namespaces are the namespace URIs the extraction rules match against.
type Namespaces struct {
	Presentation   string
	Drawing        string
	Relationships  string
	PowerPoint2010 string
}

// Container maps a presentation element to the asset type it produces. The
// extractor descends into every container it emits.
type Container struct {
	Local string
	Type  asset.Type
}

// Profile is one schema flavour: its namespaces and container table.
type Profile struct {
	Name       string
	NS         Namespaces
	Containers []Container
}

func defaultContainers() []Container {
	return []Container{
		{"cSld", asset.TypeSlide},
		{"bg", asset.TypeBackground},
		{"pic", asset.TypePicture},
		{"spTree", asset.TypeTree},
		{"grpSp", asset.TypeGroup},
		{"sp", asset.TypeShape},
		{"graphicFrame", asset.TypeGraphic},
		{"cxnSp", asset.TypeConnector},
		{"sldLayoutIdLst", asset.TypeLayoutList},
		{"sldIdLst", asset.TypeSlideList},
	}
}

// Transitional is the profile for packages written by PowerPoint and most
// other producers.
func Transitional() Profile {
	return Profile{
		Name: "transitional",
		NS: Namespaces{
			Presentation:   "http://schemas.openxmlformats.org/presentationml/2006/main",
			Drawing:        "http://schemas.openxmlformats.org/drawingml/2006/main",
			Relationships:  "http://schemas.openxmlformats.org/officeDocument/2006/relationships",
			PowerPoint2010: "http://schemas.microsoft.com/office/powerpoint/2010/main",
		},
		Containers: defaultContainers(),
	}
}

// Strict is the ISO/IEC 29500 strict profile.
func Strict() Profile {
	return Profile{
		Name: "strict",
		NS: Namespaces{
			Presentation:   "http://purl.oclc.org/ooxml/presentationml/main",
			Drawing:        "http://purl.oclc.org/ooxml/drawingml/main",
			Relationships:  "http://purl.oclc.org/ooxml/officeDocument/relationships",
			PowerPoint2010: "http://schemas.microsoft.com/office/powerpoint/2010/main",
		},
		Containers: defaultContainers(),
	}
}

// Profiles returns the built-in profiles, transitional first.
func Profiles() []Profile {
	return []Profile{Transitional(), Strict()}
}

// ProfileByName returns the built-in profile with the given name.
func ProfileByName(name string) (Profile, error) {
	for _, p := range Profiles() {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown schema profile %q", name)
}

func (p Profile) container(n *pptx.Node) (asset.Type, bool) {
	if n.Name.Space != p.NS.Presentation {
		return "", false
	}
	for _, c := range p.Containers {
		if c.Local == n.Name.Local {
			return c.Type, true
		}
	}
	return "", false
}

func (p Profile) pml(local string) xml.Name { return pptx.Name(p.NS.Presentation, local) }
func (p Profile) dml(local string) xml.Name { return pptx.Name(p.NS.Drawing, local) }

// selectProfile picks the profile whose presentation namespace matches the
// part's root element, falling back to the first profile.
func selectProfile(profiles []Profile, root *pptx.Node) (Profile, bool) {
	for _, p := range profiles {
		if root.Name.Space == p.NS.Presentation {
			return p, true
		}
	}
	return profiles[0], false
}
