package pptx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/spf13/afero"
)

// PartSpec selects the members of one logical part category by directory and
// basename prefix. Members always end in .xml.
type PartSpec struct {
	Category string
	Dir      string
	Prefix   string
	Table    asset.Table
}

// DefaultCategories returns the four part categories of a presentation
// package, in processing order.
func DefaultCategories() []PartSpec {
	return []PartSpec{
		{Category: "presentation", Dir: "ppt/", Prefix: "presentation", Table: asset.TablePresentation},
		{Category: "slideMaster", Dir: "ppt/slideMasters/", Prefix: "slideMaster", Table: asset.TablePresentation},
		{Category: "slideLayout", Dir: "ppt/slideLayouts/", Prefix: "slideLayout", Table: asset.TableLayouts},
		{Category: "slide", Dir: "ppt/slides/", Prefix: "slide", Table: asset.TableSlides},
	}
}

func (s PartSpec) matches(name string) bool {
	if !strings.HasPrefix(name, s.Dir+s.Prefix) || !strings.HasSuffix(name, ".xml") {
		return false
	}
	// Only direct members of Dir, never _rels or nested folders.
	return path.Dir(name)+"/" == s.Dir
}

// Part is one parsed XML member with its relationship map.
type Part struct {
	Name     string // relative to the category directory, e.g. slide1.xml
	Path     string // full member path, e.g. ppt/slides/slide1.xml
	Category string
	Table    asset.Table
	Root     *Node
	Rels     Relationships
}

// Package is an opened presentation package.
type Package struct {
	Name     string
	Path     string
	Checksum string

	file    afero.File
	members map[string]*zip.File
	order   []string
}

// Open opens a package through fsys and indexes its members.
func Open(fsys afero.Fs, pptxPath string) (*Package, error) {
	f, err := fsys.Open(pptxPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pptxPath)
		}
		return nil, fmt.Errorf("open %s: %w", pptxPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", pptxPath, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrPackageCorrupt, pptxPath)
	}

	sum, err := Checksum(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", pptxPath, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrPackageCorrupt, pptxPath, err)
	}

	p := &Package{
		Name:     filepath.Base(pptxPath),
		Path:     pptxPath,
		Checksum: sum,
		file:     f,
		members:  make(map[string]*zip.File, len(zr.File)),
	}
	for _, zf := range zr.File {
		p.members[zf.Name] = zf
		p.order = append(p.order, zf.Name)
	}
	return p, nil
}

// Checksum returns the xxhash64 of r's content as 16 hex digits.
func Checksum(r io.Reader) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// FileChecksum is Checksum over a file on fsys.
func FileChecksum(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Checksum(f)
}

// Close releases the underlying file.
func (p *Package) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// Members returns the member names in archive order.
func (p *Package) Members() []string {
	return append([]string(nil), p.order...)
}

// Parts parses every member of a category together with its relationship
// map. A category with no members yields no parts and no error.
func (p *Package) Parts(spec PartSpec) ([]*Part, error) {
	var names []string
	for _, name := range p.order {
		if spec.matches(name) {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := memberNumber(names[i], spec.Prefix), memberNumber(names[j], spec.Prefix)
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	parts := make([]*Part, 0, len(names))
	for _, name := range names {
		root, err := p.parseMember(name)
		if err != nil {
			return nil, &PartError{Part: name, Err: err}
		}

		rels := make(Relationships)
		relsName := RelsPath(name)
		if _, ok := p.members[relsName]; ok {
			rels, err = p.parseRels(relsName)
			if err != nil {
				return nil, &PartError{Part: relsName, Err: err}
			}
		}

		parts = append(parts, &Part{
			Name:     strings.TrimPrefix(name, spec.Dir),
			Path:     name,
			Category: spec.Category,
			Table:    spec.Table,
			Root:     root,
			Rels:     rels,
		})
	}
	return parts, nil
}

// ReadMember parses an arbitrary member as XML.
func (p *Package) ReadMember(name string) (*Node, error) {
	if _, ok := p.members[name]; !ok {
		return nil, fmt.Errorf("member %s not found in %s", name, p.Name)
	}
	return p.parseMember(name)
}

func (p *Package) parseMember(name string) (*Node, error) {
	rc, err := p.members[name].Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Parse(rc)
}

func (p *Package) parseRels(name string) (Relationships, error) {
	rc, err := p.members[name].Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parseRelationships(rc)
}

// memberNumber extracts N from <dir>/<prefix>N.xml; members without a number
// sort first.
func memberNumber(name, prefix string) int {
	numStr := strings.TrimSuffix(strings.TrimPrefix(path.Base(name), prefix), ".xml")
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return -1
	}
	return n
}
