package hierarchy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/table"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FromRows rebuilds documents from a flat asset export, grouped by package
// and then by part, both in first-seen order.
func FromRows(rows []table.AssetRow, opts ...Option) Ordered[Document] {
	var pkgs Ordered[*Ordered[[]asset.Record]]
	for _, r := range rows {
		parts, ok := pkgs.Get(r.PackageName)
		if !ok {
			parts = &Ordered[[]asset.Record]{}
			pkgs.Set(r.PackageName, parts)
		}
		recs, _ := parts.Get(r.PartName)
		parts.Set(r.PartName, append(recs, r.Record))
	}

	var out Ordered[Document]
	for _, pkg := range pkgs.Keys() {
		parts, _ := pkgs.Get(pkg)
		var doc Document
		for _, part := range parts.Keys() {
			recs, _ := parts.Get(part)
			doc.Set(part, Prune(Build(recs, opts...)))
		}
		out.Set(pkg, doc)
	}
	return out
}

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown hierarchy format %q", format)
}

// Sink writes one hierarchy document per package to <dir>/<package>.<format>.
type Sink struct {
	fs     afero.Fs
	dir    string
	format string
	opts   []Option
}

func NewSink(fsys afero.Fs, dir, format string, opts ...Option) (*Sink, error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unknown hierarchy format %q", format)
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Sink{fs: fsys, dir: dir, format: format, opts: opts}, nil
}

// Path returns the file a package's document is written to.
func (s *Sink) Path(pkg string) string {
	base := strings.TrimSuffix(pkg, filepath.Ext(pkg))
	return filepath.Join(s.dir, base+"."+s.format)
}

func (s *Sink) Consume(_ context.Context, res *asset.PackageResult) error {
	f, err := s.fs.Create(s.Path(res.Name))
	if err != nil {
		return err
	}
	if err := Encode(f, s.format, BuildDocument(res, s.opts...)); err != nil {
		f.Close()
		return fmt.Errorf("encode hierarchy of %s: %w", res.Name, err)
	}
	return f.Close()
}

func (s *Sink) Close() error { return nil }
