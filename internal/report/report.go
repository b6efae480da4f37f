// Package report renders a package's extraction as a Markdown outline and as
// sanitized HTML.
package report

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/hierarchy"
	"github.com/gnemet/SlideGraph/internal/table"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Summaries maps part names to a short prose summary.
type Summaries map[string]string

// Markdown writes the outline of one package: every part's pruned hierarchy,
// its summary if any, and the package's animation rows.
func Markdown(res *asset.PackageResult, summaries Summaries, opts ...hierarchy.Option) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", escape(res.Name))
	fmt.Fprintf(&b, "Checksum `%s`, %d parts.\n\n", res.Checksum, len(res.Parts))

	for _, part := range res.Parts {
		fmt.Fprintf(&b, "## %s\n\n", escape(part.Name))
		fmt.Fprintf(&b, "*%s*, %d assets, %d behaviors, %d transitions.\n\n",
			part.Category, len(part.Assets), len(part.Behaviors), len(part.Transitions))
		if !part.Consistent() {
			fmt.Fprintf(&b, "> Timing tree has %d elements but %d behaviors were found.\n\n", part.TimingCount, part.BehaviorCount)
		}
		if s := summaries[part.Name]; s != "" {
			fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(s), "\n", " "))
		}

		forest := hierarchy.Prune(hierarchy.Build(part.Assets, opts...))
		for _, n := range forest.Values() {
			writeNode(&b, n, 0)
		}
		if forest.Len() > 0 {
			b.WriteString("\n")
		}
	}

	anims := table.FromPackage(res).Animations
	if len(anims) > 0 {
		b.WriteString("## Animations\n\n")
		b.WriteString("| Part | Target | Category | Property | Value |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, a := range anims {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(a.PartName), cell(a.TargetID), cell(a.Category), cell(a.Property.String()), cell(a.Value.String()))
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func writeNode(b *bytes.Buffer, n *hierarchy.Node, depth int) {
	name := n.Name
	if name == "" {
		name = n.ID
	}
	fmt.Fprintf(b, "%s- **%s** (%s `%s`)", strings.Repeat("  ", depth), escape(name), n.Type, n.ID)
	if !n.Value.IsNone() {
		fmt.Fprintf(b, ": %s", escape(n.Value.String()))
	}
	b.WriteString("\n")
	for _, c := range n.Children.Values() {
		writeNode(b, c, depth+1)
	}
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escape(s string) string { return mdEscaper.Replace(s) }

func cell(s string) string { return strings.ReplaceAll(escape(s), "|", `\|`) }

var policy = bluemonday.UGCPolicy()

// HTML renders Markdown and strips anything unsafe from the result.
func HTML(md []byte) []byte {
	return policy.SanitizeBytes(blackfriday.Run(md))
}

// Summarizer produces one summary per slide of a package.
type Summarizer interface {
	Summarize(ctx context.Context, res *asset.PackageResult) (Summaries, error)
}

// Sink writes <dir>/<package>.md and <dir>/<package>.html for every package.
type Sink struct {
	fs         afero.Fs
	dir        string
	summarizer Summarizer
	opts       []hierarchy.Option
	log        *zap.Logger
}

// NewSink creates the report directory. summarizer may be nil.
func NewSink(fsys afero.Fs, dir string, summarizer Summarizer, log *zap.Logger, opts ...hierarchy.Option) (*Sink, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{fs: fsys, dir: dir, summarizer: summarizer, opts: opts, log: log}, nil
}

// Path returns the report file of a package with the given extension.
func (s *Sink) Path(pkg, ext string) string {
	return filepath.Join(s.dir, strings.TrimSuffix(pkg, filepath.Ext(pkg))+ext)
}

func (s *Sink) Consume(ctx context.Context, res *asset.PackageResult) error {
	var summaries Summaries
	if s.summarizer != nil {
		var err error
		summaries, err = s.summarizer.Summarize(ctx, res)
		if err != nil {
			// The report is still useful without summaries.
			s.log.Warn("slide summaries failed", zap.String("package", res.Name), zap.Error(err))
		}
	}

	md := Markdown(res, summaries, s.opts...)
	if err := afero.WriteFile(s.fs, s.Path(res.Name, ".md"), md, 0644); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.Path(res.Name, ".html"), HTML(md), 0644)
}

func (s *Sink) Close() error { return nil }
