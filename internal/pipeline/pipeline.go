// Package pipeline drives extraction over one package or a directory of
// packages and hands every result to the configured sinks.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/extract"
	"github.com/gnemet/SlideGraph/internal/metrics"
	"github.com/gnemet/SlideGraph/internal/pptx"
	"github.com/gnemet/SlideGraph/internal/table"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Package outcomes, used as the status label of the packages metric.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusSinkError = "sink_error"
)

// Sink receives every successfully extracted package.
type Sink interface {
	Consume(ctx context.Context, res *asset.PackageResult) error
	Close() error
}

type namedSink struct {
	name string
	Sink
}

type Options struct {
	Extensions []string
	SkipPrefix string
	Categories []pptx.PartSpec
}

func (o *Options) defaults() {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".pptx"}
	}
	if o.SkipPrefix == "" {
		o.SkipPrefix = "~$"
	}
	if len(o.Categories) == 0 {
		o.Categories = pptx.DefaultCategories()
	}
}

// Pipeline processes packages strictly one at a time.
type Pipeline struct {
	fs        afero.Fs
	extractor *extract.Extractor
	metrics   *metrics.Metrics
	log       *zap.Logger
	opts      Options
	sinks     []namedSink
	runID     string
}

// New creates a pipeline. A nil extractor, metrics or logger is replaced by
// a default.
func New(fsys afero.Fs, ex *extract.Extractor, m *metrics.Metrics, log *zap.Logger, opts Options) *Pipeline {
	opts.defaults()
	if ex == nil {
		ex = extract.New()
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = zap.NewNop()
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &Pipeline{
		fs:        fsys,
		extractor: ex,
		metrics:   m,
		log:       log.With(zap.String("run_id", id.String())),
		opts:      opts,
		runID:     id.String(),
	}
}

// RunID identifies this pipeline's run in logs and in the database.
func (p *Pipeline) RunID() string { return p.runID }

// Metrics returns the collectors the pipeline records into.
func (p *Pipeline) Metrics() *metrics.Metrics { return p.metrics }

// AddSink registers a sink under a name used in logs and metrics.
func (p *Pipeline) AddSink(name string, s Sink) {
	p.sinks = append(p.sinks, namedSink{name: name, Sink: s})
}

// Eligible reports whether a file name passes the extension and lock-file
// filters.
func (p *Pipeline) Eligible(path string) bool {
	base := filepath.Base(path)
	if p.opts.SkipPrefix != "" && strings.HasPrefix(base, p.opts.SkipPrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range p.opts.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Scan returns the eligible files under root, sorted.
func (p *Pipeline) Scan(root string) ([]string, error) {
	var files []string
	err := afero.Walk(p.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && p.Eligible(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ProcessPackage extracts every part of every category of one package. Any
// part that fails to parse fails the whole package.
func (p *Pipeline) ProcessPackage(ctx context.Context, path string) (*asset.PackageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := pptx.Open(p.fs, path)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	res := &asset.PackageResult{Name: pkg.Name, Path: pkg.Path, Checksum: pkg.Checksum}
	for _, spec := range p.opts.Categories {
		parts, err := pkg.Parts(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pkg.Name, err)
		}
		for _, part := range parts {
			pr := p.extractor.Part(part)
			p.observePart(pr)
			res.Parts = append(res.Parts, pr)
		}
	}
	return res, nil
}

func (p *Pipeline) observePart(pr asset.PartResult) {
	p.metrics.PartsTotal.WithLabelValues(pr.Category).Inc()
	p.metrics.BehaviorsTotal.Add(float64(len(pr.Behaviors)))
	p.metrics.UnresolvedTotal.Add(float64(pr.Unresolved()))
	if !pr.Consistent() {
		p.metrics.ConsistencyWarnings.Inc()
	}
}

// Handle processes one package and hands the result to every sink. Sink
// failures do not stop the remaining sinks; all of them are returned
// together.
func (p *Pipeline) Handle(ctx context.Context, path string) (*asset.PackageResult, error) {
	start := time.Now()
	log := p.log.With(zap.String("package", filepath.Base(path)))

	res, err := p.ProcessPackage(ctx, path)
	if err != nil {
		p.metrics.RecordPackage(StatusFailed, time.Since(start))
		log.Error("package extraction failed", zap.Error(err))
		return nil, err
	}

	for name, n := range table.FromPackage(res).Len() {
		p.metrics.RecordsTotal.WithLabelValues(name).Add(float64(n))
	}

	var sinkErr error
	for _, s := range p.sinks {
		if err := s.Consume(ctx, res); err != nil {
			p.metrics.SinkErrorsTotal.WithLabelValues(s.name).Inc()
			log.Error("sink failed", zap.String("sink", s.name), zap.Error(err))
			sinkErr = multierr.Append(sinkErr, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	status := StatusOK
	if sinkErr != nil {
		status = StatusSinkError
	}
	p.metrics.RecordPackage(status, time.Since(start))
	log.Info("package processed",
		zap.Int("parts", len(res.Parts)),
		zap.String("checksum", res.Checksum),
		zap.Duration("duration", time.Since(start)),
	)
	return res, sinkErr
}

// Summary describes one Run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Packages   int            `json:"packages"`
	Failed     []string       `json:"failed,omitempty"`
	Records    map[string]int `json:"records"`
	Behaviors  int            `json:"behaviors"`
	Unresolved int            `json:"unresolved"`
	Warnings   int            `json:"consistency_warnings"`
	Duration   time.Duration  `json:"duration"`
}

func (s *Summary) add(res *asset.PackageResult) {
	for name, n := range table.FromPackage(res).Len() {
		s.Records[name] += n
	}
	for _, pr := range res.Parts {
		s.Behaviors += len(pr.Behaviors)
		s.Unresolved += pr.Unresolved()
		if !pr.Consistent() {
			s.Warnings++
		}
	}
}

// Run processes path, which is either a single package or a directory that
// is scanned for packages. Per-package failures are recorded in the summary;
// only a failed scan or a cancelled context end the run early.
func (p *Pipeline) Run(ctx context.Context, path string) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: p.runID, Records: map[string]int{}}

	info, err := p.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pptx.ErrPackageNotFound, path)
	}

	files := []string{path}
	if info.IsDir() {
		if files, err = p.Scan(path); err != nil {
			return nil, err
		}
	}
	p.log.Info("run started", zap.String("input", path), zap.Int("packages", len(files)))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}
		res, err := p.Handle(ctx, f)
		if res == nil {
			sum.Failed = append(sum.Failed, f)
			continue
		}
		sum.Packages++
		sum.add(res)
		if err != nil {
			sum.Failed = append(sum.Failed, f)
		}
	}

	sum.Duration = time.Since(start)
	p.log.Info("run finished",
		zap.Int("packages", sum.Packages),
		zap.Int("failed", len(sum.Failed)),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// Close closes every sink and returns their combined errors.
func (p *Pipeline) Close() error {
	var err error
	for _, s := range p.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
