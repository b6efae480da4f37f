// Package ai summarizes slide text with a generative model.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/config"
	"github.com/gnemet/SlideGraph/internal/database"
	"github.com/gnemet/SlideGraph/internal/report"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Usage is the token accounting of one request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator answers a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, Usage, error)
	Model() string
}

// UsageRecorder stores token usage. *database.Writer satisfies it.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, u *database.AIUsage) error
}

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGemini(ctx context.Context, s config.ProviderSettings) (*Gemini, error) {
	if s.Key == "" {
		return nil, fmt.Errorf("gemini: api key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.Key))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	model := client.GenerativeModel(s.Model)
	if s.Temperature > 0 {
		model.SetTemperature(float32(s.Temperature))
	}
	if s.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(s.MaxTokens))
	}
	return &Gemini{client: client, model: model, name: s.Model}, nil
}

func (g *Gemini) Model() string { return g.name }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", Usage{}, err
	}

	var u Usage
	if m := resp.UsageMetadata; m != nil {
		u = Usage{
			PromptTokens:     int(m.PromptTokenCount),
			CompletionTokens: int(m.CandidatesTokenCount),
			TotalTokens:      int(m.TotalTokenCount),
		}
	}

	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	if b.Len() == 0 {
		return "", u, fmt.Errorf("gemini: empty response")
	}
	return strings.TrimSpace(b.String()), u, nil
}

func (g *Gemini) Close() error { return g.client.Close() }

// Client turns slide text into short summaries and records what it spent.
type Client struct {
	gen      Generator
	recorder UsageRecorder
	log      *zap.Logger
}

// NewClient wraps gen. recorder may be nil.
func NewClient(gen Generator, recorder UsageRecorder, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{gen: gen, recorder: recorder, log: log}
}

const summaryPrompt = "Summarize the following presentation slide in one or two sentences. " +
	"Reply with the summary only.\n\n"

// SummarizeText summarizes the text of one slide of pkg.
func (c *Client) SummarizeText(ctx context.Context, pkg, text string) (string, error) {
	summary, usage, err := c.gen.Generate(ctx, summaryPrompt+text)
	if c.recorder != nil && usage.TotalTokens > 0 {
		rec := &database.AIUsage{
			PackageName:      pkg,
			Model:            c.gen.Model(),
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		}
		if rerr := c.recorder.RecordUsage(ctx, rec); rerr != nil {
			c.log.Warn("failed to record ai usage", zap.String("package", pkg), zap.Error(rerr))
		}
	}
	return summary, err
}

// SlideText joins a part's Text asset values, one per line.
func SlideText(part asset.PartResult) string {
	return strings.Join(part.Texts(), "\n")
}

// Summarize summarizes every slide of res that has text. Slides whose request
// fails are left out; their errors are returned together with the rest.
func (c *Client) Summarize(ctx context.Context, res *asset.PackageResult) (report.Summaries, error) {
	out := make(report.Summaries)
	var errs error
	for _, part := range res.Parts {
		if part.Table != asset.TableSlides {
			continue
		}
		text := SlideText(part)
		if text == "" {
			continue
		}
		summary, err := c.SummarizeText(ctx, res.Name, text)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", part.Name, err))
			continue
		}
		out[part.Name] = summary
		c.log.Debug("slide summarized", zap.String("package", res.Name), zap.String("part", part.Name))
	}
	return out, errs
}
