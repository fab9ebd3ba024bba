// internal/summarize/summarize.go
// Package summarize turns raw content units into retrieval summaries with a
// per-element fallback and bounded concurrency.
package summarize

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/logging"
)

// Sentinel replaces the summary of any element whose summarization failed.
const Sentinel = "Error processing document"

// Summarizer produces a retrieval summary for one raw content unit.
type Summarizer interface {
	Summarize(ctx context.Context, kind content.Kind, raw string) (string, error)
}

// Func adapts a function to the Summarizer interface.
type Func func(ctx context.Context, kind content.Kind, raw string) (string, error)

// Summarize calls f.
func (f Func) Summarize(ctx context.Context, kind content.Kind, raw string) (string, error) {
	return f(ctx, kind, raw)
}

// Options tunes a single Batch call.
type Options struct {
	// Concurrency bounds in-flight calls; values below 1 mean 1.
	Concurrency int
	// OnProgress, when set, is called after each element completes.
	OnProgress func(done, total int)
}

// Batch summarizes raws independently and returns summaries in input order.
// A failed element yields Sentinel at its position. Cancellation of ctx, or a
// summarizer reporting context.Canceled, aborts the batch and returns the error.
func Batch(ctx context.Context, s Summarizer, kind content.Kind, raws []string, opts Options) ([]string, error) {
	if len(raws) == 0 {
		return []string{}, nil
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	out := make([]string, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		progressMu sync.Mutex
		done       int
	)

	for i, raw := range raws {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary, err := s.Summarize(gctx, kind, raw)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return err
				}
				logging.LogWarn("summarization failed, using sentinel",
					zap.String("kind", kind.String()),
					zap.Int("index", i),
					zap.Error(err))
				summary = Sentinel
			}
			out[i] = summary

			if opts.OnProgress != nil {
				progressMu.Lock()
				done++
				opts.OnProgress(done, len(raws))
				progressMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Config carries the build-time summarization toggles.
type Config struct {
	SummarizeTexts  bool
	SummarizeTables bool
	Concurrency     int
}

// Result holds summaries aligned index for index with the corpus groups.
type Result struct {
	TextSummaries  []string
	TableSummaries []string
	ImageSummaries []string
}

// Progress reports per-kind batch progress.
type Progress func(kind content.Kind, done, total int)

// Corpus summarizes every group of c. Disabled text or table groups pass their
// raw contents through unchanged without calling s.
func Corpus(ctx context.Context, s Summarizer, c content.Corpus, cfg Config, progress Progress) (Result, error) {
	var res Result
	var err error

	run := func(kind content.Kind, raws []string) ([]string, error) {
		opts := Options{Concurrency: cfg.Concurrency}
		if progress != nil {
			opts.OnProgress = func(done, total int) { progress(kind, done, total) }
		}
		return Batch(ctx, s, kind, raws, opts)
	}

	if cfg.SummarizeTexts {
		if res.TextSummaries, err = run(content.KindText, c.Texts); err != nil {
			return Result{}, err
		}
	} else {
		res.TextSummaries = passThrough(c.Texts)
	}

	if cfg.SummarizeTables {
		if res.TableSummaries, err = run(content.KindTable, c.Tables); err != nil {
			return Result{}, err
		}
	} else {
		res.TableSummaries = passThrough(c.Tables)
	}

	if res.ImageSummaries, err = run(content.KindImage, c.Images); err != nil {
		return Result{}, err
	}
	return res, nil
}

func passThrough(raws []string) []string {
	out := make([]string, len(raws))
	copy(out, raws)
	return out
}
