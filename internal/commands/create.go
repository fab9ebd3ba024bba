// internal/commands/create.go
package mmrag

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/extract"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/rag"
	"github.com/mwiater/mmrag/internal/summarize"
	"github.com/mwiater/mmrag/internal/tui"
)

var createNoProgress bool

// createCmd extracts, summarizes and indexes a directory of documents.
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Build a multi-vector index from a files directory",
	Long: `Extract text chunks, tables and images from --fdir, summarize them with the
configured models, and save the summary index and raw contents to --storage.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		sess, err := openSession(GetConfig(), 0)
		if err != nil {
			return err
		}
		defer sess.Close()

		progressOut := cmd.ErrOrStderr()
		reporter := tui.NewReporter(progressOut, "Building index", tui.BuildStages,
			!createNoProgress && tui.Interactive(progressOut), cancel)
		reporter.Start()

		summary, err := runCreate(ctx, sess, reporter)
		reporter.Finish(err)
		if err != nil {
			logging.LogEvent("create failed (%s): %v", rag.Classify(err), err)
			return err
		}
		printCreateSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

// createSummary reports what a build produced.
type createSummary struct {
	Report     extract.Report
	Stats      rag.Stats
	StorageDir string
}

// progressSink receives stage progress during a build.
type progressSink interface {
	Progress(stage string, done, total int)
}

// runCreate performs extraction, summarization, indexing and persistence.
func runCreate(ctx context.Context, sess *session, progress progressSink) (createSummary, error) {
	cfg := sess.cfg

	ex := extract.New(cfg.FilesDir, cfg.ImagesDir, extract.Options{
		Workers: runtime.NumCPU(),
		OnFile:  func(done, total int) { progress.Progress(tui.StageExtract, done, total) },
	})
	corpus, report, err := ex.Extract(ctx)
	if err != nil {
		return createSummary{}, fmt.Errorf("extract %s: %w", cfg.FilesDir, err)
	}
	progress.Progress(tui.StageExtract, report.Files, report.Files)
	logging.LogEvent("extracted %d texts, %d tables, %d images (%d files skipped)",
		len(corpus.Texts), len(corpus.Tables), len(corpus.Images), len(report.Skipped))

	summaries, err := summarize.Corpus(ctx, summarize.NewLLM(sess.provider, cfg), corpus, summarize.Config{
		SummarizeTexts:  cfg.SummarizeTexts,
		SummarizeTables: cfg.SummarizeTables,
		Concurrency:     cfg.Concurrency,
	}, func(kind content.Kind, done, total int) {
		progress.Progress(stageFor(kind), done, total)
	})
	if err != nil {
		return createSummary{}, err
	}
	progress.Progress(tui.StageTexts, len(corpus.Texts), len(corpus.Texts))
	progress.Progress(tui.StageTables, len(corpus.Tables), len(corpus.Tables))
	progress.Progress(tui.StageImages, len(corpus.Images), len(corpus.Images))

	store, err := sess.newStore()
	if err != nil {
		return createSummary{}, err
	}
	ix := rag.New(store, rag.WithTopK(cfg.TopK), rag.WithModels(sess.models()))

	progress.Progress(tui.StageIndex, 0, 1)
	err = ix.Build(ctx,
		rag.Pair{Kind: content.KindText, Summaries: summaries.TextSummaries, Raws: corpus.Texts},
		rag.Pair{Kind: content.KindTable, Summaries: summaries.TableSummaries, Raws: corpus.Tables},
		rag.Pair{Kind: content.KindImage, Summaries: summaries.ImageSummaries, Raws: corpus.Images},
	)
	if err != nil {
		return createSummary{}, err
	}
	if err := ix.Save(cfg.StorageDir); err != nil {
		return createSummary{}, err
	}
	progress.Progress(tui.StageIndex, 1, 1)

	return createSummary{Report: report, Stats: ix.Stats(), StorageDir: cfg.StorageDir}, nil
}

func stageFor(kind content.Kind) string {
	switch kind {
	case content.KindTable:
		return tui.StageTables
	case content.KindImage:
		return tui.StageImages
	default:
		return tui.StageTexts
	}
}

func printCreateSummary(out io.Writer, s createSummary) {
	header := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	header.Fprintf(out, "Index saved to %s\n", s.StorageDir)
	label.Fprint(out, "  Entries: ")
	fmt.Fprintf(out, "%d (text %d, table %d, image %d)\n",
		s.Stats.Entries, s.Stats.Kinds[content.KindText.String()],
		s.Stats.Kinds[content.KindTable.String()], s.Stats.Kinds[content.KindImage.String()])
	label.Fprint(out, "  Store:   ")
	fmt.Fprintln(out, s.Stats.Store)
	label.Fprint(out, "  Files:   ")
	fmt.Fprintf(out, "%d read, %d skipped\n", s.Report.Files, len(s.Report.Skipped))
	for _, skip := range s.Report.Skipped {
		color.New(color.FgYellow).Fprintf(out, "    skipped %s: %s\n", skip.Path, skip.Reason)
	}
}

func init() {
	flags := createCmd.Flags()
	flags.String("fdir", "files", "directory of source documents")
	flags.String("imgdir", "images", "directory that receives extracted images")
	flags.Bool("summarize-texts", false, "summarize text chunks instead of indexing them verbatim")
	flags.Bool("summarize-tables", true, "summarize tables instead of indexing them verbatim")
	flags.Int("concurrency", 1, "maximum concurrent summarization requests")
	flags.BoolVar(&createNoProgress, "no-progress", false, "disable the progress display")

	_ = viper.BindPFlag("filesDir", flags.Lookup("fdir"))
	_ = viper.BindPFlag("imagesDir", flags.Lookup("imgdir"))
	_ = viper.BindPFlag("summarizeTexts", flags.Lookup("summarize-texts"))
	_ = viper.BindPFlag("summarizeTables", flags.Lookup("summarize-tables"))
	_ = viper.BindPFlag("concurrency", flags.Lookup("concurrency"))

	rootCmd.AddCommand(createCmd)
}
