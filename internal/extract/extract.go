// internal/extract/extract.go
// Package extract turns a directory of source documents into content units.
// Text files become word-window chunks, delimited files become one table each,
// and images are normalized to JPEG files in the images directory.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/util"
)

// ErrExtraction marks a document that could not be read or parsed.
var ErrExtraction = errors.New("extraction failed")

const (
	// DefaultChunkWords approximates a few thousand characters of prose per unit.
	DefaultChunkWords = 450
	// DefaultChunkOverlap is the number of words shared by consecutive chunks.
	DefaultChunkOverlap = 0
)

// Options tunes extraction.
type Options struct {
	ChunkWords   int
	ChunkOverlap int
	// Workers bounds concurrent documents; values below 1 mean runtime.NumCPU().
	Workers int
	// OnFile, when set, is called after each document completes.
	OnFile func(done, total int)
}

// Skip records a document that contributed no units.
type Skip struct {
	Path   string
	Reason string
	Err    error
}

// Report describes what an extraction run did.
type Report struct {
	Files   int
	Texts   int
	Tables  int
	Images  int
	Skipped []Skip
}

// Extractor reads FilesDir and writes normalized images into ImagesDir.
type Extractor struct {
	FilesDir  string
	ImagesDir string
	Options   Options
}

// New returns an extractor with defaults applied to opts.
func New(filesDir, imagesDir string, opts Options) *Extractor {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Extractor{FilesDir: filesDir, ImagesDir: imagesDir, Options: opts}
}

type fileResult struct {
	units []content.Unit
	skip  *Skip
}

// Extract processes every file under FilesDir, one task per document, and
// then enumerates ImagesDir. Documents that fail are skipped and reported,
// never partially included.
func (e *Extractor) Extract(ctx context.Context) (content.Corpus, Report, error) {
	var report Report

	files, err := listFiles(e.FilesDir, e.ImagesDir)
	if err != nil {
		return content.Corpus{}, report, err
	}
	if err := os.MkdirAll(e.ImagesDir, 0o755); err != nil {
		return content.Corpus{}, report, fmt.Errorf("create images dir: %w", err)
	}
	report.Files = len(files)

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Options.Workers)

	var (
		progressMu sync.Mutex
		done       int
	)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.extractFile(i, path)
			if e.Options.OnFile != nil {
				progressMu.Lock()
				done++
				e.Options.OnFile(done, len(files))
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return content.Corpus{}, report, err
	}
	if err := ctx.Err(); err != nil {
		return content.Corpus{}, report, err
	}

	var corpus content.Corpus
	for _, r := range results {
		if r.skip != nil {
			report.Skipped = append(report.Skipped, *r.skip)
			if r.skip.Err != nil {
				logging.LogWarn("document skipped", zap.String("path", r.skip.Path), zap.Error(r.skip.Err))
			}
			continue
		}
		for _, u := range r.units {
			corpus.Add(u)
		}
	}

	images, err := LoadImages(e.ImagesDir)
	if err != nil {
		return content.Corpus{}, report, err
	}
	corpus.Images = images

	report.Texts = len(corpus.Texts)
	report.Tables = len(corpus.Tables)
	report.Images = len(corpus.Images)
	return corpus, report, nil
}

func (e *Extractor) extractFile(index int, path string) fileResult {
	ext := strings.ToLower(filepath.Ext(path))
	fail := func(err error) fileResult {
		return fileResult{skip: &Skip{Path: path, Reason: "unreadable", Err: fmt.Errorf("%s: %w: %v", path, ErrExtraction, err)}}
	}

	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return fail(err)
		}
		var units []content.Unit
		for _, chunk := range util.ChunkWords(string(data), e.Options.ChunkWords, e.Options.ChunkOverlap) {
			units = append(units, content.Unit{Kind: content.KindText, Raw: chunk})
		}
		if len(units) == 0 {
			return fileResult{skip: &Skip{Path: path, Reason: "empty document"}}
		}
		return fileResult{units: units}
	case ".csv", ".tsv":
		table, err := readTable(path, ext == ".tsv")
		if err != nil {
			return fail(err)
		}
		if table == "" {
			return fileResult{skip: &Skip{Path: path, Reason: "empty table"}}
		}
		return fileResult{units: []content.Unit{{Kind: content.KindTable, Raw: table}}}
	case ".jpg", ".jpeg", ".png", ".gif":
		if err := e.normalizeImage(index, path); err != nil {
			return fail(err)
		}
		return fileResult{}
	default:
		return fileResult{skip: &Skip{Path: path, Reason: "unsupported file type " + ext}}
	}
}

// normalizeImage re-encodes a source image as a uniquely named JPEG in ImagesDir.
func (e *Extractor) normalizeImage(index int, path string) error {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("figure-%04d-%s.jpg", index, sanitize(stem))
	return imaging.Save(img, filepath.Join(e.ImagesDir, name), imaging.JPEGQuality(90))
}

// readTable renders a delimited file as pipe-separated rows.
func readTable(path string, tabs bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if tabs {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, "| "+strings.Join(record, " | ")+" |")
	}
	return strings.Join(rows, "\n"), nil
}

// LoadImages base64-encodes every .jpg file in dir, in file name order.
func LoadImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	images := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", name, err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return images, nil
}

// listFiles walks dir in name order, skipping hidden entries and the skip
// directory so previously normalized images are never re-extracted.
func listFiles(dir, skip string) ([]string, error) {
	skip = filepath.Clean(skip)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if strings.HasPrefix(name, ".") || filepath.Clean(path) == skip {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	return b.String()
}
