package htmlexport

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"harvest/internal/articles"
	"harvest/internal/articles/db"
	"harvest/lib/chrono"
	"harvest/lib/htmlutil"
	"harvest/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("harvest/export/htmlexport")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	DefaultDir     = "exported_articles"
	DefaultLimit   = 20
	DefaultAuthor  = "佚名"
	DefaultSummary = "未提供AI摘要"

	summaryDisplayLength = 100
	dateLayout           = "2006年01月02日"
	createdLayout        = "2006年01月02日 15:04"
)

type Options struct {
	// Limit <= 0 uses DefaultLimit.
	Limit int
	Dir   string
}

type entry struct {
	Index        int
	ID           string
	Author       string
	Created      string
	Summary      string
	ShortSummary string
	Content      string
	Link         string
	File         string
}

type articlePage struct {
	entry
	SummaryFile   string
	StoragePrefix string
}

type Exporter struct {
	store *articles.Store
	clock chrono.TimeAPI
}

func NewExporter(store *articles.Store, clock chrono.TimeAPI) *Exporter {
	if clock == nil {
		clock = chrono.NewStandardTime(nil)
	}
	return &Exporter{store: store, clock: clock}
}

// ArticleFile is the name of the detail page of an article.
func ArticleFile(articleID string) string {
	return fmt.Sprintf("article_%s.html", textutil.SanitizeFileName(articleID))
}

func newEntry(index int, row db.Article, loc *time.Location) entry {
	author := row.AuthorName
	if author == "" {
		author = DefaultAuthor
	}
	summary := row.AiSummaryContent
	if summary == "" {
		summary = DefaultSummary
	}
	return entry{
		Index:        index,
		ID:           row.ArticleID,
		Author:       author,
		Created:      chrono.Format(row.GmtCreate, createdLayout, loc),
		Summary:      summary,
		ShortSummary: textutil.Truncate(summary, summaryDisplayLength),
		Content:      htmlutil.PlainText(row.ArticleContent),
		Link:         articles.LinkBase + row.ArticleID,
		File:         ArticleFile(row.ArticleID),
	}
}

// Export writes the most recently stored articles as one summary page plus
// a detail page per article, and returns the path of the summary page.
func (e *Exporter) Export(ctx context.Context, opts Options) (string, error) {
	ctx, span := tracer.Start(ctx, "htmlexport:Export")
	defer span.End()

	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}

	rows, err := e.store.List(ctx, articles.ListOptions{Limit: opts.Limit, Newest: true})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no articles to export")
	}
	span.SetAttributes(attribute.Int("articles", len(rows)))
	slog.InfoContext(ctx, "exporting articles to html", "count", len(rows), "dir", opts.Dir)

	err = os.MkdirAll(opts.Dir, 0777)
	if err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := e.clock.Now()
	date := now.Format(dateLayout)
	summaryFile := fmt.Sprintf("文章汇总_%s.html", date)

	entries := make([]entry, len(rows))
	for i, row := range rows {
		entries[i] = newEntry(i+1, row, now.Location())
		err := render(filepath.Join(opts.Dir, entries[i].File), "article.html", articlePage{
			entry:         entries[i],
			SummaryFile:   summaryFile,
			StoragePrefix: fmt.Sprintf("article_%s_", entries[i].ID),
		})
		if err != nil {
			return "", err
		}
	}

	summaryPath := filepath.Join(opts.Dir, summaryFile)
	err = render(summaryPath, "summary.html", struct {
		Date    string
		Entries []entry
	}{Date: date, Entries: entries})
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "html export finished", "summary", summaryPath)
	return summaryPath, nil
}

func render(path, name string, data any) error {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	err = os.WriteFile(path, buf.Bytes(), 0644)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
