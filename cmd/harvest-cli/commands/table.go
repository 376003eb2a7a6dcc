package commands

import (
	"fmt"
	"os"
	"time"

	"harvest/internal/articles/db"
	"harvest/internal/ingest"
	"harvest/lib/htmlutil"
	"harvest/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printStats(name string, stats ingest.RunStats) {
	t := newTable()
	t.SetTitle(name)
	t.AppendHeader(table.Row{"Total", "Success", "Skipped", "Failed", "Duration"})
	t.AppendRow(table.Row{
		stats.Total,
		stats.Success,
		stats.Skipped,
		stats.Failed,
		stats.Duration().Round(time.Millisecond),
	})
	t.Render()
}

func printStoreSummary(count int, latest []db.Article) {
	fmt.Printf("articles stored: %d\n", count)
	if len(latest) == 0 {
		return
	}

	t := newTable()
	t.SetTitle("latest articles")
	t.AppendHeader(table.Row{"ID", "Author", "Created", "Preview"})
	for _, a := range latest {
		t.AppendRow(table.Row{
			a.ArticleID,
			a.AuthorName,
			a.GmtCreate,
			textutil.Truncate(htmlutil.PlainText(a.ArticleContent), 30),
		})
	}
	t.Render()
}

func printWarning(message string) {
	fmt.Fprintln(os.Stderr, text.FgYellow.Sprint(message))
}
