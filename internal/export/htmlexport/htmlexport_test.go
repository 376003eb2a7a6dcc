package htmlexport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"harvest/internal/articles"
	"harvest/internal/articles/db"
	"harvest/lib/testutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func openDoc(t *testing.T, path string) *goquery.Document {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func newTestExporter(t *testing.T, rows ...articles.Article) *Exporter {
	store := articles.NewStore(testutil.OpenDB(t, db.Schema))
	for _, a := range rows {
		require.NoError(t, store.Commit(context.Background(), a))
	}
	return NewExporter(store, fixedClock{time.Date(2025, time.April, 21, 8, 0, 0, 0, time.UTC)})
}

func TestExport(t *testing.T) {
	long := strings.Repeat("长", 120)
	exporter := newTestExporter(t,
		articles.Article{ID: "1", Author: "甲", CreatedAt: "2025-04-20 13:05:00", AISummary: long, Content: "<p>第一段</p><p>第二段</p>"},
		articles.Article{ID: "2", CreatedAt: "昨天"},
		articles.Article{ID: "3", Author: "丙", AISummary: `<script>alert("x")</script>`},
	)
	dir := t.TempDir()

	path, err := exporter.Export(context.Background(), Options{Dir: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "文章汇总_2025年04月21日.html"), path)

	doc := openDoc(t, path)
	require.Equal(t, "盛财有数文章汇总 - 2025年04月21日", doc.Find("title").Text())
	require.Equal(t, "共导出 3 篇文章", doc.Find("body > p").First().Text())

	rows := doc.Find("tr.article")
	require.Equal(t, 3, rows.Length())

	var ids []string
	rows.Each(func(i int, s *goquery.Selection) {
		id, _ := s.Attr("data-id")
		ids = append(ids, id)
		require.Equal(t, fmt.Sprint(i+1), s.Find("td").First().Text())
	})
	require.Equal(t, []string{"3", "2", "1"}, ids)

	newest := rows.Eq(0)
	require.Equal(t, `<script>alert("x")</script>`, newest.Find("td.summary").Text())
	require.Zero(t, doc.Find("td.summary script").Length())

	missing := rows.Eq(1)
	require.Equal(t, DefaultAuthor, missing.Find("td").Eq(1).Text())
	require.Equal(t, "昨天", missing.Find("td").Eq(2).Text())
	require.Equal(t, DefaultSummary, missing.Find("td.summary").Text())

	oldest := rows.Eq(2)
	require.Equal(t, "2025年04月20日 13:05", oldest.Find("td").Eq(2).Text())
	short := oldest.Find("td.summary").Text()
	require.Equal(t, strings.Repeat("长", 97)+"...", short)
	href, _ := oldest.Find("a.original").Attr("href")
	require.Equal(t, articles.LinkBase+"1", href)
	local, _ := oldest.Find("a.local").Attr("href")
	require.Equal(t, "article_1.html", local)

	detail := openDoc(t, filepath.Join(dir, local))
	require.Equal(t, "甲的文章 - 1", detail.Find("title").Text())
	require.Equal(t, long, detail.Find("div.summary").Text())
	require.Equal(t, "第一段 第二段", detail.Find("div.content").Text())
	back, _ := detail.Find("a.back").Attr("href")
	require.Equal(t, "文章汇总_2025年04月21日.html", back)
	require.Equal(t, 1, detail.Find("#readingForm textarea#notes").Length())
	require.Contains(t, detail.Find("script").Text(), `const storagePrefix = "article_1_";`)
	require.Contains(t, detail.Find("script").Text(), "localStorage.setItem")

	for _, id := range []string{"2", "3"} {
		_, err := os.Stat(filepath.Join(dir, ArticleFile(id)))
		require.NoError(t, err)
	}
}

func TestExportLimit(t *testing.T) {
	var rows []articles.Article
	for i := 1; i <= 5; i++ {
		rows = append(rows, articles.Article{ID: fmt.Sprint(i)})
	}
	dir := t.TempDir()
	path, err := newTestExporter(t, rows...).Export(context.Background(), Options{Dir: dir, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, openDoc(t, path).Find("tr.article").Length())

	pages, err := filepath.Glob(filepath.Join(dir, "article_*.html"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		filepath.Join(dir, "article_5.html"),
		filepath.Join(dir, "article_4.html"),
	}, pages)
}

func TestExportEmpty(t *testing.T) {
	_, err := newTestExporter(t).Export(context.Background(), Options{Dir: t.TempDir()})
	require.EqualError(t, err, "no articles to export")
}
