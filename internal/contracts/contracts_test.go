package contracts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"harvest/internal/ingest"
	"harvest/lib/chrono"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadManifestCsv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	writeFile(t, path, "\ufeff合同ID,合同文件,合同地址,备注\n"+
		"1001,租赁合同 A/B,https://x.test/viewdocs.action?id=1,\n"+
		",,,\n"+
		"1002,\"采购合同, 2025\",https://x.test/viewdocs.action?id=2,note\n")

	contracts, err := ReadManifest(path)
	require.NoError(t, err)
	diff := cmp.Diff([]Contract{
		{ID: "1001", FileName: "租赁合同 A/B", ViewURL: "https://x.test/viewdocs.action?id=1"},
		{ID: "1002", FileName: "采购合同, 2025", ViewURL: "https://x.test/viewdocs.action?id=2"},
	}, contracts)
	require.Empty(t, diff)
}

func TestReadManifestEnglishHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	writeFile(t, path, "url,contract_id,file_name\nhttps://x.test/a,7,seven\n")

	contracts, err := ReadManifest(path)
	require.NoError(t, err)
	require.Equal(t, []Contract{{ID: "7", FileName: "seven", ViewURL: "https://x.test/a"}}, contracts)
}

func TestReadManifestMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	writeFile(t, path, "合同ID,合同文件\n1,a\n")

	_, err := ReadManifest(path)
	require.ErrorContains(t, err, "missing required column(s): 合同地址")
}

func TestReadManifestXlsx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"合同ID", "合同文件", "合同地址"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2001", "服务协议", "https://x.test/viewdocs.action?id=9"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	contracts, err := ReadManifest(path)
	require.NoError(t, err)
	require.Equal(t, []Contract{{ID: "2001", FileName: "服务协议", ViewURL: "https://x.test/viewdocs.action?id=9"}}, contracts)
}

func TestDownloadURL(t *testing.T) {
	require.Equal(t,
		"https://x.test/fdd/getdocs.action?doc=1&viewdocs.action?",
		DownloadURL("https://x.test/fdd/viewdocs.action?doc=1&viewdocs.action?"),
	)
	require.Equal(t, "https://x.test/other", DownloadURL("https://x.test/other"))
}

func TestTarget(t *testing.T) {
	require.Equal(t, filepath.Join("out", "a_b_c.pdf"), Target("out", "a/b:c"))
}

type pdfServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newPdfServer(t *testing.T) *pdfServer {
	s := &pdfServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != "/getdocs.action" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("id") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%%PDF-1.4 contract %s", r.URL.Query().Get("id"))
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestDownloader(manifest, out string) *Downloader {
	delay := 0.001
	return NewDownloader(Config{
		Manifest:          manifest,
		OutputDir:         out,
		MaxRetries:        2,
		RetryDelaySeconds: &delay,
	}, resty.New(), chrono.NewStandardTime(time.UTC))
}

func TestConfigRetryDelay(t *testing.T) {
	require.Equal(t, time.Second, Config{}.WithDefaults().RetryPolicy().Delay)

	zero := 0.0
	disabled := Config{RetryDelaySeconds: &zero}.WithDefaults().WithDefaults()
	require.Equal(t, time.Duration(0), disabled.RetryPolicy().Delay)

	half := 0.5
	require.Equal(t, time.Millisecond*500, Config{RetryDelaySeconds: &half}.RetryPolicy().Delay)
}

func TestDownloaderSkipsExisting(t *testing.T) {
	server := newPdfServer(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "contracts")
	require.NoError(t, os.MkdirAll(out, 0777))
	writeFile(t, filepath.Join(out, "b.pdf"), "already here")

	manifest := filepath.Join(dir, "manifest.csv")
	var sb strings.Builder
	sb.WriteString("合同ID,合同文件,合同地址\n")
	for _, id := range []string{"a", "b", "c"} {
		fmt.Fprintf(&sb, "%s,%s,%s/viewdocs.action?id=%s\n", id, id, server.URL, id)
	}
	writeFile(t, manifest, sb.String())

	stats, err := newTestDownloader(manifest, out).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "total=3 success=2 skipped=1 failed=0", stats.String())
	require.EqualValues(t, 2, server.hits.Load())

	data, err := os.ReadFile(filepath.Join(out, "c.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 contract c", string(data))
	existing, err := os.ReadFile(filepath.Join(out, "b.pdf"))
	require.NoError(t, err)
	require.Equal(t, "already here", string(existing))

	// the second run finds everything in place
	stats, err = newTestDownloader(manifest, out).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "total=3 success=0 skipped=3 failed=0", stats.String())
	require.EqualValues(t, 2, server.hits.Load())
}

func TestDownloaderLogsFailures(t *testing.T) {
	server := newPdfServer(t)
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.csv")
	writeFile(t, manifest, fmt.Sprintf(
		"合同ID,合同文件,合同地址\n9,坏合同,%s/viewdocs.action?id=broken\n10,,%s/viewdocs.action?id=x\n",
		server.URL, server.URL,
	))

	d := newTestDownloader(manifest, filepath.Join(dir, "out"))
	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "total=2 success=0 skipped=1 failed=1", stats.String())
	require.EqualValues(t, 2, server.hits.Load())

	entries, err := ingest.ReadFailureLog(d.FailureLogPath(), time.UTC)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "9", entries[0].ItemID)
	require.Equal(t, "坏合同", entries[0].ItemLabel)
	require.Equal(t, server.URL+"/getdocs.action?id=broken", entries[0].SourceURL)
	require.Contains(t, entries[0].ErrorMessage, "500")

	_, err = os.Stat(filepath.Join(dir, "out", "坏合同.pdf"))
	require.True(t, os.IsNotExist(err))
}

func TestDownloaderMissingManifest(t *testing.T) {
	_, err := newTestDownloader(filepath.Join(t.TempDir(), "none.csv"), t.TempDir()).Run(context.Background())
	require.Error(t, err)
}

func TestDownloaderRetryFailed(t *testing.T) {
	var healthy atomic.Bool
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "%%PDF-1.4 contract %s", r.URL.Query().Get("id"))
	}))
	defer server.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	manifest := filepath.Join(dir, "manifest.csv")
	writeFile(t, manifest, fmt.Sprintf(
		"合同ID,合同文件,合同地址\n1,甲,%[1]s/viewdocs.action?id=1\n2,乙,%[1]s/viewdocs.action?id=2\n",
		server.URL,
	))

	// two failing runs leave duplicate entries in the log
	for i := 0; i < 2; i++ {
		stats, err := newTestDownloader(manifest, out).Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, stats.Failed)
	}

	d := newTestDownloader(manifest, out)
	failed, err := d.FailedContracts()
	require.NoError(t, err)
	require.Len(t, failed, 2)
	require.Equal(t, Contract{ID: "1", FileName: "甲", ViewURL: server.URL + "/getdocs.action?id=1"}, failed[0])

	healthy.Store(true)
	hits.Store(0)
	stats, err := d.RetryFailed(context.Background())
	require.NoError(t, err)
	require.Equal(t, "total=2 success=2 skipped=0 failed=0", stats.String())
	require.EqualValues(t, 2, hits.Load())

	data, err := os.ReadFile(filepath.Join(out, "乙.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 contract 2", string(data))

	stats, err = d.RetryFailed(context.Background())
	require.NoError(t, err)
	require.Equal(t, "total=2 success=0 skipped=2 failed=0", stats.String())
}

func TestDownloaderRetryFailedWithoutLog(t *testing.T) {
	stats, err := newTestDownloader("", t.TempDir()).RetryFailed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.Total)
}
