package bitable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"harvest/internal/articles"
	"harvest/internal/articles/db"
	"harvest/lib/testutil"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeFeishu struct {
	*httptest.Server

	mu        sync.Mutex
	appNames  []string
	tables    []map[string]any
	batches   [][]Record
	authz     []string
	failBatch int
}

func newFakeFeishu(t *testing.T) *fakeFeishu {
	f := &fakeFeishu{failBatch: -1}
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["app_secret"] != "secret" {
			fmt.Fprint(w, `{"code": 10014, "msg": "app secret invalid"}`)
			return
		}
		fmt.Fprint(w, `{"code": 0, "msg": "ok", "tenant_access_token": "t-123", "expire": 7200}`)
	})
	mux.HandleFunc("/open-apis/bitable/v1/apps", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.appNames = append(f.appNames, body["name"])
		f.authz = append(f.authz, r.Header.Get("Authorization"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"code": 0, "data": {"app": {"app_token": "app-new"}}}`)
	})
	mux.HandleFunc("/open-apis/bitable/v1/apps/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authz = append(f.authz, r.Header.Get("Authorization"))

		switch {
		case strings.HasSuffix(r.URL.Path, "/tables"):
			var body struct {
				Table map[string]any `json:"table"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.tables = append(f.tables, body.Table)
			fmt.Fprint(w, `{"code": 0, "data": {"table_id": "tbl-1"}}`)
		case strings.HasSuffix(r.URL.Path, "/tables/tbl-1/records/batch_create"):
			var body struct {
				Records []Record `json:"records"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			index := len(f.batches)
			f.batches = append(f.batches, body.Records)
			if index == f.failBatch {
				fmt.Fprint(w, `{"code": 1254045, "msg": "FieldNameNotFound"}`)
				return
			}
			fmt.Fprint(w, `{"code": 0, "data": {}}`)
		default:
			http.NotFound(w, r)
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func seedStore(t *testing.T, n int) *articles.Store {
	t.Helper()
	store := articles.NewStore(testutil.OpenDB(t, db.Schema))
	for i := 1; i <= n; i++ {
		a := articles.Article{ID: fmt.Sprint(i), CreatedAt: "2025-04-23 09:43:00", Author: "作者", AISummary: "摘要"}
		if i == 1 {
			a.Author = ""
			a.AISummary = ""
		}
		require.NoError(t, store.Commit(context.Background(), a))
	}
	return store
}

func newTestExporter(t *testing.T, feishu *fakeFeishu, store *articles.Store, secret string) *Exporter {
	httpClient := resty.New().SetBaseURL(feishu.URL + "/open-apis")
	client := NewClient(httpClient, AppCredentials{AppID: "cli_1", AppSecret: secret})
	clock := fixedClock{time.Date(2025, time.April, 21, 10, 0, 0, 0, time.UTC)}
	return NewExporter(client, store, clock)
}

func TestExportCreatesApp(t *testing.T) {
	feishu := newFakeFeishu(t)
	store := seedStore(t, 150)
	envFile := filepath.Join(t.TempDir(), ".env")

	start := time.Now()
	result, err := newTestExporter(t, feishu, store, "secret").Export(context.Background(), Options{EnvFile: envFile})
	require.NoError(t, err)
	// the second batch waits for the pacer
	require.GreaterOrEqual(t, time.Since(start), BatchDelay-time.Millisecond*50)

	require.Equal(t, Result{AppToken: "app-new", TableID: "tbl-1", Exported: 150, Total: 150, Created: true}, result)
	require.Equal(t, "https://bitable.feishu.cn/app/app-new", result.URL())
	require.Equal(t, []string{"盛财有数文章汇总 - 2025年04月21日"}, feishu.appNames)
	for _, authz := range feishu.authz {
		require.Equal(t, "Bearer t-123", authz)
	}

	require.Len(t, feishu.tables, 1)
	require.Equal(t, DefaultTableName, feishu.tables[0]["name"])
	require.Len(t, feishu.tables[0]["fields"], len(ArticleFields))

	require.Len(t, feishu.batches, 2)
	require.Len(t, feishu.batches[0], 100)
	require.Len(t, feishu.batches[1], 50)

	first := feishu.batches[0][0].Fields
	require.EqualValues(t, 1, first["序号"])
	require.Equal(t, "1", first["文章ID"])
	require.Equal(t, DefaultAuthor, first["作者"])
	require.Equal(t, DefaultSummary, first["AI摘要"])
	require.Equal(t, "2025/04/23", first["创建时间"])
	require.Equal(t, "2025-04", first["筛选时间"])
	require.Equal(t, "否", first["是否已读"])
	require.Equal(t, map[string]any{
		"text": articles.LinkBase + "1",
		"link": articles.LinkBase + "1",
	}, first["原文链接"])
	require.EqualValues(t, 150, feishu.batches[1][49].Fields["序号"])

	env, err := godotenv.Read(envFile)
	require.NoError(t, err)
	require.Equal(t, "app-new", env[EnvAppToken])
}

func TestExportUseExisting(t *testing.T) {
	feishu := newFakeFeishu(t)
	store := seedStore(t, 3)

	result, err := newTestExporter(t, feishu, store, "secret").Export(context.Background(), Options{
		Limit:       2,
		UseExisting: true,
		AppToken:    "app-old",
	})
	require.NoError(t, err)
	require.Equal(t, "app-old", result.AppToken)
	require.False(t, result.Created)
	require.Equal(t, 2, result.Exported)
	require.Empty(t, feishu.appNames)
}

func TestExportBatchFailure(t *testing.T) {
	feishu := newFakeFeishu(t)
	feishu.failBatch = 0
	store := seedStore(t, 120)

	result, err := newTestExporter(t, feishu, store, "secret").Export(context.Background(), Options{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 1254045, apiErr.Code)
	require.Equal(t, 20, result.Exported)
	require.Equal(t, 120, result.Total)
	require.Len(t, feishu.batches, 2)
}

func TestExportAuthFailure(t *testing.T) {
	feishu := newFakeFeishu(t)
	_, err := newTestExporter(t, feishu, seedStore(t, 1), "wrong").Export(context.Background(), Options{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "app secret invalid", apiErr.Msg)
	require.Empty(t, feishu.appNames)
}

func TestExportEmptyStore(t *testing.T) {
	feishu := newFakeFeishu(t)
	_, err := newTestExporter(t, feishu, seedStore(t, 0), "secret").Export(context.Background(), Options{})
	require.EqualError(t, err, "no articles to export")
}
