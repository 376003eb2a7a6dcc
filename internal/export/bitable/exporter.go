package bitable

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"harvest/internal/articles"
	"harvest/lib/chrono"
	"harvest/lib/configutil"
)

// EnvAppToken is the environment variable holding the app to reuse.
const EnvAppToken = "FEISHU_BITABLE_ID"

type Options struct {
	// Limit <= 0 exports every stored article.
	Limit int
	// UseExisting adds the table to AppToken instead of creating an app.
	UseExisting bool
	AppToken    string
	FolderToken string
	TableName   string
	// EnvFile receives the token of a newly created app, "" disables this.
	EnvFile string
}

type Result struct {
	AppToken string
	TableID  string
	Exported int
	Total    int
	// Created is set when a new app was created.
	Created bool
}

func (r Result) URL() string {
	return "https://bitable.feishu.cn/app/" + r.AppToken
}

type Exporter struct {
	client *Client
	store  *articles.Store
	clock  chrono.TimeAPI
}

func NewExporter(client *Client, store *articles.Store, clock chrono.TimeAPI) *Exporter {
	if clock == nil {
		clock = chrono.NewStandardTime(nil)
	}
	return &Exporter{client: client, store: store, clock: clock}
}

// OptionsFromEnv fills the app and folder tokens from the environment.
func OptionsFromEnv(opts Options) Options {
	if opts.AppToken == "" {
		opts.AppToken = os.Getenv(EnvAppToken)
	}
	if opts.FolderToken == "" {
		opts.FolderToken = os.Getenv("FEISHU_FOLDER_TOKEN")
	}
	return opts
}

// Export copies stored articles, oldest first, into a new table.
func (e *Exporter) Export(ctx context.Context, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "exporter:Export")
	defer span.End()

	if opts.TableName == "" {
		opts.TableName = DefaultTableName
	}
	if opts.UseExisting && opts.AppToken == "" {
		slog.WarnContext(ctx, "reusing a bitable requires "+EnvAppToken+", creating a new one")
		opts.UseExisting = false
	}

	rows, err := e.store.List(ctx, articles.ListOptions{Limit: opts.Limit})
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("no articles to export")
	}
	result := Result{Total: len(rows)}
	slog.InfoContext(ctx, "exporting articles", "count", len(rows))

	err = e.client.Authenticate(ctx)
	if err != nil {
		return result, err
	}

	if opts.UseExisting {
		result.AppToken = opts.AppToken
		slog.InfoContext(ctx, "using existing bitable", "app_token", result.AppToken)
	} else {
		now := e.clock.Now()
		name := fmt.Sprintf("盛财有数文章汇总 - %d年%02d月%02d日", now.Year(), now.Month(), now.Day())
		result.AppToken, err = e.client.CreateApp(ctx, name, opts.FolderToken)
		if err != nil {
			return result, err
		}
		result.Created = true
		slog.InfoContext(ctx, "created bitable", "app_token", result.AppToken, "name", name)

		if opts.EnvFile != "" {
			err := configutil.SetEnvValue(opts.EnvFile, EnvAppToken, result.AppToken)
			if err != nil {
				slog.WarnContext(ctx, "failed to save bitable id", "file", opts.EnvFile, "err", err)
			} else {
				slog.InfoContext(ctx, "saved bitable id", "file", opts.EnvFile, "key", EnvAppToken)
			}
		}
	}

	result.TableID, err = e.client.CreateTable(ctx, result.AppToken, opts.TableName, ArticleFields)
	if err != nil {
		return result, err
	}

	records := BuildRecords(rows, e.clock.Now().Location())
	result.Exported, err = e.client.BatchCreateRecords(ctx, result.AppToken, result.TableID, records)
	if err != nil {
		return result, fmt.Errorf("exported %d/%d articles: %w", result.Exported, result.Total, err)
	}
	return result, nil
}
