package commands

import (
	"fmt"
	"log/slog"

	"harvest/internal/export/bitable"
	"harvest/internal/export/htmlexport"
	"harvest/lib/httputil"
	"harvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Commands for exporting stored articles.",
}

var (
	exportDb        *string
	bitableLimit    *int
	bitableExisting *bool
	htmlLimit       *int
	htmlOut         *string
)

func init() {
	exportDb = exportCmd.PersistentFlags().String("db", "", "The sqlite database articles are read from (default scys_articles.db).")

	bitableLimit = exportBitableCmd.Flags().Int("limit", 0, "Export at most this many articles, oldest first (default all).")
	bitableExisting = exportBitableCmd.Flags().Bool("use-existing", false, "Add the table to the bitable in FEISHU_BITABLE_ID instead of creating one.")

	htmlLimit = exportHtmlCmd.Flags().Int("limit", htmlexport.DefaultLimit, "Export this many of the newest articles.")
	htmlOut = exportHtmlCmd.Flags().String("out", "", "The directory html files are written to (default exported_articles).")

	exportCmd.AddCommand(exportBitableCmd, exportHtmlCmd)
	rootCmd.AddCommand(exportCmd)
}

func exportConfig(cmd *cobra.Command) Config {
	cfg := loadConfig()
	if cmd.Flags().Changed("db") {
		cfg.Articles.Database.File = *exportDb
		cfg.Articles.Database.Url = ""
	}
	return cfg
}

var exportBitableCmd = &cobra.Command{
	Use:   "bitable [--limit <n>] [--use-existing]",
	Short: "Exports stored articles into a feishu bitable.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := exportConfig(cmd)
		creds := bitable.AppCredentials{
			AppID:     requireEnv("FEISHU_APP_ID"),
			AppSecret: requireEnv("FEISHU_APP_SECRET"),
		}

		store, database := cfg.openArticleStore()
		defer database.Close()

		baseUrl := cfg.Bitable.BaseUrl
		if baseUrl == "" {
			baseUrl = bitable.DefaultBaseURL
		}
		client := bitable.NewClient(cfg.newClient("bitable", httputil.ClientOptions{BaseUrl: baseUrl}), creds)
		exporter := bitable.NewExporter(client, store, cfg.clock())

		result, err := exporter.Export(cmd.Context(), bitable.OptionsFromEnv(bitable.Options{
			Limit:       *bitableLimit,
			UseExisting: *bitableExisting,
			TableName:   cfg.Bitable.TableName,
			EnvFile:     cfg.Bitable.EnvFile,
		}))
		if result.TableID != "" {
			fmt.Printf("exported %d/%d articles, see %s\n", result.Exported, result.Total, result.URL())
		}
		if err != nil {
			serviceutil.Fatal("bitable export failed", err)
		}
	},
}

var exportHtmlCmd = &cobra.Command{
	Use:   "html [--limit <n>] [--out <dir>]",
	Short: "Exports the newest stored articles as static html pages.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := exportConfig(cmd)
		opts := htmlexport.Options{Limit: cfg.Html.Limit, Dir: cfg.Html.Dir}
		if cmd.Flags().Changed("limit") || opts.Limit <= 0 {
			opts.Limit = *htmlLimit
		}
		if cmd.Flags().Changed("out") {
			opts.Dir = *htmlOut
		}

		store, database := cfg.openArticleStore()
		defer database.Close()

		path, err := htmlexport.NewExporter(store, cfg.clock()).Export(cmd.Context(), opts)
		if err != nil {
			serviceutil.Fatal("html export failed", err)
		}
		slog.Info("html export written", "summary", path)
		fmt.Println(path)
	},
}
