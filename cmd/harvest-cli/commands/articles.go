package commands

import (
	"harvest/internal/articles"
	"harvest/lib/httputil"
	"harvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Commands for crawling digested articles into the local database.",
}

var (
	articlesDb       *string
	articlesTarget   *int
	articlesPageSize *int
	articlesMaxPages *int
)

func init() {
	articlesDb = articlesCmd.PersistentFlags().String("db", "", "The sqlite database articles are stored in (default scys_articles.db).")

	flags := articlesCrawlCmd.Flags()
	articlesTarget = flags.Int("target", 0, "Stop once this many new articles were stored (default 100).")
	articlesPageSize = flags.Int("page-size", 0, "Articles requested per page (default 20).")
	articlesMaxPages = flags.Int("max-pages", 0, "Pages requested at most (default target / page size, rounded up).")

	articlesCmd.AddCommand(articlesCrawlCmd, articlesStatsCmd)
	rootCmd.AddCommand(articlesCmd)
}

func articlesConfig(cmd *cobra.Command) (Config, articles.Config) {
	cfg := loadConfig()
	a := cfg.Articles
	if cmd.Flags().Changed("db") {
		a.Database.File = *articlesDb
		a.Database.Url = ""
	}
	cfg.Articles = a
	return cfg, a
}

var articlesCrawlCmd = &cobra.Command{
	Use:   "crawl [--db <path/to/articles.db>] [--target <n>]",
	Short: "Crawls listing pages until the target number of new articles is stored.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, a := articlesConfig(cmd)
		flags := cmd.Flags()
		if flags.Changed("target") {
			a.Target = *articlesTarget
		}
		if flags.Changed("page-size") {
			a.PageSize = *articlesPageSize
		}
		if flags.Changed("max-pages") {
			a.MaxPages = *articlesMaxPages
		}
		a = a.WithDefaults()

		store, database := cfg.openArticleStore()
		defer database.Close()

		client := cfg.newClient("articles", httputil.ClientOptions{
			Timeout:          a.Timeout(),
			CloudflareBypass: a.CloudflareBypass,
		})
		clock := cfg.clock()
		lister := articles.NewLister(client, a, articles.CredentialsFromEnv(), clock)
		crawler := articles.NewCrawler(a, lister, store, clock)

		summary, err := crawler.Run(cmd.Context())
		printStats("articles", summary.Stats)
		if summary.ListingErr != nil {
			printWarning("listing stopped: " + summary.ListingErr.Error())
		}
		if err != nil {
			serviceutil.Fatal("crawl ended early", err)
		}
		printStoreSummary(summary.StoreCount, summary.Latest)
	},
}

var articlesStatsCmd = &cobra.Command{
	Use:   "stats [--db <path/to/articles.db>]",
	Short: "Shows the number of stored articles and the latest ones.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := articlesConfig(cmd)
		store, database := cfg.openArticleStore()
		defer database.Close()

		count, err := store.Count(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to count articles", err)
		}
		latest, err := store.Latest(cmd.Context(), 5)
		if err != nil {
			serviceutil.Fatal("failed to list articles", err)
		}
		printStoreSummary(count, latest)
	},
}
