package commands

import (
	"log/slog"
	"time"

	"harvest/internal/contracts"
	"harvest/lib/httputil"
	"harvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Commands for bulk downloading contract pdfs.",
}

var (
	contractsManifest *string
	contractsOut      *string
	contractsRetries  *int
	contractsDelay    *time.Duration
	contractsWorkers  *int
)

func init() {
	contractsManifest = contractsDownloadCmd.Flags().String("manifest", "", "The csv or xlsx manifest listing the contracts.")

	flags := contractsCmd.PersistentFlags()
	contractsOut = flags.String("out", "", "The directory pdfs are saved to (default ./contracts).")
	contractsRetries = flags.Int("retries", 0, "Attempts per contract (default 3).")
	contractsDelay = flags.Duration("delay", 0, "Pause between attempts, 0 retries immediately (default 1s).")
	contractsWorkers = flags.Int("workers", 0, "Contracts downloaded concurrently (default 1).")

	contractsCmd.AddCommand(contractsDownloadCmd, contractsRetryCmd)
	rootCmd.AddCommand(contractsCmd)
}

func contractsDownloader(cmd *cobra.Command) *contracts.Downloader {
	cfg := loadConfig()
	c := cfg.Contracts
	flags := cmd.Flags()
	if flags.Changed("manifest") {
		c.Manifest = *contractsManifest
	}
	if flags.Changed("out") {
		c.OutputDir = *contractsOut
	}
	if flags.Changed("retries") {
		c.MaxRetries = *contractsRetries
	}
	if flags.Changed("delay") {
		delay := seconds(*contractsDelay)
		c.RetryDelaySeconds = &delay
	}
	if flags.Changed("workers") {
		c.Workers = *contractsWorkers
	}
	c = c.WithDefaults()

	client := cfg.newClient("contracts", httputil.ClientOptions{
		Timeout:          c.Timeout(),
		CloudflareBypass: c.CloudflareBypass,
	})
	return contracts.NewDownloader(c, client, cfg.clock())
}

var contractsDownloadCmd = &cobra.Command{
	Use:   "download --manifest <path/to/manifest.csv> [--out <dir>]",
	Short: "Downloads every contract of a manifest that is not downloaded yet.",
	Run: func(cmd *cobra.Command, args []string) {
		downloader := contractsDownloader(cmd)
		stats, err := downloader.Run(cmd.Context())
		printStats("contracts", stats)
		if stats.Failed > 0 {
			slog.Info("failures were recorded", "file", downloader.FailureLogPath())
		}
		if err != nil {
			serviceutil.Fatal("download run ended early", err)
		}
	},
}

var contractsRetryCmd = &cobra.Command{
	Use:   "retry-failed [--out <dir>]",
	Short: "Downloads again the contracts recorded in the failure log of the output directory.",
	Run: func(cmd *cobra.Command, args []string) {
		downloader := contractsDownloader(cmd)

		stats, err := downloader.RetryFailed(cmd.Context())
		printStats("contracts retry", stats)
		if stats.Failed > 0 {
			slog.Info("failures were recorded", "file", downloader.FailureLogPath())
		}
		if err != nil {
			serviceutil.Fatal("retry run ended early", err)
		}
	},
}
