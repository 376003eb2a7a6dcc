package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"harvest/lib/configutil"
	"harvest/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "harvest-cli",
	Short: "harvest-cli downloads contract pdfs, crawls digested articles and exports them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		err := configutil.LoadEnv()
		if err != nil {
			slog.Warn("failed to load env files", "err", err)
		}
		err = telemetry.SetupFromEnv(cmd.Context(), "harvest-cli")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		telemetry.InstrumentPerfStats(cmd.Context())
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "harvest.json5", "The config file, harvest.local.json5 next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output and write http transcripts.")
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
