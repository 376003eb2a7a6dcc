package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"harvest/internal/ingest"
	"harvest/lib/chrono"
	"harvest/lib/textutil"

	"github.com/go-resty/resty/v2"
)

const FailureLogName = "failed_downloads.csv"

type Config struct {
	Manifest  string `json:"manifest"`
	OutputDir string `json:"output_dir"`
	// MaxRetries is the total number of attempts per contract.
	MaxRetries int `json:"max_retries"`
	// RetryDelaySeconds is the pause between attempts, nil means the default
	// and 0 retries immediately.
	RetryDelaySeconds *float64 `json:"retry_delay_seconds"`
	TimeoutSeconds    float64  `json:"timeout_seconds"`
	Workers           int      `json:"workers"`
	CloudflareBypass  bool     `json:"cloudflare_bypass"`
}

func (c Config) WithDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = "./contracts"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = ingest.DefaultMaxRetries
	}
	if c.RetryDelaySeconds == nil || *c.RetryDelaySeconds < 0 {
		delay := ingest.DefaultRetryDelay.Seconds()
		c.RetryDelaySeconds = &delay
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

func (c Config) RetryPolicy() ingest.RetryPolicy {
	c = c.WithDefaults()
	return ingest.RetryPolicy{
		MaxRetries: c.MaxRetries,
		Delay:      time.Duration(*c.RetryDelaySeconds * float64(time.Second)),
	}
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// DownloadURL turns the viewer address of a contract into the address of
// its pdf.
func DownloadURL(viewURL string) string {
	return strings.Replace(viewURL, "/viewdocs.action?", "/getdocs.action?", 1)
}

// Target is where the pdf of the contract with the given file name is
// stored.
func Target(dir, fileName string) string {
	return filepath.Join(dir, textutil.SanitizeFileName(fileName)+".pdf")
}

type Downloader struct {
	config  Config
	fetcher *ingest.Fetcher
	clock   chrono.TimeAPI
}

func NewDownloader(config Config, client *resty.Client, clock chrono.TimeAPI) *Downloader {
	config = config.WithDefaults()
	if clock == nil {
		clock = chrono.NewStandardTime(nil)
	}
	return &Downloader{
		config:  config,
		fetcher: ingest.NewFetcher(client, config.RetryPolicy()),
		clock:   clock,
	}
}

func (d *Downloader) FailureLogPath() string {
	return filepath.Join(d.config.OutputDir, FailureLogName)
}

// Items maps manifest rows to work items keyed by their destination path.
func (d *Downloader) Items(contracts []Contract) []ingest.WorkItem {
	items := make([]ingest.WorkItem, len(contracts))
	for i, c := range contracts {
		key := ""
		if strings.TrimSpace(c.FileName) != "" {
			key = Target(d.config.OutputDir, c.FileName)
		}
		items[i] = ingest.WorkItem{
			Key:     key,
			ID:      c.ID,
			Label:   c.FileName,
			URL:     DownloadURL(c.ViewURL),
			Payload: c,
		}
	}
	return items
}

func (d *Downloader) Exists(ctx context.Context, item ingest.WorkItem) (bool, error) {
	_, err := os.Stat(item.Key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (d *Downloader) Process(ctx context.Context, item ingest.WorkItem) error {
	n, err := d.fetcher.Download(ctx, item.URL, item.Key)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "download succeeded", "file", filepath.Base(item.Key), "bytes", n)
	return nil
}

// Run downloads every contract of the manifest that is not yet present in
// the output directory.
func (d *Downloader) Run(ctx context.Context) (ingest.RunStats, error) {
	if d.config.Manifest == "" {
		return ingest.RunStats{}, fmt.Errorf("no manifest specified")
	}
	contracts, err := ReadManifest(d.config.Manifest)
	if err != nil {
		return ingest.RunStats{}, err
	}
	return d.run(ctx, "contracts", contracts)
}

// FailedContracts reads back the failure log of earlier runs, one contract
// per file name with the most recent entry winning.
func (d *Downloader) FailedContracts() ([]Contract, error) {
	entries, err := ingest.ReadFailureLog(d.FailureLogPath(), d.clock.Now().Location())
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var contracts []Contract
	for _, e := range entries {
		c := Contract{ID: e.ItemID, FileName: e.ItemLabel, ViewURL: e.SourceURL}
		if i, ok := index[e.ItemLabel]; ok {
			contracts[i] = c
			continue
		}
		index[e.ItemLabel] = len(contracts)
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// RetryFailed downloads again every contract recorded in the failure log.
// Contracts that have been downloaded since are skipped, failures are
// appended to the same log.
func (d *Downloader) RetryFailed(ctx context.Context) (ingest.RunStats, error) {
	contracts, err := d.FailedContracts()
	if err != nil {
		return ingest.RunStats{}, err
	}
	return d.run(ctx, "contracts-retry", contracts)
}

func (d *Downloader) run(ctx context.Context, name string, contracts []Contract) (ingest.RunStats, error) {
	err := os.MkdirAll(d.config.OutputDir, 0777)
	if err != nil {
		return ingest.RunStats{}, fmt.Errorf("create output dir: %w", err)
	}

	coordinator := &ingest.Coordinator{
		Name:      name,
		Source:    ingest.NewSliceSource(d.Items(contracts)),
		Dedupe:    d,
		Processor: d,
		Failures:  ingest.NewFailureLog(d.FailureLogPath(), d.clock.Now().Location()),
		Clock:     d.clock,
		Workers:   d.config.Workers,
	}
	return coordinator.Run(ctx)
}
