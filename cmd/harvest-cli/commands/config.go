package commands

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"harvest/internal/articles"
	articlesdb "harvest/internal/articles/db"
	"harvest/internal/contracts"
	"harvest/lib/chrono"
	"harvest/lib/configutil"
	"harvest/lib/httputil"
	"harvest/lib/restyutil"
	"harvest/lib/serviceutil"

	"github.com/go-resty/resty/v2"
)

type BitableConfig struct {
	BaseUrl   string `json:"base_url"`
	TableName string `json:"table_name"`
	// EnvFile receives the token of newly created apps.
	EnvFile string `json:"env_file"`
}

type HtmlConfig struct {
	Dir   string `json:"dir"`
	Limit int    `json:"limit"`
}

type Config struct {
	// Timezone is an IANA name, "" means the local timezone.
	Timezone      string           `json:"timezone"`
	TranscriptDir string           `json:"transcript_dir"`
	Contracts     contracts.Config `json:"contracts"`
	Articles      articles.Config  `json:"articles"`
	Bitable       BitableConfig    `json:"bitable"`
	Html          HtmlConfig       `json:"html"`
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfigOrDefault[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.TranscriptDir == "" {
		cfg.TranscriptDir = ".dev/resty"
	}
	if cfg.Bitable.EnvFile == "" {
		cfg.Bitable.EnvFile = ".env"
	}
	return cfg
}

func (c Config) clock() chrono.TimeAPI {
	loc, err := chrono.LoadLocation(c.Timezone)
	if err != nil {
		serviceutil.Fatal("invalid timezone", err)
	}
	return chrono.NewStandardTime(loc)
}

// transcripts dumps every http exchange of a client when --verbose is set.
func (c Config) transcripts(client string) restyutil.InstrumentOutput {
	if !*verbose {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(filepath.Join(c.TranscriptDir, client))
	if err != nil {
		slog.Warn("http transcripts disabled", "err", err)
		return nil
	}
	return output
}

func (c Config) newClient(name string, opts httputil.ClientOptions) *resty.Client {
	opts.TracerName = "harvest/http/" + name
	opts.Transcripts = c.transcripts(name)
	return httputil.NewClient(opts)
}

func (c Config) openArticleStore() (*articles.Store, *sql.DB) {
	database, err := c.Articles.WithDefaults().Database.OpenDB(articlesdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open article db", err)
	}
	return articles.NewStore(database), database
}

func requireEnv(name string) string {
	value := os.Getenv(name)
	if value == "" {
		serviceutil.Fatal("missing environment variable", &missingEnvError{name: name})
	}
	return value
}

type missingEnvError struct {
	name string
}

func (e *missingEnvError) Error() string {
	return e.name + " is not set, add it to .env"
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}
