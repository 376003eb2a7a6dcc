package articles

import (
	"os"
	"time"

	"harvest/lib/sqliteutil"
)

const DefaultEndpoint = "https://scys.com/shengcai-web/client/homePage/searchTopic"

type Config struct {
	Endpoint string `json:"endpoint"`
	// Target is the number of newly stored articles after which crawling
	// stops.
	Target   int `json:"target"`
	PageSize int `json:"page_size"`
	// MaxPages bounds the pages requested, 0 means ceil(target / page_size).
	MaxPages         int     `json:"max_pages"`
	// PageDelaySeconds spaces listing requests, a negative value disables it.
	PageDelaySeconds float64 `json:"page_delay_seconds"`
	TimeoutSeconds   float64 `json:"timeout_seconds"`
	// RawDir receives one json artifact per listing page.
	RawDir     string            `json:"raw_dir"`
	FailureLog string            `json:"failure_log"`
	Database   sqliteutil.Config `json:"database"`

	CloudflareBypass bool `json:"cloudflare_bypass"`
}

func (c Config) WithDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Target <= 0 {
		c.Target = 100
	}
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.MaxPages <= 0 {
		c.MaxPages = (c.Target + c.PageSize - 1) / c.PageSize
	}
	// negative values stay negative so defaulting twice keeps pacing off
	if c.PageDelaySeconds == 0 {
		c.PageDelaySeconds = 1
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RawDir == "" {
		c.RawDir = "raw_api_responses"
	}
	if c.FailureLog == "" {
		c.FailureLog = "failed_articles.csv"
	}
	if c.Database.File == "" && c.Database.Url == "" {
		c.Database.File = "scys_articles.db"
	}
	return c
}

// PageDelay is 0 when pacing is disabled.
func (c Config) PageDelay() time.Duration {
	if c.PageDelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.PageDelaySeconds * float64(time.Second))
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Credentials authenticate listing requests, they are read from the
// environment rather than the config file.
type Credentials struct {
	Token   string
	Cookies map[string]string
}

// cookie name -> environment variable
var cookieEnv = map[string]string{
	"Hm_lvt_5daced94f782d31a20a30089305b8f04":  "COOKIE_HM_LVT",
	"HMACCOUNT":                                "COOKIE_HMACCOUNT",
	"_ga":                                      "COOKIE_GA",
	"Hm_lpvt_5daced94f782d31a20a30089305b8f04": "COOKIE_HM_LPVT",
	"__user_token.v3":                          "COOKIE_USER_TOKEN",
	"_ga_5WKHQQ4SFM":                           "COOKIE_GA_5WKHQQ4SFM",
}

// CredentialsFromEnv reads the session cookies and the X-Token header,
// X_TOKEN falls back to the user token cookie.
func CredentialsFromEnv() Credentials {
	creds := Credentials{Cookies: map[string]string{}}
	for name, env := range cookieEnv {
		if v := os.Getenv(env); v != "" {
			creds.Cookies[name] = v
		}
	}
	creds.Token = os.Getenv("X_TOKEN")
	if creds.Token == "" {
		creds.Token = creds.Cookies["__user_token.v3"]
	}
	return creds
}
