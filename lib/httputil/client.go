package httputil

import (
	"net/http"
	"time"

	"harvest/lib/restyutil"
	"harvest/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	BaseUrl   string
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
	Cookies   map[string]string
	// wraps the transport with a cloudflare bot-check bypass
	CloudflareBypass bool
	// span names are prefixed with this, defaults to "harvest/http"
	TracerName string
	// when set every exchange is dumped here, used with --verbose
	Transcripts restyutil.InstrumentOutput
}

// NewClient creates an instrumented resty client. resty's own retry is left
// disabled, callers decide what is retryable.
func NewClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeader("User-Agent", userAgent)
	client.SetHeaders(opts.Headers)

	for name, value := range opts.Cookies {
		if value == "" {
			continue
		}
		client.SetCookie(&http.Cookie{Name: name, Value: value})
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "harvest/http"
	}
	telemetry.InstrumentResty(client, tracerName)
	restyutil.InstrumentClient(client, opts.Transcripts)

	return client
}
