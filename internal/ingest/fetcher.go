package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("harvest/ingest")

// replaced in tests
var createTemp = os.CreateTemp

// Fetcher performs single retrievals with the retry policy applied.
type Fetcher struct {
	http   *resty.Client
	policy RetryPolicy
}

func NewFetcher(client *resty.Client, policy RetryPolicy) *Fetcher {
	return &Fetcher{http: client, policy: policy.WithDefaults()}
}

func (f *Fetcher) Policy() RetryPolicy {
	return f.policy
}

func classify(url string, attempts int, err error) *FetchError {
	fe := &FetchError{Kind: KindTransport, URL: url, Attempts: attempts, Err: err}
	var status *StatusError
	if errors.As(err, &status) {
		fe.Kind = KindStatus
		fe.StatusCode = status.StatusCode
	}
	return fe
}

func checkStatus(res *resty.Response) error {
	if res.StatusCode() >= 400 {
		return &StatusError{StatusCode: res.StatusCode(), Status: res.Status()}
	}
	return nil
}

// Get retrieves url and returns the response body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "fetcher:Get")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	body, attempts, err := Retry(ctx, f.policy, func(ctx context.Context, attempt int) ([]byte, error) {
		res, err := f.http.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, err
		}
		if err := checkStatus(res); err != nil {
			return nil, err
		}
		return res.Body(), nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		fe := classify(url, attempts, err)
		span.RecordError(fe)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fe
	}
	return body, nil
}

// Download streams url into dest. The body is written to a temporary file
// next to dest and renamed into place only once it was received completely,
// so an interrupted transfer never leaves a file at dest.
func (f *Fetcher) Download(ctx context.Context, url, dest string) (int64, error) {
	ctx, span := tracer.Start(ctx, "fetcher:Download")
	defer span.End()
	span.SetAttributes(attribute.String("url", url), attribute.String("dest", dest))

	err := os.MkdirAll(filepath.Dir(dest), 0777)
	if err != nil {
		return 0, &PersistError{Key: dest, Err: fmt.Errorf("create destination dir: %w", err)}
	}

	written, attempts, err := Retry(ctx, f.policy, func(ctx context.Context, attempt int) (int64, error) {
		return f.downloadOnce(ctx, url, dest)
	})
	span.SetAttributes(attribute.Int("attempts", attempts), attribute.Int64("bytes", written))
	if err != nil {
		var persist *PersistError
		if errors.As(err, &persist) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
			return 0, err
		}
		fe := classify(url, attempts, err)
		span.RecordError(fe)
		span.SetStatus(codes.Error, "download failed")
		return 0, fe
	}
	return written, nil
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) (int64, error) {
	res, err := f.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return 0, err
	}
	defer endRequestSpan(ctx, res)
	body := res.RawBody()
	defer body.Close()

	if err := checkStatus(res); err != nil {
		return 0, err
	}

	tmp, err := createTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, Permanent(&PersistError{Key: dest, Err: err})
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	dst := &fileWriter{file: tmp}
	written, err := io.Copy(dst, body)
	if dst.err != nil {
		return 0, Permanent(&PersistError{Key: dest, Err: fmt.Errorf("write %s: %w", tmpName, dst.err)})
	}
	if err != nil {
		// the connection dropped mid-body, retryable like any transport error
		return 0, fmt.Errorf("read body: %w", err)
	}
	if res.RawResponse.ContentLength > 0 && written != res.RawResponse.ContentLength {
		return 0, fmt.Errorf("short body: got %d of %d bytes", written, res.RawResponse.ContentLength)
	}
	err = tmp.Close()
	if err != nil {
		return 0, Permanent(&PersistError{Key: dest, Err: err})
	}
	err = os.Rename(tmpName, dest)
	if err != nil {
		return 0, Permanent(&PersistError{Key: dest, Err: err})
	}
	committed = true

	slog.DebugContext(ctx, "download committed", "dest", dest, "bytes", written)
	return written, nil
}

// fileWriter remembers write errors so io.Copy failures on the local side
// can be told apart from a broken response body.
type fileWriter struct {
	file *os.File
	err  error
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

// resty does not run response hooks for unparsed responses, so the span an
// instrumented client opened for the request is ended here once the body is
// consumed. ctx is the context the request was issued with.
func endRequestSpan(ctx context.Context, res *resty.Response) {
	span := trace.SpanFromContext(res.Request.Context())
	if span.SpanContext().Equal(trace.SpanContextFromContext(ctx)) {
		return
	}
	span.End()
}
