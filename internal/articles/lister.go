package articles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"harvest/lib/chrono"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type listRequest struct {
	IsDigested    bool   `json:"isDigested"`
	IsSimpleModel bool   `json:"isSimpleModel"`
	OrderBy       string `json:"orderBy"`
	PageScene     string `json:"pageScene"`
	PageIndex     int    `json:"pageIndex"`
	PageSize      int    `json:"pageSize"`
	TopicTypeId   string `json:"topicTypeId"`
}

type listResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Items []Item `json:"items"`
	} `json:"data"`
}

type Page struct {
	Index int
	Items []Item
	// Artifact is the file the raw response was saved to.
	Artifact string
}

// Lister requests pages of the digested article listing.
type Lister struct {
	client   *resty.Client
	endpoint string
	pageSize int
	rawDir   string
	clock    chrono.TimeAPI
}

func NewLister(client *resty.Client, config Config, creds Credentials, clock chrono.TimeAPI) *Lister {
	config = config.WithDefaults()
	if clock == nil {
		clock = chrono.NewStandardTime(nil)
	}
	client.SetHeader("Accept", "application/json, text/plain, */*")
	if creds.Token != "" {
		client.SetHeader("X-Token", creds.Token)
	}
	for name, value := range creds.Cookies {
		client.SetCookie(&http.Cookie{Name: name, Value: value})
	}
	return &Lister{
		client:   client,
		endpoint: config.Endpoint,
		pageSize: config.PageSize,
		rawDir:   config.RawDir,
		clock:    clock,
	}
}

// Page requests the page with the given 1-based index. Every response
// that could be decoded is saved to the raw directory before it is
// inspected, a response with success=false is then returned as an error.
func (l *Lister) Page(ctx context.Context, index int) (Page, error) {
	ctx, span := tracer.Start(ctx, "lister:Page")
	defer span.End()
	span.SetAttributes(attribute.Int("page", index))

	page, err := l.page(ctx, index)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return page, err
	}
	span.SetAttributes(attribute.Int("items", len(page.Items)))
	return page, nil
}

func (l *Lister) page(ctx context.Context, index int) (Page, error) {
	page := Page{Index: index}

	res, err := l.client.R().
		SetContext(ctx).
		SetBody(listRequest{
			IsDigested:    true,
			IsSimpleModel: false,
			OrderBy:       "gmt_create",
			PageScene:     "homePage",
			PageIndex:     index,
			PageSize:      l.pageSize,
			TopicTypeId:   "",
		}).
		Post(l.endpoint)
	if err != nil {
		return page, fmt.Errorf("list page %d: %w", index, err)
	}
	if res.StatusCode() != 200 {
		return page, fmt.Errorf("list page %d: HTTP %s", index, res.Status())
	}

	var decoded listResponse
	decoder := json.NewDecoder(bytes.NewReader(res.Body()))
	decoder.UseNumber()
	err = decoder.Decode(&decoded)
	if err != nil {
		return page, fmt.Errorf("list page %d: decode: %w", index, err)
	}

	page.Artifact, err = l.saveRaw(index, res.Body())
	if err != nil {
		slog.WarnContext(ctx, "failed to save raw listing response", "page", index, "err", err)
	} else {
		slog.DebugContext(ctx, "saved raw listing response", "page", index, "file", page.Artifact)
	}

	if !decoded.Success {
		return page, fmt.Errorf("list page %d: request failed: %s", index, decoded.Message)
	}
	page.Items = decoded.Data.Items
	return page, nil
}

func (l *Lister) saveRaw(index int, body []byte) (string, error) {
	err := os.MkdirAll(l.rawDir, 0777)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_page_%d.json", l.clock.Now().Format("20060102_150405"), index)
	path := filepath.Join(l.rawDir, name)

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") != nil {
		pretty.Reset()
		pretty.Write(body)
	}
	return path, os.WriteFile(path, pretty.Bytes(), 0644)
}
