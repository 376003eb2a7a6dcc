package bitable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"harvest/internal/ingest"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("harvest/export/bitable")

const (
	DefaultBaseURL = "https://open.feishu.cn/open-apis"
	// BatchSize is the number of records sent per batch_create call.
	BatchSize  = 100
	BatchDelay = 500 * time.Millisecond
)

// APIError is a response whose code is not 0.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Op, e.Code, e.Msg)
}

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type AppCredentials struct {
	AppID     string
	AppSecret string
}

// Client talks to the bitable open api. The resty client it is given must
// have its base url set to the api root.
type Client struct {
	http  *resty.Client
	creds AppCredentials
	token string
	pacer *ingest.Pacer
}

func NewClient(client *resty.Client, creds AppCredentials) *Client {
	return &Client{
		http:  client,
		creds: creds,
		pacer: ingest.NewPacer(BatchDelay),
	}
}

func (c *Client) post(ctx context.Context, op, path string, body any, out any) error {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	res, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var decoded apiResponse
	err = json.Unmarshal(res.Body(), &decoded)
	if err != nil {
		if res.IsError() {
			return fmt.Errorf("%s: HTTP %s", op, res.Status())
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	if decoded.Code != 0 {
		return &APIError{Op: op, Code: decoded.Code, Msg: decoded.Msg}
	}
	if res.IsError() {
		return fmt.Errorf("%s: HTTP %s", op, res.Status())
	}
	if out != nil && len(decoded.Data) > 0 {
		err = json.Unmarshal(decoded.Data, out)
		if err != nil {
			return fmt.Errorf("%s: decode data: %w", op, err)
		}
	}
	return nil
}

// Authenticate obtains a tenant access token, which every other call uses.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Authenticate")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"app_id":     c.creds.AppID,
			"app_secret": c.creds.AppSecret,
		}).
		Post("/auth/v3/tenant_access_token/internal")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("get tenant access token: %w", err)
	}

	var decoded struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	err = json.Unmarshal(res.Body(), &decoded)
	if err != nil {
		err = fmt.Errorf("get tenant access token: HTTP %s", res.Status())
	} else if decoded.Code != 0 || decoded.TenantAccessToken == "" {
		err = &APIError{Op: "get tenant access token", Code: decoded.Code, Msg: decoded.Msg}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	c.token = decoded.TenantAccessToken
	return nil
}

// CreateApp creates a new bitable app and returns its app token. The
// folder token is optional.
func (c *Client) CreateApp(ctx context.Context, name, folderToken string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:CreateApp")
	defer span.End()

	body := map[string]string{"name": name}
	if folderToken != "" {
		body["folder_token"] = folderToken
	}
	var data struct {
		App struct {
			AppToken string `json:"app_token"`
		} `json:"app"`
	}
	err := c.post(ctx, "create bitable", "/bitable/v1/apps", body, &data)
	if err == nil && data.App.AppToken == "" {
		err = fmt.Errorf("create bitable: no app token in response")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return data.App.AppToken, nil
}

// CreateTable adds a table with the given fields to an app and returns
// its id.
func (c *Client) CreateTable(ctx context.Context, appToken, name string, fields []Field) (string, error) {
	ctx, span := tracer.Start(ctx, "client:CreateTable")
	defer span.End()
	span.SetAttributes(attribute.String("app_token", appToken), attribute.String("table", name))

	body := map[string]any{
		"table": map[string]any{
			"name":   name,
			"fields": fields,
		},
	}
	var data struct {
		TableID string `json:"table_id"`
	}
	err := c.post(ctx, "create table", fmt.Sprintf("/bitable/v1/apps/%s/tables", appToken), body, &data)
	if err == nil && data.TableID == "" {
		err = fmt.Errorf("create table: no table id in response")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return data.TableID, nil
}

// BatchCreateRecords sends records in batches of BatchSize, pausing
// between batches. A failed batch does not stop the remaining ones, the
// number of records created is returned along with every batch error.
func (c *Client) BatchCreateRecords(ctx context.Context, appToken, tableID string, records []Record) (int, error) {
	ctx, span := tracer.Start(ctx, "client:BatchCreateRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	path := fmt.Sprintf("/bitable/v1/apps/%s/tables/%s/records/batch_create", appToken, tableID)
	created := 0
	var errs []error
	for start := 0; start < len(records); start += BatchSize {
		err := c.pacer.Wait(ctx)
		if err != nil {
			errs = append(errs, err)
			break
		}
		end := min(start+BatchSize, len(records))
		batch := records[start:end]

		err = c.post(ctx, "batch create records", path, map[string]any{"records": batch}, nil)
		if err != nil {
			slog.WarnContext(ctx, "failed to add records", "from", start+1, "to", end, "err", err)
			errs = append(errs, err)
			continue
		}
		created += len(batch)
		slog.InfoContext(ctx, "added records", "count", len(batch))
	}

	span.SetAttributes(attribute.Int("created", created))
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "some batches failed")
	}
	return created, err
}
