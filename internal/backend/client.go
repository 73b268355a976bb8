// Package backend is the HTTP client for the school REST backend. Every call
// carries the viewer's credential and the inbound request id.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/middleware/requestid"
)

const maxBodyBytes = 32 << 20

// FetchObserver receives timing and outcome for every backend call.
type FetchObserver interface {
	ObserveFetch(resource, outcome string, duration time.Duration)
}

// Client talks to the school backend.
type Client struct {
	baseURL    string
	authScheme string
	http       *http.Client
	observer   FetchObserver
	logger     *zap.Logger
}

// NewClient constructs a backend client. A nil httpClient gets one with the
// configured timeout.
func NewClient(cfg config.BackendConfig, httpClient *http.Client, observer FetchObserver, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	scheme := strings.TrimSpace(cfg.AuthScheme)
	if scheme == "" {
		scheme = "Bearer"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authScheme: scheme,
		http:       httpClient,
		observer:   observer,
		logger:     logger,
	}
}

type call struct {
	resource string
	method   string
	path     string
	query    url.Values
	body     interface{}
}

// do executes the call and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, credential string, req call, out interface{}) error {
	raw, err := c.send(ctx, credential, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "unexpected response from school backend")
	}
	return nil
}

func (c *Client) send(ctx context.Context, credential string, req call) ([]byte, error) {
	start := time.Now()
	raw, err := c.roundTrip(ctx, credential, req)
	c.observe(req.resource, err, time.Since(start))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("backend call failed",
			zap.String("resource", req.resource),
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err),
		)
	}
	return raw, err
}

func (c *Client) roundTrip(ctx context.Context, credential string, req call) ([]byte, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build backend request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		httpReq.Header.Set("Authorization", c.authScheme+" "+credential)
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.HeaderKey, id)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, statusError(resp.StatusCode, raw)
}

func (c *Client) observe(resource string, err error, duration time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	default:
		outcome = strings.ToLower(appErrors.FromError(err).Code)
	}
	c.observer.ObserveFetch(resource, outcome, duration)
}

// statusError maps a non-2xx backend response onto the error taxonomy.
func statusError(status int, body []byte) error {
	detail, fields := decodeErrorBody(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	case status == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, detail)
	case status == http.StatusConflict:
		return appErrors.WithFields(appErrors.ErrConflict, fields, detail)
	case status >= 400 && status < 500:
		if len(fields) == 0 && detail != "" {
			fields = map[string][]string{"detail": {detail}}
		}
		return appErrors.WithFields(appErrors.ErrValidation, fields, "")
	default:
		return appErrors.Wrap(fmt.Errorf("backend responded %d", status), appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}
}

// decodeErrorBody understands the REST framework error shapes: {"detail": ...},
// {"field": ["msg", ...]} and a bare ["msg", ...] list.
func decodeErrorBody(body []byte) (string, map[string][]string) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", nil
	}
	switch v := decoded.(type) {
	case []interface{}:
		return "", map[string][]string{"non_field_errors": flattenMessages(v)}
	case map[string]interface{}:
		var detail string
		fields := make(map[string][]string)
		for key, value := range v {
			if key == "detail" {
				detail = strings.Join(flattenMessages(value), ", ")
				continue
			}
			if msgs := flattenMessages(value); len(msgs) > 0 {
				fields[key] = msgs
			}
		}
		if len(fields) == 0 {
			fields = nil
		}
		return detail, fields
	case string:
		return v, nil
	}
	return "", nil
}

func flattenMessages(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, flattenMessages(item)...)
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flattenMessages(v[k])...)
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// decodeList accepts either a bare JSON array or a paginated {"results": [...]} page.
func decodeList(raw []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return err
		}
		trimmed = page.Results
	}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, out)
}
