package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/awion/sentinel-dash/model"
	"github.com/awion/sentinel-dash/public/metrics"
)

// HTTPError is returned for any non-2xx response. Message is the response
// body, or the standard status text when the body is empty.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Config holds the API client settings
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the SOC server's JSON API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates an API client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	base, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		logger:  logger,
		metrics: m,
	}, nil
}

// NormalizeBaseURL validates raw as an http(s) URL with a host and strips
// any trailing slash, query and fragment.
func NormalizeBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("api base URL cannot be empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api base URL must use http or https")
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return nil, fmt.Errorf("api base URL must include a host")
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed, nil
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchJSON performs a request against path (relative to the base URL, may
// carry a query string) and decodes a 2xx JSON body into out. out may be nil.
func (c *Client) FetchJSON(ctx context.Context, method, path string, body, out interface{}) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	endpoint := endpointLabel(path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.FetchDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.FetchDuration.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	c.logger.Debug("api response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(resp.Body)
		msg := string(detail)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) resolve(path string) (string, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(rel.Path, "/")
	if rel.RawPath != "" {
		u.RawPath = c.baseURL.EscapedPath() + "/" + strings.TrimLeft(rel.RawPath, "/")
	}
	u.RawQuery = rel.RawQuery
	return u.String(), nil
}

// endpointLabel keeps metric cardinality bounded: dataset filenames are
// collapsed into one label value.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasPrefix(path, ingestPathPrefix) {
		return ingestPathPrefix + "{filename}"
	}
	return path
}

const ingestPathPrefix = "/demo/ingest-dataset/"

// Alerts fetches every alert the server holds.
func (c *Client) Alerts(ctx context.Context) ([]model.Alert, error) {
	var alerts []model.Alert
	if err := c.FetchJSON(ctx, http.MethodGet, "/alerts", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Logs fetches at most limit log entries.
func (c *Client) Logs(ctx context.Context, limit int) ([]model.LogEntry, error) {
	var logs []model.LogEntry
	path := "/logs?limit=" + strconv.Itoa(limit)
	if err := c.FetchJSON(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Datasets lists the demo datasets available for ingestion.
func (c *Client) Datasets(ctx context.Context) ([]model.Dataset, error) {
	var list model.DatasetList
	if err := c.FetchJSON(ctx, http.MethodGet, "/demo/datasets", nil, &list); err != nil {
		return nil, err
	}
	return list.Datasets, nil
}

// IngestDataset asks the server to ingest the named demo dataset.
func (c *Client) IngestDataset(ctx context.Context, filename string) (model.IngestResult, error) {
	var result model.IngestResult
	path := ingestPathPrefix + url.PathEscape(filename)
	if err := c.FetchJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return model.IngestResult{}, err
	}
	return result, nil
}

// Health probes the server's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.FetchJSON(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("server reported status %q", status.Status)
	}
	return nil
}
