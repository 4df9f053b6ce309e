package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/romdeck/romdeck/internal/config"
	"github.com/romdeck/romdeck/internal/httpx"
	"github.com/romdeck/romdeck/internal/logging"
	"github.com/romdeck/romdeck/internal/models"
)

// retryLogger implements the retryablehttp.LeveledLogger interface on top of
// the romdeck logger. Only warnings and errors are forwarded.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Interface("details", keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Interface("details", keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

// Client talks to the romdeck download server's HTTP API.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewClient creates a new API client from the given configuration.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	httpClient, err := httpx.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = &retryLogger{logger: logger}

	return &Client{
		httpClient: retryClient.StandardClient(),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

// BaseURL returns the server base URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIKey returns the configured API key (empty when auth is disabled).
func (c *Client) APIKey() string {
	return c.apiKey
}

// doRequest performs an HTTP request with authentication headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Str("method", method).Str("path", path).Err(err).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// decodeResponse checks the response status and decodes the body into out.
// Non-2xx responses become a *RequestError carrying the server's detail.
func decodeResponse(resp *nethttp.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := struct {
			Detail string `json:"detail"`
		}{}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(raw, &detail); err != nil || detail.Detail == "" {
			detail.Detail = strings.TrimSpace(string(raw))
		}
		return &RequestError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Status probes the server's readiness.
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/status", nil)
	if err != nil {
		return nil, err
	}
	var status ServerStatus
	if err := decodeResponse(resp, &status); err != nil {
		return nil, fmt.Errorf("status check failed: %w", err)
	}
	return &status, nil
}

// ListPlatforms fetches all platforms in the catalog.
func (c *Client) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/platforms", nil)
	if err != nil {
		return nil, err
	}
	var platforms []models.Platform
	if err := decodeResponse(resp, &platforms); err != nil {
		return nil, fmt.Errorf("list platforms failed: %w", err)
	}
	return platforms, nil
}

// ListGames fetches the game list for one platform.
func (c *Client) ListGames(ctx context.Context, platformID string) ([]models.Game, error) {
	path := "/api/platforms/" + url.PathEscape(platformID) + "/games"
	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var games []models.Game
	if err := decodeResponse(resp, &games); err != nil {
		return nil, fmt.Errorf("list games for %s failed: %w", platformID, err)
	}
	return games, nil
}

// History fetches download history. status filters by canonical status when
// non-empty; limit > 0 restricts to the most recent entries.
func (c *Client) History(ctx context.Context, status models.Status, limit int) ([]models.HistoryEntry, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status.String())
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var entries []models.HistoryEntry
	if err := decodeResponse(resp, &entries); err != nil {
		return nil, fmt.Errorf("list history failed: %w", err)
	}
	return entries, nil
}

// Search performs a catalog search. platformID restricts the search to one
// platform when non-empty.
func (c *Client) Search(ctx context.Context, query, platformID string, limit int) ([]models.Game, error) {
	params := url.Values{}
	params.Set("q", query)
	if platformID != "" {
		params.Set("platform_id", platformID)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.doRequest(ctx, "GET", "/api/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var results []models.Game
	if err := decodeResponse(resp, &results); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

// StartDownload asks the server to begin one download job.
func (c *Client) StartDownload(ctx context.Context, req DownloadRequest) (*DownloadOutcome, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/download", req)
	if err != nil {
		return nil, err
	}
	var outcome DownloadOutcome
	if err := decodeResponse(resp, &outcome); err != nil {
		return nil, fmt.Errorf("start download failed: %w", err)
	}
	return &outcome, nil
}

// StartBatch submits multiple download intents in one request and returns
// one outcome per item. Individual rejections do not fail the whole call.
func (c *Client) StartBatch(ctx context.Context, reqs []DownloadRequest) ([]DownloadOutcome, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/downloads/batch", BatchRequest{Downloads: reqs})
	if err != nil {
		return nil, err
	}
	var batch BatchResponse
	if err := decodeResponse(resp, &batch); err != nil {
		return nil, fmt.Errorf("start batch failed: %w", err)
	}
	return batch.Tasks, nil
}

// Cancel requests cancellation of a job by task id and/or URL.
func (c *Client) Cancel(ctx context.Context, taskID, jobURL string) error {
	if taskID == "" && jobURL == "" {
		return fmt.Errorf("cancel requires a task id or url")
	}
	resp, err := c.doRequest(ctx, "POST", "/api/cancel", CancelRequest{TaskID: taskID, URL: jobURL})
	if err != nil {
		return err
	}
	var ok okResponse
	if err := decodeResponse(resp, &ok); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	return nil
}

// Redownload re-triggers a download for a URL already present in history.
func (c *Client) Redownload(ctx context.Context, jobURL string) (*DownloadOutcome, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/history/redownload", RedownloadRequest{URL: jobURL})
	if err != nil {
		return nil, err
	}
	var outcome DownloadOutcome
	if err := decodeResponse(resp, &outcome); err != nil {
		return nil, fmt.Errorf("redownload failed: %w", err)
	}
	return &outcome, nil
}

// OnefichierStatus reports whether the server has a 1fichier API key.
func (c *Client) OnefichierStatus(ctx context.Context) (*OnefichierStatus, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/settings/onefichier", nil)
	if err != nil {
		return nil, err
	}
	var status OnefichierStatus
	if err := decodeResponse(resp, &status); err != nil {
		return nil, fmt.Errorf("get 1fichier status failed: %w", err)
	}
	return &status, nil
}

// SetOnefichierKey stores or updates the 1fichier API key on the server.
func (c *Client) SetOnefichierKey(ctx context.Context, key string) error {
	body := struct {
		APIKey string `json:"api_key"`
	}{APIKey: key}
	resp, err := c.doRequest(ctx, "POST", "/api/settings/onefichier", body)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		return fmt.Errorf("set 1fichier key failed: %w", err)
	}
	return nil
}

// ProgressURL returns the WebSocket endpoint for one job's progress channel.
// The scheme is derived from the base URL; the API key, when configured, is
// carried as a query parameter because WebSocket clients cannot send custom
// headers from the browser-equivalent path.
func (c *Client) ProgressURL(jobURL string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/ws/progress"

	params := url.Values{}
	params.Set("url", jobURL)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	base.RawQuery = params.Encode()

	return base.String(), nil
}
