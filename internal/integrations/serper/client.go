package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsbias/internal/domain"
)

const (
	defaultBaseURL = "https://google.serper.dev"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds the read limit.
var ErrResponseTooLarge = errors.New("serper: response too large")

type extractRequest struct {
	URL string `json:"url"`
}

// extractResponse is the subset of the /extract payload we read. Text is a
// pointer so a missing field can be told apart from decode failure.
type extractResponse struct {
	Text *string `json:"text"`
}

// NewsQuery is the request body of the /news endpoint.
type NewsQuery struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
}

type newsResponse struct {
	News []domain.Reference `json:"news"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("serper: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the Serper extraction and news search endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("serper: api key must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

// Extract returns the cleaned text of the article at articleURL. A response
// without a text field is not an error and yields "".
func (c *Client) Extract(ctx context.Context, articleURL string) (string, error) {
	articleURL = strings.TrimSpace(articleURL)
	if articleURL == "" {
		return "", errors.New("serper: article url is required")
	}

	raw, err := c.post(ctx, "/extract", extractRequest{URL: articleURL})
	if err != nil {
		return "", fmt.Errorf("serper: extract %q: %w", articleURL, err)
	}

	var payload extractResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("serper: decode extract response: %w", err)
	}
	if payload.Text == nil {
		return "", nil
	}
	return *payload.Text, nil
}

// SearchNews runs a news query and returns results in API order.
func (c *Client) SearchNews(ctx context.Context, q NewsQuery) ([]domain.Reference, error) {
	if strings.TrimSpace(q.Q) == "" {
		return nil, errors.New("serper: news query is required")
	}

	raw, err := c.post(ctx, "/news", q)
	if err != nil {
		return nil, fmt.Errorf("serper: news search: %w", err)
	}

	var payload newsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("serper: decode news response: %w", err)
	}
	return payload.News, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	return c.doJSONRequest(req, url)
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(buf) > maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrResponseTooLarge, maxBodyBytes, url)
	}
	return buf, nil
}
