package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"photoback/pkg/logger"
	"photoback/pkg/ratelimit"
)

// ErrorType classifies API errors
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a remote library API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("photos %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// TokenSource supplies the bearer token attached to every API request
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the remote photos library API
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a new API client. The connect timeout is short so a
// dead network fails fast, but there is no overall request timeout:
// media transfers may legitimately run for a long time.
func NewClient(baseURL string, connectTimeout time.Duration, tokens TokenSource, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    baseURL,
		tokens:     tokens,
		limiter:    limiter,
		logger:     log,
	}
}

// ListMediaItems fetches one page of the user's library
func (c *Client) ListMediaItems(ctx context.Context, pageSize int, pageToken string) (*MediaItemsResponse, error) {
	var response MediaItemsResponse
	url := ListMediaItemsURL(c.baseURL, pageSize, pageToken)
	if err := c.getJSON(ctx, url, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SearchAlbumMediaItems fetches one page of the given album's items
func (c *Client) SearchAlbumMediaItems(ctx context.Context, albumID string, pageSize int, pageToken string) (*MediaItemsResponse, error) {
	body := searchRequest{
		AlbumID:   albumID,
		PageSize:  clampPageSize(pageSize),
		PageToken: pageToken,
	}
	var response MediaItemsResponse
	if err := c.postJSON(ctx, SearchMediaItemsURL(c.baseURL), body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListAlbums fetches one page of the user's albums
func (c *Client) ListAlbums(ctx context.Context, pageSize int, pageToken string) (*AlbumsResponse, error) {
	var response AlbumsResponse
	url := ListAlbumsURL(c.baseURL, pageSize, pageToken)
	if err := c.getJSON(ctx, url, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Download opens a streaming byte fetch of the given URL. The caller
// owns the returned body and must close it.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// do performs an HTTP request with bearer auth and client-side pacing
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Debug("rate limit reached, waiting for a slot")
		c.limiter.Wait()
	}

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, &Error{Type: ErrorTypeAuth, Message: fmt.Sprintf("no bearer token: %v", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	return c.doJSON(req, target)
}

func (c *Client) postJSON(ctx context.Context, url string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Type: ErrorTypeParsing, Message: fmt.Sprintf("failed to encode request body: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, target)
}

func (c *Client) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps HTTP status codes onto the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{Type: ErrorTypeAuth, Message: "authentication required", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Type: ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &Error{Type: ErrorTypeServerError, Message: "server error", Code: resp.StatusCode}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// IsNotFound reports whether err is a per-item 404
func IsNotFound(err error) bool {
	return errType(err) == ErrorTypeNotFound
}

// IsRateLimited reports whether err is a remote 429
func IsRateLimited(err error) bool {
	return errType(err) == ErrorTypeRateLimit
}

func errType(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ""
}
