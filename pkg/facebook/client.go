package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emmakit/pkg/config"
	errs "emmakit/pkg/errors"
	"emmakit/pkg/logger"
	"emmakit/pkg/quota"
	"emmakit/pkg/retry"
)

// Scope selects which access token signs a Graph request
type Scope int

const (
	// ScopeUser signs with the application access token
	ScopeUser Scope = iota
	// ScopePage signs with the configured page access token
	ScopePage
)

func (s Scope) String() string {
	if s == ScopePage {
		return "page"
	}
	return "user"
}

// Graph error codes signalling application or user throttling
var throttleCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}

const (
	codeInvalidToken   = 190
	codeObjectNotFound = 803
)

// maxThrottleWaits bounds how often one call backs off on throttling
const maxThrottleWaits = 5

// Client is a thin Graph API accessor
type Client struct {
	httpClient *http.Client
	graphURL   string
	webURL     string
	logger     logger.Logger

	appToken  string
	pageToken string

	maxRetries int
	retryDelay time.Duration
	sleep      quota.SleepFunc
	throttle   retry.BackoffStrategy
}

// Response is a raw Graph reply
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into out
func (r *Response) Decode(path string, out interface{}) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &errs.Error{
			Type:     errs.ErrorTypeParsing,
			Message:  fmt.Sprintf("failed to decode response: %v", err),
			Code:     r.StatusCode,
			Resource: path,
			Err:      err,
		}
	}
	return nil
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithGraphURL overrides the versioned Graph root, e.g. "https://graph.facebook.com/v2.5"
func WithGraphURL(u string) Option {
	return func(c *Client) { c.graphURL = strings.TrimRight(u, "/") }
}

// WithWebURL overrides the public site used for username lookups
func WithWebURL(u string) Option {
	return func(c *Client) { c.webURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the wait used between retries
func WithSleep(sleep quota.SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient exchanges the app id and secret for an application access token
func NewClient(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	fb := cfg.Facebook
	if fb.AppID == "" || fb.AppSecret == "" {
		return nil, errs.NewAuthorization("facebook app_id and app_secret are required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Request.Timeout},
		graphURL:   strings.TrimRight(fb.BaseURL, "/") + "/" + strings.Trim(fb.APIVersion, "/"),
		webURL:     "https://www.facebook.com",
		pageToken:  fb.PageAccessToken,
		maxRetries: cfg.Request.MaxRetries,
		retryDelay: cfg.Request.RetryDelay,
		sleep:      retry.Wait,
		throttle: &retry.ExponentialBackoff{
			BaseDelay:    time.Minute,
			MaxDelay:     15 * time.Minute,
			Multiplier:   2,
			JitterFactor: 0.1,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrGlobal(c.logger).WithField("component", "facebook")
	if c.maxRetries <= 0 {
		c.maxRetries = 1
	}

	token, err := c.fetchAppToken(ctx, fb.AppID, fb.AppSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain app access token: %w", err)
	}
	c.appToken = token
	return c, nil
}

func (c *Client) fetchAppToken(ctx context.Context, appID, appSecret string) (string, error) {
	params := url.Values{
		"client_id":     {appID},
		"client_secret": {appSecret},
		"grant_type":    {"client_credentials"},
	}
	resp, err := c.do(ctx, http.MethodGet, "/oauth/access_token", params)
	if err != nil {
		return "", err
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := resp.Decode("/oauth/access_token", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errs.NewAuthorization("token endpoint returned no access_token")
	}
	return out.AccessToken, nil
}

// HasPageToken reports whether ScopePage requests can be made
func (c *Client) HasPageToken() bool {
	return c.pageToken != ""
}

// Execute issues one Graph call signed for scope. A page-scoped call without
// a configured page token fails before any request is made. Throttling
// responses are waited out with exponential backoff a bounded number of times.
func (c *Client) Execute(ctx context.Context, method, path string, params url.Values, scope Scope) (*Response, error) {
	token := c.appToken
	if scope == ScopePage {
		if c.pageToken == "" {
			return nil, errs.NewAuthorization("page access token required for " + path)
		}
		token = c.pageToken
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, errs.NewMalformedInput("method should be either GET or POST, got %q", method)
	}

	signed := url.Values{}
	for k, v := range params {
		signed[k] = append([]string(nil), v...)
	}
	signed.Set("access_token", token)

	for wait := 1; ; wait++ {
		resp, err := c.do(ctx, method, path, signed)
		if err == nil {
			return resp, nil
		}

		var apiErr *errs.Error
		if !errors.As(err, &apiErr) || apiErr.Type != errs.ErrorTypeRateLimit || wait > maxThrottleWaits {
			return nil, err
		}

		delay := c.throttle.NextDelay(wait)
		logger.LogRateLimit(c.logger, path, delay)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// do runs one request with the fixed-delay transient retry
func (c *Client) do(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	return retry.DoWithResult(func() (*Response, error) {
		return c.send(ctx, method, path, params)
	}, &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff:     &retry.ConstantBackoff{Delay: c.retryDelay},
		Context:     ctx,
		Sleep:       c.sleep,
		Logger:      c.logger.WithField("resource", path),
	})
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	// Graph takes parameters in the query string for both methods
	target := c.graphURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:     errs.ErrorTypeUnknown,
			Message:  fmt.Sprintf("failed to create request: %v", err),
			Resource: path,
			Err:      err,
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.NewNetwork(path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errs.NewNetwork(path, err)
	}
	logger.LogRequest(c.logger, method, path, httpResp.StatusCode, time.Since(start))

	resp := &Response{StatusCode: httpResp.StatusCode, Body: data}
	if err := classifyResponse(path, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// classifyResponse maps a Graph reply onto the error taxonomy; nil means success
func classifyResponse(path string, resp *Response) error {
	status := resp.StatusCode

	var payload graphError
	_ = json.Unmarshal(resp.Body, &payload)

	if status >= 200 && status < 300 && payload.Error == nil {
		return nil
	}

	code := 0
	message := http.StatusText(status)
	if payload.Error != nil {
		code = payload.Error.Code
		if payload.Error.Message != "" {
			message = payload.Error.Message
		}
	}

	e := &errs.Error{Message: message, Code: status, APICode: code, Resource: path}
	switch {
	case throttleCodes[code] || status == http.StatusTooManyRequests:
		e.Type = errs.ErrorTypeRateLimit
	case status >= 500:
		e.Type = errs.ErrorTypeServerError
	case code == codeInvalidToken || status == http.StatusUnauthorized:
		e.Type = errs.ErrorTypeAuth
	case code == codeObjectNotFound || status == http.StatusNotFound:
		e.Type = errs.ErrorTypeNotFound
	default:
		e.Type = errs.ErrorTypeAPI
	}
	return e
}
