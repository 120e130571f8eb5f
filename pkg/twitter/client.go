package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"emmakit/pkg/config"
	errs "emmakit/pkg/errors"
	"emmakit/pkg/logger"
	"emmakit/pkg/quota"
	"emmakit/pkg/retry"

	"github.com/dghubble/oauth1"
)

// Client is a rate-limit-aware Twitter REST v1.1 client.
// Each Client owns its quota tracker; clients never share quota state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger
	quota      *quota.Tracker

	maxRetries int
	retryDelay time.Duration
	sleep      quota.SleepFunc

	quotaOpts []quota.Option
}

// Response is a raw provider reply
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the body into out
func (r *Response) Decode(resource string, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &errs.Error{
			Type:     errs.ErrorTypeParsing,
			Message:  fmt.Sprintf("failed to decode response: %v", err),
			Code:     r.StatusCode,
			Resource: resource,
			Err:      err,
		}
	}
	return nil
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the OAuth1-signed client, e.g. with an httptest client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the configured API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the wait used for retry delays and quota resets
func WithSleep(sleep quota.SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithQuotaOptions passes extra options to the client's quota tracker
func WithQuotaOptions(opts ...quota.Option) Option {
	return func(c *Client) { c.quotaOpts = append(c.quotaOpts, opts...) }
}

// NewClient builds a client from configuration. Requests are signed with the
// four OAuth1 keys unless an HTTP client is injected.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.Twitter.BaseURL, "/"),
		maxRetries: cfg.Request.MaxRetries,
		retryDelay: cfg.Request.RetryDelay,
		sleep:      retry.Wait,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrGlobal(c.logger).WithField("component", "twitter")

	if c.httpClient == nil {
		if !cfg.HasTwitterCredentials() {
			return nil, errs.NewAuthorization("twitter consumer_key, consumer_secret, access_token and access_secret are required")
		}
		oauthConfig := oauth1.NewConfig(cfg.Twitter.ConsumerKey, cfg.Twitter.ConsumerSecret)
		token := oauth1.NewToken(cfg.Twitter.AccessToken, cfg.Twitter.AccessSecret)
		c.httpClient = oauthConfig.Client(context.Background(), token)
		c.httpClient.Timeout = cfg.Request.Timeout
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 1
	}

	trackerOpts := append([]quota.Option{
		quota.WithLogger(c.logger),
		quota.WithSleep(c.sleep),
	}, c.quotaOpts...)
	c.quota = quota.NewTracker(c, trackerOpts...)

	return c, nil
}

// Quota exposes the client's tracker
func (c *Client) Quota() *quota.Tracker {
	return c.quota
}

// Execute issues one call to path (e.g. "/followers/ids"). GET parameters go
// in the query, POST parameters in a form body. Connection failures and 5xx
// responses are retried with a fixed delay up to the configured attempt count.
// Application error payloads are returned classified, never swallowed.
func (c *Client) Execute(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	endpoint := c.baseURL + path + ".json"

	var resp *Response
	err := retry.Do(func() error {
		r, err := c.send(ctx, method, endpoint, path, params)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff:     &retry.ConstantBackoff{Delay: c.retryDelay},
		Context:     ctx,
		Sleep:       c.sleep,
		Logger:      c.logger.WithField("resource", path),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, endpoint, resource string, params url.Values) (*Response, error) {
	var body io.Reader
	target := endpoint
	if method == http.MethodPost {
		body = strings.NewReader(params.Encode())
	} else if len(params) > 0 {
		target = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &errs.Error{
			Type:     errs.ErrorTypeUnknown,
			Message:  fmt.Sprintf("failed to create request: %v", err),
			Resource: resource,
			Err:      err,
		}
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WithError(err).WarnWithFields("request failed", map[string]interface{}{
			"method":   method,
			"resource": resource,
		})
		return nil, errs.NewNetwork(resource, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errs.NewNetwork(resource, err)
	}
	logger.LogRequest(c.logger, method, resource, httpResp.StatusCode, time.Since(start))

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if err := classifyResponse(resource, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// classifyResponse maps a reply onto the error taxonomy; nil means success
func classifyResponse(resource string, resp *Response) error {
	status := resp.StatusCode

	var payload errorPayload
	_ = json.Unmarshal(resp.Body, &payload)

	apiCode := 0
	message := payload.Error
	if len(payload.Errors) > 0 {
		apiCode = payload.Errors[0].Code
		message = payload.Errors[0].Message
	}

	if status >= 200 && status < 300 && apiCode == 0 {
		return nil
	}
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case apiCode == errs.CodeRateLimitExceeded || status == http.StatusTooManyRequests:
		return errs.NewRateLimit(resource, status, parseRateLimitReset(resp.Header.Get("x-rate-limit-reset")))
	case status >= 500:
		return &errs.Error{
			Type:     errs.ErrorTypeServerError,
			Message:  message,
			Code:     status,
			APICode:  apiCode,
			Resource: resource,
		}
	case status == http.StatusNotFound,
		apiCode == errs.CodeNoUserMatches,
		apiCode == errs.CodePageNotFound,
		apiCode == errs.CodeUserNotFound,
		apiCode == errs.CodeUserSuspended:
		return &errs.Error{
			Type:     errs.ErrorTypeNotFound,
			Message:  message,
			Code:     status,
			APICode:  apiCode,
			Resource: resource,
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &errs.Error{
			Type:     errs.ErrorTypeAuth,
			Message:  message,
			Code:     status,
			APICode:  apiCode,
			Resource: resource,
		}
	default:
		return errs.NewAPI(resource, status, apiCode, message)
	}
}

// parseRateLimitReset reads the x-rate-limit-reset unix timestamp header.
// A missing or invalid header yields the zero time; the tracker then assumes a full window.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}

// call runs one quota-governed request: wait while the resource is exhausted,
// execute, and on a provider rate limit mark the resource exhausted and try
// again. Quota is consumed only after a confirmed success.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	resource := quotaResource(path)
	for {
		if err := c.quota.Await(ctx, resource); err != nil {
			return err
		}

		resp, err := c.Execute(ctx, method, path, params)
		if err != nil {
			var apiErr *errs.Error
			if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit {
				c.quota.MarkExhausted(resource, apiErr.ResetAt)
				continue
			}
			return err
		}

		c.quota.Consume(resource)
		return resp.Decode(path, out)
	}
}

// quotaResource maps a request path to the key the rate limit status endpoint reports it under
func quotaResource(path string) string {
	switch path {
	case "/users/show":
		return "/users/show/:id"
	default:
		return path
	}
}
