package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "emmakit/pkg/errors"
	"emmakit/pkg/logger"
	"emmakit/pkg/quota"
)

const rateLimitStatusPath = "/application/rate_limit_status"

// statusBackoff is waited when the status endpoint itself is limited without a reset header.
const statusBackoff = time.Minute

// RateLimitStatus reads the provider's current windows for the given
// resource families (e.g. "followers", "users"). The status endpoint has its
// own small quota; when that is hit the call waits and asks again.
func (c *Client) RateLimitStatus(ctx context.Context, families ...string) (map[string]quota.Quota, error) {
	params := url.Values{}
	if len(families) > 0 {
		params.Set("resources", strings.Join(families, ","))
	}

	for {
		resp, err := c.Execute(ctx, http.MethodGet, rateLimitStatusPath, params)
		if err != nil {
			var apiErr *errs.Error
			if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit {
				wait := statusBackoff
				if !apiErr.ResetAt.IsZero() {
					wait = time.Until(apiErr.ResetAt)
				}
				if wait < time.Second {
					wait = time.Second
				}
				logger.LogRateLimit(c.logger, rateLimitStatusPath, wait)
				if err := c.sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		var status rateLimitResponse
		if err := resp.Decode(rateLimitStatusPath, &status); err != nil {
			return nil, err
		}

		out := make(map[string]quota.Quota)
		for _, resources := range status.Resources {
			for resource, window := range resources {
				out[resource] = quota.Quota{
					Resource:  resource,
					Limit:     window.Limit,
					Remaining: window.Remaining,
					ResetAt:   time.Unix(window.Reset, 0),
				}
			}
		}
		return out, nil
	}
}

// FetchQuotas implements quota.Fetcher
func (c *Client) FetchQuotas(ctx context.Context, families []string) (map[string]quota.Quota, error) {
	return c.RateLimitStatus(ctx, families...)
}
