package facebook

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "emmakit/pkg/errors"
)

// Comment is a Graph comment object
type Comment struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	CreatedTime GraphTime `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
	LikeCount int `json:"like_count"`
}

// GraphTime parses Graph timestamps such as "2016-03-01T12:00:00+0000"
type GraphTime struct {
	time.Time
}

const graphTimeLayout = "2006-01-02T15:04:05-0700"

func (t *GraphTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(graphTimeLayout, raw)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339, raw); err != nil {
			return err
		}
	}
	t.Time = parsed
	return nil
}

// ObjectComments returns the first page of comments on a post, photo, video
// or event. An object without a data list yields no comments.
func (c *Client) ObjectComments(ctx context.Context, objectID string) ([]Comment, error) {
	if strings.TrimSpace(objectID) == "" {
		return nil, errs.NewMalformedInput("empty object id")
	}
	path := "/" + url.PathEscape(objectID) + "/comments"

	resp, err := c.Execute(ctx, http.MethodGet, path, nil, ScopeUser)
	if err != nil {
		return nil, err
	}

	var page struct {
		Data []Comment `json:"data"`
	}
	if err := resp.Decode(path, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		return []Comment{}, nil
	}
	return page.Data, nil
}

// Request runs a call signed with the application token
func (c *Client) Request(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	return c.Execute(ctx, method, normalizePath(path), params, ScopeUser)
}

// PageRequest runs a call signed with the page token; it fails with an
// authorization error when no page token is configured.
func (c *Client) PageRequest(ctx context.Context, method, path string, params url.Values) (*Response, error) {
	return c.Execute(ctx, method, normalizePath(path), params, ScopePage)
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}
