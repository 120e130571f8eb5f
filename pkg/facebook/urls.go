package facebook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	errs "emmakit/pkg/errors"
)

var (
	postPattern    = regexp.MustCompile(`/(.+?)/posts/(\d+)`)
	videoPattern   = regexp.MustCompile(`/(.+?)/videos/(\d+)`)
	photoPattern   = regexp.MustCompile(`(?:^|&)(?:v|fbid)=(\d+)`)
	storyPattern   = regexp.MustCompile(`(?:^|&)story_fbid=(\d+)`)
	storyOwner     = regexp.MustCompile(`(?:^|&)id=(\d+)`)
	eventPattern   = regexp.MustCompile(`events/(\d+)`)
	pageIDPattern  = regexp.MustCompile(`fbpage_id=(\d+)`)
	numericPattern = regexp.MustCompile(`^\d+$`)
)

// objectRef is what a Facebook URL points at
type objectRef struct {
	// owner is the page or user part, possibly a vanity name
	owner string
	// object is the post, video, photo, story or event id
	object string
}

// parseObjectURL recognises post, video, photo, permalink and event URLs
func parseObjectURL(raw string) (objectRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return objectRef{}, errs.NewMalformedInput("invalid URL %q: %v", raw, err)
	}
	path, query := u.Path, u.RawQuery

	unknown := errs.NewMalformedInput("unsupported facebook URL: %s", raw)
	switch {
	case strings.Contains(path, "post"):
		m := postPattern.FindStringSubmatch(path)
		if m == nil {
			return objectRef{}, unknown
		}
		return objectRef{owner: m[1], object: m[2]}, nil
	case strings.Contains(path, "video"):
		m := videoPattern.FindStringSubmatch(path)
		if m == nil {
			return objectRef{}, unknown
		}
		return objectRef{owner: m[1], object: m[2]}, nil
	case strings.Contains(path, "photo"):
		m := photoPattern.FindStringSubmatch(query)
		if m == nil {
			return objectRef{}, unknown
		}
		return objectRef{object: m[1]}, nil
	case strings.Contains(path, "permalink"):
		m := storyPattern.FindStringSubmatch(query)
		if m == nil {
			return objectRef{}, unknown
		}
		ref := objectRef{object: m[1]}
		if owner := storyOwner.FindStringSubmatch(query); owner != nil {
			ref.owner = owner[1]
		}
		return ref, nil
	case strings.Contains(path, "events"):
		m := eventPattern.FindStringSubmatch(path)
		if m == nil {
			return objectRef{}, unknown
		}
		return objectRef{object: m[1]}, nil
	default:
		return objectRef{}, unknown
	}
}

// UserIDFromURL returns the numeric id of the page or user a URL belongs to.
// Vanity names are looked up through the public page. Photo and event URLs
// carry no owner; their object id is returned instead.
func (c *Client) UserIDFromURL(ctx context.Context, raw string) (string, error) {
	ref, err := parseObjectURL(raw)
	if err != nil {
		return "", err
	}
	if ref.owner == "" {
		return ref.object, nil
	}
	return c.resolveOwner(ctx, ref.owner)
}

// PostIDFromURL returns the Graph id of the object a URL points at:
// "<owner>_<object>" when the owner is known, the bare object id otherwise.
func (c *Client) PostIDFromURL(ctx context.Context, raw string) (string, error) {
	ref, err := parseObjectURL(raw)
	if err != nil {
		return "", err
	}
	if ref.owner == "" {
		return ref.object, nil
	}
	owner, err := c.resolveOwner(ctx, ref.owner)
	if err != nil {
		return "", err
	}
	return owner + "_" + ref.object, nil
}

func (c *Client) resolveOwner(ctx context.Context, owner string) (string, error) {
	if numericPattern.MatchString(owner) {
		return owner, nil
	}
	return c.IDFromUsername(ctx, owner)
}

// IDFromUsername finds a page's numeric id in its public HTML
func (c *Client) IDFromUsername(ctx context.Context, username string) (string, error) {
	username = strings.Trim(username, "/")
	if username == "" {
		return "", errs.NewMalformedInput("empty username")
	}
	resource := "/" + username

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.webURL+"/"+url.PathEscape(username), nil)
	if err != nil {
		return "", errs.NewMalformedInput("invalid username %q", username)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", errs.NewNetwork(resource, err)
	}
	defer resp.Body.Close()

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.NewNetwork(resource, err)
	}

	m := pageIDPattern.FindSubmatch(html)
	if m == nil {
		return "", &errs.Error{
			Type:     errs.ErrorTypeNotFound,
			Message:  fmt.Sprintf("no page id found for %s", username),
			Code:     resp.StatusCode,
			Resource: resource,
		}
	}
	return string(m[1]), nil
}
