package twitter

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "emmakit/pkg/errors"
)

// MaxLookupBatch is the provider cap on identifiers per users/lookup call
const MaxLookupBatch = 100

// TimelineOptions controls a user timeline fetch
type TimelineOptions struct {
	// Count is the target number of tweets
	Count int
	// IncludeRetweets keeps retweets in the result. They are always requested
	// so that every page comes back full, and dropped locally when false.
	IncludeRetweets bool
	// Since drops tweets created before it (zero means no cutoff)
	Since time.Time
}

// SearchOptions controls a tweet search
type SearchOptions struct {
	Count int
	Since time.Time
	// ResultType is "recent", "popular" or "mixed" (provider default when empty)
	ResultType string
}

func identifierParams(id Identifier) (url.Values, error) {
	if id == nil {
		return nil, errs.NewMalformedInput("nil identifier")
	}
	key, value := id.param("")
	return url.Values{key: {value}}, nil
}

// Followers lists the ids following id
func (c *Client) Followers(ctx context.Context, id Identifier, opts CursorOptions) ([]int64, error) {
	params, err := identifierParams(id)
	if err != nil {
		return nil, err
	}
	return c.pageCursor(ctx, "/followers/ids", params, opts)
}

// Friends lists the ids id follows
func (c *Client) Friends(ctx context.Context, id Identifier, opts CursorOptions) ([]int64, error) {
	params, err := identifierParams(id)
	if err != nil {
		return nil, err
	}
	return c.pageCursor(ctx, "/friends/ids", params, opts)
}

// LookupUsers hydrates ids in batches of MaxLookupBatch. Numeric ids and
// screen names go in separate batches. A batch that fails is logged and
// skipped; only context cancellation aborts the lookup.
func (c *Client) LookupUsers(ctx context.Context, ids []Identifier) ([]User, error) {
	var numeric, names []Identifier
	for _, id := range ids {
		switch id.(type) {
		case UserID:
			numeric = append(numeric, id)
		case ScreenName:
			names = append(names, id)
		default:
			return nil, errs.NewMalformedInput("unsupported identifier %v", id)
		}
	}

	var users []User
	for _, group := range []struct {
		key string
		ids []Identifier
	}{{"user_id", numeric}, {"screen_name", names}} {
		for i, chunk := range ChunkIdentifiers(group.ids, MaxLookupBatch) {
			values := make([]string, len(chunk))
			for j, id := range chunk {
				values[j] = id.String()
			}
			params := url.Values{
				group.key:          {strings.Join(values, ",")},
				"include_entities": {"false"},
			}

			var batch []User
			if err := c.call(ctx, http.MethodPost, "/users/lookup", params, &batch); err != nil {
				if ctx.Err() != nil {
					return users, ctx.Err()
				}
				c.logger.WithError(err).WarnWithFields("user lookup batch failed, skipping", map[string]interface{}{
					"kind":  group.key,
					"batch": i,
					"size":  len(chunk),
				})
				continue
			}
			users = append(users, batch...)
		}
	}
	return users, nil
}

// GetUser fetches a single user; failures are returned to the caller
func (c *Client) GetUser(ctx context.Context, id Identifier) (User, error) {
	params, err := identifierParams(id)
	if err != nil {
		return User{}, err
	}
	params.Set("include_entities", "false")

	var user User
	if err := c.call(ctx, http.MethodGet, "/users/show", params, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Timeline fetches up to opts.Count most recent tweets of id
func (c *Client) Timeline(ctx context.Context, id Identifier, opts TimelineOptions) ([]Tweet, error) {
	params, err := identifierParams(id)
	if err != nil {
		return nil, err
	}
	if opts.Count <= 0 {
		return nil, nil
	}
	params.Set("include_rts", "true")
	params.Set("tweet_mode", "extended")

	fetch := func(ctx context.Context, p url.Values) ([]Tweet, error) {
		var page []Tweet
		if err := c.call(ctx, http.MethodGet, "/statuses/user_timeline", p, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
	var keep func(Tweet) bool
	if !opts.IncludeRetweets {
		keep = func(t Tweet) bool { return !t.IsRetweet() }
	}
	return pageMaxID(ctx, fetch, params, opts.Count, MaxTimelinePage, opts.Since, keep)
}

// Search runs a standard search query
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Tweet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.NewMalformedInput("empty search query")
	}
	if opts.Count <= 0 {
		return nil, nil
	}
	params := url.Values{"q": {query}, "tweet_mode": {"extended"}}
	if opts.ResultType != "" {
		params.Set("result_type", opts.ResultType)
	}

	fetch := func(ctx context.Context, p url.Values) ([]Tweet, error) {
		var page searchPage
		if err := c.call(ctx, http.MethodGet, "/search/tweets", p, &page); err != nil {
			return nil, err
		}
		return page.Statuses, nil
	}
	return pageMaxID(ctx, fetch, params, opts.Count, MaxSearchPage, opts.Since, nil)
}

// ShowFriendship reports whether source follows target and vice versa
func (c *Client) ShowFriendship(ctx context.Context, source, target Identifier) (Friendship, error) {
	if source == nil || target == nil {
		return Friendship{}, errs.NewMalformedInput("friendship lookup needs both source and target")
	}
	params := url.Values{}
	k, v := source.param("source_")
	params.Set(k, v)
	k, v = target.param("target_")
	params.Set(k, v)

	var resp friendshipResponse
	if err := c.call(ctx, http.MethodGet, "/friendships/show", params, &resp); err != nil {
		return Friendship{}, err
	}

	rel := resp.Relationship
	return Friendship{
		SourceID:         rel.Source.ID,
		SourceScreenName: rel.Source.ScreenName,
		TargetID:         rel.Target.ID,
		TargetScreenName: rel.Target.ScreenName,
		Following:        rel.Source.Following,
		FollowedBy:       rel.Source.FollowedBy,
	}, nil
}

// Follow makes the authenticated account follow id
func (c *Client) Follow(ctx context.Context, id Identifier) (User, error) {
	params, err := identifierParams(id)
	if err != nil {
		return User{}, err
	}
	params.Set("follow", "true")

	var user User
	if err := c.call(ctx, http.MethodPost, "/friendships/create", params, &user); err != nil {
		return User{}, err
	}
	return user, nil
}
