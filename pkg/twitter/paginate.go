package twitter

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// MaxIDsPerPage is the provider cap for followers/ids and friends/ids
	MaxIDsPerPage = 5000
	// MaxTimelinePage is the provider cap for statuses/user_timeline
	MaxTimelinePage = 200
	// MaxSearchPage is the page size used for search/tweets
	MaxSearchPage = 20
)

// CursorOptions controls a cursor-paginated id listing
type CursorOptions struct {
	// Count is the page size, capped at MaxIDsPerPage (0 means the cap)
	Count int
	// SinglePage stops after the first page
	SinglePage bool
	// Filter, when non-nil, keeps only ids present in the set
	Filter map[int64]struct{}
}

// pageCursor drains a cursor endpoint. It starts at cursor -1 and follows
// next_cursor until the provider returns 0 (or omits it).
func (c *Client) pageCursor(ctx context.Context, path string, base url.Values, opts CursorOptions) ([]int64, error) {
	count := opts.Count
	if count <= 0 || count > MaxIDsPerPage {
		count = MaxIDsPerPage
	}

	var out []int64
	cursor := int64(-1)
	for {
		params := cloneValues(base)
		params.Set("cursor", strconv.FormatInt(cursor, 10))
		params.Set("count", strconv.Itoa(count))

		var page idsPage
		if err := c.call(ctx, http.MethodGet, path, params, &page); err != nil {
			return nil, err
		}

		for _, id := range page.IDs {
			if opts.Filter != nil {
				if _, ok := opts.Filter[id]; !ok {
					continue
				}
			}
			out = append(out, id)
		}

		if opts.SinglePage || page.NextCursor == 0 {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// tweetPager fetches one page of tweets for the given parameters
type tweetPager func(ctx context.Context, params url.Values) ([]Tweet, error)

// pageMaxID drains a max-id paginated endpoint up to target items, requesting
// at most pageMax per call. Each next page ends just below the last id seen.
// It stops on a short page, at target, or once the oldest item precedes
// since; items older than since are dropped from the result. When keep is
// set, only items it accepts count towards target.
func pageMaxID(ctx context.Context, fetch tweetPager, base url.Values, target, pageMax int, since time.Time, keep func(Tweet) bool) ([]Tweet, error) {
	var out []Tweet
	var maxID int64

	for len(out) < target {
		want := target - len(out)
		if want > pageMax {
			want = pageMax
		}

		params := cloneValues(base)
		params.Set("count", strconv.Itoa(want))
		if maxID > 0 {
			params.Set("max_id", strconv.FormatInt(maxID, 10))
		}

		page, err := fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, tw := range page {
			if keep == nil || keep(tw) {
				out = append(out, tw)
			}
		}

		// page length and max_id follow the raw page, not what keep retained
		if len(page) < want {
			break
		}
		last := page[len(page)-1]
		if !since.IsZero() && last.CreatedAt.Before(since) {
			break
		}
		maxID = last.ID - 1
	}

	if len(out) > target {
		out = out[:target]
	}
	return filterSince(out, since), nil
}

func filterSince(tweets []Tweet, since time.Time) []Tweet {
	if since.IsZero() {
		return tweets
	}
	kept := tweets[:0]
	for _, t := range tweets {
		if !t.CreatedAt.Before(since) {
			kept = append(kept, t)
		}
	}
	return kept
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
