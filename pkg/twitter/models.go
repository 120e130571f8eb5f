package twitter

import (
	"encoding/json"
	"strings"
	"time"
)

// Timestamp parses Twitter's created_at format, e.g. "Wed Aug 27 13:08:45 +0000 2008"
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RubyDate, raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RubyDate))
}

// User is the subset of a Twitter user object the toolkit reads
type User struct {
	ID              int64     `json:"id"`
	ScreenName      string    `json:"screen_name"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	FollowersCount  int       `json:"followers_count"`
	FriendsCount    int       `json:"friends_count"`
	StatusesCount   int       `json:"statuses_count"`
	Protected       bool      `json:"protected"`
	Verified        bool      `json:"verified"`
	Lang            string    `json:"lang"`
	CreatedAt       Timestamp `json:"created_at"`
	ProfileImageURL string    `json:"profile_image_url_https"`
}

// Tweet is the subset of a status object the toolkit reads
type Tweet struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	FullText  string    `json:"full_text,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
	User      User      `json:"user"`
	Lang      string    `json:"lang"`
}

// Body returns the full text when the provider sent it, the short text otherwise
func (t Tweet) Body() string {
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

// IsRetweet applies IsRetweetText to the tweet body
func (t Tweet) IsRetweet() bool {
	return IsRetweetText(t.Body())
}

// IsRetweetText reports whether text carries the "RT @" retweet prefix
func IsRetweetText(text string) bool {
	return strings.HasPrefix(text, "RT @")
}

// Friendship describes how source relates to target
type Friendship struct {
	SourceID         int64  `json:"source_id"`
	SourceScreenName string `json:"source_screen_name"`
	TargetID         int64  `json:"target_id"`
	TargetScreenName string `json:"target_screen_name"`
	// Following is true when source follows target
	Following bool `json:"following"`
	// FollowedBy is true when target follows source
	FollowedBy bool `json:"followed_by"`
}

type idsPage struct {
	IDs        []int64 `json:"ids"`
	NextCursor int64   `json:"next_cursor"`
}

type searchPage struct {
	Statuses []Tweet `json:"statuses"`
}

type friendshipResponse struct {
	Relationship struct {
		Source struct {
			ID         int64  `json:"id"`
			ScreenName string `json:"screen_name"`
			Following  bool   `json:"following"`
			FollowedBy bool   `json:"followed_by"`
		} `json:"source"`
		Target struct {
			ID         int64  `json:"id"`
			ScreenName string `json:"screen_name"`
		} `json:"target"`
	} `json:"relationship"`
}

type rateLimitResponse struct {
	Resources map[string]map[string]struct {
		Limit     int   `json:"limit"`
		Remaining int   `json:"remaining"`
		Reset     int64 `json:"reset"`
	} `json:"resources"`
}

type errorPayload struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Error string `json:"error"`
}
