package twitter

import (
	"strconv"
	"strings"

	errs "emmakit/pkg/errors"
)

// Identifier names a Twitter account either by numeric id or by screen name.
// It is resolved once at the API boundary; the two forms are never mixed in
// a single request parameter.
type Identifier interface {
	// param returns the request parameter name and value for this identifier.
	// prefix is "" for plain endpoints and e.g. "source_" for friendships/show.
	param(prefix string) (string, string)
	String() string
}

// UserID is a numeric account id
type UserID int64

func (id UserID) param(prefix string) (string, string) {
	key := prefix + "user_id"
	if prefix != "" {
		key = prefix + "id"
	}
	return key, strconv.FormatInt(int64(id), 10)
}

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ScreenName is an account handle without the leading @
type ScreenName string

func (s ScreenName) param(prefix string) (string, string) {
	return prefix + "screen_name", string(s)
}

func (s ScreenName) String() string {
	return string(s)
}

// ParseIdentifier turns caller input into an Identifier: all digits become a
// UserID, anything else a ScreenName with a leading @ stripped.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errs.NewMalformedInput("empty identifier")
	}

	if isDigits(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errs.NewMalformedInput("numeric identifier %q out of range", s)
		}
		return UserID(id), nil
	}

	name := strings.TrimPrefix(s, "@")
	if name == "" || !isHandle(name) {
		return nil, errs.NewMalformedInput("invalid screen name %q", s)
	}
	return ScreenName(name), nil
}

// ParseIdentifiers parses every input, failing on the first malformed one
func ParseIdentifiers(in []string) ([]Identifier, error) {
	out := make([]Identifier, 0, len(in))
	for _, s := range in {
		id, err := ParseIdentifier(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Chunk splits items into consecutive slices of at most n elements
func Chunk[T any](items []T, n int) [][]T {
	if n <= 0 {
		n = 1
	}
	chunks := make([][]T, 0, (len(items)+n-1)/n)
	for start := 0; start < len(items); start += n {
		end := start + n
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// ChunkIdentifiers splits ids into batches of at most n
func ChunkIdentifiers(ids []Identifier, n int) [][]Identifier {
	return Chunk(ids, n)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isHandle(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
